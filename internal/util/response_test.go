package util

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    int
		message string
	}{
		{"invalid id", ErrInvalidID, http.StatusBadRequest, "invalid scorm id"},
		{"bad login", ErrInvalidCredentials, http.StatusUnauthorized, "invalid credentials"},
		{"no token", ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{"student", ErrForbidden, http.StatusForbidden, ErrForbidden.Error()},
		{"wrapped not found", fmt.Errorf("scorm 9: %w", ErrScormNotFound), http.StatusNotFound, "scorm activity not found"},
		{"unknown", errors.New("dial tcp 10.0.0.3:3306: connection refused"), http.StatusInternalServerError, "Internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, message := StatusOf(tt.err)
			if code != tt.code || message != tt.message {
				t.Errorf("StatusOf = %d %q, want %d %q", code, message, tt.code, tt.message)
			}
		})
	}
}

func TestHandleErrorHidesInternalDetails(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/scorm/:id/trends", func(c *gin.Context) {
		HandleError(c, errors.New("Error 1045: Access denied for user 'moodle'@'10.0.0.3'"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/scorm/3/trends", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "moodle") {
		t.Errorf("response leaks internal error: %s", w.Body.String())
	}
	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Code != http.StatusInternalServerError || resp.Message != "Internal server error" {
		t.Errorf("response = %+v", resp)
	}
}

func TestAbortStopsChain(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reached := false
	r := gin.New()
	r.GET("/", func(c *gin.Context) { Abort(c, ErrForbidden) }, func(c *gin.Context) { reached = true })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusForbidden || reached {
		t.Errorf("status = %d, handler reached = %v", w.Code, reached)
	}
}
