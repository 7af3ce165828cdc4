package controller

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"scorm_trends_backend/internal/util"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

type fakeAuth struct {
	token string
	err   error
}

func (f *fakeAuth) Login(_ context.Context, _, _ string) (string, error) {
	return f.token, f.err
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		auth   *fakeAuth
		status int
	}{
		{"ok", `{"email":"t@example.com","password":"pw"}`, &fakeAuth{token: "tok"}, http.StatusOK},
		{"missing password", `{"email":"t@example.com"}`, &fakeAuth{}, http.StatusBadRequest},
		{"bad credentials", `{"email":"t@example.com","password":"pw"}`, &fakeAuth{err: util.ErrInvalidCredentials}, http.StatusUnauthorized},
		{"backend error", `{"email":"t@example.com","password":"pw"}`, &fakeAuth{err: errors.New("boom")}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.POST("/api/login", NewAuthController(tt.auth).Login)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)

			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.status, w.Body.String())
			}
			if tt.status == http.StatusOK && !strings.Contains(w.Body.String(), `"token":"tok"`) {
				t.Errorf("token missing from %s", w.Body.String())
			}
		})
	}
}

type fakePinger struct{ err error }

func (f fakePinger) PingContext(context.Context) error { return f.err }

func TestHealthCheck(t *testing.T) {
	for _, tc := range []struct {
		err    error
		status int
	}{
		{nil, http.StatusOK},
		{errors.New("gone"), http.StatusServiceUnavailable},
	} {
		r := gin.New()
		r.GET("/api/health", NewHealthController(fakePinger{tc.err}).HealthCheck)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
		if w.Code != tc.status {
			t.Errorf("health with err=%v: status %d, want %d", tc.err, w.Code, tc.status)
		}
	}
}
