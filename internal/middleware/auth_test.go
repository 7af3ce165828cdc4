package middleware

import (
	"net/http"
	"net/http/httptest"
	"scorm_trends_backend/internal/config"
	"scorm_trends_backend/internal/model"
	"scorm_trends_backend/internal/util"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newProtectedRouter(roles ...model.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{JWT: config.JWTConfig{Secret: testSecret}}

	r := gin.New()
	r.GET("/report", AuthMiddleware(cfg), RoleMiddleware(roles...), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return r
}

func tokenFor(t *testing.T, role model.UserRole, secret string, ttl time.Duration) string {
	t.Helper()
	user := &model.User{Email: "u@example.com", Role: role}
	user.ID = 7
	token, err := util.IssueToken(user, secret, ttl)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	return token
}

func TestAuthAndRoles(t *testing.T) {
	tests := []struct {
		name   string
		header string
		status int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + tokenFor(t, model.Teacher, "another-secret-another-secret-xx", time.Hour), http.StatusUnauthorized},
		{"expired", "Bearer " + tokenFor(t, model.Teacher, testSecret, -time.Minute), http.StatusUnauthorized},
		{"student", "Bearer " + tokenFor(t, model.Student, testSecret, time.Hour), http.StatusForbidden},
		{"teacher", "Bearer " + tokenFor(t, model.Teacher, testSecret, time.Hour), http.StatusOK},
		{"admin", "Bearer " + tokenFor(t, model.Admin, testSecret, time.Hour), http.StatusOK},
	}

	r := newProtectedRouter(model.Teacher)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/report", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
		})
	}
}
