package util

import (
	"scorm_trends_backend/internal/model"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func testUser(role model.UserRole) *model.User {
	u := &model.User{Email: "t@example.com", Role: role}
	u.ID = 42
	return u
}

func TestIssueAndParseToken(t *testing.T) {
	token, err := IssueToken(testUser(model.Teacher), testSecret, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	claims, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.UserID != 42 || claims.Role != model.Teacher || claims.Subject != "42" {
		t.Errorf("claims = %+v", claims)
	}
	if claims.ID == "" || claims.Issuer != TokenIssuer {
		t.Errorf("registered claims = %+v", claims.RegisteredClaims)
	}
}

func signed(t *testing.T, claims *Claims, method jwt.SigningMethod) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestParseTokenRejectsForeignTokens(t *testing.T) {
	valid := func() *Claims {
		now := time.Now()
		return &Claims{
			UserID: 1,
			Role:   model.Admin,
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    TokenIssuer,
				Audience:  jwt.ClaimStrings{TokenAudience},
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
		}
	}

	otherIssuer := valid()
	otherIssuer.Issuer = "someone-else"
	otherAudience := valid()
	otherAudience.Audience = jwt.ClaimStrings{"other-service"}
	noExpiry := valid()
	noExpiry.ExpiresAt = nil

	tests := []struct {
		name  string
		token string
	}{
		{"other issuer", signed(t, otherIssuer, jwt.SigningMethodHS256)},
		{"other audience", signed(t, otherAudience, jwt.SigningMethodHS256)},
		{"no expiry", signed(t, noExpiry, jwt.SigningMethodHS256)},
		{"HS512", signed(t, valid(), jwt.SigningMethodHS512)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseToken(tt.token, testSecret); err == nil {
				t.Errorf("token accepted")
			}
		})
	}

	if _, err := ParseToken(signed(t, valid(), jwt.SigningMethodHS256), testSecret); err != nil {
		t.Errorf("valid token rejected: %v", err)
	}
}

func TestClaimsRoles(t *testing.T) {
	tests := []struct {
		role    model.UserRole
		reports bool
	}{
		{model.Student, false},
		{model.Teacher, true},
		{model.Admin, true},
	}
	for _, tt := range tests {
		c := &Claims{Role: tt.role}
		if got := c.CanViewReports(); got != tt.reports {
			t.Errorf("%s CanViewReports = %v, want %v", tt.role, got, tt.reports)
		}
	}

	if !(&Claims{Role: model.Admin}).HasRole(model.Student) {
		t.Errorf("admin should pass any role check")
	}
	if (&Claims{Role: model.Teacher}).HasRole() {
		t.Errorf("teacher passed an empty role list")
	}
}
