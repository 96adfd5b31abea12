// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/owldoor/internal/config"
)

const testSecret = "test-secret-that-is-at-least-32-characters"

func newManager(t *testing.T, issuer string) *JWTManager {
	t.Helper()
	m, err := NewJWTManager(&config.SecurityConfig{JWTSecret: testSecret, JWTIssuer: issuer, TokenTTL: time.Hour})
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}
	return m
}

func sign(t *testing.T, secret string, method jwt.SigningMethod, claims *Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func baaSClaims(sub, role, appRole string, exp time.Time) *Claims {
	return &Claims{
		Email:       sub + "@example.com",
		Role:        role,
		AppMetadata: Metadata{Role: appRole},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
}

func TestNewJWTManagerRequiresSecret(t *testing.T) {
	if _, err := NewJWTManager(&config.SecurityConfig{}); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestGenerateAndValidate(t *testing.T) {
	m := newManager(t, "owldoor-test")
	token, err := m.GenerateToken("user-1", "jane@example.com", RoleClient)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.Subject != "user-1" || claims.Email != "jane@example.com" || claims.AppMetadata.Role != RoleClient {
		t.Errorf("claims = %+v", claims)
	}
}

func TestValidateTokenRejects(t *testing.T) {
	m := newManager(t, "")
	future := time.Now().Add(time.Hour)

	tests := []struct {
		name  string
		token string
	}{
		{"wrong secret", sign(t, "another-secret-of-sufficient-length!!", jwt.SigningMethodHS256, baaSClaims("u", "authenticated", "", future))},
		{"expired", sign(t, testSecret, jwt.SigningMethodHS256, baaSClaims("u", "authenticated", "", time.Now().Add(-time.Hour)))},
		{"no expiry", sign(t, testSecret, jwt.SigningMethodHS256, &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u"}})},
		{"no subject", sign(t, testSecret, jwt.SigningMethodHS256, baaSClaims("", "authenticated", "", future))},
		{"hs512", sign(t, testSecret, jwt.SigningMethodHS512, baaSClaims("u", "authenticated", "", future))},
		{"garbage", "not.a.token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.ValidateToken(tt.token); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidateTokenChecksIssuer(t *testing.T) {
	m := newManager(t, "https://auth.owldoor.test")
	c := baaSClaims("u", "authenticated", "", time.Now().Add(time.Hour))
	c.Issuer = "https://evil.test"
	if _, err := m.ValidateToken(sign(t, testSecret, jwt.SigningMethodHS256, c)); err == nil {
		t.Error("expected issuer mismatch")
	}
	c.Issuer = "https://auth.owldoor.test"
	if _, err := m.ValidateToken(sign(t, testSecret, jwt.SigningMethodHS256, c)); err != nil {
		t.Errorf("matching issuer rejected: %v", err)
	}
}

func TestRoleFromClaims(t *testing.T) {
	tests := []struct {
		name, role, appRole, want string
	}{
		{"app metadata wins", "client", "admin", "admin"},
		{"top-level app role", "pro", "", "pro"},
		{"authenticated falls back", "authenticated", "", "pro"},
		{"unknown app role ignored", "authenticated", "superuser", "pro"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := baaSClaims("u", tt.role, tt.appRole, time.Now())
			if got := RoleFromClaims(c, RolePro); got != tt.want {
				t.Errorf("RoleFromClaims = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMiddleware(t *testing.T) {
	m := newManager(t, "")
	mw := NewMiddleware(m, RolePro)
	clientToken, _ := m.GenerateToken("client-1", "c@example.com", RoleClient)

	var seen *AuthSubject
	handler := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetAuthSubject(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		setup  func(r *http.Request)
		status int
	}{
		{"missing", func(*http.Request) {}, http.StatusUnauthorized},
		{"bad scheme", func(r *http.Request) { r.Header.Set("Authorization", "Basic abc") }, http.StatusUnauthorized},
		{"invalid", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized},
		{"header", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+clientToken) }, http.StatusNoContent},
		{"query", func(r *http.Request) { r.URL.RawQuery = "access_token=" + clientToken }, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			r := httptest.NewRequest(http.MethodGet, "/api/v1/clients", nil)
			tt.setup(r)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d", w.Code, tt.status)
			}
			if tt.status == http.StatusUnauthorized && w.Header().Get("WWW-Authenticate") == "" {
				t.Error("missing WWW-Authenticate header")
			}
			if tt.status == http.StatusNoContent && (seen == nil || seen.ID != "client-1" || seen.Role() != RoleClient) {
				t.Errorf("subject = %+v", seen)
			}
		})
	}
}

func TestSetErrorWriter(t *testing.T) {
	m := NewMiddleware(newManager(t, "owldoor"), "")
	var gotStatus int
	var gotMsg string
	m.SetErrorWriter(func(w http.ResponseWriter, _ *http.Request, status int, message string) {
		gotStatus, gotMsg = status, message
		w.WriteHeader(status)
	})
	h := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler reached without a token")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if gotStatus != http.StatusUnauthorized || gotMsg != "authentication required" {
		t.Errorf("writer got %d %q", gotStatus, gotMsg)
	}
	if w.Header().Get("WWW-Authenticate") == "" {
		t.Error("missing WWW-Authenticate header")
	}

	m.SetErrorWriter(nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusUnauthorized || !strings.Contains(w.Body.String(), "authentication required") {
		t.Errorf("default writer = %d %q", w.Code, w.Body.String())
	}
}

func TestRequireRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	h := NewMiddleware(nil, "").RequireRole(RoleClient)(ok)

	tests := []struct {
		name    string
		subject *AuthSubject
		status  int
	}{
		{"none", nil, http.StatusForbidden},
		{"pro", &AuthSubject{ID: "p", Roles: []string{RolePro}}, http.StatusForbidden},
		{"client", &AuthSubject{ID: "c", Roles: []string{RoleClient}}, http.StatusOK},
		{"admin", &AuthSubject{ID: "a", Roles: []string{RoleAdmin}}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.subject != nil {
				r = r.WithContext(WithSubject(r.Context(), tt.subject))
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
		})
	}
}
