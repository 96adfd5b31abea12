// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package authz

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/tomtom215/owldoor/internal/auth"
	"github.com/tomtom215/owldoor/internal/config"
)

func newEnforcer(t *testing.T, cfg config.CasbinConfig) *Enforcer {
	t.Helper()
	e, err := NewEnforcer(cfg)
	if err != nil {
		t.Fatalf("NewEnforcer: %v", err)
	}
	t.Cleanup(e.Close)
	return e
}

func TestEmbeddedPolicy(t *testing.T) {
	e := newEnforcer(t, config.CasbinConfig{CacheEnabled: true})

	tests := []struct {
		role, path, action string
		want               bool
	}{
		{"admin", "/api/v1/admin/dashboard", "read", true},
		{"admin", "/api/v1/pros/123", "delete", true},
		{"client", "/api/v1/clients/abc/matches/run", "write", true},
		{"client", "/api/v1/clients/abc/matches", "read", true},
		{"client", "/api/v1/matches/m1/status", "write", true},
		{"client", "/api/v1/pros/p1", "read", true},
		{"client", "/api/v1/pros/p1", "write", false},
		{"client", "/api/v1/pros", "read", false},
		{"client", "/api/v1/admin/dashboard", "read", false},
		{"client", "/api/v1/ai/chat", "write", true},
		{"pro", "/api/v1/pros/p1", "write", true},
		{"pro", "/api/v1/pros/p1", "delete", false},
		{"pro", "/api/v1/clients/abc", "read", false},
		{"pro", "/api/v1/onboarding/pro/steps/profile", "write", true},
		{"pro", "/api/v1/notifications/sms", "write", false},
		{"stranger", "/api/v1/geocode", "read", false},
	}
	for _, tt := range tests {
		t.Run(tt.role+" "+tt.action+" "+tt.path, func(t *testing.T) {
			// Twice, so the second answer comes from the cache.
			for i := 0; i < 2; i++ {
				got, err := e.Enforce(tt.role, tt.path, tt.action)
				if err != nil {
					t.Fatalf("Enforce: %v", err)
				}
				if got != tt.want {
					t.Fatalf("Enforce = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestEnforceRolesDefault(t *testing.T) {
	e := newEnforcer(t, config.CasbinConfig{DefaultRole: "pro"})
	allowed, role, err := e.EnforceRoles(nil, "/api/v1/ai/history", "read")
	if err != nil || !allowed || role != "pro" {
		t.Errorf("EnforceRoles = %v, %q, %v", allowed, role, err)
	}
	allowed, _, _ = e.EnforceRoles([]string{"pro", "client"}, "/api/v1/clients", "write")
	if !allowed {
		t.Error("second role should grant access")
	}
}

func TestPolicyFromFile(t *testing.T) {
	dir := t.TempDir()
	policy := filepath.Join(dir, "policy.csv")
	if err := os.WriteFile(policy, []byte("p, auditor, /api/v1/admin/audit, read\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	e := newEnforcer(t, config.CasbinConfig{PolicyPath: policy})
	if ok, _ := e.Enforce("auditor", "/api/v1/admin/audit", "read"); !ok {
		t.Error("file policy not loaded")
	}
	if ok, _ := e.Enforce("admin", "/api/v1/admin/audit", "read"); ok {
		t.Error("embedded policy should not apply when a file is configured")
	}
	if len(e.Policy()) != 1 {
		t.Errorf("policy = %v", e.Policy())
	}
}

func TestAuthorizeRequest(t *testing.T) {
	mw := NewMiddleware(newEnforcer(t, config.CasbinConfig{}))
	h := mw.AuthorizeRequest(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name    string
		method  string
		path    string
		subject *auth.AuthSubject
		status  int
	}{
		{"no subject", http.MethodGet, "/api/v1/clients", nil, http.StatusForbidden},
		{"client reads clients", http.MethodGet, "/api/v1/clients", &auth.AuthSubject{ID: "c", Roles: []string{"client"}}, http.StatusOK},
		{"pro deletes pro", http.MethodDelete, "/api/v1/pros/1", &auth.AuthSubject{ID: "p", Roles: []string{"pro"}}, http.StatusForbidden},
		{"admin deletes pro", http.MethodDelete, "/api/v1/pros/1", &auth.AuthSubject{ID: "a", Roles: []string{"admin"}}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.subject != nil {
				r = r.WithContext(auth.WithSubject(r.Context(), tt.subject))
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
		})
	}
}

func TestMethodToAction(t *testing.T) {
	for method, want := range map[string]string{
		http.MethodGet: "read", http.MethodHead: "read", http.MethodPost: "write",
		http.MethodPut: "write", http.MethodPatch: "write", http.MethodDelete: "delete",
	} {
		if got := MethodToAction(method); got != want {
			t.Errorf("MethodToAction(%s) = %s, want %s", method, got, want)
		}
	}
}
