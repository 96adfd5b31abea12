// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/owldoor/internal/middleware"
)

func TestRateLimitEnvelope(t *testing.T) {
	mw := DefaultChiMiddlewareConfig()
	mw.RateLimitRequests = 2
	mw.RateLimitWindow = time.Minute
	s := newTestServer(t, mw)

	// The limiter runs before authentication, so anonymous calls count.
	for i := 0; i < 2; i++ {
		expectStatus(t, s.do(http.MethodGet, "/api/v1/geocode?q=Austin", "", nil), http.StatusUnauthorized)
	}
	rec := s.do(http.MethodGet, "/api/v1/geocode?q=Austin", "", nil)
	expectStatus(t, rec, http.StatusTooManyRequests)
	env := decode(t, rec, nil)
	if env.Success || env.Error == nil || env.Error.Code != ErrCodeRateLimited {
		t.Errorf("rate limited body = %s", rec.Body.String())
	}

	// Health probes have their own, larger budget.
	expectStatus(t, s.do(http.MethodGet, "/api/v1/health/live", "", nil), http.StatusOK)
}

func TestCORS(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name   string
		origin string
		allow  string
	}{
		{"configured origin", testOrigin, testOrigin},
		{"unknown origin", "https://evil.example.com", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodOptions, "/api/v1/pricing/quote", "", nil,
				"Origin", tt.origin,
				"Access-Control-Request-Method", http.MethodPost,
				"Access-Control-Request-Headers", "Content-Type")
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.allow {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.allow)
			}
		})
	}

	rec := s.do(http.MethodGet, "/api/v1/pricing/plans", "", nil, "Origin", testOrigin)
	if !strings.Contains(rec.Header().Get("Access-Control-Expose-Headers"), middleware.HeaderRequestID) {
		t.Errorf("request ID header not exposed: %v", rec.Header())
	}
}

func TestSecurityHeaders(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(http.MethodGet, "/api/v1/health", "", nil)
	for header, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
	} {
		if got := rec.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS sent over plain HTTP")
	}

	rec = s.do(http.MethodGet, "/api/v1/health", "", nil, "X-Forwarded-Proto", "https")
	if rec.Header().Get("Strict-Transport-Security") == "" {
		t.Error("HSTS missing behind a TLS proxy")
	}
	if rec.Header().Get(middleware.HeaderRequestID) == "" {
		t.Error("response has no request ID")
	}
}

func TestRequestIDPropagation(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(http.MethodGet, "/api/v1/health", "", nil, middleware.HeaderRequestID, "req-abc-123")
	if got := rec.Header().Get(middleware.HeaderRequestID); got != "req-abc-123" {
		t.Errorf("response request ID = %q", got)
	}
	if env := decode(t, rec, nil); env.Metadata == nil || env.Metadata.RequestID != "req-abc-123" {
		t.Errorf("metadata = %+v", env.Metadata)
	}
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(http.MethodGet, "/api/v1/nope", "", nil)
	expectStatus(t, rec, http.StatusNotFound)
	if env := decode(t, rec, nil); env.Error == nil || env.Error.Code != ErrCodeNotFound {
		t.Errorf("404 body = %s", rec.Body.String())
	}

	rec = s.do(http.MethodDelete, "/api/v1/pricing/plans", "", nil)
	expectStatus(t, rec, http.StatusMethodNotAllowed)
	if env := decode(t, rec, nil); env.Error == nil {
		t.Errorf("405 body = %s", rec.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	s.do(http.MethodGet, "/api/v1/health", "", nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	expectStatus(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), "owldoor_") {
		t.Error("metrics output has no owldoor series")
	}
}

func TestCheckWebSocketOrigin(t *testing.T) {
	h := NewHandler(Deps{})
	h.cfg.Security.CORSOrigins = []string{testOrigin}

	tests := []struct {
		origin string
		want   bool
	}{
		{testOrigin, true},
		{"", false},
		{"https://evil.example.com", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/ws", nil)
		if tt.origin != "" {
			req.Header.Set("Origin", tt.origin)
		}
		if got := h.checkWebSocketOrigin(req); got != tt.want {
			t.Errorf("origin %q allowed = %v, want %v", tt.origin, got, tt.want)
		}
	}

	h.cfg.Security.CORSOrigins = []string{"*"}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/ws", nil)
	req.Header.Set("Origin", "https://anything.example.com")
	if !h.checkWebSocketOrigin(req) {
		t.Error("wildcard should allow any origin")
	}
}
