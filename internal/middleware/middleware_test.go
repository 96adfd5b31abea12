// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/owldoor/internal/logging"
	"github.com/tomtom215/owldoor/internal/metrics"
)

func TestRequestID(t *testing.T) {
	tests := []struct {
		name        string
		requestID   string
		correlation string
		keepRequest bool
		keepCorr    bool
	}{
		{name: "generated", keepRequest: false, keepCorr: false},
		{name: "upstream ids kept", requestID: "req-123", correlation: "lead.webhook_9", keepRequest: true, keepCorr: true},
		{name: "unsafe ids replaced", requestID: "bad\nid", correlation: "<script>", keepRequest: false, keepCorr: false},
		{name: "oversized id replaced", requestID: strings.Repeat("a", 65), keepRequest: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ctxID, ctxCorr, logID string
			h := RequestID(func(w http.ResponseWriter, r *http.Request) {
				ctxID = GetRequestID(r.Context())
				logID = logging.RequestIDFromContext(r.Context())
				ctxCorr = logging.CorrelationIDFromContext(r.Context())
			})

			req := httptest.NewRequest(http.MethodGet, "/api/v1/pros", nil)
			if tt.requestID != "" {
				req.Header.Set(HeaderRequestID, tt.requestID)
			}
			if tt.correlation != "" {
				req.Header.Set(HeaderCorrelationID, tt.correlation)
			}
			rec := httptest.NewRecorder()
			h(rec, req)

			got := rec.Header().Get(HeaderRequestID)
			if got != ctxID || got != logID {
				t.Fatalf("header %q, context %q, logging %q should agree", got, ctxID, logID)
			}
			if tt.keepRequest {
				if got != tt.requestID {
					t.Errorf("request id = %q, want %q", got, tt.requestID)
				}
			} else if _, err := uuid.Parse(got); err != nil {
				t.Errorf("generated id %q is not a UUID", got)
			}
			if ctxCorr == "" || rec.Header().Get(HeaderCorrelationID) != ctxCorr {
				t.Errorf("correlation header %q, context %q", rec.Header().Get(HeaderCorrelationID), ctxCorr)
			}
			if tt.keepCorr != (ctxCorr == tt.correlation) {
				t.Errorf("correlation = %q (upstream %q)", ctxCorr, tt.correlation)
			}
		})
	}
}

func chiWith(mw func(http.HandlerFunc) http.HandlerFunc, pattern string, h http.HandlerFunc) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler { return mw(next.ServeHTTP) })
	r.Get(pattern, h)
	return r
}

func TestPrometheusMetricsUsesRoutePattern(t *testing.T) {
	counter := metrics.APIRequestsTotal.WithLabelValues("GET", "/api/v1/pros/{id}", "404")
	before := testutil.ToFloat64(counter)

	h := chiWith(PrometheusMetrics, "/api/v1/pros/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	for _, id := range []string{"a", "b", "c"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/pros/"+id, nil))
	}

	if got := testutil.ToFloat64(counter) - before; got != 3 {
		t.Errorf("counter delta = %v, want 3", got)
	}
}

func TestCompression(t *testing.T) {
	body := strings.Repeat(`{"stage":"hot"}`, 200)
	h := Compression(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	})

	t.Run("gzip", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/pros", nil)
		req.Header.Set("Accept-Encoding", "gzip, deflate")
		rec := httptest.NewRecorder()
		h(rec, req)

		if rec.Header().Get("Content-Encoding") != "gzip" {
			t.Fatal("expected gzip encoding")
		}
		zr, err := gzip.NewReader(rec.Body)
		if err != nil {
			t.Fatal(err)
		}
		plain, err := io.ReadAll(zr)
		if err != nil {
			t.Fatal(err)
		}
		if string(plain) != body {
			t.Error("decompressed body differs")
		}
	})

	for name, setup := range map[string]func(*http.Request){
		"no accept-encoding": func(*http.Request) {},
		"websocket": func(r *http.Request) {
			r.Header.Set("Accept-Encoding", "gzip")
			r.Header.Set("Upgrade", "websocket")
		},
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/ws", nil)
			setup(req)
			rec := httptest.NewRecorder()
			h(rec, req)
			if rec.Header().Get("Content-Encoding") != "" || rec.Body.String() != body {
				t.Error("response should pass through uncompressed")
			}
		})
	}
}

func TestPerformanceMonitor(t *testing.T) {
	pm := NewPerformanceMonitor(3, 0)
	now := time.Now()
	samples := []RequestSample{
		{Route: "/old", Method: "GET", Duration: time.Second, StatusCode: 200, At: now},
		{Route: "/pros", Method: "GET", Duration: 10 * time.Millisecond, StatusCode: 200, At: now},
		{Route: "/pros", Method: "GET", Duration: 30 * time.Millisecond, StatusCode: 500, At: now.Add(time.Second)},
		{Route: "/score", Method: "POST", Duration: 5 * time.Millisecond, StatusCode: 200, At: now},
	}
	for _, s := range samples {
		pm.Record(s)
	}

	want := []RouteStats{
		{Route: "GET /pros", Requests: 2, Errors: 1, AvgMS: 20, P50MS: 10, P95MS: 10, P99MS: 10, MaxMS: 30, LastStatus: 500},
		{Route: "POST /score", Requests: 1, AvgMS: 5, P50MS: 5, P95MS: 5, P99MS: 5, MaxMS: 5, LastStatus: 200},
	}
	if diff := cmp.Diff(want, pm.Stats()); diff != "" {
		t.Errorf("stats (-want +got):\n%s", diff)
	}
}

func TestPerformanceMonitorMiddleware(t *testing.T) {
	pm := NewPerformanceMonitor(10, time.Nanosecond)
	h := chiWith(pm.Middleware, "/api/v1/clients/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/clients/42", nil))

	stats := pm.Stats()
	if len(stats) != 1 || stats[0].Route != "GET /api/v1/clients/{id}" || stats[0].LastStatus != http.StatusCreated {
		t.Errorf("stats = %+v", stats)
	}
}
