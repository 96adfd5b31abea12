// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package middleware

import (
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/owldoor/internal/logging"
)

// RequestSample is one observed request.
type RequestSample struct {
	Route      string
	Method     string
	Duration   time.Duration
	StatusCode int
	At         time.Time
}

// RouteStats summarizes the samples of one route.
type RouteStats struct {
	Route      string  `json:"route"`
	Requests   int     `json:"requests"`
	Errors     int     `json:"errors"`
	AvgMS      float64 `json:"avg_ms"`
	P50MS      int64   `json:"p50_ms"`
	P95MS      int64   `json:"p95_ms"`
	P99MS      int64   `json:"p99_ms"`
	MaxMS      int64   `json:"max_ms"`
	LastStatus int     `json:"last_status"`
}

// PerformanceMonitor keeps the most recent requests in a ring buffer for the
// admin dashboard.
type PerformanceMonitor struct {
	mu       sync.RWMutex
	samples  []RequestSample
	next     int
	full     bool
	slowOver time.Duration
}

// NewPerformanceMonitor keeps up to window samples and warns about requests
// slower than slowOver. A zero slowOver disables the warning.
func NewPerformanceMonitor(window int, slowOver time.Duration) *PerformanceMonitor {
	if window <= 0 {
		window = 1000
	}
	return &PerformanceMonitor{samples: make([]RequestSample, window), slowOver: slowOver}
}

// Record adds a sample, evicting the oldest when the window is full.
func (pm *PerformanceMonitor) Record(s RequestSample) {
	pm.mu.Lock()
	pm.samples[pm.next] = s
	pm.next = (pm.next + 1) % len(pm.samples)
	if pm.next == 0 {
		pm.full = true
	}
	pm.mu.Unlock()
}

func (pm *PerformanceMonitor) window() []RequestSample {
	if pm.full {
		return pm.samples
	}
	return pm.samples[:pm.next]
}

// Stats summarizes the window per "METHOD route", busiest first.
func (pm *PerformanceMonitor) Stats() []RouteStats {
	pm.mu.RLock()
	byRoute := make(map[string][]RequestSample)
	for _, s := range pm.window() {
		key := s.Method + " " + s.Route
		byRoute[key] = append(byRoute[key], s)
	}
	pm.mu.RUnlock()

	stats := make([]RouteStats, 0, len(byRoute))
	for route, samples := range byRoute {
		ms := make([]int64, len(samples))
		var sum int64
		rs := RouteStats{Route: route, Requests: len(samples)}
		var last time.Time
		for i, s := range samples {
			ms[i] = s.Duration.Milliseconds()
			sum += ms[i]
			if s.StatusCode >= 500 {
				rs.Errors++
			}
			if !s.At.Before(last) {
				last, rs.LastStatus = s.At, s.StatusCode
			}
		}
		sort.Slice(ms, func(i, j int) bool { return ms[i] < ms[j] })
		rs.AvgMS = float64(sum) / float64(len(ms))
		rs.P50MS = percentile(ms, 0.50)
		rs.P95MS = percentile(ms, 0.95)
		rs.P99MS = percentile(ms, 0.99)
		rs.MaxMS = ms[len(ms)-1]
		stats = append(stats, rs)
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Requests != stats[j].Requests {
			return stats[i].Requests > stats[j].Requests
		}
		return stats[i].Route < stats[j].Route
	})
	return stats
}

// Middleware records every request handled by next.
func (pm *PerformanceMonitor) Middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := newStatusWriter(w)
		next(sw, r)
		d := time.Since(start)

		route := routePattern(r)
		pm.Record(RequestSample{Route: route, Method: r.Method, Duration: d, StatusCode: sw.status, At: start})

		if pm.slowOver > 0 && d > pm.slowOver && sw.status != http.StatusSwitchingProtocols {
			logging.Ctx(r.Context()).Warn().
				Str("method", r.Method).
				Str("route", route).
				Dur("duration", d).
				Msg("Slow request")
		}
	}
}

func percentile(sorted []int64, p float64) int64 {
	if len(sorted) == 0 {
		return 0
	}
	return sorted[int(float64(len(sorted)-1)*p)]
}
