// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package middleware

import (
	"net/http"
	"time"

	"github.com/tomtom215/owldoor/internal/metrics"
)

// PrometheusMetrics records request count, latency and in-flight requests,
// labeled by route pattern.
func PrometheusMetrics(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metrics.TrackActiveRequest(true)
		defer metrics.TrackActiveRequest(false)

		start := time.Now()
		sw := newStatusWriter(w)
		next(sw, r)

		metrics.RecordAPIRequest(r.Method, routePattern(r), sw.status, time.Since(start))
	}
}
