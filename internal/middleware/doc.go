// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

/*
Package middleware provides HTTP middleware shared by every API route.

Components:

  - RequestID: accepts or generates X-Request-ID and seeds the logging
    context with request and correlation IDs
  - PrometheusMetrics: request counters, latency histograms and the
    in-flight gauge, labeled by chi route pattern rather than raw path
  - Compression: gzip for clients that accept it, skipped for websocket
    upgrades
  - PerformanceMonitor: a sliding window of request latencies summarized
    per route for the admin dashboard

All middleware uses the func(http.HandlerFunc) http.HandlerFunc shape; the api
package adapts it to chi's r.Use.

Typical order, outermost first:

	RequestID -> PrometheusMetrics -> PerformanceMonitor -> Compression -> handler

Response writers returned by this package pass through http.Hijacker and
http.Flusher so websocket upgrades work behind them.
*/
package middleware
