// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

// Package metrics declares OwlDoor's Prometheus instruments and small
// recording helpers. Instruments register on the default registry via promauto
// and are exposed at /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "owldoor_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "owldoor_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "owldoor_api_active_requests",
			Help: "Current number of in-flight API requests",
		},
	)

	// Database
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "owldoor_db_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "owldoor_db_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)

	// Geocoding
	GeocodeLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "owldoor_geocode_lookups_total",
			Help: "Geocode attempts by provider and result (hit, miss, error)",
		},
		[]string{"provider", "result"},
	)

	GeocodeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "owldoor_geocode_duration_seconds",
			Help:    "Geocode provider latency in seconds",
			Buckets: []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"provider"},
	)

	// Cache
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "owldoor_cache_hits_total",
			Help: "Cache hits by cache name",
		},
		[]string{"cache"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "owldoor_cache_misses_total",
			Help: "Cache misses by cache name",
		},
		[]string{"cache"},
	)

	// Circuit breakers
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "owldoor_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "owldoor_circuit_breaker_requests_total",
			Help: "Requests through circuit breakers by result (success, failure, rejected)",
		},
		[]string{"name", "result"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "owldoor_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "owldoor_circuit_breaker_consecutive_failures",
			Help: "Consecutive failures seen by a circuit breaker",
		},
		[]string{"name"},
	)

	// Business events
	LeadsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "owldoor_leads_ingested_total",
			Help: "Inbound leads by source and outcome (created, merged, rejected)",
		},
		[]string{"source", "outcome"},
	)

	ProsScored = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "owldoor_pro_score",
			Help:    "Distribution of computed qualification scores",
			Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
		[]string{"pro_type"},
	)

	MatchesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "owldoor_matches_created_total",
			Help: "Matches created by the match engine",
		},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "owldoor_notifications_total",
			Help: "Outbound notifications by channel and status",
		},
		[]string{"channel", "status"},
	)

	PaymentEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "owldoor_payment_events_total",
			Help: "Stripe webhook events by type and outcome",
		},
		[]string{"type", "outcome"},
	)

	AIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "owldoor_ai_requests_total",
			Help: "AI chat provider calls by provider and status",
		},
		[]string{"provider", "status"},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "owldoor_events_published_total",
			Help: "Domain events published by topic and status",
		},
		[]string{"topic", "status"},
	)

	EventsHandled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "owldoor_events_handled_total",
			Help: "Event handler invocations by handler and status",
		},
		[]string{"handler", "status"},
	)

	// Authorization
	AuthzDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "owldoor_authz_decisions_total",
			Help: "RBAC decisions by role and outcome",
		},
		[]string{"role", "decision"},
	)

	// WebSocket
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "owldoor_websocket_connections",
			Help: "Currently connected admin dashboard sockets",
		},
	)
)

// RecordAPIRequest records a completed API request.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(start bool) {
	if start {
		APIActiveRequests.Inc()
		return
	}
	APIActiveRequests.Dec()
}

// RecordDBQuery records a DuckDB query's latency and, when err is non-nil, an error.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordGeocode records one provider attempt.
func RecordGeocode(provider, result string, duration time.Duration) {
	GeocodeLookups.WithLabelValues(provider, result).Inc()
	if duration > 0 {
		GeocodeDuration.WithLabelValues(provider).Observe(duration.Seconds())
	}
}

// RecordCache records a cache lookup.
func RecordCache(cache string, hit bool) {
	if hit {
		CacheHits.WithLabelValues(cache).Inc()
		return
	}
	CacheMisses.WithLabelValues(cache).Inc()
}
