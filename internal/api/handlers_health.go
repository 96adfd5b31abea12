// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package api

import (
	"context"
	"net/http"
	"time"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

// HealthStatus is the body of /health.
type HealthStatus struct {
	Status            string          `json:"status"` // healthy, degraded
	Version           string          `json:"version"`
	DatabaseConnected bool            `json:"database_connected"`
	EventTransport    string          `json:"event_transport,omitempty"`
	Geocoders         map[string]bool `json:"geocoders,omitempty"`
	Notifications     []string        `json:"notification_channels"`
	AIProviders       []string        `json:"ai_providers"`
	PaymentsEnabled   bool            `json:"payments_enabled"`
	DashboardClients  int             `json:"dashboard_clients"`
	Uptime            float64         `json:"uptime_seconds"`
}

type providerLister interface {
	Providers() map[string]bool
}

// Health reports dependency status. It answers 200 even when degraded so
// that load balancers keep routing to a node whose optional providers are
// down; /health/ready is the strict probe.
//
// @Summary Get system health status
// @Description Returns database connectivity, configured providers and uptime
// @Tags Core
// @Produce json
// @Success 200 {object} APIResponse{data=HealthStatus} "Health status"
// @Router /health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	health := HealthStatus{
		Status:            "healthy",
		Version:           Version,
		DatabaseConnected: h.dbAlive(r.Context()),
		EventTransport:    h.transport,
		Notifications:     []string{},
		AIProviders:       []string{},
		PaymentsEnabled:   h.payments != nil && h.cfg.Stripe.SecretKey != "",
		Uptime:            time.Since(h.startTime).Seconds(),
	}
	if !health.DatabaseConnected {
		health.Status = "degraded"
	}
	if pl, ok := h.geocoder.(providerLister); ok {
		health.Geocoders = pl.Providers()
	}
	if h.notify != nil {
		health.Notifications = h.notify.Channels()
	}
	if h.ai != nil {
		health.AIProviders = h.ai.Providers()
	}
	if h.hub != nil {
		health.DashboardClients = h.hub.ClientCount()
	}

	NewResponseWriter(w, r).Success(health)
}

// HealthLive answers 200 while the process runs.
//
// @Summary Liveness probe
// @Tags Core
// @Produce json
// @Success 200 {object} APIResponse "Service is alive"
// @Router /health/live [get]
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady answers 503 until the database responds.
//
// @Summary Readiness probe
// @Tags Core
// @Produce json
// @Success 200 {object} APIResponse "Service is ready"
// @Failure 503 {object} APIResponse "Service is not ready"
// @Router /health/ready [get]
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if !h.dbAlive(r.Context()) {
		NewResponseWriter(w, r).Error(http.StatusServiceUnavailable, ErrCodeDatabaseError, "database unavailable")
		return
	}
	NewResponseWriter(w, r).Success(map[string]bool{"ready": true})
}

func (h *Handler) dbAlive(ctx context.Context) bool {
	if h.db == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return h.db.Ping(ctx) == nil
}
