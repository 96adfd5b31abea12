// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package api

import (
	"context"
	"time"

	"github.com/tomtom215/owldoor/internal/ai"
	"github.com/tomtom215/owldoor/internal/audit"
	"github.com/tomtom215/owldoor/internal/config"
	"github.com/tomtom215/owldoor/internal/database"
	"github.com/tomtom215/owldoor/internal/geocode"
	"github.com/tomtom215/owldoor/internal/ingest"
	"github.com/tomtom215/owldoor/internal/logging"
	"github.com/tomtom215/owldoor/internal/matching"
	"github.com/tomtom215/owldoor/internal/middleware"
	"github.com/tomtom215/owldoor/internal/notify"
	"github.com/tomtom215/owldoor/internal/onboarding"
	"github.com/tomtom215/owldoor/internal/payments"
	"github.com/tomtom215/owldoor/internal/pricing"
	ws "github.com/tomtom215/owldoor/internal/websocket"
)

// Geocoder resolves free-form US locations.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (*geocode.Result, error)
}

// Publisher emits domain events.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload interface{}) error
}

// Deps are the services behind the handlers. Nil optional members disable
// the routes that need them (those routes answer 503).
type Deps struct {
	Config *config.Config
	DB     *database.DB

	Geocoder   Geocoder
	Pricing    *pricing.Calculator
	Ingest     *ingest.Service
	LeadKeys   *ingest.KeyAuthenticator
	Matching   *matching.Engine
	Notify     *notify.Dispatcher
	Payments   *payments.Service
	AI         *ai.Service
	Onboarding *onboarding.Service

	Audit     *audit.Logger
	Hub       *ws.Hub
	Publisher Publisher
	PerfMon   *middleware.PerformanceMonitor

	// EventTransport is reported by /health ("gochannel" or "nats").
	EventTransport string
}

// Handler serves every API route.
type Handler struct {
	cfg        *config.Config
	db         *database.DB
	geocoder   Geocoder
	pricing    *pricing.Calculator
	ingest     *ingest.Service
	leadKeys   *ingest.KeyAuthenticator
	matching   *matching.Engine
	notify     *notify.Dispatcher
	payments   *payments.Service
	ai         *ai.Service
	onboarding *onboarding.Service
	audit      *audit.Logger
	hub        *ws.Hub
	publisher  Publisher
	perfMon    *middleware.PerformanceMonitor
	transport  string
	startTime  time.Time
}

// NewHandler creates the handler set.
func NewHandler(d Deps) *Handler {
	if d.Pricing == nil {
		d.Pricing = pricing.NewCalculator(nil)
	}
	if d.PerfMon == nil {
		d.PerfMon = middleware.NewPerformanceMonitor(1000, 2*time.Second)
	}
	if d.Config == nil {
		d.Config = &config.Config{}
	}
	return &Handler{
		cfg:        d.Config,
		db:         d.DB,
		geocoder:   d.Geocoder,
		pricing:    d.Pricing,
		ingest:     d.Ingest,
		leadKeys:   d.LeadKeys,
		matching:   d.Matching,
		notify:     d.Notify,
		payments:   d.Payments,
		ai:         d.AI,
		onboarding: d.Onboarding,
		audit:      d.Audit,
		hub:        d.Hub,
		publisher:  d.Publisher,
		perfMon:    d.PerfMon,
		transport:  d.EventTransport,
		startTime:  time.Now(),
	}
}

// publish emits an event. Failures are logged; the request that caused the
// event has already been committed.
func (h *Handler) publish(ctx context.Context, topic string, payload interface{}) {
	if h.publisher == nil {
		return
	}
	if err := h.publisher.Publish(ctx, topic, payload); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("topic", topic).Msg("Failed to publish event")
	}
}

// locate geocodes query best-effort. A nil result means the record keeps no
// coordinates and the match engine retries later.
func (h *Handler) locate(ctx context.Context, query string) *geocode.Result {
	if h.geocoder == nil || query == "" {
		return nil
	}
	res, err := h.geocoder.Geocode(ctx, query)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("query", logging.SanitizeValue(query)).Msg("Geocoding failed")
		return nil
	}
	return res
}
