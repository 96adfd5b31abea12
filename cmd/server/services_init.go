// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package main

import (
	"context"
	"fmt"

	"github.com/tomtom215/owldoor/internal/ai"
	"github.com/tomtom215/owldoor/internal/api"
	"github.com/tomtom215/owldoor/internal/audit"
	"github.com/tomtom215/owldoor/internal/cache"
	"github.com/tomtom215/owldoor/internal/config"
	"github.com/tomtom215/owldoor/internal/database"
	"github.com/tomtom215/owldoor/internal/eventprocessor"
	"github.com/tomtom215/owldoor/internal/geocode"
	"github.com/tomtom215/owldoor/internal/ingest"
	"github.com/tomtom215/owldoor/internal/logging"
	"github.com/tomtom215/owldoor/internal/matching"
	"github.com/tomtom215/owldoor/internal/notify"
	"github.com/tomtom215/owldoor/internal/onboarding"
	"github.com/tomtom215/owldoor/internal/payments"
	"github.com/tomtom215/owldoor/internal/pricing"
	ws "github.com/tomtom215/owldoor/internal/websocket"
)

// application holds the services built from configuration.
type application struct {
	geocodeCache *cache.Persistent
	resolver     *geocode.Resolver
	notifier     *notify.Dispatcher
	processor    *eventprocessor.Processor
	pricing      *pricing.Calculator
	ingest       *ingest.Service
	leadKeys     *ingest.KeyAuthenticator
	matching     *matching.Engine
	sweeper      *matching.Sweeper
	payments     *payments.Service
	ai           *ai.Service
	onboarding   *onboarding.Service
	audit        *audit.Logger
}

// initServices builds every domain service. The event processor comes
// before the services that publish through it.
func initServices(ctx context.Context, cfg *config.Config, db *database.DB, hub *ws.Hub) (*application, error) {
	app := &application{}
	fail := func(err error) (*application, error) {
		app.Close()
		return nil, err
	}

	var err error
	if app.geocodeCache, err = cache.OpenPersistent(cfg.Geocode.CachePath, "geo:", cfg.Geocode.CacheTTL); err != nil {
		return fail(err)
	}
	app.resolver = geocode.NewResolverFromConfig(&cfg.Geocode, db, app.geocodeCache)

	if app.notifier, err = notify.NewDispatcherFromConfig(&cfg.Twilio, &cfg.SendGrid, db); err != nil {
		return fail(fmt.Errorf("notifications: %w", err))
	}

	app.processor, err = eventprocessor.New(ctx,
		eventprocessor.BusConfigFrom(cfg.Events),
		eventprocessor.DefaultRouterConfig(),
		eventprocessor.Deps{Store: db, Notifier: app.notifier, Hub: hub, PublicURL: cfg.Server.PublicURL},
	)
	if err != nil {
		return fail(err)
	}
	pub := app.processor.Publisher()

	promos, err := pricing.ParsePromoCodes(cfg.Pricing.PromoCodes)
	if err != nil {
		return fail(fmt.Errorf("promo codes: %w", err))
	}
	app.pricing = pricing.NewCalculator(promos)

	app.ingest = ingest.NewService(db, app.resolver, pub)
	app.leadKeys = ingest.NewKeyAuthenticator(cfg.Security.LeadSources())
	app.matching = matching.NewEngine(db, app.resolver, pub, cfg.Matching)
	app.sweeper = matching.NewSweeper(app.matching, cfg.Matching.SweepInterval)
	app.payments = payments.NewService(cfg.Stripe, db, pub)
	app.onboarding = onboarding.NewService(db, pub)

	if app.ai, err = ai.NewServiceFromConfig(ctx, cfg.AI, db); err != nil {
		return fail(fmt.Errorf("ai: %w", err))
	}

	if cfg.Audit.Enabled {
		store := audit.NewDuckDBStore(db.Conn())
		if err := store.CreateTable(ctx); err != nil {
			return fail(fmt.Errorf("audit: %w", err))
		}
		app.audit = audit.NewLogger(store, cfg.Audit)
	}

	logging.Info().
		Strs("channels", app.notifier.Channels()).
		Bool("ai", app.ai.Enabled()).
		Str("events", app.processor.Bus().Transport()).
		Bool("audit", app.audit != nil).
		Msg("Services initialized")
	return app, nil
}

func (a *application) deps(cfg *config.Config, db *database.DB, hub *ws.Hub) api.Deps {
	return api.Deps{
		Config:         cfg,
		DB:             db,
		Geocoder:       a.resolver,
		Pricing:        a.pricing,
		Ingest:         a.ingest,
		LeadKeys:       a.leadKeys,
		Matching:       a.matching,
		Notify:         a.notifier,
		Payments:       a.payments,
		AI:             a.ai,
		Onboarding:     a.onboarding,
		Audit:          a.audit,
		Hub:            hub,
		Publisher:      a.processor.Publisher(),
		EventTransport: a.processor.Bus().Transport(),
	}
}

// Close releases what initServices opened, in reverse order.
func (a *application) Close() {
	if a.audit != nil {
		if err := a.audit.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing audit logger")
		}
	}
	if a.processor != nil {
		if err := a.processor.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event processor")
		}
	}
	if a.leadKeys != nil {
		a.leadKeys.Close()
	}
	if a.resolver != nil {
		a.resolver.Close()
	}
	if a.geocodeCache != nil {
		if err := a.geocodeCache.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing geocode cache")
		}
	}
}
