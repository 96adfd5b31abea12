// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package geocode

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/owldoor/internal/cache"
	"github.com/tomtom215/owldoor/internal/config"
	"github.com/tomtom215/owldoor/internal/logging"
	"github.com/tomtom215/owldoor/internal/metrics"
)

// Resolver runs the provider chain behind a two-level cache.
type Resolver struct {
	providers  []Provider
	mem        *cache.Cache[Result]
	persistent *cache.Persistent
}

// NewResolver creates a resolver over providers in lookup order.
// persistent may be nil.
func NewResolver(providers []Provider, ttl time.Duration, persistent *cache.Persistent) *Resolver {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Resolver{
		providers:  providers,
		mem:        cache.New[Result]("geocode", ttl),
		persistent: persistent,
	}
}

// NewResolverFromConfig builds the chain named in cfg.Providers.
func NewResolverFromConfig(cfg *config.GeocodeConfig, store ZipStore, persistent *cache.Persistent) *Resolver {
	providers := make([]Provider, 0, len(cfg.Providers))
	for _, name := range cfg.Providers {
		switch name {
		case "local":
			providers = append(providers, NewLocalProvider(store))
		case "google":
			providers = append(providers, NewGoogleProvider(cfg.GoogleAPIKey, cfg.GoogleURL, cfg.GoogleRPS, cfg.RequestTimeout))
		case "nominatim":
			providers = append(providers, NewNominatimProvider(cfg.NominatimURL, cfg.NominatimUserAgent, cfg.NominatimRPS, cfg.RequestTimeout))
		case "mapbox":
			providers = append(providers, NewMapboxProvider(cfg.MapboxToken, cfg.MapboxURL, cfg.MapboxRPS, cfg.RequestTimeout))
		default:
			logging.Warn().Str("provider", name).Msg("Ignoring unknown geocode provider")
		}
	}
	return NewResolver(providers, cfg.CacheTTL, persistent)
}

// Providers returns the names of the configured providers and whether each is available.
func (r *Resolver) Providers() map[string]bool {
	out := make(map[string]bool, len(r.providers))
	for _, p := range r.providers {
		out[p.Name()] = p.IsAvailable()
	}
	return out
}

// Geocode resolves query. Provider errors are logged and the next provider
// is tried; when every provider fails the result wraps ErrNotFound and the
// last provider error.
func (r *Resolver) Geocode(ctx context.Context, query string) (*Result, error) {
	q := NormalizeQuery(query)
	if q == "" {
		return nil, ErrInvalidQuery
	}
	key := cacheKey(q)

	if res, ok := r.mem.Get(key); ok {
		res.Cached = true
		return &res, nil
	}
	if r.persistent != nil {
		var res Result
		if err := r.persistent.Get(key, &res); err == nil {
			r.mem.Set(key, res)
			res.Cached = true
			return &res, nil
		}
	}

	log := logging.Ctx(ctx)
	var lastErr error
	for _, p := range r.providers {
		if !p.IsAvailable() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := time.Now()
		res, err := p.Geocode(ctx, q)
		if err != nil {
			outcome := "error"
			if errors.Is(err, ErrNotFound) {
				outcome = "miss"
			}
			metrics.RecordGeocode(p.Name(), outcome, time.Since(start))
			log.Debug().Err(err).Str("provider", p.Name()).Str("query", logging.SanitizeValue(q)).
				Msg("Geocode provider failed, trying next")
			lastErr = err
			continue
		}
		metrics.RecordGeocode(p.Name(), "hit", time.Since(start))

		res.Source = p.Name()
		r.mem.Set(key, *res)
		if r.persistent != nil {
			if err := r.persistent.Set(key, res); err != nil {
				log.Warn().Err(err).Msg("Failed to persist geocode result")
			}
		}
		return res, nil
	}

	if lastErr == nil {
		return nil, fmt.Errorf("%q: no provider available: %w", q, ErrNotFound)
	}
	return nil, fmt.Errorf("%q: %w (last error: %w)", q, ErrNotFound, lastErr)
}

// Close stops the in-memory cache sweeper.
func (r *Resolver) Close() {
	r.mem.Close()
}
