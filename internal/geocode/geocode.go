// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

// Package geocode turns addresses, "City, ST" strings and ZIP codes into
// coordinates.
//
// Lookups walk an ordered provider chain (by default the local ZIP table,
// then Google, Nominatim and Mapbox). The first provider that answers wins and
// its answer is cached in memory and in badger so repeated lookups for the
// same market or Pro never leave the process.
package geocode

import (
	"context"
	"errors"
	"math"
	"regexp"
	"strings"

	"github.com/tomtom215/owldoor/internal/models"
)

var (
	// ErrInvalidQuery is returned for empty or unusable queries.
	ErrInvalidQuery = errors.New("invalid geocode query")

	// ErrNotFound is returned when no provider could resolve the query.
	ErrNotFound = errors.New("location not found")

	// ErrProviderUnavailable is returned by a provider that is not configured.
	ErrProviderUnavailable = errors.New("geocode provider unavailable")
)

// Result is a resolved location.
type Result struct {
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
	FormattedAddress string  `json:"formatted_address,omitempty"`
	City             string  `json:"city,omitempty"`
	State            string  `json:"state,omitempty"`
	Zip              string  `json:"zip,omitempty"`
	Source           string  `json:"source"`
	Cached           bool    `json:"cached"`
}

// Point returns the result's coordinates.
func (r *Result) Point() models.GeoPoint {
	return models.GeoPoint{Lat: r.Lat, Lng: r.Lng}
}

// Provider is one link of the fallback chain.
type Provider interface {
	// Name identifies the provider in logs, metrics and Result.Source.
	Name() string

	// IsAvailable reports whether the provider is configured.
	IsAvailable() bool

	// Geocode resolves query. A query the provider has no answer for returns
	// an error wrapping ErrNotFound.
	Geocode(ctx context.Context, query string) (*Result, error)
}

var whitespace = regexp.MustCompile(`\s+`)

// NormalizeQuery trims and collapses whitespace.
func NormalizeQuery(q string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(q, " "))
}

// cacheKey is the case-insensitive form of a normalized query.
func cacheKey(q string) string {
	return strings.ToLower(NormalizeQuery(q))
}

const earthRadiusMiles = 3958.8

// Distance returns the great-circle distance between a and b in miles.
func Distance(a, b models.GeoPoint) float64 {
	toRad := func(d float64) float64 { return d * math.Pi / 180 }

	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusMiles * math.Asin(math.Min(1, math.Sqrt(h)))
}

// ValidPoint reports whether p is a plausible coordinate.
func ValidPoint(p models.GeoPoint) bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180 && !(p.Lat == 0 && p.Lng == 0)
}
