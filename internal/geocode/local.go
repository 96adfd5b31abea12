// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package geocode

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/tomtom215/owldoor/internal/database"
)

// ZipStore is the slice of the database the local provider reads.
type ZipStore interface {
	LookupZip(ctx context.Context, zip string) (*database.ZipCode, error)
	LookupCity(ctx context.Context, city, state string) (*database.ZipCode, error)
}

var (
	zipPattern       = regexp.MustCompile(`\b(\d{5})(?:-\d{4})?\s*$`)
	cityStatePattern = regexp.MustCompile(`(?i)^(?:.*,\s*)?([a-z][a-z .'-]*?),\s*([a-z]{2})$`)
)

// LocalProvider answers from the zip_codes table: a trailing 5-digit ZIP
// first, then a trailing "City, ST".
type LocalProvider struct {
	store ZipStore
}

// NewLocalProvider creates a provider over store.
func NewLocalProvider(store ZipStore) *LocalProvider {
	return &LocalProvider{store: store}
}

// Name returns "local".
func (p *LocalProvider) Name() string { return "local" }

// IsAvailable reports whether a store is attached.
func (p *LocalProvider) IsAvailable() bool { return p.store != nil }

// Geocode looks the query up in the local table.
func (p *LocalProvider) Geocode(ctx context.Context, query string) (*Result, error) {
	if !p.IsAvailable() {
		return nil, ErrProviderUnavailable
	}
	q := NormalizeQuery(query)

	if m := zipPattern.FindStringSubmatch(q); m != nil {
		z, err := p.store.LookupZip(ctx, m[1])
		if err == nil {
			return zipResult(z), nil
		}
		if !errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("local zip lookup: %w", err)
		}
		// Fall through: the city may still be known when the ZIP is not.
		q = strings.TrimSpace(strings.TrimSuffix(q, m[0]))
	}

	if m := cityStatePattern.FindStringSubmatch(q); m != nil {
		z, err := p.store.LookupCity(ctx, strings.TrimSpace(m[1]), m[2])
		if err == nil {
			r := zipResult(z)
			r.Zip = ""
			r.FormattedAddress = fmt.Sprintf("%s, %s", z.City, z.State)
			return r, nil
		}
		if !errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("local city lookup: %w", err)
		}
	}

	return nil, fmt.Errorf("local: %q: %w", q, ErrNotFound)
}

func zipResult(z *database.ZipCode) *Result {
	return &Result{
		Lat:              z.Latitude,
		Lng:              z.Longitude,
		FormattedAddress: fmt.Sprintf("%s, %s %s", z.City, z.State, z.Zip),
		City:             z.City,
		State:            z.State,
		Zip:              z.Zip,
		Source:           "local",
	}
}
