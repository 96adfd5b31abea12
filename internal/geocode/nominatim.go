// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package geocode

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/owldoor/internal/resilience"
)

// NominatimProvider uses OpenStreetMap's Nominatim search API. The public
// instance requires an identifying User-Agent and at most one request per
// second.
type NominatimProvider struct {
	remote
	userAgent string
	baseURL   string
}

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
	Address     struct {
		City     string `json:"city"`
		Town     string `json:"town"`
		Village  string `json:"village"`
		Postcode string `json:"postcode"`
		StateISO string `json:"ISO3166-2-lvl4"`
	} `json:"address"`
}

// NewNominatimProvider creates a Nominatim provider.
func NewNominatimProvider(baseURL, userAgent string, rps float64, timeout time.Duration) *NominatimProvider {
	if baseURL == "" {
		baseURL = "https://nominatim.openstreetmap.org/search"
	}
	if rps <= 0 || rps > 1 {
		rps = 1
	}
	return &NominatimProvider{
		remote:    newRemote("nominatim", rps, timeout),
		userAgent: userAgent,
		baseURL:   baseURL,
	}
}

// Name returns "nominatim".
func (p *NominatimProvider) Name() string { return "nominatim" }

// IsAvailable reports whether a User-Agent is configured.
func (p *NominatimProvider) IsAvailable() bool { return p.userAgent != "" }

// Geocode searches Nominatim for the best US match.
func (p *NominatimProvider) Geocode(ctx context.Context, query string) (*Result, error) {
	if !p.IsAvailable() {
		return nil, ErrProviderUnavailable
	}
	return p.call(ctx, func() (*Result, error) {
		params := url.Values{}
		params.Set("q", query)
		params.Set("format", "jsonv2")
		params.Set("addressdetails", "1")
		params.Set("countrycodes", "us")
		params.Set("limit", "1")

		var places []nominatimPlace
		headers := map[string]string{"User-Agent": p.userAgent}
		if err := p.getJSON(ctx, p.baseURL+"?"+params.Encode(), headers, &places); err != nil {
			return nil, err
		}
		if len(places) == 0 {
			return nil, notFound(p.Name(), query)
		}

		top := places[0]
		lat, err := strconv.ParseFloat(top.Lat, 64)
		if err != nil {
			return nil, resilience.NewFatalError(fmt.Errorf("nominatim: bad latitude %q", top.Lat))
		}
		lng, err := strconv.ParseFloat(top.Lon, 64)
		if err != nil {
			return nil, resilience.NewFatalError(fmt.Errorf("nominatim: bad longitude %q", top.Lon))
		}

		city := top.Address.City
		if city == "" {
			city = top.Address.Town
		}
		if city == "" {
			city = top.Address.Village
		}
		return &Result{
			Lat:              lat,
			Lng:              lng,
			FormattedAddress: top.DisplayName,
			City:             city,
			State:            strings.TrimPrefix(top.Address.StateISO, "US-"),
			Zip:              top.Address.Postcode,
			Source:           p.Name(),
		}, nil
	})
}
