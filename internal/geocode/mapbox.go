// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package geocode

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/tomtom215/owldoor/internal/resilience"
)

// MapboxProvider uses the Mapbox Places (v5) forward geocoding API.
type MapboxProvider struct {
	remote
	token   string
	baseURL string
}

type mapboxResponse struct {
	Features []struct {
		PlaceName string    `json:"place_name"`
		Center    []float64 `json:"center"` // [lng, lat]
		ID        string    `json:"id"`
		Text      string    `json:"text"`
		Context   []struct {
			ID        string `json:"id"`
			Text      string `json:"text"`
			ShortCode string `json:"short_code"`
		} `json:"context"`
	} `json:"features"`
}

// NewMapboxProvider creates a Mapbox provider.
func NewMapboxProvider(token, baseURL string, rps float64, timeout time.Duration) *MapboxProvider {
	if baseURL == "" {
		baseURL = "https://api.mapbox.com/geocoding/v5/mapbox.places"
	}
	return &MapboxProvider{
		remote:  newRemote("mapbox", rps, timeout),
		token:   token,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// Name returns "mapbox".
func (p *MapboxProvider) Name() string { return "mapbox" }

// IsAvailable reports whether an access token is configured.
func (p *MapboxProvider) IsAvailable() bool { return p.token != "" }

// Geocode queries Mapbox for the best US feature.
func (p *MapboxProvider) Geocode(ctx context.Context, query string) (*Result, error) {
	if !p.IsAvailable() {
		return nil, ErrProviderUnavailable
	}
	return p.call(ctx, func() (*Result, error) {
		params := url.Values{}
		params.Set("access_token", p.token)
		params.Set("country", "us")
		params.Set("limit", "1")
		endpoint := fmt.Sprintf("%s/%s.json?%s", p.baseURL, url.PathEscape(query), params.Encode())

		var resp mapboxResponse
		if err := p.getJSON(ctx, endpoint, nil, &resp); err != nil {
			return nil, err
		}
		if len(resp.Features) == 0 {
			return nil, notFound(p.Name(), query)
		}

		top := resp.Features[0]
		if len(top.Center) != 2 {
			return nil, resilience.NewFatalError(fmt.Errorf("mapbox: feature %s has no center", top.ID))
		}
		r := &Result{
			Lng:              top.Center[0],
			Lat:              top.Center[1],
			FormattedAddress: top.PlaceName,
			Source:           p.Name(),
		}
		if strings.HasPrefix(top.ID, "place.") {
			r.City = top.Text
		}
		if strings.HasPrefix(top.ID, "postcode.") {
			r.Zip = top.Text
		}
		for _, c := range top.Context {
			switch {
			case strings.HasPrefix(c.ID, "place."):
				r.City = c.Text
			case strings.HasPrefix(c.ID, "postcode."):
				r.Zip = c.Text
			case strings.HasPrefix(c.ID, "region."):
				r.State = strings.TrimPrefix(strings.ToUpper(c.ShortCode), "US-")
			}
		}
		return r, nil
	})
}
