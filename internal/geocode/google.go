// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package geocode

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/tomtom215/owldoor/internal/resilience"
)

// GoogleProvider uses the Google Maps Geocoding API. Requires an API key.
type GoogleProvider struct {
	remote
	apiKey  string
	baseURL string
}

type googleResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		FormattedAddress  string `json:"formatted_address"`
		AddressComponents []struct {
			LongName  string   `json:"long_name"`
			ShortName string   `json:"short_name"`
			Types     []string `json:"types"`
		} `json:"address_components"`
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// NewGoogleProvider creates a Google provider.
func NewGoogleProvider(apiKey, baseURL string, rps float64, timeout time.Duration) *GoogleProvider {
	if baseURL == "" {
		baseURL = "https://maps.googleapis.com/maps/api/geocode/json"
	}
	return &GoogleProvider{
		remote:  newRemote("google", rps, timeout),
		apiKey:  apiKey,
		baseURL: baseURL,
	}
}

// Name returns "google".
func (p *GoogleProvider) Name() string { return "google" }

// IsAvailable reports whether an API key is configured.
func (p *GoogleProvider) IsAvailable() bool { return p.apiKey != "" }

// Geocode queries the Geocoding API, restricted to US results.
func (p *GoogleProvider) Geocode(ctx context.Context, query string) (*Result, error) {
	if !p.IsAvailable() {
		return nil, ErrProviderUnavailable
	}
	return p.call(ctx, func() (*Result, error) {
		params := url.Values{}
		params.Set("address", query)
		params.Set("components", "country:US")
		params.Set("key", p.apiKey)

		var resp googleResponse
		if err := p.getJSON(ctx, p.baseURL+"?"+params.Encode(), nil, &resp); err != nil {
			return nil, err
		}

		switch resp.Status {
		case "OK":
		case "ZERO_RESULTS":
			return nil, notFound(p.Name(), query)
		case "OVER_QUERY_LIMIT", "UNKNOWN_ERROR":
			return nil, resilience.NewTransientError(fmt.Errorf("google: %s %s", resp.Status, resp.ErrorMessage))
		default:
			return nil, resilience.NewFatalError(fmt.Errorf("google: %s %s", resp.Status, resp.ErrorMessage))
		}
		if len(resp.Results) == 0 {
			return nil, notFound(p.Name(), query)
		}

		top := resp.Results[0]
		r := &Result{
			Lat:              top.Geometry.Location.Lat,
			Lng:              top.Geometry.Location.Lng,
			FormattedAddress: top.FormattedAddress,
			Source:           p.Name(),
		}
		for _, c := range top.AddressComponents {
			for _, t := range c.Types {
				switch t {
				case "locality":
					r.City = c.LongName
				case "administrative_area_level_1":
					r.State = c.ShortName
				case "postal_code":
					r.Zip = c.ShortName
				}
			}
		}
		return r, nil
	})
}
