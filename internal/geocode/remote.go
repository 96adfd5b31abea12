// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package geocode

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/owldoor/internal/resilience"
)

// remote carries what every HTTP provider shares: a client, a token-bucket
// limiter matching the provider's usage policy and a circuit breaker.
type remote struct {
	name    string
	client  *http.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker[*Result]
}

func newRemote(name string, rps float64, timeout time.Duration) remote {
	if rps <= 0 {
		rps = 1
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return remote{
		name:    name,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		breaker: resilience.NewBreaker[*Result]("geocode-"+name, resilience.BreakerSettings{}),
	}
}

// call waits for a rate-limit token, then runs fn through the breaker.
func (r *remote) call(ctx context.Context, fn func() (*Result, error)) (*Result, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, resilience.NewTransientError(fmt.Errorf("%s rate limit wait: %w", r.name, err))
	}
	return r.breaker.Execute(fn)
}

// getJSON performs a GET and decodes a 200 response into dst. Non-200
// statuses are classified by resilience.HTTPStatusError; network failures are
// transient.
func (r *remote) getJSON(ctx context.Context, url string, headers map[string]string, dst interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return resilience.NewFatalError(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return resilience.NewTransientError(fmt.Errorf("failed to query %s: %w", r.name, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return resilience.HTTPStatusError(r.name, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return resilience.NewFatalError(fmt.Errorf("failed to decode %s response: %w", r.name, err))
	}
	return nil
}

// notFound is a fatal (not breaker-counted) miss.
func notFound(provider, query string) error {
	return resilience.NewFatalError(fmt.Errorf("%s: %q: %w", provider, query, ErrNotFound))
}
