// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

// Package resilience wraps outbound calls to third-party services (geocoders,
// Twilio, SendGrid, Stripe, AI providers) with circuit breakers, bounded
// retries and transient/fatal error classification.
package resilience

import (
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/tomtom215/owldoor/internal/logging"
	"github.com/tomtom215/owldoor/internal/metrics"
)

// ErrCircuitOpen is returned when a breaker rejects a call.
var ErrCircuitOpen = errors.New("circuit breaker open")

// BreakerSettings tunes a Breaker. Zero values take the defaults below.
type BreakerSettings struct {
	MaxRequests  uint32        // half-open probe budget (default 3)
	Interval     time.Duration // closed-state count reset (default 1m)
	Timeout      time.Duration // open -> half-open wait (default 2m)
	MinRequests  uint32        // requests before tripping is considered (default 10)
	FailureRatio float64       // trip ratio (default 0.6)
}

func (s BreakerSettings) withDefaults() BreakerSettings {
	if s.MaxRequests == 0 {
		s.MaxRequests = 3
	}
	if s.Interval == 0 {
		s.Interval = time.Minute
	}
	if s.Timeout == 0 {
		s.Timeout = 2 * time.Minute
	}
	if s.MinRequests == 0 {
		s.MinRequests = 10
	}
	if s.FailureRatio == 0 {
		s.FailureRatio = 0.6
	}
	return s
}

// Breaker is a named gobreaker circuit that reports its state to Prometheus.
// Fatal errors (bad request, auth) are not counted as failures: they say
// nothing about the remote service's health.
type Breaker[T any] struct {
	name string
	cb   *gobreaker.CircuitBreaker[T]
}

// NewBreaker creates a breaker named name.
func NewBreaker[T any](name string, settings BreakerSettings) *Breaker[T] {
	s := settings.withDefaults()

	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			if ratio >= s.FailureRatio {
				logging.Warn().Str("breaker", name).Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", ratio*100).Msg("Opening circuit")
				return true
			}
			return false
		},
		IsSuccessful: func(err error) bool {
			return err == nil || IsFatal(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("Circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
	})

	return &Breaker[T]{name: name, cb: cb}
}

// Name returns the breaker name.
func (b *Breaker[T]) Name() string {
	return b.name
}

// State returns the current breaker state as closed, half-open or open.
func (b *Breaker[T]) State() string {
	return b.cb.State().String()
}

// Execute runs fn through the breaker. Rejections are reported as ErrCircuitOpen
// wrapped as a transient error.
func (b *Breaker[T]) Execute(fn func() (T, error)) (T, error) {
	result, err := b.cb.Execute(fn)
	if err == nil {
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
		metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(b.name).Set(0)
		return result, nil
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
		var zero T
		return zero, NewTransientError(errors.Join(ErrCircuitOpen, err))
	}

	metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(b.name).Set(float64(b.cb.Counts().ConsecutiveFailures))
	return result, err
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
