// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package resilience

import (
	"errors"
	"fmt"
	"net/http"
)

// TransientError is a temporary failure that may succeed on retry.
type TransientError struct {
	err error
}

func (e *TransientError) Error() string { return e.err.Error() }
func (e *TransientError) Unwrap() error { return e.err }

// NewTransientError marks err as retryable.
func NewTransientError(err error) error {
	return &TransientError{err: err}
}

// FatalError is a permanent failure that must not be retried.
type FatalError struct {
	err error
}

func (e *FatalError) Error() string { return e.err.Error() }
func (e *FatalError) Unwrap() error { return e.err }

// NewFatalError marks err as non-retryable.
func NewFatalError(err error) error {
	return &FatalError{err: err}
}

// IsTransient reports whether err is marked transient.
func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}

// IsFatal reports whether err is marked fatal.
func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}

// HTTPStatusError classifies an unexpected HTTP status from a provider:
// 408, 429 and 5xx are transient, every other status is fatal.
func HTTPStatusError(service string, status int, body string) error {
	if len(body) > 300 {
		body = body[:300]
	}
	err := fmt.Errorf("%s returned HTTP %d: %s", service, status, body)
	if status == http.StatusTooManyRequests || status == http.StatusRequestTimeout || status >= 500 {
		return NewTransientError(err)
	}
	return NewFatalError(err)
}
