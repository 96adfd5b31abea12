// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package payments

import (
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v82/webhook"
)

var (
	// ErrInvalidSignature is returned when a webhook signature does not verify.
	ErrInvalidSignature = errors.New("invalid webhook signature")

	// ErrSignatureExpired is returned when the signed timestamp is older than
	// the tolerance window. It wraps ErrInvalidSignature.
	ErrSignatureExpired = fmt.Errorf("%w: timestamp outside tolerance", ErrInvalidSignature)
)

// DefaultTolerance is the replay window Stripe recommends.
const DefaultTolerance = webhook.DefaultTolerance

// VerifySignature checks a Stripe-Signature header against payload. Any
// matching v1 entry is accepted so secrets can be rolled.
func VerifySignature(payload []byte, header, secret string, tolerance time.Duration) error {
	if secret == "" {
		return fmt.Errorf("%w: no webhook secret configured", ErrInvalidSignature)
	}
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return signatureError(webhook.ValidatePayloadWithTolerance(payload, header, secret, tolerance))
}

// signatureError maps the SDK's webhook errors onto ErrInvalidSignature and
// ErrSignatureExpired. Other errors pass through.
func signatureError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, webhook.ErrTooOld):
		return ErrSignatureExpired
	case errors.Is(err, webhook.ErrNotSigned),
		errors.Is(err, webhook.ErrInvalidHeader),
		errors.Is(err, webhook.ErrNoValidSignature):
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return err
}

// SignatureHeader builds a Stripe-Signature header value for payload signed
// at t. Used by tests and the CLI to replay events locally.
func SignatureHeader(t time.Time, payload []byte, secret string) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: t,
	}).Header
}
