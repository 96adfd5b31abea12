// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

// Package notify delivers SMS (Twilio) and email (SendGrid) messages.
//
// Every channel implements Channel. The Dispatcher wraps channels with a
// circuit breaker and a rate limiter and records each attempt as a
// notification row.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tomtom215/owldoor/internal/resilience"
	"github.com/tomtom215/owldoor/internal/validation"
)

var (
	// ErrUnknownChannel is returned for a channel name with no configured provider.
	ErrUnknownChannel = errors.New("unknown notification channel")

	// ErrInvalidMessage wraps every message validation failure.
	ErrInvalidMessage = errors.New("invalid message")
)

// Channel is one delivery provider.
type Channel interface {
	// Name returns the channel identifier (sms, email).
	Name() string

	// Validate checks a message before any network call.
	Validate(msg *Message) error

	// Send delivers msg. Errors are classified with resilience.TransientError
	// or resilience.FatalError.
	Send(ctx context.Context, msg *Message) (*DeliveryResult, error)
}

// Message is an outbound notification.
type Message struct {
	Channel  string `json:"channel" validate:"required,oneof=sms email"`
	To       string `json:"to" validate:"required"`
	Subject  string `json:"subject,omitempty" validate:"max=200"`
	Body     string `json:"body" validate:"required"`
	HTML     string `json:"html,omitempty"`
	Template string `json:"template,omitempty"`
}

// DeliveryResult is what a provider reports for an accepted message.
type DeliveryResult struct {
	ProviderID string `json:"provider_id"`
	Status     string `json:"status"`
}

// maxSMSLength is Twilio's limit for a concatenated message body.
const maxSMSLength = 1600

func invalid(format string, args ...interface{}) error {
	return resilience.NewFatalError(fmt.Errorf("%w: %s", ErrInvalidMessage, fmt.Sprintf(format, args...)))
}

func validateSMS(msg *Message) error {
	if err := validation.GetValidator().Var(msg.To, "required,e164"); err != nil {
		return invalid("recipient %q is not an E.164 phone number", msg.To)
	}
	body := strings.TrimSpace(msg.Body)
	if body == "" {
		return invalid("body is required")
	}
	if len([]rune(body)) > maxSMSLength {
		return invalid("body exceeds %d characters", maxSMSLength)
	}
	return nil
}

func validateEmail(msg *Message) error {
	if err := validation.GetValidator().Var(msg.To, "required,email"); err != nil {
		return invalid("recipient %q is not an email address", msg.To)
	}
	if strings.TrimSpace(msg.Subject) == "" {
		return invalid("subject is required")
	}
	if strings.TrimSpace(msg.Body) == "" && strings.TrimSpace(msg.HTML) == "" {
		return invalid("body is required")
	}
	return nil
}
