// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

// Package payments creates Stripe Checkout sessions for client subscriptions
// and applies Stripe webhook events to client plans.
package payments

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"

	"github.com/tomtom215/owldoor/internal/config"
	"github.com/tomtom215/owldoor/internal/logging"
	"github.com/tomtom215/owldoor/internal/models"
	"github.com/tomtom215/owldoor/internal/pricing"
	"github.com/tomtom215/owldoor/internal/resilience"
)

const defaultStripeURL = "https://api.stripe.com"

var (
	// ErrNotConfigured is returned when no Stripe secret key is set.
	ErrNotConfigured = errors.New("stripe is not configured")

	// ErrZeroAmount is returned for a quote that totals nothing.
	ErrZeroAmount = errors.New("quote total must be positive to check out")
)

// Store is the persistence the payment service needs.
type Store interface {
	CreatePayment(ctx context.Context, p *models.Payment) error
	GetPaymentBySession(ctx context.Context, sessionID string) (*models.Payment, error)
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status string) error
	GetClient(ctx context.Context, id uuid.UUID) (*models.Client, error)
	GetClientBySubscription(ctx context.Context, subscriptionID string) (*models.Client, error)
	SetClientPlan(ctx context.Context, id uuid.UUID, plan string, leadsPerMonth int, status models.ClientStatus, subscriptionID string) error
	MarkStripeEventProcessed(ctx context.Context, eventID, eventType string) (bool, error)
	ForgetStripeEvent(ctx context.Context, eventID string) error
}

// Publisher emits domain events.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload interface{}) error
}

// Service talks to Stripe and keeps payments and client plans in step.
type Service struct {
	cfg       config.StripeConfig
	sessions  *session.Client
	breaker   *resilience.Breaker[*stripe.CheckoutSession]
	store     Store
	publisher Publisher
}

// NewService creates a payment service. publisher may be nil. The SDK's own
// network retries are disabled; the breaker decides when Stripe is down.
func NewService(cfg config.StripeConfig, store Store, publisher Publisher) *Service {
	base := cfg.BaseURL
	if base == "" {
		base = defaultStripeURL
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(base),
		HTTPClient:        &http.Client{Timeout: 20 * time.Second},
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     stripeLogger{},
	})
	return &Service{
		cfg:       cfg,
		sessions:  &session.Client{B: backend, Key: cfg.SecretKey},
		breaker:   resilience.NewBreaker[*stripe.CheckoutSession]("stripe", resilience.BreakerSettings{}),
		store:     store,
		publisher: publisher,
	}
}

// stripeLogger routes SDK logs to zerolog at debug level, errors at warn.
type stripeLogger struct{}

func (stripeLogger) Debugf(format string, v ...interface{}) {
	logging.Debug().Str("component", "stripe").Msgf(format, v...)
}

func (stripeLogger) Infof(format string, v ...interface{}) {
	logging.Debug().Str("component", "stripe").Msgf(format, v...)
}

func (stripeLogger) Warnf(format string, v ...interface{}) {
	logging.Warn().Str("component", "stripe").Msgf(format, v...)
}

func (stripeLogger) Errorf(format string, v ...interface{}) {
	logging.Warn().Str("component", "stripe").Msgf(format, v...)
}

// Checkout is a created session and the payment recorded for it.
type Checkout struct {
	SessionID string          `json:"session_id"`
	URL       string          `json:"url"`
	Payment   *models.Payment `json:"payment"`
	Quote     *pricing.Quote  `json:"quote"`
}

// CreateCheckoutSession opens a subscription-mode Checkout session priced
// from quote and records a pending payment. Empty URLs fall back to the
// configured success and cancel URLs.
func (s *Service) CreateCheckoutSession(ctx context.Context, client *models.Client, quote *pricing.Quote, successURL, cancelURL string) (*Checkout, error) {
	if s.cfg.SecretKey == "" {
		return nil, ErrNotConfigured
	}
	if quote.TotalCents <= 0 {
		return nil, ErrZeroAmount
	}
	if successURL == "" {
		successURL = s.cfg.SuccessURL
	}
	if cancelURL == "" {
		cancelURL = s.cfg.CancelURL
	}

	paymentID := uuid.New()
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL:        stripe.String(successURL),
		CancelURL:         stripe.String(cancelURL),
		ClientReferenceID: stripe.String(client.ID.String()),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(quote.Currency),
				UnitAmount: stripe.Int64(quote.TotalCents),
				Recurring: &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
					Interval: stripe.String(quote.Interval),
				},
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(productName(quote)),
				},
			},
		}},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{"client_id": client.ID.String()},
		},
	}
	if client.Email != "" {
		params.CustomerEmail = stripe.String(client.Email)
	}
	params.AddMetadata("client_id", client.ID.String())
	params.AddMetadata("payment_id", paymentID.String())
	params.AddMetadata("plan", quote.Plan)
	params.AddMetadata("leads_per_month", strconv.Itoa(quote.LeadsIncluded))
	params.SetIdempotencyKey(paymentID.String())
	params.Context = ctx

	created, err := s.breaker.Execute(func() (*stripe.CheckoutSession, error) {
		cs, err := s.sessions.New(params)
		if err != nil {
			return nil, classifyStripeError(ctx, err)
		}
		if cs.ID == "" {
			return nil, resilience.NewFatalError(errors.New("stripe returned a session without an id"))
		}
		return cs, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	payment := &models.Payment{
		ID:                paymentID,
		ClientID:          client.ID,
		Plan:              quote.Plan,
		Interval:          quote.Interval,
		AmountCents:       quote.TotalCents,
		Currency:          quote.Currency,
		CheckoutSessionID: created.ID,
		CheckoutURL:       created.URL,
	}
	if err := s.store.CreatePayment(ctx, payment); err != nil {
		return nil, err
	}
	return &Checkout{SessionID: created.ID, URL: created.URL, Payment: payment, Quote: quote}, nil
}

func productName(q *pricing.Quote) string {
	name := q.Plan
	if p, ok := pricing.LookupPlan(q.Plan); ok {
		name = p.Name
	}
	return fmt.Sprintf("OwlDoor %s plan (%d seat(s), billed per %s)", name, q.Seats, q.Interval)
}

// classifyStripeError maps API errors by HTTP status and treats anything
// else as a network failure.
func classifyStripeError(ctx context.Context, err error) error {
	var serr *stripe.Error
	if errors.As(err, &serr) {
		return resilience.HTTPStatusError("stripe", serr.HTTPStatusCode, serr.Msg)
	}
	if ctx.Err() != nil {
		return resilience.NewFatalError(ctx.Err())
	}
	return resilience.NewTransientError(fmt.Errorf("failed to reach stripe: %w", err))
}
