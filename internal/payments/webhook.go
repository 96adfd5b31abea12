// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package payments

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/tomtom215/owldoor/internal/database"
	"github.com/tomtom215/owldoor/internal/logging"
	"github.com/tomtom215/owldoor/internal/metrics"
	"github.com/tomtom215/owldoor/internal/models"
	"github.com/tomtom215/owldoor/internal/pricing"
)

// ErrDuplicateEvent is returned for an event ID that was already handled.
// Callers should acknowledge it.
var ErrDuplicateEvent = errors.New("stripe event already processed")

// Event types handled by HandleEvent.
const (
	EventCheckoutCompleted    = "checkout.session.completed"
	EventCheckoutExpired      = "checkout.session.expired"
	EventInvoicePaid          = "invoice.paid"
	EventInvoicePaymentFailed = "invoice.payment_failed"
	EventSubscriptionDeleted  = "customer.subscription.deleted"
)

// Event is the subset of a Stripe event the service reads.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

type sessionObject struct {
	ID                string            `json:"id"`
	ClientReferenceID string            `json:"client_reference_id"`
	Subscription      string            `json:"subscription"`
	AmountTotal       int64             `json:"amount_total"`
	Currency          string            `json:"currency"`
	Metadata          map[string]string `json:"metadata"`
}

type invoiceObject struct {
	ID           string `json:"id"`
	Subscription string `json:"subscription"`
}

type subscriptionObject struct {
	ID string `json:"id"`
}

// HandleWebhook verifies the Stripe-Signature header, decodes the event and
// applies it. Events from any API version are accepted; only the fields
// OwlDoor reads are decoded.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) (*Event, error) {
	if s.cfg.WebhookSecret == "" {
		metrics.PaymentEvents.WithLabelValues("unknown", "invalid_signature").Inc()
		return nil, fmt.Errorf("%w: no webhook secret configured", ErrInvalidSignature)
	}
	tolerance := s.cfg.WebhookTolerance
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	raw, err := webhook.ConstructEventWithOptions(payload, signature, s.cfg.WebhookSecret, webhook.ConstructEventOptions{
		Tolerance:                tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		err = signatureError(err)
		if errors.Is(err, ErrInvalidSignature) {
			metrics.PaymentEvents.WithLabelValues("unknown", "invalid_signature").Inc()
			return nil, err
		}
		return nil, fmt.Errorf("failed to decode stripe event: %w", err)
	}

	event := &Event{ID: raw.ID, Type: string(raw.Type)}
	if raw.Data != nil {
		event.Data.Object = json.RawMessage(raw.Data.Raw)
	}
	if event.ID == "" || event.Type == "" {
		return nil, errors.New("stripe event is missing id or type")
	}
	return event, s.HandleEvent(ctx, event)
}

// HandleEvent applies event exactly once. A redelivered event returns
// ErrDuplicateEvent; a failed handler forgets the event ID so Stripe's retry
// is processed.
func (s *Service) HandleEvent(ctx context.Context, event *Event) error {
	first, err := s.store.MarkStripeEventProcessed(ctx, event.ID, event.Type)
	if err != nil {
		return err
	}
	if !first {
		metrics.PaymentEvents.WithLabelValues(event.Type, "duplicate").Inc()
		return ErrDuplicateEvent
	}

	log := logging.Ctx(ctx).With().Str("event_id", event.ID).Str("event_type", event.Type).Logger()

	var handleErr error
	switch event.Type {
	case EventCheckoutCompleted:
		handleErr = s.checkoutCompleted(ctx, event.Data.Object)
	case EventCheckoutExpired:
		handleErr = s.checkoutExpired(ctx, event.Data.Object)
	case EventInvoicePaid:
		handleErr = s.subscriptionStatus(ctx, event.Data.Object, models.ClientStatusActive)
	case EventInvoicePaymentFailed:
		handleErr = s.subscriptionStatus(ctx, event.Data.Object, models.ClientStatusPastDue)
	case EventSubscriptionDeleted:
		handleErr = s.subscriptionDeleted(ctx, event.Data.Object)
	default:
		metrics.PaymentEvents.WithLabelValues(event.Type, "ignored").Inc()
		log.Debug().Msg("Ignoring stripe event")
		return nil
	}

	if handleErr != nil {
		metrics.PaymentEvents.WithLabelValues(event.Type, "error").Inc()
		if ferr := s.store.ForgetStripeEvent(ctx, event.ID); ferr != nil {
			log.Error().Err(ferr).Msg("Failed to release stripe event for retry")
		}
		return handleErr
	}
	metrics.PaymentEvents.WithLabelValues(event.Type, "processed").Inc()
	log.Info().Msg("Stripe event processed")
	return nil
}

func (s *Service) checkoutCompleted(ctx context.Context, raw json.RawMessage) error {
	var obj sessionObject
	if err := json.Unmarshal(raw, &obj); err != nil {
		return fmt.Errorf("failed to decode checkout session: %w", err)
	}

	payment, err := s.store.GetPaymentBySession(ctx, obj.ID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return err
	}

	clientRef := obj.ClientReferenceID
	if clientRef == "" {
		clientRef = obj.Metadata["client_id"]
	}
	clientID, err := uuid.Parse(clientRef)
	if err != nil {
		if payment == nil {
			return fmt.Errorf("checkout session %s has no client reference", obj.ID)
		}
		clientID = payment.ClientID
	}

	plan := obj.Metadata["plan"]
	if plan == "" && payment != nil {
		plan = payment.Plan
	}
	catalog, ok := pricing.LookupPlan(plan)
	if !ok {
		logging.Ctx(ctx).Warn().Str("session", obj.ID).Str("plan", plan).Msg("Checkout completed for unknown plan")
		return fmt.Errorf("checkout session %s: %w: %q", obj.ID, pricing.ErrUnknownPlan, plan)
	}
	leads, _ := strconv.Atoi(obj.Metadata["leads_per_month"])
	if leads <= 0 {
		leads = catalog.LeadsPerMonth
	}

	if err := s.store.SetClientPlan(ctx, clientID, plan, leads, models.ClientStatusActive, obj.Subscription); err != nil {
		return fmt.Errorf("failed to activate client: %w", err)
	}

	event := models.PaymentEvent{ClientID: clientID, Plan: plan, AmountCents: obj.AmountTotal, Currency: obj.Currency}
	if payment != nil {
		if err := s.store.UpdatePaymentStatus(ctx, payment.ID, models.PaymentCompleted); err != nil {
			return fmt.Errorf("failed to complete payment: %w", err)
		}
		event.PaymentID = payment.ID
		if event.AmountCents == 0 {
			event.AmountCents = payment.AmountCents
		}
		if event.Currency == "" {
			event.Currency = payment.Currency
		}
	}
	s.publish(ctx, models.TopicPaymentCompleted, event)
	return nil
}

func (s *Service) checkoutExpired(ctx context.Context, raw json.RawMessage) error {
	var obj sessionObject
	if err := json.Unmarshal(raw, &obj); err != nil {
		return fmt.Errorf("failed to decode checkout session: %w", err)
	}
	payment, err := s.store.GetPaymentBySession(ctx, obj.ID)
	if errors.Is(err, database.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.store.UpdatePaymentStatus(ctx, payment.ID, models.PaymentFailed)
}

func (s *Service) subscriptionStatus(ctx context.Context, raw json.RawMessage, status models.ClientStatus) error {
	var obj invoiceObject
	if err := json.Unmarshal(raw, &obj); err != nil {
		return fmt.Errorf("failed to decode invoice: %w", err)
	}
	return s.setStatusBySubscription(ctx, obj.Subscription, status)
}

func (s *Service) subscriptionDeleted(ctx context.Context, raw json.RawMessage) error {
	var obj subscriptionObject
	if err := json.Unmarshal(raw, &obj); err != nil {
		return fmt.Errorf("failed to decode subscription: %w", err)
	}
	return s.setStatusBySubscription(ctx, obj.ID, models.ClientStatusCanceled)
}

// setStatusBySubscription updates the status of the client owning
// subscriptionID and keeps its plan. Unknown subscriptions are logged and
// ignored.
func (s *Service) setStatusBySubscription(ctx context.Context, subscriptionID string, status models.ClientStatus) error {
	if subscriptionID == "" {
		return nil
	}
	client, err := s.store.GetClientBySubscription(ctx, subscriptionID)
	if errors.Is(err, database.ErrNotFound) {
		logging.Ctx(ctx).Warn().Str("subscription", subscriptionID).Msg("Stripe event for unknown subscription")
		return nil
	}
	if err != nil {
		return err
	}
	// Cancellation is final; a late invoice event must not revive the client.
	if client.Status == models.ClientStatusCanceled && status != models.ClientStatusCanceled {
		logging.Ctx(ctx).Warn().Str("subscription", subscriptionID).Str("status", string(status)).
			Msg("Ignoring stripe event for canceled subscription")
		return nil
	}
	return s.store.SetClientPlan(ctx, client.ID, "", 0, status, "")
}

func (s *Service) publish(ctx context.Context, topic string, payload interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, topic, payload); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("topic", topic).Msg("Failed to publish event")
	}
}
