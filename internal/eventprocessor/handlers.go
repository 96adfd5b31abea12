// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package eventprocessor

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/tomtom215/owldoor/internal/database"
	"github.com/tomtom215/owldoor/internal/logging"
	"github.com/tomtom215/owldoor/internal/models"
	"github.com/tomtom215/owldoor/internal/notify"
)

// Store loads the records a notification is about.
type Store interface {
	GetClient(ctx context.Context, id uuid.UUID) (*models.Client, error)
	GetPro(ctx context.Context, id uuid.UUID) (*models.Pro, error)
}

// Notifier sends templated notifications. notify.Dispatcher implements it.
type Notifier interface {
	SendTemplate(ctx context.Context, name, to string, data interface{}) (*models.Notification, error)
}

// Broadcaster pushes raw JSON to connected dashboards.
type Broadcaster interface {
	BroadcastRaw(data []byte)
}

// NotificationHandler turns match and payment events into emails and texts.
type NotificationHandler struct {
	store        Store
	notifier     Notifier
	dashboardURL string
}

// NewNotificationHandler creates the handler. publicURL is the web app's
// base URL used for links in emails.
func NewNotificationHandler(store Store, notifier Notifier, publicURL string) *NotificationHandler {
	return &NotificationHandler{
		store:        store,
		notifier:     notifier,
		dashboardURL: strings.TrimRight(publicURL, "/") + "/dashboard",
	}
}

// HandleMatchCreated emails the Client and texts the Pro. A missing Client
// or Pro (deleted since the match) drops the event; store errors are
// returned for retry.
func (h *NotificationHandler) HandleMatchCreated(msg *message.Message) error {
	var data models.MatchEvent
	event, err := DecodeEvent(msg, &data)
	if err != nil {
		logging.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("Dropping undecodable match event")
		return nil
	}
	ctx := eventContext(msg.Context(), event)

	client, err := h.store.GetClient(ctx, data.ClientID)
	if err != nil {
		return dropIfMissing(ctx, err, "client", data.ClientID)
	}
	pro, err := h.store.GetPro(ctx, data.ProID)
	if err != nil {
		return dropIfMissing(ctx, err, "pro", data.ProID)
	}

	if client.Email != "" {
		h.send(ctx, notify.TemplateMatchNotice, client.Email, notify.MatchNoticeData{
			CompanyName:   client.CompanyName,
			ProName:       pro.FullName(),
			ProType:       proTypeLabel(pro.Type),
			Score:         pro.Score,
			DistanceMiles: data.DistanceMiles,
			DashboardURL:  h.dashboardURL + "/matches/" + data.MatchID.String(),
		})
	}
	if pro.Phone != "" {
		h.send(ctx, notify.TemplateNewOpportunity, pro.Phone, notify.OpportunityData{
			FirstName:   pro.FirstName,
			CompanyName: client.CompanyName,
			City:        marketCity(client.MarketAddress),
		})
	}
	return nil
}

// HandlePaymentCompleted emails the Client a receipt.
func (h *NotificationHandler) HandlePaymentCompleted(msg *message.Message) error {
	var data models.PaymentEvent
	event, err := DecodeEvent(msg, &data)
	if err != nil {
		logging.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("Dropping undecodable payment event")
		return nil
	}
	ctx := eventContext(msg.Context(), event)

	client, err := h.store.GetClient(ctx, data.ClientID)
	if err != nil {
		return dropIfMissing(ctx, err, "client", data.ClientID)
	}
	if client.Email == "" {
		return nil
	}
	h.send(ctx, notify.TemplatePaymentReceipt, client.Email, notify.ReceiptData{
		CompanyName: client.CompanyName,
		Plan:        data.Plan,
		AmountCents: data.AmountCents,
		Currency:    data.Currency,
		PaymentID:   data.PaymentID.String(),
	})
	return nil
}

// send logs failures without returning them; the dispatcher has already
// recorded the failed notification.
func (h *NotificationHandler) send(ctx context.Context, template, to string, data interface{}) {
	if _, err := h.notifier.SendTemplate(ctx, template, to, data); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("template", template).Msg("Event notification failed")
	}
}

func dropIfMissing(ctx context.Context, err error, kind string, id uuid.UUID) error {
	if errors.Is(err, database.ErrNotFound) {
		logging.Ctx(ctx).Info().Str(kind+"_id", id.String()).Msg("Event refers to a missing record, skipping")
		return nil
	}
	return err
}

func eventContext(ctx context.Context, event *models.Event) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if event.CorrelationID != "" {
		ctx = logging.ContextWithCorrelationID(ctx, event.CorrelationID)
	}
	return ctx
}

func proTypeLabel(t models.ProType) string {
	if t == models.ProTypeLoanOfficer {
		return "loan officer"
	}
	return "agent"
}

// marketCity picks the city out of "street, city, ST zip" style addresses.
func marketCity(address string) string {
	parts := strings.Split(address, ",")
	switch len(parts) {
	case 0, 1:
		return ""
	case 2:
		return strings.TrimSpace(parts[0])
	default:
		return strings.TrimSpace(parts[len(parts)-2])
	}
}

// BroadcastHandler forwards every envelope to dashboards unchanged. It never
// fails, so a slow dashboard cannot trigger retries.
type BroadcastHandler struct {
	hub       Broadcaster
	forwarded atomic.Int64
}

// NewBroadcastHandler creates the handler.
func NewBroadcastHandler(hub Broadcaster) *BroadcastHandler {
	return &BroadcastHandler{hub: hub}
}

// Handle broadcasts msg's payload.
func (h *BroadcastHandler) Handle(msg *message.Message) error {
	h.hub.BroadcastRaw(msg.Payload)
	h.forwarded.Add(1)
	return nil
}

// Forwarded returns how many events have been broadcast.
func (h *BroadcastHandler) Forwarded() int64 {
	return h.forwarded.Load()
}
