// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package models

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Event topics.
const (
	TopicProCreated       = "owldoor.pro.created"
	TopicProScored        = "owldoor.pro.scored"
	TopicMatchCreated     = "owldoor.match.created"
	TopicPaymentCompleted = "owldoor.payment.completed"
)

// Event is the envelope carried on every topic.
type Event struct {
	ID            string          `json:"id"`
	Topic         string          `json:"topic"`
	OccurredAt    time.Time       `json:"occurred_at"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Data          json.RawMessage `json:"data"`
}

// ProEvent is the payload of pro.created and pro.scored.
type ProEvent struct {
	ProID  uuid.UUID `json:"pro_id"`
	Type   ProType   `json:"pro_type"`
	Name   string    `json:"name"`
	Score  int       `json:"score"`
	Stage  Stage     `json:"stage"`
	Source string    `json:"source,omitempty"`
}

// MatchEvent is the payload of match.created.
type MatchEvent struct {
	MatchID       uuid.UUID `json:"match_id"`
	ClientID      uuid.UUID `json:"client_id"`
	ProID         uuid.UUID `json:"pro_id"`
	Score         int       `json:"score"`
	DistanceMiles float64   `json:"distance_miles"`
}

// PaymentEvent is the payload of payment.completed.
type PaymentEvent struct {
	PaymentID   uuid.UUID `json:"payment_id"`
	ClientID    uuid.UUID `json:"client_id"`
	Plan        string    `json:"plan"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
}

// NewProEvent builds a ProEvent from p.
func NewProEvent(p *Pro) ProEvent {
	return ProEvent{ProID: p.ID, Type: p.Type, Name: p.FullName(), Score: p.Score, Stage: p.Stage, Source: p.Source}
}
