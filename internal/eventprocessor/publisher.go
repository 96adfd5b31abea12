// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package eventprocessor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/owldoor/internal/logging"
	"github.com/tomtom215/owldoor/internal/metrics"
	"github.com/tomtom215/owldoor/internal/models"
	"github.com/tomtom215/owldoor/internal/resilience"
)

// ErrPublisherClosed is returned by Publish after Close.
var ErrPublisherClosed = errors.New("publisher is closed")

// Publisher wraps domain payloads in a models.Event envelope and publishes
// them through a circuit breaker. It satisfies the Publisher interfaces of
// the ingest, matching, onboarding and payments services.
type Publisher struct {
	publisher message.Publisher
	breaker   *resilience.Breaker[struct{}]
	now       func() time.Time

	mu     sync.RWMutex
	closed bool
}

// NewPublisher wraps a Watermill publisher.
func NewPublisher(pub message.Publisher) *Publisher {
	return &Publisher{
		publisher: pub,
		breaker:   resilience.NewBreaker[struct{}]("events", resilience.BreakerSettings{Timeout: 30 * time.Second}),
		now:       time.Now,
	}
}

// Publish marshals payload into an envelope on topic. The envelope ID doubles
// as the Watermill message UUID and the JetStream Nats-Msg-Id, so a retried
// publish is deduplicated by the broker.
func (p *Publisher) Publish(ctx context.Context, topic string, payload interface{}) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}

	msg, err := p.envelope(ctx, topic, payload)
	if err != nil {
		metrics.EventsPublished.WithLabelValues(topic, "error").Inc()
		return err
	}

	_, err = p.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, p.publisher.Publish(topic, msg)
	})
	if err != nil {
		metrics.EventsPublished.WithLabelValues(topic, "error").Inc()
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	metrics.EventsPublished.WithLabelValues(topic, "success").Inc()
	logging.Ctx(ctx).Debug().Str("topic", topic).Str("event_id", msg.UUID).Msg("Event published")
	return nil
}

func (p *Publisher) envelope(ctx context.Context, topic string, payload interface{}) (*message.Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", topic, err)
	}
	event := models.Event{
		ID:            uuid.NewString(),
		Topic:         topic,
		OccurredAt:    p.now().UTC(),
		CorrelationID: logging.CorrelationIDFromContext(ctx),
		Data:          data,
	}
	body, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", topic, err)
	}

	msg := message.NewMessage(event.ID, body)
	msg.Metadata.Set(natsgo.MsgIdHdr, event.ID)
	msg.Metadata.Set("topic", topic)
	if event.CorrelationID != "" {
		msg.Metadata.Set("correlation_id", event.CorrelationID)
	}
	return msg, nil
}

// Close stops accepting events. The underlying transport is closed by the Bus.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// DecodeEvent unmarshals an envelope and its data into out.
func DecodeEvent(msg *message.Message, out interface{}) (*models.Event, error) {
	var event models.Event
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if out != nil {
		if err := json.Unmarshal(event.Data, out); err != nil {
			return &event, fmt.Errorf("decode %s data: %w", event.Topic, err)
		}
	}
	return &event, nil
}
