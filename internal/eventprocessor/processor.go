// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package eventprocessor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tomtom215/owldoor/internal/logging"
	"github.com/tomtom215/owldoor/internal/models"
)

// Deps are the collaborators of the event handlers. Nil members disable the
// handlers that need them.
type Deps struct {
	Store     Store
	Notifier  Notifier
	Hub       Broadcaster
	PublicURL string
}

// Processor owns the bus, the domain publisher and the router.
type Processor struct {
	bus       *Bus
	publisher *Publisher
	router    *Router
	broadcast *BroadcastHandler
}

// New builds the bus and registers the handlers deps allow.
func New(ctx context.Context, bc BusConfig, rc RouterConfig, deps Deps) (*Processor, error) {
	logger := NewWatermillLogger()
	bus, err := NewBus(ctx, bc, logger)
	if err != nil {
		return nil, fmt.Errorf("create event bus: %w", err)
	}

	p := &Processor{
		bus:       bus,
		publisher: NewPublisher(bus.Publisher()),
		router:    NewRouter(rc, bus.Publisher(), logger),
	}

	if deps.Store != nil && deps.Notifier != nil {
		sub, err := bus.Subscriber("notify")
		if err != nil {
			_ = bus.Close()
			return nil, err
		}
		nh := NewNotificationHandler(deps.Store, deps.Notifier, deps.PublicURL)
		p.router.AddConsumerHandler("notify_match_created", models.TopicMatchCreated, sub, nh.HandleMatchCreated)
		p.router.AddConsumerHandler("notify_payment_completed", models.TopicPaymentCompleted, sub, nh.HandlePaymentCompleted)
	}

	if deps.Hub != nil {
		sub, err := bus.Subscriber("dashboard")
		if err != nil {
			_ = bus.Close()
			return nil, err
		}
		p.broadcast = NewBroadcastHandler(deps.Hub)
		for _, topic := range Topics {
			name := "broadcast_" + strings.ReplaceAll(strings.TrimPrefix(topic, "owldoor."), ".", "_")
			p.router.AddConsumerHandler(name, topic, sub, p.broadcast.Handle)
		}
	}

	logging.Info().Str("transport", bus.Transport()).Msg("Event processor configured")
	return p, nil
}

// Publisher returns the domain publisher.
func (p *Processor) Publisher() *Publisher { return p.publisher }

// Router returns the router, run by the supervisor.
func (p *Processor) Router() *Router { return p.router }

// Bus returns the underlying transport.
func (p *Processor) Bus() *Bus { return p.bus }

// Broadcast returns the dashboard handler, or nil without a hub.
func (p *Processor) Broadcast() *BroadcastHandler { return p.broadcast }

// Close stops publishing, stops the router and closes the transport.
func (p *Processor) Close() error {
	return errors.Join(p.publisher.Close(), p.router.Close(), p.bus.Close())
}
