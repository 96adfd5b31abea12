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

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/tomtom215/owldoor/internal/metrics"
)

type route struct {
	name       string
	topic      string
	subscriber message.Subscriber
	handler    message.NoPublishHandlerFunc
}

// Router runs consumer handlers on a Watermill router with recovery, retry,
// optional throttling and a poison queue.
//
// A Watermill router cannot be restarted once closed, so each Serve call
// builds a fresh one from the registered handlers. That makes Router safe to
// run under a restarting supervisor.
type Router struct {
	cfg    RouterConfig
	poison message.Publisher
	logger watermill.LoggerAdapter

	mu      sync.Mutex
	routes  []route
	current *message.Router
	started chan struct{}
}

// NewRouter creates a router. poison may be nil to disable the poison queue.
func NewRouter(cfg RouterConfig, poison message.Publisher, logger watermill.LoggerAdapter) *Router {
	if logger == nil {
		logger = NewWatermillLogger()
	}
	return &Router{
		cfg:     cfg,
		poison:  poison,
		logger:  logger,
		started: make(chan struct{}),
	}
}

// AddConsumerHandler registers a handler for topic read from subscriber.
// Handlers added after Serve starts take effect on the next run.
func (r *Router) AddConsumerHandler(name, topic string, subscriber message.Subscriber, handler message.NoPublishHandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, route{name: name, topic: topic, subscriber: subscriber, handler: handler})
}

func (r *Router) build() (*message.Router, error) {
	wm, err := message.NewRouter(message.RouterConfig{CloseTimeout: r.cfg.CloseTimeout}, r.logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill router: %w", err)
	}

	// Outermost first: the poison queue must see the error left after retries.
	if r.poison != nil && r.cfg.PoisonQueueTopic != "" {
		pq, err := middleware.PoisonQueue(r.poison, r.cfg.PoisonQueueTopic)
		if err != nil {
			return nil, fmt.Errorf("create poison queue middleware: %w", err)
		}
		wm.AddMiddleware(pq)
	}
	wm.AddMiddleware(middleware.Recoverer)
	wm.AddMiddleware(middleware.Retry{
		MaxRetries:      r.cfg.RetryMaxRetries,
		InitialInterval: r.cfg.RetryInitialInterval,
		MaxInterval:     r.cfg.RetryMaxInterval,
		Multiplier:      r.cfg.RetryMultiplier,
		Logger:          r.logger,
	}.Middleware)
	if r.cfg.ThrottlePerSecond > 0 {
		wm.AddMiddleware(middleware.NewThrottle(r.cfg.ThrottlePerSecond, time.Second).Middleware)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rt := range r.routes {
		wm.AddConsumerHandler(rt.name, rt.topic, rt.subscriber, instrument(rt.name, rt.handler))
	}
	return wm, nil
}

// instrument counts handler outcomes. Retries are counted per attempt.
func instrument(name string, h message.NoPublishHandlerFunc) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		if err := h(msg); err != nil {
			metrics.EventsHandled.WithLabelValues(name, "error").Inc()
			return err
		}
		metrics.EventsHandled.WithLabelValues(name, "success").Inc()
		return nil
	}
}

// Serve runs the router until ctx is canceled.
func (r *Router) Serve(ctx context.Context) error {
	wm, err := r.build()
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.current = wm
	started := r.started
	r.mu.Unlock()

	go func() {
		select {
		case <-wm.Running():
			select {
			case <-started:
			default:
				close(started)
			}
		case <-ctx.Done():
		}
		<-ctx.Done()
		_ = wm.Close()
	}()

	err = wm.Run(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err == nil {
		err = errors.New("event router stopped")
	}
	return err
}

// Started closes once the first run has subscribed to every topic.
func (r *Router) Started() <-chan struct{} {
	return r.started
}

// Close stops the current run.
func (r *Router) Close() error {
	r.mu.Lock()
	wm := r.current
	r.mu.Unlock()
	if wm == nil {
		return nil
	}
	return wm.Close()
}

func (r *Router) String() string { return "event-router" }
