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
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	natsgo "github.com/nats-io/nats.go"
)

// Bus holds the Watermill publisher and subscribers for the selected transport.
type Bus struct {
	cfg       BusConfig
	url       string
	logger    watermill.LoggerAdapter
	publisher message.Publisher
	embedded  *EmbeddedServer
	transport string

	// channel is set for the in-process transport, which is both publisher
	// and subscriber.
	channel *gochannel.GoChannel

	mu          sync.Mutex
	subscribers map[string]message.Subscriber
}

// NewBus builds the transport described by cfg. For NATS it starts the
// embedded server when configured and provisions the stream first.
func NewBus(ctx context.Context, cfg BusConfig, logger watermill.LoggerAdapter) (*Bus, error) {
	if logger == nil {
		logger = NewWatermillLogger()
	}
	if !cfg.UsesNATS() {
		ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: cfg.ChannelBuffer}, logger)
		return &Bus{cfg: cfg, logger: logger, publisher: ch, channel: ch, transport: "gochannel"}, nil
	}

	b := &Bus{cfg: cfg, logger: logger, transport: "nats", subscribers: make(map[string]message.Subscriber)}
	url := cfg.NATSURL
	if cfg.EmbeddedServer {
		srv, err := StartEmbeddedServer(cfg.StoreDir)
		if err != nil {
			return nil, err
		}
		b.embedded = srv
		url = srv.ClientURL()
	}

	if err := provisionStream(ctx, url, cfg); err != nil {
		b.shutdownEmbedded()
		return nil, err
	}

	pub, err := newNATSPublisher(url, cfg, logger)
	if err != nil {
		b.shutdownEmbedded()
		return nil, err
	}
	b.url, b.publisher = url, pub
	return b, nil
}

func natsOptions(cfg BusConfig, logger watermill.LoggerAdapter, name string) []natsgo.Option {
	return []natsgo.Option{
		natsgo.Name(name),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, watermill.LogFields{"client": name})
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"client": name, "url": nc.ConnectedUrl()})
		}),
	}
}

func newNATSPublisher(url string, cfg BusConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: natsOptions(cfg, logger, "owldoor-publisher"),
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: false,
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create NATS publisher: %w", err)
	}
	return pub, nil
}

// durableName derives a JetStream consumer name per topic. Durable names
// may not contain dots.
func durableName(prefix, topic string) string {
	return prefix + "_" + strings.ReplaceAll(topic, ".", "_")
}

func newNATSSubscriber(url, durablePrefix string, cfg BusConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              url,
		SubscribersCount: cfg.SubscribersCount,
		AckWaitTimeout:   cfg.AckWaitTimeout,
		CloseTimeout:     30 * time.Second,
		NatsOptions:      natsOptions(cfg, logger, "owldoor-subscriber"),
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: false,
			SubscribeOptions: []natsgo.SubOpt{
				natsgo.BindStream(cfg.StreamName),
				natsgo.MaxDeliver(cfg.MaxDeliver),
				natsgo.AckWait(cfg.AckWaitTimeout),
				natsgo.DeliverNew(),
			},
			DurablePrefix:     durablePrefix,
			DurableCalculator: durableName,
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create NATS subscriber: %w", err)
	}
	return sub, nil
}

// Publisher returns the raw Watermill publisher.
func (b *Bus) Publisher() message.Publisher { return b.publisher }

// Subscriber returns the subscriber for a consumer group. On JetStream each
// group gets its own durable consumers, so two groups reading one topic both
// see every message. The in-process transport fans out to every subscription
// and ignores the group.
func (b *Bus) Subscriber(group string) (message.Subscriber, error) {
	if b.channel != nil {
		return b.channel, nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.subscribers[group]; ok {
		return sub, nil
	}
	prefix := b.cfg.DurableName
	if group != "" {
		prefix += "_" + group
	}
	sub, err := newNATSSubscriber(b.url, prefix, b.cfg, b.logger)
	if err != nil {
		return nil, err
	}
	b.subscribers[group] = sub
	return sub, nil
}

// Transport names the active transport: gochannel or nats.
func (b *Bus) Transport() string { return b.transport }

// Embedded returns the embedded NATS server, or nil.
func (b *Bus) Embedded() *EmbeddedServer { return b.embedded }

// Close closes the subscribers, then the publisher, then the embedded server.
func (b *Bus) Close() error {
	var errs []error
	b.mu.Lock()
	for group, sub := range b.subscribers {
		if err := sub.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close subscriber %q: %w", group, err))
		}
	}
	b.subscribers = nil
	b.mu.Unlock()

	if err := b.publisher.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close publisher: %w", err))
	}
	b.shutdownEmbedded()
	return errors.Join(errs...)
}

func (b *Bus) shutdownEmbedded() {
	if b.embedded != nil {
		b.embedded.Shutdown()
	}
}
