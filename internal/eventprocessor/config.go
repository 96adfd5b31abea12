// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package eventprocessor

import (
	"time"

	"github.com/tomtom215/owldoor/internal/config"
	"github.com/tomtom215/owldoor/internal/models"
)

// Topics lists every domain topic, in the order handlers subscribe to them.
var Topics = []string{
	models.TopicProCreated,
	models.TopicProScored,
	models.TopicMatchCreated,
	models.TopicPaymentCompleted,
}

// DeadLetterTopic receives messages that failed every retry.
const DeadLetterTopic = "owldoor.dlq"

// BusConfig selects and tunes the transport.
type BusConfig struct {
	// NATSURL connects to an external server. Empty with EmbeddedServer off
	// selects the in-process GoChannel.
	NATSURL        string
	EmbeddedServer bool
	StoreDir       string

	StreamName  string
	DurableName string

	// StreamMaxAge bounds how long JetStream keeps events.
	StreamMaxAge    time.Duration
	DuplicateWindow time.Duration

	MaxReconnects    int
	ReconnectWait    time.Duration
	AckWaitTimeout   time.Duration
	MaxDeliver       int
	SubscribersCount int

	// ChannelBuffer is the GoChannel output buffer per subscriber.
	ChannelBuffer int64
}

// BusConfigFrom maps the events section onto a BusConfig with defaults.
func BusConfigFrom(cfg config.EventsConfig) BusConfig {
	bc := DefaultBusConfig()
	bc.NATSURL = cfg.NATSURL
	bc.EmbeddedServer = cfg.EmbeddedServer
	if cfg.StoreDir != "" {
		bc.StoreDir = cfg.StoreDir
	}
	if cfg.StreamName != "" {
		bc.StreamName = cfg.StreamName
	}
	if cfg.DurableName != "" {
		bc.DurableName = cfg.DurableName
	}
	return bc
}

// DefaultBusConfig returns the in-process defaults.
func DefaultBusConfig() BusConfig {
	return BusConfig{
		StoreDir:         "/data/nats",
		StreamName:       "OWLDOOR",
		DurableName:      "owldoor-processor",
		StreamMaxAge:     7 * 24 * time.Hour,
		DuplicateWindow:  2 * time.Minute,
		MaxReconnects:    -1,
		ReconnectWait:    2 * time.Second,
		AckWaitTimeout:   30 * time.Second,
		MaxDeliver:       5,
		SubscribersCount: 1,
		ChannelBuffer:    256,
	}
}

// UsesNATS reports whether the bus runs on JetStream.
func (c BusConfig) UsesNATS() bool {
	return c.NATSURL != "" || c.EmbeddedServer
}

// RouterConfig tunes the Watermill router middleware.
type RouterConfig struct {
	CloseTimeout time.Duration

	RetryMaxRetries      int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
	RetryMultiplier      float64

	// ThrottlePerSecond limits handler throughput; 0 disables it.
	ThrottlePerSecond int64

	// PoisonQueueTopic receives messages that exhausted their retries.
	// Empty disables the poison queue.
	PoisonQueueTopic string
}

// DefaultRouterConfig returns production defaults for the router.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		CloseTimeout:         30 * time.Second,
		RetryMaxRetries:      3,
		RetryInitialInterval: 500 * time.Millisecond,
		RetryMaxInterval:     10 * time.Second,
		RetryMultiplier:      2.0,
		PoisonQueueTopic:     DeadLetterTopic,
	}
}
