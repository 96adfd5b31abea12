// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package eventprocessor

import (
	"context"
	"errors"
	"fmt"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// JetStreamContext is the subset of jetstream.JetStream used to manage the stream.
type JetStreamContext interface {
	Stream(ctx context.Context, name string) (jetstream.Stream, error)
	CreateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
	UpdateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
}

// streamConfig captures every domain topic plus the dead letter topic.
func streamConfig(cfg BusConfig) jetstream.StreamConfig {
	return jetstream.StreamConfig{
		Name:       cfg.StreamName,
		Subjects:   []string{"owldoor.>"},
		Retention:  jetstream.LimitsPolicy,
		MaxAge:     cfg.StreamMaxAge,
		Duplicates: cfg.DuplicateWindow,
		Storage:    jetstream.FileStorage,
		Discard:    jetstream.DiscardOld,
	}
}

// EnsureStream creates the stream, or updates it when it already exists.
func EnsureStream(ctx context.Context, js JetStreamContext, cfg BusConfig) (jetstream.Stream, error) {
	sc := streamConfig(cfg)

	_, err := js.Stream(ctx, sc.Name)
	switch {
	case err == nil:
		stream, err := js.UpdateStream(ctx, sc)
		if err != nil {
			return nil, fmt.Errorf("update stream %s: %w", sc.Name, err)
		}
		return stream, nil
	case errors.Is(err, jetstream.ErrStreamNotFound):
		stream, err := js.CreateStream(ctx, sc)
		if err != nil {
			return nil, fmt.Errorf("create stream %s: %w", sc.Name, err)
		}
		return stream, nil
	default:
		return nil, fmt.Errorf("check stream %s: %w", sc.Name, err)
	}
}

// provisionStream connects once to url and ensures the stream exists before
// watermill's publisher and subscriber bind to it.
func provisionStream(ctx context.Context, url string, cfg BusConfig) error {
	nc, err := natsgo.Connect(url, natsgo.Name("owldoor-provisioner"))
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	defer nc.Close()

	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("create JetStream context: %w", err)
	}
	_, err = EnsureStream(ctx, js, cfg)
	return err
}
