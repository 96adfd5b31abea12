// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package eventprocessor

import (
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"

	"github.com/tomtom215/owldoor/internal/logging"
)

const embeddedReadyTimeout = 30 * time.Second

// EmbeddedServer is an in-process NATS server with JetStream enabled, for
// single-instance deployments that still want a durable event log.
type EmbeddedServer struct {
	server *server.Server
}

// StartEmbeddedServer starts a server that listens on a random loopback port
// and stores JetStream data under storeDir.
func StartEmbeddedServer(storeDir string) (*EmbeddedServer, error) {
	opts := &server.Options{
		ServerName: "owldoor-events",
		Host:       "127.0.0.1",
		Port:       server.RANDOM_PORT,
		JetStream:  true,
		StoreDir:   storeDir,
		NoSigs:     true,
		NoLog:      true,
		MaxPayload: 1024 * 1024,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create NATS server: %w", err)
	}
	go ns.Start()

	if !ns.ReadyForConnections(embeddedReadyTimeout) {
		ns.Shutdown()
		return nil, fmt.Errorf("NATS server not ready within %s", embeddedReadyTimeout)
	}
	logging.Info().Str("url", ns.ClientURL()).Str("store_dir", storeDir).Msg("Embedded NATS server started")
	return &EmbeddedServer{server: ns}, nil
}

// ClientURL returns the connection URL for clients.
func (s *EmbeddedServer) ClientURL() string {
	return s.server.ClientURL()
}

// Shutdown stops the server and waits for it to exit.
func (s *EmbeddedServer) Shutdown() {
	if !s.server.Running() {
		return
	}
	s.server.Shutdown()
	s.server.WaitForShutdown()
}

// IsRunning reports server health.
func (s *EmbeddedServer) IsRunning() bool {
	return s.server.Running() && s.server.JetStreamEnabled()
}
