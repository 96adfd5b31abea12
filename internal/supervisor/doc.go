// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

/*
Package supervisor runs OwlDoor's long-lived services under suture v4.

The tree has three layers:

	RootSupervisor ("owldoor")
	├── MessagingSupervisor ("messaging-layer")
	│   ├── websocket-hub
	│   └── event-router
	├── WorkerSupervisor ("worker-layer")
	│   ├── match-sweeper (when matching.sweep_enabled)
	│   └── audit-retention (when audit.enabled)
	└── APISupervisor ("api-layer")
	    └── http-server

Every service implements suture.Service:

	type Service interface {
	    Serve(ctx context.Context) error
	}

Returning nil stops the service for good, returning an error restarts it,
and a canceled context asks it to return promptly. Supervisor events are
logged through sutureslog into the zerolog-backed slog handler.

DuckDB, Badger and the embedded NATS server are not supervised. main closes
them after the tree stops, so the event router drains before its transport
goes away.
*/
package supervisor
