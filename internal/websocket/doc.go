// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

/*
Package websocket pushes live domain events to admin dashboards.

The package uses gorilla/websocket with a hub-and-spoke layout:

	┌──────────┐
	│   Hub    │ ← fans frames out to every client
	└────┬─────┘
	     │
	┌────┴─────┬─────────┬─────────┐
	│ Client1  │ Client2 │ Client3 │
	└──────────┴─────────┴─────────┘

Each Client runs a read pump (pings, close detection) and a write pump
(frames, keepalive pings). Frames are encoded once in the hub and shared
across clients.

Message types:

  - event: a domain event envelope (pro created or scored, match created,
    payment completed) forwarded from the event router
  - stats: periodic pipeline counters pushed by the API layer
  - ping / pong: application-level keepalive

A frame looks like:

	{"type":"event","data":{"id":"...","topic":"owldoor.match.created","data":{...}}}

Hub.Serve blocks until its context is canceled, which lets the supervisor
run and restart it. Clients that fall behind are disconnected rather than
slowing the broadcast.
*/
package websocket
