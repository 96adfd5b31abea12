// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

// Package eventprocessor carries domain events between OwlDoor services with
// Watermill.
//
// Services publish to four topics:
//
//	owldoor.pro.created        a Pro entered the pipeline (ingest, onboarding)
//	owldoor.pro.scored         a Pro's qualification score changed
//	owldoor.match.created      the match engine paired a Client and a Pro
//	owldoor.payment.completed  a Stripe checkout finished
//
// Every payload is wrapped in a models.Event envelope carrying an ID, the
// topic, the time it occurred and the caller's correlation ID.
//
// # Transports
//
// With no NATS settings the bus is an in-process Watermill GoChannel, which
// is enough for a single instance. Setting events.nats_url switches to NATS
// JetStream through watermill-nats; events.embedded_server starts a NATS
// server inside the process instead, so JetStream persistence is available
// without running a separate broker. The OWLDOOR stream is created or updated
// on startup to capture owldoor.>.
//
// # Handlers
//
// The Router subscribes:
//
//   - match.created: email the Client about the new candidate and text the Pro
//   - payment.completed: email the Client a receipt
//   - every topic: broadcast the raw envelope to admin dashboards
//
// Notification failures are recorded by the notify dispatcher and are not
// retried here, so a flaky SMS provider never causes duplicate emails.
// Store errors are retried by the router's retry middleware and messages
// that still fail land on owldoor.dlq.
package eventprocessor
