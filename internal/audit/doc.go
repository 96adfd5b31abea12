// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

// Package audit records administrative actions taken through the API.
//
// Handlers that change pipeline state on behalf of a user (stage overrides,
// match status changes, Pro deletion, Client plan changes) describe the
// change as an Event and hand it to the Logger. The Logger writes events
// asynchronously through a buffered channel so a slow store never delays the
// response, and a retention routine prunes events older than the configured
// number of days.
//
// # Storage
//
// DuckDBStore keeps events in the audit_events table of the application
// database. The table is created by CreateTable and queried with a
// QueryFilter:
//
//	events, err := logger.Query(ctx, audit.QueryFilter{
//		Types:    []audit.EventType{audit.EventProStageOverride},
//		TargetID: proID.String(),
//		Limit:    50,
//	})
//
// # Sources
//
// SourceFromRequest and ActorFromSubject build the who and where of an event
// from the request and the authenticated subject.
package audit
