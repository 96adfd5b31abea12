// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

/*
Package api exposes OwlDoor over HTTP.

Every route lives under /api/v1 and answers with the same JSON envelope:

	{
	  "success": true,
	  "data": {...},
	  "error": {"code": "NOT_FOUND", "message": "...", "request_id": "..."},
	  "metadata": {"request_id": "...", "timestamp": "...", "duration_ms": 3}
	}

Route groups:

	public      health, score, pricing (per-IP rate limit, no auth)
	webhooks    lead intake (X-API-Key) and Stripe events (signature)
	protected   pros, clients, matches, notifications, payments, ai,
	            onboarding, geocode (JWT + Casbin RBAC)
	admin       dashboard, audit trail, live websocket feed

Authentication validates tokens issued by the hosted auth provider; the
Casbin policy decides which role may reach which path, and handlers then
check ownership (a client only sees its own company, a pro only its own
profile). Errors from the service packages are mapped to envelope codes in
errors.go.
*/
package api
