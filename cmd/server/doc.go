// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

/*
Command server runs the OwlDoor API.

OwlDoor scores real estate agents and loan officers, ingests leads from
partner sources, matches scored professionals to paying recruiting clients
and bills those clients through Stripe.

# Startup

 1. Configuration: koanf v2 (defaults, then config.yaml, then environment)
 2. Logging: zerolog, JSON or console
 3. Database: DuckDB, plus optional ZIP centroid seeding
 4. Services: geocoding chain with a Badger cache, notifications, the
    event processor (Watermill over GoChannel or NATS JetStream), ingest,
    matching, payments, AI chat, onboarding and the audit trail
 5. Auth: Supabase-issued JWTs, Casbin path RBAC
 6. Supervisor tree: suture v4 runs the hub, event router, match sweeper,
    audit retention and HTTP server

# Configuration

Common environment variables:

	HTTP_PORT=3857
	DUCKDB_PATH=/data/owldoor.duckdb
	JWT_SECRET=<shared Supabase JWT secret>
	CORS_ORIGINS=https://app.owldoor.com
	LEAD_SOURCE_KEYS=zillow:<bcrypt hash>,realtor:<bcrypt hash>
	GEOCODE_PROVIDERS=local,google,nominatim
	STRIPE_SECRET_KEY=sk_live_...
	STRIPE_WEBHOOK_SECRET=whsec_...
	NATS_EMBEDDED=true

Use owldoorctl hash-key to produce LEAD_SOURCE_KEYS entries.

# Signals

SIGINT and SIGTERM cancel the tree. The HTTP server drains for up to 10s,
then the event processor, caches and database are closed in that order.
*/
package main
