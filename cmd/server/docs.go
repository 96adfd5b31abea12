// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

// General API annotations for swag. Regenerate docs/ with:
//
//	swag init -g cmd/server/docs.go -o docs
//
// @title OwlDoor API
// @version 1.0
// @description Recruiting and lead matching for real estate and mortgage professionals.
// @description
// @description Every response uses the envelope {success, data, error, metadata}.
// @description Errors carry a machine-readable code such as VALIDATION_FAILED or RATE_LIMITED.
//
// @contact.name GitHub Repository
// @contact.url https://github.com/tomtom215/owldoor/issues
//
// @license.name AGPL-3.0-or-later
// @license.url https://www.gnu.org/licenses/agpl-3.0.html
//
// @host localhost:3857
// @BasePath /api/v1
// @schemes http https
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Supabase-issued JWT: Bearer <token>
//
// @tag.name Core
// @tag.description Health and readiness probes
// @tag.name Public
// @tag.description Scoring, pricing and plan catalog
// @tag.name Webhooks
// @tag.description Lead sources and Stripe
// @tag.name Geocode
// @tag.name Pros
// @tag.description Agent and loan officer records
// @tag.name Clients
// @tag.description Recruiting clients
// @tag.name Matches
// @tag.description Pro to client matching
// @tag.name Notifications
// @tag.name Payments
// @tag.name AI
// @tag.description Recruiting assistant chat
// @tag.name Onboarding
// @tag.name Admin
// @tag.description Dashboard, audit trail and live feed
package main
