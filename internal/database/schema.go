// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package database

import (
	"context"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS pros (
		id VARCHAR PRIMARY KEY,
		user_id VARCHAR NOT NULL DEFAULT '',
		pro_type VARCHAR NOT NULL,
		first_name VARCHAR NOT NULL DEFAULT '',
		last_name VARCHAR NOT NULL DEFAULT '',
		email VARCHAR NOT NULL DEFAULT '',
		phone VARCHAR NOT NULL DEFAULT '',
		brokerage VARCHAR NOT NULL DEFAULT '',
		license_number VARCHAR NOT NULL DEFAULT '',
		licensed_states VARCHAR NOT NULL DEFAULT '',
		city VARCHAR NOT NULL DEFAULT '',
		state VARCHAR NOT NULL DEFAULT '',
		zip VARCHAR NOT NULL DEFAULT '',
		latitude DOUBLE,
		longitude DOUBLE,
		transactions INTEGER NOT NULL DEFAULT 0,
		volume_usd DOUBLE NOT NULL DEFAULT 0,
		years_licensed INTEGER NOT NULL DEFAULT 0,
		score INTEGER NOT NULL DEFAULT 0,
		stage VARCHAR NOT NULL DEFAULT 'new',
		status VARCHAR NOT NULL DEFAULT 'active',
		source VARCHAR NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS clients (
		id VARCHAR PRIMARY KEY,
		owner_user_id VARCHAR NOT NULL,
		company_name VARCHAR NOT NULL,
		contact_name VARCHAR NOT NULL DEFAULT '',
		email VARCHAR NOT NULL,
		phone VARCHAR NOT NULL DEFAULT '',
		pro_type VARCHAR NOT NULL,
		market_address VARCHAR NOT NULL DEFAULT '',
		latitude DOUBLE,
		longitude DOUBLE,
		radius_miles DOUBLE NOT NULL DEFAULT 25,
		min_score INTEGER NOT NULL DEFAULT 0,
		min_transactions INTEGER NOT NULL DEFAULT 0,
		min_years INTEGER NOT NULL DEFAULT 0,
		licensed_states VARCHAR NOT NULL DEFAULT '',
		plan VARCHAR NOT NULL DEFAULT '',
		leads_per_month INTEGER NOT NULL DEFAULT 0,
		status VARCHAR NOT NULL DEFAULT 'pending',
		subscription_id VARCHAR NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS matches (
		id VARCHAR PRIMARY KEY,
		client_id VARCHAR NOT NULL,
		pro_id VARCHAR NOT NULL,
		score INTEGER NOT NULL,
		distance_miles DOUBLE NOT NULL,
		status VARCHAR NOT NULL,
		notes VARCHAR NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		UNIQUE (client_id, pro_id)
	)`,
	`CREATE TABLE IF NOT EXISTS lead_events (
		id VARCHAR PRIMARY KEY,
		source VARCHAR NOT NULL,
		pro_id VARCHAR NOT NULL DEFAULT '',
		status VARCHAR NOT NULL,
		error VARCHAR NOT NULL DEFAULT '',
		payload VARCHAR NOT NULL,
		received_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id VARCHAR PRIMARY KEY,
		channel VARCHAR NOT NULL,
		recipient VARCHAR NOT NULL,
		subject VARCHAR NOT NULL DEFAULT '',
		body VARCHAR NOT NULL,
		template VARCHAR NOT NULL DEFAULT '',
		status VARCHAR NOT NULL,
		provider_id VARCHAR NOT NULL DEFAULT '',
		error VARCHAR NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS payments (
		id VARCHAR PRIMARY KEY,
		client_id VARCHAR NOT NULL,
		plan VARCHAR NOT NULL,
		billing_interval VARCHAR NOT NULL,
		amount_cents BIGINT NOT NULL,
		currency VARCHAR NOT NULL,
		status VARCHAR NOT NULL,
		checkout_session_id VARCHAR NOT NULL,
		checkout_url VARCHAR NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS stripe_events (
		id VARCHAR PRIMARY KEY,
		event_type VARCHAR NOT NULL,
		processed_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS onboarding_progress (
		user_id VARCHAR NOT NULL,
		kind VARCHAR NOT NULL,
		current_step VARCHAR NOT NULL,
		completed_steps VARCHAR NOT NULL DEFAULT '',
		data VARCHAR NOT NULL DEFAULT '{}',
		completed_at TIMESTAMP,
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (user_id, kind)
	)`,
	`CREATE TABLE IF NOT EXISTS chat_messages (
		id VARCHAR PRIMARY KEY,
		user_id VARCHAR NOT NULL,
		role VARCHAR NOT NULL,
		content VARCHAR NOT NULL,
		provider VARCHAR NOT NULL DEFAULT '',
		model VARCHAR NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS zip_codes (
		zip VARCHAR PRIMARY KEY,
		city VARCHAR NOT NULL,
		state VARCHAR NOT NULL,
		latitude DOUBLE NOT NULL,
		longitude DOUBLE NOT NULL
	)`,
}

func (db *DB) createSchema(ctx context.Context) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	for _, stmt := range schemaStatements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}
