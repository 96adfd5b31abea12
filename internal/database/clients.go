// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/owldoor/internal/models"
)

const clientColumns = `id, owner_user_id, company_name, contact_name, email, phone, pro_type,
	market_address, latitude, longitude, radius_miles, min_score, min_transactions, min_years,
	licensed_states, plan, leads_per_month, status, subscription_id, created_at, updated_at`

func scanClient(row scanner) (*models.Client, error) {
	var (
		c        models.Client
		id       string
		states   string
		lat, lng sql.NullFloat64
	)
	err := row.Scan(&id, &c.OwnerUserID, &c.CompanyName, &c.ContactName, &c.Email, &c.Phone,
		&c.ProType, &c.MarketAddress, &lat, &lng, &c.RadiusMiles, &c.MinScore, &c.MinTransactions,
		&c.MinYears, &states, &c.Plan, &c.LeadsPerMonth, &c.Status, &c.SubscriptionID,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if c.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid client id %q: %w", id, err)
	}
	c.LicensedStates = splitList(states)
	c.Latitude = floatPtr(lat)
	c.Longitude = floatPtr(lng)
	return &c, nil
}

// CreateClient inserts a Client in pending status unless a status is set.
func (db *DB) CreateClient(ctx context.Context, c *models.Client) (err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer db.observe("insert", "clients", time.Now(), &err)

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	if c.Status == "" {
		c.Status = models.ClientStatusPending
	}

	_, err = db.conn.ExecContext(ctx, `INSERT INTO clients (`+clientColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID.String(), c.OwnerUserID, c.CompanyName, c.ContactName, c.Email, c.Phone,
		string(c.ProType), c.MarketAddress, nullFloat(c.Latitude), nullFloat(c.Longitude),
		c.RadiusMiles, c.MinScore, c.MinTransactions, c.MinYears, joinList(c.LicensedStates),
		c.Plan, c.LeadsPerMonth, string(c.Status), c.SubscriptionID, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("client %s: %w", c.ID, ErrConflict)
		}
		return fmt.Errorf("failed to insert client: %w", err)
	}
	return nil
}

// GetClient returns the Client with the given ID.
func (db *DB) GetClient(ctx context.Context, id uuid.UUID) (*models.Client, error) {
	return db.getClientWhere(ctx, "id = ?", id.String())
}

// GetClientByOwner returns the first Client owned by an auth subject.
func (db *DB) GetClientByOwner(ctx context.Context, userID string) (*models.Client, error) {
	if userID == "" {
		return nil, ErrNotFound
	}
	return db.getClientWhere(ctx, "owner_user_id = ?", userID)
}

// GetClientBySubscription resolves a Stripe subscription to its Client.
func (db *DB) GetClientBySubscription(ctx context.Context, subscriptionID string) (*models.Client, error) {
	if subscriptionID == "" {
		return nil, ErrNotFound
	}
	return db.getClientWhere(ctx, "subscription_id = ?", subscriptionID)
}

func (db *DB) getClientWhere(ctx context.Context, where string, arg interface{}) (c *models.Client, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer db.observe("select", "clients", time.Now(), &err)

	row := db.conn.QueryRowContext(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE `+where+` ORDER BY created_at LIMIT 1`, arg)
	c, err = scanClient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return c, nil
}

// UpdateClient writes the Client's profile and hiring criteria.
func (db *DB) UpdateClient(ctx context.Context, c *models.Client) (err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer db.observe("update", "clients", time.Now(), &err)

	c.UpdatedAt = time.Now().UTC()
	res, err := db.conn.ExecContext(ctx, `UPDATE clients SET
			company_name = ?, contact_name = ?, email = ?, phone = ?, pro_type = ?,
			market_address = ?, latitude = ?, longitude = ?, radius_miles = ?, min_score = ?,
			min_transactions = ?, min_years = ?, licensed_states = ?, plan = ?, leads_per_month = ?,
			status = ?, subscription_id = ?, updated_at = ?
		WHERE id = ?`,
		c.CompanyName, c.ContactName, c.Email, c.Phone, string(c.ProType),
		c.MarketAddress, nullFloat(c.Latitude), nullFloat(c.Longitude), c.RadiusMiles, c.MinScore,
		c.MinTransactions, c.MinYears, joinList(c.LicensedStates), c.Plan, c.LeadsPerMonth,
		string(c.Status), c.SubscriptionID, c.UpdatedAt,
		c.ID.String())
	if err != nil {
		return fmt.Errorf("failed to update client: %w", err)
	}
	return requireAffected(res)
}

// SetClientPlan records a subscription outcome: plan, monthly lead allowance,
// status and the billing provider's subscription ID. Empty plan or
// subscription values leave the stored ones unchanged.
func (db *DB) SetClientPlan(ctx context.Context, id uuid.UUID, plan string, leadsPerMonth int,
	status models.ClientStatus, subscriptionID string) (err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer db.observe("update", "clients", time.Now(), &err)

	sets := []string{"status = ?", "updated_at = ?"}
	args := []interface{}{string(status), time.Now().UTC()}
	if plan != "" {
		sets = append(sets, "plan = ?", "leads_per_month = ?")
		args = append(args, plan, leadsPerMonth)
	}
	if subscriptionID != "" {
		sets = append(sets, "subscription_id = ?")
		args = append(args, subscriptionID)
	}
	args = append(args, id.String())

	res, err := db.conn.ExecContext(ctx,
		`UPDATE clients SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("failed to set client plan: %w", err)
	}
	return requireAffected(res)
}

// ListClients returns Clients, newest first, optionally filtered by status.
func (db *DB) ListClients(ctx context.Context, status models.ClientStatus, limit, offset int) (clients []*models.Client, total int, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer db.observe("select", "clients", time.Now(), &err)

	where := ""
	var args []interface{}
	if status != "" {
		where = " WHERE status = ?"
		args = append(args, string(status))
	}
	if err = db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM clients`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count clients: %w", err)
	}

	limit, offset = clampPage(limit, offset)
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+clientColumns+` FROM clients`+where+` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	clients = make([]*models.Client, 0)
	for rows.Next() {
		c, scanErr := scanClient(rows)
		if scanErr != nil {
			return nil, 0, fmt.Errorf("failed to scan client: %w", scanErr)
		}
		clients = append(clients, c)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating clients: %w", err)
	}
	return clients, total, nil
}

// ListActiveClientIDs returns the IDs of every active Client, used by the match sweep.
func (db *DB) ListActiveClientIDs(ctx context.Context) (ids []uuid.UUID, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer db.observe("select", "clients", time.Now(), &err)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id FROM clients WHERE status = ? ORDER BY created_at`, string(models.ClientStatusActive))
	if err != nil {
		return nil, fmt.Errorf("failed to list active clients: %w", err)
	}
	defer rows.Close()

	ids = make([]uuid.UUID, 0)
	for rows.Next() {
		var s string
		if err = rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan client id: %w", err)
		}
		id, parseErr := uuid.Parse(s)
		if parseErr != nil {
			return nil, fmt.Errorf("invalid client id %q: %w", s, parseErr)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating clients: %w", err)
	}
	return ids, nil
}
