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

const matchColumns = `id, client_id, pro_id, score, distance_miles, status, notes, created_at, updated_at`

func scanMatch(row scanner) (*models.Match, error) {
	var (
		m                   models.Match
		id, clientID, proID string
	)
	if err := row.Scan(&id, &clientID, &proID, &m.Score, &m.DistanceMiles, &m.Status, &m.Notes,
		&m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	if m.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid match id %q: %w", id, err)
	}
	if m.ClientID, err = uuid.Parse(clientID); err != nil {
		return nil, fmt.Errorf("invalid client id %q: %w", clientID, err)
	}
	if m.ProID, err = uuid.Parse(proID); err != nil {
		return nil, fmt.Errorf("invalid pro id %q: %w", proID, err)
	}
	return &m, nil
}

// CreateMatch inserts a Match. A second match for the same client and pro
// returns ErrConflict.
func (db *DB) CreateMatch(ctx context.Context, m *models.Match) (err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer db.observe("insert", "matches", time.Now(), &err)

	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
	if m.Status == "" {
		m.Status = models.MatchStatusPending
	}

	res, err := db.conn.ExecContext(ctx, `INSERT INTO matches (`+matchColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING`,
		m.ID.String(), m.ClientID.String(), m.ProID.String(), m.Score, m.DistanceMiles,
		string(m.Status), m.Notes, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("match %s/%s: %w", m.ClientID, m.ProID, ErrConflict)
		}
		return fmt.Errorf("failed to insert match: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("match %s/%s: %w", m.ClientID, m.ProID, ErrConflict)
	}
	return nil
}

// GetMatch returns the Match with the given ID.
func (db *DB) GetMatch(ctx context.Context, id uuid.UUID) (m *models.Match, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer db.observe("select", "matches", time.Now(), &err)

	m, err = scanMatch(db.conn.QueryRowContext(ctx,
		`SELECT `+matchColumns+` FROM matches WHERE id = ?`, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	return m, nil
}

// ListMatchesByClient returns a Client's matches with their Pros, best score first.
func (db *DB) ListMatchesByClient(ctx context.Context, clientID uuid.UUID, status models.MatchStatus) (out []*models.MatchWithPro, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer db.observe("select", "matches", time.Now(), &err)

	query := `SELECT ` + prefixed("m", matchColumns) + `, ` + prefixed("p", proColumns) + `
		FROM matches m JOIN pros p ON p.id = m.pro_id
		WHERE m.client_id = ?`
	args := []interface{}{clientID.String()}
	if status != "" {
		query += ` AND m.status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY m.score DESC, m.distance_miles ASC, m.id`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	out = make([]*models.MatchWithPro, 0)
	for rows.Next() {
		mp, scanErr := scanMatchWithPro(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan match: %w", scanErr)
		}
		out = append(out, mp)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating matches: %w", err)
	}
	return out, nil
}

// ListMatchesByPro returns every match involving a Pro, newest first.
func (db *DB) ListMatchesByPro(ctx context.Context, proID uuid.UUID) (out []*models.Match, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer db.observe("select", "matches", time.Now(), &err)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+matchColumns+` FROM matches WHERE pro_id = ? ORDER BY created_at DESC, id`, proID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	out = make([]*models.Match, 0)
	for rows.Next() {
		m, scanErr := scanMatch(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan match: %w", scanErr)
		}
		out = append(out, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating matches: %w", err)
	}
	return out, nil
}

// MatchedProIDs returns the set of Pros already matched to a Client.
func (db *DB) MatchedProIDs(ctx context.Context, clientID uuid.UUID) (ids map[uuid.UUID]struct{}, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer db.observe("select", "matches", time.Now(), &err)

	rows, err := db.conn.QueryContext(ctx, `SELECT pro_id FROM matches WHERE client_id = ?`, clientID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list matched pros: %w", err)
	}
	defer rows.Close()

	ids = make(map[uuid.UUID]struct{})
	for rows.Next() {
		var s string
		if err = rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan pro id: %w", err)
		}
		if id, parseErr := uuid.Parse(s); parseErr == nil {
			ids[id] = struct{}{}
		}
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating matched pros: %w", err)
	}
	return ids, nil
}

// CountMatchesSince counts matches created for a Client at or after since.
func (db *DB) CountMatchesSince(ctx context.Context, clientID uuid.UUID, since time.Time) (n int, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer db.observe("select", "matches", time.Now(), &err)

	err = db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM matches WHERE client_id = ? AND created_at >= ?`,
		clientID.String(), since.UTC()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count matches: %w", err)
	}
	return n, nil
}

// UpdateMatchStatus writes a new status and notes. Transition rules are the
// caller's responsibility.
func (db *DB) UpdateMatchStatus(ctx context.Context, id uuid.UUID, status models.MatchStatus, notes string) (err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer db.observe("update", "matches", time.Now(), &err)

	res, err := db.conn.ExecContext(ctx,
		`UPDATE matches SET status = ?, notes = ?, updated_at = ? WHERE id = ?`,
		string(status), notes, time.Now().UTC(), id.String())
	if err != nil {
		return fmt.Errorf("failed to update match status: %w", err)
	}
	return requireAffected(res)
}

func scanMatchWithPro(rows *sql.Rows) (*models.MatchWithPro, error) {
	var (
		m             models.Match
		p             models.Pro
		mID, cID, pID string
		proID, states string
		lat, lng      sql.NullFloat64
	)
	err := rows.Scan(&mID, &cID, &pID, &m.Score, &m.DistanceMiles, &m.Status, &m.Notes, &m.CreatedAt, &m.UpdatedAt,
		&proID, &p.UserID, &p.Type, &p.FirstName, &p.LastName, &p.Email, &p.Phone,
		&p.Brokerage, &p.LicenseNumber, &states, &p.City, &p.State, &p.Zip, &lat, &lng,
		&p.Transactions, &p.VolumeUSD, &p.YearsLicensed, &p.Score, &p.Stage, &p.Status,
		&p.Source, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	for _, pair := range []struct {
		dst *uuid.UUID
		src string
	}{{&m.ID, mID}, {&m.ClientID, cID}, {&m.ProID, pID}, {&p.ID, proID}} {
		if *pair.dst, err = uuid.Parse(pair.src); err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", pair.src, err)
		}
	}
	p.LicensedStates = splitList(states)
	p.Latitude = floatPtr(lat)
	p.Longitude = floatPtr(lng)
	return &models.MatchWithPro{Match: m, Pro: &p}, nil
}

// prefixed qualifies a column list with a table alias.
func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, c := range parts {
		parts[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(parts, ", ")
}
