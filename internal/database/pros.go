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

const proColumns = `id, user_id, pro_type, first_name, last_name, email, phone, brokerage,
	license_number, licensed_states, city, state, zip, latitude, longitude,
	transactions, volume_usd, years_licensed, score, stage, status, source,
	created_at, updated_at`

// DefaultPageSize and MaxPageSize bound list queries.
const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func scanPro(row scanner) (*models.Pro, error) {
	var (
		p        models.Pro
		id       string
		states   string
		lat, lng sql.NullFloat64
	)
	err := row.Scan(&id, &p.UserID, &p.Type, &p.FirstName, &p.LastName, &p.Email, &p.Phone,
		&p.Brokerage, &p.LicenseNumber, &states, &p.City, &p.State, &p.Zip, &lat, &lng,
		&p.Transactions, &p.VolumeUSD, &p.YearsLicensed, &p.Score, &p.Stage, &p.Status,
		&p.Source, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if p.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid pro id %q: %w", id, err)
	}
	p.LicensedStates = splitList(states)
	p.Latitude = floatPtr(lat)
	p.Longitude = floatPtr(lng)
	return &p, nil
}

// CreatePro inserts a Pro, assigning an ID and timestamps when unset.
func (db *DB) CreatePro(ctx context.Context, p *models.Pro) (err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer db.observe("insert", "pros", time.Now(), &err)

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	if p.Stage == "" {
		p.Stage = models.StageNew
	}
	if p.Status == "" {
		p.Status = models.ProStatusActive
	}

	_, err = db.conn.ExecContext(ctx, `INSERT INTO pros (`+proColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID.String(), p.UserID, string(p.Type), p.FirstName, p.LastName, p.Email, p.Phone,
		p.Brokerage, p.LicenseNumber, joinList(p.LicensedStates), p.City, p.State, p.Zip,
		nullFloat(p.Latitude), nullFloat(p.Longitude), p.Transactions, p.VolumeUSD,
		p.YearsLicensed, p.Score, string(p.Stage), string(p.Status), p.Source,
		p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("pro %s: %w", p.ID, ErrConflict)
		}
		return fmt.Errorf("failed to insert pro: %w", err)
	}
	return nil
}

// GetPro returns the Pro with the given ID.
func (db *DB) GetPro(ctx context.Context, id uuid.UUID) (p *models.Pro, err error) {
	return db.getProWhere(ctx, "id = ?", id.String())
}

// GetProByEmail looks a Pro up by case-insensitive email.
func (db *DB) GetProByEmail(ctx context.Context, email string) (*models.Pro, error) {
	if email == "" {
		return nil, ErrNotFound
	}
	return db.getProWhere(ctx, "lower(email) = lower(?)", email)
}

// GetProByPhone looks a Pro up by E.164 phone number.
func (db *DB) GetProByPhone(ctx context.Context, phone string) (*models.Pro, error) {
	if phone == "" {
		return nil, ErrNotFound
	}
	return db.getProWhere(ctx, "phone = ?", phone)
}

// GetProByUserID returns the Pro linked to an auth subject.
func (db *DB) GetProByUserID(ctx context.Context, userID string) (*models.Pro, error) {
	if userID == "" {
		return nil, ErrNotFound
	}
	return db.getProWhere(ctx, "user_id = ?", userID)
}

func (db *DB) getProWhere(ctx context.Context, where string, arg interface{}) (p *models.Pro, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer db.observe("select", "pros", time.Now(), &err)

	row := db.conn.QueryRowContext(ctx,
		`SELECT `+proColumns+` FROM pros WHERE `+where+` ORDER BY created_at LIMIT 1`, arg)
	p, err = scanPro(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pro: %w", err)
	}
	return p, nil
}

// UpdatePro writes every mutable column of p and bumps UpdatedAt.
func (db *DB) UpdatePro(ctx context.Context, p *models.Pro) (err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer db.observe("update", "pros", time.Now(), &err)

	p.UpdatedAt = time.Now().UTC()
	res, err := db.conn.ExecContext(ctx, `UPDATE pros SET
			user_id = ?, pro_type = ?, first_name = ?, last_name = ?, email = ?, phone = ?,
			brokerage = ?, license_number = ?, licensed_states = ?, city = ?, state = ?, zip = ?,
			latitude = ?, longitude = ?, transactions = ?, volume_usd = ?, years_licensed = ?,
			score = ?, stage = ?, status = ?, source = ?, updated_at = ?
		WHERE id = ?`,
		p.UserID, string(p.Type), p.FirstName, p.LastName, p.Email, p.Phone,
		p.Brokerage, p.LicenseNumber, joinList(p.LicensedStates), p.City, p.State, p.Zip,
		nullFloat(p.Latitude), nullFloat(p.Longitude), p.Transactions, p.VolumeUSD, p.YearsLicensed,
		p.Score, string(p.Stage), string(p.Status), p.Source, p.UpdatedAt,
		p.ID.String())
	if err != nil {
		return fmt.Errorf("failed to update pro: %w", err)
	}
	return requireAffected(res)
}

// UpdateProStage overrides the pipeline stage.
func (db *DB) UpdateProStage(ctx context.Context, id uuid.UUID, stage models.Stage) (err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer db.observe("update", "pros", time.Now(), &err)

	res, err := db.conn.ExecContext(ctx,
		`UPDATE pros SET stage = ?, updated_at = ? WHERE id = ?`,
		string(stage), time.Now().UTC(), id.String())
	if err != nil {
		return fmt.Errorf("failed to update pro stage: %w", err)
	}
	return requireAffected(res)
}

// UpdateProStatus sets the recruiting status.
func (db *DB) UpdateProStatus(ctx context.Context, id uuid.UUID, status models.ProStatus) (err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer db.observe("update", "pros", time.Now(), &err)

	res, err := db.conn.ExecContext(ctx,
		`UPDATE pros SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), id.String())
	if err != nil {
		return fmt.Errorf("failed to update pro status: %w", err)
	}
	return requireAffected(res)
}

// DeletePro removes a Pro and its matches.
func (db *DB) DeletePro(ctx context.Context, id uuid.UUID) (err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer db.observe("delete", "pros", time.Now(), &err)

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err = tx.ExecContext(ctx, `DELETE FROM matches WHERE pro_id = ?`, id.String()); err != nil {
		return fmt.Errorf("failed to delete pro matches: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM pros WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete pro: %w", err)
	}
	if err = requireAffected(res); err != nil {
		return err
	}
	return tx.Commit()
}

func buildProFilter(f models.ProFilter) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)
	if f.Type != "" {
		conds = append(conds, "pro_type = ?")
		args = append(args, string(f.Type))
	}
	if f.Stage != "" {
		conds = append(conds, "stage = ?")
		args = append(args, string(f.Stage))
	}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.State != "" {
		conds = append(conds, "state = ?")
		args = append(args, strings.ToUpper(f.State))
	}
	if f.MinScore > 0 {
		conds = append(conds, "score >= ?")
		args = append(args, f.MinScore)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		conds = append(conds, "(lower(first_name || ' ' || last_name) LIKE ? OR lower(email) LIKE ? OR lower(brokerage) LIKE ?)")
		args = append(args, like, like, like)
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ListPros returns one page of Pros matching f, best score first, with the
// total number of matching rows.
func (db *DB) ListPros(ctx context.Context, f models.ProFilter) (pros []*models.Pro, total int, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer db.observe("select", "pros", time.Now(), &err)

	where, args := buildProFilter(f)
	if err = db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM pros`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count pros: %w", err)
	}

	limit, offset := clampPage(f.Limit, f.Offset)
	pageArgs := append(append([]interface{}{}, args...), limit, offset)
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+proColumns+` FROM pros`+where+` ORDER BY score DESC, created_at DESC, id LIMIT ? OFFSET ?`,
		pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list pros: %w", err)
	}
	defer rows.Close()

	pros, err = collectPros(rows)
	if err != nil {
		return nil, 0, err
	}
	return pros, total, nil
}

// ListMatchCandidates returns matchable Pros of the given type.
func (db *DB) ListMatchCandidates(ctx context.Context, proType models.ProType) (pros []*models.Pro, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer db.observe("select", "pros", time.Now(), &err)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+proColumns+` FROM pros WHERE pro_type = ? AND status IN (?, ?)`,
		string(proType), string(models.ProStatusActive), string(models.ProStatusContacted))
	if err != nil {
		return nil, fmt.Errorf("failed to list match candidates: %w", err)
	}
	defer rows.Close()
	return collectPros(rows)
}

func collectPros(rows *sql.Rows) ([]*models.Pro, error) {
	pros := make([]*models.Pro, 0)
	for rows.Next() {
		p, err := scanPro(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pro: %w", err)
		}
		pros = append(pros, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pros: %w", err)
	}
	return pros, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
