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
	"os"
	"strings"
	"time"
)

// ZipCode is one row of the local geocoding table.
type ZipCode struct {
	Zip       string  `json:"zip"`
	City      string  `json:"city"`
	State     string  `json:"state"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// UpsertZipCode inserts or replaces a ZIP code row.
func (db *DB) UpsertZipCode(ctx context.Context, z ZipCode) (err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer db.observe("upsert", "zip_codes", time.Now(), &err)

	_, err = db.conn.ExecContext(ctx,
		`INSERT OR REPLACE INTO zip_codes (zip, city, state, latitude, longitude) VALUES (?, ?, ?, ?, ?)`,
		z.Zip, z.City, strings.ToUpper(z.State), z.Latitude, z.Longitude)
	if err != nil {
		return fmt.Errorf("failed to upsert zip code: %w", err)
	}
	return nil
}

// LookupZip returns the row for a 5-digit ZIP.
func (db *DB) LookupZip(ctx context.Context, zip string) (*ZipCode, error) {
	return db.lookupZipWhere(ctx, "zip = ?", zip)
}

// LookupCity returns the first ZIP row for a city and state, case-insensitively.
func (db *DB) LookupCity(ctx context.Context, city, state string) (*ZipCode, error) {
	return db.lookupZipWhere(ctx, "lower(city) = lower(?) AND state = upper(?)", city, state)
}

func (db *DB) lookupZipWhere(ctx context.Context, where string, args ...interface{}) (z *ZipCode, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer db.observe("select", "zip_codes", time.Now(), &err)

	z = &ZipCode{}
	err = db.conn.QueryRowContext(ctx,
		`SELECT zip, city, state, latitude, longitude FROM zip_codes WHERE `+where+` ORDER BY zip LIMIT 1`, args...).
		Scan(&z.Zip, &z.City, &z.State, &z.Latitude, &z.Longitude)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up zip code: %w", err)
	}
	return z, nil
}

// CountZipCodes returns the size of the local geocoding table.
func (db *DB) CountZipCodes(ctx context.Context) (n int, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if err = db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM zip_codes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count zip codes: %w", err)
	}
	return n, nil
}

// SeedZipCodes loads a CSV with header zip,city,state,latitude,longitude into
// the zip_codes table using DuckDB's CSV reader. Existing rows are replaced.
// It returns the number of rows in the table afterwards.
func (db *DB) SeedZipCodes(ctx context.Context, path string) (n int, err error) {
	if _, statErr := os.Stat(path); statErr != nil {
		return 0, fmt.Errorf("zip seed file: %w", statErr)
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer db.observe("upsert", "zip_codes", time.Now(), &err)

	_, err = db.conn.ExecContext(ctx, `INSERT OR REPLACE INTO zip_codes (zip, city, state, latitude, longitude)
		SELECT lpad(CAST(zip AS VARCHAR), 5, '0'), city, upper(state), CAST(latitude AS DOUBLE), CAST(longitude AS DOUBLE)
		FROM read_csv('`+strings.ReplaceAll(path, "'", "''")+`', header = true, all_varchar = true)
		WHERE zip IS NOT NULL AND latitude IS NOT NULL AND longitude IS NOT NULL`)
	if err != nil {
		return 0, fmt.Errorf("failed to seed zip codes from %s: %w", path, err)
	}
	return db.CountZipCodes(ctx)
}
