// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tomtom215/owldoor/internal/models"
)

// GetDashboardStats aggregates the admin dashboard counters.
func (db *DB) GetDashboardStats(ctx context.Context) (stats *models.DashboardStats, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer db.observe("select", "dashboard", time.Now(), &err)

	stats = &models.DashboardStats{}

	if stats.ProsByStage, err = db.groupCount(ctx, `SELECT stage, COUNT(*) FROM pros GROUP BY stage`); err != nil {
		return nil, err
	}
	if stats.ProsByType, err = db.groupCount(ctx, `SELECT pro_type, COUNT(*) FROM pros GROUP BY pro_type`); err != nil {
		return nil, err
	}
	if stats.ClientsByStatus, err = db.groupCount(ctx, `SELECT status, COUNT(*) FROM clients GROUP BY status`); err != nil {
		return nil, err
	}
	if stats.MatchesByStatus, err = db.groupCount(ctx, `SELECT status, COUNT(*) FROM matches GROUP BY status`); err != nil {
		return nil, err
	}
	for _, n := range stats.ProsByType {
		stats.TotalPros += n
	}

	var avg sql.NullFloat64
	if err = db.conn.QueryRowContext(ctx, `SELECT AVG(score) FROM pros`).Scan(&avg); err != nil {
		return nil, fmt.Errorf("failed to average scores: %w", err)
	}
	stats.AverageScore = avg.Float64

	if err = db.conn.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM payments WHERE status = ?`, models.PaymentCompleted).
		Scan(&stats.RevenueCents); err != nil {
		return nil, fmt.Errorf("failed to sum revenue: %w", err)
	}

	if err = db.conn.QueryRowContext(ctx, `SELECT
			COUNT(*) FILTER (WHERE status = ?),
			COUNT(*) FILTER (WHERE status = ?)
		FROM notifications`, models.NotificationSent, models.NotificationFailed).
		Scan(&stats.NotificationsSent, &stats.NotificationsFailed); err != nil {
		return nil, fmt.Errorf("failed to count notifications: %w", err)
	}

	if err = db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM lead_events WHERE received_at >= ?`, time.Now().UTC().AddDate(0, 0, -30)).
		Scan(&stats.LeadsLast30Days); err != nil {
		return nil, fmt.Errorf("failed to count leads: %w", err)
	}

	return stats, nil
}

func (db *DB) groupCount(ctx context.Context, query string) (map[string]int, error) {
	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to run group count: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var (
			key string
			n   int
		)
		if err := rows.Scan(&key, &n); err != nil {
			return nil, fmt.Errorf("failed to scan group count: %w", err)
		}
		out[key] = n
	}
	return out, rows.Err()
}
