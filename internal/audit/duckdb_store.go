// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/owldoor/internal/logging"
	"github.com/tomtom215/owldoor/internal/metrics"
)

// DuckDBStore implements Store on the application's DuckDB connection.
type DuckDBStore struct {
	db *sql.DB
}

// NewDuckDBStore creates a store. Call CreateTable before first use.
func NewDuckDBStore(db *sql.DB) *DuckDBStore {
	return &DuckDBStore{db: db}
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS audit_events (
		id VARCHAR PRIMARY KEY,
		timestamp TIMESTAMP NOT NULL,
		type VARCHAR NOT NULL,
		outcome VARCHAR NOT NULL,
		actor_id VARCHAR NOT NULL,
		actor_email VARCHAR,
		actor_roles VARCHAR,
		target_type VARCHAR NOT NULL,
		target_id VARCHAR NOT NULL,
		source_ip VARCHAR,
		source_user_agent VARCHAR,
		description VARCHAR NOT NULL,
		metadata VARCHAR,
		request_id VARCHAR
	)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_events(timestamp)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_type ON audit_events(type)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_actor ON audit_events(actor_id)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_target ON audit_events(target_type, target_id)`,
}

// CreateTable creates the audit_events table and its indexes if missing.
func (s *DuckDBStore) CreateTable(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create audit schema: %w", err)
		}
	}
	logging.Debug().Msg("Audit events table created/verified")
	return nil
}

// Save inserts one event.
func (s *DuckDBStore) Save(ctx context.Context, event *Event) (err error) {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	defer observe("insert", time.Now(), &err)

	var metadata *string
	if len(event.Metadata) > 0 {
		m := string(event.Metadata)
		metadata = &m
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_events (
			id, timestamp, type, outcome,
			actor_id, actor_email, actor_roles,
			target_type, target_id,
			source_ip, source_user_agent,
			description, metadata, request_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.Timestamp.UTC(), string(event.Type), string(event.Outcome),
		event.Actor.ID, event.Actor.Email, strings.Join(event.Actor.Roles, ","),
		event.Target.Type, event.Target.ID,
		event.Source.IPAddress, event.Source.UserAgent,
		event.Description, metadata, event.RequestID,
	)
	if err != nil {
		return fmt.Errorf("failed to save audit event: %w", err)
	}
	return nil
}

// Query returns matching events, newest first.
func (s *DuckDBStore) Query(ctx context.Context, filter QueryFilter) (events []Event, err error) {
	defer observe("select", time.Now(), &err)

	where, args := buildWhere(filter)
	limit, offset := filter.page()
	query := `SELECT id, timestamp, type, outcome, actor_id, actor_email, actor_roles,
		target_type, target_id, source_ip, source_user_agent, description, metadata, request_id
		FROM audit_events` + where + ` ORDER BY timestamp DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer rows.Close()

	events = []Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit events: %w", err)
	}
	return events, nil
}

// Count returns the number of events matching filter, ignoring paging.
func (s *DuckDBStore) Count(ctx context.Context, filter QueryFilter) (n int64, err error) {
	defer observe("count", time.Now(), &err)

	where, args := buildWhere(filter)
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_events"+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count audit events: %w", err)
	}
	return n, nil
}

// Delete removes events older than the given time.
func (s *DuckDBStore) Delete(ctx context.Context, olderThan time.Time) (n int64, err error) {
	defer observe("delete", time.Now(), &err)

	res, err := s.db.ExecContext(ctx, `DELETE FROM audit_events WHERE timestamp < ?`, olderThan.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete old audit events: %w", err)
	}
	n, err = res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get deleted count: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row rowScanner) (*Event, error) {
	var (
		e                                     Event
		typ, outcome                          string
		email, roles, ip, ua, reqID, metadata sql.NullString
	)
	if err := row.Scan(&e.ID, &e.Timestamp, &typ, &outcome, &e.Actor.ID, &email, &roles,
		&e.Target.Type, &e.Target.ID, &ip, &ua, &e.Description, &metadata, &reqID); err != nil {
		return nil, err
	}
	e.Type = EventType(typ)
	e.Outcome = Outcome(outcome)
	e.Actor.Email = email.String
	if roles.String != "" {
		e.Actor.Roles = strings.Split(roles.String, ",")
	}
	e.Source = Source{IPAddress: ip.String, UserAgent: ua.String}
	e.RequestID = reqID.String
	if metadata.Valid && metadata.String != "" {
		e.Metadata = json.RawMessage(metadata.String)
	}
	e.Timestamp = e.Timestamp.UTC()
	return &e, nil
}

func buildWhere(f QueryFilter) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)
	if len(f.Types) > 0 {
		placeholders := make([]string, len(f.Types))
		for i, t := range f.Types {
			placeholders[i] = "?"
			args = append(args, string(t))
		}
		conds = append(conds, "type IN ("+strings.Join(placeholders, ",")+")")
	}
	if f.ActorID != "" {
		conds = append(conds, "actor_id = ?")
		args = append(args, f.ActorID)
	}
	if f.TargetType != "" {
		conds = append(conds, "target_type = ?")
		args = append(args, f.TargetType)
	}
	if f.TargetID != "" {
		conds = append(conds, "target_id = ?")
		args = append(args, f.TargetID)
	}
	if f.Since != nil {
		conds = append(conds, "timestamp >= ?")
		args = append(args, f.Since.UTC())
	}
	if f.Until != nil {
		conds = append(conds, "timestamp < ?")
		args = append(args, f.Until.UTC())
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func observe(operation string, start time.Time, errp *error) {
	metrics.RecordDBQuery(operation, "audit_events", time.Since(start), *errp)
}
