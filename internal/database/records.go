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
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/owldoor/internal/models"
)

// InsertLeadEvent records one webhook delivery.
func (db *DB) InsertLeadEvent(ctx context.Context, e *models.LeadEvent) (err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer db.observe("insert", "lead_events", time.Now(), &err)

	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.ReceivedAt.IsZero() {
		e.ReceivedAt = time.Now().UTC()
	}
	proID := ""
	if e.ProID != nil {
		proID = e.ProID.String()
	}
	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO lead_events (id, source, pro_id, status, error, payload, received_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID.String(), e.Source, proID, e.Status, e.Error, e.Payload, e.ReceivedAt)
	if err != nil {
		return fmt.Errorf("failed to insert lead event: %w", err)
	}
	return nil
}

// ListLeadEvents returns recent webhook deliveries, optionally for one source.
func (db *DB) ListLeadEvents(ctx context.Context, source string, limit int) (events []*models.LeadEvent, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer db.observe("select", "lead_events", time.Now(), &err)

	limit, _ = clampPage(limit, 0)
	query := `SELECT id, source, pro_id, status, error, payload, received_at FROM lead_events`
	args := []interface{}{}
	if source != "" {
		query += ` WHERE source = ?`
		args = append(args, source)
	}
	query += ` ORDER BY received_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list lead events: %w", err)
	}
	defer rows.Close()

	events = make([]*models.LeadEvent, 0)
	for rows.Next() {
		var (
			e         models.LeadEvent
			id, proID string
		)
		if err = rows.Scan(&id, &e.Source, &proID, &e.Status, &e.Error, &e.Payload, &e.ReceivedAt); err != nil {
			return nil, fmt.Errorf("failed to scan lead event: %w", err)
		}
		e.ID, _ = uuid.Parse(id)
		if pid, parseErr := uuid.Parse(proID); parseErr == nil {
			e.ProID = &pid
		}
		events = append(events, &e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating lead events: %w", err)
	}
	return events, nil
}

// InsertNotification logs one outbound SMS or email.
func (db *DB) InsertNotification(ctx context.Context, n *models.Notification) (err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer db.observe("insert", "notifications", time.Now(), &err)

	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO notifications (id, channel, recipient, subject, body, template, status, provider_id, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID.String(), n.Channel, n.Recipient, n.Subject, n.Body, n.Template, n.Status,
		n.ProviderID, n.Error, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// ListNotifications returns recent notifications, optionally for one channel.
func (db *DB) ListNotifications(ctx context.Context, channel string, limit, offset int) (out []*models.Notification, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer db.observe("select", "notifications", time.Now(), &err)

	limit, offset = clampPage(limit, offset)
	query := `SELECT id, channel, recipient, subject, body, template, status, provider_id, error, created_at
		FROM notifications`
	args := []interface{}{}
	if channel != "" {
		query += ` WHERE channel = ?`
		args = append(args, channel)
	}
	query += ` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	out = make([]*models.Notification, 0)
	for rows.Next() {
		var (
			n  models.Notification
			id string
		)
		if err = rows.Scan(&id, &n.Channel, &n.Recipient, &n.Subject, &n.Body, &n.Template, &n.Status,
			&n.ProviderID, &n.Error, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.ID, _ = uuid.Parse(id)
		out = append(out, &n)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}
	return out, nil
}

const paymentColumns = `id, client_id, plan, billing_interval, amount_cents, currency, status,
	checkout_session_id, checkout_url, created_at, updated_at`

func scanPayment(row scanner) (*models.Payment, error) {
	var (
		p            models.Payment
		id, clientID string
	)
	if err := row.Scan(&id, &clientID, &p.Plan, &p.Interval, &p.AmountCents, &p.Currency, &p.Status,
		&p.CheckoutSessionID, &p.CheckoutURL, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.ID, _ = uuid.Parse(id)
	p.ClientID, _ = uuid.Parse(clientID)
	return &p, nil
}

// CreatePayment records a checkout attempt.
func (db *DB) CreatePayment(ctx context.Context, p *models.Payment) (err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer db.observe("insert", "payments", time.Now(), &err)

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	if p.Status == "" {
		p.Status = models.PaymentPending
	}
	_, err = db.conn.ExecContext(ctx, `INSERT INTO payments (`+paymentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID.String(), p.ClientID.String(), p.Plan, p.Interval, p.AmountCents, p.Currency, p.Status,
		p.CheckoutSessionID, p.CheckoutURL, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

// GetPaymentBySession finds the payment created for a checkout session.
func (db *DB) GetPaymentBySession(ctx context.Context, sessionID string) (p *models.Payment, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer db.observe("select", "payments", time.Now(), &err)

	p, err = scanPayment(db.conn.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE checkout_session_id = ?`, sessionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return p, nil
}

// UpdatePaymentStatus sets a payment's status.
func (db *DB) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status string) (err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer db.observe("update", "payments", time.Now(), &err)

	res, err := db.conn.ExecContext(ctx,
		`UPDATE payments SET status = ?, updated_at = ? WHERE id = ?`, status, time.Now().UTC(), id.String())
	if err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}
	return requireAffected(res)
}

// ListPaymentsByClient returns a Client's payments, newest first.
func (db *DB) ListPaymentsByClient(ctx context.Context, clientID uuid.UUID) (out []*models.Payment, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer db.observe("select", "payments", time.Now(), &err)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE client_id = ? ORDER BY created_at DESC`, clientID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	out = make([]*models.Payment, 0)
	for rows.Next() {
		p, scanErr := scanPayment(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", scanErr)
		}
		out = append(out, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payments: %w", err)
	}
	return out, nil
}

// MarkStripeEventProcessed records a webhook event ID. It reports false when
// the event was already recorded.
func (db *DB) MarkStripeEventProcessed(ctx context.Context, eventID, eventType string) (first bool, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer db.observe("insert", "stripe_events", time.Now(), &err)

	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO stripe_events (id, event_type, processed_at) VALUES (?, ?, ?) ON CONFLICT DO NOTHING`,
		eventID, eventType, time.Now().UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to record stripe event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

// ForgetStripeEvent removes a recorded event ID so a failed handler can be
// retried on redelivery.
func (db *DB) ForgetStripeEvent(ctx context.Context, eventID string) (err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer db.observe("delete", "stripe_events", time.Now(), &err)

	if _, err = db.conn.ExecContext(ctx, `DELETE FROM stripe_events WHERE id = ?`, eventID); err != nil {
		return fmt.Errorf("failed to forget stripe event: %w", err)
	}
	return nil
}

// GetOnboarding returns a user's wizard progress.
func (db *DB) GetOnboarding(ctx context.Context, userID, kind string) (p *models.OnboardingProgress, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer db.observe("select", "onboarding_progress", time.Now(), &err)

	var (
		completed, data string
		completedAt     sql.NullTime
	)
	p = &models.OnboardingProgress{UserID: userID, Kind: kind}
	err = db.conn.QueryRowContext(ctx,
		`SELECT current_step, completed_steps, data, completed_at, updated_at
		FROM onboarding_progress WHERE user_id = ? AND kind = ?`, userID, kind).
		Scan(&p.CurrentStep, &completed, &data, &completedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get onboarding progress: %w", err)
	}
	p.Completed = splitList(completed)
	p.Data = make(map[string]interface{})
	if data != "" {
		if err = json.Unmarshal([]byte(data), &p.Data); err != nil {
			return nil, fmt.Errorf("failed to decode onboarding data: %w", err)
		}
	}
	if completedAt.Valid {
		t := completedAt.Time
		p.CompletedAt = &t
	}
	return p, nil
}

// SaveOnboarding upserts a user's wizard progress.
func (db *DB) SaveOnboarding(ctx context.Context, p *models.OnboardingProgress) (err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer db.observe("upsert", "onboarding_progress", time.Now(), &err)

	data, err := json.Marshal(p.Data)
	if err != nil {
		return fmt.Errorf("failed to encode onboarding data: %w", err)
	}
	var completedAt sql.NullTime
	if p.CompletedAt != nil {
		completedAt = sql.NullTime{Time: *p.CompletedAt, Valid: true}
	}
	p.UpdatedAt = time.Now().UTC()

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO onboarding_progress (user_id, kind, current_step, completed_steps, data, completed_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, kind) DO UPDATE SET
			current_step = excluded.current_step,
			completed_steps = excluded.completed_steps,
			data = excluded.data,
			completed_at = excluded.completed_at,
			updated_at = excluded.updated_at`,
		p.UserID, p.Kind, p.CurrentStep, joinList(p.Completed), string(data), completedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save onboarding progress: %w", err)
	}
	return nil
}

// InsertChatMessage appends one message to a user's AI conversation.
func (db *DB) InsertChatMessage(ctx context.Context, m *models.ChatMessage) (err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer db.observe("insert", "chat_messages", time.Now(), &err)

	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO chat_messages (id, user_id, role, content, provider, model, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID.String(), m.UserID, m.Role, m.Content, m.Provider, m.Model, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert chat message: %w", err)
	}
	return nil
}

// ListChatMessages returns the most recent limit messages for a user in
// chronological order.
func (db *DB) ListChatMessages(ctx context.Context, userID string, limit int) (out []*models.ChatMessage, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer db.observe("select", "chat_messages", time.Now(), &err)

	limit, _ = clampPage(limit, 0)
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, role, content, provider, model, created_at FROM (
			SELECT * FROM chat_messages WHERE user_id = ? ORDER BY created_at DESC LIMIT ?
		) ORDER BY created_at ASC`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat messages: %w", err)
	}
	defer rows.Close()

	out = make([]*models.ChatMessage, 0)
	for rows.Next() {
		var (
			m  models.ChatMessage
			id string
		)
		if err = rows.Scan(&id, &m.UserID, &m.Role, &m.Content, &m.Provider, &m.Model, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		m.ID, _ = uuid.Parse(id)
		out = append(out, &m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chat messages: %w", err)
	}
	return out, nil
}
