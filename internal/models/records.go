// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package models

import (
	"time"

	"github.com/google/uuid"
)

// Lead event outcomes.
const (
	LeadStatusCreated  = "created"
	LeadStatusMerged   = "merged"
	LeadStatusRejected = "rejected"
)

// LeadEvent logs one inbound lead webhook call.
type LeadEvent struct {
	ID         uuid.UUID  `json:"id"`
	Source     string     `json:"source"`
	ProID      *uuid.UUID `json:"pro_id,omitempty"`
	Status     string     `json:"status"`
	Error      string     `json:"error,omitempty"`
	Payload    string     `json:"payload"`
	ReceivedAt time.Time  `json:"received_at"`
}

// Notification channels and outcomes.
const (
	ChannelSMS   = "sms"
	ChannelEmail = "email"

	NotificationSent   = "sent"
	NotificationFailed = "failed"
)

// Notification records one outbound SMS or email.
type Notification struct {
	ID         uuid.UUID `json:"id"`
	Channel    string    `json:"channel"`
	Recipient  string    `json:"recipient"`
	Subject    string    `json:"subject,omitempty"`
	Body       string    `json:"body"`
	Template   string    `json:"template,omitempty"`
	Status     string    `json:"status"`
	ProviderID string    `json:"provider_id,omitempty"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Payment statuses.
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
)

// Payment tracks a checkout session and its outcome.
type Payment struct {
	ID                uuid.UUID `json:"id"`
	ClientID          uuid.UUID `json:"client_id"`
	Plan              string    `json:"plan"`
	Interval          string    `json:"interval"`
	AmountCents       int64     `json:"amount_cents"`
	Currency          string    `json:"currency"`
	Status            string    `json:"status"`
	CheckoutSessionID string    `json:"checkout_session_id"`
	CheckoutURL       string    `json:"checkout_url,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// OnboardingProgress is a user's position in an onboarding wizard.
type OnboardingProgress struct {
	UserID      string                 `json:"user_id"`
	Kind        string                 `json:"kind"` // pro or client
	CurrentStep string                 `json:"current_step"`
	Completed   []string               `json:"completed_steps"`
	Data        map[string]interface{} `json:"data"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// IsComplete reports whether the wizard has been finished.
func (p *OnboardingProgress) IsComplete() bool {
	return p.CompletedAt != nil
}

// ChatMessage is one persisted turn of an AI conversation.
type ChatMessage struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Provider  string    `json:"provider,omitempty"`
	Model     string    `json:"model,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DashboardStats aggregates pipeline and revenue numbers for admins.
type DashboardStats struct {
	TotalPros           int            `json:"total_pros"`
	ProsByStage         map[string]int `json:"pros_by_stage"`
	ProsByType          map[string]int `json:"pros_by_type"`
	ClientsByStatus     map[string]int `json:"clients_by_status"`
	MatchesByStatus     map[string]int `json:"matches_by_status"`
	RevenueCents        int64          `json:"revenue_cents"`
	NotificationsSent   int            `json:"notifications_sent"`
	NotificationsFailed int            `json:"notifications_failed"`
	LeadsLast30Days     int            `json:"leads_last_30_days"`
	AverageScore        float64        `json:"average_score"`
}
