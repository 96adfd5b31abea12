// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package audit

import (
	"context"
	"time"

	"github.com/goccy/go-json"
)

// EventType categorizes audit events.
type EventType string

const (
	EventProStageOverride   EventType = "pro.stage_override"
	EventProStatusChanged   EventType = "pro.status_changed"
	EventProUpdated         EventType = "pro.updated"
	EventProDeleted         EventType = "pro.deleted"
	EventMatchStatusChanged EventType = "match.status_changed"
	EventMatchRun           EventType = "match.run"
	EventClientPlanChanged  EventType = "client.plan_changed"
	EventClientUpdated      EventType = "client.updated"
	EventNotificationSent   EventType = "notification.manual_send"
)

// Outcome indicates whether an action succeeded or failed.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Event is one recorded action.
type Event struct {
	ID          string          `json:"id"`
	Timestamp   time.Time       `json:"timestamp"`
	Type        EventType       `json:"type"`
	Outcome     Outcome         `json:"outcome"`
	Actor       Actor           `json:"actor"`
	Target      Target          `json:"target"`
	Source      Source          `json:"source"`
	Description string          `json:"description"`
	Metadata    json.RawMessage `json:"metadata,omitempty" swaggertype:"object"`
	RequestID   string          `json:"request_id,omitempty"`
}

// Actor is the user who performed an action. System actions use SystemActor.
type Actor struct {
	ID    string   `json:"id"`
	Email string   `json:"email,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

// Target is the record an action changed.
type Target struct {
	Type string `json:"type"` // pro, client, match
	ID   string `json:"id"`
}

// Source is where the request came from.
type Source struct {
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent,omitempty"`
}

// Store persists audit events.
type Store interface {
	Save(ctx context.Context, event *Event) error
	Query(ctx context.Context, filter QueryFilter) ([]Event, error)
	Count(ctx context.Context, filter QueryFilter) (int64, error)
	Delete(ctx context.Context, olderThan time.Time) (int64, error)
}

// QueryFilter narrows an audit query. Zero fields match everything.
type QueryFilter struct {
	Types      []EventType `json:"types,omitempty"`
	ActorID    string      `json:"actor_id,omitempty"`
	TargetType string      `json:"target_type,omitempty"`
	TargetID   string      `json:"target_id,omitempty"`
	Since      *time.Time  `json:"since,omitempty"`
	Until      *time.Time  `json:"until,omitempty"`
	Limit      int         `json:"limit,omitempty"`
	Offset     int         `json:"offset,omitempty"`
}

const (
	defaultQueryLimit = 100
	maxQueryLimit     = 1000
)

// DefaultQueryFilter returns the newest page of events.
func DefaultQueryFilter() QueryFilter {
	return QueryFilter{Limit: defaultQueryLimit}
}

func (f QueryFilter) page() (limit, offset int) {
	limit, offset = f.Limit, f.Offset
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	if limit > maxQueryLimit {
		limit = maxQueryLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
