// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package models

import (
	"time"

	"github.com/google/uuid"
)

// MatchStatus is the state of a Client/Pro pairing.
type MatchStatus string

const (
	MatchStatusPending      MatchStatus = "pending"
	MatchStatusContacted    MatchStatus = "contacted"
	MatchStatusInterviewing MatchStatus = "interviewing"
	MatchStatusHired        MatchStatus = "hired"
	MatchStatusDeclined     MatchStatus = "declined"
)

var matchTransitions = map[MatchStatus][]MatchStatus{
	MatchStatusPending:      {MatchStatusContacted, MatchStatusDeclined},
	MatchStatusContacted:    {MatchStatusInterviewing, MatchStatusDeclined},
	MatchStatusInterviewing: {MatchStatusHired, MatchStatusDeclined},
}

// CanTransition reports whether a match may move from s to next.
// hired and declined are terminal.
func (s MatchStatus) CanTransition(next MatchStatus) bool {
	for _, allowed := range matchTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Match pairs a Client with a Pro.
type Match struct {
	ID            uuid.UUID   `json:"id"`
	ClientID      uuid.UUID   `json:"client_id"`
	ProID         uuid.UUID   `json:"pro_id"`
	Score         int         `json:"score"`
	DistanceMiles float64     `json:"distance_miles"`
	Status        MatchStatus `json:"status"`
	Notes         string      `json:"notes,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// MatchWithPro is a match joined with its Pro for client-facing listings.
type MatchWithPro struct {
	Match
	Pro *Pro `json:"pro"`
}
