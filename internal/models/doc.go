// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

// Package models defines the OwlDoor domain records shared by the store,
// the business services and the HTTP API.
//
// A Pro is a real estate agent or mortgage loan officer being recruited. A
// Client is a brokerage, team or lender hiring Pros. The match engine pairs
// them into Match records whose status follows a small state machine
// (see MatchStatus.CanTransition).
package models
