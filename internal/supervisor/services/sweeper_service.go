// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package services

import (
	"context"
)

// ContextRunner is satisfied by *matching.Sweeper.
type ContextRunner interface {
	RunWithContext(ctx context.Context) error
}

// MatchSweeperService runs the periodic match sweep under the supervisor.
type MatchSweeperService struct {
	sweeper ContextRunner
	name    string
}

// NewMatchSweeperService wraps sweeper.
func NewMatchSweeperService(sweeper ContextRunner) *MatchSweeperService {
	return &MatchSweeperService{sweeper: sweeper, name: "match-sweeper"}
}

// Serve implements suture.Service.
func (s *MatchSweeperService) Serve(ctx context.Context) error {
	return s.sweeper.RunWithContext(ctx)
}

func (s *MatchSweeperService) String() string {
	return s.name
}
