// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package matching

import (
	"context"
	"time"

	"github.com/tomtom215/owldoor/internal/logging"
)

// Sweeper periodically runs the engine for every active client.
type Sweeper struct {
	engine   *Engine
	interval time.Duration
}

// NewSweeper creates a sweeper. Intervals under a minute are raised to one minute.
func NewSweeper(engine *Engine, interval time.Duration) *Sweeper {
	if interval < time.Minute {
		interval = time.Minute
	}
	return &Sweeper{engine: engine, interval: interval}
}

// RunWithContext sweeps on every tick until ctx is canceled.
func (s *Sweeper) RunWithContext(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logging.Info().Dur("interval", s.interval).Msg("Match sweep started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	start := time.Now()
	created, err := s.engine.RunAll(ctx)
	if err != nil && ctx.Err() == nil {
		logging.Error().Err(err).Msg("Match sweep failed")
		return
	}
	logging.Info().Int("created", created).Dur("took", time.Since(start)).Msg("Match sweep finished")
}
