// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package matching

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/owldoor/internal/config"
	"github.com/tomtom215/owldoor/internal/database"
	"github.com/tomtom215/owldoor/internal/geocode"
	"github.com/tomtom215/owldoor/internal/logging"
	"github.com/tomtom215/owldoor/internal/metrics"
	"github.com/tomtom215/owldoor/internal/models"
)

var (
	// ErrNoMarket is returned when a client's market address cannot be located.
	ErrNoMarket = errors.New("client market could not be located")

	// ErrInvalidTransition is returned for a match status change the state
	// machine does not allow.
	ErrInvalidTransition = errors.New("invalid match status transition")
)

// Store is the persistence the engine needs. Satisfied by *database.DB.
type Store interface {
	GetClient(ctx context.Context, id uuid.UUID) (*models.Client, error)
	UpdateClient(ctx context.Context, c *models.Client) error
	ListActiveClientIDs(ctx context.Context) ([]uuid.UUID, error)
	ListMatchCandidates(ctx context.Context, proType models.ProType) ([]*models.Pro, error)
	UpdatePro(ctx context.Context, p *models.Pro) error
	UpdateProStatus(ctx context.Context, id uuid.UUID, status models.ProStatus) error
	MatchedProIDs(ctx context.Context, clientID uuid.UUID) (map[uuid.UUID]struct{}, error)
	CountMatchesSince(ctx context.Context, clientID uuid.UUID, since time.Time) (int, error)
	CreateMatch(ctx context.Context, m *models.Match) error
	GetMatch(ctx context.Context, id uuid.UUID) (*models.Match, error)
	UpdateMatchStatus(ctx context.Context, id uuid.UUID, status models.MatchStatus, notes string) error
}

// Geocoder locates addresses.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (*geocode.Result, error)
}

// Publisher emits domain events.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload interface{}) error
}

// RunResult summarizes one engine run for a client.
type RunResult struct {
	ClientID   uuid.UUID       `json:"client_id"`
	Considered int             `json:"considered"`
	Eligible   int             `json:"eligible"`
	Created    []*models.Match `json:"created"`
	Remaining  int             `json:"remaining_allowance"`
}

// Engine creates matches for clients.
type Engine struct {
	store     Store
	geocoder  Geocoder
	publisher Publisher
	cfg       config.MatchingConfig
	now       func() time.Time
}

// NewEngine creates a match engine. geocoder and publisher may be nil.
func NewEngine(store Store, geocoder Geocoder, publisher Publisher, cfg config.MatchingConfig) *Engine {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 25
	}
	if cfg.GeocodeWorkers <= 0 {
		cfg.GeocodeWorkers = 4
	}
	return &Engine{store: store, geocoder: geocoder, publisher: publisher, cfg: cfg, now: time.Now}
}

// Run matches a client against the Pro pool. At most limit matches are
// created, bounded by what is left of the client's monthly lead allowance.
// A limit of zero uses the configured default.
func (e *Engine) Run(ctx context.Context, clientID uuid.UUID, limit int) (*RunResult, error) {
	if limit <= 0 {
		limit = e.cfg.DefaultLimit
	}
	log := logging.Ctx(ctx).With().Str("client_id", clientID.String()).Logger()

	client, err := e.store.GetClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if err := e.locateClient(ctx, client); err != nil {
		return nil, err
	}

	used, err := e.store.CountMatchesSince(ctx, clientID, monthStart(e.now()))
	if err != nil {
		return nil, fmt.Errorf("failed to count matches: %w", err)
	}
	result := &RunResult{ClientID: clientID, Created: make([]*models.Match, 0), Remaining: max(client.LeadsPerMonth-used, 0)}
	if result.Remaining == 0 {
		log.Debug().Msg("Client has no lead allowance left this month")
		return result, nil
	}

	pros, err := e.store.ListMatchCandidates(ctx, client.ProType)
	if err != nil {
		return nil, fmt.Errorf("failed to load candidates: %w", err)
	}
	result.Considered = len(pros)
	e.locatePros(ctx, pros)

	matched, err := e.store.MatchedProIDs(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing matches: %w", err)
	}

	ranked := Rank(CriteriaFromClient(client, e.cfg.DefaultRadiusMiles), pros)
	result.Eligible = len(ranked)

	want := min(limit, result.Remaining)
	for _, c := range ranked {
		if len(result.Created) >= want {
			break
		}
		if _, ok := matched[c.Pro.ID]; ok {
			continue
		}
		m := &models.Match{
			ClientID:      clientID,
			ProID:         c.Pro.ID,
			Score:         c.Pro.Score,
			DistanceMiles: c.DistanceMiles,
		}
		if err := e.store.CreateMatch(ctx, m); err != nil {
			if errors.Is(err, database.ErrConflict) {
				continue
			}
			return result, fmt.Errorf("failed to create match: %w", err)
		}
		result.Created = append(result.Created, m)
		metrics.MatchesCreated.Inc()
		e.publish(ctx, models.TopicMatchCreated, models.MatchEvent{
			MatchID:       m.ID,
			ClientID:      clientID,
			ProID:         m.ProID,
			Score:         m.Score,
			DistanceMiles: m.DistanceMiles,
		})
	}
	result.Remaining -= len(result.Created)

	log.Info().Int("considered", result.Considered).Int("eligible", result.Eligible).
		Int("created", len(result.Created)).Int("remaining", result.Remaining).Msg("Match run complete")
	return result, nil
}

// UpdateStatus moves a match through its state machine. Hiring a Pro marks
// the Pro hired so it leaves the candidate pool.
func (e *Engine) UpdateStatus(ctx context.Context, matchID uuid.UUID, next models.MatchStatus, notes string) (*models.Match, error) {
	m, err := e.store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !m.Status.CanTransition(next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.Status, next)
	}
	if notes == "" {
		notes = m.Notes
	}
	if err := e.store.UpdateMatchStatus(ctx, matchID, next, notes); err != nil {
		return nil, fmt.Errorf("failed to update match: %w", err)
	}
	if next == models.MatchStatusHired {
		if err := e.store.UpdateProStatus(ctx, m.ProID, models.ProStatusHired); err != nil {
			return nil, fmt.Errorf("failed to mark pro hired: %w", err)
		}
	}
	m.Status = next
	m.Notes = notes
	m.UpdatedAt = e.now()
	return m, nil
}

// RunAll runs every active client once. Per-client failures are logged and
// do not stop the sweep.
func (e *Engine) RunAll(ctx context.Context) (created int, err error) {
	ids, err := e.store.ListActiveClientIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list active clients: %w", err)
	}
	for _, id := range ids {
		if ctx.Err() != nil {
			return created, ctx.Err()
		}
		res, err := e.Run(ctx, id, 0)
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("client_id", id.String()).Msg("Match sweep failed for client")
			continue
		}
		created += len(res.Created)
	}
	return created, nil
}

func (e *Engine) locateClient(ctx context.Context, c *models.Client) error {
	if c.HasLocation() {
		return nil
	}
	if e.geocoder == nil || c.MarketAddress == "" {
		return ErrNoMarket
	}
	res, err := e.geocoder.Geocode(ctx, c.MarketAddress)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNoMarket, err)
	}
	c.SetLocation(res.Point())
	if err := e.store.UpdateClient(ctx, c); err != nil {
		return fmt.Errorf("failed to save client location: %w", err)
	}
	return nil
}

// locatePros geocodes candidates that have an address but no coordinates.
// Failures leave the Pro unlocated.
func (e *Engine) locatePros(ctx context.Context, pros []*models.Pro) {
	if e.geocoder == nil {
		return
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.GeocodeWorkers)
	for _, p := range pros {
		if p.HasLocation() || p.AddressQuery() == "" {
			continue
		}
		g.Go(func() error {
			res, err := e.geocoder.Geocode(gctx, p.AddressQuery())
			if err != nil {
				logging.Ctx(gctx).Debug().Err(err).Str("pro_id", p.ID.String()).Msg("Could not locate candidate")
				return nil
			}
			p.SetLocation(res.Point())
			if err := e.store.UpdatePro(gctx, p); err != nil {
				logging.Ctx(gctx).Warn().Err(err).Str("pro_id", p.ID.String()).Msg("Failed to save candidate location")
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (e *Engine) publish(ctx context.Context, topic string, payload interface{}) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.Publish(ctx, topic, payload); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("topic", topic).Msg("Failed to publish event")
	}
}

func monthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
