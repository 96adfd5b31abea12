// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package audit

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/owldoor/internal/auth"
	"github.com/tomtom215/owldoor/internal/config"
	"github.com/tomtom215/owldoor/internal/logging"
	"github.com/tomtom215/owldoor/internal/models"
)

const writeTimeout = 5 * time.Second

// Logger buffers events and writes them to the store on a background goroutine.
type Logger struct {
	cfg    config.AuditConfig
	store  Store
	events chan *Event
	stop   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
	now    func() time.Time
}

// NewLogger starts the writer. A disabled logger drops every event but still
// answers queries.
func NewLogger(store Store, cfg config.AuditConfig) *Logger {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 256
	}
	l := &Logger{
		cfg:    cfg,
		store:  store,
		events: make(chan *Event, cfg.BufferSize),
		stop:   make(chan struct{}),
		now:    time.Now,
	}
	l.wg.Add(1)
	go l.writer()
	return l
}

func (l *Logger) writer() {
	defer l.wg.Done()
	for {
		select {
		case <-l.stop:
			for {
				select {
				case e := <-l.events:
					l.write(e)
				default:
					return
				}
			}
		case e := <-l.events:
			l.write(e)
		}
	}
}

func (l *Logger) write(e *Event) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := l.store.Save(ctx, e); err != nil {
		logging.Error().Err(err).Str("event_id", e.ID).Str("type", string(e.Type)).Msg("Failed to save audit event")
	}
}

// Log queues an event, filling ID, timestamp and request ID when unset.
// Events are dropped with a warning when the buffer is full.
func (l *Logger) Log(ctx context.Context, e *Event) {
	if !l.cfg.Enabled || e == nil {
		return
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = l.now().UTC()
	}
	if e.Outcome == "" {
		e.Outcome = OutcomeSuccess
	}
	if e.RequestID == "" {
		e.RequestID = logging.RequestIDFromContext(ctx)
	}
	select {
	case <-l.stop:
		return
	default:
	}
	select {
	case l.events <- e:
	default:
		logging.Ctx(ctx).Warn().Str("event_id", e.ID).Str("type", string(e.Type)).Msg("Audit buffer full, dropping event")
	}
}

// LogStageOverride records a manual pipeline stage change.
func (l *Logger) LogStageOverride(ctx context.Context, actor Actor, source Source, proID uuid.UUID, from, to models.Stage) {
	l.Log(ctx, &Event{
		Type:        EventProStageOverride,
		Actor:       actor,
		Target:      Target{Type: "pro", ID: proID.String()},
		Source:      source,
		Description: "Stage changed from " + string(from) + " to " + string(to),
		Metadata:    mustJSON(map[string]string{"from": string(from), "to": string(to)}),
	})
}

// LogMatchStatusChange records a match moving through its status machine.
func (l *Logger) LogMatchStatusChange(ctx context.Context, actor Actor, source Source, matchID uuid.UUID, from, to models.MatchStatus) {
	l.Log(ctx, &Event{
		Type:        EventMatchStatusChanged,
		Actor:       actor,
		Target:      Target{Type: "match", ID: matchID.String()},
		Source:      source,
		Description: "Match status changed from " + string(from) + " to " + string(to),
		Metadata:    mustJSON(map[string]string{"from": string(from), "to": string(to)}),
	})
}

// LogProDeleted records the removal of a Pro. Only a redacted email is kept.
func (l *Logger) LogProDeleted(ctx context.Context, actor Actor, source Source, pro *models.Pro) {
	l.Log(ctx, &Event{
		Type:        EventProDeleted,
		Actor:       actor,
		Target:      Target{Type: "pro", ID: pro.ID.String()},
		Source:      source,
		Description: "Pro deleted",
		Metadata:    mustJSON(map[string]string{"email": logging.RedactEmail(pro.Email), "stage": string(pro.Stage)}),
	})
}

// LogClientPlanChange records a plan or status change on a Client.
func (l *Logger) LogClientPlanChange(ctx context.Context, actor Actor, source Source, before, after *models.Client) {
	l.Log(ctx, &Event{
		Type:        EventClientPlanChanged,
		Actor:       actor,
		Target:      Target{Type: "client", ID: after.ID.String()},
		Source:      source,
		Description: "Plan changed from " + before.Plan + " to " + after.Plan,
		Metadata: mustJSON(map[string]interface{}{
			"from_plan":   before.Plan,
			"to_plan":     after.Plan,
			"from_status": before.Status,
			"to_status":   after.Status,
			"leads":       after.LeadsPerMonth,
		}),
	})
}

// LogAction records any other administrative action.
func (l *Logger) LogAction(ctx context.Context, typ EventType, actor Actor, source Source, target Target, description string, metadata map[string]interface{}) {
	e := &Event{
		Type:        typ,
		Actor:       actor,
		Target:      target,
		Source:      source,
		Description: description,
	}
	if len(metadata) > 0 {
		e.Metadata = mustJSON(metadata)
	}
	l.Log(ctx, e)
}

// Query returns stored events.
func (l *Logger) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	return l.store.Query(ctx, filter)
}

// Count returns the number of stored events matching filter.
func (l *Logger) Count(ctx context.Context, filter QueryFilter) (int64, error) {
	return l.store.Count(ctx, filter)
}

// Flush blocks until every queued event has been handed to the store or ctx
// is done.
func (l *Logger) Flush(ctx context.Context) error {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for len(l.events) > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// Close drains the buffer and stops the writer.
func (l *Logger) Close() error {
	l.once.Do(func() { close(l.stop) })
	l.wg.Wait()
	return nil
}

// Serve prunes events past the retention window every cleanup interval until
// ctx is canceled. It is a no-op loop when retention is disabled.
func (l *Logger) Serve(ctx context.Context) error {
	interval := l.cfg.CleanupInterval
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	l.prune(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			l.prune(ctx)
		}
	}
}

func (l *Logger) prune(ctx context.Context) {
	if l.cfg.RetentionDays <= 0 {
		return
	}
	cutoff := l.now().AddDate(0, 0, -l.cfg.RetentionDays)
	n, err := l.store.Delete(ctx, cutoff)
	if err != nil {
		logging.Error().Err(err).Msg("Audit retention cleanup failed")
		return
	}
	if n > 0 {
		logging.Info().Int64("deleted", n).Time("older_than", cutoff).Msg("Pruned audit events")
	}
}

// String names the service in supervisor logs.
func (l *Logger) String() string { return "audit-retention" }

func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}

// SourceFromRequest reads the client address and user agent. chi's RealIP
// middleware has already rewritten RemoteAddr from forwarding headers.
func SourceFromRequest(r *http.Request) Source {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return Source{IPAddress: ip, UserAgent: logging.SanitizeValue(r.UserAgent())}
}

// ActorFromSubject converts the authenticated subject. A nil subject becomes
// the system actor.
func ActorFromSubject(s *auth.AuthSubject) Actor {
	if s == nil {
		return SystemActor()
	}
	return Actor{ID: s.ID, Email: strings.ToLower(s.Email), Roles: s.Roles}
}

// SystemActor identifies background work such as the match sweep.
func SystemActor() Actor {
	return Actor{ID: "system", Roles: []string{"system"}}
}
