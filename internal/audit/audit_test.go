// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package audit

import (
	"context"
	"database/sql"
	"net/http/httptest"
	"testing"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/tomtom215/owldoor/internal/auth"
	"github.com/tomtom215/owldoor/internal/config"
	"github.com/tomtom215/owldoor/internal/models"
)

func setupStore(t *testing.T) *DuckDBStore {
	t.Helper()
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open in-memory DuckDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store := NewDuckDBStore(db)
	if err := store.CreateTable(context.Background()); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	// Idempotent.
	if err := store.CreateTable(context.Background()); err != nil {
		t.Fatalf("second CreateTable: %v", err)
	}
	return store
}

func newLogger(t *testing.T, store Store) *Logger {
	t.Helper()
	l := NewLogger(store, config.AuditConfig{Enabled: true, BufferSize: 16, RetentionDays: 30})
	t.Cleanup(func() { l.Close() })
	return l
}

func TestStoreSaveAndQuery(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	events := []*Event{
		{ID: "e1", Timestamp: base, Type: EventProStageOverride, Outcome: OutcomeSuccess,
			Actor: Actor{ID: "admin-1", Email: "a@owldoor.test", Roles: []string{"admin"}},
			Target: Target{Type: "pro", ID: "p1"}, Source: Source{IPAddress: "10.0.0.1"},
			Description: "Stage changed", Metadata: json.RawMessage(`{"from":"cold","to":"hot"}`)},
		{ID: "e2", Timestamp: base.Add(time.Minute), Type: EventMatchStatusChanged, Outcome: OutcomeSuccess,
			Actor: Actor{ID: "client-1"}, Target: Target{Type: "match", ID: "m1"}, Description: "Match status changed"},
		{ID: "e3", Timestamp: base.Add(2 * time.Minute), Type: EventProDeleted, Outcome: OutcomeSuccess,
			Actor: Actor{ID: "admin-1"}, Target: Target{Type: "pro", ID: "p1"}, Description: "Pro deleted"},
	}
	for _, e := range events {
		if err := store.Save(ctx, e); err != nil {
			t.Fatalf("Save(%s): %v", e.ID, err)
		}
	}

	since := base.Add(30 * time.Second)
	tests := []struct {
		name   string
		filter QueryFilter
		want   []string
	}{
		{"all newest first", QueryFilter{}, []string{"e3", "e2", "e1"}},
		{"by type", QueryFilter{Types: []EventType{EventProStageOverride, EventProDeleted}}, []string{"e3", "e1"}},
		{"by actor", QueryFilter{ActorID: "client-1"}, []string{"e2"}},
		{"by target", QueryFilter{TargetType: "pro", TargetID: "p1"}, []string{"e3", "e1"}},
		{"since", QueryFilter{Since: &since}, []string{"e3", "e2"}},
		{"paged", QueryFilter{Limit: 1, Offset: 1}, []string{"e2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Query(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Query: %v", err)
			}
			ids := make([]string, len(got))
			for i, e := range got {
				ids[i] = e.ID
			}
			if diff := cmp.Diff(tt.want, ids); diff != "" {
				t.Errorf("ids (-want +got):\n%s", diff)
			}
		})
	}

	got, err := store.Query(ctx, QueryFilter{Types: []EventType{EventProStageOverride}})
	if err != nil || len(got) != 1 {
		t.Fatalf("Query = %v, %v", got, err)
	}
	if diff := cmp.Diff(*events[0], got[0]); diff != "" {
		t.Errorf("round trip (-want +got):\n%s", diff)
	}

	n, err := store.Count(ctx, QueryFilter{ActorID: "admin-1", Limit: 1})
	if err != nil || n != 2 {
		t.Errorf("Count = %d, %v; want 2", n, err)
	}
}

func TestStoreDelete(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	for i, age := range []time.Duration{0, 48 * time.Hour, 96 * time.Hour} {
		e := &Event{ID: uuid.NewString(), Timestamp: now.Add(-age), Type: EventClientUpdated,
			Outcome: OutcomeSuccess, Actor: Actor{ID: "a"}, Target: Target{Type: "client", ID: string(rune('a' + i))},
			Description: "updated"}
		if err := store.Save(ctx, e); err != nil {
			t.Fatal(err)
		}
	}
	n, err := store.Delete(ctx, now.Add(-24*time.Hour))
	if err != nil || n != 2 {
		t.Fatalf("Delete = %d, %v; want 2", n, err)
	}
	if left, _ := store.Count(ctx, QueryFilter{}); left != 1 {
		t.Errorf("remaining = %d, want 1", left)
	}
}

func TestLoggerHelpers(t *testing.T) {
	store := setupStore(t)
	l := newLogger(t, store)
	ctx := context.Background()

	actor := ActorFromSubject(&auth.AuthSubject{ID: "admin-1", Email: "Ops@OwlDoor.test", Roles: []string{"admin"}})
	src := Source{IPAddress: "192.0.2.1"}
	proID, matchID := uuid.New(), uuid.New()

	l.LogStageOverride(ctx, actor, src, proID, models.StageCold, models.StageHot)
	l.LogMatchStatusChange(ctx, actor, src, matchID, models.MatchStatusPending, models.MatchStatusContacted)
	l.LogProDeleted(ctx, actor, src, &models.Pro{ID: proID, Email: "jane@example.com", Stage: models.StageHot})
	l.LogClientPlanChange(ctx, actor, src,
		&models.Client{ID: uuid.New(), Plan: "starter", Status: models.ClientStatusPending},
		&models.Client{ID: uuid.New(), Plan: "growth", Status: models.ClientStatusActive, LeadsPerMonth: 75})

	// Close drains the buffer.
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	events, err := store.Query(ctx, QueryFilter{TargetID: proID.String()})
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Fatalf("pro events = %d, want 2", len(events))
	}
	for _, e := range events {
		if e.Actor.Email != "ops@owldoor.test" || e.Outcome != OutcomeSuccess || e.ID == "" {
			t.Errorf("event = %+v", e)
		}
		if e.Type == EventProDeleted && string(e.Metadata) == "" {
			t.Error("delete event lost its metadata")
		}
	}
	if n, _ := store.Count(ctx, QueryFilter{}); n != 4 {
		t.Errorf("total = %d, want 4", n)
	}

	plan, _ := store.Query(ctx, QueryFilter{Types: []EventType{EventClientPlanChanged}})
	var meta map[string]interface{}
	if len(plan) != 1 || json.Unmarshal(plan[0].Metadata, &meta) != nil || meta["to_plan"] != "growth" {
		t.Errorf("plan event = %+v", plan)
	}
}

func TestLoggerDisabled(t *testing.T) {
	store := setupStore(t)
	l := NewLogger(store, config.AuditConfig{Enabled: false})
	l.LogAction(context.Background(), EventNotificationSent, SystemActor(), Source{}, Target{Type: "pro", ID: "x"}, "sent", nil)
	l.Close()
	if n, _ := store.Count(context.Background(), QueryFilter{}); n != 0 {
		t.Errorf("disabled logger stored %d events", n)
	}
}

func TestLoggerPrune(t *testing.T) {
	store := setupStore(t)
	l := newLogger(t, store)
	ctx := context.Background()
	old := &Event{ID: "old", Timestamp: time.Now().AddDate(0, 0, -60), Type: EventProUpdated,
		Outcome: OutcomeSuccess, Actor: SystemActor(), Target: Target{Type: "pro", ID: "p"}, Description: "old"}
	if err := store.Save(ctx, old); err != nil {
		t.Fatal(err)
	}
	l.LogAction(ctx, EventProUpdated, SystemActor(), Source{}, Target{Type: "pro", ID: "p"}, "new", map[string]interface{}{"field": "phone"})
	if err := l.Flush(ctx); err != nil {
		t.Fatal(err)
	}
	l.Close()

	l.prune(ctx)
	events, _ := store.Query(ctx, QueryFilter{})
	if len(events) != 1 || events[0].Description != "new" {
		t.Errorf("events after prune = %+v", events)
	}
}

func TestSourceFromRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/v1/pros", nil)
	r.RemoteAddr = "203.0.113.9:51234"
	r.Header.Set("User-Agent", "owldoor-test\n")
	got := SourceFromRequest(r)
	want := Source{IPAddress: "203.0.113.9", UserAgent: "owldoor-test"}
	if got != want {
		t.Errorf("SourceFromRequest = %+v, want %+v", got, want)
	}
	if ActorFromSubject(nil).ID != "system" {
		t.Error("nil subject should map to the system actor")
	}
}
