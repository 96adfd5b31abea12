// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package matching

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/tomtom215/owldoor/internal/config"
	"github.com/tomtom215/owldoor/internal/database"
	"github.com/tomtom215/owldoor/internal/geocode"
	"github.com/tomtom215/owldoor/internal/models"
)

var (
	austin       = models.GeoPoint{Lat: 30.2672, Lng: -97.7431}
	roundRock    = models.GeoPoint{Lat: 30.5083, Lng: -97.6789}
	sanAntonio   = models.GeoPoint{Lat: 29.4241, Lng: -98.4936}
	dallas       = models.GeoPoint{Lat: 32.7767, Lng: -96.7970}
	testMatchCfg = config.MatchingConfig{DefaultRadiusMiles: 50, DefaultLimit: 10, GeocodeWorkers: 2}
)

func pro(name string, score int, at *models.GeoPoint) *models.Pro {
	p := &models.Pro{
		ID:             uuid.New(),
		Type:           models.ProTypeAgent,
		FirstName:      name,
		Email:          name + "@example.com",
		State:          "TX",
		LicensedStates: []string{"TX"},
		Transactions:   20,
		YearsLicensed:  5,
		Score:          score,
		Status:         models.ProStatusActive,
	}
	if at != nil {
		p.SetLocation(*at)
	}
	return p
}

func names(cs []Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Pro.FirstName
	}
	return out
}

func TestRank(t *testing.T) {
	near := pro("near", 80, &roundRock)
	far := pro("far", 95, &dallas)
	mid := pro("mid", 80, &sanAntonio)
	top := pro("top", 90, &austin)
	hired := pro("hired", 99, &austin)
	hired.Status = models.ProStatusHired
	lo := pro("lo", 99, &austin)
	lo.Type = models.ProTypeLoanOfficer
	weak := pro("weak", 30, &austin)
	nowhere := pro("nowhere", 85, nil)
	ca := pro("ca", 85, &austin)
	ca.LicensedStates = []string{"CA"}

	all := []*models.Pro{near, far, mid, top, hired, lo, weak, nowhere, ca}

	tests := []struct {
		name string
		c    Criteria
		want []string
	}{
		{
			name: "radius and thresholds",
			c:    Criteria{ProType: models.ProTypeAgent, Center: austin, HasCenter: true, RadiusMiles: 100, MinScore: 50, LicensedStates: []string{"TX"}},
			want: []string{"top", "near", "mid"},
		},
		{
			name: "tight radius",
			c:    Criteria{ProType: models.ProTypeAgent, Center: austin, HasCenter: true, RadiusMiles: 20, MinScore: 50},
			want: []string{"top", "ca", "near"},
		},
		{
			name: "no center ignores radius",
			c:    Criteria{ProType: models.ProTypeAgent, RadiusMiles: 20, MinScore: 90},
			want: []string{"far", "top"},
		},
		{
			name: "min transactions excludes all",
			c:    Criteria{MinTransactions: 21},
			want: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, names(Rank(tt.c, all))); diff != "" {
				t.Errorf("Rank mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRankOrdersByDistanceThenID(t *testing.T) {
	a := pro("a", 70, &sanAntonio)
	b := pro("b", 70, &roundRock)
	c := pro("c", 70, &roundRock)
	got := Rank(Criteria{Center: austin, HasCenter: true, RadiusMiles: 200}, []*models.Pro{a, b, c})
	if got[2].Pro != a {
		t.Fatalf("farthest should be last: %v", names(got))
	}
	if got[0].Pro.ID.String() > got[1].Pro.ID.String() {
		t.Errorf("equal distance should order by ID: %s, %s", got[0].Pro.ID, got[1].Pro.ID)
	}
	if got[0].DistanceMiles < 16 || got[0].DistanceMiles > 18 {
		t.Errorf("Austin to Round Rock = %.1f miles, want about 17", got[0].DistanceMiles)
	}
}

type stubGeocoder struct {
	points map[string]models.GeoPoint
}

func (s stubGeocoder) Geocode(_ context.Context, q string) (*geocode.Result, error) {
	pt, ok := s.points[q]
	if !ok {
		return nil, geocode.ErrNotFound
	}
	return &geocode.Result{Lat: pt.Lat, Lng: pt.Lng, Source: "stub"}, nil
}

type topicRecorder struct{ topics []string }

func (r *topicRecorder) Publish(_ context.Context, topic string, _ interface{}) error {
	r.topics = append(r.topics, topic)
	return nil
}

func setupDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "512MB", Threads: 2})
	if err != nil {
		t.Fatalf("database.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedClient(t *testing.T, db *database.DB, leads int) *models.Client {
	t.Helper()
	c := &models.Client{
		OwnerUserID:   "owner-" + uuid.NewString(),
		CompanyName:   "Hill Country Realty",
		Email:         "hiring@example.com",
		ProType:       models.ProTypeAgent,
		MarketAddress: "Austin, TX",
		RadiusMiles:   40,
		MinScore:      50,
		LeadsPerMonth: leads,
		Status:        models.ClientStatusActive,
	}
	if err := db.CreateClient(context.Background(), c); err != nil {
		t.Fatalf("CreateClient: %v", err)
	}
	return c
}

func TestEngineRun(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	seeds := []*models.Pro{
		pro("top", 90, &austin),
		pro("second", 85, &roundRock),
		pro("third", 70, nil), // located by zip during the run
		pro("toofar", 99, &dallas),
		pro("weak", 20, &austin),
	}
	seeds[2].Zip = "78701"
	for _, p := range seeds {
		if err := db.CreatePro(ctx, p); err != nil {
			t.Fatalf("CreatePro: %v", err)
		}
	}
	client := seedClient(t, db, 2)

	geo := stubGeocoder{points: map[string]models.GeoPoint{"Austin, TX": austin, "78701": austin}}
	pub := &topicRecorder{}
	engine := NewEngine(db, geo, pub, testMatchCfg)

	res, err := engine.Run(ctx, client.ID, 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Eligible != 3 || len(res.Created) != 2 || res.Remaining != 0 {
		t.Fatalf("result = %+v", res)
	}
	if res.Created[0].ProID != seeds[0].ID || res.Created[1].ProID != seeds[1].ID {
		t.Errorf("wrong pros matched: %+v", res.Created)
	}
	if len(pub.topics) != 2 || pub.topics[0] != models.TopicMatchCreated {
		t.Errorf("topics = %v", pub.topics)
	}

	stored, err := db.GetClient(ctx, client.ID)
	if err != nil {
		t.Fatalf("GetClient: %v", err)
	}
	if !stored.HasLocation() {
		t.Error("client market location should be persisted")
	}
	third, err := db.GetPro(ctx, seeds[2].ID)
	if err != nil {
		t.Fatalf("GetPro: %v", err)
	}
	if !third.HasLocation() {
		t.Error("candidate location should be persisted")
	}

	// Allowance is spent for this month.
	res, err = engine.Run(ctx, client.ID, 0)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if len(res.Created) != 0 || res.Remaining != 0 {
		t.Errorf("second run = %+v", res)
	}

	// A new month restores the allowance and skips already matched Pros.
	engine.now = func() time.Time { return time.Now().AddDate(0, 1, 0) }
	res, err = engine.Run(ctx, client.ID, 0)
	if err != nil {
		t.Fatalf("next month Run: %v", err)
	}
	if len(res.Created) != 1 || res.Created[0].ProID != seeds[2].ID {
		t.Errorf("next month run = %+v", res)
	}
}

func TestEngineRunNeedsMarket(t *testing.T) {
	db := setupDB(t)
	client := seedClient(t, db, 5)
	engine := NewEngine(db, stubGeocoder{}, nil, testMatchCfg)

	if _, err := engine.Run(context.Background(), client.ID, 0); !errors.Is(err, ErrNoMarket) {
		t.Errorf("err = %v, want ErrNoMarket", err)
	}
	if _, err := engine.Run(context.Background(), uuid.New(), 0); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateStatus(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	p := pro("hire-me", 90, &austin)
	if err := db.CreatePro(ctx, p); err != nil {
		t.Fatalf("CreatePro: %v", err)
	}
	client := seedClient(t, db, 5)
	m := &models.Match{ClientID: client.ID, ProID: p.ID, Score: 90}
	if err := db.CreateMatch(ctx, m); err != nil {
		t.Fatalf("CreateMatch: %v", err)
	}
	engine := NewEngine(db, nil, nil, testMatchCfg)

	if _, err := engine.UpdateStatus(ctx, m.ID, models.MatchStatusHired, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("pending -> hired err = %v, want ErrInvalidTransition", err)
	}
	for _, next := range []models.MatchStatus{models.MatchStatusContacted, models.MatchStatusInterviewing} {
		if _, err := engine.UpdateStatus(ctx, m.ID, next, "called"); err != nil {
			t.Fatalf("-> %s: %v", next, err)
		}
	}
	got, err := engine.UpdateStatus(ctx, m.ID, models.MatchStatusHired, "")
	if err != nil {
		t.Fatalf("-> hired: %v", err)
	}
	if got.Status != models.MatchStatusHired || got.Notes != "called" {
		t.Errorf("match = %+v", got)
	}
	stored, err := db.GetPro(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetPro: %v", err)
	}
	if stored.Status != models.ProStatusHired {
		t.Errorf("pro status = %s, want hired", stored.Status)
	}
	if _, err := engine.UpdateStatus(ctx, m.ID, models.MatchStatusDeclined, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("hired is terminal, err = %v", err)
	}
}

func TestRunAllSkipsFailingClients(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	if err := db.CreatePro(ctx, pro("only", 90, &austin)); err != nil {
		t.Fatalf("CreatePro: %v", err)
	}
	good := seedClient(t, db, 5)
	bad := seedClient(t, db, 5)
	bad.MarketAddress = "Atlantis"
	if err := db.UpdateClient(ctx, bad); err != nil {
		t.Fatalf("UpdateClient: %v", err)
	}

	engine := NewEngine(db, stubGeocoder{points: map[string]models.GeoPoint{"Austin, TX": austin}}, nil, testMatchCfg)
	created, err := engine.RunAll(ctx)
	if err != nil {
		t.Fatalf("RunAll: %v", err)
	}
	if created != 1 {
		t.Errorf("created = %d, want 1", created)
	}
	if ms, _ := db.ListMatchesByClient(ctx, good.ID, ""); len(ms) != 1 {
		t.Errorf("good client matches = %d, want 1", len(ms))
	}
}

func TestSweeperStopsOnCancel(t *testing.T) {
	s := NewSweeper(NewEngine(setupDB(t), nil, nil, testMatchCfg), time.Second)
	if s.interval != time.Minute {
		t.Errorf("interval = %v, want clamped to 1m", s.interval)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.RunWithContext(ctx) }()
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop")
	}
}
