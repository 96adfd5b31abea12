// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package onboarding

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tomtom215/owldoor/internal/config"
	"github.com/tomtom215/owldoor/internal/database"
	"github.com/tomtom215/owldoor/internal/models"
	"github.com/tomtom215/owldoor/internal/scoring"
	"github.com/tomtom215/owldoor/internal/validation"
)

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

var proSteps = []struct{ step, body string }{
	{"profile", `{"pro_type":"Agent","first_name":"  jane ","last_name":"DOE","email":"Jane.Doe@Example.com","phone":"(512) 555-0100"}`},
	{"license", `{"license_number":" TX-12345 ","licensed_states":["tx","ok","TX"],"years_licensed":8}`},
	{"production", `{"brokerage":"Keller Realty","transactions":30,"volume_usd":9000000}`},
	{"preferences", `{"city":"austin","state":"tx","zip":"78701"}`},
}

func TestProWizardCompletesAndScores(t *testing.T) {
	db := setupDB(t)
	pub := &topicRecorder{}
	svc := NewService(db, pub)
	ctx := context.Background()

	start, err := svc.Progress(ctx, "user-1", KindPro)
	if err != nil {
		t.Fatalf("Progress: %v", err)
	}
	if start.CurrentStep != "profile" || start.Percent != 0 || start.Complete {
		t.Fatalf("fresh progress = %+v", start)
	}

	var v *View
	for i, s := range proSteps {
		if v, err = svc.SubmitStep(ctx, "user-1", KindPro, s.step, []byte(s.body)); err != nil {
			t.Fatalf("SubmitStep(%s): %v", s.step, err)
		}
		if want := (i + 1) * 100 / len(proSteps); v.Percent != want {
			t.Errorf("after %s percent = %d, want %d", s.step, v.Percent, want)
		}
	}
	if !v.Complete || v.CurrentStep != "" || v.RecordID == "" || v.CompletedAt == nil {
		t.Fatalf("final view = %+v", v)
	}

	pro, err := db.GetProByUserID(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetProByUserID: %v", err)
	}
	if pro.ID.String() != v.RecordID {
		t.Errorf("record id %s != pro id %s", v.RecordID, pro.ID)
	}
	got := []string{string(pro.Type), pro.FirstName, pro.LastName, pro.Email, pro.Phone, pro.LicenseNumber, pro.City, pro.State, pro.Zip}
	want := []string{"agent", "Jane", "Doe", "jane.doe@example.com", "+15125550100", "TX-12345", "Austin", "TX", "78701"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("pro fields (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"TX", "OK"}, pro.LicensedStates); diff != "" {
		t.Errorf("licensed states (-want +got):\n%s", diff)
	}

	expected := scoring.Score(scoring.InputsFromPro(pro))
	if pro.Score != expected.Score || pro.Stage != expected.Stage || pro.Score == 0 {
		t.Errorf("score/stage = %d/%s, want %d/%s", pro.Score, pro.Stage, expected.Score, expected.Stage)
	}
	if len(pub.topics) != 1 || pub.topics[0] != models.TopicProScored {
		t.Errorf("published = %v", pub.topics)
	}

	// Revisiting a step after completion updates the record in place.
	if _, err := svc.SubmitStep(ctx, "user-1", KindPro, "production",
		[]byte(`{"brokerage":"Compass","transactions":5,"volume_usd":1000000}`)); err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	updated, _ := db.GetProByUserID(ctx, "user-1")
	if updated.ID != pro.ID || updated.Brokerage != "Compass" || updated.Score >= pro.Score {
		t.Errorf("updated pro = %+v (was score %d)", updated, pro.Score)
	}
}

func TestSubmitStepRejections(t *testing.T) {
	db := setupDB(t)
	svc := NewService(db, nil)
	ctx := context.Background()

	if _, err := svc.SubmitStep(ctx, "u", "broker", "profile", []byte(`{}`)); !errors.Is(err, ErrUnknownWizard) {
		t.Errorf("unknown wizard err = %v", err)
	}
	if _, err := svc.SubmitStep(ctx, "u", KindPro, "hobbies", []byte(`{}`)); !errors.Is(err, ErrUnknownStep) {
		t.Errorf("unknown step err = %v", err)
	}
	if _, err := svc.SubmitStep(ctx, "u", KindPro, "license", []byte(proSteps[1].body)); !errors.Is(err, ErrStepOutOfOrder) {
		t.Errorf("skipped step err = %v", err)
	}
	if _, err := svc.SubmitStep(ctx, "u", KindPro, "profile", []byte(`{not json`)); !errors.Is(err, ErrMalformedStep) {
		t.Errorf("malformed err = %v", err)
	}
	if _, err := svc.SubmitStep(ctx, "u", KindPro, "profile", []byte(`{"pro_type":"agent","first_name":"A","last_name":"B","email":"a@b.co","phone":"12"}`)); !errors.Is(err, ErrMalformedStep) {
		t.Errorf("bad phone err = %v", err)
	}

	_, err := svc.SubmitStep(ctx, "u", KindPro, "profile", []byte(`{"pro_type":"broker","first_name":"A","email":"a@b.co"}`))
	var verr *validation.RequestValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want validation error", err)
	}
	fields := map[string]bool{}
	for _, fe := range verr.Errors() {
		fields[fe.Field()] = true
	}
	if !fields["pro_type"] || !fields["last_name"] {
		t.Errorf("validation fields = %v", fields)
	}

	v, err := svc.Progress(ctx, "u", KindPro)
	if err != nil {
		t.Fatalf("Progress: %v", err)
	}
	if len(v.CompletedSteps) != 0 {
		t.Errorf("rejected submissions were recorded: %+v", v)
	}
}

func TestProWizardClaimsIngestedLead(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	lead := &models.Pro{Type: models.ProTypeAgent, FirstName: "Jane", LastName: "Doe", Email: "jane.doe@example.com", Source: "zillow"}
	if err := db.CreatePro(ctx, lead); err != nil {
		t.Fatalf("CreatePro: %v", err)
	}

	svc := NewService(db, nil)
	var v *View
	var err error
	for _, s := range proSteps {
		if v, err = svc.SubmitStep(ctx, "user-9", KindPro, s.step, []byte(s.body)); err != nil {
			t.Fatalf("SubmitStep(%s): %v", s.step, err)
		}
	}
	if v.RecordID != lead.ID.String() {
		t.Fatalf("record id = %s, want claimed lead %s", v.RecordID, lead.ID)
	}
	claimed, err := db.GetPro(ctx, lead.ID)
	if err != nil {
		t.Fatalf("GetPro: %v", err)
	}
	if claimed.UserID != "user-9" || claimed.Source != "zillow" {
		t.Errorf("claimed = %+v", claimed)
	}

	// A second account cannot claim the same email.
	other := NewService(db, nil)
	for _, s := range proSteps[:3] {
		if _, err := other.SubmitStep(ctx, "user-10", KindPro, s.step, []byte(s.body)); err != nil {
			t.Fatalf("SubmitStep(%s): %v", s.step, err)
		}
	}
	if _, err := other.SubmitStep(ctx, "user-10", KindPro, "preferences", []byte(proSteps[3].body)); !errors.Is(err, database.ErrConflict) {
		t.Errorf("second claim err = %v, want ErrConflict", err)
	}
}

func TestClientWizard(t *testing.T) {
	db := setupDB(t)
	svc := NewService(db, nil)
	ctx := context.Background()

	steps := []struct{ step, body string }{
		{"company", `{"company_name":"Hill Country Realty","contact_name":"sam lee","email":"Hiring@HCR.example.com"}`},
		{"market", `{"market_address":"  Austin,   TX ","radius_miles":40}`},
		{"criteria", `{"pro_type":"agent","min_score":50,"min_transactions":10,"licensed_states":["tx"]}`},
		{"plan", `{"plan":"Growth"}`},
	}
	var v *View
	var err error
	for _, s := range steps {
		if v, err = svc.SubmitStep(ctx, "owner-1", KindClient, s.step, []byte(s.body)); err != nil {
			t.Fatalf("SubmitStep(%s): %v", s.step, err)
		}
	}
	if !v.Complete || v.Percent != 100 {
		t.Fatalf("view = %+v", v)
	}

	c, err := db.GetClientByOwner(ctx, "owner-1")
	if err != nil {
		t.Fatalf("GetClientByOwner: %v", err)
	}
	if c.Status != models.ClientStatusPending || c.Plan != "growth" || c.MarketAddress != "Austin, TX" ||
		c.Email != "hiring@hcr.example.com" || c.ContactName != "Sam Lee" || c.RadiusMiles != 40 || c.MinScore != 50 {
		t.Errorf("client = %+v", c)
	}
	if diff := cmp.Diff([]string{"TX"}, c.LicensedStates); diff != "" {
		t.Errorf("licensed states (-want +got):\n%s", diff)
	}
}
