// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

// Package onboarding runs the step-by-step signup wizards for Pros and
// Clients. Each submitted step is validated and saved; once every step is
// done the collected answers are written to the user's Pro or Client record.
package onboarding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/owldoor/internal/database"
	"github.com/tomtom215/owldoor/internal/ingest"
	"github.com/tomtom215/owldoor/internal/logging"
	"github.com/tomtom215/owldoor/internal/models"
	"github.com/tomtom215/owldoor/internal/scoring"
	"github.com/tomtom215/owldoor/internal/validation"
)

var (
	ErrUnknownWizard  = errors.New("unknown onboarding wizard")
	ErrUnknownStep    = errors.New("unknown onboarding step")
	ErrStepOutOfOrder = errors.New("previous onboarding steps are incomplete")
	ErrMalformedStep  = errors.New("malformed onboarding step")
)

// Store is the persistence onboarding needs.
type Store interface {
	GetOnboarding(ctx context.Context, userID, kind string) (*models.OnboardingProgress, error)
	SaveOnboarding(ctx context.Context, p *models.OnboardingProgress) error
	GetProByUserID(ctx context.Context, userID string) (*models.Pro, error)
	GetProByEmail(ctx context.Context, email string) (*models.Pro, error)
	CreatePro(ctx context.Context, p *models.Pro) error
	UpdatePro(ctx context.Context, p *models.Pro) error
	GetClientByOwner(ctx context.Context, userID string) (*models.Client, error)
	CreateClient(ctx context.Context, c *models.Client) error
	UpdateClient(ctx context.Context, c *models.Client) error
}

// Publisher emits domain events.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload interface{}) error
}

// StepView is a step as shown to the user.
type StepView struct {
	Name  string `json:"name"`
	Title string `json:"title"`
	Done  bool   `json:"done"`
}

// View is a user's progress through a wizard.
type View struct {
	Kind           string                 `json:"kind"`
	Steps          []StepView             `json:"steps"`
	CurrentStep    string                 `json:"current_step,omitempty"`
	CompletedSteps []string               `json:"completed_steps"`
	Percent        int                    `json:"percent"`
	Complete       bool                   `json:"complete"`
	CompletedAt    *time.Time             `json:"completed_at,omitempty"`
	Data           map[string]interface{} `json:"data"`

	// RecordID is the Pro or Client written on completion.
	RecordID string `json:"record_id,omitempty"`
}

// Service runs the wizards.
type Service struct {
	store     Store
	publisher Publisher
	now       func() time.Time
}

// NewService creates an onboarding service. publisher may be nil.
func NewService(store Store, publisher Publisher) *Service {
	return &Service{store: store, publisher: publisher, now: time.Now}
}

// Progress returns userID's progress through the kind wizard. A user who has
// not started gets an empty view positioned at the first step.
func (s *Service) Progress(ctx context.Context, userID, kind string) (*View, error) {
	w, ok := Lookup(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownWizard, kind)
	}
	p, err := s.load(ctx, w, userID)
	if err != nil {
		return nil, err
	}
	return view(w, p), nil
}

// SubmitStep validates body against the named step, stores it and advances.
// Steps may be revisited but not skipped. Submitting the last missing step
// completes the wizard and writes the Pro or Client record.
func (s *Service) SubmitStep(ctx context.Context, userID, kind, step string, body []byte) (*View, error) {
	w, ok := Lookup(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownWizard, kind)
	}
	idx, def := w.step(step)
	if def == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStep, step)
	}

	p, err := s.load(ctx, w, userID)
	if err != nil {
		return nil, err
	}
	if current, _ := w.step(p.CurrentStep); current >= 0 && idx > current {
		return nil, fmt.Errorf("%w: complete %q first", ErrStepOutOfOrder, p.CurrentStep)
	}

	payload := def.New()
	if err := json.Unmarshal(body, payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedStep, err)
	}
	if n, ok := payload.(normalizer); ok {
		if err := n.normalize(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedStep, err)
		}
	}
	if verr := validation.ValidateStruct(payload); verr != nil {
		return nil, verr
	}

	data, err := toMap(payload)
	if err != nil {
		return nil, err
	}
	p.Data[step] = data
	if !contains(p.Completed, step) {
		p.Completed = append(p.Completed, step)
	}
	p.CurrentStep = nextIncomplete(w, p.Completed)

	var recordID string
	if p.CurrentStep == "" {
		if recordID, err = s.apply(ctx, w, userID, p.Data); err != nil {
			return nil, err
		}
		if p.CompletedAt == nil {
			t := s.now().UTC()
			p.CompletedAt = &t
		}
	}
	if err := s.store.SaveOnboarding(ctx, p); err != nil {
		return nil, err
	}

	logging.Ctx(ctx).Info().
		Str("wizard", kind).
		Str("step", step).
		Bool("complete", p.IsComplete()).
		Msg("Onboarding step saved")

	v := view(w, p)
	v.RecordID = recordID
	return v, nil
}

func (s *Service) load(ctx context.Context, w *Wizard, userID string) (*models.OnboardingProgress, error) {
	p, err := s.store.GetOnboarding(ctx, userID, w.Kind)
	if errors.Is(err, database.ErrNotFound) {
		return &models.OnboardingProgress{
			UserID:      userID,
			Kind:        w.Kind,
			CurrentStep: w.Steps[0].Name,
			Completed:   []string{},
			Data:        map[string]interface{}{},
		}, nil
	}
	if err != nil {
		return nil, err
	}
	if p.Data == nil {
		p.Data = map[string]interface{}{}
	}
	return p, nil
}

func (s *Service) apply(ctx context.Context, w *Wizard, userID string, data map[string]interface{}) (string, error) {
	switch w.Kind {
	case KindPro:
		var (
			profile     ProProfile
			license     ProLicense
			production  ProProduction
			preferences ProPreferences
		)
		if err := decodeSteps(data, map[string]interface{}{
			"profile": &profile, "license": &license, "production": &production, "preferences": &preferences,
		}); err != nil {
			return "", err
		}
		pro, err := s.applyPro(ctx, userID, &profile, &license, &production, &preferences)
		if err != nil {
			return "", err
		}
		return pro.ID.String(), nil
	case KindClient:
		var (
			company  ClientCompany
			market   ClientMarket
			criteria ClientCriteria
			plan     ClientPlan
		)
		if err := decodeSteps(data, map[string]interface{}{
			"company": &company, "market": &market, "criteria": &criteria, "plan": &plan,
		}); err != nil {
			return "", err
		}
		client, err := s.applyClient(ctx, userID, &company, &market, &criteria, &plan)
		if err != nil {
			return "", err
		}
		return client.ID.String(), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownWizard, w.Kind)
}

// applyPro writes the Pro for userID. An existing lead with the same email
// and no linked user is claimed instead of duplicated.
func (s *Service) applyPro(ctx context.Context, userID string, profile *ProProfile, license *ProLicense,
	production *ProProduction, preferences *ProPreferences) (*models.Pro, error) {
	pro, err := s.store.GetProByUserID(ctx, userID)
	if errors.Is(err, database.ErrNotFound) {
		pro, err = s.store.GetProByEmail(ctx, profile.Email)
		if err == nil && pro.UserID != "" && pro.UserID != userID {
			return nil, fmt.Errorf("email %s belongs to another account: %w", profile.Email, database.ErrConflict)
		}
	}
	isNew := false
	if errors.Is(err, database.ErrNotFound) {
		pro, err, isNew = &models.Pro{Source: "onboarding"}, nil, true
	}
	if err != nil {
		return nil, err
	}

	locationChanged := pro.Zip != preferences.Zip || pro.City != preferences.City || pro.State != preferences.State

	pro.UserID = userID
	pro.Type = models.ProType(profile.Type)
	pro.FirstName = profile.FirstName
	pro.LastName = profile.LastName
	pro.Email = profile.Email
	pro.Phone = profile.Phone
	pro.LicenseNumber = license.LicenseNumber
	pro.LicensedStates = license.LicensedStates
	pro.YearsLicensed = license.YearsLicensed
	pro.Brokerage = production.Brokerage
	pro.Transactions = production.Transactions
	pro.VolumeUSD = production.VolumeUSD
	pro.City = preferences.City
	pro.State = preferences.State
	pro.Zip = preferences.Zip
	if locationChanged {
		pro.Latitude, pro.Longitude = nil, nil
	}
	scoring.Apply(pro)

	if isNew {
		err = s.store.CreatePro(ctx, pro)
	} else {
		err = s.store.UpdatePro(ctx, pro)
	}
	if err != nil {
		return nil, err
	}
	s.publish(ctx, models.TopicProScored, models.NewProEvent(pro))
	return pro, nil
}

func (s *Service) applyClient(ctx context.Context, userID string, company *ClientCompany, market *ClientMarket,
	criteria *ClientCriteria, plan *ClientPlan) (*models.Client, error) {
	client, err := s.store.GetClientByOwner(ctx, userID)
	isNew := false
	if errors.Is(err, database.ErrNotFound) {
		client, err, isNew = &models.Client{OwnerUserID: userID, Status: models.ClientStatusPending}, nil, true
	}
	if err != nil {
		return nil, err
	}

	if client.MarketAddress != market.MarketAddress {
		client.Latitude, client.Longitude = nil, nil
	}
	client.CompanyName = company.CompanyName
	client.ContactName = company.ContactName
	client.Email = company.Email
	client.Phone = company.Phone
	client.MarketAddress = market.MarketAddress
	client.RadiusMiles = market.RadiusMiles
	client.ProType = models.ProType(criteria.ProType)
	client.MinScore = criteria.MinScore
	client.MinTransactions = criteria.MinTransactions
	client.MinYears = criteria.MinYears
	client.LicensedStates = criteria.LicensedStates
	// The plan is activated by checkout; until then it records the choice.
	if client.Status != models.ClientStatusActive {
		client.Plan = plan.Plan
	}

	if isNew {
		err = s.store.CreateClient(ctx, client)
	} else {
		err = s.store.UpdateClient(ctx, client)
	}
	if err != nil {
		return nil, err
	}
	return client, nil
}

func (s *Service) publish(ctx context.Context, topic string, payload interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, topic, payload); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("topic", topic).Msg("Failed to publish event")
	}
}

func view(w *Wizard, p *models.OnboardingProgress) *View {
	v := &View{
		Kind:           w.Kind,
		CurrentStep:    p.CurrentStep,
		CompletedSteps: append([]string{}, p.Completed...),
		Complete:       p.IsComplete(),
		CompletedAt:    p.CompletedAt,
		Data:           p.Data,
	}
	done := 0
	for _, st := range w.Steps {
		d := contains(p.Completed, st.Name)
		if d {
			done++
		}
		v.Steps = append(v.Steps, StepView{Name: st.Name, Title: st.Title, Done: d})
	}
	v.Percent = done * 100 / len(w.Steps)
	return v
}

func nextIncomplete(w *Wizard, completed []string) string {
	for _, st := range w.Steps {
		if !contains(completed, st.Name) {
			return st.Name
		}
	}
	return ""
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func toMap(v interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode onboarding step: %w", err)
	}
	out := map[string]interface{}{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to encode onboarding step: %w", err)
	}
	return out, nil
}

func decodeSteps(data map[string]interface{}, targets map[string]interface{}) error {
	for name, target := range targets {
		raw, err := json.Marshal(data[name])
		if err != nil {
			return fmt.Errorf("failed to decode onboarding step %s: %w", name, err)
		}
		if err := json.Unmarshal(raw, target); err != nil {
			return fmt.Errorf("failed to decode onboarding step %s: %w", name, err)
		}
	}
	return nil
}

// normalizer is implemented by steps that clean their input before
// validation.
type normalizer interface {
	normalize() error
}

func (p *ProProfile) normalize() error {
	p.Type = strings.ToLower(strings.TrimSpace(p.Type))
	p.FirstName = ingest.NormalizeName(p.FirstName)
	p.LastName = ingest.NormalizeName(p.LastName)
	return normalizeContact(&p.Email, &p.Phone)
}

func (p *ProLicense) normalize() error {
	p.LicenseNumber = strings.TrimSpace(p.LicenseNumber)
	p.LicensedStates = upperAll(p.LicensedStates)
	return nil
}

func (p *ProProduction) normalize() error {
	p.Brokerage = strings.TrimSpace(p.Brokerage)
	return nil
}

func (p *ProPreferences) normalize() error {
	p.City = ingest.NormalizeName(p.City)
	p.State = strings.ToUpper(strings.TrimSpace(p.State))
	p.Zip = ingest.NormalizeZip(p.Zip)
	return nil
}

func (c *ClientCompany) normalize() error {
	c.CompanyName = strings.TrimSpace(c.CompanyName)
	c.ContactName = ingest.NormalizeName(c.ContactName)
	return normalizeContact(&c.Email, &c.Phone)
}

func (c *ClientMarket) normalize() error {
	c.MarketAddress = strings.Join(strings.Fields(c.MarketAddress), " ")
	return nil
}

func (c *ClientCriteria) normalize() error {
	c.ProType = strings.ToLower(strings.TrimSpace(c.ProType))
	c.LicensedStates = upperAll(c.LicensedStates)
	return nil
}

func (c *ClientPlan) normalize() error {
	c.Plan = strings.ToLower(strings.TrimSpace(c.Plan))
	return nil
}

func normalizeContact(email, phone *string) error {
	if strings.TrimSpace(*email) != "" {
		e, err := ingest.NormalizeEmail(*email)
		if err != nil {
			return err
		}
		*email = e
	}
	if strings.TrimSpace(*phone) != "" {
		p, err := ingest.NormalizePhone(*phone)
		if err != nil {
			return err
		}
		*phone = p
	}
	return nil
}

func upperAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" && !contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}
