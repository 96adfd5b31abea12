// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

// Package ingest accepts Pro leads posted by external lead sources,
// normalizes them, merges them into existing records and scores them.
package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/owldoor/internal/database"
	"github.com/tomtom215/owldoor/internal/geocode"
	"github.com/tomtom215/owldoor/internal/logging"
	"github.com/tomtom215/owldoor/internal/metrics"
	"github.com/tomtom215/owldoor/internal/models"
	"github.com/tomtom215/owldoor/internal/scoring"
)

// maxPayloadBytes bounds the stored copy of a webhook body.
const maxPayloadBytes = 16 << 10

// Store is the persistence the ingester needs.
type Store interface {
	GetProByEmail(ctx context.Context, email string) (*models.Pro, error)
	GetProByPhone(ctx context.Context, phone string) (*models.Pro, error)
	CreatePro(ctx context.Context, p *models.Pro) error
	UpdatePro(ctx context.Context, p *models.Pro) error
	InsertLeadEvent(ctx context.Context, e *models.LeadEvent) error
}

// Geocoder resolves a Pro's location.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (*geocode.Result, error)
}

// Publisher emits domain events.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload interface{}) error
}

// Result is the outcome of one ingested lead.
type Result struct {
	Status string      `json:"status"` // created, merged, rejected
	Pro    *models.Pro `json:"pro,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// Service ingests leads. geocoder and publisher may be nil.
type Service struct {
	store     Store
	geocoder  Geocoder
	publisher Publisher
}

// NewService creates an ingest service.
func NewService(store Store, geocoder Geocoder, publisher Publisher) *Service {
	return &Service{store: store, geocoder: geocoder, publisher: publisher}
}

// Ingest processes one webhook body from source. Every call records a lead
// event. Rejected leads return an error wrapping ErrInvalidLead together with
// a Result whose status is rejected.
func (s *Service) Ingest(ctx context.Context, source string, body []byte) (*Result, error) {
	log := logging.Ctx(ctx).With().Str("source", source).Logger()

	var payload LeadPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return s.reject(ctx, source, body, fmt.Errorf("%w: malformed JSON: %v", ErrInvalidLead, err))
	}
	incoming, err := Normalize(&payload, source)
	if err != nil {
		return s.reject(ctx, source, body, err)
	}

	existing, err := s.findExisting(ctx, incoming)
	if err != nil {
		return s.fail(ctx, source, body, nil, err)
	}

	var (
		pro    *models.Pro
		status string
	)
	if existing != nil {
		pro, status = existing, models.LeadStatusMerged
		if Merge(pro, incoming) || !pro.HasLocation() {
			s.locate(ctx, pro)
		}
		scoring.Apply(pro)
		if err := s.store.UpdatePro(ctx, pro); err != nil {
			proID := pro.ID
			return s.fail(ctx, source, body, &proID, fmt.Errorf("failed to update pro: %w", err))
		}
	} else {
		pro, status = incoming, models.LeadStatusCreated
		scoring.Apply(pro)
		s.locate(ctx, pro)
		if err := s.store.CreatePro(ctx, pro); err != nil {
			return s.fail(ctx, source, body, nil, fmt.Errorf("failed to create pro: %w", err))
		}
	}

	proID := pro.ID
	s.record(ctx, &models.LeadEvent{Source: source, ProID: &proID, Status: status, Payload: truncate(body)})
	metrics.LeadsIngested.WithLabelValues(source, status).Inc()
	metrics.ProsScored.WithLabelValues(string(pro.Type)).Observe(float64(pro.Score))

	event := models.NewProEvent(pro)
	if status == models.LeadStatusCreated {
		s.publish(ctx, models.TopicProCreated, event)
	}
	s.publish(ctx, models.TopicProScored, event)

	log.Info().Str("status", status).Str("pro_id", pro.ID.String()).Int("score", pro.Score).
		Str("stage", string(pro.Stage)).Msg("Lead ingested")
	return &Result{Status: status, Pro: pro}, nil
}

func (s *Service) findExisting(ctx context.Context, p *models.Pro) (*models.Pro, error) {
	if p.Email != "" {
		existing, err := s.store.GetProByEmail(ctx, p.Email)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("failed to look up pro by email: %w", err)
		}
	}
	if p.Phone != "" {
		existing, err := s.store.GetProByPhone(ctx, p.Phone)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("failed to look up pro by phone: %w", err)
		}
	}
	return nil, nil
}

// locate geocodes p on a best-effort basis.
func (s *Service) locate(ctx context.Context, p *models.Pro) {
	q := p.AddressQuery()
	if s.geocoder == nil || q == "" {
		return
	}
	res, err := s.geocoder.Geocode(ctx, q)
	if err != nil {
		logging.Ctx(ctx).Debug().Err(err).Str("query", logging.SanitizeValue(q)).Msg("Could not geocode lead")
		return
	}
	p.SetLocation(res.Point())
	if p.City == "" {
		p.City = res.City
	}
	if p.State == "" {
		p.State = res.State
	}
}

func (s *Service) reject(ctx context.Context, source string, body []byte, cause error) (*Result, error) {
	s.record(ctx, &models.LeadEvent{
		Source:  source,
		Status:  models.LeadStatusRejected,
		Error:   cause.Error(),
		Payload: truncate(body),
	})
	metrics.LeadsIngested.WithLabelValues(source, models.LeadStatusRejected).Inc()
	logging.Ctx(ctx).Info().Str("source", source).Str("reason", cause.Error()).Msg("Lead rejected")
	return &Result{Status: models.LeadStatusRejected, Error: cause.Error()}, cause
}

// fail records a lead that could not be stored. The cause is returned as is
// so callers report a storage error rather than a validation error.
func (s *Service) fail(ctx context.Context, source string, body []byte, proID *uuid.UUID, cause error) (*Result, error) {
	s.record(ctx, &models.LeadEvent{
		Source:  source,
		ProID:   proID,
		Status:  models.LeadStatusRejected,
		Error:   cause.Error(),
		Payload: truncate(body),
	})
	metrics.LeadsIngested.WithLabelValues(source, models.LeadStatusRejected).Inc()
	logging.Ctx(ctx).Error().Err(cause).Str("source", source).Msg("Lead could not be stored")
	return nil, cause
}

func (s *Service) record(ctx context.Context, e *models.LeadEvent) {
	if err := s.store.InsertLeadEvent(ctx, e); err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("Failed to record lead event")
	}
}

func (s *Service) publish(ctx context.Context, topic string, payload interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, topic, payload); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("topic", topic).Msg("Failed to publish event")
	}
}

func truncate(body []byte) string {
	if len(body) > maxPayloadBytes {
		return string(body[:maxPayloadBytes])
	}
	return string(body)
}
