// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/tomtom215/owldoor/internal/ingest"
	"github.com/tomtom215/owldoor/internal/logging"
	"github.com/tomtom215/owldoor/internal/metrics"
	"github.com/tomtom215/owldoor/internal/models"
	"github.com/tomtom215/owldoor/internal/payments"
)

// HeaderAPIKey carries a lead source's key.
const HeaderAPIKey = "X-API-Key"

// Geocode resolves a location through the provider chain.
//
// @Summary Geocode a US location
// @Description Tries the local ZIP table, then the configured providers in order
// @Tags Geocode
// @Produce json
// @Security BearerAuth
// @Param q query string true "ZIP, city/state or street address"
// @Success 200 {object} APIResponse{data=geocode.Result}
// @Failure 400 {object} APIResponse "Missing query"
// @Failure 404 {object} APIResponse "Location not found"
// @Failure 502 {object} APIResponse "Every provider failed"
// @Router /geocode [get]
func (h *Handler) Geocode(w http.ResponseWriter, r *http.Request) {
	if h.geocoder == nil {
		NewResponseWriter(w, r).Error(http.StatusServiceUnavailable, ErrCodeExternalServiceFail, "geocoding is not configured")
		return
	}
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" || len(q) > 300 {
		NewResponseWriter(w, r).BadRequest("q must be 1-300 characters")
		return
	}
	res, err := h.geocoder.Geocode(r.Context(), q)
	if err != nil {
		writeServiceError(w, r, "geocode", err)
		return
	}
	NewResponseWriter(w, r).Success(res)
}

// LeadWebhook accepts one lead from an authenticated lead source. New leads
// answer 201, leads merged into an existing Pro answer 200.
//
// @Summary Ingest a lead
// @Description Normalizes, deduplicates by email then phone, scores and stores an inbound lead
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param X-API-Key header string true "Lead source key"
// @Param request body ingest.LeadPayload true "Lead"
// @Success 200 {object} APIResponse{data=ingest.Result} "Merged"
// @Success 201 {object} APIResponse{data=ingest.Result} "Created"
// @Failure 400 {object} APIResponse "Rejected lead"
// @Failure 401 {object} APIResponse "Missing or unknown key"
// @Router /webhooks/leads [post]
func (h *Handler) LeadWebhook(w http.ResponseWriter, r *http.Request) {
	if h.ingest == nil || h.leadKeys == nil {
		NewResponseWriter(w, r).Error(http.StatusServiceUnavailable, ErrCodeInternalError, "lead intake is not configured")
		return
	}
	source, err := h.leadKeys.Authenticate(r.Header.Get(HeaderAPIKey))
	if err != nil {
		metrics.LeadsIngested.WithLabelValues("unknown", "unauthorized").Inc()
		NewResponseWriter(w, r).Unauthorized("invalid API key")
		return
	}

	body, ok := readBody(w, r, 64<<10)
	if !ok {
		return
	}
	ctx := logging.ContextWithUserID(r.Context(), "lead-source:"+source)
	res, err := h.ingest.Ingest(ctx, source, body)
	if err != nil {
		if res != nil && errors.Is(err, ingest.ErrInvalidLead) {
			NewResponseWriter(w, r).ErrorWithDetails(http.StatusBadRequest, ErrCodeValidationFailed, res.Error, res)
			return
		}
		writeServiceError(w, r, "ingest", err)
		return
	}

	if res.Status == models.LeadStatusCreated {
		NewResponseWriter(w, r).Created(res)
		return
	}
	NewResponseWriter(w, r).Success(res)
}

// StripeWebhook applies a signed Stripe event. Replays of an event already
// applied answer 200 so Stripe stops retrying.
//
// @Summary Receive a Stripe event
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param Stripe-Signature header string true "Stripe signature"
// @Success 200 {object} APIResponse
// @Failure 400 {object} APIResponse "Bad signature"
// @Router /webhooks/stripe [post]
func (h *Handler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	if h.payments == nil {
		NewResponseWriter(w, r).Error(http.StatusServiceUnavailable, ErrCodeExternalServiceFail, "payments are not configured")
		return
	}
	payload, ok := readBody(w, r, maxBodyBytes)
	if !ok {
		return
	}

	event, err := h.payments.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	switch {
	case errors.Is(err, payments.ErrDuplicateEvent):
		NewResponseWriter(w, r).Success(map[string]interface{}{"received": true, "duplicate": true})
		return
	case errors.Is(err, payments.ErrInvalidSignature):
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Rejected Stripe webhook")
		NewResponseWriter(w, r).BadRequest("invalid signature")
		return
	case err != nil:
		writeServiceError(w, r, "stripe", err)
		return
	}

	NewResponseWriter(w, r).Success(map[string]interface{}{"received": true, "id": event.ID, "type": event.Type})
}
