// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/tomtom215/owldoor/internal/models"
)

// Checkout prices the requested plan and opens a Stripe Checkout session.
// The client's plan is activated when Stripe reports the session complete.
//
// @Summary Start a subscription checkout
// @Tags Payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CheckoutRequest true "Plan selection"
// @Success 201 {object} APIResponse{data=payments.Checkout}
// @Failure 400 {object} APIResponse "Invalid plan selection"
// @Failure 502 {object} APIResponse "Stripe unavailable"
// @Router /payments/checkout [post]
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	if h.payments == nil {
		NewResponseWriter(w, r).Error(http.StatusServiceUnavailable, ErrCodeExternalServiceFail, "payments are not configured")
		return
	}
	s, ok := subject(w, r)
	if !ok {
		return
	}
	var req CheckoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var client *models.Client
	switch {
	case s.IsAdmin() && req.ClientID != "":
		client, ok = h.loadClient(w, r, s, uuid.MustParse(req.ClientID))
	case s.IsAdmin():
		NewResponseWriter(w, r).BadRequest("client_id is required when checking out as an admin")
		return
	default:
		client, ok = h.callerClient(w, r, s)
	}
	if !ok {
		return
	}

	quote, err := h.pricing.Quote(req.Request)
	if err != nil {
		writeServiceError(w, r, "pricing", err)
		return
	}
	checkout, err := h.payments.CreateCheckoutSession(r.Context(), client, quote, "", "")
	if err != nil {
		writeServiceError(w, r, "stripe", err)
		return
	}
	NewResponseWriter(w, r).Created(checkout)
}
