// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package api

import (
	"net/http"

	"github.com/tomtom215/owldoor/internal/models"
	"github.com/tomtom215/owldoor/internal/pricing"
	"github.com/tomtom215/owldoor/internal/scoring"
)

// Score computes a qualification score without storing anything.
//
// @Summary Score a pro
// @Description Computes the 0-100 qualification score and pipeline stage from production numbers
// @Tags Public
// @Accept json
// @Produce json
// @Param request body ScoreRequest true "Production numbers"
// @Success 200 {object} APIResponse{data=scoring.Result}
// @Failure 400 {object} APIResponse "Validation failed"
// @Router /score [post]
func (h *Handler) Score(w http.ResponseWriter, r *http.Request) {
	var req ScoreRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ProType == "" {
		req.ProType = models.ProTypeAgent
	}

	res := scoring.Score(scoring.Inputs{
		Type:          req.ProType,
		Transactions:  req.Transactions,
		VolumeUSD:     req.VolumeUSD,
		YearsLicensed: req.YearsLicensed,
	})
	NewResponseWriter(w, r).Success(res)
}

// Quote prices a plan with seats, add-ons, lead packs and a promo code.
//
// @Summary Price a subscription
// @Description Applies the annual, seat volume and promo discounts in that order
// @Tags Public
// @Accept json
// @Produce json
// @Param request body QuoteRequest true "Quote request"
// @Success 200 {object} APIResponse{data=pricing.Quote}
// @Failure 400 {object} APIResponse "Unknown plan, add-on or promo code"
// @Router /pricing/quote [post]
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	quote, err := h.pricing.Quote(req)
	if err != nil {
		writeServiceError(w, r, "pricing", err)
		return
	}
	NewResponseWriter(w, r).Success(quote)
}

// PlanCatalog is the body of GET /pricing/plans.
type PlanCatalog struct {
	Plans  []pricing.Plan  `json:"plans"`
	AddOns []pricing.AddOn `json:"add_ons"`
}

// Plans lists the subscription catalog.
//
// @Summary List plans and add-ons
// @Tags Public
// @Produce json
// @Success 200 {object} APIResponse{data=PlanCatalog}
// @Router /pricing/plans [get]
func (h *Handler) Plans(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=300")
	NewResponseWriter(w, r).Success(PlanCatalog{Plans: pricing.Plans(), AddOns: pricing.AddOns()})
}
