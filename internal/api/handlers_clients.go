// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package api

import (
	"context"
	"net/http"

	"github.com/tomtom215/owldoor/internal/audit"
	"github.com/tomtom215/owldoor/internal/models"
)

// ListClients lists clients. A client account sees only its own company.
//
// @Summary List clients
// @Tags Clients
// @Produce json
// @Security BearerAuth
// @Param status query string false "pending, active, past_due or canceled"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} APIResponse{data=[]models.Client}
// @Router /clients [get]
func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	s, ok := subject(w, r)
	if !ok {
		return
	}
	if !s.IsAdmin() {
		c, ok := h.callerClient(w, r, s)
		if !ok {
			return
		}
		NewResponseWriter(w, r).SuccessWithPagination([]*models.Client{c}, pagination(1, 1, 1, 0))
		return
	}

	limit, offset := pageParams(r)
	status := models.ClientStatus(r.URL.Query().Get("status"))
	clients, total, err := h.db.ListClients(r.Context(), status, limit, offset)
	if err != nil {
		writeServiceError(w, r, "database", err)
		return
	}
	NewResponseWriter(w, r).SuccessWithPagination(clients, pagination(total, len(clients), limit, offset))
}

// CreateClient registers a hiring company. Clients start pending until
// checkout activates a plan.
//
// @Summary Create a client
// @Tags Clients
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ClientRequest true "Client"
// @Success 201 {object} APIResponse{data=models.Client}
// @Failure 409 {object} APIResponse "Account already owns a client"
// @Router /clients [post]
func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	s, ok := subject(w, r)
	if !ok {
		return
	}
	var req ClientRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	c := &models.Client{OwnerUserID: s.ID, Status: models.ClientStatusPending}
	req.apply(c)
	if s.IsAdmin() {
		if req.OwnerUserID != "" {
			c.OwnerUserID = req.OwnerUserID
		}
		if err := req.applyAdmin(c); err != nil {
			writeServiceError(w, r, "clients", err)
			return
		}
	}
	if _, err := h.db.GetClientByOwner(r.Context(), c.OwnerUserID); err == nil {
		writeServiceError(w, r, "database", conflictf("account %s already owns a client", c.OwnerUserID))
		return
	}
	h.locateMarket(r.Context(), c)

	if err := h.db.CreateClient(r.Context(), c); err != nil {
		writeServiceError(w, r, "database", err)
		return
	}
	NewResponseWriter(w, r).Created(c)
}

// GetClient returns one client.
//
// @Summary Get a client
// @Tags Clients
// @Produce json
// @Security BearerAuth
// @Param id path string true "Client ID"
// @Success 200 {object} APIResponse{data=models.Client}
// @Router /clients/{id} [get]
func (h *Handler) GetClient(w http.ResponseWriter, r *http.Request) {
	s, ok := subject(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	c, ok := h.loadClient(w, r, s, id)
	if !ok {
		return
	}
	NewResponseWriter(w, r).Success(c)
}

// UpdateClient replaces a client's profile and hiring criteria. Billing
// fields change only through checkout, or by an admin.
//
// @Summary Update a client
// @Tags Clients
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Client ID"
// @Param request body ClientRequest true "Client"
// @Success 200 {object} APIResponse{data=models.Client}
// @Router /clients/{id} [put]
func (h *Handler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	s, ok := subject(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req ClientRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, ok := h.loadClient(w, r, s, id)
	if !ok {
		return
	}

	before := *c
	if req.apply(c) {
		h.locateMarket(r.Context(), c)
	}
	if s.IsAdmin() {
		if err := req.applyAdmin(c); err != nil {
			writeServiceError(w, r, "clients", err)
			return
		}
	}
	if err := h.db.UpdateClient(r.Context(), c); err != nil {
		writeServiceError(w, r, "database", err)
		return
	}

	h.auditFn(r, func(l *audit.Logger, actor audit.Actor, src audit.Source) {
		if before.Plan != c.Plan || before.Status != c.Status || before.LeadsPerMonth != c.LeadsPerMonth {
			l.LogClientPlanChange(r.Context(), actor, src, &before, c)
		}
		if s.IsAdmin() {
			l.LogAction(r.Context(), audit.EventClientUpdated, actor, src,
				audit.Target{Type: "client", ID: c.ID.String()}, "Client profile updated", nil)
		}
	})
	NewResponseWriter(w, r).Success(c)
}

// RunMatches matches the client against the current pro pool, up to the
// remaining monthly allowance.
//
// @Summary Run matching for a client
// @Tags Matches
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Client ID"
// @Param request body MatchRunRequest false "Optional limit"
// @Success 200 {object} APIResponse{data=matching.RunResult}
// @Failure 422 {object} APIResponse "Market address could not be located"
// @Router /clients/{id}/matches/run [post]
func (h *Handler) RunMatches(w http.ResponseWriter, r *http.Request) {
	if h.matching == nil {
		NewResponseWriter(w, r).Error(http.StatusServiceUnavailable, ErrCodeInternalError, "matching is not configured")
		return
	}
	s, ok := subject(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req MatchRunRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	if _, ok := h.loadClient(w, r, s, id); !ok {
		return
	}

	res, err := h.matching.Run(r.Context(), id, req.Limit)
	if err != nil {
		writeServiceError(w, r, "geocode", err)
		return
	}
	h.auditFn(r, func(l *audit.Logger, actor audit.Actor, src audit.Source) {
		l.LogAction(r.Context(), audit.EventMatchRun, actor, src, audit.Target{Type: "client", ID: id.String()},
			"Matching run", map[string]interface{}{"created": len(res.Created), "eligible": res.Eligible})
	})
	NewResponseWriter(w, r).Success(res)
}

// ListMatches lists a client's matches with their pros.
//
// @Summary List a client's matches
// @Tags Matches
// @Produce json
// @Security BearerAuth
// @Param id path string true "Client ID"
// @Param status query string false "Match status"
// @Success 200 {object} APIResponse{data=[]models.MatchWithPro}
// @Router /clients/{id}/matches [get]
func (h *Handler) ListMatches(w http.ResponseWriter, r *http.Request) {
	s, ok := subject(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	if _, ok := h.loadClient(w, r, s, id); !ok {
		return
	}
	matches, err := h.db.ListMatchesByClient(r.Context(), id, models.MatchStatus(r.URL.Query().Get("status")))
	if err != nil {
		writeServiceError(w, r, "database", err)
		return
	}
	if matches == nil {
		matches = []*models.MatchWithPro{}
	}
	NewResponseWriter(w, r).Success(matches)
}

// UpdateMatchStatus moves a match through pending, contacted, interviewing
// and hired or declined.
//
// @Summary Update a match's status
// @Tags Matches
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Match ID"
// @Param request body MatchStatusRequest true "New status"
// @Success 200 {object} APIResponse{data=models.Match}
// @Failure 409 {object} APIResponse "Transition not allowed"
// @Router /matches/{id}/status [put]
func (h *Handler) UpdateMatchStatus(w http.ResponseWriter, r *http.Request) {
	if h.matching == nil {
		NewResponseWriter(w, r).Error(http.StatusServiceUnavailable, ErrCodeInternalError, "matching is not configured")
		return
	}
	s, ok := subject(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req MatchStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	current, err := h.db.GetMatch(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, "database", err)
		return
	}
	if _, ok := h.loadClient(w, r, s, current.ClientID); !ok {
		return
	}

	m, err := h.matching.UpdateStatus(r.Context(), id, req.Status, req.Notes)
	if err != nil {
		writeServiceError(w, r, "matching", err)
		return
	}
	h.auditFn(r, func(l *audit.Logger, actor audit.Actor, src audit.Source) {
		l.LogMatchStatusChange(r.Context(), actor, src, id, current.Status, m.Status)
	})
	NewResponseWriter(w, r).Success(m)
}

func (h *Handler) locateMarket(ctx context.Context, c *models.Client) {
	if res := h.locate(ctx, c.MarketAddress); res != nil {
		c.SetLocation(models.GeoPoint{Lat: res.Lat, Lng: res.Lng})
	}
}
