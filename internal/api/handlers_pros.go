// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/tomtom215/owldoor/internal/audit"
	"github.com/tomtom215/owldoor/internal/logging"
	"github.com/tomtom215/owldoor/internal/metrics"
	"github.com/tomtom215/owldoor/internal/models"
	"github.com/tomtom215/owldoor/internal/scoring"
)

// ListPros lists pros for the admin pipeline view.
//
// @Summary List pros
// @Tags Pros
// @Produce json
// @Security BearerAuth
// @Param pro_type query string false "agent or loan_officer"
// @Param stage query string false "Pipeline stage"
// @Param status query string false "Recruiting status"
// @Param state query string false "Two-letter state"
// @Param min_score query int false "Minimum score"
// @Param q query string false "Search name, email or brokerage"
// @Param limit query int false "Page size (max 500)"
// @Param offset query int false "Offset"
// @Success 200 {object} APIResponse{data=[]models.Pro}
// @Router /pros [get]
func (h *Handler) ListPros(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset := pageParams(r)
	f := models.ProFilter{
		Type:     models.ProType(q.Get("pro_type")),
		Stage:    models.Stage(q.Get("stage")),
		Status:   models.ProStatus(q.Get("status")),
		State:    strings.ToUpper(q.Get("state")),
		MinScore: getIntParam(r, "min_score", 0),
		Search:   strings.TrimSpace(q.Get("q")),
		Limit:    limit,
		Offset:   offset,
	}
	if f.Type != "" && !f.Type.Valid() {
		NewResponseWriter(w, r).BadRequest("pro_type must be agent or loan_officer")
		return
	}
	if f.Stage != "" && !f.Stage.Valid() {
		NewResponseWriter(w, r).BadRequest("unknown stage")
		return
	}

	pros, total, err := h.db.ListPros(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, "database", err)
		return
	}
	NewResponseWriter(w, r).SuccessWithPagination(pros, pagination(total, len(pros), limit, offset))
}

// CreatePro adds a pro by hand. The score and stage are computed.
//
// @Summary Create a pro
// @Tags Pros
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ProRequest true "Pro"
// @Success 201 {object} APIResponse{data=models.Pro}
// @Failure 409 {object} APIResponse "Email or phone already on file"
// @Router /pros [post]
func (h *Handler) CreatePro(w http.ResponseWriter, r *http.Request) {
	var req ProRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p := &models.Pro{Source: "manual", Status: models.ProStatusActive}
	if _, err := req.apply(p); err != nil {
		writeServiceError(w, r, "pros", err)
		return
	}
	if req.Status != "" {
		p.Status = req.Status
	}
	if err := h.checkContactFree(r.Context(), p); err != nil {
		writeServiceError(w, r, "database", err)
		return
	}
	h.rescore(r.Context(), p, true)

	if err := h.db.CreatePro(r.Context(), p); err != nil {
		writeServiceError(w, r, "database", err)
		return
	}
	event := models.NewProEvent(p)
	h.publish(r.Context(), models.TopicProCreated, event)
	h.publish(r.Context(), models.TopicProScored, event)
	NewResponseWriter(w, r).Created(p)
}

// GetPro returns one pro.
//
// @Summary Get a pro
// @Tags Pros
// @Produce json
// @Security BearerAuth
// @Param id path string true "Pro ID"
// @Success 200 {object} APIResponse{data=models.Pro}
// @Failure 404 {object} APIResponse
// @Router /pros/{id} [get]
func (h *Handler) GetPro(w http.ResponseWriter, r *http.Request) {
	s, ok := subject(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	p, ok := h.loadPro(w, r, s, id)
	if !ok {
		return
	}
	NewResponseWriter(w, r).Success(p)
}

// UpdatePro replaces a pro's editable fields and rescores it. Only admins
// may change the recruiting status.
//
// @Summary Update a pro
// @Tags Pros
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Pro ID"
// @Param request body ProRequest true "Pro"
// @Success 200 {object} APIResponse{data=models.Pro}
// @Router /pros/{id} [put]
func (h *Handler) UpdatePro(w http.ResponseWriter, r *http.Request) {
	s, ok := subject(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req ProRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, ok := h.loadPro(w, r, s, id)
	if !ok {
		return
	}
	if !s.IsAdmin() && p.UserID != s.ID {
		NewResponseWriter(w, r).Forbidden("only the pro or an admin may edit this profile")
		return
	}

	before := *p
	moved, err := req.apply(p)
	if err != nil {
		writeServiceError(w, r, "pros", err)
		return
	}
	if s.IsAdmin() && req.Status != "" {
		p.Status = req.Status
	}
	if p.Email != before.Email || p.Phone != before.Phone {
		if err := h.checkContactFree(r.Context(), p); err != nil {
			writeServiceError(w, r, "database", err)
			return
		}
	}
	h.rescore(r.Context(), p, moved)

	if err := h.db.UpdatePro(r.Context(), p); err != nil {
		writeServiceError(w, r, "database", err)
		return
	}

	if s.IsAdmin() {
		h.auditFn(r, func(l *audit.Logger, actor audit.Actor, src audit.Source) {
			target := audit.Target{Type: "pro", ID: p.ID.String()}
			if before.Status != p.Status {
				l.LogAction(r.Context(), audit.EventProStatusChanged, actor, src, target,
					"Status changed from "+string(before.Status)+" to "+string(p.Status),
					map[string]interface{}{"from": before.Status, "to": p.Status})
			}
			l.LogAction(r.Context(), audit.EventProUpdated, actor, src, target, "Pro profile updated",
				map[string]interface{}{"score": p.Score, "stage": p.Stage})
		})
	}
	if before.Score != p.Score || before.Stage != p.Stage {
		h.publish(r.Context(), models.TopicProScored, models.NewProEvent(p))
	}
	NewResponseWriter(w, r).Success(p)
}

// DeletePro removes a pro and its matches.
//
// @Summary Delete a pro
// @Tags Pros
// @Security BearerAuth
// @Param id path string true "Pro ID"
// @Success 204 "Deleted"
// @Failure 404 {object} APIResponse
// @Router /pros/{id} [delete]
func (h *Handler) DeletePro(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	p, err := h.db.GetPro(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, "database", err)
		return
	}
	if err := h.db.DeletePro(r.Context(), id); err != nil {
		writeServiceError(w, r, "database", err)
		return
	}
	h.auditFn(r, func(l *audit.Logger, actor audit.Actor, src audit.Source) {
		l.LogProDeleted(r.Context(), actor, src, p)
	})
	NewResponseWriter(w, r).NoContent()
}

// OverrideStage moves a pro to a pipeline stage by hand. The override holds
// until the pro's numbers change and it is rescored.
//
// @Summary Override a pro's stage
// @Tags Pros
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Pro ID"
// @Param request body StageRequest true "Stage"
// @Success 200 {object} APIResponse{data=models.Pro}
// @Router /pros/{id}/stage [put]
func (h *Handler) OverrideStage(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req StageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.db.GetPro(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, "database", err)
		return
	}
	from := p.Stage
	if from != req.Stage {
		if err := h.db.UpdateProStage(r.Context(), id, req.Stage); err != nil {
			writeServiceError(w, r, "database", err)
			return
		}
		p.Stage = req.Stage
		h.auditFn(r, func(l *audit.Logger, actor audit.Actor, src audit.Source) {
			l.LogStageOverride(r.Context(), actor, src, id, from, req.Stage)
		})
		h.publish(r.Context(), models.TopicProScored, models.NewProEvent(p))
	}
	NewResponseWriter(w, r).Success(p)
}

// rescore recomputes score and stage, geocoding first when the location
// changed or was never resolved.
func (h *Handler) rescore(ctx context.Context, p *models.Pro, locate bool) {
	if locate || !p.HasLocation() {
		if res := h.locate(ctx, p.AddressQuery()); res != nil {
			p.SetLocation(models.GeoPoint{Lat: res.Lat, Lng: res.Lng})
			if p.City == "" {
				p.City = res.City
			}
			if p.State == "" {
				p.State = res.State
			}
		}
	}
	res := scoring.Apply(p)
	metrics.ProsScored.WithLabelValues(string(p.Type)).Observe(float64(res.Score))
	logging.Ctx(ctx).Debug().Str("pro_id", p.ID.String()).Int("score", res.Score).Str("stage", string(res.Stage)).Msg("Pro scored")
}

// checkContactFree reports ErrConflict when another pro already holds p's
// email or phone, since lead intake deduplicates on both.
func (h *Handler) checkContactFree(ctx context.Context, p *models.Pro) error {
	if p.Email != "" {
		if other, err := h.db.GetProByEmail(ctx, p.Email); err == nil && other.ID != p.ID {
			return conflictf("email %s is already on file", logging.RedactEmail(p.Email))
		}
	}
	if p.Phone != "" {
		if other, err := h.db.GetProByPhone(ctx, p.Phone); err == nil && other.ID != p.ID {
			return conflictf("phone %s is already on file", logging.RedactPhone(p.Phone))
		}
	}
	return nil
}
