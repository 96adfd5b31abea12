// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package api

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/tomtom215/owldoor/internal/audit"
	"github.com/tomtom215/owldoor/internal/auth"
	"github.com/tomtom215/owldoor/internal/database"
	"github.com/tomtom215/owldoor/internal/models"
)

// Casbin decides which role reaches a route; the checks here decide which
// records a non-admin caller may touch on it.

// subject returns the authenticated caller, writing 401 when absent.
func subject(w http.ResponseWriter, r *http.Request) (*auth.AuthSubject, bool) {
	s := auth.GetAuthSubject(r.Context())
	if s == nil {
		NewResponseWriter(w, r).Unauthorized("authentication required")
		return nil, false
	}
	return s, true
}

// callerClient returns the Client owned by s. ok is false (and a response
// has been written) when s owns none.
func (h *Handler) callerClient(w http.ResponseWriter, r *http.Request, s *auth.AuthSubject) (*models.Client, bool) {
	c, err := h.db.GetClientByOwner(r.Context(), s.ID)
	if errors.Is(err, database.ErrNotFound) {
		NewResponseWriter(w, r).NotFound("no client profile for this account")
		return nil, false
	}
	if err != nil {
		writeServiceError(w, r, "database", err)
		return nil, false
	}
	return c, true
}

// loadClient fetches a Client the caller may see. Non-admins see only the
// client they own; others are reported as missing.
func (h *Handler) loadClient(w http.ResponseWriter, r *http.Request, s *auth.AuthSubject, id uuid.UUID) (*models.Client, bool) {
	c, err := h.db.GetClient(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, "database", err)
		return nil, false
	}
	if !s.IsAdmin() && c.OwnerUserID != s.ID {
		NewResponseWriter(w, r).NotFound("client not found")
		return nil, false
	}
	return c, true
}

// loadPro fetches a Pro the caller may see: admins see all, a pro sees its
// own profile and a client sees pros it has been matched with.
func (h *Handler) loadPro(w http.ResponseWriter, r *http.Request, s *auth.AuthSubject, id uuid.UUID) (*models.Pro, bool) {
	p, err := h.db.GetPro(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, "database", err)
		return nil, false
	}
	if s.IsAdmin() || (p.UserID != "" && p.UserID == s.ID) {
		return p, true
	}
	if s.HasRole(auth.RoleClient) {
		c, err := h.db.GetClientByOwner(r.Context(), s.ID)
		if err == nil {
			matched, err := h.db.MatchedProIDs(r.Context(), c.ID)
			if err != nil {
				writeServiceError(w, r, "database", err)
				return nil, false
			}
			if _, ok := matched[p.ID]; ok {
				return p, true
			}
		} else if !errors.Is(err, database.ErrNotFound) {
			writeServiceError(w, r, "database", err)
			return nil, false
		}
	}
	NewResponseWriter(w, r).NotFound("pro not found")
	return nil, false
}

// auditFn records one audit event when the trail is enabled.
func (h *Handler) auditFn(r *http.Request, fn func(l *audit.Logger, actor audit.Actor, src audit.Source)) {
	if h.audit == nil {
		return
	}
	fn(h.audit, audit.ActorFromSubject(auth.GetAuthSubject(r.Context())), audit.SourceFromRequest(r))
}
