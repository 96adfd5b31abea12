// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// OnboardingProgress returns the caller's progress through a wizard.
//
// @Summary Get onboarding progress
// @Tags Onboarding
// @Produce json
// @Security BearerAuth
// @Param kind path string true "pro or client"
// @Success 200 {object} APIResponse{data=onboarding.View}
// @Failure 404 {object} APIResponse "Unknown wizard"
// @Router /onboarding/{kind} [get]
func (h *Handler) OnboardingProgress(w http.ResponseWriter, r *http.Request) {
	if h.onboarding == nil {
		NewResponseWriter(w, r).Error(http.StatusServiceUnavailable, ErrCodeInternalError, "onboarding is not configured")
		return
	}
	s, ok := subject(w, r)
	if !ok {
		return
	}
	view, err := h.onboarding.Progress(r.Context(), s.ID, chi.URLParam(r, "kind"))
	if err != nil {
		writeServiceError(w, r, "onboarding", err)
		return
	}
	NewResponseWriter(w, r).Success(view)
}

// OnboardingStep saves one wizard step. Completing the last step writes the
// pro or client record.
//
// @Summary Submit an onboarding step
// @Tags Onboarding
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param kind path string true "pro or client"
// @Param step path string true "Step name"
// @Success 200 {object} APIResponse{data=onboarding.View}
// @Failure 400 {object} APIResponse "Malformed step"
// @Failure 409 {object} APIResponse "Earlier steps incomplete"
// @Router /onboarding/{kind}/steps/{step} [put]
func (h *Handler) OnboardingStep(w http.ResponseWriter, r *http.Request) {
	if h.onboarding == nil {
		NewResponseWriter(w, r).Error(http.StatusServiceUnavailable, ErrCodeInternalError, "onboarding is not configured")
		return
	}
	s, ok := subject(w, r)
	if !ok {
		return
	}
	body, ok := readBody(w, r, 64<<10)
	if !ok {
		return
	}
	view, err := h.onboarding.SubmitStep(r.Context(), s.ID, chi.URLParam(r, "kind"), chi.URLParam(r, "step"), body)
	if err != nil {
		writeServiceError(w, r, "onboarding", err)
		return
	}
	NewResponseWriter(w, r).Success(view)
}
