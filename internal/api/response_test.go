// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tomtom215/owldoor/internal/ai"
	"github.com/tomtom215/owldoor/internal/database"
	"github.com/tomtom215/owldoor/internal/matching"
	"github.com/tomtom215/owldoor/internal/onboarding"
	"github.com/tomtom215/owldoor/internal/payments"
	"github.com/tomtom215/owldoor/internal/pricing"
	"github.com/tomtom215/owldoor/internal/resilience"
)

func TestResponseWriterEnvelope(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)

	rec := httptest.NewRecorder()
	NewResponseWriter(rec, req).SuccessWithPagination([]int{1, 2}, pagination(10, 2, 2, 4))
	expectStatus(t, rec, http.StatusOK)
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	env := decode(t, rec, nil)
	if !env.Success || env.Metadata == nil || env.Metadata.Pagination == nil {
		t.Fatalf("envelope = %s", rec.Body.String())
	}
	if p := env.Metadata.Pagination; p.Total != 10 || !p.HasMore {
		t.Errorf("pagination = %+v", p)
	}

	rec = httptest.NewRecorder()
	NewResponseWriter(rec, req).ValidationError("bad input", map[string]string{"email": "required"})
	expectStatus(t, rec, http.StatusBadRequest)
	env = decode(t, rec, nil)
	if env.Success || env.Error == nil || env.Error.Code != ErrCodeValidationFailed || env.Error.Details == nil {
		t.Errorf("validation envelope = %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	NewResponseWriter(rec, req).NoContent()
	expectStatus(t, rec, http.StatusNoContent)
	if rec.Body.Len() != 0 {
		t.Error("204 must have no body")
	}
}

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", fmt.Errorf("pro 1: %w", database.ErrNotFound), http.StatusNotFound, ErrCodeNotFound},
		{"conflict", conflictf("email taken"), http.StatusConflict, ErrCodeConflict},
		{"bad transition", matching.ErrInvalidTransition, http.StatusConflict, ErrCodeConflict},
		{"step order", onboarding.ErrStepOutOfOrder, http.StatusConflict, ErrCodeConflict},
		{"no market", matching.ErrNoMarket, http.StatusUnprocessableEntity, ErrCodeValidationFailed},
		{"unknown plan", pricing.ErrUnknownPlan, http.StatusBadRequest, ErrCodeBadRequest},
		{"bad signature", payments.ErrInvalidSignature, http.StatusBadRequest, ErrCodeBadRequest},
		{"no ai providers", ai.ErrNoProviders, http.StatusServiceUnavailable, ErrCodeExternalServiceFail},
		{"stripe off", payments.ErrNotConfigured, http.StatusServiceUnavailable, ErrCodeExternalServiceFail},
		{"circuit open", resilience.ErrCircuitOpen, http.StatusBadGateway, ErrCodeExternalServiceFail},
		{"timeout", context.DeadlineExceeded, http.StatusBadGateway, ErrCodeExternalServiceFail},
		{"canceled", context.Canceled, 499, ErrCodeInternalError},
		{"anything else", errors.New("disk full"), http.StatusInternalServerError, ErrCodeDatabaseError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			rec := httptest.NewRecorder()
			writeServiceError(rec, req, "test", tt.err)
			expectStatus(t, rec, tt.status)
			if env := decode(t, rec, nil); env.Error == nil || env.Error.Code != tt.code {
				t.Errorf("code = %+v, want %s", env.Error, tt.code)
			}
		})
	}
}

func TestPageParams(t *testing.T) {
	tests := []struct {
		query         string
		limit, offset int
	}{
		{"", defaultPageSize, 0},
		{"limit=10&offset=20", 10, 20},
		{"limit=0&offset=-5", defaultPageSize, 0},
		{"limit=100000", maxPageSize, 0},
		{"limit=abc", defaultPageSize, 0},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/x?"+tt.query, nil)
		limit, offset := pageParams(req)
		if limit != tt.limit || offset != tt.offset {
			t.Errorf("%q: got %d/%d, want %d/%d", tt.query, limit, offset, tt.limit, tt.offset)
		}
	}
}
