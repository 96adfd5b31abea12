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

	"github.com/tomtom215/owldoor/internal/ai"
	"github.com/tomtom215/owldoor/internal/database"
	"github.com/tomtom215/owldoor/internal/geocode"
	"github.com/tomtom215/owldoor/internal/ingest"
	"github.com/tomtom215/owldoor/internal/matching"
	"github.com/tomtom215/owldoor/internal/notify"
	"github.com/tomtom215/owldoor/internal/onboarding"
	"github.com/tomtom215/owldoor/internal/payments"
	"github.com/tomtom215/owldoor/internal/pricing"
	"github.com/tomtom215/owldoor/internal/resilience"
	"github.com/tomtom215/owldoor/internal/validation"
)

// badRequestErrors are caller mistakes reported as 400 with the error text.
var badRequestErrors = []error{
	geocode.ErrInvalidQuery,
	pricing.ErrUnknownPlan,
	pricing.ErrUnknownAddOn,
	pricing.ErrUnknownPromo,
	pricing.ErrPromoMinPlan,
	pricing.ErrInvalidSeats,
	pricing.ErrInvalidPacks,
	pricing.ErrInvalidPeriod,
	ingest.ErrInvalidLead,
	notify.ErrUnknownChannel,
	notify.ErrInvalidMessage,
	notify.ErrUnknownTemplate,
	ai.ErrInvalidConversation,
	onboarding.ErrMalformedStep,
	payments.ErrZeroAmount,
	payments.ErrInvalidSignature,
}

// writeServiceError maps an error returned by a service package to the
// envelope. service names the upstream for 502 responses.
func writeServiceError(w http.ResponseWriter, r *http.Request, service string, err error) {
	rw := NewResponseWriter(w, r)

	var verr *validation.RequestValidationError
	if errors.As(err, &verr) {
		apiErr := verr.ToAPIError()
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}

	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			rw.BadRequest(err.Error())
			return
		}
	}

	switch {
	case errors.Is(err, database.ErrNotFound),
		errors.Is(err, geocode.ErrNotFound),
		errors.Is(err, onboarding.ErrUnknownWizard),
		errors.Is(err, onboarding.ErrUnknownStep):
		rw.NotFound(err.Error())
	case errors.Is(err, database.ErrConflict),
		errors.Is(err, matching.ErrInvalidTransition),
		errors.Is(err, onboarding.ErrStepOutOfOrder),
		errors.Is(err, payments.ErrDuplicateEvent):
		rw.Conflict(err.Error())
	case errors.Is(err, matching.ErrNoMarket):
		rw.Error(http.StatusUnprocessableEntity, ErrCodeValidationFailed, err.Error())
	case errors.Is(err, ai.ErrNoProviders),
		errors.Is(err, payments.ErrNotConfigured):
		rw.Error(http.StatusServiceUnavailable, ErrCodeExternalServiceFail, err.Error())
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, geocode.ErrProviderUnavailable),
		errors.Is(err, resilience.ErrCircuitOpen),
		resilience.IsTransient(err),
		resilience.IsFatal(err):
		rw.ExternalServiceError(service, err)
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful to write.
		rw.Error(499, ErrCodeInternalError, "request canceled")
	default:
		rw.DatabaseError(err)
	}
}

// conflictf formats an error wrapping database.ErrConflict.
func conflictf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, database.ErrConflict)...)
}
