// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/tomtom215/owldoor/internal/logging"
)

type contextKey string

const RequestIDKey contextKey = "request_id"

const (
	HeaderRequestID     = "X-Request-ID"
	HeaderCorrelationID = "X-Correlation-ID"
	maxInboundIDLength  = 64
)

// RequestID accepts an upstream X-Request-ID or generates one, echoes it in
// the response and stores it in the request context. An inbound
// X-Correlation-ID is kept so a lead webhook can be traced through the event
// bus; otherwise a new correlation ID is generated.
func RequestID(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := inboundID(r.Header.Get(HeaderRequestID))
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set(HeaderRequestID, requestID)

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		ctx = logging.ContextWithRequestID(ctx, requestID)
		if corr := inboundID(r.Header.Get(HeaderCorrelationID)); corr != "" {
			ctx = logging.ContextWithCorrelationID(ctx, corr)
		} else {
			ctx = logging.ContextWithNewCorrelationID(ctx)
		}
		w.Header().Set(HeaderCorrelationID, logging.CorrelationIDFromContext(ctx))

		next(w, r.WithContext(ctx))
	}
}

// inboundID accepts short IDs made of letters, digits, '-', '_' and '.'.
// Anything else is discarded rather than echoed into headers and logs.
func inboundID(id string) string {
	if id == "" || len(id) > maxInboundIDLength {
		return ""
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-' || c == '_' || c == '.':
		default:
			return ""
		}
	}
	return id
}

// GetRequestID extracts the request ID from context.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}
