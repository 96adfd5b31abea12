// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package authz

import (
	"net/http"

	"github.com/tomtom215/owldoor/internal/auth"
	"github.com/tomtom215/owldoor/internal/logging"
	"github.com/tomtom215/owldoor/internal/metrics"
)

// Middleware authorizes requests by path and method.
type Middleware struct {
	enforcer   *Enforcer
	writeError auth.ErrorWriter
}

// NewMiddleware creates the authorization middleware.
func NewMiddleware(enforcer *Enforcer) *Middleware {
	return &Middleware{enforcer: enforcer, writeError: auth.PlainTextErrors}
}

// SetErrorWriter replaces how denials are written.
func (m *Middleware) SetErrorWriter(fn auth.ErrorWriter) {
	if fn == nil {
		fn = auth.PlainTextErrors
	}
	m.writeError = fn
}

// AuthorizeRequest checks the subject's roles against the request path and
// the action derived from the method. It must run after authentication.
func (m *Middleware) AuthorizeRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject := auth.GetAuthSubject(r.Context())
		if subject == nil {
			m.writeError(w, r, http.StatusForbidden, "no authentication context")
			return
		}

		action := MethodToAction(r.Method)
		allowed, role, err := m.enforcer.EnforceRoles(subject.Roles, r.URL.Path, action)
		if err != nil {
			logging.Ctx(r.Context()).Error().Err(err).Msg("Authorization error")
			m.writeError(w, r, http.StatusInternalServerError, "authorization check failed")
			return
		}
		if !allowed {
			metrics.AuthzDecisions.WithLabelValues(subject.Role(), "deny").Inc()
			logging.Ctx(r.Context()).Info().
				Strs("roles", subject.Roles).
				Str("path", r.URL.Path).
				Str("action", action).
				Msg("Access denied")
			m.writeError(w, r, http.StatusForbidden, "insufficient permissions")
			return
		}
		metrics.AuthzDecisions.WithLabelValues(role, "allow").Inc()
		next.ServeHTTP(w, r)
	})
}

// MethodToAction maps HTTP methods to policy actions.
func MethodToAction(method string) string {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return "write"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}
