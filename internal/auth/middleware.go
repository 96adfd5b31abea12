// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/owldoor/internal/logging"
)

// ErrorWriter writes a rejected request's response.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, status int, message string)

// PlainTextErrors is the default ErrorWriter.
func PlainTextErrors(w http.ResponseWriter, _ *http.Request, status int, message string) {
	http.Error(w, message, status)
}

// Middleware authenticates requests with bearer tokens.
type Middleware struct {
	manager     *JWTManager
	defaultRole string
	writeError  ErrorWriter
}

// NewMiddleware creates the authentication middleware. defaultRole is given
// to tokens that carry no application role.
func NewMiddleware(manager *JWTManager, defaultRole string) *Middleware {
	return &Middleware{manager: manager, defaultRole: defaultRole, writeError: PlainTextErrors}
}

// SetErrorWriter replaces how 401 and 403 responses are written.
func (m *Middleware) SetErrorWriter(fn ErrorWriter) {
	if fn == nil {
		fn = PlainTextErrors
	}
	m.writeError = fn
}

// Authenticate validates the request's token, rejecting it with 401 when
// missing or invalid, and stores the AuthSubject on the context.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, err := m.subject(r)
		if err != nil {
			logging.Ctx(r.Context()).Debug().Err(err).Str("path", r.URL.Path).Msg("Authentication failed")
			m.authError(w, r, err)
			return
		}
		ctx := WithSubject(r.Context(), subject)
		ctx = logging.ContextWithUserID(ctx, subject.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole allows admins and subjects holding one of roles.
func (m *Middleware) RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := GetAuthSubject(r.Context())
			if s == nil {
				m.writeError(w, r, http.StatusForbidden, "no authentication context")
				return
			}
			if s.IsAdmin() {
				next.ServeHTTP(w, r)
				return
			}
			for _, role := range roles {
				if s.HasRole(role) {
					next.ServeHTTP(w, r)
					return
				}
			}
			m.writeError(w, r, http.StatusForbidden, "insufficient permissions")
		})
	}
}

func (m *Middleware) subject(r *http.Request) (*AuthSubject, error) {
	token := extractToken(r)
	if token == "" {
		return nil, ErrNoCredentials
	}
	claims, err := m.manager.ValidateToken(token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredCredentials
		}
		return nil, ErrInvalidCredentials
	}
	return SubjectFromClaims(claims, m.defaultRole), nil
}

// extractToken reads the Authorization header, then the access_token query
// parameter that browsers use for websocket upgrades.
func extractToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("access_token")
}

func (m *Middleware) authError(w http.ResponseWriter, r *http.Request, err error) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="owldoor"`)
	msg := "invalid credentials"
	switch {
	case errors.Is(err, ErrNoCredentials):
		msg = "authentication required"
	case errors.Is(err, ErrExpiredCredentials):
		msg = "credentials expired"
	}
	m.writeError(w, r, http.StatusUnauthorized, msg)
}
