// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package auth

import (
	"context"
	"errors"
)

// Application roles.
const (
	RoleAdmin  = "admin"
	RoleClient = "client"
	RolePro    = "pro"
)

var (
	ErrNoCredentials      = errors.New("no credentials provided")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrExpiredCredentials = errors.New("credentials expired")
)

// AuthSubject is an authenticated caller.
type AuthSubject struct {
	ID        string   `json:"id"`
	Email     string   `json:"email,omitempty"`
	Roles     []string `json:"roles"`
	Issuer    string   `json:"issuer,omitempty"`
	ExpiresAt int64    `json:"expires_at,omitempty"`
}

// HasRole reports whether the subject holds role.
func (s *AuthSubject) HasRole(role string) bool {
	for _, r := range s.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the subject is an administrator.
func (s *AuthSubject) IsAdmin() bool { return s.HasRole(RoleAdmin) }

// Role returns the subject's primary role.
func (s *AuthSubject) Role() string {
	if len(s.Roles) == 0 {
		return ""
	}
	return s.Roles[0]
}

// ValidRole reports whether role is an application role.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleClient || role == RolePro
}

// RoleFromClaims maps token claims to an application role. app_metadata.role
// is preferred; the top-level role is used when it names an application role
// (the auth provider sets it to "authenticated" otherwise). defaultRole
// applies when neither does.
func RoleFromClaims(c *Claims, defaultRole string) string {
	if ValidRole(c.AppMetadata.Role) {
		return c.AppMetadata.Role
	}
	if ValidRole(c.Role) {
		return c.Role
	}
	return defaultRole
}

// SubjectFromClaims builds an AuthSubject from validated claims.
func SubjectFromClaims(c *Claims, defaultRole string) *AuthSubject {
	s := &AuthSubject{ID: c.Subject, Email: c.Email, Issuer: c.Issuer}
	if role := RoleFromClaims(c, defaultRole); role != "" {
		s.Roles = []string{role}
	}
	if c.ExpiresAt != nil {
		s.ExpiresAt = c.ExpiresAt.Unix()
	}
	return s
}

type contextKey string

const subjectContextKey contextKey = "auth_subject"

// WithSubject returns ctx carrying s.
func WithSubject(ctx context.Context, s *AuthSubject) context.Context {
	return context.WithValue(ctx, subjectContextKey, s)
}

// GetAuthSubject returns the subject on ctx, or nil.
func GetAuthSubject(ctx context.Context) *AuthSubject {
	s, _ := ctx.Value(subjectContextKey).(*AuthSubject)
	return s
}
