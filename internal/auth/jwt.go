// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

// Package auth validates the HS256 access tokens issued by the hosted auth
// provider and turns them into an AuthSubject on the request context.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/owldoor/internal/config"
)

// Metadata is the app_metadata claim. Only the server can write it, so the
// role found there wins over the top-level role claim.
type Metadata struct {
	Role string `json:"role,omitempty"`
}

// Claims are the access token claims OwlDoor reads.
type Claims struct {
	Email       string   `json:"email,omitempty"`
	Role        string   `json:"role,omitempty"`
	AppMetadata Metadata `json:"app_metadata,omitempty"`
	jwt.RegisteredClaims
}

// JWTManager signs and validates tokens with a shared secret.
type JWTManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewJWTManager creates a manager from the security config.
func NewJWTManager(cfg *config.SecurityConfig) (*JWTManager, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("security.jwt_secret is required")
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &JWTManager{secret: []byte(cfg.JWTSecret), issuer: cfg.JWTIssuer, ttl: ttl}, nil
}

// GenerateToken mints a token for subject with role stored in app_metadata.
// Production tokens come from the auth provider; this serves the CLI and
// tests.
func (m *JWTManager) GenerateToken(subject, email, role string) (string, error) {
	now := time.Now()
	claims := &Claims{
		Email:       email,
		Role:        "authenticated",
		AppMetadata: Metadata{Role: role},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    m.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken checks the signature, algorithm, expiry and, when configured,
// the issuer.
func (m *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30 * time.Second),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}
