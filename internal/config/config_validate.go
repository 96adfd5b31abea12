// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package config

import (
	"fmt"
	"strings"
)

const minJWTSecretLength = 32

var (
	validEnvironments = map[string]bool{"development": true, "staging": true, "production": true}
	validGeocoders    = map[string]bool{"local": true, "google": true, "nominatim": true, "mapbox": true}
	validAIProviders  = map[string]bool{"openai": true, "anthropic": true, "gemini": true}
	validLogLevels    = map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	validLogFormats   = map[string]bool{"json": true, "console": true}
	validDefaultRoles = map[string]bool{"admin": true, "client": true, "pro": true}
	validPromoKinds   = map[string]bool{"percent": true, "fixed": true}
)

// Validate checks that required configuration is present and consistent.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	if err := c.validateGeocode(); err != nil {
		return err
	}
	if err := c.validateMessaging(); err != nil {
		return err
	}
	if err := c.validateAI(); err != nil {
		return err
	}
	if err := c.validatePricing(); err != nil {
		return err
	}
	if err := c.validateMatching(); err != nil {
		return err
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return fmt.Errorf("audit.buffer_size must be positive")
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if !validEnvironments[c.Server.Environment] {
		return fmt.Errorf("server.environment must be development, staging or production, got %q", c.Server.Environment)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if c.IsProduction() && len(c.Security.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in production", minJWTSecretLength)
	}
	if !c.Security.RateLimitDisabled && (c.Security.RateLimitReqs <= 0 || c.Security.RateLimitWindow <= 0) {
		return fmt.Errorf("rate limit requests and window must be positive when rate limiting is enabled")
	}
	if c.IsProduction() {
		for _, origin := range c.Security.CORSOrigins {
			if origin == "*" {
				return fmt.Errorf("CORS_ORIGINS must not contain '*' in production")
			}
		}
	}
	for _, entry := range c.Security.LeadSourceKeys {
		name, hash, ok := strings.Cut(entry, ":")
		if !ok || strings.TrimSpace(name) == "" || !strings.HasPrefix(strings.TrimSpace(hash), "$2") {
			return fmt.Errorf("lead source key %q must look like name:<bcrypt hash>", name)
		}
	}
	if !validDefaultRoles[c.Security.Casbin.DefaultRole] {
		return fmt.Errorf("casbin default role must be admin, client or pro, got %q", c.Security.Casbin.DefaultRole)
	}
	return nil
}

func (c *Config) validateGeocode() error {
	g := c.Geocode
	if len(g.Providers) == 0 {
		return fmt.Errorf("geocode.providers must list at least one provider")
	}
	for _, p := range g.Providers {
		if !validGeocoders[p] {
			return fmt.Errorf("unknown geocode provider %q", p)
		}
	}
	if g.NominatimRPS <= 0 || g.GoogleRPS <= 0 || g.MapboxRPS <= 0 {
		return fmt.Errorf("geocode provider rate limits must be positive")
	}
	if g.RequestTimeout <= 0 {
		return fmt.Errorf("geocode.request_timeout must be positive")
	}
	return nil
}

func (c *Config) validateMessaging() error {
	if c.Twilio.Enabled {
		if c.Twilio.AccountSID == "" || c.Twilio.AuthToken == "" {
			return fmt.Errorf("TWILIO_ACCOUNT_SID and TWILIO_AUTH_TOKEN are required when Twilio is enabled")
		}
		if !strings.HasPrefix(c.Twilio.FromNumber, "+") {
			return fmt.Errorf("TWILIO_FROM_NUMBER must be in E.164 format when Twilio is enabled")
		}
	}
	if c.SendGrid.Enabled {
		if c.SendGrid.APIKey == "" {
			return fmt.Errorf("SENDGRID_API_KEY is required when SendGrid is enabled")
		}
		if !strings.Contains(c.SendGrid.FromEmail, "@") {
			return fmt.Errorf("SENDGRID_FROM_EMAIL must be an email address when SendGrid is enabled")
		}
	}
	if c.Stripe.WebhookSecret != "" && c.Stripe.WebhookTolerance <= 0 {
		return fmt.Errorf("stripe.webhook_tolerance must be positive")
	}
	return nil
}

func (c *Config) validateAI() error {
	for _, p := range c.AI.Providers {
		if !validAIProviders[p] {
			return fmt.Errorf("unknown AI provider %q", p)
		}
	}
	if c.AI.MaxTokens <= 0 {
		return fmt.Errorf("ai.max_tokens must be positive")
	}
	if c.AI.MaxMessages <= 0 {
		return fmt.Errorf("ai.max_messages must be positive")
	}
	if c.AI.MaxRetries < 0 {
		return fmt.Errorf("ai.max_retries must not be negative")
	}
	return nil
}

func (c *Config) validatePricing() error {
	for _, entry := range c.Pricing.PromoCodes {
		parts := strings.Split(entry, ":")
		if len(parts) < 3 || len(parts) > 4 || parts[0] == "" || !validPromoKinds[parts[1]] {
			return fmt.Errorf("promo code %q must look like CODE:percent|fixed:amount[:min_plan]", entry)
		}
	}
	return nil
}

func (c *Config) validateMatching() error {
	if c.Matching.SweepEnabled && c.Matching.SweepInterval <= 0 {
		return fmt.Errorf("matching.sweep_interval must be positive when the sweep is enabled")
	}
	if c.Matching.DefaultRadiusMiles <= 0 {
		return fmt.Errorf("matching.default_radius_miles must be positive")
	}
	if c.Matching.DefaultLimit <= 0 || c.Matching.GeocodeWorkers <= 0 {
		return fmt.Errorf("matching.default_limit and matching.geocode_workers must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level %q", c.Logging.Level)
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("log format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
