// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Server.Port != 3857 {
		t.Errorf("Server.Port = %d, want 3857", cfg.Server.Port)
	}
	if cfg.Database.Path != "/data/owldoor.duckdb" {
		t.Errorf("Database.Path = %q, want /data/owldoor.duckdb", cfg.Database.Path)
	}
	if got := strings.Join(cfg.Geocode.Providers, ","); got != "local,google,nominatim,mapbox" {
		t.Errorf("Geocode.Providers = %q, want local,google,nominatim,mapbox", got)
	}
	if cfg.Geocode.NominatimRPS != 1 {
		t.Errorf("Geocode.NominatimRPS = %v, want 1", cfg.Geocode.NominatimRPS)
	}
	if cfg.Stripe.WebhookTolerance != 5*time.Minute {
		t.Errorf("Stripe.WebhookTolerance = %v, want 5m", cfg.Stripe.WebhookTolerance)
	}
	if cfg.Events.UsesNATS() {
		t.Error("default events config should use the in-process transport")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestLoadWithKoanfEnvOverrides(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("HTTP_PORT", "8080")
	t.Setenv("GEOCODE_PROVIDERS", "local, nominatim")
	t.Setenv("AI_PROVIDERS", "anthropic")
	t.Setenv("PROMO_CODES", "SPRING:percent:10,WELCOME:fixed:5000:growth")
	t.Setenv("MATCH_SWEEP_INTERVAL", "15m")
	t.Setenv("NATS_EMBEDDED", "true")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if len(cfg.Geocode.Providers) != 2 || cfg.Geocode.Providers[1] != "nominatim" {
		t.Errorf("Geocode.Providers = %v, want [local nominatim]", cfg.Geocode.Providers)
	}
	if len(cfg.AI.Providers) != 1 || cfg.AI.Providers[0] != "anthropic" {
		t.Errorf("AI.Providers = %v, want [anthropic]", cfg.AI.Providers)
	}
	if len(cfg.Pricing.PromoCodes) != 2 {
		t.Errorf("Pricing.PromoCodes = %v, want 2 entries", cfg.Pricing.PromoCodes)
	}
	if cfg.Matching.SweepInterval != 15*time.Minute {
		t.Errorf("Matching.SweepInterval = %v, want 15m", cfg.Matching.SweepInterval)
	}
	if !cfg.Events.UsesNATS() {
		t.Error("embedded NATS should select the NATS transport")
	}
}

func TestLoadWithKoanfFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: 9000
  environment: staging
twilio:
  enabled: true
  account_sid: AC123
  auth_token: secret
  from_number: "+15550001111"
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}
	if cfg.Server.Port != 9000 || cfg.Server.Environment != "staging" {
		t.Errorf("server = %+v, want port 9000 staging", cfg.Server)
	}
	if !cfg.Twilio.Enabled || cfg.Twilio.AccountSID != "AC123" {
		t.Errorf("twilio = %+v", cfg.Twilio)
	}
	if cfg.Twilio.BaseURL != "https://api.twilio.com" {
		t.Errorf("Twilio.BaseURL default lost after file merge: %q", cfg.Twilio.BaseURL)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid defaults", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"bad environment", func(c *Config) { c.Server.Environment = "prod" }, "server.environment"},
		{"short secret in production", func(c *Config) {
			c.Server.Environment = "production"
			c.Security.CORSOrigins = []string{"https://app.owldoor.com"}
			c.Security.JWTSecret = "short"
		}, "JWT_SECRET"},
		{"wildcard cors in production", func(c *Config) {
			c.Server.Environment = "production"
			c.Security.JWTSecret = strings.Repeat("s", 32)
		}, "CORS_ORIGINS"},
		{"malformed lead source", func(c *Config) { c.Security.LeadSourceKeys = []string{"zillow-plaintext"} }, "lead source key"},
		{"unknown geocoder", func(c *Config) { c.Geocode.Providers = []string{"bing"} }, "geocode provider"},
		{"twilio missing creds", func(c *Config) { c.Twilio.Enabled = true }, "TWILIO_ACCOUNT_SID"},
		{"twilio bad from", func(c *Config) {
			c.Twilio = TwilioConfig{Enabled: true, AccountSID: "AC1", AuthToken: "t", FromNumber: "5551234567"}
		}, "E.164"},
		{"sendgrid missing key", func(c *Config) { c.SendGrid.Enabled = true }, "SENDGRID_API_KEY"},
		{"unknown ai provider", func(c *Config) { c.AI.Providers = []string{"lovable"} }, "AI provider"},
		{"bad promo", func(c *Config) { c.Pricing.PromoCodes = []string{"SPRING:half:10"} }, "promo code"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLeadSources(t *testing.T) {
	s := SecurityConfig{LeadSourceKeys: []string{
		"zillow:$2a$10$abc",
		"broken",
		" realtor :$2a$10$def",
	}}

	got := s.LeadSources()
	if len(got) != 2 {
		t.Fatalf("LeadSources() = %v, want 2 entries", got)
	}
	if got["zillow"] != "$2a$10$abc" || got["realtor"] != "$2a$10$def" {
		t.Errorf("LeadSources() = %v", got)
	}
}
