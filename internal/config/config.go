// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

// Package config loads OwlDoor configuration from defaults, an optional YAML
// file and environment variables, in that order of precedence.
package config

import (
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Security SecurityConfig `koanf:"security"`
	Geocode  GeocodeConfig  `koanf:"geocode"`
	Twilio   TwilioConfig   `koanf:"twilio"`
	SendGrid SendGridConfig `koanf:"sendgrid"`
	Stripe   StripeConfig   `koanf:"stripe"`
	AI       AIConfig       `koanf:"ai"`
	Events   EventsConfig   `koanf:"events"`
	Matching MatchingConfig `koanf:"matching"`
	Pricing  PricingConfig  `koanf:"pricing"`
	Audit    AuditConfig    `koanf:"audit"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port        int           `koanf:"port"`
	Host        string        `koanf:"host"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"` // development, staging, production
	PublicURL   string        `koanf:"public_url"`  // base URL used in outbound links (checkout redirects, emails)
}

// DatabaseConfig configures the embedded DuckDB store.
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // 0 = DuckDB default
}

// SecurityConfig holds authentication, rate limiting and CORS settings.
type SecurityConfig struct {
	JWTSecret         string        `koanf:"jwt_secret"`
	JWTIssuer         string        `koanf:"jwt_issuer"`
	TokenTTL          time.Duration `koanf:"token_ttl"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`

	// LeadSourceKeys holds "name:bcrypt-hash" pairs for lead webhook callers.
	LeadSourceKeys []string `koanf:"lead_source_keys"`

	Casbin CasbinConfig `koanf:"casbin"`
}

// CasbinConfig configures RBAC enforcement. Empty paths use the embedded model and policy.
type CasbinConfig struct {
	ModelPath    string        `koanf:"model_path"`
	PolicyPath   string        `koanf:"policy_path"`
	DefaultRole  string        `koanf:"default_role"`
	CacheEnabled bool          `koanf:"cache_enabled"`
	CacheTTL     time.Duration `koanf:"cache_ttl"`
}

// LeadSources parses LeadSourceKeys into a name -> bcrypt hash map.
// Malformed entries are skipped; Validate reports them.
func (s *SecurityConfig) LeadSources() map[string]string {
	out := make(map[string]string, len(s.LeadSourceKeys))
	for _, entry := range s.LeadSourceKeys {
		name, hash, ok := strings.Cut(entry, ":")
		if !ok || name == "" || hash == "" {
			continue
		}
		out[strings.TrimSpace(name)] = strings.TrimSpace(hash)
	}
	return out
}

// GeocodeConfig configures the geocoding fallback chain.
type GeocodeConfig struct {
	// Providers is the lookup order. Known names: local, google, nominatim, mapbox.
	Providers []string `koanf:"providers"`

	GoogleAPIKey string  `koanf:"google_api_key"`
	GoogleURL    string  `koanf:"google_url"`
	GoogleRPS    float64 `koanf:"google_rps"`

	NominatimURL       string  `koanf:"nominatim_url"`
	NominatimUserAgent string  `koanf:"nominatim_user_agent"`
	NominatimRPS       float64 `koanf:"nominatim_rps"`

	MapboxToken string  `koanf:"mapbox_token"`
	MapboxURL   string  `koanf:"mapbox_url"`
	MapboxRPS   float64 `koanf:"mapbox_rps"`

	RequestTimeout time.Duration `koanf:"request_timeout"`
	CacheTTL       time.Duration `koanf:"cache_ttl"`
	CachePath      string        `koanf:"cache_path"` // badger directory; empty = in-memory
	ZipSeedPath    string        `koanf:"zip_seed_path"`
}

// TwilioConfig configures SMS delivery.
type TwilioConfig struct {
	Enabled    bool   `koanf:"enabled"`
	AccountSID string `koanf:"account_sid"`
	AuthToken  string `koanf:"auth_token"`
	FromNumber string `koanf:"from_number"`
	BaseURL    string `koanf:"base_url"`
}

// SendGridConfig configures email delivery.
type SendGridConfig struct {
	Enabled   bool   `koanf:"enabled"`
	APIKey    string `koanf:"api_key"`
	FromEmail string `koanf:"from_email"`
	FromName  string `koanf:"from_name"`
	BaseURL   string `koanf:"base_url"`
}

// StripeConfig configures checkout and webhook handling.
type StripeConfig struct {
	SecretKey        string        `koanf:"secret_key"`
	WebhookSecret    string        `koanf:"webhook_secret"`
	BaseURL          string        `koanf:"base_url"`
	SuccessURL       string        `koanf:"success_url"`
	CancelURL        string        `koanf:"cancel_url"`
	WebhookTolerance time.Duration `koanf:"webhook_tolerance"`
}

// AIConfig configures the chat proxy providers.
type AIConfig struct {
	// Providers is the fallback order. Known names: openai, anthropic, gemini.
	Providers []string `koanf:"providers"`

	OpenAIAPIKey  string `koanf:"openai_api_key"`
	OpenAIModel   string `koanf:"openai_model"`
	OpenAIBaseURL string `koanf:"openai_base_url"`

	AnthropicAPIKey  string `koanf:"anthropic_api_key"`
	AnthropicModel   string `koanf:"anthropic_model"`
	AnthropicBaseURL string `koanf:"anthropic_base_url"`

	GeminiAPIKey string `koanf:"gemini_api_key"`
	GeminiModel  string `koanf:"gemini_model"`

	SystemPrompt string        `koanf:"system_prompt"`
	MaxTokens    int           `koanf:"max_tokens"`
	MaxMessages  int           `koanf:"max_messages"`
	MaxRetries   int           `koanf:"max_retries"`
	Timeout      time.Duration `koanf:"timeout"`
}

// EventsConfig configures the event bus. An empty NATSURL with EmbeddedServer
// disabled selects the in-process channel transport.
type EventsConfig struct {
	NATSURL        string `koanf:"nats_url"`
	EmbeddedServer bool   `koanf:"embedded_server"`
	StoreDir       string `koanf:"store_dir"`
	StreamName     string `koanf:"stream_name"`
	DurableName    string `koanf:"durable_name"`
}

// UsesNATS reports whether events travel over NATS JetStream.
func (e *EventsConfig) UsesNATS() bool {
	return e.NATSURL != "" || e.EmbeddedServer
}

// MatchingConfig configures the match engine and its background sweep.
type MatchingConfig struct {
	SweepEnabled       bool          `koanf:"sweep_enabled"`
	SweepInterval      time.Duration `koanf:"sweep_interval"`
	DefaultRadiusMiles float64       `koanf:"default_radius_miles"`
	DefaultLimit       int           `koanf:"default_limit"`
	GeocodeWorkers     int           `koanf:"geocode_workers"`
}

// PricingConfig configures promo codes.
type PricingConfig struct {
	// PromoCodes entries look like "CODE:percent:15" or "CODE:fixed:5000:growth"
	// (the optional fourth field is the minimum plan).
	PromoCodes []string `koanf:"promo_codes"`
}

// AuditConfig configures the admin action trail.
type AuditConfig struct {
	Enabled         bool          `koanf:"enabled"`
	BufferSize      int           `koanf:"buffer_size"`
	RetentionDays   int           `koanf:"retention_days"`
	CleanupInterval time.Duration `koanf:"cleanup_interval"`
}

// LoggingConfig configures zerolog.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// Load reads configuration from defaults, config file and environment.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
