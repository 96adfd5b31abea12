// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists config file locations in priority order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/owldoor/config.yaml",
	"/etc/owldoor/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

const defaultSystemPrompt = "You are OwlDoor's recruiting assistant. You help brokerages and " +
	"mortgage teams evaluate real estate agents and loan officers, draft outreach " +
	"messages, and explain qualification scores. Be concise and never invent " +
	"production numbers that were not provided."

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        3857,
			Host:        "0.0.0.0",
			Timeout:     30 * time.Second,
			Environment: "development",
			PublicURL:   "http://localhost:3857",
		},
		Database: DatabaseConfig{
			Path:      "/data/owldoor.duckdb",
			MaxMemory: "1GB",
		},
		Security: SecurityConfig{
			JWTIssuer:       "",
			TokenTTL:        24 * time.Hour,
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
			Casbin: CasbinConfig{
				DefaultRole:  "pro",
				CacheEnabled: true,
				CacheTTL:     5 * time.Minute,
			},
		},
		Geocode: GeocodeConfig{
			Providers:          []string{"local", "google", "nominatim", "mapbox"},
			GoogleURL:          "https://maps.googleapis.com/maps/api/geocode/json",
			GoogleRPS:          10,
			NominatimURL:       "https://nominatim.openstreetmap.org/search",
			NominatimUserAgent: "OwlDoor/1.0 (support@owldoor.com)",
			NominatimRPS:       1,
			MapboxURL:          "https://api.mapbox.com/geocoding/v5/mapbox.places",
			MapboxRPS:          10,
			RequestTimeout:     10 * time.Second,
			CacheTTL:           30 * 24 * time.Hour,
		},
		Twilio: TwilioConfig{
			BaseURL: "https://api.twilio.com",
		},
		SendGrid: SendGridConfig{
			FromName: "OwlDoor",
			BaseURL:  "https://api.sendgrid.com",
		},
		Stripe: StripeConfig{
			BaseURL:          "https://api.stripe.com",
			WebhookTolerance: 5 * time.Minute,
		},
		AI: AIConfig{
			Providers:        []string{"openai", "anthropic", "gemini"},
			OpenAIModel:      "gpt-4o-mini",
			OpenAIBaseURL:    "https://api.openai.com/v1",
			AnthropicModel:   "claude-3-5-haiku-latest",
			AnthropicBaseURL: "https://api.anthropic.com",
			GeminiModel:      "gemini-2.0-flash",
			SystemPrompt:     defaultSystemPrompt,
			MaxTokens:        1024,
			MaxMessages:      40,
			MaxRetries:       2,
			Timeout:          60 * time.Second,
		},
		Events: EventsConfig{
			StoreDir:    "/data/nats",
			StreamName:  "OWLDOOR",
			DurableName: "owldoor-processor",
		},
		Matching: MatchingConfig{
			SweepEnabled:       true,
			SweepInterval:      time.Hour,
			DefaultRadiusMiles: 25,
			DefaultLimit:       10,
			GeocodeWorkers:     4,
		},
		Audit: AuditConfig{
			Enabled:         true,
			BufferSize:      256,
			RetentionDays:   365,
			CleanupInterval: 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadWithKoanf loads configuration in three layers: struct defaults, an
// optional YAML file, then environment variables.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are parsed from comma-separated env values.
var sliceConfigPaths = []string{
	"security.cors_origins",
	"security.lead_source_keys",
	"geocode.providers",
	"ai.providers",
	"pricing.promo_codes",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
// Unmapped variables are ignored.
var envMappings = map[string]string{
	"http_port":    "server.port",
	"http_host":    "server.host",
	"http_timeout": "server.timeout",
	"environment":  "server.environment",
	"public_url":   "server.public_url",

	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",

	"jwt_secret":          "security.jwt_secret",
	"jwt_issuer":          "security.jwt_issuer",
	"token_ttl":           "security.token_ttl",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"cors_origins":        "security.cors_origins",
	"lead_source_keys":    "security.lead_source_keys",

	"casbin_model_path":    "security.casbin.model_path",
	"casbin_policy_path":   "security.casbin.policy_path",
	"casbin_default_role":  "security.casbin.default_role",
	"casbin_cache_enabled": "security.casbin.cache_enabled",
	"casbin_cache_ttl":     "security.casbin.cache_ttl",

	"geocode_providers":     "geocode.providers",
	"google_maps_api_key":   "geocode.google_api_key",
	"google_geocode_url":    "geocode.google_url",
	"nominatim_url":         "geocode.nominatim_url",
	"nominatim_user_agent":  "geocode.nominatim_user_agent",
	"nominatim_rps":         "geocode.nominatim_rps",
	"mapbox_token":          "geocode.mapbox_token",
	"mapbox_url":            "geocode.mapbox_url",
	"geocode_timeout":       "geocode.request_timeout",
	"geocode_cache_ttl":     "geocode.cache_ttl",
	"geocode_cache_path":    "geocode.cache_path",
	"geocode_zip_seed_path": "geocode.zip_seed_path",

	"twilio_enabled":     "twilio.enabled",
	"twilio_account_sid": "twilio.account_sid",
	"twilio_auth_token":  "twilio.auth_token",
	"twilio_from_number": "twilio.from_number",
	"twilio_base_url":    "twilio.base_url",

	"sendgrid_enabled":    "sendgrid.enabled",
	"sendgrid_api_key":    "sendgrid.api_key",
	"sendgrid_from_email": "sendgrid.from_email",
	"sendgrid_from_name":  "sendgrid.from_name",
	"sendgrid_base_url":   "sendgrid.base_url",

	"stripe_secret_key":        "stripe.secret_key",
	"stripe_webhook_secret":    "stripe.webhook_secret",
	"stripe_base_url":          "stripe.base_url",
	"stripe_success_url":       "stripe.success_url",
	"stripe_cancel_url":        "stripe.cancel_url",
	"stripe_webhook_tolerance": "stripe.webhook_tolerance",

	"ai_providers":       "ai.providers",
	"openai_api_key":     "ai.openai_api_key",
	"openai_model":       "ai.openai_model",
	"openai_base_url":    "ai.openai_base_url",
	"anthropic_api_key":  "ai.anthropic_api_key",
	"anthropic_model":    "ai.anthropic_model",
	"anthropic_base_url": "ai.anthropic_base_url",
	"gemini_api_key":     "ai.gemini_api_key",
	"gemini_model":       "ai.gemini_model",
	"ai_system_prompt":   "ai.system_prompt",
	"ai_max_tokens":      "ai.max_tokens",
	"ai_max_messages":    "ai.max_messages",
	"ai_max_retries":     "ai.max_retries",
	"ai_timeout":         "ai.timeout",

	"nats_url":          "events.nats_url",
	"nats_embedded":     "events.embedded_server",
	"nats_store_dir":    "events.store_dir",
	"nats_stream_name":  "events.stream_name",
	"nats_durable_name": "events.durable_name",

	"match_sweep_enabled":   "matching.sweep_enabled",
	"match_sweep_interval":  "matching.sweep_interval",
	"match_default_radius":  "matching.default_radius_miles",
	"match_default_limit":   "matching.default_limit",
	"match_geocode_workers": "matching.geocode_workers",

	"promo_codes": "pricing.promo_codes",

	"audit_enabled":        "audit.enabled",
	"audit_buffer_size":    "audit.buffer_size",
	"audit_retention_days": "audit.retention_days",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
