// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/owldoor/internal/config"
	"github.com/tomtom215/owldoor/internal/logging"
	"github.com/tomtom215/owldoor/internal/metrics"
	"github.com/tomtom215/owldoor/internal/models"
	"github.com/tomtom215/owldoor/internal/resilience"
)

// DefaultSystemPrompt frames the assistant when none is configured.
const DefaultSystemPrompt = "You are OwlDoor's recruiting assistant. You help real estate brokerages and " +
	"mortgage companies find, evaluate and reach out to agents and loan officers, and you help " +
	"those professionals understand their opportunities. Be concise and practical."

// Store persists conversation history.
type Store interface {
	InsertChatMessage(ctx context.Context, m *models.ChatMessage) error
	ListChatMessages(ctx context.Context, userID string, limit int) ([]*models.ChatMessage, error)
}

// Service runs conversations against the provider chain.
type Service struct {
	providers   []Provider
	store       Store
	system      string
	maxTokens   int
	maxMessages int
	retry       resilience.RetryConfig
}

// NewService creates a chat service over providers in fallback order. store
// may be nil to disable history.
func NewService(cfg config.AIConfig, store Store, providers ...Provider) *Service {
	system := cfg.SystemPrompt
	if system == "" {
		system = DefaultSystemPrompt
	}
	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = cfg.MaxRetries + 1
	return &Service{
		providers:   providers,
		store:       store,
		system:      system,
		maxTokens:   cfg.MaxTokens,
		maxMessages: cfg.MaxMessages,
		retry:       retry,
	}
}

// NewServiceFromConfig builds the providers named in cfg.Providers that have
// credentials. Providers without a key are skipped with a warning.
func NewServiceFromConfig(ctx context.Context, cfg config.AIConfig, store Store) (*Service, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	var providers []Provider
	for _, name := range cfg.Providers {
		switch name {
		case "openai":
			if cfg.OpenAIAPIKey == "" {
				logging.Warn().Str("provider", name).Msg("AI provider has no API key, skipping")
				continue
			}
			providers = append(providers, NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL, timeout))
		case "anthropic":
			if cfg.AnthropicAPIKey == "" {
				logging.Warn().Str("provider", name).Msg("AI provider has no API key, skipping")
				continue
			}
			providers = append(providers, NewAnthropic(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.AnthropicBaseURL, timeout))
		case "gemini":
			if cfg.GeminiAPIKey == "" {
				logging.Warn().Str("provider", name).Msg("AI provider has no API key, skipping")
				continue
			}
			g, err := NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, "")
			if err != nil {
				return nil, err
			}
			providers = append(providers, g)
		default:
			return nil, fmt.Errorf("unknown AI provider %q", name)
		}
	}
	return NewService(cfg, store, providers...), nil
}

// Enabled reports whether any provider is configured.
func (s *Service) Enabled() bool { return len(s.providers) > 0 }

// Providers returns the configured provider names in fallback order.
func (s *Service) Providers() []string {
	names := make([]string, len(s.providers))
	for i, p := range s.providers {
		names[i] = p.Name()
	}
	return names
}

// Chat completes msgs for userID. The final user message and the reply are
// appended to the user's history.
func (s *Service) Chat(ctx context.Context, userID string, msgs []Message) (*Reply, error) {
	if len(s.providers) == 0 {
		return nil, ErrNoProviders
	}
	if err := ValidateMessages(msgs, s.maxMessages); err != nil {
		return nil, err
	}

	req := &Request{System: s.system, Messages: msgs, MaxTokens: s.maxTokens}
	reply, err := s.complete(ctx, req)
	if err != nil {
		return nil, err
	}

	if s.store != nil && userID != "" {
		last := msgs[len(msgs)-1]
		turns := []*models.ChatMessage{
			{UserID: userID, Role: last.Role, Content: last.Content},
			{UserID: userID, Role: RoleAssistant, Content: reply.Content, Provider: reply.Provider, Model: reply.Model},
		}
		for _, m := range turns {
			if err := s.store.InsertChatMessage(ctx, m); err != nil {
				logging.Ctx(ctx).Warn().Err(err).Msg("Failed to persist chat message")
				break
			}
		}
	}
	return reply, nil
}

func (s *Service) complete(ctx context.Context, req *Request) (*Reply, error) {
	var errs []error
	for _, p := range s.providers {
		var reply *Reply
		err := resilience.Retry(ctx, s.retry, func(ctx context.Context) error {
			var err error
			reply, err = p.Complete(ctx, req)
			return err
		})
		if err == nil {
			metrics.AIRequests.WithLabelValues(p.Name(), "success").Inc()
			return reply, nil
		}

		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		if !resilience.IsTransient(err) {
			metrics.AIRequests.WithLabelValues(p.Name(), "fatal").Inc()
			logging.Ctx(ctx).Error().Err(err).Str("provider", p.Name()).Msg("AI provider rejected request")
			return nil, errors.Join(errs...)
		}
		metrics.AIRequests.WithLabelValues(p.Name(), "failover").Inc()
		logging.Ctx(ctx).Warn().Err(err).Str("provider", p.Name()).Msg("AI provider unavailable, trying next")
	}
	return nil, fmt.Errorf("all AI providers failed: %w", errors.Join(errs...))
}

// History returns the user's most recent messages, oldest first.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]*models.ChatMessage, error) {
	if s.store == nil {
		return []*models.ChatMessage{}, nil
	}
	return s.store.ListChatMessages(ctx, userID, limit)
}
