// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package ai

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/tomtom215/owldoor/internal/resilience"
)

const (
	defaultAnthropicURL     = "https://api.anthropic.com"
	defaultAnthropicModel   = "claude-3-5-haiku-latest"
	defaultAnthropicMaxToks = 1024
)

type anthropicError = anthropic.Error

// Anthropic calls the messages API.
type Anthropic struct {
	client anthropic.Client
	model  string
}

// NewAnthropic creates an Anthropic provider. Empty model and baseURL use
// defaults.
func NewAnthropic(apiKey, model, baseURL string, timeout time.Duration) *Anthropic {
	if model == "" {
		model = defaultAnthropicModel
	}
	if baseURL == "" {
		baseURL = defaultAnthropicURL
	}
	return &Anthropic{
		client: anthropic.NewClient(
			option.WithAPIKey(apiKey),
			option.WithBaseURL(strings.TrimRight(baseURL, "/")+"/"),
			option.WithMaxRetries(0),
			option.WithRequestTimeout(timeout),
		),
		model: model,
	}
}

func (p *Anthropic) Name() string { return "anthropic" }

func (p *Anthropic) Complete(ctx context.Context, req *Request) (*Reply, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxToks
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: int64(maxTokens),
		Messages:  make([]anthropic.MessageParam, 0, len(req.Messages)),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	for _, m := range req.Messages {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == RoleAssistant {
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(block))
		} else {
			params.Messages = append(params.Messages, anthropic.NewUserMessage(block))
		}
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, classifySDKError(p.Name(), err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, resilience.NewTransientError(errors.New("anthropic returned no text"))
	}
	model := string(msg.Model)
	if model == "" {
		model = p.model
	}
	return &Reply{Provider: p.Name(), Model: model, Content: text.String()}, nil
}
