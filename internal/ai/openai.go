// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/tomtom215/owldoor/internal/resilience"
)

const (
	defaultOpenAIURL   = "https://api.openai.com/v1"
	defaultOpenAIModel = "gpt-4o-mini"
)

// OpenAI calls the chat completions API.
type OpenAI struct {
	client openai.Client
	model  string
}

// NewOpenAI creates an OpenAI provider. Empty model and baseURL use defaults.
// baseURL includes the API version path. SDK retries are disabled; Service
// owns the retry policy.
func NewOpenAI(apiKey, model, baseURL string, timeout time.Duration) *OpenAI {
	if model == "" {
		model = defaultOpenAIModel
	}
	if baseURL == "" {
		baseURL = defaultOpenAIURL
	}
	return &OpenAI{
		client: openai.NewClient(
			option.WithAPIKey(apiKey),
			option.WithBaseURL(strings.TrimRight(baseURL, "/")+"/"),
			option.WithMaxRetries(0),
			option.WithRequestTimeout(timeout),
		),
		model: model,
	}
}

func (p *OpenAI) Name() string { return "openai" }

func (p *OpenAI) Complete(ctx context.Context, req *Request) (*Reply, error) {
	params := openai.ChatCompletionNewParams{Model: openai.ChatModel(p.model)}
	if req.System != "" {
		params.Messages = append(params.Messages, openai.SystemMessage(req.System))
	}
	for _, m := range req.Messages {
		if m.Role == RoleAssistant {
			params.Messages = append(params.Messages, openai.AssistantMessage(m.Content))
		} else {
			params.Messages = append(params.Messages, openai.UserMessage(m.Content))
		}
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, classifySDKError(p.Name(), err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, resilience.NewTransientError(errors.New("openai returned no choices"))
	}
	model := resp.Model
	if model == "" {
		model = p.model
	}
	return &Reply{Provider: p.Name(), Model: model, Content: resp.Choices[0].Message.Content}, nil
}

// classifySDKError maps an OpenAI or Anthropic SDK error onto resilience
// classes: API errors by status, anything else as a network failure.
func classifySDKError(service string, err error) error {
	if errors.Is(err, context.Canceled) {
		return resilience.NewFatalError(err)
	}
	if status, msg, ok := statusOf(err); ok {
		return resilience.HTTPStatusError(service, status, msg)
	}
	return resilience.NewTransientError(fmt.Errorf("failed to reach %s: %w", service, err))
}

// statusOf returns the HTTP status of an API error from either SDK.
func statusOf(err error) (int, string, bool) {
	var oerr *openai.Error
	if errors.As(err, &oerr) {
		return oerr.StatusCode, oerr.Message, true
	}
	var aerr *anthropicError
	if errors.As(err, &aerr) {
		return aerr.StatusCode, aerr.Error(), true
	}
	return 0, "", false
}
