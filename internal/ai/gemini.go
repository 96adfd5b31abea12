// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package ai

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/tomtom215/owldoor/internal/resilience"
)

const defaultGeminiModel = "gemini-2.0-flash"

// Gemini calls the Gemini API through the genai SDK.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini provider. baseURL overrides the API endpoint
// and is empty in production.
func NewGemini(ctx context.Context, apiKey, model, baseURL string) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	if model == "" {
		model = defaultGeminiModel
	}
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

func (p *Gemini) Name() string { return "gemini" }

func (p *Gemini) Complete(ctx context.Context, req *Request) (*Reply, error) {
	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := genai.RoleUser
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, genai.Role(role)))
	}

	config := &genai.GenerateContentConfig{}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, config)
	if err != nil {
		return nil, classifyGenAIError(err)
	}
	text := resp.Text()
	if text == "" {
		return nil, resilience.NewTransientError(errors.New("gemini returned no text"))
	}
	return &Reply{Provider: p.Name(), Model: p.model, Content: text}, nil
}

func classifyGenAIError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return resilience.HTTPStatusError("gemini", apiErr.Code, apiErr.Message)
	}
	if errors.Is(err, context.Canceled) {
		return resilience.NewFatalError(err)
	}
	return resilience.NewTransientError(fmt.Errorf("gemini request failed: %w", err))
}
