// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

// Package ai proxies recruiting-assistant chat to hosted language models.
//
// Providers are tried in the configured order. Each provider call is retried
// on transient failures (timeouts, 429, 5xx); once its retries are exhausted
// the next provider is tried. A fatal error (bad credentials, rejected
// request) stops the chain, since another provider would not fix the input.
package ai

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"
)

// Conversation roles accepted from callers.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// maxContentRunes bounds a single message.
const maxContentRunes = 8000

var (
	// ErrNoProviders is returned when no provider is configured.
	ErrNoProviders = errors.New("no AI providers configured")

	// ErrInvalidConversation is returned for messages that fail validation.
	ErrInvalidConversation = errors.New("invalid conversation")
)

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"required"`
}

// Request is what a Provider completes.
type Request struct {
	System    string
	Messages  []Message
	MaxTokens int
}

// Reply is a provider's answer.
type Reply struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Content  string `json:"content"`
}

// Provider is one hosted model API.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req *Request) (*Reply, error)
}

// ValidateMessages checks roles and content and that the conversation ends
// with a user turn. maxMessages of zero disables the count check.
func ValidateMessages(msgs []Message, maxMessages int) error {
	if len(msgs) == 0 {
		return fmt.Errorf("%w: no messages", ErrInvalidConversation)
	}
	if maxMessages > 0 && len(msgs) > maxMessages {
		return fmt.Errorf("%w: %d messages exceeds the limit of %d", ErrInvalidConversation, len(msgs), maxMessages)
	}
	for i, m := range msgs {
		if m.Role != RoleUser && m.Role != RoleAssistant {
			return fmt.Errorf("%w: message %d has role %q", ErrInvalidConversation, i, m.Role)
		}
		if m.Content == "" {
			return fmt.Errorf("%w: message %d is empty", ErrInvalidConversation, i)
		}
		if utf8.RuneCountInString(m.Content) > maxContentRunes {
			return fmt.Errorf("%w: message %d is longer than %d characters", ErrInvalidConversation, i, maxContentRunes)
		}
	}
	if msgs[len(msgs)-1].Role != RoleUser {
		return fmt.Errorf("%w: last message must be from the user", ErrInvalidConversation)
	}
	return nil
}
