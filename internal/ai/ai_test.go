// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"

	"github.com/tomtom215/owldoor/internal/config"
	"github.com/tomtom215/owldoor/internal/models"
	"github.com/tomtom215/owldoor/internal/resilience"
)

func userTurn(s string) []Message { return []Message{{Role: RoleUser, Content: s}} }

func TestValidateMessages(t *testing.T) {
	tests := []struct {
		name    string
		msgs    []Message
		max     int
		wantErr bool
	}{
		{"single user turn", userTurn("hi"), 10, false},
		{"conversation", []Message{{"user", "a"}, {"assistant", "b"}, {"user", "c"}}, 10, false},
		{"empty", nil, 10, true},
		{"system role", []Message{{"system", "x"}, {"user", "a"}}, 10, true},
		{"empty content", []Message{{"user", ""}}, 10, true},
		{"ends with assistant", []Message{{"user", "a"}, {"assistant", "b"}}, 10, true},
		{"too many", []Message{{"user", "a"}, {"assistant", "b"}, {"user", "c"}}, 2, true},
		{"too long", userTurn(strings.Repeat("x", maxContentRunes+1)), 10, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMessages(tt.msgs, tt.max)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidConversation) {
				t.Errorf("err = %v, want ErrInvalidConversation", err)
			}
		})
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func TestOpenAIComplete(t *testing.T) {
	var got struct {
		Model     string        `json:"model"`
		Messages  []chatMessage `json:"messages"`
		MaxTokens int           `json:"max_tokens"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"chatcmpl-1","object":"chat.completion","model":"gpt-4o-mini-2024",`+
			`"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"Try Round Rock."}}]}`)
	}))
	defer srv.Close()

	p := NewOpenAI("sk-test", "", srv.URL+"/v1", 5*time.Second)
	reply, err := p.Complete(context.Background(), &Request{System: "be brief", Messages: userTurn("where to hire?"), MaxTokens: 64})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if diff := cmp.Diff(&Reply{Provider: "openai", Model: "gpt-4o-mini-2024", Content: "Try Round Rock."}, reply); diff != "" {
		t.Errorf("reply mismatch (-want +got):\n%s", diff)
	}
	wantMsgs := []chatMessage{{"system", "be brief"}, {"user", "where to hire?"}}
	if diff := cmp.Diff(wantMsgs, got.Messages); diff != "" {
		t.Errorf("request messages (-want +got):\n%s", diff)
	}
	if got.Model != defaultOpenAIModel || got.MaxTokens != 64 {
		t.Errorf("request = %+v", got)
	}
}

func TestAnthropicComplete(t *testing.T) {
	var got struct {
		Model  string `json:"model"`
		System []struct {
			Text string `json:"text"`
		} `json:"system"`
		Messages  []json.RawMessage `json:"messages"`
		MaxTokens int               `json:"max_tokens"`
	}
	var version, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "ak-test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		path = r.URL.Path
		version = r.Header.Get("anthropic-version")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"msg_1","type":"message","role":"assistant","model":"claude-test",`+
			`"content":[{"type":"text","text":"Hello "},{"type":"text","text":"there."}],`+
			`"stop_reason":"end_turn","usage":{"input_tokens":3,"output_tokens":2}}`)
	}))
	defer srv.Close()

	p := NewAnthropic("ak-test", "claude-test", srv.URL, 5*time.Second)
	reply, err := p.Complete(context.Background(), &Request{System: "sys", Messages: userTurn("hi")})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if reply.Content != "Hello there." || reply.Provider != "anthropic" || reply.Model != "claude-test" {
		t.Errorf("reply = %+v", reply)
	}
	if path != "/v1/messages" || version == "" {
		t.Errorf("path = %q, anthropic-version = %q", path, version)
	}
	if len(got.System) != 1 || got.System[0].Text != "sys" || got.MaxTokens != defaultAnthropicMaxToks || len(got.Messages) != 1 {
		t.Errorf("request = %+v", got)
	}
}

func TestProviderStatusClassification(t *testing.T) {
	tests := []struct {
		status    int
		transient bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusUnauthorized, false},
		{http.StatusBadRequest, false},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				fmt.Fprint(w, `{"error":{"type":"error","message":"nope"}}`)
			}))
			defer srv.Close()

			for _, p := range []Provider{
				NewOpenAI("k", "", srv.URL+"/v1", time.Second),
				NewAnthropic("k", "", srv.URL, time.Second),
			} {
				_, err := p.Complete(context.Background(), &Request{Messages: userTurn("x")})
				if err == nil {
					t.Fatalf("%s: expected error", p.Name())
				}
				if resilience.IsTransient(err) != tt.transient {
					t.Errorf("%s: transient = %v, want %v (%v)", p.Name(), resilience.IsTransient(err), tt.transient, err)
				}
			}
		})
	}
}

type scriptedProvider struct {
	name  string
	errs  []error
	calls int
}

func (p *scriptedProvider) Name() string { return p.name }

func (p *scriptedProvider) Complete(_ context.Context, req *Request) (*Reply, error) {
	p.calls++
	if p.calls <= len(p.errs) {
		return nil, p.errs[p.calls-1]
	}
	return &Reply{Provider: p.name, Model: p.name + "-model", Content: "answer to " + req.Messages[len(req.Messages)-1].Content}, nil
}

type memHistory struct {
	mu   sync.Mutex
	msgs []*models.ChatMessage
}

func (m *memHistory) InsertChatMessage(_ context.Context, msg *models.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, msg)
	return nil
}

func (m *memHistory) ListChatMessages(_ context.Context, userID string, limit int) ([]*models.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.ChatMessage
	for _, msg := range m.msgs {
		if msg.UserID == userID {
			out = append(out, msg)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func newTestService(store Store, providers ...Provider) *Service {
	s := NewService(config.AIConfig{MaxTokens: 256, MaxMessages: 20, MaxRetries: 2}, store, providers...)
	s.retry.BackoffBase = time.Millisecond
	s.retry.MaxBackoff = time.Millisecond
	return s
}

func TestChatFallsThroughTransientFailures(t *testing.T) {
	unavailable := resilience.NewTransientError(errors.New("503"))
	first := &scriptedProvider{name: "openai", errs: []error{unavailable, unavailable, unavailable}}
	second := &scriptedProvider{name: "anthropic", errs: []error{unavailable}}
	store := &memHistory{}

	reply, err := newTestService(store, first, second).Chat(context.Background(), "user-1", userTurn("who is hiring?"))
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if reply.Provider != "anthropic" || reply.Content != "answer to who is hiring?" {
		t.Errorf("reply = %+v", reply)
	}
	// Three attempts on the first provider, then one retry on the second.
	if first.calls != 3 || second.calls != 2 {
		t.Errorf("calls = %d, %d", first.calls, second.calls)
	}

	history, _ := store.ListChatMessages(context.Background(), "user-1", 10)
	if len(history) != 2 || history[0].Role != RoleUser || history[1].Provider != "anthropic" {
		t.Errorf("history = %+v", history)
	}
}

func TestChatStopsOnFatalError(t *testing.T) {
	first := &scriptedProvider{name: "openai", errs: []error{resilience.NewFatalError(errors.New("401"))}}
	second := &scriptedProvider{name: "anthropic"}
	store := &memHistory{}

	_, err := newTestService(store, first, second).Chat(context.Background(), "user-1", userTurn("hello"))
	if err == nil || !resilience.IsFatal(err) {
		t.Fatalf("err = %v, want fatal", err)
	}
	if first.calls != 1 || second.calls != 0 {
		t.Errorf("calls = %d, %d", first.calls, second.calls)
	}
	if len(store.msgs) != 0 {
		t.Errorf("failed chat persisted %d messages", len(store.msgs))
	}
}

func TestChatAllProvidersDown(t *testing.T) {
	down := &scriptedProvider{name: "gemini", errs: []error{
		resilience.NewTransientError(errors.New("a")),
		resilience.NewTransientError(errors.New("b")),
		resilience.NewTransientError(errors.New("c")),
	}}
	_, err := newTestService(nil, down).Chat(context.Background(), "u", userTurn("x"))
	if err == nil || !strings.Contains(err.Error(), "all AI providers failed") {
		t.Fatalf("err = %v", err)
	}
}

func TestChatRejectsBeforeCallingProviders(t *testing.T) {
	p := &scriptedProvider{name: "openai"}
	s := newTestService(nil, p)

	if _, err := s.Chat(context.Background(), "u", []Message{{Role: "system", Content: "x"}}); !errors.Is(err, ErrInvalidConversation) {
		t.Errorf("err = %v", err)
	}
	if p.calls != 0 {
		t.Errorf("provider called %d times", p.calls)
	}
	if _, err := newTestService(nil).Chat(context.Background(), "u", userTurn("x")); !errors.Is(err, ErrNoProviders) {
		t.Errorf("err = %v", err)
	}
}

func TestNewServiceFromConfig(t *testing.T) {
	s, err := NewServiceFromConfig(context.Background(), config.AIConfig{
		Providers:       []string{"openai", "anthropic"},
		AnthropicAPIKey: "ak",
		MaxTokens:       100,
		MaxMessages:     10,
	}, nil)
	if err != nil {
		t.Fatalf("NewServiceFromConfig: %v", err)
	}
	if diff := cmp.Diff([]string{"anthropic"}, s.Providers()); diff != "" {
		t.Errorf("providers (-want +got):\n%s", diff)
	}
	if _, err := NewServiceFromConfig(context.Background(), config.AIConfig{Providers: []string{"lovable"}}, nil); err == nil {
		t.Error("expected error for unknown provider")
	}
}
