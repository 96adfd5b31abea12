// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package api

import (
	"net/http"

	"github.com/tomtom215/owldoor/internal/models"
)

// Chat proxies a conversation to the first AI provider that answers.
//
// @Summary Chat with the recruiting assistant
// @Tags AI
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ChatRequest true "Conversation, ending with a user turn"
// @Success 200 {object} APIResponse{data=ai.Reply}
// @Failure 502 {object} APIResponse "Every provider failed"
// @Failure 503 {object} APIResponse "No provider configured"
// @Router /ai/chat [post]
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	if h.ai == nil || !h.ai.Enabled() {
		NewResponseWriter(w, r).Error(http.StatusServiceUnavailable, ErrCodeExternalServiceFail, "AI chat is not configured")
		return
	}
	s, ok := subject(w, r)
	if !ok {
		return
	}
	var req ChatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	reply, err := h.ai.Chat(r.Context(), s.ID, req.Messages)
	if err != nil {
		writeServiceError(w, r, "ai", err)
		return
	}
	NewResponseWriter(w, r).Success(reply)
}

// ChatHistory returns the caller's recent chat turns, oldest first.
//
// @Summary Get chat history
// @Tags AI
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Maximum messages (default 50)"
// @Success 200 {object} APIResponse{data=[]models.ChatMessage}
// @Router /ai/history [get]
func (h *Handler) ChatHistory(w http.ResponseWriter, r *http.Request) {
	s, ok := subject(w, r)
	if !ok {
		return
	}
	if h.ai == nil {
		NewResponseWriter(w, r).Success([]*models.ChatMessage{})
		return
	}
	limit, _ := pageParams(r)
	out, err := h.ai.History(r.Context(), s.ID, limit)
	if err != nil {
		writeServiceError(w, r, "database", err)
		return
	}
	if out == nil {
		out = []*models.ChatMessage{}
	}
	NewResponseWriter(w, r).Success(out)
}
