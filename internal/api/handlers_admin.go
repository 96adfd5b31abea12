// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/owldoor/internal/audit"
	"github.com/tomtom215/owldoor/internal/auth"
	"github.com/tomtom215/owldoor/internal/logging"
	"github.com/tomtom215/owldoor/internal/middleware"
	"github.com/tomtom215/owldoor/internal/models"
	ws "github.com/tomtom215/owldoor/internal/websocket"
)

// Dashboard is the body of GET /admin/dashboard.
type Dashboard struct {
	Stats            *models.DashboardStats  `json:"stats"`
	Routes           []middleware.RouteStats `json:"routes"`
	DashboardClients int                     `json:"dashboard_clients"`
	EventTransport   string                  `json:"event_transport,omitempty"`
	Uptime           float64                 `json:"uptime_seconds"`
}

// AdminDashboard returns pipeline, billing and delivery totals together with
// recent request latencies.
//
// @Summary Admin dashboard
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} APIResponse{data=Dashboard}
// @Router /admin/dashboard [get]
func (h *Handler) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.db.GetDashboardStats(r.Context())
	if err != nil {
		writeServiceError(w, r, "database", err)
		return
	}
	d := Dashboard{
		Stats:          stats,
		Routes:         h.perfMon.Stats(),
		EventTransport: h.transport,
		Uptime:         time.Since(h.startTime).Seconds(),
	}
	if h.hub != nil {
		d.DashboardClients = h.hub.ClientCount()
	}
	NewResponseWriter(w, r).Success(d)
}

// AuditEvents lists the admin action trail, newest first.
//
// @Summary List audit events
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param type query string false "Comma-separated event types"
// @Param actor_id query string false "Actor ID"
// @Param target_type query string false "pro, client, match or notification"
// @Param target_id query string false "Target ID"
// @Param since query string false "RFC3339 lower bound"
// @Param until query string false "RFC3339 upper bound"
// @Param limit query int false "Page size (max 1000)"
// @Param offset query int false "Offset"
// @Success 200 {object} APIResponse{data=[]audit.Event}
// @Router /admin/audit [get]
func (h *Handler) AuditEvents(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		NewResponseWriter(w, r).Success([]audit.Event{})
		return
	}
	q := r.URL.Query()
	filter := audit.DefaultQueryFilter()
	for _, t := range parseCommaSeparated(q.Get("type")) {
		filter.Types = append(filter.Types, audit.EventType(t))
	}
	filter.ActorID = q.Get("actor_id")
	filter.TargetType = q.Get("target_type")
	filter.TargetID = q.Get("target_id")
	filter.Limit = getIntParam(r, "limit", filter.Limit)
	if filter.Limit < 1 || filter.Limit > 1000 {
		filter.Limit = 1000
	}
	filter.Offset = getIntParam(r, "offset", 0)
	for name, dst := range map[string]**time.Time{"since": &filter.Since, "until": &filter.Until} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			NewResponseWriter(w, r).BadRequest(name + " must be an RFC3339 timestamp")
			return
		}
		*dst = &t
	}

	events, err := h.audit.Query(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, "database", err)
		return
	}
	total, err := h.audit.Count(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, "database", err)
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	NewResponseWriter(w, r).SuccessWithPagination(events,
		pagination(int(total), len(events), filter.Limit, filter.Offset))
}

// AdminWebSocket upgrades to the live event feed.
//
// @Summary Live event feed
// @Description Streams pro, match and payment events as they happen. Browsers pass the token as access_token.
// @Tags Admin
// @Security BearerAuth
// @Success 101 "Switching protocols"
// @Router /admin/ws [get]
func (h *Handler) AdminWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		NewResponseWriter(w, r).Error(http.StatusServiceUnavailable, ErrCodeInternalError, "live feed unavailable")
		return
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	var userID string
	if s := auth.GetAuthSubject(r.Context()); s != nil {
		userID = s.ID
	}
	client := ws.NewClient(h.hub, conn, userID)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if !h.hub.Register(ctx, client) {
		logging.Ctx(r.Context()).Warn().Msg("WebSocket hub not accepting clients")
		_ = conn.Close()
		return
	}
	client.Start()
}

func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin accepts browsers from a configured CORS origin.
// Requests without an Origin header are rejected.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		logging.Warn().Msg("WebSocket connection rejected: missing Origin header")
		return false
	}
	for _, allowed := range h.cfg.Security.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	logging.Warn().Str("origin", logging.SanitizeValue(origin)).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}
