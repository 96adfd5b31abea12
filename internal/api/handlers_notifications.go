// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package api

import (
	"net/http"

	"github.com/tomtom215/owldoor/internal/audit"
	"github.com/tomtom215/owldoor/internal/models"
	"github.com/tomtom215/owldoor/internal/notify"
)

// SendSMS sends a text message through Twilio.
//
// @Summary Send an SMS
// @Tags Notifications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body SMSRequest true "Message"
// @Success 200 {object} APIResponse{data=models.Notification}
// @Failure 502 {object} APIResponse "Provider failed; the attempt is still recorded"
// @Router /notifications/sms [post]
func (h *Handler) SendSMS(w http.ResponseWriter, r *http.Request) {
	var req SMSRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.send(w, r, &notify.Message{Channel: models.ChannelSMS, To: req.To, Body: req.Body})
}

// SendEmail sends an email through SendGrid.
//
// @Summary Send an email
// @Tags Notifications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body EmailRequest true "Message"
// @Success 200 {object} APIResponse{data=models.Notification}
// @Failure 502 {object} APIResponse "Provider failed; the attempt is still recorded"
// @Router /notifications/email [post]
func (h *Handler) SendEmail(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.send(w, r, &notify.Message{
		Channel: models.ChannelEmail,
		To:      req.To,
		Subject: req.Subject,
		Body:    req.Body,
		HTML:    req.HTML,
	})
}

func (h *Handler) send(w http.ResponseWriter, r *http.Request, msg *notify.Message) {
	if h.notify == nil {
		NewResponseWriter(w, r).Error(http.StatusServiceUnavailable, ErrCodeExternalServiceFail, "notifications are not configured")
		return
	}
	n, err := h.notify.Send(r.Context(), msg)
	if n != nil {
		h.auditFn(r, func(l *audit.Logger, actor audit.Actor, src audit.Source) {
			outcome := audit.OutcomeSuccess
			if err != nil {
				outcome = audit.OutcomeFailure
			}
			l.Log(r.Context(), &audit.Event{
				Type:        audit.EventNotificationSent,
				Outcome:     outcome,
				Actor:       actor,
				Source:      src,
				Target:      audit.Target{Type: "notification", ID: n.ID.String()},
				Description: "Manual " + msg.Channel + " sent",
			})
		})
	}
	if err != nil {
		writeServiceError(w, r, msg.Channel, err)
		return
	}
	NewResponseWriter(w, r).Success(n)
}

// ListNotifications lists recorded delivery attempts, newest first.
//
// @Summary List notifications
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Param channel query string false "sms or email"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} APIResponse{data=[]models.Notification}
// @Router /notifications [get]
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	channel := r.URL.Query().Get("channel")
	if channel != "" && channel != models.ChannelSMS && channel != models.ChannelEmail {
		NewResponseWriter(w, r).BadRequest("channel must be sms or email")
		return
	}
	limit, offset := pageParams(r)
	out, err := h.db.ListNotifications(r.Context(), channel, limit, offset)
	if err != nil {
		writeServiceError(w, r, "database", err)
		return
	}
	if out == nil {
		out = []*models.Notification{}
	}
	NewResponseWriter(w, r).Success(out)
}
