// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/tomtom215/owldoor/internal/config"
	"github.com/tomtom215/owldoor/internal/models"
	"github.com/tomtom215/owldoor/internal/resilience"
)

const defaultSendGridURL = "https://api.sendgrid.com"

// SendGridChannel sends email through the SendGrid v3 mail send API.
type SendGridChannel struct {
	apiKey string
	host   string
	from   *mail.Email
	client *rest.Client
}

// NewSendGridChannel creates an email channel.
func NewSendGridChannel(cfg *config.SendGridConfig) *SendGridChannel {
	host := cfg.BaseURL
	if host == "" {
		host = defaultSendGridURL
	}
	return &SendGridChannel{
		apiKey: cfg.APIKey,
		host:   strings.TrimRight(host, "/"),
		from:   mail.NewEmail(cfg.FromName, cfg.FromEmail),
		client: &rest.Client{HTTPClient: &http.Client{Timeout: 15 * time.Second}},
	}
}

// Name returns "email".
func (c *SendGridChannel) Name() string { return models.ChannelEmail }

// Validate checks the recipient, subject and body.
func (c *SendGridChannel) Validate(msg *Message) error { return validateEmail(msg) }

// Send posts the message. SendGrid answers 202 with the message ID in the
// X-Message-Id header.
func (c *SendGridChannel) Send(ctx context.Context, msg *Message) (*DeliveryResult, error) {
	m := mail.NewV3Mail()
	m.SetFrom(c.from)
	m.Subject = msg.Subject
	p := mail.NewPersonalization()
	p.AddTos(mail.NewEmail("", msg.To))
	m.AddPersonalizations(p)
	// text/plain must precede text/html.
	if msg.Body != "" {
		m.AddContent(mail.NewContent("text/plain", msg.Body))
	}
	if msg.HTML != "" {
		m.AddContent(mail.NewContent("text/html", msg.HTML))
	}

	req := sendgrid.GetRequest(c.apiKey, "/v3/mail/send", c.host)
	req.Method = rest.Post
	req.Headers["Content-Type"] = "application/json"
	req.Body = mail.GetRequestBody(m)

	resp, err := c.client.SendWithContext(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, resilience.NewFatalError(ctx.Err())
		}
		return nil, resilience.NewTransientError(fmt.Errorf("failed to reach sendgrid: %w", err))
	}
	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		return nil, resilience.HTTPStatusError("sendgrid", resp.StatusCode, resp.Body)
	}
	return &DeliveryResult{ProviderID: http.Header(resp.Headers).Get("X-Message-Id"), Status: "accepted"}, nil
}
