// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/twilio/twilio-go"
	twclient "github.com/twilio/twilio-go/client"
	twapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/tomtom215/owldoor/internal/config"
	"github.com/tomtom215/owldoor/internal/models"
	"github.com/tomtom215/owldoor/internal/resilience"
)

const defaultTwilioURL = "https://api.twilio.com"

// TwilioChannel sends SMS through the Twilio Messages API.
type TwilioChannel struct {
	accountSID string
	from       string
	rest       *twilio.RestClient
}

// NewTwilioChannel creates an SMS channel. A BaseURL other than the public
// API redirects the SDK's requests to that host.
func NewTwilioChannel(cfg *config.TwilioConfig) *TwilioChannel {
	httpClient := &http.Client{Timeout: 15 * time.Second}
	if cfg.BaseURL != "" && cfg.BaseURL != defaultTwilioURL {
		if u, err := url.Parse(cfg.BaseURL); err == nil && u.Host != "" {
			httpClient.Transport = &hostRewrite{target: u, next: http.DefaultTransport}
		}
	}
	c := &twclient.Client{
		Credentials: twclient.NewCredentials(cfg.AccountSID, cfg.AuthToken),
		HTTPClient:  httpClient,
	}
	c.SetAccountSid(cfg.AccountSID)

	return &TwilioChannel{
		accountSID: cfg.AccountSID,
		from:       cfg.FromNumber,
		rest:       twilio.NewRestClientWithParams(twilio.ClientParams{Client: c}),
	}
}

// hostRewrite sends every request to target's scheme and host.
type hostRewrite struct {
	target *url.URL
	next   http.RoundTripper
}

func (h *hostRewrite) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.URL.Scheme = h.target.Scheme
	out.URL.Host = h.target.Host
	out.Host = h.target.Host
	return h.next.RoundTrip(out)
}

// Name returns "sms".
func (c *TwilioChannel) Name() string { return models.ChannelSMS }

// Validate checks the recipient number and body length.
func (c *TwilioChannel) Validate(msg *Message) error { return validateSMS(msg) }

// Send creates a message resource. The SDK call takes no context, so ctx is
// only checked before sending.
func (c *TwilioChannel) Send(ctx context.Context, msg *Message) (*DeliveryResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, resilience.NewFatalError(err)
	}
	params := &twapi.CreateMessageParams{}
	params.SetPathAccountSid(c.accountSID)
	params.SetTo(msg.To)
	params.SetFrom(c.from)
	params.SetBody(msg.Body)

	resp, err := c.rest.Api.CreateMessage(params)
	if err != nil {
		return nil, classifyTwilioError(err)
	}
	if resp.ErrorCode != nil {
		detail := ""
		if resp.ErrorMessage != nil {
			detail = *resp.ErrorMessage
		}
		return nil, resilience.NewFatalError(fmt.Errorf("twilio error %d: %s", *resp.ErrorCode, detail))
	}
	res := &DeliveryResult{}
	if resp.Sid != nil {
		res.ProviderID = *resp.Sid
	}
	if resp.Status != nil {
		res.Status = *resp.Status
	}
	return res, nil
}

func classifyTwilioError(err error) error {
	var rerr *twclient.TwilioRestError
	if errors.As(err, &rerr) {
		return resilience.HTTPStatusError("twilio", rerr.Status, rerr.Message)
	}
	return resilience.NewTransientError(fmt.Errorf("failed to reach twilio: %w", err))
}
