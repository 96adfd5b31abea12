// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package notify

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tomtom215/owldoor/internal/config"
	"github.com/tomtom215/owldoor/internal/logging"
	"github.com/tomtom215/owldoor/internal/metrics"
	"github.com/tomtom215/owldoor/internal/models"
	"github.com/tomtom215/owldoor/internal/resilience"
)

// Store records delivery attempts.
type Store interface {
	InsertNotification(ctx context.Context, n *models.Notification) error
}

// Outbound rates per channel. Twilio long codes accept about one message per
// second; SendGrid is far more permissive.
var channelRates = map[string]struct {
	rps   rate.Limit
	burst int
}{
	models.ChannelSMS:   {rps: 1, burst: 5},
	models.ChannelEmail: {rps: 10, burst: 20},
}

type route struct {
	channel Channel
	limiter *rate.Limiter
	breaker *resilience.Breaker[*DeliveryResult]
}

// Dispatcher sends messages through their channel and logs every attempt.
type Dispatcher struct {
	routes    map[string]*route
	templates *Templates
	store     Store
}

// NewDispatcher creates a dispatcher over channels. store may be nil.
func NewDispatcher(store Store, templates *Templates, channels ...Channel) *Dispatcher {
	d := &Dispatcher{routes: make(map[string]*route), templates: templates, store: store}
	for _, ch := range channels {
		r, ok := channelRates[ch.Name()]
		if !ok {
			r.rps, r.burst = 5, 5
		}
		d.routes[ch.Name()] = &route{
			channel: ch,
			limiter: rate.NewLimiter(r.rps, r.burst),
			breaker: resilience.NewBreaker[*DeliveryResult]("notify-"+ch.Name(), resilience.BreakerSettings{}),
		}
	}
	return d
}

// NewDispatcherFromConfig wires the enabled providers.
func NewDispatcherFromConfig(twilio *config.TwilioConfig, sendgrid *config.SendGridConfig, store Store) (*Dispatcher, error) {
	templates, err := NewTemplates()
	if err != nil {
		return nil, err
	}
	var channels []Channel
	if twilio.Enabled {
		channels = append(channels, NewTwilioChannel(twilio))
	}
	if sendgrid.Enabled {
		channels = append(channels, NewSendGridChannel(sendgrid))
	}
	return NewDispatcher(store, templates, channels...), nil
}

// Channels lists the configured channel names.
func (d *Dispatcher) Channels() []string {
	names := make([]string, 0, len(d.routes))
	for name := range d.routes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Send validates and delivers msg. The returned notification carries the
// recorded outcome even when err is non-nil, unless validation failed.
func (d *Dispatcher) Send(ctx context.Context, msg *Message) (*models.Notification, error) {
	r, ok := d.routes[msg.Channel]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownChannel, msg.Channel)
	}
	if err := r.channel.Validate(msg); err != nil {
		return nil, err
	}

	n := &models.Notification{
		Channel:   msg.Channel,
		Recipient: msg.To,
		Subject:   msg.Subject,
		Body:      msg.Body,
		Template:  msg.Template,
	}

	res, err := d.deliver(ctx, r, msg)
	if err != nil {
		n.Status = models.NotificationFailed
		n.Error = err.Error()
	} else {
		n.Status = models.NotificationSent
		n.ProviderID = res.ProviderID
	}
	metrics.NotificationsSent.WithLabelValues(msg.Channel, n.Status).Inc()

	var event *zerolog.Event
	if err != nil {
		event = logging.Ctx(ctx).Warn().Err(err)
	} else {
		event = logging.Ctx(ctx).Info()
	}
	event.Str("channel", msg.Channel).Str("to", redact(msg)).Str("status", n.Status).
		Str("template", msg.Template).Msg("Notification attempted")

	if d.store != nil {
		if serr := d.store.InsertNotification(ctx, n); serr != nil {
			logging.Ctx(ctx).Error().Err(serr).Msg("Failed to record notification")
		}
	}
	if err != nil {
		return n, fmt.Errorf("failed to send %s: %w", msg.Channel, err)
	}
	return n, nil
}

// SendTemplate renders a built-in template and sends it to "to".
func (d *Dispatcher) SendTemplate(ctx context.Context, name, to string, data interface{}) (*models.Notification, error) {
	if d.templates == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTemplate, name)
	}
	r, err := d.templates.Render(name, data)
	if err != nil {
		return nil, err
	}
	return d.Send(ctx, &Message{
		Channel:  r.Channel,
		To:       to,
		Subject:  r.Subject,
		Body:     r.Text,
		HTML:     r.HTML,
		Template: name,
	})
}

func (d *Dispatcher) deliver(ctx context.Context, r *route, msg *Message) (*DeliveryResult, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, resilience.NewTransientError(fmt.Errorf("rate limit wait: %w", err))
	}
	return r.breaker.Execute(func() (*DeliveryResult, error) {
		return r.channel.Send(ctx, msg)
	})
}

func redact(msg *Message) string {
	if msg.Channel == models.ChannelSMS {
		return logging.RedactPhone(msg.To)
	}
	return logging.RedactEmail(msg.To)
}
