// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package notify

import (
	"bytes"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

// Template names.
const (
	TemplateMatchNotice    = "match_notice"
	TemplateNewOpportunity = "new_opportunity"
	TemplateWelcome        = "welcome"
	TemplatePaymentReceipt = "payment_receipt"
)

// ErrUnknownTemplate is returned by Render for an unregistered name.
var ErrUnknownTemplate = errors.New("unknown template")

// MatchNoticeData feeds the client-facing new match email.
type MatchNoticeData struct {
	CompanyName   string
	ProName       string
	ProType       string
	Score         int
	DistanceMiles float64
	DashboardURL  string
}

// OpportunityData feeds the Pro-facing SMS.
type OpportunityData struct {
	FirstName   string
	CompanyName string
	City        string
}

// WelcomeData feeds the welcome email.
type WelcomeData struct {
	Name         string
	Role         string
	DashboardURL string
}

// ReceiptData feeds the payment receipt email.
type ReceiptData struct {
	CompanyName string
	Plan        string
	AmountCents int64
	Currency    string
	PaymentID   string
}

// Rendered is a template's output.
type Rendered struct {
	Channel string
	Subject string
	Text    string
	HTML    string
}

type template struct {
	channel string
	subject *texttemplate.Template
	text    *texttemplate.Template
	html    *htmltemplate.Template
}

var funcs = map[string]interface{}{
	"dollars": func(cents int64) string { return fmt.Sprintf("$%d.%02d", cents/100, cents%100) },
	"miles":   func(m float64) string { return fmt.Sprintf("%.1f mi", m) },
	"upper":   strings.ToUpper,
}

// Templates is the registry of built-in notification templates.
type Templates struct {
	byName map[string]*template
}

// NewTemplates parses the built-in templates.
func NewTemplates() (*Templates, error) {
	t := &Templates{byName: make(map[string]*template)}
	defs := []struct {
		name, channel, subject, text, html string
	}{
		{
			name:    TemplateMatchNotice,
			channel: "email",
			subject: `New match for {{.CompanyName}}: {{.ProName}}`,
			text: `Hi {{.CompanyName}} team,

We found a new candidate for you: {{.ProName}} ({{.ProType}}), qualification score {{.Score}}/100, {{miles .DistanceMiles}} from your market.

Review the match: {{.DashboardURL}}
`,
			html: `<p>Hi {{.CompanyName}} team,</p>
<p>We found a new candidate for you: <strong>{{.ProName}}</strong> ({{.ProType}}),
qualification score <strong>{{.Score}}/100</strong>, {{miles .DistanceMiles}} from your market.</p>
<p><a href="{{.DashboardURL}}">Review the match</a></p>`,
		},
		{
			name:    TemplateNewOpportunity,
			channel: "sms",
			text:    `Hi {{.FirstName}}, {{.CompanyName}}{{if .City}} in {{.City}}{{end}} is interested in talking with you about a new opportunity. Reply YES to connect or STOP to opt out.`,
		},
		{
			name:    TemplateWelcome,
			channel: "email",
			subject: `Welcome to OwlDoor, {{.Name}}`,
			text: `Welcome to OwlDoor, {{.Name}}!

Your {{.Role}} account is ready. Finish setting up here: {{.DashboardURL}}
`,
			html: `<p>Welcome to OwlDoor, {{.Name}}!</p>
<p>Your {{.Role}} account is ready. <a href="{{.DashboardURL}}">Finish setting up</a>.</p>`,
		},
		{
			name:    TemplatePaymentReceipt,
			channel: "email",
			subject: `OwlDoor receipt: {{.Plan}} plan`,
			text: `Thanks, {{.CompanyName}}.

We received your payment of {{dollars .AmountCents}} {{upper .Currency}} for the {{.Plan}} plan.
Reference: {{.PaymentID}}
`,
			html: `<p>Thanks, {{.CompanyName}}.</p>
<p>We received your payment of <strong>{{dollars .AmountCents}} {{upper .Currency}}</strong> for the {{.Plan}} plan.</p>
<p>Reference: {{.PaymentID}}</p>`,
		},
	}

	for _, d := range defs {
		tpl := &template{channel: d.channel}
		var err error
		if d.subject != "" {
			if tpl.subject, err = texttemplate.New(d.name + "_subject").Funcs(funcs).Parse(d.subject); err != nil {
				return nil, fmt.Errorf("failed to parse %s subject: %w", d.name, err)
			}
		}
		if tpl.text, err = texttemplate.New(d.name + "_text").Funcs(funcs).Parse(d.text); err != nil {
			return nil, fmt.Errorf("failed to parse %s text: %w", d.name, err)
		}
		if d.html != "" {
			if tpl.html, err = htmltemplate.New(d.name + "_html").Funcs(funcs).Parse(d.html); err != nil {
				return nil, fmt.Errorf("failed to parse %s html: %w", d.name, err)
			}
		}
		t.byName[d.name] = tpl
	}
	return t, nil
}

// Render executes the named template with data.
func (t *Templates) Render(name string, data interface{}) (*Rendered, error) {
	tpl, ok := t.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTemplate, name)
	}
	out := &Rendered{Channel: tpl.channel}

	var buf bytes.Buffer
	if tpl.subject != nil {
		if err := tpl.subject.Execute(&buf, data); err != nil {
			return nil, fmt.Errorf("failed to render %s subject: %w", name, err)
		}
		out.Subject = strings.TrimSpace(buf.String())
		buf.Reset()
	}
	if err := tpl.text.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render %s text: %w", name, err)
	}
	out.Text = buf.String()
	if tpl.html != nil {
		buf.Reset()
		if err := tpl.html.Execute(&buf, data); err != nil {
			return nil, fmt.Errorf("failed to render %s html: %w", name, err)
		}
		out.HTML = buf.String()
	}
	return out, nil
}
