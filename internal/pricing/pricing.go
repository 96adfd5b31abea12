// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

// Package pricing computes subscription quotes.
//
// A quote is a plan (per seat, per month), optional add-ons, and three
// discounts applied in a fixed order to the running total: seat volume on the
// plan line, annual billing, then a promo code. All amounts are integer cents.
package pricing

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Errors returned by Quote and ParsePromoCodes.
var (
	ErrUnknownPlan   = errors.New("unknown plan")
	ErrUnknownAddOn  = errors.New("unknown add-on")
	ErrUnknownPromo  = errors.New("unknown promo code")
	ErrPromoMinPlan  = errors.New("promo code requires a higher plan")
	ErrInvalidSeats  = errors.New("seats must be at least 1")
	ErrInvalidPacks  = errors.New("lead packs must not be negative")
	ErrInvalidPromo  = errors.New("invalid promo code definition")
	ErrInvalidPeriod = errors.New("billing interval must be month or year")
)

// Billing intervals.
const (
	Monthly = "month"
	Annual  = "year"
)

// Plan is a subscription tier, priced per seat per month.
type Plan struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Rank          int    `json:"rank"`
	PriceCents    int64  `json:"price_cents"`
	LeadsPerMonth int    `json:"leads_per_month"`
}

// AddOn is a flat monthly extra.
type AddOn struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
}

var plans = map[string]Plan{
	"starter":    {ID: "starter", Name: "Starter", Rank: 1, PriceCents: 9900, LeadsPerMonth: 25},
	"growth":     {ID: "growth", Name: "Growth", Rank: 2, PriceCents: 24900, LeadsPerMonth: 75},
	"pro":        {ID: "pro", Name: "Pro", Rank: 3, PriceCents: 49900, LeadsPerMonth: 200},
	"enterprise": {ID: "enterprise", Name: "Enterprise", Rank: 4, PriceCents: 99900, LeadsPerMonth: 500},
}

var addOns = map[string]AddOn{
	"sms_outreach":      {ID: "sms_outreach", Name: "SMS Outreach", PriceCents: 4900},
	"ai_assistant":      {ID: "ai_assistant", Name: "AI Recruiting Assistant", PriceCents: 7900},
	"priority_matching": {ID: "priority_matching", Name: "Priority Matching", PriceCents: 9900},
	"crm_sync":          {ID: "crm_sync", Name: "CRM Sync", PriceCents: 2900},
}

// LeadPackSize is the number of extra leads per pack.
const LeadPackSize = 10

// leadPackUnitCents returns the per-pack price for a pack count.
func leadPackUnitCents(packs int) int64 {
	switch {
	case packs >= 10:
		return 4000
	case packs >= 5:
		return 4500
	default:
		return 5000
	}
}

// seatDiscountPercent returns the volume discount for a seat count.
func seatDiscountPercent(seats int) int64 {
	switch {
	case seats >= 10:
		return 10
	case seats >= 5:
		return 5
	default:
		return 0
	}
}

const annualDiscountPercent = 15

// Plans returns the catalog ordered by rank.
func Plans() []Plan {
	out := make([]Plan, 0, len(plans))
	for _, p := range plans {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return out
}

// AddOns returns the flat add-on catalog ordered by ID.
func AddOns() []AddOn {
	out := make([]AddOn, 0, len(addOns))
	for _, a := range addOns {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LookupPlan returns the plan with id.
func LookupPlan(id string) (Plan, bool) {
	p, ok := plans[strings.ToLower(id)]
	return p, ok
}

// PromoKind is how a promo code reduces the total.
type PromoKind string

const (
	PromoPercent PromoKind = "percent"
	PromoFixed   PromoKind = "fixed"
)

// Promo is a configured promo code.
type Promo struct {
	Code    string    `json:"code"`
	Kind    PromoKind `json:"kind"`
	Amount  int64     `json:"amount"` // percent (1-100) or cents
	MinPlan string    `json:"min_plan,omitempty"`
}

// ParsePromoCodes parses "CODE:percent|fixed:amount[:min_plan]" entries.
// Codes are case-insensitive.
func ParsePromoCodes(entries []string) (map[string]Promo, error) {
	out := make(map[string]Promo, len(entries))
	for _, entry := range entries {
		parts := strings.Split(strings.TrimSpace(entry), ":")
		if len(parts) < 3 || len(parts) > 4 || parts[0] == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPromo, entry)
		}
		amount, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil || amount <= 0 {
			return nil, fmt.Errorf("%w: %q: amount must be a positive integer", ErrInvalidPromo, entry)
		}
		p := Promo{Code: strings.ToUpper(parts[0]), Kind: PromoKind(parts[1]), Amount: amount}
		switch p.Kind {
		case PromoPercent:
			if amount > 100 {
				return nil, fmt.Errorf("%w: %q: percent above 100", ErrInvalidPromo, entry)
			}
		case PromoFixed:
		default:
			return nil, fmt.Errorf("%w: %q: kind must be percent or fixed", ErrInvalidPromo, entry)
		}
		if len(parts) == 4 {
			if _, ok := LookupPlan(parts[3]); !ok {
				return nil, fmt.Errorf("%w: %q: %w", ErrInvalidPromo, entry, ErrUnknownPlan)
			}
			p.MinPlan = strings.ToLower(parts[3])
		}
		out[p.Code] = p
	}
	return out, nil
}

// Request describes what a client wants to buy.
type Request struct {
	Plan      string   `json:"plan" validate:"required"`
	Seats     int      `json:"seats" validate:"gte=0"`
	AddOns    []string `json:"add_ons,omitempty" validate:"max=10"`
	LeadPacks int      `json:"lead_packs"`
	Interval  string   `json:"interval,omitempty" validate:"omitempty,oneof=month year"`
	PromoCode string   `json:"promo_code,omitempty" validate:"max=64"`
}

// LineItem is one priced row of a quote, per month.
type LineItem struct {
	Kind           string `json:"kind"` // plan, add_on, lead_pack
	ID             string `json:"id"`
	Description    string `json:"description"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	AmountCents    int64  `json:"amount_cents"`
}

// Discount is one applied reduction.
type Discount struct {
	Kind        string `json:"kind"` // seat_volume, annual, promo
	Description string `json:"description"`
	AmountCents int64  `json:"amount_cents"`
}

// Quote is a priced Request.
type Quote struct {
	Plan                   string     `json:"plan"`
	Seats                  int        `json:"seats"`
	Interval               string     `json:"interval"`
	LineItems              []LineItem `json:"line_items"`
	Discounts              []Discount `json:"discounts"`
	SubtotalCents          int64      `json:"subtotal_cents"` // before discounts, for the whole interval
	DiscountCents          int64      `json:"discount_cents"`
	TotalCents             int64      `json:"total_cents"`
	MonthlyEquivalentCents int64      `json:"monthly_equivalent_cents"`
	LeadsIncluded          int        `json:"leads_included"` // per month
	Currency               string     `json:"currency"`
}

// Calculator prices requests against the catalog and a set of promo codes.
type Calculator struct {
	promos map[string]Promo
}

// NewCalculator creates a calculator. promos may be nil.
func NewCalculator(promos map[string]Promo) *Calculator {
	if promos == nil {
		promos = map[string]Promo{}
	}
	return &Calculator{promos: promos}
}

// percentOf returns pct% of amount, rounded half up.
func percentOf(amount, pct int64) int64 {
	return (amount*pct + 50) / 100
}

// Quote prices req. Seats of 0 defaults to 1; interval defaults to monthly.
func (c *Calculator) Quote(req Request) (*Quote, error) {
	plan, ok := LookupPlan(req.Plan)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlan, req.Plan)
	}
	seats := req.Seats
	if seats == 0 {
		seats = 1
	}
	if seats < 1 {
		return nil, ErrInvalidSeats
	}
	if req.LeadPacks < 0 {
		return nil, ErrInvalidPacks
	}
	interval := strings.ToLower(req.Interval)
	if interval == "" {
		interval = Monthly
	}
	if interval != Monthly && interval != Annual {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPeriod, req.Interval)
	}

	q := &Quote{
		Plan:          plan.ID,
		Seats:         seats,
		Interval:      interval,
		LineItems:     make([]LineItem, 0, 2+len(req.AddOns)),
		Discounts:     make([]Discount, 0, 3),
		LeadsIncluded: plan.LeadsPerMonth*seats + req.LeadPacks*LeadPackSize,
		Currency:      "usd",
	}

	planLine := LineItem{
		Kind:           "plan",
		ID:             plan.ID,
		Description:    fmt.Sprintf("%s plan (%d leads/seat/month)", plan.Name, plan.LeadsPerMonth),
		Quantity:       seats,
		UnitPriceCents: plan.PriceCents,
		AmountCents:    plan.PriceCents * int64(seats),
	}
	q.LineItems = append(q.LineItems, planLine)
	monthly := planLine.AmountCents

	seen := make(map[string]bool, len(req.AddOns))
	for _, id := range req.AddOns {
		id = strings.ToLower(strings.TrimSpace(id))
		if id == "lead_pack" {
			// Lead packs are requested through LeadPacks.
			continue
		}
		a, ok := addOns[id]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownAddOn, id)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		q.LineItems = append(q.LineItems, LineItem{
			Kind:           "add_on",
			ID:             a.ID,
			Description:    a.Name,
			Quantity:       1,
			UnitPriceCents: a.PriceCents,
			AmountCents:    a.PriceCents,
		})
		monthly += a.PriceCents
	}

	if req.LeadPacks > 0 {
		unit := leadPackUnitCents(req.LeadPacks)
		amount := unit * int64(req.LeadPacks)
		q.LineItems = append(q.LineItems, LineItem{
			Kind:           "lead_pack",
			ID:             "lead_pack",
			Description:    fmt.Sprintf("Lead pack (%d leads each)", LeadPackSize),
			Quantity:       req.LeadPacks,
			UnitPriceCents: unit,
			AmountCents:    amount,
		})
		monthly += amount
	}

	months := int64(1)
	if interval == Annual {
		months = 12
	}
	q.SubtotalCents = monthly * months

	// 1. Seat volume, on the plan line only.
	running := monthly
	if pct := seatDiscountPercent(seats); pct > 0 {
		d := percentOf(planLine.AmountCents, pct)
		running -= d
		q.Discounts = append(q.Discounts, Discount{
			Kind:        "seat_volume",
			Description: fmt.Sprintf("%d%% volume discount for %d seats", pct, seats),
			AmountCents: d * months,
		})
	}
	running *= months

	// 2. Annual billing.
	if interval == Annual {
		d := percentOf(running, annualDiscountPercent)
		running -= d
		q.Discounts = append(q.Discounts, Discount{
			Kind:        "annual",
			Description: fmt.Sprintf("%d%% annual billing discount", annualDiscountPercent),
			AmountCents: d,
		})
	}

	// 3. Promo code.
	if code := strings.ToUpper(strings.TrimSpace(req.PromoCode)); code != "" {
		promo, ok := c.promos[code]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownPromo, req.PromoCode)
		}
		if promo.MinPlan != "" && plan.Rank < plans[promo.MinPlan].Rank {
			return nil, fmt.Errorf("%w: %s needs %s or above", ErrPromoMinPlan, code, promo.MinPlan)
		}
		var d int64
		desc := ""
		if promo.Kind == PromoPercent {
			d = percentOf(running, promo.Amount)
			desc = fmt.Sprintf("Promo %s (%d%% off)", code, promo.Amount)
		} else {
			d = promo.Amount
			desc = fmt.Sprintf("Promo %s ($%s off)", code, formatDollars(promo.Amount))
		}
		if d > running {
			d = running
		}
		running -= d
		q.Discounts = append(q.Discounts, Discount{Kind: "promo", Description: desc, AmountCents: d})
	}

	q.TotalCents = running
	q.DiscountCents = q.SubtotalCents - q.TotalCents
	q.MonthlyEquivalentCents = (q.TotalCents + months/2) / months
	return q, nil
}

func formatDollars(cents int64) string {
	if cents%100 == 0 {
		return strconv.FormatInt(cents/100, 10)
	}
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
