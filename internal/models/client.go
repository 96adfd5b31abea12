// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package models

import (
	"time"

	"github.com/google/uuid"
)

// ClientStatus tracks a Client's subscription state.
type ClientStatus string

const (
	ClientStatusPending  ClientStatus = "pending"
	ClientStatusActive   ClientStatus = "active"
	ClientStatusPastDue  ClientStatus = "past_due"
	ClientStatusCanceled ClientStatus = "canceled"
)

// Client is a brokerage, team or lender hiring Pros.
type Client struct {
	ID          uuid.UUID `json:"id"`
	OwnerUserID string    `json:"owner_user_id"`

	CompanyName string `json:"company_name"`
	ContactName string `json:"contact_name,omitempty"`
	Email       string `json:"email"`
	Phone       string `json:"phone,omitempty"`

	// Hiring criteria.
	ProType         ProType  `json:"pro_type"`
	MarketAddress   string   `json:"market_address"`
	Latitude        *float64 `json:"latitude,omitempty"`
	Longitude       *float64 `json:"longitude,omitempty"`
	RadiusMiles     float64  `json:"radius_miles"`
	MinScore        int      `json:"min_score"`
	MinTransactions int      `json:"min_transactions"`
	MinYears        int      `json:"min_years"`
	LicensedStates  []string `json:"licensed_states,omitempty"`

	Plan           string       `json:"plan,omitempty"`
	LeadsPerMonth  int          `json:"leads_per_month"`
	Status         ClientStatus `json:"status"`
	SubscriptionID string       `json:"subscription_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasLocation reports whether the market address has been geocoded.
func (c *Client) HasLocation() bool {
	return c.Latitude != nil && c.Longitude != nil
}

// Location returns the market center.
func (c *Client) Location() GeoPoint {
	if !c.HasLocation() {
		return GeoPoint{}
	}
	return GeoPoint{Lat: *c.Latitude, Lng: *c.Longitude}
}

// SetLocation stores the geocoded market center.
func (c *Client) SetLocation(pt GeoPoint) {
	lat, lng := pt.Lat, pt.Lng
	c.Latitude = &lat
	c.Longitude = &lng
}
