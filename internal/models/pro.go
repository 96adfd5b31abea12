// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ProType distinguishes real estate agents from mortgage loan officers.
type ProType string

const (
	ProTypeAgent       ProType = "agent"
	ProTypeLoanOfficer ProType = "loan_officer"
)

// Valid reports whether t is a known Pro type.
func (t ProType) Valid() bool {
	return t == ProTypeAgent || t == ProTypeLoanOfficer
}

// Stage is the pipeline bucket derived from the qualification score.
type Stage string

const (
	StageNew       Stage = "new"
	StageCold      Stage = "cold"
	StageNurture   Stage = "nurture"
	StageQualified Stage = "qualified"
	StageHot       Stage = "hot"
)

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	switch s {
	case StageNew, StageCold, StageNurture, StageQualified, StageHot:
		return true
	}
	return false
}

// ProStatus is the recruiting lifecycle of a Pro.
type ProStatus string

const (
	ProStatusActive       ProStatus = "active"
	ProStatusContacted    ProStatus = "contacted"
	ProStatusInterviewing ProStatus = "interviewing"
	ProStatusHired        ProStatus = "hired"
	ProStatusArchived     ProStatus = "archived"
)

// Matchable reports whether a Pro in this status may receive new matches.
func (s ProStatus) Matchable() bool {
	return s == ProStatusActive || s == ProStatusContacted
}

// Pro is a real estate agent or loan officer record.
type Pro struct {
	ID     uuid.UUID `json:"id"`
	UserID string    `json:"user_id,omitempty"` // auth subject once the Pro signs in
	Type   ProType   `json:"pro_type"`

	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"` // E.164

	Brokerage      string   `json:"brokerage,omitempty"`
	LicenseNumber  string   `json:"license_number,omitempty"`
	LicensedStates []string `json:"licensed_states,omitempty"`

	City      string   `json:"city,omitempty"`
	State     string   `json:"state,omitempty"`
	Zip       string   `json:"zip,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	// Production over the trailing twelve months.
	Transactions  int     `json:"transactions"`
	VolumeUSD     float64 `json:"volume_usd"`
	YearsLicensed int     `json:"years_licensed"`

	Score  int       `json:"score"`
	Stage  Stage     `json:"stage"`
	Status ProStatus `json:"status"`
	Source string    `json:"source,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FullName joins first and last name.
func (p *Pro) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// HasLocation reports whether the Pro has been geocoded.
func (p *Pro) HasLocation() bool {
	return p.Latitude != nil && p.Longitude != nil
}

// Location returns the Pro's coordinates. Callers check HasLocation first.
func (p *Pro) Location() GeoPoint {
	if !p.HasLocation() {
		return GeoPoint{}
	}
	return GeoPoint{Lat: *p.Latitude, Lng: *p.Longitude}
}

// SetLocation stores coordinates on the Pro.
func (p *Pro) SetLocation(pt GeoPoint) {
	lat, lng := pt.Lat, pt.Lng
	p.Latitude = &lat
	p.Longitude = &lng
}

// AddressQuery builds a geocoding query from the Pro's location fields,
// preferring ZIP when present.
func (p *Pro) AddressQuery() string {
	if p.Zip != "" {
		return p.Zip
	}
	if p.City != "" && p.State != "" {
		return p.City + ", " + p.State
	}
	return ""
}

// LicensedIn reports whether the Pro holds a license in state. A Pro with
// no recorded licensed states is treated as licensed in their home state.
func (p *Pro) LicensedIn(state string) bool {
	if len(p.LicensedStates) == 0 {
		return strings.EqualFold(p.State, state)
	}
	for _, s := range p.LicensedStates {
		if strings.EqualFold(s, state) {
			return true
		}
	}
	return false
}

// ProFilter narrows Pro listings.
type ProFilter struct {
	Type     ProType
	Stage    Stage
	Status   ProStatus
	State    string
	MinScore int
	Search   string // matches name, email or brokerage
	Limit    int
	Offset   int
}

// GeoPoint is a WGS84 coordinate.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}
