// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package models

import "testing"

func TestMatchStatusCanTransition(t *testing.T) {
	tests := []struct {
		from, to MatchStatus
		want     bool
	}{
		{MatchStatusPending, MatchStatusContacted, true},
		{MatchStatusPending, MatchStatusDeclined, true},
		{MatchStatusPending, MatchStatusHired, false},
		{MatchStatusContacted, MatchStatusInterviewing, true},
		{MatchStatusInterviewing, MatchStatusHired, true},
		{MatchStatusHired, MatchStatusDeclined, false},
		{MatchStatusDeclined, MatchStatusPending, false},
		{MatchStatusContacted, MatchStatusPending, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.want {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestProLicensedIn(t *testing.T) {
	home := &Pro{State: "TX"}
	if !home.LicensedIn("tx") {
		t.Error("pro without licensed states should be licensed in home state")
	}
	if home.LicensedIn("OK") {
		t.Error("pro should not be licensed outside home state")
	}

	multi := &Pro{State: "TX", LicensedStates: []string{"OK", "AR"}}
	if !multi.LicensedIn("AR") || multi.LicensedIn("TX") {
		t.Error("explicit licensed states should replace the home state default")
	}
}

func TestProAddressQuery(t *testing.T) {
	tests := []struct {
		pro  Pro
		want string
	}{
		{Pro{Zip: "78701", City: "Austin", State: "TX"}, "78701"},
		{Pro{City: "Austin", State: "TX"}, "Austin, TX"},
		{Pro{City: "Austin"}, ""},
	}
	for _, tt := range tests {
		if got := tt.pro.AddressQuery(); got != tt.want {
			t.Errorf("AddressQuery() = %q, want %q", got, tt.want)
		}
	}
}

func TestProLocation(t *testing.T) {
	p := &Pro{}
	if p.HasLocation() {
		t.Fatal("new pro should have no location")
	}
	p.SetLocation(GeoPoint{Lat: 30.27, Lng: -97.74})
	if !p.HasLocation() || p.Location().Lat != 30.27 {
		t.Errorf("Location() = %+v", p.Location())
	}
	if (&Pro{FirstName: "Ana", LastName: ""}).FullName() != "Ana" {
		t.Error("FullName should trim missing last name")
	}
}
