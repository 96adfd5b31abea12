// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

// Package matching pairs Clients with Pros that satisfy their hiring criteria.
package matching

import (
	"sort"
	"strings"

	"github.com/tomtom215/owldoor/internal/geocode"
	"github.com/tomtom215/owldoor/internal/models"
)

// Criteria is what a Client is hiring for. The distance filter applies only
// when HasCenter is set and RadiusMiles is positive.
type Criteria struct {
	ProType         models.ProType
	Center          models.GeoPoint
	HasCenter       bool
	RadiusMiles     float64
	MinScore        int
	MinTransactions int
	MinYears        int
	LicensedStates  []string
}

// CriteriaFromClient builds Criteria from a Client.
func CriteriaFromClient(c *models.Client, defaultRadius float64) Criteria {
	radius := c.RadiusMiles
	if radius <= 0 {
		radius = defaultRadius
	}
	return Criteria{
		ProType:         c.ProType,
		Center:          c.Location(),
		HasCenter:       c.HasLocation(),
		RadiusMiles:     radius,
		MinScore:        c.MinScore,
		MinTransactions: c.MinTransactions,
		MinYears:        c.MinYears,
		LicensedStates:  c.LicensedStates,
	}
}

// Candidate is a Pro that passed the filters.
type Candidate struct {
	Pro           *models.Pro
	DistanceMiles float64
}

// Rank filters pros against c and orders the survivors by score descending,
// then distance ascending, then ID.
func Rank(c Criteria, pros []*models.Pro) []Candidate {
	out := make([]Candidate, 0, len(pros))
	for _, p := range pros {
		if p == nil || !p.Status.Matchable() {
			continue
		}
		if c.ProType != "" && p.Type != c.ProType {
			continue
		}
		if p.Score < c.MinScore || p.Transactions < c.MinTransactions || p.YearsLicensed < c.MinYears {
			continue
		}
		if !licensedInAny(p, c.LicensedStates) {
			continue
		}

		var dist float64
		if c.HasCenter && p.HasLocation() {
			dist = geocode.Distance(c.Center, p.Location())
		}
		if c.HasCenter && c.RadiusMiles > 0 && (!p.HasLocation() || dist > c.RadiusMiles) {
			continue
		}
		out = append(out, Candidate{Pro: p, DistanceMiles: dist})
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Pro.Score != b.Pro.Score {
			return a.Pro.Score > b.Pro.Score
		}
		if a.DistanceMiles != b.DistanceMiles {
			return a.DistanceMiles < b.DistanceMiles
		}
		return strings.Compare(a.Pro.ID.String(), b.Pro.ID.String()) < 0
	})
	return out
}

// licensedInAny reports whether p holds a license in at least one of states.
// An empty list accepts everyone.
func licensedInAny(p *models.Pro, states []string) bool {
	if len(states) == 0 {
		return true
	}
	for _, s := range states {
		if p.LicensedIn(s) {
			return true
		}
	}
	return false
}
