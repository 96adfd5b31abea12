// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

// Package scoring computes the qualification score used to bucket Pros into
// pipeline stages.
//
// The score is a weighted sum of three components, each looked up in a
// descending threshold table chosen by Pro type:
//
//	transactions (max 40) + sales volume (max 35) + years licensed (max 25)
//
// Loan officers close more, larger units than agents, so their transaction
// and volume tables are shifted up. Scoring is pure and allocation-free.
package scoring

import (
	"github.com/tomtom215/owldoor/internal/models"
)

// Component maximums. They sum to MaxScore.
const (
	MaxTransactionPoints = 40
	MaxVolumePoints      = 35
	MaxExperiencePoints  = 25
	MaxScore             = MaxTransactionPoints + MaxVolumePoints + MaxExperiencePoints
)

// Stage thresholds (inclusive lower bounds).
const (
	HotThreshold       = 80
	QualifiedThreshold = 60
	NurtureThreshold   = 40
)

// tier awards Points when the input is at least Min. Tiers are ordered by
// descending Min; the first satisfied tier wins.
type tier struct {
	Min    float64
	Points int
}

// table is a tier list with an optional floor: any positive value below the
// last tier still earns FloorPoints.
type table struct {
	Tiers       []tier
	FloorPoints int
}

func (t table) points(v float64) int {
	if v <= 0 {
		return 0
	}
	for _, tr := range t.Tiers {
		if v >= tr.Min {
			return tr.Points
		}
	}
	return t.FloorPoints
}

// Rules holds the three tables for one Pro type.
type Rules struct {
	Transactions table
	Volume       table
	Experience   table
}

var experienceTable = table{Tiers: []tier{{10, 25}, {5, 18}, {3, 12}, {1, 6}}}

var agentRules = Rules{
	Transactions: table{Tiers: []tier{{50, 40}, {25, 30}, {12, 20}, {6, 10}, {1, 5}}},
	Volume:       table{Tiers: []tier{{20_000_000, 35}, {10_000_000, 25}, {5_000_000, 18}, {2_000_000, 10}}, FloorPoints: 5},
	Experience:   experienceTable,
}

var loanOfficerRules = Rules{
	Transactions: table{Tiers: []tier{{100, 40}, {50, 30}, {24, 20}, {12, 10}, {1, 5}}},
	Volume:       table{Tiers: []tier{{50_000_000, 35}, {25_000_000, 25}, {10_000_000, 18}, {5_000_000, 10}}, FloorPoints: 5},
	Experience:   experienceTable,
}

// RulesFor returns the scoring rules for a Pro type. Unknown types score as agents.
func RulesFor(t models.ProType) Rules {
	if t == models.ProTypeLoanOfficer {
		return loanOfficerRules
	}
	return agentRules
}

// Inputs are the production numbers a score is computed from.
type Inputs struct {
	Type          models.ProType `json:"pro_type"`
	Transactions  int            `json:"transactions"`
	VolumeUSD     float64        `json:"volume_usd"`
	YearsLicensed int            `json:"years_licensed"`
}

// InputsFromPro extracts scoring inputs from a Pro record.
func InputsFromPro(p *models.Pro) Inputs {
	return Inputs{
		Type:          p.Type,
		Transactions:  p.Transactions,
		VolumeUSD:     p.VolumeUSD,
		YearsLicensed: p.YearsLicensed,
	}
}

// HasData reports whether any production number is known.
func (in Inputs) HasData() bool {
	return in.Transactions > 0 || in.VolumeUSD > 0 || in.YearsLicensed > 0
}

// Breakdown itemizes the points each component contributed.
type Breakdown struct {
	Transactions int `json:"transactions"`
	Volume       int `json:"volume"`
	Experience   int `json:"experience"`
}

// Result is a computed score with its stage.
type Result struct {
	Score     int          `json:"score"`
	Stage     models.Stage `json:"stage"`
	Breakdown Breakdown    `json:"breakdown"`
}

// Score computes the qualification score. Negative inputs count as zero.
func Score(in Inputs) Result {
	rules := RulesFor(in.Type)

	b := Breakdown{
		Transactions: rules.Transactions.points(float64(in.Transactions)),
		Volume:       rules.Volume.points(in.VolumeUSD),
		Experience:   rules.Experience.points(float64(in.YearsLicensed)),
	}

	total := b.Transactions + b.Volume + b.Experience
	if total > MaxScore {
		total = MaxScore
	}

	return Result{
		Score:     total,
		Stage:     StageFor(total, in.HasData()),
		Breakdown: b,
	}
}

// StageFor maps a score to a pipeline stage. A Pro with no known production
// numbers is new regardless of score.
func StageFor(score int, hasData bool) models.Stage {
	switch {
	case !hasData:
		return models.StageNew
	case score >= HotThreshold:
		return models.StageHot
	case score >= QualifiedThreshold:
		return models.StageQualified
	case score >= NurtureThreshold:
		return models.StageNurture
	default:
		return models.StageCold
	}
}

// Apply scores p in place, updating Score and Stage.
func Apply(p *models.Pro) Result {
	r := Score(InputsFromPro(p))
	p.Score = r.Score
	p.Stage = r.Stage
	return r
}
