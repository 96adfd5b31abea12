// OwlDoor - Recruiting and Lead Matching for Real Estate and Mortgage Professionals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/owldoor

package scoring

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/tomtom215/owldoor/internal/models"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name string
		in   Inputs
		want Result
	}{
		{
			name: "no data is new",
			in:   Inputs{Type: models.ProTypeAgent},
			want: Result{Score: 0, Stage: models.StageNew},
		},
		{
			name: "top agent caps at 100",
			in:   Inputs{Type: models.ProTypeAgent, Transactions: 80, VolumeUSD: 40_000_000, YearsLicensed: 20},
			want: Result{Score: 100, Stage: models.StageHot, Breakdown: Breakdown{40, 35, 25}},
		},
		{
			name: "mid agent qualified",
			in:   Inputs{Type: models.ProTypeAgent, Transactions: 30, VolumeUSD: 9_000_000, YearsLicensed: 6},
			want: Result{Score: 66, Stage: models.StageQualified, Breakdown: Breakdown{30, 18, 18}},
		},
		{
			name: "exact tier boundaries",
			in:   Inputs{Type: models.ProTypeAgent, Transactions: 12, VolumeUSD: 2_000_000, YearsLicensed: 3},
			want: Result{Score: 42, Stage: models.StageNurture, Breakdown: Breakdown{20, 10, 12}},
		},
		{
			name: "small volume earns floor",
			in:   Inputs{Type: models.ProTypeAgent, Transactions: 1, VolumeUSD: 250_000},
			want: Result{Score: 10, Stage: models.StageCold, Breakdown: Breakdown{5, 5, 0}},
		},
		{
			name: "loan officer tables are shifted",
			in:   Inputs{Type: models.ProTypeLoanOfficer, Transactions: 30, VolumeUSD: 9_000_000, YearsLicensed: 6},
			want: Result{Score: 48, Stage: models.StageNurture, Breakdown: Breakdown{20, 10, 18}},
		},
		{
			name: "top loan officer",
			in:   Inputs{Type: models.ProTypeLoanOfficer, Transactions: 120, VolumeUSD: 60_000_000, YearsLicensed: 12},
			want: Result{Score: 100, Stage: models.StageHot, Breakdown: Breakdown{40, 35, 25}},
		},
		{
			name: "negative inputs count as zero",
			in:   Inputs{Type: models.ProTypeAgent, Transactions: -5, VolumeUSD: -1, YearsLicensed: -2},
			want: Result{Score: 0, Stage: models.StageNew},
		},
		{
			name: "unknown type scores as agent",
			in:   Inputs{Type: "broker", Transactions: 50},
			want: Result{Score: 40, Stage: models.StageNurture, Breakdown: Breakdown{Transactions: 40}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(tt.in)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Score() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStageFor(t *testing.T) {
	tests := []struct {
		score   int
		hasData bool
		want    models.Stage
	}{
		{100, true, models.StageHot},
		{80, true, models.StageHot},
		{79, true, models.StageQualified},
		{60, true, models.StageQualified},
		{59, true, models.StageNurture},
		{40, true, models.StageNurture},
		{39, true, models.StageCold},
		{0, true, models.StageCold},
		{90, false, models.StageNew},
	}
	for _, tt := range tests {
		if got := StageFor(tt.score, tt.hasData); got != tt.want {
			t.Errorf("StageFor(%d, %v) = %s, want %s", tt.score, tt.hasData, got, tt.want)
		}
	}
}

func TestApply(t *testing.T) {
	p := &models.Pro{Type: models.ProTypeAgent, Transactions: 26, VolumeUSD: 12_000_000, YearsLicensed: 11}
	r := Apply(p)
	if p.Score != 80 || p.Stage != models.StageHot {
		t.Errorf("Apply() set score=%d stage=%s, want 80 hot", p.Score, p.Stage)
	}
	if r.Score != p.Score {
		t.Errorf("Apply() result %d does not match pro %d", r.Score, p.Score)
	}
}

func TestScoreBounds(t *testing.T) {
	for tx := 0; tx <= 200; tx += 7 {
		for vol := 0.0; vol <= 80_000_000; vol += 3_300_000 {
			for yrs := 0; yrs <= 40; yrs += 3 {
				for _, pt := range []models.ProType{models.ProTypeAgent, models.ProTypeLoanOfficer} {
					r := Score(Inputs{Type: pt, Transactions: tx, VolumeUSD: vol, YearsLicensed: yrs})
					if r.Score < 0 || r.Score > MaxScore {
						t.Fatalf("score %d out of range for tx=%d vol=%v yrs=%d", r.Score, tx, vol, yrs)
					}
				}
			}
		}
	}
}
