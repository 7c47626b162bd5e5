package screener

import (
	"testing"

	"github.com/newthinker/premia/internal/contract"
	"github.com/newthinker/premia/internal/core"
)

func TestFilters_Check(t *testing.T) {
	base := contract.CandidateContract{
		ContractSymbol:  "XYZ",
		DTE:             30,
		OpenInterest:    core.Int(500),
		Volume:          core.Int(100),
		SpreadPct:       core.Float(0.05),
		AnnualizedYield: core.Float(0.25),
		OTMPct:          core.Float(0.05),
		OTM:             true,
		Delta:           core.Float(-0.20),
	}

	tests := []struct {
		name    string
		filters Filters
		mutate  func(c *contract.CandidateContract)
		want    string
	}{
		{"no filters", Filters{}, nil, ""},
		{"all pass", Filters{
			MinDTE: intp(7), MaxDTE: intp(45), MinOpenInterest: core.Int(100), MinVolume: core.Int(50),
			MaxSpreadPct: core.Float(0.10), MinAnnualizedYield: core.Float(0.12), OTMOnly: true,
			MinOTMPct: core.Float(0.02), MaxOTMPct: core.Float(0.15), MinAbsDelta: core.Float(0.15), MaxAbsDelta: core.Float(0.35),
		}, nil, ""},
		{"min dte", Filters{MinDTE: intp(31)}, nil, ReasonMinDTE},
		{"max dte", Filters{MaxDTE: intp(29)}, nil, ReasonMaxDTE},
		{"open interest", Filters{MinOpenInterest: core.Int(1000)}, nil, ReasonOpenInterest},
		{"missing open interest", Filters{MinOpenInterest: core.Int(1)}, func(c *contract.CandidateContract) { c.OpenInterest = nil }, ReasonOpenInterest},
		{"volume", Filters{MinVolume: core.Int(101)}, nil, ReasonVolume},
		{"spread", Filters{MaxSpreadPct: core.Float(0.04)}, nil, ReasonSpread},
		{"spread unknown", Filters{MaxSpreadPct: core.Float(0.04)}, func(c *contract.CandidateContract) { c.SpreadPct = nil }, ReasonSpreadUnknown},
		{"yield", Filters{MinAnnualizedYield: core.Float(0.30)}, nil, ReasonYield},
		{"yield undefined", Filters{MinAnnualizedYield: core.Float(0.10)}, func(c *contract.CandidateContract) { c.AnnualizedYield = nil }, ReasonYieldUndefined},
		{"itm", Filters{OTMOnly: true}, func(c *contract.CandidateContract) { c.OTM = false }, ReasonInTheMoney},
		{"otm band low", Filters{MinOTMPct: core.Float(0.06)}, nil, ReasonOTMBand},
		{"otm band high", Filters{MaxOTMPct: core.Float(0.04)}, nil, ReasonOTMBand},
		{"delta band", Filters{MaxAbsDelta: core.Float(0.15)}, nil, ReasonDeltaBand},
		{"model delta band", Filters{MinAbsDelta: core.Float(0.30)}, func(c *contract.CandidateContract) {
			c.Delta = nil
			c.ModelDelta = core.Float(-0.25)
		}, ReasonDeltaBand},
		{"no delta skips band", Filters{MinAbsDelta: core.Float(0.30)}, func(c *contract.CandidateContract) { c.Delta = nil }, ""},
		{"delta band overrides otm band", Filters{
			MinOTMPct: core.Float(0.06), MinAbsDelta: core.Float(0.15), MaxAbsDelta: core.Float(0.35),
		}, nil, ""},
		{"delta band rejects despite otm band", Filters{
			MinOTMPct: core.Float(0.02), MinAbsDelta: core.Float(0.25),
		}, nil, ReasonDeltaBand},
		{"otm band is the fallback without delta", Filters{
			MinOTMPct: core.Float(0.06), MinAbsDelta: core.Float(0.15), MaxAbsDelta: core.Float(0.35),
		}, func(c *contract.CandidateContract) { c.Delta = nil }, ReasonOTMBand},
		{"otm band unknown without delta", Filters{
			MaxOTMPct: core.Float(0.15), MaxAbsDelta: core.Float(0.35),
		}, func(c *contract.CandidateContract) {
			c.Delta = nil
			c.OTMPct = nil
		}, ReasonOTMBand},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := base
			if tc.mutate != nil {
				tc.mutate(&c)
			}
			if got := tc.filters.Check(c); got != tc.want {
				t.Errorf("Check() = %q, want %q", got, tc.want)
			}
		})
	}
}

func intp(v int) *int { return &v }
