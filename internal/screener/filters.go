package screener

import (
	"math"

	"github.com/newthinker/premia/internal/contract"
)

// Check returns the first filter c fails, or "" when it passes every
// configured limit. A missing value fails a limit that depends on it.
// The delta band and the OTM band are alternatives: when a delta band is set
// and the contract has a delta, the band on delta decides; otherwise the OTM
// band applies.
func (f Filters) Check(c contract.CandidateContract) string {
	if f.MinDTE != nil && c.DTE < *f.MinDTE {
		return ReasonMinDTE
	}
	if f.MaxDTE != nil && c.DTE > *f.MaxDTE {
		return ReasonMaxDTE
	}
	if f.MinOpenInterest != nil && (c.OpenInterest == nil || *c.OpenInterest < *f.MinOpenInterest) {
		return ReasonOpenInterest
	}
	if f.MinVolume != nil && (c.Volume == nil || *c.Volume < *f.MinVolume) {
		return ReasonVolume
	}
	if f.MaxSpreadPct != nil {
		if c.SpreadPct == nil {
			return ReasonSpreadUnknown
		}
		if *c.SpreadPct > *f.MaxSpreadPct {
			return ReasonSpread
		}
	}
	if f.MinAnnualizedYield != nil {
		if c.AnnualizedYield == nil {
			return ReasonYieldUndefined
		}
		if *c.AnnualizedYield < *f.MinAnnualizedYield {
			return ReasonYield
		}
	}
	if f.OTMOnly && !c.OTM {
		return ReasonInTheMoney
	}
	if d, ok := c.EffectiveDelta(); ok && f.hasDeltaBand() {
		abs := math.Abs(d)
		if f.MinAbsDelta != nil && abs < *f.MinAbsDelta {
			return ReasonDeltaBand
		}
		if f.MaxAbsDelta != nil && abs > *f.MaxAbsDelta {
			return ReasonDeltaBand
		}
	} else if f.MinOTMPct != nil || f.MaxOTMPct != nil {
		if c.OTMPct == nil {
			return ReasonOTMBand
		}
		if f.MinOTMPct != nil && *c.OTMPct < *f.MinOTMPct {
			return ReasonOTMBand
		}
		if f.MaxOTMPct != nil && *c.OTMPct > *f.MaxOTMPct {
			return ReasonOTMBand
		}
	}
	return ""
}

func (f Filters) hasDeltaBand() bool {
	return f.MinAbsDelta != nil || f.MaxAbsDelta != nil
}
