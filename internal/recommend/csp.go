package recommend

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/newthinker/premia/internal/contract"
	"github.com/newthinker/premia/internal/core"
)

// minSupportOTM is the distance below spot that counts as support when no
// price level is close
const minSupportOTM = 0.05

// cashSecuredPut picks the highest-yield monthly put whose delta sits in the
// band, preferring strikes at or below support.
func (e *Engine) cashSecuredPut(u Underlying, today time.Time) Recommendation {
	r := Recommendation{
		Symbol:   u.Symbol,
		Strategy: StrategyCashSecuredPut,
		Term:     TermMonthly,
		Verdict:  VerdictNo,
		Spot:     spotOf(u.Technicals),
	}

	var pool []contract.CandidateContract
	for _, c := range u.Candidates[TermMonthly] {
		if c.OptionType == core.OptionPut {
			pool = append(pool, c)
		}
	}
	if len(pool) == 0 {
		r.Reason = "no monthly put candidates survived screening"
		return r
	}

	r.IVR, r.IVRSource = IVRank(u.Technicals, firstIV(pool))
	earningsSoon := false
	if u.Earnings != nil {
		days := int(core.DateOf(*u.Earnings).Sub(today).Hours() / 24)
		earningsSoon = days >= 0 && days <= e.cfg.EarningsBufferDays
	}

	var qualified []contract.CandidateContract
	for _, c := range pool {
		if e.deltaOK(c) && (!e.cfg.UseSupportFilter || e.atOrBelowSupport(c.Strike, u.Technicals)) {
			qualified = append(qualified, c)
		}
	}
	relaxed := false
	if len(qualified) == 0 && e.cfg.UseSupportFilter {
		for _, c := range pool {
			if e.deltaOK(c) {
				qualified = append(qualified, c)
			}
		}
		relaxed = len(qualified) > 0
	}

	if len(qualified) == 0 {
		var reasons []string
		if e.ivrTooLow(r.IVR) {
			reasons = append(reasons, e.ivrReason(*r.IVR))
		}
		if earningsSoon {
			reasons = append(reasons, fmt.Sprintf("earnings within %d days", e.cfg.EarningsBufferDays))
		}
		reasons = append(reasons, e.deltaReason())
		r.Reason = strings.Join(reasons, "; ")
		return r
	}

	best := qualified[0]
	for _, c := range qualified[1:] {
		if value(c.AnnualizedYield) > value(best.AnnualizedYield) {
			best = c
		}
	}
	fill(&r, best)
	premium := value(best.Premium)
	r.MaxProfit = core.Float(cents(premium * 100))
	r.Breakeven = core.Float(cents(best.Strike - premium))
	r.CashRequired = core.Float(cents(best.Strike * 100))
	r.NearSupport = e.atOrBelowSupport(best.Strike, u.Technicals)
	r.NearRoundNumber = nearRoundNumber(best.Strike)

	var hard, soft []string
	if earningsSoon {
		hard = append(hard, fmt.Sprintf("earnings within %d days", e.cfg.EarningsBufferDays))
	}
	if e.ivrTooLow(r.IVR) {
		hard = append(hard, e.ivrReason(*r.IVR))
	}
	if r.IVR == nil {
		soft = append(soft, fmt.Sprintf("IVR unavailable (%s)", r.IVRSource))
	}
	if relaxed {
		soft = append(soft, "strike above support levels")
	}

	switch {
	case len(hard) > 0:
		r.Reason = strings.Join(hard, "; ")
	case len(soft) > 0:
		r.Verdict = VerdictBorderline
		r.Reason = strings.Join(soft, "; ")
	default:
		r.Verdict = VerdictYes
		r.Reason = fmt.Sprintf("IVR %.0f%%; delta %.2f", *r.IVR, math.Abs(value(r.Delta)))
		if r.NearSupport {
			r.Reason += "; strike at or below support"
		}
		if r.NearRoundNumber {
			r.Reason += "; strike near round number"
		}
	}
	return r
}

// atOrBelowSupport is true when strike sits at or under a support level,
// within the buffer, or at least minSupportOTM below spot
func (e *Engine) atOrBelowSupport(strike float64, t core.TechnicalsSnapshot) bool {
	for _, level := range []*float64{t.PeriodLow, t.SwingLow20} {
		if level != nil && strike <= *level*(1+e.cfg.SupportPctBuffer) {
			return true
		}
	}
	return t.Spot > 0 && (t.Spot-strike)/t.Spot >= minSupportOTM
}

func (e *Engine) ivrTooLow(ivr *float64) bool {
	return ivr != nil && *ivr < e.cfg.IVRMin
}

func (e *Engine) ivrReason(ivr float64) string {
	return fmt.Sprintf("IVR %.0f%% below %.0f%% threshold", ivr, e.cfg.IVRMin)
}

func (e *Engine) deltaReason() string {
	return fmt.Sprintf("no strike with |delta| %.2f-%.2f", e.cfg.DeltaMin, e.cfg.DeltaMax)
}

func cents(v float64) float64 {
	return math.Round(v*100) / 100
}
