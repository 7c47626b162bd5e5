package recommend

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/newthinker/premia/internal/contract"
	"github.com/newthinker/premia/internal/core"
)

// IV rank values treated as saturated
const (
	ivrCeiling = 99.9
	ivrFloor   = 0.0
)

func (t Term) label() string {
	if t == TermShort {
		return "short-term"
	}
	return string(t)
}

// coveredCalls returns a short-term and a monthly pick for u
func (e *Engine) coveredCalls(u Underlying, today time.Time) []Recommendation {
	if u.Technicals.Spot <= 0 {
		out := make([]Recommendation, 0, 2)
		for _, term := range []Term{TermShort, TermMonthly} {
			out = append(out, Recommendation{
				Symbol:   u.Symbol,
				Strategy: StrategyCoveredCall,
				Term:     term,
				Verdict:  VerdictNo,
				Reason:   "spot price unavailable",
			})
		}
		return out
	}

	calls := func(term Term, maxDTE int) []contract.CandidateContract {
		var pool []contract.CandidateContract
		for _, c := range u.Candidates[term] {
			if c.OptionType == core.OptionCall && (maxDTE <= 0 || c.DTE <= maxDTE) {
				pool = append(pool, c)
			}
		}
		return pool
	}

	return []Recommendation{
		e.coveredCall(u, TermShort, calls(TermShort, e.cfg.ShortTermMaxDTE), today),
		e.coveredCall(u, TermMonthly, calls(TermMonthly, 0), today),
	}
}

// coveredCall picks the best-scored call in pool whose delta sits in the band
// and whose expiration is not just after earnings.
func (e *Engine) coveredCall(u Underlying, term Term, pool []contract.CandidateContract, today time.Time) Recommendation {
	r := Recommendation{
		Symbol:   u.Symbol,
		Strategy: StrategyCoveredCall,
		Term:     term,
		Verdict:  VerdictNo,
		Spot:     spotOf(u.Technicals),
	}
	if len(pool) == 0 {
		r.Reason = fmt.Sprintf("no %s call candidates survived screening", term.label())
		return r
	}

	var qualified []contract.CandidateContract
	blocked := false
	for _, c := range pool {
		if !e.deltaOK(c) {
			continue
		}
		if !e.clearOfEarnings(c, u.Earnings, today) {
			blocked = true
			continue
		}
		qualified = append(qualified, c)
	}

	if len(qualified) == 0 {
		r.IVR, r.IVRSource = IVRank(u.Technicals, firstIV(pool))
		var reasons []string
		if e.ivrTooLow(r.IVR) {
			reasons = append(reasons, e.ivrReason(*r.IVR))
		}
		if blocked {
			reasons = append(reasons, e.earningsReason())
		}
		reasons = append(reasons, e.deltaReason())
		r.Reason = strings.Join(reasons, "; ")
		return r
	}

	best := qualified[0]
	for _, c := range qualified[1:] {
		if c.Score > best.Score {
			best = c
		}
	}
	fill(&r, best)
	r.IVR, r.IVRSource = IVRank(u.Technicals, best.ImpliedVolatility)

	spot := u.Technicals.Spot
	premium := value(best.Premium)
	r.MaxProfit = core.Float(cents((best.Strike - spot + premium) * 100))
	r.Breakeven = core.Float(cents(spot - premium))
	r.NearRoundNumber = nearRoundNumber(best.Strike)
	r.NearResistance = e.nearResistance(best.Strike, u.Technicals)
	minPrice, hasMin := e.cfg.MinSalePrices[strings.ToUpper(u.Symbol)]
	r.BelowMinPrice = hasMin && best.Strike < minPrice

	var hard, soft []string
	switch {
	case r.IVR == nil:
		soft = append(soft, fmt.Sprintf("IVR unavailable (%s)", r.IVRSource))
	case e.ivrTooLow(r.IVR):
		hard = append(hard, e.ivrReason(*r.IVR))
	case *r.IVR >= ivrCeiling:
		soft = append(soft, "IVR at ceiling, likely overstated against the HV range")
	}
	if r.IVR != nil && *r.IVR == ivrFloor && !e.ivrTooLow(r.IVR) {
		soft = append(soft, "IVR at floor, current volatility may be understated")
	}
	if r.BelowMinPrice {
		soft = append(soft, fmt.Sprintf("strike %.2f below minimum sale price %.2f", best.Strike, minPrice))
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
		if r.NearResistance {
			r.Reason += "; strike near resistance"
		}
	}
	return r
}

// clearOfEarnings rejects an expiration landing within the buffer after an
// upcoming earnings date
func (e *Engine) clearOfEarnings(c contract.CandidateContract, earnings *time.Time, today time.Time) bool {
	if earnings == nil {
		return true
	}
	ed := core.DateOf(*earnings)
	exp := core.DateOf(c.Expiration)
	if ed.Before(today) || ed.After(exp) {
		return true
	}
	return int(exp.Sub(ed).Hours()/24) > e.cfg.EarningsBufferDays
}

func (e *Engine) earningsReason() string {
	return fmt.Sprintf("earnings within %d days before expiration", e.cfg.EarningsBufferDays)
}

// nearResistance is true when strike lies within the buffer of a recent or
// period high, where the stock may stall
func (e *Engine) nearResistance(strike float64, t core.TechnicalsSnapshot) bool {
	b := e.cfg.ResistancePctBuffer
	for _, level := range []*float64{t.PeriodHigh, t.SwingHigh20} {
		if level != nil && strike >= *level*(1-b) && strike <= *level*(1+b) {
			return true
		}
	}
	return false
}
