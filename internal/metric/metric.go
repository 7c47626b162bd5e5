// Package metric holds the pure derivations used to evaluate an option
// contract. Every function reports an undefined result through its boolean
// return instead of a zero value or an error.
package metric

import (
	"math"
	"strings"
	"time"

	"github.com/newthinker/premia/internal/core"
)

// DaysPerYear annualizes calendar-day holding periods
const DaysPerYear = 365.0

// PremiumBasis selects which quote stands for the premium received
type PremiumBasis string

const (
	BasisMid PremiumBasis = "mid"
	BasisBid PremiumBasis = "bid" // conservative credit
	BasisAsk PremiumBasis = "ask" // debit
)

// ParsePremiumBasis defaults to mid for an empty string
func ParsePremiumBasis(s string) (PremiumBasis, bool) {
	switch PremiumBasis(strings.ToLower(strings.TrimSpace(s))) {
	case "", BasisMid:
		return BasisMid, true
	case BasisBid:
		return BasisBid, true
	case BasisAsk:
		return BasisAsk, true
	}
	return "", false
}

// Crossed reports a quote with both sides present and ask < bid
func Crossed(bid, ask *float64) bool {
	return bid != nil && ask != nil && *ask < *bid
}

func validSides(bid, ask *float64) (float64, float64, bool) {
	if bid == nil || ask == nil {
		return 0, 0, false
	}
	b, a := *bid, *ask
	if b < 0 || a < b {
		return 0, 0, false
	}
	return b, a, true
}

// Mid returns (bid+ask)/2 for a two-sided quote with ask >= bid >= 0 and a
// positive midpoint. A crossed quote has no mid. Otherwise a positive last
// trade price is used.
func Mid(bid, ask, last *float64) (float64, bool) {
	if Crossed(bid, ask) {
		return 0, false
	}
	if b, a, ok := validSides(bid, ask); ok {
		if mid := (b + a) / 2; mid > 0 {
			return mid, true
		}
	}
	if last != nil && *last > 0 {
		return *last, true
	}
	return 0, false
}

// SpreadPct returns (ask-bid)/mid for a valid two-sided quote. A mid that
// came from the last trade has no spread.
func SpreadPct(bid, ask *float64) (float64, bool) {
	b, a, ok := validSides(bid, ask)
	if !ok {
		return 0, false
	}
	mid := (b + a) / 2
	if mid <= 0 {
		return 0, false
	}
	return (a - b) / mid, true
}

// DTE counts whole calendar days from today to expiration. Time of day is
// ignored; the result is negative for expired contracts.
func DTE(expiration, today time.Time) int {
	exp := core.DateOf(expiration)
	now := core.DateOf(today)
	return int(math.Round(exp.Sub(now).Hours() / 24))
}

// Premium picks the premium received for the chosen basis. The bid and ask
// bases need that side quoted and positive.
func Premium(basis PremiumBasis, mid float64, hasMid bool, bid, ask *float64) (float64, bool) {
	switch basis {
	case BasisBid:
		if !hasMid || bid == nil || *bid <= 0 {
			return 0, false
		}
		return *bid, true
	case BasisAsk:
		if !hasMid || ask == nil || *ask <= 0 {
			return 0, false
		}
		return *ask, true
	default:
		return mid, hasMid
	}
}

// CapitalAtRisk is strike-premium for a cash-secured put and spot for a
// covered call.
func CapitalAtRisk(t core.OptionType, premium, strike, spot float64) (float64, bool) {
	var capital float64
	switch t {
	case core.OptionPut:
		capital = strike - premium
	case core.OptionCall:
		capital = spot
	default:
		return 0, false
	}
	if capital <= 0 {
		return 0, false
	}
	return capital, true
}

// AnnualizedYield is premium/capital_at_risk scaled to a 365-day year.
// Same-day expiries (dte <= 0) have no yield.
func AnnualizedYield(t core.OptionType, premium, strike, spot float64, dte int) (float64, bool) {
	if dte <= 0 || premium < 0 {
		return 0, false
	}
	capital, ok := CapitalAtRisk(t, premium, strike, spot)
	if !ok {
		return 0, false
	}
	return premium / capital * (DaysPerYear / float64(dte)), true
}

// Breakeven is strike-premium for a put and strike+premium for a call
func Breakeven(t core.OptionType, strike, premium float64) (float64, bool) {
	if premium < 0 || strike < 0 {
		return 0, false
	}
	switch t {
	case core.OptionPut:
		return strike - premium, true
	case core.OptionCall:
		return strike + premium, true
	}
	return 0, false
}

// OTMPct is |spot-strike|/spot regardless of direction
func OTMPct(spot, strike float64) (float64, bool) {
	if spot <= 0 {
		return 0, false
	}
	return math.Abs(spot-strike) / spot, true
}

// IsOTM reports whether the strike is out of the money for the option type
func IsOTM(t core.OptionType, spot, strike float64) bool {
	if spot <= 0 {
		return false
	}
	if t == core.OptionPut {
		return strike < spot
	}
	return strike > spot
}
