package scoring

import (
	"fmt"
	"sort"
	"strings"

	"github.com/newthinker/premia/internal/contract"
	"github.com/newthinker/premia/internal/core"
)

type factor int

const (
	factorYield factor = iota
	factorLiquidity
	factorSafety
	factorTrend
)

type contribution struct {
	factor factor
	value  float64
}

// explain names the one or two largest weighted contributions, then the
// earnings situation. The trend is only named when an indicator backs it.
func (s *Scorer) explain(c contract.CandidateContract, f contract.Factors) string {
	contribs := []contribution{
		{factorYield, s.cfg.YieldWeight * f.Yield},
		{factorLiquidity, s.cfg.LiquidityWeight * f.Liquidity},
		{factorSafety, s.cfg.SafetyWeight * f.Safety},
	}
	if hasTrendData(c) {
		contribs = append(contribs, contribution{factorTrend, s.cfg.TrendWeight * f.Trend})
	}
	sort.SliceStable(contribs, func(i, j int) bool {
		return contribs[i].value > contribs[j].value
	})

	phrases := []string{s.describe(c, f, contribs[0].factor)}
	if contribs[1].value > 0 {
		phrases = append(phrases, s.describe(c, f, contribs[1].factor))
	}

	var b strings.Builder
	b.WriteString(strings.Join(phrases, " with "))

	switch {
	case c.EarningsBeforeExpiry == nil:
		b.WriteString("; earnings date unknown, no penalty applied")
	case *c.EarningsBeforeExpiry:
		fmt.Fprintf(&b, "; earnings before expiry (%s penalty applied)", pct(f.EarningsPenalty))
	}

	return b.String()
}

func (s *Scorer) describe(c contract.CandidateContract, f contract.Factors, which factor) string {
	switch which {
	case factorYield:
		if c.AnnualizedYield == nil {
			return "no annualized yield estimate"
		}
		return fmt.Sprintf("%s annualized yield (%s)", grade(f.Yield, "high", "moderate", "low"), pct(*c.AnnualizedYield))
	case factorLiquidity:
		return s.describeLiquidity(c)
	case factorTrend:
		return describeTrend(c, f.Trend)
	default:
		return s.describeSafety(c)
	}
}

// describeLiquidity names the strongest weighted liquidity component
func (s *Scorer) describeLiquidity(c contract.CandidateContract) string {
	p := s.liquidity(c)
	switch {
	case c.SpreadPct == nil && c.OpenInterest == nil && c.Volume == nil:
		return "no liquidity data"
	case c.SpreadPct != nil && spreadShare*p.spread >= openInterestShare*p.openInterest && spreadShare*p.spread >= volumeShare*p.volume:
		return fmt.Sprintf("%s spread (%s)", grade(p.spread, "tight", "moderate", "wide"), pct(*c.SpreadPct))
	case c.OpenInterest != nil && p.openInterest >= p.volume:
		return fmt.Sprintf("%s open interest (%d)", grade(p.openInterest, "deep", "moderate", "thin"), *c.OpenInterest)
	case c.Volume != nil:
		return fmt.Sprintf("%s volume (%d)", grade(p.volume, "heavy", "moderate", "light"), *c.Volume)
	default:
		return "limited liquidity"
	}
}

func (s *Scorer) describeSafety(c contract.CandidateContract) string {
	var out string
	switch {
	case c.OTMPct == nil:
		out = "unknown moneyness"
	case !c.OTM:
		out = fmt.Sprintf("in-the-money strike (%s)", pct(*c.OTMPct))
	default:
		out = fmt.Sprintf("%s out-of-the-money (%s)", grade(s.otmComponent(c), "far", "moderately", "near"), pct(*c.OTMPct))
	}

	if d, ok := c.EffectiveDelta(); ok {
		label := "delta"
		if c.DeltaSource == contract.DeltaModel {
			label = "model delta"
		}
		out += fmt.Sprintf(", %s %.2f", label, d)
	}
	return out
}

func describeTrend(c contract.CandidateContract, v float64) string {
	var parts []string
	side := func(ma float64, name string) string {
		if c.Spot > ma {
			return "above " + name
		}
		return "below " + name
	}
	if c.MA20 != nil {
		parts = append(parts, side(*c.MA20, "MA20"))
	}
	if c.MA50 != nil && c.OptionType != core.OptionCall {
		parts = append(parts, side(*c.MA50, "MA50"))
	}
	if c.RSI14 != nil {
		parts = append(parts, fmt.Sprintf("RSI %.0f", *c.RSI14))
	}
	return fmt.Sprintf("%s trend (%s)", grade(v, "supportive", "neutral", "adverse"), strings.Join(parts, ", "))
}

func grade(v float64, high, mid, low string) string {
	switch {
	case v >= 2.0/3:
		return high
	case v >= 1.0/3:
		return mid
	default:
		return low
	}
}

func pct(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}
