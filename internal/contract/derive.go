package contract

import (
	"github.com/newthinker/premia/internal/core"
	"github.com/newthinker/premia/internal/metric"
)

// MetricOptions configures the derived metric pass
type MetricOptions struct {
	PremiumBasis metric.PremiumBasis
	// RiskFreeRate enables the Black-Scholes delta fallback when set
	RiskFreeRate *float64
}

// WithMetrics returns a copy of c with every derived metric filled in
func (c CandidateContract) WithMetrics(opts MetricOptions) CandidateContract {
	mid, hasMid := metric.Mid(c.Bid, c.Ask, c.LastPrice)
	c.Mid = optional(mid, hasMid)

	if hasMid {
		c.SpreadPct = optional(metric.SpreadPct(c.Bid, c.Ask))
	}

	premium, hasPremium := metric.Premium(opts.PremiumBasis, mid, hasMid, c.Bid, c.Ask)
	c.Premium = optional(premium, hasPremium)

	if hasPremium {
		c.AnnualizedYield = optional(metric.AnnualizedYield(c.OptionType, premium, c.Strike, c.Spot, c.DTE))
		c.Breakeven = optional(metric.Breakeven(c.OptionType, c.Strike, premium))
	}

	c.OTMPct = optional(metric.OTMPct(c.Spot, c.Strike))
	c.OTM = metric.IsOTM(c.OptionType, c.Spot, c.Strike)

	switch {
	case c.Delta != nil:
		c.DeltaSource = DeltaProvided
	case opts.RiskFreeRate != nil && c.ImpliedVolatility != nil:
		if d, ok := metric.BlackScholesDelta(c.OptionType, c.Spot, c.Strike, c.DTE, *c.ImpliedVolatility, *opts.RiskFreeRate); ok {
			c.ModelDelta = core.Float(d)
			c.DeltaSource = DeltaModel
		}
	}

	return c
}

func optional(v float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return core.Float(v)
}
