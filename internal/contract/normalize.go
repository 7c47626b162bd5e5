package contract

import (
	"time"

	"github.com/newthinker/premia/internal/core"
	"github.com/newthinker/premia/internal/metric"
)

// Normalize merges one chain row with its underlying's technicals and
// earnings context. It never fails: missing inputs stay absent.
func Normalize(q core.RawOptionQuote, tech core.TechnicalsSnapshot, earn core.EarningsInfo, today time.Time) CandidateContract {
	c := CandidateContract{
		Underlying:        q.Underlying,
		ContractSymbol:    q.ContractSymbol,
		OptionType:        q.Type,
		Expiration:        core.DateOf(q.Expiration),
		Strike:            q.Strike,
		Bid:               q.Bid,
		Ask:               q.Ask,
		LastPrice:         q.LastPrice,
		Volume:            q.Volume,
		OpenInterest:      q.OpenInterest,
		ImpliedVolatility: q.ImpliedVolatility,
		Delta:             q.Delta,

		Spot:  tech.Spot,
		MA20:  tech.MA20,
		MA50:  tech.MA50,
		RSI14: tech.RSI14,
		HV20:  tech.HV20,

		EarningsDate: earn.EarningsDate,
		DeltaSource:  DeltaNone,
	}
	if c.Underlying == "" {
		c.Underlying = tech.Symbol
	}

	c.DTE = metric.DTE(q.Expiration, today)
	c.EarningsBeforeExpiry = EarningsBeforeExpiry(earn.EarningsDate, q.Expiration, today)

	return c
}

// EarningsBeforeExpiry is true when the earnings date falls between today
// and expiration inclusive, false when it is after expiration or already
// past, and nil when the date is unknown.
func EarningsBeforeExpiry(earnings *time.Time, expiration, today time.Time) *bool {
	if earnings == nil {
		return nil
	}
	date := core.DateOf(*earnings)
	if date.Before(core.DateOf(today)) {
		return core.Bool(false)
	}
	return core.Bool(!date.After(core.DateOf(expiration)))
}
