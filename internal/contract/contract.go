// Package contract merges provider records into one normalized candidate
// per option contract and attaches the derived metrics.
package contract

import (
	"time"

	"github.com/newthinker/premia/internal/core"
)

// DeltaSource records where the delta used for safety scoring came from
type DeltaSource string

const (
	DeltaProvided DeltaSource = "provided"
	DeltaModel    DeltaSource = "model"
	DeltaNone     DeltaSource = "none"
)

// CandidateContract is the normalized view of one option contract within a
// screen run. Raw fields are copied from the provider records; derived fields
// are nil when a required input is missing.
type CandidateContract struct {
	// Option chain
	Underlying        string          `json:"underlying"`
	ContractSymbol    string          `json:"contract_symbol"`
	OptionType        core.OptionType `json:"option_type"`
	Expiration        time.Time       `json:"expiration"`
	ExpirationLabel   string          `json:"expiration_label,omitempty"`
	Strike            float64         `json:"strike"`
	Bid               *float64        `json:"bid"`
	Ask               *float64        `json:"ask"`
	LastPrice         *float64        `json:"last_price"`
	Volume            *int64          `json:"volume"`
	OpenInterest      *int64          `json:"open_interest"`
	ImpliedVolatility *float64        `json:"implied_volatility"`
	Delta             *float64        `json:"delta"`

	// Technicals
	Spot  float64  `json:"spot"`
	MA20  *float64 `json:"ma20"`
	MA50  *float64 `json:"ma50"`
	RSI14 *float64 `json:"rsi14"`
	HV20  *float64 `json:"hv20"`

	// Earnings
	EarningsDate         *time.Time `json:"earnings_date"`
	EarningsBeforeExpiry *bool      `json:"earnings_before_expiry"`

	// Derived
	DTE             int         `json:"dte"`
	Mid             *float64    `json:"mid"`
	SpreadPct       *float64    `json:"spread_pct"`
	Premium         *float64    `json:"premium"`
	AnnualizedYield *float64    `json:"annualized_yield"`
	Breakeven       *float64    `json:"breakeven"`
	OTMPct          *float64    `json:"otm_pct"`
	OTM             bool        `json:"otm"`
	ModelDelta      *float64    `json:"model_delta"`
	DeltaSource     DeltaSource `json:"delta_source"`

	// Scoring
	Score         float64  `json:"score"`
	WhyRankedHigh string   `json:"why_ranked_high"`
	Factors       *Factors `json:"factors,omitempty"`
}

// Factors are the sub-scores behind Score, each in [0,1] before weighting
type Factors struct {
	Yield           float64 `json:"yield"`
	Liquidity       float64 `json:"liquidity"`
	Safety          float64 `json:"safety"`
	Trend           float64 `json:"trend"`
	EarningsPenalty float64 `json:"earnings_penalty"`
}

// Expired reports a negative days-to-expiration
func (c CandidateContract) Expired() bool {
	return c.DTE < 0
}

// HasQuote reports whether a usable mid exists
func (c CandidateContract) HasQuote() bool {
	return c.Mid != nil
}

// EffectiveDelta returns the provider delta, else the model delta
func (c CandidateContract) EffectiveDelta() (float64, bool) {
	if c.Delta != nil {
		return *c.Delta, true
	}
	if c.ModelDelta != nil {
		return *c.ModelDelta, true
	}
	return 0, false
}
