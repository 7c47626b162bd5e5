// Package recommend turns a ranked screen into per-underlying trade verdicts.
// Puts become cash-secured put picks from the monthly expiration; calls
// become covered-call picks for a short-term and a monthly expiration.
package recommend

import (
	"math"
	"sort"
	"time"

	"github.com/newthinker/premia/internal/contract"
	"github.com/newthinker/premia/internal/core"
)

// Verdict is the outcome for one underlying and term
type Verdict string

const (
	VerdictYes        Verdict = "Yes"
	VerdictBorderline Verdict = "Borderline"
	VerdictNo         Verdict = "No"
)

func (v Verdict) rank() int {
	switch v {
	case VerdictYes:
		return 0
	case VerdictBorderline:
		return 1
	default:
		return 2
	}
}

// Term groups expirations the way the picks are made
type Term string

const (
	TermShort   Term = "short_term"
	TermMonthly Term = "monthly"
)

// Strategy names the trade a recommendation is for
type Strategy string

const (
	StrategyCashSecuredPut Strategy = "cash_secured_put"
	StrategyCoveredCall    Strategy = "covered_call"
)

// Config holds the recommendation thresholds
type Config struct {
	MaxRecommendations int

	// IVRMin is the IV rank, in percent, below which selling premium is rejected
	IVRMin             float64
	EarningsBufferDays int
	DeltaMin           float64
	DeltaMax           float64

	UseSupportFilter    bool
	SupportPctBuffer    float64
	ResistancePctBuffer float64

	// ShortTermMaxDTE caps the short-term covered-call pool
	ShortTermMaxDTE int
	// MinSalePrices is the per-symbol price below which a covered call
	// strike is flagged
	MinSalePrices map[string]float64
}

// DefaultConfig returns conservative premium-selling thresholds
func DefaultConfig() Config {
	return Config{
		MaxRecommendations:  20,
		IVRMin:              30,
		EarningsBufferDays:  7,
		DeltaMin:            0.10,
		DeltaMax:            0.25,
		UseSupportFilter:    true,
		SupportPctBuffer:    0.02,
		ResistancePctBuffer: 0.02,
		ShortTermMaxDTE:     16,
	}
}

// Underlying is everything the engine needs for one symbol. Candidates are
// in ranked order.
type Underlying struct {
	Symbol     string
	Technicals core.TechnicalsSnapshot
	Earnings   *time.Time
	Candidates map[Term][]contract.CandidateContract
}

// Recommendation is one verdict with the contract it was made on. Contract
// fields are absent when no candidate qualified.
type Recommendation struct {
	Symbol   string   `json:"symbol"`
	Strategy Strategy `json:"strategy"`
	Term     Term     `json:"term"`
	Verdict  Verdict  `json:"verdict"`
	Reason   string   `json:"reason"`

	Spot            *float64   `json:"spot,omitempty"`
	ContractSymbol  string     `json:"contract_symbol,omitempty"`
	Strike          *float64   `json:"strike,omitempty"`
	Expiration      *time.Time `json:"expiration,omitempty"`
	DTE             *int       `json:"dte,omitempty"`
	Premium         *float64   `json:"premium,omitempty"`
	Delta           *float64   `json:"delta,omitempty"`
	AnnualizedYield *float64   `json:"annualized_yield,omitempty"`

	IVR       *float64 `json:"ivr,omitempty"`
	IVRSource string   `json:"ivr_source,omitempty"`

	// MaxProfit is per contract of 100 shares
	MaxProfit *float64 `json:"max_profit,omitempty"`
	// Breakeven is strike less premium for a put and spot less premium for
	// a covered call
	Breakeven    *float64 `json:"breakeven,omitempty"`
	CashRequired *float64 `json:"cash_required,omitempty"`

	NearSupport     bool `json:"near_support,omitempty"`
	NearResistance  bool `json:"near_resistance,omitempty"`
	NearRoundNumber bool `json:"near_round_number,omitempty"`
	BelowMinPrice   bool `json:"below_min_price,omitempty"`
}

// Engine makes recommendations; it holds no mutable state
type Engine struct {
	cfg Config
}

// New creates an engine, filling unset limits from DefaultConfig
func New(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.MaxRecommendations <= 0 {
		cfg.MaxRecommendations = def.MaxRecommendations
	}
	if cfg.DeltaMax <= 0 {
		cfg.DeltaMin, cfg.DeltaMax = def.DeltaMin, def.DeltaMax
	}
	if cfg.ShortTermMaxDTE <= 0 {
		cfg.ShortTermMaxDTE = def.ShortTermMaxDTE
	}
	return &Engine{cfg: cfg}
}

// Config returns the effective configuration
func (e *Engine) Config() Config {
	return e.cfg
}

// Recommend produces cash-secured put picks for a put screen and covered
// call picks for a call screen, ordered Yes, Borderline, No and then by
// annualized yield, capped at MaxRecommendations.
func (e *Engine) Recommend(optionType core.OptionType, underlyings []Underlying, today time.Time) []Recommendation {
	today = core.DateOf(today)
	out := make([]Recommendation, 0, len(underlyings)*2)
	for _, u := range underlyings {
		if optionType == core.OptionCall {
			out = append(out, e.coveredCalls(u, today)...)
		} else {
			out = append(out, e.cashSecuredPut(u, today))
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if ri, rj := out[i].Verdict.rank(), out[j].Verdict.rank(); ri != rj {
			return ri < rj
		}
		return value(out[i].AnnualizedYield) > value(out[j].AnnualizedYield)
	})
	if len(out) > e.cfg.MaxRecommendations {
		out = out[:e.cfg.MaxRecommendations]
	}
	return out
}

func (e *Engine) deltaOK(c contract.CandidateContract) bool {
	d, ok := c.EffectiveDelta()
	if !ok {
		return false
	}
	d = math.Abs(d)
	return d >= e.cfg.DeltaMin && d <= e.cfg.DeltaMax
}

// fill copies the chosen contract onto r
func fill(r *Recommendation, c contract.CandidateContract) {
	r.ContractSymbol = c.ContractSymbol
	r.Strike = core.Float(c.Strike)
	exp := c.Expiration
	r.Expiration = &exp
	dte := c.DTE
	r.DTE = &dte
	r.Premium = c.Premium
	r.AnnualizedYield = c.AnnualizedYield
	if d, ok := c.EffectiveDelta(); ok {
		r.Delta = core.Float(d)
	}
}

func spotOf(t core.TechnicalsSnapshot) *float64 {
	if t.Spot <= 0 {
		return nil
	}
	return core.Float(t.Spot)
}

// firstIV is the implied volatility of the first contract that quotes one
func firstIV(cs []contract.CandidateContract) *float64 {
	for _, c := range cs {
		if c.ImpliedVolatility != nil && *c.ImpliedVolatility > 0 {
			return c.ImpliedVolatility
		}
	}
	return nil
}

// nearRoundNumber is true within 1% of the nearest $5 strike
func nearRoundNumber(strike float64) bool {
	if strike <= 0 {
		return false
	}
	nearest := math.Round(strike/5) * 5
	return math.Abs(strike-nearest)/strike < 0.01
}

func value(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
