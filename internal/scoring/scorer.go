// Package scoring turns derived contract metrics into a weighted score and
// a rationale naming the factors that carried it.
package scoring

import (
	"math"

	"github.com/newthinker/premia/internal/contract"
	"github.com/newthinker/premia/internal/core"
)

// Config holds the strategy weights and normalization targets
type Config struct {
	YieldWeight     float64
	LiquidityWeight float64
	SafetyWeight    float64
	TrendWeight     float64

	// TargetYield is the annualized yield that earns a full yield sub-score
	TargetYield float64
	// EarningsPenalty is the fraction removed from the score when earnings
	// fall before expiration
	EarningsPenalty float64

	TargetOpenInterest float64
	TargetVolume       float64
	// MaxSpreadPct is the spread at which the spread component reaches zero
	MaxSpreadPct float64

	// TargetOTMPct is the distance that earns a full out-of-the-money component
	TargetOTMPct float64
	// MaxAbsDelta is the absolute delta at which the delta component reaches zero
	MaxAbsDelta float64
}

// DefaultConfig returns weights for a premium-selling screen
func DefaultConfig() Config {
	return Config{
		YieldWeight:        0.40,
		LiquidityWeight:    0.15,
		SafetyWeight:       0.25,
		TrendWeight:        0.20,
		TargetYield:        0.30,
		EarningsPenalty:    0.20,
		TargetOpenInterest: 2000,
		TargetVolume:       500,
		MaxSpreadPct:       0.10,
		TargetOTMPct:       0.10,
		MaxAbsDelta:        0.50,
	}
}

// Liquidity component weights
const (
	spreadShare       = 0.50
	openInterestShare = 0.25
	volumeShare       = 0.25
)

// Trend sub-score steps. Without moving averages or RSI the sub-score stays
// at trendBase, neither credited nor penalized.
const (
	trendBase        = 0.55
	trendMAStep      = 0.20
	trendRSIStep     = 0.20
	trendCallRSIStep = 0.15

	overboughtRSI = 75
	elevatedRSI   = 60
)

// Scorer assigns scores; it holds no mutable state and is safe for
// concurrent use.
type Scorer struct {
	cfg Config
}

// NewScorer creates a scorer, filling zero targets from DefaultConfig
func NewScorer(cfg Config) *Scorer {
	def := DefaultConfig()
	if cfg.TargetYield <= 0 {
		cfg.TargetYield = def.TargetYield
	}
	if cfg.TargetOpenInterest <= 0 {
		cfg.TargetOpenInterest = def.TargetOpenInterest
	}
	if cfg.TargetVolume <= 0 {
		cfg.TargetVolume = def.TargetVolume
	}
	if cfg.MaxSpreadPct <= 0 {
		cfg.MaxSpreadPct = def.MaxSpreadPct
	}
	if cfg.TargetOTMPct <= 0 {
		cfg.TargetOTMPct = def.TargetOTMPct
	}
	if cfg.MaxAbsDelta <= 0 {
		cfg.MaxAbsDelta = def.MaxAbsDelta
	}
	return &Scorer{cfg: cfg}
}

// Config returns the effective configuration
func (s *Scorer) Config() Config {
	return s.cfg
}

// Score returns a scored copy of c. Contracts without a valid mid cannot be
// scored and are returned unchanged with ok=false.
func (s *Scorer) Score(c contract.CandidateContract) (contract.CandidateContract, bool) {
	if !c.HasQuote() {
		return c, false
	}

	f := contract.Factors{
		Yield:     s.yieldFactor(c),
		Liquidity: s.liquidity(c).total(),
		Safety:    s.safetyFactor(c),
		Trend:     trendFactor(c),
	}

	score := s.cfg.YieldWeight*f.Yield +
		s.cfg.LiquidityWeight*f.Liquidity +
		s.cfg.SafetyWeight*f.Safety +
		s.cfg.TrendWeight*f.Trend

	if c.EarningsBeforeExpiry != nil && *c.EarningsBeforeExpiry {
		f.EarningsPenalty = clamp01(s.cfg.EarningsPenalty)
		score *= 1 - f.EarningsPenalty
	}

	c.Score = score
	c.Factors = &f
	c.WhyRankedHigh = s.explain(c, f)
	return c, true
}

func (s *Scorer) yieldFactor(c contract.CandidateContract) float64 {
	if c.AnnualizedYield == nil {
		return 0
	}
	return clamp01(*c.AnnualizedYield / s.cfg.TargetYield)
}

type liquidityParts struct {
	spread       float64
	openInterest float64
	volume       float64
}

func (p liquidityParts) total() float64 {
	return spreadShare*p.spread + openInterestShare*p.openInterest + volumeShare*p.volume
}

// Missing liquidity fields score zero so illiquid contracts sink
func (s *Scorer) liquidity(c contract.CandidateContract) liquidityParts {
	var p liquidityParts
	if c.SpreadPct != nil {
		p.spread = clamp01(1 - *c.SpreadPct/s.cfg.MaxSpreadPct)
	}
	if c.OpenInterest != nil {
		p.openInterest = clamp01(float64(*c.OpenInterest) / s.cfg.TargetOpenInterest)
	}
	if c.Volume != nil {
		p.volume = clamp01(float64(*c.Volume) / s.cfg.TargetVolume)
	}
	return p
}

// In-the-money strikes get no distance credit
func (s *Scorer) otmComponent(c contract.CandidateContract) float64 {
	if c.OTMPct == nil || !c.OTM {
		return 0
	}
	return clamp01(*c.OTMPct / s.cfg.TargetOTMPct)
}

func (s *Scorer) safetyFactor(c contract.CandidateContract) float64 {
	otm := s.otmComponent(c)
	delta, ok := c.EffectiveDelta()
	if !ok {
		return otm
	}
	deltaComponent := clamp01(1 - math.Abs(delta)/s.cfg.MaxAbsDelta)
	return (otm + deltaComponent) / 2
}

// trendFactor credits a put when spot holds above its moving averages and
// docks it when RSI is overbought; a call gains when spot is below MA20 or
// RSI is elevated, since the stock is more likely to stall under the strike.
func trendFactor(c contract.CandidateContract) float64 {
	v := trendBase
	if c.OptionType == core.OptionCall {
		if c.MA20 != nil && c.Spot < *c.MA20 {
			v += trendMAStep
		}
		if c.RSI14 != nil && *c.RSI14 >= elevatedRSI {
			v += trendCallRSIStep
		}
		return clamp01(v)
	}
	if c.MA20 != nil && c.Spot > *c.MA20 {
		v += trendMAStep
	}
	if c.MA50 != nil && c.Spot > *c.MA50 {
		v += trendMAStep
	}
	if c.RSI14 != nil && *c.RSI14 > overboughtRSI {
		v -= trendRSIStep
	}
	return clamp01(v)
}

// hasTrendData reports whether any indicator behind the trend factor is known
func hasTrendData(c contract.CandidateContract) bool {
	if c.OptionType == core.OptionCall {
		return c.MA20 != nil || c.RSI14 != nil
	}
	return c.MA20 != nil || c.MA50 != nil || c.RSI14 != nil
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
