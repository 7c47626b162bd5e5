// Package screener drives one screen run: it fetches provider data per
// underlying in parallel, normalizes and scores every contract, and merges
// the per-underlying results into a ranked list with explicit exclusion and
// error reports.
package screener

import (
	"fmt"
	"strings"
	"time"

	"github.com/newthinker/premia/internal/contract"
	"github.com/newthinker/premia/internal/core"
	"github.com/newthinker/premia/internal/recommend"
)

const (
	DefaultConcurrency = 4
	DefaultTimeout     = 60 * time.Second
)

// ExpirationMode selects how expirations are chosen per underlying
type ExpirationMode string

const (
	ModeBuckets ExpirationMode = "buckets"
	ModeRange   ExpirationMode = "range"
	ModeList    ExpirationMode = "list"
)

// BucketConfig bounds the current-week, next-week and monthly buckets in DTE
type BucketConfig struct {
	CurrentWeekMaxDTE int `json:"current_week_max_dte"`
	NextWeekMinDTE    int `json:"next_week_min_dte"`
	NextWeekMaxDTE    int `json:"next_week_max_dte"`
	MonthlyMinDTE     int `json:"monthly_min_dte"`
	MonthlyMaxDTE     int `json:"monthly_max_dte"`
}

// DefaultBuckets returns weekly, bi-weekly and 30-45 day monthly windows
func DefaultBuckets() BucketConfig {
	return BucketConfig{
		CurrentWeekMaxDTE: 7,
		NextWeekMinDTE:    8,
		NextWeekMaxDTE:    14,
		MonthlyMinDTE:     30,
		MonthlyMaxDTE:     45,
	}
}

// ExpirationFilter is the expirations part of a request
type ExpirationFilter struct {
	Mode ExpirationMode `json:"mode"`

	// list mode
	Dates []time.Time `json:"dates,omitempty"`

	// range mode; any bound may be absent
	MinDTE *int       `json:"min_dte,omitempty"`
	MaxDTE *int       `json:"max_dte,omitempty"`
	From   *time.Time `json:"from,omitempty"`
	To     *time.Time `json:"to,omitempty"`

	Buckets BucketConfig `json:"buckets"`
}

// Filters are optional per-contract limits; a nil field is not applied
type Filters struct {
	MinDTE             *int     `json:"min_dte,omitempty"`
	MaxDTE             *int     `json:"max_dte,omitempty"`
	MinOpenInterest    *int64   `json:"min_open_interest,omitempty"`
	MinVolume          *int64   `json:"min_volume,omitempty"`
	MaxSpreadPct       *float64 `json:"max_spread_pct,omitempty"`
	MinAnnualizedYield *float64 `json:"min_annualized_yield,omitempty"`
	MinOTMPct          *float64 `json:"min_otm_pct,omitempty"`
	MaxOTMPct          *float64 `json:"max_otm_pct,omitempty"`
	OTMOnly            bool     `json:"otm_only,omitempty"`
	MinAbsDelta        *float64 `json:"min_abs_delta,omitempty"`
	MaxAbsDelta        *float64 `json:"max_abs_delta,omitempty"`
}

// Request describes one screen run
type Request struct {
	Universe    []string         `json:"universe"`
	OptionType  core.OptionType  `json:"option_type"`
	Expirations ExpirationFilter `json:"expirations"`
	Filters     Filters          `json:"filters"`

	// MaxResults caps the ranked list; zero means unlimited
	MaxResults int `json:"max_results,omitempty"`
	// MaxPerUnderlying caps ranked contracts per underlying; zero means unlimited
	MaxPerUnderlying int `json:"max_per_underlying,omitempty"`

	Concurrency int           `json:"concurrency,omitempty"`
	Timeout     time.Duration `json:"timeout,omitempty"`
}

// normalize upper-cases and de-duplicates the universe and fills defaults
func (r Request) normalize() (Request, error) {
	seen := make(map[string]bool, len(r.Universe))
	universe := make([]string, 0, len(r.Universe))
	for _, s := range r.Universe {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		universe = append(universe, s)
	}
	if len(universe) == 0 {
		return r, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("universe is empty"))
	}
	r.Universe = universe

	if !r.OptionType.IsValid() {
		return r, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("option type must be call or put, got %q", r.OptionType))
	}

	switch r.Expirations.Mode {
	case "":
		r.Expirations.Mode = ModeBuckets
	case ModeBuckets, ModeRange:
	case ModeList:
		if len(r.Expirations.Dates) == 0 {
			return r, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("list mode requires expiration dates"))
		}
	default:
		return r, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown expiration mode %q", r.Expirations.Mode))
	}
	if r.Expirations.Buckets == (BucketConfig{}) {
		r.Expirations.Buckets = DefaultBuckets()
	}

	if r.MaxResults < 0 || r.MaxPerUnderlying < 0 {
		return r, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("result limits must not be negative"))
	}
	if r.Concurrency <= 0 {
		r.Concurrency = DefaultConcurrency
	}
	if r.Timeout <= 0 {
		r.Timeout = DefaultTimeout
	}
	return r, nil
}

// Exclusion reasons
const (
	ReasonNoQuote        = "no valid quote"
	ReasonExpired        = "expired"
	ReasonDuplicate      = "duplicate contract"
	ReasonMinDTE         = "dte below minimum"
	ReasonMaxDTE         = "dte above maximum"
	ReasonOpenInterest   = "open interest below minimum"
	ReasonVolume         = "volume below minimum"
	ReasonSpread         = "spread above maximum"
	ReasonSpreadUnknown  = "spread unavailable"
	ReasonYield          = "annualized yield below minimum"
	ReasonYieldUndefined = "annualized yield undefined"
	ReasonInTheMoney     = "in the money"
	ReasonOTMBand        = "otm distance outside band"
	ReasonDeltaBand      = "delta outside band"
)

// Stages name the provider call an underlying error came from
const (
	StageTechnicals  = "technicals"
	StageEarnings    = "earnings"
	StageExpirations = "expirations"
	StageChain       = "chain"
)

// Exclusion is a contract left out of the ranking, with the reason
type Exclusion struct {
	Reason   string                     `json:"reason"`
	Contract contract.CandidateContract `json:"contract"`
}

// UnderlyingError reports a provider failure for one underlying. Skipped is
// true when the failure removed contracts from the run; an earnings failure
// only downgrades the earnings context to unknown.
type UnderlyingError struct {
	Symbol     string `json:"symbol"`
	Stage      string `json:"stage"`
	Expiration string `json:"expiration,omitempty"`
	Code       string `json:"code"`
	Reason     string `json:"reason"`
	Skipped    bool   `json:"skipped"`
}

// SelectedExpiration is one expiration chosen for an underlying
type SelectedExpiration struct {
	Date  time.Time `json:"date"`
	Label string    `json:"label"`
	DTE   int       `json:"dte"`
}

// Result is the outcome of one screen run
type Result struct {
	RunID       string                          `json:"run_id"`
	OptionType  core.OptionType                 `json:"option_type"`
	AsOf        time.Time                       `json:"as_of"`
	StartedAt   time.Time                       `json:"started_at"`
	CompletedAt time.Time                       `json:"completed_at"`
	Ranked      []contract.CandidateContract    `json:"ranked"`
	Excluded    []Exclusion                     `json:"excluded"`
	Errors      []UnderlyingError               `json:"errors"`
	Expirations map[string][]SelectedExpiration `json:"expirations"`

	// Candidates is the ranked count before result limits
	Candidates int `json:"candidates"`
	// TruncatedPerUnderlying counts contracts dropped by MaxPerUnderlying
	TruncatedPerUnderlying int `json:"truncated_per_underlying"`
	// Truncated counts contracts dropped by MaxResults
	Truncated int `json:"truncated"`

	// Recommendations is set when the screener has a recommendation engine
	Recommendations []recommend.Recommendation `json:"recommendations,omitempty"`
}

// Status summarizes the run for logs and metrics: "ok", "partial" when any
// underlying reported an error, or "empty" when nothing ranked.
func (r *Result) Status() string {
	switch {
	case len(r.Ranked) == 0:
		return "empty"
	case len(r.Errors) > 0:
		return "partial"
	default:
		return "ok"
	}
}
