package core

import (
	"fmt"
	"strings"
	"time"
)

// OptionType is the right of an option contract
type OptionType string

const (
	OptionCall OptionType = "call"
	OptionPut  OptionType = "put"
)

// ParseOptionType accepts "call"/"put" and the common single-letter forms
func ParseOptionType(s string) (OptionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "call", "calls", "c", "cc":
		return OptionCall, nil
	case "put", "puts", "p", "csp":
		return OptionPut, nil
	default:
		return "", fmt.Errorf("unknown option type: %q", s)
	}
}

// IsValid reports whether t is call or put
func (t OptionType) IsValid() bool {
	return t == OptionCall || t == OptionPut
}

// OHLCV represents a daily candlestick/bar
type OHLCV struct {
	Symbol   string
	Interval string // "1d"
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   int64
	Time     time.Time
}

// RawOptionQuote is one contract row as returned by an options-chain provider.
// Pointer fields are absent when the provider did not quote them.
type RawOptionQuote struct {
	Underlying        string     `json:"underlying" yaml:"underlying"`
	ContractSymbol    string     `json:"contract_symbol" yaml:"contract_symbol"`
	Type              OptionType `json:"type" yaml:"type"`
	Expiration        time.Time  `json:"expiration" yaml:"expiration"`
	Strike            float64    `json:"strike" yaml:"strike"`
	Bid               *float64   `json:"bid,omitempty" yaml:"bid,omitempty"`
	Ask               *float64   `json:"ask,omitempty" yaml:"ask,omitempty"`
	LastPrice         *float64   `json:"last_price,omitempty" yaml:"last_price,omitempty"`
	Volume            *int64     `json:"volume,omitempty" yaml:"volume,omitempty"`
	OpenInterest      *int64     `json:"open_interest,omitempty" yaml:"open_interest,omitempty"`
	ImpliedVolatility *float64   `json:"implied_volatility,omitempty" yaml:"implied_volatility,omitempty"`
	Delta             *float64   `json:"delta,omitempty" yaml:"delta,omitempty"`
}

// TechnicalsSnapshot holds price context for one underlying.
// Spot is zero when unknown; every other field is absent when history was too short.
type TechnicalsSnapshot struct {
	Symbol string    `json:"symbol" yaml:"symbol"`
	Spot   float64   `json:"spot" yaml:"spot"`
	MA20   *float64  `json:"ma20,omitempty" yaml:"ma20,omitempty"`
	MA50   *float64  `json:"ma50,omitempty" yaml:"ma50,omitempty"`
	RSI14  *float64  `json:"rsi14,omitempty" yaml:"rsi14,omitempty"`
	HV20   *float64  `json:"hv20,omitempty" yaml:"hv20,omitempty"`
	AsOf   time.Time `json:"as_of" yaml:"as_of"`

	// HVLow and HVHigh bound the rolling 20-day volatility over the history
	HVLow  *float64 `json:"hv_low,omitempty" yaml:"hv_low,omitempty"`
	HVHigh *float64 `json:"hv_high,omitempty" yaml:"hv_high,omitempty"`

	// Support and resistance: the lowest low and highest high of the whole
	// history, and of the last 20 sessions
	PeriodLow   *float64 `json:"period_low,omitempty" yaml:"period_low,omitempty"`
	PeriodHigh  *float64 `json:"period_high,omitempty" yaml:"period_high,omitempty"`
	SwingLow20  *float64 `json:"swing_low_20,omitempty" yaml:"swing_low_20,omitempty"`
	SwingHigh20 *float64 `json:"swing_high_20,omitempty" yaml:"swing_high_20,omitempty"`
}

// EarningsInfo holds the next known earnings date; nil means unknown
type EarningsInfo struct {
	Symbol       string     `json:"symbol" yaml:"symbol"`
	EarningsDate *time.Time `json:"earnings_date,omitempty" yaml:"earnings_date,omitempty"`
}

// Float returns a pointer to v
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v
func Int(v int64) *int64 { return &v }

// Bool returns a pointer to v
func Bool(v bool) *bool { return &v }

// DateOf truncates t to its calendar date in t's own location and
// re-expresses it as midnight UTC, so date arithmetic ignores time of day.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date as midnight UTC
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return t, nil
}
