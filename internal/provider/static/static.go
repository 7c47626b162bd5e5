// Package static serves all three provider roles from a YAML fixture. It
// backs offline runs and demos, and gives tests a deterministic provider.
package static

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/newthinker/premia/internal/core"
	"github.com/newthinker/premia/internal/indicator"
)

// Fixture is the on-disk document: one entry per underlying symbol
type Fixture struct {
	Underlyings map[string]Underlying `yaml:"underlyings"`
}

// Underlying holds everything the fixture knows about one symbol.
// Technicals may be given directly or derived from Closes.
type Underlying struct {
	Technicals   *core.TechnicalsSnapshot `yaml:"technicals,omitempty"`
	Closes       []float64                `yaml:"closes,omitempty"`
	EarningsDate string                   `yaml:"earnings_date,omitempty"`
	// Chains maps YYYY-MM-DD expiration to its contracts
	Chains map[string][]core.RawOptionQuote `yaml:"chains,omitempty"`
}

// Static implements provider.ChainProvider, MarketProvider and FundamentalsProvider
type Static struct {
	name    string
	fixture Fixture
	asOf    time.Time
}

// New wraps an in-memory fixture
func New(fixture Fixture) *Static {
	if fixture.Underlyings == nil {
		fixture.Underlyings = map[string]Underlying{}
	}
	norm := make(map[string]Underlying, len(fixture.Underlyings))
	for sym, u := range fixture.Underlyings {
		norm[strings.ToUpper(sym)] = u
	}
	fixture.Underlyings = norm
	return &Static{name: "static", fixture: fixture, asOf: time.Now().UTC()}
}

// Load reads a fixture file
func Load(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixture: %w", err)
	}
	return Parse(data)
}

// Parse decodes a fixture document
func Parse(data []byte) (*Static, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing fixture: %w", err)
	}
	for sym, u := range f.Underlyings {
		if u.EarningsDate != "" {
			if _, err := core.ParseDate(u.EarningsDate); err != nil {
				return nil, fmt.Errorf("%s: %w", sym, err)
			}
		}
		for exp := range u.Chains {
			if _, err := core.ParseDate(exp); err != nil {
				return nil, fmt.Errorf("%s chains: %w", sym, err)
			}
		}
	}
	return New(f), nil
}

func (s *Static) Name() string {
	return s.name
}

func (s *Static) lookup(symbol string) (Underlying, error) {
	u, ok := s.fixture.Underlyings[strings.ToUpper(symbol)]
	if !ok {
		return Underlying{}, core.WrapError(core.ErrNoData, fmt.Errorf("%s is not in the fixture", symbol))
	}
	return u, nil
}

// FetchExpirations returns the fixture's expirations in ascending order
func (s *Static) FetchExpirations(ctx context.Context, symbol string) ([]time.Time, error) {
	u, err := s.lookup(symbol)
	if err != nil {
		return nil, err
	}
	out := make([]time.Time, 0, len(u.Chains))
	for exp := range u.Chains {
		d, _ := core.ParseDate(exp)
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

// FetchChain returns a copy of the contracts listed for expiration, with
// underlying, expiration and type filled in from context when omitted.
func (s *Static) FetchChain(ctx context.Context, symbol string, expiration time.Time) ([]core.RawOptionQuote, error) {
	u, err := s.lookup(symbol)
	if err != nil {
		return nil, err
	}
	exp := core.DateOf(expiration)
	rows, ok := u.Chains[exp.Format(time.DateOnly)]
	if !ok || len(rows) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no chain for %s %s", symbol, exp.Format(time.DateOnly)))
	}

	out := make([]core.RawOptionQuote, len(rows))
	for i, q := range rows {
		if q.Underlying == "" {
			q.Underlying = strings.ToUpper(symbol)
		}
		q.Expiration = exp
		out[i] = q
	}
	return out, nil
}

// FetchTechnicals returns the fixture snapshot, or derives one from closes
func (s *Static) FetchTechnicals(ctx context.Context, symbol string) (*core.TechnicalsSnapshot, error) {
	u, err := s.lookup(symbol)
	if err != nil {
		return nil, err
	}
	if u.Technicals != nil {
		snap := *u.Technicals
		snap.Symbol = strings.ToUpper(symbol)
		if snap.AsOf.IsZero() {
			snap.AsOf = s.asOf
		}
		return &snap, nil
	}
	if len(u.Closes) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no technicals for %s", symbol))
	}

	start := core.DateOf(s.asOf).AddDate(0, 0, -len(u.Closes)+1)
	bars := make([]core.OHLCV, len(u.Closes))
	for i, c := range u.Closes {
		bars[i] = core.OHLCV{Symbol: symbol, Interval: "1d", Open: c, High: c, Low: c, Close: c, Time: start.AddDate(0, 0, i)}
	}
	snap := indicator.Technicals(strings.ToUpper(symbol), bars)
	return &snap, nil
}

// FetchEarnings returns the fixture's earnings date; a missing symbol or
// date is reported as unknown rather than an error.
func (s *Static) FetchEarnings(ctx context.Context, symbol string) (*core.EarningsInfo, error) {
	info := &core.EarningsInfo{Symbol: strings.ToUpper(symbol)}
	u, err := s.lookup(symbol)
	if err != nil || u.EarningsDate == "" {
		return info, nil
	}
	d, err := core.ParseDate(u.EarningsDate)
	if err != nil {
		return info, nil
	}
	info.EarningsDate = &d
	return info, nil
}
