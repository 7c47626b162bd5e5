package screener

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/premia/internal/core"
	"github.com/newthinker/premia/internal/provider"
	"github.com/newthinker/premia/internal/scoring"
)

var (
	today = time.Date(2026, 10, 19, 14, 30, 0, 0, time.UTC)
	exp30 = time.Date(2026, 11, 18, 0, 0, 0, 0, time.UTC)
)

type fakeUnderlying struct {
	spot     float64
	earnings *time.Time
	chains   map[time.Time][]core.RawOptionQuote

	techErr  error
	earnErr  error
	chainErr error
	delay    time.Duration
	hang     bool
}

// fakeProviders serves all three roles from memory
type fakeProviders struct {
	data    map[string]*fakeUnderlying
	release chan struct{}
}

func newFake(t *testing.T) *fakeProviders {
	f := &fakeProviders{data: map[string]*fakeUnderlying{}, release: make(chan struct{})}
	t.Cleanup(func() { close(f.release) })
	return f
}

func (f *fakeProviders) set() provider.Set {
	return provider.Set{Chain: f, Market: f, Fundamentals: f}
}

func (f *fakeProviders) Name() string { return "fake" }

func (f *fakeProviders) get(symbol string) (*fakeUnderlying, error) {
	u, ok := f.data[symbol]
	if !ok {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("unknown %s", symbol))
	}
	return u, nil
}

func (f *fakeProviders) FetchTechnicals(ctx context.Context, symbol string) (*core.TechnicalsSnapshot, error) {
	u, err := f.get(symbol)
	if err != nil {
		return nil, err
	}
	if u.hang {
		<-f.release
	}
	if u.delay > 0 {
		select {
		case <-time.After(u.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if u.techErr != nil {
		return nil, u.techErr
	}
	return &core.TechnicalsSnapshot{Symbol: symbol, Spot: u.spot}, nil
}

func (f *fakeProviders) FetchEarnings(ctx context.Context, symbol string) (*core.EarningsInfo, error) {
	u, err := f.get(symbol)
	if err != nil {
		return nil, err
	}
	if u.earnErr != nil {
		return nil, u.earnErr
	}
	return &core.EarningsInfo{Symbol: symbol, EarningsDate: u.earnings}, nil
}

func (f *fakeProviders) FetchExpirations(ctx context.Context, symbol string) ([]time.Time, error) {
	u, err := f.get(symbol)
	if err != nil {
		return nil, err
	}
	var out []time.Time
	for d := range u.chains {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

func (f *fakeProviders) FetchChain(ctx context.Context, symbol string, exp time.Time) ([]core.RawOptionQuote, error) {
	u, err := f.get(symbol)
	if err != nil {
		return nil, err
	}
	if u.chainErr != nil {
		return nil, u.chainErr
	}
	rows, ok := u.chains[exp]
	if !ok {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no chain for %s", exp.Format(time.DateOnly)))
	}
	return rows, nil
}

func quote(underlying, symbol string, t core.OptionType, exp time.Time, strike, bid, ask float64, oi int64) core.RawOptionQuote {
	return core.RawOptionQuote{
		Underlying:     underlying,
		ContractSymbol: symbol,
		Type:           t,
		Expiration:     exp,
		Strike:         strike,
		Bid:            core.Float(bid),
		Ask:            core.Float(ask),
		OpenInterest:   core.Int(oi),
	}
}

func listRequest(universe ...string) Request {
	return Request{
		Universe:    universe,
		OptionType:  core.OptionPut,
		Expirations: ExpirationFilter{Mode: ModeList, Dates: []time.Time{exp30}},
		Timeout:     2 * time.Second,
	}
}

func newScreener(t *testing.T, f *fakeProviders, opts ...Option) *Screener {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return today })}, opts...)
	s, err := New(f.set(), scoring.NewScorer(scoring.DefaultConfig()), opts...)
	require.NoError(t, err)
	return s
}

func rankedSymbols(r *Result) []string {
	out := make([]string, len(r.Ranked))
	for i, c := range r.Ranked {
		out[i] = c.ContractSymbol
	}
	return out
}

func TestRun_CanonicalPut(t *testing.T) {
	f := newFake(t)
	f.data["SPY"] = &fakeUnderlying{
		spot: 105,
		chains: map[time.Time][]core.RawOptionQuote{
			exp30: {quote("SPY", "SPY261118P00100000", core.OptionPut, exp30, 100, 2.00, 2.10, 500)},
		},
	}

	res, err := newScreener(t, f).Run(context.Background(), listRequest("spy"))
	require.NoError(t, err)
	require.Len(t, res.Ranked, 1)
	assert.Empty(t, res.Errors)
	assert.Empty(t, res.Excluded)
	assert.Equal(t, "ok", res.Status())
	assert.NotEmpty(t, res.RunID)

	c := res.Ranked[0]
	assert.Equal(t, 30, c.DTE)
	require.NotNil(t, c.Mid)
	assert.InDelta(t, 2.05, *c.Mid, 1e-9)
	require.NotNil(t, c.SpreadPct)
	assert.InDelta(t, 0.0488, *c.SpreadPct, 1e-4)
	require.NotNil(t, c.OTMPct)
	assert.InDelta(t, 0.0476, *c.OTMPct, 1e-4)
	require.NotNil(t, c.Breakeven)
	assert.InDelta(t, 97.95, *c.Breakeven, 1e-9)
	require.NotNil(t, c.AnnualizedYield)
	assert.InDelta(t, 0.2545, *c.AnnualizedYield, 1e-3)
	assert.Greater(t, c.Score, 0.0)
	assert.True(t, strings.HasPrefix(c.WhyRankedHigh, "high annualized yield (25.5%)"), c.WhyRankedHigh)
	assert.Contains(t, c.WhyRankedHigh, "earnings date unknown")

	require.Len(t, res.Expirations["SPY"], 1)
	assert.Equal(t, LabelList, res.Expirations["SPY"][0].Label)
}

func TestRun_NoQuoteAndCrossedAreExcluded(t *testing.T) {
	zero := quote("SPY", "SPY-ZERO", core.OptionPut, exp30, 100, 0, 0, 500)
	zero.LastPrice = core.Float(0)
	crossed := quote("SPY", "SPY-CROSSED", core.OptionPut, exp30, 100, 2.20, 2.00, 500)
	crossed.LastPrice = core.Float(2.10)
	good := quote("SPY", "SPY-GOOD", core.OptionPut, exp30, 100, 2.00, 2.10, 500)

	f := newFake(t)
	f.data["SPY"] = &fakeUnderlying{
		spot:   105,
		chains: map[time.Time][]core.RawOptionQuote{exp30: {zero, crossed, good}},
	}

	res, err := newScreener(t, f).Run(context.Background(), listRequest("SPY"))
	require.NoError(t, err)
	assert.Equal(t, []string{"SPY-GOOD"}, rankedSymbols(res))

	require.Len(t, res.Excluded, 2)
	for _, e := range res.Excluded {
		assert.Equal(t, ReasonNoQuote, e.Reason)
		assert.Nil(t, e.Contract.Mid)
		assert.Zero(t, e.Contract.Score)
	}
	assert.Equal(t, "SPY-CROSSED", res.Excluded[0].Contract.ContractSymbol)
	assert.Equal(t, "SPY-ZERO", res.Excluded[1].Contract.ContractSymbol)
}

func TestRun_TimeoutReportedPerUnderlying(t *testing.T) {
	f := newFake(t)
	f.data["AAA"] = &fakeUnderlying{
		spot: 105,
		chains: map[time.Time][]core.RawOptionQuote{exp30: {
			quote("AAA", "AAA-1", core.OptionPut, exp30, 100, 2.00, 2.10, 500),
			quote("AAA", "AAA-2", core.OptionPut, exp30, 95, 1.00, 1.05, 800),
			quote("AAA", "AAA-3", core.OptionPut, exp30, 90, 0.50, 0.55, 300),
		}},
	}
	// BBB ignores cancellation entirely
	f.data["BBB"] = &fakeUnderlying{spot: 50, hang: true}

	req := listRequest("AAA", "BBB")
	req.Timeout = 100 * time.Millisecond

	start := time.Now()
	res, err := newScreener(t, f).Run(context.Background(), req)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)

	require.Len(t, res.Ranked, 3)
	for _, c := range res.Ranked {
		assert.Equal(t, "AAA", c.Underlying)
	}

	require.Len(t, res.Errors, 1)
	e := res.Errors[0]
	assert.Equal(t, "BBB", e.Symbol)
	assert.Equal(t, StageTechnicals, e.Stage)
	assert.Equal(t, core.ErrProviderTimeout.Code, e.Code)
	assert.True(t, e.IsTimeout())
	assert.True(t, e.Skipped)
	assert.Equal(t, "partial", res.Status())
}

func TestRun_OrderingIndependentOfArrival(t *testing.T) {
	build := func(delays map[string]time.Duration) *fakeProviders {
		f := newFake(t)
		for _, sym := range []string{"AAA", "BBB", "CCC"} {
			f.data[sym] = &fakeUnderlying{
				spot:  105,
				delay: delays[sym],
				chains: map[time.Time][]core.RawOptionQuote{exp30: {
					// identical metrics across underlyings force the symbol tie-break
					quote(sym, sym+"-P100", core.OptionPut, exp30, 100, 2.00, 2.10, 500),
					quote(sym, sym+"-P95", core.OptionPut, exp30, 95, 1.00, 1.10, 900),
				}},
			}
		}
		return f
	}

	first := build(map[string]time.Duration{"AAA": 40 * time.Millisecond, "BBB": 20 * time.Millisecond})
	second := build(map[string]time.Duration{"CCC": 40 * time.Millisecond, "BBB": 20 * time.Millisecond})

	req := listRequest("AAA", "BBB", "CCC")
	r1, err := newScreener(t, first).Run(context.Background(), req)
	require.NoError(t, err)
	r2, err := newScreener(t, second).Run(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, r1.Ranked, 6)
	assert.Equal(t, rankedSymbols(r1), rankedSymbols(r2))

	// equal-score groups are ordered by contract symbol
	for i := 1; i < len(r1.Ranked); i++ {
		a, b := r1.Ranked[i-1], r1.Ranked[i]
		if a.Score == b.Score {
			assert.Less(t, a.ContractSymbol, b.ContractSymbol)
		}
	}
}

func TestRun_ChainFailureSkipsUnderlying(t *testing.T) {
	f := newFake(t)
	f.data["AAA"] = &fakeUnderlying{
		spot:   105,
		chains: map[time.Time][]core.RawOptionQuote{exp30: {quote("AAA", "AAA-1", core.OptionPut, exp30, 100, 2.00, 2.10, 500)}},
	}
	f.data["BBB"] = &fakeUnderlying{
		spot:     105,
		chainErr: core.WrapError(core.ErrProviderUnavailable, errors.New("503 from upstream")),
	}

	res, err := newScreener(t, f).Run(context.Background(), listRequest("AAA", "BBB", "CCC"))
	require.NoError(t, err)
	assert.Equal(t, []string{"AAA-1"}, rankedSymbols(res))

	require.Len(t, res.Errors, 2)
	assert.Equal(t, "BBB", res.Errors[0].Symbol)
	assert.Equal(t, StageChain, res.Errors[0].Stage)
	assert.Equal(t, "2026-11-18", res.Errors[0].Expiration)
	assert.Equal(t, core.ErrProviderUnavailable.Code, res.Errors[0].Code)
	assert.Contains(t, res.Errors[0].Reason, "503 from upstream")

	assert.Equal(t, "CCC", res.Errors[1].Symbol)
	assert.Equal(t, StageTechnicals, res.Errors[1].Stage)
	assert.Equal(t, core.ErrNoData.Code, res.Errors[1].Code)
}

func TestRun_EarningsFailureDegradesToUnknown(t *testing.T) {
	f := newFake(t)
	f.data["AAA"] = &fakeUnderlying{
		spot:    105,
		earnErr: core.WrapError(core.ErrProviderUnavailable, errors.New("calendar down")),
		chains:  map[time.Time][]core.RawOptionQuote{exp30: {quote("AAA", "AAA-1", core.OptionPut, exp30, 100, 2.00, 2.10, 500)}},
	}

	res, err := newScreener(t, f).Run(context.Background(), listRequest("AAA"))
	require.NoError(t, err)
	require.Len(t, res.Ranked, 1)
	assert.Nil(t, res.Ranked[0].EarningsBeforeExpiry)
	assert.Contains(t, res.Ranked[0].WhyRankedHigh, "earnings date unknown")

	require.Len(t, res.Errors, 1)
	assert.Equal(t, StageEarnings, res.Errors[0].Stage)
	assert.False(t, res.Errors[0].Skipped)
}

func TestRun_EarningsBeforeExpiryPenalized(t *testing.T) {
	before := time.Date(2026, 11, 5, 0, 0, 0, 0, time.UTC)
	f := newFake(t)
	for sym, earn := range map[string]*time.Time{"AAA": &before, "BBB": nil} {
		f.data[sym] = &fakeUnderlying{
			spot:     105,
			earnings: earn,
			chains:   map[time.Time][]core.RawOptionQuote{exp30: {quote(sym, sym+"-1", core.OptionPut, exp30, 100, 2.00, 2.10, 500)}},
		}
	}

	res, err := newScreener(t, f).Run(context.Background(), listRequest("AAA", "BBB"))
	require.NoError(t, err)
	require.Equal(t, []string{"BBB-1", "AAA-1"}, rankedSymbols(res))

	penalized := res.Ranked[1]
	require.NotNil(t, penalized.EarningsBeforeExpiry)
	assert.True(t, *penalized.EarningsBeforeExpiry)
	assert.InDelta(t, res.Ranked[0].Score*0.8, penalized.Score, 1e-9)
}

func TestRun_ResultLimits(t *testing.T) {
	f := newFake(t)
	for _, sym := range []string{"AAA", "BBB"} {
		f.data[sym] = &fakeUnderlying{
			spot: 105,
			chains: map[time.Time][]core.RawOptionQuote{exp30: {
				quote(sym, sym+"-1", core.OptionPut, exp30, 100, 2.00, 2.10, 500),
				quote(sym, sym+"-2", core.OptionPut, exp30, 95, 1.00, 1.05, 500),
				quote(sym, sym+"-3", core.OptionPut, exp30, 90, 0.50, 0.55, 500),
			}},
		}
	}

	req := listRequest("AAA", "BBB")
	req.MaxPerUnderlying = 2
	req.MaxResults = 3

	res, err := newScreener(t, f).Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 6, res.Candidates)
	assert.Equal(t, 2, res.TruncatedPerUnderlying)
	assert.Equal(t, 1, res.Truncated)
	assert.Len(t, res.Ranked, 3)

	perUnderlying := map[string]int{}
	for _, c := range res.Ranked {
		perUnderlying[c.Underlying]++
	}
	assert.LessOrEqual(t, perUnderlying["AAA"], 2)
	assert.LessOrEqual(t, perUnderlying["BBB"], 2)
}

func TestRun_FiltersReportReasons(t *testing.T) {
	thin := quote("AAA", "AAA-THIN", core.OptionPut, exp30, 100, 2.00, 2.10, 10)
	itm := quote("AAA", "AAA-ITM", core.OptionPut, exp30, 110, 7.00, 7.20, 900)
	good := quote("AAA", "AAA-GOOD", core.OptionPut, exp30, 100, 2.00, 2.10, 900)

	f := newFake(t)
	f.data["AAA"] = &fakeUnderlying{spot: 105, chains: map[time.Time][]core.RawOptionQuote{exp30: {thin, itm, good}}}

	req := listRequest("AAA")
	req.Filters = Filters{MinOpenInterest: core.Int(100), OTMOnly: true}

	res, err := newScreener(t, f).Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAA-GOOD"}, rankedSymbols(res))

	reasons := map[string]string{}
	for _, e := range res.Excluded {
		reasons[e.Contract.ContractSymbol] = e.Reason
	}
	assert.Equal(t, map[string]string{"AAA-THIN": ReasonOpenInterest, "AAA-ITM": ReasonInTheMoney}, reasons)
}

func TestRun_OnlyRequestedOptionType(t *testing.T) {
	f := newFake(t)
	f.data["AAA"] = &fakeUnderlying{
		spot: 105,
		chains: map[time.Time][]core.RawOptionQuote{exp30: {
			quote("AAA", "AAA-C110", core.OptionCall, exp30, 110, 1.00, 1.10, 500),
			quote("AAA", "AAA-P100", core.OptionPut, exp30, 100, 2.00, 2.10, 500),
		}},
	}

	req := listRequest("AAA")
	req.OptionType = core.OptionCall
	res, err := newScreener(t, f).Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAA-C110"}, rankedSymbols(res))
	assert.Equal(t, core.OptionCall, res.OptionType)
}

func TestRun_ExpiredContractExcluded(t *testing.T) {
	past := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
	f := newFake(t)
	f.data["AAA"] = &fakeUnderlying{
		spot:   105,
		chains: map[time.Time][]core.RawOptionQuote{past: {quote("AAA", "AAA-OLD", core.OptionPut, past, 100, 2.00, 2.10, 500)}},
	}

	req := listRequest("AAA")
	req.Expirations.Dates = []time.Time{past}
	res, err := newScreener(t, f).Run(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, res.Ranked)
	require.Len(t, res.Excluded, 1)
	assert.Equal(t, ReasonExpired, res.Excluded[0].Reason)
	assert.Equal(t, -3, res.Excluded[0].Contract.DTE)
	assert.Equal(t, "empty", res.Status())
}

func TestRun_BucketModeFetchesSelectedExpirations(t *testing.T) {
	week := time.Date(2026, 10, 23, 0, 0, 0, 0, time.UTC)
	next := time.Date(2026, 10, 30, 0, 0, 0, 0, time.UTC)
	monthly := time.Date(2026, 11, 20, 0, 0, 0, 0, time.UTC)
	far := time.Date(2027, 1, 15, 0, 0, 0, 0, time.UTC)

	f := newFake(t)
	f.data["AAA"] = &fakeUnderlying{
		spot: 105,
		chains: map[time.Time][]core.RawOptionQuote{
			week:    {quote("AAA", "AAA-W", core.OptionPut, week, 100, 0.50, 0.55, 500)},
			next:    {quote("AAA", "AAA-N", core.OptionPut, next, 100, 0.90, 0.95, 500)},
			monthly: {quote("AAA", "AAA-M", core.OptionPut, monthly, 100, 2.00, 2.10, 500)},
			far:     {quote("AAA", "AAA-F", core.OptionPut, far, 100, 4.00, 4.20, 500)},
		},
	}

	req := listRequest("AAA")
	req.Expirations = ExpirationFilter{}
	res, err := newScreener(t, f).Run(context.Background(), req)
	require.NoError(t, err)

	labels := map[string]string{}
	for _, c := range res.Ranked {
		labels[c.ContractSymbol] = c.ExpirationLabel
	}
	assert.Equal(t, map[string]string{
		"AAA-W": LabelCurrentWeek,
		"AAA-N": LabelNextWeek,
		"AAA-M": LabelMonthly,
	}, labels)
}

func TestRun_InvalidRequest(t *testing.T) {
	s := newScreener(t, newFake(t))

	_, err := s.Run(context.Background(), Request{OptionType: core.OptionPut})
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))

	_, err = s.Run(context.Background(), Request{Universe: []string{"SPY"}, OptionType: "straddle"})
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))

	_, err = s.Run(context.Background(), Request{Universe: []string{"SPY"}, OptionType: core.OptionPut, Expirations: ExpirationFilter{Mode: ModeList}})
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))
}

func TestNew_RequiresAllRoles(t *testing.T) {
	_, err := New(provider.Set{}, nil)
	assert.True(t, errors.Is(err, core.ErrConfigMissing))
}

type recorder struct {
	mu        sync.Mutex
	calls     map[string]int
	excluded  map[string]int
	errors    int
	runStatus string
	ranked    int
}

func (r *recorder) ProviderCall(role, name, status string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[role+":"+status]++
}

func (r *recorder) ContractExcluded(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.excluded[reason]++
}

func (r *recorder) UnderlyingError(stage, code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors++
}

func (r *recorder) RunCompleted(status string, d time.Duration, ranked int) {
	r.runStatus = status
	r.ranked = ranked
}

func TestRun_RecordsTelemetry(t *testing.T) {
	zero := quote("SPY", "SPY-ZERO", core.OptionPut, exp30, 100, 0, 0, 500)
	f := newFake(t)
	f.data["SPY"] = &fakeUnderlying{
		spot: 105,
		chains: map[time.Time][]core.RawOptionQuote{exp30: {
			zero,
			quote("SPY", "SPY-1", core.OptionPut, exp30, 100, 2.00, 2.10, 500),
		}},
	}
	rec := &recorder{calls: map[string]int{}, excluded: map[string]int{}}

	_, err := newScreener(t, f, WithRecorder(rec)).Run(context.Background(), listRequest("SPY", "NOPE"))
	require.NoError(t, err)

	assert.Equal(t, 1, rec.calls["market:ok"])
	assert.Equal(t, 1, rec.calls["market:"+core.ErrNoData.Code])
	assert.Equal(t, 1, rec.calls["fundamentals:ok"])
	assert.Equal(t, 1, rec.calls["chain:ok"])
	assert.Equal(t, 1, rec.excluded[ReasonNoQuote])
	assert.Equal(t, 1, rec.errors)
	assert.Equal(t, "partial", rec.runStatus)
	assert.Equal(t, 1, rec.ranked)
}

func TestRun_DuplicateContractsKeptOnce(t *testing.T) {
	q := quote("AAA", "AAA-1", core.OptionPut, exp30, 100, 2.00, 2.10, 500)
	f := newFake(t)
	f.data["AAA"] = &fakeUnderlying{spot: 105, chains: map[time.Time][]core.RawOptionQuote{exp30: {q, q}}}

	res, err := newScreener(t, f).Run(context.Background(), listRequest("AAA"))
	require.NoError(t, err)
	assert.Equal(t, []string{"AAA-1"}, rankedSymbols(res))
	require.Len(t, res.Excluded, 1)
	assert.Equal(t, ReasonDuplicate, res.Excluded[0].Reason)
}
