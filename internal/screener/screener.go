package screener

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/newthinker/premia/internal/contract"
	"github.com/newthinker/premia/internal/core"
	"github.com/newthinker/premia/internal/provider"
	"github.com/newthinker/premia/internal/recommend"
	"github.com/newthinker/premia/internal/scoring"
)

// Recorder receives run telemetry; metrics.Registry implements it
type Recorder interface {
	ProviderCall(role, name, status string, d time.Duration)
	ContractExcluded(reason string)
	UnderlyingError(stage, code string)
	RunCompleted(status string, d time.Duration, ranked int)
}

type nopRecorder struct{}

func (nopRecorder) ProviderCall(string, string, string, time.Duration) {}
func (nopRecorder) ContractExcluded(string)                           {}
func (nopRecorder) UnderlyingError(string, string)                    {}
func (nopRecorder) RunCompleted(string, time.Duration, int)           {}

// Screener runs screens against one provider set. It keeps no per-run
// state and is safe for concurrent use.
type Screener struct {
	providers provider.Set
	scorer    *scoring.Scorer
	metrics   contract.MetricOptions
	recorder  Recorder
	recommend *recommend.Engine
	logger    *zap.Logger
	now       func() time.Time
}

// Option configures a Screener
type Option func(*Screener)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Screener) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRecorder sets the telemetry sink
func WithRecorder(r Recorder) Option {
	return func(s *Screener) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithClock overrides the clock that defines "today"
func WithClock(now func() time.Time) Option {
	return func(s *Screener) {
		s.now = now
	}
}

// WithMetricOptions sets the premium basis and risk-free rate
func WithMetricOptions(o contract.MetricOptions) Option {
	return func(s *Screener) {
		s.metrics = o
	}
}

// New creates a screener over providers
func New(providers provider.Set, scorer *scoring.Scorer, opts ...Option) (*Screener, error) {
	if providers.Chain == nil || providers.Market == nil || providers.Fundamentals == nil {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("all three provider roles are required"))
	}
	if scorer == nil {
		scorer = scoring.NewScorer(scoring.DefaultConfig())
	}
	s := &Screener{
		providers: providers,
		scorer:    scorer,
		recorder:  nopRecorder{},
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// underlyingResult is everything one task produced. Each task owns its own
// value; results are merged only after every task has finished.
type underlyingResult struct {
	candidates  []contract.CandidateContract
	excluded    []Exclusion
	errors      []UnderlyingError
	expirations []SelectedExpiration

	tech     *core.TechnicalsSnapshot
	earnings *time.Time
}

// Run executes one screen. It fails only for an invalid request; provider
// failures are reported per underlying in Result.Errors.
func (s *Screener) Run(ctx context.Context, req Request) (*Result, error) {
	req, err := req.normalize()
	if err != nil {
		return nil, err
	}

	started := s.now()
	res := &Result{
		RunID:       uuid.New().String(),
		OptionType:  req.OptionType,
		AsOf:        core.DateOf(started),
		StartedAt:   started,
		Expirations: make(map[string][]SelectedExpiration, len(req.Universe)),
	}
	logger := s.logger.With(zap.String("run_id", res.RunID))
	logger.Info("screen started",
		zap.Strings("universe", req.Universe),
		zap.String("option_type", string(req.OptionType)),
		zap.String("expiration_mode", string(req.Expirations.Mode)),
	)

	runCtx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	results := make([]underlyingResult, len(req.Universe))
	var g errgroup.Group
	g.SetLimit(req.Concurrency)
	for i, symbol := range req.Universe {
		g.Go(func() error {
			results[i] = s.screenUnderlying(runCtx, symbol, req, res.AsOf, logger)
			return nil
		})
	}
	g.Wait()

	s.merge(res, req, results)
	if s.recommend != nil {
		res.Recommendations = s.recommendations(res, req, results)
	}
	res.CompletedAt = s.now()

	elapsed := res.CompletedAt.Sub(started)
	s.recorder.RunCompleted(res.Status(), elapsed, len(res.Ranked))
	logger.Info("screen completed",
		zap.String("status", res.Status()),
		zap.Int("ranked", len(res.Ranked)),
		zap.Int("excluded", len(res.Excluded)),
		zap.Int("errors", len(res.Errors)),
		zap.Int("truncated", res.Truncated+res.TruncatedPerUnderlying),
		zap.Duration("elapsed", elapsed),
	)
	return res, nil
}

func (s *Screener) screenUnderlying(ctx context.Context, symbol string, req Request, today time.Time, logger *zap.Logger) underlyingResult {
	var out underlyingResult
	fail := func(stage, expiration string, err error, skipped bool) {
		coded := core.Classify(err)
		out.errors = append(out.errors, UnderlyingError{
			Symbol:     symbol,
			Stage:      stage,
			Expiration: expiration,
			Code:       coded.Code,
			Reason:     err.Error(),
			Skipped:    skipped,
		})
		s.recorder.UnderlyingError(stage, coded.Code)
		logger.Warn("provider call failed",
			zap.String("symbol", symbol),
			zap.String("stage", stage),
			zap.String("expiration", expiration),
			zap.String("code", coded.Code),
			zap.Error(err),
		)
	}

	if err := ctx.Err(); err != nil {
		fail(StageTechnicals, "", err, true)
		return out
	}

	tech, err := call(ctx, s, provider.RoleMarket, s.providers.Market.Name(), func(ctx context.Context) (*core.TechnicalsSnapshot, error) {
		return s.providers.Market.FetchTechnicals(ctx, symbol)
	})
	if err == nil && tech == nil {
		err = core.WrapError(core.ErrNoData, fmt.Errorf("no technicals for %s", symbol))
	}
	if err != nil {
		fail(StageTechnicals, "", err, true)
		return out
	}
	out.tech = tech

	earnings, err := call(ctx, s, provider.RoleFundamentals, s.providers.Fundamentals.Name(), func(ctx context.Context) (*core.EarningsInfo, error) {
		return s.providers.Fundamentals.FetchEarnings(ctx, symbol)
	})
	if err != nil {
		fail(StageEarnings, "", err, false)
	}
	if earnings == nil {
		earnings = &core.EarningsInfo{Symbol: symbol}
	}
	out.earnings = earnings.EarningsDate

	var available []time.Time
	if req.Expirations.Mode != ModeList {
		fbCtx, servedBy := fallbackNote(ctx)
		available, err = call(fbCtx, s, provider.RoleChain, s.providers.Chain.Name(), func(ctx context.Context) ([]time.Time, error) {
			return s.providers.Chain.FetchExpirations(ctx, symbol)
		})
		if err != nil {
			fail(StageExpirations, "", err, true)
			return out
		}
		if u, ok := servedBy(); ok {
			fail(StageExpirations, "", fallbackError(u), false)
		}
	}
	out.expirations = SelectExpirations(available, today, req.Expirations)
	if len(out.expirations) == 0 {
		fail(StageExpirations, "", core.WrapError(core.ErrNoData, fmt.Errorf("no listed expiration matched the filter")), true)
		return out
	}

	for _, exp := range out.expirations {
		expStr := exp.Date.Format(time.DateOnly)
		fbCtx, servedBy := fallbackNote(ctx)
		quotes, err := call(fbCtx, s, provider.RoleChain, s.providers.Chain.Name(), func(ctx context.Context) ([]core.RawOptionQuote, error) {
			return s.providers.Chain.FetchChain(ctx, symbol, exp.Date)
		})
		if err != nil {
			fail(StageChain, expStr, err, true)
			continue
		}
		if u, ok := servedBy(); ok {
			fail(StageChain, expStr, fallbackError(u), false)
		}

		for _, q := range quotes {
			if q.Type != req.OptionType {
				continue
			}
			if q.Underlying == "" {
				q.Underlying = symbol
			}
			s.evaluate(&out, q, *tech, *earnings, exp.Label, req.Filters, today)
		}
	}

	logger.Debug("underlying screened",
		zap.String("symbol", symbol),
		zap.Int("candidates", len(out.candidates)),
		zap.Int("excluded", len(out.excluded)),
	)
	return out
}

// evaluate runs one quote through normalize, metrics, scoring and filters
func (s *Screener) evaluate(out *underlyingResult, q core.RawOptionQuote, tech core.TechnicalsSnapshot, earn core.EarningsInfo, label string, filters Filters, today time.Time) {
	c := contract.Normalize(q, tech, earn, today)
	c.ExpirationLabel = label

	if c.Expired() {
		out.excluded = append(out.excluded, Exclusion{Reason: ReasonExpired, Contract: c})
		return
	}

	c = c.WithMetrics(s.metrics)
	scored, ok := s.scorer.Score(c)
	if !ok {
		out.excluded = append(out.excluded, Exclusion{Reason: ReasonNoQuote, Contract: c})
		return
	}
	if reason := filters.Check(scored); reason != "" {
		out.excluded = append(out.excluded, Exclusion{Reason: reason, Contract: scored})
		return
	}
	out.candidates = append(out.candidates, scored)
}

// fallbackNote attaches a fallback observer to ctx. The returned func
// reports whether a fallback adapter served the request made under it.
func fallbackNote(ctx context.Context) (context.Context, func() (provider.FallbackUse, bool)) {
	ch := make(chan provider.FallbackUse, 1)
	ctx = provider.WithFallbackObserver(ctx, func(u provider.FallbackUse) {
		select {
		case ch <- u:
		default:
		}
	})
	return ctx, func() (provider.FallbackUse, bool) {
		select {
		case u := <-ch:
			return u, true
		default:
			return provider.FallbackUse{}, false
		}
	}
}

func fallbackError(u provider.FallbackUse) error {
	return fmt.Errorf("served by fallback %s after %s failed: %w", u.Fallback, u.Primary, u.Err)
}

// call invokes one provider method under ctx and records its outcome. It
// returns as soon as ctx is done even if the provider ignores cancellation.
func call[T any](ctx context.Context, s *Screener, role provider.Role, name string, fn func(context.Context) (T, error)) (T, error) {
	type outcome struct {
		v   T
		err error
	}
	start := time.Now()
	done := make(chan outcome, 1)
	go func() {
		v, err := fn(ctx)
		done <- outcome{v, err}
	}()

	var o outcome
	select {
	case o = <-done:
	case <-ctx.Done():
		o.err = core.WrapError(core.ErrProviderTimeout, ctx.Err())
	}

	status := "ok"
	if o.err != nil {
		status = core.Classify(o.err).Code
	}
	s.recorder.ProviderCall(string(role), name, status, time.Since(start))
	return o.v, o.err
}

// merge joins per-underlying results in universe order, then ranks and
// applies the result limits.
func (s *Screener) merge(res *Result, req Request, results []underlyingResult) {
	seen := make(map[string]bool)
	var candidates []contract.CandidateContract
	for i, r := range results {
		res.Expirations[req.Universe[i]] = r.expirations
		res.Errors = append(res.Errors, r.errors...)
		res.Excluded = append(res.Excluded, r.excluded...)
		for _, c := range r.candidates {
			if seen[c.ContractSymbol] {
				res.Excluded = append(res.Excluded, Exclusion{Reason: ReasonDuplicate, Contract: c})
				continue
			}
			seen[c.ContractSymbol] = true
			candidates = append(candidates, c)
		}
	}

	scoring.Rank(candidates)
	res.Candidates = len(candidates)

	if req.MaxPerUnderlying > 0 {
		perUnderlying := make(map[string]int)
		kept := candidates[:0]
		for _, c := range candidates {
			if perUnderlying[c.Underlying] >= req.MaxPerUnderlying {
				res.TruncatedPerUnderlying++
				continue
			}
			perUnderlying[c.Underlying]++
			kept = append(kept, c)
		}
		candidates = kept
	}
	if req.MaxResults > 0 && len(candidates) > req.MaxResults {
		res.Truncated = len(candidates) - req.MaxResults
		candidates = candidates[:req.MaxResults]
	}
	if candidates == nil {
		candidates = []contract.CandidateContract{}
	}
	res.Ranked = candidates

	sort.SliceStable(res.Excluded, func(i, j int) bool {
		a, b := res.Excluded[i].Contract, res.Excluded[j].Contract
		if a.Underlying != b.Underlying {
			return a.Underlying < b.Underlying
		}
		if !a.Expiration.Equal(b.Expiration) {
			return a.Expiration.Before(b.Expiration)
		}
		return a.ContractSymbol < b.ContractSymbol
	})
	for _, e := range res.Excluded {
		s.recorder.ContractExcluded(e.Reason)
	}
	if res.Excluded == nil {
		res.Excluded = []Exclusion{}
	}
	if res.Errors == nil {
		res.Errors = []UnderlyingError{}
	}
}

// IsTimeout reports whether an underlying error came from the run deadline
func (e UnderlyingError) IsTimeout() bool {
	return e.Code == core.ErrProviderTimeout.Code
}
