package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/newthinker/premia/internal/config"
	"github.com/newthinker/premia/internal/core"
	"github.com/newthinker/premia/internal/digest"
	"github.com/newthinker/premia/internal/llm"
	"github.com/newthinker/premia/internal/llm/factory"
	"github.com/newthinker/premia/internal/metrics"
	"github.com/newthinker/premia/internal/notifier"
	"github.com/newthinker/premia/internal/notifier/email"
	"github.com/newthinker/premia/internal/notifier/telegram"
	"github.com/newthinker/premia/internal/notifier/webhook"
	"github.com/newthinker/premia/internal/provider"
	"github.com/newthinker/premia/internal/provider/cache"
	"github.com/newthinker/premia/internal/provider/public"
	"github.com/newthinker/premia/internal/provider/static"
	"github.com/newthinker/premia/internal/provider/yahoo"
	"github.com/newthinker/premia/internal/recommend"
	"github.com/newthinker/premia/internal/scoring"
	"github.com/newthinker/premia/internal/screener"
	"github.com/newthinker/premia/internal/storage/blob"
	"go.uber.org/zap"
)

// App wires providers, the optional response cache, the scorer and the
// screener from configuration.
type App struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *provider.Registry
	cache    *cache.Cache
	screener *screener.Screener
	metrics  *metrics.Registry
	llm      llm.Provider
	notify   *notifier.Registry

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	latest  *screener.Result
}

type namedProvider struct {
	name string
	p    any
}

type options struct {
	metrics   *metrics.Registry
	llm       llm.Provider
	llmSet    bool
	now       func() time.Time
	providers []namedProvider
	notifiers []notifier.Notifier
}

// Option configures an App
type Option func(*options)

// WithMetrics records screen telemetry into reg
func WithMetrics(reg *metrics.Registry) Option {
	return func(o *options) {
		o.metrics = reg
	}
}

// WithLLM replaces the configured digest provider; nil disables the digest
func WithLLM(p llm.Provider) Option {
	return func(o *options) {
		o.llm = p
		o.llmSet = true
	}
}

// WithClock overrides the screener clock
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithProvider registers an extra provider under name, replacing any
// built-in provider of the same name
func WithProvider(name string, p any) Option {
	return func(o *options) {
		o.providers = append(o.providers, namedProvider{name: name, p: p})
	}
}

// WithNotifier adds a run report channel alongside the configured ones
func WithNotifier(n notifier.Notifier) Option {
	return func(o *options) {
		o.notifiers = append(o.notifiers, n)
	}
}

// New creates an App. It fails when the configured providers cannot be
// built or resolved.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if cfg == nil {
		cfg = config.Defaults()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{
		cfg:      cfg,
		logger:   logger,
		registry: provider.NewRegistry(),
		metrics:  o.metrics,
		notify:   notifier.NewRegistry(),
	}

	if err := a.registerProviders(ctx, o.providers); err != nil {
		return nil, err
	}
	set, err := a.registry.Resolve(cfg.Providers.Chain, cfg.Providers.Market, cfg.Providers.Fundamentals)
	if err != nil {
		return nil, err
	}
	if name := cfg.Providers.ChainFallback; name != "" {
		fallback, err := a.registry.Chain(name)
		if err != nil {
			return nil, err
		}
		set.Chain = provider.NewFallbackChain(set.Chain, fallback, logger.Named("fallback"))
	}

	if cfg.Cache.Enabled {
		store, err := blob.Open(blob.Config{
			Type: cfg.Cache.Store.Type,
			Path: cfg.Cache.Store.Path,
			S3: blob.S3Config{
				Bucket:    cfg.Cache.Store.S3.Bucket,
				Endpoint:  cfg.Cache.Store.S3.Endpoint,
				Region:    cfg.Cache.Store.S3.Region,
				AccessKey: cfg.Cache.Store.S3.AccessKey,
				SecretKey: cfg.Cache.Store.S3.SecretKey,
				Prefix:    cfg.Cache.Store.S3.Prefix,
			},
		})
		if err != nil {
			return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("opening cache store: %w", err))
		}
		a.cache = cache.New(store, cache.TTL{
			Chain:        cfg.Cache.ChainTTL,
			Market:       cfg.Cache.MarketTTL,
			Fundamentals: cfg.Cache.FundamentalsTTL,
		}, logger.Named("cache"))
		set = a.cache.Wrap(set)
	}

	metricOpts, err := cfg.MetricOptions()
	if err != nil {
		return nil, err
	}
	screenOpts := []screener.Option{
		screener.WithLogger(logger.Named("screener")),
		screener.WithMetricOptions(metricOpts),
	}
	if a.metrics != nil {
		screenOpts = append(screenOpts, screener.WithRecorder(a.metrics))
	}
	if o.now != nil {
		screenOpts = append(screenOpts, screener.WithClock(o.now))
	}
	if cfg.Recommend.Enabled {
		screenOpts = append(screenOpts, screener.WithRecommender(recommend.New(cfg.RecommendConfig())))
	}
	a.screener, err = screener.New(set, scoring.NewScorer(cfg.ScoringConfig()), screenOpts...)
	if err != nil {
		return nil, err
	}

	if o.llmSet {
		a.llm = o.llm
	} else if a.llm, err = factory.New(cfg.LLM); err != nil {
		return nil, err
	}

	if err := a.registerNotifiers(o.notifiers); err != nil {
		return nil, err
	}

	logger.Info("premia initialized",
		zap.Strings("providers", a.registry.Names()),
		zap.String("chain", set.Chain.Name()),
		zap.String("market", set.Market.Name()),
		zap.String("fundamentals", set.Fundamentals.Name()),
		zap.String("chain_fallback", cfg.Providers.ChainFallback),
		zap.Bool("cache", a.cache != nil),
		zap.Bool("recommend", cfg.Recommend.Enabled),
		zap.Bool("digest", a.llm != nil),
		zap.Strings("notifiers", a.notify.Names()),
	)
	return a, nil
}

// registerNotifiers builds every notify channel whose required setting is
// present, then the extra ones
func (a *App) registerNotifiers(extra []notifier.Notifier) error {
	n := a.cfg.Notify
	var built []notifier.Notifier

	if n.Webhook.URL != "" {
		w, err := webhook.New(n.Webhook.URL, n.Webhook.Headers)
		if err != nil {
			return core.WrapError(core.ErrConfigInvalid, err)
		}
		built = append(built, w)
	}
	if n.Telegram.BotToken != "" {
		t, err := telegram.New(n.Telegram.BotToken, n.Telegram.ChatID, n.Telegram.BaseURL)
		if err != nil {
			return core.WrapError(core.ErrConfigMissing, err)
		}
		built = append(built, t)
	}
	if n.Email.Host != "" {
		e, err := email.New(email.Config{
			Host:     n.Email.Host,
			Port:     n.Email.Port,
			Username: n.Email.Username,
			Password: n.Email.Password,
			From:     n.Email.From,
			To:       n.Email.To,
		})
		if err != nil {
			return core.WrapError(core.ErrConfigMissing, err)
		}
		built = append(built, e)
	}

	for _, nt := range append(built, extra...) {
		if err := a.notify.Register(nt); err != nil {
			return core.WrapError(core.ErrConfigInvalid, err)
		}
	}
	return nil
}

// registerProviders builds yahoo unconditionally and the others when
// configured. A role naming a provider without its required settings is a
// configuration error.
func (a *App) registerProviders(ctx context.Context, extra []namedProvider) error {
	cfg := a.cfg
	a.registry.Register("yahoo", yahoo.New(yahoo.Config{
		BaseURL:      cfg.Yahoo.BaseURL,
		HistoryRange: cfg.Yahoo.HistoryRange,
		RateLimit:    cfg.Yahoo.RateLimit,
		Timeout:      cfg.Yahoo.Timeout,
	}, a.logger.Named("yahoo")))

	if cfg.Public.Secret != "" || a.selected("public") {
		p, err := public.New(ctx, public.Config{
			BaseURL:       cfg.Public.BaseURL,
			Secret:        cfg.Public.Secret,
			AccountID:     cfg.Public.AccountID,
			TokenValidity: cfg.Public.TokenValidity,
			FetchGreeks:   cfg.Public.FetchGreeks,
			RateLimit:     cfg.Public.RateLimit,
			Timeout:       cfg.Public.Timeout,
		}, a.logger.Named("public"))
		if err != nil {
			return err
		}
		a.registry.Register(p.Name(), p)
	}

	if cfg.Static.Fixture != "" {
		s, err := static.Load(cfg.Static.Fixture)
		if err != nil {
			return core.WrapError(core.ErrConfigInvalid, err)
		}
		a.registry.Register(s.Name(), s)
	} else if a.selected("static") {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("static.fixture required for the static provider"))
	}

	for _, p := range extra {
		a.registry.Register(p.name, p.p)
	}
	return nil
}

func (a *App) selected(name string) bool {
	p := a.cfg.Providers
	return p.Chain == name || p.Market == name || p.Fundamentals == name || p.ChainFallback == name
}

// DefaultRequest builds the request described by the screen section
func (a *App) DefaultRequest() (screener.Request, error) {
	return a.cfg.ScreenRequest()
}

// Screen runs one screen and remembers it as the latest result
func (a *App) Screen(ctx context.Context, req screener.Request) (*screener.Result, error) {
	res, err := a.screener.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	a.latest = res
	a.mu.Unlock()
	return res, nil
}

// Latest returns the most recent result, or nil before the first run
func (a *App) Latest() *screener.Result {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.latest
}

// Digest summarizes res with the configured LLM. It fails with
// CONFIG_MISSING when no LLM is configured.
func (a *App) Digest(ctx context.Context, res *screener.Result) (string, error) {
	return digest.Summarize(ctx, a.llm, res, a.cfg.LLM.DigestTopN)
}

// HasDigest reports whether an LLM is configured
func (a *App) HasDigest() bool {
	return a.llm != nil
}

// PurgeCache drops cached responses for roles, or for every role when none
// is given
func (a *App) PurgeCache(ctx context.Context, roles ...provider.Role) (int, error) {
	if a.cache == nil {
		return 0, core.WrapError(core.ErrConfigMissing, fmt.Errorf("cache is not enabled"))
	}
	return a.cache.Purge(ctx, roles...)
}

// Providers returns the registered provider names
func (a *App) Providers() []string {
	return a.registry.Names()
}

// Metrics returns the metrics registry, or nil when metrics are disabled
func (a *App) Metrics() *metrics.Registry {
	return a.metrics
}

// Start re-runs the default screen every screen.interval until ctx is done
func (a *App) Start(ctx context.Context) error {
	interval := a.cfg.Screen.Interval
	if interval <= 0 {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("screen.interval must be positive to start the loop"))
	}

	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("app already running")
	}
	a.running = true

	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.mu.Unlock()

	a.logger.Info("screen loop starting", zap.Duration("interval", interval))

	// Initial run
	a.RunOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("screen loop stopping")
			a.mu.Lock()
			a.running = false
			a.mu.Unlock()
			return ctx.Err()
		case <-ticker.C:
			a.RunOnce(ctx)
		}
	}
}

// Stop stops the screen loop
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		a.cancel()
	}
}

// RunOnce runs the default screen and logs the outcome
func (a *App) RunOnce(ctx context.Context) {
	req, err := a.DefaultRequest()
	if err != nil {
		a.logger.Error("invalid screen configuration", zap.Error(err))
		return
	}
	res, err := a.Screen(ctx, req)
	if err != nil {
		a.logger.Error("screen failed", zap.Error(err))
		return
	}
	a.logger.Info("screen completed",
		zap.String("run_id", res.RunID),
		zap.String("status", res.Status()),
		zap.Int("ranked", len(res.Ranked)),
		zap.Int("excluded", len(res.Excluded)),
		zap.Int("errors", len(res.Errors)),
	)
	a.report(ctx, res)
}

// report sends res to every notifier. Failures are logged only.
func (a *App) report(ctx context.Context, res *screener.Result) {
	if a.notify.Len() == 0 {
		return
	}
	n := a.cfg.Notify
	if n.OnlyWhenRanked && len(res.Ranked) == 0 {
		return
	}

	var text string
	if n.Digest && a.llm != nil {
		var err error
		if text, err = a.Digest(ctx, res); err != nil {
			a.logger.Warn("digest failed", zap.String("run_id", res.RunID), zap.Error(err))
		}
	}

	for name, err := range a.notify.NotifyAll(ctx, notifier.NewReport(res, n.TopN, text)) {
		a.logger.Warn("notification failed",
			zap.String("notifier", name),
			zap.String("run_id", res.RunID),
			zap.Error(err),
		)
	}
}

// GetStats returns application statistics
func (a *App) GetStats() map[string]any {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := map[string]any{
		"running":   a.running,
		"providers": a.registry.Names(),
		"cache":     a.cache != nil,
		"digest":    a.llm != nil,
		"notifiers": a.notify.Names(),
	}
	if a.latest != nil {
		stats["last_run_id"] = a.latest.RunID
		stats["last_status"] = a.latest.Status()
		stats["last_completed_at"] = a.latest.CompletedAt
	}
	return stats
}
