package provider

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/premia/internal/core"
)

// FallbackUse describes one chain request the fallback adapter served
type FallbackUse struct {
	Primary  string
	Fallback string
	// Err is the primary's failure
	Err error
}

type fallbackObserverKey struct{}

// WithFallbackObserver returns a context whose chain requests report to fn
// when a FallbackChain serves them from its secondary adapter. fn may be
// called from another goroutine.
func WithFallbackObserver(ctx context.Context, fn func(FallbackUse)) context.Context {
	return context.WithValue(ctx, fallbackObserverKey{}, fn)
}

func notifyFallback(ctx context.Context, u FallbackUse) {
	if fn, ok := ctx.Value(fallbackObserverKey{}).(func(FallbackUse)); ok && fn != nil {
		fn(u)
	}
}

// FallbackChain serves chain data from a secondary adapter when the primary
// is unavailable. A missing chain is an answer, not an outage, so
// core.ErrNoData is returned as is.
type FallbackChain struct {
	primary  ChainProvider
	fallback ChainProvider
	logger   *zap.Logger
}

// NewFallbackChain wraps primary with fallback
func NewFallbackChain(primary, fallback ChainProvider, logger *zap.Logger) *FallbackChain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FallbackChain{primary: primary, fallback: fallback, logger: logger}
}

// Name reports the primary adapter
func (f *FallbackChain) Name() string {
	return f.primary.Name()
}

func (f *FallbackChain) FetchExpirations(ctx context.Context, symbol string) ([]time.Time, error) {
	return withFallback(ctx, f, symbol, func(ctx context.Context, p ChainProvider) ([]time.Time, error) {
		return p.FetchExpirations(ctx, symbol)
	})
}

func (f *FallbackChain) FetchChain(ctx context.Context, symbol string, expiration time.Time) ([]core.RawOptionQuote, error) {
	return withFallback(ctx, f, symbol, func(ctx context.Context, p ChainProvider) ([]core.RawOptionQuote, error) {
		return p.FetchChain(ctx, symbol, expiration)
	})
}

func withFallback[T any](ctx context.Context, f *FallbackChain, symbol string, fetch func(context.Context, ChainProvider) (T, error)) (T, error) {
	v, err := fetch(ctx, f.primary)
	if err == nil || !f.shouldFallback(ctx, err) {
		return v, err
	}

	fv, ferr := fetch(ctx, f.fallback)
	if ferr != nil {
		f.logger.Warn("fallback chain provider failed",
			zap.String("symbol", symbol),
			zap.String("fallback", f.fallback.Name()),
			zap.Error(ferr),
		)
		return v, err
	}

	f.logger.Info("chain served by fallback",
		zap.String("symbol", symbol),
		zap.String("primary", f.primary.Name()),
		zap.String("fallback", f.fallback.Name()),
		zap.Error(err),
	)
	notifyFallback(ctx, FallbackUse{Primary: f.primary.Name(), Fallback: f.fallback.Name(), Err: err})
	return fv, nil
}

// shouldFallback is true for outages and for primary timeouts while the
// caller is still waiting
func (f *FallbackChain) shouldFallback(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	return errors.Is(err, core.ErrProviderUnavailable) || errors.Is(err, core.ErrProviderTimeout)
}
