// Package cache decorates providers with a response cache kept in a blob
// store. Entries expire per role; concurrent identical fetches share one
// upstream call.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/newthinker/premia/internal/core"
	"github.com/newthinker/premia/internal/provider"
	"github.com/newthinker/premia/internal/storage/blob"
)

// TTL holds the freshness window per role; zero disables caching for that role
type TTL struct {
	Chain        time.Duration
	Market       time.Duration
	Fundamentals time.Duration
}

// DefaultLoadTimeout bounds one shared upstream fetch
const DefaultLoadTimeout = 60 * time.Second

// DefaultTTL keeps live quotes briefly and calendars for half a day
var DefaultTTL = TTL{
	Chain:        5 * time.Minute,
	Market:       time.Hour,
	Fundamentals: 12 * time.Hour,
}

type envelope struct {
	StoredAt time.Time       `json:"stored_at"`
	Payload  json.RawMessage `json:"payload"`
}

// Cache wraps providers with a shared store
type Cache struct {
	store  blob.Store
	ttl         TTL
	loadTimeout time.Duration
	now         func() time.Time
	logger      *zap.Logger
	group       singleflight.Group
}

// Option configures a Cache
type Option func(*Cache)

// WithClock overrides the clock used for expiry
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// WithLoadTimeout bounds each shared upstream fetch independently of the
// callers waiting on it
func WithLoadTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.loadTimeout = d
		}
	}
}

// New creates a cache over store
func New(store blob.Store, ttl TTL, logger *zap.Logger, opts ...Option) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Cache{
		store:       store,
		ttl:         ttl,
		loadTimeout: DefaultLoadTimeout,
		now:         time.Now,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Wrap decorates every role of set
func (c *Cache) Wrap(set provider.Set) provider.Set {
	return provider.Set{
		Chain:        c.Chain(set.Chain),
		Market:       c.Market(set.Market),
		Fundamentals: c.Fundamentals(set.Fundamentals),
	}
}

// Chain decorates a chain provider
func (c *Cache) Chain(p provider.ChainProvider) provider.ChainProvider {
	if p == nil || c.ttl.Chain <= 0 {
		return p
	}
	return &cachedChain{cache: c, inner: p}
}

// Market decorates a market provider
func (c *Cache) Market(p provider.MarketProvider) provider.MarketProvider {
	if p == nil || c.ttl.Market <= 0 {
		return p
	}
	return &cachedMarket{cache: c, inner: p}
}

// Fundamentals decorates a fundamentals provider
func (c *Cache) Fundamentals(p provider.FundamentalsProvider) provider.FundamentalsProvider {
	if p == nil || c.ttl.Fundamentals <= 0 {
		return p
	}
	return &cachedFundamentals{cache: c, inner: p}
}

// Purge deletes cached entries for the given roles, or all roles when none
// are named, and returns the number of entries removed.
func (c *Cache) Purge(ctx context.Context, roles ...provider.Role) (int, error) {
	if len(roles) == 0 {
		roles = []provider.Role{provider.RoleChain, provider.RoleMarket, provider.RoleFundamentals}
	}
	removed := 0
	for _, role := range roles {
		keys, err := c.store.List(ctx, string(role))
		if err != nil {
			return removed, fmt.Errorf("listing %s entries: %w", role, err)
		}
		for _, key := range keys {
			if err := c.store.Delete(ctx, key); err != nil {
				return removed, fmt.Errorf("deleting %s: %w", key, err)
			}
			removed++
		}
	}
	return removed, nil
}

func key(role provider.Role, providerName, symbol string, extra ...string) string {
	segs := []string{string(role), providerName, strings.ToUpper(symbol)}
	segs = append(segs, extra...)
	for i, seg := range segs {
		segs[i] = strings.ReplaceAll(seg, "/", "_")
	}
	return strings.Join(segs, "/") + ".json"
}

// fetch returns a fresh cached value or calls load and stores its result.
// Store failures degrade to an uncached call; errors from load are never cached.
//
// Concurrent callers share one load. The load runs detached from every
// caller's cancellation under its own timeout, and each caller stops waiting
// when its own ctx is done.
func fetch[T any](ctx context.Context, c *Cache, k string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	var zero T
	if v, ok := read[T](ctx, c, k, ttl); ok {
		return v, nil
	}

	ch := c.group.DoChan(k, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.loadTimeout)
		defer cancel()
		v, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		c.write(loadCtx, k, v)
		return v, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		if res.Shared {
			c.logger.Debug("shared in-flight fetch", zap.String("key", k))
		}
		return res.Val.(T), nil
	case <-ctx.Done():
		return zero, core.WrapError(core.ErrProviderTimeout, ctx.Err())
	}
}

func read[T any](ctx context.Context, c *Cache, k string, ttl time.Duration) (T, bool) {
	var out T
	data, err := c.store.Read(ctx, k)
	if err != nil {
		if !errors.Is(err, blob.ErrNotFound) {
			c.logger.Warn("cache read failed", zap.String("key", k), zap.Error(err))
		}
		return out, false
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.logger.Warn("discarding corrupt cache entry", zap.String("key", k), zap.Error(err))
		return out, false
	}
	if c.now().Sub(env.StoredAt) > ttl {
		return out, false
	}
	if err := json.Unmarshal(env.Payload, &out); err != nil {
		c.logger.Warn("discarding undecodable cache entry", zap.String("key", k), zap.Error(err))
		return out, false
	}
	c.logger.Debug("cache hit", zap.String("key", k))
	return out, true
}

func (c *Cache) write(ctx context.Context, k string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("cache encode failed", zap.String("key", k), zap.Error(err))
		return
	}
	data, err := json.Marshal(envelope{StoredAt: c.now().UTC(), Payload: payload})
	if err != nil {
		return
	}
	if err := c.store.Write(ctx, k, data); err != nil {
		c.logger.Warn("cache write failed", zap.String("key", k), zap.Error(err))
	}
}

type cachedChain struct {
	cache *Cache
	inner provider.ChainProvider
}

func (p *cachedChain) Name() string { return p.inner.Name() }

func (p *cachedChain) FetchExpirations(ctx context.Context, symbol string) ([]time.Time, error) {
	k := key(provider.RoleChain, p.inner.Name(), symbol, "expirations")
	return fetch(ctx, p.cache, k, p.cache.ttl.Chain, func(ctx context.Context) ([]time.Time, error) {
		return p.inner.FetchExpirations(ctx, symbol)
	})
}

func (p *cachedChain) FetchChain(ctx context.Context, symbol string, expiration time.Time) ([]core.RawOptionQuote, error) {
	k := key(provider.RoleChain, p.inner.Name(), symbol, core.DateOf(expiration).Format(time.DateOnly))
	return fetch(ctx, p.cache, k, p.cache.ttl.Chain, func(ctx context.Context) ([]core.RawOptionQuote, error) {
		return p.inner.FetchChain(ctx, symbol, expiration)
	})
}

type cachedMarket struct {
	cache *Cache
	inner provider.MarketProvider
}

func (p *cachedMarket) Name() string { return p.inner.Name() }

func (p *cachedMarket) FetchTechnicals(ctx context.Context, symbol string) (*core.TechnicalsSnapshot, error) {
	k := key(provider.RoleMarket, p.inner.Name(), symbol)
	return fetch(ctx, p.cache, k, p.cache.ttl.Market, func(ctx context.Context) (*core.TechnicalsSnapshot, error) {
		return p.inner.FetchTechnicals(ctx, symbol)
	})
}

type cachedFundamentals struct {
	cache *Cache
	inner provider.FundamentalsProvider
}

func (p *cachedFundamentals) Name() string { return p.inner.Name() }

func (p *cachedFundamentals) FetchEarnings(ctx context.Context, symbol string) (*core.EarningsInfo, error) {
	k := key(provider.RoleFundamentals, p.inner.Name(), symbol)
	return fetch(ctx, p.cache, k, p.cache.ttl.Fundamentals, func(ctx context.Context) (*core.EarningsInfo, error) {
		return p.inner.FetchEarnings(ctx, symbol)
	})
}
