// Package provider defines the three data-provider roles the screener
// consumes and the shared plumbing concrete adapters are built on.
package provider

import (
	"context"
	"time"

	"github.com/newthinker/premia/internal/core"
)

// Role names one of the three independent data domains
type Role string

const (
	RoleChain        Role = "chain"
	RoleMarket       Role = "market"
	RoleFundamentals Role = "fundamentals"
)

// ChainProvider serves listed expirations and option chains.
// FetchChain fails with core.ErrNoData when the underlying has no chain for
// the expiration and with core.ErrProviderUnavailable on transport or auth
// failure.
type ChainProvider interface {
	Name() string
	FetchExpirations(ctx context.Context, symbol string) ([]time.Time, error)
	FetchChain(ctx context.Context, symbol string, expiration time.Time) ([]core.RawOptionQuote, error)
}

// MarketProvider serves price context. Partial history yields a snapshot
// with absent fields rather than an error.
type MarketProvider interface {
	Name() string
	FetchTechnicals(ctx context.Context, symbol string) (*core.TechnicalsSnapshot, error)
}

// FundamentalsProvider serves the earnings calendar. An unknown date is not
// an error: the returned EarningsInfo has a nil EarningsDate.
type FundamentalsProvider interface {
	Name() string
	FetchEarnings(ctx context.Context, symbol string) (*core.EarningsInfo, error)
}

// Set is the provider triple used by one screen run
type Set struct {
	Chain        ChainProvider
	Market       MarketProvider
	Fundamentals FundamentalsProvider
}
