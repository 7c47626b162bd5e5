// Package yahoo adapts Yahoo Finance's public JSON endpoints to all three
// provider roles: chart history for technicals, the options endpoint for
// expirations and chains, and quoteSummary for the earnings calendar.
package yahoo

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/premia/internal/core"
	"github.com/newthinker/premia/internal/indicator"
	"github.com/newthinker/premia/internal/provider"
)

const (
	DefaultBaseURL      = "https://query1.finance.yahoo.com"
	DefaultHistoryRange = "6mo"
)

// validSymbol matches tickers like AAPL, BRK.B, BRK-B and indices like ^SPX
var validSymbol = regexp.MustCompile(`^\^?[A-Za-z0-9]{1,10}([.-][A-Za-z]{1,4})?$`)

// instrument types that never report earnings
var noEarnings = map[string]bool{
	"ETF":            true,
	"INDEX":          true,
	"MUTUALFUND":     true,
	"CRYPTOCURRENCY": true,
	"CURRENCY":       true,
}

func validateSymbol(symbol string) error {
	if symbol == "" {
		return core.WrapError(core.ErrInvalidSymbol, fmt.Errorf("symbol cannot be empty"))
	}
	if !validSymbol.MatchString(symbol) {
		return core.WrapError(core.ErrInvalidSymbol, fmt.Errorf("invalid symbol format: %s", symbol))
	}
	return nil
}

// toYahooSymbol converts class shares to Yahoo's dash form: BRK.B -> BRK-B
func toYahooSymbol(symbol string) string {
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(symbol)), ".", "-")
}

// Config holds Yahoo adapter settings
type Config struct {
	BaseURL      string
	HistoryRange string
	RateLimit    float64
	Timeout      time.Duration
}

// Yahoo implements provider.ChainProvider, MarketProvider and FundamentalsProvider
type Yahoo struct {
	client       *provider.HTTPClient
	baseURL      string
	historyRange string
	now          func() time.Time
	logger       *zap.Logger
}

// Option configures a Yahoo adapter
type Option func(*Yahoo)

// WithClock overrides the clock used to pick the next earnings date
func WithClock(now func() time.Time) Option {
	return func(y *Yahoo) {
		y.now = now
	}
}

// New creates a Yahoo adapter
func New(cfg Config, logger *zap.Logger, opts ...Option) *Yahoo {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.HistoryRange == "" {
		cfg.HistoryRange = DefaultHistoryRange
	}
	httpOpts := []provider.HTTPOption{provider.WithLogger(logger)}
	if cfg.RateLimit != 0 {
		httpOpts = append(httpOpts, provider.WithRateLimit(cfg.RateLimit))
	}
	if cfg.Timeout > 0 {
		httpOpts = append(httpOpts, provider.WithTimeout(cfg.Timeout))
	}

	y := &Yahoo{
		client:       provider.NewHTTPClient(httpOpts...),
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		historyRange: cfg.HistoryRange,
		now:          time.Now,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(y)
	}
	return y
}

func (y *Yahoo) Name() string {
	return "yahoo"
}

// FetchTechnicals pulls daily bars and derives the technicals snapshot
func (y *Yahoo) FetchTechnicals(ctx context.Context, symbol string) (*core.TechnicalsSnapshot, error) {
	if err := validateSymbol(symbol); err != nil {
		return nil, err
	}
	bars, err := y.fetchHistory(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no price history for %s", symbol))
	}
	snap := indicator.Technicals(symbol, bars)
	return &snap, nil
}

func (y *Yahoo) fetchHistory(ctx context.Context, symbol string) ([]core.OHLCV, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=%s",
		y.baseURL, url.PathEscape(toYahooSymbol(symbol)), url.QueryEscape(y.historyRange))

	var result chartResponse
	if err := y.client.GetJSON(ctx, u, &result); err != nil {
		return nil, fmt.Errorf("fetching history for %s: %w", symbol, err)
	}
	if result.Chart.Error != nil {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("yahoo error: %s", result.Chart.Error.Description))
	}
	if len(result.Chart.Result) == 0 || len(result.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no chart data for %s", symbol))
	}

	r := result.Chart.Result[0]
	quotes := r.Indicators.Quote[0]
	bars := make([]core.OHLCV, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		if i >= len(quotes.Close) || quotes.Close[i] == nil {
			continue // Skip missing data
		}
		bar := core.OHLCV{
			Symbol:   symbol,
			Interval: "1d",
			Close:    *quotes.Close[i],
			Time:     time.Unix(ts, 0).UTC(),
		}
		bar.Open = valueAt(quotes.Open, i, bar.Close)
		bar.High = valueAt(quotes.High, i, bar.Close)
		bar.Low = valueAt(quotes.Low, i, bar.Close)
		if i < len(quotes.Volume) && quotes.Volume[i] != nil {
			bar.Volume = *quotes.Volume[i]
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func valueAt(series []*float64, i int, fallback float64) float64 {
	if i < len(series) && series[i] != nil {
		return *series[i]
	}
	return fallback
}

// FetchExpirations lists the chain's expiration dates in ascending order
func (y *Yahoo) FetchExpirations(ctx context.Context, symbol string) ([]time.Time, error) {
	if err := validateSymbol(symbol); err != nil {
		return nil, err
	}
	res, err := y.fetchOptions(ctx, symbol, nil)
	if err != nil {
		return nil, err
	}

	out := make([]time.Time, 0, len(res.ExpirationDates))
	for _, ts := range res.ExpirationDates {
		out = append(out, core.DateOf(time.Unix(ts, 0).UTC()))
	}
	return out, nil
}

// FetchChain returns both calls and puts for one expiration
func (y *Yahoo) FetchChain(ctx context.Context, symbol string, expiration time.Time) ([]core.RawOptionQuote, error) {
	if err := validateSymbol(symbol); err != nil {
		return nil, err
	}
	exp := core.DateOf(expiration)
	res, err := y.fetchOptions(ctx, symbol, &exp)
	if err != nil {
		return nil, err
	}
	if len(res.Options) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no chain for %s %s", symbol, exp.Format(time.DateOnly)))
	}

	set := res.Options[0]
	quotes := make([]core.RawOptionQuote, 0, len(set.Calls)+len(set.Puts))
	for _, c := range set.Calls {
		quotes = append(quotes, c.toRaw(symbol, core.OptionCall, exp))
	}
	for _, p := range set.Puts {
		quotes = append(quotes, p.toRaw(symbol, core.OptionPut, exp))
	}
	if len(quotes) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("empty chain for %s %s", symbol, exp.Format(time.DateOnly)))
	}

	y.logger.Debug("fetched chain",
		zap.String("symbol", symbol),
		zap.String("expiration", exp.Format(time.DateOnly)),
		zap.Int("contracts", len(quotes)),
	)
	return quotes, nil
}

func (y *Yahoo) fetchOptions(ctx context.Context, symbol string, expiration *time.Time) (*optionResult, error) {
	u := fmt.Sprintf("%s/v7/finance/options/%s", y.baseURL, url.PathEscape(toYahooSymbol(symbol)))
	if expiration != nil {
		u += fmt.Sprintf("?date=%d", expiration.Unix())
	}

	var result optionsResponse
	if err := y.client.GetJSON(ctx, u, &result); err != nil {
		return nil, fmt.Errorf("fetching options for %s: %w", symbol, err)
	}
	if result.OptionChain.Error != nil {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("yahoo error: %s", result.OptionChain.Error.Description))
	}
	if len(result.OptionChain.Result) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no options listed for %s", symbol))
	}
	return &result.OptionChain.Result[0], nil
}

// FetchEarnings returns the next earnings date on or after today. Funds,
// indices and symbols without a calendar yield an unknown date.
func (y *Yahoo) FetchEarnings(ctx context.Context, symbol string) (*core.EarningsInfo, error) {
	if err := validateSymbol(symbol); err != nil {
		return nil, err
	}
	info := &core.EarningsInfo{Symbol: symbol}

	u := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?modules=calendarEvents,quoteType",
		y.baseURL, url.PathEscape(toYahooSymbol(symbol)))

	var result summaryResponse
	if err := y.client.GetJSON(ctx, u, &result); err != nil {
		if core.Classify(err).Code == core.ErrNoData.Code {
			y.logger.Debug("earnings not available", zap.String("symbol", symbol))
			return info, nil
		}
		return nil, fmt.Errorf("fetching earnings for %s: %w", symbol, err)
	}
	if len(result.QuoteSummary.Result) == 0 {
		return info, nil
	}

	r := result.QuoteSummary.Result[0]
	if qt := strings.ToUpper(r.QuoteType.QuoteType); noEarnings[qt] {
		y.logger.Debug("instrument does not report earnings",
			zap.String("symbol", symbol),
			zap.String("quote_type", qt),
		)
		return info, nil
	}

	today := core.DateOf(y.now())
	for _, d := range r.CalendarEvents.Earnings.EarningsDate {
		date := core.DateOf(time.Unix(d.Raw, 0).UTC())
		if !date.Before(today) {
			info.EarningsDate = &date
			break
		}
	}
	return info, nil
}
