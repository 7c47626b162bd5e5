// Package public adapts a brokerage market-data API to the options-chain
// role. Requests authenticate with a bearer token exchanged from a personal
// secret; chain prices arrive as decimal strings and contracts are keyed by
// OSI symbol.
package public

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/premia/internal/core"
	"github.com/newthinker/premia/internal/provider"
)

const (
	DefaultBaseURL       = "https://api.public.com"
	DefaultTokenValidity = 60 * time.Minute
	greeksBatchSize      = 100
)

// Config holds brokerage adapter settings
type Config struct {
	BaseURL       string
	Secret        string
	AccountID     string
	TokenValidity time.Duration
	FetchGreeks   bool
	RateLimit     float64
	Timeout       time.Duration
}

// Public implements provider.ChainProvider
type Public struct {
	client      *provider.HTTPClient
	baseURL     string
	fetchGreeks bool
	logger      *zap.Logger

	mu        sync.Mutex
	accountID string
}

// New creates the adapter. The secret is required; the account ID is looked
// up on first use when not configured.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Public, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Secret == "" {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("public.secret is required"))
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.TokenValidity <= 0 {
		cfg.TokenValidity = DefaultTokenValidity
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = provider.DefaultTimeout
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")

	authed := newAuthClient(ctx, &http.Client{Timeout: cfg.Timeout}, baseURL, cfg.Secret, cfg.TokenValidity, time.Now)
	httpOpts := []provider.HTTPOption{
		provider.WithHTTPClient(authed),
		provider.WithLogger(logger),
	}
	if cfg.RateLimit != 0 {
		httpOpts = append(httpOpts, provider.WithRateLimit(cfg.RateLimit))
	}

	return &Public{
		client:      provider.NewHTTPClient(httpOpts...),
		baseURL:     baseURL,
		fetchGreeks: cfg.FetchGreeks,
		logger:      logger,
		accountID:   cfg.AccountID,
	}, nil
}

func (p *Public) Name() string {
	return "public"
}

func (p *Public) account(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.accountID != "" {
		return p.accountID, nil
	}

	var resp accountsResponse
	if err := p.client.GetJSON(ctx, p.baseURL+"/userapigateway/trading/account", &resp); err != nil {
		return "", fmt.Errorf("looking up account: %w", err)
	}
	for _, a := range resp.Accounts {
		if strings.EqualFold(a.AccountType, "BROKERAGE") {
			p.accountID = a.AccountID
			break
		}
	}
	if p.accountID == "" && len(resp.Accounts) > 0 {
		p.accountID = resp.Accounts[0].AccountID
	}
	if p.accountID == "" {
		return "", core.WrapError(core.ErrProviderUnavailable, fmt.Errorf("no accounts available"))
	}
	p.logger.Debug("resolved account", zap.String("account_id", p.accountID))
	return p.accountID, nil
}

func (p *Public) marketDataURL(ctx context.Context, endpoint string) (string, error) {
	acct, err := p.account(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/userapigateway/marketdata/%s/%s", p.baseURL, url.PathEscape(acct), endpoint), nil
}

// FetchExpirations lists the chain's expiration dates
func (p *Public) FetchExpirations(ctx context.Context, symbol string) ([]time.Time, error) {
	u, err := p.marketDataURL(ctx, "option-expirations")
	if err != nil {
		return nil, err
	}

	var resp expirationsResponse
	if err := p.client.PostJSON(ctx, u, expirationsRequest{Instrument: equity(symbol)}, &resp); err != nil {
		return nil, fmt.Errorf("fetching expirations for %s: %w", symbol, err)
	}

	out := make([]time.Time, 0, len(resp.Expirations))
	for _, s := range resp.Expirations {
		d, err := core.ParseDate(s)
		if err != nil {
			p.logger.Warn("skipping malformed expiration",
				zap.String("symbol", symbol),
				zap.String("value", s),
			)
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

// FetchChain returns calls and puts for one expiration
func (p *Public) FetchChain(ctx context.Context, symbol string, expiration time.Time) ([]core.RawOptionQuote, error) {
	u, err := p.marketDataURL(ctx, "option-chain")
	if err != nil {
		return nil, err
	}
	exp := core.DateOf(expiration)

	var resp chainResponse
	req := chainRequest{Instrument: equity(symbol), ExpirationDate: exp.Format(time.DateOnly)}
	if err := p.client.PostJSON(ctx, u, req, &resp); err != nil {
		return nil, fmt.Errorf("fetching chain for %s: %w", symbol, err)
	}

	quotes := make([]core.RawOptionQuote, 0, len(resp.Calls)+len(resp.Puts))
	for _, q := range append(resp.Calls, resp.Puts...) {
		raw, err := q.toRaw(symbol, exp)
		if err != nil {
			p.logger.Warn("skipping unparseable contract", zap.String("symbol", symbol), zap.Error(err))
			continue
		}
		quotes = append(quotes, raw)
	}
	if len(quotes) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no chain for %s %s", symbol, exp.Format(time.DateOnly)))
	}

	if p.fetchGreeks {
		if err := p.attachGreeks(ctx, quotes); err != nil {
			// Greeks are optional; the chain is still usable without them
			p.logger.Warn("greeks unavailable", zap.String("symbol", symbol), zap.Error(err))
		}
	}
	return quotes, nil
}

func (p *Public) attachGreeks(ctx context.Context, quotes []core.RawOptionQuote) error {
	acct, err := p.account(ctx)
	if err != nil {
		return err
	}
	index := make(map[string]int, len(quotes))
	symbols := make([]string, 0, len(quotes))
	for i, q := range quotes {
		index[q.ContractSymbol] = i
		symbols = append(symbols, q.ContractSymbol)
	}

	for start := 0; start < len(symbols); start += greeksBatchSize {
		end := min(start+greeksBatchSize, len(symbols))
		u := fmt.Sprintf("%s/userapigateway/option-details/%s/greeks?osiSymbols=%s",
			p.baseURL, url.PathEscape(acct), url.QueryEscape(strings.Join(symbols[start:end], ",")))

		var resp greeksResponse
		if err := p.client.GetJSON(ctx, u, &resp); err != nil {
			return err
		}
		for _, g := range resp.Greeks {
			i, ok := index[g.Symbol]
			if !ok {
				continue
			}
			if d := g.Greeks.Delta.float(); d != nil {
				quotes[i].Delta = d
			}
			if iv := g.Greeks.ImpliedVolatility.float(); iv != nil && quotes[i].ImpliedVolatility == nil {
				quotes[i].ImpliedVolatility = iv
			}
		}
	}
	return nil
}

// decimal is a price transmitted as a JSON string
type decimal string

func (d decimal) float() *float64 {
	if d == "" {
		return nil
	}
	v, err := strconv.ParseFloat(string(d), 64)
	if err != nil {
		return nil
	}
	return &v
}

type instrument struct {
	Symbol string `json:"symbol"`
	Type   string `json:"type"`
}

func equity(symbol string) instrument {
	return instrument{Symbol: strings.ToUpper(symbol), Type: "EQUITY"}
}

type accountsResponse struct {
	Accounts []struct {
		AccountID   string `json:"accountId"`
		AccountType string `json:"accountType"`
	} `json:"accounts"`
}

type expirationsRequest struct {
	Instrument instrument `json:"instrument"`
}

type expirationsResponse struct {
	BaseSymbol  string   `json:"baseSymbol"`
	Expirations []string `json:"expirations"`
}

type chainRequest struct {
	Instrument     instrument `json:"instrument"`
	ExpirationDate string     `json:"expirationDate"`
}

type chainResponse struct {
	BaseSymbol string       `json:"baseSymbol"`
	Calls      []chainQuote `json:"calls"`
	Puts       []chainQuote `json:"puts"`
}

type chainQuote struct {
	Instrument   instrument `json:"instrument"`
	Outcome      string     `json:"outcome"`
	Last         decimal    `json:"last"`
	Bid          decimal    `json:"bid"`
	Ask          decimal    `json:"ask"`
	Volume       *int64     `json:"volume"`
	OpenInterest *int64     `json:"openInterest"`
}

func (q chainQuote) toRaw(underlying string, expiration time.Time) (core.RawOptionQuote, error) {
	osi, err := parseOSI(q.Instrument.Symbol)
	if err != nil {
		return core.RawOptionQuote{}, err
	}
	raw := core.RawOptionQuote{
		Underlying:     underlying,
		ContractSymbol: q.Instrument.Symbol,
		Type:           osi.Type,
		Expiration:     expiration,
		Strike:         osi.Strike,
		Volume:         q.Volume,
		OpenInterest:   q.OpenInterest,
	}
	if q.Outcome == "" || strings.EqualFold(q.Outcome, "SUCCESS") {
		raw.Bid = q.Bid.float()
		raw.Ask = q.Ask.float()
		raw.LastPrice = q.Last.float()
	}
	return raw, nil
}

type greeksResponse struct {
	Greeks []struct {
		Symbol string `json:"symbol"`
		Greeks struct {
			Delta             decimal `json:"delta"`
			ImpliedVolatility decimal `json:"impliedVolatility"`
		} `json:"greeks"`
	} `json:"greeks"`
}
