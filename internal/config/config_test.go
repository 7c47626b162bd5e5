package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/newthinker/premia/internal/core"
	"github.com/newthinker/premia/internal/metric"
	"github.com/newthinker/premia/internal/screener"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return cfgPath
}

func TestLoad_FromFile(t *testing.T) {
	cfgPath := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9090

screen:
  universe: [aapl, msft]
  option_type: call
  timeout: 30s
  expirations:
    mode: range
    min_dte: 7
    max_dte: 45

providers:
  chain: static
  market: static
  fundamentals: static
  chain_fallback: yahoo

recommend:
  ivr_min: 25
  min_sale_prices:
    aapl: 180

static:
  fixture: "testdata/fixture.yaml"

cache:
  enabled: true
  chain_ttl: 2m
  store:
    type: localfs
    path: "/tmp/premia/cache"
`)

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if len(cfg.Screen.Universe) != 2 || cfg.Screen.Universe[0] != "aapl" {
		t.Errorf("unexpected universe %v", cfg.Screen.Universe)
	}
	if cfg.Screen.Timeout != 30*time.Second {
		t.Errorf("expected 30s timeout, got %v", cfg.Screen.Timeout)
	}
	if cfg.Screen.Expirations.MinDTE == nil || *cfg.Screen.Expirations.MinDTE != 7 {
		t.Errorf("expected min_dte 7, got %v", cfg.Screen.Expirations.MinDTE)
	}
	if cfg.Providers.Chain != "static" {
		t.Errorf("expected static chain provider, got %s", cfg.Providers.Chain)
	}
	if cfg.Cache.ChainTTL != 2*time.Minute {
		t.Errorf("expected chain ttl 2m, got %v", cfg.Cache.ChainTTL)
	}

	// Keys absent from the file keep their defaults
	if cfg.Cache.MarketTTL != time.Hour {
		t.Errorf("expected default market ttl 1h, got %v", cfg.Cache.MarketTTL)
	}
	if cfg.Strategy.YieldWeight != 0.40 {
		t.Errorf("expected default yield weight 0.40, got %f", cfg.Strategy.YieldWeight)
	}
	if cfg.Strategy.TrendWeight != 0.20 {
		t.Errorf("expected default trend weight 0.20, got %f", cfg.Strategy.TrendWeight)
	}
	if cfg.Providers.ChainFallback != "yahoo" {
		t.Errorf("expected yahoo chain fallback, got %q", cfg.Providers.ChainFallback)
	}
	if !cfg.Recommend.Enabled || cfg.Recommend.IVRMin != 25 {
		t.Errorf("expected recommend enabled with ivr_min 25, got %+v", cfg.Recommend)
	}
	if cfg.Recommend.DeltaMax != 0.25 {
		t.Errorf("expected default delta max 0.25, got %f", cfg.Recommend.DeltaMax)
	}
	if got := cfg.RecommendConfig().MinSalePrices["AAPL"]; got != 180 {
		t.Errorf("expected AAPL min sale price 180, got %f", got)
	}
	if cfg.Screen.Expirations.Buckets.MonthlyMaxDTE != 45 {
		t.Errorf("expected default monthly max dte 45, got %d", cfg.Screen.Expirations.Buckets.MonthlyMaxDTE)
	}
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("PREMIA_TEST_SECRET", "s3cr3t")
	cfgPath := writeConfig(t, `
public:
  secret: "${PREMIA_TEST_SECRET}"
`)

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Public.Secret != "s3cr3t" {
		t.Errorf("expected expanded secret, got %q", cfg.Public.Secret)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Screen.OptionType != "put" {
		t.Errorf("expected default option type put, got %s", cfg.Screen.OptionType)
	}
	if cfg.Providers.Chain != "yahoo" {
		t.Errorf("expected default chain provider yahoo, got %s", cfg.Providers.Chain)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr *core.Error
	}{
		{"valid config", func(c *Config) {}, nil},
		{"invalid port - zero", func(c *Config) { c.Server.Port = 0 }, core.ErrConfigInvalid},
		{"invalid port - too high", func(c *Config) { c.Server.Port = 70000 }, core.ErrConfigInvalid},
		{"bad option type", func(c *Config) { c.Screen.OptionType = "straddle" }, core.ErrConfigInvalid},
		{"negative concurrency", func(c *Config) { c.Screen.Concurrency = -1 }, core.ErrConfigInvalid},
		{"negative max results", func(c *Config) { c.Screen.MaxResults = -5 }, core.ErrConfigInvalid},
		{"missing provider", func(c *Config) { c.Providers.Market = "" }, core.ErrConfigMissing},
		{"negative weight", func(c *Config) { c.Strategy.SafetyWeight = -0.1 }, core.ErrConfigInvalid},
		{"negative trend weight", func(c *Config) { c.Strategy.TrendWeight = -0.2 }, core.ErrConfigInvalid},
		{"zero weights", func(c *Config) {
			c.Strategy.YieldWeight, c.Strategy.LiquidityWeight, c.Strategy.SafetyWeight = 0, 0, 0
			c.Strategy.TrendWeight = 0
		}, core.ErrConfigInvalid},
		{"trend weight alone", func(c *Config) {
			c.Strategy.YieldWeight, c.Strategy.LiquidityWeight, c.Strategy.SafetyWeight = 0, 0, 0
		}, nil},
		{"earnings penalty above one", func(c *Config) { c.Strategy.EarningsPenalty = 1.5 }, core.ErrConfigInvalid},
		{"bad premium basis", func(c *Config) { c.Strategy.PremiumBasis = "last" }, core.ErrConfigInvalid},
		{"cache without path", func(c *Config) {
			c.Cache.Enabled = true
			c.Cache.Store.Path = ""
		}, core.ErrConfigMissing},
		{"s3 cache without bucket", func(c *Config) {
			c.Cache.Enabled = true
			c.Cache.Store.Type = "s3"
		}, core.ErrConfigMissing},
		{"unknown cache store", func(c *Config) {
			c.Cache.Enabled = true
			c.Cache.Store.Type = "ftp"
		}, core.ErrConfigInvalid},
		{"claude without key", func(c *Config) { c.LLM.Provider = "claude" }, core.ErrConfigMissing},
		{"openai without key", func(c *Config) { c.LLM.Provider = "openai" }, core.ErrConfigMissing},
		{"unknown llm", func(c *Config) { c.LLM.Provider = "bard" }, core.ErrConfigInvalid},
		{"negative notify top_n", func(c *Config) { c.Notify.TopN = -1 }, core.ErrConfigInvalid},
		{"telegram without chat", func(c *Config) { c.Notify.Telegram.BotToken = "t" }, core.ErrConfigMissing},
		{"email without recipients", func(c *Config) {
			c.Notify.Email.Host = "smtp.example.com"
			c.Notify.Email.From = "premia@example.com"
		}, core.ErrConfigMissing},
		{"notify digest without llm", func(c *Config) { c.Notify.Digest = true }, core.ErrConfigMissing},
		{"webhook only", func(c *Config) { c.Notify.Webhook.URL = "http://example.com/hook" }, nil},
		{"chain fallback same as chain", func(c *Config) { c.Providers.ChainFallback = "yahoo" }, core.ErrConfigInvalid},
		{"chain fallback", func(c *Config) { c.Providers.ChainFallback = "static" }, nil},
		{"ivr min above 100", func(c *Config) { c.Recommend.IVRMin = 120 }, core.ErrConfigInvalid},
		{"inverted delta band", func(c *Config) { c.Recommend.DeltaMin, c.Recommend.DeltaMax = 0.3, 0.2 }, core.ErrConfigInvalid},
		{"negative earnings buffer", func(c *Config) { c.Recommend.EarningsBufferDays = -1 }, core.ErrConfigInvalid},
		{"bad recommend ignored when disabled", func(c *Config) {
			c.Recommend.Enabled = false
			c.Recommend.IVRMin = 120
		}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestScreenRequest(t *testing.T) {
	cfg := Defaults()
	cfg.Screen.Universe = []string{"AAPL"}
	cfg.Screen.OptionType = "csp"
	cfg.Screen.MaxPerUnderlying = 3
	cfg.Screen.Expirations.Mode = "LIST"
	cfg.Screen.Expirations.Dates = []string{"2026-11-20", "2026-12-18"}
	cfg.Screen.Expirations.From = "2026-11-01"
	minOI := int64(100)
	cfg.Filters.MinOpenInterest = &minOI
	cfg.Filters.OTMOnly = true

	req, err := cfg.ScreenRequest()
	if err != nil {
		t.Fatalf("ScreenRequest() error = %v", err)
	}

	if req.OptionType != core.OptionPut {
		t.Errorf("expected put, got %s", req.OptionType)
	}
	if req.Expirations.Mode != screener.ModeList {
		t.Errorf("expected list mode, got %s", req.Expirations.Mode)
	}
	if len(req.Expirations.Dates) != 2 || !req.Expirations.Dates[0].Equal(time.Date(2026, 11, 20, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected dates %v", req.Expirations.Dates)
	}
	if req.Expirations.From == nil || req.Expirations.To != nil {
		t.Errorf("expected from set and to unset, got %v / %v", req.Expirations.From, req.Expirations.To)
	}
	if req.Filters.MinOpenInterest == nil || *req.Filters.MinOpenInterest != 100 || !req.Filters.OTMOnly {
		t.Errorf("filters not carried over: %+v", req.Filters)
	}
	if req.MaxPerUnderlying != 3 || req.MaxResults != 25 {
		t.Errorf("unexpected limits %d / %d", req.MaxPerUnderlying, req.MaxResults)
	}
	if req.Expirations.Buckets != screener.DefaultBuckets() {
		t.Errorf("unexpected buckets %+v", req.Expirations.Buckets)
	}
}

func TestScreenRequest_Errors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
	}{
		{"bad option type", func(c *Config) { c.Screen.OptionType = "x" }},
		{"bad list date", func(c *Config) { c.Screen.Expirations.Dates = []string{"11/20/2026"} }},
		{"bad to date", func(c *Config) { c.Screen.Expirations.To = "soon" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(cfg)
			if _, err := cfg.ScreenRequest(); !errors.Is(err, core.ErrConfigInvalid) {
				t.Errorf("expected CONFIG_INVALID, got %v", err)
			}
		})
	}
}

func TestScoringConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Strategy.YieldWeight = 0.7
	cfg.Strategy.TrendWeight = 0.1
	cfg.Strategy.EarningsPenalty = 0.3

	sc := cfg.ScoringConfig()
	if sc.YieldWeight != 0.7 || sc.TrendWeight != 0.1 || sc.EarningsPenalty != 0.3 {
		t.Errorf("unexpected scoring config %+v", sc)
	}
	if sc.LiquidityWeight != 0.15 {
		t.Errorf("expected default liquidity weight, got %f", sc.LiquidityWeight)
	}
}

func TestRecommendConfig(t *testing.T) {
	cfg := Defaults()
	rc := cfg.RecommendConfig()
	if rc.IVRMin != 30 || rc.EarningsBufferDays != 7 || !rc.UseSupportFilter || rc.ShortTermMaxDTE != 16 {
		t.Errorf("unexpected defaults %+v", rc)
	}
	if rc.MinSalePrices != nil {
		t.Errorf("expected no min sale prices, got %v", rc.MinSalePrices)
	}

	cfg.Recommend.MinSalePrices = map[string]float64{" msft ": 420}
	if got := cfg.RecommendConfig().MinSalePrices; got["MSFT"] != 420 {
		t.Errorf("expected normalized MSFT key, got %v", got)
	}
}

func TestMetricOptions(t *testing.T) {
	cfg := Defaults()
	opts, err := cfg.MetricOptions()
	if err != nil {
		t.Fatalf("MetricOptions() error = %v", err)
	}
	if opts.PremiumBasis != metric.BasisMid || opts.RiskFreeRate != nil {
		t.Errorf("unexpected defaults %+v", opts)
	}

	rate := 0.045
	cfg.Strategy.PremiumBasis = "bid"
	cfg.Strategy.RiskFreeRate = &rate
	opts, err = cfg.MetricOptions()
	if err != nil {
		t.Fatalf("MetricOptions() error = %v", err)
	}
	if opts.PremiumBasis != metric.BasisBid || opts.RiskFreeRate == nil || *opts.RiskFreeRate != rate {
		t.Errorf("unexpected options %+v", opts)
	}

	cfg.Strategy.PremiumBasis = "vwap"
	if _, err := cfg.MetricOptions(); !errors.Is(err, core.ErrConfigInvalid) {
		t.Errorf("expected CONFIG_INVALID, got %v", err)
	}
}
