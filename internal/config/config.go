package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/newthinker/premia/internal/contract"
	"github.com/newthinker/premia/internal/core"
	"github.com/newthinker/premia/internal/metric"
	"github.com/newthinker/premia/internal/recommend"
	"github.com/newthinker/premia/internal/scoring"
	"github.com/newthinker/premia/internal/screener"
	"github.com/spf13/viper"
)

type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Screen    ScreenConfig    `mapstructure:"screen"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Yahoo     YahooConfig     `mapstructure:"yahoo"`
	Public    PublicConfig    `mapstructure:"public"`
	Static    StaticConfig    `mapstructure:"static"`
	Strategy  StrategyConfig  `mapstructure:"strategy"`
	Filters   FiltersConfig   `mapstructure:"filters"`
	Recommend RecommendConfig `mapstructure:"recommend"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Server    ServerConfig    `mapstructure:"server"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Notify    NotifyConfig    `mapstructure:"notify"`
}

type LogConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// ScreenConfig is the default screen request
type ScreenConfig struct {
	Universe         []string          `mapstructure:"universe"`
	OptionType       string            `mapstructure:"option_type"`
	Expirations      ExpirationsConfig `mapstructure:"expirations"`
	Concurrency      int               `mapstructure:"concurrency"`
	Timeout          time.Duration     `mapstructure:"timeout"`
	MaxResults       int               `mapstructure:"max_results"`
	MaxPerUnderlying int               `mapstructure:"max_per_underlying"`

	// Interval re-runs the default screen under serve; zero disables it
	Interval time.Duration `mapstructure:"interval"`
}

type ExpirationsConfig struct {
	Mode    string        `mapstructure:"mode"` // "buckets", "range" or "list"
	Dates   []string      `mapstructure:"dates"`
	MinDTE  *int          `mapstructure:"min_dte"`
	MaxDTE  *int          `mapstructure:"max_dte"`
	From    string        `mapstructure:"from"`
	To      string        `mapstructure:"to"`
	Buckets BucketsConfig `mapstructure:"buckets"`
}

type BucketsConfig struct {
	CurrentWeekMaxDTE int `mapstructure:"current_week_max_dte"`
	NextWeekMinDTE    int `mapstructure:"next_week_min_dte"`
	NextWeekMaxDTE    int `mapstructure:"next_week_max_dte"`
	MonthlyMinDTE     int `mapstructure:"monthly_min_dte"`
	MonthlyMaxDTE     int `mapstructure:"monthly_max_dte"`
}

// ProvidersConfig maps each data role to a registered provider name
type ProvidersConfig struct {
	Chain        string `mapstructure:"chain"`
	Market       string `mapstructure:"market"`
	Fundamentals string `mapstructure:"fundamentals"`

	// ChainFallback serves chain requests when the chain provider is down
	ChainFallback string `mapstructure:"chain_fallback"`
}

type YahooConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	HistoryRange string        `mapstructure:"history_range"`
	RateLimit    float64       `mapstructure:"rate_limit"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type PublicConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	Secret        string        `mapstructure:"secret"`
	AccountID     string        `mapstructure:"account_id"`
	TokenValidity time.Duration `mapstructure:"token_validity"`
	FetchGreeks   bool          `mapstructure:"fetch_greeks"`
	RateLimit     float64       `mapstructure:"rate_limit"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

type StaticConfig struct {
	Fixture string `mapstructure:"fixture"`
}

// StrategyConfig holds scoring weights and metric options
type StrategyConfig struct {
	YieldWeight        float64  `mapstructure:"yield_weight"`
	LiquidityWeight    float64  `mapstructure:"liquidity_weight"`
	SafetyWeight       float64  `mapstructure:"safety_weight"`
	TrendWeight        float64  `mapstructure:"trend_weight"`
	TargetYield        float64  `mapstructure:"target_yield"`
	EarningsPenalty    float64  `mapstructure:"earnings_penalty"`
	TargetOpenInterest float64  `mapstructure:"target_open_interest"`
	TargetVolume       float64  `mapstructure:"target_volume"`
	MaxSpreadPct       float64  `mapstructure:"max_spread_pct"`
	TargetOTMPct       float64  `mapstructure:"target_otm_pct"`
	MaxAbsDelta        float64  `mapstructure:"max_abs_delta"`
	PremiumBasis       string   `mapstructure:"premium_basis"`
	RiskFreeRate       *float64 `mapstructure:"risk_free_rate"`
}

type FiltersConfig struct {
	MinDTE             *int     `mapstructure:"min_dte"`
	MaxDTE             *int     `mapstructure:"max_dte"`
	MinOpenInterest    *int64   `mapstructure:"min_open_interest"`
	MinVolume          *int64   `mapstructure:"min_volume"`
	MaxSpreadPct       *float64 `mapstructure:"max_spread_pct"`
	MinAnnualizedYield *float64 `mapstructure:"min_annualized_yield"`
	MinOTMPct          *float64 `mapstructure:"min_otm_pct"`
	MaxOTMPct          *float64 `mapstructure:"max_otm_pct"`
	OTMOnly            bool     `mapstructure:"otm_only"`
	MinAbsDelta        *float64 `mapstructure:"min_abs_delta"`
	MaxAbsDelta        *float64 `mapstructure:"max_abs_delta"`
}

// RecommendConfig holds the cash-secured put and covered call thresholds.
// IVRMin is a percentage.
type RecommendConfig struct {
	Enabled             bool               `mapstructure:"enabled"`
	MaxRecommendations  int                `mapstructure:"max_recommendations"`
	IVRMin              float64            `mapstructure:"ivr_min"`
	EarningsBufferDays  int                `mapstructure:"earnings_buffer_days"`
	DeltaMin            float64            `mapstructure:"delta_min"`
	DeltaMax            float64            `mapstructure:"delta_max"`
	UseSupportFilter    bool               `mapstructure:"use_support_filter"`
	SupportPctBuffer    float64            `mapstructure:"support_pct_buffer"`
	ResistancePctBuffer float64            `mapstructure:"resistance_pct_buffer"`
	ShortTermMaxDTE     int                `mapstructure:"short_term_max_dte"`
	MinSalePrices       map[string]float64 `mapstructure:"min_sale_prices"`
}

// CacheConfig enables the provider response cache
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	ChainTTL        time.Duration `mapstructure:"chain_ttl"`
	MarketTTL       time.Duration `mapstructure:"market_ttl"`
	FundamentalsTTL time.Duration `mapstructure:"fundamentals_ttl"`
	Store           StoreConfig   `mapstructure:"store"`
}

type StoreConfig struct {
	Type string   `mapstructure:"type"` // "localfs" or "s3"
	Path string   `mapstructure:"path"` // For localfs
	S3   S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

type ServerConfig struct {
	Host   string `mapstructure:"host"`
	Port   int    `mapstructure:"port"`
	APIKey string `mapstructure:"api_key"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type LLMConfig struct {
	Provider   string       `mapstructure:"provider"`
	DigestTopN int          `mapstructure:"digest_top_n"`
	Claude     ClaudeConfig `mapstructure:"claude"`
	OpenAI     OpenAIConfig `mapstructure:"openai"`
	Ollama     OllamaConfig `mapstructure:"ollama"`
}

type ClaudeConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

type OllamaConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Model    string `mapstructure:"model"`
}

// NotifyConfig selects where interval runs are reported. Each channel is
// enabled by its required setting.
type NotifyConfig struct {
	TopN           int            `mapstructure:"top_n"`
	OnlyWhenRanked bool           `mapstructure:"only_when_ranked"`
	Digest         bool           `mapstructure:"digest"`
	Webhook        WebhookConfig  `mapstructure:"webhook"`
	Telegram       TelegramConfig `mapstructure:"telegram"`
	Email          EmailConfig    `mapstructure:"email"`
}

type WebhookConfig struct {
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`
}

type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	BaseURL  string `mapstructure:"base_url"`
}

type EmailConfig struct {
	Host     string   `mapstructure:"host"`
	Port     int      `mapstructure:"port"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
}

// Load reads configuration from file on top of Defaults
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	sc := scoring.DefaultConfig()
	buckets := screener.DefaultBuckets()
	rc := recommend.DefaultConfig()
	return &Config{
		Log: LogConfig{
			Level: "info",
		},
		Screen: ScreenConfig{
			OptionType: string(core.OptionPut),
			Expirations: ExpirationsConfig{
				Mode: string(screener.ModeBuckets),
				Buckets: BucketsConfig{
					CurrentWeekMaxDTE: buckets.CurrentWeekMaxDTE,
					NextWeekMinDTE:    buckets.NextWeekMinDTE,
					NextWeekMaxDTE:    buckets.NextWeekMaxDTE,
					MonthlyMinDTE:     buckets.MonthlyMinDTE,
					MonthlyMaxDTE:     buckets.MonthlyMaxDTE,
				},
			},
			Concurrency: screener.DefaultConcurrency,
			Timeout:     screener.DefaultTimeout,
			MaxResults:  25,
		},
		Providers: ProvidersConfig{
			Chain:        "yahoo",
			Market:       "yahoo",
			Fundamentals: "yahoo",
		},
		Yahoo: YahooConfig{
			HistoryRange: "6mo",
			RateLimit:    5,
			Timeout:      15 * time.Second,
		},
		Public: PublicConfig{
			TokenValidity: 60 * time.Minute,
			RateLimit:     5,
			Timeout:       15 * time.Second,
		},
		Strategy: StrategyConfig{
			YieldWeight:        sc.YieldWeight,
			LiquidityWeight:    sc.LiquidityWeight,
			SafetyWeight:       sc.SafetyWeight,
			TrendWeight:        sc.TrendWeight,
			TargetYield:        sc.TargetYield,
			EarningsPenalty:    sc.EarningsPenalty,
			TargetOpenInterest: sc.TargetOpenInterest,
			TargetVolume:       sc.TargetVolume,
			MaxSpreadPct:       sc.MaxSpreadPct,
			TargetOTMPct:       sc.TargetOTMPct,
			MaxAbsDelta:        sc.MaxAbsDelta,
			PremiumBasis:       string(metric.BasisMid),
		},
		Recommend: RecommendConfig{
			Enabled:             true,
			MaxRecommendations:  rc.MaxRecommendations,
			IVRMin:              rc.IVRMin,
			EarningsBufferDays:  rc.EarningsBufferDays,
			DeltaMin:            rc.DeltaMin,
			DeltaMax:            rc.DeltaMax,
			UseSupportFilter:    rc.UseSupportFilter,
			SupportPctBuffer:    rc.SupportPctBuffer,
			ResistancePctBuffer: rc.ResistancePctBuffer,
			ShortTermMaxDTE:     rc.ShortTermMaxDTE,
		},
		Cache: CacheConfig{
			ChainTTL:        5 * time.Minute,
			MarketTTL:       time.Hour,
			FundamentalsTTL: 12 * time.Hour,
			Store: StoreConfig{
				Type: "localfs",
				Path: ".premia/cache",
			},
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		LLM: LLMConfig{
			DigestTopN: 5,
		},
		Notify: NotifyConfig{
			TopN: 5,
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}

	if c.Screen.OptionType != "" {
		if _, err := core.ParseOptionType(c.Screen.OptionType); err != nil {
			return core.WrapError(core.ErrConfigInvalid, err)
		}
	}
	if c.Screen.Concurrency < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("concurrency cannot be negative, got %d", c.Screen.Concurrency))
	}
	if c.Screen.Interval < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("interval cannot be negative, got %v", c.Screen.Interval))
	}
	if c.Screen.MaxResults < 0 || c.Screen.MaxPerUnderlying < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("max_results and max_per_underlying cannot be negative"))
	}

	if c.Providers.Chain == "" || c.Providers.Market == "" || c.Providers.Fundamentals == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("providers.chain, providers.market and providers.fundamentals are required"))
	}

	if c.Providers.ChainFallback != "" && c.Providers.ChainFallback == c.Providers.Chain {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("providers.chain_fallback must differ from providers.chain"))
	}

	// Strategy validation
	s := c.Strategy
	if s.YieldWeight < 0 || s.LiquidityWeight < 0 || s.SafetyWeight < 0 || s.TrendWeight < 0 {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("strategy weights cannot be negative"))
	}
	if s.YieldWeight+s.LiquidityWeight+s.SafetyWeight+s.TrendWeight == 0 {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("at least one strategy weight must be positive"))
	}
	if s.EarningsPenalty < 0 || s.EarningsPenalty > 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("earnings_penalty must be between 0 and 1, got %f", s.EarningsPenalty))
	}
	if _, ok := metric.ParsePremiumBasis(s.PremiumBasis); !ok {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("premium_basis must be mid, bid or ask, got %q", s.PremiumBasis))
	}

	// Recommend validation
	r := c.Recommend
	if r.Enabled {
		if r.IVRMin < 0 || r.IVRMin > 100 {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("recommend.ivr_min must be between 0 and 100, got %f", r.IVRMin))
		}
		if r.DeltaMin < 0 || r.DeltaMax > 1 || r.DeltaMin > r.DeltaMax {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("recommend delta band %.2f-%.2f is invalid", r.DeltaMin, r.DeltaMax))
		}
		if r.EarningsBufferDays < 0 || r.MaxRecommendations < 0 || r.ShortTermMaxDTE < 0 {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("recommend limits cannot be negative"))
		}
	}

	// Cache validation
	if c.Cache.Enabled {
		switch c.Cache.Store.Type {
		case "", "localfs":
			if c.Cache.Store.Path == "" {
				return core.WrapError(core.ErrConfigMissing, fmt.Errorf("cache.store.path required for localfs"))
			}
		case "s3":
			if c.Cache.Store.S3.Bucket == "" {
				return core.WrapError(core.ErrConfigMissing, fmt.Errorf("cache.store.s3.bucket required for s3"))
			}
		default:
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("unknown cache store type %q", c.Cache.Store.Type))
		}
	}

	// LLM validation - if provider set, check config exists
	switch c.LLM.Provider {
	case "":
	case "claude":
		if c.LLM.Claude.APIKey == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("claude api_key required when provider is claude"))
		}
	case "openai":
		if c.LLM.OpenAI.APIKey == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("openai api_key required when provider is openai"))
		}
	case "ollama":
	default:
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown llm provider %q", c.LLM.Provider))
	}

	// Notify validation
	n := c.Notify
	if n.TopN < 0 {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("notify.top_n cannot be negative"))
	}
	if (n.Telegram.BotToken == "") != (n.Telegram.ChatID == "") {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("notify.telegram needs both bot_token and chat_id"))
	}
	if n.Email.Host != "" && (n.Email.From == "" || len(n.Email.To) == 0) {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("notify.email needs from and to"))
	}
	if n.Digest && c.LLM.Provider == "" {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("notify.digest requires llm.provider"))
	}

	return nil
}

// ScreenRequest converts the screen and filters sections into a request
func (c *Config) ScreenRequest() (screener.Request, error) {
	optType, err := core.ParseOptionType(c.Screen.OptionType)
	if err != nil {
		return screener.Request{}, core.WrapError(core.ErrConfigInvalid, err)
	}

	e := c.Screen.Expirations
	exp := screener.ExpirationFilter{
		Mode:   screener.ExpirationMode(strings.ToLower(e.Mode)),
		MinDTE: e.MinDTE,
		MaxDTE: e.MaxDTE,
		Buckets: screener.BucketConfig{
			CurrentWeekMaxDTE: e.Buckets.CurrentWeekMaxDTE,
			NextWeekMinDTE:    e.Buckets.NextWeekMinDTE,
			NextWeekMaxDTE:    e.Buckets.NextWeekMaxDTE,
			MonthlyMinDTE:     e.Buckets.MonthlyMinDTE,
			MonthlyMaxDTE:     e.Buckets.MonthlyMaxDTE,
		},
	}
	for _, s := range e.Dates {
		d, err := core.ParseDate(s)
		if err != nil {
			return screener.Request{}, core.WrapError(core.ErrConfigInvalid, err)
		}
		exp.Dates = append(exp.Dates, d)
	}
	if exp.From, err = optionalDate(e.From); err != nil {
		return screener.Request{}, err
	}
	if exp.To, err = optionalDate(e.To); err != nil {
		return screener.Request{}, err
	}

	f := c.Filters
	return screener.Request{
		Universe:    append([]string(nil), c.Screen.Universe...),
		OptionType:  optType,
		Expirations: exp,
		Filters: screener.Filters{
			MinDTE:             f.MinDTE,
			MaxDTE:             f.MaxDTE,
			MinOpenInterest:    f.MinOpenInterest,
			MinVolume:          f.MinVolume,
			MaxSpreadPct:       f.MaxSpreadPct,
			MinAnnualizedYield: f.MinAnnualizedYield,
			MinOTMPct:          f.MinOTMPct,
			MaxOTMPct:          f.MaxOTMPct,
			OTMOnly:            f.OTMOnly,
			MinAbsDelta:        f.MinAbsDelta,
			MaxAbsDelta:        f.MaxAbsDelta,
		},
		MaxResults:       c.Screen.MaxResults,
		MaxPerUnderlying: c.Screen.MaxPerUnderlying,
		Concurrency:      c.Screen.Concurrency,
		Timeout:          c.Screen.Timeout,
	}, nil
}

// ScoringConfig converts the strategy section into scorer weights
func (c *Config) ScoringConfig() scoring.Config {
	s := c.Strategy
	return scoring.Config{
		YieldWeight:        s.YieldWeight,
		LiquidityWeight:    s.LiquidityWeight,
		SafetyWeight:       s.SafetyWeight,
		TrendWeight:        s.TrendWeight,
		TargetYield:        s.TargetYield,
		EarningsPenalty:    s.EarningsPenalty,
		TargetOpenInterest: s.TargetOpenInterest,
		TargetVolume:       s.TargetVolume,
		MaxSpreadPct:       s.MaxSpreadPct,
		TargetOTMPct:       s.TargetOTMPct,
		MaxAbsDelta:        s.MaxAbsDelta,
	}
}

// RecommendConfig converts the recommend section into engine thresholds.
// Min sale price symbols are upper-cased to match the normalized universe.
func (c *Config) RecommendConfig() recommend.Config {
	r := c.Recommend
	var prices map[string]float64
	if len(r.MinSalePrices) > 0 {
		prices = make(map[string]float64, len(r.MinSalePrices))
		for sym, p := range r.MinSalePrices {
			prices[strings.ToUpper(strings.TrimSpace(sym))] = p
		}
	}
	return recommend.Config{
		MaxRecommendations:  r.MaxRecommendations,
		IVRMin:              r.IVRMin,
		EarningsBufferDays:  r.EarningsBufferDays,
		DeltaMin:            r.DeltaMin,
		DeltaMax:            r.DeltaMax,
		UseSupportFilter:    r.UseSupportFilter,
		SupportPctBuffer:    r.SupportPctBuffer,
		ResistancePctBuffer: r.ResistancePctBuffer,
		ShortTermMaxDTE:     r.ShortTermMaxDTE,
		MinSalePrices:       prices,
	}
}

// MetricOptions converts the premium basis and risk-free rate
func (c *Config) MetricOptions() (contract.MetricOptions, error) {
	basis, ok := metric.ParsePremiumBasis(c.Strategy.PremiumBasis)
	if !ok {
		return contract.MetricOptions{}, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown premium basis %q", c.Strategy.PremiumBasis))
	}
	return contract.MetricOptions{
		PremiumBasis: basis,
		RiskFreeRate: c.Strategy.RiskFreeRate,
	}, nil
}

func optionalDate(s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	d, err := core.ParseDate(s)
	if err != nil {
		return nil, core.WrapError(core.ErrConfigInvalid, err)
	}
	return &d, nil
}
