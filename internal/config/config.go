package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	TelegramBotToken string
	DatabaseURL      string
	RedisURL         string `validate:"required"`
	HTTPPort         int    `validate:"min=1,max=65535"`

	LogLevel     string `validate:"oneof=trace debug info warn error"`
	LogFormat    string `validate:"oneof=json console"`
	OTLPEndpoint string

	MCPTransport          string `validate:"oneof=stdio http"`
	MCPHTTPEnabled        bool
	MCPHTTPBind           string
	MCPHTTPPort           int `validate:"min=1,max=65535"`
	MCPAuthToken          string
	MCPRequestTimeoutSecs int `validate:"min=1"`
	MCPRateLimitPerMin    int `validate:"min=1"`

	OpenAIAPIKey  string
	OpenAIModel   string `validate:"required"`
	OpenAIBaseURL string

	BinanceAPIKey    string
	BinanceSecretKey string
	BinanceTestnet   bool
	PaperTrading     bool
	NewsAPIKey       string

	Watchlist     []string `validate:"min=1,dive,required"`
	KlineInterval string   `validate:"oneof=1m 5m 15m 30m 1h 4h 1d"`
	HistoryLimit  int      `validate:"min=50,max=1000"`

	TickIntervalMinutes int    `validate:"min=1"`
	EODCutoff           string `validate:"hhmm"`
	EODWindowMinutes    int    `validate:"min=1,max=180"`
	Timezone            string `validate:"required"`
	SchedulerAutostart  bool

	ConfidenceThreshold float64 `validate:"min=60,max=100"`
	DailyTradeCap       int     `validate:"min=1"`
	MaxConcurrentBots   int     `validate:"min=1,max=64"`
	TickTimeoutSecs     int     `validate:"min=1"`
	RetryMaxAttempts    int     `validate:"min=1,max=10"`
	RetryInitialDelayMs int     `validate:"min=1"`
	CacheMaxEntries     int     `validate:"min=10"`
	MinTradeValue       float64 `validate:"gt=0"`
}

var defaults = map[string]any{
	"REDIS_URL":                "localhost:6379",
	"HTTP_PORT":                8080,
	"LOG_LEVEL":                "info",
	"LOG_FORMAT":               "json",
	"MCP_TRANSPORT":            "stdio",
	"MCP_HTTP_ENABLED":         false,
	"MCP_HTTP_BIND":            "127.0.0.1",
	"MCP_HTTP_PORT":            8090,
	"MCP_REQUEST_TIMEOUT_SECS": 5,
	"MCP_RATE_LIMIT_PER_MIN":   60,
	"OPENAI_MODEL":             "gpt-4o-mini",
	"BINANCE_TESTNET":          false,
	"PAPER_TRADING":            true,
	"WATCHLIST":                "BTCUSDT,ETHUSDT",
	"KLINE_INTERVAL":           "1h",
	"HISTORY_LIMIT":            100,
	"TICK_INTERVAL_MINUTES":    5,
	"EOD_CUTOFF":               "23:45",
	"EOD_WINDOW_MINUTES":       15,
	"TIMEZONE":                 "UTC",
	"SCHEDULER_AUTOSTART":      true,
	"CONFIDENCE_THRESHOLD":     60.0,
	"DAILY_TRADE_CAP":          10,
	"MAX_CONCURRENT_BOTS":      4,
	"TICK_TIMEOUT_SECS":        120,
	"RETRY_MAX_ATTEMPTS":       3,
	"RETRY_INITIAL_DELAY_MS":   500,
	"CACHE_MAX_ENTRIES":        1000,
	"MIN_TRADE_VALUE":          10.0,
}

// Load reads configuration from the environment (after an optional .env file)
// and an optional YAML file named by CONFIG_FILE, then validates it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if path := strings.TrimSpace(v.GetString("CONFIG_FILE")); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		TelegramBotToken: v.GetString("TELEGRAM_BOT_TOKEN"),
		DatabaseURL:      v.GetString("DATABASE_URL"),
		RedisURL:         strings.TrimSpace(v.GetString("REDIS_URL")),
		HTTPPort:         v.GetInt("HTTP_PORT"),

		LogLevel:     strings.ToLower(strings.TrimSpace(v.GetString("LOG_LEVEL"))),
		LogFormat:    strings.ToLower(strings.TrimSpace(v.GetString("LOG_FORMAT"))),
		OTLPEndpoint: strings.TrimSpace(v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT")),

		MCPTransport:          strings.ToLower(strings.TrimSpace(v.GetString("MCP_TRANSPORT"))),
		MCPHTTPEnabled:        v.GetBool("MCP_HTTP_ENABLED"),
		MCPHTTPBind:           strings.TrimSpace(v.GetString("MCP_HTTP_BIND")),
		MCPHTTPPort:           v.GetInt("MCP_HTTP_PORT"),
		MCPAuthToken:          v.GetString("MCP_AUTH_TOKEN"),
		MCPRequestTimeoutSecs: v.GetInt("MCP_REQUEST_TIMEOUT_SECS"),
		MCPRateLimitPerMin:    v.GetInt("MCP_RATE_LIMIT_PER_MIN"),

		OpenAIAPIKey:  v.GetString("OPENAI_API_KEY"),
		OpenAIModel:   strings.TrimSpace(v.GetString("OPENAI_MODEL")),
		OpenAIBaseURL: strings.TrimSpace(v.GetString("OPENAI_BASE_URL")),

		BinanceAPIKey:    v.GetString("BINANCE_API_KEY"),
		BinanceSecretKey: v.GetString("BINANCE_SECRET_KEY"),
		BinanceTestnet:   v.GetBool("BINANCE_TESTNET"),
		PaperTrading:     v.GetBool("PAPER_TRADING"),
		NewsAPIKey:       v.GetString("NEWS_API_KEY"),

		Watchlist:     parseSymbols(v.GetString("WATCHLIST")),
		KlineInterval: strings.TrimSpace(v.GetString("KLINE_INTERVAL")),
		HistoryLimit:  v.GetInt("HISTORY_LIMIT"),

		TickIntervalMinutes: v.GetInt("TICK_INTERVAL_MINUTES"),
		EODCutoff:           strings.TrimSpace(v.GetString("EOD_CUTOFF")),
		EODWindowMinutes:    v.GetInt("EOD_WINDOW_MINUTES"),
		Timezone:            strings.TrimSpace(v.GetString("TIMEZONE")),
		SchedulerAutostart:  v.GetBool("SCHEDULER_AUTOSTART"),

		ConfidenceThreshold: v.GetFloat64("CONFIDENCE_THRESHOLD"),
		DailyTradeCap:       v.GetInt("DAILY_TRADE_CAP"),
		MaxConcurrentBots:   v.GetInt("MAX_CONCURRENT_BOTS"),
		TickTimeoutSecs:     v.GetInt("TICK_TIMEOUT_SECS"),
		RetryMaxAttempts:    v.GetInt("RETRY_MAX_ATTEMPTS"),
		RetryInitialDelayMs: v.GetInt("RETRY_INITIAL_DELAY_MS"),
		CacheMaxEntries:     v.GetInt("CACHE_MAX_ENTRIES"),
		MinTradeValue:       v.GetFloat64("MIN_TRADE_VALUE"),
	}

	if err := newValidator().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", cfg.Timezone, err)
	}

	if cfg.TelegramBotToken == "" {
		log.Warn().Msg("TELEGRAM_BOT_TOKEN not set, alerts disabled")
	}
	if cfg.DatabaseURL == "" {
		log.Warn().Msg("DATABASE_URL not set")
	}
	if cfg.OpenAIAPIKey == "" {
		log.Warn().Msg("OPENAI_API_KEY not set, decisions use the technical fallback only")
	}
	if !cfg.PaperTrading && (cfg.BinanceAPIKey == "" || cfg.BinanceSecretKey == "") {
		log.Warn().Msg("live trading requested without Binance credentials, falling back to paper trading")
		cfg.PaperTrading = true
	}

	return cfg, nil
}

// Location returns the timezone used for the end-of-day cutoff and daily resets.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Cutoff returns the end-of-day cutoff as an offset from local midnight.
func (c *Config) Cutoff() time.Duration {
	t, err := time.Parse("15:04", c.EODCutoff)
	if err != nil {
		return 0
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute
}

func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMinutes) * time.Minute
}

func (c *Config) TickTimeout() time.Duration {
	return time.Duration(c.TickTimeoutSecs) * time.Second
}

func (c *Config) RetryInitialDelay() time.Duration {
	return time.Duration(c.RetryInitialDelayMs) * time.Millisecond
}

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		_, err := time.Parse("15:04", fl.Field().String())
		return err == nil
	})
	return v
}

func parseSymbols(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		symbol := strings.ToUpper(strings.TrimSpace(part))
		if symbol == "" {
			continue
		}
		if _, ok := seen[symbol]; ok {
			continue
		}
		seen[symbol] = struct{}{}
		out = append(out, symbol)
	}
	return out
}
