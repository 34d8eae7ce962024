package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

var envKeys = []string{
	"TELEGRAM_BOT_TOKEN", "DATABASE_URL", "REDIS_URL", "HTTP_PORT", "LOG_LEVEL", "LOG_FORMAT",
	"MCP_TRANSPORT", "MCP_HTTP_ENABLED", "MCP_HTTP_BIND", "MCP_HTTP_PORT", "MCP_AUTH_TOKEN",
	"MCP_REQUEST_TIMEOUT_SECS", "MCP_RATE_LIMIT_PER_MIN", "OPENAI_API_KEY", "OPENAI_MODEL",
	"BINANCE_API_KEY", "BINANCE_SECRET_KEY", "BINANCE_TESTNET", "PAPER_TRADING", "WATCHLIST",
	"KLINE_INTERVAL", "HISTORY_LIMIT", "TICK_INTERVAL_MINUTES", "EOD_CUTOFF", "EOD_WINDOW_MINUTES",
	"TIMEZONE", "CONFIDENCE_THRESHOLD", "DAILY_TRADE_CAP", "MAX_CONCURRENT_BOTS", "TICK_TIMEOUT_SECS",
	"RETRY_MAX_ATTEMPTS", "RETRY_INITIAL_DELAY_MS", "CACHE_MAX_ENTRIES", "MIN_TRADE_VALUE", "CONFIG_FILE",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.RedisURL != "localhost:6379" {
		t.Fatalf("expected default redis url, got %s", cfg.RedisURL)
	}
	if cfg.MCPTransport != "stdio" || cfg.MCPHTTPBind != "127.0.0.1" || cfg.MCPHTTPPort != 8090 {
		t.Fatalf("unexpected MCP defaults: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.Watchlist, []string{"BTCUSDT", "ETHUSDT"}) {
		t.Fatalf("unexpected watchlist: %+v", cfg.Watchlist)
	}
	if cfg.TickInterval() != 5*time.Minute || cfg.TickTimeout() != 2*time.Minute {
		t.Fatalf("unexpected tick defaults: %v %v", cfg.TickInterval(), cfg.TickTimeout())
	}
	if cfg.ConfidenceThreshold != 60 || cfg.DailyTradeCap != 10 || cfg.MaxConcurrentBots != 4 {
		t.Fatalf("unexpected engine defaults: %+v", cfg)
	}
	if cfg.RetryMaxAttempts != 3 || cfg.RetryInitialDelay() != 500*time.Millisecond {
		t.Fatalf("unexpected retry defaults: %+v", cfg)
	}
	if cfg.Cutoff() != 23*time.Hour+45*time.Minute || cfg.Location() != time.UTC {
		t.Fatalf("unexpected eod defaults: %v %v", cfg.Cutoff(), cfg.Location())
	}
	if !cfg.PaperTrading {
		t.Fatal("expected paper trading by default")
	}
}

func TestLoadWithEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("REDIS_URL", "redis:6379")
	t.Setenv("WATCHLIST", "btcusdt, solusdt,BTCUSDT,,")
	t.Setenv("TICK_INTERVAL_MINUTES", "15")
	t.Setenv("EOD_CUTOFF", "15:30")
	t.Setenv("TIMEZONE", "America/New_York")
	t.Setenv("DAILY_TRADE_CAP", "3")
	t.Setenv("CONFIDENCE_THRESHOLD", "72.5")
	t.Setenv("MCP_TRANSPORT", "http")
	t.Setenv("LOG_FORMAT", "console")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.RedisURL != "redis:6379" {
		t.Fatalf("unexpected redis url %s", cfg.RedisURL)
	}
	if !reflect.DeepEqual(cfg.Watchlist, []string{"BTCUSDT", "SOLUSDT"}) {
		t.Fatalf("unexpected watchlist: %+v", cfg.Watchlist)
	}
	if cfg.TickInterval() != 15*time.Minute || cfg.DailyTradeCap != 3 || cfg.ConfidenceThreshold != 72.5 {
		t.Fatalf("unexpected values: %+v", cfg)
	}
	if cfg.Cutoff() != 15*time.Hour+30*time.Minute {
		t.Fatalf("unexpected cutoff %v", cfg.Cutoff())
	}
	if cfg.Location().String() != "America/New_York" {
		t.Fatalf("unexpected location %v", cfg.Location())
	}
	if cfg.MCPTransport != "http" || cfg.LogFormat != "console" {
		t.Fatalf("unexpected transport/log format: %+v", cfg)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"CONFIDENCE_THRESHOLD": "40",
		"EOD_CUTOFF":           "25:99",
		"TIMEZONE":             "Mars/Olympus",
		"MCP_TRANSPORT":        "grpc",
		"DAILY_TRADE_CAP":      "0",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", key, value)
			}
		})
	}
}

func TestLoadLiveTradingWithoutKeysFallsBackToPaper(t *testing.T) {
	clearEnv(t)
	t.Setenv("PAPER_TRADING", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.PaperTrading {
		t.Fatal("expected paper trading when credentials are missing")
	}
}

func TestLoadConfigFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "autotrader.yaml")
	if err := os.WriteFile(path, []byte("watchlist: ADAUSDT\ndaily_trade_cap: 4\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(cfg.Watchlist, []string{"ADAUSDT"}) || cfg.DailyTradeCap != 4 {
		t.Fatalf("expected file values to apply: %+v", cfg)
	}
}
