package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

var configKeys = []string{
	ConfigFileEnv,
	"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "DATABASE_URL", "REDIS_URL", "STATS_SQLITE_PATH",
	"OPENAI_API_KEY", "OPENAI_MODEL", "CRYPTOPANIC_API_KEY", "MARKET_SOURCE",
	"BINANCE_HOSTS", "YAHOO_HOSTS", "YAHOO_WATCHLIST", "QUOTE_ASSET", "TIMEFRAMES",
	"PRIMARY_TIMEFRAME", "TOP_MOVERS_LIMIT", "MOVERS_CACHE_SECS", "HTTP_TIMEOUT_SECS",
	"REFRESH_CRON", "WATCH_SYMBOLS", "CHART_IMAGES", "HTTP_PORT", "LOG_LEVEL", "LOG_FORMAT",
	"MCP_TRANSPORT", "MCP_HTTP_BIND", "MCP_HTTP_PORT", "MCP_AUTH_TOKEN",
	"MCP_REQUEST_TIMEOUT_SECS", "MCP_RATE_LIMIT_PER_MIN",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MarketSource != "binance" || cfg.QuoteAsset != "USDT" {
		t.Fatalf("unexpected source defaults: %s %s", cfg.MarketSource, cfg.QuoteAsset)
	}
	if !reflect.DeepEqual(cfg.Timeframes, []string{"15m", "1h", "4h"}) || cfg.PrimaryTimeframe != "1h" {
		t.Fatalf("unexpected timeframe defaults: %+v %s", cfg.Timeframes, cfg.PrimaryTimeframe)
	}
	if cfg.TopMoversLimit != 4 || cfg.MoversCacheSecs != 60 || cfg.HTTPTimeoutSecs != 10 {
		t.Fatalf("unexpected pipeline defaults: %+v", cfg)
	}
	if cfg.OpenAIModel != "gpt-4o-mini" || cfg.RefreshCron != "@every 3m" {
		t.Fatalf("unexpected model/cron defaults: %s %s", cfg.OpenAIModel, cfg.RefreshCron)
	}
	if cfg.MCPTransport != "stdio" || cfg.MCPHTTPBind != "127.0.0.1" || cfg.MCPHTTPPort != 8090 {
		t.Fatalf("unexpected MCP defaults: %s %s:%d", cfg.MCPTransport, cfg.MCPHTTPBind, cfg.MCPHTTPPort)
	}
	if cfg.HTTPPort != 8080 || cfg.LogLevel != "info" || cfg.LogFormat != "console" {
		t.Fatalf("unexpected server defaults: %+v", cfg)
	}
	if cfg.StatsSQLitePath != "data/stats.db" || cfg.ChartImages {
		t.Fatalf("unexpected storage defaults: %+v", cfg)
	}
}

func TestLoadWithEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("TELEGRAM_CHAT_ID", "-100123")
	t.Setenv("MARKET_SOURCE", "YAHOO")
	t.Setenv("YAHOO_HOSTS", "https://a.example, https://b.example")
	t.Setenv("YAHOO_WATCHLIST", "aapl, msft,AAPL")
	t.Setenv("TIMEFRAMES", "1h,1d,1h")
	t.Setenv("PRIMARY_TIMEFRAME", "1d")
	t.Setenv("TOP_MOVERS_LIMIT", "6")
	t.Setenv("WATCH_SYMBOLS", "btcusdt,ethusdt")
	t.Setenv("CHART_IMAGES", "true")
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("LOG_FORMAT", "JSON")
	t.Setenv("MCP_TRANSPORT", "http")
	t.Setenv("MCP_HTTP_PORT", "9999")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.TelegramBotToken != "token" || cfg.TelegramChatID != -100123 {
		t.Fatalf("unexpected telegram config: %s %d", cfg.TelegramBotToken, cfg.TelegramChatID)
	}
	if cfg.MarketSource != "yahoo" {
		t.Fatalf("expected lower-cased source, got %s", cfg.MarketSource)
	}
	if !reflect.DeepEqual(cfg.YahooHosts, []string{"https://a.example", "https://b.example"}) {
		t.Fatalf("unexpected hosts: %+v", cfg.YahooHosts)
	}
	if !reflect.DeepEqual(cfg.YahooWatchlist, []string{"AAPL", "MSFT"}) {
		t.Fatalf("unexpected watchlist: %+v", cfg.YahooWatchlist)
	}
	if !reflect.DeepEqual(cfg.Timeframes, []string{"1h", "1d"}) || cfg.PrimaryTimeframe != "1d" {
		t.Fatalf("unexpected timeframes: %+v %s", cfg.Timeframes, cfg.PrimaryTimeframe)
	}
	if !reflect.DeepEqual(cfg.WatchSymbols, []string{"BTCUSDT", "ETHUSDT"}) {
		t.Fatalf("unexpected watch symbols: %+v", cfg.WatchSymbols)
	}
	if cfg.TopMoversLimit != 6 || !cfg.ChartImages || cfg.HTTPPort != 9000 || cfg.LogFormat != "json" {
		t.Fatalf("unexpected overrides: %+v", cfg)
	}
	if cfg.MCPTransport != "http" || cfg.MCPHTTPPort != 9999 {
		t.Fatalf("unexpected MCP overrides: %s %d", cfg.MCPTransport, cfg.MCPHTTPPort)
	}
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	clearEnv(t)
	t.Setenv("TOP_MOVERS_LIMIT", "many")
	t.Setenv("CHART_IMAGES", "sometimes")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.TopMoversLimit != 4 || cfg.ChartImages {
		t.Fatalf("expected defaults kept, got limit=%d chart=%v", cfg.TopMoversLimit, cfg.ChartImages)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"MARKET_SOURCE":     "coingecko",
		"TIMEFRAMES":        "5m",
		"PRIMARY_TIMEFRAME": "2h",
		"MCP_TRANSPORT":     "grpc",
		"HTTP_PORT":         "70000",
		"BINANCE_HOSTS":     "not a url",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected %s=%q to be rejected", key, value)
			}
		})
	}
}

func TestLoadReadsYAMLFileBeforeEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "market.yaml")
	body := strings.Join([]string{
		"market_source: yahoo",
		"yahoo_watchlist: [\"^GSPC\", \"AAPL\"]",
		"top_movers_limit: 3",
		"refresh_cron: \"*/5 * * * *\"",
		"http_port: 8181",
	}, "\n")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigFileEnv, path)
	t.Setenv("HTTP_PORT", "8282")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MarketSource != "yahoo" || cfg.TopMoversLimit != 3 || cfg.RefreshCron != "*/5 * * * *" {
		t.Fatalf("expected YAML values, got %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.YahooWatchlist, []string{"^GSPC", "AAPL"}) {
		t.Fatalf("unexpected watchlist: %+v", cfg.YahooWatchlist)
	}
	if cfg.HTTPPort != 8282 {
		t.Fatalf("expected env to override YAML port, got %d", cfg.HTTPPort)
	}
}

func TestLoadMissingYAMLFileFallsBack(t *testing.T) {
	clearEnv(t)
	t.Setenv(ConfigFileEnv, filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err != nil {
		t.Fatalf("expected missing file to be tolerated, got %v", err)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("top_movers_limit: [1"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigFileEnv, path)
	if _, err := Load(); err == nil {
		t.Fatal("expected parse error")
	}
}
