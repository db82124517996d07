package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"market-pulse/internal/domain"
)

// ConfigFileEnv names the optional YAML file read before env overrides.
const ConfigFileEnv = "MARKET_CONFIG_FILE"

type Config struct {
	TelegramBotToken string `yaml:"telegram_bot_token"`
	TelegramChatID   int64  `yaml:"telegram_chat_id"`
	DatabaseURL      string `yaml:"database_url"`
	RedisURL         string `yaml:"redis_url"`
	StatsSQLitePath  string `yaml:"stats_sqlite_path" validate:"required"`

	OpenAIAPIKey      string `yaml:"openai_api_key"`
	OpenAIModel       string `yaml:"openai_model" validate:"required"`
	CryptoPanicAPIKey string `yaml:"cryptopanic_api_key"`

	MarketSource     string   `yaml:"market_source" validate:"oneof=binance yahoo"`
	BinanceHosts     []string `yaml:"binance_hosts" validate:"dive,url"`
	YahooHosts       []string `yaml:"yahoo_hosts" validate:"dive,url"`
	YahooWatchlist   []string `yaml:"yahoo_watchlist"`
	QuoteAsset       string   `yaml:"quote_asset" validate:"required"`
	Timeframes       []string `yaml:"timeframes" validate:"min=1,dive,oneof=15m 1h 4h 1d"`
	PrimaryTimeframe string   `yaml:"primary_timeframe" validate:"oneof=15m 1h 4h 1d"`
	TopMoversLimit   int      `yaml:"top_movers_limit" validate:"gte=1,lte=50"`
	MoversCacheSecs  int      `yaml:"movers_cache_secs" validate:"gte=0"`
	HTTPTimeoutSecs  int      `yaml:"http_timeout_secs" validate:"gte=1,lte=120"`
	RefreshCron      string   `yaml:"refresh_cron" validate:"required"`
	WatchSymbols     []string `yaml:"watch_symbols"`
	ChartImages      bool     `yaml:"chart_images"`

	HTTPPort  int    `yaml:"http_port" validate:"gte=1,lte=65535"`
	LogLevel  string `yaml:"log_level" validate:"oneof=trace debug info warn error"`
	LogFormat string `yaml:"log_format" validate:"oneof=console json"`

	MCPTransport          string `yaml:"mcp_transport" validate:"oneof=stdio http"`
	MCPHTTPBind           string `yaml:"mcp_http_bind" validate:"required"`
	MCPHTTPPort           int    `yaml:"mcp_http_port" validate:"gte=1,lte=65535"`
	MCPAuthToken          string `yaml:"mcp_auth_token"`
	MCPRequestTimeoutSecs int    `yaml:"mcp_request_timeout_secs" validate:"gte=1"`
	MCPRateLimitPerMin    int    `yaml:"mcp_rate_limit_per_min" validate:"gte=1"`
}

func defaults() *Config {
	return &Config{
		StatsSQLitePath:       "data/stats.db",
		OpenAIModel:           "gpt-4o-mini",
		MarketSource:          "binance",
		QuoteAsset:            "USDT",
		Timeframes:            append([]string(nil), domain.DefaultTimeframes...),
		PrimaryTimeframe:      domain.PrimaryTimeframe,
		TopMoversLimit:        4,
		MoversCacheSecs:       60,
		HTTPTimeoutSecs:       10,
		RefreshCron:           "@every 3m",
		HTTPPort:              8080,
		LogLevel:              "info",
		LogFormat:             "console",
		MCPTransport:          "stdio",
		MCPHTTPBind:           "127.0.0.1",
		MCPHTTPPort:           8090,
		MCPRequestTimeoutSecs: 120,
		MCPRateLimitPerMin:    60,
	}
}

// Load builds the configuration from defaults, the optional YAML file named
// by MARKET_CONFIG_FILE, and environment overrides, in that order.
func Load() (*Config, error) {
	cfg := defaults()

	if path := strings.TrimSpace(os.Getenv(ConfigFileEnv)); path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.TelegramBotToken == "" {
		log.Warn().Msg("TELEGRAM_BOT_TOKEN not set, alerts disabled")
	}
	if cfg.OpenAIAPIKey == "" {
		log.Warn().Msg("OPENAI_API_KEY not set, analysis will report unavailable")
	}
	if cfg.CryptoPanicAPIKey == "" {
		log.Warn().Msg("CRYPTOPANIC_API_KEY not set, news context disabled")
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Warn().Str("path", path).Msg("config file not found, using env only")
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	envString("TELEGRAM_BOT_TOKEN", &c.TelegramBotToken)
	envInt64("TELEGRAM_CHAT_ID", &c.TelegramChatID)
	envString("DATABASE_URL", &c.DatabaseURL)
	envString("REDIS_URL", &c.RedisURL)
	envString("STATS_SQLITE_PATH", &c.StatsSQLitePath)
	envString("OPENAI_API_KEY", &c.OpenAIAPIKey)
	envString("OPENAI_MODEL", &c.OpenAIModel)
	envString("CRYPTOPANIC_API_KEY", &c.CryptoPanicAPIKey)
	envString("MARKET_SOURCE", &c.MarketSource)
	envList("BINANCE_HOSTS", &c.BinanceHosts)
	envList("YAHOO_HOSTS", &c.YahooHosts)
	envList("YAHOO_WATCHLIST", &c.YahooWatchlist)
	envString("QUOTE_ASSET", &c.QuoteAsset)
	envList("TIMEFRAMES", &c.Timeframes)
	envString("PRIMARY_TIMEFRAME", &c.PrimaryTimeframe)
	envInt("TOP_MOVERS_LIMIT", &c.TopMoversLimit)
	envInt("MOVERS_CACHE_SECS", &c.MoversCacheSecs)
	envInt("HTTP_TIMEOUT_SECS", &c.HTTPTimeoutSecs)
	envString("REFRESH_CRON", &c.RefreshCron)
	envList("WATCH_SYMBOLS", &c.WatchSymbols)
	envBool("CHART_IMAGES", &c.ChartImages)
	envInt("HTTP_PORT", &c.HTTPPort)
	envString("LOG_LEVEL", &c.LogLevel)
	envString("LOG_FORMAT", &c.LogFormat)
	envString("MCP_TRANSPORT", &c.MCPTransport)
	envString("MCP_HTTP_BIND", &c.MCPHTTPBind)
	envInt("MCP_HTTP_PORT", &c.MCPHTTPPort)
	envString("MCP_AUTH_TOKEN", &c.MCPAuthToken)
	envInt("MCP_REQUEST_TIMEOUT_SECS", &c.MCPRequestTimeoutSecs)
	envInt("MCP_RATE_LIMIT_PER_MIN", &c.MCPRateLimitPerMin)
}

func (c *Config) normalize() {
	c.MarketSource = strings.ToLower(strings.TrimSpace(c.MarketSource))
	c.MCPTransport = strings.ToLower(strings.TrimSpace(c.MCPTransport))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	c.QuoteAsset = strings.ToUpper(strings.TrimSpace(c.QuoteAsset))
	c.Timeframes = dedupe(c.Timeframes, strings.TrimSpace)
	c.BinanceHosts = dedupe(c.BinanceHosts, strings.TrimSpace)
	c.YahooHosts = dedupe(c.YahooHosts, strings.TrimSpace)
	c.WatchSymbols = dedupe(c.WatchSymbols, upper)
	c.YahooWatchlist = dedupe(c.YahooWatchlist, upper)
}

var validate = validator.New()

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			first := verrs[0]
			return fmt.Errorf("invalid config %s: failed %q (value %v)", first.Namespace(), first.Tag(), first.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func envString(key string, dst *string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("ignoring non-integer env value")
		return
	}
	*dst = n
}

func envInt64(key string, dst *int64) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("ignoring non-integer env value")
		return
	}
	*dst = n
}

func envBool(key string, dst *bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("ignoring non-boolean env value")
		return
	}
	*dst = b
}

func envList(key string, dst *[]string) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	*dst = strings.Split(v, ",")
}

func upper(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func dedupe(in []string, clean func(string) string) []string {
	if len(in) == 0 {
		return in
	}
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, raw := range in {
		v := clean(raw)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
