package mcp

import (
	"fmt"
	"strings"
	"time"

	"market-pulse/internal/domain"
)

const (
	defaultTickerLimit = 20
	maxTickerLimit     = 100
	defaultSeriesLimit = 100
	maxSeriesLimit     = 500
	maxSymbols         = 10
	maxSymbolLength    = 20
)

type marketOverviewInput struct {
	Symbols []string `json:"symbols,omitempty" jsonschema:"optional symbols to analyze now (e.g. BTCUSDT, AAPL); omit for the latest top-movers pass"`
}

type marketOverviewOutput struct {
	Assets    []domain.AnalyzedAsset `json:"assets"`
	UpdatedAt time.Time              `json:"updated_at"`
	Live      bool                   `json:"live"`
	Warning   string                 `json:"warning,omitempty"`
}

type tickersListInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"number of tickers by 24h quote volume, max 100"`
}

type tickersListOutput struct {
	Tickers []domain.Ticker `json:"tickers"`
}

type seriesGetInput struct {
	Symbol    string `json:"symbol" jsonschema:"asset symbol (e.g. BTCUSDT, ^GSPC)"`
	Timeframe string `json:"timeframe,omitempty" jsonschema:"candle timeframe: 15m, 1h, 4h, 1d (default 1h)"`
	Limit     int    `json:"limit,omitempty" jsonschema:"number of candles to return, max 500"`
}

type seriesGetOutput struct {
	Symbol    string        `json:"symbol"`
	Timeframe string        `json:"timeframe"`
	Candles   domain.Series `json:"candles"`
}

type statsGetOutput struct {
	Hits             int64   `json:"hits"`
	Misses           int64   `json:"misses"`
	WinRate          float64 `json:"win_rate"`
	PromptTokens     int64   `json:"prompt_tokens"`
	CompletionTokens int64   `json:"completion_tokens"`
}

func newStatsOutput(s domain.StatsSnapshot) statsGetOutput {
	return statsGetOutput{
		Hits:             s.Hits,
		Misses:           s.Misses,
		WinRate:          s.WinRate(),
		PromptTokens:     s.PromptTokens,
		CompletionTokens: s.CompletionTokens,
	}
}

type emptyInput struct{}

func normalizeSymbol(symbol string) (string, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return "", fmt.Errorf("symbol is required")
	}
	if len(symbol) > maxSymbolLength {
		return "", fmt.Errorf("symbol too long: %s", symbol)
	}
	for _, r := range symbol {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '^', r == '.', r == '-', r == '=':
		default:
			return "", fmt.Errorf("invalid symbol: %s", symbol)
		}
	}
	return symbol, nil
}

func normalizeSymbols(symbols []string) ([]string, error) {
	if len(symbols) > maxSymbols {
		return nil, fmt.Errorf("at most %d symbols per request", maxSymbols)
	}
	out := make([]string, 0, len(symbols))
	for _, raw := range symbols {
		s, err := normalizeSymbol(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func normalizeTimeframe(tf string) (string, error) {
	tf = strings.ToLower(strings.TrimSpace(tf))
	if tf == "" {
		return domain.PrimaryTimeframe, nil
	}
	for _, supported := range domain.SupportedIntervals {
		if tf == supported {
			return tf, nil
		}
	}
	return "", fmt.Errorf("unsupported timeframe: %s", tf)
}

func clampLimit(limit, fallback, ceiling int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > ceiling {
		return ceiling
	}
	return limit
}
