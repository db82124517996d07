package provider

import (
	"encoding/json"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"market-pulse/internal/domain"
)

// coerceFloat converts a loosely typed JSON value into a float. Anything that
// is not a finite number is reported as absent.
func coerceFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case nil:
		return 0, false
	case float64:
		f = n
	case int64:
		f = float64(n)
	case int:
		f = float64(n)
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		if err != nil {
			return 0, false
		}
		f = d.InexactFloat64()
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(n))
		if err != nil {
			return 0, false
		}
		f = d.InexactFloat64()
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func coerceMillis(v any) (time.Time, bool) {
	ms, ok := coerceFloat(v)
	if !ok || ms <= 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(int64(ms)).UTC(), true
}

// normalizeTicker maps either ticker shape (24h stats with lastPrice, or the
// light price endpoint with price) onto domain.Ticker.
func normalizeTicker(raw map[string]any) (domain.Ticker, bool) {
	symbol, _ := raw["symbol"].(string)
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return domain.Ticker{}, false
	}

	t := domain.Ticker{Symbol: symbol}
	if v, ok := coerceFloat(raw["lastPrice"]); ok {
		t.LastPrice = v
	} else if v, ok := coerceFloat(raw["price"]); ok {
		t.LastPrice = v
	}
	if v, ok := coerceFloat(raw["priceChangePercent"]); ok {
		t.ChangePct24h = domain.Some(v)
	}
	if v, ok := coerceFloat(raw["quoteVolume"]); ok {
		t.QuoteVolume24h = domain.Some(v)
	}
	return t, true
}

// cleanSeries sorts by open time and drops duplicate timestamps, keeping the
// most recent copy of a repeated bar.
func cleanSeries(in domain.Series) domain.Series {
	sort.SliceStable(in, func(i, j int) bool {
		return in[i].OpenTime.Before(in[j].OpenTime)
	})
	out := make(domain.Series, 0, len(in))
	for _, c := range in {
		if n := len(out); n > 0 && out[n-1].OpenTime.Equal(c.OpenTime) {
			out[n-1] = c
			continue
		}
		out = append(out, c)
	}
	return out
}

func validCandle(c domain.Candle) bool {
	return c.Open > 0 && c.High > 0 && c.Low > 0 && c.Close > 0 &&
		c.Volume >= 0 && !c.OpenTime.IsZero()
}

func rankByAbsChange(tickers []domain.Ticker, limit int) []domain.Ticker {
	sort.SliceStable(tickers, func(i, j int) bool {
		a, b := tickers[i].ChangePct24h, tickers[j].ChangePct24h
		a.Value, b.Value = math.Abs(a.Value), math.Abs(b.Value)
		return domain.DescendingPresentFirst(a, b)
	})
	if limit > 0 && len(tickers) > limit {
		tickers = tickers[:limit]
	}
	return tickers
}

func rankByQuoteVolume(tickers []domain.Ticker, limit int) []domain.Ticker {
	sort.SliceStable(tickers, func(i, j int) bool {
		return domain.DescendingPresentFirst(tickers[i].QuoteVolume24h, tickers[j].QuoteVolume24h)
	})
	if limit > 0 && len(tickers) > limit {
		tickers = tickers[:limit]
	}
	return tickers
}

func intervalDuration(tf string) time.Duration {
	switch tf {
	case "1m":
		return time.Minute
	case "5m":
		return 5 * time.Minute
	case "15m":
		return 15 * time.Minute
	case "30m":
		return 30 * time.Minute
	case "1h":
		return time.Hour
	case "4h":
		return 4 * time.Hour
	case "1d":
		return 24 * time.Hour
	case "1w":
		return 7 * 24 * time.Hour
	}
	return 0
}
