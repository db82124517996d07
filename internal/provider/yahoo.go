package provider

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"market-pulse/internal/domain"
)

var DefaultYahooHosts = []string{
	"https://query1.finance.yahoo.com",
	"https://query2.finance.yahoo.com",
}

var DefaultYahooWatchlist = []string{"^GSPC", "^IXIC", "^DJI", "GC=F", "CL=F", "EURUSD=X", "AAPL", "MSFT"}

type YahooConfig struct {
	Hosts     []string
	Watchlist []string
	Timeout   time.Duration
}

// YahooSource serves traditional-market symbols from the Yahoo chart API.
// It has no sub-hour bars and no order book.
type YahooSource struct {
	pool      *hostPool
	watchlist []string
}

func NewYahooSource(cfg YahooConfig) *YahooSource {
	hosts := cfg.Hosts
	if len(hosts) == 0 {
		hosts = DefaultYahooHosts
	}
	watch := cfg.Watchlist
	if len(watch) == 0 {
		watch = DefaultYahooWatchlist
	}
	pool := newHostPool("yahoo", hosts, cfg.Timeout)
	pool.userAgent = "Mozilla/5.0"
	return &YahooSource{pool: pool, watchlist: append([]string(nil), watch...)}
}

func (s *YahooSource) Class() domain.AssetClass { return domain.AssetClassTraditional }

func (s *YahooSource) Name() string { return "yahoo" }

type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string `json:"symbol"`
				RegularMarketPrice any    `json:"regularMarketPrice"`
				ChartPreviousClose any    `json:"chartPreviousClose"`
				PreviousClose      any    `json:"previousClose"`
				RegularMarketVol   any    `json:"regularMarketVolume"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []any `json:"open"`
					High   []any `json:"high"`
					Low    []any `json:"low"`
					Close  []any `json:"close"`
					Volume []any `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (s *YahooSource) chart(ctx context.Context, symbol, interval, rng string) (*yahooChart, error) {
	var chart yahooChart
	path := "/v8/finance/chart/" + url.PathEscape(symbol)
	q := url.Values{"interval": {interval}, "range": {rng}}
	if _, err := s.pool.getJSON(ctx, path, q, &chart); err != nil {
		return nil, err
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo %s: %s: %w", symbol, chart.Chart.Error.Description, ErrNoData)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, fmt.Errorf("yahoo %s: empty result: %w", symbol, ErrNoData)
	}
	return &chart, nil
}

func (s *YahooSource) ticker(ctx context.Context, symbol string) (domain.Ticker, error) {
	chart, err := s.chart(ctx, symbol, "1d", "5d")
	if err != nil {
		return domain.Ticker{}, err
	}
	meta := chart.Chart.Result[0].Meta
	t := domain.Ticker{Symbol: strings.ToUpper(symbol)}
	price, ok := coerceFloat(meta.RegularMarketPrice)
	if !ok {
		return domain.Ticker{}, fmt.Errorf("yahoo %s: missing price: %w", symbol, ErrNoData)
	}
	t.LastPrice = price

	prev, ok := coerceFloat(meta.ChartPreviousClose)
	if !ok {
		prev, ok = coerceFloat(meta.PreviousClose)
	}
	if ok && prev > 0 {
		t.ChangePct24h = domain.Some((price - prev) / prev * 100)
	}
	if vol, ok := coerceFloat(meta.RegularMarketVol); ok {
		t.QuoteVolume24h = domain.Some(vol * price)
	}
	return t, nil
}

func (s *YahooSource) tickers(ctx context.Context, symbols []string) []domain.Ticker {
	out := make([]domain.Ticker, 0, len(symbols))
	for _, sym := range symbols {
		t, err := s.ticker(ctx, sym)
		if err != nil {
			log.Warn().Err(err).Str("symbol", sym).Msg("yahoo ticker unavailable")
			continue
		}
		out = append(out, t)
	}
	return out
}

func (s *YahooSource) GetTopMovers(ctx context.Context, limit int) ([]domain.Ticker, error) {
	return rankByAbsChange(s.tickers(ctx, s.watchlist), limit), nil
}

func (s *YahooSource) GetTickerBoard(ctx context.Context, limit int) ([]domain.Ticker, error) {
	return rankByQuoteVolume(s.tickers(ctx, s.watchlist), limit), nil
}

func (s *YahooSource) GetTickers(ctx context.Context, symbols []string) ([]domain.Ticker, error) {
	return s.tickers(ctx, symbols), nil
}

func (s *YahooSource) GetAllTickers(ctx context.Context) (map[string]float64, error) {
	out := make(map[string]float64, len(s.watchlist))
	for _, t := range s.tickers(ctx, s.watchlist) {
		out[t.Symbol] = t.LastPrice
	}
	return out, nil
}

// GetDepth has no Yahoo equivalent.
func (s *YahooSource) GetDepth(context.Context, string, int) (domain.Depth, error) {
	return domain.Depth{}, nil
}

// GetSeries returns an empty series for sub-hour timeframes. 4h bars are
// built from hourly bars.
func (s *YahooSource) GetSeries(ctx context.Context, symbol, timeframe string, limit int) (domain.Series, error) {
	if limit <= 0 {
		limit = 200
	}
	step := intervalDuration(timeframe)
	if step == 0 || step < time.Hour {
		return domain.Series{}, nil
	}
	days := int(step*time.Duration(limit)/(24*time.Hour))*5 + 3
	series, err := s.history(ctx, symbol, timeframe, days)
	if err != nil {
		return nil, err
	}
	if len(series) > limit {
		series = series[len(series)-limit:]
	}
	return series, nil
}

func (s *YahooSource) GetLongHistory(ctx context.Context, symbol, timeframe string, days int) (domain.Series, error) {
	step := intervalDuration(timeframe)
	if step == 0 || step < time.Hour {
		return domain.Series{}, nil
	}
	return s.history(ctx, symbol, timeframe, days)
}

func (s *YahooSource) history(ctx context.Context, symbol, timeframe string, days int) (domain.Series, error) {
	interval := "60m"
	if timeframe == "1d" {
		interval = "1d"
	} else if timeframe == "1w" {
		interval = "1wk"
	}
	chart, err := s.chart(ctx, symbol, interval, yahooRange(days))
	if err != nil {
		return nil, err
	}
	bars := chartSeries(chart, strings.ToUpper(symbol), timeframe)
	if timeframe == "4h" {
		bars = aggregate(bars, 4*time.Hour)
	}
	return bars, nil
}

func chartSeries(chart *yahooChart, symbol, timeframe string) domain.Series {
	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return domain.Series{}
	}
	quote := result.Indicators.Quote[0]
	at := func(vals []any, i int) (float64, bool) {
		if i >= len(vals) {
			return 0, false
		}
		return coerceFloat(vals[i])
	}

	out := make(domain.Series, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		o, ok1 := at(quote.Open, i)
		h, ok2 := at(quote.High, i)
		l, ok3 := at(quote.Low, i)
		c, ok4 := at(quote.Close, i)
		if !ok1 || !ok2 || !ok3 || !ok4 {
			continue
		}
		v, _ := at(quote.Volume, i)
		candle := domain.Candle{
			Symbol:   symbol,
			Interval: timeframe,
			OpenTime: time.Unix(ts, 0).UTC(),
			Open:     o,
			High:     h,
			Low:      l,
			Close:    c,
			Volume:   v,
		}
		if validCandle(candle) {
			out = append(out, candle)
		}
	}
	return cleanSeries(out)
}

// aggregate folds an ascending series into buckets aligned to the bucket
// width in UTC.
func aggregate(in domain.Series, width time.Duration) domain.Series {
	out := make(domain.Series, 0, len(in)/4+1)
	for _, c := range in {
		bucket := c.OpenTime.Truncate(width)
		n := len(out)
		if n > 0 && out[n-1].OpenTime.Equal(bucket) {
			cur := &out[n-1]
			if c.High > cur.High {
				cur.High = c.High
			}
			if c.Low < cur.Low {
				cur.Low = c.Low
			}
			cur.Close = c.Close
			cur.Volume += c.Volume
			continue
		}
		c.OpenTime = bucket
		c.Interval = "4h"
		out = append(out, c)
	}
	return out
}

func yahooRange(days int) string {
	switch {
	case days <= 5:
		return "5d"
	case days <= 30:
		return "1mo"
	case days <= 90:
		return "3mo"
	case days <= 180:
		return "6mo"
	case days <= 365:
		return "1y"
	default:
		return "2y"
	}
}
