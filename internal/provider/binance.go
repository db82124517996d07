package provider

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"market-pulse/internal/domain"
)

var DefaultBinanceHosts = []string{
	"https://api.binance.com",
	"https://api1.binance.com",
	"https://api2.binance.com",
	"https://api3.binance.com",
	"https://data-api.binance.vision",
}

const (
	binanceMaxKlines = 1000
	binanceMaxDepth  = 5000
)

type BinanceConfig struct {
	Hosts      []string
	QuoteAsset string
	Timeout    time.Duration
}

// BinanceSource reads public market data from the Binance spot REST API.
type BinanceSource struct {
	pool       *hostPool
	quoteAsset string
}

func NewBinanceSource(cfg BinanceConfig) *BinanceSource {
	hosts := cfg.Hosts
	if len(hosts) == 0 {
		hosts = DefaultBinanceHosts
	}
	quote := strings.ToUpper(strings.TrimSpace(cfg.QuoteAsset))
	if quote == "" {
		quote = "USDT"
	}
	return &BinanceSource{
		pool:       newHostPool("binance", hosts, cfg.Timeout),
		quoteAsset: quote,
	}
}

func (s *BinanceSource) Class() domain.AssetClass { return domain.AssetClassCrypto }

func (s *BinanceSource) Name() string { return "binance" }

// GetTopMovers ranks quote-asset pairs by absolute 24h change.
func (s *BinanceSource) GetTopMovers(ctx context.Context, limit int) ([]domain.Ticker, error) {
	tickers, err := s.quoteTickers(ctx)
	if err != nil {
		return nil, err
	}
	return rankByAbsChange(tickers, limit), nil
}

// GetTickerBoard ranks quote-asset pairs by 24h quote volume.
func (s *BinanceSource) GetTickerBoard(ctx context.Context, limit int) ([]domain.Ticker, error) {
	tickers, err := s.quoteTickers(ctx)
	if err != nil {
		return nil, err
	}
	return rankByQuoteVolume(tickers, limit), nil
}

func (s *BinanceSource) quoteTickers(ctx context.Context) ([]domain.Ticker, error) {
	var raw []map[string]any
	if _, err := s.pool.getJSON(ctx, "/api/v3/ticker/24hr", nil, &raw); err != nil {
		return nil, err
	}
	out := make([]domain.Ticker, 0, len(raw))
	for _, r := range raw {
		t, ok := normalizeTicker(r)
		if !ok || !strings.HasSuffix(t.Symbol, s.quoteAsset) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// GetTickers returns 24h stats for the requested symbols in request order.
// The full 24h list is fetched and filtered locally: Binance rejects a whole
// symbols= query when one symbol is unknown. When the stats endpoint is
// unreachable it degrades to price-only tickers with absent stats.
func (s *BinanceSource) GetTickers(ctx context.Context, symbols []string) ([]domain.Ticker, error) {
	if len(symbols) == 0 {
		return nil, nil
	}
	wanted := make(map[string]struct{}, len(symbols))
	for _, sym := range symbols {
		wanted[strings.ToUpper(sym)] = struct{}{}
	}

	var raw []map[string]any
	if _, err := s.pool.getJSON(ctx, "/api/v3/ticker/24hr", nil, &raw); err != nil {
		log.Warn().Err(err).Strs("symbols", symbols).Msg("24h stats unavailable, falling back to price tickers")
		raw = nil
		if _, err := s.pool.getJSON(ctx, "/api/v3/ticker/price", nil, &raw); err != nil {
			return nil, err
		}
	}

	bySymbol := make(map[string]domain.Ticker, len(raw))
	for _, r := range raw {
		t, ok := normalizeTicker(r)
		if !ok {
			continue
		}
		if _, want := wanted[t.Symbol]; want {
			bySymbol[t.Symbol] = t
		}
	}
	out := make([]domain.Ticker, 0, len(bySymbol))
	for _, sym := range symbols {
		if t, ok := bySymbol[strings.ToUpper(sym)]; ok {
			out = append(out, t)
			delete(bySymbol, t.Symbol)
		}
	}
	return out, nil
}

func (s *BinanceSource) GetAllTickers(ctx context.Context) (map[string]float64, error) {
	var raw []map[string]any
	if _, err := s.pool.getJSON(ctx, "/api/v3/ticker/price", nil, &raw); err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(raw))
	for _, r := range raw {
		t, ok := normalizeTicker(r)
		if !ok || t.LastPrice <= 0 {
			continue
		}
		out[t.Symbol] = t.LastPrice
	}
	return out, nil
}

func (s *BinanceSource) GetSeries(ctx context.Context, symbol, timeframe string, limit int) (domain.Series, error) {
	if limit <= 0 || limit > binanceMaxKlines {
		limit = binanceMaxKlines
	}
	q := url.Values{
		"symbol":   {strings.ToUpper(symbol)},
		"interval": {timeframe},
		"limit":    {strconv.Itoa(limit)},
	}
	return s.klines(ctx, symbol, timeframe, q)
}

// GetLongHistory pages through klines to cover the requested number of days.
func (s *BinanceSource) GetLongHistory(ctx context.Context, symbol, timeframe string, days int) (domain.Series, error) {
	step := intervalDuration(timeframe)
	if step == 0 {
		return nil, fmt.Errorf("unsupported timeframe %q", timeframe)
	}
	end := time.Now().UTC()
	start := end.Add(-time.Duration(days) * 24 * time.Hour)

	var all domain.Series
	for start.Before(end) {
		q := url.Values{
			"symbol":    {strings.ToUpper(symbol)},
			"interval":  {timeframe},
			"startTime": {strconv.FormatInt(start.UnixMilli(), 10)},
			"endTime":   {strconv.FormatInt(end.UnixMilli(), 10)},
			"limit":     {strconv.Itoa(binanceMaxKlines)},
		}
		page, err := s.klines(ctx, symbol, timeframe, q)
		if err != nil {
			if len(all) > 0 {
				break
			}
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		all = append(all, page...)
		start = page[len(page)-1].OpenTime.Add(step)
		if len(page) < binanceMaxKlines {
			break
		}
	}
	return cleanSeries(all), nil
}

func (s *BinanceSource) klines(ctx context.Context, symbol, timeframe string, q url.Values) (domain.Series, error) {
	var raw [][]any
	if _, err := s.pool.getJSON(ctx, "/api/v3/klines", q, &raw); err != nil {
		return nil, err
	}
	series := make(domain.Series, 0, len(raw))
	for _, row := range raw {
		c, ok := parseKline(strings.ToUpper(symbol), timeframe, row)
		if !ok {
			continue
		}
		series = append(series, c)
	}
	return cleanSeries(series), nil
}

func parseKline(symbol, timeframe string, row []any) (domain.Candle, bool) {
	if len(row) < 6 {
		return domain.Candle{}, false
	}
	openTime, ok := coerceMillis(row[0])
	if !ok {
		return domain.Candle{}, false
	}
	var vals [5]float64
	for i := range vals {
		v, ok := coerceFloat(row[i+1])
		if !ok {
			return domain.Candle{}, false
		}
		vals[i] = v
	}
	c := domain.Candle{
		Symbol:   symbol,
		Interval: timeframe,
		OpenTime: openTime,
		Open:     vals[0],
		High:     vals[1],
		Low:      vals[2],
		Close:    vals[3],
		Volume:   vals[4],
	}
	return c, validCandle(c)
}

func (s *BinanceSource) GetDepth(ctx context.Context, symbol string, limit int) (domain.Depth, error) {
	if limit <= 0 || limit > binanceMaxDepth {
		limit = 100
	}
	var raw struct {
		Bids [][]any `json:"bids"`
		Asks [][]any `json:"asks"`
	}
	q := url.Values{"symbol": {strings.ToUpper(symbol)}, "limit": {strconv.Itoa(limit)}}
	if _, err := s.pool.getJSON(ctx, "/api/v3/depth", q, &raw); err != nil {
		return domain.Depth{}, err
	}
	return domain.Depth{Bids: parseLevels(raw.Bids), Asks: parseLevels(raw.Asks)}, nil
}

func parseLevels(rows [][]any) []domain.PriceLevel {
	out := make([]domain.PriceLevel, 0, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		price, ok := coerceFloat(row[0])
		if !ok || price <= 0 {
			continue
		}
		qty, ok := coerceFloat(row[1])
		if !ok || qty < 0 {
			continue
		}
		out = append(out, domain.PriceLevel{Price: price, Quantity: qty})
	}
	return out
}
