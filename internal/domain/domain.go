package domain

import (
	"encoding/json"
	"strconv"
	"time"
)

// SupportedIntervals lists the candle timeframes the adapters understand.
var SupportedIntervals = []string{"15m", "1h", "4h", "1d"}

// DefaultTimeframes is the multi-timeframe set fetched for each symbol.
var DefaultTimeframes = []string{"15m", "1h", "4h"}

const PrimaryTimeframe = "1h"

type AssetClass string

const (
	AssetClassCrypto      AssetClass = "crypto"
	AssetClassTraditional AssetClass = "traditional"
)

type Candle struct {
	Symbol   string    `json:"symbol"`
	Interval string    `json:"interval"`
	OpenTime time.Time `json:"open_time"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
}

// Series is ordered by OpenTime ascending with no duplicate timestamps.
type Series []Candle

func (s Series) Last() (Candle, bool) {
	if len(s) == 0 {
		return Candle{}, false
	}
	return s[len(s)-1], true
}

func (s Series) Closes() []float64 {
	out := make([]float64, len(s))
	for i := range s {
		out[i] = s[i].Close
	}
	return out
}

func (s Series) Volumes() []float64 {
	out := make([]float64, len(s))
	for i := range s {
		out[i] = s[i].Volume
	}
	return out
}

// TimeframeSet maps a timeframe label to its series. Missing or empty
// entries mean the fetch produced nothing for that timeframe.
type TimeframeSet map[string]Series

// Ticker carries 24h stats when the source reported them. A price-only
// ticker leaves ChangePct24h and QuoteVolume24h absent.
type Ticker struct {
	Symbol         string  `json:"symbol"`
	LastPrice      float64 `json:"last_price"`
	ChangePct24h   Reading `json:"change_24h"`
	QuoteVolume24h Reading `json:"volume_24h"`
}

type PriceLevel struct {
	Price    float64 `json:"price"`
	Quantity float64 `json:"quantity"`
}

type Depth struct {
	Bids []PriceLevel `json:"bids"`
	Asks []PriceLevel `json:"asks"`
}

func (d Depth) Empty() bool {
	return len(d.Bids) == 0 && len(d.Asks) == 0
}

// Reading is a derived number that may be absent.
type Reading struct {
	Value float64
	Valid bool
}

func Some(v float64) Reading {
	return Reading{Value: v, Valid: true}
}

func (r Reading) String() string {
	if !r.Valid {
		return "N/A"
	}
	return strconv.FormatFloat(r.Value, 'f', 2, 64)
}

// DescendingPresentFirst orders larger values first and absent values after
// every present one. Use it as a sort.SliceStable less function.
func DescendingPresentFirst(a, b Reading) bool {
	if a.Valid != b.Valid {
		return a.Valid
	}
	return a.Valid && a.Value > b.Value
}

func (r Reading) MarshalJSON() ([]byte, error) {
	if !r.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(r.Value)
}

func (r *Reading) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = Reading{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*r = Some(v)
	return nil
}

type IndicatorSnapshot struct {
	RSI        Reading `json:"rsi"`
	SMA20      Reading `json:"sma_20"`
	EMA50      Reading `json:"ema_50"`
	MACD       Reading `json:"macd"`
	MACDSignal Reading `json:"macd_signal"`
	BBUpper    Reading `json:"bb_upper"`
	BBLower    Reading `json:"bb_lower"`
}

// Complete reports whether every reading is present.
func (s IndicatorSnapshot) Complete() bool {
	return s.RSI.Valid && s.SMA20.Valid && s.EMA50.Valid && s.MACD.Valid &&
		s.MACDSignal.Valid && s.BBUpper.Valid && s.BBLower.Valid
}

// AnomalyFlag.Ratio is only meaningful when Triggered is true.
type AnomalyFlag struct {
	Triggered bool    `json:"triggered"`
	Ratio     float64 `json:"ratio"`
}

type OrderBookWalls struct {
	BuyWall  Reading `json:"buy_wall"`
	SellWall Reading `json:"sell_wall"`
}

type NewsItem struct {
	Title     string `json:"title"`
	URL       string `json:"url"`
	Sentiment string `json:"sentiment"`
}

type TimeframeChange struct {
	Timeframe string  `json:"timeframe"`
	ChangePct float64 `json:"change_pct"`
}

type AssetContext struct {
	Symbol           string
	TimeframeChanges []TimeframeChange
	News             []NewsItem
	Anomaly          AnomalyFlag
	Walls            OrderBookWalls
	Indicators       IndicatorSnapshot
	Text             string
	Primary          Series
}

type Signal string

const (
	SignalBuy         Signal = "buy"
	SignalHold        Signal = "hold"
	SignalSell        Signal = "sell"
	SignalUnavailable Signal = "unavailable"
)

func (s Signal) IsValid() bool {
	switch s {
	case SignalBuy, SignalHold, SignalSell, SignalUnavailable:
		return true
	}
	return false
}

// Actionable reports whether the signal warrants an alert.
func (s Signal) Actionable() bool {
	return s == SignalBuy || s == SignalSell
}

type TokenUsage struct {
	Prompt     int64 `json:"prompt"`
	Completion int64 `json:"completion"`
	Total      int64 `json:"total"`
}

type AnalysisRequest struct {
	Symbol  string
	Candles Series
	Context string
	Image   []byte
}

type AnalysisResult struct {
	Signal    Signal     `json:"signal"`
	Reasoning string     `json:"reasoning"`
	Levels    string     `json:"levels"`
	Usage     TokenUsage `json:"usage"`
}

type AnalyzedAsset struct {
	Symbol           string            `json:"symbol"`
	Class            AssetClass        `json:"class"`
	Price            float64           `json:"price"`
	Change24h        Reading           `json:"change_24h"`
	Volume24h        Reading           `json:"volume_24h"`
	Indicators       IndicatorSnapshot `json:"indicators"`
	Anomaly          AnomalyFlag       `json:"anomaly"`
	Walls            OrderBookWalls    `json:"walls"`
	TimeframeChanges []TimeframeChange `json:"timeframe_changes"`
	News             []NewsItem        `json:"news"`
	OutlierScore     Reading           `json:"outlier_score"`
	Context          string            `json:"context"`
	Signal           Signal            `json:"signal"`
	Reasoning        string            `json:"reasoning"`
	Levels           string            `json:"levels"`
	Usage            TokenUsage        `json:"usage"`
	History          Series            `json:"-"`
	AnalyzedAt       time.Time         `json:"analyzed_at"`
}

type StatsSnapshot struct {
	Hits             int64 `json:"hits"`
	Misses           int64 `json:"misses"`
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
}

// WinRate is the hit percentage, zero when nothing has been scored.
func (s StatsSnapshot) WinRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

type BacktestTrade struct {
	Side      string    `json:"side"`
	Time      time.Time `json:"time"`
	Price     float64   `json:"price"`
	Amount    float64   `json:"amount"`
	ProfitPct float64   `json:"profit_pct,omitempty"`
	Reasoning string    `json:"reasoning,omitempty"`
}

type EquityPoint struct {
	Time   time.Time `json:"time"`
	Equity float64   `json:"equity"`
}

type BacktestResult struct {
	Symbol         string          `json:"symbol"`
	Timeframe      string          `json:"timeframe"`
	InitialCapital float64         `json:"initial_capital"`
	FinalEquity    float64         `json:"final_equity"`
	ProfitPct      float64         `json:"profit_pct"`
	WinRate        float64         `json:"win_rate"`
	TotalTrades    int             `json:"total_trades"`
	Trades         []BacktestTrade `json:"trades"`
	Equity         []EquityPoint   `json:"equity"`
	Usage          TokenUsage      `json:"usage"`
}
