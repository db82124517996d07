package marketctx

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"market-pulse/internal/domain"
)

const noNewsClause = "No recent news."

type Assembler struct {
	timeframes []string
	primary    string
}

// NewAssembler fixes the order timeframes are reported in. An empty list
// falls back to the sorted keys of each set.
func NewAssembler(timeframes []string, primary string) *Assembler {
	if primary == "" {
		primary = domain.PrimaryTimeframe
	}
	return &Assembler{timeframes: append([]string(nil), timeframes...), primary: primary}
}

func (a *Assembler) Build(
	symbol string,
	set domain.TimeframeSet,
	news []domain.NewsItem,
	anomaly domain.AnomalyFlag,
	walls domain.OrderBookWalls,
	snap domain.IndicatorSnapshot,
) domain.AssetContext {
	changes := TimeframeChanges(a.order(set), set)

	ctx := domain.AssetContext{
		Symbol:           symbol,
		TimeframeChanges: changes,
		News:             news,
		Anomaly:          anomaly,
		Walls:            walls,
		Indicators:       snap,
		Primary:          set[a.primary],
	}
	ctx.Text = Render(changes, news, anomaly, walls, snap)
	return ctx
}

func (a *Assembler) order(set domain.TimeframeSet) []string {
	if len(a.timeframes) > 0 {
		return a.timeframes
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// TimeframeChanges computes the percent move between the last two closes
// for every timeframe holding at least two candles.
func TimeframeChanges(order []string, set domain.TimeframeSet) []domain.TimeframeChange {
	out := make([]domain.TimeframeChange, 0, len(order))
	for _, tf := range order {
		series := set[tf]
		if len(series) < 2 {
			continue
		}
		prev := series[len(series)-2].Close
		last := series[len(series)-1].Close
		if prev == 0 {
			continue
		}
		out = append(out, domain.TimeframeChange{Timeframe: tf, ChangePct: (last - prev) / prev * 100})
	}
	return out
}

func Render(
	changes []domain.TimeframeChange,
	news []domain.NewsItem,
	anomaly domain.AnomalyFlag,
	walls domain.OrderBookWalls,
	snap domain.IndicatorSnapshot,
) string {
	var b strings.Builder

	trends := make([]string, 0, len(changes))
	for _, c := range changes {
		trends = append(trends, fmt.Sprintf("%s: %+.2f%%", c.Timeframe, c.ChangePct))
	}
	b.WriteString("MTF Trends (")
	b.WriteString(strings.Join(trends, ", "))
	b.WriteString(") | ")

	if len(news) == 0 {
		b.WriteString(noNewsClause)
	} else {
		titles := make([]string, 0, len(news))
		for _, n := range news {
			titles = append(titles, n.Title)
		}
		fmt.Fprintf(&b, "Latest %d news headlines: %s", len(news), strings.Join(titles, "; "))
	}

	if anomaly.Triggered {
		fmt.Fprintf(&b, " | WHALE ALERT: Volume spike %.1fx average!", anomaly.Ratio)
	}
	if walls.BuyWall.Valid {
		fmt.Fprintf(&b, " | BUY WALL: %s", FormatPrice(walls.BuyWall.Value))
	}
	if walls.SellWall.Valid {
		fmt.Fprintf(&b, " | SELL WALL: %s", FormatPrice(walls.SellWall.Value))
	}
	if snap.RSI.Valid && snap.MACD.Valid && snap.BBLower.Valid && snap.BBUpper.Valid {
		fmt.Fprintf(&b, " | RSI: %.1f | MACD: %.4f | BB: [%.2f - %.2f]",
			snap.RSI.Value, snap.MACD.Value, snap.BBLower.Value, snap.BBUpper.Value)
	}
	return b.String()
}

// FormatPrice keeps eight decimals below 1 so sub-cent assets stay readable.
func FormatPrice(v float64) string {
	if math.Abs(v) >= 1 {
		return fmt.Sprintf("%.2f", v)
	}
	return fmt.Sprintf("%.8f", v)
}
