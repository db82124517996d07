package ai

import (
	"fmt"
	"strings"
	"unicode"

	"market-pulse/internal/domain"
)

func BuildPrompt(req domain.AnalysisRequest) string {
	var b strings.Builder
	b.WriteString("You are a market analyst. Analyze the asset below using the supplied context and recent candles.\n\n")
	fmt.Fprintf(&b, "Asset: %s\n", req.Symbol)
	fmt.Fprintf(&b, "Context (multi-timeframe trends, indicators, news, volume spikes, order book walls):\n%s\n\n", req.Context)
	b.WriteString("Recent candles:\n")
	b.WriteString(candleTable(req.Candles, promptCandles))
	if len(req.Image) > 0 {
		b.WriteString("\nA chart image is attached. Use visible structure (channels, triangles, support zones) together with the numbers.\n")
	}
	b.WriteString("\nReply with exactly these lines:\n")
	b.WriteString("Signal: BUY, HOLD or SELL\n")
	b.WriteString("Reasoning: at most three sentences citing the data used\n")
	b.WriteString("Levels: support and resistance\n")
	return b.String()
}

func candleTable(series domain.Series, n int) string {
	if len(series) == 0 {
		return "(no candles)\n"
	}
	if len(series) > n {
		series = series[len(series)-n:]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-17s %12s %12s %12s %12s %14s\n", "time", "open", "high", "low", "close", "volume")
	for _, c := range series {
		fmt.Fprintf(&b, "%-17s %12.4f %12.4f %12.4f %12.4f %14.2f\n",
			c.OpenTime.UTC().Format("2006-01-02 15:04"), c.Open, c.High, c.Low, c.Close, c.Volume)
	}
	return b.String()
}

// ParseResponse reads the Signal, Reasoning and Levels lines. Missing lines
// keep their defaults and unrecognized signal words map to hold.
func ParseResponse(text string) domain.AnalysisResult {
	result := domain.AnalysisResult{Signal: domain.SignalHold, Reasoning: "Analysis pending", Levels: "N/A"}
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		line = strings.TrimSpace(strings.Trim(line, "*"))
		switch {
		case strings.Contains(line, "Signal:"):
			result.Signal = parseSignal(line)
		case strings.Contains(line, "Reasoning:"):
			result.Reasoning = afterLabel(line, "Reasoning:")
		case strings.Contains(line, "Levels:"):
			result.Levels = afterLabel(line, "Levels:")
		}
	}
	return result
}

// parseSignal matches only the first word after the label, so prose such as
// "HOLD until a BUY trigger" stays a hold.
func parseSignal(line string) domain.Signal {
	words := strings.FieldsFunc(afterLabel(line, "Signal:"), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	if len(words) == 0 {
		return domain.SignalHold
	}
	switch strings.ToUpper(words[0]) {
	case "BUY", "GREEN":
		return domain.SignalBuy
	case "SELL", "RED":
		return domain.SignalSell
	}
	return domain.SignalHold
}

func afterLabel(line, label string) string {
	idx := strings.Index(line, label)
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(line[idx+len(label):]), "*"))
}
