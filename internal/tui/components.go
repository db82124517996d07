package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"market-pulse/internal/domain"
)

// FormatAsset renders one analysed asset as a table row.
func FormatAsset(a domain.AnalyzedAsset) string {
	flag := " "
	if a.Anomaly.Triggered {
		flag = AnomalyStyle.Render("!")
	}
	return fmt.Sprintf("%-10s %12s  %s  %6s  %s %s",
		a.Symbol,
		formatPrice(a.Price),
		changeStyle(a.Change24h).Render(fmt.Sprintf("%7s", formatChange(a.Change24h))),
		a.Indicators.RSI.String(),
		signalStyle(a.Signal).Render(fmt.Sprintf("%-11s", strings.ToUpper(string(a.Signal)))),
		flag,
	)
}

// FormatTicker renders a board row.
func FormatTicker(t domain.Ticker) string {
	return fmt.Sprintf("%-10s %12s  %s  Vol: %s",
		t.Symbol,
		formatPrice(t.LastPrice),
		changeStyle(t.ChangePct24h).Render(fmt.Sprintf("%7s", formatChange(t.ChangePct24h))),
		formatOptionalVolume(t.QuoteVolume24h),
	)
}

// RenderHeatMap renders a colored grid showing 24h change for each ticker.
func RenderHeatMap(tickers []domain.Ticker, width int) string {
	if len(tickers) == 0 {
		return SubtextStyle.Render("No ticker data")
	}

	cellWidth := 10
	cols := width / cellWidth
	if cols < 1 {
		cols = 1
	}

	var rows []string
	var row []string
	for i, t := range tickers {
		bg := HeatNeutral
		if chg := t.ChangePct24h; chg.Valid && chg.Value > 0 {
			bg = heatColorScale(chg.Value, 10, HeatGreen)
		} else if chg.Valid && chg.Value < 0 {
			bg = heatColorScale(-chg.Value, 10, HeatRed)
		}

		cell := lipgloss.NewStyle().
			Background(bg).
			Foreground(lipgloss.Color("#000000")).
			Bold(true).
			Width(cellWidth - 1).
			Align(lipgloss.Center).
			Render(shortSymbol(t.Symbol, cellWidth-1))

		row = append(row, cell)
		if (i+1)%cols == 0 || i == len(tickers)-1 {
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
			row = nil
		}
	}

	return strings.Join(rows, "\n")
}

// RenderWinRate renders an ASCII bar of the hit percentage (0-100).
func RenderWinRate(stats domain.StatsSnapshot, barWidth int) string {
	if barWidth <= 0 {
		barWidth = 20
	}
	rate := stats.WinRate() / 100
	filled := int(math.Round(rate * float64(barWidth)))
	if filled > barWidth {
		filled = barWidth
	}
	empty := barWidth - filled

	style := AccuracyGoodStyle
	if rate < 0.5 {
		style = AccuracyBadStyle
	} else if rate < 0.6 {
		style = AccuracyOkStyle
	}

	bar := style.Render(strings.Repeat("█", filled)) + SubtextStyle.Render(strings.Repeat("░", empty))
	return fmt.Sprintf("Win rate %s %.1f%%  (%d hits / %d misses, %d tokens)",
		bar, stats.WinRate(), stats.Hits, stats.Misses, stats.PromptTokens+stats.CompletionTokens)
}

func signalStyle(s domain.Signal) lipgloss.Style {
	switch s {
	case domain.SignalBuy:
		return SignalBuyStyle
	case domain.SignalSell:
		return SignalSellStyle
	case domain.SignalHold:
		return SignalHoldStyle
	}
	return SignalUnavailableStyle
}

func changeStyle(pct domain.Reading) lipgloss.Style {
	switch {
	case !pct.Valid:
		return PriceZeroStyle
	case pct.Value > 0:
		return PriceUpStyle
	case pct.Value < 0:
		return PriceDownStyle
	}
	return PriceZeroStyle
}

// heatColorScale produces a color scaled by magnitude.
func heatColorScale(magnitude, maxMagnitude float64, baseColor lipgloss.Color) lipgloss.Color {
	intensity := magnitude / maxMagnitude
	if intensity > 1 {
		intensity = 1
	}
	if intensity < 0.1 {
		return HeatNeutral
	}
	return baseColor
}

func shortSymbol(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func formatPct(v float64) string {
	sign := ""
	if v > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f%%", sign, v)
}

func formatChange(r domain.Reading) string {
	if !r.Valid {
		return "N/A"
	}
	return formatPct(r.Value)
}

func formatOptionalVolume(r domain.Reading) string {
	if !r.Valid {
		return "N/A"
	}
	return formatVolume(r.Value)
}

func formatPrice(v float64) string {
	if v >= 1000 {
		return addCommas(fmt.Sprintf("%.0f", v))
	}
	if v >= 1 {
		return fmt.Sprintf("%.2f", v)
	}
	return fmt.Sprintf("%.6f", v)
}

func addCommas(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}
	var result strings.Builder
	for i, ch := range s {
		if i > 0 && (n-i)%3 == 0 {
			result.WriteByte(',')
		}
		result.WriteRune(ch)
	}
	return result.String()
}

func formatVolume(v float64) string {
	switch {
	case v >= 1e12:
		return fmt.Sprintf("%.1fT", v/1e12)
	case v >= 1e9:
		return fmt.Sprintf("%.1fB", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("%.1fM", v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("%.1fK", v/1e3)
	default:
		return fmt.Sprintf("%.0f", v)
	}
}
