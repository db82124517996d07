package tui

import "github.com/charmbracelet/lipgloss"

// Green and red always mean up and down.
const (
	colorText   = lipgloss.Color("#FAFAFA")
	colorMuted  = lipgloss.Color("#888888")
	colorFrame  = lipgloss.Color("#555555")
	colorAccent = lipgloss.Color("#7D56F4")
	colorUp     = lipgloss.Color("#00FF00")
	colorDown   = lipgloss.Color("#FF0000")
	colorWarn   = lipgloss.Color("#FFFF00")
	colorWhale  = lipgloss.Color("#FF8800")
)

func fg(c lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c)
}

var (
	ActiveTabStyle   = lipgloss.NewStyle().Padding(0, 2).Bold(true).Foreground(colorText).Background(colorAccent)
	InactiveTabStyle = lipgloss.NewStyle().Padding(0, 2).Foreground(colorMuted)

	HeaderStyle  = fg(colorText).Bold(true)
	SubtextStyle = fg(colorMuted)
	ErrorStyle   = fg(colorDown)
	BorderStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorFrame)

	PriceUpStyle   = fg(colorUp)
	PriceDownStyle = fg(colorDown)
	PriceZeroStyle = fg(colorMuted)

	SignalBuyStyle         = fg(colorUp).Bold(true)
	SignalSellStyle        = fg(colorDown).Bold(true)
	SignalHoldStyle        = fg(colorWarn)
	SignalUnavailableStyle = fg(colorMuted)
	AnomalyStyle           = fg(colorWhale).Bold(true)

	HeatGreen   = colorUp
	HeatRed     = colorDown
	HeatNeutral = colorFrame

	AccuracyGoodStyle = fg(colorUp)
	AccuracyOkStyle   = fg(colorWarn)
	AccuracyBadStyle  = fg(colorDown)
)
