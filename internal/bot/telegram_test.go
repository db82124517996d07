package bot

import (
	"strings"
	"testing"

	"market-pulse/internal/domain"
)

func TestNewTelegramBotSkipsWithoutToken(t *testing.T) {
	tb, err := NewTelegramBot("", 1)
	if err != nil || tb != nil {
		t.Fatalf("expected nil bot without token, got %v, %v", tb, err)
	}
	tb.Start(nil, nil)
	tb.Stop()
}

func TestParseSymbols(t *testing.T) {
	got := parseSymbols([]string{"btcusdt,ethusdt", " sol ", ""})
	want := []string{"BTCUSDT", "ETHUSDT", "SOL"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestFormatOverview(t *testing.T) {
	msg := formatOverview([]domain.AnalyzedAsset{
		{Symbol: "BTCUSDT", Price: 60000, Change24h: domain.Some(2.5), Signal: domain.SignalBuy, Indicators: domain.IndicatorSnapshot{RSI: domain.Some(61.234)}, Anomaly: domain.AnomalyFlag{Triggered: true, Ratio: 4.2}},
		{Symbol: "ETHUSDT", Price: 3000, Change24h: domain.Some(-1), Signal: domain.SignalUnavailable},
	})
	if !strings.Contains(msg, "BTCUSDT $60000.0000 (+2.50%) RSI 61.23 whale 4.2x") {
		t.Fatalf("unexpected btc line: %s", msg)
	}
	if !strings.Contains(msg, "ETHUSDT $3000.0000 (-1.00%) RSI N/A") {
		t.Fatalf("expected absent RSI rendered as N/A: %s", msg)
	}
}
