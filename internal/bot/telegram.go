package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"market-pulse/internal/domain"
)

type OverviewRunner interface {
	Run(ctx context.Context, symbols []string) ([]domain.AnalyzedAsset, error)
}

type StatsReader interface {
	Snapshot() domain.StatsSnapshot
}

type TelegramBot struct {
	bot    *tele.Bot
	Alerts *AlertDispatcher
}

// NewTelegramBot returns nil when no token is configured.
func NewTelegramBot(token string, chatID int64) (*TelegramBot, error) {
	if strings.TrimSpace(token) == "" {
		log.Warn().Msg("TELEGRAM_BOT_TOKEN not set, skipping Telegram bot startup")
		return nil, nil
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &TelegramBot{bot: b, Alerts: NewAlertDispatcher(b, chatID)}, nil
}

// Start registers command handlers and begins long polling in the background.
func (t *TelegramBot) Start(overview OverviewRunner, stats StatsReader) {
	if t == nil {
		return
	}
	b := t.bot
	alerts := t.Alerts

	b.Handle("/ping", func(c tele.Context) error {
		return c.Send("pong")
	})

	b.Handle("/overview", func(c tele.Context) error {
		if overview == nil {
			return c.Send("Market overview unavailable")
		}
		_ = c.Notify(tele.Typing)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		assets, err := overview.Run(ctx, parseSymbols(c.Args()))
		if err != nil {
			return c.Send(fmt.Sprintf("Error running overview: %v", err))
		}
		if len(assets) == 0 {
			return c.Send("No market data available right now.")
		}
		return c.Send(formatOverview(assets))
	})

	b.Handle("/stats", func(c tele.Context) error {
		if stats == nil {
			return c.Send("Stats unavailable")
		}
		s := stats.Snapshot()
		return c.Send(fmt.Sprintf(
			"Predictions: %d hits / %d misses (%.1f%% win rate)\nTokens: %d in / %d out",
			s.Hits, s.Misses, s.WinRate(), s.PromptTokens, s.CompletionTokens,
		))
	})

	b.Handle("/alerts", func(c tele.Context) error {
		chat := c.Chat()
		if chat == nil {
			return c.Send("Unable to detect chat")
		}

		mode, err := parseAlertMode(c.Args())
		if err != nil {
			return c.Send("Usage: /alerts on | /alerts off | /alerts status")
		}

		switch mode {
		case "on":
			if alerts.Subscribe(chat.ID) {
				return c.Send("Signal alerts enabled for this chat.")
			}
			return c.Send("Signal alerts are already enabled for this chat.")
		case "off":
			if alerts.Unsubscribe(chat.ID) {
				return c.Send("Signal alerts disabled for this chat.")
			}
			return c.Send("Signal alerts are already disabled for this chat.")
		default:
			if alerts.IsSubscribed(chat.ID) {
				return c.Send("Alerts status: ON")
			}
			return c.Send("Alerts status: OFF")
		}
	})

	log.Info().Msg("Telegram bot started")
	go b.Start()
}

func (t *TelegramBot) Stop() {
	if t == nil {
		return
	}
	t.bot.Stop()
}

func parseSymbols(args []string) []string {
	out := make([]string, 0, len(args))
	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			if s := strings.ToUpper(strings.TrimSpace(part)); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func formatOverview(assets []domain.AnalyzedAsset) string {
	lines := make([]string, 0, len(assets)+1)
	lines = append(lines, "Market overview:")
	for _, a := range assets {
		change := "N/A"
		if a.Change24h.Valid {
			change = fmt.Sprintf("%+.2f%%", a.Change24h.Value)
		}
		line := fmt.Sprintf("%s %s $%.4f (%s) RSI %s",
			signalIcon(a.Signal), a.Symbol, a.Price, change, a.Indicators.RSI)
		if a.Anomaly.Triggered {
			line += fmt.Sprintf(" whale %.1fx", a.Anomaly.Ratio)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
