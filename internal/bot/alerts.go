package bot

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"market-pulse/internal/domain"
	"market-pulse/internal/marketctx"
)

type messageSender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// AlertDispatcher pushes actionable signal changes to the configured chat and
// to every chat that opted in with /alerts on.
type AlertDispatcher struct {
	sender      messageSender
	defaultChat int64

	mu          sync.RWMutex
	subscribers map[int64]struct{}
}

func NewAlertDispatcher(sender messageSender, defaultChatID int64) *AlertDispatcher {
	return &AlertDispatcher{
		sender:      sender,
		defaultChat: defaultChatID,
		subscribers: make(map[int64]struct{}),
	}
}

func (d *AlertDispatcher) Subscribe(chatID int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.subscribers[chatID]; exists {
		return false
	}
	d.subscribers[chatID] = struct{}{}
	return true
}

func (d *AlertDispatcher) Unsubscribe(chatID int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.subscribers[chatID]; !exists {
		return false
	}
	delete(d.subscribers, chatID)
	return true
}

func (d *AlertDispatcher) IsSubscribed(chatID int64) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	_, exists := d.subscribers[chatID]
	return exists
}

func (d *AlertDispatcher) SubscriberCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subscribers)
}

// Notify reports whether at least one chat received the alert. Send failures
// are logged and never returned.
func (d *AlertDispatcher) Notify(ctx context.Context, symbol string, signal domain.Signal, price float64, reasoning string) bool {
	_ = ctx
	if d == nil || d.sender == nil {
		return false
	}

	chatIDs := d.recipients()
	if len(chatIDs) == 0 {
		return false
	}

	msg := formatAlertMessage(symbol, signal, price, reasoning)
	delivered := false
	for _, chatID := range chatIDs {
		if _, err := d.sender.Send(&tele.Chat{ID: chatID}, msg, tele.ModeHTML); err != nil {
			log.Warn().Err(err).Int64("chat_id", chatID).Str("symbol", symbol).Msg("telegram alert failed")
			continue
		}
		delivered = true
	}
	return delivered
}

func (d *AlertDispatcher) recipients() []int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()

	chatIDs := make([]int64, 0, len(d.subscribers)+1)
	for chatID := range d.subscribers {
		chatIDs = append(chatIDs, chatID)
	}
	if _, subscribed := d.subscribers[d.defaultChat]; d.defaultChat != 0 && !subscribed {
		chatIDs = append(chatIDs, d.defaultChat)
	}
	sort.Slice(chatIDs, func(i, j int) bool { return chatIDs[i] < chatIDs[j] })
	return chatIDs
}

func parseAlertMode(args []string) (string, error) {
	if len(args) == 0 {
		return "status", nil
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "on":
		return "on", nil
	case "off":
		return "off", nil
	case "status":
		return "status", nil
	default:
		return "", fmt.Errorf("invalid mode")
	}
}

func signalIcon(s domain.Signal) string {
	switch s {
	case domain.SignalBuy:
		return "🟢"
	case domain.SignalSell:
		return "🔴"
	case domain.SignalHold:
		return "🟡"
	}
	return "⚪"
}

// formatAlertMessage renders HTML; model text is escaped since it may carry
// any markup characters.
func formatAlertMessage(symbol string, signal domain.Signal, price float64, reasoning string) string {
	icon := signalIcon(signal)
	return strings.Join([]string{
		fmt.Sprintf("%s <b>MARKET PULSE ALERT</b> %s", icon, icon),
		"",
		"<b>Asset:</b> " + html.EscapeString(symbol),
		"<b>Price:</b> $" + marketctx.FormatPrice(price),
		"<b>Signal:</b> " + strings.ToUpper(string(signal)),
		"",
		"<b>Analysis:</b>",
		html.EscapeString(reasoning),
	}, "\n")
}
