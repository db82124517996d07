package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	tele "gopkg.in/telebot.v3"

	"market-pulse/internal/domain"
)

func TestParseAlertMode(t *testing.T) {
	mode, err := parseAlertMode(nil)
	if err != nil || mode != "status" {
		t.Fatalf("expected default status mode, got mode=%q err=%v", mode, err)
	}

	mode, err = parseAlertMode([]string{"on"})
	if err != nil || mode != "on" {
		t.Fatalf("expected on mode, got mode=%q err=%v", mode, err)
	}

	mode, err = parseAlertMode([]string{"OFF"})
	if err != nil || mode != "off" {
		t.Fatalf("expected off mode, got mode=%q err=%v", mode, err)
	}

	if _, err := parseAlertMode([]string{"nope"}); err == nil {
		t.Fatal("expected invalid mode error")
	}
}

func TestAlertDispatcherNotify(t *testing.T) {
	sender := &fakeSender{}
	dispatcher := NewAlertDispatcher(sender, 99)

	if !dispatcher.Subscribe(10) {
		t.Fatal("expected initial subscribe to return true")
	}
	if dispatcher.Subscribe(10) {
		t.Fatal("expected duplicate subscribe to return false")
	}

	if !dispatcher.Notify(context.Background(), "BTCUSDT", domain.SignalBuy, 60000, "Breakout above resistance.") {
		t.Fatal("expected notify to report delivery")
	}
	if len(sender.messages[10]) != 1 || len(sender.messages[99]) != 1 {
		t.Fatalf("expected one message per recipient, got %+v", sender.messages)
	}
	body := sender.messages[99][0]
	for _, want := range []string{"BTCUSDT", "$60000.00", "BUY", "Breakout above resistance."} {
		if !strings.Contains(body, want) {
			t.Fatalf("alert body missing %q: %s", want, body)
		}
	}
	if sender.modes[99] != tele.ModeHTML {
		t.Fatalf("expected HTML parse mode, got %q", sender.modes[99])
	}
}

func TestFormatAlertMessageEscapesReasoningAndKeepsSmallPrices(t *testing.T) {
	body := formatAlertMessage("PEPEUSDT", domain.SignalSell, 0.00001234, "RSI_14 <30 & *oversold* bounce_failed")
	if !strings.Contains(body, "RSI_14 &lt;30 &amp; *oversold* bounce_failed") {
		t.Fatalf("expected escaped reasoning: %s", body)
	}
	if !strings.Contains(body, "$0.00001234") {
		t.Fatalf("expected sub-cent precision: %s", body)
	}
	if strings.Contains(body, "$0.00\n") {
		t.Fatalf("price rounded away: %s", body)
	}
}

func TestAlertDispatcherNotifyFailuresReturnFalse(t *testing.T) {
	sender := &fakeSender{err: errors.New("telegram down")}
	dispatcher := NewAlertDispatcher(sender, 5)
	if dispatcher.Notify(context.Background(), "ETHUSDT", domain.SignalSell, 3000, "x") {
		t.Fatal("expected failed delivery to return false")
	}

	var nilDispatcher *AlertDispatcher
	if nilDispatcher.Notify(context.Background(), "ETHUSDT", domain.SignalSell, 3000, "x") {
		t.Fatal("expected nil dispatcher to return false")
	}
}

func TestAlertDispatcherUnsubscribe(t *testing.T) {
	sender := &fakeSender{}
	dispatcher := NewAlertDispatcher(sender, 0)

	dispatcher.Subscribe(10)
	if !dispatcher.Unsubscribe(10) {
		t.Fatal("expected unsubscribe to return true")
	}
	if dispatcher.Unsubscribe(10) {
		t.Fatal("expected second unsubscribe to return false")
	}
	if dispatcher.Notify(context.Background(), "ETHUSDT", domain.SignalSell, 1, "x") {
		t.Fatal("expected no delivery without recipients")
	}
	if len(sender.messages) != 0 {
		t.Fatalf("expected zero outgoing messages, got %+v", sender.messages)
	}
}

type fakeSender struct {
	messages map[int64][]string
	modes    map[int64]tele.ParseMode
	err      error
}

func (f *fakeSender) Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.messages == nil {
		f.messages = make(map[int64][]string)
		f.modes = make(map[int64]tele.ParseMode)
	}

	chat, ok := to.(*tele.Chat)
	if !ok {
		return nil, fmt.Errorf("unexpected recipient type %T", to)
	}
	f.messages[chat.ID] = append(f.messages[chat.ID], fmt.Sprint(what))
	for _, opt := range opts {
		if mode, ok := opt.(tele.ParseMode); ok {
			f.modes[chat.ID] = mode
		}
	}
	return &tele.Message{}, nil
}
