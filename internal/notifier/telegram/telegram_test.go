package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/newthinker/signalbook/internal/analytics"
	"github.com/newthinker/signalbook/internal/core"
	"github.com/newthinker/signalbook/internal/notifier"
)

func TestTelegram_ImplementsNotifier(t *testing.T) {
	var _ notifier.Notifier = (*Telegram)(nil)
}

func TestTelegram_Name(t *testing.T) {
	tg := New("token", "chatid")
	if tg.Name() != "telegram" {
		t.Errorf("expected 'telegram', got '%s'", tg.Name())
	}
}

func TestTelegram_Init(t *testing.T) {
	tg := &Telegram{}

	cfg := notifier.Config{
		Params: map[string]any{
			"bot_token": "test-token",
			"chat_id":   "test-chat",
		},
	}

	err := tg.Init(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if tg.botToken != "test-token" {
		t.Errorf("expected bot_token 'test-token', got '%s'", tg.botToken)
	}
	if tg.chatID != "test-chat" {
		t.Errorf("expected chat_id 'test-chat', got '%s'", tg.chatID)
	}
	if tg.baseURL != DefaultBaseURL {
		t.Errorf("expected default base url, got '%s'", tg.baseURL)
	}
}

func TestTelegram_Init_Missing(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]any
	}{
		{"missing token", map[string]any{"chat_id": "test-chat"}},
		{"missing chat", map[string]any{"bot_token": "test-token"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tg := &Telegram{}
			if err := tg.Init(notifier.Config{Params: tt.params}); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestTelegram_Send(t *testing.T) {
	var receivedPath string
	var receivedPayload map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&receivedPayload)
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer server.Close()

	tg := New("test-token", "test-chat")
	tg.baseURL = server.URL

	event := notifier.Event{
		Kind: notifier.EventOpened,
		Trade: &core.PaperTrade{
			Symbol:     core.SymbolBTC,
			Direction:  core.DirectionBuy,
			EntryPrice: 44500,
			Quantity:   0.1,
			StopLoss:   43610,
			TakeProfit: 46280,
			ExecutedAt: time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC),
		},
	}

	if err := tg.Send(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if receivedPath != "/bottest-token/sendMessage" {
		t.Errorf("unexpected path %s", receivedPath)
	}
	if receivedPayload["chat_id"] != "test-chat" {
		t.Errorf("expected chat_id test-chat, got %v", receivedPayload["chat_id"])
	}
	if receivedPayload["parse_mode"] != "Markdown" {
		t.Errorf("expected Markdown parse mode, got %v", receivedPayload["parse_mode"])
	}
	text, _ := receivedPayload["text"].(string)
	for _, want := range []string{"BTC", "BUY", "44500.00", "43610.00", "46280.00", "2026-01-15 10:30:00"} {
		if !strings.Contains(text, want) {
			t.Errorf("message should contain %q: %s", want, text)
		}
	}
}

func TestTelegram_Send_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{"ok": false, "description": "Unauthorized"})
	}))
	defer server.Close()

	tg := New("bad", "chat")
	tg.baseURL = server.URL

	err := tg.Send(context.Background(), notifier.Event{Kind: notifier.EventRejected})
	if !errors.Is(err, core.ErrNotifierFailed) {
		t.Errorf("expected ErrNotifierFailed, got %v", err)
	}
}

func TestFormatEvent_Closed(t *testing.T) {
	formatted := formatEvent(notifier.Event{
		Kind: notifier.EventClosed,
		Trade: &core.PaperTrade{
			Symbol:          core.SymbolGold,
			Direction:       core.DirectionSell,
			EntryPrice:      2000,
			CurrentPrice:    2040,
			PnL:             -40,
			ReturnPct:       -2,
			CloseReason:     "stop_loss",
			HoldingDuration: 90 * time.Minute,
		},
	})

	for _, want := range []string{"❌", "GOLD", "stop_loss", "-40.00", "1h30m0s"} {
		if !strings.Contains(formatted, want) {
			t.Errorf("closed message should contain %q: %s", want, formatted)
		}
	}
}

func TestFormatEvent_Rejected(t *testing.T) {
	formatted := formatEvent(notifier.Event{
		Kind:   notifier.EventRejected,
		Signal: &core.TradingSignal{Symbol: core.SymbolETH, Direction: core.DirectionSell, Price: 2500},
		Reason: "max open positions reached: 5 >= 5",
	})

	if !strings.Contains(formatted, "SELL ETH @ $2500.00") {
		t.Errorf("unexpected message: %s", formatted)
	}
	if !strings.Contains(formatted, "max open positions") {
		t.Error("rejected message should contain reason")
	}
}

func TestFormatEvent_Report(t *testing.T) {
	formatted := formatEvent(notifier.Event{
		Kind:    notifier.EventReport,
		Balance: 10150,
		Metrics: &analytics.Metrics{ClosedTrades: 1, WinRate: 100, TotalPnL: 150},
		Time:    time.Now(),
	})

	for _, want := range []string{"Daily Report", "10150.00", "100.0%", "150.00"} {
		if !strings.Contains(formatted, want) {
			t.Errorf("report should contain %q: %s", want, formatted)
		}
	}
}

func TestTelegram_SendBatch_Empty(t *testing.T) {
	tg := New("token", "chat")

	err := tg.SendBatch(context.Background(), nil)
	if err != nil {
		t.Errorf("empty batch should not return error: %v", err)
	}
}
