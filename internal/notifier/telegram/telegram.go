// Package telegram talks to the Telegram Bot API: it sends trade events and
// polls chats for new alert messages.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/newthinker/signalbook/internal/core"
	"github.com/newthinker/signalbook/internal/notifier"
)

// DefaultBaseURL is the public Bot API endpoint.
const DefaultBaseURL = "https://api.telegram.org"

// Telegram implements the Notifier interface for Telegram Bot API
type Telegram struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
}

// New creates a new Telegram notifier
func New(botToken, chatID string) *Telegram {
	return &Telegram{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  DefaultBaseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (t *Telegram) Name() string {
	return "telegram"
}

func (t *Telegram) Init(cfg notifier.Config) error {
	if token, ok := cfg.Params["bot_token"].(string); ok {
		t.botToken = token
	}
	if chatID, ok := cfg.Params["chat_id"].(string); ok {
		t.chatID = chatID
	}
	if base, ok := cfg.Params["base_url"].(string); ok && base != "" {
		t.baseURL = strings.TrimRight(base, "/")
	}
	if t.baseURL == "" {
		t.baseURL = DefaultBaseURL
	}
	if t.client == nil {
		t.client = &http.Client{Timeout: 30 * time.Second}
	}

	if t.botToken == "" {
		return fmt.Errorf("telegram: bot_token is required")
	}
	if t.chatID == "" {
		return fmt.Errorf("telegram: chat_id is required")
	}

	return nil
}

func (t *Telegram) Send(ctx context.Context, event notifier.Event) error {
	return t.sendMessage(ctx, formatEvent(event))
}

func (t *Telegram) SendBatch(ctx context.Context, events []notifier.Event) error {
	if len(events) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📊 *%d Trade Events*\n\n", len(events)))

	for i, event := range events {
		sb.WriteString(formatEvent(event))
		if i < len(events)-1 {
			sb.WriteString("\n---\n\n")
		}
	}

	return t.sendMessage(ctx, sb.String())
}

func formatEvent(event notifier.Event) string {
	switch event.Kind {
	case notifier.EventOpened:
		return formatOpened(event)
	case notifier.EventClosed:
		return formatClosed(event)
	case notifier.EventRejected:
		return formatRejected(event)
	case notifier.EventReport:
		return formatReport(event)
	}
	return fmt.Sprintf("ℹ️ %s", event.Kind)
}

func directionEmoji(d core.Direction) string {
	if d == core.DirectionSell {
		return "📉"
	}
	return "📈"
}

func formatOpened(event notifier.Event) string {
	var sb strings.Builder
	tr := event.Trade
	if tr == nil {
		return "📈 *Trade opened*"
	}

	sb.WriteString(fmt.Sprintf("%s *%s* %s opened\n", directionEmoji(tr.Direction), tr.Symbol, tr.Direction))
	sb.WriteString(fmt.Sprintf("💰 Entry: $%.2f x %.4f\n", tr.EntryPrice, tr.Quantity))
	if tr.StopLoss > 0 {
		sb.WriteString(fmt.Sprintf("🛑 Stop: $%.2f\n", tr.StopLoss))
	}
	if tr.TakeProfit > 0 {
		sb.WriteString(fmt.Sprintf("🎯 Target: $%.2f\n", tr.TakeProfit))
	}
	if event.Signal != nil && event.Signal.Channel != "" {
		sb.WriteString(fmt.Sprintf("📣 Source: %s\n", event.Signal.Channel))
	}
	sb.WriteString(fmt.Sprintf("⏰ Time: %s", tr.ExecutedAt.Format("2006-01-02 15:04:05")))

	return sb.String()
}

func formatClosed(event notifier.Event) string {
	var sb strings.Builder
	tr := event.Trade
	if tr == nil {
		return "✅ *Trade closed*"
	}

	emoji := "✅"
	if tr.PnL < 0 {
		emoji = "❌"
	}
	sb.WriteString(fmt.Sprintf("%s *%s* %s closed (%s)\n", emoji, tr.Symbol, tr.Direction, tr.CloseReason))
	sb.WriteString(fmt.Sprintf("💰 $%.2f → $%.2f\n", tr.EntryPrice, tr.CurrentPrice))
	sb.WriteString(fmt.Sprintf("📊 P&L: $%.2f (%.2f%%)\n", tr.PnL, tr.ReturnPct))
	sb.WriteString(fmt.Sprintf("⏱ Held: %s", tr.HoldingDuration.Round(time.Second)))

	return sb.String()
}

func formatRejected(event notifier.Event) string {
	var sb strings.Builder
	sb.WriteString("⚠️ *Signal rejected*\n")
	if s := event.Signal; s != nil {
		sb.WriteString(fmt.Sprintf("%s %s @ $%.2f\n", s.Direction, s.Symbol, s.Price))
	}
	if event.Reason != "" {
		sb.WriteString(fmt.Sprintf("💡 Reason: %s", event.Reason))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatReport(event notifier.Event) string {
	var sb strings.Builder
	sb.WriteString("📋 *Daily Report*\n")
	sb.WriteString(fmt.Sprintf("💵 Balance: $%.2f\n", event.Balance))
	if m := event.Metrics; m != nil {
		sb.WriteString(fmt.Sprintf("📊 Trades: %d closed, %d open\n", m.ClosedTrades, m.OpenTrades))
		sb.WriteString(fmt.Sprintf("🏆 Win rate: %.1f%%\n", m.WinRate))
		sb.WriteString(fmt.Sprintf("💰 P&L: $%.2f\n", m.TotalPnL))
		sb.WriteString(fmt.Sprintf("📉 Max drawdown: %.2f%%\n", m.MaxDrawdownPct))
	}
	sb.WriteString(fmt.Sprintf("⏰ Time: %s", event.Time.Format("2006-01-02 15:04:05")))
	return sb.String()
}

func (t *Telegram) sendMessage(ctx context.Context, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.botToken)

	payload := map[string]any{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram: failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return core.WrapError(core.ErrNotifierFailed, fmt.Errorf("telegram: failed to send message: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var result map[string]any
		json.NewDecoder(resp.Body).Decode(&result)
		return core.WrapError(core.ErrNotifierFailed, fmt.Errorf("telegram: API error (status %d): %v", resp.StatusCode, result))
	}

	return nil
}
