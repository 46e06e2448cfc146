// Package webhook implements an HTTP webhook notifier
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/newthinker/signalbook/internal/core"
	"github.com/newthinker/signalbook/internal/notifier"
)

// Webhook implements the Notifier interface for HTTP webhooks
type Webhook struct {
	url     string
	headers map[string]string
	client  *http.Client
}

// New creates a new Webhook notifier
func New(url string, headers map[string]string) *Webhook {
	return &Webhook{
		url:     url,
		headers: headers,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (w *Webhook) Name() string { return "webhook" }

func (w *Webhook) Init(cfg notifier.Config) error {
	if url, ok := cfg.Params["url"].(string); ok {
		w.url = url
	}
	switch headers := cfg.Params["headers"].(type) {
	case map[string]string:
		w.headers = headers
	case map[string]any:
		w.headers = make(map[string]string, len(headers))
		for k, v := range headers {
			w.headers[k] = fmt.Sprint(v)
		}
	}

	if w.url == "" {
		return fmt.Errorf("webhook: url is required")
	}

	if w.client == nil {
		w.client = &http.Client{Timeout: 30 * time.Second}
	}

	return nil
}

func (w *Webhook) Send(ctx context.Context, event notifier.Event) error {
	return w.post(ctx, eventToPayload(event))
}

func (w *Webhook) SendBatch(ctx context.Context, events []notifier.Event) error {
	if len(events) == 0 {
		return nil
	}

	payloads := make([]map[string]any, len(events))
	for i, ev := range events {
		payloads[i] = eventToPayload(ev)
	}

	batchPayload := map[string]any{
		"type":   "batch",
		"count":  len(events),
		"events": payloads,
	}

	return w.post(ctx, batchPayload)
}

func eventToPayload(event notifier.Event) map[string]any {
	payload := map[string]any{
		"type": string(event.Kind),
		"time": event.Time.Format(time.RFC3339),
	}
	if s := event.Signal; s != nil {
		payload["signal"] = map[string]any{
			"id":        s.ID,
			"channel":   s.Channel,
			"symbol":    s.Symbol,
			"direction": s.Direction,
			"price":     s.Price,
			"quantity":  s.Quantity,
		}
	}
	if t := event.Trade; t != nil {
		trade := map[string]any{
			"id":            t.ID,
			"signal_id":     t.SignalID,
			"symbol":        t.Symbol,
			"direction":     t.Direction,
			"entry_price":   t.EntryPrice,
			"current_price": t.CurrentPrice,
			"quantity":      t.Quantity,
			"pnl":           t.PnL,
			"status":        t.Status,
			"executed_at":   t.ExecutedAt.Format(time.RFC3339),
		}
		if t.CloseReason != "" {
			trade["close_reason"] = t.CloseReason
		}
		payload["trade"] = trade
	}
	if event.Reason != "" {
		payload["reason"] = event.Reason
	}
	if event.Metrics != nil {
		payload["metrics"] = event.Metrics
		payload["balance"] = event.Balance
	}
	return payload
}

func (w *Webhook) post(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("webhook: failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return core.WrapError(core.ErrNotifierFailed, fmt.Errorf("webhook: request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return core.WrapError(core.ErrNotifierFailed, fmt.Errorf("webhook: server returned %d", resp.StatusCode))
	}

	return nil
}
