package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/newthinker/signalbook/internal/api/response"
	"github.com/newthinker/signalbook/internal/app"
	"github.com/newthinker/signalbook/internal/config"
	"github.com/newthinker/signalbook/internal/core"
	"github.com/newthinker/signalbook/internal/storage/signal"
)

func newTestApp(t *testing.T, opts ...func(*config.Config)) *app.App {
	t.Helper()
	cfg := config.Defaults()
	cfg.Market.TickJitterPct = 0
	cfg.Market.QuoteJitterPct = 0
	for _, opt := range opts {
		opt(cfg)
	}
	a, err := app.New(cfg, nil)
	if err != nil {
		t.Fatalf("creating app: %v", err)
	}
	return a
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp response.SuccessResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	data, ok := resp.Data.(map[string]any)
	if !ok {
		t.Fatalf("expected object data, got %T", resp.Data)
	}
	return data
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) response.ErrorDetail {
	t.Helper()
	var resp response.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding error: %v", err)
	}
	return resp.Error
}

func TestSignalsHandler_List(t *testing.T) {
	store := signal.NewMemoryStore(100)
	store.Save(context.Background(), core.TradingSignal{
		Symbol:    core.SymbolBTC,
		Direction: core.DirectionBuy,
		Price:     44500,
		Quantity:  0.1,
		Channel:   "vip",
	})

	handler := NewSignalsHandler(store, nil)

	req := httptest.NewRequest("GET", "/api/signals", nil)
	w := httptest.NewRecorder()

	handler.List(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	data := decodeData(t, w)
	signals := data["signals"].([]any)
	if len(signals) != 1 {
		t.Errorf("expected 1 signal, got %d", len(signals))
	}
	if data["limit"].(float64) != 50 {
		t.Errorf("expected default limit 50, got %v", data["limit"])
	}
}

func TestSignalsHandler_ListWithFilters(t *testing.T) {
	store := signal.NewMemoryStore(100)
	store.Save(context.Background(), core.TradingSignal{Symbol: core.SymbolBTC, Direction: core.DirectionBuy, Channel: "vip"})
	store.Save(context.Background(), core.TradingSignal{Symbol: core.SymbolGold, Direction: core.DirectionSell, Channel: "free"})

	handler := NewSignalsHandler(store, nil)

	tests := []struct {
		query string
		want  int
	}{
		{"symbol=btc", 1},
		{"direction=sell", 1},
		{"channel=free", 1},
		{"status=pending", 2},
		{"status=executed", 0},
	}

	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/api/signals?"+tt.query, nil)
		w := httptest.NewRecorder()
		handler.List(w, req)

		signals := decodeData(t, w)["signals"].([]any)
		if len(signals) != tt.want {
			t.Errorf("%s: expected %d signals, got %d", tt.query, tt.want, len(signals))
		}
	}
}

func TestSignalsHandler_ListBadFilter(t *testing.T) {
	handler := NewSignalsHandler(signal.NewMemoryStore(10), nil)

	for _, q := range []string{"symbol=DOGE", "direction=hold"} {
		req := httptest.NewRequest("GET", "/api/signals?"+q, nil)
		w := httptest.NewRecorder()
		handler.List(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", q, w.Code)
		}
	}
}

func TestSignalsHandler_GetByID(t *testing.T) {
	store := signal.NewMemoryStore(100)
	saved, _ := store.Save(context.Background(), core.TradingSignal{Symbol: core.SymbolETH})

	handler := NewSignalsHandler(store, nil)

	req := httptest.NewRequest("GET", "/api/signals/"+saved.ID, nil)
	req.SetPathValue("id", saved.ID)
	w := httptest.NewRecorder()

	handler.GetByID(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestSignalsHandler_GetByID_NotFound(t *testing.T) {
	handler := NewSignalsHandler(signal.NewMemoryStore(100), nil)

	req := httptest.NewRequest("GET", "/api/signals/nonexistent", nil)
	req.SetPathValue("id", "nonexistent")
	w := httptest.NewRecorder()

	handler.GetByID(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestSignalsHandler_Create(t *testing.T) {
	a := newTestApp(t)
	handler := NewSignalsHandler(a.Signals(), a)

	req := httptest.NewRequest("POST", "/api/signals", strings.NewReader(`{"text":"BUY BTC @ 44500","channel":"vip"}`))
	w := httptest.NewRecorder()
	handler.Create(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	data := decodeData(t, w)
	if data["parsed"] != true {
		t.Errorf("expected parsed=true")
	}
	trade := data["trade"].(map[string]any)
	if trade["entry_price"].(float64) != 44500 {
		t.Errorf("unexpected entry price %v", trade["entry_price"])
	}
	if len(a.Engine().OpenTrades()) != 1 {
		t.Errorf("expected one open trade")
	}
}

func TestSignalsHandler_CreateNoSignal(t *testing.T) {
	a := newTestApp(t)
	handler := NewSignalsHandler(a.Signals(), a)

	req := httptest.NewRequest("POST", "/api/signals", strings.NewReader(`{"text":"gm everyone"}`))
	w := httptest.NewRecorder()
	handler.Create(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if decodeData(t, w)["parsed"] != false {
		t.Errorf("expected parsed=false")
	}
}

func TestSignalsHandler_CreateErrors(t *testing.T) {
	a := newTestApp(t, func(c *config.Config) { c.Risk.MaxOpenPositions = 1 })
	if _, err := a.Ingest(context.Background(), "BUY BTC @ 44500", "vip"); err != nil {
		t.Fatalf("seeding trade: %v", err)
	}
	handler := NewSignalsHandler(a.Signals(), a)

	tests := []struct {
		name string
		body string
		want int
		code string
	}{
		{"malformed json", `{"text":`, http.StatusBadRequest, "BAD_REQUEST"},
		{"empty text", `{"text":"  "}`, http.StatusBadRequest, "BAD_REQUEST"},
		{"position limit", `{"text":"SELL GOLD @ 2000"}`, http.StatusUnprocessableEntity, "RISK_REJECTED"},
	}

	for _, tt := range tests {
		req := httptest.NewRequest("POST", "/api/signals", strings.NewReader(tt.body))
		w := httptest.NewRecorder()
		handler.Create(w, req)

		if w.Code != tt.want {
			t.Errorf("%s: expected %d, got %d", tt.name, tt.want, w.Code)
		}
		if got := decodeError(t, w).Code; got != tt.code {
			t.Errorf("%s: expected code %s, got %s", tt.name, tt.code, got)
		}
	}
}
