package core

import (
	"testing"
	"time"
)

func TestParseSymbol(t *testing.T) {
	tests := []struct {
		in   string
		want Symbol
		ok   bool
	}{
		{"BTC", SymbolBTC, true},
		{"btc", SymbolBTC, true},
		{" gold ", SymbolGold, true},
		{"SILVER", SymbolSilver, true},
		{"DOGE", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseSymbol(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseSymbol(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseDirection(t *testing.T) {
	tests := []struct {
		in   string
		want Direction
		ok   bool
	}{
		{"buy", DirectionBuy, true},
		{"LONG", DirectionBuy, true},
		{"Sell", DirectionSell, true},
		{"short", DirectionSell, true},
		{"hold", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseDirection(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseDirection(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestSignalStatus_CanTransition(t *testing.T) {
	if !SignalPending.CanTransition(SignalExecuted) {
		t.Error("pending -> executed should be allowed")
	}
	if !SignalPending.CanTransition(SignalFailed) {
		t.Error("pending -> failed should be allowed")
	}
	if SignalExecuted.CanTransition(SignalFailed) {
		t.Error("executed -> failed should not be allowed")
	}
	if SignalFailed.CanTransition(SignalPending) {
		t.Error("failed -> pending should not be allowed")
	}
	if SignalPending.CanTransition(SignalPending) {
		t.Error("pending -> pending should not be allowed")
	}
}

func TestTradingSignal_Validate(t *testing.T) {
	valid := TradingSignal{Symbol: SymbolBTC, Direction: DirectionBuy, Price: 44500, Quantity: 0.1}
	if err := valid.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	bad := valid
	bad.Symbol = "DOGE"
	if err := bad.Validate(); err != ErrUnknownSymbol {
		t.Errorf("expected ErrUnknownSymbol, got %v", err)
	}

	bad = valid
	bad.Quantity = 0
	if err := bad.Validate(); err != ErrInvalidSignal {
		t.Errorf("expected ErrInvalidSignal, got %v", err)
	}
}

func TestPaperTrade_PnLAt(t *testing.T) {
	buy := PaperTrade{Direction: DirectionBuy, EntryPrice: 44500, Quantity: 0.1}
	if got := buy.PnLAt(46000); got < 149.999 || got > 150.001 {
		t.Errorf("BUY pnl = %f, want 150", got)
	}

	sell := PaperTrade{Direction: DirectionSell, EntryPrice: 2000, Quantity: 2}
	if got := sell.PnLAt(1990); got != 20 {
		t.Errorf("SELL pnl = %f, want 20", got)
	}
}

func TestSameDay(t *testing.T) {
	base := time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC)
	if !SameDay(base, base.Add(30*time.Second)) {
		t.Error("expected same day")
	}
	if SameDay(base, base.Add(2*time.Minute)) {
		t.Error("expected different day after midnight")
	}
}
