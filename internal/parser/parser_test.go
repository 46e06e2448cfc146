package parser

import (
	"testing"
	"time"

	"github.com/newthinker/signalbook/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_ValidMessages(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		symbol    core.Symbol
		direction core.Direction
		price     float64
	}{
		{"action at price", "BUY BTC @ 44500", core.SymbolBTC, core.DirectionBuy, 44500},
		{"lowercase action", "sell eth @ 2450.5", core.SymbolETH, core.DirectionSell, 2450.5},
		{"dollar separator", "SELL GOLD $2,015.50 now", core.SymbolGold, core.DirectionSell, 2015.50},
		{"long is buy", "LONG SILVER @ $24.80", core.SymbolSilver, core.DirectionBuy, 24.80},
		{"short is sell", "Short BTC @ 46,100", core.SymbolBTC, core.DirectionSell, 46100},
		{"trailing period", "BUY GOLD @ 2000.", core.SymbolGold, core.DirectionBuy, 2000},
		{"decorated long", "🚀 BTC Long 🚀 Entry: 44500", core.SymbolBTC, core.DirectionBuy, 44500},
		{"decorated short", "🔴 ETH Short Entry: 2,450", core.SymbolETH, core.DirectionSell, 2450},
		{"decorated with filler", "New BTC setup, going long. Entry 44200", core.SymbolBTC, core.DirectionBuy, 44200},
		{"emoji only direction", "🟢 GOLD 🟢 Entry: 2000", core.SymbolGold, core.DirectionBuy, 2000},
		{"bearish emoji only", "SILVER 📉 entry: $25.10", core.SymbolSilver, core.DirectionSell, 25.10},
		{"signal prefix", "Signal: BUY BTC 44500", core.SymbolBTC, core.DirectionBuy, 44500},
		{"signal prefix sell", "signal: sell gold $1990", core.SymbolGold, core.DirectionSell, 1990},
		{"multiline", "VIP ALERT\nBUY ETH @ 2500\nTP soon", core.SymbolETH, core.DirectionBuy, 2500},
		{"trailing comma", "BUY BTC @ 44,500, tp 46,000", core.SymbolBTC, core.DirectionBuy, 44500},
		{"trailing exclamation", "SELL ETH @ 2400!", core.SymbolETH, core.DirectionSell, 2400},
		{"emoji after price", "BTC Long Entry: 44500🚀", core.SymbolBTC, core.DirectionBuy, 44500},
	}

	p := New(DefaultConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, ok := p.Parse(tt.text, "vip")
			require.True(t, ok, "expected a signal for %q", tt.text)
			assert.Equal(t, tt.symbol, sig.Symbol)
			assert.Equal(t, tt.direction, sig.Direction)
			assert.InDelta(t, tt.price, sig.Price, 1e-9)
		})
	}
}

func TestParse_InvalidMessages(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"chatter", "good morning traders, coffee first"},
		{"missing symbol", "BUY @ 44500"},
		{"missing action", "BTC @ 44500"},
		{"missing price", "BUY BTC now"},
		{"unsupported symbol", "BUY DOGE @ 0.25"},
		{"unsupported decorated", "🚀 DOGE Long Entry: 0.25"},
		{"malformed price", "BUY BTC @ 44.5.3"},
		{"non numeric price", "BUY BTC @ abc"},
		{"zero price", "BUY BTC @ 0"},
		{"conflicting vocabulary", "GOLD 🚀📉 Entry: 2000"},
		{"no direction vocabulary", "SILVER Entry: 25"},
		{"signal prefix without price", "Signal: BUY BTC"},
		{"letter inside price", "BTC Long Entry: 4x500"},
		{"letters after price", "BUY BTC @ 44500abc"},
		{"misplaced thousands separators", "BUY BTC @ 44,5,00"},
		{"unbroken digits with separator", "BUY BTC @ 12345,678"},
		{"suffixed price", "Signal: BUY BTC 44500k"},
		{"bearish emoji against long", "🔴 BTC Long Entry: 44500"},
		{"bearish vocabulary against buy", "BUY BTC @ 44500 📉 dump incoming"},
	}

	p := New(DefaultConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, ok := p.Parse(tt.text, "vip")
			assert.False(t, ok)
			assert.Nil(t, sig)
		})
	}
}

func TestParse_PopulatesSignal(t *testing.T) {
	fixed := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	p := New(DefaultConfig())
	p.now = func() time.Time { return fixed }
	p.newID = func() string { return "sig-1" }

	sig, ok := p.Parse("BUY BTC @ 44500", "alpha")
	require.True(t, ok)

	assert.Equal(t, "sig-1", sig.ID)
	assert.Equal(t, "alpha", sig.Channel)
	assert.Equal(t, "BUY BTC @ 44500", sig.RawText)
	assert.Equal(t, fixed, sig.ParsedAt)
	assert.Equal(t, core.SignalPending, sig.Status)
	assert.Equal(t, 0.1, sig.Quantity)
	assert.Nil(t, sig.Confidence)
	assert.Empty(t, sig.RiskLevel)
	assert.Zero(t, sig.StopLoss)
}

func TestParse_QuantityFromConfig(t *testing.T) {
	p := New(Config{DefaultQuantities: map[core.Symbol]float64{core.SymbolGold: 3}})

	sig, ok := p.Parse("BUY GOLD @ 2000", "c")
	require.True(t, ok)
	assert.Equal(t, 3.0, sig.Quantity)

	// Symbols absent from the config keep their defaults.
	sig, ok = p.Parse("BUY ETH @ 2500", "c")
	require.True(t, ok)
	assert.Equal(t, 1.0, sig.Quantity)
}

func TestParse_FirstGrammarWins(t *testing.T) {
	p := New(DefaultConfig())

	// Matches both the action-at-price and signal-prefix shapes.
	sig, ok := p.Parse("Signal: SELL ETH @ 2400", "c")
	require.True(t, ok)
	assert.Equal(t, core.DirectionSell, sig.Direction)
	assert.Equal(t, 2400.0, sig.Price)
}

func TestScanDirection(t *testing.T) {
	tests := []struct {
		text string
		want core.Direction
		ok   bool
	}{
		{"to the moon 🚀", core.DirectionBuy, true},
		{"bearish divergence", core.DirectionSell, true},
		{"📈 calls", core.DirectionBuy, true},
		{"🩸 dump incoming", core.DirectionSell, true},
		{"long and short", "", false},
		{"nothing here", "", false},
	}

	for _, tt := range tests {
		got, ok := ScanDirection(tt.text)
		assert.Equal(t, tt.want, got, tt.text)
		assert.Equal(t, tt.ok, ok, tt.text)
	}
}
