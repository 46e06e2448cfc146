package core

import (
	"strings"
	"time"
)

// Symbol identifies a supported instrument
type Symbol string

const (
	SymbolBTC    Symbol = "BTC"
	SymbolETH    Symbol = "ETH"
	SymbolGold   Symbol = "GOLD"
	SymbolSilver Symbol = "SILVER"
)

// SupportedSymbols returns the closed set of tradable instruments in display order
func SupportedSymbols() []Symbol {
	return []Symbol{SymbolBTC, SymbolETH, SymbolGold, SymbolSilver}
}

// ParseSymbol resolves a ticker to a supported Symbol. Unsupported tickers are
// rejected, never coerced.
func ParseSymbol(s string) (Symbol, bool) {
	sym := Symbol(strings.ToUpper(strings.TrimSpace(s)))
	if sym.IsValid() {
		return sym, true
	}
	return "", false
}

// IsValid reports whether the symbol is in the supported set
func (s Symbol) IsValid() bool {
	switch s {
	case SymbolBTC, SymbolETH, SymbolGold, SymbolSilver:
		return true
	}
	return false
}

// IsCrypto reports whether the symbol trades around the clock
func (s Symbol) IsCrypto() bool {
	return s == SymbolBTC || s == SymbolETH
}

// Direction is the side of a trade
type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
)

// ParseDirection maps BUY/LONG and SELL/SHORT to a Direction
func ParseDirection(s string) (Direction, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY", "LONG":
		return DirectionBuy, true
	case "SELL", "SHORT":
		return DirectionSell, true
	}
	return "", false
}

// IsValid reports whether d is BUY or SELL
func (d Direction) IsValid() bool {
	return d == DirectionBuy || d == DirectionSell
}

// SignalStatus tracks the outcome of a signal
type SignalStatus string

const (
	SignalPending  SignalStatus = "pending"
	SignalExecuted SignalStatus = "executed"
	SignalFailed   SignalStatus = "failed"
)

// CanTransition reports whether a signal may move from s to next.
// Only pending -> executed and pending -> failed are allowed.
func (s SignalStatus) CanTransition(next SignalStatus) bool {
	return s == SignalPending && (next == SignalExecuted || next == SignalFailed)
}

// TradeStatus tracks the lifecycle of a paper trade
type TradeStatus string

const (
	TradeOpen   TradeStatus = "open"
	TradeClosed TradeStatus = "closed"
)

// RiskLevel is a categorical risk label
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// TradingSignal is a structured trade proposal derived from free text
type TradingSignal struct {
	ID        string       `json:"id"`
	Channel   string       `json:"channel"`
	Symbol    Symbol       `json:"symbol"`
	Direction Direction    `json:"direction"`
	Price     float64      `json:"price"`
	Quantity  float64      `json:"quantity"`
	RawText   string       `json:"raw_text"`
	ParsedAt  time.Time    `json:"parsed_at"`
	Status    SignalStatus `json:"status"`

	// Populated by downstream collaborators, never by the parser.
	Confidence *float64  `json:"confidence,omitempty"`
	RiskLevel  RiskLevel `json:"risk_level,omitempty"`
	StopLoss   float64   `json:"stop_loss,omitempty"`
	TakeProfit float64   `json:"take_profit,omitempty"`
}

// Clone returns a copy that shares no memory with s.
func (s TradingSignal) Clone() TradingSignal {
	if s.Confidence != nil {
		c := *s.Confidence
		s.Confidence = &c
	}
	return s
}

// Notional returns price x quantity
func (s TradingSignal) Notional() float64 {
	return s.Price * s.Quantity
}

// Validate checks the core fields required for execution
func (s TradingSignal) Validate() error {
	if !s.Symbol.IsValid() {
		return ErrUnknownSymbol
	}
	if !s.Direction.IsValid() || s.Price <= 0 || s.Quantity <= 0 {
		return ErrInvalidSignal
	}
	return nil
}

// PaperTrade is a simulated position opened from a signal
type PaperTrade struct {
	ID           string      `json:"id"`
	SignalID     string      `json:"signal_id"`
	Symbol       Symbol      `json:"symbol"`
	Direction    Direction   `json:"direction"`
	EntryPrice   float64     `json:"entry_price"`
	Quantity     float64     `json:"quantity"`
	CurrentPrice float64     `json:"current_price"`
	PnL          float64     `json:"pnl"`
	Status       TradeStatus `json:"status"`
	ExecutedAt   time.Time   `json:"executed_at"`
	ClosedAt     *time.Time  `json:"closed_at,omitempty"`
	StopLoss     float64     `json:"stop_loss,omitempty"`
	TakeProfit   float64     `json:"take_profit,omitempty"`
	CloseReason  string      `json:"close_reason,omitempty"`

	// Derived metrics
	HoldingDuration time.Duration `json:"holding_duration"`
	ReturnPct       float64       `json:"return_pct"`
	MaxDrawdownPct  float64       `json:"max_drawdown_pct"`
}

// Clone returns a copy that shares no memory with t.
func (t PaperTrade) Clone() PaperTrade {
	if t.ClosedAt != nil {
		at := *t.ClosedAt
		t.ClosedAt = &at
	}
	return t
}

// IsOpen returns true while the trade has not been closed
func (t PaperTrade) IsOpen() bool {
	return t.Status == TradeOpen
}

// IsWin returns true if the trade is profitable
func (t PaperTrade) IsWin() bool {
	return t.PnL > 0
}

// EntryValue returns the notional value at entry
func (t PaperTrade) EntryValue() float64 {
	return t.EntryPrice * t.Quantity
}

// CurrentValue returns the notional value at the current price
func (t PaperTrade) CurrentValue() float64 {
	return t.CurrentPrice * t.Quantity
}

// PnLAt returns the profit/loss the trade would carry at price
func (t PaperTrade) PnLAt(price float64) float64 {
	if t.Direction == DirectionSell {
		return (t.EntryPrice - price) * t.Quantity
	}
	return (price - t.EntryPrice) * t.Quantity
}

// TradingAccount is the simulated cash account
type TradingAccount struct {
	Balance       float64   `json:"balance"`
	AccountType   string    `json:"account_type"`
	DailyLossUsed float64   `json:"daily_loss_used"`
	LastResetDate time.Time `json:"last_reset_date"`
}

// MarketPrice is the quote state for one symbol
type MarketPrice struct {
	Symbol    Symbol    `json:"symbol"`
	Price     float64   `json:"price"`
	Change24h float64   `json:"change_24h"`
	UpdatedAt time.Time `json:"updated_at"`

	// Indicator fields consumed only by scoring collaborators.
	RSI        float64 `json:"rsi,omitempty"`
	Volatility float64 `json:"volatility,omitempty"`
	Volume24h  float64 `json:"volume_24h,omitempty"`
}

// SameDay reports whether a and b fall on the same calendar day in a's location
func SameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Message is one inbound chat message awaiting parsing
type Message struct {
	Channel    string    `json:"channel"`
	Text       string    `json:"text"`
	ReceivedAt time.Time `json:"received_at"`
}
