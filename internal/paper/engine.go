// Package paper simulates a single cash account trading signals against a
// synthetic price feed.
package paper

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/signalbook/internal/core"
	"github.com/newthinker/signalbook/internal/risk"
	"go.uber.org/zap"
)

// CloseManual is the close reason for caller-initiated closes.
const CloseManual = "manual"

// Config holds engine configuration.
type Config struct {
	// InitialBalance seeds the account.
	InitialBalance float64 `mapstructure:"initial_balance"`
	// AccountType tags the account.
	AccountType string `mapstructure:"account_type"`
	// ReferencePrices seeds the quote table; only these symbols are tracked.
	ReferencePrices map[core.Symbol]float64 `mapstructure:"reference_prices"`
	// TickJitterPct bounds the per-refresh move of a reference price, in percent.
	TickJitterPct float64 `mapstructure:"tick_jitter_pct"`
	// QuoteJitterPct bounds a trade's quote around the reference price, in percent.
	QuoteJitterPct float64 `mapstructure:"quote_jitter_pct"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		InitialBalance: 10000,
		AccountType:    "paper",
		ReferencePrices: map[core.Symbol]float64{
			core.SymbolBTC:    45000,
			core.SymbolETH:    2500,
			core.SymbolGold:   2000,
			core.SymbolSilver: 25,
		},
		TickJitterPct:  0.5,
		QuoteJitterPct: 1,
	}
}

// RandSource supplies uniform values in [0, 1). *rand.Rand satisfies it.
type RandSource interface {
	Float64() float64
}

// Recorder receives engine events for metrics.
type Recorder interface {
	RecordExecution(symbol, result string)
	RecordClose(symbol, reason string, pnl float64)
	RecordRefresh(duration float64)
	SetAccountState(balance float64, openPositions int)
}

type nopRecorder struct{}

func (nopRecorder) RecordExecution(string, string)      {}
func (nopRecorder) RecordClose(string, string, float64) {}
func (nopRecorder) RecordRefresh(float64)               {}
func (nopRecorder) SetAccountState(float64, int)        {}

// Snapshot is a consistent copy of engine state.
type Snapshot struct {
	Account core.TradingAccount `json:"account"`
	Trades  []core.PaperTrade   `json:"trades"`
	Quotes  []core.MarketPrice  `json:"quotes"`
	TakenAt time.Time           `json:"taken_at"`
}

// Engine owns the simulated account, the trade list and the quote table.
// All mutations are serialized by a single lock; queries return copies.
type Engine struct {
	mu       sync.RWMutex
	cfg      Config
	risk     *risk.Manager
	account  core.TradingAccount
	trades   []*core.PaperTrade
	index    map[string]*core.PaperTrade
	signals  map[string]core.SignalStatus
	feed     *feed
	rand     RandSource
	now      func() time.Time
	newID    func() string
	logger   *zap.Logger
	recorder Recorder
}

// NewEngine creates an engine with a fresh account funded at cfg.InitialBalance.
func NewEngine(cfg Config, rm *risk.Manager, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.AccountType == "" {
		cfg.AccountType = "paper"
	}
	if len(cfg.ReferencePrices) == 0 {
		cfg.ReferencePrices = DefaultConfig().ReferencePrices
	}

	e := &Engine{
		cfg:  cfg,
		risk: rm,
		account: core.TradingAccount{
			Balance:     cfg.InitialBalance,
			AccountType: cfg.AccountType,
		},
		index:    make(map[string]*core.PaperTrade),
		signals:  make(map[string]core.SignalStatus),
		rand:     rand.New(rand.NewSource(time.Now().UnixNano())),
		now:      time.Now,
		newID:    uuid.NewString,
		logger:   logger,
		recorder: nopRecorder{},
	}
	e.feed = newFeed(cfg.ReferencePrices, e.now())
	return e
}

// SetRecorder sets the metrics recorder.
func (e *Engine) SetRecorder(r Recorder) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if r == nil {
		r = nopRecorder{}
	}
	e.recorder = r
}

// SetRandSource replaces the source of price noise.
func (e *Engine) SetRandSource(r RandSource) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rand = r
}

// SetClock replaces the engine time source.
func (e *Engine) SetClock(now func() time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = now
}

// ExecuteSignal opens a trade for a pending signal. The risk manager is
// consulted first; a rejection leaves the account and trade list untouched
// and marks the signal failed. A signal id can be executed at most once.
func (e *Engine) ExecuteSignal(sig core.TradingSignal) (*core.PaperTrade, error) {
	if sig.ID == "" {
		return nil, core.WrapError(core.ErrInvalidSignal, errors.New("signal id is required"))
	}
	if err := sig.Validate(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	switch status, seen := e.signals[sig.ID]; {
	case seen && status == core.SignalExecuted:
		return nil, core.WrapError(core.ErrDuplicateSignal, fmt.Errorf("signal %s", sig.ID))
	case seen:
		return nil, core.WrapError(core.ErrSignalNotPending, fmt.Errorf("signal %s is %s", sig.ID, status))
	case sig.Status != "" && sig.Status != core.SignalPending:
		return nil, core.WrapError(core.ErrSignalNotPending, fmt.Errorf("signal %s is %s", sig.ID, sig.Status))
	}

	decision := e.risk.ValidateSignalExecution(sig, &e.account, e.openTradesLocked())
	if !decision.Allowed {
		e.signals[sig.ID] = core.SignalFailed
		e.recorder.RecordExecution(string(sig.Symbol), string(decision.Rule))
		e.logger.Info("signal rejected",
			zap.String("signal_id", sig.ID),
			zap.String("symbol", string(sig.Symbol)),
			zap.String("direction", string(sig.Direction)),
			zap.String("rule", string(decision.Rule)),
			zap.String("reason", decision.Reason),
		)
		if decision.Rule == risk.RuleBalance {
			return nil, core.WrapError(core.ErrInsufficientBalance, errors.New(decision.Reason))
		}
		return nil, core.WrapError(core.ErrRiskRejected, errors.New(decision.Reason))
	}

	qty := decision.Quantity(sig.Quantity)
	notional := sig.Price * qty

	// Opening a BUY consumes cash; opening a SELL generates it.
	if sig.Direction == core.DirectionBuy {
		e.account.Balance -= notional
	} else {
		e.account.Balance += notional
	}

	levels := decision.Levels
	now := e.now()
	trade := &core.PaperTrade{
		ID:           e.newID(),
		SignalID:     sig.ID,
		Symbol:       sig.Symbol,
		Direction:    sig.Direction,
		EntryPrice:   sig.Price,
		Quantity:     qty,
		CurrentPrice: sig.Price,
		Status:       core.TradeOpen,
		ExecutedAt:   now,
		StopLoss:     levels.StopLoss,
		TakeProfit:   levels.TakeProfit,
	}
	updateDerived(trade, now)

	e.trades = append(e.trades, trade)
	e.index[trade.ID] = trade
	e.signals[sig.ID] = core.SignalExecuted

	e.recorder.RecordExecution(string(sig.Symbol), "executed")
	e.recorder.SetAccountState(e.account.Balance, len(e.openTradesLocked()))
	e.logger.Info("trade opened",
		zap.String("trade_id", trade.ID),
		zap.String("signal_id", sig.ID),
		zap.String("symbol", string(trade.Symbol)),
		zap.String("direction", string(trade.Direction)),
		zap.Float64("entry", trade.EntryPrice),
		zap.Float64("quantity", qty),
		zap.Bool("scaled", decision.AdjustedQuantity > 0),
		zap.Float64("balance", e.account.Balance),
	)

	out := trade.Clone()
	return &out, nil
}

// CloseTrade settles an open trade at its current quote.
func (e *Engine) CloseTrade(id string) (*core.PaperTrade, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	trade, ok := e.index[id]
	if !ok {
		return nil, core.WrapError(core.ErrTradeNotFound, fmt.Errorf("trade %s", id))
	}
	if err := e.closeLocked(trade, CloseManual); err != nil {
		return nil, err
	}
	out := trade.Clone()
	return &out, nil
}

// closeLocked reverses the opening cash movement at the current quote and
// freezes the trade. Losses count against the daily limit.
func (e *Engine) closeLocked(trade *core.PaperTrade, reason string) error {
	if !trade.IsOpen() {
		return core.WrapError(core.ErrTradeAlreadyClosed, fmt.Errorf("trade %s", trade.ID))
	}

	value := trade.CurrentValue()
	if trade.Direction == core.DirectionBuy {
		e.account.Balance += value
	} else {
		e.account.Balance -= value
	}

	now := e.now()
	trade.PnL = trade.PnLAt(trade.CurrentPrice)
	trade.Status = core.TradeClosed
	trade.ClosedAt = &now
	trade.CloseReason = reason
	updateDerived(trade, now)

	if trade.PnL < 0 {
		e.risk.RecordLoss(&e.account, -trade.PnL)
	}

	e.recorder.RecordClose(string(trade.Symbol), reason, trade.PnL)
	e.recorder.SetAccountState(e.account.Balance, len(e.openTradesLocked()))
	e.logger.Info("trade closed",
		zap.String("trade_id", trade.ID),
		zap.String("symbol", string(trade.Symbol)),
		zap.String("reason", reason),
		zap.Float64("exit", trade.CurrentPrice),
		zap.Float64("pnl", trade.PnL),
		zap.Float64("balance", e.account.Balance),
	)
	return nil
}

// RefreshPrices advances the synthetic feed one tick, re-quotes every open
// trade and auto-closes those whose stop-loss or take-profit is hit. The pass
// runs under the engine lock, so ticks never overlap. It returns copies of
// the trades closed during the pass.
func (e *Engine) RefreshPrices() []core.PaperTrade {
	start := time.Now()

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	e.feed.tick(now, e.cfg.TickJitterPct, e.rand)

	var closed []core.PaperTrade
	for _, trade := range e.trades {
		if !trade.IsOpen() {
			continue
		}
		ref, ok := e.feed.price(trade.Symbol)
		if !ok {
			continue
		}

		trade.CurrentPrice = ref * (1 + jitter(e.rand, e.cfg.QuoteJitterPct))
		trade.PnL = trade.PnLAt(trade.CurrentPrice)
		updateDerived(trade, now)

		exit := e.risk.CheckExitConditions(*trade, trade.CurrentPrice)
		if !exit.ShouldClose {
			continue
		}
		if err := e.closeLocked(trade, exit.Reason); err != nil {
			e.logger.Error("auto-close failed", zap.String("trade_id", trade.ID), zap.Error(err))
			continue
		}
		closed = append(closed, trade.Clone())
	}

	e.recorder.RecordRefresh(time.Since(start).Seconds())
	e.logger.Debug("prices refreshed",
		zap.Int("open", len(e.openTradesLocked())),
		zap.Int("closed", len(closed)),
	)
	return closed
}

// updateDerived recomputes holding duration, return and in-trade drawdown.
func updateDerived(t *core.PaperTrade, now time.Time) {
	end := now
	if t.ClosedAt != nil {
		end = *t.ClosedAt
	}
	t.HoldingDuration = end.Sub(t.ExecutedAt)

	if entry := t.EntryValue(); entry > 0 {
		t.ReturnPct = t.PnL / entry * 100
	}
	if -t.ReturnPct > t.MaxDrawdownPct {
		t.MaxDrawdownPct = -t.ReturnPct
	}
}

// jitter returns a uniform relative move in [-pct%, +pct%].
func jitter(r RandSource, pct float64) float64 {
	if pct <= 0 {
		return 0
	}
	return (r.Float64()*2 - 1) * pct / 100
}

func (e *Engine) openTradesLocked() []core.PaperTrade {
	open := make([]core.PaperTrade, 0, len(e.trades))
	for _, t := range e.trades {
		if t.IsOpen() {
			open = append(open, t.Clone())
		}
	}
	return open
}
