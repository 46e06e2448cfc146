package paper

import (
	"fmt"

	"github.com/newthinker/signalbook/internal/core"
)

// Account returns a copy of the account.
func (e *Engine) Account() core.TradingAccount {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.account
}

// Trades returns copies of all trades in execution order.
func (e *Engine) Trades() []core.PaperTrade {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.filterLocked(func(*core.PaperTrade) bool { return true })
}

// OpenTrades returns copies of the open trades.
func (e *Engine) OpenTrades() []core.PaperTrade {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.openTradesLocked()
}

// ClosedTrades returns copies of the closed trades.
func (e *Engine) ClosedTrades() []core.PaperTrade {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.filterLocked(func(t *core.PaperTrade) bool { return !t.IsOpen() })
}

// Trade returns a copy of a single trade.
func (e *Engine) Trade(id string) (core.PaperTrade, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	t, ok := e.index[id]
	if !ok {
		return core.PaperTrade{}, core.WrapError(core.ErrTradeNotFound, fmt.Errorf("trade %s", id))
	}
	return t.Clone(), nil
}

// Quotes returns the current quote table in display order.
func (e *Engine) Quotes() []core.MarketPrice {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.feed.quotes()
}

// Quote returns the current quote for sym.
func (e *Engine) Quote(sym core.Symbol) (core.MarketPrice, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.feed.states[sym]
	if !ok {
		return core.MarketPrice{}, false
	}
	return s.quote, true
}

// SignalStatus reports what the engine did with a signal id.
func (e *Engine) SignalStatus(id string) (core.SignalStatus, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.signals[id]
	return s, ok
}

// TotalPnL sums the P&L of all trades, open and closed.
func (e *Engine) TotalPnL() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var total float64
	for _, t := range e.trades {
		total += t.PnL
	}
	return total
}

// WinRate returns the percentage of closed trades with positive P&L.
func (e *Engine) WinRate() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var closed, wins int
	for _, t := range e.trades {
		if t.IsOpen() {
			continue
		}
		closed++
		if t.IsWin() {
			wins++
		}
	}
	if closed == 0 {
		return 0
	}
	return float64(wins) / float64(closed) * 100
}

// PortfolioHeat returns the open risk as a percentage of balance.
func (e *Engine) PortfolioHeat() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.risk.CalculatePortfolioHeat(e.openTradesLocked(), e.account.Balance)
}

// Snapshot returns account, trades and quotes taken under one lock.
func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Snapshot{
		Account: e.account,
		Trades:  e.filterLocked(func(*core.PaperTrade) bool { return true }),
		Quotes:  e.feed.quotes(),
		TakenAt: e.now(),
	}
}

// InitialBalance returns the configured starting balance.
func (e *Engine) InitialBalance() float64 {
	return e.cfg.InitialBalance
}

func (e *Engine) filterLocked(keep func(*core.PaperTrade) bool) []core.PaperTrade {
	out := make([]core.PaperTrade, 0, len(e.trades))
	for _, t := range e.trades {
		if keep(t) {
			out = append(out, t.Clone())
		}
	}
	return out
}
