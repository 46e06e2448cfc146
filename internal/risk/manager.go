package risk

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/newthinker/signalbook/internal/core"
	"go.uber.org/zap"
)

// stepsPerUnit sets the quantity resolution used when scaling: 1e-4 units.
const stepsPerUnit = 10000.0

// Rule names the check that rejected a signal.
type Rule string

const (
	RuleDailyLoss     Rule = "daily_loss_limit"
	RuleMaxPositions  Rule = "max_open_positions"
	RulePositionSize  Rule = "position_size"
	RuleBalance       Rule = "insufficient_balance"
	RuleInvalidSignal Rule = "invalid_signal"
)

// Exit reasons reported by CheckExitConditions.
const (
	ExitStopLoss   = "stop_loss"
	ExitTakeProfit = "take_profit"
)

// Decision represents the outcome of a pre-execution risk check.
type Decision struct {
	// Allowed indicates whether the signal may be executed.
	Allowed bool
	// Reason explains a rejection.
	Reason string
	// Rule is the check that rejected the signal.
	Rule Rule
	// AdjustedQuantity is set when the quantity was scaled down to fit the size cap.
	AdjustedQuantity float64
	// Levels are the protective prices for an allowed signal, computed from
	// the same settings the checks ran under.
	Levels Levels
}

// Quantity returns the quantity to execute for a signal requesting requested.
func (d Decision) Quantity(requested float64) float64 {
	if d.AdjustedQuantity > 0 {
		return d.AdjustedQuantity
	}
	return requested
}

// Levels holds computed protective price levels.
type Levels struct {
	StopLoss   float64 `json:"stop_loss"`
	TakeProfit float64 `json:"take_profit"`
}

// ExitDecision reports whether an open trade should be force-closed.
type ExitDecision struct {
	ShouldClose bool
	Reason      string
}

// Manager owns the risk settings and applies them to execution and exit
// decisions. Every decision reads the settings current at call time.
type Manager struct {
	mu       sync.RWMutex
	settings Settings
	now      func() time.Time
	logger   *zap.Logger
}

// NewManager creates a Manager with the given settings.
func NewManager(settings Settings, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		settings: settings,
		now:      time.Now,
		logger:   logger,
	}
}

// SetClock replaces the time source used for daily-loss rollover.
func (m *Manager) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// Settings returns a copy of the current settings.
func (m *Manager) Settings() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings
}

// UpdateSettings applies a partial update. The merged settings must validate;
// on failure the current settings are left unchanged.
func (m *Manager) UpdateSettings(u SettingsUpdate) (Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := u.Apply(m.settings)
	if err := next.Validate(); err != nil {
		return m.settings, err
	}
	m.settings = next
	m.logger.Info("risk settings updated",
		zap.Float64("max_daily_loss", next.MaxDailyLoss),
		zap.Float64("max_position_size", next.MaxPositionSize),
		zap.Int("max_open_positions", next.MaxOpenPositions),
		zap.Float64("risk_per_trade_pct", next.RiskPerTradePct),
	)
	return next, nil
}

// ValidateSignalExecution reads the settings once and checks, in order, the daily loss limit, the open
// position count, the position size cap and the balance for BUY orders. The
// first failing check wins. A signal over the size cap is scaled down rather
// than rejected unless the scaled quantity rounds to zero.
//
// The account's daily-loss counter is reset first when the calendar day has
// changed; that is the only mutation.
func (m *Manager) ValidateSignalExecution(sig core.TradingSignal, acct *core.TradingAccount, open []core.PaperTrade) Decision {
	s := m.Settings()

	if sig.Price <= 0 || sig.Quantity <= 0 {
		return reject(RuleInvalidSignal, fmt.Sprintf("invalid price or quantity: %v x %v", sig.Price, sig.Quantity))
	}

	// Check daily loss limit
	if s.DailyLossLimitEnabled {
		m.ResetDailyLossIfNeeded(acct)
		if acct.DailyLossUsed >= s.MaxDailyLoss {
			return reject(RuleDailyLoss, fmt.Sprintf("daily loss limit reached: %.2f >= %.2f", acct.DailyLossUsed, s.MaxDailyLoss))
		}
	}

	// Check max open positions
	var openCount int
	for _, t := range open {
		if t.IsOpen() {
			openCount++
		}
	}
	if openCount >= s.MaxOpenPositions {
		return reject(RuleMaxPositions, fmt.Sprintf("max open positions reached: %d >= %d", openCount, s.MaxOpenPositions))
	}

	// Check position size cap
	decision := Decision{Allowed: true}
	quantity := sig.Quantity
	limit := PositionCap(s, acct.Balance)
	if sig.Notional() > limit {
		scaled := scaleQuantity(limit, sig.Price)
		if scaled <= 0 {
			return reject(RulePositionSize, fmt.Sprintf("position size too large: %.2f > %.2f", sig.Notional(), limit))
		}
		decision.AdjustedQuantity = scaled
		quantity = scaled
		m.logger.Debug("signal quantity scaled to fit position cap",
			zap.String("signal_id", sig.ID),
			zap.Float64("requested", sig.Quantity),
			zap.Float64("adjusted", scaled),
			zap.Float64("cap", limit),
		)
	}

	// Check balance for BUY orders
	if sig.Direction == core.DirectionBuy {
		cost := quantity * sig.Price
		if cost > acct.Balance {
			return reject(RuleBalance, fmt.Sprintf("insufficient balance: need %.2f, have %.2f", cost, acct.Balance))
		}
	}

	decision.Levels = levelsFor(s, sig)
	return decision
}

// PositionCap returns the notional cap for a single position: the lesser of
// the flat maximum and the risk-per-trade share of balance.
func PositionCap(s Settings, balance float64) float64 {
	byRisk := balance * s.RiskPerTradePct / 100
	if byRisk < 0 {
		byRisk = 0
	}
	return math.Min(s.MaxPositionSize, byRisk)
}

// scaleQuantity returns the largest quantity step multiple whose notional at
// price does not exceed limit.
func scaleQuantity(limit, price float64) float64 {
	if limit <= 0 || price <= 0 {
		return 0
	}
	steps := math.Floor(limit/price*stepsPerUnit + 1e-9)
	for steps > 0 && steps/stepsPerUnit*price > limit {
		steps--
	}
	return steps / stepsPerUnit
}

func reject(rule Rule, reason string) Decision {
	return Decision{Allowed: false, Rule: rule, Reason: reason}
}

// ResetDailyLossIfNeeded zeroes the daily-loss counter on first use after the
// calendar day changes. It reports whether a reset happened.
func (m *Manager) ResetDailyLossIfNeeded(acct *core.TradingAccount) bool {
	m.mu.RLock()
	now := m.now()
	m.mu.RUnlock()

	if !acct.LastResetDate.IsZero() && core.SameDay(now, acct.LastResetDate) {
		return false
	}

	y, mo, d := now.Date()
	previous := acct.DailyLossUsed
	acct.DailyLossUsed = 0
	acct.LastResetDate = time.Date(y, mo, d, 0, 0, 0, 0, now.Location())

	m.logger.Debug("daily loss counter reset",
		zap.Float64("previous", previous),
		zap.Time("date", acct.LastResetDate),
	)
	return true
}

// RecordLoss adds a realized loss to the daily counter. Gains and zero
// amounts are ignored; loss is the magnitude of the loss.
func (m *Manager) RecordLoss(acct *core.TradingAccount, loss float64) {
	m.ResetDailyLossIfNeeded(acct)
	if loss <= 0 {
		return
	}
	acct.DailyLossUsed += loss

	m.logger.Debug("loss recorded",
		zap.Float64("loss", loss),
		zap.Float64("daily_loss_used", acct.DailyLossUsed),
	)
}

// CalculateRiskLevels returns stop-loss and take-profit prices at the
// configured percentage offsets from the signal price. For BUY the stop sits
// below entry; for SELL it is mirrored.
func (m *Manager) CalculateRiskLevels(sig core.TradingSignal) Levels {
	return levelsFor(m.Settings(), sig)
}

func levelsFor(s Settings, sig core.TradingSignal) Levels {
	sl := s.StopLossPct / 100
	tp := s.TakeProfitPct / 100

	if sig.Direction == core.DirectionSell {
		return Levels{
			StopLoss:   sig.Price * (1 + sl),
			TakeProfit: sig.Price * (1 - tp),
		}
	}
	return Levels{
		StopLoss:   sig.Price * (1 - sl),
		TakeProfit: sig.Price * (1 + tp),
	}
}

// CheckExitConditions compares price against the trade's stored levels. A
// level of zero is treated as absent; disabled auto toggles suppress the
// corresponding exit.
func (m *Manager) CheckExitConditions(trade core.PaperTrade, price float64) ExitDecision {
	if !trade.IsOpen() || (trade.StopLoss <= 0 && trade.TakeProfit <= 0) {
		return ExitDecision{}
	}
	s := m.Settings()

	stopHit, targetHit := false, false
	switch trade.Direction {
	case core.DirectionBuy:
		stopHit = trade.StopLoss > 0 && price <= trade.StopLoss
		targetHit = trade.TakeProfit > 0 && price >= trade.TakeProfit
	case core.DirectionSell:
		stopHit = trade.StopLoss > 0 && price >= trade.StopLoss
		targetHit = trade.TakeProfit > 0 && price <= trade.TakeProfit
	}

	if stopHit && s.AutoStopLoss {
		return ExitDecision{ShouldClose: true, Reason: ExitStopLoss}
	}
	if targetHit && s.AutoTakeProfit {
		return ExitDecision{ShouldClose: true, Reason: ExitTakeProfit}
	}
	return ExitDecision{}
}

// CalculatePortfolioHeat returns the aggregate worst-case loss of open
// positions, if all were stopped out, as a percentage of balance.
func (m *Manager) CalculatePortfolioHeat(open []core.PaperTrade, balance float64) float64 {
	return PortfolioHeat(m.Settings(), open, balance)
}

// PortfolioHeat is CalculatePortfolioHeat under the given settings.
func PortfolioHeat(s Settings, open []core.PaperTrade, balance float64) float64 {
	if balance <= 0 {
		return 0
	}

	var atRisk float64
	for _, t := range open {
		if !t.IsOpen() {
			continue
		}
		price := t.CurrentPrice
		if price <= 0 {
			price = t.EntryPrice
		}
		atRisk += price * t.Quantity * s.StopLossPct / 100
	}
	return atRisk / balance * 100
}
