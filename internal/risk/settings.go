// Package risk gates signal execution and evaluates open positions against
// the configured risk policy.
package risk

import (
	"fmt"

	"github.com/newthinker/signalbook/internal/core"
)

// Settings defines the risk policy.
type Settings struct {
	// MaxDailyLoss is the realized loss (account currency) after which new executions are refused.
	MaxDailyLoss float64 `mapstructure:"max_daily_loss" json:"max_daily_loss"`
	// MaxPositionSize is the absolute notional cap for a single position.
	MaxPositionSize float64 `mapstructure:"max_position_size" json:"max_position_size"`
	// StopLossPct is the distance from entry to the stop, in percent.
	StopLossPct float64 `mapstructure:"stop_loss_pct" json:"stop_loss_pct"`
	// TakeProfitPct is the distance from entry to the target, in percent.
	TakeProfitPct float64 `mapstructure:"take_profit_pct" json:"take_profit_pct"`
	// MaxOpenPositions is the maximum number of concurrently open trades.
	MaxOpenPositions int `mapstructure:"max_open_positions" json:"max_open_positions"`
	// RiskPerTradePct caps a position's notional at this percentage of balance.
	RiskPerTradePct float64 `mapstructure:"risk_per_trade_pct" json:"risk_per_trade_pct"`

	AutoStopLoss          bool `mapstructure:"auto_stop_loss" json:"auto_stop_loss"`
	AutoTakeProfit        bool `mapstructure:"auto_take_profit" json:"auto_take_profit"`
	DailyLossLimitEnabled bool `mapstructure:"daily_loss_limit_enabled" json:"daily_loss_limit_enabled"`
}

// DefaultSettings returns Settings with sensible default values.
func DefaultSettings() Settings {
	return Settings{
		MaxDailyLoss:          500,
		MaxPositionSize:       5000,
		StopLossPct:           2,
		TakeProfitPct:         4,
		MaxOpenPositions:      5,
		RiskPerTradePct:       50,
		AutoStopLoss:          true,
		AutoTakeProfit:        true,
		DailyLossLimitEnabled: true,
	}
}

// Validate checks that every limit is usable.
func (s Settings) Validate() error {
	switch {
	case s.MaxDailyLoss <= 0:
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("max_daily_loss must be positive, got %v", s.MaxDailyLoss))
	case s.MaxPositionSize <= 0:
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("max_position_size must be positive, got %v", s.MaxPositionSize))
	case s.StopLossPct <= 0 || s.StopLossPct >= 100:
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("stop_loss_pct must be in (0, 100), got %v", s.StopLossPct))
	case s.TakeProfitPct <= 0:
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("take_profit_pct must be positive, got %v", s.TakeProfitPct))
	case s.MaxOpenPositions < 1:
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("max_open_positions must be at least 1, got %d", s.MaxOpenPositions))
	case s.RiskPerTradePct <= 0 || s.RiskPerTradePct > 100:
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("risk_per_trade_pct must be in (0, 100], got %v", s.RiskPerTradePct))
	}
	return nil
}

// SettingsUpdate is a partial update; nil fields keep their current value.
type SettingsUpdate struct {
	MaxDailyLoss          *float64 `json:"max_daily_loss,omitempty"`
	MaxPositionSize       *float64 `json:"max_position_size,omitempty"`
	StopLossPct           *float64 `json:"stop_loss_pct,omitempty"`
	TakeProfitPct         *float64 `json:"take_profit_pct,omitempty"`
	MaxOpenPositions      *int     `json:"max_open_positions,omitempty"`
	RiskPerTradePct       *float64 `json:"risk_per_trade_pct,omitempty"`
	AutoStopLoss          *bool    `json:"auto_stop_loss,omitempty"`
	AutoTakeProfit        *bool    `json:"auto_take_profit,omitempty"`
	DailyLossLimitEnabled *bool    `json:"daily_loss_limit_enabled,omitempty"`
}

// Apply returns s with the non-nil fields of u applied.
func (u SettingsUpdate) Apply(s Settings) Settings {
	if u.MaxDailyLoss != nil {
		s.MaxDailyLoss = *u.MaxDailyLoss
	}
	if u.MaxPositionSize != nil {
		s.MaxPositionSize = *u.MaxPositionSize
	}
	if u.StopLossPct != nil {
		s.StopLossPct = *u.StopLossPct
	}
	if u.TakeProfitPct != nil {
		s.TakeProfitPct = *u.TakeProfitPct
	}
	if u.MaxOpenPositions != nil {
		s.MaxOpenPositions = *u.MaxOpenPositions
	}
	if u.RiskPerTradePct != nil {
		s.RiskPerTradePct = *u.RiskPerTradePct
	}
	if u.AutoStopLoss != nil {
		s.AutoStopLoss = *u.AutoStopLoss
	}
	if u.AutoTakeProfit != nil {
		s.AutoTakeProfit = *u.AutoTakeProfit
	}
	if u.DailyLossLimitEnabled != nil {
		s.DailyLossLimitEnabled = *u.DailyLossLimitEnabled
	}
	return s
}
