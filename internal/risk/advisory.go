package risk

import (
	"time"

	"github.com/newthinker/signalbook/internal/core"
)

// MaxKellyFraction caps the advisory Kelly fraction.
const MaxKellyFraction = 0.25

// KellyFraction returns the Kelly-criterion share of capital to stake given
// a win rate in [0, 1] and the average win and loss magnitudes. The result
// is clamped to [0, MaxKellyFraction]; degenerate inputs yield 0.
func KellyFraction(winRate, avgWin, avgLoss float64) float64 {
	if winRate <= 0 || avgWin <= 0 || avgLoss <= 0 {
		return 0
	}
	if winRate > 1 {
		winRate = 1
	}
	payoff := avgWin / avgLoss
	f := winRate - (1-winRate)/payoff
	switch {
	case f < 0:
		return 0
	case f > MaxKellyFraction:
		return MaxKellyFraction
	}
	return f
}

// KellyPositionSize converts the Kelly fraction into a notional amount,
// bounded by the current position cap.
func (m *Manager) KellyPositionSize(balance, winRate, avgWin, avgLoss float64) float64 {
	size := balance * KellyFraction(winRate, avgWin, avgLoss)
	if limit := PositionCap(m.Settings(), balance); size > limit {
		return limit
	}
	return size
}

// AssessRisk scores a signal LOW/MEDIUM/HIGH from quote volatility, notional
// size relative to the position cap, time of day and instrument class. The
// result is advisory and never gates execution.
func (m *Manager) AssessRisk(sig core.TradingSignal, quote core.MarketPrice, at time.Time) core.RiskLevel {
	s := m.Settings()
	score := 0

	switch {
	case quote.Volatility > 5:
		score += 2
	case quote.Volatility > 2:
		score++
	}

	notional := sig.Notional()
	switch {
	case notional > s.MaxPositionSize:
		score += 2
	case notional > s.MaxPositionSize/2:
		score++
	}

	// Thin liquidity outside the main sessions.
	if h := at.UTC().Hour(); h < 6 || h >= 22 {
		score++
	}

	if sig.Symbol.IsCrypto() {
		score++
	}

	switch {
	case score >= 4:
		return core.RiskHigh
	case score >= 2:
		return core.RiskMedium
	default:
		return core.RiskLow
	}
}
