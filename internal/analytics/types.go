// Package analytics derives performance and risk statistics from a trade
// history. Every function is pure: the input slice is never modified.
package analytics

import "time"

// PeriodsPerYear annualizes per-trade Sharpe and Sortino ratios.
const PeriodsPerYear = 252

// HistogramBins is the number of P&L histogram bins.
const HistogramBins = 10

// SortinoNoDownside is reported when returns are positive with no losses.
const SortinoNoDownside = 999.0

// Confidence level used for VaR and expected shortfall.
const tailConfidence = 0.95

// Metrics holds the core performance statistics.
type Metrics struct {
	TotalTrades     int `json:"total_trades"`
	OpenTrades      int `json:"open_trades"`
	ClosedTrades    int `json:"closed_trades"`
	WinningTrades   int `json:"winning_trades"`
	LosingTrades    int `json:"losing_trades"`
	BreakevenTrades int `json:"breakeven_trades"`

	WinRate        float64 `json:"win_rate"` // percentage
	TotalPnL       float64 `json:"total_pnl"`
	TotalReturnPct float64 `json:"total_return_pct"`
	AvgWin         float64 `json:"avg_win"`
	AvgLoss        float64 `json:"avg_loss"` // absolute value
	ProfitFactor   float64 `json:"profit_factor"`
	SharpeRatio    float64 `json:"sharpe_ratio"`
	MaxDrawdown    float64 `json:"max_drawdown"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
	CalmarRatio    float64 `json:"calmar_ratio"`

	AvgHoldingPeriod time.Duration `json:"avg_holding_period"`
	BestTrade        float64       `json:"best_trade"`
	WorstTrade       float64       `json:"worst_trade"`

	LongestWinStreak  int `json:"longest_win_streak"`
	LongestLossStreak int `json:"longest_loss_streak"`

	// Tail statistics over per-trade percentage returns; losses are negative.
	ValueAtRisk95       float64 `json:"value_at_risk_95"`
	ExpectedShortfall95 float64 `json:"expected_shortfall_95"`
}

// EquityPoint is one point on the running-balance curve.
type EquityPoint struct {
	Time        time.Time `json:"time"`
	Balance     float64   `json:"balance"`
	TradeID     string    `json:"trade_id,omitempty"`
	PnL         float64   `json:"pnl"`
	Drawdown    float64   `json:"drawdown"`     // currency below the running peak
	DrawdownPct float64   `json:"drawdown_pct"` // percent below the running peak
}

// Bin is one histogram bucket covering [Lower, Upper).
type Bin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// Outcomes tallies closed trades by result.
type Outcomes struct {
	Wins      int `json:"wins"`
	Losses    int `json:"losses"`
	Breakeven int `json:"breakeven"`
}

// MonthlyPnL aggregates realized P&L per calendar month.
type MonthlyPnL struct {
	Month  string  `json:"month"` // YYYY-MM
	PnL    float64 `json:"pnl"`
	Trades int     `json:"trades"`
}

// Distribution groups closed trades by size, outcome and month.
type Distribution struct {
	Histogram []Bin        `json:"histogram"`
	Outcomes  Outcomes     `json:"outcomes"`
	Monthly   []MonthlyPnL `json:"monthly"`
}

// ExtendedMetrics holds secondary risk-adjusted statistics.
type ExtendedMetrics struct {
	UlcerIndex       float64 `json:"ulcer_index"`
	SortinoRatio     float64 `json:"sortino_ratio"`
	InformationRatio float64 `json:"information_ratio"`
	TreynorRatio     float64 `json:"treynor_ratio"`
	RecoveryFactor   float64 `json:"recovery_factor"`
	PayoffRatio      float64 `json:"payoff_ratio"`
	Expectancy       float64 `json:"expectancy"`
}

// Report bundles every view computed from one trade snapshot.
type Report struct {
	Metrics      Metrics         `json:"metrics"`
	Extended     ExtendedMetrics `json:"extended"`
	Equity       []EquityPoint   `json:"equity"`
	Distribution Distribution    `json:"distribution"`
}
