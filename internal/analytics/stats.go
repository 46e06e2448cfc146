package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/newthinker/signalbook/internal/core"
)

// Calculate computes core performance statistics. Only closed trades
// contribute to P&L figures; open trades are counted.
func Calculate(trades []core.PaperTrade, initialBalance float64) Metrics {
	if len(trades) == 0 {
		return Metrics{}
	}

	closed := closedChronological(trades)
	m := Metrics{
		TotalTrades:  len(trades),
		OpenTrades:   len(trades) - len(closed),
		ClosedTrades: len(closed),
	}
	if len(closed) == 0 {
		return m
	}

	var grossWin, grossLoss float64
	var holding time.Duration
	returns := make([]float64, 0, len(closed))

	m.BestTrade = closed[0].PnL
	m.WorstTrade = closed[0].PnL
	for _, t := range closed {
		switch {
		case t.PnL > 0:
			m.WinningTrades++
			grossWin += t.PnL
		case t.PnL < 0:
			m.LosingTrades++
			grossLoss += -t.PnL
		default:
			m.BreakevenTrades++
		}
		m.TotalPnL += t.PnL
		m.BestTrade = math.Max(m.BestTrade, t.PnL)
		m.WorstTrade = math.Min(m.WorstTrade, t.PnL)
		holding += t.HoldingDuration
		returns = append(returns, tradeReturn(t))
	}

	m.WinRate = float64(m.WinningTrades) / float64(len(closed)) * 100
	if m.WinningTrades > 0 {
		m.AvgWin = grossWin / float64(m.WinningTrades)
	}
	if m.LosingTrades > 0 {
		m.AvgLoss = grossLoss / float64(m.LosingTrades)
	}
	m.ProfitFactor = ratio(m.AvgWin, m.AvgLoss)
	m.AvgHoldingPeriod = holding / time.Duration(len(closed))
	if initialBalance > 0 {
		m.TotalReturnPct = m.TotalPnL / initialBalance * 100
	}

	m.SharpeRatio = sharpeRatio(returns)
	m.MaxDrawdown, m.MaxDrawdownPct = maxDrawdown(closed, initialBalance)
	m.CalmarRatio = ratio(m.TotalReturnPct, m.MaxDrawdownPct)
	m.LongestWinStreak, m.LongestLossStreak = streaks(closed)
	m.ValueAtRisk95, m.ExpectedShortfall95 = tailRisk(returns)
	return m
}

// CalculateEquityCurve returns the running balance after each closed trade,
// preceded by a point at the initial balance. It returns nil when no trade
// has closed.
func CalculateEquityCurve(trades []core.PaperTrade, initialBalance float64) []EquityPoint {
	closed := closedChronological(trades)
	if len(closed) == 0 {
		return nil
	}

	curve := make([]EquityPoint, 0, len(closed)+1)
	curve = append(curve, EquityPoint{Time: closed[0].ExecutedAt, Balance: initialBalance})

	balance, peak := initialBalance, initialBalance
	for _, t := range closed {
		balance += t.PnL
		peak = math.Max(peak, balance)
		p := EquityPoint{
			Time:     *t.ClosedAt,
			Balance:  balance,
			TradeID:  t.ID,
			PnL:      t.PnL,
			Drawdown: peak - balance,
		}
		if peak > 0 {
			p.DrawdownPct = p.Drawdown / peak * 100
		}
		curve = append(curve, p)
	}
	return curve
}

// CalculateDistribution buckets closed trades by P&L, outcome and month.
func CalculateDistribution(trades []core.PaperTrade) Distribution {
	closed := closedChronological(trades)
	if len(closed) == 0 {
		return Distribution{}
	}

	var d Distribution
	lo, hi := closed[0].PnL, closed[0].PnL
	months := make(map[string]*MonthlyPnL)
	var order []string

	for _, t := range closed {
		lo = math.Min(lo, t.PnL)
		hi = math.Max(hi, t.PnL)
		switch {
		case t.PnL > 0:
			d.Outcomes.Wins++
		case t.PnL < 0:
			d.Outcomes.Losses++
		default:
			d.Outcomes.Breakeven++
		}

		key := t.ClosedAt.Format("2006-01")
		mp, ok := months[key]
		if !ok {
			mp = &MonthlyPnL{Month: key}
			months[key] = mp
			order = append(order, key)
		}
		mp.PnL += t.PnL
		mp.Trades++
	}

	d.Histogram = histogram(closed, lo, hi)
	sort.Strings(order)
	for _, key := range order {
		d.Monthly = append(d.Monthly, *months[key])
	}
	return d
}

// CalculateExtended computes secondary risk-adjusted statistics.
func CalculateExtended(trades []core.PaperTrade, initialBalance float64) ExtendedMetrics {
	closed := closedChronological(trades)
	if len(closed) == 0 {
		return ExtendedMetrics{}
	}

	m := Calculate(trades, initialBalance)
	returns := make([]float64, 0, len(closed))
	for _, t := range closed {
		returns = append(returns, tradeReturn(t))
	}
	mean, std := meanStd(returns)

	var x ExtendedMetrics
	x.UlcerIndex = ulcerIndex(CalculateEquityCurve(trades, initialBalance))
	x.SortinoRatio = sortinoRatio(returns)
	// Zero benchmark and unit beta.
	x.InformationRatio = ratio(mean, std)
	x.TreynorRatio = mean
	x.RecoveryFactor = ratio(m.TotalPnL, m.MaxDrawdown)
	x.PayoffRatio = ratio(m.AvgWin, m.AvgLoss)

	winRate := m.WinRate / 100
	x.Expectancy = winRate*m.AvgWin - (1-winRate)*m.AvgLoss
	return x
}

// Summarize computes every view over the same snapshot.
func Summarize(trades []core.PaperTrade, initialBalance float64) Report {
	return Report{
		Metrics:      Calculate(trades, initialBalance),
		Extended:     CalculateExtended(trades, initialBalance),
		Equity:       CalculateEquityCurve(trades, initialBalance),
		Distribution: CalculateDistribution(trades),
	}
}

// closedChronological copies the closed trades ordered by close time.
func closedChronological(trades []core.PaperTrade) []core.PaperTrade {
	closed := make([]core.PaperTrade, 0, len(trades))
	for _, t := range trades {
		if !t.IsOpen() && t.ClosedAt != nil {
			closed = append(closed, t)
		}
	}
	sort.SliceStable(closed, func(i, j int) bool {
		return closed[i].ClosedAt.Before(*closed[j].ClosedAt)
	})
	return closed
}

// tradeReturn is pnl over entry notional, in percent.
func tradeReturn(t core.PaperTrade) float64 {
	entry := t.EntryValue()
	if entry <= 0 {
		return 0
	}
	return t.PnL / entry * 100
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

// meanStd returns the mean and sample standard deviation.
func meanStd(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))
	if len(xs) < 2 {
		return mean, 0
	}

	var variance float64
	for _, x := range xs {
		variance += (x - mean) * (x - mean)
	}
	return mean, math.Sqrt(variance / float64(len(xs)-1))
}

// sharpeRatio annualizes mean over standard deviation with a zero
// risk-free rate.
func sharpeRatio(returns []float64) float64 {
	mean, std := meanStd(returns)
	if std == 0 {
		return 0
	}
	return mean / std * math.Sqrt(PeriodsPerYear)
}

// sortinoRatio uses only the deviation of negative returns as risk.
func sortinoRatio(returns []float64) float64 {
	mean, _ := meanStd(returns)

	var sq float64
	var n int
	for _, r := range returns {
		if r < 0 {
			sq += r * r
			n++
		}
	}
	if n == 0 {
		if mean > 0 {
			return SortinoNoDownside
		}
		return 0
	}
	downside := math.Sqrt(sq / float64(n))
	return mean / downside * math.Sqrt(PeriodsPerYear)
}

// maxDrawdown walks the running balance and returns the largest
// peak-to-trough decline in currency and in percent of the peak.
func maxDrawdown(closed []core.PaperTrade, initialBalance float64) (float64, float64) {
	balance, peak := initialBalance, initialBalance
	var maxDD, maxPct float64
	for _, t := range closed {
		balance += t.PnL
		peak = math.Max(peak, balance)
		dd := peak - balance
		maxDD = math.Max(maxDD, dd)
		if peak > 0 {
			maxPct = math.Max(maxPct, dd/peak*100)
		}
	}
	return maxDD, maxPct
}

// streaks scans chronologically; a zero outcome resets both counters.
func streaks(closed []core.PaperTrade) (int, int) {
	var win, loss, maxWin, maxLoss int
	for _, t := range closed {
		switch {
		case t.PnL > 0:
			win++
			loss = 0
		case t.PnL < 0:
			loss++
			win = 0
		default:
			win, loss = 0, 0
		}
		maxWin = max(maxWin, win)
		maxLoss = max(maxLoss, loss)
	}
	return maxWin, maxLoss
}

// tailRisk returns the empirical VaR, the n*5%-th order statistic of the
// sorted returns, and the mean of all returns at or below it.
func tailRisk(returns []float64) (float64, float64) {
	if len(returns) == 0 {
		return 0, 0
	}
	sorted := append([]float64(nil), returns...)
	sort.Float64s(sorted)

	idx := int(float64(len(sorted)) * (1 - tailConfidence))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}

	var sum float64
	for _, r := range sorted[:idx+1] {
		sum += r
	}
	return sorted[idx], sum / float64(idx+1)
}

// ulcerIndex is the root mean square of percentage drawdown.
func ulcerIndex(curve []EquityPoint) float64 {
	if len(curve) == 0 {
		return 0
	}
	var sq float64
	for _, p := range curve {
		sq += p.DrawdownPct * p.DrawdownPct
	}
	return math.Sqrt(sq / float64(len(curve)))
}

func histogram(closed []core.PaperTrade, lo, hi float64) []Bin {
	if lo == hi {
		return []Bin{{Lower: lo, Upper: hi, Count: len(closed)}}
	}

	width := (hi - lo) / HistogramBins
	bins := make([]Bin, HistogramBins)
	for i := range bins {
		bins[i].Lower = lo + float64(i)*width
		bins[i].Upper = lo + float64(i+1)*width
	}
	bins[HistogramBins-1].Upper = hi

	for _, t := range closed {
		i := int((t.PnL - lo) / width)
		if i >= HistogramBins {
			i = HistogramBins - 1
		}
		bins[i].Count++
	}
	return bins
}
