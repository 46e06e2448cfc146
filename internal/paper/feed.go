package paper

import (
	"math"
	"time"

	"github.com/newthinker/signalbook/internal/core"
)

const (
	rsiPeriod     = 14
	volAlpha      = 0.1
	changeWindow  = 24 * time.Hour
	neutralRSI    = 50.0
	volumeBaseLot = 1000.0
)

// quoteState carries a symbol's quote plus the running indicator state.
type quoteState struct {
	quote       core.MarketPrice
	windowOpen  float64
	windowStart time.Time
	avgGain     float64
	avgLoss     float64
	variance    float64
}

// feed is the synthetic market. Each tick moves every reference price by a
// bounded uniform step.
type feed struct {
	symbols []core.Symbol
	states  map[core.Symbol]*quoteState
}

func newFeed(refs map[core.Symbol]float64, now time.Time) *feed {
	f := &feed{states: make(map[core.Symbol]*quoteState, len(refs))}
	for _, sym := range core.SupportedSymbols() {
		price, ok := refs[sym]
		if !ok || price <= 0 {
			continue
		}
		f.symbols = append(f.symbols, sym)
		f.states[sym] = &quoteState{
			quote: core.MarketPrice{
				Symbol:    sym,
				Price:     price,
				UpdatedAt: now,
				RSI:       neutralRSI,
			},
			windowOpen:  price,
			windowStart: now,
		}
	}
	return f
}

// tick advances every symbol in display order, so a scripted RandSource
// sees a stable draw sequence.
func (f *feed) tick(now time.Time, pct float64, r RandSource) {
	for _, sym := range f.symbols {
		s := f.states[sym]
		prev := s.quote.Price
		next := prev * (1 + jitter(r, pct))
		move := (next - prev) / prev * 100

		if now.Sub(s.windowStart) >= changeWindow {
			s.windowOpen = prev
			s.windowStart = now
			s.quote.Volume24h = 0
		}

		// Wilder smoothing
		gain, loss := math.Max(move, 0), math.Max(-move, 0)
		s.avgGain = (s.avgGain*(rsiPeriod-1) + gain) / rsiPeriod
		s.avgLoss = (s.avgLoss*(rsiPeriod-1) + loss) / rsiPeriod
		s.variance = (1-volAlpha)*s.variance + volAlpha*move*move

		s.quote.Price = next
		s.quote.Change24h = (next - s.windowOpen) / s.windowOpen * 100
		s.quote.RSI = rsi(s.avgGain, s.avgLoss)
		s.quote.Volatility = math.Sqrt(s.variance)
		s.quote.Volume24h += volumeBaseLot * (1 + math.Abs(move))
		s.quote.UpdatedAt = now
	}
}

func rsi(avgGain, avgLoss float64) float64 {
	switch {
	case avgGain == 0 && avgLoss == 0:
		return neutralRSI
	case avgLoss == 0:
		return 100
	}
	return 100 - 100/(1+avgGain/avgLoss)
}

func (f *feed) price(sym core.Symbol) (float64, bool) {
	s, ok := f.states[sym]
	if !ok {
		return 0, false
	}
	return s.quote.Price, true
}

func (f *feed) quotes() []core.MarketPrice {
	out := make([]core.MarketPrice, 0, len(f.symbols))
	for _, sym := range f.symbols {
		out = append(out, f.states[sym].quote)
	}
	return out
}
