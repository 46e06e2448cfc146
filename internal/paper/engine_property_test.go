package paper_test

import (
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/newthinker/signalbook/internal/core"
	"github.com/newthinker/signalbook/internal/paper"
	"github.com/newthinker/signalbook/internal/risk"
)

// Property: opening and then closing a trade moves the balance by exactly the
// trade's realized P&L, in either direction.
func TestProperty_OpenCloseBalanceSymmetry(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("balance delta equals pnl", prop.ForAll(
		func(entry, exit, qty float64, sell bool) bool {
			s := risk.DefaultSettings()
			s.MaxPositionSize = 1e12
			s.RiskPerTradePct = 100
			s.AutoStopLoss = false
			s.AutoTakeProfit = false

			cfg := paper.Config{
				InitialBalance:  1e7,
				ReferencePrices: map[core.Symbol]float64{core.SymbolBTC: exit},
			}
			e := paper.NewEngine(cfg, risk.NewManager(s, nil), nil)

			dir := core.DirectionBuy
			if sell {
				dir = core.DirectionSell
			}
			trade, err := e.ExecuteSignal(pending("sig", core.SymbolBTC, dir, entry, qty))
			if err != nil {
				return false
			}
			e.RefreshPrices()
			closed, err := e.CloseTrade(trade.ID)
			if err != nil {
				return false
			}

			delta := e.Account().Balance - cfg.InitialBalance
			return math.Abs(delta-closed.PnL) < 1e-6
		},
		gen.Float64Range(1, 100_000),
		gen.Float64Range(1, 100_000),
		gen.Float64Range(0.0001, 10),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
