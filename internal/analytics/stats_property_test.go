package analytics_test

import (
	"reflect"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/newthinker/signalbook/internal/analytics"
)

// Property: analytics are a pure function of the trade list.
func TestProperty_SummarizeIsDeterministic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("same input yields same report and input is untouched", prop.ForAll(
		func(pnls []float64) bool {
			trades := history(500, pnls...)
			before := history(500, pnls...)

			first := analytics.Summarize(trades, 10000)
			second := analytics.Summarize(trades, 10000)
			return reflect.DeepEqual(first, second) && reflect.DeepEqual(trades, before)
		},
		gen.SliceOf(gen.Float64Range(-1000, 1000)),
	))

	properties.Property("equity curve ends at initial balance plus total pnl", prop.ForAll(
		func(pnls []float64) bool {
			trades := history(500, pnls...)
			curve := analytics.CalculateEquityCurve(trades, 10000)
			if len(pnls) == 0 {
				return curve == nil
			}
			m := analytics.Calculate(trades, 10000)
			last := curve[len(curve)-1].Balance
			return len(curve) == len(pnls)+1 && abs(last-(10000+m.TotalPnL)) < 1e-6
		},
		gen.SliceOf(gen.Float64Range(-1000, 1000)),
	))

	properties.TestingRun(t)
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
