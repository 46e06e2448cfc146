// Package scorer defines the capability for attaching a second opinion to a
// parsed signal. Execution never depends on a score being present.
package scorer

import (
	"context"
	"time"

	"github.com/newthinker/signalbook/internal/core"
	"github.com/newthinker/signalbook/internal/risk"
)

// Validation is a scorer's opinion of a signal. A nil Confidence means the
// scorer offers no confidence value.
type Validation struct {
	Confidence *float64       `json:"confidence,omitempty"`
	RiskLevel  core.RiskLevel `json:"risk_level,omitempty"`
	Reason     string         `json:"reason,omitempty"`
}

// Scorer rates a signal against the current quotes.
type Scorer interface {
	Name() string
	Score(ctx context.Context, sig core.TradingSignal, quotes []core.MarketPrice) (Validation, error)
}

// Nop returns an empty validation.
type Nop struct{}

func (Nop) Name() string { return "nop" }

func (Nop) Score(context.Context, core.TradingSignal, []core.MarketPrice) (Validation, error) {
	return Validation{}, nil
}

// RiskScorer labels signals with the risk manager's categorical assessment.
type RiskScorer struct {
	manager *risk.Manager
	now     func() time.Time
}

// NewRiskScorer creates a scorer backed by m.
func NewRiskScorer(m *risk.Manager) *RiskScorer {
	return &RiskScorer{manager: m, now: time.Now}
}

func (s *RiskScorer) Name() string { return "risk" }

func (s *RiskScorer) Score(ctx context.Context, sig core.TradingSignal, quotes []core.MarketPrice) (Validation, error) {
	if err := ctx.Err(); err != nil {
		return Validation{}, err
	}

	var quote core.MarketPrice
	for _, q := range quotes {
		if q.Symbol == sig.Symbol {
			quote = q
			break
		}
	}
	return Validation{RiskLevel: s.manager.AssessRisk(sig, quote, s.now())}, nil
}
