// Package signal keeps the ledger of parsed trading signals.
package signal

import (
	"context"
	"time"

	"github.com/newthinker/signalbook/internal/core"
)

// Store defines the interface for the signal ledger.
type Store interface {
	// Save records a new signal. An empty ID is assigned.
	Save(ctx context.Context, signal core.TradingSignal) (core.TradingSignal, error)

	// GetByID retrieves a signal by its ID.
	GetByID(ctx context.Context, id string) (*core.TradingSignal, error)

	// UpdateStatus moves a pending signal to executed or failed.
	UpdateStatus(ctx context.Context, id string, status core.SignalStatus) error

	// Annotate attaches scorer output to a signal.
	Annotate(ctx context.Context, id string, confidence *float64, level core.RiskLevel) error

	// List retrieves signals matching the filter.
	List(ctx context.Context, filter ListFilter) ([]core.TradingSignal, error)

	// Count returns the number of signals matching the filter.
	Count(ctx context.Context, filter ListFilter) (int, error)
}

// ListFilter defines criteria for listing signals.
type ListFilter struct {
	Symbol    core.Symbol
	Direction core.Direction
	Status    core.SignalStatus
	Channel   string
	From      time.Time
	To        time.Time
	Limit     int
	Offset    int
}
