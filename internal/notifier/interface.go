// Package notifier delivers trade lifecycle events to external channels.
package notifier

import (
	"context"
	"time"

	"github.com/newthinker/signalbook/internal/analytics"
	"github.com/newthinker/signalbook/internal/core"
)

// Config holds notifier configuration
type Config struct {
	Type   string         `mapstructure:"type"`
	Params map[string]any `mapstructure:"params"`
}

// EventKind classifies a notification.
type EventKind string

const (
	EventOpened   EventKind = "trade_opened"
	EventClosed   EventKind = "trade_closed"
	EventRejected EventKind = "signal_rejected"
	EventReport   EventKind = "daily_report"
)

// Event is a single notification. Which fields are set depends on Kind.
type Event struct {
	Kind    EventKind           `json:"kind"`
	Signal  *core.TradingSignal `json:"signal,omitempty"`
	Trade   *core.PaperTrade    `json:"trade,omitempty"`
	Reason  string              `json:"reason,omitempty"`
	Metrics *analytics.Metrics  `json:"metrics,omitempty"`
	Balance float64             `json:"balance,omitempty"`
	Time    time.Time           `json:"time"`
}

// Notifier defines the interface for event notification
type Notifier interface {
	// Name returns the unique identifier for this notifier
	Name() string

	// Init initializes the notifier with configuration
	Init(cfg Config) error

	// Send delivers a single event
	Send(ctx context.Context, event Event) error

	// SendBatch delivers several events at once
	SendBatch(ctx context.Context, events []Event) error
}
