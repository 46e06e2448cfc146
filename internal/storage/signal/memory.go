package signal

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/newthinker/signalbook/internal/core"
)

// MemoryStore is an in-memory signal ledger with bounded capacity.
type MemoryStore struct {
	signals []core.TradingSignal
	maxSize int
	mu      sync.RWMutex
}

// NewMemoryStore creates a new in-memory store with max capacity.
func NewMemoryStore(maxSize int) *MemoryStore {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &MemoryStore{
		signals: make([]core.TradingSignal, 0, maxSize),
		maxSize: maxSize,
	}
}

// Save adds a signal to the store. New signals start pending.
func (m *MemoryStore) Save(ctx context.Context, signal core.TradingSignal) (core.TradingSignal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if signal.ID == "" {
		signal.ID = uuid.NewString()
	} else if m.indexOf(signal.ID) >= 0 {
		return core.TradingSignal{}, core.WrapError(core.ErrDuplicateSignal, fmt.Errorf("signal %s", signal.ID))
	}
	if signal.Status == "" {
		signal.Status = core.SignalPending
	}

	m.signals = append(m.signals, signal.Clone())

	// Trim if over capacity (remove oldest)
	if len(m.signals) > m.maxSize {
		m.signals = m.signals[len(m.signals)-m.maxSize:]
	}

	return signal.Clone(), nil
}

// GetByID retrieves a signal by ID.
func (m *MemoryStore) GetByID(ctx context.Context, id string) (*core.TradingSignal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i := m.indexOf(id)
	if i < 0 {
		return nil, core.WrapError(core.ErrSignalNotFound, fmt.Errorf("signal %s", id))
	}
	sig := m.signals[i].Clone()
	return &sig, nil
}

// UpdateStatus applies a status transition. Only pending signals move.
func (m *MemoryStore) UpdateStatus(ctx context.Context, id string, status core.SignalStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(id)
	if i < 0 {
		return core.WrapError(core.ErrSignalNotFound, fmt.Errorf("signal %s", id))
	}
	current := m.signals[i].Status
	if !current.CanTransition(status) {
		return core.WrapError(core.ErrInvalidStatusTransition, fmt.Errorf("signal %s: %s -> %s", id, current, status))
	}
	m.signals[i].Status = status
	return nil
}

// Annotate sets the optional scoring fields.
func (m *MemoryStore) Annotate(ctx context.Context, id string, confidence *float64, level core.RiskLevel) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(id)
	if i < 0 {
		return core.WrapError(core.ErrSignalNotFound, fmt.Errorf("signal %s", id))
	}
	if confidence != nil {
		c := *confidence
		m.signals[i].Confidence = &c
	}
	if level != "" {
		m.signals[i].RiskLevel = level
	}
	return nil
}

// List returns signals matching the filter in insertion order.
func (m *MemoryStore) List(ctx context.Context, filter ListFilter) ([]core.TradingSignal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []core.TradingSignal{}
	for _, sig := range m.signals {
		if matches(sig, filter) {
			result = append(result, sig.Clone())
		}
	}

	// Apply offset and limit
	if filter.Offset >= len(result) {
		return []core.TradingSignal{}, nil
	}
	if filter.Offset > 0 {
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}

	return result, nil
}

// Count returns the count of matching signals.
func (m *MemoryStore) Count(ctx context.Context, filter ListFilter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, sig := range m.signals {
		if matches(sig, filter) {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStore) indexOf(id string) int {
	for i := range m.signals {
		if m.signals[i].ID == id {
			return i
		}
	}
	return -1
}

func matches(sig core.TradingSignal, filter ListFilter) bool {
	if filter.Symbol != "" && sig.Symbol != filter.Symbol {
		return false
	}
	if filter.Direction != "" && sig.Direction != filter.Direction {
		return false
	}
	if filter.Status != "" && sig.Status != filter.Status {
		return false
	}
	if filter.Channel != "" && sig.Channel != filter.Channel {
		return false
	}
	if !filter.From.IsZero() && sig.ParsedAt.Before(filter.From) {
		return false
	}
	if !filter.To.IsZero() && sig.ParsedAt.After(filter.To) {
		return false
	}
	return true
}
