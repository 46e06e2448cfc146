package notifier

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/newthinker/signalbook/internal/core"
	"github.com/sourcegraph/conc/pool"
)

// Delivery is the outcome of sending to one notifier.
type Delivery struct {
	Notifier string
	Err      error
}

// Registry holds the configured notifiers keyed by name.
type Registry struct {
	mu        sync.RWMutex
	notifiers map[string]Notifier
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{notifiers: make(map[string]Notifier)}
}

// Register adds n. Names must be unique.
func (r *Registry) Register(n Notifier) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := n.Name()
	if _, exists := r.notifiers[name]; exists {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("notifier %q already registered", name))
	}
	r.notifiers[name] = n
	return nil
}

// Lookup returns the notifier registered under name.
func (r *Registry) Lookup(name string) (Notifier, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.notifiers[name]
	return n, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.notifiers))
	for name := range r.notifiers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered notifiers
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.notifiers)
}

// Notify delivers events to every notifier in parallel, so one slow channel
// does not hold up the others. A single event goes through Send, several
// through SendBatch. Deliveries come back sorted by notifier name.
func (r *Registry) Notify(ctx context.Context, events ...Event) []Delivery {
	if len(events) == 0 {
		return nil
	}

	names := r.Names()
	r.mu.RLock()
	targets := make([]Notifier, len(names))
	for i, name := range names {
		targets[i] = r.notifiers[name]
	}
	r.mu.RUnlock()

	out := make([]Delivery, len(targets))
	p := pool.New()
	for i, n := range targets {
		p.Go(func() {
			var err error
			if len(events) == 1 {
				err = n.Send(ctx, events[0])
			} else {
				err = n.SendBatch(ctx, events)
			}
			out[i] = Delivery{Notifier: n.Name(), Err: err}
		})
	}
	p.Wait()
	return out
}
