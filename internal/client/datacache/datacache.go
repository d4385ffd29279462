// Package datacache lets the auth layer signal initialized local data caches
// to drop their contents when the confirmed user changes, so one identity's
// cached reads never leak to the next identity on the same device.
package datacache

import (
	"context"
	"sync"
)

// Invalidator is implemented by any cache that holds per-user data.
type Invalidator interface {
	InvalidateAll(ctx context.Context)
}

// Registry is the fanout point. Caches register as they initialize; the auth
// state machine calls InvalidateAll on confirmed user change.
type Registry struct {
	mu           sync.Mutex
	invalidators []Invalidator
}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) Register(inv Invalidator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invalidators = append(r.invalidators, inv)
}

func (r *Registry) InvalidateAll(ctx context.Context) {
	r.mu.Lock()
	invs := make([]Invalidator, len(r.invalidators))
	copy(invs, r.invalidators)
	r.mu.Unlock()

	for _, inv := range invs {
		inv.InvalidateAll(ctx)
	}
}
