package coordinator

import (
	"errors"

	"golang.org/x/exp/slices"

	"github.com/dreamware/jobgateway/internal/backend"
	"github.com/dreamware/jobgateway/internal/cluster"
)

// Registry is the fixed, ordered set of backends the gateway fronts.
//
// The backend list is set once by NewRegistry and never changes afterwards,
// so reads need no locking. An empty registry is valid: Select reports
// cluster.ErrNoBackendsAvailable and broadcasts complete immediately with
// nothing collected.
//
// Architecture:
//
//	┌──────────────────────────────────────┐
//	│              Registry                │
//	├──────────────────────────────────────┤
//	│  backends: [b0, b1, ... bN-1]        │
//	│  strategy: First | RoundRobin | Hash │
//	├──────────────────────────────────────┤
//	│  Select(key) → strategy → backend    │
//	│  Backends()  → copy, registry order  │
//	└──────────────────────────────────────┘
type Registry struct {
	strategy Strategy
	backends []backend.Backend
}

// NewRegistry takes ownership of backends, keeping their order. A nil
// strategy means First.
func NewRegistry(backends []backend.Backend, strategy Strategy) *Registry {
	if strategy == nil {
		strategy = First{}
	}
	return &Registry{
		backends: slices.Clone(backends),
		strategy: strategy,
	}
}

// Backends returns the backends in registration order. The slice is a copy.
func (r *Registry) Backends() []backend.Backend {
	return slices.Clone(r.backends)
}

// At returns the backend at position i.
func (r *Registry) At(i int) (backend.Backend, bool) {
	if i < 0 || i >= len(r.backends) {
		return nil, false
	}
	return r.backends[i], true
}

func (r *Registry) Len() int { return len(r.backends) }

func (r *Registry) Empty() bool { return len(r.backends) == 0 }

// Addrs lists backend addresses in registration order.
func (r *Registry) Addrs() []string {
	out := make([]string, len(r.backends))
	for i, b := range r.backends {
		out[i] = b.Addr()
	}
	return out
}

// Select picks the backend for one unicast call using the registry's
// strategy. It fails with cluster.ErrNoBackendsAvailable when the registry
// is empty; there is no fallback.
func (r *Registry) Select(key string) (backend.Backend, error) {
	if len(r.backends) == 0 {
		return nil, cluster.ErrNoBackendsAvailable
	}
	return r.strategy.Select(r.backends, key)
}

// Close closes every backend handle. It is called once at gateway shutdown.
func (r *Registry) Close() error {
	var errs []error
	for _, b := range r.backends {
		if err := b.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
