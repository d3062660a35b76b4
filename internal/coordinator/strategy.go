package coordinator

import (
	"fmt"
	"hash/fnv"
	"sync/atomic"

	"github.com/dreamware/jobgateway/internal/backend"
	"github.com/dreamware/jobgateway/internal/cluster"
)

// Strategy picks the backend that serves one unicast call.
//
// key is the request's routing key (job ID or session name); strategies that
// do not route by key ignore it. Select is only called with a non-empty
// slice by Registry, but implementations still return
// cluster.ErrNoBackendsAvailable for an empty one.
type Strategy interface {
	Select(backends []backend.Backend, key string) (backend.Backend, error)
}

// First always picks the first backend in registration order.
type First struct{}

func (First) Select(backends []backend.Backend, _ string) (backend.Backend, error) {
	if len(backends) == 0 {
		return nil, cluster.ErrNoBackendsAvailable
	}
	return backends[0], nil
}

// RoundRobin cycles through the backends in registration order.
type RoundRobin struct {
	next atomic.Uint64
}

func (r *RoundRobin) Select(backends []backend.Backend, _ string) (backend.Backend, error) {
	if len(backends) == 0 {
		return nil, cluster.ErrNoBackendsAvailable
	}
	n := r.next.Add(1) - 1
	return backends[n%uint64(len(backends))], nil
}

// Hash routes a key to a fixed backend: FNV-1a of the key modulo the number
// of backends. The same key always lands on the same backend for a given
// registry.
type Hash struct{}

func (Hash) Select(backends []backend.Backend, key string) (backend.Backend, error) {
	if len(backends) == 0 {
		return nil, cluster.ErrNoBackendsAvailable
	}
	return backends[hashKey(key, len(backends))], nil
}

func hashKey(key string, n int) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(n))
}

// StrategyByName returns the strategy registered under name: "first",
// "round-robin" or "hash".
func StrategyByName(name string) (Strategy, error) {
	switch name {
	case "", "first":
		return First{}, nil
	case "round-robin":
		return &RoundRobin{}, nil
	case "hash":
		return Hash{}, nil
	default:
		return nil, fmt.Errorf("unknown selection strategy %q", name)
	}
}
