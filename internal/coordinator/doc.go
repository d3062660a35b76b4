// Package coordinator implements the routing core of the job gateway: the
// fixed backend registry, unicast backend selection, concurrent broadcast
// with a bounded wait, and advisory health monitoring.
//
// # Overview
//
// The gateway fronts an ordered set of equivalent backends. Two routing
// patterns are supported:
//
//   - Unicast: one request goes to exactly one backend chosen by the
//     registry's Strategy. Its reply or error is returned unchanged.
//   - Broadcast: one request goes to every backend concurrently. Replies
//     collected within the timeout are returned; failures and latecomers
//     are dropped.
//
// # Architecture
//
//	┌──────────────────────────────────────────────┐
//	│                 COORDINATOR                  │
//	├──────────────────────────────────────────────┤
//	│                                              │
//	│  ┌────────────────────────────────────────┐  │
//	│  │ Registry                               │  │
//	│  │  - ordered, immutable backend list     │  │
//	│  │  - Select(key) via Strategy            │  │
//	│  └────────────────────────────────────────┘  │
//	│                                              │
//	│  ┌────────────────────────────────────────┐  │
//	│  │ Broadcast + Aggregator                 │  │
//	│  │  - one goroutine per backend           │  │
//	│  │  - wait: all done | timeout | ctx done │  │
//	│  │  - per-backend reports                 │  │
//	│  └────────────────────────────────────────┘  │
//	│                                              │
//	│  ┌────────────────────────────────────────┐  │
//	│  │ HealthMonitor                          │  │
//	│  │  - periodic Backend.Ping               │  │
//	│  │  - unhealthy after 3 failures          │  │
//	│  └────────────────────────────────────────┘  │
//	│                                              │
//	└──────────────────────────────────────────────┘
//
// # Selection Strategies
//
//	first        always backend 0
//	round-robin  backends in turn, shared atomic counter
//	hash         FNV-1a(key) mod N, stable per key
//
// # Broadcast Semantics
//
// A broadcast never fails. Each backend call runs in its own goroutine on a
// context detached from the caller's cancellation, so a timeout or a client
// hang-up stops the wait without aborting calls already in flight. Every
// goroutine reports to a channel buffered for all N backends, so nothing
// blocks once the waiter has left. A panicking call is recovered and
// counted as a failure.
//
// Replies are ordered by arrival, not by registry position.
//
// # Usage Example
//
//	reg := coordinator.NewRegistry(backends, coordinator.Hash{})
//	b, err := reg.Select(req.JobID)
//
//	res := coordinator.Broadcast(ctx, log, reg, 5*time.Second,
//	    func(ctx context.Context, b backend.Backend) (*cluster.StatusResponse, error) {
//	        return b.GetStatus(ctx, &cluster.StatusRequest{})
//	    })
//
// # See Also
//
//   - internal/backend: Backend handles over gRPC and HTTP
//   - internal/gateway: The gateway operations built on this package
package coordinator
