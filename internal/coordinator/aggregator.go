package coordinator

import "sync"

// Aggregator collects replies from concurrently running calls.
// Add may be called from any goroutine, including after a reader has taken
// its last snapshot; such late replies are kept but never read.
type Aggregator[T any] struct {
	replies []T
	mu      sync.Mutex
}

func NewAggregator[T any]() *Aggregator[T] {
	return &Aggregator[T]{}
}

// Add appends one reply. Replies are kept in arrival order with no
// deduplication.
func (a *Aggregator[T]) Add(reply T) {
	a.mu.Lock()
	a.replies = append(a.replies, reply)
	a.mu.Unlock()
}

// Snapshot returns a copy of every reply added so far, in arrival order.
// The result is never nil.
func (a *Aggregator[T]) Snapshot() []T {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]T, len(a.replies))
	copy(out, a.replies)
	return out
}

func (a *Aggregator[T]) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.replies)
}
