package coordinator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dreamware/jobgateway/internal/backend"
	"github.com/dreamware/jobgateway/internal/cluster"
)

const (
	// DefaultBroadcastTimeout bounds how long a broadcast waits for replies.
	DefaultBroadcastTimeout = 5 * time.Second

	// maxCallDuration caps a single backend call issued by a broadcast.
	// Calls outlive the broadcast wait but not this.
	maxCallDuration = 30 * time.Second
)

// CallFunc issues one request against one backend.
type CallFunc[T any] func(ctx context.Context, b backend.Backend) (T, error)

// BroadcastResult is what a broadcast collected by the time it stopped
// waiting.
type BroadcastResult[T any] struct {
	// Replies holds successful replies in arrival order. Never nil.
	Replies []T
	// Reports has one entry per backend in registry order. A backend still
	// PENDING when the wait ended was neither counted as ok nor failed.
	Reports []cluster.BackendReport
	// TimedOut is set when at least one backend had not completed when the
	// wait ended.
	TimedOut bool
}

// Pending lists the addresses of backends that had not completed.
func (r *BroadcastResult[T]) Pending() []string {
	var out []string
	for _, rep := range r.Reports {
		if rep.State == cluster.BackendPending {
			out = append(out, rep.Addr)
		}
	}
	return out
}

type outcome[T any] struct {
	reply   T
	err     error
	index   int
	elapsed time.Duration
}

// Broadcast sends one call to every backend in reg concurrently and waits
// until all of them complete, timeout elapses, or ctx is done, whichever
// comes first.
//
// Failed calls are logged and excluded from Replies; they never fail the
// broadcast. Calls still outstanding when the wait ends keep running on a
// context detached from ctx, and whatever they return afterwards is
// discarded. Replies and Reports are both written by the waiting loop only,
// so every reply has an ok report and vice versa. With an empty registry
// Broadcast returns at once.
//
// Flow:
//
//	ctx ──► fan out N goroutines ──► call(b_i) ──► done (cap N, never blocks)
//	   └──► wait: N completions | timer | ctx.Done
//	              └─ each completion ──► report + Aggregator.Add ──► Snapshot
func Broadcast[T any](ctx context.Context, log *zap.Logger, reg *Registry, timeout time.Duration, call CallFunc[T]) *BroadcastResult[T] {
	if timeout <= 0 {
		timeout = DefaultBroadcastTimeout
	}
	backends := reg.Backends()
	agg := NewAggregator[T]()

	reports := make([]cluster.BackendReport, len(backends))
	for i, b := range backends {
		reports[i] = cluster.BackendReport{Addr: b.Addr(), State: cluster.BackendPending, Index: i}
	}
	if len(backends) == 0 {
		return &BroadcastResult[T]{Replies: agg.Snapshot(), Reports: reports}
	}

	done := make(chan outcome[T], len(backends))
	detached := context.WithoutCancel(ctx)
	start := time.Now()

	for i, b := range backends {
		go invoke(detached, log, i, b, call, done, start)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	remaining := len(backends)
wait:
	for remaining > 0 {
		select {
		case o := <-done:
			remaining--
			rep := &reports[o.index]
			rep.ElapsedMS = o.elapsed.Milliseconds()
			if o.err != nil {
				rep.State = cluster.BackendFailed
				rep.Error = o.err.Error()
			} else {
				rep.State = cluster.BackendOK
				agg.Add(o.reply)
			}
		case <-timer.C:
			break wait
		case <-ctx.Done():
			break wait
		}
	}

	res := &BroadcastResult[T]{
		Replies:  agg.Snapshot(),
		Reports:  reports,
		TimedOut: remaining > 0,
	}
	if res.TimedOut {
		log.Warn("broadcast stopped waiting",
			zap.Duration("timeout", timeout),
			zap.Strings("pending", res.Pending()),
			zap.Int("replies", len(res.Replies)),
			zap.Error(ctx.Err()))
	}
	return res
}

// invoke runs one call and always reports exactly one outcome on done,
// including when call panics.
func invoke[T any](ctx context.Context, log *zap.Logger, i int, b backend.Backend, call CallFunc[T], done chan<- outcome[T], start time.Time) {
	o := outcome[T]{index: i}
	defer func() {
		if r := recover(); r != nil {
			o.err = fmt.Errorf("panic: %v", r)
		}
		o.elapsed = time.Since(start)
		if o.err != nil {
			log.Info("backend call failed",
				zap.String("backend", b.Addr()),
				zap.Int("index", i),
				zap.Error(o.err))
		}
		done <- o
	}()

	ctx, cancel := context.WithTimeout(ctx, maxCallDuration)
	defer cancel()

	o.reply, o.err = call(ctx, b)
}
