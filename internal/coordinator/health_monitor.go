package coordinator

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dreamware/jobgateway/internal/backend"
)

// Health states reported by HealthMonitor.
const (
	HealthUnknown   = "unknown"
	HealthHealthy   = "healthy"
	HealthUnhealthy = "unhealthy"
)

// BackendHealth tracks the health status of a single backend.
// Thread-safe: Protected by HealthMonitor's mutex when accessed.
type BackendHealth struct {
	LastCheck        time.Time // Timestamp of the last health check attempt
	LastHealthy      time.Time // Timestamp of the last successful health check
	Addr             string    // Backend address as registered
	Status           string    // "healthy", "unhealthy" or "unknown"
	LastError        string    // Error from the most recent failed check
	ConsecutiveFails int       // Number of consecutive failed health checks
}

// HealthMonitor periodically pings every backend in a Registry and tracks
// which ones answer.
//
// Health is advisory: the registry never drops or skips a backend because
// it is unhealthy. The gateway surfaces the results on its /backends
// endpoint and in logs.
// Thread-safe: All methods are safe for concurrent access.
type HealthMonitor struct {
	backends    map[string]*BackendHealth                          // Current health status per backend address
	log         *zap.Logger                                        // Structured logger
	checkFunc   func(ctx context.Context, b backend.Backend) error // Performs one check
	onUnhealthy func(addr string)                                  // Callback when a backend becomes unhealthy
	ctx         context.Context                                    // Context for cancellation
	cancel      context.CancelFunc                                 // Cancel function for shutdown
	interval    time.Duration                                      // How often to check backends
	timeout     time.Duration                                      // Deadline for a single check
	mu          sync.RWMutex                                       // Protects backends map
	wg          sync.WaitGroup                                     // Wait group for graceful shutdown
	maxFailures int                                                // Failures before marking unhealthy
}

// NewHealthMonitor creates a health monitor that checks every interval,
// giving each check timeout to complete. Backends are marked unhealthy
// after 3 consecutive failures.
//
// Example:
//
//	monitor := NewHealthMonitor(5*time.Second, 2*time.Second, log)
//	go monitor.Start(ctx, registry)
func NewHealthMonitor(interval, timeout time.Duration, log *zap.Logger) *HealthMonitor {
	ctx, cancel := context.WithCancel(context.Background())
	if log == nil {
		log = zap.NewNop()
	}

	return &HealthMonitor{
		interval:    interval,
		timeout:     timeout,
		maxFailures: 3,
		backends:    make(map[string]*BackendHealth),
		log:         log,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// SetOnUnhealthy sets the callback invoked once each time a backend moves
// into the unhealthy state.
func (h *HealthMonitor) SetOnUnhealthy(callback func(addr string)) {
	h.onUnhealthy = callback
}

// SetCheckFunction overrides the default check, which is Backend.Ping.
func (h *HealthMonitor) SetCheckFunction(checkFunc func(ctx context.Context, b backend.Backend) error) {
	h.checkFunc = checkFunc
}

// Start checks every backend in reg immediately and then once per interval.
// It blocks until ctx is canceled or Stop is called.
func (h *HealthMonitor) Start(ctx context.Context, reg *Registry) {
	h.wg.Add(1)
	defer h.wg.Done()

	if ctx == nil {
		ctx = h.ctx
	}
	if h.checkFunc == nil {
		h.checkFunc = pingBackend
	}

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.log.Info("health monitor started",
		zap.Duration("interval", h.interval),
		zap.Int("backends", reg.Len()))

	h.checkAll(ctx, reg.Backends())

	for {
		select {
		case <-ticker.C:
			h.checkAll(ctx, reg.Backends())
		case <-ctx.Done():
			h.log.Info("health monitor stopping", zap.String("reason", "context canceled"))
			return
		case <-h.ctx.Done():
			h.log.Info("health monitor stopping", zap.String("reason", "stopped"))
			return
		}
	}
}

// Stop cancels the monitoring loop and waits for it to exit.
func (h *HealthMonitor) Stop() {
	h.cancel()
	h.wg.Wait()
	h.log.Info("health monitor stopped")
}

// checkAll checks the backends concurrently and returns once every check
// has finished.
func (h *HealthMonitor) checkAll(ctx context.Context, backends []backend.Backend) {
	var g errgroup.Group
	for _, b := range backends {
		b := b
		g.Go(func() error {
			h.checkBackend(ctx, b)
			return nil
		})
	}
	_ = g.Wait()
}

// checkBackend performs one check and updates the backend's record,
// firing onUnhealthy on the transition into the unhealthy state.
func (h *HealthMonitor) checkBackend(ctx context.Context, b backend.Backend) {
	addr := b.Addr()

	h.mu.Lock()
	health, exists := h.backends[addr]
	if !exists {
		health = &BackendHealth{
			Addr:        addr,
			Status:      HealthUnknown,
			LastCheck:   time.Now(),
			LastHealthy: time.Now(),
		}
		h.backends[addr] = health
	}
	h.mu.Unlock()

	cctx, cancel := context.WithTimeout(ctx, h.timeout)
	err := h.checkFunc(cctx, b)
	cancel()

	h.mu.Lock()
	defer h.mu.Unlock()

	health.LastCheck = time.Now()

	if err != nil {
		health.ConsecutiveFails++
		health.LastError = err.Error()
		h.log.Debug("health check failed",
			zap.String("backend", addr),
			zap.Int("attempt", health.ConsecutiveFails),
			zap.Int("max_failures", h.maxFailures),
			zap.Error(err))

		if health.ConsecutiveFails >= h.maxFailures && health.Status != HealthUnhealthy {
			health.Status = HealthUnhealthy
			h.log.Warn("backend marked unhealthy",
				zap.String("backend", addr),
				zap.Int("failures", health.ConsecutiveFails),
				zap.Error(err))
			if h.onUnhealthy != nil {
				// Call callback without holding the lock
				go h.onUnhealthy(addr)
			}
		}
		return
	}

	if health.Status == HealthUnhealthy {
		h.log.Info("backend recovered", zap.String("backend", addr))
	}
	health.Status = HealthHealthy
	health.ConsecutiveFails = 0
	health.LastError = ""
	health.LastHealthy = time.Now()
}

func pingBackend(ctx context.Context, b backend.Backend) error {
	return b.Ping(ctx)
}

// GetBackendHealth returns a copy of the record for addr, or nil if the
// backend has not been checked yet.
func (h *HealthMonitor) GetBackendHealth(addr string) *BackendHealth {
	h.mu.RLock()
	defer h.mu.RUnlock()

	health, exists := h.backends[addr]
	if !exists {
		return nil
	}
	cp := *health
	return &cp
}

// GetAllBackendHealth returns a copy of every record keyed by address.
func (h *HealthMonitor) GetAllBackendHealth() map[string]*BackendHealth {
	h.mu.RLock()
	defer h.mu.RUnlock()

	result := make(map[string]*BackendHealth, len(h.backends))
	for addr, health := range h.backends {
		cp := *health
		result[addr] = &cp
	}
	return result
}

// IsHealthy reports whether addr passed its most recent checks. Backends
// that have not been checked are not healthy.
func (h *HealthMonitor) IsHealthy(addr string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	health, exists := h.backends[addr]
	return exists && health.Status == HealthHealthy
}
