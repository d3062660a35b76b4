package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/dreamware/jobgateway/internal/coordinator"
	"github.com/dreamware/jobgateway/internal/jobrpc"
)

// BackendView is one entry of the GET /backends listing.
type BackendView struct {
	LastCheck        *time.Time `json:"last_check,omitempty"`
	LastHealthy      *time.Time `json:"last_healthy,omitempty"`
	Addr             string     `json:"addr"`
	Status           string     `json:"status"`
	LastError        string     `json:"last_error,omitempty"`
	Index            int        `json:"index"`
	ConsecutiveFails int        `json:"consecutive_fails"`
}

// NewHTTPHandler serves the job service routes for g plus GET /backends,
// which lists every backend in registry order with its health as last
// seen by monitor. monitor may be nil, in which case every backend is
// reported as unknown.
func NewHTTPHandler(g *Gateway, monitor *coordinator.HealthMonitor) http.Handler {
	mux := jobrpc.NewHTTPHandler(g)
	mux.HandleFunc("/backends", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(BackendViews(g.registry, monitor))
	})
	return mux
}

// BackendViews builds the /backends listing.
func BackendViews(reg *coordinator.Registry, monitor *coordinator.HealthMonitor) []BackendView {
	out := make([]BackendView, 0, reg.Len())
	for i, addr := range reg.Addrs() {
		v := BackendView{Index: i, Addr: addr, Status: coordinator.HealthUnknown}
		if monitor != nil {
			if h := monitor.GetBackendHealth(addr); h != nil {
				v.Status = h.Status
				v.ConsecutiveFails = h.ConsecutiveFails
				v.LastError = h.LastError
				v.LastCheck = &h.LastCheck
				v.LastHealthy = &h.LastHealthy
			}
		}
		out = append(out, v)
	}
	return out
}
