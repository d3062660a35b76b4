// Package worker implements a reference backend for the job gateway.
//
// A Worker speaks the same job service as the gateway and acknowledges
// requests without executing anything: jobs are recorded as RUNNING,
// sessions get a job ID of "tmux-<session_name>", and status reports the
// worker itself as one server. It exists so a gateway can be run and
// exercised end to end against real processes.
//
// Architecture:
//
//	┌─────────────────────────────────────────┐
//	│                Worker                   │
//	├─────────────────────────────────────────┤
//	│  gRPC / HTTP:                           │
//	│    SubmitJob            - ack job       │
//	│    CreateRemoteSession  - ack session   │
//	│    GetStatus            - self report   │
//	├─────────────────────────────────────────┤
//	│  State:                                 │
//	│    jobs map      - acknowledged jobs    │
//	│    sessions map  - created sessions     │
//	│    availability  - AVAILABLE|BUSY|...   │
//	└─────────────────────────────────────────┘
package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/exp/slices"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dreamware/jobgateway/internal/cluster"
	"github.com/dreamware/jobgateway/internal/jobrpc"
)

var _ jobrpc.JobServiceServer = (*Worker)(nil)

// Worker is an in-memory job service. Safe for concurrent use.
type Worker struct {
	jobs         map[string]*cluster.JobStatusResponse
	sessions     map[string]*cluster.JobStatusResponse
	log          *zap.Logger
	ID           string
	availability cluster.Availability
	mu           sync.RWMutex
}

// New returns an AVAILABLE worker identified by id.
func New(id string, log *zap.Logger) *Worker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Worker{
		ID:           id,
		jobs:         make(map[string]*cluster.JobStatusResponse),
		sessions:     make(map[string]*cluster.JobStatusResponse),
		availability: cluster.Available,
		log:          log.Named("worker").With(zap.String("worker_id", id)),
	}
}

// SubmitJob acknowledges req. Resubmitting a known job ID replaces the
// earlier record.
func (w *Worker) SubmitJob(ctx context.Context, req *cluster.JobRequest) (*cluster.JobStatusResponse, error) {
	if req.JobID == "" {
		return nil, status.Error(codes.InvalidArgument, "job_id is required")
	}
	if err := w.acceptable(); err != nil {
		return nil, err
	}

	resp := &cluster.JobStatusResponse{
		JobID:   req.JobID,
		Status:  cluster.JobRunning,
		Message: "Processed by " + w.ID,
	}

	w.mu.Lock()
	w.jobs[req.JobID] = resp
	w.mu.Unlock()

	w.log.Info("job accepted",
		zap.String("job_id", req.JobID),
		zap.String("command", req.Command),
		zap.String("request_id", jobrpc.RequestID(ctx)))

	cp := *resp
	return &cp, nil
}

// CreateRemoteSession acknowledges a named session. Session names are
// unique per worker.
func (w *Worker) CreateRemoteSession(ctx context.Context, req *cluster.SessionRequest) (*cluster.JobStatusResponse, error) {
	if req.SessionName == "" {
		return nil, status.Error(codes.InvalidArgument, "session_name is required")
	}
	if err := w.acceptable(); err != nil {
		return nil, err
	}

	w.mu.Lock()
	if _, exists := w.sessions[req.SessionName]; exists {
		w.mu.Unlock()
		return nil, status.Errorf(codes.AlreadyExists, "session %q already exists on %s", req.SessionName, w.ID)
	}
	resp := &cluster.JobStatusResponse{
		JobID:   "tmux-" + req.SessionName,
		Status:  cluster.JobRunning,
		Message: "Session created on " + w.ID,
	}
	w.sessions[req.SessionName] = resp
	w.mu.Unlock()

	w.log.Info("session created",
		zap.String("session", req.SessionName),
		zap.String("initial_command", req.InitialCommand),
		zap.String("request_id", jobrpc.RequestID(ctx)))

	cp := *resp
	return &cp, nil
}

// GetStatus reports this worker as a single server.
func (w *Worker) GetStatus(ctx context.Context, _ *cluster.StatusRequest) (*cluster.StatusResponse, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return &cluster.StatusResponse{
		Servers: []cluster.ServerInfo{{HostName: w.ID, Status: w.availability}},
	}, nil
}

// SetAvailability changes what GetStatus reports. An OFFLINE worker
// rejects new jobs and sessions with Unavailable.
func (w *Worker) SetAvailability(a cluster.Availability) {
	w.mu.Lock()
	w.availability = a
	w.mu.Unlock()
	w.log.Info("availability changed", zap.String("availability", string(a)))
}

func (w *Worker) acceptable() error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.availability == cluster.Offline {
		return status.Errorf(codes.Unavailable, "worker %s is offline", w.ID)
	}
	return nil
}

// Job returns the record for id, if the job was accepted.
func (w *Worker) Job(id string) (cluster.JobStatusResponse, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	j, ok := w.jobs[id]
	if !ok {
		return cluster.JobStatusResponse{}, false
	}
	return *j, true
}

// Sessions lists the created session names in sorted order.
func (w *Worker) Sessions() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]string, 0, len(w.sessions))
	for name := range w.sessions {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}
