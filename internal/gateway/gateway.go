// Package gateway is the public face of the job gateway. It turns the three
// client operations into unicast or broadcast dispatch over a
// coordinator.Registry.
//
// SubmitJob and CreateRemoteSession go to exactly one backend and return
// its reply or error untouched. GetAggregateStatus asks every backend and
// merges whatever arrived within the broadcast timeout; it never fails.
package gateway

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dreamware/jobgateway/internal/backend"
	"github.com/dreamware/jobgateway/internal/cluster"
	"github.com/dreamware/jobgateway/internal/coordinator"
	"github.com/dreamware/jobgateway/internal/jobrpc"
)

var _ jobrpc.JobServiceServer = (*Gateway)(nil)

// Gateway dispatches client requests to the backends of a registry. It
// holds no per-call state and is safe for concurrent use.
type Gateway struct {
	registry *coordinator.Registry
	log      *zap.Logger
	timeout  time.Duration
}

// New returns a gateway over reg. A non-positive timeout selects
// coordinator.DefaultBroadcastTimeout.
func New(reg *coordinator.Registry, timeout time.Duration, log *zap.Logger) *Gateway {
	if timeout <= 0 {
		timeout = coordinator.DefaultBroadcastTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Gateway{
		registry: reg,
		timeout:  timeout,
		log:      log.Named("gateway"),
	}
}

// Registry returns the registry the gateway dispatches over.
func (g *Gateway) Registry() *coordinator.Registry { return g.registry }

// SubmitJob forwards req to the backend selected for its job ID. A nil req
// is rejected with InvalidArgument before any backend is chosen.
func (g *Gateway) SubmitJob(ctx context.Context, req *cluster.JobRequest) (*cluster.JobStatusResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "job request is required")
	}
	b, err := g.registry.Select(req.JobID)
	if err != nil {
		g.log.Warn("submit job rejected", zap.String("job_id", req.JobID), zap.Error(err))
		return nil, err
	}
	resp, err := b.SubmitJob(ctx, req)
	if err != nil {
		g.logUnicastFailure("SubmitJob", b, err)
		return nil, err
	}
	return resp, nil
}

// CreateRemoteSession forwards req to the backend selected for its session
// name. A nil req is rejected like in SubmitJob.
func (g *Gateway) CreateRemoteSession(ctx context.Context, req *cluster.SessionRequest) (*cluster.JobStatusResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "session request is required")
	}
	b, err := g.registry.Select(req.SessionName)
	if err != nil {
		g.log.Warn("create session rejected", zap.String("session", req.SessionName), zap.Error(err))
		return nil, err
	}
	resp, err := b.CreateRemoteSession(ctx, req)
	if err != nil {
		g.logUnicastFailure("CreateRemoteSession", b, err)
		return nil, err
	}
	return resp, nil
}

func (g *Gateway) logUnicastFailure(op string, b backend.Backend, err error) {
	g.log.Info("backend call failed",
		zap.String("op", op),
		zap.String("backend", b.Addr()),
		zap.Error(err))
}

// GetAggregateStatus broadcasts req to every backend and concatenates the
// server listings that arrived in time, in arrival order. Duplicates across
// backends are kept. Backends lists every backend's outcome in registry
// order, so an empty listing caused by failures can be told apart from one
// where nobody had anything to report.
func (g *Gateway) GetAggregateStatus(ctx context.Context, req *cluster.StatusRequest) *cluster.StatusResponse {
	res := coordinator.Broadcast(ctx, g.log, g.registry, g.timeout,
		func(ctx context.Context, b backend.Backend) (*cluster.StatusResponse, error) {
			return b.GetStatus(ctx, req)
		})

	servers := []cluster.ServerInfo{}
	for _, reply := range res.Replies {
		if reply == nil {
			continue
		}
		servers = append(servers, reply.Servers...)
	}

	g.log.Debug("aggregated status",
		zap.Int("backends", len(res.Reports)),
		zap.Int("replies", len(res.Replies)),
		zap.Int("servers", len(servers)),
		zap.Bool("timed_out", res.TimedOut))

	return &cluster.StatusResponse{
		Servers:  servers,
		Backends: res.Reports,
	}
}

// GetStatus serves GetAggregateStatus on the RPC surfaces. The error is
// always nil.
func (g *Gateway) GetStatus(ctx context.Context, req *cluster.StatusRequest) (*cluster.StatusResponse, error) {
	if req == nil {
		req = &cluster.StatusRequest{}
	}
	return g.GetAggregateStatus(ctx, req), nil
}
