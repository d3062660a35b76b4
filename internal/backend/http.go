package backend

import (
	"context"
	"strings"

	"github.com/dreamware/jobgateway/internal/cluster"
)

// HTTPBackend reaches a worker through its HTTP/JSON endpoints. Non-2xx
// answers surface as *cluster.HTTPError with the worker's status and body.
type HTTPBackend struct {
	base string
}

func NewHTTP(base string) *HTTPBackend {
	return &HTTPBackend{base: strings.TrimRight(base, "/")}
}

func (b *HTTPBackend) Addr() string { return b.base }

func (b *HTTPBackend) SubmitJob(ctx context.Context, req *cluster.JobRequest) (*cluster.JobStatusResponse, error) {
	var out cluster.JobStatusResponse
	if err := cluster.PostJSON(ctx, b.base+"/jobs", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (b *HTTPBackend) CreateRemoteSession(ctx context.Context, req *cluster.SessionRequest) (*cluster.JobStatusResponse, error) {
	var out cluster.JobStatusResponse
	if err := cluster.PostJSON(ctx, b.base+"/sessions", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (b *HTTPBackend) GetStatus(ctx context.Context, _ *cluster.StatusRequest) (*cluster.StatusResponse, error) {
	var out cluster.StatusResponse
	if err := cluster.GetJSON(ctx, b.base+"/status", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (b *HTTPBackend) Ping(ctx context.Context) error {
	return cluster.GetJSON(ctx, b.base+"/health", nil)
}

func (b *HTTPBackend) Close() error { return nil }
