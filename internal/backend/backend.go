// Package backend holds the gateway's connection handles to its workers.
//
// A Backend is created once at startup from a configured address and kept
// for the life of the process. Handles are never re-dialed: a worker that
// goes away simply fails every call until the gateway restarts.
package backend

//go:generate mockgen -source backend.go -destination backend_mock.go -package backend

import (
	"context"
	"strings"

	"github.com/dreamware/jobgateway/internal/cluster"
)

// Backend is a long-lived handle to one worker. Implementations are safe for
// concurrent use.
type Backend interface {
	// Addr is the address the handle was created from. Together with the
	// handle's position in the registry it identifies the backend.
	Addr() string

	SubmitJob(ctx context.Context, req *cluster.JobRequest) (*cluster.JobStatusResponse, error)
	CreateRemoteSession(ctx context.Context, req *cluster.SessionRequest) (*cluster.JobStatusResponse, error)
	GetStatus(ctx context.Context, req *cluster.StatusRequest) (*cluster.StatusResponse, error)

	// Ping reports whether the worker answers its health check.
	Ping(ctx context.Context) error

	Close() error
}

// Dial creates the handle for addr. Addresses with an http:// or https://
// scheme use the HTTP/JSON transport; anything else is a gRPC target.
func Dial(addr string) (Backend, error) {
	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return NewHTTP(addr), nil
	}
	return DialGRPC(addr)
}

// DialAll dials every address in order. On failure the handles created so far
// are closed.
func DialAll(addrs []string) ([]Backend, error) {
	out := make([]Backend, 0, len(addrs))
	for _, addr := range addrs {
		b, err := Dial(addr)
		if err != nil {
			for _, prev := range out {
				_ = prev.Close()
			}
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}
