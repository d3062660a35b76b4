package backend

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/dreamware/jobgateway/internal/cluster"
	"github.com/dreamware/jobgateway/internal/jobrpc"
)

// GRPCBackend reaches a worker over one gRPC client connection. Failed calls
// return the worker's status error unchanged.
type GRPCBackend struct {
	conn   *grpc.ClientConn
	client *jobrpc.Client
	health healthpb.HealthClient
	addr   string
}

// DialGRPC creates a plaintext client connection to addr. The connection is
// established lazily by gRPC on first use.
func DialGRPC(addr string, opts ...grpc.DialOption) (*GRPCBackend, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial backend %s: %w", addr, err)
	}
	return &GRPCBackend{
		addr:   addr,
		conn:   conn,
		client: jobrpc.NewClient(conn),
		health: healthpb.NewHealthClient(conn),
	}, nil
}

func (b *GRPCBackend) Addr() string { return b.addr }

func (b *GRPCBackend) SubmitJob(ctx context.Context, req *cluster.JobRequest) (*cluster.JobStatusResponse, error) {
	return b.client.SubmitJob(ctx, req)
}

func (b *GRPCBackend) CreateRemoteSession(ctx context.Context, req *cluster.SessionRequest) (*cluster.JobStatusResponse, error) {
	return b.client.CreateRemoteSession(ctx, req)
}

func (b *GRPCBackend) GetStatus(ctx context.Context, req *cluster.StatusRequest) (*cluster.StatusResponse, error) {
	return b.client.GetStatus(ctx, req)
}

// Ping runs the standard gRPC health check for the whole server.
func (b *GRPCBackend) Ping(ctx context.Context) error {
	resp, err := b.health.Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return err
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("backend %s reports %s", b.addr, resp.GetStatus())
	}
	return nil
}

func (b *GRPCBackend) Close() error {
	return b.conn.Close()
}
