package jobrpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/dreamware/jobgateway/internal/cluster"
)

// ServiceName is the fully qualified gRPC service name served by both the
// gateway and the workers.
const ServiceName = "jobgateway.v1.DistributedJobService"

const (
	SubmitJobMethod           = "/" + ServiceName + "/SubmitJob"
	CreateRemoteSessionMethod = "/" + ServiceName + "/CreateRemoteSession"
	GetStatusMethod           = "/" + ServiceName + "/GetStatus"
)

// JobServiceServer is implemented by anything that answers the job service:
// the gateway (fronting a pool) and the worker (answering for itself).
type JobServiceServer interface {
	SubmitJob(ctx context.Context, req *cluster.JobRequest) (*cluster.JobStatusResponse, error)
	CreateRemoteSession(ctx context.Context, req *cluster.SessionRequest) (*cluster.JobStatusResponse, error)
	GetStatus(ctx context.Context, req *cluster.StatusRequest) (*cluster.StatusResponse, error)
}

// RegisterJobServiceServer attaches srv to a gRPC server.
func RegisterJobServiceServer(s grpc.ServiceRegistrar, srv JobServiceServer) {
	s.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*JobServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SubmitJob", Handler: submitJobHandler},
		{MethodName: "CreateRemoteSession", Handler: createRemoteSessionHandler},
		{MethodName: "GetStatus", Handler: getStatusHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "jobgateway/v1/job_service",
}

func submitJobHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(cluster.JobRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(JobServiceServer).SubmitJob(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: SubmitJobMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(JobServiceServer).SubmitJob(ctx, req.(*cluster.JobRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func createRemoteSessionHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(cluster.SessionRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(JobServiceServer).CreateRemoteSession(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: CreateRemoteSessionMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(JobServiceServer).CreateRemoteSession(ctx, req.(*cluster.SessionRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getStatusHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(cluster.StatusRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(JobServiceServer).GetStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetStatusMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(JobServiceServer).GetStatus(ctx, req.(*cluster.StatusRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// Client calls the job service on one connection. It is safe for concurrent
// use; the underlying connection is owned by the caller.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) SubmitJob(ctx context.Context, in *cluster.JobRequest, opts ...grpc.CallOption) (*cluster.JobStatusResponse, error) {
	out := new(cluster.JobStatusResponse)
	if err := c.cc.Invoke(ctx, SubmitJobMethod, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateRemoteSession(ctx context.Context, in *cluster.SessionRequest, opts ...grpc.CallOption) (*cluster.JobStatusResponse, error) {
	out := new(cluster.JobStatusResponse)
	if err := c.cc.Invoke(ctx, CreateRemoteSessionMethod, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetStatus(ctx context.Context, in *cluster.StatusRequest, opts ...grpc.CallOption) (*cluster.StatusResponse, error) {
	out := new(cluster.StatusResponse)
	if err := c.cc.Invoke(ctx, GetStatusMethod, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func withCodec(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}
