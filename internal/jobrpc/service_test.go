package jobrpc

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/dreamware/jobgateway/internal/cluster"
)

// fakeService answers like a worker named "Backend-1"; failJobs makes
// SubmitJob return an Unavailable status.
type fakeService struct {
	sessionErr error
	failJobs   bool
	lastID     string
}

func (f *fakeService) SubmitJob(ctx context.Context, req *cluster.JobRequest) (*cluster.JobStatusResponse, error) {
	f.lastID = RequestID(ctx)
	if f.failJobs {
		return nil, status.Error(codes.Unavailable, "Simulated Unavailable")
	}
	return &cluster.JobStatusResponse{JobID: req.JobID, Status: cluster.JobRunning, Message: "Processed by Backend-1"}, nil
}

func (f *fakeService) CreateRemoteSession(ctx context.Context, req *cluster.SessionRequest) (*cluster.JobStatusResponse, error) {
	if f.sessionErr != nil {
		return nil, f.sessionErr
	}
	return &cluster.JobStatusResponse{JobID: "tmux-" + req.SessionName, Status: cluster.JobRunning}, nil
}

func (f *fakeService) GetStatus(ctx context.Context, req *cluster.StatusRequest) (*cluster.StatusResponse, error) {
	return &cluster.StatusResponse{Servers: []cluster.ServerInfo{{HostName: "Backend-1", Status: cluster.Available}}}, nil
}

// startBufServer serves svc on an in-memory listener and returns a client
// connection to it.
func startBufServer(t *testing.T, svc JobServiceServer, opts ...grpc.ServerOption) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(opts...)
	RegisterJobServiceServer(srv, svc)
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestClientRoundTrip(t *testing.T) {
	client := NewClient(startBufServer(t, &fakeService{}))
	ctx := context.Background()

	job, err := client.SubmitJob(ctx, &cluster.JobRequest{JobID: "job-123"})
	require.NoError(t, err)
	assert.Equal(t, "job-123", job.JobID)
	assert.Equal(t, cluster.JobRunning, job.Status)
	assert.Contains(t, job.Message, "Backend-1")

	sess, err := client.CreateRemoteSession(ctx, &cluster.SessionRequest{SessionName: "demo-session", InitialCommand: "top"})
	require.NoError(t, err)
	assert.Equal(t, "tmux-demo-session", sess.JobID)

	st, err := client.GetStatus(ctx, &cluster.StatusRequest{})
	require.NoError(t, err)
	require.Len(t, st.Servers, 1)
	assert.Equal(t, "Backend-1", st.Servers[0].HostName)
	assert.Equal(t, cluster.Available, st.Servers[0].Status)
}

func TestClientStatusErrorPassesThrough(t *testing.T) {
	client := NewClient(startBufServer(t, &fakeService{failJobs: true}))

	_, err := client.SubmitJob(context.Background(), &cluster.JobRequest{JobID: "doomed-job"})
	require.Error(t, err)

	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.Unavailable, st.Code())
	assert.Equal(t, "Simulated Unavailable", st.Message())
}

func TestUnaryLoggingInterceptor(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	svc := &fakeService{}
	conn := startBufServer(t, svc, grpc.UnaryInterceptor(UnaryLoggingInterceptor(zap.New(core))))

	var header metadata.MD
	_, err := NewClient(conn).SubmitJob(context.Background(), &cluster.JobRequest{JobID: "job-1"}, grpc.Header(&header))
	require.NoError(t, err)

	received := logs.FilterMessage("received call").All()
	require.Len(t, received, 1)
	assert.Equal(t, SubmitJobMethod, received[0].ContextMap()["method"])

	finished := logs.FilterMessage("finished call").All()
	require.Len(t, finished, 1)
	assert.Equal(t, "OK", finished[0].ContextMap()["code"])

	id := received[0].ContextMap()["request_id"].(string)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, svc.lastID, "handler sees the request ID")
	assert.Equal(t, []string{id}, header.Get(RequestIDKey))
}

func TestUnaryLoggingInterceptorKeepsCallerRequestID(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	svc := &fakeService{}
	conn := startBufServer(t, svc, grpc.UnaryInterceptor(UnaryLoggingInterceptor(zap.New(core))))

	ctx := metadata.AppendToOutgoingContext(context.Background(), RequestIDKey, "req-42")
	_, err := NewClient(conn).SubmitJob(ctx, &cluster.JobRequest{JobID: "job-1"})
	require.NoError(t, err)

	assert.Equal(t, "req-42", svc.lastID)
	assert.Equal(t, 1, logs.FilterField(zap.String("request_id", "req-42")).FilterMessage("received call").Len())
}

func TestUnaryLoggingInterceptorLogsFailureCode(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	conn := startBufServer(t, &fakeService{failJobs: true}, grpc.UnaryInterceptor(UnaryLoggingInterceptor(zap.New(core))))

	_, err := NewClient(conn).SubmitJob(context.Background(), &cluster.JobRequest{JobID: "doomed-job"})
	require.Error(t, err)

	finished := logs.FilterMessage("finished call").All()
	require.Len(t, finished, 1)
	assert.Equal(t, "Unavailable", finished[0].ContextMap()["code"])
}

func TestUnaryErrorInterceptor(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode codes.Code
		wantMsg  string
	}{
		{"plain error becomes unavailable", errors.New("dial tcp: connection refused"), codes.Unavailable, "dial tcp: connection refused"},
		{"status kept", status.Error(codes.NotFound, "no such session"), codes.NotFound, "no such session"},
		{"http error keeps mapped code", &cluster.HTTPError{StatusCode: 400, Body: "bad session"}, codes.InvalidArgument, "bad session"},
		{"no backends", cluster.ErrNoBackendsAvailable, codes.Unavailable, "no backend servers available"},
		{"deadline", context.DeadlineExceeded, codes.DeadlineExceeded, context.DeadlineExceeded.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := startBufServer(t, &fakeService{sessionErr: tt.err}, grpc.UnaryInterceptor(UnaryErrorInterceptor()))

			_, err := NewClient(conn).CreateRemoteSession(context.Background(), &cluster.SessionRequest{SessionName: "s"})

			st, ok := status.FromError(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, st.Code())
			assert.Equal(t, tt.wantMsg, st.Message())
		})
	}
}
