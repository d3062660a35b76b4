package backend

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/dreamware/jobgateway/internal/cluster"
	"github.com/dreamware/jobgateway/internal/jobrpc"
)

// worker is a minimal job service used as the far end of both transports.
type worker struct {
	name    string
	failErr error
}

func (w *worker) SubmitJob(ctx context.Context, req *cluster.JobRequest) (*cluster.JobStatusResponse, error) {
	if w.failErr != nil {
		return nil, w.failErr
	}
	return &cluster.JobStatusResponse{JobID: req.JobID, Status: cluster.JobRunning, Message: "Processed by " + w.name}, nil
}

func (w *worker) CreateRemoteSession(ctx context.Context, req *cluster.SessionRequest) (*cluster.JobStatusResponse, error) {
	if w.failErr != nil {
		return nil, w.failErr
	}
	return &cluster.JobStatusResponse{JobID: "tmux-" + req.SessionName, Status: cluster.JobRunning, Message: "Session created on " + w.name}, nil
}

func (w *worker) GetStatus(ctx context.Context, req *cluster.StatusRequest) (*cluster.StatusResponse, error) {
	if w.failErr != nil {
		return nil, w.failErr
	}
	return &cluster.StatusResponse{Servers: []cluster.ServerInfo{{HostName: w.name, Status: cluster.Available}}}, nil
}

func TestDialPicksTransport(t *testing.T) {
	tests := []struct {
		addr     string
		wantHTTP bool
	}{
		{"http://worker-1:8081", true},
		{"https://worker-1:8443/", true},
		{"worker-1:50051", false},
		{"dns:///worker-1:50051", false},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			b, err := Dial(tt.addr)
			require.NoError(t, err)
			defer b.Close()

			_, isHTTP := b.(*HTTPBackend)
			assert.Equal(t, tt.wantHTTP, isHTTP)
		})
	}
}

func TestDialAllKeepsOrder(t *testing.T) {
	addrs := []string{"http://a:1", "b:2", "http://c:3"}
	backends, err := DialAll(addrs)
	require.NoError(t, err)
	require.Len(t, backends, 3)
	for i, b := range backends {
		assert.Equal(t, addrs[i], b.Addr())
		b.Close()
	}
}

func TestHTTPBackend(t *testing.T) {
	srv := httptest.NewServer(jobrpc.NewHTTPHandler(&worker{name: "Backend-1"}))
	defer srv.Close()

	b := NewHTTP(srv.URL + "/")
	assert.Equal(t, srv.URL, b.Addr(), "trailing slash trimmed")
	ctx := context.Background()

	job, err := b.SubmitJob(ctx, &cluster.JobRequest{JobID: "job-123"})
	require.NoError(t, err)
	assert.Equal(t, "job-123", job.JobID)
	assert.Equal(t, "Processed by Backend-1", job.Message)

	sess, err := b.CreateRemoteSession(ctx, &cluster.SessionRequest{SessionName: "demo-session"})
	require.NoError(t, err)
	assert.Equal(t, "tmux-demo-session", sess.JobID)

	st, err := b.GetStatus(ctx, &cluster.StatusRequest{})
	require.NoError(t, err)
	assert.Equal(t, []cluster.ServerInfo{{HostName: "Backend-1", Status: cluster.Available}}, st.Servers)

	assert.NoError(t, b.Ping(ctx))
	assert.NoError(t, b.Close())
}

func TestHTTPBackendRelaysFailure(t *testing.T) {
	srv := httptest.NewServer(jobrpc.NewHTTPHandler(&worker{failErr: status.Error(codes.Unavailable, "unavailable")}))
	defer srv.Close()

	_, err := NewHTTP(srv.URL).SubmitJob(context.Background(), &cluster.JobRequest{JobID: "doomed-job"})

	var herr *cluster.HTTPError
	require.True(t, errors.As(err, &herr), "got %T", err)
	assert.Equal(t, http.StatusServiceUnavailable, herr.StatusCode)
	assert.Equal(t, "unavailable", err.Error())
}

func TestHTTPBackendPingFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	assert.Error(t, NewHTTP(srv.URL).Ping(context.Background()))
}

// startGRPCWorker serves w and a health service on an in-memory listener.
func startGRPCWorker(t *testing.T, w *worker, serving healthpb.HealthCheckResponse_ServingStatus) *GRPCBackend {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	jobrpc.RegisterJobServiceServer(srv, w)
	hs := health.NewServer()
	hs.SetServingStatus("", serving)
	healthpb.RegisterHealthServer(srv, hs)
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	b, err := DialGRPC("passthrough:///bufnet", grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

func TestGRPCBackend(t *testing.T) {
	b := startGRPCWorker(t, &worker{name: "Backend-2"}, healthpb.HealthCheckResponse_SERVING)
	ctx := context.Background()

	assert.Equal(t, "passthrough:///bufnet", b.Addr())

	job, err := b.SubmitJob(ctx, &cluster.JobRequest{JobID: "job-7"})
	require.NoError(t, err)
	assert.Equal(t, "Processed by Backend-2", job.Message)

	sess, err := b.CreateRemoteSession(ctx, &cluster.SessionRequest{SessionName: "s"})
	require.NoError(t, err)
	assert.Equal(t, "Session created on Backend-2", sess.Message)

	st, err := b.GetStatus(ctx, &cluster.StatusRequest{})
	require.NoError(t, err)
	require.Len(t, st.Servers, 1)
	assert.Equal(t, "Backend-2", st.Servers[0].HostName)

	assert.NoError(t, b.Ping(ctx))
}

func TestGRPCBackendRelaysStatusUnchanged(t *testing.T) {
	b := startGRPCWorker(t, &worker{failErr: status.Error(codes.Unavailable, "unavailable")}, healthpb.HealthCheckResponse_SERVING)

	_, err := b.SubmitJob(context.Background(), &cluster.JobRequest{JobID: "doomed-job"})

	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.Unavailable, st.Code())
	assert.Equal(t, "unavailable", st.Message())
}

func TestGRPCBackendPingNotServing(t *testing.T) {
	b := startGRPCWorker(t, &worker{name: "w"}, healthpb.HealthCheckResponse_NOT_SERVING)

	err := b.Ping(context.Background())
	assert.ErrorContains(t, err, "reports NOT_SERVING")
}
