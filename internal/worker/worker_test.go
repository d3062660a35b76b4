package worker

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dreamware/jobgateway/internal/cluster"
)

func TestSubmitJob(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	w := New("Backend-1", zap.New(core))

	resp, err := w.SubmitJob(context.Background(), &cluster.JobRequest{JobID: "job-123", Command: "make test"})
	require.NoError(t, err)
	assert.Equal(t, &cluster.JobStatusResponse{JobID: "job-123", Status: cluster.JobRunning, Message: "Processed by Backend-1"}, resp)

	job, ok := w.Job("job-123")
	require.True(t, ok)
	assert.Equal(t, cluster.JobRunning, job.Status)

	_, ok = w.Job("job-999")
	assert.False(t, ok)

	accepted := logs.FilterMessage("job accepted").All()
	require.Len(t, accepted, 1)
	assert.Equal(t, "make test", accepted[0].ContextMap()["command"])
	assert.Equal(t, "Backend-1", accepted[0].ContextMap()["worker_id"])
}

func TestSubmitJobValidation(t *testing.T) {
	w := New("w", nil)
	_, err := w.SubmitJob(context.Background(), &cluster.JobRequest{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestCreateRemoteSession(t *testing.T) {
	w := New("Backend-1", nil)
	ctx := context.Background()

	resp, err := w.CreateRemoteSession(ctx, &cluster.SessionRequest{SessionName: "demo-session", InitialCommand: "htop"})
	require.NoError(t, err)
	assert.Equal(t, "tmux-demo-session", resp.JobID)
	assert.Equal(t, cluster.JobRunning, resp.Status)
	assert.Equal(t, "Session created on Backend-1", resp.Message)

	_, err = w.CreateRemoteSession(ctx, &cluster.SessionRequest{SessionName: "demo-session"})
	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.AlreadyExists, st.Code())

	_, err = w.CreateRemoteSession(ctx, &cluster.SessionRequest{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	assert.Equal(t, []string{"demo-session"}, w.Sessions())
}

func TestGetStatusAndAvailability(t *testing.T) {
	w := New("Backend-2", nil)
	ctx := context.Background()

	st, err := w.GetStatus(ctx, &cluster.StatusRequest{})
	require.NoError(t, err)
	assert.Equal(t, []cluster.ServerInfo{{HostName: "Backend-2", Status: cluster.Available}}, st.Servers)
	assert.Empty(t, st.Backends)

	w.SetAvailability(cluster.Busy)
	st, _ = w.GetStatus(ctx, &cluster.StatusRequest{})
	assert.Equal(t, cluster.Busy, st.Servers[0].Status)
	_, err = w.SubmitJob(ctx, &cluster.JobRequest{JobID: "job-1"})
	assert.NoError(t, err, "busy workers still accept work")

	w.SetAvailability(cluster.Offline)
	_, err = w.SubmitJob(ctx, &cluster.JobRequest{JobID: "job-2"})
	assert.Equal(t, codes.Unavailable, status.Code(err))
	_, err = w.CreateRemoteSession(ctx, &cluster.SessionRequest{SessionName: "s"})
	assert.Equal(t, codes.Unavailable, status.Code(err))
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	w := New("w", nil)
	resp, err := w.SubmitJob(context.Background(), &cluster.JobRequest{JobID: "job-1"})
	require.NoError(t, err)

	resp.Status = cluster.JobFailed
	job, _ := w.Job("job-1")
	assert.Equal(t, cluster.JobRunning, job.Status)
}

func TestWorkerConcurrency(t *testing.T) {
	w := New("w", nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = w.SubmitJob(ctx, &cluster.JobRequest{JobID: fmt.Sprintf("job-%d", i)})
			_, _ = w.CreateRemoteSession(ctx, &cluster.SessionRequest{SessionName: fmt.Sprintf("s-%d", i)})
			_, _ = w.GetStatus(ctx, &cluster.StatusRequest{})
		}(i)
	}
	wg.Wait()

	assert.Len(t, w.Sessions(), 20)
}
