package cluster

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// JobState is the lifecycle state a backend reports for a submitted job.
type JobState string

const (
	JobPending   JobState = "PENDING"
	JobRunning   JobState = "RUNNING"
	JobCompleted JobState = "COMPLETED"
	JobFailed    JobState = "FAILED"
)

// Availability is the self-reported state of one server in a status listing.
type Availability string

const (
	Available Availability = "AVAILABLE"
	Busy      Availability = "BUSY"
	Offline   Availability = "OFFLINE"
)

// BackendState describes how one backend fared during a broadcast.
type BackendState string

const (
	BackendOK      BackendState = "ok"
	BackendFailed  BackendState = "failed"
	BackendPending BackendState = "pending"
)

type JobRequest struct {
	JobID   string `json:"job_id"`
	Command string `json:"command,omitempty"`
}

type SessionRequest struct {
	SessionName    string `json:"session_name"`
	InitialCommand string `json:"initial_command,omitempty"`
}

type JobStatusResponse struct {
	JobID   string   `json:"job_id"`
	Status  JobState `json:"status"`
	Message string   `json:"message,omitempty"`
}

type StatusRequest struct{}

type ServerInfo struct {
	HostName string       `json:"host_name"`
	Status   Availability `json:"status"`
}

// BackendReport is the outcome of one backend in a broadcast, listed in
// registry order.
type BackendReport struct {
	Addr      string       `json:"addr"`
	State     BackendState `json:"state"`
	Error     string       `json:"error,omitempty"`
	Index     int          `json:"index"`
	ElapsedMS int64        `json:"elapsed_ms,omitempty"`
}

type StatusResponse struct {
	Servers  []ServerInfo    `json:"servers"`
	Backends []BackendReport `json:"backends,omitempty"`
}

// HTTPError is returned by PostJSON and GetJSON when the peer answers with a
// status >= 300. Body holds the response body as sent by the peer so that it
// can be replayed unchanged.
type HTTPError struct {
	URL        string
	Body       string
	StatusCode int
}

func (e *HTTPError) Error() string {
	if msg := strings.TrimSpace(e.Body); msg != "" {
		return msg
	}
	return fmt.Sprintf("http %s: %d", e.URL, e.StatusCode)
}

var httpClient = &http.Client{Timeout: 5 * time.Second}

func PostJSON(ctx context.Context, url string, body any, out any) error {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return do(req, out)
}

func GetJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	return do(req, out)
}

func do(req *http.Request, out any) error {
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return &HTTPError{URL: req.URL.String(), StatusCode: resp.StatusCode, Body: string(body)}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
