package jobrpc

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"google.golang.org/grpc/status"

	"github.com/dreamware/jobgateway/internal/cluster"
)

// NewHTTPHandler exposes srv over HTTP/JSON:
//
//	POST /jobs      JobRequest     -> JobStatusResponse
//	POST /sessions  SessionRequest -> JobStatusResponse
//	GET  /status                   -> StatusResponse
//	GET  /health                   -> 200
//
// The returned mux can be extended with further routes.
func NewHTTPHandler(srv JobServiceServer) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req cluster.JobRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		resp, err := srv.SubmitJob(r.Context(), &req)
		if err != nil {
			WriteError(w, err)
			return
		}
		writeJSON(w, resp)
	})
	mux.HandleFunc("/sessions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req cluster.SessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		resp, err := srv.CreateRemoteSession(r.Context(), &req)
		if err != nil {
			WriteError(w, err)
			return
		}
		writeJSON(w, resp)
	})
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		resp, err := srv.GetStatus(r.Context(), &cluster.StatusRequest{})
		if err != nil {
			WriteError(w, err)
			return
		}
		writeJSON(w, resp)
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// WriteError replays a failure to an HTTP caller. Errors from HTTP backends
// are written back with the backend's status code and body untouched; errors
// carrying a gRPC status are mapped to the matching HTTP status with the
// status message as body; anything else is a 502 with the error text.
func WriteError(w http.ResponseWriter, err error) {
	var herr *cluster.HTTPError
	if errors.As(err, &herr) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.WriteHeader(herr.StatusCode)
		_, _ = io.WriteString(w, herr.Body)
		return
	}
	if st, ok := status.FromError(err); ok {
		http.Error(w, st.Message(), cluster.HTTPStatusForCode(st.Code()))
		return
	}
	http.Error(w, err.Error(), http.StatusBadGateway)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
