// Package cluster defines the messages exchanged between clients, the gateway
// and the backend workers, plus the small HTTP/JSON helpers used to move them.
//
// # Overview
//
// Every participant speaks the same job service: a client talks to the
// gateway exactly as it would talk to a single worker, and the gateway talks
// to each worker with the same messages. The types in this package are that
// shared vocabulary:
//
//	client ──JobRequest──────▶ gateway ──JobRequest──────▶ one worker
//	client ──SessionRequest──▶ gateway ──SessionRequest──▶ one worker
//	client ──StatusRequest───▶ gateway ──StatusRequest───▶ every worker
//
// # Messages
//
// JobRequest / SessionRequest: unicast payloads, forwarded verbatim.
//
// JobStatusResponse: the reply to both unicast operations.
//
// StatusResponse: a listing of ServerInfo entries. A worker answers with its
// own entry; the gateway answers with the concatenation of every worker's
// listing plus one BackendReport per backend, so that "every backend failed"
// can be told apart from "nothing to report".
//
// # HTTP helpers
//
// PostJSON and GetJSON issue a request with a 5 second client timeout and
// decode the JSON reply. Non-2xx answers come back as *HTTPError, which keeps
// the status code and body intact:
//
//	var reply cluster.JobStatusResponse
//	err := cluster.PostJSON(ctx, "http://worker-1:8081/jobs", req, &reply)
//	var herr *cluster.HTTPError
//	if errors.As(err, &herr) {
//	    // herr.StatusCode and herr.Body are what the worker sent
//	}
package cluster
