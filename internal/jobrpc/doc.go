// Package jobrpc binds the job service to its two transports.
//
// gRPC: the service jobgateway.v1.DistributedJobService is described by a
// hand-written grpc.ServiceDesc and carries the cluster package's structs with
// a JSON codec registered under the content-subtype "json". Clients built with
// NewClient select that codec on every call, so no protobuf stubs are needed:
//
//	srv := grpc.NewServer(grpc.UnaryInterceptor(jobrpc.UnaryLoggingInterceptor(log)))
//	jobrpc.RegisterJobServiceServer(srv, svc)
//
//	client := jobrpc.NewClient(conn)
//	reply, err := client.SubmitJob(ctx, &cluster.JobRequest{JobID: "job-1"})
//
// HTTP: NewHTTPHandler exposes the same three operations as JSON endpoints and
// WriteError turns a failed call into an HTTP answer without rewording it.
//
// Both transports get a logging hook (UnaryLoggingInterceptor and
// LoggingMiddleware) that tags each inbound call with a request ID and logs
// its method and outcome. The hook is pass-through: it never rejects a call.
package jobrpc
