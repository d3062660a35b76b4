package cluster

import (
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrNoBackendsAvailable is returned by unicast operations when the backend
// registry is empty. It carries gRPC code Unavailable.
var ErrNoBackendsAvailable error = &unavailableError{msg: "no backend servers available"}

type unavailableError struct {
	msg string
}

func (e *unavailableError) Error() string { return e.msg }

func (e *unavailableError) GRPCStatus() *status.Status {
	return status.New(codes.Unavailable, e.msg)
}

// GRPCStatus lets a failure from an HTTP backend cross the gateway's gRPC
// surface with a matching code and the backend's message.
func (e *HTTPError) GRPCStatus() *status.Status {
	return status.New(CodeForHTTPStatus(e.StatusCode), e.Error())
}

var httpToCode = map[int]codes.Code{
	http.StatusBadRequest:          codes.InvalidArgument,
	http.StatusUnauthorized:        codes.Unauthenticated,
	http.StatusForbidden:           codes.PermissionDenied,
	http.StatusNotFound:            codes.NotFound,
	http.StatusConflict:            codes.AlreadyExists,
	http.StatusTooManyRequests:     codes.ResourceExhausted,
	http.StatusInternalServerError: codes.Internal,
	http.StatusNotImplemented:      codes.Unimplemented,
	http.StatusBadGateway:          codes.Unavailable,
	http.StatusServiceUnavailable:  codes.Unavailable,
	http.StatusGatewayTimeout:      codes.DeadlineExceeded,
}

var codeToHTTP = map[codes.Code]int{
	codes.InvalidArgument:   http.StatusBadRequest,
	codes.Unauthenticated:   http.StatusUnauthorized,
	codes.PermissionDenied:  http.StatusForbidden,
	codes.NotFound:          http.StatusNotFound,
	codes.AlreadyExists:     http.StatusConflict,
	codes.ResourceExhausted: http.StatusTooManyRequests,
	codes.Internal:          http.StatusInternalServerError,
	codes.Unimplemented:     http.StatusNotImplemented,
	codes.Unavailable:       http.StatusServiceUnavailable,
	codes.DeadlineExceeded:  http.StatusGatewayTimeout,
}

// CodeForHTTPStatus maps an HTTP status to the closest gRPC code.
func CodeForHTTPStatus(httpStatus int) codes.Code {
	if c, ok := httpToCode[httpStatus]; ok {
		return c
	}
	return codes.Unknown
}

// HTTPStatusForCode maps a gRPC code to the closest HTTP status. Codes with
// no counterpart become 502 Bad Gateway.
func HTTPStatusForCode(c codes.Code) int {
	if s, ok := codeToHTTP[c]; ok {
		return s
	}
	return http.StatusBadGateway
}
