package trace

import "fmt"

// StatusCode is a span status code for use with Span.SetStatus. The values
// correspond to the status codes used by gRPC, defined at
// https://github.com/googleapis/googleapis/blob/master/google/rpc/code.proto
type StatusCode int32

const (
	StatusCodeOK                 StatusCode = 0
	StatusCodeCancelled          StatusCode = 1
	StatusCodeUnknown            StatusCode = 2
	StatusCodeInvalidArgument    StatusCode = 3
	StatusCodeDeadlineExceeded   StatusCode = 4
	StatusCodeNotFound           StatusCode = 5
	StatusCodeAlreadyExists      StatusCode = 6
	StatusCodePermissionDenied   StatusCode = 7
	StatusCodeResourceExhausted  StatusCode = 8
	StatusCodeFailedPrecondition StatusCode = 9
	StatusCodeAborted            StatusCode = 10
	StatusCodeOutOfRange         StatusCode = 11
	StatusCodeUnimplemented      StatusCode = 12
	StatusCodeInternal           StatusCode = 13
	StatusCodeUnavailable        StatusCode = 14
	StatusCodeDataLoss           StatusCode = 15
	StatusCodeUnauthenticated    StatusCode = 16
)

var statusCodeNames = [...]string{
	"OK",
	"Cancelled",
	"Unknown",
	"InvalidArgument",
	"DeadlineExceeded",
	"NotFound",
	"AlreadyExists",
	"PermissionDenied",
	"ResourceExhausted",
	"FailedPrecondition",
	"Aborted",
	"OutOfRange",
	"Unimplemented",
	"Internal",
	"Unavailable",
	"DataLoss",
	"Unauthenticated",
}

// String returns the name of the status code.
func (c StatusCode) String() string {
	if c < 0 || int(c) >= len(statusCodeNames) {
		return fmt.Sprintf("StatusCode(%d)", int32(c))
	}
	return statusCodeNames[c]
}
