package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Wiring errors
const (
	// ErrCodeUnsupportedWorkerShape indicates a worker exposes neither a stream nor a unit transform.
	ErrCodeUnsupportedWorkerShape ErrorCode = "UNSUPPORTED_WORKER_SHAPE"
	// ErrCodeTransformFailure indicates a worker transform failed or its output sequence errored.
	ErrCodeTransformFailure ErrorCode = "TRANSFORM_FAILURE"
	// ErrCodeDecodeFailure indicates an inbound payload is not a recognizable envelope.
	ErrCodeDecodeFailure ErrorCode = "DECODE_FAILURE"
	// ErrCodeInputDropped indicates input arrived after the worker had already completed.
	ErrCodeInputDropped ErrorCode = "INPUT_DROPPED"
)

// Transport errors
const (
	// ErrCodeTransportClosed indicates the message channel has been closed.
	ErrCodeTransportClosed ErrorCode = "TRANSPORT_CLOSED"
	// ErrCodeDataClone indicates a payload or transfer list could not be handed to the transport.
	ErrCodeDataClone ErrorCode = "DATA_CLONE"
	// ErrCodeConnectionFailed indicates a failed connection to a remote peer.
	ErrCodeConnectionFailed ErrorCode = "CONNECTION_FAILED"
	// ErrCodeTimeout indicates the operation timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
)

// Validation errors
const (
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeMissingField indicates a required field is missing.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
)

// Access errors
const (
	// ErrCodeUnauthorized indicates the request is unauthorized.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrCodeNotFound indicates the requested resource was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
)

// ErrCodeInternal indicates an unexpected internal error.
const ErrCodeInternal ErrorCode = "INTERNAL_ERROR"

var retryableCodes = map[ErrorCode]bool{
	ErrCodeConnectionFailed: true,
	ErrCodeTimeout:          true,
	ErrCodeTransportClosed:  false,
	ErrCodeInternal:         false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
