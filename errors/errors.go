package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// Is reports whether target is an AppError with the same code.
func (e *AppError) Is(target error) bool {
	var other *AppError
	if !stderrors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Retryable: IsRetryableCode(code),
	}
}

// --- Bridge error constructors ---

// UnsupportedWorkerShape creates an error for a worker that implements neither transform.
func UnsupportedWorkerShape(workerType string) *AppError {
	return &AppError{
		Code:    ErrCodeUnsupportedWorkerShape,
		Message: fmt.Sprintf("worker %s implements neither Work nor WorkUnit", workerType),
		Details: map[string]any{"worker": workerType},
	}
}

// TransformFailure wraps an error raised by a worker transform.
// An AppError cause keeps its own code so it crosses the transport unchanged.
func TransformFailure(cause error) *AppError {
	if appErr, ok := AsAppError(cause); ok {
		return appErr
	}
	msg := "worker transform failed"
	if cause != nil {
		msg = cause.Error()
	}
	return &AppError{Code: ErrCodeTransformFailure, Message: msg, Cause: cause}
}

// DecodeFailure creates an error for an inbound payload that is not an envelope.
func DecodeFailure(reason string) *AppError {
	return &AppError{
		Code:    ErrCodeDecodeFailure,
		Message: fmt.Sprintf("cannot decode notification: %s", reason),
	}
}

// InputDropped creates an error for input the worker never saw because it
// had already completed.
func InputDropped(reason string) *AppError {
	return &AppError{Code: ErrCodeInputDropped, Message: fmt.Sprintf("input dropped: %s", reason)}
}

// TransportClosed creates an error for a post or listen on a closed channel.
func TransportClosed(transport string) *AppError {
	return &AppError{
		Code:    ErrCodeTransportClosed,
		Message: fmt.Sprintf("%s transport is closed", transport),
		Details: map[string]any{"transport": transport},
	}
}

// DataClone creates an error for a value or transfer list the transport cannot hand over.
func DataClone(reason string) *AppError {
	return &AppError{Code: ErrCodeDataClone, Message: reason}
}

// ConnectionFailed creates an error for a failed connection to a peer.
func ConnectionFailed(target string) *AppError {
	return &AppError{
		Code:      ErrCodeConnectionFailed,
		Message:   fmt.Sprintf("unable to connect to %s", target),
		Retryable: true,
		Details:   map[string]any{"target": target},
	}
}

// Timeout creates an error for an operation that timed out.
func Timeout(operation string) *AppError {
	return &AppError{
		Code:      ErrCodeTimeout,
		Message:   "the operation took too long",
		Retryable: true,
		Details:   map[string]any{"operation": operation},
	}
}

// InvalidInput creates an error for invalid input.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code:    ErrCodeInvalidInput,
		Message: fmt.Sprintf("invalid input: %s", reason),
		Details: details,
	}
}

// Validation creates an error for a failed validation.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeInvalidInput, Message: message}
}

// Unauthorized creates an error for unauthorized access.
func Unauthorized(reason string) *AppError {
	if reason == "" {
		reason = "authentication required"
	}
	return &AppError{Code: ErrCodeUnauthorized, Message: reason}
}

// NotFound creates an error for a resource that was not found.
func NotFound(resource, id string) *AppError {
	details := map[string]any{"resource": resource}
	if id != "" {
		details["id"] = id
	}
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Details: details,
	}
}

// Internal creates an error for an unexpected internal failure.
func Internal(cause error) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: "an unexpected error occurred",
		Cause:   cause,
	}
}

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsCode reports whether err is an AppError carrying code.
func IsCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}
