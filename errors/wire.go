package errors

// ErrorBody is the transport form of an error carried by an Error envelope.
type ErrorBody struct {
	Code      ErrorCode      `json:"code" cbor:"code"`
	Message   string         `json:"message" cbor:"message"`
	Retryable bool           `json:"retryable,omitempty" cbor:"retryable,omitempty"`
	Details   map[string]any `json:"details,omitempty" cbor:"details,omitempty"`
}

// ToBody converts any error into its transport form.
// Plain errors become TRANSFORM_FAILURE bodies holding err.Error().
func ToBody(err error) *ErrorBody {
	if err == nil {
		return nil
	}
	appErr, ok := AsAppError(err)
	if !ok {
		return &ErrorBody{Code: ErrCodeTransformFailure, Message: err.Error()}
	}
	return &ErrorBody{
		Code:      appErr.Code,
		Message:   appErr.Message,
		Retryable: appErr.Retryable,
		Details:   appErr.Details,
	}
}

// FromBody rebuilds an AppError received from the other side of a transport.
func FromBody(body *ErrorBody) *AppError {
	if body == nil {
		return &AppError{Code: ErrCodeInternal, Message: "error envelope without error body"}
	}
	code := body.Code
	if code == "" {
		code = ErrCodeInternal
	}
	return &AppError{
		Code:      code,
		Message:   body.Message,
		Retryable: body.Retryable,
		Details:   body.Details,
	}
}
