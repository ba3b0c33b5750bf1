package errors

import "net/http"

var httpStatus = map[ErrorCode]int{
	ErrCodeUnsupportedWorkerShape: http.StatusUnprocessableEntity,
	ErrCodeDecodeFailure:          http.StatusBadRequest,
	ErrCodeInputDropped:           http.StatusConflict,
	ErrCodeInvalidInput:           http.StatusBadRequest,
	ErrCodeMissingField:           http.StatusBadRequest,
	ErrCodeUnauthorized:           http.StatusUnauthorized,
	ErrCodeNotFound:               http.StatusNotFound,
	ErrCodeTimeout:                http.StatusGatewayTimeout,
	ErrCodeConnectionFailed:       http.StatusBadGateway,
	ErrCodeTransportClosed:        http.StatusServiceUnavailable,
}

// HTTPStatus maps err to a response status. Non-AppErrors are 500.
func HTTPStatus(err error) int {
	appErr, ok := AsAppError(err)
	if !ok {
		return http.StatusInternalServerError
	}
	if s, ok := httpStatus[appErr.Code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// HTTPBody returns the response body for err. Plain errors are reported as
// INTERNAL_ERROR without their message.
func HTTPBody(err error) *ErrorBody {
	if !IsAppError(err) {
		return ToBody(Internal(err))
	}
	return ToBody(err)
}
