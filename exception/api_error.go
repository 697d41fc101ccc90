package exception

import "net/http"

// ApiError is the error type shared by the REST controllers and the socket
// router. Controllers map Status to the HTTP response code; the socket router
// forwards Message as the reason of a SERVER:ERROR emit.
type ApiError struct {
	Status  int    `json:"-"`
	Message string `json:"message"`
	Errors  []any  `json:"errors"`
}

func (e *ApiError) Error() string {
	return e.Message
}

func BadRequest(message string, errors ...any) *ApiError {
	return &ApiError{Status: http.StatusBadRequest, Message: message, Errors: errors}
}

func Unauthorized() *ApiError {
	return &ApiError{Status: http.StatusUnauthorized, Message: "User is unauthorized", Errors: []any{}}
}

func NotFound(message string, errors ...any) *ApiError {
	return &ApiError{Status: http.StatusNotFound, Message: message, Errors: errors}
}

func Conflict(message string, errors ...any) *ApiError {
	return &ApiError{Status: http.StatusConflict, Message: message, Errors: errors}
}
