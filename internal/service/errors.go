package service

import "net/http"

// Error codes returned by AuthService operations.
const (
	CodeValidation         = "validation_error"
	CodeConflict           = "conflict"
	CodeInvalidCredentials = "invalid_credentials"
	CodeAuth               = "auth_error"
	CodeNotFound           = "not_found"
	CodeUnavailable        = "service_unavailable"
)

// Error is the single structured error shape every operation returns. The
// HTTP layer maps Status directly; Message is safe to surface to callers.
type Error struct {
	Code    string
	Message string
	Status  int
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

func newValidationError(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg, Status: http.StatusNotAcceptable}
}

func newConflictError(msg string) *Error {
	return &Error{Code: CodeConflict, Message: msg, Status: http.StatusNotAcceptable}
}

func newInvalidCredentialsError() *Error {
	// One message for unknown email and wrong password, so responses do
	// not reveal whether an account exists.
	return &Error{Code: CodeInvalidCredentials, Message: "Invalid email or password!", Status: http.StatusUnauthorized}
}

func newAuthError(msg string) *Error {
	return &Error{Code: CodeAuth, Message: msg, Status: http.StatusUnauthorized}
}

func newNotFoundError(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg, Status: http.StatusNotFound}
}

func newUnavailableError() *Error {
	return &Error{Code: CodeUnavailable, Message: "Service temporarily unavailable. Please try again.", Status: http.StatusServiceUnavailable}
}
