// Package apperror defines the application error taxonomy and its mapping to
// HTTP status codes. Every handler translates errors through Write, so the
// status contract lives in one place.
package apperror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrorType categorizes an application error.
type ErrorType int

const (
	// UnknownError is for unspecified failures.
	UnknownError ErrorType = iota
	// ValidationError is malformed, missing, or policy-violating input.
	ValidationError
	// AuthenticationError is a credential mismatch at login.
	AuthenticationError
	// UnauthenticatedError is a mutation attempted without an identity.
	UnauthenticatedError
	// NotOwnerError is a mutation attempted by a non-owner. The API answers
	// it with 405, not 403; clients depend on that status.
	NotOwnerError
	// NotFoundError is a reference to an identifier that does not exist.
	NotFoundError
	// ConflictError is a uniqueness violation, e.g. a duplicate username.
	ConflictError
	// SignupError is a composite failure of the signup transaction.
	SignupError
	// InternalError is an unexpected store or I/O failure.
	InternalError
)

// AppError carries a type, a client-facing message, and an optional
// underlying error for logs.
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode maps the error type to the HTTP status the API contract
// promises for it.
func (e *AppError) StatusCode() int {
	switch e.Type {
	case ValidationError, SignupError:
		return http.StatusBadRequest
	case AuthenticationError, UnauthenticatedError:
		return http.StatusUnauthorized
	case NotOwnerError:
		return http.StatusMethodNotAllowed
	case NotFoundError:
		return http.StatusNotFound
	case ConflictError:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func newError(t ErrorType, message string, err error) *AppError {
	return &AppError{Type: t, Message: message, Err: err}
}

// NewValidation creates a ValidationError.
func NewValidation(message string) *AppError {
	return newError(ValidationError, message, nil)
}

// NewAuthentication creates an AuthenticationError.
func NewAuthentication(message string) *AppError {
	return newError(AuthenticationError, message, nil)
}

// NewUnauthenticated creates an UnauthenticatedError.
func NewUnauthenticated(message string) *AppError {
	return newError(UnauthenticatedError, message, nil)
}

// NewNotOwner creates a NotOwnerError.
func NewNotOwner(message string) *AppError {
	return newError(NotOwnerError, message, nil)
}

// NewNotFound creates a NotFoundError.
func NewNotFound(message string) *AppError {
	return newError(NotFoundError, message, nil)
}

// NewConflict creates a ConflictError.
func NewConflict(message string) *AppError {
	return newError(ConflictError, message, nil)
}

// NewSignup creates a SignupError wrapping the failure inside the signup
// transaction.
func NewSignup(message string, err error) *AppError {
	return newError(SignupError, message, err)
}

// NewInternal creates an InternalError wrapping an unexpected failure.
func NewInternal(message string, err error) *AppError {
	return newError(InternalError, message, err)
}

// Is reports whether err is an AppError of the given type anywhere in its
// chain.
func Is(err error, t ErrorType) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == t
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool { return Is(err, NotFoundError) }

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool { return Is(err, ValidationError) }

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool { return Is(err, ConflictError) }

// ErrorResponse is the JSON body sent for every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Write translates err into the contract status code and JSON body. Errors
// that are not AppErrors become 500s with a generic message.
func Write(w http.ResponseWriter, err error) {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		appErr = newError(InternalError, "Internal server error", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode())
	json.NewEncoder(w).Encode(ErrorResponse{Error: appErr.Message})
}
