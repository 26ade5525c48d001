// Package apperror defines the application's error taxonomy.
//
// Every failure that reaches an HTTP boundary is an *AppError wrapping one of
// the sentinel errors below. Handlers and middleware never pick status codes
// themselves: they call Status and Kind, so the same error always produces the
// same response no matter which layer created it.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("Validation Error")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")

	// ErrMissingCredential means the request carried no usable session cookie
	// or bearer token.
	ErrMissingCredential = errors.New("missing credential")
	// ErrInvalidCredential means a credential was presented but the auth
	// service rejected it (expired, malformed, revoked).
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrMissingConfiguration is operator-fixable and never retried.
	ErrMissingConfiguration = errors.New("missing configuration")
	// ErrDownstream covers store and email-provider failures.
	ErrDownstream = errors.New("downstream error")
	// ErrUnauthorized is used by the static-key protected endpoints.
	ErrUnauthorized = errors.New("unauthorized")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

// NotFoundMessage is NotFound for lookups that have no single id, such as
// "no active quote".
func NotFoundMessage(message string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: message,
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

func MissingCredential(message string) *AppError {
	return &AppError{
		Err:     ErrMissingCredential,
		Message: message,
	}
}

func InvalidCredential(message string) *AppError {
	return &AppError{
		Err:     ErrInvalidCredential,
		Message: message,
	}
}

func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// MissingConfiguration names every key that was tried, e.g.
// "Missing SUPABASE_URL or NEXT_PUBLIC_SUPABASE_URL".
func MissingConfiguration(names ...string) *AppError {
	return &AppError{
		Err:     ErrMissingConfiguration,
		Message: "Missing " + strings.Join(names, " or "),
	}
}

// Downstream wraps a store or provider failure. The message is passed through
// verbatim so operators can see what the downstream service said.
func Downstream(err error) *AppError {
	return &AppError{
		Err:     fmt.Errorf("%w: %w", ErrDownstream, err),
		Message: err.Error(),
	}
}

// DownstreamMessage is Downstream for failures that have no underlying error
// value, such as a provider response missing a required field.
func DownstreamMessage(message string) *AppError {
	return &AppError{
		Err:     ErrDownstream,
		Message: message,
	}
}

// Status maps an error to its HTTP status code. Errors outside the taxonomy
// are 500.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrMissingCredential),
		errors.Is(err, ErrInvalidCredential),
		errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Kind returns the machine-readable error type sent in the "error" field of
// every JSON error body.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrMissingCredential):
		return "missing_credential"
	case errors.Is(err, ErrInvalidCredential):
		return "invalid_credential"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrMissingConfiguration):
		return "configuration_error"
	case errors.Is(err, ErrDownstream):
		return "downstream_error"
	default:
		return "internal_error"
	}
}

// PublicMessage returns the text that is safe to show the client. AppErrors
// carry a client-safe message by construction; anything else is hidden.
func PublicMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "An internal error occurred"
}
