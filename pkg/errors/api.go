package errors

import (
	"fmt"
	"net/http"
)

/*
Kind classifies an APIError so callers can branch on the failure class
without parsing messages.
*/
type Kind string

const (
	KindValidation       Kind = "validation"
	KindPermissionDenied Kind = "permission_denied"
	KindNotFound         Kind = "not_found"
	KindBackend          Kind = "backend"
)

/*
APIError is the single error type surfaced by the memory core. Every
failure is one of the four kinds; the HTTP layer maps Status directly.
*/
type APIError struct {
	Kind    Kind   `json:"kind"`
	Status  int    `json:"-"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is matches on Kind so errors.Is works against the sentinel values.
func (e *APIError) Is(target error) bool {
	other, ok := target.(*APIError)
	return ok && other.Kind == e.Kind
}

// Sentinel values. Use WithMessagef to attach detail; the sentinels
// themselves are never mutated.
var (
	ErrValidation       = &APIError{Kind: KindValidation, Status: http.StatusBadRequest, Message: "invalid input"}
	ErrPermissionDenied = &APIError{Kind: KindPermissionDenied, Status: http.StatusForbidden, Message: "consent not granted for this scope"}
	ErrNotFound         = &APIError{Kind: KindNotFound, Status: http.StatusNotFound, Message: "not found"}
	ErrBackend          = &APIError{Kind: KindBackend, Status: http.StatusBadGateway, Message: "graph backend failure"}
)

// WithMessagef creates a *copy* of an APIError with a formatted message.
// It does not modify the original error variable.
func (e *APIError) WithMessagef(format string, args ...any) *APIError {
	newErr := *e
	newErr.Message = fmt.Sprintf(format, args...)
	return &newErr
}

// WithData creates a copy carrying structured detail for the response body.
func (e *APIError) WithData(data any) *APIError {
	newErr := *e
	newErr.Data = data
	return &newErr
}
