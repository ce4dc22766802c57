// Package apierror defines the JSON error responses the gateway writes itself,
// as opposed to responses relayed from a backend.
package apierror

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Error is rendered as a single-key JSON object: {Field: Message}.
type Error struct {
	Status  int
	Field   string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d %s", e.Status, e.Message)
}

// WriteJSON writes the error with its status code.
func (e *Error) WriteJSON(w http.ResponseWriter) {
	WriteJSON(w, e.Status, map[string]string{e.Field: e.Message})
}

var (
	ErrServiceUnavailable = &Error{
		Status:  http.StatusServiceUnavailable,
		Field:   "error",
		Message: "Service temporarily unavailable",
	}

	ErrNoHealthyBackend = &Error{
		Status:  http.StatusServiceUnavailable,
		Field:   "error",
		Message: "No healthy backend available",
	}

	ErrBadGateway = &Error{
		Status:  http.StatusBadGateway,
		Field:   "error",
		Message: "Bad Gateway",
	}

	ErrNotFound = &Error{
		Status:  http.StatusNotFound,
		Field:   "error",
		Message: "Not Found",
	}

	ErrMethodNotAllowed = &Error{
		Status:  http.StatusMethodNotAllowed,
		Field:   "error",
		Message: "Method Not Allowed",
	}

	ErrInternal = &Error{
		Status:  http.StatusInternalServerError,
		Field:   "error",
		Message: "Internal Server Error",
	}
)

// Unauthorized builds a 401 with the auth stage's "message" body.
func Unauthorized(message string) *Error {
	return &Error{
		Status:  http.StatusUnauthorized,
		Field:   "message",
		Message: message,
	}
}

// WriteJSON encodes v as the response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
