// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors for domain layer.
var (
	ErrNotFound    = errors.New("resource not found")
	ErrDuplicate   = errors.New("duplicate entry")
	ErrValidation  = errors.New("validation failed")
	ErrBadRequest  = errors.New("bad request")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("temporarily unavailable")
)

// Extended is implemented by errors that add members to the problem body,
// such as the offending field.
type Extended interface {
	ProblemExtensions() map[string]any
}

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	var ext map[string]any
	var extended Extended
	if errors.As(err, &extended) {
		ext = extended.ProblemExtensions()
	}

	switch {
	case errors.Is(err, ErrNotFound):
		ProblemWith(w, http.StatusNotFound, "Not Found", err.Error(), ext)
	case errors.Is(err, ErrDuplicate):
		ProblemWith(w, http.StatusConflict, "Duplicate", err.Error(), ext)
	case errors.Is(err, ErrConflict):
		ProblemWith(w, http.StatusConflict, "Conflict", err.Error(), ext)
	case errors.Is(err, ErrValidation):
		ProblemWith(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error(), ext)
	case errors.Is(err, ErrBadRequest):
		ProblemWith(w, http.StatusBadRequest, "Bad Request", err.Error(), ext)
	case errors.Is(err, ErrUnavailable):
		w.Header().Set("Retry-After", "1")
		ProblemWith(w, http.StatusServiceUnavailable, "Service Unavailable", err.Error(), ext)
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
