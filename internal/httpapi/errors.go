package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"localassist/internal/catalog"
	"localassist/internal/engine"
	"localassist/internal/manager"
	"localassist/internal/orchestrator"
	"localassist/internal/runtime"
	"localassist/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	var he HTTPError
	switch {
	case errors.As(err, &he):
		return he.StatusCode()
	case catalog.IsNotFound(err):
		return http.StatusNotFound
	case orchestrator.IsBusy(err):
		return http.StatusConflict
	case errors.Is(err, engine.ErrInvalidHistory):
		return http.StatusBadRequest
	case manager.IsGuardrail(err):
		return http.StatusUnprocessableEntity
	case runtime.IsDependencyUnavailable(err):
		return http.StatusServiceUnavailable
	case manager.IsModelNotReady(err), errors.Is(err, engine.ErrModelNotReady):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

// writeJSON encodes v with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
	}
}
