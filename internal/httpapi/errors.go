package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"solverd/internal/manager"
	"solverd/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// statusFor maps well-known manager errors to HTTP status codes.
func statusFor(err error) int {
	var he HTTPError
	switch {
	case errors.As(err, &he):
		return he.StatusCode()
	case manager.IsClosed(err), manager.IsDependencyUnavailable(err):
		return http.StatusServiceUnavailable
	case manager.IsProjectNotFound(err):
		return http.StatusNotFound
	case manager.IsConflict(err), manager.IsNotExportable(err):
		return http.StatusConflict
	case manager.IsExpired(err):
		return http.StatusGone
	case manager.IsInvalidPackage(err), manager.IsInvalidName(err):
		return http.StatusBadRequest
	case manager.IsUntrusted(err):
		return http.StatusForbidden
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

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
	}
}
