package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"modelops/internal/promote"
	"modelops/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// statusFor maps promotion failures to response codes.
func statusFor(err error) int {
	var he HTTPError
	if errors.As(err, &he) {
		return he.StatusCode()
	}
	if errors.Is(err, promote.ErrInProgress) {
		return http.StatusConflict
	}
	switch promote.Classify(err) {
	case promote.ClassNoStagedVersion:
		return http.StatusNotFound
	case promote.ClassRetrieval, promote.ClassRegistry:
		return http.StatusBadGateway
	case promote.ClassCanceled:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}
