package httpapi

import (
	"encoding/json"
	"net/http"

	"inferd/internal/infer"
	"inferd/pkg/types"
)

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

// statusForError maps well-known inference errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case infer.IsInvalidArgument(err):
		return http.StatusBadRequest
	case infer.IsNotFound(err):
		return http.StatusNotFound
	case infer.IsTooBusy(err):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
