package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

// writeJSON encodes v as JSON and writes it to the response with the given
// HTTP status code. Content-Type is always set to application/json.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// At this point headers are already sent; log but cannot change status.
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

// writeError writes a JSON error response with the given HTTP status code.
// The response body is {"error": "message"}.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// parseUserID extracts the optional user_id query parameter. An absent or
// empty parameter means the global scope and yields nil.
func parseUserID(r *http.Request) (*int64, error) {
	raw := r.URL.Query().Get("user_id")
	if raw == "" {
		return nil, nil
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid user_id parameter: %w", err)
	}
	return &id, nil
}

// optionalString returns a pointer to the named query parameter, or nil when
// it is absent or empty.
func optionalString(r *http.Request, param string) *string {
	v := r.URL.Query().Get(param)
	if v == "" {
		return nil
	}
	return &v
}
