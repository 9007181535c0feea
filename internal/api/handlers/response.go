package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/a4way/report-agent-workflow/internal/api"
)

// writeJSON writes v with the given status
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// writeJSONError writes a JSON error response
func writeJSONError(w http.ResponseWriter, status int, message string, details string) {
	resp := api.ErrorResponse{
		Error: message,
		Code:  http.StatusText(status),
	}
	if details != "" {
		resp.Details = map[string]any{"details": details}
	}
	writeJSON(w, status, resp)
}

// MethodNotAllowed answers requests whose path exists under another method.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed", r.Method+" "+r.URL.Path)
}
