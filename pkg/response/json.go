package response

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the machine-parseable error object every endpoint returns.
// Details, when present, only ever describe the caller's own input.
type ErrorBody struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

func JSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, `{"error":"response encoding failure"}`, http.StatusInternalServerError)
	}
}

// Error writes a structured JSON error. Every failure path goes through here
// so a JSON endpoint can never produce an HTML page or an empty body.
func Error(w http.ResponseWriter, statusCode int, message string, details ...string) {
	JSON(w, statusCode, ErrorBody{Error: message, Details: details})
}
