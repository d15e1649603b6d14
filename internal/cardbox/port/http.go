// Package port exposes the service over HTTP. Both endpoints speak the
// same dialect: JSON-in/JSON-out over POST, with permissive CORS so the
// browser client can call them cross-origin.
package port

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/cardbox-io/cardbox/internal/errmap"
)

// corsMethods and corsHeaders are advertised on every response, not just
// preflights, matching what the browser client expects.
const (
	corsMethods = "POST, OPTIONS"
	corsHeaders = "Content-Type, Authorization, X-Session-Token"
)

func setCORS(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", corsMethods)
	h.Set("Access-Control-Allow-Headers", corsHeaders)
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("writing response", slog.Any("error", err))
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// writeError maps a domain error onto the wire contract: a JSON body with
// a single "error" field and the status code the mapping dictates.
// Unmapped errors surface as 500 with the raw message.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	httpErr := errmap.ToHTTPError(err)
	if httpErr.StatusCode >= http.StatusInternalServerError {
		logger.Error("request failed", slog.Any("error", err))
	}
	writeJSON(w, logger, httpErr.StatusCode, errorBody{Error: httpErr.Message})
}
