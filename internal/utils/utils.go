package utils

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
)

// errorBody is the envelope for every non-2xx JSON response.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	// station names carry no markup, keep '&' and '<' readable
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		slog.Error("failed to write JSON", "error", err)
	}
}

// WriteError writes the JSON error envelope. msg must be safe to show to
// clients; driver errors belong in the log, not here.
func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, errorBody{
		Error:   http.StatusText(status),
		Message: msg,
	})
}

func WriteHTML(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := io.WriteString(w, body); err != nil {
		slog.Error("failed to write HTML", "error", err)
	}
}
