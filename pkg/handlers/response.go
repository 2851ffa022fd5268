package handlers

import (
	"encoding/json"
	"net/http"
)

// errorBody is the uniform error payload for every endpoint: a short
// machine-readable code plus a human-readable message.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteJSON encodes data as the response body with the given status.
// Encoding errors are returned so callers can log them; the status line
// has already been sent at that point.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// ErrorResponse writes a structured error payload.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	return WriteJSON(w, statusCode, errorBody{
		Error:   errorCode,
		Message: message,
	})
}
