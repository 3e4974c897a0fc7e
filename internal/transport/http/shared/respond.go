package shared

import (
	"encoding/json"
	"net/http"

	dErrors "stamprally/pkg/domain-errors"
)

// Envelope is the uniform response shape. Success payloads carry data and an
// optional message; failures carry error text instead.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// WriteJSON writes v as JSON with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteSuccess writes a success envelope.
func WriteSuccess(w http.ResponseWriter, status int, message string, data any) {
	WriteJSON(w, status, Envelope{Success: true, Message: message, Data: data})
}

// WriteError maps a domain error to its HTTP status and writes a failure
// envelope. Unknown errors become a generic 500 so internals never leak.
func WriteError(w http.ResponseWriter, err error) {
	status := dErrors.ToHTTPStatus(dErrors.CodeOf(err))
	msg := dErrors.MessageOf(err)
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	WriteJSON(w, status, Envelope{Success: false, Error: msg})
}

// WriteErrorData writes a failure envelope that still carries a payload,
// used when the caller needs current state alongside the rejection.
func WriteErrorData(w http.ResponseWriter, status int, message string, data any) {
	WriteJSON(w, status, Envelope{Success: false, Error: message, Data: data})
}
