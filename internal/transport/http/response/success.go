package response

import (
	"encoding/json"
	"net/http"
)

// Envelope is the body of endpoints that return a resource: {"success":true,"data":...}.
type Envelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// MessageBody is the body of endpoints that only acknowledge: {"success":true,"message":"..."}.
type MessageBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// WriteJSON writes v as JSON with the given status code.
// It sets Content-Type to application/json; charset=utf-8 if not already set.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// OK writes a 200 response with {"success":true,"data":...}.
func OK(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, Envelope{Success: true, Data: data})
}

// Message writes {"success":true,"message":msg} with status.
func Message(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, MessageBody{Success: true, Message: msg})
}

// NoContent writes a 204 response with no body.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
