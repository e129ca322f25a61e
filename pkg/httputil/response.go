// Package httputil provides HTTP response helpers for the POS API's JSON
// envelope: every body carries a success flag and a human message.
package httputil

import (
	"encoding/json"
	"net/http"
)

// Response is the standard API envelope.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, body interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(body)
}

// WriteSuccess writes a 200 envelope with data.
func WriteSuccess(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, Response{Success: true, Data: data})
}

// WriteMessage writes a success envelope with a message only.
func WriteMessage(w http.ResponseWriter, message string) error {
	return WriteJSON(w, http.StatusOK, Response{Success: true, Message: message})
}

// WriteErrorMessage writes a failure envelope with the given status.
func WriteErrorMessage(w http.ResponseWriter, status int, message string) {
	// Encoding a flat struct cannot fail; the deny path must never depend
	// on the caller handling a write error.
	_ = WriteJSON(w, status, Response{Success: false, Message: message})
}

// WriteUnauthorized writes the 401 deny envelope.
func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusUnauthorized, message)
}

// WriteForbidden writes the 403 deny envelope.
func WriteForbidden(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusForbidden, message)
}

// WriteBadRequest writes a 400 failure envelope.
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusBadRequest, message)
}

// WriteNotFound writes a 404 failure envelope.
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusNotFound, message)
}

// WriteInternalError writes a 500 failure envelope.
func WriteInternalError(w http.ResponseWriter, err error) {
	WriteErrorMessage(w, http.StatusInternalServerError, err.Error())
}
