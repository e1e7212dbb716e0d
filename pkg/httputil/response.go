// Package httputil provides HTTP handler utilities for consistent JSON
// responses, error translation, and request parsing.
package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/nicolasignaciomunoznunez/plantas-backend-sub000/pkg/apperr"
)

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes the standard success envelope. Extra fields are
// merged into the envelope alongside "success": true.
func WriteSuccess(w http.ResponseWriter, status int, fields map[string]interface{}) error {
	body := map[string]interface{}{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	return WriteJSON(w, status, body)
}

// WriteMessage writes a success envelope carrying only a message.
func WriteMessage(w http.ResponseWriter, status int, message string) error {
	return WriteJSON(w, status, map[string]interface{}{
		"success": true,
		"message": message,
	})
}

// WriteError translates an application error into the failure envelope.
// Internal errors are masked so their detail never reaches clients.
func WriteError(w http.ResponseWriter, err error) {
	WriteErrorMessage(w, apperr.HTTPStatus(err), apperr.UserMessage(err))
}

// WriteErrorMessage writes a failure envelope with an explicit status.
func WriteErrorMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"message": message,
	})
}

// WriteUnauthorized writes a 401 failure envelope.
func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusUnauthorized, message)
}

// WriteForbidden writes a 403 failure envelope.
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
