// Package api exposes the node's read-only HTTP surface: chain status,
// block and wallet lookups, and a per-address transaction history
// served from the chain's in-memory per-wallet pool index.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"
)

// Router is the subset of httprouter.Router the handlers in this
// package dispatch through.
type Router interface {
	GET(path string, handle httprouter.Handle)
}

// Error is the JSON body written on any non-2xx response.
type Error struct {
	Message string `json:"message"`
}

// Error implements the error interface, returning the Message field.
func (e Error) Error() string { return e.Message }

// WriteError writes err as a JSON body with the given status code.
func WriteError(w http.ResponseWriter, err Error, code int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(err)
}

// WriteJSON writes obj as the response body, falling back to a plain
// 500 if encoding fails.
func WriteJSON(w http.ResponseWriter, obj interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if json.NewEncoder(w).Encode(obj) != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

// UnrecognizedCallHandler handles requests to unmapped routes.
func UnrecognizedCallHandler(w http.ResponseWriter, req *http.Request) {
	WriteError(w, Error{"404 - no such route"}, http.StatusNotFound)
}
