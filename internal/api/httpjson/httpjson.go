// Package httpjson carries the JSON request/response conventions shared by
// every REST feature package.
package httpjson

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/catchhq/catch-backend/internal/storage"
)

// Write encodes payload with the given status.
func Write(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// Error renders the uniform error shape the web client expects.
func Error(w http.ResponseWriter, status int, msg string) {
	Write(w, status, map[string]any{"error": msg, "status": status})
}

// StoreError maps storage errors onto HTTP statuses.
func StoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		Error(w, http.StatusNotFound, "not found")
	case errors.Is(err, storage.ErrConflict):
		Error(w, http.StatusConflict, "conflict")
	default:
		Error(w, http.StatusInternalServerError, "internal error")
	}
}

// Decode parses the request body into dst.
func Decode(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}
