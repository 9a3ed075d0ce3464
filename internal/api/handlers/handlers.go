// Package handlers contains the HTTP request handlers. Each handler decodes
// its payload, hands off to a service, and translates the result: JSON on
// success, the apperror status contract on failure.
package handlers

import (
	"encoding/json"
	"net/http"
)

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
