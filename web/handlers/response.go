package handlers

import (
	"encoding/json"
	"net/http"
)

// APIError is the JSON error envelope returned to clients.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func renderJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(v)
}

func renderError(w http.ResponseWriter, status int, message string) {
	renderJSON(w, status, APIError{Code: status, Message: message})
}
