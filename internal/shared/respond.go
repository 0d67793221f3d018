package shared

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

// WriteJSON renders a JSON response body.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

// WriteError renders a JSON error body with a stable message field.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}

// WriteDomainError maps well-known domain errors to HTTP statuses; anything
// unrecognized is logged and returned as a 500 without detail.
func WriteDomainError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		WriteError(w, http.StatusNotFound, "not found")
	case errors.Is(err, ErrPermissionDenied):
		WriteError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, ErrInvalidCredentials):
		WriteError(w, http.StatusUnauthorized, "invalid credentials")
	default:
		if logger != nil {
			logger.Error("request failed", slog.Any("error", err))
		}
		WriteError(w, http.StatusInternalServerError, "internal error")
	}
}
