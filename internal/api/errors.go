package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/fleetsim/internal/device"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeConflict         = "conflict"
	ErrCodeNotSupported     = "not_supported"
	ErrCodeTimeout          = "timeout"
	ErrCodePersistence      = "persistence_error"
	ErrCodeInternal         = "internal_error"
	ErrCodeValidation       = "validation_error"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeDeviceError maps the device package's sentinel errors onto HTTP
// responses. Unknown errors become a 500 without leaking internals.
func writeDeviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, device.ErrNotFound):
		writeError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, device.ErrExists):
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, device.ErrNotSupported):
		writeError(w, http.StatusConflict, ErrCodeNotSupported, err.Error())
	case errors.Is(err, device.ErrWrongType),
		errors.Is(err, device.ErrInvalidSampleRate),
		errors.Is(err, device.ErrInvalidName),
		errors.Is(err, device.ErrInvalidBounds):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, device.ErrReadTimeout):
		writeError(w, http.StatusGatewayTimeout, ErrCodeTimeout, err.Error())
	case errors.Is(err, device.ErrPersistence):
		writeError(w, http.StatusInternalServerError, ErrCodePersistence, err.Error())
	default:
		writeInternalError(w, "internal server error")
	}
}
