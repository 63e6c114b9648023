package http

import (
	"log/slog"
	"net/http"

	"github.com/beautystore/backend/internal/apperr"
)

type errorResponse struct {
	Error  string       `json:"error"`
	Fields []FieldError `json:"fields,omitempty"`
}

// FieldError points at one invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.Validation, apperr.InvalidState, apperr.InsufficientStock, apperr.ProductUnavailable:
		return http.StatusBadRequest
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.Forbidden:
		return http.StatusForbidden
	case apperr.Unauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	status := statusFor(kind)

	msg := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("Request failed", "err", err)
		msg = "internal server error"
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeValidationErrors(w http.ResponseWriter, fields []FieldError) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation failed", Fields: fields})
}
