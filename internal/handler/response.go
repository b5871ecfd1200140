package handler

// RESPONSE HELPERS:
// Every endpoint answers with the same envelope:
//
//	{"message": "success", "data": {...}}
//
// Errors use it too. A client reads "message" first and then decides how to
// treat "data" (a record, a list, a field→messages map, or a short string).

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/article-api/internal/apperror"
)

const (
	msgSuccess = "success"
	msgError   = "error"
)

// Envelope is the body of every response.
type Envelope struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Meta    any    `json:"meta,omitempty"`
}

// Pagination is the "meta" block of a list response.
type Pagination struct {
	CurrentPage int `json:"current_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
	LastPage    int `json:"last_page"`
}

// writeJSON sends a JSON response with the given status code.
// Headers and status must go out before the body; once Encode writes,
// later header changes are ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to an HTTP status and an envelope.
//
// ERROR MAPPING:
//
//	ErrValidation   → 422 {message: "Validation Error", data: {field: [msg]}}
//	ErrNotFound     → 404 {message: "error", data: "Article not found"}
//	ErrUnauthorized → 401 {message: "Unauthorized"}
//	ErrForbidden    → 403
//	ErrConflict     → 409
//	anything else   → 500 with a fixed message
//
// The service layer never sees HTTP; this is the only place status codes
// are chosen.
func writeError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeJSON(w, http.StatusRequestEntityTooLarge, Envelope{
			Message: msgError,
			Data:    "Request body too large",
		})
		return
	}

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		switch {
		case errors.Is(err, apperror.ErrValidation):
			writeJSON(w, http.StatusUnprocessableEntity, Envelope{
				Message: apperror.ErrValidation.Error(),
				Data:    appErr.FieldErrors(),
			})
			return
		case errors.Is(err, apperror.ErrNotFound):
			writeJSON(w, http.StatusNotFound, Envelope{
				Message: msgError,
				Data:    notFoundText(appErr.Resource),
			})
			return
		case errors.Is(err, apperror.ErrUnauthorized):
			writeJSON(w, http.StatusUnauthorized, Envelope{Message: appErr.Message})
			return
		case errors.Is(err, apperror.ErrForbidden):
			writeJSON(w, http.StatusForbidden, Envelope{Message: msgError, Data: appErr.Message})
			return
		case errors.Is(err, apperror.ErrConflict):
			writeJSON(w, http.StatusConflict, Envelope{Message: msgError, Data: appErr.Message})
			return
		}
	}

	// Storage failures and anything unexpected. The cause may contain file
	// paths or SQL, so it only goes to the log.
	slog.Error("request failed", slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, Envelope{
		Message: msgError,
		Data:    "An internal error occurred",
	})
}

func notFoundText(resource string) string {
	if resource == "" {
		return "Not found"
	}
	return strings.ToUpper(resource[:1]) + resource[1:] + " not found"
}
