package handler

// Response helpers shared by all handlers: one JSON shape for successes
// and one for errors, so the frontend always knows what to parse.
//
// Error responses look like:
//
//	{"error":"validation_error","message":"...","fields":{"email":["..."]}}
//
// fields is present only when the failure came from form validation; it
// maps each offending field to its list of messages so the UI can render
// every problem inline at once.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/careportal/internal/apperror"
)

// ErrorResponse is the standard error format returned by all API
// endpoints.
type ErrorResponse struct {
	Error   string              `json:"error"`             // machine-readable type (e.g. "validation_error")
	Message string              `json:"message"`           // human-readable description
	Fields  map[string][]string `json:"fields,omitempty"`  // per-field messages for form errors
}

// writeJSON sends a JSON response with the given status code. Headers
// must be set before the first body write, hence the fixed order here.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to its HTTP status code and sends it.
// The service layer knows nothing about HTTP; this is the single place
// where apperror categories become status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	errorType := "internal_error"

	switch {
	case errors.Is(err, apperror.ErrConflict):
		status = http.StatusConflict
		errorType = "conflict"
	case errors.Is(err, apperror.ErrValidation):
		status = http.StatusBadRequest
		errorType = "validation_error"
	case errors.Is(err, apperror.ErrUnauthorized):
		status = http.StatusUnauthorized
		errorType = "unauthorized"
	case errors.Is(err, apperror.ErrForbidden):
		status = http.StatusForbidden
		errorType = "forbidden"
	case errors.Is(err, apperror.ErrNotFound):
		status = http.StatusNotFound
		errorType = "not_found"
	}

	// A FormError carries the whole field→messages map; a plain AppError
	// just its message. Unknown errors stay generic — raw internals
	// (SQL, file paths) must not reach the client.
	var formErr *apperror.FormError
	if errors.As(err, &formErr) {
		writeJSON(w, status, ErrorResponse{
			Error:   errorType,
			Message: "the submitted form has errors",
			Fields:  formErr.Fields,
		})
		return
	}

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		resp := ErrorResponse{Error: errorType, Message: appErr.Message}
		if appErr.Field != "" {
			resp.Fields = map[string][]string{appErr.Field: {appErr.Message}}
		}
		writeJSON(w, status, resp)
		return
	}

	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}
