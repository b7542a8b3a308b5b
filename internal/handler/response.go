// Package handler contains the HTTP handlers of the travelboard API.
//
// Handlers parse the request, call one service method and write the
// response. They hold no business rules; every domain error is turned into a
// status code by writeError and nowhere else.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/travelboard/internal/apperror"
)

// Error codes carried in ErrorResponse.Error.
const (
	codeInvalidInput    = "invalid_input"
	codeDuplicateEmail  = "duplicate_email"
	codeAuthFailure     = "auth_failure"
	codeUnauthenticated = "unauthenticated"
	codeNotFound        = "not_found"
	codeInternal        = "internal_error"
	codeTooLarge        = "payload_too_large"
)

// ErrorResponse is the body of every error the API returns:
//
//	{"error": "not_found", "message": "trip not found with id abc123"}
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// responder writes JSON bodies and error responses. Every handler embeds
// one, so encode failures and internal errors go to the injected logger:
//
//	type TripHandler struct {
//		responder
//		...
//	}
//
//	h.writeJSON(w, http.StatusOK, trips)
//	h.writeError(w, err)
type responder struct {
	logger *slog.Logger
}

// writeJSON sends a JSON response with the given status code.
// Headers and status must be set before the body is written.
func (rs responder) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all that's left is to log it.
			rs.logger.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps err onto a status code and the standard error body.
//
// ERROR MAPPING:
//
//	*http.MaxBytesError          → 413 payload_too_large
//	apperror.ErrValidation       → 400 invalid_input (with field)
//	apperror.ErrConflict         → 409 duplicate_email
//	apperror.ErrAuthFailure      → 401 auth_failure
//	apperror.ErrUnauthenticated  → 401 unauthenticated
//	apperror.ErrNotFound         → 404 not_found
//	anything else                → 500 internal_error
//
// Errors that are not *AppError become a generic 500: their text may carry
// SQL or file paths, so it is logged here and never reaches the client.
func (rs responder) writeError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		rs.writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{
			Error:   codeTooLarge,
			Message: "request body too large",
		})
		return
	}

	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		rs.logger.Error("request failed", slog.String("error", err.Error()))
		rs.writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   codeInternal,
			Message: "an internal error occurred",
		})
		return
	}

	status, code := http.StatusInternalServerError, codeInternal
	switch {
	case errors.Is(err, apperror.ErrValidation):
		status, code = http.StatusBadRequest, codeInvalidInput
	case errors.Is(err, apperror.ErrConflict):
		status, code = http.StatusConflict, codeDuplicateEmail
	case errors.Is(err, apperror.ErrAuthFailure):
		status, code = http.StatusUnauthorized, codeAuthFailure
	case errors.Is(err, apperror.ErrUnauthenticated):
		status, code = http.StatusUnauthorized, codeUnauthenticated
	case errors.Is(err, apperror.ErrNotFound):
		status, code = http.StatusNotFound, codeNotFound
	}

	rs.writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: appErr.Message,
		Field:   appErr.Field,
	})
}

// decodeJSON reads exactly one JSON value from the request body into dst.
// Unknown fields are ignored so older clients keep working; anything after
// the value other than whitespace is InvalidInput. An over-limit body keeps
// its *http.MaxBytesError so writeError can answer 413.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	err := dec.Decode(dst)
	if err == nil {
		var extra struct{}
		switch err := dec.Decode(&extra); {
		case errors.Is(err, io.EOF):
			return nil
		case errors.As(err, new(*http.MaxBytesError)):
			return err
		default:
			return apperror.ValidationFailed("body", "request body must hold a single JSON value")
		}
	}

	var (
		tooLarge  *http.MaxBytesError
		typeErr   *json.UnmarshalTypeError
		syntaxErr *json.SyntaxError
	)
	switch {
	case errors.As(err, &tooLarge):
		return err
	case errors.Is(err, io.EOF):
		return apperror.ValidationFailed("body", "request body is required")
	case errors.As(err, &typeErr) && typeErr.Field != "":
		return apperror.ValidationFailed(typeErr.Field, typeErr.Field+" has the wrong type")
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return apperror.ValidationFailed("body", "request body is not valid JSON")
	default:
		return apperror.ValidationFailed("body", "request body is invalid: "+err.Error())
	}
}
