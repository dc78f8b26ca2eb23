package handler

// RESPONSE HELPERS:
// These functions standardise how we send JSON responses and errors.
//
// CONSISTENT ERROR FORMAT:
// Every error response from our API has the same shape:
//   {"ok": false, "error": "missing_code", "message": "authorization code is missing"}
//
// `error` is a stable machine-readable code the frontend can switch on;
// `message` is for humans and may change.

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sakif/catchme/internal/apperror"
	"github.com/sakif/catchme/internal/logger"
)

// ErrorResponse is the standard error format returned by all endpoints.
type ErrorResponse = apperror.ErrorResponse

// writeJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// Headers and status code must be set BEFORE the body is written. Once
// Encode calls w.Write, later header changes are silently ignored.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent, so all we can do is log it.
			logger.FromContext(r.Context()).Error().Err(err).Msg("failed to encode JSON response")
		}
	}
}

// writeError maps a domain error to an HTTP status and sends it as JSON.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message := classify(err)
	writeJSON(w, r, status, ErrorResponse{Error: code, Message: message})
}

// classify is the single place where domain errors become HTTP.
//
// ERROR MAPPING:
//
//	ErrBadRequest        → 400 + the AppError's own code
//	ErrUnauthorized      → 401 unauthorized
//	ErrNotFound          → 404 not_found
//	ErrConflict          → 409 conflict
//	UpstreamAuthError    → 401 upstream_unauthorized if Instagram refused
//	                       the credentials, otherwise 502 upstream_error
//	ErrTransient         → 503 unavailable
//	anything else        → 500 internal_error (details stay in the logs)
//
// errors.As/errors.Is walk the whole chain, so service-level wrapping like
// fmt.Errorf("service/auth: %w", err) does not hide the type.
func classify(err error) (status int, code, message string) {
	var upErr *apperror.UpstreamAuthError
	if errors.As(err, &upErr) {
		if upErr.Rejected() {
			return http.StatusUnauthorized, "upstream_unauthorized", "instagram rejected the login"
		}
		return http.StatusBadGateway, "upstream_error", "instagram is unavailable"
	}

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		switch {
		case errors.Is(err, apperror.ErrBadRequest):
			return http.StatusBadRequest, appErr.Code, appErr.Message
		case errors.Is(err, apperror.ErrUnauthorized):
			return http.StatusUnauthorized, apperror.CodeUnauthorized, appErr.Message
		case errors.Is(err, apperror.ErrNotFound):
			return http.StatusNotFound, "not_found", appErr.Message
		case errors.Is(err, apperror.ErrConflict):
			return http.StatusConflict, "conflict", appErr.Message
		}
	}

	if errors.Is(err, apperror.ErrTransient) {
		return http.StatusServiceUnavailable, "unavailable", "service temporarily unavailable"
	}

	// NEVER expose internal error details to the client. The raw message may
	// contain SQL, file paths or provider responses.
	return http.StatusInternalServerError, "internal_error", "an internal error occurred"
}
