// Package apperror defines the error taxonomy shared by every layer of the
// auth core.
//
// Three families of failure exist:
//   - request errors (client-caused, e.g. a callback without a code) carry a
//     stable machine-readable Code and map to 4xx;
//   - upstream errors wrap any failed call to the OAuth provider and keep the
//     provider's HTTP status and body for diagnostics;
//   - persistence errors mark storage results that should never happen,
//     such as an upsert that returns no row.
//
// Only internal/handler translates these into HTTP status codes. Services and
// repositories return them and never know about HTTP.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrBadRequest   = errors.New("bad request")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUpstream     = errors.New("upstream provider error")
	ErrPersistence  = errors.New("persistence error")
	ErrTransient    = errors.New("temporarily unavailable")
)

// Stable error codes returned in JSON bodies.
const (
	CodeMissingCode        = "missing_code"
	CodeMissingStateCookie = "missing_state_cookie"
	CodeInvalidState       = "invalid_state"
	CodeUnauthorized       = "unauthorized"
	CodeAccessDenied       = "access_denied"
)

type AppError struct {
	Err     error  // sentinel, matched with errors.Is
	Code    string // machine-readable code, e.g. "missing_code"
	Message string // human-readable error message
	Field   string // optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// ErrorResponse is the JSON body of every error answer:
//
//	{"ok": false, "error": "missing_code", "message": "authorization code is missing"}
//
// Shared by internal/handler and the auth middleware.
type ErrorResponse struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error"`   // machine-readable code, e.g. "missing_code"
	Message string `json:"message"` // human-readable description
}

// Response returns the error as a JSON body.
func (e *AppError) Response() ErrorResponse {
	return ErrorResponse{Error: e.Code, Message: e.Message}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Code:    "not_found",
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Code:    "conflict",
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// BadRequest returns a client-caused error identified by a stable code.
func BadRequest(code, message string) *AppError {
	return &AppError{
		Err:     ErrBadRequest,
		Code:    code,
		Message: message,
	}
}

// MissingCode is returned when the OAuth callback has no authorization code.
func MissingCode() *AppError {
	return BadRequest(CodeMissingCode, "authorization code is missing")
}

// MissingStateCookie is returned when the OAuth callback arrives without the
// CSRF state cookie set by the start endpoint.
func MissingStateCookie() *AppError {
	return BadRequest(CodeMissingStateCookie, "oauth state cookie is missing")
}

// InvalidState is returned when the state cookie is forged, expired, or does
// not match the state echoed by the provider.
func InvalidState(message string) *AppError {
	return BadRequest(CodeInvalidState, message)
}

// Unauthorized is returned by protected routes when no identity resolved.
func Unauthorized() *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Code:    CodeUnauthorized,
		Message: "valid authentication required",
	}
}

// UpstreamAuthError describes a failed call to the OAuth/profile provider.
//
// Status is zero when the request never got an HTTP response (DNS failure,
// timeout, connection reset); Err then holds the transport error.
type UpstreamAuthError struct {
	Step   string // which call failed, e.g. "code_exchange"
	Status int    // provider HTTP status, 0 for transport failures
	Body   string // provider response body, truncated
	Err    error  // transport or decode error, if any
}

func (e *UpstreamAuthError) Error() string {
	switch {
	case e.Status != 0:
		return fmt.Sprintf("instagram %s: status %d: %s", e.Step, e.Status, e.Body)
	case e.Err != nil:
		return fmt.Sprintf("instagram %s: %v", e.Step, e.Err)
	default:
		return fmt.Sprintf("instagram %s failed", e.Step)
	}
}

func (e *UpstreamAuthError) Unwrap() error {
	return e.Err
}

// Is lets callers match any upstream failure with errors.Is(err, ErrUpstream).
func (e *UpstreamAuthError) Is(target error) bool {
	return target == ErrUpstream
}

// Rejected reports whether the provider answered and refused the credentials
// (400/401/403), as opposed to being unreachable or failing internally.
func (e *UpstreamAuthError) Rejected() bool {
	switch e.Status {
	case 400, 401, 403:
		return true
	}
	return false
}

// PersistenceError marks a storage result that the code treats as
// unrecoverable, such as an upsert that returned no row.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("persistence: %s returned no row", e.Op)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}
