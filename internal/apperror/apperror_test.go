package apperror

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "NotFound wraps ErrNotFound",
			err:       NotFound("user", "abc123"),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "MissingCode wraps ErrBadRequest",
			err:       MissingCode(),
			target:    ErrBadRequest,
			wantMatch: true,
		},
		{
			name:      "Conflict wraps ErrConflict",
			err:       Conflict("session", "abc123"),
			target:    ErrConflict,
			wantMatch: true,
		},
		{
			name:      "upstream error matches ErrUpstream through fmt wrapping",
			err:       fmt.Errorf("service: %w", &UpstreamAuthError{Step: "profile_fetch", Status: 500}),
			target:    ErrUpstream,
			wantMatch: true,
		},
		{
			name:      "persistence error matches ErrPersistence",
			err:       &PersistenceError{Op: "upsert user"},
			target:    ErrPersistence,
			wantMatch: true,
		},
		{
			name:      "persistence error unwraps to its cause",
			err:       &PersistenceError{Op: "upsert user", Err: sql.ErrNoRows},
			target:    sql.ErrNoRows,
			wantMatch: true,
		},
		{
			name:      "NotFound does NOT match ErrBadRequest",
			err:       NotFound("user", "abc123"),
			target:    ErrBadRequest,
			wantMatch: false,
		},
		{
			name:      "upstream error does NOT match ErrPersistence",
			err:       &UpstreamAuthError{Step: "code_exchange", Status: 400},
			target:    ErrPersistence,
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errors.Is(tt.err, tt.target)
			if got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

func TestRequestErrorCodes(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		wantCode string
	}{
		{"missing code", MissingCode(), CodeMissingCode},
		{"missing state cookie", MissingStateCookie(), CodeMissingStateCookie},
		{"invalid state", InvalidState("state mismatch"), CodeInvalidState},
		{"unauthorized", Unauthorized(), CodeUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", tt.err.Code, tt.wantCode)
			}
		})
	}
}

func TestUpstreamAuthErrorMessage(t *testing.T) {
	withStatus := &UpstreamAuthError{Step: "token_exchange", Status: 400, Body: `{"error":"bad"}`}
	if got, want := withStatus.Error(), `instagram token_exchange: status 400: {"error":"bad"}`; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	transport := &UpstreamAuthError{Step: "profile_fetch", Err: errors.New("dial tcp: timeout")}
	if got, want := transport.Error(), "instagram profile_fetch: dial tcp: timeout"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestUpstreamAuthErrorRejected(t *testing.T) {
	for status, want := range map[int]bool{0: false, 400: true, 401: true, 403: true, 429: false, 500: false, 503: false} {
		e := &UpstreamAuthError{Step: "code_exchange", Status: status}
		if got := e.Rejected(); got != want {
			t.Errorf("Rejected() with status %d = %v, want %v", status, got, want)
		}
	}
}

func TestAppErrorResponse(t *testing.T) {
	got := MissingCode().Response()
	want := ErrorResponse{OK: false, Error: CodeMissingCode, Message: MissingCode().Message}
	if got != want {
		t.Errorf("Response() = %+v, want %+v", got, want)
	}

	body, err := json.Marshal(Unauthorized().Response())
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if want := `{"ok":false,"error":"unauthorized","message":"valid authentication required"}`; string(body) != want {
		t.Errorf("body = %s, want %s", body, want)
	}
}
