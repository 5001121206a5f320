package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/studenthub/backend/internal/apperror"
)

func TestWriteError_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{
			name:       "validation maps to 400",
			err:        apperror.ValidationFailed("course", "course is required"),
			wantStatus: http.StatusBadRequest,
			wantType:   "validation_error",
		},
		{
			name:       "unauthenticated maps to 401",
			err:        apperror.Unauthenticated("session expired"),
			wantStatus: http.StatusUnauthorized,
			wantType:   "unauthenticated",
		},
		{
			name:       "forbidden maps to 403",
			err:        apperror.Forbidden("not your resource"),
			wantStatus: http.StatusForbidden,
			wantType:   "forbidden",
		},
		{
			name:       "not found maps to 404",
			err:        apperror.NotFound("track", "abc123"),
			wantStatus: http.StatusNotFound,
			wantType:   "not_found",
		},
		{
			name:       "conflict maps to 409",
			err:        apperror.Conflict("track", "already completed"),
			wantStatus: http.StatusConflict,
			wantType:   "conflict",
		},
		{
			name:       "unavailable maps to 503",
			err:        apperror.Unavailable("storage busy"),
			wantStatus: http.StatusServiceUnavailable,
			wantType:   "unavailable",
		},
		{
			name:       "wrapped domain error keeps its mapping",
			err:        fmt.Errorf("service/track: starting: %w", apperror.NotFound("track", "xyz")),
			wantStatus: http.StatusNotFound,
			wantType:   "not_found",
		},
		{
			name:       "unknown error maps to 500",
			err:        errors.New("sql: connection refused"),
			wantStatus: http.StatusInternalServerError,
			wantType:   "internal_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, tt.err)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var resp ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decoding error response: %v", err)
			}
			if resp.Error != tt.wantType {
				t.Errorf("error type = %q, want %q", resp.Error, tt.wantType)
			}
			if resp.Message == "" {
				t.Error("error response has empty message")
			}
		})
	}
}

func TestWriteError_HidesInternalDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, errors.New("dial tcp 10.0.0.5:5432: connection refused"))

	var resp ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding error response: %v", err)
	}
	// Raw storage error text must never reach the client.
	if resp.Message != "An internal error occurred" {
		t.Errorf("message = %q, want the generic internal message", resp.Message)
	}
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusCreated, map[string]string{"message": "ok"})

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusCreated)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body["message"] != "ok" {
		t.Errorf("body = %v, want message=ok", body)
	}
}
