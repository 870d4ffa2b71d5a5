package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	err := InvalidInput("query too short")
	assert.Equal(t, "INVALID_INPUT: query too short: invalid input", err.Error())

	wrapped := Internal(errors.New("boom"))
	assert.Equal(t, "INTERNAL_ERROR: an internal error occurred: boom", wrapped.Error())
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		code     string
		status   int
		sentinel error
	}{
		{"not found", NotFound("session", "abc"), "NOT_FOUND", http.StatusNotFound, ErrNotFound},
		{"invalid", InvalidInput("bad"), "INVALID_INPUT", http.StatusBadRequest, ErrInvalidInput},
		{"unauthorized", Unauthorized("missing user"), "UNAUTHORIZED", http.StatusUnauthorized, ErrUnauthorized},
		{"conflict", Conflict("empty cart"), "CONFLICT", http.StatusConflict, ErrConflict},
		{"unavailable", ServiceUnavailable("catalog down", nil), "SERVICE_UNAVAILABLE", http.StatusServiceUnavailable, ErrServiceUnavail},
		{"upstream", Upstream("order failed", nil), "UPSTREAM_ERROR", http.StatusBadGateway, ErrUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, tt.err.Status)
			assert.ErrorIs(t, tt.err, tt.sentinel)
		})
	}
}

func TestNotFound_Message(t *testing.T) {
	err := NotFound("session", "abc")
	assert.Equal(t, `session "abc" not found`, err.Message)
}

func TestServiceUnavailable_KeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := ServiceUnavailable("catalog unavailable", cause)

	assert.ErrorIs(t, err, ErrServiceUnavail)
	assert.ErrorIs(t, err, cause)
}

func TestUpstream_KeepsCause(t *testing.T) {
	cause := errors.New("503 from order service")
	err := Upstream("create order", cause)

	assert.ErrorIs(t, err, ErrUpstream)
	assert.ErrorIs(t, err, cause)
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"app error", NotFound("x", "1"), http.StatusNotFound},
		{"wrapped app error", fmt.Errorf("ctx: %w", ServiceUnavailable("down", nil)), http.StatusServiceUnavailable},
		{"not found sentinel", ErrNotFound, http.StatusNotFound},
		{"conflict sentinel", ErrConflict, http.StatusConflict},
		{"invalid sentinel", Wrap(ErrInvalidInput, "parse"), http.StatusBadRequest},
		{"unauthorized sentinel", ErrUnauthorized, http.StatusUnauthorized},
		{"unavailable sentinel", ErrServiceUnavail, http.StatusServiceUnavailable},
		{"upstream sentinel", ErrUpstream, http.StatusBadGateway},
		{"unknown", errors.New("other"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, HTTPStatus(tt.err))
		})
	}
}

func TestWrap(t *testing.T) {
	err := Wrap(ErrNotFound, "load session")
	assert.Equal(t, "load session: resource not found", err.Error())
	assert.ErrorIs(t, err, ErrNotFound)
}
