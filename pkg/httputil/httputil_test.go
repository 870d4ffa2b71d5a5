package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/CosmeticsGo/pkg/errors"
	"github.com/utafrali/CosmeticsGo/pkg/logger"
	"github.com/utafrali/CosmeticsGo/pkg/validator"
)

func testLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, nil))
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusCreated, Response{Data: map[string]string{"id": "s-1"}})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"data":{"id":"s-1"}}`, rec.Body.String())
}

func TestWriteData_WithMeta(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteData(rec, []int{1, 2}, map[string]int{"total": 2})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":[1,2],"meta":{"total":2}}`, rec.Body.String())
}

func TestWriteError_AppError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)

	WriteError(rec, req, apperrors.NotFound("session", "abc"), nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decode(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
	assert.False(t, resp.Error.Retryable)
}

func TestWriteError_ServiceUnavailableIsRetryable(t *testing.T) {
	var buf bytes.Buffer
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/search", nil)

	WriteError(rec, req, apperrors.ServiceUnavailable("catalog unavailable", errors.New("dial tcp")), testLogger(&buf))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	resp := decode(t, rec)
	assert.Equal(t, "SERVICE_UNAVAILABLE", resp.Error.Code)
	assert.True(t, resp.Error.Retryable)
	assert.Contains(t, buf.String(), "request failed")
}

func TestWriteError_Sentinels(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("lookup: %w", apperrors.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{fmt.Errorf("sort: %w", apperrors.ErrInvalidInput), http.StatusBadRequest, "INVALID_INPUT"},
		{apperrors.ErrConflict, http.StatusConflict, "CONFLICT"},
		{errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			var buf bytes.Buffer
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)

			WriteError(rec, req, tt.err, testLogger(&buf))

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decode(t, rec).Error.Code)
		})
	}
}

func TestWriteError_ValidationFields(t *testing.T) {
	type in struct {
		City string `json:"city" validate:"required"`
	}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)

	WriteError(rec, req, validator.Validate(in{}), nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	assert.Equal(t, "is required", resp.Error.Fields["city"])
}

func TestWriteError_IncludesRequestID(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(logger.WithCorrelationID(context.Background(), "req-42"))

	WriteError(rec, req, apperrors.InvalidInput("bad"), nil)

	assert.Equal(t, "req-42", decode(t, rec).Error.RequestID)
}
