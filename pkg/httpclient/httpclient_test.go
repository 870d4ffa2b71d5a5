package httpclient

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/CosmeticsGo/pkg/errors"
	"github.com/utafrali/CosmeticsGo/pkg/logger"
)

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.RetryWaitMin = time.Millisecond
	cfg.RetryWaitMax = 2 * time.Millisecond
	return cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, `{"q":1}`, string(body))
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	req, err := http.NewRequest(http.MethodPost, srv.URL, bytes.NewBufferString(`{"q":1}`))
	require.NoError(t, err)

	resp, err := New(fastConfig()).Do(context.Background(), req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_ReturnsLastServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	resp, err := New(fastConfig()).Do(context.Background(), req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	resp, err := New(fastConfig()).Do(context.Background(), req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_ForwardsCorrelationID(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-Correlation-ID")
	}))
	defer srv.Close()

	ctx := logger.WithCorrelationID(context.Background(), "corr-5")
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	resp, err := New(fastConfig()).Do(ctx, req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "corr-5", got)
}

func TestIsRetryableError(t *testing.T) {
	assert.False(t, isRetryableError(nil))
	assert.False(t, isRetryableError(context.Canceled))
	assert.False(t, isRetryableError(errors.New("plain")))
}

type stubDoer struct {
	status int
	err    error
	calls  int
}

func (s *stubDoer) Do(context.Context, *http.Request) (*http.Response, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &http.Response{StatusCode: s.status, Body: io.NopCloser(strings.NewReader("oops"))}, nil
}

func TestCircuitBreaker_TripsOnServerErrors(t *testing.T) {
	doer := &stubDoer{status: http.StatusInternalServerError}
	cfg := DefaultCircuitBreakerConfig("order-service-test")
	cfg.MinRequests = 2
	cb := NewCircuitBreakerClient(doer, cfg, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "http://order/", nil)
	for range 2 {
		_, err := cb.Do(context.Background(), req)
		assert.ErrorContains(t, err, "server error 500")
	}
	assert.Equal(t, gobreaker.StateOpen, cb.State())

	_, err := cb.Do(context.Background(), req)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 2, doer.calls)
}

func TestCircuitBreaker_PassesSuccess(t *testing.T) {
	doer := &stubDoer{status: http.StatusOK}
	cb := NewCircuitBreakerClient(doer, DefaultCircuitBreakerConfig("cart-service-test"), discardLogger())

	resp, err := cb.Do(context.Background(), httptest.NewRequest(http.MethodGet, "http://cart/", nil))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func respond(status int, body string) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(body))}
}

func TestParseResponseError(t *testing.T) {
	tests := []struct {
		status   int
		body     string
		sentinel error
		code     int
	}{
		{http.StatusNotFound, `{"error":{"code":"NOT_FOUND","message":"cart"}}`, apperrors.ErrNotFound, http.StatusNotFound},
		{http.StatusBadRequest, `{"error":{"code":"INVALID_INPUT","message":"bad qty"}}`, apperrors.ErrInvalidInput, http.StatusBadRequest},
		{http.StatusConflict, `conflict`, apperrors.ErrConflict, http.StatusConflict},
		{http.StatusServiceUnavailable, ``, apperrors.ErrServiceUnavail, http.StatusServiceUnavailable},
		{http.StatusInternalServerError, `boom`, apperrors.ErrUpstream, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := ParseResponseError(respond(tt.status, tt.body), "order-service")
			assert.ErrorIs(t, err, tt.sentinel)
			assert.Equal(t, tt.code, apperrors.HTTPStatus(err))
		})
	}
}

func TestParseResponseError_KeepsDownstreamMessage(t *testing.T) {
	err := ParseResponseError(respond(http.StatusBadRequest, `{"error":{"code":"X","message":"quantity too large"}}`), "cart-service")

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "cart-service: quantity too large", appErr.Message)
}

func TestIsSuccess(t *testing.T) {
	assert.True(t, IsSuccess(http.StatusCreated))
	assert.False(t, IsSuccess(http.StatusFound))
}
