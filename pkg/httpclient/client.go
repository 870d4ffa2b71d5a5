package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/utafrali/CosmeticsGo/pkg/logger"
)

// Doer is anything that can execute an HTTP request under a context.
// *Client and *CircuitBreakerClient both satisfy it.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Config holds HTTP client configuration.
type Config struct {
	Timeout         time.Duration
	MaxRetries      int
	RetryWaitMin    time.Duration
	RetryWaitMax    time.Duration
	MaxConnsPerHost int
}

// DefaultConfig returns defaults for calls between internal services.
func DefaultConfig() Config {
	return Config{
		Timeout:         10 * time.Second,
		MaxRetries:      2,
		RetryWaitMin:    200 * time.Millisecond,
		RetryWaitMax:    2 * time.Second,
		MaxConnsPerHost: 50,
	}
}

// Client wraps http.Client with retries, trace propagation and
// correlation-id forwarding.
type Client struct {
	httpClient *http.Client
	config     Config
}

// New creates a client with a pooled transport.
func New(cfg Config) *Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   cfg.MaxConnsPerHost,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	return NewWithHTTPClient(&http.Client{Transport: transport, Timeout: cfg.Timeout}, cfg)
}

// NewWithHTTPClient wraps an existing http.Client.
func NewWithHTTPClient(hc *http.Client, cfg Config) *Client {
	return &Client{httpClient: hc, config: cfg}
}

// Do executes req, retrying network errors and 5xx responses (except 501)
// with capped exponential backoff. Requests with a body are only retried
// when req.GetBody is set, which http.NewRequest does for in-memory bodies.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	req = req.WithContext(ctx)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
	if id := logger.CorrelationIDFromContext(ctx); id != "" && req.Header.Get("X-Correlation-ID") == "" {
		req.Header.Set("X-Correlation-ID", id)
	}

	maxRetries := c.config.MaxRetries
	hasBody := req.Body != nil && req.Body != http.NoBody
	if hasBody && req.GetBody == nil {
		maxRetries = 0
	}

	var (
		resp *http.Response
		err  error
	)
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			if hasBody {
				body, berr := req.GetBody()
				if berr != nil {
					return nil, fmt.Errorf("rewind request body: %w", berr)
				}
				req.Body = body
			}
			select {
			case <-time.After(c.backoff(attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		resp, err = c.httpClient.Do(req)
		if err != nil {
			if isRetryableError(err) && attempt < maxRetries {
				continue
			}
			return nil, fmt.Errorf("http request failed after %d attempts: %w", attempt+1, err)
		}

		if resp.StatusCode >= 500 && resp.StatusCode != http.StatusNotImplemented && attempt < maxRetries {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
			continue
		}
		return resp, nil
	}
	return resp, err
}

func (c *Client) backoff(attempt int) time.Duration {
	wait := c.config.RetryWaitMin * time.Duration(1<<uint(attempt-1))
	return min(wait, c.config.RetryWaitMax)
}

func isRetryableError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
