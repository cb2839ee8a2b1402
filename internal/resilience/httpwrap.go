package resilience

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPClient wraps an http.Client with retry, backoff, and an optional
// circuit breaker. It is used for outbound receipt deliveries where the
// remote endpoint may be flaky.
type HTTPClient struct {
	Client      *http.Client
	Breaker     *Breaker
	MaxAttempts int
	BaseBackoff time.Duration
	Jitter      float64
	Timeout     time.Duration
}

// NewHTTPClient builds an HTTPClient with sane defaults around the provided
// transport.
func NewHTTPClient(client *http.Client, breaker *Breaker) *HTTPClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPClient{
		Client:      client,
		Breaker:     breaker,
		MaxAttempts: 3,
		BaseBackoff: 200 * time.Millisecond,
		Jitter:      0.2,
		Timeout:     5 * time.Second,
	}
}

// Do executes the request with retries. The request body, if any, must be
// replayable: callers pass the raw bytes so each attempt gets a fresh reader.
func (c *HTTPClient) Do(ctx context.Context, req *http.Request, body []byte) (*http.Response, error) {
	if c == nil || c.Client == nil {
		return nil, fmt.Errorf("resilience: http client not configured")
	}
	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if c.Breaker != nil && !c.Breaker.Allow() {
			return nil, ErrOpenCircuit
		}

		attemptCtx := ctx
		cancel := func() {}
		if c.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, c.Timeout)
		}

		attemptReq := req.Clone(attemptCtx)
		if body != nil {
			attemptReq.Body = io.NopCloser(bytes.NewReader(body))
			attemptReq.ContentLength = int64(len(body))
		}

		resp, err := c.Client.Do(attemptReq)
		cancel()

		if err == nil && resp.StatusCode < 500 {
			if c.Breaker != nil {
				c.Breaker.Report(true)
			}
			return resp, nil
		}

		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("resilience: upstream returned %d", resp.StatusCode)
			resp.Body.Close()
		}
		if c.Breaker != nil {
			c.Breaker.Report(false)
		}

		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(Backoff(c.BaseBackoff, attempt, c.Jitter)):
		}
	}
	return nil, fmt.Errorf("resilience: request failed after %d attempts: %w", attempts, lastErr)
}
