// Package httpclient is a small rate-limited JSON HTTP client shared by
// every outbound integration this system makes (routing engine, geocoder,
// municipal traffic feed). Grounded verbatim on
// integrations/loyverse/internal/connector/client.go: a *http.Client with a
// fixed timeout, a golang.org/x/time/rate.Limiter gating outbound calls,
// and Do/DoRaw methods that wait on the limiter before dialing.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Client wraps http.Client with rate limiting and a fixed base URL.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	rateLimiter *rate.Limiter
	headers     map[string]string
}

// Option customizes a Client at construction time.
type Option func(*Client)

// WithHeader sets a header sent on every request (e.g. an API key).
func WithHeader(key, value string) Option {
	return func(c *Client) { c.headers[key] = value }
}

// WithRateLimit overrides the default limiter (one request per `every`,
// bursting up to `burst`).
func WithRateLimit(every time.Duration, burst int) Option {
	return func(c *Client) { c.rateLimiter = rate.NewLimiter(rate.Every(every), burst) }
}

// New creates a client against baseURL with the given per-call timeout.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     baseURL,
		rateLimiter: rate.NewLimiter(rate.Every(50*time.Millisecond), 1),
		headers:     map[string]string{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do issues a request against path with an optional JSON body, waiting on
// the rate limiter first, and decodes a JSON response into out (if out is
// non-nil). Non-2xx responses are returned as an error carrying the status
// and raw body.
func (c *Client) Do(ctx context.Context, method, path string, body, out interface{}) error {
	respBody, err := c.DoRaw(ctx, method, path, body)
	if err != nil {
		return err
	}
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

// DoRaw issues a request against path with an optional JSON body, waiting
// on the rate limiter first, and returns the raw response body unparsed —
// for callers whose upstream speaks a non-JSON wire format (the municipal
// traffic feed's XML), but who still want the rate limiting, headers and
// base-URL handling every other outbound integration gets. Non-2xx
// responses are returned as an error carrying the status and raw body.
func (c *Client) DoRaw(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: respBody}
	}
	return respBody, nil
}

// StatusError is returned when an upstream call completes but with a
// non-2xx status; callers inspect StatusCode to decide whether the error is
// transient (5xx) or fatal.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream error: status=%d body=%s", e.StatusCode, string(e.Body))
}

// IsServerError reports whether the upstream failed with a 5xx.
func (e *StatusError) IsServerError() bool {
	return e.StatusCode >= 500
}
