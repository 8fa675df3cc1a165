// Package httpx wraps outbound HTTP calls with the gateway's per-call
// deadlines and retry-with-backoff policy for transient upstream
// failures. Of the packages that speak HTTP, only graphclient draws on
// this package, and only for its UpstreamTimeout deadline; capability,
// embedding and llm use their own HTTP clients, and none of them sends
// requests through Client, so their calls are not retried.
package httpx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/agentauri/gateway/internal/errs"
)

// Per-call deadlines by destination.
const (
	CapabilityTimeout = 5 * time.Second
	UpstreamTimeout   = 10 * time.Second
	LLMTimeout        = 30 * time.Second
	VectorStoreTimeout = 30 * time.Second
)

// maxRetries caps the retry-with-backoff attempts.
const maxRetries = 3

// Client wraps a *http.Client with a retry-with-backoff policy for
// upstream-transient failures (5xx and network errors). Non-transient
// responses (2xx, 4xx) are returned as-is on the first attempt.
type Client struct {
	http *http.Client
}

// New builds a Client whose underlying *http.Client has the given
// per-request timeout as its overall deadline. The timeout bounds a
// single attempt; Do bounds the sum of all attempts via ctx instead.
func New(timeout time.Duration) *Client {
	return &Client{http: &http.Client{Timeout: timeout}}
}

// NewWithClient wraps an existing *http.Client (e.g. one already
// carrying custom transport for SSRF guarding) with the retry policy.
func NewWithClient(c *http.Client) *Client {
	return &Client{http: c}
}

// Do issues req, retrying up to maxRetries times with exponential
// backoff on network errors or 5xx responses. The request body, if
// present, is buffered so it can be replayed on retry.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		b, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("httpx: read request body: %w", err)
		}
		req.Body.Close()
		body = b
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries)
	policy = backoff.WithContext(policy, ctx)

	var resp *http.Response
	op := func() error {
		attempt := req.Clone(ctx)
		if body != nil {
			attempt.Body = io.NopCloser(bytes.NewReader(body))
		}

		r, err := c.http.Do(attempt)
		if err != nil {
			return err
		}
		if r.StatusCode >= 500 {
			r.Body.Close()
			return fmt.Errorf("httpx: upstream status %d", r.StatusCode)
		}
		resp = r
		return nil
	}

	if err := backoff.Retry(op, policy); err != nil {
		return nil, errs.Wrap(errs.UpstreamTransient, err)
	}
	return resp, nil
}
