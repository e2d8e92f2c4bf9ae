package tms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Result is the outcome of one executed request. The body is fully read
// and the connection released before the Result is returned.
type Result struct {
	Status int
	Header http.Header
	Body   []byte
}

// OK reports whether the status is 2xx.
func (r *Result) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Decode unmarshals the body into v. A malformed or empty body is not an
// error: Decode returns false and leaves v untouched so the caller can
// decide whether an empty result is fatal.
func (r *Result) Decode(v any) bool {
	if len(r.Body) == 0 {
		return false
	}
	return json.Unmarshal(r.Body, v) == nil
}

// Client issues authenticated requests against the TMS API and retries
// transparently on rate limiting and connection-level failures.
//
// Retry policy: on 429 the server-provided Retry-After delay is honored
// when present, otherwise the delay on attempt k is 2^k seconds. The same
// backoff applies to connection resets and timeouts. After MaxAttempts
// retries the request fails with ErrRetryExhausted (429) or the last
// transport error. Every other status is returned to the caller, which
// interprets it semantically.
type Client struct {
	base        string
	token       string
	http        *http.Client
	limiter     *rate.Limiter
	maxAttempts int
	pageSize    int
	log         *zap.Logger
}

// NewClient creates a TMS API client from the configuration.
func NewClient(cfg Config, log *zap.Logger) *Client {
	timeout := cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = 30
	}
	timeoutDuration := time.Duration(timeout) * time.Second

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 10
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}

	// Strict transport timeouts so a dead connection surfaces as a
	// retryable error instead of hanging the run.
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeoutDuration,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   timeoutDuration,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: timeoutDuration,
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &Client{
		base:        cfg.BaseURL,
		token:       cfg.Token,
		http:        &http.Client{Transport: transport, Timeout: timeoutDuration},
		limiter:     limiter,
		maxAttempts: maxAttempts,
		pageSize:    pageSize,
		log:         log,
	}
}

// PageSize returns the configured per_page value for listing traversals.
func (c *Client) PageSize() int {
	return c.pageSize
}

// Do executes one logical request. payload, when non-nil, is sent as a
// JSON body. The returned Result covers any terminal status, including
// 4xx and 5xx; only rate limiting and transport failures are retried.
func (c *Client) Do(ctx context.Context, ep Endpoint, params map[string]string, query url.Values, payload any) (*Result, error) {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode payload: %w", err)
		}
	}

	u := ep.URL(c.base, params, query)

	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		res, err := c.once(ctx, ep.Method, u, body)
		if err != nil {
			// The parent context ending is a cancellation, not a
			// transient connection failure.
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if attempt >= c.maxAttempts {
				return nil, fmt.Errorf("%s %s failed after %d attempts: %w", ep.Method, u, attempt+1, err)
			}
			delay := backoffDelay(attempt)
			c.log.Warn("connection failure, retrying",
				zap.String("url", u),
				zap.Duration("delay", delay),
				zap.Int("attempt", attempt+1),
				zap.Error(err))
			if err := sleep(ctx, delay); err != nil {
				return nil, err
			}
			continue
		}

		if res.Status != http.StatusTooManyRequests {
			return res, nil
		}

		if attempt >= c.maxAttempts {
			return nil, fmt.Errorf("%s %s: %w", ep.Method, u, ErrRetryExhausted)
		}

		delay := retryAfter(res.Header)
		if delay <= 0 {
			delay = backoffDelay(attempt)
		}
		c.log.Warn("rate limited, retrying",
			zap.String("url", u),
			zap.Duration("delay", delay),
			zap.Int("attempt", attempt+1))
		if err := sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

// once performs a single HTTP round trip and drains the body.
func (c *Client) once(ctx context.Context, method, u string, body []byte) (*Result, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &Result{Status: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

// backoffDelay is 2^attempt seconds.
func backoffDelay(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * time.Second
}

// retryAfter reads the server-provided delay, zero when absent or invalid.
func retryAfter(h http.Header) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	seconds, err := strconv.Atoi(v)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
