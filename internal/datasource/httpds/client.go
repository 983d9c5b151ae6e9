// Package httpds is the HTTP byte source of the URL-backed connectors. Client
// retries with exponential backoff; URLSource downloads once per load and can
// peek at a prefix for sniffing.
package httpds

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"
)

// UserAgent is sent unless the caller sets its own.
const UserAgent = "datascout/1"

// Config configures a Client. Zero values get defaults: Timeout 30s,
// InitialBackoff 200ms, MaxBackoff 5s. MaxRetries=0 means one attempt.
type Config struct {
	Timeout        time.Duration
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	InsecureSkipVerify bool

	// BaseHeaders go on every request; per-request headers win.
	BaseHeaders http.Header

	// Transport replaces the default *http.Transport when set.
	Transport http.RoundTripper
}

// Defaults configures the clients of URL-backed connectors. The CLI fills it
// from the runtime settings before any pipeline runs.
var Defaults Config

// Client is an http.Client that retries transport errors and transient
// statuses.
type Client struct {
	httpClient     *http.Client
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	baseHeaders    http.Header

	sleep func(time.Duration)
}

// NewClient applies defaults to cfg and builds a Client.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 200 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 5 * time.Second
	}
	rt := cfg.Transport
	if rt == nil {
		rt = &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{InsecureSkipVerify: cfg.InsecureSkipVerify}, //nolint:gosec // opt-in
		}
	}
	return &Client{
		httpClient:     &http.Client{Timeout: cfg.Timeout, Transport: rt},
		maxRetries:     max(cfg.MaxRetries, 0),
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		baseHeaders:    cfg.BaseHeaders.Clone(),
		sleep:          time.Sleep,
	}
}

// Do sends one request, retrying on transport errors, 429 and 5xx. body is a
// byte slice so every attempt can resend it. A non-retryable status is not an
// error: the response is returned and the caller closes its Body.
func (c *Client) Do(ctx context.Context, method, url string, body []byte, headers http.Header) (*http.Response, error) {
	if method == "" || url == "" {
		return nil, fmt.Errorf("httpds: method and url are required")
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepWithContext(ctx, c.sleep, backoffDuration(c.initialBackoff, attempt-1, c.maxBackoff)); err != nil {
				return nil, err
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := c.newRequest(ctx, method, url, body, headers)
		if err != nil {
			return nil, err
		}
		resp, err := c.httpClient.Do(req)
		switch {
		case err != nil:
			lastErr = err
		case isRetryableStatus(resp.StatusCode):
			resp.Body.Close()
			lastErr = fmt.Errorf("httpds: %s %s: status %d", method, url, resp.StatusCode)
		default:
			return resp, nil
		}
	}
	return nil, lastErr
}

func (c *Client) newRequest(ctx context.Context, method, url string, body []byte, headers http.Header) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("httpds: build request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	for k, vs := range c.baseHeaders {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	for k, vs := range headers {
		req.Header.Del(k)
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return req, nil
}

// Get is Do with GET and no body.
func (c *Client) Get(ctx context.Context, url string, headers http.Header) (*http.Response, error) {
	return c.Do(ctx, http.MethodGet, url, nil, headers)
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || (code >= 500 && code <= 599)
}

// backoffDuration is initial doubled per retry index, clamped to max.
func backoffDuration(initial time.Duration, attempt int, max time.Duration) time.Duration {
	d := initial
	for i := 0; i < attempt && d < max; i++ {
		d *= 2
	}
	if d > max {
		return max
	}
	return d
}

// sleepWithContext waits d or until ctx is done, whichever comes first. The
// injected sleep is called once the timer fires so tests can observe waits.
func sleepWithContext(ctx context.Context, sleep func(time.Duration), d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		sleep(0)
		return nil
	}
}
