// Package client provides the HTTP client used to talk to package registries.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/cenk/backoff"
	"github.com/rs/dnscache"
	circuit "github.com/rubyist/circuitbreaker"
)

const defaultUserAgent = "pkgbuilder"

// maxErrorBody caps how much of an error response body is kept in HTTPError.
const maxErrorBody = 1024

// Client is an HTTP client with retry logic for registry APIs.
type Client struct {
	http       *http.Client
	userAgent  string
	maxRetries int
	retryDelay time.Duration
	breakers   *breakerSet
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithMaxRetries sets the maximum number of retries.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets the initial delay of the exponential backoff between retries.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// WithLogger sets the logger used to report retries. Nil disables logging.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l == nil {
			l = slog.New(slog.DiscardHandler)
		}
		c.logger = l
	}
}

// DefaultClient returns a client with sensible defaults:
// - 30s timeout
// - 5 retries with exponential backoff
// - Retry on 429 and 5xx responses
func DefaultClient() *Client {
	return NewClient()
}

// NewClient creates a new client with the given options.
func NewClient(opts ...Option) *Client {
	c := &Client{
		http: &http.Client{
			Timeout:   30 * time.Second,
			Transport: newTransport(),
		},
		userAgent:  defaultUserAgent,
		maxRetries: 5,
		retryDelay: 500 * time.Millisecond,
		breakers:   newBreakerSet(nil),
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var (
	sharedResolver     *dnscache.Resolver
	sharedResolverOnce sync.Once
)

// resolver returns the process-wide DNS cache, refreshed every five minutes.
func resolver() *dnscache.Resolver {
	sharedResolverOnce.Do(func() {
		sharedResolver = &dnscache.Resolver{}
		go func() {
			ticker := time.NewTicker(5 * time.Minute)
			defer ticker.Stop()
			for range ticker.C {
				sharedResolver.Refresh(true)
			}
		}()
	})
	return sharedResolver
}

func newTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	res := resolver()

	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, port, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, err
			}
			ips, err := res.LookupHost(ctx, host)
			if err != nil {
				return nil, err
			}
			for _, ip := range ips {
				conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
				if err == nil {
					return conn, nil
				}
			}
			return nil, fmt.Errorf("failed to dial any resolved IP for %s", host)
		},
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// WithUserAgent returns a copy of the client that sends the given User-Agent.
// The copy shares the transport and circuit breakers with the original.
func (c *Client) WithUserAgent(ua string) *Client {
	cp := *c
	cp.userAgent = ua
	return &cp
}

// GetJSON fetches url and decodes the JSON response body into v.
func (c *Client) GetJSON(ctx context.Context, url string, v any) error {
	body, err := c.GetBody(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decoding %s: %w", url, err)
	}
	return nil
}

// GetBody fetches url and returns the response body.
func (c *Client) GetBody(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, url)
	if err != nil {
		return nil, err
	}
	return resp.body, nil
}

// Head issues a HEAD request and returns the response headers.
func (c *Client) Head(ctx context.Context, url string) (http.Header, error) {
	resp, err := c.do(ctx, http.MethodHead, url)
	if err != nil {
		return nil, err
	}
	return resp.header, nil
}

type response struct {
	status int
	header http.Header
	body   []byte
}

// do performs a request with retries. 429, 5xx and transport errors are retried;
// other 4xx responses are returned immediately.
func (c *Client) do(ctx context.Context, method, url string) (*response, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryDelay
	b.MaxElapsedTime = 0
	b.Reset()
	retries := backoff.WithMaxRetries(b, uint64(max(c.maxRetries, 0)))

	for {
		resp, err := c.attempt(ctx, method, url)
		if err == nil {
			return resp, nil
		}
		if !retryable(err) {
			return nil, err
		}

		delay := retries.NextBackOff()
		if delay == backoff.Stop {
			return nil, err
		}
		var rle *RateLimitError
		if errors.As(err, &rle) && rle.RetryAfter > 0 {
			delay = max(delay, time.Duration(rle.RetryAfter)*time.Second)
		}
		c.logger.Debug("retrying request", "url", url, "delay", delay, "error", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}

func (c *Client) attempt(ctx context.Context, method, url string) (*response, error) {
	breaker := c.breakers.forURL(url)

	var resp *response
	var clientErr error
	err := breaker.Call(func() error {
		r, err := c.send(ctx, method, url)
		if err != nil {
			return err
		}
		switch {
		case r.status == http.StatusTooManyRequests:
			retryAfter, _ := strconv.Atoi(r.header.Get("Retry-After"))
			return &RateLimitError{RetryAfter: retryAfter}
		case r.status >= 500:
			return &HTTPError{StatusCode: r.status, URL: url, Body: truncate(r.body)}
		case r.status >= 400:
			// Client errors say nothing about the registry's health.
			clientErr = &HTTPError{StatusCode: r.status, URL: url, Body: truncate(r.body)}
			return nil
		}
		resp = r
		return nil
	}, 0)
	if errors.Is(err, circuit.ErrBreakerOpen) {
		return nil, fmt.Errorf("%s: %w", breakerKey(url), ErrCircuitOpen)
	}
	if err != nil {
		return nil, err
	}
	if clientErr != nil {
		return nil, clientErr
	}
	return resp, nil
}

func (c *Client) send(ctx context.Context, method, url string) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &transportError{err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &transportError{err: err}
	}
	return &response{status: resp.StatusCode, header: resp.Header, body: body}, nil
}

func truncate(body []byte) string {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return string(body)
}

// transportError marks failures below HTTP (DNS, dial, reset) as retryable.
type transportError struct {
	err error
}

func (e *transportError) Error() string { return e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrCircuitOpen) {
		return false
	}
	var te *transportError
	if errors.As(err, &te) {
		return true
	}
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return true
	}
	var he *HTTPError
	if errors.As(err, &he) {
		return he.StatusCode >= 500
	}
	return false
}
