// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

// Package httpc is the outbound HTTP and XML-RPC client exposed to plugins.
package httpc

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/marquee-player/marquee/internal/fault"
	"github.com/marquee-player/marquee/internal/loop"
)

// Default client settings.
const (
	DefaultTimeout = 30 * time.Second
	DefaultRetries = 2
	DefaultBackoff = 200 * time.Millisecond
	DefaultMaxBody = 16 << 20
)

var allowedMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

var idempotent = map[string]bool{
	http.MethodGet:    true,
	http.MethodPut:    true,
	http.MethodDelete: true,
}

// Options are per-request parameters.
type Options struct {
	// Params are appended to the URL query.
	Params map[string]string
	// Headers are set on the request.
	Headers map[string]string
	// Data is sent as a JSON body for methods other than GET.
	Data any
	// Body, if set, is sent verbatim instead of Data.
	Body []byte
}

// Response is the result of a completed request. Non-2xx statuses are
// responses, not errors.
type Response struct {
	StatusCode int
	Reason     string
	Text       string
	// Data is the JSON-decoded body, or nil when the body is not JSON or
	// was truncated.
	Data any
	// Truncated is set when the body exceeded the client's size limit and
	// Text holds only its first bytes.
	Truncated bool
}

// Callback receives the result of an Async request on the loop.
type Callback func(ctx context.Context, resp *Response, err error) error

// Client performs requests for one plugin.
type Client struct {
	http    *http.Client
	logger  *slog.Logger
	retries uint64
	backoff time.Duration
	maxBody int64

	wg sync.WaitGroup
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithRetries sets how often idempotent requests are retried and the
// initial backoff between attempts.
func WithRetries(n uint64, backoff time.Duration) Option {
	return func(c *Client) {
		c.retries = n
		c.backoff = backoff
	}
}

// WithMaxBody limits how many body bytes a response keeps.
func WithMaxBody(n int64) Option {
	return func(c *Client) {
		c.maxBody = n
	}
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		http:    &http.Client{Timeout: DefaultTimeout},
		logger:  slog.Default(),
		retries: DefaultRetries,
		backoff: DefaultBackoff,
		maxBody: DefaultMaxBody,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do performs a request. GET, PUT and DELETE are retried on transport
// errors and 5xx responses.
func (c *Client) Do(ctx context.Context, method, rawURL string, opts Options) (*Response, error) {
	method = strings.ToUpper(method)
	if !allowedMethods[method] {
		return nil, fault.InvalidArgument("unsupported HTTP method %q", method)
	}
	target, err := buildURL(rawURL, opts.Params)
	if err != nil {
		return nil, err
	}
	body, contentType, err := encodeBody(method, opts)
	if err != nil {
		return nil, err
	}

	attempts := uint64(0)
	if idempotent[method] {
		attempts = c.retries
	}
	backoff := retry.WithMaxRetries(attempts, retry.NewExponential(c.backoff))

	var resp *Response
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		resp = nil
		r, err := c.once(ctx, method, target, body, contentType, opts.Headers)
		if err != nil {
			return retry.RetryableError(err)
		}
		if r.StatusCode >= 500 && idempotent[method] {
			resp = r
			return retry.RetryableError(oops.Errorf("server returned %d", r.StatusCode))
		}
		resp = r
		return nil
	})

	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	// A 5xx that exhausted retries is still a response.
	if err != nil && resp != nil && resp.StatusCode >= 500 {
		err = nil
	}
	requests.WithLabelValues(method, outcome(status, err)).Inc()

	if err != nil {
		return nil, oops.Code(fault.CodeNetwork).
			In("httpc").
			With("method", method).
			With("url", target).
			Wrapf(err, "%s %s", method, target)
	}
	return resp, nil
}

func (c *Client) once(ctx context.Context, method, target string, body []byte, contentType string, headers map[string]string) (*Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, c.maxBody+1))
	if err != nil {
		return nil, err
	}
	truncated := int64(len(raw)) > c.maxBody
	if truncated {
		raw = raw[:c.maxBody]
		c.logger.Warn("http response body truncated",
			"method", method,
			"url", target,
			"limit", c.maxBody)
	}

	resp := &Response{
		StatusCode: res.StatusCode,
		Reason:     http.StatusText(res.StatusCode),
		Text:       string(raw),
		Truncated:  truncated,
	}
	var decoded any
	if !truncated && len(raw) > 0 && json.Unmarshal(raw, &decoded) == nil {
		resp.Data = decoded
	}
	c.logger.Debug("http request",
		"method", method,
		"url", target,
		"status", res.StatusCode)
	return resp, nil
}

// Async performs a request on a separate goroutine and queues done on lp
// with the result. If the loop has stopped the result is discarded.
func (c *Client) Async(ctx context.Context, lp *loop.Loop, method, rawURL string, opts Options, done Callback) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		resp, err := c.Do(ctx, method, rawURL, opts)
		enqueueErr := lp.Go("http "+method+" "+rawURL, func(ctx context.Context) error {
			return done(ctx, resp, err)
		})
		if enqueueErr != nil {
			c.logger.Debug("discarding http result",
				"url", rawURL,
				"error", enqueueErr)
		}
	}()
}

// Wait blocks until every Async request has completed.
func (c *Client) Wait() {
	c.wg.Wait()
}

func buildURL(rawURL string, params map[string]string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", oops.Code(fault.CodeInvalidArgument).
			With("url", rawURL).
			Wrapf(err, "parse url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fault.InvalidArgument("url %q must use http or https", rawURL)
	}
	if len(params) > 0 {
		q := u.Query()
		for k, v := range params {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func encodeBody(method string, opts Options) ([]byte, string, error) {
	switch {
	case opts.Body != nil:
		return opts.Body, "", nil
	case opts.Data == nil || method == http.MethodGet:
		return nil, "", nil
	}
	raw, err := json.Marshal(opts.Data)
	if err != nil {
		return nil, "", oops.Code(fault.CodeInvalidArgument).
			Wrapf(err, "encode request data")
	}
	return raw, "application/json", nil
}
