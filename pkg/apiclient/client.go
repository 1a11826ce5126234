// Package apiclient talks to the department administration REST API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// RequestInterceptor may mutate an outgoing request or veto it with an error.
type RequestInterceptor func(req *http.Request) error

// ResponseInterceptor observes a response before it is decoded. Returning an
// error aborts decoding and surfaces that error to the caller.
type ResponseInterceptor func(resp *http.Response) error

// Client is an explicitly constructed API client. It carries the base URL,
// default headers and an interceptor chain; there is no package-level instance.
type Client struct {
	baseURL      *url.URL
	httpClient   *http.Client
	headers      http.Header
	requestHooks []RequestInterceptor
	respHooks    []ResponseInterceptor
	logger       *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying transport client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the request timeout on the default transport client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithHeader adds a default header sent on every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers.Set(key, value)
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRequestInterceptor appends a request interceptor.
func WithRequestInterceptor(fn RequestInterceptor) Option {
	return func(c *Client) {
		if fn != nil {
			c.requestHooks = append(c.requestHooks, fn)
		}
	}
}

// WithResponseInterceptor appends a response interceptor.
func WithResponseInterceptor(fn ResponseInterceptor) Option {
	return func(c *Client) {
		if fn != nil {
			c.respHooks = append(c.respHooks, fn)
		}
	}
}

// WithBearerToken attaches credentials to every request.
func WithBearerToken(token string) Option {
	return WithRequestInterceptor(func(req *http.Request) error {
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		return nil
	})
}

// OnUnauthorized registers an observer for 401 responses. The response is
// still turned into an *Error for the caller.
func OnUnauthorized(fn func(resp *http.Response)) Option {
	return WithResponseInterceptor(func(resp *http.Response) error {
		if resp.StatusCode == http.StatusUnauthorized && fn != nil {
			fn(resp)
		}
		return nil
	})
}

// New constructs a Client rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}

	c := &Client{
		baseURL:    parsed,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		headers:    http.Header{},
		logger:     zap.NewNop(),
	}
	c.headers.Set("Content-Type", "application/json")
	c.headers.Set("Accept", "application/json")
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// envelope mirrors the server response contract.
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

// Do sends a request and decodes the envelope's data into out (when non-nil).
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	status, raw, _, err := c.send(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	if out == nil || len(raw) == 0 || status == http.StatusNoContent {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &Error{Status: status, Data: "malformed response body", Err: err}
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &Error{Status: status, Data: "unexpected response shape", Err: err}
	}
	return nil
}

// Download fetches a non-enveloped body, such as an export file, and returns
// it with its content type.
func (c *Client) Download(ctx context.Context, path string, query url.Values) ([]byte, string, error) {
	_, raw, header, err := c.send(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, "", err
	}
	return raw, header.Get("Content-Type"), nil
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, body interface{}) (int, []byte, http.Header, error) {
	req, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return 0, nil, nil, err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("api request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return 0, nil, nil, &Error{Status: 0, Data: "network error", Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("api request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	for _, hook := range c.respHooks {
		if err := hook(resp); err != nil {
			return resp.StatusCode, nil, nil, err
		}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, nil, &Error{Status: resp.StatusCode, Data: "failed to read response", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, nil, nil, shapeError(resp.StatusCode, raw)
	}
	return resp.StatusCode, raw, resp.Header, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body interface{}) (*http.Request, error) {
	target := *c.baseURL
	target.Path = strings.TrimRight(c.baseURL.Path, "/") + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for key, values := range c.headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	for _, hook := range c.requestHooks {
		if err := hook(req); err != nil {
			return nil, err
		}
	}
	return req, nil
}
