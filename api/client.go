package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

// Envelope is the uniform response wrapper of the FlowX backend.
type Envelope[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
	Data    T      `json:"data,omitempty"`
}

// OK reports whether the envelope code signals success.
func (e Envelope[T]) OK() bool {
	return e.Code == http.StatusOK || e.Code == http.StatusCreated
}

// TokenSource yields the access token attached to each request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource that always returns the same token.
type StaticToken string

// Token returns t.
func (t StaticToken) Token(context.Context) (string, error) {
	return string(t), nil
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTokenSource sets where access tokens come from.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) {
		c.tokens = ts
	}
}

// Client issues authenticated JSON requests against the FlowX backend.
type Client struct {
	base      *url.URL
	http      *http.Client
	tokens    TokenSource
	userAgent string
	logger    *slog.Logger
	newID     func() string
}

// New creates a Client from cfg.
func New(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	c := &Client{
		base:      base,
		http:      &http.Client{Timeout: timeout},
		userAgent: cfg.UserAgent,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		newID:     func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the backend origin the client talks to.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Token resolves the current access token, failing with ErrMissingAuth when
// none is available.
func (c *Client) Token(ctx context.Context) (string, error) {
	if c.tokens == nil {
		return "", ErrMissingAuth
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", ErrMissingAuth
	}
	return token, nil
}

// Do sends one request and decodes the envelope data into out. out may be nil
// when the caller does not need the data.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	token, err := c.Token(ctx)
	if err != nil {
		return err
	}

	if v, ok := body.(validation.Validatable); ok {
		if err := v.Validate(); err != nil {
			return validationError(err)
		}
	}

	req, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	requestID := req.Header.Get("X-Request-ID")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request failed",
			"method", method, "path", path, "request_id", requestID, "error", err)
		return transportError(err, method, path)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportError(err, method, path)
	}

	env := Envelope[json.RawMessage]{}
	if err := json.Unmarshal(raw, &env); err != nil {
		c.logger.Debug("undecodable response",
			"method", method, "path", path, "status", resp.StatusCode, "request_id", requestID)
		if resp.StatusCode >= http.StatusBadRequest {
			return backendError(resp.StatusCode, "")
		}
		return transportError(fmt.Errorf("decode envelope: %w", err), method, path)
	}
	if env.Code == 0 {
		env.Code = resp.StatusCode
	}

	c.logger.Debug("request completed",
		"method", method,
		"path", path,
		"request_id", requestID,
		"code", env.Code,
		"duration", time.Since(start),
	)

	if !env.OK() {
		return backendError(env.Code, env.Message)
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return transportError(fmt.Errorf("decode data: %w", err), method, path)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", c.newID())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return req, nil
}

// Get is a type-safe wrapper around Client.Do for GET requests.
func Get[T any](ctx context.Context, c *Client, path string, query url.Values) (T, error) {
	var out T
	err := c.Do(ctx, http.MethodGet, path, query, nil, &out)
	return out, err
}

// Post is a type-safe wrapper around Client.Do for POST requests.
func Post[T any](ctx context.Context, c *Client, path string, body any) (T, error) {
	var out T
	err := c.Do(ctx, http.MethodPost, path, nil, body, &out)
	return out, err
}

// Put is a type-safe wrapper around Client.Do for PUT requests.
func Put[T any](ctx context.Context, c *Client, path string, body any) (T, error) {
	var out T
	err := c.Do(ctx, http.MethodPut, path, nil, body, &out)
	return out, err
}

// Delete is a type-safe wrapper around Client.Do for DELETE requests.
func Delete[T any](ctx context.Context, c *Client, path string) (T, error) {
	var out T
	err := c.Do(ctx, http.MethodDelete, path, nil, nil, &out)
	return out, err
}
