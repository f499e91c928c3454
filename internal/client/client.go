// Package client talks to the billing REST service. It implements
// billing.Persistence so a Register can check out against a remote server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/toko-billing/internal/billing"
	"github.com/noah-isme/toko-billing/internal/resilience"
)

const idempotencyHeader = "Idempotency-Key"

// Config configures a Client.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	// Base is the innermost transport, http.DefaultTransport when nil.
	Base        http.RoundTripper
	Breaker     *resilience.Breaker
	MaxAttempts int
	Backoff     time.Duration
	// Metrics, when set, receives the breaker collectors.
	Metrics prometheus.Registerer
}

// Client is a REST client for the billing service.
type Client struct {
	base  *url.URL
	token string
	http  *http.Client
}

var _ billing.Persistence = (*Client)(nil)

// New builds a Client. Requests go through a retrying, circuit breaking
// transport wrapped in otelhttp.
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("client: invalid base url %q", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Breaker == nil {
		cfg.Breaker = resilience.NewBreaker(5, 0.5, 30*time.Second).WithTarget("billing-api")
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Metrics != nil {
		resilience.MustRegisterMetrics(cfg.Metrics)
	}
	rt := resilience.Transport{
		Base:        cfg.Base,
		Breaker:     cfg.Breaker,
		BaseBackoff: cfg.Backoff,
		MaxAttempts: cfg.MaxAttempts,
		Jitter:      0.2,
	}
	return &Client{
		base:  base,
		token: cfg.Token,
		http:  &http.Client{Timeout: cfg.Timeout, Transport: otelhttp.NewTransport(rt)},
	}, nil
}

// SetToken replaces the bearer token sent with every request.
func (c *Client) SetToken(token string) { c.token = token }

type call struct {
	op      billing.Op
	method  string
	path    string
	query   url.Values
	body    any
	headers map[string]string
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) send(ctx context.Context, in call) (*http.Response, error) {
	u := *c.base
	u.Path = c.base.Path + in.path
	if len(in.query) > 0 {
		u.RawQuery = in.query.Encode()
	}
	var body io.Reader
	if in.body != nil {
		raw, err := json.Marshal(in.body)
		if err != nil {
			return nil, fmt.Errorf("encode %s request: %w", in.op, err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, in.method, u.String(), body)
	if err != nil {
		return nil, billing.NewTransportError(in.op, 0, "", err)
	}
	req.Header.Set("Accept", "application/json")
	if in.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, v := range in.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, billing.NewTransportError(in.op, 0, "", err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	var env errorEnvelope
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(raw, &env)
	var cause error
	if env.Error.Code != "" {
		cause = &APIError{Code: env.Error.Code, Message: env.Error.Message}
	}
	return nil, billing.NewTransportError(in.op, resp.StatusCode, env.Error.Message, cause)
}

// do sends in and decodes a JSON response into out when out is non-nil.
func (c *Client) do(ctx context.Context, in call, out any) error {
	resp, err := c.send(ctx, in)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s: %v", billing.ErrInvalidResponse, in.op, err)
	}
	return nil
}

// download copies a non-JSON response body to w.
func (c *Client) download(ctx context.Context, in call, w io.Writer) error {
	resp, err := c.send(ctx, in)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if _, err := io.Copy(w, resp.Body); err != nil {
		return billing.NewTransportError(in.op, resp.StatusCode, "", err)
	}
	return nil
}

// APIError is the error body returned by the service.
type APIError struct {
	Code    string
	Message string
}

func (e *APIError) Error() string { return e.Code + ": " + e.Message }

// Code returns the service error code carried by err, if any.
func Code(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}

func newIdempotencyKey() string { return uuid.NewString() }
