// Package client calls the course, video and login services over HTTP.
//
// Every operation is a single attempt: there is no retry, no timeout beyond the
// caller's context and no caching between calls.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/musickatta/katta-admin/internal/logger"
	"github.com/musickatta/katta-admin/internal/telemetry"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/oauth2"
)

// DefaultBackendURL is where the backend services listen in development.
const DefaultBackendURL = "http://localhost:8085"

// maxErrorBody bounds how much of a failed response is read into the error message.
const maxErrorBody = 64 << 10

// Config holds common client configuration
type Config struct {
	BaseURL string
	// Transport is the underlying round tripper, http.DefaultTransport when nil.
	Transport http.RoundTripper
	// AccessToken is sent as a bearer token when set.
	AccessToken string
	Logger      *zerolog.Logger
}

// DefaultConfig returns a default client configuration
func DefaultConfig() Config {
	return Config{
		BaseURL: DefaultBackendURL,
	}
}

// Client is the resource client for the backend services.
type Client struct {
	baseURL string
	base    http.RoundTripper
	http    *http.Client
}

// New creates a client. Outgoing calls are logged and traced.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBackendURL
	}

	lg := log.Logger
	if cfg.Logger != nil {
		lg = *cfg.Logger
	}

	transport := otelhttp.NewTransport(logger.NewBackendCalls(lg, cfg.Transport))

	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		base:    transport,
	}
	c.http = &http.Client{Transport: c.authorized(cfg.AccessToken)}
	return c
}

// WithAccessToken returns a client sending token as a bearer token. An empty token
// returns a client without authorization.
func (c *Client) WithAccessToken(token string) *Client {
	return &Client{
		baseURL: c.baseURL,
		base:    c.base,
		http:    &http.Client{Transport: c.authorized(token)},
	}
}

// BaseURL is the backend base URL without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) authorized(token string) http.RoundTripper {
	if token == "" {
		return c.base
	}
	return &oauth2.Transport{
		Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
		Base:   c.base,
	}
}

type call struct {
	op          string
	method      string
	path        string
	body        io.Reader
	contentType string

	// fallback is the message used when a failed response has an empty body.
	fallback string
	// notFound is the message for any 404 response, whatever its body.
	notFound string
	// jsonMessage prefers a "message" field of a JSON error body over the raw text.
	jsonMessage bool
}

func (c *Client) do(ctx context.Context, cl call, out any) error {
	started := time.Now()
	m := telemetry.GetMetrics()
	attrs := metric.WithAttributes(attribute.String("operation", cl.op))

	m.BackendRequestsTotal.Add(ctx, 1, attrs)
	defer func() {
		m.BackendRequestDuration.Record(ctx, float64(time.Since(started).Milliseconds()), attrs)
	}()

	req, err := http.NewRequestWithContext(ctx, cl.method, c.baseURL+cl.path, cl.body)
	if err != nil {
		if closer, ok := cl.body.(io.Closer); ok {
			closer.Close()
		}
		return fmt.Errorf("failed to build %s request: %w", cl.op, err)
	}
	if cl.contentType != "" {
		req.Header.Set("Content-Type", cl.contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		m.BackendErrorsTotal.Add(ctx, 1, attrs)
		return fmt.Errorf("%w: %s: %w", ErrTransport, cl.op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		m.BackendErrorsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("operation", cl.op),
			attribute.Int("status", resp.StatusCode),
		))
		return readAPIError(resp, cl)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to decode %s response: %w", cl.op, err)
	}
	return nil
}

func readAPIError(resp *http.Response, cl call) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	text := strings.TrimSpace(string(data))

	if cl.jsonMessage && text != "" {
		var body struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(data, &body); err == nil {
			text = strings.TrimSpace(body.Message)
		}
	}

	switch {
	case resp.StatusCode == http.StatusNotFound && cl.notFound != "":
		text = cl.notFound
	case text == "":
		text = cl.fallback
	}
	return &APIError{StatusCode: resp.StatusCode, Message: text}
}

func jsonBody(v any) (io.Reader, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	return bytes.NewReader(data), nil
}
