package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/okonen/relay"
)

// Client implements relay.Requester against a chat completions endpoint.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
	name    string
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Client) { p.client = c }
}

// WithName overrides the backend name used for logging (default "openai").
func WithName(name string) Option {
	return func(p *Client) { p.name = name }
}

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Client) { p.client.Timeout = d }
}

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Client) { p.logger = l }
}

// New creates a chat completions client.
//
// baseURL is the API base (e.g. "https://api.openai.com/v1",
// "https://api.groq.com/openai/v1", "http://localhost:11434/v1"). The
// /chat/completions path is appended automatically.
func New(apiKey, baseURL string, opts ...Option) *Client {
	p := &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{},
		name:    "openai",
		logger:  slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(127)})),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the backend name.
func (p *Client) Name() string { return p.name }

// Complete sends a non-streaming request and returns the full answer.
func (p *Client) Complete(ctx context.Context, req relay.Request) (relay.Response, error) {
	body := BuildBody(req)

	resp, err := p.sendHTTP(ctx, body)
	if err != nil {
		return relay.Response{}, &relay.TransportError{Op: "complete", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return relay.Response{}, &relay.TransportError{Op: "complete", Err: p.httpErr(resp)}
	}

	var chatResp ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return relay.Response{}, &relay.TransportError{Op: "complete", Err: err}
	}

	return ParseResponse(chatResp), nil
}

// CompleteStream sends a streaming request and returns the delta sequence.
func (p *Client) CompleteStream(ctx context.Context, req relay.Request) (relay.Stream, error) {
	body := BuildBody(req)
	body.Stream = true

	resp, err := p.sendHTTP(ctx, body)
	if err != nil {
		return nil, &relay.TransportError{Op: "stream", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, &relay.TransportError{Op: "stream", Err: p.httpErr(resp)}
	}

	return newSSEStream(resp.Body), nil
}

// sendHTTP marshals the body and posts it to the completions endpoint.
func (p *Client) sendHTTP(ctx context.Context, body ChatRequest) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	url := p.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	p.logger.Debug("chat completions request", "backend", p.name, "model", body.Model, "stream", body.Stream)
	return p.client.Do(httpReq)
}

// httpErr reads the response body into a typed HTTP error.
func (p *Client) httpErr(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	return &relay.HTTPError{
		Status:     resp.StatusCode,
		Body:       string(body),
		RetryAfter: retryAfter(resp.Header.Get("Retry-After")),
	}
}

// retryAfter parses a Retry-After header value in delay-seconds form.
func retryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// Compile-time interface check.
var _ relay.Requester = (*Client)(nil)
