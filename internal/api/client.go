// Package api is the client for the language helper backend: authentication,
// exercise history, public exercises and generation.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/felixgeelhaar/langhelper/internal/auth"
	"github.com/felixgeelhaar/langhelper/internal/domain"
)

// Default timeouts
const (
	DefaultRequestTimeout    = 30 * time.Second
	DefaultGenerationTimeout = 40 * time.Second
)

// TokenStore holds the bearer token shared by every request
type TokenStore interface {
	Token() string
	SetToken(token string) error
	Clear() error
}

// Config holds client settings
type Config struct {
	BaseURL           string
	PublicBaseURL     string
	Endpoints         Endpoints
	Tokens            TokenStore
	HTTPClient        *http.Client
	RequestTimeout    time.Duration
	GenerationTimeout time.Duration
	Logger            *slog.Logger
	Resilience        ResilienceConfig
}

// Client talks to the backend. It is safe for concurrent use.
type Client struct {
	baseURL           string
	publicBaseURL     string
	endpoints         Endpoints
	tokens            TokenStore
	http              *http.Client
	deadlineHTTP      *http.Client
	generationTimeout time.Duration
	logger            *slog.Logger
	resilience        *resilience
}

// NewClient creates a client from cfg
func NewClient(cfg Config) *Client {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = DefaultGenerationTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = newHTTPClient(cfg.RequestTimeout)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Tokens == nil {
		cfg.Tokens = auth.NewMemoryStore()
	}
	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = cfg.BaseURL
	}

	// Requests whose context carries a deadline are bounded by it alone, so
	// a generation deadline longer than the request timeout is honored.
	deadlineHTTP := *cfg.HTTPClient
	deadlineHTTP.Timeout = 0

	return &Client{
		baseURL:           cfg.BaseURL,
		publicBaseURL:     cfg.PublicBaseURL,
		endpoints:         cfg.Endpoints.withDefaults(),
		tokens:            cfg.Tokens,
		http:              cfg.HTTPClient,
		deadlineHTTP:      &deadlineHTTP,
		generationTimeout: cfg.GenerationTimeout,
		logger:            cfg.Logger,
		resilience:        newResilience(cfg.Resilience, cfg.Logger),
	}
}

// URL returns the absolute URL for an endpoint path
func (c *Client) URL(path string) string {
	return joinURL(c.baseURL, path)
}

// Endpoints returns the resolved endpoint paths
func (c *Client) Endpoints() Endpoints {
	return c.endpoints
}

// PublicBaseURL is the frontend origin used for share links
func (c *Client) PublicBaseURL() string {
	return c.publicBaseURL
}

// Tokens returns the token store
func (c *Client) Tokens() TokenStore {
	return c.tokens
}

// IsAuthenticated reports whether a token is stored
func (c *Client) IsAuthenticated() bool {
	return c.tokens.Token() != ""
}

// Do sends req with the stored bearer token. A 401 or 403 response clears
// the token and returns domain.ErrAuthExpired with the body closed.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.send(req, true)
}

func (c *Client) send(req *http.Request, authenticated bool) (*http.Response, error) {
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	if req.Body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if authenticated {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	hc := c.http
	if _, ok := req.Context().Deadline(); ok {
		hc = c.deadlineHTTP
	}
	resp, err := hc.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "method", req.Method, "url", req.URL.String(), "error", err)
		return nil, fmt.Errorf("%w: %w", domain.ErrTransport, err)
	}
	c.logger.Debug("request",
		"method", req.Method,
		"url", req.URL.String(),
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	if authenticated && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		if err := c.tokens.Clear(); err != nil {
			c.logger.Warn("failed to clear token", "error", err)
		}
		return nil, domain.ErrAuthExpired
	}
	return resp, nil
}

// call performs a JSON request and decodes a 2xx body into out (when non-nil)
func (c *Client) call(ctx context.Context, method, url string, in, out any, authenticated bool) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.send(req, authenticated)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out any) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read body: %w", domain.ErrTransport, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return fmt.Errorf("%w: empty body", domain.ErrParse)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrParse, err)
	}
	return nil
}

// mapTimeout turns a deadline overrun into domain.ErrTimeout
func mapTimeout(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", domain.ErrTimeout, err)
	}
	return err
}
