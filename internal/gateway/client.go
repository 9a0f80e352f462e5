// Package gateway is the REST client for the discovery backend.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kingrea/devmatch/internal/candidate"
)

// HeaderRequestID carries a per-call correlation id.
const HeaderRequestID = "X-Request-Id"

const maxBodyBytes = 4 << 20

// ClientConfig holds configuration for the HTTP client.
type ClientConfig struct {
	BaseURL string
	// ReadTimeout is used for GET requests
	ReadTimeout time.Duration
	// WriteTimeout is used for POST requests
	WriteTimeout time.Duration
}

// DefaultClientConfig returns sensible defaults for a local backend.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL:      "http://localhost:3000",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 8 * time.Second,
	}
}

// Option customizes client construction.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client. The client's cookie
// jar is installed on it when it has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// Observer receives the outcome of every backend call. status is 0 when the
// call failed before a response arrived.
type Observer interface {
	ObserveRequest(route string, status int, d time.Duration)
}

// WithObserver installs a per-call observer, usually a metrics recorder.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// Client talks to the backend. Cookies issued at login are kept in a jar so
// every later call carries the session.
type Client struct {
	base     *url.URL
	config   ClientConfig
	http     *http.Client
	log      zerolog.Logger
	observer Observer
}

// New builds a client for cfg.BaseURL.
func New(cfg ClientConfig, opts ...Option) (*Client, error) {
	def := DefaultClientConfig()
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("gateway: invalid base url %q", cfg.BaseURL)
	}
	c := &Client{
		base:   base,
		config: cfg,
		http:   &http.Client{},
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("gateway: cookie jar: %w", err)
		}
		c.http.Jar = jar
	}
	return c, nil
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Login posts credentials; the session cookie lands in the jar.
func (c *Client) Login(ctx context.Context, email, password string) error {
	payload, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return err
	}
	_, err = c.exchange(ctx, "login", http.MethodPost, []string{"login"}, payload)
	return err
}

// FetchFeed returns the next page of candidates. It is safe to retry.
func (c *Client) FetchFeed(ctx context.Context) ([]candidate.Candidate, error) {
	body, err := c.exchange(ctx, "feed", http.MethodGet, []string{"feed"}, nil)
	if err != nil {
		return nil, err
	}
	return candidate.DecodeList(body)
}

// SubmitDecision records interest in or ignores a candidate. It is invoked
// once per committed decision and never retried here.
func (c *Client) SubmitDecision(ctx context.Context, action, candidateID string) error {
	if strings.TrimSpace(action) == "" || strings.TrimSpace(candidateID) == "" {
		return fmt.Errorf("gateway: action and candidate id are required")
	}
	_, err := c.exchange(ctx, "submit", http.MethodPost, []string{"request", "send", action, candidateID}, []byte("{}"))
	return err
}

// FetchRequests lists pending inbound connection requests.
func (c *Client) FetchRequests(ctx context.Context) ([]candidate.Request, error) {
	body, err := c.exchange(ctx, "requests", http.MethodGet, []string{"user", "requests", "received"}, nil)
	if err != nil {
		return nil, err
	}
	return candidate.DecodeRequests(body)
}

// ReviewRequest accepts or rejects an inbound request.
func (c *Client) ReviewRequest(ctx context.Context, status, requestID string) error {
	if strings.TrimSpace(status) == "" || strings.TrimSpace(requestID) == "" {
		return fmt.Errorf("gateway: status and request id are required")
	}
	_, err := c.exchange(ctx, "review", http.MethodPost, []string{"request", "review", status, requestID}, []byte("{}"))
	return err
}

// FetchConnections lists accepted connections.
func (c *Client) FetchConnections(ctx context.Context) ([]candidate.Candidate, error) {
	body, err := c.exchange(ctx, "connections", http.MethodGet, []string{"user", "connections"}, nil)
	if err != nil {
		return nil, err
	}
	return candidate.DecodeList(body)
}

func (c *Client) endpoint(segments []string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return c.base.String() + "/" + strings.Join(escaped, "/")
}

// exchange performs one request and returns the fully read body of a 2xx
// response. The per-method timeout covers reading the body.
func (c *Client) exchange(ctx context.Context, route, method string, segments []string, payload []byte) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	timeout := c.config.ReadTimeout
	if method != http.MethodGet {
		timeout = c.config.WriteTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	target := c.endpoint(segments)
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("gateway: build request: %w", err)
	}
	reqID := uuid.NewString()
	req.Header.Set(HeaderRequestID, reqID)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log := c.log.With().
		Str("route", route).
		Str("method", method).
		Str("url", target).
		Str("request_id", reqID).
		Logger()
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn().Err(err).Dur("duration", time.Since(start)).Msg("backend_request_failed")
		c.observe(route, 0, time.Since(start))
		return nil, mapTransportError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		log.Warn().Err(err).Int("status", resp.StatusCode).Msg("backend_body_read_failed")
		c.observe(route, 0, time.Since(start))
		return nil, mapTransportError(err)
	}
	log.Debug().Int("status", resp.StatusCode).Dur("duration", time.Since(start)).Msg("backend_request_completed")
	c.observe(route, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeStatusError(resp.StatusCode, data)
	}
	return data, nil
}

func (c *Client) observe(route string, status int, d time.Duration) {
	if c.observer != nil {
		c.observer.ObserveRequest(route, status, d)
	}
}

func mapTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var ue *url.Error
	if errors.As(err, &ue) && ue.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
