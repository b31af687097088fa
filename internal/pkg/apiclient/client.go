// internal/pkg/apiclient/client.go
package apiclient

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

	"github.com/fankick/storefront/internal/config"
	"github.com/fankick/storefront/internal/pkg/logger"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
)

// DefaultTimeout bounds every call when no timeout is configured
const DefaultTimeout = 10 * time.Second

// Envelope is the response shape every endpoint follows
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
}

// TokenSource supplies the bearer token for authenticated calls
type TokenSource interface {
	Token() string
}

// Client talks to the storefront REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	tokens     TokenSource
	breaker    *gobreaker.CircuitBreaker[*Envelope]
	log        *logrus.Entry
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout bounds each call
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger
func WithLogger(entry *logrus.Entry) Option {
	return func(c *Client) { c.log = logger.OrDiscard(entry) }
}

// WithTokenSource attaches bearer tokens to requests
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithBreaker opens the circuit after maxFailures consecutive transport or server failures
// and keeps it open for openTimeout.
func WithBreaker(maxFailures int, openTimeout time.Duration) Option {
	return func(c *Client) {
		if maxFailures <= 0 {
			c.breaker = nil
			return
		}
		c.breaker = gobreaker.NewCircuitBreaker[*Envelope](gobreaker.Settings{
			Name:    "storefront-api",
			Timeout: openTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= uint32(maxFailures)
			},
			IsSuccessful: func(err error) bool {
				if err == nil {
					return true
				}
				var apiErr *APIError
				return errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				c.log.WithFields(logrus.Fields{
					"breaker": name,
					"from":    from.String(),
					"to":      to.String(),
				}).Warn("API circuit breaker changed state")
			},
		})
	}
}

// New creates a client for the API rooted at baseURL
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
		log:        logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromConfig creates a client from the storefront configuration
func NewFromConfig(cfg *config.Config, entry *logrus.Entry, opts ...Option) *Client {
	base := []Option{
		WithLogger(entry),
		WithTimeout(cfg.Storefront.RequestTimeout),
		WithBreaker(cfg.Storefront.BreakerMaxFailures, cfg.Storefront.BreakerOpenTimeout),
	}
	return New(cfg.Storefront.APIBaseURL, append(base, opts...)...)
}

// SetTokenSource attaches a token source after construction. The session store is usually
// built on top of the client, so it can only be wired in afterwards.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.tokens = ts
}

// do performs one call, decodes the envelope and unmarshals data into out when non-nil
func (c *Client) do(ctx context.Context, op, method, path string, body any, out any) error {
	// a caller deadline earlier than the client timeout is the one that fires
	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	call := func() (*Envelope, error) {
		return c.roundTrip(ctx, method, path, body)
	}

	var (
		env *Envelope
		err error
	)
	if c.breaker != nil {
		env, err = c.breaker.Execute(call)
	} else {
		env, err = call()
	}

	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return &TimeoutError{Op: op, Timeout: timeout}
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
		}
		c.log.WithError(err).WithField("op", op).Debug("API call failed")
		return fmt.Errorf("%s: %w", op, err)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%s: decode data: %w", op, err)
		}
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body any) (*Envelope, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var env Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("malformed response: %v", err)}
	}

	// success:false is the only failure signal; the status code just annotates it
	if !env.Success {
		msg := env.Error
		if msg == "" {
			msg = env.Message
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	return &env, nil
}
