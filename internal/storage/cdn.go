// Package storage provides the blob-store client the file and erasure
// pipelines read from and delete through. Calls go to an S3-compatible
// CDN gateway over HTTP, wrapped in a circuit breaker and retried with
// exponential backoff.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
)

// Client errors.
var (
	// ErrObjectNotFound means the blob does not exist in the store.
	ErrObjectNotFound = errors.New("object not found")

	// ErrUnavailable means the circuit breaker is open and the store is
	// not being called.
	ErrUnavailable = errors.New("blob store unavailable")
)

// serverError marks a retryable 5xx from the gateway.
type serverError struct {
	statusCode int
}

func (e *serverError) Error() string {
	return "blob store error: " + http.StatusText(e.statusCode)
}

// Config holds configuration for the CDN client.
type Config struct {
	// BaseURL is the gateway's root URL.
	BaseURL string

	// APIKey authenticates every request.
	APIKey string

	// Timeout is the per-request timeout. Default: 15 seconds.
	Timeout time.Duration

	// MaxRetries is the retry budget per operation. Default: 3.
	MaxRetries uint64

	// InitialInterval is the first retry backoff. Default: 200ms.
	InitialInterval time.Duration

	// MaxInterval caps the backoff. Default: 5 seconds.
	MaxInterval time.Duration

	// BreakerTimeout is how long the breaker stays open before probing.
	// Default: 30 seconds.
	BreakerTimeout time.Duration
}

// DefaultConfig returns sensible defaults for the given gateway.
func DefaultConfig(baseURL, apiKey string) Config {
	return Config{
		BaseURL:         baseURL,
		APIKey:          apiKey,
		Timeout:         15 * time.Second,
		MaxRetries:      3,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		BreakerTimeout:  30 * time.Second,
	}
}

// Client talks to the blob gateway. Safe for concurrent use.
type Client struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*http.Response]
	config     Config
}

// NewClient creates a new CDN client.
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = 200 * time.Millisecond
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = 5 * time.Second
	}
	if cfg.BreakerTimeout == 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        "cdn",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.5
		},
	})

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    breaker,
		config:     cfg,
	}
}

// objectURL builds the gateway URL for a storage path.
func (c *Client) objectURL(storagePath string) string {
	return strings.TrimRight(c.config.BaseURL, "/") + "/objects/" + url.PathEscape(storagePath)
}

// do runs one request through the breaker with retries. 5xx responses
// and network errors are retried; everything else returns on the first
// attempt.
func (c *Client) do(ctx context.Context, method, objectURL string, body []byte, contentType string) (*http.Response, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.config.InitialInterval
	bo.MaxInterval = c.config.MaxInterval
	bo.MaxElapsedTime = 0

	var lastResp *http.Response
	operation := func() error {
		resp, err := c.breaker.Execute(func() (*http.Response, error) { //nolint:bodyclose // caller closes
			var reader io.Reader
			if body != nil {
				reader = bytes.NewReader(body)
			}
			req, err := http.NewRequestWithContext(ctx, method, objectURL, reader)
			if err != nil {
				return nil, backoff.Permanent(err)
			}
			req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
			if contentType != "" {
				req.Header.Set("Content-Type", contentType)
			}

			r, err := c.httpClient.Do(req)
			if err != nil {
				return nil, err
			}
			if r.StatusCode >= 500 {
				_ = r.Body.Close()
				return nil, &serverError{statusCode: r.StatusCode}
			}
			return r, nil
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(ErrUnavailable)
			}
			return err
		}
		lastResp = resp
		return nil
	}

	retrying := backoff.WithContext(backoff.WithMaxRetries(bo, c.config.MaxRetries), ctx)
	if err := backoff.Retry(operation, retrying); err != nil {
		return nil, err
	}
	return lastResp, nil
}

// Fetch returns the blob's bytes.
func (c *Client) Fetch(ctx context.Context, storagePath string) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, c.objectURL(storagePath), nil, "")
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", storagePath, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", storagePath, err)
		}
		return data, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrObjectNotFound
	default:
		return nil, fmt.Errorf("fetch %s: unexpected status %d", storagePath, resp.StatusCode)
	}
}

// Put stores the blob's bytes.
func (c *Client) Put(ctx context.Context, storagePath string, data []byte, contentType string) error {
	resp, err := c.do(ctx, http.MethodPut, c.objectURL(storagePath), data, contentType)
	if err != nil {
		return fmt.Errorf("put %s: %w", storagePath, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("put %s: unexpected status %d", storagePath, resp.StatusCode)
	}
	return nil
}

// Delete removes the blob. Deleting a missing blob succeeds: the goal
// state is "bytes gone" and the erasure step must be retryable.
func (c *Client) Delete(ctx context.Context, storagePath string) error {
	resp, err := c.do(ctx, http.MethodDelete, c.objectURL(storagePath), nil, "")
	if err != nil {
		return fmt.Errorf("delete %s: %w", storagePath, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
		return nil
	default:
		return fmt.Errorf("delete %s: unexpected status %d", storagePath, resp.StatusCode)
	}
}

// BreakerState reports the circuit breaker state for health checks.
func (c *Client) BreakerState() gobreaker.State {
	return c.breaker.State()
}
