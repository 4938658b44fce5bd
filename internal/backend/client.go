// Package backend talks to the document service that lists files and
// serves their extracted chunks.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/dgallion1/docviewer/internal/viewmodel"
)

// Options tune a Client. Zero values fall back to defaults.
type Options struct {
	Timeout    time.Duration
	MaxRetries int
	RPS        float64
	Burst      int
}

// Client communicates with the document service HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	backoff    func(attempt int) time.Duration
	log        *slog.Logger

	Stats *Stats
}

// NewClient returns a Client for the document service at baseURL. Zero
// Options fields fall back to a 30s timeout and an unlimited request rate.
func NewClient(baseURL string, opts Options, log *slog.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	limit := rate.Inf
	if opts.RPS > 0 {
		limit = rate.Limit(opts.RPS)
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		limiter:    rate.NewLimiter(limit, opts.Burst),
		maxRetries: opts.MaxRetries,
		backoff:    Backoff,
		log:        log,
		Stats:      NewStats(time.Hour),
	}
}

// BaseURL returns the service root the client was configured with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListFiles returns the names of all documents the service knows about.
func (c *Client) ListFiles(ctx context.Context) ([]string, error) {
	var result struct {
		Files []string `json:"files"`
	}
	if err := c.getJSON(ctx, OpListFiles, "/show_files", &result); err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	if result.Files == nil {
		return []string{}, nil
	}
	return result.Files, nil
}

// FetchChunks returns the chunk records of one document in backend order.
func (c *Client) FetchChunks(ctx context.Context, fileName string) ([]viewmodel.Record, error) {
	var records []viewmodel.Record
	if err := c.getJSON(ctx, OpFetchChunks, "/files/"+url.PathEscape(fileName), &records); err != nil {
		return nil, fmt.Errorf("fetch chunks for %s: %w", fileName, err)
	}
	if records == nil {
		records = []viewmodel.Record{}
	}
	return records, nil
}

// getJSON performs a GET with retries and decodes the body into out.
func (c *Client) getJSON(ctx context.Context, op, path string, out any) error {
	log := c.log.With("op", op, "path", path)

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			wait := c.backoff(attempt - 1)
			log.Warn("retrying backend request", "attempt", attempt, "wait_ms", wait.Milliseconds(), "error", lastErr)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = c.doGet(ctx, op, path, out)
		if lastErr == nil || !IsRetryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

// doGet makes one attempt and records it in Stats.
func (c *Client) doGet(ctx context.Context, op, path string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	start := time.Now()
	err := c.get(ctx, path, out)
	c.Stats.Record(op, time.Since(start), err)
	return err
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &RetryableError{Err: fmt.Errorf("get %s: %w", path, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		statusErr := &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return &RetryableError{Err: statusErr}
		}
		return statusErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// StatusError is a non-200 response from the service.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("status %d", e.Code)
	}
	return fmt.Sprintf("status %d: %s", e.Code, e.Body)
}

// RetryableError wraps failures worth another attempt.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a 404 from the service.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

