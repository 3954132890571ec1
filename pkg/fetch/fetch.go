package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ErrUnauthorized is returned for 401 responses; such requests are never retried.
var ErrUnauthorized = errors.New("upstream rejected credentials")

// StatusError reports a non-2xx upstream response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
}

// Document is a fetched resource.
type Document struct {
	URL         string
	ContentType string
	Body        []byte
}

// Options tune the client.
type Options struct {
	Timeout    time.Duration
	MaxBytes   int64
	RetryDelay time.Duration
	UserAgent  string
	Logger     *zap.Logger
}

// Client downloads documents with a timeout, a size cap and a single retry.
type Client struct {
	http       *http.Client
	maxBytes   int64
	retryDelay time.Duration
	userAgent  string
	logger     *zap.Logger
}

// New constructs a Client.
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = 10 << 20
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 500 * time.Millisecond
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "admission-agent/1.0"
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Client{
		http:       &http.Client{Timeout: opts.Timeout},
		maxBytes:   opts.MaxBytes,
		retryDelay: opts.RetryDelay,
		userAgent:  opts.UserAgent,
		logger:     opts.Logger,
	}
}

// Get fetches url. A failed attempt is retried once unless the upstream
// answered 401 or ctx is done.
func (c *Client) Get(ctx context.Context, url string) (*Document, error) {
	doc, err := c.get(ctx, url)
	if err == nil || errors.Is(err, ErrUnauthorized) || ctx.Err() != nil {
		return doc, err
	}
	c.logger.Warn("fetch failed, retrying", zap.String("url", url), zap.Error(err))

	timer := time.NewTimer(c.retryDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}
	return c.get(ctx, url)
}

func (c *Client) get(ctx context.Context, url string) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	if int64(len(body)) > c.maxBytes {
		return nil, fmt.Errorf("document %s exceeds %d bytes", url, c.maxBytes)
	}
	return &Document{URL: url, ContentType: resp.Header.Get("Content-Type"), Body: body}, nil
}
