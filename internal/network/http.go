package network

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

// DefaultMaxBytes bounds response bodies when HTTPOptions.MaxBytes is unset.
const DefaultMaxBytes = 32 << 20

// HTTPOptions configures an HTTPClient.
type HTTPOptions struct {
	Timeout  time.Duration  // Whole-request timeout (0 = none).
	MaxBytes int64          // Largest body accepted (0 = DefaultMaxBytes).
	Logger   zerolog.Logger // Request logging (zero value discards).
}

// HTTPClient fetches http and https URLs with a plain GET.
type HTTPClient struct {
	client   *http.Client
	maxBytes int64
	logger   zerolog.Logger
}

// NewHTTPClient creates an HTTPClient from opts.
func NewHTTPClient(opts HTTPOptions) *HTTPClient {
	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &HTTPClient{
		client:   &http.Client{Timeout: opts.Timeout},
		maxBytes: maxBytes,
		logger:   opts.Logger,
	}
}

// Get issues a GET for u and returns the body.
// Non-2xx statuses return *StatusError; bodies over the limit return ErrTooLarge.
func (c *HTTPClient) Get(ctx context.Context, u *url.URL) (Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Response{}, fmt.Errorf("network: building request for %s: %w", u, err)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug().Str("url", u.String()).Err(err).Msg("fetch failed")
		return Response{}, fmt.Errorf("network: GET %s: %w", u, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug().Str("url", u.String()).Int("status", resp.StatusCode).Msg("fetch rejected")
		return Response{}, &StatusError{URL: u.String(), StatusCode: resp.StatusCode}
	}

	// Read one byte past the limit to detect oversized bodies.
	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return Response{}, fmt.Errorf("network: reading %s: %w", u, err)
	}
	if int64(len(data)) > c.maxBytes {
		return Response{}, fmt.Errorf("%w: %s exceeds %d bytes", ErrTooLarge, u, c.maxBytes)
	}

	c.logger.Debug().
		Str("url", u.String()).
		Int("status", resp.StatusCode).
		Int("bytes", len(data)).
		Dur("elapsed", time.Since(start)).
		Msg("fetched")

	return Response{Data: data}, nil
}
