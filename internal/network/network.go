// Package network is the fetch collaborator of the image store: it turns a URL
// into raw bytes, or empty bytes when there is nothing to decode.
package network

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync/atomic"
)

// Response is the result of a fetch. Data is empty when the resource had no content.
type Response struct {
	Data []byte
}

// Client fetches the bytes behind a URL.
// Implementations must be safe for concurrent use.
type Client interface {
	Get(ctx context.Context, u *url.URL) (Response, error)
}

// ErrTooLarge indicates a response body exceeded the configured size limit.
var ErrTooLarge = errors.New("network: response body too large")

// StatusError reports a non-2xx HTTP status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("network: GET %s: unexpected status %d", e.URL, e.StatusCode)
}

// Verify MockClient satisfies Client at compile time.
var _ Client = (*MockClient)(nil)

// MockClient is a test double that delegates to GetFunc and counts calls.
type MockClient struct {
	GetFunc func(ctx context.Context, u *url.URL) (Response, error)

	calls atomic.Int64
}

// Get delegates to GetFunc, returning an empty Response if GetFunc is nil.
func (m *MockClient) Get(ctx context.Context, u *url.URL) (Response, error) {
	m.calls.Add(1)
	if m.GetFunc == nil {
		return Response{}, nil
	}
	return m.GetFunc(ctx, u)
}

// Calls returns how many times Get was invoked.
func (m *MockClient) Calls() int {
	return int(m.calls.Load())
}
