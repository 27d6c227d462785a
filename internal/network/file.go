package network

import (
	"context"
	"fmt"
	"net/url"
	"os"
)

// FileClient serves file:// URLs from the local filesystem.
type FileClient struct {
	maxBytes int64
}

// NewFileClient creates a FileClient that refuses files larger than maxBytes
// (0 = DefaultMaxBytes).
func NewFileClient(maxBytes int64) *FileClient {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &FileClient{maxBytes: maxBytes}
}

// Get reads the file named by u.Path.
func (c *FileClient) Get(_ context.Context, u *url.URL) (Response, error) {
	if u.Path == "" {
		return Response{}, fmt.Errorf("network: file URL %q has no path", u)
	}

	info, err := os.Stat(u.Path)
	if err != nil {
		return Response{}, fmt.Errorf("network: %w", err)
	}
	if info.Size() > c.maxBytes {
		return Response{}, fmt.Errorf("%w: %s exceeds %d bytes", ErrTooLarge, u.Path, c.maxBytes)
	}

	data, err := os.ReadFile(u.Path)
	if err != nil {
		return Response{}, fmt.Errorf("network: %w", err)
	}
	return Response{Data: data}, nil
}
