package network

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Registry routes requests to a Client by URL scheme.
// Registration is not safe for concurrent use and should happen at startup;
// Get is safe once registration is done.
type Registry struct {
	clients map[string]Client
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]Client)}
}

// NewDefaultRegistry registers the HTTP client for http/https and a file client for file.
func NewDefaultRegistry(opts HTTPOptions) *Registry {
	r := NewRegistry()
	hc := NewHTTPClient(opts)
	r.Register("http", hc)
	r.Register("https", hc)
	r.Register("file", NewFileClient(opts.MaxBytes))
	return r
}

// Register adds a client for scheme. Overwrites if scheme already exists.
// Panics if scheme is empty or c is nil (programmer error).
func (r *Registry) Register(scheme string, c Client) {
	if scheme == "" {
		panic("network: Register called with empty scheme")
	}
	if c == nil {
		panic("network: Register called with nil client")
	}
	r.clients[strings.ToLower(scheme)] = c
}

// Get dispatches to the client registered for u's scheme.
func (r *Registry) Get(ctx context.Context, u *url.URL) (Response, error) {
	c, ok := r.clients[strings.ToLower(u.Scheme)]
	if !ok {
		return Response{}, &UnknownSchemeError{
			Scheme:    u.Scheme,
			Available: r.Schemes(),
		}
	}
	return c.Get(ctx, u)
}

// Schemes returns registered schemes in sorted order.
func (r *Registry) Schemes() []string {
	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// UnknownSchemeError indicates no client is registered for a URL scheme.
type UnknownSchemeError struct {
	Scheme    string
	Available []string
}

func (e *UnknownSchemeError) Error() string {
	return fmt.Sprintf("network: unknown scheme %q (available: %s)", e.Scheme, strings.Join(e.Available, ", "))
}
