// Package imagestore caches decoded images by URL and guarantees at most one
// in-flight fetch per URL.
//
// The cache map and in-flight set are owned by the Store and guarded by a single
// mutex, so the check-then-mark sequence in Load is atomic with respect to other
// callers. Readers never observe a half-written entry.
package imagestore

import (
	"context"
	"fmt"
	"image"
	"net/url"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog"

	"github.com/smileynet/remoteimage/internal/metrics"
	"github.com/smileynet/remoteimage/internal/network"
)

// State is the per-URL lifecycle: Unrequested → Loading → Loaded | Failed.
type State int

const (
	Unrequested State = iota // No entry and no fetch in flight.
	Loading                  // Fetch in flight.
	Loaded                   // Entry with a decoded image.
	Failed                   // Entry without an image (decode failed).
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case Unrequested:
		return "unrequested"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Store is the process-lifetime image cache. It has no eviction.
type Store struct {
	client  network.Client
	decode  Decoder
	logger  zerolog.Logger
	metrics *metrics.Metrics

	mu      sync.RWMutex
	images  map[string]image.Image // nil value = decode failed
	loading map[string]struct{}

	listenersMu sync.Mutex
	listeners   map[int]func()
	nextID      int
}

// Option configures a Store.
type Option func(*Store)

// WithDecoder replaces DecodeImage.
func WithDecoder(d Decoder) Option {
	return func(s *Store) { s.decode = d }
}

// WithMaxPixels makes the default decoder reject images larger than n pixels.
// It replaces any decoder set before it.
func WithMaxPixels(n int64) Option {
	return func(s *Store) { s.decode = NewDecoder(n) }
}

// WithLogger sets the store logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithMetrics records load outcomes and sizes into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// New creates an empty Store fetching through client.
func New(client network.Client, opts ...Option) *Store {
	s := &Store{
		client:    client,
		decode:    DecodeImage,
		logger:    zerolog.Nop(),
		images:    make(map[string]image.Image),
		loading:   make(map[string]struct{}),
		listeners: make(map[int]func()),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Image returns the cached image for u, or nil if u is nil, unknown,
// still loading, or failed to decode.
func (s *Store) Image(u *url.URL) image.Image {
	if u == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.images[u.String()]
}

// State reports where u is in its lifecycle.
func (s *Store) State(u *url.URL) State {
	if u == nil {
		return Unrequested
	}
	key := u.String()

	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.loading[key]; ok {
		return Loading
	}
	img, ok := s.images[key]
	switch {
	case !ok:
		return Unrequested
	case img == nil:
		return Failed
	default:
		return Loaded
	}
}

// Len returns the number of cache entries, failed decodes included.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.images)
}

// Load fetches, decodes and caches the image at u.
//
// It returns *AlreadyLoadingError if a fetch for u is in flight and
// *AlreadyLoadedError if u already has an entry. Network failures and empty
// responses return (nil, nil) and leave u retryable. A decode failure caches a
// nil entry and returns (nil, nil).
func (s *Store) Load(ctx context.Context, u *url.URL) (image.Image, error) {
	if u == nil {
		return nil, ErrNilURL
	}
	key := u.String()

	if err := s.begin(key); err != nil {
		return nil, err
	}

	resp, err := s.client.Get(ctx, u)
	if err != nil || len(resp.Data) == 0 {
		s.abort(key)
		if err != nil {
			s.logger.Warn().Str("url", key).Err(err).Msg("fetch failed")
			s.metrics.Outcome(metrics.OutcomeFetchFailed)
		} else {
			s.logger.Debug().Str("url", key).Msg("empty response")
			s.metrics.Outcome(metrics.OutcomeEmpty)
		}
		return nil, nil
	}
	s.metrics.Fetched(len(resp.Data))

	start := time.Now()
	img, err := s.decode(resp.Data)
	if err != nil {
		s.logger.Warn().Str("url", key).Int("bytes", len(resp.Data)).Err(err).Msg("decode failed")
		img = nil
		s.metrics.Outcome(metrics.OutcomeDecodeFailed)
	} else {
		b := img.Bounds()
		s.logger.Debug().
			Str("url", key).
			Str("digest", formatDigest(resp.Data)).
			Int("width", b.Dx()).
			Int("height", b.Dy()).
			Dur("decode", time.Since(start)).
			Msg("image loaded")
		s.metrics.Outcome(metrics.OutcomeLoaded)
	}

	s.commit(key, img)
	s.notify()

	return img, nil
}

// begin atomically checks the in-flight set and cache and marks key in flight.
func (s *Store) begin(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.loading[key]; ok {
		s.metrics.Outcome(metrics.OutcomeAlreadyLoading)
		return &AlreadyLoadingError{URL: key}
	}
	if _, ok := s.images[key]; ok {
		s.metrics.Outcome(metrics.OutcomeAlreadyLoaded)
		return &AlreadyLoadedError{URL: key}
	}
	s.loading[key] = struct{}{}
	s.metrics.SetInFlight(len(s.loading))
	return nil
}

// abort clears the in-flight mark without writing an entry.
func (s *Store) abort(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.loading, key)
	s.metrics.SetInFlight(len(s.loading))
}

// commit clears the in-flight mark and writes the entry in one step.
func (s *Store) commit(key string, img image.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.loading, key)
	s.images[key] = img
	s.metrics.SetInFlight(len(s.loading))
	s.metrics.SetEntries(len(s.images))
}

// Subscribe registers fn to be called after every cache write. fn runs on the
// loading goroutine and must not block. The returned cancel func is idempotent.
func (s *Store) Subscribe(fn func()) (cancel func()) {
	s.listenersMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenersMu.Lock()
			delete(s.listeners, id)
			s.listenersMu.Unlock()
		})
	}
}

func (s *Store) notify() {
	s.listenersMu.Lock()
	fns := make([]func(), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.listenersMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func formatDigest(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}
