// Package prefetch warms an image store with many URLs on a bounded worker pool.
package prefetch

import (
	"context"
	"image"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"github.com/smileynet/remoteimage/internal/imagestore"
)

// Outcome classifies a single prefetch.
type Outcome string

const (
	OutcomeLoaded  Outcome = "loaded"  // Image decoded and cached.
	OutcomeFailed  Outcome = "failed"  // Bytes arrived but did not decode.
	OutcomeEmpty   Outcome = "empty"   // Nothing to decode; the URL stays retryable.
	OutcomeSkipped Outcome = "skipped" // Already loading or loaded elsewhere.
)

// Loader is the subset of *imagestore.Store prefetch needs.
type Loader interface {
	Load(ctx context.Context, u *url.URL) (image.Image, error)
	Image(u *url.URL) image.Image
	State(u *url.URL) imagestore.State
}

// Verify *imagestore.Store satisfies Loader at compile time.
var _ Loader = (*imagestore.Store)(nil)

// Result reports what happened to one URL.
type Result struct {
	URL      *url.URL
	Image    image.Image // Set for loaded, and for skipped URLs already cached.
	Err      error       // Set for skipped URLs and a nil URL.
	Outcome  Outcome
	Duration time.Duration
}

// Options configures Run.
type Options struct {
	Workers  int            // Maximum concurrent loads; values below 1 mean 1.
	OnResult func(Result)   // Called once per URL as it completes, possibly concurrently.
	Logger   zerolog.Logger // Zero value discards.
}

// Run loads every URL through store and returns results in input order.
// Individual failures never stop the batch. Run returns early with partial
// results only if ctx is cancelled before a URL starts; unstarted URLs are
// reported as skipped with ctx.Err().
func Run(ctx context.Context, store Loader, urls []*url.URL, opts Options) []Result {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	results := make([]Result, len(urls))
	var mu sync.Mutex
	report := func(i int, r Result) {
		results[i] = r
		if opts.OnResult != nil {
			mu.Lock()
			opts.OnResult(r)
			mu.Unlock()
		}
	}

	p := pool.New().WithMaxGoroutines(workers)
	for i, u := range urls {
		p.Go(func() {
			report(i, load(ctx, store, u, opts.Logger))
		})
	}
	p.Wait()

	return results
}

func load(ctx context.Context, store Loader, u *url.URL, logger zerolog.Logger) Result {
	start := time.Now()
	res := Result{URL: u}

	if err := ctx.Err(); err != nil {
		res.Outcome = OutcomeSkipped
		res.Err = err
		return res
	}

	img, err := store.Load(ctx, u)
	res.Duration = time.Since(start)

	switch {
	case err != nil:
		res.Outcome = OutcomeSkipped
		res.Err = err
		res.Image = store.Image(u)
	case img != nil:
		res.Outcome = OutcomeLoaded
		res.Image = img
	case store.State(u) == imagestore.Failed:
		res.Outcome = OutcomeFailed
	default:
		res.Outcome = OutcomeEmpty
	}

	logger.Debug().
		Str("url", urlString(u)).
		Str("outcome", string(res.Outcome)).
		Dur("took", res.Duration).
		Msg("prefetch")
	return res
}

func urlString(u *url.URL) string {
	if u == nil {
		return ""
	}
	return u.String()
}
