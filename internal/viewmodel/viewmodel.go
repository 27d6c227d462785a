// Package viewmodel bridges the image store to a UI that re-renders on change.
package viewmodel

import (
	"context"
	"image"
	"net/url"
	"sync"

	"github.com/rs/zerolog"

	"github.com/smileynet/remoteimage/internal/imagestore"
)

// Store is the subset of *imagestore.Store a ViewModel needs.
type Store interface {
	Image(u *url.URL) image.Image
	Load(ctx context.Context, u *url.URL) (image.Image, error)
	Subscribe(fn func()) (cancel func())
}

// Verify *imagestore.Store satisfies Store at compile time.
var _ Store = (*imagestore.Store)(nil)

// ViewModel owns one observable image cell.
//
// Every store change and every publish is signalled on Changes without a
// payload; observers re-read Image. Signals coalesce: at most one is pending.
type ViewModel struct {
	store   Store
	logger  zerolog.Logger
	changes chan struct{}
	done    chan struct{}

	mu    sync.RWMutex
	image image.Image

	unsubscribe func()
	closeOnce   sync.Once
}

// Option configures a ViewModel.
type Option func(*ViewModel)

// WithLogger sets the logger used for ignored store signals.
func WithLogger(l zerolog.Logger) Option {
	return func(vm *ViewModel) { vm.logger = l }
}

// New creates a ViewModel and subscribes it to store changes.
// Call Close to release the subscription.
func New(store Store, opts ...Option) *ViewModel {
	vm := &ViewModel{
		store:   store,
		logger:  zerolog.Nop(),
		changes: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(vm)
	}
	vm.unsubscribe = store.Subscribe(vm.signal)
	return vm
}

// Changes delivers a value whenever the store or the image cell changed.
func (vm *ViewModel) Changes() <-chan struct{} {
	return vm.changes
}

// Done is closed by Close. Observers waiting on Changes should also select on it.
func (vm *ViewModel) Done() <-chan struct{} {
	return vm.done
}

// Image returns the published image, or nil.
func (vm *ViewModel) Image() image.Image {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.image
}

// Load publishes the image at u, fetching it through the store if needed.
// It returns immediately; nil u is a no-op. Already-loading and
// already-loaded signals leave the cell untouched, as does a missing image.
// There is no cancellation: the fetch completes even after Close.
func (vm *ViewModel) Load(u *url.URL) {
	if u == nil {
		return
	}

	go func() {
		if img := vm.store.Image(u); img != nil {
			vm.publish(img)
			return
		}

		img, err := vm.store.Load(context.Background(), u)
		if err != nil {
			vm.logger.Debug().Str("url", u.String()).Err(err).Msg("load skipped")
			return
		}
		if img == nil {
			return
		}
		vm.publish(img)
	}()
}

// Close deregisters the store listener and closes Done. It is safe to call more than once.
func (vm *ViewModel) Close() {
	vm.closeOnce.Do(func() {
		if vm.unsubscribe != nil {
			vm.unsubscribe()
		}
		close(vm.done)
	})
}

func (vm *ViewModel) publish(img image.Image) {
	vm.mu.Lock()
	vm.image = img
	vm.mu.Unlock()
	vm.signal()
}

func (vm *ViewModel) signal() {
	select {
	case vm.changes <- struct{}{}:
	default:
	}
}
