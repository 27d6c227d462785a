package imagestore

import (
	"errors"
	"fmt"
)

// ErrNilURL is returned by Load when called without a URL.
var ErrNilURL = errors.New("imagestore: nil url")

// AlreadyLoadingError reports that a fetch for URL is already in flight.
// It is a control-flow signal, not a failure; no second fetch was started.
type AlreadyLoadingError struct {
	URL string
}

func (e *AlreadyLoadingError) Error() string {
	return fmt.Sprintf("imagestore: waiting for existing load request for url '%s'", e.URL)
}

// AlreadyLoadedError reports that URL already has a cache entry.
// Callers are expected to check Image first.
type AlreadyLoadedError struct {
	URL string
}

func (e *AlreadyLoadedError) Error() string {
	return fmt.Sprintf("imagestore: already loaded image for url '%s'", e.URL)
}

// IsAlreadyLoading reports whether err is an AlreadyLoadingError.
func IsAlreadyLoading(err error) bool {
	var e *AlreadyLoadingError
	return errors.As(err, &e)
}

// IsAlreadyLoaded reports whether err is an AlreadyLoadedError.
func IsAlreadyLoaded(err error) bool {
	var e *AlreadyLoadedError
	return errors.As(err, &e)
}
