// Package logging builds zerolog loggers for the CLI and its components.
package logging

import (
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
)

// New returns a console logger writing to w at the given level.
// An empty level means "info". A nil writer yields a disabled logger.
func New(w io.Writer, level string) (zerolog.Logger, error) {
	if w == nil {
		return zerolog.Nop(), nil
	}

	lvl, err := ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), err
	}

	cw := zerolog.NewConsoleWriter(func(cw *zerolog.ConsoleWriter) {
		cw.Out = w
		cw.TimeFormat = time.RFC3339
		cw.NoColor = true
	})

	return zerolog.New(cw).Level(lvl).With().Timestamp().Logger(), nil
}

// ParseLevel converts a level name ("debug", "info", "warn", "error", "disabled")
// into a zerolog level.
func ParseLevel(level string) (zerolog.Level, error) {
	if level == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("logging: invalid level %q: %w", level, err)
	}
	return lvl, nil
}
