// Package tui shows remote images in the terminal, either as an interactive
// gallery or as plain progress lines when stdout is not a terminal.
package tui

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"github.com/smileynet/remoteimage/internal/prefetch"
	"github.com/smileynet/remoteimage/internal/remoteimage"
	"github.com/smileynet/remoteimage/internal/viewmodel"
)

// Store is what both displays need from the image store.
type Store interface {
	viewmodel.Store
	prefetch.Loader
}

// Display shows the images behind urls.
type Display interface {
	Run(ctx context.Context, urls []*url.URL) error
}

// DisplayOptions configures display creation.
type DisplayOptions struct {
	Store      Store
	Writer     io.Writer       // Output destination (default: os.Stdout).
	Input      io.Reader       // TUI key input (default: stdin).
	ForcePlain bool            // Force plain text even if TTY.
	Width      int             // Image width in cells; 0 follows the terminal.
	Spinner    spinner.Spinner // Placeholder animation; zero value means spinner.Dot.
	Workers    int             // Concurrent loads in plain mode.
	Logger     zerolog.Logger
}

// NewDisplay returns a TUI display when the writer is a TTY, or a plain text
// display otherwise. ForcePlain overrides TTY detection.
func NewDisplay(opts DisplayOptions) Display {
	if opts.Writer == nil {
		opts.Writer = os.Stdout
	}

	if opts.ForcePlain || !isTTY(opts.Writer) {
		return &PlainDisplay{opts: opts}
	}

	return &TUIDisplay{opts: opts}
}

// isTTY reports whether w is connected to a terminal.
func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// PlainDisplay loads every URL and prints one timestamped line per result.
type PlainDisplay struct {
	opts DisplayOptions
}

// Run loads all URLs and reports them as they finish.
// Returns the context error if cancelled.
func (d *PlainDisplay) Run(ctx context.Context, urls []*url.URL) error {
	prefetch.Run(ctx, d.opts.Store, urls, prefetch.Options{
		Workers:  d.opts.Workers,
		Logger:   d.opts.Logger,
		OnResult: d.renderResult,
	})
	return ctx.Err()
}

func (d *PlainDisplay) renderResult(r prefetch.Result) {
	ts := time.Now().Format("15:04:05")
	label := "(invalid url)"
	if r.URL != nil {
		label = r.URL.String()
	}

	detail := ""
	if r.Image != nil {
		b := r.Image.Bounds()
		detail = fmt.Sprintf(" %dx%d", b.Dx(), b.Dy())
	}
	if r.Outcome == prefetch.OutcomeSkipped && r.Err != nil {
		detail += fmt.Sprintf(" (%v)", r.Err)
	}
	if r.Duration > 0 {
		detail += fmt.Sprintf(" %.1fs", r.Duration.Seconds())
	}

	_, _ = fmt.Fprintf(d.opts.Writer, "[%s] %-7s %s%s\n", ts, r.Outcome, label, detail)
}

// TUIDisplay shows the images in an interactive gallery.
// Falls back to PlainDisplay if the TUI program fails to start.
type TUIDisplay struct {
	opts DisplayOptions
}

// Run starts the Bubble Tea program and blocks until the user quits or ctx ends.
func (d *TUIDisplay) Run(ctx context.Context, urls []*url.URL) error {
	model := NewModel(d.views(urls))
	defer model.Close()

	progOpts := []tea.ProgramOption{tea.WithOutput(d.opts.Writer), tea.WithContext(ctx)}
	if d.opts.Input != nil {
		progOpts = append(progOpts, tea.WithInput(d.opts.Input))
	}
	p := tea.NewProgram(model, progOpts...)

	if _, err := p.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		d.opts.Logger.Warn().Err(err).Msg("tui failed, falling back to plain output")
		plain := &PlainDisplay{opts: d.opts}
		return plain.Run(ctx, urls)
	}

	return nil
}

func (d *TUIDisplay) views(urls []*url.URL) []remoteimage.View {
	opts := []remoteimage.Option{remoteimage.WithLogger(d.opts.Logger)}
	if len(d.opts.Spinner.Frames) > 0 {
		opts = append(opts, remoteimage.WithSpinner(d.opts.Spinner))
	}
	if d.opts.Width > 0 {
		opts = append(opts, remoteimage.WithWidth(d.opts.Width))
	}

	views := make([]remoteimage.View, 0, len(urls))
	for _, u := range urls {
		views = append(views, remoteimage.New(d.opts.Store, u, opts...))
	}
	return views
}
