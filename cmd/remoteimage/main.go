package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"time"

	"github.com/alecthomas/kong"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/smileynet/remoteimage/internal/config"
	"github.com/smileynet/remoteimage/internal/imagestore"
	"github.com/smileynet/remoteimage/internal/logging"
	"github.com/smileynet/remoteimage/internal/metrics"
	"github.com/smileynet/remoteimage/internal/network"
	"github.com/smileynet/remoteimage/internal/remoteimage"
	"github.com/smileynet/remoteimage/internal/tui"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// errNoImage reports a fetch that produced nothing to show.
var errNoImage = errors.New("no image")

// CLI is the top-level command structure for remoteimage.
type CLI struct {
	Version kong.VersionFlag `help:"Show version." short:"V"`
	View    ViewCmd          `cmd:"" help:"Show images in the terminal."`
	Fetch   FetchCmd         `cmd:"" help:"Fetch one image and print its format and size."`
}

// ViewCmd shows one or more images.
type ViewCmd struct {
	URLs  []string `arg:"" name:"url" help:"Image URLs (http, https or file)."`
	NoTUI bool     `help:"Force plain text output even if stdout is a TTY." default:"false"`
	Width int      `help:"Image width in cells; 0 uses the configured width." default:"0"`
}

// FetchCmd loads a single image.
type FetchCmd struct {
	URL string `arg:"" help:"Image URL (http, https or file)."`
}

// loadConfig loads layered config from user and project paths with env overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadLayered(
		os.ExpandEnv("$HOME/.config/remoteimage/config.yaml"),
		".remoteimage.yaml",
	)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Run executes the view command.
func (v *ViewCmd) Run() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("view: %w", err)
	}

	// Apply CLI flag overrides.
	if v.Width > 0 {
		cfg.View.Width = v.Width
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("view: %w", err)
	}

	// The TUI owns the terminal, so logs only go to a file there.
	tuiMode := !v.NoTUI && isTTY(os.Stdout)
	logger, closeLog, err := setupLogger(cfg.Log, tuiMode, os.Stderr)
	if err != nil {
		return fmt.Errorf("view: %w", err)
	}
	defer closeLog()

	reg := prometheus.NewRegistry()
	store, err := newStore(cfg, logger, reg)
	if err != nil {
		return fmt.Errorf("view: %w", err)
	}

	if cfg.Metrics.Addr != "" {
		stopMetrics, addr, err := serveMetrics(cfg.Metrics.Addr, reg, logger)
		if err != nil {
			return fmt.Errorf("view: %w", err)
		}
		defer stopMetrics()
		logger.Info().Str("addr", addr).Msg("serving metrics")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	display := tui.NewDisplay(tui.DisplayOptions{
		Store:      store,
		Writer:     os.Stdout,
		ForcePlain: v.NoTUI,
		Width:      cfg.View.Width,
		Spinner:    remoteimage.SpinnerByName(cfg.View.Spinner),
		Workers:    cfg.Prefetch.Workers,
		Logger:     logger,
	})

	return v.run(ctx, display)
}

// run parses the URLs and hands them to display. An interrupt is not an error.
func (v *ViewCmd) run(ctx context.Context, display tui.Display) error {
	if err := display.Run(ctx, parseURLs(v.URLs)); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("view: %w", err)
	}
	return nil
}

// parseURLs keeps positions stable: an empty, unparseable or scheme-less entry becomes nil.
func parseURLs(raws []string) []*url.URL {
	urls := make([]*url.URL, len(raws))
	for i, raw := range raws {
		urls[i] = remoteimage.ParseURL(raw)
	}
	return urls
}

// loader abstracts imagestore.Store.Load for testing.
type loader interface {
	Load(ctx context.Context, u *url.URL) (image.Image, error)
}

// Run executes the fetch command.
func (f *FetchCmd) Run() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("fetch: %w", err)
	}

	logger, closeLog, err := setupLogger(cfg.Log, false, os.Stderr)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	defer closeLog()

	// One URL per process, so a captured format is unambiguous.
	var format string
	store, err := newStore(cfg, logger, prometheus.NewRegistry(),
		imagestore.WithDecoder(func(data []byte) (image.Image, error) {
			img, name, err := imagestore.DecodeLimited(data, cfg.Network.MaxPixels)
			format = name
			return img, err
		}),
	)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return f.run(ctx, os.Stdout, store, func() string { return format })
}

// run loads f.URL through store and prints "<url>: <format> <w>x<h>".
func (f *FetchCmd) run(ctx context.Context, w io.Writer, store loader, format func() string) error {
	u := remoteimage.ParseURL(f.URL)
	if u == nil {
		return fmt.Errorf("fetch: invalid url %q", f.URL)
	}

	img, err := store.Load(ctx, u)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	if img == nil {
		return fmt.Errorf("fetch: %s: %w", u, errNoImage)
	}

	b := img.Bounds()
	_, _ = fmt.Fprintf(w, "%s: %s %dx%d\n", u, format(), b.Dx(), b.Dy())
	return nil
}

// newStore builds the image store over the default scheme registry with metrics registered on reg.
// opts are applied after the config-derived ones, so a custom decoder replaces the pixel-limited default.
func newStore(cfg *config.Config, logger zerolog.Logger, reg prometheus.Registerer, opts ...imagestore.Option) (*imagestore.Store, error) {
	m, err := metrics.New(reg)
	if err != nil {
		return nil, fmt.Errorf("registering metrics: %w", err)
	}

	client := network.NewDefaultRegistry(network.HTTPOptions{
		Timeout:  cfg.Network.Timeout,
		MaxBytes: cfg.Network.MaxBytes,
		Logger:   logger,
	})

	opts = append([]imagestore.Option{
		imagestore.WithMaxPixels(cfg.Network.MaxPixels),
		imagestore.WithLogger(logger),
		imagestore.WithMetrics(m),
	}, opts...)
	return imagestore.New(client, opts...), nil
}

// setupLogger writes to cfg.File when set, otherwise to stderr, or nowhere in TUI mode.
func setupLogger(cfg config.Log, tuiMode bool, stderr io.Writer) (zerolog.Logger, func(), error) {
	noop := func() {}

	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Nop(), noop, fmt.Errorf("opening log file: %w", err)
		}
		logger, err := logging.New(f, cfg.Level)
		if err != nil {
			_ = f.Close()
			return zerolog.Nop(), noop, err
		}
		return logger, func() { _ = f.Close() }, nil
	}

	var w io.Writer = stderr
	if tuiMode {
		w = nil
	}
	logger, err := logging.New(w, cfg.Level)
	if err != nil {
		return zerolog.Nop(), noop, err
	}
	return logger, noop, nil
}

// serveMetrics exposes g on addr at /metrics. It returns a stop func and the bound address.
func serveMetrics(addr string, g prometheus.Gatherer, logger zerolog.Logger) (func(), string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, "", fmt.Errorf("metrics listener: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(g))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics server stopped")
		}
	}()

	stop := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
	return stop, ln.Addr().String(), nil
}

// isTTY reports whether f is connected to a terminal.
func isTTY(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Exit codes.
const (
	exitSuccess = 0
	exitNoImage = 1
	exitSetup   = 2
)

// exitCode maps an error to the appropriate exit code.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	if errors.Is(err, errNoImage) {
		return exitNoImage
	}
	return exitSetup
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli, kong.Vars{"version": version + " " + commit + " " + date})
	err := ctx.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(exitCode(err))
	}
}
