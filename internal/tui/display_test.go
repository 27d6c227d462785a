package tui

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
)

// --- isTTY ---

func TestIsTTY_NonFileWriter(t *testing.T) {
	var buf bytes.Buffer
	if isTTY(&buf) {
		t.Error("non-*os.File writer should not be a TTY")
	}
}

func TestIsTTY_RegularFile(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "test")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = f.Close() }()

	if isTTY(f) {
		t.Error("regular file should not be a TTY")
	}
}

// --- NewDisplay ---

func TestNewDisplay_NonTTYReturnsPlain(t *testing.T) {
	var buf bytes.Buffer
	d := NewDisplay(DisplayOptions{Writer: &buf})

	if _, ok := d.(*PlainDisplay); !ok {
		t.Errorf("NewDisplay(non-TTY) = %T, want *PlainDisplay", d)
	}
}

func TestNewDisplay_ForcePlain(t *testing.T) {
	d := NewDisplay(DisplayOptions{Writer: os.Stdout, ForcePlain: true})

	if _, ok := d.(*PlainDisplay); !ok {
		t.Errorf("NewDisplay(ForcePlain) = %T, want *PlainDisplay", d)
	}
}

func TestNewDisplay_DefaultsWriter(t *testing.T) {
	d := NewDisplay(DisplayOptions{ForcePlain: true})

	pd, ok := d.(*PlainDisplay)
	if !ok {
		t.Fatalf("NewDisplay() = %T, want *PlainDisplay", d)
	}
	if pd.opts.Writer != os.Stdout {
		t.Error("writer should default to os.Stdout")
	}
}

// --- PlainDisplay ---

func TestPlainDisplay_PrintsOneLinePerURL(t *testing.T) {
	// Given: a store that serves every URL and a duplicate URL in the list
	store, _, release := gatedStore()
	close(release)
	var buf bytes.Buffer
	d := NewDisplay(DisplayOptions{Store: store, Writer: &buf, Workers: 1})
	urls := []*url.URL{
		mustParse(t, "https://example/a.png"),
		mustParse(t, "https://example/a.png"),
		nil,
	}

	// When: running the display
	if err := d.Run(context.Background(), urls); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// Then: each URL got a timestamped line with its outcome
	out := buf.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), out)
	}
	for _, line := range lines {
		if !strings.HasPrefix(line, "[") {
			t.Errorf("line %q should start with a timestamp", line)
		}
	}
	if !strings.Contains(out, "loaded  https://example/a.png 4x2") {
		t.Errorf("output missing loaded line with dimensions:\n%s", out)
	}
	if !strings.Contains(out, "already loaded") {
		t.Errorf("output missing skipped duplicate:\n%s", out)
	}
	if !strings.Contains(out, "(invalid url)") {
		t.Errorf("output missing invalid url line:\n%s", out)
	}
}

func TestPlainDisplay_ContextCancelled(t *testing.T) {
	store, _, release := gatedStore()
	defer close(release)
	var buf bytes.Buffer
	d := &PlainDisplay{opts: DisplayOptions{Store: store, Writer: &buf}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := d.Run(ctx, []*url.URL{mustParse(t, "https://example/a.png")}); err != context.Canceled {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

// --- TUIDisplay ---

func TestTUIDisplay_QuitsOnKey(t *testing.T) {
	store, _, release := gatedStore()
	close(release)
	var out bytes.Buffer
	d := &TUIDisplay{opts: DisplayOptions{
		Store:   store,
		Writer:  &out,
		Input:   strings.NewReader("q"),
		Width:   10,
		Spinner: spinner.Line,
	}}

	done := make(chan error, 1)
	go func() { done <- d.Run(context.Background(), []*url.URL{mustParse(t, "https://example/a.png")}) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("TUIDisplay did not exit on q")
	}
	if !strings.Contains(out.String(), "1/1 https://example/a.png") {
		t.Errorf("output missing caption:\n%s", out.String())
	}
}

func TestTUIDisplay_ContextCancelled(t *testing.T) {
	store, _, release := gatedStore()
	defer close(release)
	pr, pw := io.Pipe()
	defer func() { _ = pw.Close() }()
	var out bytes.Buffer
	d := &TUIDisplay{opts: DisplayOptions{Store: store, Writer: &out, Input: pr}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx, []*url.URL{mustParse(t, "https://example/a.png")}) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("TUIDisplay did not exit on cancel")
	}
}
