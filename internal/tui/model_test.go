package tui

import (
	"context"
	"image"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/exp/teatest"

	"github.com/smileynet/remoteimage/internal/imagestore"
	"github.com/smileynet/remoteimage/internal/network"
	"github.com/smileynet/remoteimage/internal/remoteimage"
)

func newGallery(t *testing.T, raws ...string) (Model, chan struct{}) {
	t.Helper()
	store, _, release := gatedStore()
	views := make([]remoteimage.View, 0, len(raws))
	for _, raw := range raws {
		views = append(views, remoteimage.NewFromString(store, raw))
	}
	m := NewModel(views)
	t.Cleanup(m.Close)
	return m, release
}

func press(m Model, k tea.KeyMsg) Model {
	next, _ := m.Update(k)
	return next.(Model)
}

func TestModel_Navigation(t *testing.T) {
	m, release := newGallery(t, "https://example/1.png", "https://example/2.png", "https://example/3.png")
	defer close(release)

	tests := []struct {
		name string
		key  tea.KeyMsg
		want int
	}{
		{name: "right moves forward", key: tea.KeyMsg{Type: tea.KeyRight}, want: 1},
		{name: "l moves forward", key: tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("l")}, want: 2},
		{name: "tab wraps to start", key: tea.KeyMsg{Type: tea.KeyTab}, want: 0},
		{name: "left wraps to end", key: tea.KeyMsg{Type: tea.KeyLeft}, want: 2},
		{name: "h moves back", key: tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("h")}, want: 1},
	}
	for _, tt := range tests {
		m = press(m, tt.key)
		if m.Selected() != tt.want {
			t.Errorf("%s: selected = %d, want %d", tt.name, m.Selected(), tt.want)
		}
	}
}

func TestModel_Caption(t *testing.T) {
	m, release := newGallery(t, "https://example/1.png", "https://example/2.png")
	defer close(release)

	if got := m.View(); !strings.Contains(got, "1/2 https://example/1.png") {
		t.Errorf("View() missing first caption:\n%s", got)
	}

	m = press(m, tea.KeyMsg{Type: tea.KeyRight})
	if got := m.View(); !strings.Contains(got, "2/2 https://example/2.png") {
		t.Errorf("View() missing second caption:\n%s", got)
	}
}

func TestModel_InvalidURLCaption(t *testing.T) {
	m, release := newGallery(t, "http://[::1")
	defer close(release)

	if got := m.View(); !strings.Contains(got, "(invalid url)") {
		t.Errorf("View() = %q, want invalid url caption", got)
	}
}

func TestModel_Empty(t *testing.T) {
	m := NewModel(nil)

	if got := m.View(); !strings.Contains(got, "no images") {
		t.Errorf("View() = %q, want empty notice", got)
	}
	m = press(m, tea.KeyMsg{Type: tea.KeyRight})
	if m.Selected() != 0 {
		t.Errorf("selected = %d, want 0", m.Selected())
	}
}

func TestModel_QuitKeys(t *testing.T) {
	tests := []struct {
		name string
		key  tea.KeyMsg
	}{
		{name: "q", key: tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")}},
		{name: "ctrl+c", key: tea.KeyMsg{Type: tea.KeyCtrlC}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, release := newGallery(t, "https://example/1.png")
			defer close(release)

			next, cmd := m.Update(tt.key)
			if cmd == nil {
				t.Fatal("quit key should return a command")
			}
			if _, ok := cmd().(tea.QuitMsg); !ok {
				t.Error("quit key should produce tea.QuitMsg")
			}
			if !next.(Model).done {
				t.Error("model should be done after quit")
			}
		})
	}
}

func TestModel_ChangedMsgRoutedToOwner(t *testing.T) {
	m, release := newGallery(t, "https://example/1.png", "https://example/2.png")
	close(release)

	// Wait until both images are in the store.
	deadline := time.Now().Add(2 * time.Second)
	for m.views[0].Image() == nil || m.views[1].Image() == nil {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for images")
		}
		for i := range m.views {
			next, _ := m.Update(remoteimage.ChangedMsg{ID: m.views[i].ID()})
			m = next.(Model)
		}
		time.Sleep(time.Millisecond)
	}

	if strings.Contains(m.View(), "⣾") {
		t.Error("spinner should be gone once the selected image loaded")
	}
}

func TestModel_WindowSizeShrinksViews(t *testing.T) {
	m, release := newGallery(t, "https://example/1.png")
	defer close(release)

	next, _ := m.Update(tea.WindowSizeMsg{Width: 30, Height: 20})
	m = next.(Model)

	if m.help.Width != 30 {
		t.Errorf("help width = %d, want 30", m.help.Width)
	}
}

// TestModel_Teatest_LoadsAndQuits drives the gallery in a real program.
func TestModel_Teatest_LoadsAndQuits(t *testing.T) {
	m, release := newGallery(t, "https://example/1.png", "https://example/2.png")

	tm := teatest.NewTestModel(t, m, teatest.WithInitialTermSize(80, 24))

	teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
		return strings.Contains(string(out), "1/2 https://example/1.png")
	}, teatest.WithDuration(3*time.Second))

	close(release)

	teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
		return strings.Contains(string(out), "▀")
	}, teatest.WithDuration(3*time.Second))

	tm.Send(tea.KeyMsg{Type: tea.KeyRight})
	teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
		return strings.Contains(string(out), "2/2 https://example/2.png")
	}, teatest.WithDuration(3*time.Second))

	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	tm.WaitFinished(t, teatest.WithFinalTimeout(2*time.Second))

	final := tm.FinalModel(t).(Model)
	if final.Selected() != 1 {
		t.Errorf("selected = %d, want 1", final.Selected())
	}
	if final.Views()[0].Image() == nil {
		t.Error("first image should be loaded")
	}
}

// emptyFirstStore serves nothing on the first fetch of each URL and an image after that.
func emptyFirstStore() (*imagestore.Store, *network.MockClient) {
	var mu sync.Mutex
	seen := map[string]int{}
	client := &network.MockClient{GetFunc: func(_ context.Context, u *url.URL) (network.Response, error) {
		mu.Lock()
		seen[u.String()]++
		n := seen[u.String()]
		mu.Unlock()
		if n == 1 {
			return network.Response{}, nil
		}
		return network.Response{Data: []byte("img")}, nil
	}}
	store := imagestore.New(client, imagestore.WithDecoder(func([]byte) (image.Image, error) {
		return image.NewRGBA(image.Rect(0, 0, 2, 2)), nil
	}))
	return store, client
}

func waitForState(t *testing.T, store *imagestore.Store, u *url.URL, want imagestore.State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for store.State(u) != want {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s to be %v, got %v", u, want, store.State(u))
		}
		time.Sleep(time.Millisecond)
	}
}

func TestModel_NavigationRetriesEmptyFetch(t *testing.T) {
	// Given: a gallery whose first fetch of every URL came back empty
	store, client := emptyFirstStore()
	a := mustParse(t, "https://example/a.png")
	b := mustParse(t, "https://example/b.png")
	m := NewModel([]remoteimage.View{remoteimage.New(store, a), remoteimage.New(store, b)})
	t.Cleanup(m.Close)

	deadline := time.Now().Add(2 * time.Second)
	for client.Calls() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("fetches = %d, want 2", client.Calls())
		}
		time.Sleep(time.Millisecond)
	}
	waitForState(t, store, a, imagestore.Unrequested)
	waitForState(t, store, b, imagestore.Unrequested)

	// When: navigating onto b, then back onto a
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRight})
	m = next.(Model)
	if cmd == nil {
		t.Fatal("selecting a view without an image should re-trigger its load")
	}
	cmd()
	waitForState(t, store, b, imagestore.Loaded)

	next, cmd = m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	m = next.(Model)
	if cmd == nil {
		t.Fatal("selecting a view without an image should re-trigger its load")
	}
	cmd()

	// Then: both URLs were fetched again and loaded
	waitForState(t, store, a, imagestore.Loaded)
	if client.Calls() != 4 {
		t.Errorf("fetches = %d, want 4", client.Calls())
	}
}

func TestModel_NavigationOntoLoadedViewDoesNotReload(t *testing.T) {
	store, client := emptyFirstStore()
	a := mustParse(t, "https://example/a.png")
	b := mustParse(t, "https://example/b.png")
	// Second fetches succeed, so prime both URLs past their empty first response.
	for _, u := range []*url.URL{a, a, b, b} {
		_, _ = store.Load(context.Background(), u)
	}
	m := NewModel([]remoteimage.View{remoteimage.New(store, a), remoteimage.New(store, b)})
	t.Cleanup(m.Close)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRight})

	if cmd != nil {
		t.Error("selecting a view that already shows its image should not return a command")
	}
	if client.Calls() != 4 {
		t.Errorf("fetches = %d, want 4", client.Calls())
	}
}
