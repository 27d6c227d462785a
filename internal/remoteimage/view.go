// Package remoteimage renders an image fetched by URL inside a Bubble Tea program,
// showing a placeholder until the image store has it.
package remoteimage

import (
	"image"
	"net/url"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/smileynet/remoteimage/internal/viewmodel"
)

// DefaultWidth is the content width in cells before a WindowSizeMsg arrives.
const DefaultWidth = 40

var lastID atomic.Int64

func nextID() int {
	return int(lastID.Add(1))
}

// ChangedMsg tells the View with ID that its view model signalled a change.
type ChangedMsg struct {
	ID int
}

// View is a Bubble Tea model showing content(image) once the image is
// available, and placeholder() until then.
type View struct {
	id          int
	store       viewmodel.Store
	vm          *viewmodel.ViewModel
	url         *url.URL
	logger      zerolog.Logger
	placeholder func() string
	content     func(image.Image) string
	spinner     spinner.Model
	width       int
	fixedWidth  bool

	image    image.Image
	rendered string
}

// Option configures a View.
type Option func(*View)

// WithPlaceholder replaces the default spinner placeholder.
func WithPlaceholder(fn func() string) Option {
	return func(v *View) { v.placeholder = fn }
}

// WithContent replaces the default half-block rendering of the image.
func WithContent(fn func(image.Image) string) Option {
	return func(v *View) { v.content = fn }
}

// WithSpinner picks the animation of the default placeholder.
func WithSpinner(s spinner.Spinner) Option {
	return func(v *View) { v.spinner.Spinner = s }
}

// WithWidth fixes the default content width; window resizes are then ignored.
func WithWidth(width int) Option {
	return func(v *View) {
		v.width = width
		v.fixedWidth = true
	}
}

// WithLogger sets the logger handed to the view model.
func WithLogger(l zerolog.Logger) Option {
	return func(v *View) { v.logger = l }
}

// New creates a View for u backed by store. A nil u renders the placeholder forever.
// If store has no image for u yet, a load starts immediately.
func New(store viewmodel.Store, u *url.URL, opts ...Option) View {
	s := spinner.New()
	s.Spinner = spinner.Dot

	v := View{
		id:      nextID(),
		store:   store,
		url:     u,
		logger:  zerolog.Nop(),
		spinner: s,
		width:   DefaultWidth,
	}
	for _, opt := range opts {
		opt(&v)
	}

	v.vm = viewmodel.New(store, viewmodel.WithLogger(v.logger))
	if img := store.Image(u); img != nil {
		v.setImage(img)
	} else {
		v.vm.Load(u)
	}
	return v
}

// NewFromString is New with a URL string. An empty or unparseable string, or
// one without a scheme, acts as a nil URL.
func NewFromString(store viewmodel.Store, rawURL string, opts ...Option) View {
	return New(store, ParseURL(rawURL), opts...)
}

// ParseURL returns the absolute URL in raw, or nil when raw is empty,
// unparseable or has no scheme.
func ParseURL(raw string) *url.URL {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return nil
	}
	return u
}

// ID identifies the View in ChangedMsg.
func (v View) ID() int { return v.id }

// URL returns the URL the View shows.
func (v View) URL() *url.URL { return v.url }

// Image returns the image being shown, or nil while the placeholder is up.
func (v View) Image() image.Image { return v.image }

// Close releases the view model subscription. An in-flight fetch still completes.
func (v View) Close() {
	v.vm.Close()
}

// Init re-triggers the load now that the placeholder is on screen, starts the
// spinner and waits for view model changes.
func (v View) Init() tea.Cmd {
	return tea.Batch(v.Appear, v.spinner.Tick, v.waitForChange)
}

// Appear is a tea.Cmd to run whenever the placeholder comes on screen. It
// retries a URL left retryable by an empty or failed fetch; a load still in
// flight is rejected by the store and ignored.
func (v View) Appear() tea.Msg {
	if v.image == nil {
		v.vm.Load(v.url)
	}
	return nil
}

func (v View) waitForChange() tea.Msg {
	select {
	case <-v.vm.Changes():
		return ChangedMsg{ID: v.id}
	case <-v.vm.Done():
		return nil
	}
}

// Update handles change notifications, spinner ticks and window resizes.
func (v View) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ChangedMsg:
		if msg.ID != v.id {
			return v, nil
		}
		// Any store change is a reason to re-check, not only our own publish.
		img := v.vm.Image()
		if img == nil {
			img = v.store.Image(v.url)
		}
		if img != nil && v.image == nil {
			v.setImage(img)
		}
		return v, v.waitForChange

	case spinner.TickMsg:
		if v.image != nil {
			return v, nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd

	case tea.WindowSizeMsg:
		if !v.fixedWidth && msg.Width > 0 && msg.Width != v.width {
			v.width = msg.Width
			if v.image != nil {
				v.rendered = v.render()
			}
		}
		return v, nil
	}

	return v, nil
}

// View renders content(image) when available, otherwise the placeholder.
func (v View) View() string {
	if v.image != nil {
		return v.rendered
	}
	if v.placeholder != nil {
		return v.placeholder()
	}
	return v.spinner.View()
}

func (v *View) setImage(img image.Image) {
	v.image = img
	v.rendered = v.render()
}

func (v View) render() string {
	if v.content != nil {
		return v.content(v.image)
	}
	return Render(v.image, v.width)
}
