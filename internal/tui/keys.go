package tui

import "github.com/charmbracelet/bubbles/key"

// galleryKeys holds key bindings for the gallery.
type galleryKeys struct {
	Prev key.Binding
	Next key.Binding
	Quit key.Binding
}

// ShortHelp returns the gallery bindings for the help bar.
func (k galleryKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Prev, k.Next, k.Quit}
}

// FullHelp returns the gallery bindings grouped for expanded help.
func (k galleryKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Prev, k.Next},
		{k.Quit},
	}
}

// GalleryKeyMap returns the key bindings for the gallery.
func GalleryKeyMap() galleryKeys {
	return galleryKeys{
		Prev: key.NewBinding(
			key.WithKeys("left", "h", "shift+tab"),
			key.WithHelp("←/h", "previous"),
		),
		Next: key.NewBinding(
			key.WithKeys("right", "l", "tab"),
			key.WithHelp("→/l", "next"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}
