package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/smileynet/remoteimage/internal/remoteimage"
)

// Model is the Bubble Tea gallery: one selected image view at a time.
type Model struct {
	views    []remoteimage.View
	selected int
	keys     galleryKeys
	help     help.Model
	done     bool // Set once a quit key was pressed.
}

// NewModel creates a gallery over views. The first view is selected.
func NewModel(views []remoteimage.View) Model {
	return Model{
		views: views,
		keys:  GalleryKeyMap(),
		help:  help.New(),
	}
}

// Selected returns the index of the view on screen.
func (m Model) Selected() int { return m.selected }

// Views returns the gallery's views in their current state.
func (m Model) Views() []remoteimage.View { return m.views }

// Close releases every view.
func (m Model) Close() {
	for _, v := range m.views {
		v.Close()
	}
}

// Init starts every view so off-screen images load in the background.
func (m Model) Init() tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(m.views))
	for _, v := range m.views {
		cmds = append(cmds, v.Init())
	}
	return tea.Batch(cmds...)
}

// Update handles navigation keys and routes view messages to their owner.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.done = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Next):
			if len(m.views) > 0 {
				m.selected = (m.selected + 1) % len(m.views)
				return m, m.appear()
			}
		case key.Matches(msg, m.keys.Prev):
			if len(m.views) > 0 {
				m.selected = (m.selected - 1 + len(m.views)) % len(m.views)
				return m, m.appear()
			}
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		inner := tea.WindowSizeMsg{Width: msg.Width - frameWidth, Height: msg.Height}
		for i := range m.views {
			m.views[i] = updateView(m.views[i], inner)
		}
		return m, nil

	case remoteimage.ChangedMsg:
		for i := range m.views {
			if m.views[i].ID() == msg.ID {
				var cmd tea.Cmd
				m.views[i], cmd = updateViewCmd(m.views[i], msg)
				return m, cmd
			}
		}
		return m, nil

	case spinner.TickMsg:
		// Each spinner ignores ticks that carry another spinner's ID.
		var cmds []tea.Cmd
		for i := range m.views {
			var cmd tea.Cmd
			m.views[i], cmd = updateViewCmd(m.views[i], msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

// appear re-triggers the load of a newly selected view still showing its placeholder.
func (m Model) appear() tea.Cmd {
	v := m.views[m.selected]
	if v.Image() != nil {
		return nil
	}
	return v.Appear
}

func updateView(v remoteimage.View, msg tea.Msg) remoteimage.View {
	v, _ = updateViewCmd(v, msg)
	return v
}

func updateViewCmd(v remoteimage.View, msg tea.Msg) (remoteimage.View, tea.Cmd) {
	next, cmd := v.Update(msg)
	return next.(remoteimage.View), cmd
}

// View renders the caption, the framed selected image and the help bar.
func (m Model) View() string {
	if len(m.views) == 0 {
		return "  no images\n"
	}
	v := m.views[m.selected]
	caption := fmt.Sprintf("%d/%d %s", m.selected+1, len(m.views), urlLabel(v))

	return captionStyle().Render(caption) + "\n" +
		imageBorder().Render(v.View()) + "\n" +
		m.help.View(m.keys) + "\n"
}

func urlLabel(v remoteimage.View) string {
	if v.URL() == nil {
		return "(invalid url)"
	}
	return v.URL().String()
}
