package tui

import "github.com/charmbracelet/lipgloss"

// frameWidth is the horizontal space taken by the image border.
const frameWidth = 2

// imageBorder frames the selected image.
func imageBorder() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.AdaptiveColor{Light: "4", Dark: "12"})
}

// captionStyle renders the "n/N url" line above the image.
func captionStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.AdaptiveColor{Light: "240", Dark: "245"})
}
