package remoteimage

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
	xdraw "golang.org/x/image/draw"
)

// halfBlock paints the top pixel as foreground and the bottom pixel as background.
const halfBlock = "▀"

// Render draws img at most width cells wide, two pixel rows per text line.
// Images narrower than width are not upscaled.
func Render(img image.Image, width int) string {
	b := img.Bounds()
	if width <= 0 || b.Dx() == 0 || b.Dy() == 0 {
		return ""
	}
	if width > b.Dx() {
		width = b.Dx()
	}
	height := b.Dy() * width / b.Dx()
	if height < 2 {
		height = 2
	}
	if height%2 == 1 {
		height++
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)

	var sb strings.Builder
	for y := 0; y < height; y += 2 {
		if y > 0 {
			sb.WriteByte('\n')
		}
		for x := 0; x < width; x++ {
			sb.WriteString(lipgloss.NewStyle().
				Foreground(hexColor(dst.RGBAAt(x, y))).
				Background(hexColor(dst.RGBAAt(x, y+1))).
				Render(halfBlock))
		}
	}
	return sb.String()
}

func hexColor(c color.RGBA) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B))
}

// SpinnerByName maps a config name to a bubbles spinner. Unknown names get Dot.
func SpinnerByName(name string) spinner.Spinner {
	switch name {
	case "line":
		return spinner.Line
	case "minidot":
		return spinner.MiniDot
	case "jump":
		return spinner.Jump
	case "pulse":
		return spinner.Pulse
	case "points":
		return spinner.Points
	case "globe":
		return spinner.Globe
	case "moon":
		return spinner.Moon
	case "meter":
		return spinner.Meter
	case "ellipsis":
		return spinner.Ellipsis
	default:
		return spinner.Dot
	}
}
