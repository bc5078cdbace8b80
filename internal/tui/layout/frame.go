package layout

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/masaha03/chatgpt-app/internal/tui/theme"
)

// Frame draws a border on some sides of a fixed-size screen region
type Frame struct {
	width, height            int
	top, right, bottom, left bool
	padLeft, padRight        int
	color                    lipgloss.Color
}

// NewFrame creates an unbordered frame of the given outer size
func NewFrame(width, height int) *Frame {
	return &Frame{width: width, height: height, color: theme.Current.Border}
}

// Sides selects the bordered sides
func (f *Frame) Sides(top, right, bottom, left bool) *Frame {
	f.top, f.right, f.bottom, f.left = top, right, bottom, left
	return f
}

// Pad sets the horizontal padding inside the border
func (f *Frame) Pad(left, right int) *Frame {
	f.padLeft, f.padRight = left, right
	return f
}

// Color sets the border color
func (f *Frame) Color(c lipgloss.Color) *Frame {
	f.color = c
	return f
}

// Render places content in the frame, clipping it to the frame height
func (f *Frame) Render(content string) string {
	style := lipgloss.NewStyle().PaddingLeft(f.padLeft).PaddingRight(f.padRight)
	if f.top || f.right || f.bottom || f.left {
		style = style.Border(lipgloss.NormalBorder(), f.top, f.right, f.bottom, f.left).
			BorderForeground(f.color)
	}

	// lipgloss sizes exclude the border
	if w := f.width - count(f.left, f.right); w > 0 {
		style = style.Width(w)
	}
	if h := f.height - count(f.top, f.bottom); h > 0 {
		style = style.Height(h).MaxHeight(f.height)
	}
	return style.Render(content)
}

func count(sides ...bool) int {
	n := 0
	for _, s := range sides {
		if s {
			n++
		}
	}
	return n
}

// Gutter marks a block of text with a thick bar on its left
func Gutter(color lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.ThickBorder(), false, false, false, true).
		BorderForeground(color).
		PaddingLeft(1)
}
