package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/masaha03/chatgpt-app/internal/tui/theme"
)

// Header renders the application name and the active conversation title
type Header struct {
	Width   int
	Version string
	Title   string
}

// NewHeader creates a new header component
func NewHeader(width int, version string) *Header {
	return &Header{
		Width:   width,
		Version: version,
	}
}

// SetWidth updates the header width
func (h *Header) SetWidth(width int) {
	h.Width = width
}

// SetTitle sets the title of the active conversation
func (h *Header) SetTitle(title string) {
	h.Title = title
}

// View renders the header
func (h *Header) View() string {
	t := theme.Current

	logo := lipgloss.NewStyle().
		Foreground(t.Primary).
		Bold(true).
		Render("◎ ChatGPT")

	version := lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Background(t.BackgroundSecondary).
		Padding(0, 1).
		Render("v" + h.Version)

	left := lipgloss.JoinHorizontal(lipgloss.Center, logo, "  ", version)

	titleWidth := h.Width - lipgloss.Width(left) - 4
	title := lipgloss.NewStyle().
		Foreground(t.Text).
		Bold(true).
		Render(truncateWidth(h.Title, titleWidth))

	spacing := h.Width - lipgloss.Width(left) - lipgloss.Width(title) - 2
	if spacing < 1 {
		spacing = 1
	}

	header := lipgloss.JoinHorizontal(
		lipgloss.Center,
		left,
		lipgloss.NewStyle().Width(spacing).Render(""),
		title,
	)

	separator := lipgloss.NewStyle().
		Foreground(t.Border).
		Render(strings.Repeat("─", max(h.Width, 0)))

	return header + "\n" + separator
}
