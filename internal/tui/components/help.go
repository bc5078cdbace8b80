package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/masaha03/chatgpt-app/internal/tui/theme"
)

// HelpDialog shows keyboard shortcuts and slash commands
type HelpDialog struct {
	Width int
}

// NewHelpDialog creates a help dialog
func NewHelpDialog() *HelpDialog {
	return &HelpDialog{Width: 64}
}

var shortcuts = []struct {
	key  string
	desc string
}{
	{"enter", "Send message"},
	{"esc", "Stop the reply / close"},
	{"ctrl+n", "New chat"},
	{"ctrl+up/down", "Previous / next chat"},
	{"ctrl+b", "Focus the chat list"},
	{"ctrl+s", "Show or hide the chat list"},
	{"page up/down", "Scroll messages"},
	{"ctrl+c", "Quit"},
}

// View renders the help dialog
func (h *HelpDialog) View() string {
	t := theme.Current

	section := lipgloss.NewStyle().Foreground(t.Primary).Bold(true)
	key := lipgloss.NewStyle().Foreground(t.Accent).Bold(true).Width(22)
	desc := lipgloss.NewStyle().Foreground(t.Text)

	var sb strings.Builder
	sb.WriteString(section.Render("Keyboard Shortcuts") + "\n\n")
	for _, s := range shortcuts {
		sb.WriteString(key.Render(s.key) + desc.Render(s.desc) + "\n")
	}

	sb.WriteString("\n" + section.Render("Commands") + "\n\n")
	for _, c := range BuiltinCommands {
		sb.WriteString(key.Render(c.Usage()) + desc.Render(c.Description) + "\n")
	}

	footer := lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Render("\nPress any key to close")

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Primary).
		Padding(1, 2).
		Width(h.Width)

	return box.Render(sb.String() + footer)
}

// PlaceOverlay centers the dialog on the screen
func PlaceOverlay(overlay string, bgWidth, bgHeight int) string {
	return lipgloss.Place(
		bgWidth,
		bgHeight,
		lipgloss.Center,
		lipgloss.Center,
		overlay,
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(theme.Current.Background),
	)
}
