package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/masaha03/chatgpt-app/internal/tui/theme"
)

// Status renders the status bar at the bottom
type Status struct {
	Width    int
	Model    string
	Running  bool
	Spinner  string
	Store    string
	Mirrored bool
	Messages int
}

// NewStatus creates a new status bar
func NewStatus(width int) *Status {
	return &Status{Width: width}
}

// SetWidth updates the status bar width
func (s *Status) SetWidth(width int) {
	s.Width = width
}

// View renders the status bar
func (s *Status) View() string {
	t := theme.Current
	muted := lipgloss.NewStyle().Foreground(t.TextMuted)

	var hint string
	if s.Running {
		hint = lipgloss.NewStyle().Foreground(t.Primary).Render(s.Spinner+" streaming") +
			muted.Render(" · esc to stop")
	} else {
		hint = muted.Render("enter send · ctrl+n new chat · ctrl+? help")
	}

	badge := lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Background(t.BackgroundSecondary).
		Padding(0, 1)

	right := muted.Render(fmt.Sprintf("%d msgs", s.Messages))
	if s.Store != "" {
		right += " " + badge.Render(s.Store)
	}
	if s.Mirrored {
		right += " " + badge.Foreground(t.Success).Render("nats")
	}
	if s.Model != "" {
		right += " " + badge.Render(s.Model)
	}

	spacing := s.Width - lipgloss.Width(hint) - lipgloss.Width(right) - 2
	if spacing < 1 {
		spacing = 1
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Center,
		hint,
		lipgloss.NewStyle().Width(spacing).Render(""),
		right,
	)
}
