package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/masaha03/chatgpt-app/internal/chat"
	"github.com/masaha03/chatgpt-app/internal/tui/layout"
	"github.com/masaha03/chatgpt-app/internal/tui/theme"
)

// ChatItem is one row of the sidebar
type ChatItem struct {
	ID       string
	Title    string
	Messages int
	Active   bool
	Running  bool
}

// Sidebar lists the conversations, newest first
type Sidebar struct {
	viewport viewport.Model
	items    []ChatItem
	width    int
	height   int
	focused  bool
	selected int
}

// NewSidebar creates a new sidebar
func NewSidebar(width, height int) *Sidebar {
	return &Sidebar{
		viewport: viewport.New(width-2, height-3),
		width:    width,
		height:   height,
	}
}

// SetSize updates the sidebar dimensions
func (s *Sidebar) SetSize(width, height int) {
	s.width = width
	s.height = height
	s.viewport.Width = width - 2   // right border and padding
	s.viewport.Height = height - 3 // header, blank line, hint
	s.updateContent()
}

// SetFocused sets whether the sidebar takes keyboard input
func (s *Sidebar) SetFocused(focused bool) {
	s.focused = focused
	if focused {
		for i, it := range s.items {
			if it.Active {
				s.selected = i
			}
		}
	}
	s.updateContent()
}

// IsFocused returns whether the sidebar is focused
func (s *Sidebar) IsFocused() bool {
	return s.focused
}

// SetSnapshot rebuilds the rows from a session snapshot
func (s *Sidebar) SetSnapshot(snap chat.Snapshot) {
	s.items = make([]ChatItem, len(snap.Conversations))
	for i, c := range snap.Conversations {
		s.items[i] = ChatItem{
			ID:       c.ID,
			Title:    c.Title,
			Messages: len(c.Messages),
			Active:   c.ID == snap.ActiveID,
			Running:  snap.Running && c.ID == snap.RunningID,
		}
	}
	if s.selected >= len(s.items) {
		s.selected = len(s.items) - 1
	}
	if s.selected < 0 {
		s.selected = 0
	}
	s.updateContent()
}

// Items returns the current rows
func (s *Sidebar) Items() []ChatItem {
	return s.items
}

// MoveUp selects the previous conversation
func (s *Sidebar) MoveUp() {
	if s.selected > 0 {
		s.selected--
		s.updateContent()
	}
}

// MoveDown selects the next conversation
func (s *Sidebar) MoveDown() {
	if s.selected < len(s.items)-1 {
		s.selected++
		s.updateContent()
	}
}

// Selected returns the id of the selected conversation
func (s *Sidebar) Selected() string {
	if s.selected >= 0 && s.selected < len(s.items) {
		return s.items[s.selected].ID
	}
	return ""
}

// Neighbor returns the id of the conversation offset rows away from the
// active one, wrapping around
func (s *Sidebar) Neighbor(offset int) string {
	n := len(s.items)
	if n == 0 {
		return ""
	}
	for i, it := range s.items {
		if it.Active {
			return s.items[((i+offset)%n+n)%n].ID
		}
	}
	return s.items[0].ID
}

func (s *Sidebar) updateContent() {
	t := theme.Current
	width := s.viewport.Width

	var sb strings.Builder
	for i, it := range s.items {
		marker := "  "
		if it.Running {
			marker = "● "
		}
		title := truncateWidth(it.Title, width-lipgloss.Width(marker)-1)

		style := lipgloss.NewStyle().Foreground(t.TextMuted).Width(width)
		switch {
		case s.focused && i == s.selected:
			style = style.Background(t.Primary).Foreground(t.TextInverse).Bold(true)
		case it.Active:
			style = style.Background(t.BackgroundSecondary).Foreground(t.Text).Bold(true)
		}
		sb.WriteString(style.Render(marker+title) + "\n")
	}
	s.viewport.SetContent(sb.String())
}

// View renders the sidebar
func (s *Sidebar) View() string {
	t := theme.Current

	headerStyle := lipgloss.NewStyle().Foreground(t.Primary).Bold(true)
	header := headerStyle.Render(fmt.Sprintf("Chats (%d)", len(s.items)))

	hint := ""
	if s.focused {
		hint = lipgloss.NewStyle().Foreground(t.TextMuted).Italic(true).
			Render("enter open · d delete")
	}

	color := t.Border
	if s.focused {
		color = t.BorderFocus
	}
	frame := layout.NewFrame(s.width, s.height).Sides(false, true, false, false).Pad(0, 1).Color(color)
	return frame.Render(lipgloss.JoinVertical(lipgloss.Left, header, "", s.viewport.View(), hint))
}

// truncateWidth shortens s to at most width cells, marking the cut with …
func truncateWidth(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(s, width, "…")
}
