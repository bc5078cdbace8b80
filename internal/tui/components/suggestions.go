package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/masaha03/chatgpt-app/internal/tui/theme"
)

// Command represents a slash command
type Command struct {
	Name        string
	Args        string
	Description string
}

// Usage returns the command with its argument placeholder
func (c Command) Usage() string {
	if c.Args == "" {
		return c.Name
	}
	return c.Name + " " + c.Args
}

// BuiltinCommands lists all slash commands
var BuiltinCommands = []Command{
	{Name: "/help", Description: "Show keyboard shortcuts and commands"},
	{Name: "/new", Description: "Start a new chat"},
	{Name: "/chats", Description: "List chats"},
	{Name: "/switch", Args: "<n>", Description: "Open chat n from /chats"},
	{Name: "/delete", Description: "Delete the current chat"},
	{Name: "/title", Args: "<text>", Description: "Rename the current chat"},
	{Name: "/system", Args: "<text>", Description: "Replace the system prompt"},
	{Name: "/edit", Args: "<n> <text>", Description: "Rewrite message n and replay"},
	{Name: "/retry", Description: "Regenerate the last reply"},
	{Name: "/reset", Description: "Empty the current chat"},
	{Name: "/prompt", Args: "<name>", Description: "Use a system prompt preset"},
	{Name: "/prompts", Description: "List system prompt presets"},
	{Name: "/cancel", Description: "Stop the running reply"},
	{Name: "/clear", Description: "Clear command output"},
	{Name: "/config", Args: "[set|delete]", Description: "Show or change configuration"},
	{Name: "/quit", Description: "Exit"},
}

// PresetProvider supplies preset names for /prompt completion
type PresetProvider interface {
	Names() []string
}

// Suggestions shows command autocomplete suggestions
type Suggestions struct {
	visible  bool
	commands []Command
	selected int
	width    int
	presets  PresetProvider
}

// NewSuggestions creates a new suggestions component
func NewSuggestions() *Suggestions {
	return &Suggestions{commands: BuiltinCommands}
}

// SetPresetProvider sets the source of /prompt completions
func (s *Suggestions) SetPresetProvider(p PresetProvider) {
	s.presets = p
}

// SetWidth sets the component width
func (s *Suggestions) SetWidth(width int) {
	s.width = width
}

// Filter filters commands based on input
func (s *Suggestions) Filter(input string) {
	if !strings.HasPrefix(input, "/") {
		s.visible = false
		return
	}

	s.visible = true
	s.commands = nil

	if rest, ok := strings.CutPrefix(input, "/prompt "); ok && s.presets != nil {
		for _, name := range s.presets.Names() {
			if strings.HasPrefix(name, strings.ToLower(rest)) {
				s.commands = append(s.commands, Command{Name: "/prompt " + name, Description: "preset"})
			}
		}
	} else if !strings.Contains(input, " ") {
		for _, cmd := range BuiltinCommands {
			if strings.HasPrefix(cmd.Name, input) {
				s.commands = append(s.commands, cmd)
			}
		}
	}

	if s.selected >= len(s.commands) {
		s.selected = 0
	}
}

// IsVisible returns whether suggestions are showing
func (s *Suggestions) IsVisible() bool {
	return s.visible && len(s.commands) > 0
}

// Hide hides the suggestions
func (s *Suggestions) Hide() {
	s.visible = false
}

// MoveUp moves selection up
func (s *Suggestions) MoveUp() {
	if s.selected > 0 {
		s.selected--
	}
}

// MoveDown moves selection down
func (s *Suggestions) MoveDown() {
	if s.selected < len(s.commands)-1 {
		s.selected++
	}
}

// GetSelected returns the currently selected command
func (s *Suggestions) GetSelected() Command {
	if s.selected < len(s.commands) {
		return s.commands[s.selected]
	}
	return Command{}
}

// View renders the suggestions
func (s *Suggestions) View() string {
	if !s.IsVisible() {
		return ""
	}

	t := theme.Current
	var sb strings.Builder

	for i, cmd := range s.commands {
		icon := "  "
		if i == s.selected {
			icon = "› "
		}
		row := lipgloss.NewStyle().Foreground(t.Primary).Render(icon) +
			lipgloss.NewStyle().Foreground(t.Accent).Bold(true).Width(24).Render(cmd.Usage()) +
			lipgloss.NewStyle().Foreground(t.TextMuted).Render(cmd.Description)

		if i == s.selected {
			row = lipgloss.NewStyle().
				Background(t.BackgroundSecondary).
				Foreground(t.Text).
				Width(s.width - 6).
				Render(row)
		}
		sb.WriteString(row + "\n")
	}

	sb.WriteString(lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Italic(true).
		Render("↑↓ navigate • tab complete • esc close"))

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Primary).
		Padding(0, 1).
		Width(s.width - 2).
		Render(sb.String())
}
