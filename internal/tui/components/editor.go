package components

import (
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/masaha03/chatgpt-app/internal/tui/theme"
)

// border and padding around the textarea
const (
	editorChromeX = 6
	editorChromeY = 2
)

const (
	placeholderIdle = "Send a message... (/ for commands, alt+enter for a new line)"
	placeholderBusy = "Reply streaming · esc to stop"
)

// oscResponse matches terminal replies (e.g. background color queries) that
// can leak into the input before the program takes over the terminal
var oscResponse = regexp.MustCompile(`\x1b?\](?:\d+;)[^\x07\x1b\s]*(?:\x07|\x1b\\)?`)

// Editor is the prompt input under the transcript. Enter submits, so the
// newline binding is moved to alt+enter.
type Editor struct {
	input         textarea.Model
	width, height int
	focused       bool
}

// NewEditor creates a focused editor
func NewEditor(width, height int) *Editor {
	in := textarea.New()
	in.Prompt = "┃ "
	in.Placeholder = placeholderIdle
	in.ShowLineNumbers = false
	in.CharLimit = 0
	in.KeyMap.InsertNewline.SetKeys("alt+enter")
	in.FocusedStyle.CursorLine = lipgloss.NewStyle()
	in.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(theme.Current.TextMuted)
	in.BlurredStyle.Placeholder = in.FocusedStyle.Placeholder
	in.Focus()

	e := &Editor{input: in, focused: true}
	e.SetSize(width, height)
	return e
}

// SetSize sets the outer size of the editor box
func (e *Editor) SetSize(width, height int) {
	e.width, e.height = width, height
	e.input.SetWidth(max(width-editorChromeX, 1))
	e.input.SetHeight(max(height-editorChromeY, 1))
}

// SetBusy swaps the placeholder while a reply streams
func (e *Editor) SetBusy(busy bool) {
	if busy {
		e.input.Placeholder = placeholderBusy
	} else {
		e.input.Placeholder = placeholderIdle
	}
}

func (e *Editor) Focus() {
	e.focused = true
	e.input.Focus()
}

func (e *Editor) Blur() {
	e.focused = false
	e.input.Blur()
}

// Value is the submitted text: Draft without surrounding space
func (e *Editor) Value() string {
	return strings.TrimSpace(e.Draft())
}

// Draft is the text as typed, without leaked escape sequences
func (e *Editor) Draft() string {
	return cleanInput(e.input.Value())
}

func cleanInput(s string) string {
	if !strings.ContainsAny(s, "\x1b]") {
		return s
	}
	s = oscResponse.ReplaceAllString(s, "")
	return strings.ReplaceAll(s, "\x1b", "")
}

func (e *Editor) Reset() {
	e.input.Reset()
}

// SetValue replaces the text and puts the cursor after it
func (e *Editor) SetValue(s string) {
	e.input.SetValue(s)
	e.input.CursorEnd()
}

func (e *Editor) Update(msg tea.Msg) (*Editor, tea.Cmd) {
	var cmd tea.Cmd
	e.input, cmd = e.input.Update(msg)
	return e, cmd
}

func (e *Editor) View() string {
	border := theme.Current.Border
	if e.focused {
		border = theme.Current.BorderFocus
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1).
		Width(e.width - 2).
		Render(e.input.View())
}
