package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/masaha03/chatgpt-app/internal/llm"
	"github.com/masaha03/chatgpt-app/internal/tui/layout"
	"github.com/masaha03/chatgpt-app/internal/tui/theme"
)

const maxCachedRenders = 256

// NoticeKind classifies local output that is not part of the conversation
type NoticeKind int

const (
	NoticeInfo NoticeKind = iota
	NoticeError
)

// Notice is command output shown below the conversation
type Notice struct {
	Kind    NoticeKind
	Content string
}

// Messages is the scrollable transcript of the active conversation
type Messages struct {
	viewport  viewport.Model
	messages  []llm.Message
	notices   []Notice
	errorText string
	streaming bool
	renderer  *glamour.TermRenderer
	rendered  map[string]string // markdown cache keyed by source
	width     int
	height    int
}

// NewMessages creates a new messages component
func NewMessages(width, height int) *Messages {
	m := &Messages{
		viewport: viewport.New(width, height),
		width:    width,
		height:   height,
	}
	m.newRenderer()
	return m
}

func (m *Messages) newRenderer() {
	// An explicit style avoids querying the terminal for its background
	m.renderer, _ = glamour.NewTermRenderer(
		glamour.WithStandardStyle(theme.GlamourStyle()),
		glamour.WithWordWrap(m.width-8),
	)
	m.rendered = make(map[string]string)
}

// SetSize updates the component dimensions
func (m *Messages) SetSize(width, height int) {
	resized := width != m.width
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
	if resized {
		m.newRenderer()
	}
	m.updateContent()
}

// SetConversation replaces the displayed messages. streaming marks the last
// assistant message as still being received.
func (m *Messages) SetConversation(msgs []llm.Message, streaming bool) {
	m.messages = msgs
	m.streaming = streaming
	m.updateContent()
}

// SetError shows the error of the last failed send, empty hides it
func (m *Messages) SetError(text string) {
	m.errorText = text
	m.updateContent()
}

// AddNotice appends local output below the conversation
func (m *Messages) AddNotice(kind NoticeKind, content string) {
	m.notices = append(m.notices, Notice{Kind: kind, Content: content})
	m.updateContent()
}

// ClearNotices removes all local output
func (m *Messages) ClearNotices() {
	m.notices = nil
	m.updateContent()
}

// Notices returns the local output currently shown
func (m *Messages) Notices() []Notice {
	return m.notices
}

// GetViewport returns the viewport for handling scroll input
func (m *Messages) GetViewport() *viewport.Model {
	return &m.viewport
}

// markdown renders src, caching the result unless the message is still
// streaming
func (m *Messages) markdown(src string, cache bool) string {
	if out, ok := m.rendered[src]; ok {
		return out
	}
	out := src
	if m.renderer != nil {
		if r, err := m.renderer.Render(src); err == nil {
			out = strings.TrimSpace(r)
		}
	}
	if cache {
		if len(m.rendered) >= maxCachedRenders {
			m.rendered = make(map[string]string)
		}
		m.rendered[src] = out
	}
	return out
}

// updateContent rebuilds the viewport content
func (m *Messages) updateContent() {
	t := theme.Current
	contentWidth := m.width - 4

	var sb strings.Builder

	if len(m.messages) <= 1 && len(m.notices) == 0 {
		sb.WriteString(m.welcome())
	}

	indexStyle := lipgloss.NewStyle().Foreground(t.TextMuted)
	for i, msg := range m.messages {
		index := indexStyle.Render(fmt.Sprintf(" #%d", i))

		switch msg.Role {
		case llm.RoleSystem:
			label := lipgloss.NewStyle().Foreground(t.TextMuted).Bold(true).Render("System")
			body := lipgloss.NewStyle().Foreground(t.TextMuted).Italic(true).
				PaddingLeft(2).Width(contentWidth).Render(msg.Content)
			sb.WriteString(label + index + "\n" + body + "\n\n")

		case llm.RoleUser:
			label := lipgloss.NewStyle().Foreground(t.User).Bold(true).Render("You")
			body := layout.Gutter(t.User).Foreground(t.Text).
				Width(contentWidth).Render(msg.Content)
			sb.WriteString(label + index + "\n" + body + "\n\n")

		case llm.RoleAssistant:
			live := m.streaming && i == len(m.messages)-1
			label := lipgloss.NewStyle().Foreground(t.Primary).Bold(true).Render("ChatGPT")
			body := lipgloss.NewStyle().Foreground(t.Text).PaddingLeft(2).
				Width(contentWidth).Render(m.markdown(msg.Content, !live))
			if live {
				body += lipgloss.NewStyle().Foreground(t.Primary).Bold(true).Render("▌")
			}
			sb.WriteString(label + index + "\n" + body + "\n\n")
		}
	}

	if m.errorText != "" {
		icon := lipgloss.NewStyle().Foreground(t.Error).Bold(true).Render("✗")
		text := lipgloss.NewStyle().Foreground(t.Error).Width(contentWidth - 2).Render(m.errorText)
		sb.WriteString(icon + " " + text + "\n\n")
	}

	for _, n := range m.notices {
		switch n.Kind {
		case NoticeError:
			icon := lipgloss.NewStyle().Foreground(t.Error).Bold(true).Render("✗")
			sb.WriteString(icon + " " + lipgloss.NewStyle().Foreground(t.Error).Render(n.Content) + "\n\n")
		default:
			icon := lipgloss.NewStyle().Foreground(t.Secondary).Render("ℹ")
			sb.WriteString(icon + " " + lipgloss.NewStyle().Foreground(t.TextMuted).Render(n.Content) + "\n\n")
		}
	}

	m.viewport.SetContent(sb.String())
	m.viewport.GotoBottom()
}

func (m *Messages) welcome() string {
	t := theme.Current
	var sb strings.Builder

	title := lipgloss.NewStyle().Foreground(t.Primary).Bold(true)
	sb.WriteString(title.Render("  How can I help you today?") + "\n\n")

	tipStyle := lipgloss.NewStyle().Foreground(t.TextMuted)
	keyStyle := lipgloss.NewStyle().Foreground(t.Accent).Width(18)
	tips := []struct{ key, text string }{
		{"enter", "send the message"},
		{"/system <text>", "change the system prompt"},
		{"/edit <n> <text>", "rewrite message #n and replay"},
		{"ctrl+n", "start a new chat"},
		{"/help", "all commands and shortcuts"},
	}
	for _, tip := range tips {
		sb.WriteString("  " + keyStyle.Render(tip.key) + tipStyle.Render(tip.text) + "\n")
	}
	return sb.String() + "\n"
}

// View renders the messages
func (m *Messages) View() string {
	return m.viewport.View()
}
