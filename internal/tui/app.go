package tui

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/masaha03/chatgpt-app/internal/chat"
	"github.com/masaha03/chatgpt-app/internal/prompts"
	"github.com/masaha03/chatgpt-app/internal/tui/components"
	"github.com/masaha03/chatgpt-app/internal/tui/layout"
	"github.com/masaha03/chatgpt-app/internal/tui/theme"
)

const (
	headerHeight = 2
	statusHeight = 1
	editorHeight = 5
)

// sendDoneMsg reports the end of a Send call
type sendDoneMsg struct {
	err error
}

// Options configures the TUI
type Options struct {
	Version  string
	Model    string
	Store    string
	Mirrored bool
	Presets  *prompts.Registry
}

// Model is the main TUI model
type Model struct {
	ctx     context.Context
	session *chat.Session
	bridge  *Bridge
	presets *prompts.Registry

	header      *components.Header
	sidebar     *components.Sidebar
	messages    *components.Messages
	editor      *components.Editor
	status      *components.Status
	help        *components.HelpDialog
	suggestions *components.Suggestions
	spinner     spinner.Model

	layout *layout.SplitPane

	snap     chat.Snapshot
	width    int
	height   int
	ready    bool
	showHelp bool
	spinning bool
}

// New creates the TUI for a session. bridge must be registered as an
// observer of the session.
func New(ctx context.Context, session *chat.Session, bridge *Bridge, opts Options) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	status := components.NewStatus(80)
	status.Model = opts.Model
	status.Store = opts.Store
	status.Mirrored = opts.Mirrored

	suggestions := components.NewSuggestions()
	if opts.Presets != nil {
		suggestions.SetPresetProvider(opts.Presets)
	}

	version := opts.Version
	if version == "" {
		version = "dev"
	}

	return Model{
		ctx:         ctx,
		session:     session,
		bridge:      bridge,
		presets:     opts.Presets,
		header:      components.NewHeader(80, version),
		status:      status,
		help:        components.NewHelpDialog(),
		suggestions: suggestions,
		spinner:     sp,
		snap:        session.Snapshot(),
	}
}

// Init initializes the TUI
func (m Model) Init() tea.Cmd {
	return waitForSnapshot(m.bridge.ch)
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.showHelp {
			m.showHelp = false
			return m, nil
		}
		if !m.ready {
			return m, nil
		}
		if m.sidebar.IsFocused() {
			if next, cmd, handled := m.handleSidebarKey(msg); handled {
				return next, cmd
			}
		}

		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "ctrl+?", "ctrl+h":
			m.showHelp = !m.showHelp
			return m, nil

		case "esc":
			switch {
			case m.suggestions.IsVisible():
				m.suggestions.Hide()
			case m.snap.Running:
				m.session.Cancel()
			}
			return m, nil

		case "ctrl+n":
			m.session.CreateNewChat()
			m.apply(m.session.Snapshot())
			return m, nil

		case "ctrl+up", "ctrl+k":
			m.switchTo(m.sidebar.Neighbor(-1))
			return m, nil

		case "ctrl+down", "ctrl+j":
			m.switchTo(m.sidebar.Neighbor(1))
			return m, nil

		case "ctrl+b":
			m.setSidebarFocus(true)
			return m, nil

		case "ctrl+s":
			m.layout.Toggle()
			m.resize()
			return m, nil

		case "tab":
			if m.suggestions.IsVisible() {
				if sel := m.suggestions.GetSelected(); sel.Name != "" {
					completion := sel.Name
					if sel.Args != "" {
						completion += " "
					}
					m.editor.SetValue(completion)
					m.suggestions.Filter(m.editor.Draft())
				}
				return m, nil
			}

		case "up":
			if m.suggestions.IsVisible() {
				m.suggestions.MoveUp()
				return m, nil
			}

		case "down":
			if m.suggestions.IsVisible() {
				m.suggestions.MoveDown()
				return m, nil
			}

		case "enter":
			input := m.editor.Value()
			if m.suggestions.IsVisible() {
				// a bare command picked from the list runs directly
				if sel := m.suggestions.GetSelected(); sel.Name != "" && sel.Args == "" && input != sel.Name {
					input = sel.Name
				}
			}
			if input == "" {
				return m, nil
			}
			m.editor.Reset()
			m.suggestions.Hide()
			if input[0] == '/' {
				return m.handleCommand(input)
			}
			return m, m.send(input)

		case "pgup", "pgdown":
			vp := m.messages.GetViewport()
			var cmd tea.Cmd
			*vp, cmd = vp.Update(msg)
			return m, cmd
		}

		var cmd tea.Cmd
		m.editor, cmd = m.editor.Update(msg)
		cmds = append(cmds, cmd)
		m.suggestions.Filter(m.editor.Draft())

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.layout = layout.NewSplitPane(msg.Width, m.bodyHeight())
			m.sidebar = components.NewSidebar(m.layout.SidebarWidth(), m.bodyHeight())
			m.messages = components.NewMessages(m.layout.MainWidth(), m.bodyHeight()-editorHeight)
			m.editor = components.NewEditor(m.layout.MainWidth(), editorHeight)
			// drop anything the terminal sent before the program started
			m.editor.Reset()
			m.ready = true
			m.apply(m.snap)
		}
		m.resize()

	case snapshotMsg:
		if m.ready {
			m.apply(msg.snap)
		} else {
			m.snap = msg.snap
		}
		cmds = append(cmds, waitForSnapshot(m.bridge.ch))
		if m.snap.Running && !m.spinning {
			m.spinning = true
			cmds = append(cmds, m.spinner.Tick)
		}

	case sendDoneMsg:
		if msg.err != nil && m.ready {
			m.messages.AddNotice(components.NoticeError, describeError(msg.err))
		}

	case spinner.TickMsg:
		if !m.snap.Running {
			m.spinning = false
			break
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.status.Spinner = m.spinner.View()
		cmds = append(cmds, cmd)

	}

	return m, tea.Batch(cmds...)
}

func (m Model) bodyHeight() int {
	h := m.height - headerHeight - statusHeight
	if h < editorHeight+1 {
		h = editorHeight + 1
	}
	return h
}

func (m *Model) resize() {
	body := m.bodyHeight()
	m.layout.SetSize(m.width, body)
	m.header.SetWidth(m.width)
	m.status.SetWidth(m.width)
	m.sidebar.SetSize(m.layout.SidebarWidth(), body)
	m.messages.SetSize(m.layout.MainWidth(), body-editorHeight)
	m.editor.SetSize(m.layout.MainWidth(), editorHeight)
	m.suggestions.SetWidth(m.layout.MainWidth())
}

// apply renders a session snapshot
func (m *Model) apply(snap chat.Snapshot) {
	prevActive := m.snap.ActiveID
	m.snap = snap
	active := snap.Active()

	if active.ID != prevActive {
		m.messages.ClearNotices()
	}
	m.messages.SetConversation(active.Messages, snap.Running && snap.RunningID == active.ID)
	m.messages.SetError(snap.ErrorMessage)
	m.sidebar.SetSnapshot(snap)
	m.header.SetTitle(active.Title)
	m.status.Running = snap.Running
	m.status.Messages = len(active.Messages)
	m.editor.SetBusy(snap.Running)
}

func (m *Model) switchTo(id string) {
	if id == "" || id == m.snap.ActiveID {
		return
	}
	if err := m.session.SetActive(id); err != nil {
		m.messages.AddNotice(components.NoticeError, describeError(err))
		return
	}
	m.apply(m.session.Snapshot())
}

func (m *Model) setSidebarFocus(focused bool) {
	if focused && !m.layout.SidebarVisible() {
		m.layout.ShowSidebar = true
		m.resize()
	}
	m.sidebar.SetFocused(focused)
	if focused {
		m.editor.Blur()
	} else {
		m.editor.Focus()
	}
}

// handleSidebarKey handles keys while the chat list has focus
func (m Model) handleSidebarKey(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	switch msg.String() {
	case "up", "k":
		m.sidebar.MoveUp()
	case "down", "j":
		m.sidebar.MoveDown()
	case "enter":
		m.switchTo(m.sidebar.Selected())
		m.setSidebarFocus(false)
	case "d", "delete":
		if err := m.session.DeleteChat(m.sidebar.Selected()); err != nil {
			m.messages.AddNotice(components.NoticeError, describeError(err))
		}
		m.apply(m.session.Snapshot())
	case "n":
		m.session.CreateNewChat()
		m.apply(m.session.Snapshot())
	case "esc", "ctrl+b", "tab":
		m.setSidebarFocus(false)
	default:
		return m, nil, false
	}
	return m, nil, true
}

// send runs Session.Send off the update loop; progress arrives as snapshots
func (m Model) send(text string, at ...int) tea.Cmd {
	systemEdit := len(at) > 0 && at[0] == 0 && m.snap.RunningID != m.snap.ActiveID
	if m.snap.Running && !systemEdit {
		m.messages.AddNotice(components.NoticeError, describeError(chat.ErrSendInFlight))
		return nil
	}
	session, ctx := m.session, m.ctx
	return func() tea.Msg {
		return sendDoneMsg{err: session.Send(ctx, text, at...)}
	}
}

// describeError turns session errors into user-facing text
func describeError(err error) string {
	switch {
	case errors.Is(err, chat.ErrSendInFlight):
		return "A reply is still streaming. Press esc to stop it first."
	case errors.Is(err, chat.ErrLastConversation):
		return "The last chat cannot be deleted."
	case errors.Is(err, chat.ErrInvalidIndex):
		return err.Error()
	}
	return "Error: " + err.Error()
}

// View renders the TUI
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	t := theme.Current

	suggestions := ""
	if m.suggestions.IsVisible() {
		suggestions = m.suggestions.View()
	}

	messagesHeight := m.bodyHeight() - editorHeight
	if suggestions != "" {
		messagesHeight -= lipgloss.Height(suggestions)
	}
	if messagesHeight < 0 {
		messagesHeight = 0
	}
	messagesView := lipgloss.NewStyle().
		Height(messagesHeight).
		MaxHeight(messagesHeight).
		Render(m.messages.View())

	column := []string{messagesView}
	if suggestions != "" {
		column = append(column, suggestions)
	}
	column = append(column, m.editor.View())
	main := lipgloss.JoinVertical(lipgloss.Left, column...)

	view := lipgloss.JoinVertical(
		lipgloss.Left,
		m.header.View(),
		m.layout.Render(m.sidebar.View(), main),
		m.status.View(),
	)

	if m.showHelp {
		view = components.PlaceOverlay(m.help.View(), m.width, m.height)
	}

	return lipgloss.NewStyle().
		Background(t.Background).
		Width(m.width).
		Height(m.height).
		Render(view)
}
