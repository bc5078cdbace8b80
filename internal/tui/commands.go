package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/masaha03/chatgpt-app/internal/chat"
	"github.com/masaha03/chatgpt-app/internal/config"
	"github.com/masaha03/chatgpt-app/internal/llm"
	"github.com/masaha03/chatgpt-app/internal/tui/components"
)

// splitCommand separates "/name rest of line" into its lowercased name and
// the untouched remainder
func splitCommand(input string) (name, rest string) {
	input = strings.TrimSpace(input)
	name, rest, _ = strings.Cut(input, " ")
	return strings.ToLower(name), strings.TrimSpace(rest)
}

var errEditUsage = errors.New("usage: /edit <n> <text>")

// parseEdit parses "<n> <text>" for /edit
func parseEdit(rest string) (int, string, error) {
	num, text, _ := strings.Cut(rest, " ")
	n, err := strconv.Atoi(num)
	if err != nil {
		return 0, "", errEditUsage
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, "", errEditUsage
	}
	if n == 0 {
		return 0, "", errors.New("message #0 is the system prompt; use /system <text>")
	}
	return n, text, nil
}

// lastUserIndex returns the index of the last user message, or -1
func lastUserIndex(msgs []llm.Message) int {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == llm.RoleUser {
			return i
		}
	}
	return -1
}

func (m Model) info(text string) (tea.Model, tea.Cmd) {
	m.messages.AddNotice(components.NoticeInfo, text)
	return m, nil
}

func (m Model) fail(text string) (tea.Model, tea.Cmd) {
	m.messages.AddNotice(components.NoticeError, text)
	return m, nil
}

// handleCommand processes slash commands
func (m Model) handleCommand(input string) (tea.Model, tea.Cmd) {
	cmd, rest := splitCommand(input)

	switch cmd {
	case "/help":
		m.showHelp = true
		return m, nil

	case "/quit", "/exit", "/q":
		return m, tea.Quit

	case "/clear":
		m.messages.ClearNotices()
		return m, nil

	case "/new":
		m.session.CreateNewChat()
		m.apply(m.session.Snapshot())
		return m, nil

	case "/chats":
		var sb strings.Builder
		sb.WriteString("Chats:\n")
		for i, c := range m.snap.Conversations {
			marker := " "
			if c.ID == m.snap.ActiveID {
				marker = "*"
			}
			sb.WriteString(fmt.Sprintf("  %s %d. %s (%d messages)\n", marker, i+1, c.Title, len(c.Messages)))
		}
		sb.WriteString("\nUse /switch <n> to open a chat.")
		return m.info(sb.String())

	case "/switch":
		n, err := strconv.Atoi(rest)
		if err != nil || n < 1 || n > len(m.snap.Conversations) {
			return m.fail(fmt.Sprintf("Usage: /switch <n> (1-%d)", len(m.snap.Conversations)))
		}
		m.switchTo(m.snap.Conversations[n-1].ID)
		return m, nil

	case "/delete":
		if err := m.session.DeleteChat(m.snap.ActiveID); err != nil {
			return m.fail(describeError(err))
		}
		m.apply(m.session.Snapshot())
		return m, nil

	case "/title":
		m.session.SetTitle(rest)
		m.apply(m.session.Snapshot())
		return m, nil

	case "/system":
		if rest == "" {
			return m.info("System prompt:\n" + m.snap.Active().Messages[0].Content)
		}
		return m, m.send(rest, 0)

	case "/edit":
		n, text, err := parseEdit(rest)
		if err != nil {
			return m.fail(err.Error())
		}
		return m, m.send(text, n)

	case "/retry":
		msgs := m.snap.Active().Messages
		i := lastUserIndex(msgs)
		if i < 0 {
			return m.fail("Nothing to retry.")
		}
		return m, m.send(msgs[i].Content, i)

	case "/reset":
		if m.snap.Running && m.snap.RunningID == m.snap.ActiveID {
			return m.fail(describeError(chat.ErrSendInFlight))
		}
		// back to the default system prompt alone
		if err := m.session.SetMessages(nil); err != nil {
			return m.fail(describeError(err))
		}
		m.messages.ClearNotices()
		m.apply(m.session.Snapshot())
		return m, nil

	case "/prompt":
		if m.presets == nil {
			return m.fail("Presets are not available.")
		}
		if rest == "" {
			return m.fail("Usage: /prompt <name> (see /prompts)")
		}
		p, err := m.presets.Get(rest)
		if err != nil {
			return m.fail(err.Error())
		}
		return m, m.send(p.Prompt, 0)

	case "/prompts":
		if m.presets == nil {
			return m.fail("Presets are not available.")
		}
		if err := m.presets.Refresh(); err != nil {
			return m.fail(fmt.Sprintf("Failed to load presets: %v", err))
		}
		var sb strings.Builder
		sb.WriteString("System prompt presets:\n")
		for _, p := range m.presets.List() {
			sb.WriteString(fmt.Sprintf("  %-12s %s\n", p.Name, p.Description))
		}
		sb.WriteString("\nUse /prompt <name> to apply one.")
		return m.info(sb.String())

	case "/cancel", "/stop":
		if !m.snap.Running {
			return m.info("Nothing is running.")
		}
		m.session.Cancel()
		return m, nil

	case "/config":
		return m.handleConfig(rest)

	default:
		return m.fail("Unknown command: " + cmd + "\nType /help for available commands.")
	}
}

// handleConfig implements /config, /config set and /config delete
func (m Model) handleConfig(rest string) (tea.Model, tea.Cmd) {
	parts := strings.Fields(rest)
	if len(parts) == 0 {
		keys := config.ListKeys()
		var sb strings.Builder
		sb.WriteString("Configuration:\n")
		sb.WriteString(fmt.Sprintf("  Config file: %s\n\n", config.ConfigPath()))
		if len(keys) == 0 {
			sb.WriteString("  No keys configured.\n")
		}
		for _, k := range config.SortedKeys(keys) {
			sb.WriteString(fmt.Sprintf("  %s: %s\n", k, keys[k]))
		}
		sb.WriteString("\nUsage:\n")
		sb.WriteString("  /config set <key> <value>  - Set a config value\n")
		sb.WriteString("  /config delete <key>       - Delete a config value\n")
		sb.WriteString("\nChanges to provider, model, and store apply on the next start.")
		return m.info(sb.String())
	}

	switch strings.ToLower(parts[0]) {
	case "set":
		if len(parts) < 3 {
			return m.fail("Usage: /config set <key> <value>")
		}
		if err := config.Set(parts[1], strings.Join(parts[2:], " ")); err != nil {
			return m.fail(fmt.Sprintf("Failed to set config: %v", err))
		}
		return m.info(fmt.Sprintf("Set %s successfully.", parts[1]))

	case "delete", "remove", "unset":
		if len(parts) < 2 {
			return m.fail("Usage: /config delete <key>")
		}
		if err := config.Delete(parts[1]); err != nil {
			return m.fail(fmt.Sprintf("Failed to delete config: %v", err))
		}
		return m.info(fmt.Sprintf("Deleted %s.", parts[1]))

	default:
		return m.fail("Unknown config subcommand: " + parts[0] + "\nUse: set, delete")
	}
}
