package tui

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/masaha03/chatgpt-app/internal/chat"
	"github.com/masaha03/chatgpt-app/internal/llm"
	"github.com/masaha03/chatgpt-app/internal/prompts"
	"github.com/masaha03/chatgpt-app/internal/store"
	"github.com/masaha03/chatgpt-app/internal/tui/components"
)

// cannedTransport streams the same reply to every request
type cannedTransport struct {
	deltas []string
}

func (c *cannedTransport) StreamCompletion(ctx context.Context, messages []llm.Message) (*llm.Decoder, error) {
	var b strings.Builder
	for _, d := range c.deltas {
		data, _ := json.Marshal(map[string]any{
			"choices": []map[string]any{{"index": 0, "delta": map[string]any{"content": d}}},
		})
		b.WriteString("data: " + string(data) + "\n\n")
	}
	b.WriteString("data: [DONE]\n\n")
	return llm.NewDecoder(io.NopCloser(strings.NewReader(b.String()))), nil
}

func (c *cannedTransport) Complete(ctx context.Context, messages []llm.Message) (string, error) {
	return "Greeting", nil
}

func newTestModel(t *testing.T) (Model, *chat.Session) {
	t.Helper()
	bridge := NewBridge()
	session, err := chat.NewSession(
		&cannedTransport{deltas: []string{"Hi", " there"}},
		store.NewMemory(),
		chat.WithObserver(bridge.Observe),
		chat.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	t.Cleanup(session.Close)

	m := New(context.Background(), session, bridge, Options{
		Version: "test",
		Model:   "gpt-test",
		Presets: prompts.NewRegistry(nil),
	})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(Model), session
}

// run executes a command and feeds its result back into the model
func run(t *testing.T, m Model, input string) Model {
	t.Helper()
	next, cmd := m.handleCommand(input)
	m = next.(Model)
	if cmd != nil {
		if done, ok := cmd().(sendDoneMsg); ok {
			next, _ = m.Update(done)
			m = next.(Model)
		}
	}
	next, _ = m.Update(snapshotMsg{snap: m.session.Snapshot()})
	return next.(Model)
}

func lastNotice(m Model) components.Notice {
	notices := m.messages.Notices()
	if len(notices) == 0 {
		return components.Notice{}
	}
	return notices[len(notices)-1]
}

func TestSplitCommand(t *testing.T) {
	tests := []struct {
		input, name, rest string
	}{
		{"/help", "/help", ""},
		{"/SYSTEM  Be brief. ", "/system", "Be brief."},
		{"/edit 2 new text here", "/edit", "2 new text here"},
	}
	for _, tt := range tests {
		name, rest := splitCommand(tt.input)
		if name != tt.name || rest != tt.rest {
			t.Errorf("splitCommand(%q) = (%q, %q), want (%q, %q)", tt.input, name, rest, tt.name, tt.rest)
		}
	}
}

func TestParseEdit(t *testing.T) {
	tests := []struct {
		rest    string
		n       int
		text    string
		wantErr bool
	}{
		{"1 Bye", 1, "Bye", false},
		{"3   spaced text ", 3, "spaced text", false},
		{"x Bye", 0, "", true},
		{"2", 0, "", true},
		{"0 system", 0, "", true},
	}
	for _, tt := range tests {
		n, text, err := parseEdit(tt.rest)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseEdit(%q) error = %v, wantErr %v", tt.rest, err, tt.wantErr)
			continue
		}
		if n != tt.n || text != tt.text {
			t.Errorf("parseEdit(%q) = (%d, %q), want (%d, %q)", tt.rest, n, text, tt.n, tt.text)
		}
	}
}

func TestBridgeKeepsLatest(t *testing.T) {
	b := NewBridge()
	for _, id := range []string{"a", "b", "c"} {
		b.Observe(chat.Snapshot{ActiveID: id})
	}

	msg := waitForSnapshot(b.ch)().(snapshotMsg)
	if msg.snap.ActiveID != "c" {
		t.Errorf("Expected latest snapshot, got %q", msg.snap.ActiveID)
	}
	select {
	case s := <-b.ch:
		t.Errorf("Expected no pending snapshot, got %q", s.ActiveID)
	default:
	}
}

func TestSendStreamsIntoActiveConversation(t *testing.T) {
	m, session := newTestModel(t)

	cmd := m.send("Hello")
	if cmd == nil {
		t.Fatal("send returned no command")
	}
	if done := cmd().(sendDoneMsg); done.err != nil {
		t.Fatalf("Send failed: %v", done.err)
	}
	next, _ := m.Update(snapshotMsg{snap: session.Snapshot()})
	m = next.(Model)

	msgs := m.snap.Active().Messages
	if len(msgs) != 3 || msgs[2].Content != "Hi there" {
		t.Fatalf("Unexpected messages %+v", msgs)
	}
	if m.status.Messages != 3 {
		t.Errorf("Expected status to count 3 messages, got %d", m.status.Messages)
	}
}

func TestSystemEditAndRetryCommands(t *testing.T) {
	m, session := newTestModel(t)
	if done := m.send("Hello")().(sendDoneMsg); done.err != nil {
		t.Fatal(done.err)
	}

	m = run(t, m, "/system Be brief.")
	msgs := session.Messages()
	if len(msgs) != 3 || msgs[0].Content != "Be brief." || msgs[1].Content != "Hello" {
		t.Fatalf("/system should only replace message 0, got %+v", msgs)
	}

	m = run(t, m, "/edit 1 Bye")
	msgs = session.Messages()
	if len(msgs) != 3 || msgs[1].Content != "Bye" || msgs[2].Content != "Hi there" {
		t.Fatalf("/edit should replay from message 1, got %+v", msgs)
	}

	m = run(t, m, "/retry")
	if msgs = session.Messages(); len(msgs) != 3 || msgs[1].Content != "Bye" {
		t.Fatalf("/retry should resend the last user message, got %+v", msgs)
	}

	m = run(t, m, "/edit 0 nope")
	if n := lastNotice(m); n.Kind != components.NoticeError {
		t.Errorf("Expected an error notice for /edit 0, got %+v", n)
	}

	m = run(t, m, "/edit 9 too far")
	if n := lastNotice(m); !strings.Contains(n.Content, "out of range") {
		t.Errorf("Expected an invalid index notice, got %+v", n)
	}
	if got := len(session.Messages()); got != 3 {
		t.Errorf("Out of range edit must not change the conversation, got %d messages", got)
	}
}

func TestChatManagementCommands(t *testing.T) {
	m, session := newTestModel(t)
	first := session.ActiveID()

	m = run(t, m, "/new")
	if got := len(session.Conversations()); got != 2 {
		t.Fatalf("Expected 2 chats after /new, got %d", got)
	}
	if session.ActiveID() == first {
		t.Error("/new should activate the new chat")
	}

	m = run(t, m, "/title Planning")
	if got := session.Active().Title; got != "Planning" {
		t.Errorf("Expected title 'Planning', got %q", got)
	}

	m = run(t, m, "/switch 2")
	if session.ActiveID() != first {
		t.Error("/switch 2 should open the older chat")
	}

	m = run(t, m, "/switch 7")
	if n := lastNotice(m); n.Kind != components.NoticeError {
		t.Errorf("Expected an error notice for /switch 7, got %+v", n)
	}

	m = run(t, m, "/delete")
	if got := len(session.Conversations()); got != 1 {
		t.Fatalf("Expected 1 chat after /delete, got %d", got)
	}

	m = run(t, m, "/delete")
	if n := lastNotice(m); !strings.Contains(n.Content, "cannot be deleted") {
		t.Errorf("Expected last-chat notice, got %+v", n)
	}
	if got := len(session.Conversations()); got != 1 {
		t.Errorf("The last chat must survive, got %d chats", got)
	}
}

func TestResetCommand(t *testing.T) {
	m, session := newTestModel(t)
	if done := m.send("Hello")().(sendDoneMsg); done.err != nil {
		t.Fatal(done.err)
	}
	m = run(t, m, "/system Be brief.")
	if got := len(session.Messages()); got != 3 {
		t.Fatalf("Expected 3 messages before /reset, got %d", got)
	}

	m = run(t, m, "/reset")
	msgs := session.Messages()
	if len(msgs) != 1 || msgs[0].Role != llm.RoleSystem || msgs[0].Content != chat.DefaultSystemPrompt {
		t.Fatalf("/reset should leave only the default system prompt, got %+v", msgs)
	}
	if m.status.Messages != 1 {
		t.Errorf("Expected status to count 1 message, got %d", m.status.Messages)
	}
	if got := len(session.Conversations()); got != 1 {
		t.Errorf("/reset must not create or delete chats, got %d", got)
	}
}

func TestPromptCommand(t *testing.T) {
	m, session := newTestModel(t)

	m = run(t, m, "/prompt concise")
	if got := session.Messages()[0].Content; got == chat.DefaultSystemPrompt || got == "" {
		t.Errorf("Expected the concise preset as system prompt, got %q", got)
	}

	m = run(t, m, "/prompt nosuchpreset")
	if n := lastNotice(m); n.Kind != components.NoticeError {
		t.Errorf("Expected an error notice for an unknown preset, got %+v", n)
	}
}

func TestUnknownCommand(t *testing.T) {
	m, _ := newTestModel(t)
	m = run(t, m, "/frobnicate")
	if n := lastNotice(m); !strings.Contains(n.Content, "Unknown command: /frobnicate") {
		t.Errorf("Unexpected notice %+v", n)
	}
}

func TestNoticesClearedOnSwitch(t *testing.T) {
	m, _ := newTestModel(t)
	m = run(t, m, "/chats")
	if len(m.messages.Notices()) != 1 {
		t.Fatalf("Expected /chats output, got %+v", m.messages.Notices())
	}
	m = run(t, m, "/new")
	if len(m.messages.Notices()) != 0 {
		t.Errorf("Notices should be cleared when the active chat changes")
	}
}

func TestViewRenders(t *testing.T) {
	m, _ := newTestModel(t)
	view := m.View()
	if !strings.Contains(view, "ChatGPT") {
		t.Error("Expected header in view")
	}
	if !strings.Contains(view, chat.DefaultTitle) {
		t.Error("Expected the chat title in view")
	}
}
