package cmd

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/masaha03/chatgpt-app/internal/chat"
	"github.com/masaha03/chatgpt-app/internal/llm"
	"github.com/masaha03/chatgpt-app/internal/mirror"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestResolveConversation(t *testing.T) {
	list := []chat.Conversation{
		{ID: "abc123"},
		{ID: "abd456"},
		{ID: "ab"},
	}

	tests := []struct {
		prefix  string
		want    string
		wantErr bool
	}{
		{"abc", "abc123", false},
		{"abd4", "abd456", false},
		{"ab", "ab", false}, // exact match wins over prefixes
		{"a", "", true},
		{"zzz", "", true},
	}
	for _, tt := range tests {
		got, err := resolveConversation(list, tt.prefix)
		if (err != nil) != tt.wantErr {
			t.Errorf("resolveConversation(%q) error = %v, wantErr %v", tt.prefix, err, tt.wantErr)
			continue
		}
		if got.ID != tt.want {
			t.Errorf("resolveConversation(%q) = %q, want %q", tt.prefix, got.ID, tt.want)
		}
	}

	if _, err := resolveConversation(list, "zzz"); !errors.Is(err, chat.ErrConversationNotFound) {
		t.Errorf("Expected ErrConversationNotFound, got %v", err)
	}
}

func TestAskText(t *testing.T) {
	text, err := askText([]string{"hello", "world"}, nil)
	if err != nil || text != "hello world" {
		t.Errorf("askText(args) = (%q, %v)", text, err)
	}

	text, err = askText(nil, strings.NewReader("  piped question\n"))
	if err != nil || text != "piped question" {
		t.Errorf("askText(stdin) = (%q, %v)", text, err)
	}

	if _, err := askText(nil, strings.NewReader("   ")); err == nil {
		t.Error("Expected an error for empty input")
	}
}

func snapshotWith(id string, msgs ...llm.Message) chat.Snapshot {
	return chat.Snapshot{
		Conversations: []chat.Conversation{{ID: id, Messages: msgs}},
		ActiveID:      id,
	}
}

func TestStreamPrinterPrintsDeltasOnce(t *testing.T) {
	var out bytes.Buffer
	p := &streamPrinter{out: &out}

	sys := llm.Message{Role: llm.RoleSystem, Content: "sys"}
	user := llm.Message{Role: llm.RoleUser, Content: "Hello"}

	// before expect nothing is printed
	p.Observe(snapshotWith("c1", sys, user, llm.Message{Role: llm.RoleAssistant, Content: "old"}))

	p.expect("c1", 2)
	p.Observe(snapshotWith("c1", sys, user))
	p.Observe(snapshotWith("c1", sys, user, llm.Message{Role: llm.RoleAssistant, Content: "Hi"}))
	p.Observe(snapshotWith("c1", sys, user, llm.Message{Role: llm.RoleAssistant, Content: "Hi"}))
	p.Observe(snapshotWith("other", sys, user, llm.Message{Role: llm.RoleAssistant, Content: "nope"}))
	p.Observe(snapshotWith("c1", sys, user, llm.Message{Role: llm.RoleAssistant, Content: "Hi there"}))

	if got := out.String(); got != "Hi there" {
		t.Errorf("Expected %q, got %q", "Hi there", got)
	}
}

func TestWatchPrinterStreamsIncrementally(t *testing.T) {
	var out bytes.Buffer
	p := newWatchPrinter(&out)

	sys := llm.Message{Role: llm.RoleSystem, Content: "sys"}
	user := llm.Message{Role: llm.RoleUser, Content: "Hello"}
	update := func(running bool, msgs ...llm.Message) mirror.ConversationUpdate {
		return mirror.ConversationUpdate{ConversationID: "c1", Title: "Greeting", Messages: msgs, Running: running}
	}

	p.Conversation(update(true, sys, user))
	p.Conversation(update(true, sys, user, llm.Message{Role: llm.RoleAssistant, Content: "Hi"}))
	p.Conversation(update(true, sys, user, llm.Message{Role: llm.RoleAssistant, Content: "Hi there"}))
	p.Conversation(update(false, sys, user, llm.Message{Role: llm.RoleAssistant, Content: "Hi there"}))

	got := out.String()
	if strings.Count(got, "== Greeting") != 1 {
		t.Errorf("Expected one header, got %q", got)
	}
	if strings.Count(got, "Hi") != 1 || !strings.Contains(got, "Hi there\n") {
		t.Errorf("Expected the reply printed once, got %q", got)
	}
	if strings.Count(got, "[ChatGPT]") != 1 {
		t.Errorf("Expected one assistant label, got %q", got)
	}
}

func TestWatchPrinterReprintsAfterEdit(t *testing.T) {
	var out bytes.Buffer
	p := newWatchPrinter(&out)

	sys := llm.Message{Role: llm.RoleSystem, Content: "sys"}
	p.Conversation(mirror.ConversationUpdate{
		ConversationID: "c1",
		Messages: []llm.Message{
			sys,
			{Role: llm.RoleUser, Content: "Hello"},
			{Role: llm.RoleAssistant, Content: "Hi"},
		},
	})
	p.Conversation(mirror.ConversationUpdate{
		ConversationID: "c1",
		Messages:       []llm.Message{sys, {Role: llm.RoleUser, Content: "Bye"}},
		Running:        true,
	})

	got := out.String()
	if !strings.Contains(got, "was edited") || !strings.Contains(got, "Bye") {
		t.Errorf("Expected the edited conversation to be reprinted, got %q", got)
	}
}

func TestWatchPrinterReportsErrors(t *testing.T) {
	var out bytes.Buffer
	p := newWatchPrinter(&out)

	u := mirror.ConversationUpdate{
		ConversationID: "c1",
		Messages:       []llm.Message{{Role: llm.RoleSystem, Content: "sys"}},
		ErrorMessage:   "API error (HTTP 401): bad key",
	}
	p.Conversation(u)
	p.Conversation(u)

	if n := strings.Count(out.String(), "bad key"); n != 1 {
		t.Errorf("Expected the error once, got %d in %q", n, out.String())
	}
}

func TestFormatTranscript(t *testing.T) {
	got := formatTranscript(chat.Conversation{
		Title: "Greeting",
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "sys"},
			{Role: llm.RoleUser, Content: "Hello"},
			{Role: llm.RoleAssistant, Content: "Hi"},
		},
	})
	for _, want := range []string{"# Greeting", "**System**", "**You**", "**ChatGPT**", "Hi"} {
		if !strings.Contains(got, want) {
			t.Errorf("Expected %q in transcript %q", want, got)
		}
	}
}

func TestLookupKeyAcceptsAliases(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"openai", "openai_api_key"},
		{"OPENAI_API_KEY", "openai_api_key"},
		{"model", "default_model"},
		{"nats", "nats_url"},
		{"theme", "theme"},
	}
	for _, tt := range tests {
		k, ok := lookupKey(tt.input)
		if !ok || k.name != tt.want {
			t.Errorf("lookupKey(%q) = (%q, %v), want %q", tt.input, k.name, ok, tt.want)
		}
	}
	if _, ok := lookupKey("colour"); ok {
		t.Error("Expected lookupKey to reject an unknown key")
	}
}

func TestConfigKeysBelongToGroups(t *testing.T) {
	groups := make(map[string]bool)
	for _, g := range configGroups {
		groups[g] = true
	}
	for _, k := range configKeys {
		if !groups[k.group] {
			t.Errorf("Key %s has unknown group %q", k.name, k.group)
		}
	}

	help := keyHelp()
	for _, want := range []string{"Provider:", "Mirror:", "openai (openai_api_key)", "store"} {
		if !strings.Contains(help, want) {
			t.Errorf("Expected %q in key help:\n%s", want, help)
		}
	}
}

func TestWriteConfigGroupsValues(t *testing.T) {
	var out bytes.Buffer
	writeConfig(&out, map[string]string{
		"openai_api_key": "sk-1...cdef",
		"nats_url":       "nats://localhost:4222",
		"default_model":  "gpt-4o",
	})

	got := out.String()
	if strings.Contains(got, "[store]") || strings.Contains(got, "[display]") {
		t.Errorf("Groups without values should be skipped, got %q", got)
	}
	provider := strings.Index(got, "[provider]")
	chatGroup := strings.Index(got, "[chat]")
	mirrorGroup := strings.Index(got, "[mirror]")
	if provider < 0 || chatGroup < provider || mirrorGroup < chatGroup {
		t.Errorf("Expected provider, chat, mirror in order, got %q", got)
	}
	if !strings.Contains(got, "nats://localhost:4222") {
		t.Errorf("Expected the NATS URL, got %q", got)
	}
}
