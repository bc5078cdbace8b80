package components

import (
	"testing"

	"github.com/masaha03/chatgpt-app/internal/chat"
	"github.com/masaha03/chatgpt-app/internal/prompts"
)

func TestCleanInput(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"hello", "hello"},
		{"hello]11;rgb:1a1a/1a1a/1a1a\x07", "hello"},
		{"\x1b]11;rgb:0000/0000/0000\x1b\\hi", "hi"},
		{"see [1] and [2]", "see [1] and [2]"},
	}
	for _, tt := range tests {
		if got := cleanInput(tt.in); got != tt.want {
			t.Errorf("cleanInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSuggestionsFilter(t *testing.T) {
	s := NewSuggestions()
	s.SetPresetProvider(prompts.NewRegistry(nil))

	s.Filter("hello")
	if s.IsVisible() {
		t.Error("Suggestions should be hidden for plain text")
	}

	s.Filter("/sy")
	if got := s.GetSelected().Name; got != "/system" {
		t.Errorf("Expected /system, got %q", got)
	}

	s.Filter("/prompt co")
	if got := s.GetSelected().Name; got != "/prompt concise" {
		t.Errorf("Expected preset completion, got %q", got)
	}

	s.Filter("/edit 1 ")
	if s.IsVisible() {
		t.Error("Suggestions should hide once arguments are typed")
	}
}

func TestSidebarNeighborWraps(t *testing.T) {
	s := NewSidebar(24, 20)
	s.SetSnapshot(chat.Snapshot{
		Conversations: []chat.Conversation{{ID: "a", Title: "A"}, {ID: "b", Title: "B"}, {ID: "c", Title: "C"}},
		ActiveID:      "a",
		Running:       true,
		RunningID:     "c",
	})

	if got := s.Neighbor(-1); got != "c" {
		t.Errorf("Neighbor(-1) = %q, want c", got)
	}
	if got := s.Neighbor(1); got != "b" {
		t.Errorf("Neighbor(1) = %q, want b", got)
	}
	if items := s.Items(); !items[2].Running || items[0].Running {
		t.Errorf("Only the streaming chat should be marked running: %+v", items)
	}

	s.SetFocused(true)
	s.MoveDown()
	s.MoveDown()
	s.MoveDown()
	if got := s.Selected(); got != "c" {
		t.Errorf("Selection should stop at the last chat, got %q", got)
	}
}

func TestTruncateWidth(t *testing.T) {
	if got := truncateWidth("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}
	if got := truncateWidth("a much longer title", 8); got != "a much …" {
		t.Errorf("got %q", got)
	}
	if got := truncateWidth("anything", 0); got != "" {
		t.Errorf("got %q", got)
	}
}
