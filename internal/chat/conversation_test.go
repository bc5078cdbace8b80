package chat

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/masaha03/chatgpt-app/internal/llm"
)

func TestNewConversation(t *testing.T) {
	c := NewConversation("")

	if c.ID == "" {
		t.Error("ID should be generated")
	}
	if c.Title != DefaultTitle {
		t.Errorf("Title = %q, want %q", c.Title, DefaultTitle)
	}
	if c.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
	if len(c.Messages) != 1 || c.Messages[0] != (llm.Message{Role: llm.RoleSystem, Content: DefaultSystemPrompt}) {
		t.Errorf("Messages = %+v, want the default system prompt", c.Messages)
	}
	if NewConversation("").ID == c.ID {
		t.Error("ids should be unique")
	}
}

func TestWithDefaultsKeepsPresentFields(t *testing.T) {
	created := time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC)
	msgs := []llm.Message{{Role: llm.RoleSystem, Content: "custom"}}

	c := WithDefaults(Conversation{ID: "x", Messages: msgs, CreatedAt: created, Title: "Kept"}, "ignored")
	if c.ID != "x" || c.Title != "Kept" || !c.CreatedAt.Equal(created) || c.Messages[0].Content != "custom" {
		t.Errorf("WithDefaults() = %+v, should keep present fields", c)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		msgs    []llm.Message
		wantErr bool
	}{
		{"system only", []llm.Message{{Role: "system", Content: "s"}}, false},
		{"full exchange", []llm.Message{{Role: "system"}, {Role: "user"}, {Role: "assistant"}}, false},
		{"empty", nil, true},
		{"user first", []llm.Message{{Role: "user", Content: "hi"}}, true},
		{"unknown role", []llm.Message{{Role: "system"}, {Role: "tool"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Conversation{ID: "id", Messages: tt.msgs}.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidConversation) {
				t.Errorf("Validate() error = %v, want ErrInvalidConversation", err)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	list, err := Normalize(nil, "p")
	if err != nil || len(list) != 1 || list[0].Messages[0].Content != "p" {
		t.Fatalf("Normalize(nil) = %+v, %v", list, err)
	}

	list, err = Normalize([]Conversation{{}, {Title: "b"}}, "")
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if len(list) != 2 || list[1].Title != "b" || list[0].ID == list[1].ID {
		t.Errorf("Normalize() = %+v", list)
	}

	if _, err := Normalize([]Conversation{{ID: "same"}, {ID: "same"}}, ""); err == nil {
		t.Error("Normalize() should reject duplicate ids")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	c := NewConversation("")
	cp := c.Clone()
	cp.Messages[0].Content = "changed"
	if c.Messages[0].Content == "changed" {
		t.Error("Clone() should not share message storage")
	}
}

func TestCleanTitle(t *testing.T) {
	long := strings.Repeat("word ", 30)

	tests := []struct {
		in   string
		want string
	}{
		{"Greeting", "Greeting"},
		{"  \"Go basics\"  ", "Go basics"},
		{"Title: Weather in Tokyo.", "Weather in Tokyo"},
		{"\n\nFirst line\nSecond line", "First line"},
		{"「挨拶」", "挨拶"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := cleanTitle(tt.in); got != tt.want {
			t.Errorf("cleanTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	got := cleanTitle(long)
	if n := len([]rune(got)); n > maxTitleRunes {
		t.Errorf("cleanTitle(long) has %d runes, want at most %d", n, maxTitleRunes)
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("cleanTitle(long) = %q, want an ellipsis", got)
	}
}
