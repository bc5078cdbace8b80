// Package chat holds the conversation model and the session that drives
// streaming sends, edits, and the multi-conversation list.
package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/masaha03/chatgpt-app/internal/llm"
)

// Defaults applied to conversations missing the corresponding field
const (
	DefaultTitle        = "New Chat"
	DefaultSystemPrompt = "You are a helpful assistant."
)

// Conversation is a titled, ordered list of messages whose first message is
// always the system prompt
type Conversation struct {
	ID        string        `json:"id"`
	Messages  []llm.Message `json:"messages"`
	CreatedAt time.Time     `json:"createdAt"`
	Title     string        `json:"title"`
}

// Persistence loads and saves the full conversation list. Load returns
// (nil, nil) when nothing has been stored yet.
type Persistence interface {
	Load(ctx context.Context) ([]Conversation, error)
	Save(ctx context.Context, conversations []Conversation) error
}

// NewConversation creates a conversation holding only the system prompt
func NewConversation(systemPrompt string) Conversation {
	return WithDefaults(Conversation{}, systemPrompt)
}

// WithDefaults returns c with every missing field filled in: a new id, a
// single system message, the current time, and the default title
func WithDefaults(c Conversation, systemPrompt string) Conversation {
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if len(c.Messages) == 0 {
		c.Messages = []llm.Message{{Role: llm.RoleSystem, Content: systemPrompt}}
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	if c.Title == "" {
		c.Title = DefaultTitle
	}
	return c
}

// Validate checks the conversation invariants: known roles only and a system
// message first
func (c Conversation) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidConversation)
	}
	if len(c.Messages) == 0 {
		return fmt.Errorf("%w: no messages", ErrInvalidConversation)
	}
	if c.Messages[0].Role != llm.RoleSystem {
		return fmt.Errorf("%w: first message has role %q, want system", ErrInvalidConversation, c.Messages[0].Role)
	}
	for i, m := range c.Messages {
		if !llm.ValidRole(m.Role) {
			return fmt.Errorf("%w: message %d has unknown role %q", ErrInvalidConversation, i, m.Role)
		}
	}
	return nil
}

// Clone returns a copy that shares no message storage with c
func (c Conversation) Clone() Conversation {
	c.Messages = cloneMessages(c.Messages)
	return c
}

// FirstUserMessage returns the content of the first user message, if any
func (c Conversation) FirstUserMessage() (string, bool) {
	for _, m := range c.Messages {
		if m.Role == llm.RoleUser {
			return m.Content, true
		}
	}
	return "", false
}

// Normalize applies defaults to every conversation and validates the result.
// An empty list becomes a single default conversation.
func Normalize(list []Conversation, systemPrompt string) ([]Conversation, error) {
	if len(list) == 0 {
		return []Conversation{NewConversation(systemPrompt)}, nil
	}
	out := make([]Conversation, 0, len(list))
	seen := make(map[string]bool, len(list))
	for i, c := range list {
		c = WithDefaults(c.Clone(), systemPrompt)
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("conversation %d: %w", i, err)
		}
		if seen[c.ID] {
			return nil, fmt.Errorf("%w: duplicate id %s", ErrInvalidConversation, c.ID)
		}
		seen[c.ID] = true
		out = append(out, c)
	}
	return out, nil
}

func cloneMessages(msgs []llm.Message) []llm.Message {
	if msgs == nil {
		return nil
	}
	out := make([]llm.Message, len(msgs))
	copy(out, msgs)
	return out
}
