package llm

import "context"

// Role values accepted by the chat completion API
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a chat message
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

// ValidRole reports whether role is one the completion API accepts
func ValidRole(role string) bool {
	switch role {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Transport is the boundary to the hosted completion API
type Transport interface {
	// StreamCompletion starts a streaming completion and returns a decoder over
	// the response body. Cancelling ctx aborts the request and the decoder.
	StreamCompletion(ctx context.Context, messages []Message) (*Decoder, error)

	// Complete performs a non-streaming completion and returns the first
	// choice's content
	Complete(ctx context.Context, messages []Message) (string, error)
}
