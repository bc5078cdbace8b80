package chat

import "errors"

var (
	// ErrSendInFlight is returned by Send while another send is running
	ErrSendInFlight = errors.New("a request is already running")

	// ErrLastConversation is returned when deleting the only conversation
	ErrLastConversation = errors.New("cannot delete the last conversation")

	// ErrConversationNotFound is returned for an unknown conversation id
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrInvalidIndex is returned by Send for a message index out of range
	ErrInvalidIndex = errors.New("message index out of range")

	// ErrInvalidConversation is returned when a conversation fails validation
	ErrInvalidConversation = errors.New("invalid conversation")
)
