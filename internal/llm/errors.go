package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingAPIKey = errors.New("API key not configured. Use 'chatgpt config set openai <key>' or set OPENAI_API_KEY")
	ErrNoChoices     = errors.New("no response choices returned")
)

// TransportError is returned when the completion endpoint answers with a
// non-success status or without a body
type TransportError struct {
	StatusCode int
	Message    string
}

func (e *TransportError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		return fmt.Sprintf("%d", e.StatusCode)
	}
	return fmt.Sprintf("%d %s", e.StatusCode, msg)
}

// IsCanceled reports whether err is the result of a cancelled request
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}
