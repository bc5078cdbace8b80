package chat

import (
	"context"
	"strings"

	"github.com/masaha03/chatgpt-app/internal/llm"
)

const (
	titleInstruction = "Summarize the user's message as a short title for this chat, at most six words, " +
		"in the same language as the message. Reply with the title only."
	maxTitleRunes = 60
)

// inferTitle asks the model for a short title describing firstUserMessage
func inferTitle(ctx context.Context, t llm.Transport, firstUserMessage string) (string, error) {
	reply, err := t.Complete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: titleInstruction},
		{Role: llm.RoleUser, Content: firstUserMessage},
	})
	if err != nil {
		return "", err
	}
	return cleanTitle(reply), nil
}

// cleanTitle keeps the first non-empty line, strips surrounding quotes and a
// "Title:" label, and caps the length
func cleanTitle(s string) string {
	var line string
	for _, l := range strings.Split(s, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			line = l
			break
		}
	}
	if len(line) >= 6 && strings.EqualFold(line[:6], "title:") {
		line = strings.TrimSpace(line[6:])
	}
	line = strings.Trim(line, "\"'`“”「」 ")
	line = strings.TrimSuffix(line, ".")

	runes := []rune(line)
	if len(runes) > maxTitleRunes {
		line = strings.TrimSpace(string(runes[:maxTitleRunes-1])) + "…"
	}
	return line
}
