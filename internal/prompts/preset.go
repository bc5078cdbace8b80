// Package prompts loads system prompt presets from markdown files with YAML
// frontmatter:
//
//	---
//	name: translator
//	description: Translate everything into English
//	---
//	You are a translator. Reply with the English translation only.
package prompts

import (
	"errors"
	"strings"
)

var (
	// ErrMissingName is returned when a preset has no name
	ErrMissingName = errors.New("preset missing required 'name' field")

	// ErrMissingPrompt is returned when a preset has an empty body
	ErrMissingPrompt = errors.New("preset missing prompt text (markdown body)")

	// ErrInvalidFrontmatter is returned when YAML frontmatter parsing fails
	ErrInvalidFrontmatter = errors.New("invalid YAML frontmatter")

	// ErrNoFrontmatter is returned when a markdown file has no frontmatter
	ErrNoFrontmatter = errors.New("markdown file missing YAML frontmatter")

	// ErrPresetNotFound is returned when a preset is not in the registry
	ErrPresetNotFound = errors.New("preset not found")
)

// Preset is a named system prompt
type Preset struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Tags        []string `yaml:"tags"`

	// Prompt is the markdown body after the frontmatter
	Prompt string `yaml:"-"`

	// FilePath is empty for built-in presets
	FilePath string `yaml:"-"`
}

// Validate checks that the preset can be used
func (p *Preset) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrMissingName
	}
	if strings.ContainsAny(p.Name, " \t\n") {
		return errors.New("preset name must be a single word")
	}
	if strings.TrimSpace(p.Prompt) == "" {
		return ErrMissingPrompt
	}
	return nil
}

// Builtin presets are always available and can be overridden by files
var Builtin = []*Preset{
	{
		Name:        "default",
		Description: "General purpose assistant",
		Prompt:      "You are a helpful assistant.",
	},
	{
		Name:        "concise",
		Description: "Short, direct answers",
		Prompt:      "You are a helpful assistant. Answer as briefly as possible without losing accuracy.",
	},
	{
		Name:        "translator",
		Description: "Translate between Japanese and English",
		Prompt: "You are a translator. When given Japanese, reply with a natural English translation; " +
			"when given English, reply with a natural Japanese translation. Reply with the translation only.",
	},
	{
		Name:        "reviewer",
		Description: "Code review comments",
		Prompt:      "You are an experienced software engineer reviewing code. Point out bugs first, then readability issues. Use Markdown.",
	},
}
