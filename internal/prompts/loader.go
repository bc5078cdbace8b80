package prompts

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader discovers preset files in a list of directories
type Loader struct {
	paths  []string
	logger *slog.Logger
}

// NewLoader creates a loader searching paths in order
func NewLoader(paths []string) *Loader {
	return &Loader{
		paths:  paths,
		logger: slog.Default().With("component", "prompts"),
	}
}

// LoadAll loads every *.md preset from the configured paths. Missing
// directories are skipped; unparsable files are logged and skipped.
func (l *Loader) LoadAll() ([]*Preset, error) {
	var presets []*Preset

	for _, basePath := range l.paths {
		info, err := os.Stat(basePath)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("error accessing %s: %w", basePath, err)
		}
		if !info.IsDir() {
			continue
		}

		entries, err := os.ReadDir(basePath)
		if err != nil {
			return nil, fmt.Errorf("error reading directory %s: %w", basePath, err)
		}

		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
				continue
			}

			filePath := filepath.Join(basePath, entry.Name())
			preset, err := LoadFromFile(filePath)
			if err != nil {
				l.logger.Warn("skipping preset file", "path", filePath, "error", err)
				continue
			}
			presets = append(presets, preset)
		}
	}

	return presets, nil
}

// LoadFromFile parses a single preset file
func LoadFromFile(filePath string) (*Preset, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}

	preset, err := ParseMarkdown(string(content))
	if err != nil {
		return nil, err
	}
	preset.FilePath = filePath
	return preset, nil
}

// ParseMarkdown parses markdown content with YAML frontmatter into a Preset
func ParseMarkdown(content string) (*Preset, error) {
	frontmatter, body, err := parseFrontmatter(content)
	if err != nil {
		return nil, err
	}

	var preset Preset
	if err := yaml.Unmarshal([]byte(frontmatter), &preset); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFrontmatter, err)
	}
	preset.Prompt = strings.TrimSpace(body)

	if err := preset.Validate(); err != nil {
		return nil, err
	}
	return &preset, nil
}

// parseFrontmatter splits content into the YAML between the leading ---
// markers and the body after them
func parseFrontmatter(content string) (frontmatter, body string, err error) {
	content = strings.ReplaceAll(strings.TrimSpace(content), "\r\n", "\n")

	if !strings.HasPrefix(content, "---") {
		return "", "", ErrNoFrontmatter
	}
	rest := strings.TrimLeft(content[3:], "\n")

	endIdx := strings.Index(rest, "\n---")
	if endIdx == -1 {
		return "", "", ErrNoFrontmatter
	}

	frontmatter = strings.TrimSpace(rest[:endIdx])
	body = strings.TrimSpace(rest[endIdx+4:])
	return frontmatter, body, nil
}
