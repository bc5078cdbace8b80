package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/masaha03/chatgpt-app/internal/chat"
)

// FileStore keeps the conversation list in one JSON file
type FileStore struct {
	path   string
	mu     sync.RWMutex
	logger *slog.Logger
}

// NewFileStore creates a store writing to path, creating its directory if
// needed
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FileStore{
		path:   path,
		logger: slog.Default().With("component", "store", "backend", BackendJSON),
	}, nil
}

// Path returns the file backing the store
func (f *FileStore) Path() string {
	return f.path
}

// Load reads the conversation list. A missing or empty file yields (nil, nil).
func (f *FileStore) Load(ctx context.Context) ([]chat.Conversation, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read conversations: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var list []chat.Conversation
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	f.logger.Debug("loaded conversations", "path", f.path, "count", len(list))
	return list, nil
}

// Save writes the list to a temporary file and renames it over the previous
// one, so readers never observe a partial document
func (f *FileStore) Save(ctx context.Context, conversations []chat.Conversation) error {
	data, err := json.MarshalIndent(conversations, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal conversations: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".conversations-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write conversations: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write conversations: %w", err)
	}
	if err := os.Chmod(tmpName, 0600); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("failed to replace conversations file: %w", err)
	}
	return nil
}

// Close is a no-op
func (f *FileStore) Close() error { return nil }
