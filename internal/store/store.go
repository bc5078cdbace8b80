// Package store persists the conversation list.
//
// Two backends implement chat.Persistence:
//
//   - FileStore: a single JSON document, the default
//   - SQLiteStore: conversations and messages tables in a SQLite database
//
// Memory keeps the list in process and backs ephemeral sessions and tests.
package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/masaha03/chatgpt-app/internal/chat"
)

// Backend names accepted by Open
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// File names inside the data directory
const (
	jsonFileName   = "conversations.json"
	sqliteFileName = "conversations.db"
)

// ErrInvalidSchema is returned when stored data cannot be decoded
var ErrInvalidSchema = errors.New("stored conversations have an invalid schema")

// Store is a closable chat.Persistence
type Store interface {
	chat.Persistence
	Close() error
}

// Open opens the named backend inside dir
func Open(backend, dir string) (Store, error) {
	switch backend {
	case "", BackendJSON:
		return NewFileStore(filepath.Join(dir, jsonFileName))
	case BackendSQLite:
		return NewSQLiteStore(filepath.Join(dir, sqliteFileName))
	default:
		return nil, fmt.Errorf("unknown store backend %q (supported: json, sqlite)", backend)
	}
}

// Path returns the file Open would use for backend inside dir
func Path(backend, dir string) string {
	if backend == BackendSQLite {
		return filepath.Join(dir, sqliteFileName)
	}
	return filepath.Join(dir, jsonFileName)
}

// Memory is an in-process Store
type Memory struct {
	mu            sync.RWMutex
	conversations []chat.Conversation
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{}
}

// Load returns a copy of the saved list, or nil when nothing was saved
func (m *Memory) Load(ctx context.Context) ([]chat.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneAll(m.conversations), nil
}

// Save replaces the stored list with a copy of conversations
func (m *Memory) Save(ctx context.Context, conversations []chat.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conversations = cloneAll(conversations)
	return nil
}

// Close is a no-op
func (m *Memory) Close() error { return nil }

func cloneAll(list []chat.Conversation) []chat.Conversation {
	if list == nil {
		return nil
	}
	out := make([]chat.Conversation, len(list))
	for i, c := range list {
		out[i] = c.Clone()
	}
	return out
}
