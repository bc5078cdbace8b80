package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/masaha03/chatgpt-app/internal/chat"
	"github.com/masaha03/chatgpt-app/internal/llm"
)

// SQLiteStore keeps conversations in a SQLite database
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) the database at path and ensures the
// schema exists. Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store", "backend", BackendSQLite)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// a single connection keeps the pragmas below in effect for every query
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	s := &SQLiteStore{db: db, path: path, logger: logger}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Debug("SQLite store initialized", "path", path)
	return s, nil
}

func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			position INTEGER NOT NULL,
			title TEXT NOT NULL,
			created_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS messages (
			conversation_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			name TEXT,
			PRIMARY KEY (conversation_id, position),
			FOREIGN KEY (conversation_id) REFERENCES conversations(id) ON DELETE CASCADE
		);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Path returns the database file
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load returns conversations in list order, or (nil, nil) when the database
// holds none
func (s *SQLiteStore) Load(ctx context.Context) ([]chat.Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, created_at FROM conversations ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying conversations: %w", err)
	}

	var list []chat.Conversation
	index := make(map[string]int)
	for rows.Next() {
		var c chat.Conversation
		var createdAt string
		if err := rows.Scan(&c.ID, &c.Title, &createdAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning conversation: %w", err)
		}
		c.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("%w: conversation %s: %v", ErrInvalidSchema, c.ID, err)
		}
		index[c.ID] = len(list)
		list = append(list, c)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterating conversations: %w", err)
	}
	rows.Close()

	if len(list) == 0 {
		return nil, nil
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT conversation_id, role, content, name
		FROM messages
		ORDER BY conversation_id, position ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var convID string
		var m llm.Message
		var name sql.NullString
		if err := rows.Scan(&convID, &m.Role, &m.Content, &name); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		m.Name = name.String
		i, ok := index[convID]
		if !ok {
			continue
		}
		list[i].Messages = append(list[i].Messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}

	s.logger.Debug("loaded conversations", "count", len(list))
	return list, nil
}

// Save replaces every stored conversation with the given list in one
// transaction
func (s *SQLiteStore) Save(ctx context.Context, conversations []chat.Conversation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages`); err != nil {
		return fmt.Errorf("clearing messages: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM conversations`); err != nil {
		return fmt.Errorf("clearing conversations: %w", err)
	}

	convStmt, err := tx.PrepareContext(ctx, `INSERT INTO conversations (id, position, title, created_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing conversation insert: %w", err)
	}
	defer convStmt.Close()

	msgStmt, err := tx.PrepareContext(ctx, `INSERT INTO messages (conversation_id, position, role, content, name) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing message insert: %w", err)
	}
	defer msgStmt.Close()

	for pos, c := range conversations {
		if _, err := convStmt.ExecContext(ctx, c.ID, pos, c.Title, c.CreatedAt.UTC().Format(time.RFC3339Nano)); err != nil {
			return fmt.Errorf("inserting conversation %s: %w", c.ID, err)
		}
		for i, m := range c.Messages {
			if _, err := msgStmt.ExecContext(ctx, c.ID, i, m.Role, m.Content, nullString(m.Name)); err != nil {
				return fmt.Errorf("inserting message %d of %s: %w", i, c.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
