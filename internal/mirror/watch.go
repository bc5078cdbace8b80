package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nats-io/nats.go"
)

// Watcher receives updates published by other processes
type Watcher struct {
	conn   *nats.Conn
	prefix string
	logger *slog.Logger
}

// Handlers receive decoded updates. Either may be nil.
type Handlers struct {
	Conversation func(ConversationUpdate)
	List         func(ListUpdate)
}

// Watch connects to NATS for reading updates
func Watch(cfg Config) (*Watcher, error) {
	conn, err := nats.Connect(cfg.URL,
		nats.Name("chatgpt-app-watch"),
		nats.Timeout(cfg.ConnectTimeout),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(cfg.MaxReconnects),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrConnectionFailed, err)
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Watcher{
		conn:   conn,
		prefix: prefix,
		logger: slog.Default().With("component", "mirror"),
	}, nil
}

// Run delivers updates to h until ctx is done. conversationID limits
// conversation updates to one conversation; empty means all.
func (w *Watcher) Run(ctx context.Context, conversationID string, h Handlers) error {
	if w.conn == nil {
		return ErrNotConnected
	}

	subject := ConversationSubject(w.prefix, "*")
	if conversationID != "" {
		subject = ConversationSubject(w.prefix, conversationID)
	}

	var subs []*nats.Subscription
	defer func() {
		for _, s := range subs {
			_ = s.Unsubscribe()
		}
	}()

	if h.Conversation != nil {
		sub, err := w.conn.Subscribe(subject, func(msg *nats.Msg) {
			update, err := DecodeConversation(msg.Data)
			if err != nil {
				w.logger.Warn("skipping malformed conversation update", "subject", msg.Subject, "error", err)
				return
			}
			h.Conversation(update)
		})
		if err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
		}
		subs = append(subs, sub)
	}

	if h.List != nil {
		sub, err := w.conn.Subscribe(ListSubject(w.prefix), func(msg *nats.Msg) {
			var update ListUpdate
			if err := json.Unmarshal(msg.Data, &update); err != nil {
				w.logger.Warn("skipping malformed list update", "error", err)
				return
			}
			h.List(update)
		})
		if err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", ListSubject(w.prefix), err)
		}
		subs = append(subs, sub)
	}

	<-ctx.Done()
	return nil
}

// Close closes the connection
func (w *Watcher) Close() {
	if w.conn != nil {
		w.conn.Close()
	}
}

// DecodeConversation parses a conversation update payload
func DecodeConversation(data []byte) (ConversationUpdate, error) {
	var update ConversationUpdate
	if err := json.Unmarshal(data, &update); err != nil {
		return ConversationUpdate{}, err
	}
	if strings.TrimSpace(update.ConversationID) == "" {
		return ConversationUpdate{}, fmt.Errorf("update missing conversation_id")
	}
	return update, nil
}
