// Package mirror publishes session changes to NATS so other processes can
// follow a conversation as it streams.
//
// Subjects (with the default prefix):
//
//	chatgpt-app.conversation.<id>  full state of one conversation after it changed
//	chatgpt-app.list               summaries of every conversation when the list changed
package mirror

import (
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/masaha03/chatgpt-app/internal/chat"
	"github.com/masaha03/chatgpt-app/internal/llm"
)

// DefaultPrefix is the subject prefix used when none is configured
const DefaultPrefix = "chatgpt-app"

var (
	ErrConnectionFailed = errors.New("failed to connect to NATS")
	ErrNotConnected     = errors.New("not connected to NATS")
)

// Config contains NATS connection configuration
type Config struct {
	URL            string
	Prefix         string
	ConnectTimeout time.Duration
	ReconnectWait  time.Duration
	MaxReconnects  int
}

// DefaultConfig returns the default configuration for url
func DefaultConfig(url string) Config {
	if url == "" {
		url = nats.DefaultURL
	}
	return Config{
		URL:            url,
		Prefix:         DefaultPrefix,
		ConnectTimeout: 5 * time.Second,
		ReconnectWait:  2 * time.Second,
		MaxReconnects:  60,
	}
}

// ConversationUpdate is the payload published on the conversation subject
type ConversationUpdate struct {
	ConversationID string        `json:"conversation_id"`
	Title          string        `json:"title"`
	Messages       []llm.Message `json:"messages"`
	Active         bool          `json:"active"`
	Running        bool          `json:"running"`
	ErrorMessage   string        `json:"error_message,omitempty"`
	PublishedAt    time.Time     `json:"published_at"`
}

// Summary describes one conversation in a list update
type Summary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	Messages  int       `json:"messages"`
}

// ListUpdate is the payload published on the list subject
type ListUpdate struct {
	ActiveID      string    `json:"active_id"`
	Conversations []Summary `json:"conversations"`
	PublishedAt   time.Time `json:"published_at"`
}

// Publisher mirrors session snapshots to NATS. Only conversations that
// changed since the previous snapshot are published.
type Publisher struct {
	conn    *nats.Conn
	prefix  string
	publish func(subject string, data []byte) error
	logger  *slog.Logger

	mu       sync.Mutex
	seen     map[string]fingerprint
	lastList string
}

// fingerprint identifies a published conversation state
type fingerprint struct {
	title    string
	count    int
	messages uint64
	active   bool
	running  bool
	errorMsg string
}

// Connect dials the NATS server and returns a publisher
func Connect(cfg Config) (*Publisher, error) {
	logger := slog.Default().With("component", "mirror")

	opts := []nats.Option{
		nats.Name("chatgpt-app"),
		nats.Timeout(cfg.ConnectTimeout),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("disconnected from NATS", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("reconnected to NATS", "url", nc.ConnectedUrl())
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			logger.Error("nats error", "error", err)
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrConnectionFailed, err)
	}

	p := newPublisher(cfg.Prefix, conn.Publish, logger)
	p.conn = conn
	logger.Info("mirroring conversations", "url", cfg.URL, "prefix", p.prefix)
	return p, nil
}

func newPublisher(prefix string, publish func(string, []byte) error, logger *slog.Logger) *Publisher {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if logger == nil {
		logger = slog.Default().With("component", "mirror")
	}
	return &Publisher{
		prefix:  prefix,
		publish: publish,
		logger:  logger,
		seen:    make(map[string]fingerprint),
	}
}

// ConversationSubject returns the subject for conversation id
func ConversationSubject(prefix, id string) string {
	return prefix + ".conversation." + id
}

// ListSubject returns the subject for list updates
func ListSubject(prefix string) string {
	return prefix + ".list"
}

// Observer returns a chat.Observer publishing every snapshot
func (p *Publisher) Observer() chat.Observer {
	return func(snap chat.Snapshot) {
		if err := p.Publish(snap); err != nil {
			p.logger.Warn("failed to mirror snapshot", "error", err)
		}
	}
}

// Publish sends the parts of snap that changed since the last call
func (p *Publisher) Publish(snap chat.Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now().UTC()
	var errs []error

	present := make(map[string]bool, len(snap.Conversations))
	for _, c := range snap.Conversations {
		present[c.ID] = true
		active := c.ID == snap.ActiveID
		fp := fingerprint{
			title:    c.Title,
			count:    len(c.Messages),
			messages: hashMessages(c.Messages),
			active:   active,
			running:  snap.Running && c.ID == snap.RunningID,
		}
		if active {
			fp.errorMsg = snap.ErrorMessage
		}
		if prev, ok := p.seen[c.ID]; ok && prev == fp {
			continue
		}

		update := ConversationUpdate{
			ConversationID: c.ID,
			Title:          c.Title,
			Messages:       c.Messages,
			Active:         active,
			Running:        fp.running,
			ErrorMessage:   fp.errorMsg,
			PublishedAt:    now,
		}
		if err := p.send(ConversationSubject(p.prefix, c.ID), update); err != nil {
			errs = append(errs, err)
			continue
		}
		p.seen[c.ID] = fp
	}
	for id := range p.seen {
		if !present[id] {
			delete(p.seen, id)
		}
	}

	list := ListUpdate{ActiveID: snap.ActiveID, PublishedAt: now}
	for _, c := range snap.Conversations {
		list.Conversations = append(list.Conversations, Summary{
			ID:        c.ID,
			Title:     c.Title,
			CreatedAt: c.CreatedAt,
			Messages:  len(c.Messages),
		})
	}
	if key := listKey(list); key != p.lastList {
		if err := p.send(ListSubject(p.prefix), list); err != nil {
			errs = append(errs, err)
		} else {
			p.lastList = key
		}
	}

	return errors.Join(errs...)
}

// hashMessages covers every role and content, so an edit in the middle of a
// conversation (a new system prompt) is published too
func hashMessages(msgs []llm.Message) uint64 {
	h := fnv.New64a()
	for _, m := range msgs {
		h.Write([]byte(m.Role))
		h.Write([]byte{0})
		h.Write([]byte(m.Content))
		h.Write([]byte{0})
	}
	return h.Sum64()
}

// listKey identifies a list state independent of message counts, which are
// already carried by conversation updates
func listKey(l ListUpdate) string {
	key := l.ActiveID
	for _, s := range l.Conversations {
		key += "|" + s.ID + "=" + s.Title
	}
	return key
}

func (p *Publisher) send(subject string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", subject, err)
	}
	if err := p.publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish %s: %w", subject, err)
	}
	return nil
}

// Close flushes pending messages and closes the connection
func (p *Publisher) Close() error {
	if p.conn == nil {
		return nil
	}
	if err := p.conn.FlushTimeout(2 * time.Second); err != nil {
		p.logger.Warn("failed to flush NATS connection", "error", err)
	}
	p.conn.Close()
	return nil
}
