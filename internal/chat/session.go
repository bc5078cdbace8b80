package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/masaha03/chatgpt-app/internal/llm"
)

// Snapshot is an immutable view of the session published to observers.
// Conversations and their messages must be treated as read-only.
type Snapshot struct {
	Conversations []Conversation
	ActiveID      string
	Running       bool
	// RunningID is the conversation the in-flight send writes to
	RunningID    string
	ErrorMessage string
}

// Active returns the active conversation of the snapshot
func (s Snapshot) Active() Conversation {
	for _, c := range s.Conversations {
		if c.ID == s.ActiveID {
			return c
		}
	}
	return Conversation{}
}

// Observer is called after every change with the new state. Calls are
// serialized. An observer must not mutate the session synchronously.
type Observer func(Snapshot)

// Option configures a Session
type Option func(*Session)

// WithObserver registers an observer notified after every change
func WithObserver(fn Observer) Option {
	return func(s *Session) {
		if fn != nil {
			s.observers = append(s.observers, fn)
		}
	}
}

// WithLogger sets the session logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSystemPrompt sets the system prompt of new conversations
func WithSystemPrompt(prompt string) Option {
	return func(s *Session) {
		if prompt != "" {
			s.systemPrompt = prompt
		}
	}
}

// WithTitleTransport sets the transport used for title inference. By default
// the chat transport is used.
func WithTitleTransport(t llm.Transport) Option {
	return func(s *Session) {
		if t != nil {
			s.titler = t
		}
	}
}

// Session owns the conversation list, the active conversation, and the
// single in-flight request.
//
// Every change derives a new list from the previous one, persists it, and
// notifies observers. A send is bound to the conversation that was active
// when it started; switching conversations does not redirect or cancel it.
type Session struct {
	transport    llm.Transport
	titler       llm.Transport
	persistence  Persistence
	systemPrompt string
	observers    []Observer
	logger       *slog.Logger

	mu            sync.Mutex
	conversations []Conversation
	activeID      string
	cancel        context.CancelFunc // set while a send is in flight
	runningID     string             // conversation the in-flight send writes to
	errorMessage  string

	// publishMu orders persistence and observer calls; acquired before mu
	// is released so changes are published in the order they were made
	publishMu sync.Mutex

	bgCtx    context.Context
	bgCancel context.CancelFunc
	bg       sync.WaitGroup
}

// NewSession creates a session and loads the stored conversations. Missing or
// invalid stored data yields a single fresh conversation.
func NewSession(transport llm.Transport, persistence Persistence, opts ...Option) (*Session, error) {
	if transport == nil {
		return nil, errors.New("chat: transport is required")
	}
	if persistence == nil {
		return nil, errors.New("chat: persistence is required")
	}

	s := &Session{
		transport:    transport,
		titler:       transport,
		persistence:  persistence,
		systemPrompt: DefaultSystemPrompt,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "session")
	s.bgCtx, s.bgCancel = context.WithCancel(context.Background())

	s.conversations = s.bootstrap()
	s.activeID = s.conversations[0].ID

	s.mu.Lock()
	s.commit()
	return s, nil
}

func (s *Session) bootstrap() []Conversation {
	stored, err := s.persistence.Load(context.Background())
	if err != nil {
		s.logger.Warn("failed to load conversations, starting fresh", "error", err)
		return []Conversation{NewConversation(s.systemPrompt)}
	}
	list, err := Normalize(stored, s.systemPrompt)
	if err != nil {
		s.logger.Warn("stored conversations are invalid, starting fresh", "error", err)
		return []Conversation{NewConversation(s.systemPrompt)}
	}
	s.logger.Debug("loaded conversations", "count", len(list))
	return list
}

// Send appends text as a new message and streams the assistant reply.
//
// The active conversation is truncated to at (default: its full length)
// before the user message is appended, so an index inside the history edits
// that message and replays from it. at == 0 replaces the system prompt
// without a network call; it is allowed while another conversation streams.
//
// Transport and decode failures are reported through ErrorMessage and Send
// returns nil; cancellation is silent and keeps the partial reply.
func (s *Session) Send(ctx context.Context, text string, at ...int) error {
	s.mu.Lock()
	conv, ok := s.findLocked(s.activeID)
	if !ok {
		s.mu.Unlock()
		return ErrConversationNotFound
	}
	index := len(conv.Messages)
	if len(at) > 0 {
		index = at[0]
	}
	if index < 0 || index > len(conv.Messages) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %d (conversation has %d messages)", ErrInvalidIndex, index, len(conv.Messages))
	}

	if s.cancel != nil && (index > 0 || s.runningID == conv.ID) {
		s.mu.Unlock()
		return ErrSendInFlight
	}

	if index == 0 {
		msgs := cloneMessages(conv.Messages)
		msgs[0] = llm.Message{Role: llm.RoleSystem, Content: text}
		s.updateLocked(conv.ID, func(c *Conversation) { c.Messages = msgs })
		s.commit()
		return nil
	}

	next := append(cloneMessages(conv.Messages[:index]), llm.Message{Role: llm.RoleUser, Content: text})
	fresh := len(conv.Messages) == 1

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.cancel = cancel
	s.runningID = conv.ID
	s.errorMessage = ""
	s.updateLocked(conv.ID, func(c *Conversation) { c.Messages = next })
	s.commit()

	logger := s.logger.With("conversation", conv.ID)
	logger.Debug("send started", "messages", len(next))

	final, err := s.stream(ctx, conv.ID, next)

	s.mu.Lock()
	s.cancel = nil
	s.runningID = ""
	switch {
	case err == nil:
		logger.Debug("send finished", "messages", len(final))
	case llm.IsCanceled(err):
		logger.Debug("send cancelled")
	default:
		logger.Error("send failed", "error", err)
		s.errorMessage = err.Error()
	}
	s.commit()

	if err == nil && fresh && len(final) == 3 {
		if first, ok := (Conversation{Messages: final}).FirstUserMessage(); ok {
			s.startTitle(conv.ID, first)
		}
	}
	return nil
}

// stream folds the decoded deltas into an assistant message appended to
// base, publishing every intermediate state. It returns the last published
// message list.
func (s *Session) stream(ctx context.Context, id string, base []llm.Message) ([]llm.Message, error) {
	dec, err := s.transport.StreamCompletion(ctx, base)
	if err != nil {
		return base, err
	}
	defer dec.Close()

	published := base
	var output string
	for {
		ev, err := dec.Next(ctx)
		if errors.Is(err, io.EOF) {
			return published, nil
		}
		if err != nil {
			return published, err
		}
		if ev.DeltaContent == nil {
			continue
		}
		output += *ev.DeltaContent

		msgs := append(cloneMessages(base), llm.Message{Role: llm.RoleAssistant, Content: output})
		published = msgs
		s.mu.Lock()
		if !s.updateLocked(id, func(c *Conversation) { c.Messages = msgs }) {
			// conversation was deleted mid-stream
			s.mu.Unlock()
			continue
		}
		s.commit()
	}
}

// startTitle infers a title for conversation id in the background
func (s *Session) startTitle(id, firstUserMessage string) {
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()

		title, err := inferTitle(s.bgCtx, s.titler, firstUserMessage)
		if err != nil {
			s.logger.Warn("title inference failed", "conversation", id, "error", err)
			return
		}
		if title == "" {
			return
		}
		s.mu.Lock()
		if !s.updateLocked(id, func(c *Conversation) { c.Title = title }) {
			s.mu.Unlock()
			return
		}
		s.commit()
		s.logger.Debug("title inferred", "conversation", id, "title", title)
	}()
}

// Cancel aborts the in-flight send, if any
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

// Running reports whether a send is in flight
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// ErrorMessage returns the message of the last failed send
func (s *Session) ErrorMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errorMessage
}

// CreateNewChat prepends a fresh conversation and makes it active
func (s *Session) CreateNewChat() Conversation {
	c := NewConversation(s.systemPrompt)

	s.mu.Lock()
	list := make([]Conversation, 0, len(s.conversations)+1)
	list = append(list, c)
	s.conversations = append(list, s.conversations...)
	s.activeID = c.ID
	s.commit()
	return c.Clone()
}

// DeleteChat removes a conversation. The last remaining conversation cannot
// be deleted. When the active conversation is removed, the first remaining
// conversation becomes active. A send writing to the removed conversation
// is cancelled.
func (s *Session) DeleteChat(id string) error {
	s.mu.Lock()
	if _, ok := s.findLocked(id); !ok {
		s.mu.Unlock()
		return ErrConversationNotFound
	}
	if len(s.conversations) == 1 {
		s.mu.Unlock()
		return ErrLastConversation
	}

	list := make([]Conversation, 0, len(s.conversations)-1)
	for _, c := range s.conversations {
		if c.ID != id {
			list = append(list, c)
		}
	}
	s.conversations = list
	if s.activeID == id {
		s.activeID = list[0].ID
	}
	if s.runningID == id && s.cancel != nil {
		s.cancel()
	}
	s.commit()
	return nil
}

// SetActive switches the active conversation. An in-flight send keeps
// writing to the conversation it started on.
func (s *Session) SetActive(id string) error {
	s.mu.Lock()
	if _, ok := s.findLocked(id); !ok {
		s.mu.Unlock()
		return ErrConversationNotFound
	}
	s.activeID = id
	s.commit()
	return nil
}

// ActiveID returns the id of the active conversation
func (s *Session) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// Active returns a copy of the active conversation
func (s *Session) Active() Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, _ := s.findLocked(s.activeID)
	return c.Clone()
}

// Messages returns a copy of the active conversation's messages
func (s *Session) Messages() []llm.Message {
	return s.Active().Messages
}

// SetMessages replaces the active conversation's messages. An empty list
// resets the conversation to its default system prompt.
func (s *Session) SetMessages(msgs []llm.Message) error {
	s.mu.Lock()
	conv, ok := s.findLocked(s.activeID)
	if !ok {
		s.mu.Unlock()
		return ErrConversationNotFound
	}
	conv.Messages = cloneMessages(msgs)
	conv = WithDefaults(conv, s.systemPrompt)
	if err := conv.Validate(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.updateLocked(conv.ID, func(c *Conversation) { c.Messages = conv.Messages })
	s.commit()
	return nil
}

// SetTitle sets the title of the active conversation. An empty title resets
// it to the default.
func (s *Session) SetTitle(title string) {
	if title == "" {
		title = DefaultTitle
	}
	s.mu.Lock()
	s.updateLocked(s.activeID, func(c *Conversation) { c.Title = title })
	s.commit()
}

// Conversations returns a copy of the conversation list in display order
func (s *Session) Conversations() []Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Conversation, len(s.conversations))
	for i, c := range s.conversations {
		out[i] = c.Clone()
	}
	return out
}

// Snapshot returns the current state
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Wait blocks until background title inference has finished
func (s *Session) Wait() {
	s.bg.Wait()
}

// Close cancels the in-flight send and background work, then waits for it
func (s *Session) Close() {
	s.Cancel()
	s.bgCancel()
	s.bg.Wait()
}

func (s *Session) findLocked(id string) (Conversation, bool) {
	for _, c := range s.conversations {
		if c.ID == id {
			return c, true
		}
	}
	return Conversation{}, false
}

// updateLocked replaces the conversation with the given id by a modified
// copy, leaving the previous list untouched. It reports whether id exists.
func (s *Session) updateLocked(id string, fn func(*Conversation)) bool {
	for i, c := range s.conversations {
		if c.ID != id {
			continue
		}
		list := make([]Conversation, len(s.conversations))
		copy(list, s.conversations)
		fn(&c)
		list[i] = c
		s.conversations = list
		return true
	}
	return false
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		Conversations: s.conversations,
		ActiveID:      s.activeID,
		Running:       s.cancel != nil,
		RunningID:     s.runningID,
		ErrorMessage:  s.errorMessage,
	}
}

// commit must be called with mu held; it releases mu, then persists the new
// list and notifies observers
func (s *Session) commit() {
	snap := s.snapshotLocked()
	s.publishMu.Lock()
	s.mu.Unlock()
	defer s.publishMu.Unlock()

	if err := s.persistence.Save(context.Background(), snap.Conversations); err != nil {
		s.logger.Error("failed to save conversations", "error", err)
	}
	for _, fn := range s.observers {
		fn(snap)
	}
}
