package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/masaha03/chatgpt-app/internal/chat"
	"github.com/masaha03/chatgpt-app/internal/llm"
)

type published struct {
	subject string
	data    []byte
}

// recorder captures what a Publisher sends
type recorder struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (r *recorder) publish(subject string, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.msgs = append(r.msgs, published{subject, append([]byte(nil), data...)})
	return nil
}

func (r *recorder) subjects() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.msgs))
	for i, m := range r.msgs {
		out[i] = m.subject
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = nil
}

func snapshot(running bool, reply string) chat.Snapshot {
	msgs := []llm.Message{
		{Role: llm.RoleSystem, Content: "sys"},
		{Role: llm.RoleUser, Content: "Hello"},
	}
	if reply != "" {
		msgs = append(msgs, llm.Message{Role: llm.RoleAssistant, Content: reply})
	}
	snap := chat.Snapshot{
		Conversations: []chat.Conversation{
			{ID: "c1", Title: "New Chat", Messages: msgs},
			{ID: "c2", Title: "Older", Messages: msgs[:1]},
		},
		ActiveID: "c1",
		Running:  running,
	}
	if running {
		snap.RunningID = "c1"
	}
	return snap
}

func TestPublishOnlyChangedConversations(t *testing.T) {
	rec := &recorder{}
	p := newPublisher("test", rec.publish, nil)

	require.NoError(t, p.Publish(snapshot(true, "")))
	assert.Equal(t, []string{"test.conversation.c1", "test.conversation.c2", "test.list"}, rec.subjects())

	rec.reset()
	require.NoError(t, p.Publish(snapshot(true, "Hi")))
	assert.Equal(t, []string{"test.conversation.c1"}, rec.subjects(), "only the streaming conversation changed")

	rec.reset()
	require.NoError(t, p.Publish(snapshot(true, "Hi")))
	assert.Empty(t, rec.subjects(), "identical snapshot publishes nothing")

	rec.reset()
	require.NoError(t, p.Publish(snapshot(false, "Hi")))
	require.Len(t, rec.msgs, 1)

	update, err := DecodeConversation(rec.msgs[0].data)
	require.NoError(t, err)
	assert.Equal(t, "c1", update.ConversationID)
	assert.True(t, update.Active)
	assert.False(t, update.Running)
	assert.Equal(t, "Hi", update.Messages[2].Content)
}

func TestPublishSystemPromptEdit(t *testing.T) {
	rec := &recorder{}
	p := newPublisher("test", rec.publish, nil)
	require.NoError(t, p.Publish(snapshot(false, "Hi")))

	rec.reset()
	snap := snapshot(false, "Hi")
	msgs := append([]llm.Message(nil), snap.Conversations[0].Messages...)
	msgs[0].Content = "You are terse."
	snap.Conversations[0].Messages = msgs
	require.NoError(t, p.Publish(snap))
	require.Equal(t, []string{"test.conversation.c1"}, rec.subjects(), "same count and last message, new system prompt")

	update, err := DecodeConversation(rec.msgs[0].data)
	require.NoError(t, err)
	assert.Equal(t, "You are terse.", update.Messages[0].Content)
}

func TestPublishListOnMembershipChange(t *testing.T) {
	rec := &recorder{}
	p := newPublisher("", rec.publish, nil)
	snap := snapshot(false, "")
	require.NoError(t, p.Publish(snap))

	rec.reset()
	snap.Conversations = snap.Conversations[:1]
	require.NoError(t, p.Publish(snap))
	require.Equal(t, []string{ListSubject(DefaultPrefix)}, rec.subjects())

	var list ListUpdate
	require.NoError(t, json.Unmarshal(rec.msgs[0].data, &list))
	assert.Equal(t, "c1", list.ActiveID)
	require.Len(t, list.Conversations, 1)
	assert.Equal(t, 2, list.Conversations[0].Messages)
}

func TestPublishErrorRetriesNextTime(t *testing.T) {
	rec := &recorder{err: errors.New("connection closed")}
	p := newPublisher("x", rec.publish, nil)

	err := p.Publish(snapshot(false, ""))
	assert.Error(t, err)

	rec.err = nil
	require.NoError(t, p.Publish(snapshot(false, "")))
	assert.Len(t, rec.subjects(), 3, "failed updates are sent again")
}

func TestDecodeConversationRejectsMissingID(t *testing.T) {
	_, err := DecodeConversation([]byte(`{"title":"x"}`))
	assert.Error(t, err)

	_, err = DecodeConversation([]byte(`not json`))
	assert.Error(t, err)
}

func TestMirrorOverNATS(t *testing.T) {
	cfg := DefaultConfig(nats.DefaultURL)
	cfg.Prefix = "chatgpt-app-test-" + time.Now().Format("150405.000000")
	cfg.ConnectTimeout = time.Second

	pub, err := Connect(cfg)
	if err != nil {
		t.Skipf("NATS not available: %v", err)
	}
	defer pub.Close()

	w, err := Watch(cfg)
	require.NoError(t, err)
	defer w.Close()

	got := make(chan ConversationUpdate, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = w.Run(ctx, "c1", Handlers{Conversation: func(u ConversationUpdate) { got <- u }})
	}()

	// Give the subscription time to set up
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, pub.Publish(snapshot(false, "Hi there!")))

	select {
	case u := <-got:
		assert.Equal(t, "c1", u.ConversationID)
		assert.Equal(t, "Hi there!", u.Messages[len(u.Messages)-1].Content)
	case <-time.After(2 * time.Second):
		t.Fatal("no update received")
	}
}
