package stream

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"termio/internal/app/registry"
	"termio/internal/protocol"
)

type mockSubscriber struct {
	id string

	mu       sync.Mutex
	frames   map[string][]string
	control  []string
	closedAs []CloseReason
}

func newMockSubscriber(id string) *mockSubscriber {
	return &mockSubscriber{id: id, frames: make(map[string][]string)}
}

func (m *mockSubscriber) UserID() string { return m.id }

func (m *mockSubscriber) EnqueueFrame(source string, payload []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames[source] = append(m.frames[source], string(payload))
}

func (m *mockSubscriber) EnqueueControl(payload []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.control = append(m.control, string(payload))
}

func (m *mockSubscriber) Close(reason CloseReason) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closedAs = append(m.closedAs, reason)
}

func (m *mockSubscriber) getControl() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.control...)
}

func (m *mockSubscriber) framesFrom(source string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.frames[source]...)
}

func newTestHub() (*Hub, *mockSubscriber, *mockSubscriber, *mockSubscriber) {
	h := NewHub(Config{}, registry.New(0))

	a := newMockSubscriber("a")
	b := newMockSubscriber("b")
	c := newMockSubscriber("c")
	h.attach(a)
	h.attach(b)
	h.attach(c)

	return h, a, b, c
}

func TestBroadcastFrameExcludesSender(t *testing.T) {
	h, a, b, c := newTestHub()

	h.BroadcastFrame("a", []byte("frame-from-a"))

	assert.Empty(t, a.framesFrom("a"), "a sender never receives its own frame")
	assert.Equal(t, []string{"frame-from-a"}, b.framesFrom("a"))
	assert.Equal(t, []string{"frame-from-a"}, c.framesFrom("a"))
}

func TestBroadcastChatExcludesSender(t *testing.T) {
	h, a, b, c := newTestHub()

	h.BroadcastChat("b", []byte("chat-1"))
	h.BroadcastChat("b", []byte("chat-2"))

	assert.Empty(t, b.getControl())
	assert.Equal(t, []string{"chat-1", "chat-2"}, a.getControl(), "chat stays in send order")
	assert.Equal(t, []string{"chat-1", "chat-2"}, c.getControl())
}

func TestAnnounceJoinExcludesSubject(t *testing.T) {
	h, a, b, c := newTestHub()

	h.AnnounceJoin(registry.User{ID: "c", Username: "carol"})

	assert.Empty(t, c.getControl(), "the joiner gets a UserList snapshot instead")

	for _, sub := range []*mockSubscriber{a, b} {
		control := sub.getControl()
		require.Len(t, control, 1)
		msg, err := protocol.Decode([]byte(control[0]), 0)
		require.NoError(t, err)
		assert.Equal(t, protocol.TagUserJoined, msg.Tag)
		assert.Equal(t, "carol", msg.UserEvent.Username)
	}
}

func TestAnnounceLeave(t *testing.T) {
	h, a, b, c := newTestHub()
	h.detach("c")

	h.AnnounceLeave(registry.User{ID: "c", Username: "carol"})

	assert.Empty(t, c.getControl())
	for _, sub := range []*mockSubscriber{a, b} {
		control := sub.getControl()
		require.Len(t, control, 1)
		msg, err := protocol.Decode([]byte(control[0]), 0)
		require.NoError(t, err)
		assert.Equal(t, protocol.TagUserLeft, msg.Tag)
		assert.Equal(t, "c", msg.UserEvent.UserID)
	}
}

func TestDetachStopsDelivery(t *testing.T) {
	h, a, b, c := newTestHub()

	h.detach("b")
	h.BroadcastFrame("a", []byte("late-frame"))

	assert.Empty(t, b.framesFrom("a"))
	assert.Equal(t, []string{"late-frame"}, c.framesFrom("a"))
	assert.Empty(t, a.framesFrom("a"))
	assert.Equal(t, 2, h.SessionCount())
}

func TestShutdownClosesAllSessions(t *testing.T) {
	h, a, b, c := newTestHub()

	h.Shutdown()

	for _, sub := range []*mockSubscriber{a, b, c} {
		require.Len(t, sub.closedAs, 1)
		assert.Equal(t, ReasonShutdown, sub.closedAs[0])
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, int64(defaultMaxMessageBytes), cfg.MaxMessageBytes)
	assert.Equal(t, defaultIdleTimeout, cfg.IdleTimeout)
	assert.Equal(t, defaultChatQueueSize, cfg.ChatQueueSize)

	custom := Config{MaxMessageBytes: 1 << 16, ChatQueueSize: 8}.withDefaults()
	assert.Equal(t, int64(1<<16), custom.MaxMessageBytes)
	assert.Equal(t, 8, custom.ChatQueueSize)
	assert.Equal(t, defaultIdleTimeout, custom.IdleTimeout)
}
