/*
Package stream contains the broadcast core: per-connection sessions, the
fan-out engine that moves frames and chat between them, and the supervisor
hooks that tie both to the user registry.

The hub never blocks on a recipient. Frames are coalesced per source in each
recipient's outbox; chat rides a bounded FIFO whose overflow forcibly closes
the slow session, isolating it from everyone else.
*/
package stream

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"termio/internal/app/registry"
	"termio/internal/pkg/logx"
	"termio/internal/protocol"
)

// Config carries the session-level knobs the hub hands to every session.
type Config struct {
	// MaxMessageBytes caps a single inbound envelope.
	MaxMessageBytes int64

	// IdleTimeout is the inbound-traffic window before a session is closed.
	IdleTimeout time.Duration

	// ChatQueueSize bounds the FIFO lane of each session's outbox.
	ChatQueueSize int
}

const (
	defaultMaxMessageBytes = 1 << 20
	defaultIdleTimeout     = 60 * time.Second
	defaultChatQueueSize   = 256
)

func (c Config) withDefaults() Config {
	if c.MaxMessageBytes <= 0 {
		c.MaxMessageBytes = defaultMaxMessageBytes
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = defaultIdleTimeout
	}
	if c.ChatQueueSize <= 0 {
		c.ChatQueueSize = defaultChatQueueSize
	}
	return c
}

// subscriber is the hub's view of a delivery target. Sessions implement it;
// tests substitute mocks.
type subscriber interface {
	UserID() string
	EnqueueFrame(source string, payload []byte)
	EnqueueControl(payload []byte)
	Close(reason CloseReason)
}

// Hub is the fan-out engine. Given an event it determines the recipient set
// and enqueues the encoded envelope onto each recipient's outbox, applying
// the per-recipient backpressure policy.
type Hub struct {
	cfg      Config
	registry *registry.Registry

	mu       sync.RWMutex
	sessions map[string]subscriber

	logger zerolog.Logger
}

// NewHub creates a hub delivering between sessions registered in reg.
func NewHub(cfg Config, reg *registry.Registry) *Hub {
	return &Hub{
		cfg:      cfg.withDefaults(),
		registry: reg,
		sessions: make(map[string]subscriber),
		logger:   logx.Logger().With().Str("component", "hub").Logger(),
	}
}

// Registry returns the user registry the hub announces into.
func (h *Hub) Registry() *registry.Registry {
	return h.registry
}

func (h *Hub) attach(sub subscriber) {
	h.mu.Lock()
	h.sessions[sub.UserID()] = sub
	h.mu.Unlock()
}

func (h *Hub) detach(userID string) {
	h.mu.Lock()
	delete(h.sessions, userID)
	h.mu.Unlock()
}

// BroadcastFrame delivers an encoded Frame envelope to every session except
// the originator, coalescing per source in each recipient's outbox.
func (h *Hub) BroadcastFrame(senderID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, sub := range h.sessions {
		if id == senderID {
			continue
		}
		sub.EnqueueFrame(senderID, payload)
		framesRelayed.Inc()
	}
}

// BroadcastChat delivers an encoded Chat envelope to every session except the
// originator, FIFO and lossless per recipient.
func (h *Hub) BroadcastChat(senderID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, sub := range h.sessions {
		if id == senderID {
			continue
		}
		sub.EnqueueControl(payload)
		chatRelayed.Inc()
	}
}

// AnnounceJoin notifies every session except the subject that a user joined.
// The joining user instead received a UserList snapshot during its handshake.
func (h *Hub) AnnounceJoin(user registry.User) {
	payload, err := protocol.EncodeUserJoined(user.ID, user.Username)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", user.ID).Msg("Failed to encode UserJoined announcement.")
		return
	}
	h.announce(user.ID, payload)
}

// AnnounceLeave notifies all remaining sessions that a user disconnected.
func (h *Hub) AnnounceLeave(user registry.User) {
	payload, err := protocol.EncodeUserLeft(user.ID, user.Username)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", user.ID).Msg("Failed to encode UserLeft announcement.")
		return
	}
	h.announce(user.ID, payload)
}

func (h *Hub) announce(subjectID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, sub := range h.sessions {
		if id == subjectID {
			continue
		}
		sub.EnqueueControl(payload)
	}
}

// SessionCount returns the number of currently attached sessions.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Shutdown closes every attached session cooperatively. Each session finishes
// its own deregistration and cleanup.
func (h *Hub) Shutdown() {
	h.mu.RLock()
	subs := make([]subscriber, 0, len(h.sessions))
	for _, sub := range h.sessions {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	h.logger.Info().Int("sessions", len(subs)).Msg("Shutting down hub: closing all sessions.")

	for _, sub := range subs {
		sub.Close(ReasonShutdown)
	}
}
