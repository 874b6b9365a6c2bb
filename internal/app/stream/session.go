package stream

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"termio/internal/app/registry"
	"termio/internal/pkg/errs"
	"termio/internal/pkg/logx"
	"termio/internal/protocol"
)

const (
	// writeWait is the timeout for a single write to the WebSocket connection.
	writeWait = 10 * time.Second

	// drainLimit caps how many queued envelopes are flushed while closing.
	drainLimit = 32
)

// State tracks a session's position in its lifecycle.
type State int32

const (
	StateConnecting State = iota
	StateAwaitingJoin
	StateActive
	StateClosing
	StateClosed
)

// CloseReason records why a session left the Active state. It is fixed by the
// first trigger that fires; later triggers are ignored.
type CloseReason string

const (
	ReasonPeerClosed    CloseReason = "peer_closed"
	ReasonProtocolError CloseReason = "protocol_error"
	ReasonOversized     CloseReason = "oversized_message"
	ReasonTimeout       CloseReason = "idle_timeout"
	ReasonSlowConsumer  CloseReason = "slow_consumer"
	ReasonTransport     CloseReason = "transport_error"
	ReasonServerFull    CloseReason = "server_full"
	ReasonShutdown      CloseReason = "server_shutdown"
)

// closeCode maps a reason to the WebSocket close code sent to the peer.
// Codes in the 4000 range are application-defined.
func (r CloseReason) closeCode() int {
	switch r {
	case ReasonPeerClosed:
		return websocket.CloseNormalClosure
	case ReasonProtocolError:
		return websocket.ClosePolicyViolation
	case ReasonOversized:
		return websocket.CloseMessageTooBig
	case ReasonShutdown:
		return websocket.CloseGoingAway
	case ReasonServerFull:
		return 4001
	case ReasonTimeout:
		return 4002
	case ReasonSlowConsumer:
		return 4003
	default:
		return websocket.CloseInternalServerErr
	}
}

// Session owns one client connection: it reads inbound envelopes, drains the
// outbound queue, enforces the keep-alive window, and reports lifecycle events
// to the registry and hub. Each session runs one reader and one writer task,
// coordinated only through the outbox and the done signal.
type Session struct {
	hub  *Hub
	conn *websocket.Conn
	out  *outbox

	// user is set once by the join handshake and read by both pumps afterwards.
	user registry.User

	state atomic.Int32

	done      chan struct{}
	closeOnce sync.Once

	// writerDone signals that the write pump has flushed and released the
	// connection, so cleanup never truncates the goodbye.
	writerDone chan struct{}

	// reason is written inside closeOnce before done is closed.
	reason CloseReason

	logger zerolog.Logger
}

// NewSession wraps an upgraded connection. The transport is established, so
// the session starts out awaiting the join handshake.
func NewSession(hub *Hub, conn *websocket.Conn) *Session {
	s := &Session{
		hub:        hub,
		conn:       conn,
		out:        newOutbox(hub.cfg.ChatQueueSize),
		done:       make(chan struct{}),
		writerDone: make(chan struct{}),
		logger: logx.Logger().With().
			Str("component", "session").
			Str("remote_addr", conn.RemoteAddr().String()).
			Logger(),
	}
	s.state.Store(int32(StateAwaitingJoin))
	return s
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Run starts the write pump and blocks in the read pump until the session
// ends. Cleanup has completed when it returns.
func (s *Session) Run() {
	go s.writePump()
	s.readPump()
}

// Close moves the session to Closing with the given reason. The first caller
// wins; subsequent calls have no effect.
func (s *Session) Close(reason CloseReason) {
	s.closeOnce.Do(func() {
		s.reason = reason
		s.state.Store(int32(StateClosing))
		close(s.done)
	})
}

// UserID implements subscriber. It is empty until the join handshake succeeds.
func (s *Session) UserID() string {
	return s.user.ID
}

// EnqueueFrame implements subscriber: the newest frame per source wins.
func (s *Session) EnqueueFrame(source string, payload []byte) {
	if s.out.enqueueFrame(source, payload) {
		framesCoalesced.Inc()
	}
}

// EnqueueControl implements subscriber. Chat and announcements must not be
// silently dropped, so a full queue closes the session instead.
func (s *Session) EnqueueControl(payload []byte) {
	if !s.out.enqueueControl(payload) {
		s.logger.Warn().
			Int("queue_cap", cap(s.out.send)).
			Msg("Outbound queue full, closing slow consumer.")
		s.Close(ReasonSlowConsumer)
	}
}

// readPump reads and dispatches inbound envelopes until the connection fails,
// the peer misbehaves, or the session is closed from elsewhere. Its deferred
// cleanup is the single Closing -> Closed transition.
func (s *Session) readPump() {
	defer s.finish()

	s.conn.SetReadLimit(s.hub.cfg.MaxMessageBytes)
	if err := s.conn.SetReadDeadline(time.Now().Add(s.hub.cfg.IdleTimeout)); err != nil {
		s.logger.Error().Err(err).Msg("Failed to set read deadline")
		s.Close(ReasonTransport)
		return
	}
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.hub.cfg.IdleTimeout))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			s.Close(s.reasonFromReadError(err))
			return
		}

		// Any inbound traffic counts as liveness.
		_ = s.conn.SetReadDeadline(time.Now().Add(s.hub.cfg.IdleTimeout))

		msg, err := protocol.Decode(raw, int(s.hub.cfg.MaxMessageBytes))
		if err != nil {
			if errors.Is(err, protocol.ErrOversized) {
				s.logger.Warn().Err(err).Msg("Client sent oversized envelope.")
				s.Close(ReasonOversized)
			} else {
				s.logger.Warn().Err(err).Msg("Client sent malformed envelope.")
				s.Close(ReasonProtocolError)
			}
			return
		}

		if s.State() != StateActive {
			// The first envelope must complete the join handshake.
			if msg.Tag != protocol.TagJoin {
				s.logger.Warn().Str("tag", string(msg.Tag)).Msg("Message before join handshake.")
				s.Close(ReasonProtocolError)
				return
			}
			if !s.handleJoin(msg.Join) {
				return
			}
			continue
		}

		switch msg.Tag {
		case protocol.TagFrame:
			s.handleFrame(msg.Frame)

		case protocol.TagChat:
			s.handleChat(msg.Chat)

		case protocol.TagPing:
			if pong, err := protocol.EncodePong(); err == nil {
				s.EnqueueControl(pong)
			}

		case protocol.TagPong:
			// Liveness only; the read deadline was already extended.

		default:
			s.logger.Warn().Str("tag", string(msg.Tag)).Msg("Unexpected inbound tag.")
			s.Close(ReasonProtocolError)
			return
		}
	}
}

// handleJoin registers the user and wires the session into the hub. It
// returns false when the read pump should stop.
func (s *Session) handleJoin(payload *protocol.JoinPayload) bool {
	username := strings.TrimSpace(payload.Username)

	user, err := s.hub.registry.Register(username)
	if err != nil {
		// Capacity refusal: explain before closing, leave others untouched.
		reason := errs.NewError(errs.ErrServerFull).Message
		var customErr *errs.CustomError
		if errors.As(err, &customErr) {
			reason = customErr.Message
		}
		if ack, ackErr := protocol.EncodeAck(false, reason); ackErr == nil {
			s.out.enqueueControl(ack)
		}
		s.Close(ReasonServerFull)
		return false
	}

	s.user = user
	s.logger = s.logger.With().
		Str("user_id", user.ID).
		Str("username", user.Username).
		Logger()
	s.state.Store(int32(StateActive))

	// Attach before taking the snapshot so no concurrent join can fall
	// between the snapshot and this session's announcements.
	s.hub.attach(s)
	connectedUsers.Inc()

	if ack, err := protocol.EncodeAck(true, fmt.Sprintf("Welcome, %s!", user.Username)); err == nil {
		s.EnqueueControl(ack)
	}

	snapshot := s.hub.registry.Snapshot()
	list, err := protocol.EncodeUserList(snapshot)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode UserList snapshot.")
	} else {
		s.EnqueueControl(list)
	}

	// Seed the joiner with everyone's cached frame so their view fills in
	// before the next live update arrives.
	for _, info := range snapshot {
		if info.UserID == user.ID {
			continue
		}
		frame, ok := s.hub.registry.LatestFrame(info.UserID)
		if !ok {
			continue
		}
		encoded, err := protocol.EncodeFrame(info.UserID, info.Username, frame)
		if err != nil {
			continue
		}
		s.EnqueueFrame(info.UserID, encoded)
	}

	s.hub.AnnounceJoin(user)

	s.logger.Info().Int("total_users", s.hub.registry.Count()).Msg("User joined.")
	return true
}

// handleFrame stores the sender's latest frame and fans it out. Identity
// fields supplied by the client are replaced with the registered ones.
func (s *Session) handleFrame(payload *protocol.FramePayload) {
	s.hub.registry.UpdateFrame(s.user.ID, payload.Frame)

	encoded, err := protocol.EncodeFrame(s.user.ID, s.user.Username, payload.Frame)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode frame for broadcast.")
		return
	}
	s.hub.BroadcastFrame(s.user.ID, encoded)
}

// handleChat fans out a chat message. Over-long content is refused with an
// Ack rather than a session close; unlike a stale frame it cannot be
// silently discarded.
func (s *Session) handleChat(payload *protocol.ChatPayload) {
	if len(payload.Content) > protocol.MaxChatBytes {
		if ack, err := protocol.EncodeAck(false, errs.NewError(errs.ErrMessageContentTooLong).Message); err == nil {
			s.EnqueueControl(ack)
		}
		return
	}

	encoded, err := protocol.EncodeChat(s.user.ID, s.user.Username, payload.Content)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode chat for broadcast.")
		return
	}
	s.hub.BroadcastChat(s.user.ID, encoded)
}

func (s *Session) reasonFromReadError(err error) CloseReason {
	var netErr net.Error
	switch {
	case errors.As(err, &netErr) && netErr.Timeout():
		return ReasonTimeout
	case errors.Is(err, websocket.ErrReadLimit):
		return ReasonOversized
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
		return ReasonPeerClosed
	default:
		return ReasonTransport
	}
}

// finish is the Closing -> Closed transition. It runs exactly once, from the
// read pump's deferred cleanup, regardless of which trigger fired first:
// deregister (idempotent), announce the leave, release the connection.
func (s *Session) finish() {
	s.Close(ReasonTransport)

	// Let the writer flush the goodbye before the connection is released.
	select {
	case <-s.writerDone:
	case <-time.After(writeWait):
	}

	if s.user.ID != "" {
		if user, removed := s.hub.registry.Deregister(s.user.ID); removed {
			s.hub.detach(user.ID)
			s.hub.AnnounceLeave(user)
			connectedUsers.Dec()
		}
	}

	sessionsClosed.WithLabelValues(string(s.reason)).Inc()
	s.state.Store(int32(StateClosed))

	if err := s.conn.Close(); err != nil {
		s.logger.Debug().Err(err).Msg("Connection close error during cleanup.")
	}

	s.logger.Info().Str("reason", string(s.reason)).Msg("Session closed.")
}

// writePump drains the outbox to the connection and keeps the transport
// heartbeat going. It never blocks on the read side; the two pumps meet only
// at the outbox and the done signal.
func (s *Session) writePump() {
	ticker := time.NewTicker(s.pingPeriod())

	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
		close(s.writerDone)
	}()

	for {
		select {
		case payload := <-s.out.send:
			if !s.write(payload) {
				return
			}

		case <-s.out.frameReady:
			// One frame per wake: popFrame re-arms the signal when more are
			// pending, which keeps the FIFO lane from starving.
			if payload, ok := s.out.popFrame(); ok {
				if !s.write(payload) {
					return
				}
			}

		case <-ticker.C:
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				s.Close(ReasonTransport)
				return
			}
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.Close(ReasonTransport)
				return
			}

		case <-s.done:
			s.flushAndSayGoodbye()
			return
		}
	}
}

func (s *Session) write(payload []byte) bool {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		s.Close(ReasonTransport)
		return false
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		s.Close(ReasonTransport)
		return false
	}
	return true
}

// flushAndSayGoodbye drains a bounded amount of the FIFO lane (so explanatory
// Acks reach the peer) and sends the close frame describing the reason.
func (s *Session) flushAndSayGoodbye() {
drain:
	for range drainLimit {
		select {
		case payload := <-s.out.send:
			if !s.write(payload) {
				return
			}
		default:
			break drain
		}
	}

	closeMsg := websocket.FormatCloseMessage(s.reason.closeCode(), string(s.reason))
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteMessage(websocket.CloseMessage, closeMsg); err != nil {
		s.logger.Debug().Err(err).Msg("Error writing close frame.")
	}
}

// pingPeriod keeps transport pings comfortably inside the peer's idle window.
func (s *Session) pingPeriod() time.Duration {
	return s.hub.cfg.IdleTimeout * 9 / 10
}
