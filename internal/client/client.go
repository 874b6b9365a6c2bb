/*
Package client implements a headless TermIO client: it dials the server,
performs the join handshake, relays outbound frames and chat, and dispatches
inbound events to caller-provided handlers. Rendering and capture stay with
the caller; this package only speaks the protocol.
*/
package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"termio/internal/pkg/logx"
	"termio/internal/protocol"
)

const (
	// writeWait is the timeout for a single write to the server.
	writeWait = 10 * time.Second

	// keepAlivePeriod paces protocol-level pings so the server's idle window
	// never elapses on a quiet client.
	keepAlivePeriod = 20 * time.Second

	// sendQueueSize buffers outbound envelopes between caller and write loop.
	sendQueueSize = 64
)

// ErrClosed is returned by Send methods after the client has shut down.
var ErrClosed = errors.New("client closed")

// Handlers receives inbound events. Nil fields are skipped. All callbacks run
// on the client's read loop, so they must not block.
type Handlers struct {
	OnAck        func(success bool, message string)
	OnUserList   func(users []protocol.UserInfo)
	OnUserJoined func(event protocol.UserEvent)
	OnUserLeft   func(event protocol.UserEvent)
	OnFrame      func(userID, username string, frame *protocol.Frame)
	OnChat       func(userID, username, content string)

	// OnClose fires once when the connection ends; err is nil on a clean close.
	OnClose func(err error)
}

// Client is one connection to a TermIO server.
type Client struct {
	username string
	conn     *websocket.Conn
	handlers Handlers

	send chan []byte

	done      chan struct{}
	closeOnce sync.Once

	logger zerolog.Logger
}

// Dial connects to serverURL, sends the join handshake, and starts the read
// and write loops. The returned client is ready to send as soon as the server
// acknowledges the join (see Handlers.OnAck).
func Dial(ctx context.Context, serverURL, username string, handlers Handlers) (*Client, error) {
	if err := protocol.ValidateUsername(username); err != nil {
		return nil, err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, serverURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", serverURL, err)
	}

	c := &Client{
		username: username,
		conn:     conn,
		handlers: handlers,
		send:     make(chan []byte, sendQueueSize),
		done:     make(chan struct{}),
		logger: logx.Logger().With().
			Str("component", "client").
			Str("username", username).
			Logger(),
	}

	join, err := protocol.EncodeJoin(username)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, join); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("sending join: %w", err)
	}

	go c.writeLoop()
	go c.readLoop()

	return c, nil
}

// SendChat sends a chat message. The server stamps the authoritative identity.
func (c *Client) SendChat(content string) error {
	payload, err := protocol.EncodeChat("", c.username, content)
	if err != nil {
		return err
	}
	return c.enqueue(payload)
}

// SendFrame sends one video frame.
func (c *Client) SendFrame(frame *protocol.Frame) error {
	if err := frame.Validate(); err != nil {
		return err
	}
	payload, err := protocol.EncodeFrame("", c.username, frame)
	if err != nil {
		return err
	}
	return c.enqueue(payload)
}

// Ping sends a protocol-level keep-alive immediately.
func (c *Client) Ping() error {
	payload, err := protocol.EncodePing()
	if err != nil {
		return err
	}
	return c.enqueue(payload)
}

// Close shuts the connection down. It is safe to call multiple times.
func (c *Client) Close() error {
	c.shutdown(nil)
	return nil
}

// Done is closed when the connection has ended.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) enqueue(payload []byte) error {
	select {
	case <-c.done:
		return ErrClosed
	case c.send <- payload:
		return nil
	}
}

func (c *Client) shutdown(err error) {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
		if c.handlers.OnClose != nil {
			c.handlers.OnClose(err)
		}
	})
}

func (c *Client) writeLoop() {
	ticker := time.NewTicker(keepAlivePeriod)
	defer ticker.Stop()

	for {
		select {
		case payload := <-c.send:
			if !c.write(payload) {
				return
			}

		case <-ticker.C:
			ping, err := protocol.EncodePing()
			if err != nil {
				continue
			}
			if !c.write(ping) {
				return
			}

		case <-c.done:
			closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, closeMsg)
			return
		}
	}
}

func (c *Client) write(payload []byte) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.shutdown(err)
		return false
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		c.shutdown(err)
		return false
	}
	return true
}

func (c *Client) readLoop() {
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.shutdown(nil)
			} else {
				c.shutdown(err)
			}
			return
		}

		msg, err := protocol.Decode(raw, 0)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Server sent undecodable envelope.")
			continue
		}

		c.dispatch(msg)
	}
}

func (c *Client) dispatch(msg *protocol.Message) {
	switch msg.Tag {
	case protocol.TagAck:
		if c.handlers.OnAck != nil {
			c.handlers.OnAck(msg.Ack.Success, msg.Ack.Message)
		}

	case protocol.TagUserList:
		if c.handlers.OnUserList != nil {
			c.handlers.OnUserList(msg.UserList)
		}

	case protocol.TagUserJoined:
		if c.handlers.OnUserJoined != nil {
			c.handlers.OnUserJoined(*msg.UserEvent)
		}

	case protocol.TagUserLeft:
		if c.handlers.OnUserLeft != nil {
			c.handlers.OnUserLeft(*msg.UserEvent)
		}

	case protocol.TagFrame:
		if c.handlers.OnFrame != nil {
			c.handlers.OnFrame(msg.Frame.UserID, msg.Frame.Username, msg.Frame.Frame)
		}

	case protocol.TagChat:
		if c.handlers.OnChat != nil {
			c.handlers.OnChat(msg.Chat.UserID, msg.Chat.Username, msg.Chat.Content)
		}

	case protocol.TagPing:
		if pong, err := protocol.EncodePong(); err == nil {
			select {
			case c.send <- pong:
			default:
			}
		}

	case protocol.TagPong:
		// Keep-alive answer; nothing to do.

	default:
		c.logger.Warn().Str("tag", string(msg.Tag)).Msg("Server sent unexpected tag.")
	}
}
