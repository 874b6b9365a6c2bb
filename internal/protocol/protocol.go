/*
Package protocol defines the wire format spoken between the TermIO server and its clients.

Every message is a single JSON envelope of the form {"type": "<Tag>", "data": <payload>}.
The tag fully determines the payload shape; anything else is a protocol error.
Decoding is strict, side-effect free, and bounded by a configurable size cap.
*/
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Tag identifies the payload type carried by an Envelope.
type Tag string

const (
	TagJoin       Tag = "Join"
	TagFrame      Tag = "Frame"
	TagChat       Tag = "Chat"
	TagUserList   Tag = "UserList"
	TagUserJoined Tag = "UserJoined"
	TagUserLeft   Tag = "UserLeft"
	TagAck        Tag = "Ack"
	TagPing       Tag = "Ping"
	TagPong       Tag = "Pong"
)

const (
	// MaxUsernameBytes bounds the display name supplied at join time.
	MaxUsernameBytes = 64

	// MaxChatBytes bounds chat message content. Longer messages are refused
	// without closing the session.
	MaxChatBytes = 5000
)

// ErrOversized is returned by Decode when the raw envelope exceeds the
// configured size cap. It maps to a dedicated close reason so the offending
// session can be terminated without inspecting the payload.
var ErrOversized = errors.New("envelope exceeds configured size limit")

// DecodeError describes a malformed or unexpected envelope. It terminates
// only the offending session, never the server.
type DecodeError struct {
	Tag    Tag
	Reason string
}

func (e *DecodeError) Error() string {
	if e.Tag == "" {
		return fmt.Sprintf("protocol error: %s", e.Reason)
	}
	return fmt.Sprintf("protocol error in %s envelope: %s", e.Tag, e.Reason)
}

func decodeErr(tag Tag, format string, args ...any) *DecodeError {
	return &DecodeError{Tag: tag, Reason: fmt.Sprintf(format, args...)}
}

// Envelope is the tagged wrapper around every protocol message.
type Envelope struct {
	Type Tag             `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// JoinPayload is the first message a client must send after connecting.
type JoinPayload struct {
	Username string `json:"username"`
}

// FramePayload carries one video update. The server stamps user_id and
// username authoritatively on relay; values sent by clients are ignored.
type FramePayload struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Frame    *Frame `json:"frame"`
}

// ChatPayload carries one chat message. Identity fields are denormalized at
// send time and not re-validated against the registry by recipients.
type ChatPayload struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Content  string `json:"content"`
}

// UserInfo is the presence summary used in UserList snapshots.
type UserInfo struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	ConnectedAt string `json:"connected_at"`
}

// UserEvent announces a join or leave to the remaining participants.
type UserEvent struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// AckPayload acknowledges a client request, or explains its refusal.
type AckPayload struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Message is the decoded form of an Envelope. Exactly the field selected by
// Tag is populated; Ping and Pong carry no payload.
type Message struct {
	Tag       Tag
	Join      *JoinPayload
	Frame     *FramePayload
	Chat      *ChatPayload
	UserList  []UserInfo
	UserEvent *UserEvent
	Ack       *AckPayload
}

// Decode parses a raw envelope into a typed Message. It rejects envelopes
// larger than maxBytes with ErrOversized, and unknown tags or malformed
// payloads with a *DecodeError. It never panics on hostile input.
func Decode(raw []byte, maxBytes int) (*Message, error) {
	if maxBytes > 0 && len(raw) > maxBytes {
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrOversized, len(raw), maxBytes)
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, decodeErr("", "invalid JSON envelope: %v", err)
	}

	msg := &Message{Tag: env.Type}

	switch env.Type {
	case TagJoin:
		payload := &JoinPayload{}
		if err := unmarshalPayload(env, payload); err != nil {
			return nil, err
		}
		if err := ValidateUsername(payload.Username); err != nil {
			return nil, decodeErr(TagJoin, "%v", err)
		}
		msg.Join = payload

	case TagFrame:
		payload := &FramePayload{}
		if err := unmarshalPayload(env, payload); err != nil {
			return nil, err
		}
		if payload.Frame == nil {
			return nil, decodeErr(TagFrame, "missing frame")
		}
		if err := payload.Frame.Validate(); err != nil {
			return nil, decodeErr(TagFrame, "%v", err)
		}
		msg.Frame = payload

	case TagChat:
		payload := &ChatPayload{}
		if err := unmarshalPayload(env, payload); err != nil {
			return nil, err
		}
		msg.Chat = payload

	case TagUserList:
		var users []UserInfo
		if err := unmarshalPayload(env, &users); err != nil {
			return nil, err
		}
		msg.UserList = users

	case TagUserJoined, TagUserLeft:
		payload := &UserEvent{}
		if err := unmarshalPayload(env, payload); err != nil {
			return nil, err
		}
		if payload.UserID == "" {
			return nil, decodeErr(env.Type, "missing user_id")
		}
		msg.UserEvent = payload

	case TagAck:
		payload := &AckPayload{}
		if err := unmarshalPayload(env, payload); err != nil {
			return nil, err
		}
		msg.Ack = payload

	case TagPing, TagPong:
		// Keep-alive envelopes carry no payload.

	case "":
		return nil, decodeErr("", "missing type tag")

	default:
		return nil, decodeErr(env.Type, "unknown type tag")
	}

	return msg, nil
}

func unmarshalPayload(env Envelope, dst any) error {
	if len(env.Data) == 0 {
		return decodeErr(env.Type, "missing data payload")
	}
	if err := json.Unmarshal(env.Data, dst); err != nil {
		return decodeErr(env.Type, "malformed data payload: %v", err)
	}
	return nil
}

// ValidateUsername enforces the join handshake's display-name constraints.
func ValidateUsername(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return errors.New("username must not be empty")
	}
	if len(trimmed) > MaxUsernameBytes {
		return fmt.Errorf("username exceeds %d bytes", MaxUsernameBytes)
	}
	if !utf8.ValidString(trimmed) {
		return errors.New("username must be valid UTF-8")
	}
	return nil
}

func encode(tag Tag, data any) ([]byte, error) {
	env := Envelope{Type: tag}

	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("encoding %s payload: %w", tag, err)
		}
		env.Data = raw
	}

	return json.Marshal(env)
}

// EncodeJoin builds the client's join handshake envelope.
func EncodeJoin(username string) ([]byte, error) {
	return encode(TagJoin, JoinPayload{Username: username})
}

// EncodeFrame builds a Frame envelope stamped with the sender's identity.
func EncodeFrame(userID, username string, frame *Frame) ([]byte, error) {
	return encode(TagFrame, FramePayload{UserID: userID, Username: username, Frame: frame})
}

// EncodeChat builds a Chat envelope stamped with the sender's identity.
func EncodeChat(userID, username, content string) ([]byte, error) {
	return encode(TagChat, ChatPayload{UserID: userID, Username: username, Content: content})
}

// EncodeUserList builds the presence snapshot sent to a freshly joined client.
func EncodeUserList(users []UserInfo) ([]byte, error) {
	if users == nil {
		users = []UserInfo{}
	}
	return encode(TagUserList, users)
}

// EncodeUserJoined builds the join announcement for the remaining sessions.
func EncodeUserJoined(userID, username string) ([]byte, error) {
	return encode(TagUserJoined, UserEvent{UserID: userID, Username: username})
}

// EncodeUserLeft builds the leave announcement for the remaining sessions.
func EncodeUserLeft(userID, username string) ([]byte, error) {
	return encode(TagUserLeft, UserEvent{UserID: userID, Username: username})
}

// EncodeAck builds an acknowledgment or refusal envelope.
func EncodeAck(success bool, message string) ([]byte, error) {
	return encode(TagAck, AckPayload{Success: success, Message: message})
}

// EncodePing builds an empty keep-alive envelope.
func EncodePing() ([]byte, error) {
	return encode(TagPing, nil)
}

// EncodePong builds the answer to a Ping envelope.
func EncodePong() ([]byte, error) {
	return encode(TagPong, nil)
}
