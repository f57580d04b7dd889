package websocket

import (
	"encoding/json"
	"fmt"
	"time"
)

// FrameType is the discriminator of an inbound client frame.
type FrameType string

const (
	FrameTypeMessage       FrameType = "message"
	FrameTypeTyping        FrameType = "typing"
	FrameTypeChangeChannel FrameType = "change_channel"
	FrameTypeDeleteMessage FrameType = "delete_message"
)

// EventType is the discriminator of an outbound server event.
type EventType string

const (
	EventTypeMessage        EventType = "message"
	EventTypeTyping         EventType = "typing"
	EventTypeMessageDeleted EventType = "message_deleted"
	EventTypeUsers          EventType = "users"
	EventTypeError          EventType = "error"
)

// Error codes carried by error events.
const (
	ErrorCodeProtocol    = "protocol_error"
	ErrorCodeRateLimited = "rate_limited"
	ErrorCodeForbidden   = "forbidden"
	ErrorCodeNotFound    = "not_found"
	ErrorCodePersistence = "persistence_error"
)

// =============================================================================
// Inbound frames
// =============================================================================

// JoinFrame is the first frame of every session.
type JoinFrame struct {
	Username string `json:"username"`
	Channel  string `json:"channel,omitempty"`
	Token    string `json:"token,omitempty"`
}

// Frame is the closed set of frames accepted once a session is active. The
// unexported marker keeps implementations inside this package so a type
// switch over the variants below is exhaustive.
type Frame interface {
	frameType() FrameType
}

type ChatFrame struct {
	Text string `json:"text"`
}

type TypingFrame struct {
	Status bool `json:"status"`
}

type ChangeChannelFrame struct {
	Channel string `json:"channel"`
}

type DeleteMessageFrame struct {
	MessageID uint `json:"message_id"`
}

// UnknownFrame carries a discriminator this server does not understand.
type UnknownFrame struct {
	Type string
}

func (ChatFrame) frameType() FrameType          { return FrameTypeMessage }
func (TypingFrame) frameType() FrameType        { return FrameTypeTyping }
func (ChangeChannelFrame) frameType() FrameType { return FrameTypeChangeChannel }
func (DeleteMessageFrame) frameType() FrameType { return FrameTypeDeleteMessage }
func (f UnknownFrame) frameType() FrameType     { return FrameType(f.Type) }

// DecodeJoinFrame parses the opening frame of a session.
func DecodeJoinFrame(data []byte) (JoinFrame, error) {
	var f JoinFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return JoinFrame{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	return f, nil
}

// DecodeFrame parses a frame of an active session by its "type" field.
func DecodeFrame(data []byte) (Frame, error) {
	var envelope struct {
		Type FrameType `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	var frame Frame
	var err error
	switch envelope.Type {
	case FrameTypeMessage:
		var f ChatFrame
		err = json.Unmarshal(data, &f)
		frame = f
	case FrameTypeTyping:
		var f TypingFrame
		err = json.Unmarshal(data, &f)
		frame = f
	case FrameTypeChangeChannel:
		var f ChangeChannelFrame
		err = json.Unmarshal(data, &f)
		frame = f
	case FrameTypeDeleteMessage:
		var f DeleteMessageFrame
		err = json.Unmarshal(data, &f)
		frame = f
	default:
		frame = UnknownFrame{Type: string(envelope.Type)}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedFrame, envelope.Type, err)
	}
	return frame, nil
}

// =============================================================================
// Outbound events
// =============================================================================

// Event is the closed set of events the relay sends to clients.
type Event interface {
	EventType() EventType
	event()
}

type ChatMessageEvent struct {
	Type      EventType `json:"type"`
	ID        uint      `json:"id"`
	User      string    `json:"user"`
	Text      string    `json:"text"`
	Timestamp string    `json:"timestamp"`
}

type TypingEvent struct {
	Type   EventType `json:"type"`
	User   string    `json:"user"`
	Status bool      `json:"status"`
}

type MessageDeletedEvent struct {
	Type      EventType `json:"type"`
	MessageID uint      `json:"message_id"`
}

// PresenceEvent lists every identity currently in a channel.
type PresenceEvent struct {
	Type  EventType `json:"type"`
	Users []string  `json:"users"`
}

type ErrorEvent struct {
	Type    EventType `json:"type"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
}

func (ChatMessageEvent) EventType() EventType    { return EventTypeMessage }
func (TypingEvent) EventType() EventType         { return EventTypeTyping }
func (MessageDeletedEvent) EventType() EventType { return EventTypeMessageDeleted }
func (PresenceEvent) EventType() EventType       { return EventTypeUsers }
func (ErrorEvent) EventType() EventType          { return EventTypeError }

func (ChatMessageEvent) event()    {}
func (TypingEvent) event()         {}
func (MessageDeletedEvent) event() {}
func (PresenceEvent) event()       {}
func (ErrorEvent) event()          {}

func NewChatMessageEvent(id uint, user, text string, at time.Time) ChatMessageEvent {
	return ChatMessageEvent{
		Type:      EventTypeMessage,
		ID:        id,
		User:      user,
		Text:      text,
		Timestamp: at.Format(time.RFC3339Nano),
	}
}

func NewTypingEvent(user string, status bool) TypingEvent {
	return TypingEvent{Type: EventTypeTyping, User: user, Status: status}
}

func NewMessageDeletedEvent(id uint) MessageDeletedEvent {
	return MessageDeletedEvent{Type: EventTypeMessageDeleted, MessageID: id}
}

func NewPresenceEvent(users []string) PresenceEvent {
	if users == nil {
		users = []string{}
	}
	return PresenceEvent{Type: EventTypeUsers, Users: users}
}

func NewErrorEvent(code, message string) ErrorEvent {
	return ErrorEvent{Type: EventTypeError, Code: code, Message: message}
}

// EncodeEvent serializes an event for the wire.
func EncodeEvent(ev Event) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", ev.EventType(), err)
	}
	return data, nil
}
