package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"

	"chat-relay/internal/repositories"
)

type sessionState int

const (
	stateConnecting sessionState = iota
	stateActive
	stateClosed
)

func (s sessionState) String() string {
	switch s {
	case stateConnecting:
		return "connecting"
	case stateActive:
		return "active"
	case stateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// session drives one connection: the first frame binds an identity and a
// channel, every later frame is dispatched by type. Only the session's own
// goroutine touches its fields.
type session struct {
	hub      *Hub
	conn     Transport
	identity string
	state    sessionState
	logger   *slog.Logger
}

func newSession(h *Hub, conn Transport) *session {
	return &session{
		hub:    h,
		conn:   conn,
		state:  stateConnecting,
		logger: h.logger.With("connID", conn.ID()),
	}
}

func (s *session) run(ctx context.Context) {
	defer s.close()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Session panicked", "panic", r, "stack", string(debug.Stack()))
		}
	}()

	if err := s.open(ctx); err != nil {
		s.logger.Info("Session rejected", "error", err)
		return
	}

	for {
		data, err := s.conn.ReadFrame(ctx)
		if err != nil {
			s.logger.Debug("Read loop ended", "user", s.identity, "error", err)
			return
		}
		frame, err := DecodeFrame(data)
		if err != nil {
			s.logger.Warn("Closing session on malformed frame", "user", s.identity, "error", err)
			s.sendError(ErrorCodeProtocol, "malformed frame")
			return
		}
		s.dispatch(ctx, frame)
	}
}

// open consumes the first frame and moves the session to active.
func (s *session) open(ctx context.Context) error {
	data, err := s.conn.ReadFrame(ctx)
	if err != nil {
		return err
	}
	join, err := DecodeJoinFrame(data)
	if err != nil {
		s.sendError(ErrorCodeProtocol, "malformed join frame")
		return err
	}

	identity := strings.TrimSpace(join.Username)
	if identity == "" {
		s.sendError(ErrorCodeProtocol, "username is required")
		return ErrMissingIdentity
	}
	if s.hub.tokens != nil {
		owner, err := s.hub.tokens.VerifyToken(join.Token)
		if err != nil || owner != identity {
			s.sendError(ErrorCodeForbidden, "invalid token")
			return ErrIdentityMismatch
		}
	}

	channel := strings.TrimSpace(join.Channel)
	if channel == "" {
		channel = s.hub.defaultChannel
	}
	if err := s.hub.registry.Register(s.conn, identity, channel); err != nil {
		s.sendError(ErrorCodeProtocol, err.Error())
		return err
	}

	s.identity = identity
	s.state = stateActive
	s.logger = s.logger.With("user", identity)
	s.hub.metrics.RecordSession(true)
	s.logger.Info("Session opened", "channel", channel)

	s.hub.markOnline(identity)
	s.hub.broadcaster.BroadcastPresence(channel)
	return nil
}

func (s *session) dispatch(ctx context.Context, frame Frame) {
	switch f := frame.(type) {
	case ChatFrame:
		s.handleChat(ctx, f)
	case TypingFrame:
		s.handleTyping(f)
	case ChangeChannelFrame:
		s.handleChangeChannel(f)
	case DeleteMessageFrame:
		s.handleDelete(ctx, f)
	case UnknownFrame:
		s.logger.Debug("Ignoring unknown frame", "type", f.Type)
	}
}

func (s *session) handleChat(ctx context.Context, f ChatFrame) {
	if strings.TrimSpace(f.Text) == "" {
		return
	}
	if !s.hub.limiter.Allow(s.identity) {
		s.hub.metrics.RecordRateLimited()
		s.sendError(ErrorCodeRateLimited, fmt.Sprintf(
			"You are sending messages too fast. Limit is %d per %s.",
			s.hub.limiter.Limit(), s.hub.limiter.Window()))
		return
	}

	channel, ok := s.hub.registry.ChannelOf(s.conn)
	if !ok {
		return
	}

	saveCtx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()
	msg, err := s.hub.messages.Save(saveCtx, s.identity, channel, f.Text)
	if err != nil {
		s.logger.Error("Failed to store message", "channel", channel, "error", err)
		s.sendError(ErrorCodePersistence, "message could not be stored")
		return
	}

	if s.hub.events != nil {
		s.hub.events.MessageSaved(saveCtx, msg)
	}
	s.hub.broadcaster.Broadcast(msg.Channel, NewChatMessageEvent(msg.ID, msg.Username, msg.Text, msg.CreatedAt), nil)
}

func (s *session) handleTyping(f TypingFrame) {
	channel, ok := s.hub.registry.ChannelOf(s.conn)
	if !ok {
		return
	}
	s.hub.broadcaster.Broadcast(channel, NewTypingEvent(s.identity, f.Status), ExcludeIdentity(s.identity))
}

func (s *session) handleChangeChannel(f ChangeChannelFrame) {
	target := strings.TrimSpace(f.Channel)
	if target == "" {
		return
	}
	old, err := s.hub.registry.ChangeChannel(s.conn, target)
	if err != nil {
		s.logger.Warn("Channel change failed", "channel", target, "error", err)
		return
	}

	s.logger.Debug("Changed channel", "from", old, "to", target)
	if old != target {
		s.hub.broadcaster.BroadcastPresence(old)
	}
	s.hub.broadcaster.BroadcastPresence(target)
}

func (s *session) handleDelete(ctx context.Context, f DeleteMessageFrame) {
	if f.MessageID == 0 {
		return
	}
	_, err := s.hub.DeleteMessage(ctx, f.MessageID, s.identity)
	switch {
	case err == nil:
	case errors.Is(err, repositories.ErrForbidden):
		s.sendError(ErrorCodeForbidden, "you can only delete your own messages")
	case errors.Is(err, repositories.ErrNotFound):
		s.sendError(ErrorCodeNotFound, "message not found")
	default:
		s.logger.Error("Failed to delete message", "messageID", f.MessageID, "error", err)
		s.sendError(ErrorCodePersistence, "message could not be deleted")
	}
}

// sendError reports a failure to this connection only.
func (s *session) sendError(code, message string) {
	payload, err := EncodeEvent(NewErrorEvent(code, message))
	if err != nil {
		return
	}
	if err := s.conn.Send(payload); err != nil {
		s.logger.Debug("Failed to send error event", "code", code, "error", err)
	}
}

// close releases everything the session acquired. It runs exactly once,
// after the read loop ends for any reason.
func (s *session) close() {
	if s.state == stateActive {
		if _, channel, ok := s.hub.registry.Deregister(s.conn); ok {
			s.hub.broadcaster.BroadcastPresence(channel)
		}
		s.hub.markOffline(s.identity)
		s.logger.Info("Session closed")
	} else {
		s.hub.metrics.RecordSession(false)
	}
	s.state = stateClosed
	if err := s.conn.Close(); err != nil {
		s.logger.Debug("Error closing connection", "error", err)
	}
}
