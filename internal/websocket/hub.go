package websocket

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"chat-relay/internal/models"
	"chat-relay/internal/ratelimit"
	"chat-relay/internal/repositories"

	"github.com/gorilla/websocket"
)

var (
	ErrMissingIdentity   = errors.New("username is required")
	ErrIdentityMismatch  = errors.New("token does not match username")
	ErrMalformedFrame    = errors.New("malformed frame")
	ErrAlreadyRegistered = errors.New("connection already registered")
	ErrNotRegistered     = errors.New("connection not registered")
	ErrConnectionClosed  = errors.New("connection closed")
	ErrSendBufferFull    = errors.New("send buffer full")
)

const (
	// DefaultChannel is joined when the first frame names no channel.
	DefaultChannel = "genel"

	persistTimeout = 5 * time.Second
	mirrorTimeout  = 2 * time.Second
	stopTimeout    = 10 * time.Second
)

// Transport is a Conn the session can also read frames from. Only the
// owning session calls ReadFrame.
type Transport interface {
	Conn
	ReadFrame(ctx context.Context) ([]byte, error)
}

// TokenVerifier resolves a login token to the username it was issued for.
type TokenVerifier interface {
	VerifyToken(token string) (string, error)
}

// PresenceMirror receives best effort online/offline notifications.
type PresenceMirror interface {
	SetUserOnline(ctx context.Context, username string) error
	SetUserOffline(ctx context.Context, username string) error
}

// MessageEvents receives best effort notifications of stored and deleted messages.
type MessageEvents interface {
	MessageSaved(ctx context.Context, msg *models.Message)
	MessageDeleted(ctx context.Context, msg *models.Message)
}

// Hub is the process scoped relay: it owns the registry, the limiter and the
// broadcaster and runs one session per accepted connection.
type Hub struct {
	registry    *Registry
	limiter     *ratelimit.Limiter
	broadcaster *Broadcaster
	metrics     *ConnectionMetrics
	messages    repositories.MessageStore

	tokens         TokenVerifier
	presence       PresenceMirror
	events         MessageEvents
	defaultChannel string
	upgrader       *websocket.Upgrader
	logger         *slog.Logger

	ctx      context.Context
	cancel   context.CancelFunc
	mu       sync.Mutex
	live     map[string]Transport
	sessions sync.WaitGroup
}

type HubOption func(*Hub)

func WithLimiter(l *ratelimit.Limiter) HubOption {
	return func(h *Hub) { h.limiter = l }
}

func WithDefaultChannel(channel string) HubOption {
	return func(h *Hub) {
		if channel != "" {
			h.defaultChannel = channel
		}
	}
}

// WithTokenVerifier makes every session prove its username with a token.
func WithTokenVerifier(v TokenVerifier) HubOption {
	return func(h *Hub) { h.tokens = v }
}

func WithPresenceMirror(m PresenceMirror) HubOption {
	return func(h *Hub) { h.presence = m }
}

func WithMessageEvents(e MessageEvents) HubOption {
	return func(h *Hub) { h.events = e }
}

// WithAllowedOrigins restricts which browser origins may open a socket.
func WithAllowedOrigins(origins []string) HubOption {
	return func(h *Hub) { h.upgrader = newUpgrader(origins) }
}

func WithLogger(logger *slog.Logger) HubOption {
	return func(h *Hub) { h.logger = logger }
}

func NewHub(messages repositories.MessageStore, opts ...HubOption) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		registry:       NewRegistry(),
		metrics:        NewConnectionMetrics(),
		messages:       messages,
		defaultChannel: DefaultChannel,
		logger:         slog.Default(),
		ctx:            ctx,
		cancel:         cancel,
		live:           make(map[string]Transport),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.limiter == nil {
		h.limiter = ratelimit.New()
	}
	if h.upgrader == nil {
		h.upgrader = newUpgrader(nil)
	}
	h.broadcaster = NewBroadcaster(h.registry, h.metrics, h.logger)
	return h
}

func (h *Hub) Registry() *Registry { return h.registry }

func (h *Hub) Broadcaster() *Broadcaster { return h.broadcaster }

// Metrics returns the relay counters including the current connection count.
func (h *Hub) Metrics() MetricsSnapshot {
	s := h.metrics.Snapshot()
	s.ActiveConnections = h.registry.Len()
	return s
}

// GetOnlineUsers lists identities connected to this process.
func (h *Hub) GetOnlineUsers(context.Context) ([]string, error) {
	return h.registry.Identities(), nil
}

// Serve runs a session on t and blocks until it is closed.
func (h *Hub) Serve(t Transport) {
	if !h.track(t) {
		_ = t.Close()
		return
	}
	defer h.untrack(t)

	newSession(h, t).run(h.ctx)
}

// DeleteMessage soft deletes a message for requester and tells the message's
// channel about it. It serves both socket and HTTP deletes.
func (h *Hub) DeleteMessage(ctx context.Context, id uint, requester string) (*models.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()

	msg, err := h.messages.Delete(ctx, id, requester)
	if err != nil {
		return nil, err
	}
	if h.events != nil {
		h.events.MessageDeleted(ctx, msg)
	}
	h.broadcaster.Broadcast(msg.Channel, NewMessageDeletedEvent(msg.ID), nil)
	return msg, nil
}

// Stop closes every live connection and waits for their sessions to finish.
func (h *Hub) Stop() {
	h.mu.Lock()
	h.cancel()
	live := make([]Transport, 0, len(h.live))
	for _, t := range h.live {
		live = append(live, t)
	}
	h.mu.Unlock()

	// Close can block on a stuck write pump, so peers are closed concurrently.
	var closing sync.WaitGroup
	for _, t := range live {
		closing.Add(1)
		go func(t Transport) {
			defer closing.Done()
			_ = t.Close()
		}(t)
	}
	closing.Wait()

	done := make(chan struct{})
	go func() {
		h.sessions.Wait()
		close(done)
	}()
	select {
	case <-done:
		h.logger.Info("WebSocket hub stopped", "closed", len(live))
	case <-time.After(stopTimeout):
		h.logger.Warn("Timeout waiting for sessions to finish", "timeout", stopTimeout)
	}
}

func (h *Hub) track(t Transport) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ctx.Err() != nil {
		return false
	}
	h.live[t.ID()] = t
	h.sessions.Add(1)
	return true
}

func (h *Hub) untrack(t Transport) {
	h.mu.Lock()
	delete(h.live, t.ID())
	h.mu.Unlock()
	h.sessions.Done()
}

func (h *Hub) markOnline(identity string) {
	if h.presence == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
	defer cancel()
	if err := h.presence.SetUserOnline(ctx, identity); err != nil {
		h.logger.Warn("Failed to mirror online status", "user", identity, "error", err)
	}
}

// markOffline only mirrors when identity has no other live connection.
func (h *Hub) markOffline(identity string) {
	if h.presence == nil || h.registry.IdentityOnline(identity) {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
	defer cancel()
	if err := h.presence.SetUserOffline(ctx, identity); err != nil {
		h.logger.Warn("Failed to mirror offline status", "user", identity, "error", err)
	}
}
