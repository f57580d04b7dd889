package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"chat-relay/internal/models"
	"chat-relay/internal/repositories/memory"

	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second
const tick = 5 * time.Millisecond

// fakeConn is an in-memory Transport. Frames pushed by the test are read by
// the session; everything the relay sends is recorded.
type fakeConn struct {
	id       string
	frames   chan []byte
	closedCh chan struct{}

	mu       sync.Mutex
	sent     [][]byte
	closed   bool
	failSend bool
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{
		id:       id,
		frames:   make(chan []byte, 64),
		closedCh: make(chan struct{}),
	}
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnectionClosed
	}
	if c.failSend {
		return ErrSendBufferFull
	}
	c.sent = append(c.sent, payload)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.closedCh)
	}
	return nil
}

func (c *fakeConn) ReadFrame(ctx context.Context) ([]byte, error) {
	select {
	case f, ok := <-c.frames:
		if !ok {
			return nil, io.EOF
		}
		return f, nil
	case <-c.closedCh:
		return nil, ErrConnectionClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) push(t *testing.T, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	c.frames <- data
}

func (c *fakeConn) pushRaw(data string) {
	c.frames <- []byte(data)
}

type received map[string]any

func (c *fakeConn) events() []received {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]received, 0, len(c.sent))
	for _, p := range c.sent {
		var ev received
		if err := json.Unmarshal(p, &ev); err == nil {
			out = append(out, ev)
		}
	}
	return out
}

func (c *fakeConn) eventsOf(typ EventType) []received {
	var out []received
	for _, ev := range c.events() {
		if ev["type"] == string(typ) {
			out = append(out, ev)
		}
	}
	return out
}

// lastUsers returns the most recent presence list, or nil when none arrived.
func (c *fakeConn) lastUsers() []string {
	evs := c.eventsOf(EventTypeUsers)
	if len(evs) == 0 {
		return nil
	}
	raw, _ := evs[len(evs)-1]["users"].([]any)
	users := make([]string, 0, len(raw))
	for _, u := range raw {
		users = append(users, u.(string))
	}
	return users
}

func newTestHub(t *testing.T, opts ...HubOption) (*Hub, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	hub := NewHub(store, opts...)
	t.Cleanup(hub.Stop)
	return hub, store
}

// join starts a session for identity in channel and waits until it is active.
func join(t *testing.T, hub *Hub, id, identity, channel string) *fakeConn {
	t.Helper()
	c := newFakeConn(id)
	go hub.Serve(c)
	c.push(t, JoinFrame{Username: identity, Channel: channel})
	require.Eventually(t, func() bool {
		_, ok := hub.Registry().ChannelOf(c)
		return ok
	}, waitFor, tick)
	return c
}

func sendChat(t *testing.T, c *fakeConn, text string) {
	t.Helper()
	c.push(t, map[string]any{"type": "message", "text": text})
}

type failingStore struct{}

var errStoreDown = errors.New("store down")

func (failingStore) Save(context.Context, string, string, string) (*models.Message, error) {
	return nil, errStoreDown
}

func (failingStore) Delete(context.Context, uint, string) (*models.Message, error) {
	return nil, errStoreDown
}

func (failingStore) ListRecent(context.Context, string, int) ([]*models.Message, error) {
	return nil, errStoreDown
}

// panickingStore blows up on Save to exercise session panic recovery.
type panickingStore struct {
	*memory.Store
}

func (panickingStore) Save(context.Context, string, string, string) (*models.Message, error) {
	panic("save exploded")
}

type recordingEvents struct {
	mu      sync.Mutex
	saved   []uint
	deleted []uint
}

func (r *recordingEvents) MessageSaved(_ context.Context, msg *models.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved = append(r.saved, msg.ID)
}

func (r *recordingEvents) MessageDeleted(_ context.Context, msg *models.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, msg.ID)
}

func (r *recordingEvents) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.saved), len(r.deleted)
}

type recordingMirror struct {
	mu    sync.Mutex
	calls []string
}

func (m *recordingMirror) SetUserOnline(_ context.Context, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "online:"+username)
	return nil
}

func (m *recordingMirror) SetUserOffline(_ context.Context, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "offline:"+username)
	return nil
}

func (m *recordingMirror) snapshot() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

type staticTokens map[string]string

func (s staticTokens) VerifyToken(token string) (string, error) {
	if user, ok := s[token]; ok {
		return user, nil
	}
	return "", errors.New("unknown token")
}
