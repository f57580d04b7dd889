package websocket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcastFilterExcludesEveryConnectionOfIdentity(t *testing.T) {
	r := NewRegistry()
	a1, a2, b := newFakeConn("a1"), newFakeConn("a2"), newFakeConn("b")
	require.NoError(t, r.Register(a1, "alice", "genel"))
	require.NoError(t, r.Register(a2, "alice", "genel"))
	require.NoError(t, r.Register(b, "bob", "genel"))

	bc := NewBroadcaster(r, nil, nil)
	sent := bc.Broadcast("genel", NewTypingEvent("alice", true), ExcludeIdentity("alice"))

	assert.Equal(t, 1, sent)
	assert.Empty(t, a1.events())
	assert.Empty(t, a2.events())
	require.Len(t, b.eventsOf(EventTypeTyping), 1)
	assert.Equal(t, "alice", b.eventsOf(EventTypeTyping)[0]["user"])
}

func TestBroadcastFailedMemberDoesNotAbortDelivery(t *testing.T) {
	r := NewRegistry()
	a, broken, c := newFakeConn("a"), newFakeConn("broken"), newFakeConn("c")
	broken.failSend = true
	require.NoError(t, r.Register(a, "alice", "genel"))
	require.NoError(t, r.Register(broken, "bob", "genel"))
	require.NoError(t, r.Register(c, "carol", "genel"))

	metrics := NewConnectionMetrics()
	bc := NewBroadcaster(r, metrics, nil)
	sent := bc.Broadcast("genel", NewMessageDeletedEvent(7), nil)

	assert.Equal(t, 2, sent)
	assert.Len(t, a.eventsOf(EventTypeMessageDeleted), 1)
	assert.Len(t, c.eventsOf(EventTypeMessageDeleted), 1)
	assert.Equal(t, 3, r.Len(), "failing members stay registered")

	snap := metrics.Snapshot()
	assert.Equal(t, int64(1), snap.TotalBroadcasts)
	assert.Equal(t, int64(2), snap.TotalDelivered)
	assert.Equal(t, int64(1), snap.TotalDropped)
}

func TestBroadcastStaysInsideChannel(t *testing.T) {
	r := NewRegistry()
	a, b := newFakeConn("a"), newFakeConn("b")
	require.NoError(t, r.Register(a, "alice", "genel"))
	require.NoError(t, r.Register(b, "bob", "destek"))

	bc := NewBroadcaster(r, nil, nil)
	bc.Broadcast("genel", NewChatMessageEvent(1, "alice", "hi", timeFixture()), nil)

	assert.Len(t, a.eventsOf(EventTypeMessage), 1)
	assert.Empty(t, b.events())
	assert.Zero(t, bc.Broadcast("nowhere", NewMessageDeletedEvent(1), nil))
}

func TestBroadcastPresenceListsMembersInJoinOrder(t *testing.T) {
	r := NewRegistry()
	a, b := newFakeConn("a"), newFakeConn("b")
	require.NoError(t, r.Register(b, "bob", "genel"))
	require.NoError(t, r.Register(a, "alice", "genel"))

	bc := NewBroadcaster(r, nil, nil)
	assert.Equal(t, 2, bc.BroadcastPresence("genel"))
	assert.Equal(t, []string{"bob", "alice"}, a.lastUsers())
	assert.Equal(t, []string{"bob", "alice"}, b.lastUsers())
}
