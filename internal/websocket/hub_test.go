package websocket

import (
	"context"
	"fmt"
	"testing"
	"time"

	"chat-relay/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubDeleteMessageNotifiesChannel(t *testing.T) {
	events := &recordingEvents{}
	hub, store := newTestHub(t, WithMessageEvents(events))
	alice := join(t, hub, "a", "alice", "genel")
	carol := join(t, hub, "c", "carol", "destek")

	msg, err := store.Save(context.Background(), "alice", "genel", "from http")
	require.NoError(t, err)

	deleted, err := hub.DeleteMessage(context.Background(), msg.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, "genel", deleted.Channel)
	require.Len(t, alice.eventsOf(EventTypeMessageDeleted), 1)
	assert.Empty(t, carol.eventsOf(EventTypeMessageDeleted))

	_, err = hub.DeleteMessage(context.Background(), msg.ID, "alice")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	_, removed := events.counts()
	assert.Equal(t, 1, removed)
}

func TestHubMirrorsOfflineOnlyAfterLastConnection(t *testing.T) {
	mirror := &recordingMirror{}
	hub, _ := newTestHub(t, WithPresenceMirror(mirror))
	first := join(t, hub, "a1", "alice", "genel")
	second := join(t, hub, "a2", "alice", "destek")

	require.Eventually(t, func() bool { return len(mirror.snapshot()) == 2 }, waitFor, tick)

	first.Close()
	require.Eventually(t, func() bool { return hub.Registry().Len() == 1 }, waitFor, tick)
	assert.Equal(t, []string{"online:alice", "online:alice"}, mirror.snapshot())

	second.Close()
	require.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{"online:alice", "online:alice", "offline:alice"}, mirror.snapshot())
	}, waitFor, tick)
}

func TestHubStopClosesEveryConnection(t *testing.T) {
	hub := NewHub(failingStore{})
	alice := join(t, hub, "a", "alice", "genel")
	pending := newFakeConn("pending")
	go hub.Serve(pending)
	require.Eventually(t, func() bool {
		hub.mu.Lock()
		defer hub.mu.Unlock()
		return len(hub.live) == 2
	}, waitFor, tick)

	hub.Stop()

	assert.True(t, alice.isClosed())
	assert.True(t, pending.isClosed())
	assert.Zero(t, hub.Registry().Len())

	late := newFakeConn("late")
	hub.Serve(late)
	assert.True(t, late.isClosed())
}

// slowCloseConn stalls in Close like a client whose write pump is stuck.
type slowCloseConn struct {
	*fakeConn
	delay time.Duration
}

func (c *slowCloseConn) Close() error {
	time.Sleep(c.delay)
	return c.fakeConn.Close()
}

func TestHubStopClosesSlowPeersConcurrently(t *testing.T) {
	hub := NewHub(failingStore{})
	const peers = 5
	const delay = 300 * time.Millisecond

	conns := make([]*slowCloseConn, 0, peers)
	for i := 0; i < peers; i++ {
		c := &slowCloseConn{fakeConn: newFakeConn(fmt.Sprintf("slow-%d", i)), delay: delay}
		go hub.Serve(c)
		c.push(t, JoinFrame{Username: fmt.Sprintf("user%d", i)})
		require.Eventually(t, func() bool {
			_, ok := hub.Registry().ChannelOf(c)
			return ok
		}, waitFor, tick)
		conns = append(conns, c)
	}

	start := time.Now()
	hub.Stop()
	elapsed := time.Since(start)

	assert.Less(t, elapsed, time.Duration(peers-1)*delay, "peers should not be closed one after another")
	for _, c := range conns {
		assert.True(t, c.isClosed())
	}
	assert.Zero(t, hub.Registry().Len())
}
