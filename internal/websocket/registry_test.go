package websocket

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func identities(members []Member) []string {
	out := make([]string, len(members))
	for i, m := range members {
		out[i] = m.Identity
	}
	return out
}

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()
	a := newFakeConn("a")

	assert.ErrorIs(t, r.Register(a, "", "genel"), ErrMissingIdentity)
	require.NoError(t, r.Register(a, "alice", "genel"))
	assert.ErrorIs(t, r.Register(a, "alice", "destek"), ErrAlreadyRegistered)

	channel, ok := r.ChannelOf(a)
	require.True(t, ok)
	assert.Equal(t, "genel", channel)
	assert.Equal(t, 1, r.Len())
	assert.True(t, r.IdentityOnline("alice"))
}

func TestRegistryMembersInJoinOrder(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(newFakeConn("1"), "carol", "genel"))
	require.NoError(t, r.Register(newFakeConn("2"), "alice", "genel"))
	require.NoError(t, r.Register(newFakeConn("3"), "bob", "genel"))
	require.NoError(t, r.Register(newFakeConn("4"), "dave", "destek"))

	assert.Equal(t, []string{"carol", "alice", "bob"}, identities(r.MembersOf("genel")))
	assert.Equal(t, []string{"dave"}, identities(r.MembersOf("destek")))
	assert.Empty(t, r.MembersOf("duyurular"))
}

func TestRegistryChangeChannelMovesConnection(t *testing.T) {
	r := NewRegistry()
	a, b := newFakeConn("a"), newFakeConn("b")
	require.NoError(t, r.Register(a, "alice", "genel"))
	require.NoError(t, r.Register(b, "bob", "genel"))

	old, err := r.ChangeChannel(a, "destek")
	require.NoError(t, err)
	assert.Equal(t, "genel", old)
	assert.Equal(t, []string{"bob"}, identities(r.MembersOf("genel")))
	assert.Equal(t, []string{"alice"}, identities(r.MembersOf("destek")))

	old, err = r.ChangeChannel(a, "destek")
	require.NoError(t, err)
	assert.Equal(t, "destek", old)
	assert.Equal(t, []string{"alice"}, identities(r.MembersOf("destek")))

	_, err = r.ChangeChannel(newFakeConn("ghost"), "genel")
	assert.ErrorIs(t, err, ErrNotRegistered)
}

func TestRegistryDeregister(t *testing.T) {
	r := NewRegistry()
	a := newFakeConn("a")
	require.NoError(t, r.Register(a, "alice", "genel"))

	identity, channel, ok := r.Deregister(a)
	require.True(t, ok)
	assert.Equal(t, "alice", identity)
	assert.Equal(t, "genel", channel)
	assert.Empty(t, r.MembersOf("genel"))
	assert.False(t, r.IdentityOnline("alice"))

	_, _, ok = r.Deregister(a)
	assert.False(t, ok)
}

func TestRegistrySameIdentityMultipleConnections(t *testing.T) {
	r := NewRegistry()
	a1, a2 := newFakeConn("a1"), newFakeConn("a2")
	require.NoError(t, r.Register(a1, "alice", "genel"))
	require.NoError(t, r.Register(a2, "alice", "destek"))

	r.Deregister(a1)
	assert.True(t, r.IdentityOnline("alice"))
	r.Deregister(a2)
	assert.False(t, r.IdentityOnline("alice"))
}

func TestRegistryConcurrentMutationsKeepOneChannelPerConnection(t *testing.T) {
	r := NewRegistry()
	channels := []string{"genel", "destek", "duyurular"}
	const workers = 50

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := newFakeConn(fmt.Sprintf("c%d", i))
			if err := r.Register(c, fmt.Sprintf("user%d", i), channels[i%3]); err != nil {
				t.Error(err)
				return
			}
			for j := 0; j < 20; j++ {
				if _, err := r.ChangeChannel(c, channels[(i+j)%3]); err != nil {
					t.Error(err)
				}
			}
			if i%2 == 0 {
				r.Deregister(c)
			}
		}(i)
	}
	wg.Wait()

	total := 0
	seen := make(map[string]bool)
	for _, ch := range channels {
		for _, m := range r.MembersOf(ch) {
			require.False(t, seen[m.Conn.ID()], "connection %s listed in two channels", m.Conn.ID())
			seen[m.Conn.ID()] = true
			total++
		}
	}
	assert.Equal(t, workers/2, r.Len())
	assert.Equal(t, r.Len(), total)
}

func TestRegistryIdentitiesAreDistinctAndSorted(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(newFakeConn("1"), "carol", "genel"))
	require.NoError(t, r.Register(newFakeConn("2"), "alice", "destek"))
	require.NoError(t, r.Register(newFakeConn("3"), "carol", "destek"))

	assert.Equal(t, []string{"alice", "carol"}, r.Identities())
}
