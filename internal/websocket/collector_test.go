package websocket

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorReportsHubCounters(t *testing.T) {
	hub, _ := newTestHub(t)
	alice := join(t, hub, "a", "alice", "genel")
	join(t, hub, "b", "bob", "genel")

	sendChat(t, alice, "hi")
	require.Eventually(t, func() bool { return len(alice.eventsOf(EventTypeMessage)) == 1 }, waitFor, tick)

	c := NewCollector(hub)
	assert.Equal(t, 7, testutil.CollectAndCount(c))

	expected := `
# HELP chat_relay_active_connections Live registered connections.
# TYPE chat_relay_active_connections gauge
chat_relay_active_connections 2
# HELP chat_relay_sessions_total Sessions that reached the active state.
# TYPE chat_relay_sessions_total counter
chat_relay_sessions_total 2
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected),
		"chat_relay_active_connections", "chat_relay_sessions_total"))
}
