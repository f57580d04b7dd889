package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, srv *httptest.Server, join JoinFrame) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, conn.WriteJSON(join))
	return conn
}

// readUntil reads events until one of typ arrives.
func readUntil(t *testing.T, conn *websocket.Conn, typ EventType) received {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(waitFor))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var ev received
		require.NoError(t, json.Unmarshal(data, &ev))
		if ev["type"] == string(typ) {
			return ev
		}
	}
}

func TestServeWSRelaysBetweenRealSockets(t *testing.T) {
	hub, _ := newTestHub(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWS(hub, w, r)
	}))
	defer srv.Close()

	alice := dial(t, srv, JoinFrame{Username: "alice", Channel: "genel"})
	readUntil(t, alice, EventTypeUsers)
	bob := dial(t, srv, JoinFrame{Username: "bob", Channel: "genel"})
	presence := readUntil(t, bob, EventTypeUsers)
	assert.Equal(t, []any{"alice", "bob"}, presence["users"])

	require.NoError(t, alice.WriteJSON(map[string]any{"type": "message", "text": "merhaba"}))
	ev := readUntil(t, bob, EventTypeMessage)
	assert.Equal(t, "alice", ev["user"])
	assert.Equal(t, "merhaba", ev["text"])

	require.NoError(t, alice.Close())
	left := readUntil(t, bob, EventTypeUsers)
	assert.Equal(t, []any{"bob"}, left["users"])
}

func TestServeWSRejectsForeignOrigin(t *testing.T) {
	hub, _ := newTestHub(t, WithAllowedOrigins([]string{"https://chat.example.com"}))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWS(hub, w, r)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	header := http.Header{"Origin": []string{"https://evil.example.org"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestOriginAllowed(t *testing.T) {
	allowed := []string{"https://chat.example.com"}
	assert.True(t, originAllowed("https://evil.example.org", nil))
	assert.True(t, originAllowed("https://chat.example.com", allowed))
	assert.True(t, originAllowed("http://localhost:3000", allowed))
	assert.True(t, originAllowed("", allowed))
	assert.False(t, originAllowed("https://evil.example.org", allowed))
}

func TestClientSendAfterCloseFails(t *testing.T) {
	hub, _ := newTestHub(t)
	accepted := make(chan *Client, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := hub.upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		accepted <- NewClient(conn, nil)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	peer, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer peer.Close()

	client := <-accepted
	require.NoError(t, client.Send([]byte(`{"type":"users","users":[]}`)))
	_, data, err := peer.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"users","users":[]}`, string(data))

	client.Close()
	assert.ErrorIs(t, client.Send([]byte(`{}`)), ErrConnectionClosed)
	assert.NoError(t, client.Close())
}
