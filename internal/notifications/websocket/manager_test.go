package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func dial(t *testing.T, server *httptest.Server, user string) *gws.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "?user=" + user
	conn, _, err := gws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	var hello Message
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&hello))
	require.Equal(t, "status", hello.Type)
	return conn
}

func newServer(t *testing.T) (*Manager, *httptest.Server) {
	t.Helper()
	m := NewManager(nil, zap.NewNop())
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = m.HandleConnection(w, r, r.URL.Query().Get("user"))
	}))
	t.Cleanup(func() {
		m.Close()
		server.Close()
	})
	return m, server
}

func TestBroadcastReachesAllClients(t *testing.T) {
	m, server := newServer(t)
	a := dial(t, server, "user-1")
	b := dial(t, server, "user-2")
	require.Eventually(t, func() bool { return m.ConnectionCount() == 2 }, time.Second, 10*time.Millisecond)

	assert.Equal(t, 2, m.Broadcast(Message{Type: "inspection.submitted", Data: map[string]string{"id": "INS-1"}}))

	for _, conn := range []*gws.Conn{a, b} {
		var msg Message
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		require.NoError(t, conn.ReadJSON(&msg))
		assert.Equal(t, "inspection.submitted", msg.Type)
		assert.False(t, msg.Timestamp.IsZero())
	}
}

func TestSendToUser(t *testing.T) {
	m, server := newServer(t)
	a := dial(t, server, "user-1")
	dial(t, server, "user-2")
	require.Eventually(t, func() bool { return m.ConnectionCount() == 2 }, time.Second, 10*time.Millisecond)

	require.NoError(t, m.SendToUser("user-1", Message{Type: "direct"}))
	assert.Error(t, m.SendToUser("user-9", Message{Type: "direct"}))

	var msg Message
	require.NoError(t, a.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, a.ReadJSON(&msg))
	assert.Equal(t, "direct", msg.Type)
	assert.Equal(t, "user-1", msg.Target)
}

func TestPingPongAndDisconnect(t *testing.T) {
	m, server := newServer(t)
	conn := dial(t, server, "user-1")

	require.NoError(t, conn.WriteJSON(Message{Type: "ping"}))
	var msg Message
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "pong", msg.Type)

	infos := m.Connections()
	require.Len(t, infos, 1)
	assert.Equal(t, "user-1", infos[0].UserID)

	conn.Close()
	require.Eventually(t, func() bool { return m.ConnectionCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestCloseRefusesNewConnections(t *testing.T) {
	m, server := newServer(t)
	dial(t, server, "user-1")
	m.Close()
	assert.Equal(t, 0, m.ConnectionCount())
	assert.Equal(t, 0, m.Broadcast(Message{Type: "late"}))
}
