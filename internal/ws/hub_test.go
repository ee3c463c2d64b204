package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialHub(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, b, err := conn.ReadMessage()
	require.NoError(t, err)
	var ev map[string]any
	require.NoError(t, json.Unmarshal(b, &ev))
	return ev
}

func TestHubReplaysStickyToLateClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := NewHub()
	go h.Run(ctx)
	srv := httptest.NewServer(h.Handler())
	defer srv.Close()

	h.BroadcastSticky(map[string]any{"type": "presence", "n": 1})

	conn := dialHub(t, srv)
	ev := readEvent(t, conn)
	assert.Equal(t, "presence", ev["type"])

	require.Eventually(t, func() bool { return h.Clients(ctx) == 1 }, time.Second, 10*time.Millisecond)

	h.BroadcastJSON(map[string]any{"type": "state", "to": "open"})
	ev = readEvent(t, conn)
	assert.Equal(t, "state", ev["type"])
	assert.Equal(t, "open", ev["to"])
}

func TestHubDropsClosedClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := NewHub()
	go h.Run(ctx)
	srv := httptest.NewServer(h.Handler())
	defer srv.Close()

	conn := dialHub(t, srv)
	require.Eventually(t, func() bool { return h.Clients(ctx) == 1 }, time.Second, 10*time.Millisecond)

	_ = conn.Close()
	require.Eventually(t, func() bool { return h.Clients(ctx) == 0 }, 2*time.Second, 10*time.Millisecond)
}
