package websocket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.CloseNow() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Shutdown(context.Background())
	srv := httptest.NewServer(hub)
	defer srv.Close()

	a := dial(t, srv)
	b := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Clients() == 2 }, 5*time.Second, 10*time.Millisecond)

	hub.Broadcast(Message{Type: TypeFrame, Frame: 3, HTML: "<p>x</p>"})

	for _, conn := range []*websocket.Conn{a, b} {
		msg := readMessage(t, conn)
		assert.Equal(t, TypeFrame, msg.Type)
		assert.Equal(t, 3, msg.Frame)
		assert.Equal(t, "<p>x</p>", msg.HTML)
		assert.False(t, msg.Timestamp.IsZero())
	}
}

func TestHubReplaysLatestMessage(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Shutdown(context.Background())
	srv := httptest.NewServer(hub)
	defer srv.Close()

	hub.Broadcast(Message{Type: TypeFrame, Frame: 1})
	hub.Broadcast(Message{Type: TypeFrame, Frame: 2})

	conn := dial(t, srv)
	msg := readMessage(t, conn)
	assert.Equal(t, 2, msg.Frame)
}

func TestHubCommands(t *testing.T) {
	commands := make(chan Command, 1)
	hub := NewHub(nil, WithCommandHandler(func(c Command) { commands <- c }))
	defer hub.Shutdown(context.Background())
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`not json`)))
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{"type":"goto","frame":4}`)))

	select {
	case cmd := <-commands:
		assert.Equal(t, Command{Type: "goto", Frame: 4}, cmd)
	case <-ctx.Done():
		t.Fatal("command not delivered")
	}
}

func TestHubRejectsForeignOrigin(t *testing.T) {
	hub := NewHub(nil, WithOrigins("example.com"))
	defer hub.Shutdown(context.Background())
	srv := httptest.NewServer(hub)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	opts := &websocket.DialOptions{HTTPHeader: map[string][]string{"Origin": {"http://evil.test"}}}
	_, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), opts)
	assert.Error(t, err)
}

func TestHubShutdown(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 5*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, hub.Shutdown(ctx))
	require.NoError(t, hub.Shutdown(ctx), "shutdown is idempotent")

	assert.Zero(t, hub.Clients())
	_, _, err := conn.Read(ctx)
	assert.Error(t, err)

	hub.Broadcast(Message{Type: TypeReload})
}
