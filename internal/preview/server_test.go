package preview

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	cws "github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/imbui/internal/config"
	"github.com/conneroisu/imbui/internal/scene"
	"github.com/conneroisu/imbui/internal/websocket"
)

const counterScene = `
name: counter
root: page
templates:
  page: ["<p>count: ", "</p>"]
frames:
  - values: [1]
  - values: [2]
`

func testConfig() *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{Host: "127.0.0.1", Port: 0},
		Preview: config.PreviewConfig{Interval: time.Hour, Loop: true, Title: "Preview <test>"},
		Watch:   config.WatchConfig{Enabled: false, Debounce: 20 * time.Millisecond},
	}
}

func writeScene(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scene.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newServer(t *testing.T, cfg *config.Config, path string) *Server {
	t.Helper()
	s, err := New(cfg, path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.hub.Shutdown(context.Background()) })
	return s
}

func TestNewRejectsBadScene(t *testing.T) {
	_, err := New(testConfig(), writeScene(t, "root: missing\n"), nil)
	assert.Error(t, err)

	_, err = New(testConfig(), filepath.Join(t.TempDir(), "none.yml"), nil)
	assert.Error(t, err)
}

func TestStepLoops(t *testing.T) {
	ctx := context.Background()
	s := newServer(t, testConfig(), writeScene(t, counterScene))

	var seen []int
	for range 3 {
		ok, err := s.Step(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		seen = append(seen, s.Last().Index)
	}
	assert.Equal(t, []int{0, 1, 0}, seen)
	assert.Contains(t, s.Last().HTML, ">1<")
}

func TestStepStopsWithoutLoop(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.Preview.Loop = false
	s := newServer(t, cfg, writeScene(t, counterScene))

	for range 2 {
		ok, err := s.Step(ctx)
		require.NoError(t, err)
		require.True(t, ok)
	}
	ok, err := s.Step(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, s.Last().Index)
}

func TestHandleCommands(t *testing.T) {
	ctx := context.Background()
	s := newServer(t, testConfig(), writeScene(t, counterScene))

	require.NoError(t, s.Handle(ctx, websocket.Command{Type: "next"}))
	require.NoError(t, s.Handle(ctx, websocket.Command{Type: "next"}))
	assert.Equal(t, 1, s.Last().Index)

	require.NoError(t, s.Handle(ctx, websocket.Command{Type: "prev"}))
	assert.Equal(t, 0, s.Last().Index)
	assert.Contains(t, s.Last().HTML, ">1<")

	require.NoError(t, s.Handle(ctx, websocket.Command{Type: "goto", Frame: 1}))
	assert.Contains(t, s.Last().HTML, ">2<")

	assert.Error(t, s.Handle(ctx, websocket.Command{Type: "goto", Frame: 9}))

	require.NoError(t, s.Handle(ctx, websocket.Command{Type: "reset"}))
	assert.Equal(t, 0, s.Last().Index)

	require.NoError(t, s.Handle(ctx, websocket.Command{Type: "pause"}))
	assert.True(t, s.paused)
	require.NoError(t, s.Handle(ctx, websocket.Command{Type: "play"}))
	assert.False(t, s.paused)

	assert.Error(t, s.Handle(ctx, websocket.Command{Type: "dance"}))
}

func TestHandlerRoutes(t *testing.T) {
	s := newServer(t, testConfig(), writeScene(t, counterScene))
	require.NoError(t, s.Goto(context.Background(), 1))
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/frame")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var frame scene.FrameResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&frame))
	assert.Equal(t, 1, frame.Index)
	assert.Contains(t, frame.HTML, ">2<")

	page, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer page.Body.Close()
	body, err := io.ReadAll(page.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "<title>Preview &lt;test&gt;: counter</title>")
	assert.Contains(t, string(body), ">2<")

	missing, err := http.Get(srv.URL + "/nope")
	require.NoError(t, err)
	missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestReload(t *testing.T) {
	ctx := context.Background()
	path := writeScene(t, counterScene)
	s := newServer(t, testConfig(), path)
	require.NoError(t, s.Goto(ctx, 1))

	updated := strings.Replace(counterScene, "count: ", "total: ", 1)
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))
	require.NoError(t, s.Reload(ctx))

	assert.Equal(t, 0, s.Last().Index)
	assert.Contains(t, s.Last().HTML, "total: ")

	require.NoError(t, os.WriteFile(path, []byte("root: [broken"), 0o644))
	assert.Error(t, s.Reload(ctx))
}

func TestRunReloadsOnChange(t *testing.T) {
	path := writeScene(t, counterScene)
	cfg := testConfig()
	cfg.Watch.Enabled = true
	s := newServer(t, cfg, path)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return s.Last().Index == 0 }, 5*time.Second, 10*time.Millisecond)

	updated := strings.Replace(counterScene, "count: ", "changed: ", 1)
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))
	require.Eventually(t, func() bool {
		return strings.Contains(s.Last().HTML, "changed: ")
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestServeBroadcastsFrames(t *testing.T) {
	s := newServer(t, testConfig(), writeScene(t, counterScene))
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	require.Eventually(t, func() bool { return s.Last().Index == 0 }, 5*time.Second, 10*time.Millisecond)

	dialCtx, dialCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer dialCancel()
	conn, _, err := cws.Dial(dialCtx, "ws://"+ln.Addr().String()+"/ws", nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	_, data, err := conn.Read(dialCtx)
	require.NoError(t, err)
	var msg websocket.Message
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, websocket.TypeFrame, msg.Type)
	assert.Equal(t, 0, msg.Frame)

	require.NoError(t, conn.Write(dialCtx, cws.MessageText, []byte(`{"type":"next"}`)))
	_, data, err = conn.Read(dialCtx)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, 1, msg.Frame)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Serve did not stop")
	}
}

func TestServeStopsPlaybackWhenListenerFails(t *testing.T) {
	s := newServer(t, testConfig(), writeScene(t, counterScene))
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	require.NoError(t, ln.Close())

	done := make(chan error, 1)
	go func() { done <- s.Serve(context.Background(), ln) }()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Serve did not return after the listener failed")
	}

	// Nothing drains the command queue once playback has stopped.
	s.enqueue(websocket.Command{Type: "next"})
	assert.Len(t, s.commands, 1)
}

func TestIndexPage(t *testing.T) {
	page := indexPage("Preview", "a&b", scene.FrameResult{Index: 3, HTML: `<p class="x">hi</p>`})

	var sb strings.Builder
	require.NoError(t, page.Render(context.Background(), &sb))
	out := sb.String()

	assert.Contains(t, out, "<title>Preview: a&amp;b</title>")
	assert.Contains(t, out, "<h1>Preview: a&amp;b</h1>")
	assert.Contains(t, out, `<span id="frame">frame 3</span>`)
	assert.Contains(t, out, `<div id="stage"><p class="x">hi</p></div>`)
	assert.Equal(t, len(playbackCommands), strings.Count(out, "<button data-cmd="))
	assert.Less(t, strings.Index(out, "<nav>"), strings.Index(out, `<div id="stage">`))
	assert.Less(t, strings.Index(out, `<div id="stage">`), strings.Index(out, "<script>"))
}
