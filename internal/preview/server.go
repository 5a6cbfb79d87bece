// Package preview serves a live view of a scene: frames are replayed on a
// timer and each result is pushed to connected browsers over a websocket.
package preview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/a-h/templ"

	"github.com/conneroisu/imbui/internal/config"
	"github.com/conneroisu/imbui/internal/logging"
	"github.com/conneroisu/imbui/internal/middleware"
	"github.com/conneroisu/imbui/internal/scene"
	"github.com/conneroisu/imbui/internal/watcher"
	"github.com/conneroisu/imbui/internal/websocket"
)

// Server replays one scene file. All scene work happens on the goroutine
// running Run, so the player needs no locking; only the last result is
// shared with HTTP handlers.
type Server struct {
	cfg    *config.Config
	path   string
	logger logging.Logger
	hub    *websocket.Hub

	player   *scene.Player
	frame    int
	paused   bool
	commands chan websocket.Command
	reloads  chan struct{}

	lastMu sync.RWMutex
	last   scene.FrameResult
	name   string
}

// New loads the scene at path and prepares a server for it.
func New(cfg *config.Config, path string, logger logging.Logger) (*Server, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	s := &Server{
		cfg:      cfg,
		path:     path,
		logger:   logger.WithComponent("preview"),
		frame:    -1,
		commands: make(chan websocket.Command, 16),
		reloads:  make(chan struct{}, 1),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	s.hub = websocket.NewHub(logger,
		websocket.WithOrigins(cfg.Server.AllowedOrigins...),
		websocket.WithCommandHandler(s.enqueue),
	)
	return s, nil
}

func (s *Server) load() error {
	sc, err := scene.Load(s.path)
	if err != nil {
		return err
	}
	s.player = scene.NewPlayer(sc, s.logger)
	s.frame = -1
	s.lastMu.Lock()
	s.name = sc.Name
	s.last = scene.FrameResult{Index: -1}
	s.lastMu.Unlock()
	return nil
}

func (s *Server) enqueue(cmd websocket.Command) {
	select {
	case s.commands <- cmd:
	default:
		s.logger.Warn(context.Background(), nil, "command queue full", "command", cmd.Type)
	}
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /frame", s.handleFrame)
	mux.Handle("/ws", s.hub)

	return middleware.NewChain(
		middleware.Recover(s.logger),
		middleware.Logging(s.logger),
		middleware.SecurityHeaders(),
	).Apply(mux)
}

// Last returns the most recently rendered frame.
func (s *Server) Last() scene.FrameResult {
	s.lastMu.RLock()
	defer s.lastMu.RUnlock()
	return s.last
}

// Step renders the next frame, wrapping around when looping is enabled.
// It reports false when the scene is finished.
func (s *Server) Step(ctx context.Context) (bool, error) {
	next := s.frame + 1
	frames := len(s.player.Scene().Frames)
	if next >= frames {
		if !s.cfg.Preview.Loop || frames == 0 {
			return false, nil
		}
		s.player.Reset()
		next = 0
	}
	return true, s.Goto(ctx, next)
}

// Goto renders frame i over the current state and broadcasts the result.
func (s *Server) Goto(ctx context.Context, i int) error {
	res, err := s.player.Step(ctx, i)
	if err != nil {
		s.hub.Broadcast(websocket.Message{Type: websocket.TypeError, Frame: i, Error: err.Error()})
		return err
	}
	s.frame = i
	s.lastMu.Lock()
	s.last = res
	s.lastMu.Unlock()
	s.hub.Broadcast(websocket.Message{Type: websocket.TypeFrame, Frame: i, HTML: res.HTML, Stats: res.Stats})
	return nil
}

// Reload rereads the scene file and starts over from the first frame.
func (s *Server) Reload(ctx context.Context) error {
	if err := s.load(); err != nil {
		s.hub.Broadcast(websocket.Message{Type: websocket.TypeError, Error: err.Error()})
		return err
	}
	s.logger.Info(ctx, "scene reloaded", "path", s.path)
	s.hub.Broadcast(websocket.Message{Type: websocket.TypeReload})
	_, err := s.Step(ctx)
	return err
}

// Handle applies a browser command.
func (s *Server) Handle(ctx context.Context, cmd websocket.Command) error {
	switch cmd.Type {
	case "next":
		_, err := s.Step(ctx)
		return err
	case "prev":
		if s.frame > 0 {
			return s.Goto(ctx, s.frame-1)
		}
		return nil
	case "goto":
		return s.Goto(ctx, cmd.Frame)
	case "reset":
		s.player.Reset()
		s.frame = -1
		_, err := s.Step(ctx)
		return err
	case "pause":
		s.paused = true
	case "play":
		s.paused = false
	default:
		return fmt.Errorf("unknown command %q", cmd.Type)
	}
	return nil
}

// Run drives playback until ctx is done: frames advance every
// preview.interval, browser commands are applied and the scene file is
// reloaded when it changes.
func (s *Server) Run(ctx context.Context) error {
	if s.cfg.Watch.Enabled {
		fw, err := watcher.NewFileWatcher(s.cfg.Watch.Debounce, s.logger)
		if err != nil {
			return err
		}
		defer fw.Stop()
		fw.AddHandler(func([]watcher.ChangeEvent) error {
			select {
			case s.reloads <- struct{}{}:
			default:
			}
			return nil
		})
		if err := fw.WatchFile(s.path); err != nil {
			return fmt.Errorf("watching %s: %w", s.path, err)
		}
		if err := fw.Start(ctx); err != nil {
			return err
		}
	}

	if _, err := s.Step(ctx); err != nil {
		s.logger.Warn(ctx, err, "first frame failed")
	}

	ticker := time.NewTicker(s.cfg.Preview.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if s.paused {
				continue
			}
			if _, err := s.Step(ctx); err != nil {
				s.logger.Warn(ctx, err, "frame failed", "frame", s.frame+1)
			}
		case cmd := <-s.commands:
			if err := s.Handle(ctx, cmd); err != nil {
				s.logger.Warn(ctx, err, "command failed", "command", cmd.Type)
			}
		case <-s.reloads:
			if err := s.Reload(ctx); err != nil {
				s.logger.Error(ctx, err, "reload failed", "path", s.path)
			}
		}
	}
}

// ListenAndServe serves HTTP on the configured address and runs playback
// until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener. Playback stops before
// Serve returns, whichever side fails first.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	s.logger.Info(ctx, "preview server listening", "addr", ln.Addr().String(), "scene", s.path)

	runc := make(chan error, 1)
	servec := make(chan error, 1)
	go func() { runc <- s.Run(ctx) }()
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			servec <- err
		}
	}()

	var err error
	running := true
	select {
	case <-ctx.Done():
	case err = <-runc:
		running = false
	case err = <-servec:
		err = fmt.Errorf("serving http: %w", err)
	}
	stop()
	if running {
		if runErr := <-runc; err == nil {
			err = runErr
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.hub.Shutdown(shutdownCtx)
	if shutErr := srv.Shutdown(shutdownCtx); shutErr != nil && err == nil {
		err = shutErr
	}
	return err
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.Last()); err != nil {
		s.logger.Warn(r.Context(), err, "writing frame response")
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.lastMu.RLock()
	name, last := s.name, s.last
	s.lastMu.RUnlock()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	page := indexPage(s.cfg.Preview.Title, name, last)
	if err := page.Render(r.Context(), w); err != nil {
		s.logger.Error(r.Context(), err, "rendering index page")
	}
}

// playbackCommands are the controls offered by the preview page, in order.
var playbackCommands = []string{"prev", "next", "pause", "play", "reset"}

// indexPage renders the preview shell with the current frame inlined.
func indexPage(title, sceneName string, last scene.FrameResult) templ.Component {
	heading := title
	if sceneName != "" {
		heading = title + ": " + sceneName
	}
	body := templ.Join(controls(last.Index), stage(last.HTML))
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return pageShell(heading).Render(templ.WithChildren(ctx, body), w)
	})
}

// pageShell writes the document head and client script around its children.
func pageShell(heading string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := templ.EscapeString(heading)
		if _, err := fmt.Fprintf(w, pageHead, h, h); err != nil {
			return err
		}
		if err := templ.GetChildren(ctx).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, pageFoot)
		return err
	})
}

func controls(frame int) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, "<nav>\n"); err != nil {
			return err
		}
		for _, cmd := range playbackCommands {
			c := templ.EscapeString(cmd)
			if _, err := fmt.Fprintf(w, "<button data-cmd=\"%s\">%s</button>\n", c, c); err != nil {
				return err
			}
		}
		_, err := fmt.Fprintf(w, "<span id=\"frame\">frame %d</span>\n</nav>\n", frame)
		return err
	})
}

// stage inlines the frame markup as produced by the renderer, unescaped.
func stage(markup string) templ.Component {
	return templ.Join(
		templ.Raw(`<div id="stage">`),
		templ.Raw(markup),
		templ.Raw("</div>\n"),
	)
}

const pageHead = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: system-ui, sans-serif; margin: 2rem; }
nav button { margin-right: .5rem; }
#stage { border: 1px dashed #999; padding: 1rem; margin-top: 1rem; }
</style>
</head>
<body>
<h1>%s</h1>
`

const pageFoot = `<script>
(function () {
  var ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws");
  ws.onmessage = function (e) {
    var msg = JSON.parse(e.data);
    if (msg.type === "frame") {
      document.getElementById("stage").innerHTML = msg.html;
      document.getElementById("frame").textContent = "frame " + msg.frame;
    } else if (msg.type === "error") {
      document.getElementById("frame").textContent = "error: " + msg.error;
    }
  };
  document.querySelectorAll("nav button").forEach(function (b) {
    b.onclick = function () { ws.send(JSON.stringify({type: b.dataset.cmd})); };
  });
})();
</script>
</body>
</html>
`
