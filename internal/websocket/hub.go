// Package websocket broadcasts preview updates to browsers over
// coder/websocket connections.
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/conneroisu/imbui/internal/logging"
)

// Message is sent from the server to every connected browser.
type Message struct {
	Type      string    `json:"type"`
	Frame     int       `json:"frame"`
	HTML      string    `json:"html,omitempty"`
	Stats     any       `json:"stats,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Message types.
const (
	TypeFrame  = "frame"
	TypeReload = "reload"
	TypeError  = "error"
)

// Command is a control message received from a browser, such as
// {"type":"next"}.
type Command struct {
	Type  string `json:"type"`
	Frame int    `json:"frame,omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub tracks connected clients and fans messages out to them. The latest
// broadcast is replayed to clients that connect later.
type Hub struct {
	logger    logging.Logger
	origins   []string
	onCommand func(Command)

	clients    map[*client]struct{}
	clientsMu  sync.RWMutex
	broadcast  chan []byte
	register   chan *client
	unregister chan *client

	lastMu sync.RWMutex
	last   []byte

	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
	done     chan struct{}
}

// Option configures a Hub.
type Option func(*Hub)

// WithOrigins sets the host patterns allowed to connect cross-origin.
func WithOrigins(patterns ...string) Option {
	return func(h *Hub) { h.origins = patterns }
}

// WithCommandHandler sets the function receiving browser commands. It runs
// on the reading goroutine of the sending client.
func WithCommandHandler(fn func(Command)) Option {
	return func(h *Hub) { h.onCommand = fn }
}

// NewHub starts a hub. logger may be nil.
func NewHub(logger logging.Logger, opts ...Option) *Hub {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		logger:     logger.WithComponent("websocket"),
		clients:    make(map[*client]struct{}),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *client, 16),
		unregister: make(chan *client, 16),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	go h.run()
	return h
}

// ServeHTTP upgrades the request and keeps the connection until either side
// closes it.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.ctx.Err() != nil {
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  h.origins,
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		h.logger.Warn(r.Context(), err, "websocket upgrade failed", "remote", r.RemoteAddr)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, 32)}
	if last := h.latest(); last != nil {
		c.send <- last
	}

	select {
	case h.register <- c:
	case <-h.ctx.Done():
		_ = conn.Close(websocket.StatusServiceRestart, "server shutting down")
		return
	}

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) run() {
	defer close(h.done)
	for {
		select {
		case c := <-h.register:
			h.clientsMu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.clientsMu.Unlock()
			h.logger.Debug(h.ctx, "client connected", "clients", n)

		case c := <-h.unregister:
			h.drop(c, websocket.StatusNormalClosure, "")

		case msg := <-h.broadcast:
			h.clientsMu.RLock()
			var slow []*client
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					slow = append(slow, c)
				}
			}
			h.clientsMu.RUnlock()
			for _, c := range slow {
				h.drop(c, websocket.StatusPolicyViolation, "client too slow")
			}

		case <-h.ctx.Done():
			h.clientsMu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
				_ = c.conn.Close(websocket.StatusGoingAway, "server shutdown")
			}
			h.clientsMu.Unlock()
			return
		}
	}
}

// drop removes c. Only the run goroutine calls it, so send is closed once.
func (h *Hub) drop(c *client, code websocket.StatusCode, reason string) {
	h.clientsMu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.clientsMu.Unlock()
	if !ok {
		return
	}
	close(c.send)
	_ = c.conn.Close(code, reason)
	h.logger.Debug(h.ctx, "client disconnected", "clients", n)
}

func (h *Hub) readPump(c *client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.ctx.Done():
		}
	}()

	for {
		_, data, err := c.conn.Read(h.ctx)
		if err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure && h.ctx.Err() == nil {
				h.logger.Debug(h.ctx, "websocket read ended", "error", err.Error())
			}
			return
		}
		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			h.logger.Warn(h.ctx, err, "ignoring malformed command", "bytes", len(data))
			continue
		}
		if h.onCommand != nil {
			h.onCommand(cmd)
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			ctx, cancel := context.WithTimeout(h.ctx, 10*time.Second)
			err := c.conn.Write(ctx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				h.logger.Debug(h.ctx, "websocket write failed", "error", err.Error())
				return
			}
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(h.ctx, 10*time.Second)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				return
			}
		case <-h.ctx.Done():
			return
		}
	}
}

// Broadcast sends msg to every client. It never blocks; messages are dropped
// when the hub is saturated or shut down.
func (h *Hub) Broadcast(msg Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error(h.ctx, err, "encoding broadcast message", "type", msg.Type)
		return
	}

	h.lastMu.Lock()
	h.last = data
	h.lastMu.Unlock()

	select {
	case h.broadcast <- data:
	case <-h.ctx.Done():
	default:
		h.logger.Warn(h.ctx, nil, "broadcast queue full, dropping message", "type", msg.Type)
	}
}

func (h *Hub) latest() []byte {
	h.lastMu.RLock()
	defer h.lastMu.RUnlock()
	return h.last
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// Shutdown disconnects every client and stops the hub.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.stopOnce.Do(h.cancel)
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
