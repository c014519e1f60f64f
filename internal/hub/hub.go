// Package hub maintains the set of connected websocket clients and fans
// messages out to them.
package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20 // Prompt snapshots can be large.

	sendBuffer = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The daemon binds to loopback; cross-origin browser pages cannot
		// reach it. Origin checks would only break CLI clients.
		return true
	},
}

// Handler processes one inbound client message and optionally returns a
// reply to send back to the same client.
type Handler func(ctx context.Context, data []byte) ([]byte, error)

// Hub is the client registry. All client set mutations go through Run's
// select loop; Broadcast and ServeWS are safe to call from any goroutine.
type Hub struct {
	handler Handler

	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	done       chan struct{}
	clients    map[*client]bool
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// New creates a Hub. handler receives every inbound client message; it may
// be nil when clients are broadcast-only listeners.
func New(handler Handler) *Hub {
	return &Hub{
		handler:    handler,
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, sendBuffer),
		done:       make(chan struct{}),
		clients:    make(map[*client]bool),
	}
}

// Run owns the client registry. It blocks until the context is canceled,
// then closes every client connection. Registry channel sends select on
// done so client goroutines never block once the loop has stopped.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			slog.Info("hub stopped")
			return
		case c := <-h.register:
			h.clients[c] = true
			slog.Debug("websocket client connected", "clients", len(h.clients))
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				slog.Debug("websocket client disconnected", "clients", len(h.clients))
			}
		case data := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- data:
				default:
					// Slow client; drop it rather than block the hub.
					delete(h.clients, c)
					close(c.send)
				}
			}
		}
	}
}

// Broadcast sends message, JSON-encoded, to every connected client.
func (h *Hub) Broadcast(message any) {
	data, err := json.Marshal(message)
	if err != nil {
		slog.Error("broadcast encode failed", "error", err)
		return
	}
	select {
	case h.broadcast <- data:
	case <-h.done:
	}
}

// ServeWS upgrades the request and attaches the connection to the hub.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}

	c := &client{hub: h, conn: conn, send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump(r.Context())
}

// readPump reads client messages, hands them to the handler, and queues any
// reply. It unregisters the client on the first read error.
func (c *client) readPump(ctx context.Context) {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
			// Run already closed the registry; nothing left to leave.
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("websocket read failed", "error", err)
			}
			return
		}
		if c.hub.handler == nil {
			continue
		}

		reply, err := c.hub.handler(ctx, data)
		if err != nil {
			slog.Error("websocket message handling failed", "error", err)
			continue
		}
		if reply != nil {
			select {
			case c.send <- reply:
			default:
				slog.Warn("reply dropped: client send buffer full")
			}
		}
	}
}

// writePump drains the send channel to the connection and keeps the
// connection alive with pings. One writer goroutine per connection; gorilla
// connections do not allow concurrent writers.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
