// Package ws provides a lightweight WebSocket pub/sub hub.
// Components broadcast JSON events through the hub, and every connected client
// receives them in real time. A sticky event is remembered and replayed to
// clients that connect later, so a fresh page sees the current presence
// without waiting for the next change. The hub also handles ping/pong
// keepalives so stale connections get cleaned up automatically.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

type message struct {
	data   []byte
	sticky bool
}

// Hub manages WebSocket client connections and fans out broadcast messages
// to all of them. It is safe for concurrent use; register, unregister, and
// broadcast all go through channels.
type Hub struct {
	clients    map[*websocket.Conn]struct{}
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	broadcast  chan message
	upgrader   websocket.Upgrader
	latest     []byte
	count      chan chan int
}

// NewHub allocates a hub with buffered channels.
// Call Run in a goroutine to start the event loop.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]struct{}),
		register:   make(chan *websocket.Conn, 16),
		unregister: make(chan *websocket.Conn, 16),
		broadcast:  make(chan message, 256),
		count:      make(chan chan int),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Run processes registrations, unregistrations, broadcasts, and keepalive
// pings in a single select loop. It closes all clients when ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	ping := time.NewTicker(20 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				_ = c.Close()
			}
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			if h.latest != nil {
				h.send(c, websocket.TextMessage, h.latest, 3*time.Second)
			}

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				_ = c.Close()
			}

		case msg := <-h.broadcast:
			if msg.sticky {
				h.latest = msg.data
			}
			for c := range h.clients {
				h.send(c, websocket.TextMessage, msg.data, 3*time.Second)
			}

		case reply := <-h.count:
			reply <- len(h.clients)

		case <-ping.C:
			for c := range h.clients {
				h.send(c, websocket.PingMessage, nil, 2*time.Second)
			}
		}
	}
}

// send writes one frame, dropping the client if the write fails.
func (h *Hub) send(c *websocket.Conn, typ int, data []byte, timeout time.Duration) {
	_ = c.SetWriteDeadline(time.Now().Add(timeout))
	if err := c.WriteMessage(typ, data); err != nil {
		delete(h.clients, c)
		_ = c.Close()
	}
}

// Handler returns an http.Handler that upgrades incoming requests to
// WebSocket connections and registers them with the hub.
func (h *Hub) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			// The upgrader has already written an error response.
			return
		}
		h.register <- conn

		go func() {
			defer func() { h.unregister <- conn }()
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			conn.SetPongHandler(func(string) error {
				_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
				return nil
			})

			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	})
}

// Clients reports the number of connected clients. It blocks until Run
// answers, so only call it while Run is active.
func (h *Hub) Clients(ctx context.Context) int {
	reply := make(chan int, 1)
	select {
	case h.count <- reply:
		return <-reply
	case <-ctx.Done():
		return 0
	}
}

// BroadcastJSON marshals v to JSON and queues it for delivery to all
// connected clients. If the broadcast channel is full the message is
// silently dropped to avoid blocking the caller.
func (h *Hub) BroadcastJSON(v any) {
	h.enqueue(v, false)
}

// BroadcastSticky is BroadcastJSON, but the message is also kept and sent
// to every client that connects afterwards, until the next sticky message.
func (h *Hub) BroadcastSticky(v any) {
	h.enqueue(v, true)
}

func (h *Hub) enqueue(v any, sticky bool) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- message{data: b, sticky: sticky}:
	default:
	}
}
