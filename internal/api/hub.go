// Package api serves dataset queries, aggregations and live refresh events
// over HTTP and WebSocket.
package api

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const hubWriteTimeout = 10 * time.Second

// Hub tracks connected WebSocket clients and fans refresh events out to
// them. Clients that cannot accept a write within the deadline are dropped.
type Hub struct {
	mu       sync.Mutex
	clients  map[*websocket.Conn]struct{}
	onChange func(n int) // observability hook, called with the client count
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]struct{})}
}

// SetOnChange installs a callback invoked with the client count after every
// add or drop.
func (h *Hub) SetOnChange(fn func(n int)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onChange = fn
}

// Add registers a connection.
func (h *Hub) Add(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = struct{}{}
	h.notifyLocked()
}

// Remove drops a connection and closes it.
func (h *Hub) Remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(conn)
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast sends v as one JSON text message to every connected client.
func (h *Hub) Broadcast(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("broadcast marshal failed", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(hubWriteTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			slog.Warn("dropping slow websocket client", "error", err)
			h.dropLocked(conn)
		}
	}
}

// CloseAll disconnects every client, typically during shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		h.dropLocked(conn)
	}
}

func (h *Hub) dropLocked(conn *websocket.Conn) {
	if _, ok := h.clients[conn]; !ok {
		return
	}
	delete(h.clients, conn)
	conn.Close()
	h.notifyLocked()
}

func (h *Hub) notifyLocked() {
	if h.onChange != nil {
		h.onChange(len(h.clients))
	}
}
