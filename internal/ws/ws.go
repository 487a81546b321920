// Package ws fans migration events out to browser clients over
// WebSockets. The hub owns the client set; broadcasts never block the
// sender — a client whose buffer is full is dropped.
package ws

import (
	"log/slog"
	"sync"

	"nhooyr.io/websocket"
)

// StateProviderFunc returns the current migration state as JSON bytes,
// sent to clients on connect and on sync requests.
type StateProviderFunc func() ([]byte, error)

// Hub manages WebSocket connections and broadcasts messages to all
// connected clients.
type Hub struct {
	clients       map[*Client]bool
	broadcast     chan []byte
	register      chan *Client
	unregister    chan *Client
	logger        *slog.Logger
	mu            sync.RWMutex
	stateProvider StateProviderFunc
}

// Client is a single WebSocket connection.
type Client struct {
	hub  *Hub
	send chan []byte
	conn *websocket.Conn
}

// NewHub creates a hub. Run must be started for it to process events.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
}

// SetStateProvider sets the function called to build the full-state
// snapshot for new and re-syncing clients.
func (h *Hub) SetStateProvider(fn StateProviderFunc) {
	h.stateProvider = fn
}

// Run starts the hub's event loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Debug("websocket client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Debug("websocket client disconnected")

		case message := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Broadcast sends a raw message to all connected clients.
func (h *Hub) Broadcast(message []byte) {
	h.broadcast <- message
}

// BroadcastProgress broadcasts a migration progress event.
func (h *Hub) BroadcastProgress(payload any) {
	h.send(MsgMigrationProgress, payload)
}

// BroadcastPhase broadcasts a phase transition.
func (h *Hub) BroadcastPhase(phase string) {
	h.send(MsgPhaseChanged, map[string]string{"phase": phase})
}

// BroadcastWarning broadcasts a pipeline warning.
func (h *Hub) BroadcastWarning(warning string) {
	h.send(MsgWarning, map[string]string{"message": warning})
}

// BroadcastError broadcasts a run failure.
func (h *Hub) BroadcastError(errMsg string) {
	h.send(MsgError, map[string]string{"message": errMsg})
}

func (h *Hub) send(typ MessageType, payload any) {
	msg, err := NewMessage(typ, payload)
	if err != nil {
		h.logger.Error("encoding websocket message", "type", string(typ), "error", err)
		return
	}
	h.Broadcast(msg)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
