// Package ws pushes network snapshots to display clients over
// websockets.
package ws

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/fieldmesh/fieldcoord/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Origin policy is enforced by the CORS layer in front of the mux.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Hub maintains the set of connected display clients and broadcasts
// every published snapshot to them. Slow clients are dropped rather
// than allowed to block the broadcast.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	logger     zerolog.Logger
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a hub; call Run on its own goroutine.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, 16),
		register:   make(chan *client),
		unregister: make(chan *client),
		logger:     logger,
	}
}

// Run processes client registration and broadcasts until the broadcast
// channel is closed.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
			h.logger.Info().Str("remote", c.conn.RemoteAddr().String()).Msg("Display client connected")

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				h.logger.Info().Str("remote", c.conn.RemoteAddr().String()).Msg("Display client disconnected")
			}

		case message := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- message:
				default:
					h.logger.Warn().Str("remote", c.conn.RemoteAddr().String()).Msg("Display client too slow, dropping")
					close(c.send)
					delete(h.clients, c)
				}
			}
		}
	}
}

// BroadcastSnapshot encodes one snapshot and queues it for every
// connected client. Safe to call from the coordination publish path.
func (h *Hub) BroadcastSnapshot(snapshot models.NetworkSnapshot) {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode snapshot for broadcast")
		return
	}
	h.broadcast <- payload
}

// ServeHTTP upgrades the request to a websocket and attaches the client
// to the hub.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Websocket upgrade failed")
		return
	}
	c := &client{conn: conn, send: make(chan []byte, 8)}
	h.register <- c

	go c.writePump()
	go c.readPump(h)
}

// writePump drains the send channel onto the connection.
func (c *client) writePump() {
	defer c.conn.Close()
	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}

// readPump discards inbound frames; the display layer is read-only.
// Its real job is detecting the close handshake.
func (c *client) readPump(h *Hub) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
