package utility

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Upgrader is shared by all websocket endpoints.
var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The SPA may be served from another origin during development.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// DefaultWriteWait bounds a single websocket write. A client that cannot take
// a message in that time is dropped.
const DefaultWriteWait = 10 * time.Second

// Hub tracks the websocket clients watching each plan's image stream.
// Several tabs may watch the same plan. All writes go through the hub so a
// connection never has two concurrent writers.
type Hub struct {
	mu        sync.Mutex
	clients   map[string]map[*websocket.Conn]struct{}
	writeWait time.Duration
}

func NewHub() *Hub {
	return NewHubWithWriteWait(DefaultWriteWait)
}

func NewHubWithWriteWait(writeWait time.Duration) *Hub {
	if writeWait <= 0 {
		writeWait = DefaultWriteWait
	}
	return &Hub{
		clients:   make(map[string]map[*websocket.Conn]struct{}),
		writeWait: writeWait,
	}
}

// Register adds a client connection for a plan.
func (h *Hub) Register(planID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[planID] == nil {
		h.clients[planID] = make(map[*websocket.Conn]struct{})
	}
	h.clients[planID][conn] = struct{}{}
	log.Info().Str("plan_id", planID).Msg("WebSocket client connected")
}

// Unregister removes a client (when they close the tab) and closes the connection.
func (h *Hub) Unregister(planID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(planID, conn)
}

func (h *Hub) removeLocked(planID string, conn *websocket.Conn) {
	conns, ok := h.clients[planID]
	if !ok {
		return
	}
	if _, ok := conns[conn]; !ok {
		return
	}
	delete(conns, conn)
	conn.Close()
	if len(conns) == 0 {
		delete(h.clients, planID)
	}
	log.Info().Str("plan_id", planID).Msg("WebSocket client disconnected")
}

// Count reports how many clients are watching a plan.
func (h *Hub) Count(planID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[planID])
}

// Broadcast sends v as JSON to every client of a plan. Clients that fail to
// receive it within the write wait are dropped.
func (h *Hub) Broadcast(planID string, v interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients[planID] {
		if err := h.writeLocked(conn, v); err != nil {
			log.Error().Err(err).Str("plan_id", planID).Msg("Failed to send WS message, removing client")
			h.removeLocked(planID, conn)
		}
	}
}

// Send writes v to a single connection, registered or not. A registered
// client that fails to receive it is dropped.
func (h *Hub) Send(planID string, conn *websocket.Conn, v interface{}) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	err := h.writeLocked(conn, v)
	if err != nil {
		log.Error().Err(err).Str("plan_id", planID).Msg("Failed to send WS message")
		h.removeLocked(planID, conn)
	}
	return err
}

func (h *Hub) writeLocked(conn *websocket.Conn, v interface{}) error {
	if err := conn.SetWriteDeadline(time.Now().Add(h.writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(v)
}
