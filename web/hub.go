// ABOUTME: Websocket hub pushing live board changes to browsers
// ABOUTME: Every committed service event is broadcast as JSON to all connected sockets
package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/harperreed/advisor-crm/crm"
)

// Message is what connected sockets receive.
type Message struct {
	Action string    `json:"action"`
	Event  crm.Event `json:"event"`
}

const (
	sendBuffer = 32
	writeWait  = 5 * time.Second
)

// Hub tracks websocket connections. Each connection has its own writer
// goroutine fed by a buffered queue, so Broadcast never waits on a socket.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *log.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]chan Message
}

func NewHub(logger *log.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger:  logger,
		clients: make(map[*websocket.Conn]chan Message),
	}
}

// Broadcast queues msg for every socket. A socket whose queue is full is
// dropped.
func (h *Hub) Broadcast(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, send := range h.clients {
		select {
		case send <- msg:
		default:
			h.logger.Debug("dropping slow websocket client", "remote", conn.RemoteAddr())
			h.unregister(conn)
		}
	}
}

// unregister closes the queue and the socket. Caller holds h.mu.
func (h *Hub) unregister(conn *websocket.Conn) {
	send, ok := h.clients[conn]
	if !ok {
		return
	}
	delete(h.clients, conn)
	close(send)
	_ = conn.Close()
}

func (h *Hub) writePump(conn *websocket.Conn, send <-chan Message) {
	for msg := range send {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(msg); err != nil {
			h.logger.Debug("dropping websocket client", "err", err)
			h.mu.Lock()
			h.unregister(conn)
			h.mu.Unlock()
		}
	}
}

// Listener adapts the hub to service events.
func (h *Hub) Listener() crm.Listener {
	return func(e crm.Event) {
		h.Broadcast(Message{Action: string(e.Type), Event: e})
	}
}

// Len returns the number of connected sockets.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeWS upgrades the request and keeps the socket registered until the
// peer goes away. Incoming messages are ignored.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "err", err)
		return
	}

	send := make(chan Message, sendBuffer)
	h.mu.Lock()
	h.clients[conn] = send
	h.mu.Unlock()
	go h.writePump(conn, send)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	h.unregister(conn)
	h.mu.Unlock()
}
