package dashboard

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Dashboard clients run on the local network
	},
}

// Envelope is the frame sent to dashboard clients.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Hub tracks connected dashboard clients. A connected client counts as the
// dashboard being in the foreground.
type Hub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]*sync.Mutex
	logger  *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]*sync.Mutex),
		logger:  logger,
	}
}

func (h *Hub) Add(conn *websocket.Conn) {
	h.mu.Lock()
	h.clients[conn] = &sync.Mutex{}
	h.mu.Unlock()
}

func (h *Hub) Remove(conn *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.clients[conn]
	delete(h.clients, conn)
	h.mu.Unlock()
	if ok {
		conn.Close()
	}
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) IsForeground() bool {
	return h.Count() > 0
}

// Broadcast sends one envelope to every client and drops clients that fail.
func (h *Hub) Broadcast(kind string, data any) {
	payload, err := json.Marshal(Envelope{Type: kind, Data: data})
	if err != nil {
		h.logger.Error("failed to encode dashboard message", zap.String("type", kind), zap.Error(err))
		return
	}

	h.mu.RLock()
	clients := make(map[*websocket.Conn]*sync.Mutex, len(h.clients))
	for conn, lock := range h.clients {
		clients[conn] = lock
	}
	h.mu.RUnlock()

	for conn, lock := range clients {
		if err := write(conn, lock, payload); err != nil {
			h.logger.Debug("dropping dashboard client", zap.Error(err))
			h.Remove(conn)
		}
	}
}

// Send writes one envelope to a single client.
func (h *Hub) Send(conn *websocket.Conn, kind string, data any) error {
	payload, err := json.Marshal(Envelope{Type: kind, Data: data})
	if err != nil {
		return err
	}
	h.mu.RLock()
	lock, ok := h.clients[conn]
	h.mu.RUnlock()
	if !ok {
		return nil
	}
	return write(conn, lock, payload)
}

func write(conn *websocket.Conn, lock *sync.Mutex, payload []byte) error {
	lock.Lock()
	defer lock.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, payload)
}
