// Package notify delivers draw results and command results to observers.
package notify

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/logger"
	"github.com/gorilla/websocket"

	"luckydraw/internal/models"
)

// Message types sent to websocket clients.
const (
	TypeLotteryResult = "lottery-result"
	TypeCommandResult = "command-result"
)

// Message is the JSON envelope written to every websocket client.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Hub keeps the connected stage and control screens and broadcasts to all
// of them. Every write carries a deadline, so a stalled client is dropped
// instead of holding up the others.
type Hub struct {
	mu           sync.Mutex
	conns        map[*websocket.Conn]bool
	writeTimeout time.Duration
}

// NewHub creates an empty Hub whose writes give up after writeTimeout.
func NewHub(writeTimeout time.Duration) *Hub {
	return &Hub{
		conns:        make(map[*websocket.Conn]bool),
		writeTimeout: writeTimeout,
	}
}

// AddConnection registers a client.
func (h *Hub) AddConnection(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = true
	logger.Infof("ws: client connected (total: %d)", len(h.conns))
}

// RemoveConnection unregisters and closes a client.
func (h *Hub) RemoveConnection(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[conn]; ok {
		delete(h.conns, conn)
		conn.Close()
		logger.Infof("ws: client disconnected (total: %d)", len(h.conns))
	}
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Broadcast writes msg to every client. Clients that fail the write are dropped.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		logger.Errorf("ws: marshal %s: %v", msg.Type, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	deadline := time.Now().Add(h.writeTimeout)
	for conn := range h.conns {
		conn.SetWriteDeadline(deadline)
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			logger.Warningf("ws: write error: %v", err)
			conn.Close()
			delete(h.conns, conn)
		}
	}
}

// PublishResult broadcasts a finished draw.
func (h *Hub) PublishResult(result *models.DrawResult) {
	h.Broadcast(Message{Type: TypeLotteryResult, Data: result})
}

// Ping sends a ping control frame to every client and drops the ones that
// do not accept it.
func (h *Hub) Ping(timeout time.Duration) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	dropped := 0
	for conn := range h.conns {
		if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(timeout)); err != nil {
			conn.Close()
			delete(h.conns, conn)
			dropped++
		}
	}
	return dropped
}
