package services

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
)

// WebSocket errors
var (
	ErrConnectionNotFound   = errors.New("connection not found")
	ErrConnectionBufferFull = errors.New("connection buffer full")
)

// WebSocketManager tracks open chat connections
type WebSocketManager struct {
	connections map[string]*ChatConnection
	mu          sync.RWMutex
}

// ChatConnection is one open chat socket. Writes go through Send so that a
// single goroutine owns the underlying connection's write side.
type ChatConnection struct {
	ID     string
	Conn   *websocket.Conn
	UserID string
	Send   chan []byte
}

// EventPayload is a server-initiated event pushed to every connection
type EventPayload struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

var wsManager *WebSocketManager
var once sync.Once

// GetWebSocketManager returns the singleton WebSocket manager
func GetWebSocketManager() *WebSocketManager {
	once.Do(func() {
		wsManager = NewWebSocketManager()
	})
	return wsManager
}

// NewWebSocketManager returns an empty registry
func NewWebSocketManager() *WebSocketManager {
	return &WebSocketManager{connections: make(map[string]*ChatConnection)}
}

// RegisterConnection registers a new WebSocket connection
func (m *WebSocketManager) RegisterConnection(conn *ChatConnection) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.connections[conn.ID] = conn
	activeSockets.Inc()

	slog.Info("WebSocket connection registered",
		"connectionID", conn.ID,
		"userID", conn.UserID,
		"totalConnections", len(m.connections))
}

// UnregisterConnection removes a connection and closes its send channel
func (m *WebSocketManager) UnregisterConnection(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conn, exists := m.connections[id]
	if !exists {
		return
	}
	close(conn.Send)
	delete(m.connections, id)
	activeSockets.Dec()

	slog.Info("WebSocket connection unregistered",
		"connectionID", id,
		"remainingConnections", len(m.connections))
}

// SendToConnection queues data for one connection without blocking
func (m *WebSocketManager) SendToConnection(id string, data []byte) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	conn, exists := m.connections[id]
	if !exists {
		return ErrConnectionNotFound
	}
	select {
	case conn.Send <- data:
		return nil
	default:
		return ErrConnectionBufferFull
	}
}

// Broadcast pushes an event to every connection, skipping full buffers
func (m *WebSocketManager) Broadcast(eventType string, data interface{}) {
	payload, err := json.Marshal(EventPayload{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		slog.Error("Failed to marshal WebSocket event", "error", err)
		return
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, conn := range m.connections {
		select {
		case conn.Send <- payload:
		default:
			slog.Warn("WebSocket connection buffer full", "connectionID", conn.ID)
		}
	}
}

// GetConnectionCount returns the number of open connections
func (m *WebSocketManager) GetConnectionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.connections)
}
