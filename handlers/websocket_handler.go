package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"accord-ai/middleware"
	"accord-ai/services"
)

const (
	wsPingInterval   = 54 * time.Second
	wsReadTimeout    = 60 * time.Second
	wsWriteTimeout   = 10 * time.Second
	wsMaxMessageSize = 64 * 1024
	wsResolveTimeout = 2 * time.Minute
)

// WebSocketMessage represents an incoming chat frame
type WebSocketMessage struct {
	Type    string `json:"type,omitempty"`
	Message string `json:"message"`
}

// ChatSocketHandler answers chat messages over a websocket
type ChatSocketHandler struct {
	resolver *services.Resolver
	manager  *services.WebSocketManager
}

func NewChatSocketHandler(resolver *services.Resolver, manager *services.WebSocketManager) *ChatSocketHandler {
	return &ChatSocketHandler{resolver: resolver, manager: manager}
}

// WebSocketUpgrade upgrades HTTP connection to WebSocket
func WebSocketUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		c.Locals("allowed", true)
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Handle serves one websocket connection until the client goes away
func (h *ChatSocketHandler) Handle(c *websocket.Conn) {
	userID, _ := c.Locals(middleware.LocalUserID).(string)

	conn := &services.ChatConnection{
		ID:     uuid.New().String(),
		Conn:   c,
		UserID: userID,
		Send:   make(chan []byte, 64),
	}

	h.manager.RegisterConnection(conn)
	defer h.manager.UnregisterConnection(conn.ID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sendJSON(conn, map[string]interface{}{
		"type":          "connected",
		"message":       "WebSocket connection established",
		"connection_id": conn.ID,
	})

	go h.writePump(conn)
	h.readPump(ctx, conn)
}

// writePump owns all writes to the connection
func (h *ChatSocketHandler) writePump(conn *services.ChatConnection) {
	ticker := time.NewTicker(wsPingInterval)
	defer func() {
		ticker.Stop()
		conn.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			conn.Conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if !ok {
				conn.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				slog.Error("Failed to write WebSocket message", "error", err)
				return
			}

		case <-ticker.C:
			conn.Conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *ChatSocketHandler) readPump(ctx context.Context, conn *services.ChatConnection) {
	conn.Conn.SetReadLimit(wsMaxMessageSize)
	conn.Conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		conn.Conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	for {
		_, data, err := conn.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("WebSocket read error", "error", err)
			}
			return
		}
		conn.Conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		sendJSON(conn, h.reply(ctx, data))
	}
}

// reply builds the answer to one frame
func (h *ChatSocketHandler) reply(ctx context.Context, data []byte) interface{} {
	var msg WebSocketMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return map[string]interface{}{"success": false, "message": "Invalid message format"}
	}
	if msg.Type == "ping" {
		return map[string]string{"type": "pong"}
	}
	if strings.TrimSpace(msg.Message) == "" {
		return map[string]interface{}{"success": false, "message": "Message is required"}
	}

	ctx, cancel := context.WithTimeout(ctx, wsResolveTimeout)
	defer cancel()

	outcome, err := h.resolver.Resolve(ctx, msg.Message)
	if err != nil {
		return map[string]interface{}{"success": false, "message": err.Error()}
	}
	return chatResponse(outcome)
}

func sendJSON(conn *services.ChatConnection, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("Failed to marshal WebSocket message", "error", err)
		return
	}
	select {
	case conn.Send <- data:
	default:
		slog.Warn("WebSocket connection buffer full", "connectionID", conn.ID)
	}
}
