package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"accord-ai/services"
)

// HealthHandler reports process and store health
type HealthHandler struct {
	ping    func(ctx context.Context) error
	sockets *services.WebSocketManager
	store   string

	activeSessions func(ctx context.Context) (int64, error)
}

func NewHealthHandler(ping func(ctx context.Context) error, sockets *services.WebSocketManager, store string) *HealthHandler {
	return &HealthHandler{ping: ping, sockets: sockets, store: store}
}

// WithSessionCount adds the number of logged-in chat clients to the report
func (h *HealthHandler) WithSessionCount(count func(ctx context.Context) (int64, error)) *HealthHandler {
	h.activeSessions = count
	return h
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	body := fiber.Map{
		"status":    "ok",
		"store":     h.store,
		"timestamp": timestamp(),
	}
	if h.sockets != nil {
		body["websocketConnections"] = h.sockets.GetConnectionCount()
	}

	if h.activeSessions != nil {
		if n, err := h.activeSessions(ctx); err == nil {
			body["activeSessions"] = n
		}
	}

	if h.ping != nil {
		if err := h.ping(ctx); err != nil {
			body["status"] = "degraded"
			body["error"] = err.Error()
			return c.Status(fiber.StatusServiceUnavailable).JSON(body)
		}
	}
	return c.JSON(body)
}
