package handlers

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"accord-ai/middleware"
)

// Routes bundles the handlers mounted by RegisterRoutes
type Routes struct {
	AI      *AIHandler
	Dataset *DatasetHandler
	Socket  *ChatSocketHandler
	Health  *HealthHandler

	// AuthEnabled mounts the account endpoints and session-protected routes.
	// Without it the authenticated chat routes behave like the anonymous ones.
	AuthEnabled bool
	// RateLimitPerMinute caps AI requests per client IP; 0 disables the limiter
	RateLimitPerMinute int
}

// ErrorHandler renders errors in the API's {success, message} shape
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}
	slog.Error("Request error", "error", err, "status", code, "path", c.Path())
	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}

func RegisterRoutes(app *fiber.App, r Routes) {
	api := app.Group("/api")

	if r.Health != nil {
		api.Get("/health", r.Health.Check)
	}

	requireAuth := middleware.OptionalAuth
	if r.AuthEnabled {
		requireAuth = middleware.RequireAuth

		auth := api.Group("/auth")
		auth.Post("/register", Register)
		auth.Post("/login", Login)
		auth.Post("/logout", Logout)
		auth.Get("/me", middleware.RequireAuth, GetCurrentUser)
	}

	ai := api.Group("/ai")
	if r.RateLimitPerMinute > 0 {
		ai.Use(limiter.New(limiter.Config{
			Max:        r.RateLimitPerMinute,
			Expiration: time.Minute,
			LimitReached: func(c *fiber.Ctx) error {
				return errorJSON(c, fiber.StatusTooManyRequests, "Too many requests, please slow down")
			},
		}))
	}
	if r.AI != nil {
		ai.Post("/chat-anonymous", r.AI.Chat)
		ai.Post("/chat", requireAuth, r.AI.Chat)
		ai.Post("/file-anonymous", r.AI.File("file"))
		ai.Post("/file", requireAuth, r.AI.File("file"))
		ai.Post("/pdf-anonymous", r.AI.File("pdf"))
		ai.Post("/pdf", requireAuth, r.AI.File("pdf"))
	}
	if r.Socket != nil {
		ai.Get("/ws", middleware.OptionalAuth, WebSocketUpgrade, websocket.New(r.Socket.Handle))
	}

	if r.Dataset != nil {
		dataset := api.Group("/dataset")
		dataset.Get("/stats", r.Dataset.Stats)
		dataset.Get("/categories", r.Dataset.Categories)
		dataset.Get("/category/:categoryName", r.Dataset.Category)
		dataset.Get("/search", r.Dataset.Search)
		dataset.Post("/test", r.Dataset.Test)

		admin := []fiber.Handler{middleware.RequireAuth, middleware.RequireAdmin}
		dataset.Post("/add", append(admin, r.Dataset.Add)...)
		dataset.Put("/update", append(admin, r.Dataset.Update)...)
		dataset.Delete("/delete", append(admin, r.Dataset.Delete)...)
		dataset.Post("/import", append(admin, r.Dataset.Import)...)
	}
}
