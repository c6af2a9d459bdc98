package middleware

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"accord-ai/models"
	"accord-ai/services"
)

// Locals keys set for authenticated requests
const (
	LocalUserID   = "user_id"
	LocalEmail    = "email"
	LocalRole     = "role"
	LocalUsername = "username"
	LocalPremium  = "is_premium"
)

// SessionLookup resolves a session cookie value to an active session.
// Replaced in tests.
var SessionLookup = func(ctx context.Context, sessionID string) (*models.Session, error) {
	if services.GetDatabase() == nil {
		return nil, nil
	}
	return services.GetSessionByID(ctx, sessionID)
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}

func setLocals(c *fiber.Ctx, session *models.Session) {
	c.Locals(LocalUserID, session.UserID)
	c.Locals(LocalEmail, session.Email)
	c.Locals(LocalRole, session.Role)
	c.Locals(LocalUsername, session.Username)
	c.Locals(LocalPremium, session.IsPremium)
}

func RequireAuth(c *fiber.Ctx) error {
	sessionID := c.Cookies(services.SessionCookieName)
	if sessionID == "" {
		return unauthorized(c, "Authentication required")
	}

	session, err := SessionLookup(c.UserContext(), sessionID)
	if err != nil {
		slog.Error("Failed to get session", "error", err)
		return unauthorized(c, "Authentication required")
	}
	if session == nil {
		return unauthorized(c, "Invalid or expired session")
	}

	setLocals(c, session)
	return c.Next()
}

// RequireAdmin must run after RequireAuth
func RequireAdmin(c *fiber.Ctx) error {
	role, _ := c.Locals(LocalRole).(string)
	if models.UserRole(role) != models.RoleAdmin {
		slog.Info("Access denied - admin required", "user_role", role)
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"message": "Admin access required",
		})
	}
	return c.Next()
}

// OptionalAuth attaches the session user when a valid cookie is present and
// never rejects the request
func OptionalAuth(c *fiber.Ctx) error {
	sessionID := c.Cookies(services.SessionCookieName)
	if sessionID == "" {
		return c.Next()
	}

	session, err := SessionLookup(c.UserContext(), sessionID)
	if err != nil {
		slog.Warn("Ignoring session lookup failure", "error", err)
		return c.Next()
	}
	if session != nil {
		setLocals(c, session)
	}
	return c.Next()
}

// UserID returns the authenticated user's ID, or "" for anonymous requests
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalUserID).(string)
	return id
}

// IsPremium reports whether the session belongs to a premium account. The
// daily quota re-reads the user, so this is informational.
func IsPremium(c *fiber.Ctx) bool {
	premium, _ := c.Locals(LocalPremium).(bool)
	return premium
}
