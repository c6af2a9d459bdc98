package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"accord-ai/models"
	"accord-ai/services"
)

func stubSessions(t *testing.T, fn func(ctx context.Context, sessionID string) (*models.Session, error)) {
	t.Helper()
	original := SessionLookup
	SessionLookup = fn
	t.Cleanup(func() { SessionLookup = original })
}

func newApp(handlers ...fiber.Handler) *fiber.App {
	app := fiber.New()
	handlers = append(handlers, func(c *fiber.Ctx) error {
		return c.SendString(UserID(c))
	})
	app.Get("/", handlers...)
	return app
}

func get(t *testing.T, app *fiber.App, sessionID string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: services.SessionCookieName, Value: sessionID})
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestRequireAuth(t *testing.T) {
	stubSessions(t, func(ctx context.Context, sessionID string) (*models.Session, error) {
		switch sessionID {
		case "valid":
			return &models.Session{UserID: "u1", Role: string(models.RoleUser)}, nil
		case "broken":
			return nil, errors.New("db down")
		}
		return nil, nil
	})
	app := newApp(RequireAuth)

	assert.Equal(t, fiber.StatusUnauthorized, get(t, app, "").StatusCode)
	assert.Equal(t, fiber.StatusUnauthorized, get(t, app, "expired").StatusCode)
	assert.Equal(t, fiber.StatusUnauthorized, get(t, app, "broken").StatusCode)
	assert.Equal(t, fiber.StatusOK, get(t, app, "valid").StatusCode)
}

func TestRequireAdmin(t *testing.T) {
	stubSessions(t, func(ctx context.Context, sessionID string) (*models.Session, error) {
		return &models.Session{UserID: sessionID, Role: sessionID}, nil
	})
	app := newApp(RequireAuth, RequireAdmin)

	assert.Equal(t, fiber.StatusForbidden, get(t, app, string(models.RoleUser)).StatusCode)
	assert.Equal(t, fiber.StatusOK, get(t, app, string(models.RoleAdmin)).StatusCode)
}

func TestOptionalAuth(t *testing.T) {
	stubSessions(t, func(ctx context.Context, sessionID string) (*models.Session, error) {
		if sessionID == "broken" {
			return nil, errors.New("db down")
		}
		return &models.Session{UserID: "u1"}, nil
	})
	app := newApp(OptionalAuth)

	for _, sessionID := range []string{"", "broken", "valid"} {
		assert.Equal(t, fiber.StatusOK, get(t, app, sessionID).StatusCode, sessionID)
	}
}

func TestIsPremium(t *testing.T) {
	stubSessions(t, func(ctx context.Context, sessionID string) (*models.Session, error) {
		return &models.Session{UserID: "u1", IsPremium: sessionID == "premium"}, nil
	})
	app := fiber.New()
	app.Get("/", OptionalAuth, func(c *fiber.Ctx) error {
		if IsPremium(c) {
			return c.SendString("premium")
		}
		return c.SendString("standard")
	})

	for sessionID, want := range map[string]string{"premium": "premium", "basic": "standard", "": "standard"} {
		resp := get(t, app, sessionID)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, want, string(body), "session %q", sessionID)
	}
}
