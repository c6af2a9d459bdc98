package handlers

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"accord-ai/middleware"
	"accord-ai/models"
	"accord-ai/services"
)

type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	User    *models.User `json:"user"`
}

const minPasswordLength = 6

func Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body")
	}

	if req.Email == "" || req.Password == "" || req.DisplayName == "" {
		return errorJSON(c, fiber.StatusBadRequest, "Please provide email, password, and display name")
	}
	if len(req.Password) < minPasswordLength {
		return errorJSON(c, fiber.StatusBadRequest, "Password must be at least 6 characters")
	}

	user, err := services.CreateUser(c.UserContext(), req.DisplayName, req.Email, req.Password, models.RoleUser)
	if err != nil {
		if errors.Is(err, services.ErrUserExists) {
			return errorJSON(c, fiber.StatusBadRequest, "User already exists with this email")
		}
		slog.Error("Failed to register user", "error", err)
		return fiber.ErrInternalServerError
	}

	if err := startSession(c, user); err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(LoginResponse{
		Success: true,
		Message: "User registered successfully",
		User:    user,
	})
}

func Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body")
	}

	if req.Email == "" || req.Password == "" {
		return errorJSON(c, fiber.StatusBadRequest, "Email and password are required")
	}

	user, err := services.Authenticate(c.UserContext(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			slog.Info("Invalid login attempt", "email", req.Email)
			return errorJSON(c, fiber.StatusUnauthorized, "Invalid credentials")
		}
		slog.Error("Failed to authenticate user", "error", err, "email", req.Email)
		return fiber.ErrInternalServerError
	}

	if err := startSession(c, user); err != nil {
		return err
	}

	if err := services.UpdateLastLogin(c.UserContext(), user.ID); err != nil {
		slog.Error("Failed to update last login", "error", err)
	}

	slog.Info("User logged in", "user_id", user.ID.Hex(), "email", user.Email)

	return c.JSON(LoginResponse{
		Success: true,
		Message: "Login successful",
		User:    user,
	})
}

func Logout(c *fiber.Ctx) error {
	sessionID := c.Cookies(services.SessionCookieName)
	if sessionID != "" {
		if err := services.DestroySession(c.UserContext(), sessionID); err != nil {
			slog.Error("Failed to destroy session", "error", err)
		}
	}

	setSessionCookie(c, "", time.Now().Add(-1*time.Hour))

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Logged out successfully",
	})
}

// GetCurrentUser must run after middleware.RequireAuth
func GetCurrentUser(c *fiber.Ctx) error {
	userID := middleware.UserID(c)

	user, err := services.GetUserByID(c.UserContext(), userID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return errorJSON(c, fiber.StatusNotFound, "User not found")
		}
		slog.Error("Failed to get user", "error", err, "user_id", userID)
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to get user information")
	}

	return c.JSON(fiber.Map{"success": true, "user": user})
}

func startSession(c *fiber.Ctx, user *models.User) error {
	session, err := services.CreateSession(c.UserContext(), user, c.IP(), c.Get("User-Agent"))
	if err != nil {
		slog.Error("Failed to create session", "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to create session")
	}
	setSessionCookie(c, session.SessionID, session.ExpiresAt)
	return nil
}

// setSessionCookie uses SameSite=None for cross-origin frontends, which
// browsers only accept on secure cookies
func setSessionCookie(c *fiber.Ctx, value string, expires time.Time) {
	origin := c.Get("Origin", "")
	isCrossOrigin := origin != "" && !strings.HasPrefix(origin, "http://"+c.Hostname()) && !strings.HasPrefix(origin, "https://"+c.Hostname())

	sameSite := "Lax"
	secure := false
	if isCrossOrigin {
		sameSite = "None"
		secure = true
	}

	c.Cookie(&fiber.Cookie{
		Name:     services.SessionCookieName,
		Value:    value,
		Expires:  expires,
		HTTPOnly: true,
		Secure:   secure,
		SameSite: sameSite,
		Path:     "/",
	})
}
