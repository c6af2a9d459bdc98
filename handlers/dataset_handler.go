package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"

	"accord-ai/middleware"
	"accord-ai/models"
	"accord-ai/services"
)

// DatasetHandler exposes dataset inspection and administration
type DatasetHandler struct {
	service *services.DatasetService
	matcher services.Matcher
	sockets *services.WebSocketManager
}

// NewDatasetHandler creates the handler. sockets may be nil.
func NewDatasetHandler(service *services.DatasetService, matcher services.Matcher, sockets *services.WebSocketManager) *DatasetHandler {
	return &DatasetHandler{service: service, matcher: matcher, sockets: sockets}
}

type updateRequest struct {
	Category    string `json:"category"`
	Key         string `json:"key"`
	NewResponse string `json:"newResponse"`
}

type importRequest struct {
	Responses map[string]map[string]string `json:"responses"`
}

// Stats returns entry and usage counts
func (h *DatasetHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.service.Stats(c.UserContext())
	if err != nil {
		return internalError(c, "Error getting dataset stats", err)
	}
	return c.JSON(fiber.Map{"success": true, "stats": stats})
}

// Categories lists the active categories
func (h *DatasetHandler) Categories(c *fiber.Ctx) error {
	categories, err := h.service.Categories(c.UserContext())
	if err != nil {
		return internalError(c, "Error getting categories", err)
	}
	if categories == nil {
		categories = []string{}
	}
	return c.JSON(fiber.Map{"success": true, "categories": categories})
}

// Category returns the key/response map of one category
func (h *DatasetHandler) Category(c *fiber.Ctx) error {
	name := c.Params("categoryName")
	responses, err := h.service.GetCategory(c.UserContext(), name)
	if err != nil {
		return internalError(c, "Error getting category responses", err)
	}
	return c.JSON(fiber.Map{"success": true, "category": name, "responses": responses})
}

// Search finds entries whose key or response contains q
func (h *DatasetHandler) Search(c *fiber.Ctx) error {
	q := c.Query("q")
	if strings.TrimSpace(q) == "" {
		return errorJSON(c, fiber.StatusBadRequest, "Search query is required")
	}

	results, err := h.service.Search(c.UserContext(), q, c.QueryInt("limit", 20))
	if err != nil {
		return internalError(c, "Error searching responses", err)
	}
	if results == nil {
		results = []models.DatasetEntry{}
	}
	return c.JSON(fiber.Map{
		"success": true,
		"query":   q,
		"results": results,
		"count":   len(results),
	})
}

// Test runs a message through the matcher without the AI stages
func (h *DatasetHandler) Test(c *fiber.Ctx) error {
	var req models.ChatRequest
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		return errorJSON(c, fiber.StatusBadRequest, "Message is required")
	}

	match := h.matcher.FindResponse(c.UserContext(), req.Message)
	return c.JSON(fiber.Map{
		"success":  true,
		"query":    req.Message,
		"match":    match,
		"hasMatch": match != nil,
	})
}

// Add creates a new entry
func (h *DatasetHandler) Add(c *fiber.Ctx) error {
	var req models.DatasetEntryRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if req.Category == "" || req.Key == "" || req.Response == "" {
		return errorJSON(c, fiber.StatusBadRequest, "Category, key, and response are required")
	}

	err := h.service.AddResponse(c.UserContext(), req.Category, req.Key, req.Response, req.Tags, middleware.UserID(c))
	if err != nil {
		if errors.Is(err, services.ErrDuplicateEntry) || errors.Is(err, services.ErrInvalidEntry) {
			return errorJSON(c, fiber.StatusBadRequest, "Failed to add response (may already exist)")
		}
		return internalError(c, "Error adding response", err)
	}

	h.notify("added", req.Category, req.Key)
	return c.JSON(fiber.Map{
		"success":  true,
		"message":  "Response added successfully",
		"category": req.Category,
		"key":      req.Key,
		"response": req.Response,
	})
}

// Update replaces the response of an existing entry
func (h *DatasetHandler) Update(c *fiber.Ctx) error {
	var req updateRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if req.Category == "" || req.Key == "" || req.NewResponse == "" {
		return errorJSON(c, fiber.StatusBadRequest, "Category, key, and newResponse are required")
	}

	if err := h.service.UpdateResponse(c.UserContext(), req.Category, req.Key, req.NewResponse); err != nil {
		if errors.Is(err, services.ErrEntryNotFound) {
			return errorJSON(c, fiber.StatusNotFound, "Response not found")
		}
		return internalError(c, "Error updating response", err)
	}

	h.notify("updated", req.Category, req.Key)
	return c.JSON(fiber.Map{
		"success":     true,
		"message":     "Response updated successfully",
		"category":    req.Category,
		"key":         req.Key,
		"newResponse": req.NewResponse,
	})
}

// Delete deactivates an entry
func (h *DatasetHandler) Delete(c *fiber.Ctx) error {
	var req models.DatasetEntryRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if req.Category == "" || req.Key == "" {
		return errorJSON(c, fiber.StatusBadRequest, "Category and key are required")
	}

	if err := h.service.DeleteResponse(c.UserContext(), req.Category, req.Key); err != nil {
		if errors.Is(err, services.ErrEntryNotFound) {
			return errorJSON(c, fiber.StatusNotFound, "Response not found")
		}
		return internalError(c, "Error deleting response", err)
	}

	h.notify("deleted", req.Category, req.Key)
	return c.JSON(fiber.Map{
		"success":  true,
		"message":  "Response deleted successfully",
		"category": req.Category,
		"key":      req.Key,
	})
}

// Import adds every entry of a {category: {key: response}} document
func (h *DatasetHandler) Import(c *fiber.Ctx) error {
	var req importRequest
	if err := c.BodyParser(&req); err != nil || req.Responses == nil {
		return errorJSON(c, fiber.StatusBadRequest, "Responses object is required")
	}

	result := h.service.BulkImport(c.UserContext(), req.Responses, middleware.UserID(c))
	if result.SuccessCount > 0 {
		h.notify("imported", "", "")
	}

	body := fiber.Map{
		"success":      true,
		"message":      fmt.Sprintf("Import completed: %d successful, %d failed", result.SuccessCount, result.ErrorCount),
		"successCount": result.SuccessCount,
		"errorCount":   result.ErrorCount,
	}
	if len(result.Errors) > 0 {
		body["errors"] = result.Errors
	}
	return c.JSON(body)
}

func (h *DatasetHandler) notify(action, category, key string) {
	if h.sockets == nil {
		return
	}
	h.sockets.Broadcast("dataset_updated", fiber.Map{
		"action":   action,
		"category": category,
		"key":      key,
	})
}

func internalError(c *fiber.Ctx, message string, err error) error {
	slog.Error(message, "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"success": false,
		"message": message,
		"error":   err.Error(),
	})
}
