package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"accord-ai/middleware"
	"accord-ai/models"
	"accord-ai/services"
)

// QuotaFunc charges one chat message to a logged-in user
type QuotaFunc func(ctx context.Context, userID string) error

// AIHandler serves the chat and file analysis endpoints
type AIHandler struct {
	resolver       *services.Resolver
	quota          QuotaFunc
	maxUploadBytes int
}

// NewAIHandler creates the handler. A nil quota disables the daily limit.
func NewAIHandler(resolver *services.Resolver, quota QuotaFunc, maxUploadBytes int) *AIHandler {
	return &AIHandler{
		resolver:       resolver,
		quota:          quota,
		maxUploadBytes: maxUploadBytes,
	}
}

func timestamp() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

func errorJSON(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}

// Chat resolves a message through the dataset, AI and fallback stages
func (h *AIHandler) Chat(c *fiber.Ctx) error {
	var req models.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if strings.TrimSpace(req.Message) == "" {
		return errorJSON(c, fiber.StatusBadRequest, "Message is required")
	}

	ctx := c.UserContext()

	if userID := middleware.UserID(c); userID != "" && !req.IsAnonymous && h.quota != nil {
		if err := h.quota(ctx, userID); err != nil {
			switch {
			case errors.Is(err, services.ErrDailyLimitReached):
				return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
					"success":      false,
					"message":      "Daily message limit reached. Please try again tomorrow.",
					"limitReached": true,
				})
			case errors.Is(err, services.ErrUserNotFound):
				return errorJSON(c, fiber.StatusNotFound, "User not found")
			default:
				slog.Error("Failed to check daily message limit", "error", err, "userID", userID)
				return fiber.ErrInternalServerError
			}
		}
	}

	slog.Info("Processing message", "length", len(req.Message), "anonymous", req.IsAnonymous, "premium", middleware.IsPremium(c))

	outcome, err := h.resolver.Resolve(ctx, req.Message)
	if err != nil {
		if errors.Is(err, services.ErrEmptyMessage) {
			return errorJSON(c, fiber.StatusBadRequest, "Message is required")
		}
		return err
	}

	return c.JSON(chatResponse(outcome))
}

func chatResponse(outcome *models.ResolutionOutcome) models.ChatResponse {
	return models.ChatResponse{
		Success:          true,
		Response:         outcome.Response,
		Source:           outcome.Source,
		DetectedLanguage: outcome.DetectedLanguage,
		Confidence:       outcome.Confidence,
		Category:         outcome.Category,
		MatchType:        outcome.MatchType,
		Timestamp:        timestamp(),
	}
}

// File returns a handler analyzing the multipart upload in field
func (h *AIHandler) File(field string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fileHeader, err := c.FormFile(field)
		if err != nil {
			return errorJSON(c, fiber.StatusBadRequest, "No file provided")
		}
		if h.maxUploadBytes > 0 && fileHeader.Size > int64(h.maxUploadBytes) {
			return errorJSON(c, fiber.StatusRequestEntityTooLarge,
				fmt.Sprintf("File too large, maximum size is %d MB", h.maxUploadBytes/(1024*1024)))
		}

		f, err := fileHeader.Open()
		if err != nil {
			return fmt.Errorf("failed to open upload: %w", err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("failed to read upload: %w", err)
		}

		mimeType := fileHeader.Header.Get("Content-Type")
		slog.Info("Processing file", "fileName", fileHeader.Filename, "mimeType", mimeType, "size", fileHeader.Size)

		extraction, err := services.ExtractText(fileHeader.Filename, mimeType, data)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrUnsupportedFileType):
				return errorJSON(c, fiber.StatusBadRequest,
					"Only PDF, Word documents (.docx), images (JPEG, PNG, GIF, BMP, TIFF) and text files (.txt, .md, .csv, .json) are supported")
			case errors.Is(err, services.ErrNoTextExtracted):
				return errorJSON(c, fiber.StatusBadRequest,
					fmt.Sprintf("Could not extract text from %s or the file appears to be empty", fileHeader.Filename))
			default:
				slog.Error("File processing error", "error", err, "fileName", fileHeader.Filename)
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"success": false,
					"message": "Error processing file",
					"error":   err.Error(),
				})
			}
		}

		outcome := h.resolver.AnalyzeDocument(c.UserContext(), extraction, fileHeader.Filename, c.FormValue("customPrompt"))

		return c.JSON(models.FileResponse{
			Success:             true,
			Response:            outcome.Response,
			Source:              outcome.Source,
			FileName:            fileHeader.Filename,
			FileType:            extraction.Type,
			ExtractedTextLength: len([]rune(extraction.Text)),
			AdditionalInfo:      extraction,
			Timestamp:           timestamp(),
		})
	}
}
