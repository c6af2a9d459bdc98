package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"accord-ai/config"
	"accord-ai/models"
)

// DatasetService implements the administrative operations on curated responses
type DatasetService struct {
	store DatasetStore
}

// NewDatasetService returns a service managing entries in store
func NewDatasetService(store DatasetStore) *DatasetService {
	return &DatasetService{store: store}
}

func normalizeField(s string) string {
	return strings.TrimSpace(strings.ToLower(s))
}

// AddResponse stores a new active entry with default metadata
func (s *DatasetService) AddResponse(ctx context.Context, category, key, response string, tags []string, createdBy string) error {
	category = normalizeField(category)
	key = normalizeField(key)
	response = strings.TrimSpace(response)
	if category == "" || key == "" || response == "" {
		return fmt.Errorf("%w: category, key and response are required", ErrInvalidEntry)
	}

	normalizedTags := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = normalizeField(t); t != "" {
			normalizedTags = append(normalizedTags, t)
		}
	}

	now := time.Now()
	entry := &models.DatasetEntry{
		Category:  category,
		Key:       key,
		Response:  response,
		IsActive:  true,
		CreatedBy: createdBy,
		Metadata: models.EntryMetadata{
			Confidence: 1.0,
			Priority:   0,
			Tags:       normalizedTags,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.Insert(ctx, entry); err != nil {
		if errors.Is(err, ErrDuplicateEntry) {
			slog.Warn("Duplicate dataset entry", "category", category, "key", key)
		}
		return err
	}

	slog.Info("Dataset entry added", "category", category, "key", key)
	return nil
}

// UpdateResponse replaces the response text of an active entry
func (s *DatasetService) UpdateResponse(ctx context.Context, category, key, response string) error {
	response = strings.TrimSpace(response)
	if response == "" {
		return fmt.Errorf("%w: response is required", ErrInvalidEntry)
	}
	if err := s.store.UpdateResponse(ctx, normalizeField(category), normalizeField(key), response); err != nil {
		return err
	}
	slog.Info("Dataset entry updated", "category", category, "key", key)
	return nil
}

// DeleteResponse soft-deletes an active entry. The (category, key) pair stays reserved.
func (s *DatasetService) DeleteResponse(ctx context.Context, category, key string) error {
	if err := s.store.Deactivate(ctx, normalizeField(category), normalizeField(key)); err != nil {
		return err
	}
	slog.Info("Dataset entry deactivated", "category", category, "key", key)
	return nil
}

// GetCategory returns the key to response mapping for one category
func (s *DatasetService) GetCategory(ctx context.Context, category string) (map[string]string, error) {
	entries, err := s.store.ListCategory(ctx, normalizeField(category))
	if err != nil {
		return nil, err
	}
	result := make(map[string]string, len(entries))
	for _, e := range entries {
		result[e.Key] = e.Response
	}
	return result, nil
}

// Categories lists active categories excluding the fallback category
func (s *DatasetService) Categories(ctx context.Context) ([]string, error) {
	return s.store.Categories(ctx)
}

// Stats summarizes the active dataset
func (s *DatasetService) Stats(ctx context.Context) (*models.DatasetStats, error) {
	return s.store.Stats(ctx)
}

// Search finds active entries whose key or response contains term
func (s *DatasetService) Search(ctx context.Context, term string, limit int) ([]models.DatasetEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.store.Search(ctx, strings.TrimSpace(term), limit)
}

// BulkImport adds every category/key/response triple, collecting per-entry failures
func (s *DatasetService) BulkImport(ctx context.Context, data map[string]map[string]string, createdBy string) *models.ImportResult {
	result := &models.ImportResult{Errors: []string{}}

	for category, responses := range data {
		for key, response := range responses {
			err := s.AddResponse(ctx, category, key, response, nil, createdBy)
			if err == nil {
				result.SuccessCount++
				continue
			}
			result.ErrorCount++
			if errors.Is(err, ErrDuplicateEntry) {
				result.Errors = append(result.Errors, fmt.Sprintf("Failed to add: %s/%s", category, key))
			} else {
				result.Errors = append(result.Errors, fmt.Sprintf("Error adding %s/%s: %v", category, key, err))
			}
		}
	}

	slog.Info("Dataset bulk import finished",
		"successCount", result.SuccessCount,
		"errorCount", result.ErrorCount,
	)
	return result
}

// FallbackResponse returns the stored fallback/default override if present,
// otherwise the built-in message for lang.
func (s *DatasetService) FallbackResponse(ctx context.Context, lang models.Language) string {
	custom, err := s.store.FindActive(ctx, models.CategoryFallback, models.FallbackDefaultKey)
	if err != nil {
		slog.Error("Failed to load custom fallback", "error", err)
		return config.FallbackResponse(lang)
	}
	if custom != nil && custom.Response != "" {
		return custom.Response
	}
	return config.FallbackResponse(lang)
}
