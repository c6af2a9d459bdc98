package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"accord-ai/models"
)

// MemoryDatasetStore is an in-process DatasetStore for local development and
// tests. It applies the same filters and ordering as MongoDatasetStore.
type MemoryDatasetStore struct {
	mu      sync.RWMutex
	entries []*models.DatasetEntry
}

// NewMemoryDatasetStore returns an empty in-memory store
func NewMemoryDatasetStore() *MemoryDatasetStore {
	return &MemoryDatasetStore{}
}

func (s *MemoryDatasetStore) FindExact(ctx context.Context, key string) (*models.DatasetEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := s.filter(func(e *models.DatasetEntry) bool { return e.Key == key })
	if len(matches) == 0 {
		return nil, nil
	}
	return &matches[0], nil
}

func (s *MemoryDatasetStore) FindCandidates(ctx context.Context, q CandidateQuery) ([]models.DatasetEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	text := strings.ToLower(q.Text)
	matches := s.filter(func(e *models.DatasetEntry) bool {
		if !strings.Contains(strings.ToLower(e.Key), text) && !strings.Contains(strings.ToLower(e.Response), text) {
			return false
		}
		if q.Language == "" {
			return true
		}
		return e.Category == string(q.Language) || e.HasTag(string(q.Language)) || models.IsCrossLanguageCategory(e.Category)
	})
	if q.Limit > 0 && len(matches) > q.Limit {
		matches = matches[:q.Limit]
	}
	return matches, nil
}

func (s *MemoryDatasetStore) IncrementUsage(ctx context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if e.ID == id {
			now := time.Now()
			e.Usage.Count++
			e.Usage.LastUsed = &now
			return nil
		}
	}
	return nil
}

func (s *MemoryDatasetStore) FindActive(ctx context.Context, category, key string) (*models.DatasetEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := s.filter(func(e *models.DatasetEntry) bool { return e.Category == category && e.Key == key })
	if len(matches) == 0 {
		return nil, nil
	}
	return &matches[0], nil
}

func (s *MemoryDatasetStore) Insert(ctx context.Context, entry *models.DatasetEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if e.Category == entry.Category && e.Key == entry.Key {
			return ErrDuplicateEntry
		}
	}
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	stored := cloneEntry(entry)
	s.entries = append(s.entries, &stored)
	return nil
}

func (s *MemoryDatasetStore) UpdateResponse(ctx context.Context, category, key, response string) error {
	return s.mutateActive(category, key, func(e *models.DatasetEntry) {
		e.Response = response
	})
}

func (s *MemoryDatasetStore) Deactivate(ctx context.Context, category, key string) error {
	return s.mutateActive(category, key, func(e *models.DatasetEntry) {
		e.IsActive = false
	})
}

func (s *MemoryDatasetStore) ListCategory(ctx context.Context, category string) ([]models.DatasetEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := s.filter(func(e *models.DatasetEntry) bool { return e.Category == category })
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Key < matches[j].Key })
	return matches, nil
}

func (s *MemoryDatasetStore) Categories(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	var categories []string
	for _, e := range s.entries {
		if !e.IsActive || e.Category == models.CategoryFallback || seen[e.Category] {
			continue
		}
		seen[e.Category] = true
		categories = append(categories, e.Category)
	}
	sort.Strings(categories)
	return categories, nil
}

func (s *MemoryDatasetStore) Stats(ctx context.Context) (*models.DatasetStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &models.DatasetStats{CategoryStats: make(map[string]int64)}
	for _, e := range s.entries {
		if !e.IsActive {
			continue
		}
		if _, ok := stats.CategoryStats[e.Category]; !ok {
			stats.TotalCategories++
		}
		stats.CategoryStats[e.Category]++
		stats.TotalResponses++
		stats.TotalUsage += e.Usage.Count
	}
	return stats, nil
}

func (s *MemoryDatasetStore) Search(ctx context.Context, term string, limit int) ([]models.DatasetEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	term = strings.ToLower(term)
	var results []models.DatasetEntry
	for _, e := range s.entries {
		if !e.IsActive {
			continue
		}
		if strings.Contains(strings.ToLower(e.Key), term) || strings.Contains(strings.ToLower(e.Response), term) {
			results = append(results, cloneEntry(e))
			if limit > 0 && len(results) == limit {
				break
			}
		}
	}
	return results, nil
}

// filter returns copies of active entries accepted by keep, ranked by
// priority then confidence. Callers must hold the lock.
func (s *MemoryDatasetStore) filter(keep func(*models.DatasetEntry) bool) []models.DatasetEntry {
	var out []models.DatasetEntry
	for _, e := range s.entries {
		if e.IsActive && keep(e) {
			out = append(out, cloneEntry(e))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Metadata.Priority != out[j].Metadata.Priority {
			return out[i].Metadata.Priority > out[j].Metadata.Priority
		}
		return out[i].Metadata.Confidence > out[j].Metadata.Confidence
	})
	return out
}

func (s *MemoryDatasetStore) mutateActive(category, key string, fn func(*models.DatasetEntry)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if e.IsActive && e.Category == category && e.Key == key {
			fn(e)
			e.UpdatedAt = time.Now()
			return nil
		}
	}
	return ErrEntryNotFound
}

func cloneEntry(e *models.DatasetEntry) models.DatasetEntry {
	c := *e
	if e.Metadata.Tags != nil {
		c.Metadata.Tags = append([]string(nil), e.Metadata.Tags...)
	}
	if e.Usage.LastUsed != nil {
		t := *e.Usage.LastUsed
		c.Usage.LastUsed = &t
	}
	return c
}
