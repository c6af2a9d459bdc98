package services

import (
	"context"
	"log/slog"
	"math"

	"accord-ai/models"
)

const (
	languageCandidateLimit = 15
	generalCandidateLimit  = 20
	languageBoost          = 1.2
	partialMatchThreshold  = 0.5
)

// DatasetMatcher finds the curated response that best answers a message
type DatasetMatcher struct {
	store DatasetStore
}

// NewDatasetMatcher returns a matcher reading from store
func NewDatasetMatcher(store DatasetStore) *DatasetMatcher {
	return &DatasetMatcher{store: store}
}

// FindResponse returns the best exact or partial match for message, or nil.
// Store failures are logged and reported as no match.
func (m *DatasetMatcher) FindResponse(ctx context.Context, message string) *models.MatchResult {
	normalized := NormalizeText(message)
	if normalized == "" {
		return nil
	}
	lang := DetectLanguage(normalized)

	slog.Debug("Dataset lookup", "message", normalized, "detectedLanguage", lang)

	exact, err := m.store.FindExact(ctx, normalized)
	if err != nil {
		slog.Error("Dataset exact lookup failed", "error", err)
		return nil
	}
	if exact != nil {
		m.recordUsage(ctx, exact)
		recordDatasetMatch(models.MatchTypeExact)
		return &models.MatchResult{
			ID:               exact.ID,
			Response:         exact.Response,
			Category:         exact.Category,
			Confidence:       1.0,
			MatchType:        models.MatchTypeExact,
			MatchedKey:       exact.Key,
			DetectedLanguage: string(lang),
		}
	}

	languageMatches, err := m.store.FindCandidates(ctx, CandidateQuery{
		Text:     normalized,
		Language: lang,
		Limit:    languageCandidateLimit,
	})
	if err != nil {
		slog.Error("Dataset language candidate lookup failed", "error", err)
		return nil
	}
	generalMatches, err := m.store.FindCandidates(ctx, CandidateQuery{
		Text:  normalized,
		Limit: generalCandidateLimit,
	})
	if err != nil {
		slog.Error("Dataset general candidate lookup failed", "error", err)
		return nil
	}

	var (
		best      *models.DatasetEntry
		bestScore float64
	)
	for _, candidate := range uniqueEntries(languageMatches, generalMatches) {
		score := Similarity(normalized, candidate.Key)
		if isLanguageRelevant(&candidate, lang) {
			score *= languageBoost
		}
		if score > bestScore && score > partialMatchThreshold {
			c := candidate
			best = &c
			bestScore = score
		}
	}

	if best == nil {
		return nil
	}

	m.recordUsage(ctx, best)
	recordDatasetMatch(models.MatchTypePartial)
	return &models.MatchResult{
		ID:               best.ID,
		Response:         best.Response,
		Category:         best.Category,
		Confidence:       math.Min(bestScore, 1.0),
		MatchType:        models.MatchTypePartial,
		MatchedKey:       best.Key,
		DetectedLanguage: string(lang),
	}
}

// recordUsage bumps the usage counter of the selected entry. The match is
// already decided, so a failed write is only logged.
func (m *DatasetMatcher) recordUsage(ctx context.Context, entry *models.DatasetEntry) {
	if err := m.store.IncrementUsage(ctx, entry.ID); err != nil {
		slog.Warn("Failed to increment dataset usage",
			"error", err,
			"category", entry.Category,
			"key", entry.Key,
		)
	}
}

func isLanguageRelevant(entry *models.DatasetEntry, lang models.Language) bool {
	return entry.Category == string(lang) ||
		entry.HasTag(string(lang)) ||
		models.IsCrossLanguageCategory(entry.Category)
}

// uniqueEntries concatenates the candidate sets keeping the first occurrence of each ID
func uniqueEntries(sets ...[]models.DatasetEntry) []models.DatasetEntry {
	seen := make(map[string]bool)
	var out []models.DatasetEntry
	for _, set := range sets {
		for _, e := range set {
			id := e.ID.Hex()
			if seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, e)
		}
	}
	return out
}
