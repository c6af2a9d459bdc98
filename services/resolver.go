package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"unicode/utf8"

	"accord-ai/config"
	"accord-ai/models"
)

const fileExcerptLength = 1000

// Matcher finds a curated response for a message
type Matcher interface {
	FindResponse(ctx context.Context, message string) *models.MatchResult
}

// FallbackSource supplies the terminal per-language response
type FallbackSource interface {
	FallbackResponse(ctx context.Context, lang models.Language) string
}

// ResolverConfig holds the stage thresholds and AI budgets
type ResolverConfig struct {
	HighConfidence float64
	LowConfidence  float64
	ChatMaxTokens  int
	FileMaxTokens  int
	ChatRetry      RetryPolicy
	FileRetry      RetryPolicy
}

// DefaultResolverConfig returns the production thresholds and retry schedules
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		HighConfidence: 0.6,
		LowConfidence:  0.3,
		ChatMaxTokens:  1000,
		FileMaxTokens:  2000,
		ChatRetry:      ChatRetryPolicy(),
		FileRetry:      FileRetryPolicy(),
	}
}

// Resolver answers chat messages by walking the resolution stages in order:
// high-confidence dataset, primary AI, backup mapping, low-confidence dataset
// with a disclaimer, and the per-language fallback.
type Resolver struct {
	matcher   Matcher
	ai        AIClient
	backup    BackupSource
	fallbacks FallbackSource
	cfg       ResolverConfig
}

// NewResolver wires the stages. ai and backup may be nil to disable a stage.
func NewResolver(matcher Matcher, ai AIClient, backup BackupSource, fallbacks FallbackSource, cfg ResolverConfig) *Resolver {
	return &Resolver{
		matcher:   matcher,
		ai:        ai,
		backup:    backup,
		fallbacks: fallbacks,
		cfg:       cfg,
	}
}

// Resolve produces a response for message. The only error is ErrEmptyMessage;
// every other failure advances to the next stage.
func (r *Resolver) Resolve(ctx context.Context, message string) (*models.ResolutionOutcome, error) {
	if strings.TrimSpace(message) == "" {
		return nil, ErrEmptyMessage
	}

	outcome := r.resolve(ctx, message)
	recordResolution(outcome.Source)
	return outcome, nil
}

func (r *Resolver) resolve(ctx context.Context, message string) *models.ResolutionOutcome {
	// Stage 1
	match := r.matcher.FindResponse(ctx, message)
	if match != nil && match.Confidence > r.cfg.HighConfidence {
		slog.Info("Resolved from dataset",
			"stage", 1,
			"category", match.Category,
			"matchType", match.MatchType,
			"confidence", match.Confidence,
			"detectedLanguage", match.DetectedLanguage,
		)
		return matchOutcome(match, match.Response, models.SourceCustomDataset)
	}

	lang := DetectLanguage(message)
	slog.Info("No high-confidence dataset match, trying primary AI", "stage", 2, "detectedLanguage", lang)

	// Stage 2
	if r.ai != nil {
		prompt := config.LanguageInstruction(lang) + "\n\nUser question: " + message
		text, err := r.ai.Generate(ctx, GenerateRequest{
			Prompt:    prompt,
			MaxTokens: r.cfg.ChatMaxTokens,
			Retry:     r.cfg.ChatRetry,
		})
		if err == nil {
			slog.Info("Resolved from primary AI", "stage", 2, "detectedLanguage", lang)
			return &models.ResolutionOutcome{
				Response:         text,
				Source:           models.SourceGemini,
				DetectedLanguage: string(lang),
			}
		}
		slog.Warn("Primary AI failed, trying backup", "stage", 2, "error", err)
	}

	// Stage 3
	if r.backup != nil {
		text, err := r.backup.Lookup(ctx, message)
		if err == nil {
			slog.Info("Resolved from backup", "stage", 3, "detectedLanguage", lang)
			return &models.ResolutionOutcome{
				Response:         config.BackupIndicator + text,
				Source:           models.SourceBackup,
				DetectedLanguage: string(lang),
			}
		}
		slog.Warn("Backup failed", "stage", 3, "error", err)
	}

	// Stage 4
	if match != nil && match.Confidence > r.cfg.LowConfidence {
		slog.Info("Using low-confidence dataset match",
			"stage", 4,
			"confidence", match.Confidence,
			"detectedLanguage", match.DetectedLanguage,
		)
		note := config.PartialMatchNote(models.Language(match.DetectedLanguage))
		return matchOutcome(match, match.Response+note, models.SourceCustomDatasetFallback)
	}

	// Stage 5
	slog.Info("All sources failed, using final fallback", "stage", 5, "detectedLanguage", lang)
	return &models.ResolutionOutcome{
		Response:         r.fallbacks.FallbackResponse(ctx, lang),
		Source:           models.SourceFinalFallback,
		DetectedLanguage: string(lang),
	}
}

func matchOutcome(match *models.MatchResult, response, source string) *models.ResolutionOutcome {
	confidence := match.Confidence
	return &models.ResolutionOutcome{
		Response:         response,
		Source:           source,
		Category:         match.Category,
		Confidence:       &confidence,
		MatchType:        match.MatchType,
		DetectedLanguage: match.DetectedLanguage,
	}
}

// AnalyzeDocument asks the primary AI to analyze extracted file text. When the
// AI cannot answer, the response is an excerpt of the text with a notice.
func (r *Resolver) AnalyzeDocument(ctx context.Context, extraction *models.Extraction, fileName, customPrompt string) *models.ResolutionOutcome {
	prompt := DocumentPrompt(extraction, customPrompt)

	if r.ai != nil {
		text, err := r.ai.Generate(ctx, GenerateRequest{
			Prompt:    prompt,
			MaxTokens: r.cfg.FileMaxTokens,
			Retry:     r.cfg.FileRetry,
		})
		if err == nil {
			slog.Info("Document analyzed", "fileName", fileName, "fileType", extraction.Type)
			recordResolution(models.SourceGemini)
			return &models.ResolutionOutcome{Response: text, Source: models.SourceGemini}
		}
		slog.Warn("Document analysis failed, returning excerpt", "fileName", fileName, "error", err)
	}

	recordResolution(models.SourceFileFallback)
	return &models.ResolutionOutcome{
		Response: DocumentFallback(extraction, fileName),
		Source:   models.SourceFileFallback,
	}
}

// DocumentPrompt builds the analysis prompt for an extraction
func DocumentPrompt(extraction *models.Extraction, customPrompt string) string {
	fileTypeInfo := "File Type: " + extraction.Type
	switch {
	case extraction.Pages > 0:
		fileTypeInfo += fmt.Sprintf(" (Pages: %d)", extraction.Pages)
	case extraction.Confidence > 0:
		fileTypeInfo += fmt.Sprintf(" (OCR Confidence: %d%%)", int(math.Round(extraction.Confidence)))
	}

	if customPrompt != "" {
		return customPrompt + "\n\n" + fileTypeInfo + "\nFile Content:\n" + extraction.Text
	}
	return fmt.Sprintf("Please summarize and analyze the following %s content:\n\n%s\nContent:\n%s",
		strings.ToLower(extraction.Type), fileTypeInfo, extraction.Text)
}

// DocumentFallback describes the extraction when no AI answer is available
func DocumentFallback(extraction *models.Extraction, fileName string) string {
	excerpt := extraction.Text
	if utf8.RuneCountInString(excerpt) > fileExcerptLength {
		excerpt = string([]rune(excerpt)[:fileExcerptLength]) + "..."
	}
	return fmt.Sprintf("I've successfully extracted %d characters from your %s \"%s\". However, our AI service is temporarily unavailable. Here's the extracted content:\n\n%s",
		utf8.RuneCountInString(extraction.Text), strings.ToLower(extraction.Type), fileName, excerpt)
}
