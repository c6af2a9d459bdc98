package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Match types reported by the dataset matcher
const (
	MatchTypeExact   = "exact"
	MatchTypePartial = "partial"
)

// Resolution sources reported to the caller
const (
	SourceCustomDataset         = "custom-dataset"
	SourceGemini                = "gemini"
	SourceBackup                = "backup"
	SourceCustomDatasetFallback = "custom-dataset-fallback"
	SourceFinalFallback         = "final-fallback"
	SourceFileFallback          = "fallback"
)

// DatasetEntry represents a curated trigger phrase and its canned response
type DatasetEntry struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Category  string             `bson:"category" json:"category"`
	Key       string             `bson:"key" json:"key"`
	Response  string             `bson:"response" json:"response"`
	IsActive  bool               `bson:"is_active" json:"is_active"`
	CreatedBy string             `bson:"created_by,omitempty" json:"created_by,omitempty"`
	Usage     Usage              `bson:"usage" json:"usage"`
	Metadata  EntryMetadata      `bson:"metadata" json:"metadata"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// Usage tracks how often an entry was selected
type Usage struct {
	Count    int64      `bson:"count" json:"count"`
	LastUsed *time.Time `bson:"last_used,omitempty" json:"last_used,omitempty"`
}

// EntryMetadata holds ranking hints for an entry
type EntryMetadata struct {
	Confidence float64  `bson:"confidence" json:"confidence"` // 0..1
	Tags       []string `bson:"tags,omitempty" json:"tags,omitempty"`
	Priority   int      `bson:"priority" json:"priority"`
}

// HasTag reports whether the entry carries the given tag
func (e *DatasetEntry) HasTag(tag string) bool {
	for _, t := range e.Metadata.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// MatchResult is the outcome of a dataset lookup
type MatchResult struct {
	ID               primitive.ObjectID `json:"id"`
	Response         string             `json:"response"`
	Category         string             `json:"category"`
	Confidence       float64            `json:"confidence"`
	MatchType        string             `json:"matchType"`
	MatchedKey       string             `json:"matchedKey"`
	DetectedLanguage string             `json:"detectedLanguage"`
}

// ResolutionOutcome is the answer produced by the response resolver
type ResolutionOutcome struct {
	Response         string   `json:"response"`
	Source           string   `json:"source"`
	Category         string   `json:"category,omitempty"`
	Confidence       *float64 `json:"confidence,omitempty"`
	MatchType        string   `json:"matchType,omitempty"`
	DetectedLanguage string   `json:"detectedLanguage,omitempty"`
}

// DatasetStats summarizes active dataset entries
type DatasetStats struct {
	TotalResponses  int64            `json:"totalResponses"`
	TotalCategories int64            `json:"totalCategories"`
	TotalUsage      int64            `json:"totalUsage"`
	CategoryStats   map[string]int64 `json:"categoryStats"`
}

// ImportResult reports the outcome of a bulk import
type ImportResult struct {
	SuccessCount int      `json:"successCount"`
	ErrorCount   int      `json:"errorCount"`
	Errors       []string `json:"errors"`
}
