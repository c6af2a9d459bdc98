package services

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"accord-ai/models"
)

const datasetCollection = "datasets"

// CandidateQuery selects active entries whose key or response contains Text.
// A non-empty Language restricts results to entries in that language's
// category or tags, or in a cross-language category.
type CandidateQuery struct {
	Text     string
	Language models.Language
	Limit    int
}

// DatasetStore is the persistence boundary for curated responses. All reads
// exclude inactive entries; inactive entries still reserve their (category, key).
type DatasetStore interface {
	FindExact(ctx context.Context, key string) (*models.DatasetEntry, error)
	FindCandidates(ctx context.Context, q CandidateQuery) ([]models.DatasetEntry, error)
	IncrementUsage(ctx context.Context, id primitive.ObjectID) error
	FindActive(ctx context.Context, category, key string) (*models.DatasetEntry, error)

	Insert(ctx context.Context, entry *models.DatasetEntry) error
	UpdateResponse(ctx context.Context, category, key, response string) error
	Deactivate(ctx context.Context, category, key string) error
	ListCategory(ctx context.Context, category string) ([]models.DatasetEntry, error)
	Categories(ctx context.Context) ([]string, error)
	Stats(ctx context.Context) (*models.DatasetStats, error)
	Search(ctx context.Context, term string, limit int) ([]models.DatasetEntry, error)
}

// rankSort orders entries by priority then confidence, both descending
var rankSort = bson.D{
	{Key: "metadata.priority", Value: -1},
	{Key: "metadata.confidence", Value: -1},
}

// MongoDatasetStore implements DatasetStore on a MongoDB collection
type MongoDatasetStore struct {
	collection *mongo.Collection
}

// NewMongoDatasetStore returns a store backed by the datasets collection of db
func NewMongoDatasetStore(db *mongo.Database) *MongoDatasetStore {
	return &MongoDatasetStore{collection: db.Collection(datasetCollection)}
}

// CreateIndexes creates the uniqueness and lookup indexes for the collection
func (s *MongoDatasetStore) CreateIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "category", Value: 1}, {Key: "key", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "key", Value: 1}, {Key: "is_active", Value: 1}}},
		{Keys: bson.D{{Key: "metadata.tags", Value: 1}}},
		{Keys: bson.D{{Key: "key", Value: "text"}, {Key: "response", Value: "text"}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create dataset indexes: %w", err)
	}
	return nil
}

func (s *MongoDatasetStore) FindExact(ctx context.Context, key string) (*models.DatasetEntry, error) {
	var entry models.DatasetEntry
	err := s.collection.FindOne(ctx,
		bson.M{"key": key, "is_active": true},
		options.FindOne().SetSort(rankSort),
	).Decode(&entry)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find exact match: %w", err)
	}
	return &entry, nil
}

func (s *MongoDatasetStore) FindCandidates(ctx context.Context, q CandidateQuery) ([]models.DatasetEntry, error) {
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(q.Text), Options: "i"}
	clauses := bson.A{
		bson.M{"is_active": true},
		bson.M{"$or": bson.A{
			bson.M{"key": pattern},
			bson.M{"response": pattern},
		}},
	}
	if q.Language != "" {
		clauses = append(clauses, bson.M{"$or": bson.A{
			bson.M{"category": string(q.Language)},
			bson.M{"metadata.tags": string(q.Language)},
			bson.M{"category": models.CategoryCommonMultilingual},
			bson.M{"category": models.CategoryTechnicalMultilingual},
		}})
	}

	findOptions := options.Find().SetSort(rankSort)
	if q.Limit > 0 {
		findOptions.SetLimit(int64(q.Limit))
	}

	cursor, err := s.collection.Find(ctx, bson.M{"$and": clauses}, findOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to find candidates: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []models.DatasetEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode candidates: %w", err)
	}
	return entries, nil
}

func (s *MongoDatasetStore) IncrementUsage(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$inc": bson.M{"usage.count": 1},
			"$set": bson.M{"usage.last_used": time.Now()},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to increment usage: %w", err)
	}
	return nil
}

func (s *MongoDatasetStore) FindActive(ctx context.Context, category, key string) (*models.DatasetEntry, error) {
	var entry models.DatasetEntry
	err := s.collection.FindOne(ctx, bson.M{
		"category":  category,
		"key":       key,
		"is_active": true,
	}).Decode(&entry)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find entry: %w", err)
	}
	return &entry, nil
}

func (s *MongoDatasetStore) Insert(ctx context.Context, entry *models.DatasetEntry) error {
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	_, err := s.collection.InsertOne(ctx, entry)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateEntry
		}
		return fmt.Errorf("failed to insert entry: %w", err)
	}
	return nil
}

func (s *MongoDatasetStore) UpdateResponse(ctx context.Context, category, key, response string) error {
	result, err := s.collection.UpdateOne(ctx,
		bson.M{"category": category, "key": key, "is_active": true},
		bson.M{"$set": bson.M{"response": response, "updated_at": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("failed to update entry: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (s *MongoDatasetStore) Deactivate(ctx context.Context, category, key string) error {
	result, err := s.collection.UpdateOne(ctx,
		bson.M{"category": category, "key": key, "is_active": true},
		bson.M{"$set": bson.M{"is_active": false, "updated_at": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate entry: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (s *MongoDatasetStore) ListCategory(ctx context.Context, category string) ([]models.DatasetEntry, error) {
	cursor, err := s.collection.Find(ctx,
		bson.M{"category": category, "is_active": true},
		options.Find().SetSort(bson.M{"key": 1}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list category: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []models.DatasetEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode category: %w", err)
	}
	return entries, nil
}

func (s *MongoDatasetStore) Categories(ctx context.Context) ([]string, error) {
	values, err := s.collection.Distinct(ctx, "category", bson.M{
		"is_active": true,
		"category":  bson.M{"$ne": models.CategoryFallback},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	categories := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			categories = append(categories, s)
		}
	}
	return categories, nil
}

func (s *MongoDatasetStore) Stats(ctx context.Context) (*models.DatasetStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"is_active": true}}},
		{{Key: "$group", Value: bson.M{
			"_id":        "$category",
			"count":      bson.M{"$sum": 1},
			"totalUsage": bson.M{"$sum": "$usage.count"},
		}}},
	}

	cursor, err := s.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate stats: %w", err)
	}
	defer cursor.Close(ctx)

	var groups []struct {
		Category   string `bson:"_id"`
		Count      int64  `bson:"count"`
		TotalUsage int64  `bson:"totalUsage"`
	}
	if err := cursor.All(ctx, &groups); err != nil {
		return nil, fmt.Errorf("failed to decode stats: %w", err)
	}

	stats := &models.DatasetStats{CategoryStats: make(map[string]int64, len(groups))}
	for _, g := range groups {
		stats.TotalResponses += g.Count
		stats.TotalUsage += g.TotalUsage
		stats.TotalCategories++
		stats.CategoryStats[g.Category] = g.Count
	}
	return stats, nil
}

func (s *MongoDatasetStore) Search(ctx context.Context, term string, limit int) ([]models.DatasetEntry, error) {
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(term), Options: "i"}
	findOptions := options.Find()
	if limit > 0 {
		findOptions.SetLimit(int64(limit))
	}

	cursor, err := s.collection.Find(ctx, bson.M{
		"is_active": true,
		"$or": bson.A{
			bson.M{"key": pattern},
			bson.M{"response": pattern},
		},
	}, findOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to search dataset: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []models.DatasetEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode search results: %w", err)
	}
	return entries, nil
}
