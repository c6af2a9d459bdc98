package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	mongoClient *mongo.Client
	database    *mongo.Database
)

// GetDatabase returns the MongoDB database instance, or nil when running
// without MongoDB
func GetDatabase() *mongo.Database {
	return database
}

// InitMongoDB initializes MongoDB connection
func InitMongoDB(ctx context.Context, uri string) (*mongo.Client, error) {
	clientOptions := options.Client().ApplyURI(uri)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}

	// Ping to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	slog.Info("Connected to MongoDB")
	mongoClient = client

	return client, nil
}

// InitServices selects the database and creates the collection indexes.
// It returns the dataset store backed by that database.
func InitServices(client *mongo.Client, databaseName string) (*MongoDatasetStore, error) {
	database = client.Database(databaseName)
	store := NewMongoDatasetStore(database)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := store.CreateIndexes(ctx); err != nil {
		return nil, err
	}
	if err := CreateUserIndexes(ctx); err != nil {
		return nil, err
	}
	if err := CreateSessionIndexes(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// PingDatabase reports whether MongoDB is reachable. It succeeds trivially
// when no client was initialized.
func PingDatabase(ctx context.Context) error {
	if mongoClient == nil {
		return nil
	}
	if err := mongoClient.Ping(ctx, nil); err != nil {
		return fmt.Errorf("mongodb ping failed: %w", err)
	}
	return nil
}
