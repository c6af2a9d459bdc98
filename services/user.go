package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"

	"accord-ai/models"
)

const usersCollection = "users"

var (
	ErrUserExists         = errors.New("user already exists with this email")
	ErrUserNotFound       = errors.New("user not found")
	ErrDailyLimitReached  = errors.New("daily message limit reached")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// CreateUserIndexes creates the unique email index for the users collection
func CreateUserIndexes(ctx context.Context) error {
	_, err := database.Collection(usersCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.M{"email": 1}, Options: options.Index().SetUnique(true)},
		{Keys: bson.M{"username": 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}
	return nil
}

// CreateUser hashes password and stores a new active user
func CreateUser(ctx context.Context, username, email, password string, role models.UserRole) (*models.User, error) {
	if !models.IsValidRole(string(role)) {
		return nil, fmt.Errorf("invalid role: %s", role)
	}

	hashedPassword, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &models.User{
		ID:           primitive.NewObjectID(),
		Username:     strings.TrimSpace(username),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		Role:         role,
		PasswordHash: hashedPassword,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err = database.Collection(usersCollection).InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("User created successfully",
		"userID", user.ID.Hex(),
		"username", user.Username,
		"role", user.Role)

	return user, nil
}

// GetUserByID retrieves a user by their ObjectID
func GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	objectID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID format: %w", err)
	}

	var user models.User
	err = database.Collection(usersCollection).FindOne(ctx, bson.M{"_id": objectID}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return &user, nil
}

// GetUserByEmail retrieves an active user by email
func GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := database.Collection(usersCollection).FindOne(ctx, bson.M{
		"email":     strings.ToLower(strings.TrimSpace(email)),
		"is_active": true,
	}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return &user, nil
}

// Authenticate returns the user owning email when password matches
func Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// UpdateLastLogin updates the user's last login time
func UpdateLastLogin(ctx context.Context, userID primitive.ObjectID) error {
	now := time.Now()
	_, err := database.Collection(usersCollection).UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"last_login": now, "updated_at": now}},
	)
	return err
}

// ConsumeDailyMessage charges one chat message against the user's daily quota.
// Premium users are never limited.
func ConsumeDailyMessage(ctx context.Context, userID string, limit int) error {
	user, err := GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.IsPremium {
		return nil
	}

	now := time.Now()
	if err := applyDailyQuota(user, now, limit); err != nil {
		return err
	}

	_, err = database.Collection(usersCollection).UpdateOne(ctx,
		bson.M{"_id": user.ID},
		bson.M{"$set": bson.M{
			"daily_message_count": user.DailyMessageCount,
			"last_message_date":   now,
			"updated_at":          now,
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to update message count: %w", err)
	}
	return nil
}

// applyDailyQuota resets the counter on a new UTC day, then charges one
// message unless the limit is already reached.
func applyDailyQuota(user *models.User, now time.Time, limit int) error {
	today := now.UTC().Format(time.DateOnly)
	if user.LastMessageDate == nil || user.LastMessageDate.UTC().Format(time.DateOnly) != today {
		user.DailyMessageCount = 0
	}

	if user.DailyMessageCount >= limit {
		return ErrDailyLimitReached
	}

	user.DailyMessageCount++
	user.LastMessageDate = &now
	return nil
}

// HashPassword generates a bcrypt hash of the password
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPasswordHash compares a password with a hash
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
