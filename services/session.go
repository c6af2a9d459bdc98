package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"accord-ai/models"
)

const (
	// SessionDuration is the idle lifetime of a chat login; every
	// authenticated request pushes the expiry forward by this much.
	SessionDuration   = 24 * time.Hour
	SessionCookieName = "session"

	// sessionRetention keeps expired logins around for a week before the sweep deletes them
	sessionRetention   = 7 * 24 * time.Hour
	sessionsCollection = "sessions"
)

func sessions() *mongo.Collection {
	return GetDatabase().Collection(sessionsCollection)
}

// GenerateSessionID returns 32 random bytes hex-encoded for the session cookie
func GenerateSessionID() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// newChatSession builds the session document for a user who just logged in
func newChatSession(user *models.User, sessionID, ipAddress, userAgent string, now time.Time) *models.Session {
	return &models.Session{
		ID:           primitive.NewObjectID(),
		SessionID:    sessionID,
		UserID:       user.ID.Hex(),
		Username:     user.Username,
		Email:        user.Email,
		Role:         string(user.Role),
		IsPremium:    user.IsPremium,
		IPAddress:    ipAddress,
		UserAgent:    userAgent,
		CreatedAt:    now,
		LastAccessed: now,
		ExpiresAt:    now.Add(SessionDuration),
		IsActive:     true,
	}
}

// liveSessionFilter matches a session that was not logged out and has not expired at now
func liveSessionFilter(sessionID string, now time.Time) bson.M {
	return bson.M{
		"session_id": sessionID,
		"is_active":  true,
		"expires_at": bson.M{"$gt": now},
	}
}

// touch records activity on s and moves its expiry a full SessionDuration past now
func touch(s *models.Session, now time.Time) {
	s.LastAccessed = now
	s.ExpiresAt = now.Add(SessionDuration)
}

// CreateSession stores a new login for user
func CreateSession(ctx context.Context, user *models.User, ipAddress, userAgent string) (*models.Session, error) {
	sessionID, err := GenerateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	session := newChatSession(user, sessionID, ipAddress, userAgent, time.Now())
	if _, err := sessions().InsertOne(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("Chat session started", "userID", session.UserID, "premium", session.IsPremium)
	return session, nil
}

// GetSessionByID returns the live session for the cookie value, or nil when
// the client should be treated as anonymous. A found session is kept alive.
func GetSessionByID(ctx context.Context, sessionID string) (*models.Session, error) {
	now := time.Now()

	var session models.Session
	err := sessions().FindOne(ctx, liveSessionFilter(sessionID, now)).Decode(&session)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	touch(&session, now)
	_, err = sessions().UpdateOne(ctx,
		bson.M{"_id": session.ID},
		bson.M{"$set": bson.M{
			"last_accessed": session.LastAccessed,
			"expires_at":    session.ExpiresAt,
		}},
	)
	if err != nil {
		// the request is still authenticated; the client just loses the extension
		slog.Warn("Failed to extend chat session", "error", err, "userID", session.UserID)
	}
	return &session, nil
}

// DestroySession logs the client out. Later requests with the same cookie are anonymous.
func DestroySession(ctx context.Context, sessionID string) error {
	_, err := sessions().UpdateOne(ctx,
		bson.M{"session_id": sessionID},
		bson.M{"$set": bson.M{"is_active": false, "expires_at": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("failed to destroy session: %w", err)
	}
	return nil
}

// CleanupExpiredSessions deletes logins that expired more than sessionRetention ago
func CleanupExpiredSessions(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-sessionRetention)
	result, err := sessions().DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup expired sessions: %w", err)
	}
	return result.DeletedCount, nil
}

// CountActiveSessions counts logged-in chat clients, for the health endpoint
func CountActiveSessions(ctx context.Context) (int64, error) {
	count, err := sessions().CountDocuments(ctx, bson.M{
		"is_active":  true,
		"expires_at": bson.M{"$gt": time.Now()},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count active sessions: %w", err)
	}
	return count, nil
}

// CreateSessionIndexes creates the cookie lookup and expiry sweep indexes
func CreateSessionIndexes(ctx context.Context) error {
	_, err := sessions().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.M{"session_id": 1}, Options: options.Index().SetUnique(true)},
		{Keys: bson.M{"user_id": 1}},
		{Keys: bson.D{{Key: "is_active", Value: 1}, {Key: "expires_at", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create session indexes: %w", err)
	}
	return nil
}
