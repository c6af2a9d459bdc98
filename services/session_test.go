package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"accord-ai/models"
)

func TestNewChatSession(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	user := &models.User{
		ID:        primitive.NewObjectID(),
		Username:  "asha",
		Email:     "asha@example.com",
		Role:      models.RoleUser,
		IsPremium: true,
	}

	s := newChatSession(user, "abc", "10.0.0.1", "curl", now)
	assert.Equal(t, user.ID.Hex(), s.UserID)
	assert.Equal(t, "user", s.Role)
	assert.True(t, s.IsPremium)
	assert.True(t, s.IsActive)
	assert.Equal(t, now.Add(SessionDuration), s.ExpiresAt)
	assert.False(t, s.ID.IsZero())
}

func TestTouchSlidesExpiry(t *testing.T) {
	start := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	s := newChatSession(&models.User{ID: primitive.NewObjectID()}, "abc", "", "", start)

	later := start.Add(20 * time.Hour)
	touch(s, later)
	assert.Equal(t, later, s.LastAccessed)
	assert.Equal(t, later.Add(SessionDuration), s.ExpiresAt)
}

func TestLiveSessionFilter(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, bson.M{
		"session_id": "abc",
		"is_active":  true,
		"expires_at": bson.M{"$gt": now},
	}, liveSessionFilter("abc", now))
}

func TestGenerateSessionID(t *testing.T) {
	a, err := GenerateSessionID()
	assert.NoError(t, err)
	b, err := GenerateSessionID()
	assert.NoError(t, err)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}

func TestSessionSweeper(t *testing.T) {
	var sweeps int32
	sweeper := sessionSweeper{
		interval: 5 * time.Millisecond,
		sweep: func(ctx context.Context) (int64, error) {
			if atomic.AddInt32(&sweeps, 1) == 1 {
				return 0, errors.New("mongo unavailable")
			}
			return 3, nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&sweeps) >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}
