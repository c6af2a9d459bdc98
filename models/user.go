package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserRole represents the role of a user
type UserRole string

const (
	RoleAdmin UserRole = "admin"
	RoleUser  UserRole = "user"
)

// User represents a chat account
type User struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username string             `bson:"username" json:"username"`
	Email    string             `bson:"email" json:"email"`
	Role     UserRole           `bson:"role" json:"role"`

	// Authentication
	PasswordHash string `bson:"password_hash" json:"-"`

	// Plan and daily quota
	IsPremium         bool       `bson:"is_premium" json:"is_premium"`
	DailyMessageCount int        `bson:"daily_message_count" json:"daily_message_count"`
	LastMessageDate   *time.Time `bson:"last_message_date,omitempty" json:"last_message_date,omitempty"`

	// Status
	IsActive  bool      `bson:"is_active" json:"is_active"`
	LastLogin time.Time `bson:"last_login,omitempty" json:"last_login,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsAdmin reports whether the user may manage the dataset
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsValidRole checks if a role is valid
func IsValidRole(role string) bool {
	switch UserRole(role) {
	case RoleAdmin, RoleUser:
		return true
	}
	return false
}
