package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	userIDMaxLength    = 200
	userEmailMaxLength = 320
)

// ErrInvalidUserID reports a missing or oversized external identity.
var ErrInvalidUserID = errors.New("invalid_user_id")

// User mirrors an identity-provider account the first time it reaches the API.
type User struct {
	ID        string    `gorm:"primaryKey;size:36"`
	UserID    string    `gorm:"not null;size:200;uniqueIndex"`
	Email     string    `gorm:"size:320"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// NewUser constructs a User for the external identity provider id.
func NewUser(userID string, email string) (User, error) {
	normalizedUserID := strings.TrimSpace(userID)
	if normalizedUserID == "" {
		return User{}, ErrInvalidUserID
	}
	if len(normalizedUserID) > userIDMaxLength {
		return User{}, fmt.Errorf("%w: too long", ErrInvalidUserID)
	}
	normalizedEmail := strings.ToLower(strings.TrimSpace(email))
	if len(normalizedEmail) > userEmailMaxLength {
		normalizedEmail = ""
	}
	return User{
		ID:     uuid.NewString(),
		UserID: normalizedUserID,
		Email:  normalizedEmail,
	}, nil
}
