package users

import (
	"errors"
	"time"

	"github.com/chloe-belle/chloe-belle/internal/subscription"
)

// User represents a user account for management.
type User struct {
	ID                  int64
	Email               string
	Username            string
	Role                string
	SubscriptionStatus  subscription.Tier
	SubscriptionExpires *time.Time
	IsActive            bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

var (
	// ErrDuplicateEmail indicates the email is already registered.
	ErrDuplicateEmail = errors.New("users: email already registered")
	// ErrDuplicateUsername indicates the username is already taken.
	ErrDuplicateUsername = errors.New("users: username already taken")
)
