package auth

import (
	"time"

	"github.com/chloe-belle/chloe-belle/internal/subscription"
)

// User represents an authenticated user account.
type User struct {
	ID                  int64
	Email               string
	Username            string
	PasswordHash        string
	Role                string
	SubscriptionStatus  subscription.Tier
	SubscriptionExpires *time.Time
	IsActive            bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Subscription returns the user's stored subscription as the value the tier
// evaluator understands. Expiry is applied at read time, not here.
func (u *User) Subscription() subscription.Subscription {
	return subscription.Subscription{
		Status:  u.SubscriptionStatus,
		Expires: u.SubscriptionExpires,
	}
}
