package roles

import (
	"errors"
	"regexp"
	"time"

	"github.com/chloe-belle/chloe-belle/internal/shared"
	"github.com/chloe-belle/chloe-belle/internal/subscription"
)

// Role is a named permission grouping, optionally paired with a subscription
// tier for automatic assignment. System roles are seeded and immutable.
type Role struct {
	ID                int64
	Name              string
	DisplayName       string
	Description       string
	Permissions       []string
	SubscriptionLevel subscription.Tier
	AutoAssign        bool
	IsSystem          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// System role names. These seven exist after seeding and cannot be edited or
// deleted through the registry.
const (
	RoleUser       = "user"
	RoleSubscriber = "subscriber"
	RoleVIP        = "vip"
	RoleLifetime   = "lifetime"
	RoleModerator  = "moderator"
	RoleChloe      = "chloe"
	RoleAdmin      = "admin"
)

var systemRoleNames = map[string]struct{}{
	RoleUser:       {},
	RoleSubscriber: {},
	RoleVIP:        {},
	RoleLifetime:   {},
	RoleModerator:  {},
	RoleChloe:      {},
	RoleAdmin:      {},
}

// IsSystemName reports whether name belongs to the protected system set.
func IsSystemName(name string) bool {
	_, ok := systemRoleNames[name]
	return ok
}

var tierManagedNames = map[string]struct{}{
	RoleUser:       {},
	RoleSubscriber: {},
	RoleVIP:        {},
	RoleLifetime:   {},
}

// TierManaged reports whether the role follows the user's subscription tier.
// Subscription changes only rewrite these; moderator, chloe, admin and
// custom roles are hand-assigned and survive tier changes.
func TierManaged(name string) bool {
	_, ok := tierManagedNames[name]
	return ok
}

var namePattern = regexp.MustCompile(`^[a-z_]{3,20}$`)

// ValidName reports whether name matches the role naming rule.
func ValidName(name string) bool {
	return namePattern.MatchString(name)
}

// HasAllPermissions reports whether the role carries the sentinel.
func (r Role) HasAllPermissions() bool {
	for _, p := range r.Permissions {
		if p == shared.PermAll {
			return true
		}
	}
	return false
}

var (
	// ErrNotFound indicates that the requested role does not exist.
	ErrNotFound = errors.New("roles: not found")
	// ErrDuplicateName indicates a role with that name already exists.
	ErrDuplicateName = errors.New("roles: name already taken")
	// ErrInvalidName indicates the name violates the naming rule.
	ErrInvalidName = errors.New("roles: name must be 3-20 lowercase letters or underscores")
	// ErrDisplayNameRequired indicates a missing display name.
	ErrDisplayNameRequired = errors.New("roles: display name required")
	// ErrSystemRole indicates an attempt to mutate a protected system role.
	ErrSystemRole = errors.New("roles: system roles cannot be modified or deleted")
	// ErrRoleInUse indicates deletion of a role that users still hold.
	ErrRoleInUse = errors.New("roles: role is in use")
	// ErrUnknownRole indicates assignment of a role name that does not exist.
	ErrUnknownRole = errors.New("roles: unknown role")
	// ErrAutoAssignTaken indicates another role already auto-assigns for the tier.
	ErrAutoAssignTaken = errors.New("roles: tier already has an auto-assigned role")
)
