package roles

import (
	"github.com/chloe-belle/chloe-belle/internal/shared"
	"github.com/chloe-belle/chloe-belle/internal/subscription"
)

// SystemRoles returns the seven seed roles. Seeding is insert-if-absent:
// rows already present are never overwritten, so direct data edits survive
// re-seeding even though system roles stay immutable through the API.
func SystemRoles() []Role {
	return []Role{
		{
			Name:        RoleUser,
			DisplayName: "User",
			Description: "Registered account with no subscription.",
			Permissions: []string{},
			IsSystem:    true,
		},
		{
			Name:              RoleSubscriber,
			DisplayName:       "Subscriber",
			Description:       "Monthly subscription holder.",
			Permissions:       []string{},
			SubscriptionLevel: subscription.TierMonthly,
			AutoAssign:        true,
			IsSystem:          true,
		},
		{
			Name:              RoleVIP,
			DisplayName:       "VIP",
			Description:       "Yearly subscription holder.",
			Permissions:       []string{},
			SubscriptionLevel: subscription.TierYearly,
			AutoAssign:        true,
			IsSystem:          true,
		},
		{
			Name:              RoleLifetime,
			DisplayName:       "Lifetime",
			Description:       "Lifetime subscription holder.",
			Permissions:       []string{},
			SubscriptionLevel: subscription.TierLifetime,
			AutoAssign:        true,
			IsSystem:          true,
		},
		{
			Name:        RoleModerator,
			DisplayName: "Moderator",
			Description: "Moderates comments and views member accounts.",
			Permissions: []string{shared.PermCommentsModerate, shared.PermUsersView},
			IsSystem:    true,
		},
		{
			Name:        RoleChloe,
			DisplayName: "Chloe",
			Description: "Content owner.",
			Permissions: []string{shared.PermAll},
			IsSystem:    true,
		},
		{
			Name:        RoleAdmin,
			DisplayName: "Administrator",
			Description: "Full back-office access.",
			Permissions: []string{shared.PermAll},
			IsSystem:    true,
		},
	}
}
