package access

import (
	"github.com/chloe-belle/chloe-belle/internal/roles"
	"github.com/chloe-belle/chloe-belle/internal/subscription"
)

// Resource is the gated view of a piece of content. RequiredTier only
// matters when IsPremium is set; the featured flag never participates in
// access control.
type Resource struct {
	IsPremium    bool
	RequiredTier subscription.Tier
}

// Reason explains a gate decision so the caller can render the right
// call-to-action instead of a generic failure.
type Reason string

const (
	ReasonMaintenance          Reason = "MAINTENANCE"
	ReasonFreeContent          Reason = "FREE_CONTENT"
	ReasonRoleOverride         Reason = "ROLE_OVERRIDE"
	ReasonSubscribed           Reason = "SUBSCRIBED"
	ReasonFreeQuota            Reason = "FREE_QUOTA"
	ReasonSubscriptionRequired Reason = "SUBSCRIPTION_REQUIRED"
)

// Decision is the gate's verdict. Teaser asks the renderer to show a
// blurred preview with an upsell instead of hiding the resource outright.
type Decision struct {
	Allowed bool
	Reason  Reason
	Teaser  bool
}

// maintenanceBypassRoles may browse the site while maintenance mode is on.
// The legacy page gate named only admin and moderator while other checks
// treated the content owner as equally privileged; the set is unified here
// so the owner is never locked out of their own site.
var maintenanceBypassRoles = map[string]struct{}{
	roles.RoleAdmin:     {},
	roles.RoleModerator: {},
	roles.RoleChloe:     {},
}

// BypassesMaintenance reports whether the role may ignore maintenance mode.
func BypassesMaintenance(roleName string) bool {
	_, ok := maintenanceBypassRoles[roleName]
	return ok
}
