package shared

import "github.com/chloe-belle/chloe-belle/internal/subscription"

// Actor is the requesting identity evaluated against access rules. It is a
// snapshot resolved once per request; handlers must not mutate it.
type Actor struct {
	ID            int64
	Authenticated bool
	Role          string
	Permissions   []string
	Subscription  subscription.Subscription
}

// Anonymous returns the least-privileged actor: no identity, no role, tier none.
func Anonymous() Actor {
	return Actor{}
}

// HasPermission reports whether the actor's role grants the permission,
// either directly or through the all-permissions sentinel.
func (a Actor) HasPermission(perm string) bool {
	for _, p := range a.Permissions {
		if p == PermAll || p == perm {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether the actor's role carries the sentinel.
func (a Actor) HasAllPermissions() bool {
	for _, p := range a.Permissions {
		if p == PermAll {
			return true
		}
	}
	return false
}

// SubscriptionRef returns the actor's subscription, or nil for anonymous
// actors, matching the evaluator's contract.
func (a Actor) SubscriptionRef() *subscription.Subscription {
	if !a.Authenticated {
		return nil
	}
	sub := a.Subscription
	return &sub
}
