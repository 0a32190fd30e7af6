package subscription

import "time"

// Subscription is the tier a user currently holds plus its optional expiry.
// A nil Expires means the grant does not expire (lifetime, or admin-granted
// open-ended access).
type Subscription struct {
	Status  Tier
	Expires *time.Time
}

// Expired reports whether the grant has lapsed at the given instant. The
// stored status is never rewritten here; expiry is evaluated lazily on every
// check so a stale row behaves exactly like a tier-none user.
func (s Subscription) Expired(now time.Time) bool {
	return s.Expires != nil && s.Expires.Before(now)
}

// EffectiveTier returns the tier the subscription actually confers at the
// given instant, collapsing expired grants to TierNone.
func (s Subscription) EffectiveTier(now time.Time) Tier {
	if s.Status == TierNone || s.Expired(now) {
		return TierNone
	}
	return s.Status
}

// Meets reports whether a subscription satisfies the required tier for a
// piece of content. The sub pointer is nil for anonymous actors.
func Meets(sub *Subscription, required Tier, now time.Time) bool {
	if required == TierNone {
		return true
	}
	if sub == nil {
		return false
	}
	return sub.EffectiveTier(now).AtLeast(required)
}
