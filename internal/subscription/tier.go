package subscription

import "fmt"

// Tier is a subscription level. Tiers form a total order: every higher tier
// unlocks everything a lower tier does. Orthogonal entitlements cannot be
// expressed here; role permissions are the only independent axis.
type Tier int

const (
	TierNone Tier = iota
	TierMonthly
	TierYearly
	TierLifetime
)

var tierNames = map[Tier]string{
	TierNone:     "none",
	TierMonthly:  "monthly",
	TierYearly:   "yearly",
	TierLifetime: "lifetime",
}

// String returns the storage representation of the tier.
func (t Tier) String() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return "none"
}

// AtLeast reports whether t satisfies the required tier.
func (t Tier) AtLeast(required Tier) bool {
	return t >= required
}

// ParseTier converts a stored tier string into a Tier. Unknown values map to
// TierNone with an error so callers can decide whether to treat bad data as
// anonymous or reject it.
func ParseTier(s string) (Tier, error) {
	switch s {
	case "", "none":
		return TierNone, nil
	case "monthly":
		return TierMonthly, nil
	case "yearly":
		return TierYearly, nil
	case "lifetime":
		return TierLifetime, nil
	}
	return TierNone, fmt.Errorf("subscription: unknown tier %q", s)
}

// MustTier is ParseTier for trusted inputs such as seed data.
func MustTier(s string) Tier {
	t, err := ParseTier(s)
	if err != nil {
		panic(err)
	}
	return t
}
