package access

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chloe-belle/chloe-belle/internal/roles"
	"github.com/chloe-belle/chloe-belle/internal/settings"
	"github.com/chloe-belle/chloe-belle/internal/shared"
	"github.com/chloe-belle/chloe-belle/internal/subscription"
)

type stubSettingsRepo struct {
	rows map[string]settings.Setting
	err  error
}

func (s *stubSettingsRepo) Get(ctx context.Context, key string) (settings.Setting, error) {
	if s.err != nil {
		return settings.Setting{}, s.err
	}
	row, ok := s.rows[key]
	if !ok {
		return settings.Setting{}, settings.ErrNotFound
	}
	return row, nil
}

func (s *stubSettingsRepo) List(ctx context.Context) ([]settings.Setting, error) {
	return nil, s.err
}

func (s *stubSettingsRepo) Upsert(ctx context.Context, setting settings.Setting) error {
	s.rows[setting.Key] = setting
	return nil
}

type memQuotaRepo struct {
	events map[int64][]time.Time
	err    error
}

func newMemQuotaRepo() *memQuotaRepo {
	return &memQuotaRepo{events: make(map[int64][]time.Time)}
}

func (m *memQuotaRepo) CountSince(ctx context.Context, userID int64, since time.Time) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	var n int64
	for _, at := range m.events[userID] {
		if at.After(since) {
			n++
		}
	}
	return n, nil
}

func (m *memQuotaRepo) InsertIfUnder(ctx context.Context, userID int64, limit int, since time.Time) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	n, _ := m.CountSince(ctx, userID, since)
	if int(n) >= limit {
		return false, nil
	}
	m.events[userID] = append(m.events[userID], time.Now())
	return true, nil
}

type gateFixture struct {
	gate         *Gate
	settingsRepo *stubSettingsRepo
	quotaRepo    *memQuotaRepo
}

func newGateFixture(t *testing.T) *gateFixture {
	t.Helper()
	settingsRepo := &stubSettingsRepo{rows: make(map[string]settings.Setting)}
	// Zero TTL: every lookup hits the stub so tests can flip flags freely.
	store := settings.NewStore(settingsRepo, 0, nil)
	quotaRepo := newMemQuotaRepo()
	counter := NewCounter(quotaRepo, store)
	return &gateFixture{
		gate:         NewGate(store, counter, nil, nil),
		settingsRepo: settingsRepo,
		quotaRepo:    quotaRepo,
	}
}

func (f *gateFixture) setMaintenance(on bool) {
	value := "0"
	if on {
		value = "1"
	}
	f.settingsRepo.rows[settings.KeyMaintenanceMode] = settings.Setting{
		Key: settings.KeyMaintenanceMode, Value: value, Kind: settings.KindBoolean,
	}
}

func freeUser(id int64) shared.Actor {
	return shared.Actor{ID: id, Authenticated: true, Role: roles.RoleUser}
}

func subscriber(id int64, tier subscription.Tier) shared.Actor {
	return shared.Actor{
		ID:            id,
		Authenticated: true,
		Role:          roles.RoleSubscriber,
		Subscription:  subscription.Subscription{Status: tier},
	}
}

func TestFreeContentAlwaysAllowed(t *testing.T) {
	f := newGateFixture(t)
	ctx := context.Background()
	free := Resource{IsPremium: false}

	for name, actor := range map[string]shared.Actor{
		"anonymous": shared.Anonymous(),
		"free user": freeUser(1),
		"admin":     {ID: 2, Authenticated: true, Role: roles.RoleAdmin, Permissions: []string{shared.PermAll}},
	} {
		d := f.gate.CanView(ctx, actor, free, ViewOptions{})
		assert.True(t, d.Allowed, name)
		assert.Equal(t, ReasonFreeContent, d.Reason, name)
	}
}

func TestMaintenanceBlocksUnprivileged(t *testing.T) {
	f := newGateFixture(t)
	f.setMaintenance(true)
	ctx := context.Background()

	for _, res := range []Resource{{IsPremium: false}, {IsPremium: true, RequiredTier: subscription.TierMonthly}} {
		d := f.gate.CanView(ctx, freeUser(1), res, ViewOptions{})
		assert.False(t, d.Allowed)
		assert.Equal(t, ReasonMaintenance, d.Reason)
	}

	d := f.gate.CanView(ctx, shared.Anonymous(), Resource{}, ViewOptions{})
	assert.Equal(t, ReasonMaintenance, d.Reason)
}

func TestMaintenanceBypassRoles(t *testing.T) {
	f := newGateFixture(t)
	f.setMaintenance(true)
	ctx := context.Background()
	res := Resource{IsPremium: false}

	for _, role := range []string{roles.RoleAdmin, roles.RoleModerator, roles.RoleChloe} {
		actor := shared.Actor{ID: 5, Authenticated: true, Role: role}
		d := f.gate.CanView(ctx, actor, res, ViewOptions{})
		assert.True(t, d.Allowed, role)
		assert.NotEqual(t, ReasonMaintenance, d.Reason, role)
	}
}

func TestMaintenanceAPIExemption(t *testing.T) {
	f := newGateFixture(t)
	f.setMaintenance(true)
	ctx := context.Background()
	res := Resource{IsPremium: false}

	// Authenticated API calls keep working during maintenance.
	d := f.gate.CanView(ctx, freeUser(1), res, ViewOptions{APIRequest: true})
	assert.True(t, d.Allowed)

	// Anonymous API calls do not.
	d = f.gate.CanView(ctx, shared.Anonymous(), res, ViewOptions{APIRequest: true})
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonMaintenance, d.Reason)
}

func TestRoleOverride(t *testing.T) {
	f := newGateFixture(t)
	ctx := context.Background()
	premium := Resource{IsPremium: true, RequiredTier: subscription.TierLifetime}

	owner := shared.Actor{ID: 1, Authenticated: true, Role: roles.RoleChloe, Permissions: []string{shared.PermAll}}
	d := f.gate.CanView(ctx, owner, premium, ViewOptions{})
	assert.True(t, d.Allowed)
	assert.Equal(t, ReasonRoleOverride, d.Reason)
}

func TestSubscriptionTierGate(t *testing.T) {
	f := newGateFixture(t)
	ctx := context.Background()

	yearlyContent := Resource{IsPremium: true, RequiredTier: subscription.TierYearly}
	monthlyContent := Resource{IsPremium: true, RequiredTier: subscription.TierMonthly}

	d := f.gate.CanView(ctx, subscriber(1, subscription.TierYearly), monthlyContent, ViewOptions{})
	assert.True(t, d.Allowed)
	assert.Equal(t, ReasonSubscribed, d.Reason)

	// A monthly subscriber short of the yearly requirement falls through to
	// the free-view quota rather than a flat deny.
	d = f.gate.CanView(ctx, subscriber(2, subscription.TierMonthly), yearlyContent, ViewOptions{})
	assert.True(t, d.Allowed)
	assert.Equal(t, ReasonFreeQuota, d.Reason)
}

func TestExpiredSubscriptionTreatedAsNone(t *testing.T) {
	f := newGateFixture(t)
	ctx := context.Background()

	past := time.Now().Add(-time.Second)
	actor := shared.Actor{
		ID:            9,
		Authenticated: true,
		Role:          roles.RoleSubscriber,
		Subscription:  subscription.Subscription{Status: subscription.TierMonthly, Expires: &past},
	}
	premium := Resource{IsPremium: true, RequiredTier: subscription.TierMonthly}

	d := f.gate.CanView(ctx, actor, premium, ViewOptions{})
	assert.Equal(t, ReasonFreeQuota, d.Reason, "expired tier should fall back to the quota, not SUBSCRIBED")
}

func TestFreeQuotaExhaustion(t *testing.T) {
	f := newGateFixture(t)
	ctx := context.Background()
	premium := Resource{IsPremium: true, RequiredTier: subscription.TierMonthly}
	actor := freeUser(7)

	for i := 0; i < settings.DefaultFreePostsLimit; i++ {
		d := f.gate.CanView(ctx, actor, premium, ViewOptions{})
		require.True(t, d.Allowed, "view %d", i+1)
		require.Equal(t, ReasonFreeQuota, d.Reason)
	}

	d := f.gate.CanView(ctx, actor, premium, ViewOptions{})
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonSubscriptionRequired, d.Reason)
	assert.True(t, d.Teaser)
}

func TestAnonymousPremiumDenied(t *testing.T) {
	f := newGateFixture(t)
	ctx := context.Background()
	premium := Resource{IsPremium: true, RequiredTier: subscription.TierMonthly}

	d := f.gate.CanView(ctx, shared.Anonymous(), premium, ViewOptions{})
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonSubscriptionRequired, d.Reason)
	assert.True(t, d.Teaser)
	assert.Empty(t, f.quotaRepo.events, "anonymous views must not consume quota")
}

func TestSettingsOutageFailsClosedForPremium(t *testing.T) {
	f := newGateFixture(t)
	f.settingsRepo.err = errors.New("connection refused")
	ctx := context.Background()

	d := f.gate.CanView(ctx, freeUser(1), Resource{IsPremium: true, RequiredTier: subscription.TierMonthly}, ViewOptions{})
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonSubscriptionRequired, d.Reason)

	// Explicitly free content stays readable.
	d = f.gate.CanView(ctx, freeUser(1), Resource{IsPremium: false}, ViewOptions{})
	assert.True(t, d.Allowed)
}
