package users_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/chloe-belle/chloe-belle/internal/roles"
	"github.com/chloe-belle/chloe-belle/internal/shared"
	"github.com/chloe-belle/chloe-belle/internal/subscription"
	"github.com/chloe-belle/chloe-belle/internal/users"
	_ "github.com/chloe-belle/chloe-belle/testing"
)

type mockUserRepo struct {
	nextID int64
	users  map[int64]users.User
	hashes map[int64]string
	roles  *mockRoleRepo
}

func newMockUserRepo(roleRepo *mockRoleRepo) *mockUserRepo {
	return &mockUserRepo{
		nextID: 1,
		users:  make(map[int64]users.User),
		hashes: make(map[int64]string),
		roles:  roleRepo,
	}
}

func (m *mockUserRepo) ListUsers(ctx context.Context) ([]users.User, error) {
	out := make([]users.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

func (m *mockUserRepo) GetUser(ctx context.Context, id int64) (users.User, error) {
	u, ok := m.users[id]
	if !ok {
		return users.User{}, shared.ErrNotFound
	}
	if role, ok := m.roles.userRoles[id]; ok {
		u.Role = role
	}
	return u, nil
}

func (m *mockUserRepo) CreateUser(ctx context.Context, u users.User, passwordHash string) (users.User, error) {
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return users.User{}, users.ErrDuplicateEmail
		}
		if existing.Username == u.Username {
			return users.User{}, users.ErrDuplicateUsername
		}
	}
	u.ID = m.nextID
	m.nextID++
	u.CreatedAt = time.Now()
	m.users[u.ID] = u
	m.hashes[u.ID] = passwordHash
	return u, nil
}

func (m *mockUserRepo) SetActive(ctx context.Context, id int64, active bool) error {
	u, ok := m.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.IsActive = active
	m.users[id] = u
	return nil
}

func (m *mockUserRepo) SetSubscription(ctx context.Context, id int64, tier subscription.Tier, expires *time.Time) error {
	u, ok := m.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.SubscriptionStatus = tier
	u.SubscriptionExpires = expires
	m.users[id] = u
	return nil
}

func (m *mockUserRepo) ExpiredSubscriptionIDs(ctx context.Context, now time.Time) ([]int64, error) {
	var ids []int64
	for id, u := range m.users {
		if u.SubscriptionStatus != subscription.TierNone && u.SubscriptionExpires != nil && !u.SubscriptionExpires.After(now) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// mockRoleRepo backs a real roles.Service with the seeded system roles.
type mockRoleRepo struct {
	byName    map[string]roles.Role
	userRoles map[int64]string
}

func newMockRoleRepo() *mockRoleRepo {
	m := &mockRoleRepo{byName: make(map[string]roles.Role), userRoles: make(map[int64]string)}
	for i, r := range roles.SystemRoles() {
		r.ID = int64(i + 1)
		m.byName[r.Name] = r
	}
	return m
}

func (m *mockRoleRepo) ListRoles(ctx context.Context) ([]roles.Role, error) {
	out := make([]roles.Role, 0, len(m.byName))
	for _, r := range m.byName {
		out = append(out, r)
	}
	return out, nil
}

func (m *mockRoleRepo) GetRole(ctx context.Context, id int64) (roles.Role, error) {
	for _, r := range m.byName {
		if r.ID == id {
			return r, nil
		}
	}
	return roles.Role{}, roles.ErrNotFound
}

func (m *mockRoleRepo) GetRoleByName(ctx context.Context, name string) (roles.Role, error) {
	r, ok := m.byName[name]
	if !ok {
		return roles.Role{}, roles.ErrNotFound
	}
	return r, nil
}

func (m *mockRoleRepo) CreateRole(ctx context.Context, r roles.Role) (roles.Role, error) {
	m.byName[r.Name] = r
	return r, nil
}

func (m *mockRoleRepo) UpdateRole(ctx context.Context, r roles.Role) (roles.Role, error) {
	m.byName[r.Name] = r
	return r, nil
}

func (m *mockRoleRepo) DeleteRole(ctx context.Context, id int64) error { return nil }

func (m *mockRoleRepo) CountHolders(ctx context.Context, name string) (int64, error) {
	var n int64
	for _, role := range m.userRoles {
		if role == name {
			n++
		}
	}
	return n, nil
}

func (m *mockRoleRepo) AssignRole(ctx context.Context, userID int64, roleName string) error {
	m.userRoles[userID] = roleName
	return nil
}

func (m *mockRoleRepo) FindAutoAssign(ctx context.Context, tier subscription.Tier) (roles.Role, error) {
	for _, r := range m.byName {
		if r.AutoAssign && r.SubscriptionLevel == tier {
			return r, nil
		}
	}
	return roles.Role{}, roles.ErrNotFound
}

func (m *mockRoleRepo) CountAutoAssign(ctx context.Context, tier subscription.Tier, excludeID int64) (int64, error) {
	var n int64
	for _, r := range m.byName {
		if r.AutoAssign && r.SubscriptionLevel == tier && r.ID != excludeID {
			n++
		}
	}
	return n, nil
}

func (m *mockRoleRepo) SeedRoles(ctx context.Context, seed []roles.Role) error { return nil }

func newFixture() (*users.Service, *mockUserRepo, *mockRoleRepo) {
	roleRepo := newMockRoleRepo()
	userRepo := newMockUserRepo(roleRepo)
	svc := users.NewService(userRepo, roles.NewService(roleRepo, nil), nil)
	return svc, userRepo, roleRepo
}

func TestCreateUserDefaults(t *testing.T) {
	svc, repo, _ := newFixture()

	created, err := svc.CreateUser(context.Background(), users.CreateInput{
		Email:    "Fan@Test.Local",
		Username: "superfan",
		Password: "longenoughpass",
	})
	require.NoError(t, err)
	assert.Equal(t, "fan@test.local", created.Email, "email is normalized to lowercase")
	assert.Equal(t, roles.RoleUser, created.Role)
	assert.True(t, created.IsActive)
	assert.Equal(t, subscription.TierNone, created.SubscriptionStatus)

	err = bcrypt.CompareHashAndPassword([]byte(repo.hashes[created.ID]), []byte("longenoughpass"))
	assert.NoError(t, err, "stored hash must verify against the password")
}

func TestCreateUserUnknownRole(t *testing.T) {
	svc, _, _ := newFixture()

	_, err := svc.CreateUser(context.Background(), users.CreateInput{
		Email:    "fan@test.local",
		Username: "superfan",
		Password: "longenoughpass",
		Role:     "nonexistent",
	})
	assert.ErrorIs(t, err, roles.ErrNotFound)
}

func TestCreateUserDuplicates(t *testing.T) {
	svc, _, _ := newFixture()
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, users.CreateInput{Email: "fan@test.local", Username: "superfan", Password: "longenoughpass"})
	require.NoError(t, err)

	_, err = svc.CreateUser(ctx, users.CreateInput{Email: "fan@test.local", Username: "otherfan", Password: "longenoughpass"})
	assert.ErrorIs(t, err, users.ErrDuplicateEmail)

	_, err = svc.CreateUser(ctx, users.CreateInput{Email: "other@test.local", Username: "superfan", Password: "longenoughpass"})
	assert.ErrorIs(t, err, users.ErrDuplicateUsername)
}

func TestSetSubscriptionAutoAssignsTierRole(t *testing.T) {
	svc, _, roleRepo := newFixture()
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, users.CreateInput{Email: "fan@test.local", Username: "superfan", Password: "longenoughpass"})
	require.NoError(t, err)

	expires := time.Now().Add(30 * 24 * time.Hour)
	require.NoError(t, svc.SetSubscription(ctx, created.ID, subscription.TierMonthly, &expires))
	assert.Equal(t, roles.RoleSubscriber, roleRepo.userRoles[created.ID])

	require.NoError(t, svc.SetSubscription(ctx, created.ID, subscription.TierLifetime, nil))
	assert.Equal(t, roles.RoleLifetime, roleRepo.userRoles[created.ID])
}

func TestSetSubscriptionCancellationDowngrades(t *testing.T) {
	svc, _, roleRepo := newFixture()
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, users.CreateInput{Email: "fan@test.local", Username: "superfan", Password: "longenoughpass"})
	require.NoError(t, err)

	expires := time.Now().Add(30 * 24 * time.Hour)
	require.NoError(t, svc.SetSubscription(ctx, created.ID, subscription.TierMonthly, &expires))
	require.Equal(t, roles.RoleSubscriber, roleRepo.userRoles[created.ID])

	require.NoError(t, svc.SetSubscription(ctx, created.ID, subscription.TierNone, nil))
	assert.Equal(t, roles.RoleUser, roleRepo.userRoles[created.ID])
}

func TestSetSubscriptionKeepsHandAssignedRoles(t *testing.T) {
	svc, _, roleRepo := newFixture()
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, users.CreateInput{
		Email: "mod@test.local", Username: "themod", Password: "longenoughpass", Role: roles.RoleModerator,
	})
	require.NoError(t, err)
	roleRepo.userRoles[created.ID] = roles.RoleModerator

	expires := time.Now().Add(30 * 24 * time.Hour)
	require.NoError(t, svc.SetSubscription(ctx, created.ID, subscription.TierMonthly, &expires))
	assert.Equal(t, roles.RoleModerator, roleRepo.userRoles[created.ID], "moderator keeps their role when subscribing")

	stored, err := svc.GetUser(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, subscription.TierMonthly, stored.SubscriptionStatus)
}

func TestSweepExpiredNormalizesRows(t *testing.T) {
	svc, _, roleRepo := newFixture()
	ctx := context.Background()

	lapsed, err := svc.CreateUser(ctx, users.CreateInput{Email: "a@test.local", Username: "lapsed", Password: "longenoughpass"})
	require.NoError(t, err)
	current, err := svc.CreateUser(ctx, users.CreateInput{Email: "b@test.local", Username: "current", Password: "longenoughpass"})
	require.NoError(t, err)

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)
	require.NoError(t, svc.SetSubscription(ctx, lapsed.ID, subscription.TierMonthly, &past))
	require.NoError(t, svc.SetSubscription(ctx, current.ID, subscription.TierMonthly, &future))

	swept, err := svc.SweepExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, swept)

	sweptUser, err := svc.GetUser(ctx, lapsed.ID)
	require.NoError(t, err)
	assert.Equal(t, subscription.TierNone, sweptUser.SubscriptionStatus)
	assert.Nil(t, sweptUser.SubscriptionExpires)
	assert.Equal(t, roles.RoleUser, roleRepo.userRoles[lapsed.ID])

	kept, err := svc.GetUser(ctx, current.ID)
	require.NoError(t, err)
	assert.Equal(t, subscription.TierMonthly, kept.SubscriptionStatus)
	assert.Equal(t, roles.RoleSubscriber, roleRepo.userRoles[current.ID])
}

func TestSetActiveUnknownUser(t *testing.T) {
	svc, _, _ := newFixture()
	assert.ErrorIs(t, svc.SetActive(context.Background(), 99, false), shared.ErrNotFound)
}
