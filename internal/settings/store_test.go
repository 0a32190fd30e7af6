package settings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	rows     map[string]Setting
	getCalls int
	getErr   error
}

func newMockRepo() *mockRepo {
	return &mockRepo{rows: make(map[string]Setting)}
}

func (m *mockRepo) Get(ctx context.Context, key string) (Setting, error) {
	m.getCalls++
	if m.getErr != nil {
		return Setting{}, m.getErr
	}
	s, ok := m.rows[key]
	if !ok {
		return Setting{}, ErrNotFound
	}
	return s, nil
}

func (m *mockRepo) List(ctx context.Context) ([]Setting, error) {
	out := make([]Setting, 0, len(m.rows))
	for _, s := range m.rows {
		out = append(out, s)
	}
	return out, nil
}

func (m *mockRepo) Upsert(ctx context.Context, s Setting) error {
	m.rows[s.Key] = s
	return nil
}

func TestTypedGetters(t *testing.T) {
	repo := newMockRepo()
	repo.rows[KeyMaintenanceMode] = Setting{Key: KeyMaintenanceMode, Value: "1", Kind: KindBoolean}
	repo.rows[KeyFreePostsLimit] = Setting{Key: KeyFreePostsLimit, Value: "5", Kind: KindInteger}
	repo.rows[KeySiteName] = Setting{Key: KeySiteName, Value: "Chloe Belle", Kind: KindString}

	store := NewStore(repo, time.Minute, nil)
	ctx := context.Background()

	assert.True(t, store.Bool(ctx, KeyMaintenanceMode, false))
	assert.Equal(t, 5, store.Int(ctx, KeyFreePostsLimit, DefaultFreePostsLimit))
	assert.Equal(t, "Chloe Belle", store.String(ctx, KeySiteName, ""))

	// Absent key falls back to the default without error.
	assert.Equal(t, 3, store.Int(ctx, "no_such_key", 3))
}

func TestMalformedValueFallsBack(t *testing.T) {
	repo := newMockRepo()
	repo.rows[KeyFreePostsLimit] = Setting{Key: KeyFreePostsLimit, Value: "many", Kind: KindInteger}

	store := NewStore(repo, time.Minute, nil)
	assert.Equal(t, DefaultFreePostsLimit, store.Int(context.Background(), KeyFreePostsLimit, DefaultFreePostsLimit))
}

func TestUnreachableStoreFailsClosedToDefault(t *testing.T) {
	repo := newMockRepo()
	repo.getErr = errors.New("connection refused")

	store := NewStore(repo, time.Minute, nil)
	ctx := context.Background()

	assert.False(t, store.Bool(ctx, KeyMaintenanceMode, false))
	assert.Equal(t, 3, store.Int(ctx, KeyFreePostsLimit, 3))

	// Lookup surfaces the failure so the access gate can deny premium reads.
	_, err := store.Lookup(ctx, KeyFreePostsLimit)
	assert.Error(t, err)
}

func TestCacheServesUntilTTL(t *testing.T) {
	repo := newMockRepo()
	repo.rows[KeySiteName] = Setting{Key: KeySiteName, Value: "v1", Kind: KindString}

	store := NewStore(repo, time.Minute, nil)
	ctx := context.Background()

	require.Equal(t, "v1", store.String(ctx, KeySiteName, ""))
	repo.rows[KeySiteName] = Setting{Key: KeySiteName, Value: "v2", Kind: KindString}

	// Still cached: the changed value applies to a later request, not this one.
	assert.Equal(t, "v1", store.String(ctx, KeySiteName, ""))
	assert.Equal(t, 1, repo.getCalls)

	store.Invalidate(KeySiteName)
	assert.Equal(t, "v2", store.String(ctx, KeySiteName, ""))
	assert.Equal(t, 2, repo.getCalls)
}

func TestSetValidatesKind(t *testing.T) {
	repo := newMockRepo()
	store := NewStore(repo, 0, nil)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, KeyFreePostsLimit, "4", KindInteger))
	assert.Error(t, store.Set(ctx, KeyFreePostsLimit, "four", KindInteger))
	assert.Error(t, store.Set(ctx, KeyMaintenanceMode, "maybe", KindBoolean))
	assert.Error(t, store.Set(ctx, "broken", "{", KindJSON))
	assert.Error(t, store.Set(ctx, "bad_kind", "x", Kind("float")))
	assert.Error(t, store.Set(ctx, "", "x", KindString))
}

func TestSetInvalidatesCache(t *testing.T) {
	repo := newMockRepo()
	repo.rows[KeySiteName] = Setting{Key: KeySiteName, Value: "old", Kind: KindString}

	store := NewStore(repo, time.Minute, nil)
	ctx := context.Background()

	require.Equal(t, "old", store.String(ctx, KeySiteName, ""))
	require.NoError(t, store.Set(ctx, KeySiteName, "new", KindString))
	assert.Equal(t, "new", store.String(ctx, KeySiteName, ""))
}
