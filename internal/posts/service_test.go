package posts_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chloe-belle/chloe-belle/internal/access"
	"github.com/chloe-belle/chloe-belle/internal/posts"
	"github.com/chloe-belle/chloe-belle/internal/roles"
	"github.com/chloe-belle/chloe-belle/internal/settings"
	"github.com/chloe-belle/chloe-belle/internal/shared"
	"github.com/chloe-belle/chloe-belle/internal/subscription"
	_ "github.com/chloe-belle/chloe-belle/testing"
)

type mockPostRepo struct {
	nextID int64
	posts  map[int64]posts.Post
}

func newMockPostRepo() *mockPostRepo {
	return &mockPostRepo{nextID: 1, posts: make(map[int64]posts.Post)}
}

func (m *mockPostRepo) ListPublished(ctx context.Context) ([]posts.Post, error) {
	var out []posts.Post
	for _, p := range m.posts {
		if p.Published {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockPostRepo) ListAll(ctx context.Context) ([]posts.Post, error) {
	var out []posts.Post
	for _, p := range m.posts {
		out = append(out, p)
	}
	return out, nil
}

func (m *mockPostRepo) GetPost(ctx context.Context, id int64) (posts.Post, error) {
	p, ok := m.posts[id]
	if !ok {
		return posts.Post{}, posts.ErrNotFound
	}
	return p, nil
}

func (m *mockPostRepo) CreatePost(ctx context.Context, p posts.Post) (posts.Post, error) {
	p.ID = m.nextID
	m.nextID++
	p.CreatedAt = time.Now()
	m.posts[p.ID] = p
	return p, nil
}

func (m *mockPostRepo) UpdatePost(ctx context.Context, p posts.Post) (posts.Post, error) {
	if _, ok := m.posts[p.ID]; !ok {
		return posts.Post{}, posts.ErrNotFound
	}
	m.posts[p.ID] = p
	return p, nil
}

func (m *mockPostRepo) DeletePost(ctx context.Context, id int64) error {
	if _, ok := m.posts[id]; !ok {
		return posts.ErrNotFound
	}
	delete(m.posts, id)
	return nil
}

type stubSettingsRepo struct {
	rows map[string]settings.Setting
}

func (s *stubSettingsRepo) Get(ctx context.Context, key string) (settings.Setting, error) {
	row, ok := s.rows[key]
	if !ok {
		return settings.Setting{}, settings.ErrNotFound
	}
	return row, nil
}

func (s *stubSettingsRepo) List(ctx context.Context) ([]settings.Setting, error) { return nil, nil }

func (s *stubSettingsRepo) Upsert(ctx context.Context, setting settings.Setting) error {
	s.rows[setting.Key] = setting
	return nil
}

type memQuotaRepo struct {
	events map[int64]int
}

func (m *memQuotaRepo) CountSince(ctx context.Context, userID int64, since time.Time) (int64, error) {
	return int64(m.events[userID]), nil
}

func (m *memQuotaRepo) InsertIfUnder(ctx context.Context, userID int64, limit int, since time.Time) (bool, error) {
	if m.events[userID] >= limit {
		return false, nil
	}
	m.events[userID]++
	return true, nil
}

func newService(t *testing.T) (*posts.Service, *mockPostRepo, *memQuotaRepo) {
	t.Helper()
	repo := newMockPostRepo()
	store := settings.NewStore(&stubSettingsRepo{rows: make(map[string]settings.Setting)}, 0, nil)
	quotaRepo := &memQuotaRepo{events: make(map[int64]int)}
	gate := access.NewGate(store, access.NewCounter(quotaRepo, store), nil, nil)
	return posts.NewService(repo, gate), repo, quotaRepo
}

func seedPost(t *testing.T, repo *mockPostRepo, in posts.Post) posts.Post {
	t.Helper()
	p, err := repo.CreatePost(context.Background(), in)
	require.NoError(t, err)
	return p
}

func subscriber(tier subscription.Tier) shared.Actor {
	return shared.Actor{
		ID:            1,
		Authenticated: true,
		Role:          roles.RoleSubscriber,
		Subscription:  subscription.Subscription{Status: tier},
	}
}

func TestCreateNormalizesAndDerivesExcerpt(t *testing.T) {
	svc, _, _ := newService(t)

	// "é" as e + combining acute collapses to the precomposed form.
	decomposed := "Café night"
	p, err := svc.Create(context.Background(), posts.Input{Title: decomposed, Body: "short body"})
	require.NoError(t, err)
	assert.Equal(t, "Café night", p.Title)
	assert.Equal(t, "short body", p.Excerpt, "short bodies become the excerpt verbatim")

	_, err = svc.Create(context.Background(), posts.Input{Title: "   ", Body: "body"})
	assert.ErrorIs(t, err, posts.ErrTitleRequired)

	_, err = svc.Create(context.Background(), posts.Input{Title: "title", Body: " "})
	assert.ErrorIs(t, err, posts.ErrBodyRequired)
}

func TestCreateFreePostDropsRequiredTier(t *testing.T) {
	svc, _, _ := newService(t)

	p, err := svc.Create(context.Background(), posts.Input{
		Title: "free", Body: "body", IsPremium: false, SubscriptionRequired: subscription.TierYearly,
	})
	require.NoError(t, err)
	assert.Equal(t, subscription.TierNone, p.SubscriptionRequired)
}

func TestFeedDoesNotConsumeQuota(t *testing.T) {
	svc, repo, quotaRepo := newService(t)
	seedPost(t, repo, posts.Post{Title: "premium", Body: "secret", Excerpt: "tease",
		IsPremium: true, SubscriptionRequired: subscription.TierMonthly, Published: true})

	actor := subscriber(subscription.TierNone)
	for i := 0; i < 5; i++ {
		list, err := svc.Feed(context.Background(), actor, access.ViewOptions{})
		require.NoError(t, err)
		require.Len(t, list, 1)
	}
	assert.Zero(t, quotaRepo.events[actor.ID], "browsing the feed must not spend free views")
}

func TestFeedBlursUnaffordablePremium(t *testing.T) {
	svc, repo, quotaRepo := newService(t)
	seedPost(t, repo, posts.Post{Title: "premium", Body: "secret", Excerpt: "tease",
		IsPremium: true, SubscriptionRequired: subscription.TierMonthly, Published: true})
	seedPost(t, repo, posts.Post{Title: "draft", Body: "hidden", Published: false})

	// Exhaust the quota so the peek denies.
	actor := subscriber(subscription.TierNone)
	quotaRepo.events[actor.ID] = settings.DefaultFreePostsLimit

	list, err := svc.Feed(context.Background(), actor, access.ViewOptions{})
	require.NoError(t, err)
	require.Len(t, list, 1, "drafts stay out of the feed")
	assert.Empty(t, list[0].Post.Body, "denied premium entries carry no body")
	assert.Equal(t, "tease", list[0].Post.Excerpt)
	assert.True(t, list[0].Decision.Teaser)
}

func TestReadConsumesQuota(t *testing.T) {
	svc, repo, quotaRepo := newService(t)
	p := seedPost(t, repo, posts.Post{Title: "premium", Body: "secret", Excerpt: "tease",
		IsPremium: true, SubscriptionRequired: subscription.TierMonthly, Published: true})

	actor := subscriber(subscription.TierNone)
	for i := 0; i < settings.DefaultFreePostsLimit; i++ {
		res, err := svc.Read(context.Background(), actor, p.ID, access.ViewOptions{})
		require.NoError(t, err)
		require.True(t, res.Decision.Allowed)
		assert.Equal(t, "secret", res.Post.Body)
	}
	assert.Equal(t, settings.DefaultFreePostsLimit, quotaRepo.events[actor.ID])

	res, err := svc.Read(context.Background(), actor, p.ID, access.ViewOptions{})
	require.NoError(t, err)
	assert.False(t, res.Decision.Allowed)
	assert.Equal(t, access.ReasonSubscriptionRequired, res.Decision.Reason)
	assert.Empty(t, res.Post.Body)
	assert.Equal(t, "tease", res.Post.Excerpt)
}

func TestReadSubscribedSeesFullBody(t *testing.T) {
	svc, repo, quotaRepo := newService(t)
	p := seedPost(t, repo, posts.Post{Title: "premium", Body: "secret",
		IsPremium: true, SubscriptionRequired: subscription.TierMonthly, Published: true})

	res, err := svc.Read(context.Background(), subscriber(subscription.TierYearly), p.ID, access.ViewOptions{})
	require.NoError(t, err)
	assert.True(t, res.Decision.Allowed)
	assert.Equal(t, access.ReasonSubscribed, res.Decision.Reason)
	assert.Equal(t, "secret", res.Post.Body)
	assert.Zero(t, quotaRepo.events[1], "subscribed reads do not touch the quota")
}

func TestReadDraftHiddenFromReaders(t *testing.T) {
	svc, repo, _ := newService(t)
	p := seedPost(t, repo, posts.Post{Title: "draft", Body: "wip", Published: false})

	_, err := svc.Read(context.Background(), subscriber(subscription.TierNone), p.ID, access.ViewOptions{})
	assert.ErrorIs(t, err, posts.ErrNotFound)

	editor := shared.Actor{ID: 2, Authenticated: true, Role: roles.RoleChloe, Permissions: []string{shared.PermAll}}
	res, err := svc.Read(context.Background(), editor, p.ID, access.ViewOptions{})
	require.NoError(t, err)
	assert.True(t, res.Decision.Allowed)
}
