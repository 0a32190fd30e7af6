package access

import (
	"context"
	"errors"
	"time"

	"github.com/chloe-belle/chloe-belle/internal/settings"
)

// Window is the rolling lookback for free premium views, anchored to "now"
// on every call. It is not a calendar day, and views are not deduplicated
// per resource: reading the same premium post twice consumes two units.
const Window = 24 * time.Hour

// QuotaRepositoryPort defines data access for free-view events.
type QuotaRepositoryPort interface {
	CountSince(ctx context.Context, userID int64, since time.Time) (int64, error)
	// InsertIfUnder records one view event only if the user's event count
	// since the cutoff is still below limit, in a single statement, and
	// reports whether a row was written.
	InsertIfUnder(ctx context.Context, userID int64, limit int, since time.Time) (bool, error)
}

// Counter tracks free premium-content views per user. The limit comes from
// the free_posts_limit setting; when settings cannot be read at all the
// limit is unknowable and both methods fail, which the gate turns into a
// deny rather than an unlimited allowance.
type Counter struct {
	repo     QuotaRepositoryPort
	settings *settings.Store
	now      func() time.Time
}

// NewCounter constructs a Counter.
func NewCounter(repo QuotaRepositoryPort, store *settings.Store) *Counter {
	return &Counter{repo: repo, settings: store, now: time.Now}
}

// Remaining returns how many free views the user has left in the window.
func (c *Counter) Remaining(ctx context.Context, userID int64) (int, error) {
	limit, err := c.limit(ctx)
	if err != nil {
		return 0, err
	}
	used, err := c.repo.CountSince(ctx, userID, c.now().Add(-Window))
	if err != nil {
		return 0, err
	}
	remaining := limit - int(used)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// Consume atomically records a view if quota remains, reporting whether a
// unit was actually consumed. Check and write commit together, so two
// concurrent requests at the boundary cannot both be granted the last unit.
func (c *Counter) Consume(ctx context.Context, userID int64) (bool, error) {
	limit, err := c.limit(ctx)
	if err != nil {
		return false, err
	}
	if limit <= 0 {
		return false, nil
	}
	return c.repo.InsertIfUnder(ctx, userID, limit, c.now().Add(-Window))
}

func (c *Counter) limit(ctx context.Context) (int, error) {
	setting, err := c.settings.Lookup(ctx, settings.KeyFreePostsLimit)
	if err != nil {
		if errors.Is(err, settings.ErrNotFound) {
			return settings.DefaultFreePostsLimit, nil
		}
		return 0, err
	}
	limit, err := setting.Int()
	if err != nil {
		return settings.DefaultFreePostsLimit, nil
	}
	return limit, nil
}
