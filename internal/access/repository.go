package access

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// QuotaRepository provides PostgreSQL backed persistence for view events.
type QuotaRepository struct {
	pool *pgxpool.Pool
}

// NewQuotaRepository constructs a repository.
func NewQuotaRepository(pool *pgxpool.Pool) *QuotaRepository {
	return &QuotaRepository{pool: pool}
}

// CountSince counts a user's free-view events after the cutoff.
func (r *QuotaRepository) CountSince(ctx context.Context, userID int64, since time.Time) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM free_view_events WHERE user_id = $1 AND viewed_at > $2`,
		userID, since).Scan(&n)
	return n, err
}

// InsertIfUnder writes one event only while the windowed count is below the
// limit. The guard and the insert are one statement, so the check cannot be
// separated from the write by a concurrent request.
func (r *QuotaRepository) InsertIfUnder(ctx context.Context, userID int64, limit int, since time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO free_view_events (user_id, viewed_at)
		 SELECT $1, now()
		 WHERE (SELECT count(*) FROM free_view_events WHERE user_id = $1 AND viewed_at > $2) < $3`,
		userID, since, limit)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteBefore prunes events older than the cutoff. Counting never depends
// on pruning; this only keeps the table from growing without bound.
func (r *QuotaRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM free_view_events WHERE viewed_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
