package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chloe-belle/chloe-belle/internal/shared"
	"github.com/chloe-belle/chloe-belle/internal/subscription"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	CreateUser(ctx context.Context, u User, passwordHash string) (User, error)
	SetActive(ctx context.Context, id int64, active bool) error
	SetSubscription(ctx context.Context, id int64, tier subscription.Tier, expires *time.Time) error
	ExpiredSubscriptionIDs(ctx context.Context, now time.Time) ([]int64, error)
}

// Repository implements RepositoryPort using PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, email, username, role, subscription_status,
	subscription_expires, is_active, created_at, updated_at`

func scanUser(row pgx.Row) (User, error) {
	var (
		u      User
		status string
	)
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.Role, &status,
		&u.SubscriptionExpires, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	tier, err := subscription.ParseTier(status)
	if err != nil {
		tier = subscription.TierNone
	}
	u.SubscriptionStatus = tier
	return u, nil
}

// ListUsers returns all users ordered by creation time.
func (r *Repository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// GetUser fetches a user by primary key.
func (r *Repository) GetUser(ctx context.Context, id int64) (User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// CreateUser inserts a new account and returns the stored row.
func (r *Repository) CreateUser(ctx context.Context, u User, passwordHash string) (User, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, username, password_hash, role, subscription_status, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+userColumns,
		u.Email, u.Username, passwordHash, u.Role, u.SubscriptionStatus.String(), u.IsActive)
	created, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if strings.Contains(pgErr.ConstraintName, "username") {
				return User{}, ErrDuplicateUsername
			}
			return User{}, ErrDuplicateEmail
		}
		return User{}, err
	}
	return created, nil
}

// SetActive toggles the account's active flag.
func (r *Repository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET is_active = $2, updated_at = now() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SetSubscription rewrites the stored subscription tier and expiry.
func (r *Repository) SetSubscription(ctx context.Context, id int64, tier subscription.Tier, expires *time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET subscription_status = $2, subscription_expires = $3, updated_at = now()
		WHERE id = $1`, id, tier.String(), expires)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ExpiredSubscriptionIDs returns users whose stored tier has lapsed. The
// evaluator already treats them as unsubscribed; the sweep just normalizes
// the stored rows.
func (r *Repository) ExpiredSubscriptionIDs(ctx context.Context, now time.Time) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id FROM users
		WHERE subscription_status <> 'none'
		  AND subscription_expires IS NOT NULL
		  AND subscription_expires <= $1`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

var _ RepositoryPort = (*Repository)(nil)
