package settings

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get returns one setting by key.
func (r *Repository) Get(ctx context.Context, key string) (Setting, error) {
	var s Setting
	err := r.pool.QueryRow(ctx,
		`SELECT key, value, kind, updated_at FROM site_settings WHERE key = $1`, key).
		Scan(&s.Key, &s.Value, &s.Kind, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Setting{}, ErrNotFound
		}
		return Setting{}, err
	}
	return s, nil
}

// List returns all settings ordered by key.
func (r *Repository) List(ctx context.Context) ([]Setting, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT key, value, kind, updated_at FROM site_settings ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Setting
	for rows.Next() {
		var s Setting
		if err := rows.Scan(&s.Key, &s.Value, &s.Kind, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Upsert inserts or replaces a setting.
func (r *Repository) Upsert(ctx context.Context, s Setting) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO site_settings (key, value, kind, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, kind = EXCLUDED.kind, updated_at = now()`,
		s.Key, s.Value, s.Kind)
	return err
}
