package posts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chloe-belle/chloe-belle/internal/subscription"
)

// RepositoryPort defines data access methods for posts.
type RepositoryPort interface {
	ListPublished(ctx context.Context) ([]Post, error)
	ListAll(ctx context.Context) ([]Post, error)
	GetPost(ctx context.Context, id int64) (Post, error)
	CreatePost(ctx context.Context, p Post) (Post, error)
	UpdatePost(ctx context.Context, p Post) (Post, error)
	DeletePost(ctx context.Context, id int64) error
}

// Repository implements RepositoryPort using PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const postColumns = `id, title, body, excerpt, is_premium, subscription_required,
	featured, published, created_at, updated_at`

func scanPost(row pgx.Row) (Post, error) {
	var (
		p        Post
		required string
	)
	err := row.Scan(&p.ID, &p.Title, &p.Body, &p.Excerpt, &p.IsPremium, &required,
		&p.Featured, &p.Published, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Post{}, ErrNotFound
		}
		return Post{}, err
	}
	tier, err := subscription.ParseTier(required)
	if err != nil {
		tier = subscription.TierNone
	}
	p.SubscriptionRequired = tier
	return p, nil
}

func (r *Repository) queryPosts(ctx context.Context, query string) ([]Post, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListPublished returns published posts, featured first, newest next.
func (r *Repository) ListPublished(ctx context.Context) ([]Post, error) {
	return r.queryPosts(ctx, `
		SELECT `+postColumns+` FROM posts
		WHERE published
		ORDER BY featured DESC, created_at DESC, id DESC`)
}

// ListAll returns every post including drafts, for the back office.
func (r *Repository) ListAll(ctx context.Context) ([]Post, error) {
	return r.queryPosts(ctx, `
		SELECT `+postColumns+` FROM posts
		ORDER BY created_at DESC, id DESC`)
}

// GetPost fetches a post by primary key.
func (r *Repository) GetPost(ctx context.Context, id int64) (Post, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, id)
	return scanPost(row)
}

// CreatePost inserts a post and returns the stored row.
func (r *Repository) CreatePost(ctx context.Context, p Post) (Post, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO posts (title, body, excerpt, is_premium, subscription_required, featured, published)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+postColumns,
		p.Title, p.Body, p.Excerpt, p.IsPremium, p.SubscriptionRequired.String(), p.Featured, p.Published)
	return scanPost(row)
}

// UpdatePost rewrites a post and returns the stored row.
func (r *Repository) UpdatePost(ctx context.Context, p Post) (Post, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE posts
		SET title = $2, body = $3, excerpt = $4, is_premium = $5,
			subscription_required = $6, featured = $7, published = $8, updated_at = now()
		WHERE id = $1
		RETURNING `+postColumns,
		p.ID, p.Title, p.Body, p.Excerpt, p.IsPremium, p.SubscriptionRequired.String(), p.Featured, p.Published)
	return scanPost(row)
}

// DeletePost removes a post.
func (r *Repository) DeletePost(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

var _ RepositoryPort = (*Repository)(nil)
