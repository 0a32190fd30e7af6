package comments

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryPort defines data access methods for comments.
type RepositoryPort interface {
	CreateComment(ctx context.Context, c Comment) (Comment, error)
	GetComment(ctx context.Context, id int64) (Comment, error)
	ListByPost(ctx context.Context, postID int64, status Status) ([]Comment, error)
	ListByStatus(ctx context.Context, status Status) ([]Comment, error)
	SetStatus(ctx context.Context, id int64, status Status) error
}

// Repository implements RepositoryPort using PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const commentColumns = `c.id, c.post_id, c.user_id, u.username, c.body, c.status,
	c.created_at, c.updated_at`

const commentFrom = ` FROM comments c JOIN users u ON u.id = c.user_id `

func scanComment(row pgx.Row) (Comment, error) {
	var c Comment
	err := row.Scan(&c.ID, &c.PostID, &c.UserID, &c.AuthorUsername, &c.Body, &c.Status,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Comment{}, ErrNotFound
		}
		return Comment{}, err
	}
	return c, nil
}

// CreateComment inserts a pending comment and returns the stored row.
func (r *Repository) CreateComment(ctx context.Context, c Comment) (Comment, error) {
	row := r.pool.QueryRow(ctx, `
		WITH inserted AS (
			INSERT INTO comments (post_id, user_id, body, status)
			VALUES ($1, $2, $3, $4)
			RETURNING id, post_id, user_id, body, status, created_at, updated_at
		)
		SELECT c.id, c.post_id, c.user_id, u.username, c.body, c.status, c.created_at, c.updated_at
		FROM inserted c JOIN users u ON u.id = c.user_id`,
		c.PostID, c.UserID, c.Body, c.Status)
	return scanComment(row)
}

// GetComment fetches a comment by primary key.
func (r *Repository) GetComment(ctx context.Context, id int64) (Comment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+commentColumns+commentFrom+`WHERE c.id = $1`, id)
	return scanComment(row)
}

// ListByPost returns a post's comments with the given status, oldest first.
func (r *Repository) ListByPost(ctx context.Context, postID int64, status Status) ([]Comment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+commentColumns+commentFrom+`
		WHERE c.post_id = $1 AND c.status = $2
		ORDER BY c.created_at ASC, c.id ASC`, postID, status)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// ListByStatus returns all comments with the given status, oldest first.
func (r *Repository) ListByStatus(ctx context.Context, status Status) ([]Comment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+commentColumns+commentFrom+`
		WHERE c.status = $1
		ORDER BY c.created_at ASC, c.id ASC`, status)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// SetStatus moves a comment to a new moderation state.
func (r *Repository) SetStatus(ctx context.Context, id int64, status Status) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE comments SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func collect(rows pgx.Rows) ([]Comment, error) {
	defer rows.Close()
	var out []Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

var _ RepositoryPort = (*Repository)(nil)
