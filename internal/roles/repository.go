package roles

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chloe-belle/chloe-belle/internal/subscription"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const roleColumns = `id, name, display_name, description, permissions, subscription_level, auto_assign, is_system, created_at, updated_at`

func scanRole(row pgx.Row) (Role, error) {
	var r Role
	var level string
	err := row.Scan(&r.ID, &r.Name, &r.DisplayName, &r.Description, &r.Permissions,
		&level, &r.AutoAssign, &r.IsSystem, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, ErrNotFound
		}
		return Role{}, err
	}
	// Bad tier strings written around the registry degrade to none rather
	// than poisoning every list call.
	r.SubscriptionLevel, _ = subscription.ParseTier(level)
	return r, nil
}

// ListRoles returns all roles, system roles first, then alphabetical.
func (r *Repository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+roleColumns+` FROM roles ORDER BY is_system DESC, name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetRole fetches a role by ID.
func (r *Repository) GetRole(ctx context.Context, id int64) (Role, error) {
	return scanRole(r.pool.QueryRow(ctx,
		`SELECT `+roleColumns+` FROM roles WHERE id = $1`, id))
}

// GetRoleByName fetches a role by its unique name.
func (r *Repository) GetRoleByName(ctx context.Context, name string) (Role, error) {
	return scanRole(r.pool.QueryRow(ctx,
		`SELECT `+roleColumns+` FROM roles WHERE name = $1`, name))
}

// CreateRole inserts a new role.
func (r *Repository) CreateRole(ctx context.Context, role Role) (Role, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO roles (name, display_name, description, permissions, subscription_level, auto_assign, is_system)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+roleColumns,
		role.Name, role.DisplayName, role.Description, role.Permissions,
		role.SubscriptionLevel.String(), role.AutoAssign, role.IsSystem)
	created, err := scanRole(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Role{}, ErrDuplicateName
		}
		return Role{}, err
	}
	return created, nil
}

// UpdateRole rewrites a role's mutable fields.
func (r *Repository) UpdateRole(ctx context.Context, role Role) (Role, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE roles
		 SET display_name = $2, description = $3, permissions = $4,
		     subscription_level = $5, auto_assign = $6, updated_at = now()
		 WHERE id = $1
		 RETURNING `+roleColumns,
		role.ID, role.DisplayName, role.Description, role.Permissions,
		role.SubscriptionLevel.String(), role.AutoAssign)
	return scanRole(row)
}

// DeleteRole removes a role by ID.
func (r *Repository) DeleteRole(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CountHolders returns how many users currently hold the role name.
func (r *Repository) CountHolders(ctx context.Context, name string) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM users WHERE role = $1`, name).Scan(&n)
	return n, err
}

// AssignRole overwrites the user's role unconditionally.
func (r *Repository) AssignRole(ctx context.Context, userID int64, roleName string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET role = $2, updated_at = now() WHERE id = $1`, userID, roleName)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// FindAutoAssign returns the role auto-assigned for the tier. Uniqueness per
// tier is enforced on writes; the deterministic ordering is a belt for
// legacy rows that predate that rule.
func (r *Repository) FindAutoAssign(ctx context.Context, tier subscription.Tier) (Role, error) {
	return scanRole(r.pool.QueryRow(ctx,
		`SELECT `+roleColumns+` FROM roles
		 WHERE auto_assign AND subscription_level = $1
		 ORDER BY id ASC LIMIT 1`, tier.String()))
}

// CountAutoAssign counts auto-assignable roles for a tier, excluding one ID.
func (r *Repository) CountAutoAssign(ctx context.Context, tier subscription.Tier, excludeID int64) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM roles WHERE auto_assign AND subscription_level = $1 AND id <> $2`,
		tier.String(), excludeID).Scan(&n)
	return n, err
}

// SeedRoles inserts the given roles if absent, never overwriting existing rows.
func (r *Repository) SeedRoles(ctx context.Context, seed []Role) error {
	for _, role := range seed {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO roles (name, display_name, description, permissions, subscription_level, auto_assign, is_system)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (name) DO NOTHING`,
			role.Name, role.DisplayName, role.Description, role.Permissions,
			role.SubscriptionLevel.String(), role.AutoAssign, role.IsSystem)
		if err != nil {
			return err
		}
	}
	return nil
}
