package roles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/chloe-belle/chloe-belle/internal/subscription"
)

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	ListRoles(ctx context.Context) ([]Role, error)
	GetRole(ctx context.Context, id int64) (Role, error)
	GetRoleByName(ctx context.Context, name string) (Role, error)
	CreateRole(ctx context.Context, role Role) (Role, error)
	UpdateRole(ctx context.Context, role Role) (Role, error)
	DeleteRole(ctx context.Context, id int64) error
	CountHolders(ctx context.Context, name string) (int64, error)
	AssignRole(ctx context.Context, userID int64, roleName string) error
	FindAutoAssign(ctx context.Context, tier subscription.Tier) (Role, error)
	CountAutoAssign(ctx context.Context, tier subscription.Tier, excludeID int64) (int64, error)
	SeedRoles(ctx context.Context, seed []Role) error
}

// Service orchestrates registry operations and enforces the mutation rules.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// EnsureSeedRoles guarantees the seven system roles exist. Idempotent.
func (s *Service) EnsureSeedRoles(ctx context.Context) error {
	return s.repo.SeedRoles(ctx, SystemRoles())
}

// ListRoles returns all roles, system roles first then alphabetical.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// GetRole fetches a role by ID.
func (s *Service) GetRole(ctx context.Context, id int64) (Role, error) {
	return s.repo.GetRole(ctx, id)
}

// GetRoleByName fetches a role by its unique name.
func (s *Service) GetRoleByName(ctx context.Context, name string) (Role, error) {
	return s.repo.GetRoleByName(ctx, name)
}

// RoleInput carries the mutable fields of a role.
type RoleInput struct {
	Name              string
	DisplayName       string
	Description       string
	Permissions       []string
	SubscriptionLevel subscription.Tier
	AutoAssign        bool
}

// CreateRole validates and persists a custom role.
func (s *Service) CreateRole(ctx context.Context, in RoleInput) (Role, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	if !ValidName(in.Name) {
		return Role{}, ErrInvalidName
	}
	if in.DisplayName == "" {
		return Role{}, ErrDisplayNameRequired
	}
	if err := s.checkAutoAssignUnique(ctx, in, 0); err != nil {
		return Role{}, err
	}
	return s.repo.CreateRole(ctx, Role{
		Name:              in.Name,
		DisplayName:       in.DisplayName,
		Description:       strings.TrimSpace(in.Description),
		Permissions:       normalizePermissions(in.Permissions),
		SubscriptionLevel: in.SubscriptionLevel,
		AutoAssign:        in.AutoAssign,
		IsSystem:          false,
	})
}

// UpdateRole applies a patch to a custom role. System roles are immutable.
func (s *Service) UpdateRole(ctx context.Context, id int64, in RoleInput) (Role, error) {
	existing, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return Role{}, err
	}
	if existing.IsSystem {
		return Role{}, ErrSystemRole
	}
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	if in.DisplayName == "" {
		return Role{}, ErrDisplayNameRequired
	}
	if err := s.checkAutoAssignUnique(ctx, in, id); err != nil {
		return Role{}, err
	}
	existing.DisplayName = in.DisplayName
	existing.Description = strings.TrimSpace(in.Description)
	existing.Permissions = normalizePermissions(in.Permissions)
	existing.SubscriptionLevel = in.SubscriptionLevel
	existing.AutoAssign = in.AutoAssign
	return s.repo.UpdateRole(ctx, existing)
}

// DeleteRole removes an unused custom role. Deleting a system role or a role
// with holders fails with an explicit error rather than a silent no-op.
func (s *Service) DeleteRole(ctx context.Context, id int64) error {
	role, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return err
	}
	if role.IsSystem {
		return ErrSystemRole
	}
	holders, err := s.repo.CountHolders(ctx, role.Name)
	if err != nil {
		return err
	}
	if holders > 0 {
		return fmt.Errorf("%w: %d user(s) hold role %q", ErrRoleInUse, holders, role.Name)
	}
	return s.repo.DeleteRole(ctx, id)
}

// AssignRole is the admin-override path: it overwrites the user's role
// without checking the role's subscription requirement.
func (s *Service) AssignRole(ctx context.Context, userID int64, roleName string) error {
	if _, err := s.repo.GetRoleByName(ctx, roleName); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrUnknownRole
		}
		return err
	}
	return s.repo.AssignRole(ctx, userID, roleName)
}

// AutoAssign applies the role paired with a newly reached subscription tier.
// Returns the assigned role name, or "" when no role auto-assigns for the tier.
func (s *Service) AutoAssign(ctx context.Context, userID int64, tier subscription.Tier) (string, error) {
	role, err := s.repo.FindAutoAssign(ctx, tier)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	if err := s.repo.AssignRole(ctx, userID, role.Name); err != nil {
		return "", err
	}
	s.logger.Info("auto-assigned role",
		slog.Int64("user_id", userID),
		slog.String("role", role.Name),
		slog.String("tier", tier.String()))
	return role.Name, nil
}

// PermissionsForRole resolves the permission set for a role name. Unknown
// names resolve to no permissions, not an error: a user row pointing at a
// deleted role degrades to least privilege.
func (s *Service) PermissionsForRole(ctx context.Context, name string) ([]string, error) {
	role, err := s.repo.GetRoleByName(ctx, name)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return role.Permissions, nil
}

func (s *Service) checkAutoAssignUnique(ctx context.Context, in RoleInput, excludeID int64) error {
	if !in.AutoAssign {
		return nil
	}
	n, err := s.repo.CountAutoAssign(ctx, in.SubscriptionLevel, excludeID)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: tier %s", ErrAutoAssignTaken, in.SubscriptionLevel)
	}
	return nil
}

func normalizePermissions(perms []string) []string {
	seen := make(map[string]struct{}, len(perms))
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
