package users

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/chloe-belle/chloe-belle/internal/roles"
	"github.com/chloe-belle/chloe-belle/internal/subscription"
)

// Service handles account management business logic.
type Service struct {
	repo   RepositoryPort
	roles  *roles.Service
	logger *slog.Logger
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, roleService *roles.Service, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, roles: roleService, logger: logger}
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx)
}

// GetUser fetches a single account.
func (s *Service) GetUser(ctx context.Context, id int64) (User, error) {
	return s.repo.GetUser(ctx, id)
}

// CreateInput carries the fields for a new account.
type CreateInput struct {
	Email    string
	Username string
	Password string
	Role     string
}

// CreateUser registers a new active account. An empty role defaults to the
// base user role; any explicit role must exist in the registry.
func (s *Service) CreateUser(ctx context.Context, in CreateInput) (User, error) {
	role := strings.TrimSpace(strings.ToLower(in.Role))
	if role == "" {
		role = roles.RoleUser
	}
	if _, err := s.roles.GetRoleByName(ctx, role); err != nil {
		return User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	return s.repo.CreateUser(ctx, User{
		Email:    strings.TrimSpace(strings.ToLower(in.Email)),
		Username: strings.TrimSpace(in.Username),
		Role:     role,
		IsActive: true,
	}, string(hash))
}

// SetActive toggles an account's active flag.
func (s *Service) SetActive(ctx context.Context, id int64, active bool) error {
	return s.repo.SetActive(ctx, id, active)
}

// SetSubscription stores the user's new tier and expiry, then realigns the
// role: tier-managed roles follow the subscription up and down, while
// hand-assigned roles (moderator, admin, custom) are left alone.
func (s *Service) SetSubscription(ctx context.Context, id int64, tier subscription.Tier, expires *time.Time) error {
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.SetSubscription(ctx, id, tier, expires); err != nil {
		return err
	}

	if !roles.TierManaged(user.Role) {
		return nil
	}
	assigned, err := s.roles.AutoAssign(ctx, id, tier)
	if err != nil {
		return err
	}
	if assigned == "" && user.Role != roles.RoleUser {
		// No role auto-assigns for this tier (cancellation, or an admin
		// removed the pairing): fall back to the base role.
		if err := s.roles.AssignRole(ctx, id, roles.RoleUser); err != nil {
			return err
		}
		assigned = roles.RoleUser
	}
	if assigned != "" && assigned != user.Role {
		s.logger.Info("subscription role change",
			slog.Int64("user_id", id),
			slog.String("from", user.Role),
			slog.String("to", assigned))
	}
	return nil
}

// SweepExpired normalizes stored subscriptions whose expiry has passed,
// clearing the tier and realigning tier-managed roles. Access decisions
// never depend on this running; it keeps the rows honest for reporting.
func (s *Service) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	ids, err := s.repo.ExpiredSubscriptionIDs(ctx, now)
	if err != nil {
		return 0, err
	}
	swept := 0
	for _, id := range ids {
		if err := s.SetSubscription(ctx, id, subscription.TierNone, nil); err != nil {
			s.logger.Error("subscription sweep", slog.Int64("user_id", id), slog.Any("error", err))
			continue
		}
		swept++
	}
	return swept, nil
}
