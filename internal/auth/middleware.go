package auth

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/chloe-belle/chloe-belle/internal/roles"
	"github.com/chloe-belle/chloe-belle/internal/shared"
)

// ActorResolver turns the session's user reference into a shared.Actor and
// stores it on the request context. Every downstream check, permission
// middleware and the access gate alike, reads that snapshot instead of
// hitting the database again.
type ActorResolver struct {
	service *Service
	roles   *roles.Service
	logger  *slog.Logger
}

// NewActorResolver constructs an ActorResolver.
func NewActorResolver(service *Service, roleService *roles.Service, logger *slog.Logger) *ActorResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &ActorResolver{service: service, roles: roleService, logger: logger}
}

// Middleware resolves the current actor. Requests without a usable session
// proceed as anonymous; only backend failures while loading a known user
// abort the request.
func (ar *ActorResolver) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ar.resolve(w, r)
			if !ok {
				return
			}
			ctx := shared.ContextWithActor(r.Context(), actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (ar *ActorResolver) resolve(w http.ResponseWriter, r *http.Request) (shared.Actor, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return shared.Anonymous(), true
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return shared.Anonymous(), true
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		ar.logger.Warn("actor resolve: bad user id in session", slog.String("value", raw))
		return shared.Anonymous(), true
	}

	user, err := ar.service.UserByID(r.Context(), userID)
	if err != nil {
		if err == shared.ErrNotFound {
			// Stale session pointing at a deleted account.
			return shared.Anonymous(), true
		}
		ar.logger.Error("actor resolve: load user", slog.Int64("user_id", userID), slog.Any("error", err))
		shared.RespondError(w, http.StatusInternalServerError, "internal error")
		return shared.Actor{}, false
	}
	if !user.IsActive {
		return shared.Anonymous(), true
	}

	perms, err := ar.roles.PermissionsForRole(r.Context(), user.Role)
	if err != nil {
		ar.logger.Error("actor resolve: role permissions", slog.String("role", user.Role), slog.Any("error", err))
		shared.RespondError(w, http.StatusInternalServerError, "internal error")
		return shared.Actor{}, false
	}

	return shared.Actor{
		ID:            user.ID,
		Authenticated: true,
		Role:          user.Role,
		Permissions:   perms,
		Subscription:  user.Subscription(),
	}, true
}
