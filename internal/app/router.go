package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/chloe-belle/chloe-belle/internal/auth"
	"github.com/chloe-belle/chloe-belle/internal/comments"
	"github.com/chloe-belle/chloe-belle/internal/observability"
	"github.com/chloe-belle/chloe-belle/internal/posts"
	"github.com/chloe-belle/chloe-belle/internal/roles"
	"github.com/chloe-belle/chloe-belle/internal/settings"
	"github.com/chloe-belle/chloe-belle/internal/shared"
	"github.com/chloe-belle/chloe-belle/internal/users"
	"github.com/chloe-belle/chloe-belle/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	SessionManager  *shared.SessionManager
	CSRFManager     *shared.CSRFManager
	SettingsStore   *settings.Store
	ActorResolver   *auth.ActorResolver
	AuthHandler     *auth.Handler
	SettingsHandler *settings.Handler
	RolesHandler    *roles.Handler
	UsersHandler    *users.Handler
	PostsHandler    *posts.Handler
	CommentsHandler *comments.Handler
	JobHandler      *jobs.Handler
	Metrics         *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)
	r.Use(params.ActorResolver.Middleware())
	r.Use(MaintenanceGuard(params.SettingsStore, params.Logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())

	r.Route("/auth", params.AuthHandler.MountRoutes)

	r.Route("/api", func(r chi.Router) {
		r.Route("/posts", func(r chi.Router) {
			params.PostsHandler.MountPublicRoutes(r)
			r.Route("/{id}/comments", params.CommentsHandler.MountPostRoutes)
		})
	})

	r.Route("/admin", func(r chi.Router) {
		r.Route("/settings", params.SettingsHandler.MountRoutes)
		r.Route("/roles", params.RolesHandler.MountRoutes)
		r.Route("/users", params.UsersHandler.MountRoutes)
		r.Route("/posts", params.PostsHandler.MountAdminRoutes)
		r.Route("/moderation/comments", params.CommentsHandler.MountModerationRoutes)
		r.Route("/jobs", func(r chi.Router) {
			r.Use(shared.RequirePermission(shared.PermJobsView))
			params.JobHandler.MountRoutes(r)
		})
	})

	return r
}
