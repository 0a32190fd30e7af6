package shared

import "net/http"

// RequirePermission guards a route group behind one permission token. The
// all-permissions sentinel always passes. Anonymous actors get 401 so the
// caller can prompt a login instead of a dead 403.
func RequirePermission(perm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := ActorFromContext(r.Context())
			if !actor.Authenticated {
				RespondError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			if !actor.HasPermission(perm) {
				RespondError(w, http.StatusForbidden, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuthenticated guards a route group behind any signed-in identity.
func RequireAuthenticated() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !ActorFromContext(r.Context()).Authenticated {
				RespondError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
