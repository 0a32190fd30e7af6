package shared

// PermAll is the sentinel granting every permission. Roles holding it
// (admin, chloe) pass every permission check and every content gate.
const PermAll = "all"

// Core platform permissions.
const (
	PermUsersView = "users.view"
	PermUsersEdit = "users.edit"

	PermRolesView = "roles.view"
	PermRolesEdit = "roles.edit"

	PermSettingsView = "settings.view"
	PermSettingsEdit = "settings.edit"

	PermPostsEdit = "posts.edit"

	PermCommentsModerate = "comments.moderate"

	PermJobsView = "jobs.view"
)

// CoreScopes lists all permissions related to the core platform.
func CoreScopes() []string {
	return []string{
		PermUsersView,
		PermUsersEdit,
		PermRolesView,
		PermRolesEdit,
		PermSettingsView,
		PermSettingsEdit,
		PermPostsEdit,
		PermCommentsModerate,
		PermJobsView,
	}
}
