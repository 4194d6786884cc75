package roles

import "github.com/advisorhub/backoffice/internal/models"

// Base permission sets per role. On upgrade approval the account's
// permission set is replaced wholesale with the client base set; individually
// granted permissions do not survive the role change.
var basePermissions = map[models.Role][]string{
	models.RoleAdmin: {
		"accounts:read", "accounts:write",
		"backups:create", "backups:restore",
		"upgrade-requests:review",
		"investments:read", "investments:write",
	},
	models.RoleEmployee: {
		"clients:read", "clients:write",
		"investments:read", "investments:write",
		"messages:read", "messages:write",
	},
	models.RoleClient: {
		"portfolio:read",
		"investments:read",
		"messages:read", "messages:write",
	},
	models.RoleGuest: {
		"profile:read",
		"upgrade-requests:submit",
	},
}

// BasePermissions returns a copy of the base permission set for role.
// Unknown roles get an empty set.
func BasePermissions(role models.Role) []string {
	perms := basePermissions[role]
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}
