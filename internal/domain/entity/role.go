package entity

// Role is an authorization role assigned at creation.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// ParseRoles converts stored role names into Roles, dropping unknown values.
func ParseRoles(names []string) []Role {
	out := make([]Role, 0, len(names))
	for _, n := range names {
		switch Role(n) {
		case RoleUser, RoleAdmin:
			out = append(out, Role(n))
		}
	}
	return out
}

// RoleNames converts roles back to their stored string form.
func RoleNames(roles []Role) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		out = append(out, string(r))
	}
	return out
}
