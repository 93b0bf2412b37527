// Package visibility decides which visuals of a report a viewer role may see.
//
// A Policy maps roles to the names of visuals to suppress. Applying a role
// to a report first makes every visual visible, then hides the role's set,
// then re-renders the report once:
//
//	res, err := policy.Apply(ctx, report, visibility.RoleBedUser)
//
// Applying is idempotent. Unknown roles and names that match no visual are
// not errors; they simply hide nothing.
package visibility

import "strings"

// Role identifies a viewer category.
type Role string

// Roles known to the default policy.
const (
	RoleBedUser     Role = "bed_user"
	RoleMonitorUser Role = "monitor_user"
	RoleBoth        Role = "both"
)

// ParseRole trims s. Any non-empty string is a valid role; ids are
// case-sensitive and must match the policy exactly.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.TrimSpace(s))
	return r, r != ""
}

func (r Role) String() string { return string(r) }
