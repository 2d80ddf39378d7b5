/*
Package perms implements the permission and role engine for live classes.

Roles form an explicit ordinal enumeration with a total order. Effective
capabilities are derived as a pure function of (role, class settings,
per-participant override) and are never stored.
*/
package perms

// Role is a participant's role in a live class, ordered from least to most
// privileged. The ordinal order is load-bearing: comparisons like
// role >= RoleAdmin replace repeated name-list scans.
type Role int

const (
	RoleGuest Role = iota
	RoleStudent
	RoleTeacher
	RoleAdmin
	RoleHOD
	RoleDean
)

var roleNames = map[Role]string{
	RoleGuest:   "guest",
	RoleStudent: "student",
	RoleTeacher: "teacher",
	RoleAdmin:   "admin",
	RoleHOD:     "hod",
	RoleDean:    "dean",
}

var rolesByName = map[string]Role{
	"guest":   RoleGuest,
	"student": RoleStudent,
	"teacher": RoleTeacher,
	"admin":   RoleAdmin,
	"hod":     RoleHOD,
	"dean":    RoleDean,
}

// String returns the wire name of the role.
func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "student"
}

// ParseRole maps a wire name to a Role. Unknown names resolve to RoleStudent,
// the least surprising default for an enrolled participant.
func ParseRole(name string) Role {
	if role, ok := rolesByName[name]; ok {
		return role
	}
	return RoleStudent
}

// IsPrivileged reports whether the role bypasses every class restriction.
// Privileged roles are admin, hod and dean.
func (r Role) IsPrivileged() bool {
	return r >= RoleAdmin
}

// CanModerate reports whether the role may apply moderation actions such as
// per-participant overrides, force-mute or removal.
func (r Role) CanModerate() bool {
	return r == RoleTeacher || r.IsPrivileged()
}
