// Package access resolves validated claims into ranked roles, effective
// permission sets and platform predicates, and decides whether a matched
// route may proceed. Everything here is pure: no I/O, deterministic for the
// same inputs.
package access

import "strings"

// Role is a totally ordered privilege level. Comparison is always by rank,
// never by string equality.
type Role int

const (
	RoleGuest Role = iota
	RoleVerifiedUser
	RoleCreator
	RoleAdminAgent
	RoleSuperAdmin
	RoleGodMode
)

var roleNames = map[Role]string{
	RoleGuest:        "guest",
	RoleVerifiedUser: "verified_user",
	RoleCreator:      "creator",
	RoleAdminAgent:   "admin_agent",
	RoleSuperAdmin:   "super_admin",
	RoleGodMode:      "god_mode",
}

// Legacy names still minted by older front ends. The three apps diverged on
// role vocabulary; this is the single normalization point.
var roleAliases = map[string]Role{
	"user":             RoleVerifiedUser,
	"member":           RoleVerifiedUser,
	"fan":              RoleVerifiedUser,
	"creator_standard": RoleCreator,
	"model":            RoleCreator,
	"agency":           RoleAdminAgent,
	"admin":            RoleAdminAgent,
	"agent":            RoleAdminAgent,
	"superadmin":       RoleSuperAdmin,
	"root":             RoleSuperAdmin,
	"god":              RoleGodMode,
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "guest"
}

// Rank returns the numeric privilege rank, higher is more privileged.
func (r Role) Rank() int { return int(r) }

// AtLeast reports whether r's rank meets or exceeds required's rank.
func (r Role) AtLeast(required Role) bool { return r >= required }

// ParseRole maps a role string to the canonical set. Unknown strings resolve
// to Guest with ok=false so callers can record the anomaly; they never
// resolve upward.
func ParseRole(raw string) (Role, bool) {
	name := strings.ToLower(strings.TrimSpace(raw))
	for role, canonical := range roleNames {
		if name == canonical {
			return role, true
		}
	}
	if role, ok := roleAliases[name]; ok {
		return role, true
	}
	return RoleGuest, false
}
