package access

import (
	"strings"

	"github.com/fanforge/accessgate/core/token"
)

// AnomalyFunc records a fail-closed irregularity seen during resolution.
type AnomalyFunc func(kind, detail string)

// Resolver maps validated Claims to rank, effective permissions and a
// platform predicate. It holds no per-request state.
type Resolver struct {
	onAnomaly AnomalyFunc
}

// NewResolver builds a Resolver. onAnomaly may be nil.
func NewResolver(onAnomaly AnomalyFunc) *Resolver {
	return &Resolver{onAnomaly: onAnomaly}
}

// Access is the resolved view of one caller for one request.
type Access struct {
	Claims *token.Claims
	Role   Role

	// RoleKnown is false when the claims carried a role string outside the
	// canonical set; the caller was demoted to Guest rank.
	RoleKnown bool

	scope       string
	permissions map[string]struct{}
	allPerms    bool
}

// Resolve produces the Access view for a claims set. Unknown role strings
// resolve to the lowest rank and record an anomaly; they never fail open.
func (r *Resolver) Resolve(claims *token.Claims) *Access {
	if claims == nil {
		return nil
	}
	role, known := ParseRole(claims.Role)
	if !known && r.onAnomaly != nil {
		r.onAnomaly("unknown_role", strings.TrimSpace(claims.Role))
	}

	acc := &Access{
		Claims:    claims,
		Role:      role,
		RoleKnown: known,
		scope:     claims.PlatformScope(),
	}
	if role >= RoleSuperAdmin {
		acc.allPerms = true
		return acc
	}

	perms := make(map[string]struct{})
	for p := range defaultPermissions(role, acc.scope) {
		perms[p] = struct{}{}
	}
	for _, p := range claims.Permissions {
		if p = strings.TrimSpace(p); p != "" {
			perms[p] = struct{}{}
		}
	}
	acc.permissions = perms
	return acc
}

// HasPermission reports whether the effective permission set contains p.
// SuperAdmin and GodMode hold every permission implicitly.
func (a *Access) HasPermission(p string) bool {
	if a == nil {
		return false
	}
	if a.allPerms {
		return true
	}
	_, ok := a.permissions[p]
	return ok
}

// PlatformAllowed reports whether the caller's scope covers the platform.
// A scope of "all" covers everything; GodMode bypasses scope entirely.
func (a *Access) PlatformAllowed(platform string) bool {
	if a == nil {
		return false
	}
	if a.Role == RoleGodMode {
		return true
	}
	return a.scope == token.PlatformAll || a.scope == strings.ToLower(strings.TrimSpace(platform))
}

// HasAnyTier reports whether the caller holds at least one of the allowed
// tiers. An empty allowed list means no tier restriction applies.
func (a *Access) HasAnyTier(allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	if a == nil || a.Claims == nil {
		return false
	}
	for _, want := range allowed {
		for _, have := range a.Claims.Tiers {
			if strings.EqualFold(strings.TrimSpace(want), strings.TrimSpace(have)) {
				return true
			}
		}
	}
	return false
}

// Tiers returns the caller's tier labels.
func (a *Access) Tiers() []string {
	if a == nil || a.Claims == nil {
		return nil
	}
	return a.Claims.Tiers
}
