// Package token validates bearer credentials for the three platform front
// ends: structural and expiry checks locally, signature and revocation
// through the identity service.
package token

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// PlatformAll is the wildcard platform scope.
const PlatformAll = "all"

// Claims is the decoded payload of a bearer credential. A Claims value only
// lives for the duration of one request.
type Claims struct {
	jwt.RegisteredClaims

	Email    string `json:"email"`
	Username string `json:"username,omitempty"`
	Role     string `json:"role"`
	// Platform is one of the platform identifiers or "all".
	Platform string `json:"platform,omitempty"`
	// FamilyID groups creator accounts managed together (agency families).
	// Absent means the account is standalone.
	FamilyID string `json:"family_id,omitempty"`
	// Permissions are explicit capability grants beyond the role floor.
	Permissions []string `json:"permissions,omitempty"`
	// Tiers are subscription/creator tier labels, orthogonal to Role.
	// Absent means no tier restriction can match this caller.
	Tiers []string `json:"tiers,omitempty"`
}

// UserID returns the subject identifier.
func (c *Claims) UserID() string {
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c.Subject)
}

// PlatformScope returns the declared platform scope, defaulting to "all"
// for tokens minted before scopes were introduced.
func (c *Claims) PlatformScope() string {
	if c == nil {
		return ""
	}
	scope := strings.ToLower(strings.TrimSpace(c.Platform))
	if scope == "" {
		return PlatformAll
	}
	return scope
}

// ExpiresAtTime returns the expiry instant, zero when absent.
func (c *Claims) ExpiresAtTime() time.Time {
	if c == nil || c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// IssuedAtTime returns the issue instant, zero when absent.
func (c *Claims) IssuedAtTime() time.Time {
	if c == nil || c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time
}
