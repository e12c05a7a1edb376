// Package gateway is the HTTP surface of the access gate: it extracts a
// bearer credential, validates it, resolves the caller's access, applies the
// route policy and shapes the response before the shared backend sees the
// request.
package gateway

import (
	"context"
	"net/http"

	"github.com/fanforge/accessgate/core/access"
	"github.com/fanforge/accessgate/core/token"
)

// AuthContext captures request identity for downstream handlers and audit.
// One value per request; never cached or shared across requests.
type AuthContext struct {
	Claims *token.Claims
	Access *access.Access
	// DecisionID ties the request to its audit event.
	DecisionID string
}

// Authenticated reports whether a validated credential backs this context.
func (a *AuthContext) Authenticated() bool {
	return a != nil && a.Claims != nil
}

// HasRole reports whether the caller meets the required role rank.
func (a *AuthContext) HasRole(required access.Role) bool {
	return a.Authenticated() && a.Access != nil && a.Access.Role.AtLeast(required)
}

// HasPermission reports whether the caller's effective set contains p.
func (a *AuthContext) HasPermission(p string) bool {
	return a.Authenticated() && a.Access != nil && a.Access.HasPermission(p)
}

// PlatformAllowed reports whether the caller's scope covers the platform.
func (a *AuthContext) PlatformAllowed(platform string) bool {
	return a.Authenticated() && a.Access != nil && a.Access.PlatformAllowed(platform)
}

type authContextKey struct{}

func withAuthContext(ctx context.Context, auth *AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey{}, auth)
}

// AuthFromContext returns the request's AuthContext, or nil.
func AuthFromContext(ctx context.Context) *AuthContext {
	if ctx == nil {
		return nil
	}
	if raw := ctx.Value(authContextKey{}); raw != nil {
		if auth, ok := raw.(*AuthContext); ok {
			return auth
		}
	}
	return nil
}

// AuthFromRequest returns the request's AuthContext, or nil.
func AuthFromRequest(r *http.Request) *AuthContext {
	if r == nil {
		return nil
	}
	return AuthFromContext(r.Context())
}
