package access

import (
	"fmt"
	"strings"
)

// Outcome is the terminal state of the per-request decision machine.
type Outcome int

const (
	// OutcomeAllow lets the request through to the upstream.
	OutcomeAllow Outcome = iota
	// OutcomeAuthRequired means no acceptable credential was presented;
	// the caller must (re-)authenticate.
	OutcomeAuthRequired
	// OutcomeForbidden means the caller is authenticated but fails a
	// policy requirement.
	OutcomeForbidden
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAllow:
		return "allow"
	case OutcomeAuthRequired:
		return "auth_required"
	case OutcomeForbidden:
		return "forbidden"
	default:
		return "forbidden"
	}
}

// Stable reason codes for audit events and client errors.
const (
	ReasonAuthenticationRequired = "authentication_required"
	ReasonInsufficientRole       = "insufficient_role"
	ReasonInsufficientTier       = "insufficient_tier"
	ReasonMissingPermission      = "missing_permission"
	ReasonPlatformScopeMismatch  = "platform_scope_mismatch"
)

// Decision is the result of evaluating one caller against one policy entry.
type Decision struct {
	Outcome Outcome
	// Code is the stable machine-readable reason.
	Code string
	// Message names the unmet requirement for operators without exposing
	// policy internals beyond it.
	Message string
}

func allow() Decision {
	return Decision{Outcome: OutcomeAllow}
}

// Decide runs the five policy checks in fixed order: authentication, role
// rank, tiers, permissions, platform scope. The first failing check is the
// decision; later checks are never evaluated.
func Decide(acc *Access, entry *PolicyEntry) Decision {
	if entry == nil {
		return allow()
	}
	if acc == nil || acc.Claims == nil {
		return Decision{
			Outcome: OutcomeAuthRequired,
			Code:    ReasonAuthenticationRequired,
			Message: "Authentication required",
		}
	}
	if !acc.Role.AtLeast(entry.RequiredRole()) {
		return Decision{
			Outcome: OutcomeForbidden,
			Code:    ReasonInsufficientRole,
			Message: fmt.Sprintf("Requires %s role or higher", entry.RequiredRole()),
		}
	}
	if !acc.HasAnyTier(entry.Tiers) {
		return Decision{
			Outcome: OutcomeForbidden,
			Code:    ReasonInsufficientTier,
			Message: "Requires a qualifying tier",
		}
	}
	for _, required := range entry.Permissions {
		required = strings.TrimSpace(required)
		if required == "" {
			continue
		}
		if !acc.HasPermission(required) {
			return Decision{
				Outcome: OutcomeForbidden,
				Code:    ReasonMissingPermission,
				Message: fmt.Sprintf("Missing required permission %q", required),
			}
		}
	}
	if entry.Platform != "" && !acc.PlatformAllowed(entry.Platform) {
		return Decision{
			Outcome: OutcomeForbidden,
			Code:    ReasonPlatformScopeMismatch,
			Message: "Credential is not valid for this platform",
		}
	}
	return allow()
}
