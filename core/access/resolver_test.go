package access

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fanforge/accessgate/core/token"
)

func testClaims(mutate func(*token.Claims)) *token.Claims {
	claims := &token.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u-42"},
		Email:            "creator@fanforge.test",
		Role:             "creator",
		Platform:         PlatformFanforge,
	}
	if mutate != nil {
		mutate(claims)
	}
	return claims
}

func TestResolveNilClaims(t *testing.T) {
	if acc := NewResolver(nil).Resolve(nil); acc != nil {
		t.Fatalf("nil claims must resolve to nil access")
	}
}

func TestResolveUnknownRoleRecordsAnomaly(t *testing.T) {
	var gotKind, gotDetail string
	resolver := NewResolver(func(kind, detail string) {
		gotKind, gotDetail = kind, detail
	})
	acc := resolver.Resolve(testClaims(func(c *token.Claims) { c.Role = "galactic_emperor" }))
	if acc.Role != RoleGuest || acc.RoleKnown {
		t.Fatalf("unknown role must demote to guest, got %s known=%v", acc.Role, acc.RoleKnown)
	}
	if gotKind != "unknown_role" || gotDetail != "galactic_emperor" {
		t.Fatalf("anomaly not recorded: %q %q", gotKind, gotDetail)
	}
}

func TestEffectivePermissionsUnion(t *testing.T) {
	resolver := NewResolver(nil)
	acc := resolver.Resolve(testClaims(func(c *token.Claims) {
		c.Permissions = []string{"beta.features"}
	}))
	// Role floor for creator on fanforge.
	for _, p := range []string{"creator.dashboard", "content.upload", "creator.livestream", "content.view"} {
		if !acc.HasPermission(p) {
			t.Fatalf("creator floor missing %q", p)
		}
	}
	// Explicit grant extends the floor.
	if !acc.HasPermission("beta.features") {
		t.Fatalf("explicit permission not honoured")
	}
	// Other-platform grants do not leak in.
	if acc.HasPermission("vault.manage") {
		t.Fatalf("privvault grant must not apply on fanforge scope")
	}
	if acc.HasPermission("moderation.review") {
		t.Fatalf("admin grant must not apply to creator")
	}
}

func TestSuperAdminImplicitPermissions(t *testing.T) {
	resolver := NewResolver(nil)
	acc := resolver.Resolve(testClaims(func(c *token.Claims) {
		c.Role = "super_admin"
		c.Permissions = nil
	}))
	for _, p := range []string{"creator.dashboard", "moderation.review", "anything.at.all"} {
		if !acc.HasPermission(p) {
			t.Fatalf("super_admin must hold %q implicitly", p)
		}
	}
}

func TestPlatformPredicate(t *testing.T) {
	resolver := NewResolver(nil)

	scoped := resolver.Resolve(testClaims(nil))
	if !scoped.PlatformAllowed(PlatformFanforge) {
		t.Fatalf("matching scope must be allowed")
	}
	if scoped.PlatformAllowed(PlatformPrivvault) {
		t.Fatalf("mismatched scope must be denied")
	}

	wildcard := resolver.Resolve(testClaims(func(c *token.Claims) { c.Platform = "all" }))
	for _, p := range KnownPlatforms {
		if !wildcard.PlatformAllowed(p) {
			t.Fatalf("wildcard scope must cover %s", p)
		}
	}

	god := resolver.Resolve(testClaims(func(c *token.Claims) {
		c.Role = "god_mode"
		c.Platform = PlatformStagepass
	}))
	for _, p := range KnownPlatforms {
		if !god.PlatformAllowed(p) {
			t.Fatalf("god_mode must bypass scope for %s", p)
		}
	}
}

func TestMissingScopeDefaultsToAll(t *testing.T) {
	resolver := NewResolver(nil)
	acc := resolver.Resolve(testClaims(func(c *token.Claims) { c.Platform = "" }))
	if !acc.PlatformAllowed(PlatformPrivvault) {
		t.Fatalf("legacy tokens without scope behave as all-platform")
	}
}

func TestHasAnyTier(t *testing.T) {
	resolver := NewResolver(nil)
	acc := resolver.Resolve(testClaims(func(c *token.Claims) {
		c.Tiers = []string{"creator_standard"}
	}))
	if !acc.HasAnyTier(nil) {
		t.Fatalf("absent tier restriction means allow")
	}
	if !acc.HasAnyTier([]string{"creator_premium", "creator_standard"}) {
		t.Fatalf("intersection must match")
	}
	if acc.HasAnyTier([]string{"creator_premium"}) {
		t.Fatalf("no intersection must not match")
	}

	noTiers := resolver.Resolve(testClaims(nil))
	if noTiers.HasAnyTier([]string{"creator_standard"}) {
		t.Fatalf("caller without tiers cannot satisfy a tier restriction")
	}
}

func TestResolveDeterministic(t *testing.T) {
	resolver := NewResolver(nil)
	claims := testClaims(func(c *token.Claims) {
		c.Permissions = []string{"beta.features"}
		c.Tiers = []string{"creator_standard"}
	})
	first := resolver.Resolve(claims)
	second := resolver.Resolve(claims)
	if first.Role != second.Role || first.RoleKnown != second.RoleKnown {
		t.Fatalf("resolution must be deterministic")
	}
	for _, p := range []string{"beta.features", "creator.dashboard"} {
		if first.HasPermission(p) != second.HasPermission(p) {
			t.Fatalf("permission answers must be deterministic for %q", p)
		}
	}
}
