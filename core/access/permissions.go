package access

import "github.com/fanforge/accessgate/core/token"

// Platform identifiers for the three branded front ends.
const (
	PlatformFanforge  = "fanforge"
	PlatformPrivvault = "privvault"
	PlatformStagepass = "stagepass"
)

// KnownPlatforms lists the valid owning-platform values for policy entries.
var KnownPlatforms = []string{PlatformFanforge, PlatformPrivvault, PlatformStagepass}

// roleGrants is the per-role permission floor, keyed by platform (with
// token.PlatformAll for grants that apply everywhere). SuperAdmin and
// GodMode are absent on purpose: they hold every permission implicitly and
// never consult this table.
var roleGrants = map[Role]map[string][]string{
	RoleVerifiedUser: {
		token.PlatformAll: {"content.view", "chat.send", "profile.edit"},
		PlatformPrivvault: {"vault.unlock"},
		PlatformStagepass: {"events.attend"},
	},
	RoleCreator: {
		token.PlatformAll: {"creator.dashboard", "content.upload", "chat.broadcast", "earnings.view"},
		PlatformFanforge:  {"creator.livestream"},
		PlatformPrivvault: {"vault.manage"},
		PlatformStagepass: {"events.host"},
	},
	RoleAdminAgent: {
		token.PlatformAll: {"moderation.review", "users.manage", "payouts.review"},
	},
}

// cumulative floor per (role, platform): a role inherits every grant of the
// roles ranked below it.
var defaultGrants map[Role]map[string]map[string]struct{}

func init() {
	defaultGrants = make(map[Role]map[string]map[string]struct{})
	platforms := append([]string{token.PlatformAll}, KnownPlatforms...)
	for role := RoleGuest; role <= RoleAdminAgent; role++ {
		defaultGrants[role] = make(map[string]map[string]struct{})
		for _, platform := range platforms {
			set := make(map[string]struct{})
			for lower := RoleGuest; lower <= role; lower++ {
				grants := roleGrants[lower]
				if grants == nil {
					continue
				}
				for _, p := range grants[token.PlatformAll] {
					set[p] = struct{}{}
				}
				if platform != token.PlatformAll {
					for _, p := range grants[platform] {
						set[p] = struct{}{}
					}
				}
			}
			defaultGrants[role][platform] = set
		}
	}
}

// defaultPermissions returns the floor for a role on a platform. The result
// is shared; callers must not mutate it.
func defaultPermissions(role Role, platform string) map[string]struct{} {
	byPlatform, ok := defaultGrants[role]
	if !ok {
		return nil
	}
	if set, ok := byPlatform[platform]; ok {
		return set
	}
	return byPlatform[token.PlatformAll]
}
