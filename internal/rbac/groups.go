package rbac

import (
	"strings"

	"github.com/ftwrp/companion/internal/shared"
)

// Legacy group tokens kept for backward compatibility with older
// authorization checks on the game server.
const (
	GroupSupport    = "group.ftw_support"
	GroupSupervise  = "group.ftw_supervise"
	GroupAdmin      = "group.ftw_admin"
	GroupBugs       = "group.ftw_bugs"
	GroupManagement = "group.ftw_management"
)

var groupPrefixes = []struct {
	prefix string
	group  string
}{
	{prefix: "support.", group: GroupSupport},
	{prefix: "supervise.", group: GroupSupervise},
	{prefix: "admin.", group: GroupAdmin},
	{prefix: "bugs.", group: GroupBugs},
}

// applyLegacyGroups adds derived group tokens to perms based on the directly
// granted identifiers. Group tokens are never stored as direct grants; they
// are recomputed on every resolution pass. The checks are independent and the
// result does not depend on evaluation order.
func applyLegacyGroups(perms PermissionSet) {
	derived := make([]string, 0, len(groupPrefixes)+1)
	for _, mapping := range groupPrefixes {
		for p := range perms {
			if strings.HasPrefix(p, mapping.prefix) {
				derived = append(derived, mapping.group)
				break
			}
		}
	}
	if perms.Has(shared.PermManagementAll) {
		derived = append(derived, GroupManagement)
	}
	for _, g := range derived {
		perms[g] = struct{}{}
	}
}
