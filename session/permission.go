package session

import "slices"

// HasPermission reports whether the session grants capability. Superusers
// are granted everything regardless of their permission list, and the
// wildcard permission grants everything. Without an identity nothing is
// granted.
func HasPermission(s Snapshot, capability string) bool {
	if s.Identity == nil {
		return false
	}
	if s.Identity.IsSuperuser {
		return true
	}
	return slices.Contains(s.Permissions, capability) || slices.Contains(s.Permissions, WildcardPermission)
}

// derivePermissions computes the permission set stored after a login.
func derivePermissions(res *LoginResult) []string {
	if res.User != nil && res.User.IsSuperuser {
		return []string{WildcardPermission}
	}
	if res.Permissions == nil {
		return []string{}
	}
	return slices.Clone(res.Permissions)
}
