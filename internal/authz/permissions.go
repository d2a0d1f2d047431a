// Package authz resolves role-derived permissions and enforces required
// permission sets. Transport adapters (HTTP middleware, gRPC interceptor)
// call into Guard so both bindings make identical decisions.
package authz

import (
	"sort"

	"github.com/dtroode/appauth-server/internal/model"
)

// PermissionSet is the flattened set of permission names a user holds.
type PermissionSet map[string]struct{}

// ResolvePermissions flattens the permission names of roles into one set.
func ResolvePermissions(roles []model.Role) PermissionSet {
	set := make(PermissionSet)
	for _, role := range roles {
		for _, p := range role.Permissions {
			set[p.Name] = struct{}{}
		}
	}
	return set
}

// Has reports whether name is in the set.
func (s PermissionSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Names returns the set members in sorted order.
func (s PermissionSet) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Authorize reports whether granted contains every required permission.
// An empty requirement always passes.
func Authorize(required []string, granted PermissionSet) bool {
	return len(Missing(required, granted)) == 0
}

// Missing returns the required permissions absent from granted.
func Missing(required []string, granted PermissionSet) []string {
	var missing []string
	for _, name := range required {
		if !granted.Has(name) {
			missing = append(missing, name)
		}
	}
	return missing
}
