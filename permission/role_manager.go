package permission

import (
	"errors"
	"sort"
	"sync"
)

// RoleManager maps role names to permission sets. Like the Registry it
// is populated during initialization and frozen before use.
type RoleManager struct {
	registry *Registry

	mu     sync.RWMutex
	roles  map[string][]string
	frozen bool
}

// NewRoleManager creates a RoleManager validating against registry.
func NewRoleManager(registry *Registry) *RoleManager {
	return &RoleManager{
		registry: registry,
		roles:    make(map[string][]string),
	}
}

// RegisterRole binds roleName to the given permissions. Every
// permission must already be registered. Must be called before Freeze.
func (rm *RoleManager) RegisterRole(roleName string, permissionNames []string) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.frozen {
		return errors.New("role manager frozen")
	}
	if roleName == "" {
		return errors.New("role name empty")
	}
	if _, exists := rm.roles[roleName]; exists {
		return errors.New("role already registered: " + roleName)
	}

	perms := make([]string, 0, len(permissionNames))
	seen := make(map[string]struct{}, len(permissionNames))
	for _, perm := range permissionNames {
		if !rm.registry.Has(perm) {
			return errors.New("permission not registered: " + perm)
		}
		if _, dup := seen[perm]; dup {
			continue
		}
		seen[perm] = struct{}{}
		perms = append(perms, perm)
	}
	sort.Strings(perms)

	rm.roles[roleName] = perms
	return nil
}

// Permissions returns a sorted copy of the role's permission set, or
// false for an unknown role.
func (rm *RoleManager) Permissions(roleName string) ([]string, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	perms, ok := rm.roles[roleName]
	if !ok {
		return nil, false
	}

	out := make([]string, len(perms))
	copy(out, perms)
	return out, true
}

// Freeze prevents further role registrations.
func (rm *RoleManager) Freeze() {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.frozen = true
}

// Count returns the number of registered roles.
func (rm *RoleManager) Count() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.roles)
}
