/*

Consolidated role-capability table for privileged ledger operations. Every
privileged entry point checks here instead of carrying its own address list.

*/

package auth

import (
	"strings"
	"sync"
)

// Role names a capability grant.
type Role string

const (
	RoleOwner        Role = "Owner"
	RoleOperator     Role = "Operator"
	RolePriceUpdater Role = "PriceUpdater"
)

// Registry maps addresses to granted roles. Owner implies Operator.
type Registry struct {
	mu     sync.RWMutex
	grants map[string]map[Role]bool
}

// NewRegistry creates an empty role registry.
func NewRegistry() *Registry {
	return &Registry{grants: make(map[string]map[Role]bool)}
}

// Grant gives an address a role. Addresses are case-insensitive.
func (r *Registry) Grant(address string, role Role) {
	addr := normalize(address)
	if addr == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.grants[addr] == nil {
		r.grants[addr] = make(map[Role]bool)
	}
	r.grants[addr][role] = true
}

// IsAuthorized reports whether the address holds the role. The Owner role
// satisfies Operator checks as well.
func (r *Registry) IsAuthorized(address string, role Role) bool {
	addr := normalize(address)
	r.mu.RLock()
	defer r.mu.RUnlock()
	roles, ok := r.grants[addr]
	if !ok {
		return false
	}
	if roles[role] {
		return true
	}
	return role == RoleOperator && roles[RoleOwner]
}

func normalize(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
