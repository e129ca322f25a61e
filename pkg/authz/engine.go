package authz

import (
	"fmt"
	"math"
)

// Engine evaluates authorization predicates against the registry. Every
// predicate is a pure function of (principal, registry): no I/O, no shared
// mutable state, safe for unbounded concurrency. Absence of a principal or
// of roles is an ordinary "no", never an error.
type Engine struct {
	registry *Registry
}

// NewEngine creates an engine bound to an immutable registry.
func NewEngine(registry *Registry) *Engine {
	return &Engine{registry: registry}
}

// Registry exposes the bound registry for collaborators that resolve
// endpoint permissions before evaluating them.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// HasPermission grants iff any of the principal's roles maps to the
// permission.
func (e *Engine) HasPermission(p *Principal, perm Permission) Decision {
	if p == nil {
		return Deny("no principal")
	}
	for _, role := range p.Roles {
		if e.registry.PermissionsOf(role).Has(perm) {
			return Allow(fmt.Sprintf("role %s grants %s", role, perm))
		}
	}
	return Deny(fmt.Sprintf("no role grants %s", perm))
}

// HasAnyPermission grants iff at least one of the permissions is held.
// An empty list denies.
func (e *Engine) HasAnyPermission(p *Principal, perms ...Permission) Decision {
	for _, perm := range perms {
		if d := e.HasPermission(p, perm); d.Granted {
			return d
		}
	}
	return Deny("none of the required permissions are held")
}

// HasAllPermissions grants iff every permission is held, short-circuiting
// on the first miss. An empty list is vacuously granted.
func (e *Engine) HasAllPermissions(p *Principal, perms ...Permission) Decision {
	for _, perm := range perms {
		if d := e.HasPermission(p, perm); !d.Granted {
			return Deny(fmt.Sprintf("missing %s", perm))
		}
	}
	return Allow("all required permissions held")
}

// HasRole grants on direct role membership.
func (e *Engine) HasRole(p *Principal, role Role) Decision {
	if p.HasRole(role) {
		return Allow(fmt.Sprintf("holds role %s", role))
	}
	return Deny(fmt.Sprintf("missing role %s", role))
}

// HasAnyRole grants iff the principal holds at least one of the roles.
func (e *Engine) HasAnyRole(p *Principal, roles ...Role) Decision {
	for _, role := range roles {
		if p.HasRole(role) {
			return Allow(fmt.Sprintf("holds role %s", role))
		}
	}
	return Deny("none of the required roles are held")
}

// HasMinimumRoleLevel grants iff the principal's best (lowest-numbered)
// role level is at or below the required level. Roles without a level count
// as +Inf, so a principal whose roles carry no level always fails: the
// fail-closed reading of an unconfigured hierarchy.
func (e *Engine) HasMinimumRoleLevel(p *Principal, level int) Decision {
	if p == nil {
		return Deny("no principal")
	}
	best := math.MaxInt
	for _, role := range p.Roles {
		if l, ok := e.registry.LevelOf(role); ok && l < best {
			best = l
		}
	}
	if best <= level {
		return Allow(fmt.Sprintf("role level %d meets minimum %d", best, level))
	}
	return Deny(fmt.Sprintf("no role meets minimum level %d", level))
}

// CanAccessResource is sugar for HasPermission on resource + action.
func (e *Engine) CanAccessResource(p *Principal, resource Resource, action Action) Decision {
	return e.HasPermission(p, NewPermission(resource, action))
}

// IsOwnerOrAdmin grants admins unconditionally, otherwise requires the
// principal's identity to equal the resource owner's.
func (e *Engine) IsOwnerOrAdmin(p *Principal, ownerID int64) Decision {
	if p == nil {
		return Deny("no principal")
	}
	if p.HasRole(RoleAdmin) {
		return Allow("admin override")
	}
	if p.ID == ownerID {
		return Allow("principal owns the resource")
	}
	return Deny("not the owner")
}

// CanAccessDepartment grants admins and managers for any department,
// otherwise requires an exact department match.
func (e *Engine) CanAccessDepartment(p *Principal, department string) Decision {
	if p == nil {
		return Deny("no principal")
	}
	if p.HasRole(RoleAdmin) || p.HasRole(RoleManager) {
		return Allow("admin or manager override")
	}
	if p.Department != "" && p.Department == department {
		return Allow("department match")
	}
	return Deny(fmt.Sprintf("not a member of department %s", department))
}
