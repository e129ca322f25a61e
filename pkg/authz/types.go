package authz

import (
	"fmt"
	"sort"
	"strings"
)

// Resource represents a protected resource category
type Resource string

const (
	ResourceUsers        Resource = "USERS"
	ResourceOutlets      Resource = "OUTLETS"
	ResourceProducts     Resource = "PRODUCTS"
	ResourceTransactions Resource = "TRANSACTIONS"
	ResourceCustomers    Resource = "CUSTOMERS"
	ResourceExpenses     Resource = "EXPENSES"
	ResourceReports      Resource = "REPORTS"
	ResourceAudit        Resource = "AUDIT"
	ResourceSystem       Resource = "SYSTEM"
)

// Action represents an operation on a resource
type Action string

const (
	ActionRead   Action = "READ"
	ActionWrite  Action = "WRITE"
	ActionDelete Action = "DELETE"
	ActionAdmin  Action = "ADMIN"
)

// KnownResources returns every resource category the registry understands.
func KnownResources() []Resource {
	return []Resource{
		ResourceUsers,
		ResourceOutlets,
		ResourceProducts,
		ResourceTransactions,
		ResourceCustomers,
		ResourceExpenses,
		ResourceReports,
		ResourceAudit,
		ResourceSystem,
	}
}

// KnownActions returns the fixed action vocabulary.
func KnownActions() []Action {
	return []Action{ActionRead, ActionWrite, ActionDelete, ActionAdmin}
}

// Permission is a RESOURCE_ACTION capability string (e.g. "PRODUCTS_READ").
// It is a value, not an entity: two permissions are equal iff their strings
// are equal.
type Permission string

// NewPermission builds a permission from a resource and an action.
func NewPermission(resource Resource, action Action) Permission {
	return Permission(string(resource) + "_" + string(action))
}

// ParsePermission validates a raw permission string against the known
// resource and action vocabulary.
func ParsePermission(raw string) (Permission, error) {
	idx := strings.LastIndex(raw, "_")
	if idx <= 0 || idx == len(raw)-1 {
		return "", fmt.Errorf("malformed permission %q: want RESOURCE_ACTION", raw)
	}
	resource := Resource(raw[:idx])
	action := Action(raw[idx+1:])
	if !resourceKnown(resource) {
		return "", fmt.Errorf("unknown resource %q in permission %q", resource, raw)
	}
	if !actionKnown(action) {
		return "", fmt.Errorf("unknown action %q in permission %q", action, raw)
	}
	return Permission(raw), nil
}

// Resource returns the resource category half of the permission.
func (p Permission) Resource() Resource {
	idx := strings.LastIndex(string(p), "_")
	if idx <= 0 {
		return ""
	}
	return Resource(p[:idx])
}

// Action returns the action half of the permission.
func (p Permission) Action() Action {
	idx := strings.LastIndex(string(p), "_")
	if idx < 0 || idx == len(p)-1 {
		return ""
	}
	return Action(p[idx+1:])
}

func (p Permission) String() string { return string(p) }

func resourceKnown(r Resource) bool {
	for _, known := range KnownResources() {
		if r == known {
			return true
		}
	}
	return false
}

func actionKnown(a Action) bool {
	for _, known := range KnownActions() {
		if a == known {
			return true
		}
	}
	return false
}

// Role is a named bundle of permissions assigned to a principal. Roles are
// opaque identifiers defined at deploy time; they are not hierarchical by
// structure but may carry a numeric hierarchy level (lower = more
// privileged) used only for minimum-level checks.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleManager Role = "MANAGER"
	RoleStaff   Role = "STAFF"
	RoleCashier Role = "CASHIER"
	RoleKitchen Role = "KITCHEN"
)

func (r Role) String() string { return string(r) }

// PermissionSet is an unordered set of permissions.
type PermissionSet map[Permission]struct{}

// NewPermissionSet builds a set from the given permissions.
func NewPermissionSet(perms ...Permission) PermissionSet {
	set := make(PermissionSet, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

// Has reports whether the set contains the permission.
func (s PermissionSet) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// List returns the permissions in sorted order.
func (s PermissionSet) List() []Permission {
	out := make([]Permission, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Principal is the authenticated caller: a numeric identity, the roles it
// holds, and an optional department label. It is constructed once per
// request by the authentication collaborator and read-only afterwards.
type Principal struct {
	ID         int64  `json:"id"`
	Username   string `json:"username,omitempty"`
	Roles      []Role `json:"roles"`
	Department string `json:"department,omitempty"`
}

// HasRole reports direct role membership. A nil principal holds no roles.
func (p *Principal) HasRole(role Role) bool {
	if p == nil {
		return false
	}
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Decision is the sole output type of every authorization check. A check
// never errors for "not authorized"; it produces a deny Decision instead.
type Decision struct {
	Granted bool   `json:"granted"`
	Reason  string `json:"reason"`
}

// Allow builds a granted decision.
func Allow(reason string) Decision {
	return Decision{Granted: true, Reason: reason}
}

// Deny builds a denied decision.
func Deny(reason string) Decision {
	return Decision{Granted: false, Reason: reason}
}
