package authz

import (
	"fmt"
	"sort"
	"strings"
)

// Registry is the process-wide, immutable role/permission table. It is
// constructed once at start-up, validated eagerly, and then only read.
// Lookups never mutate it, so it is safe for concurrent use without locks.
type Registry struct {
	rolePerms map[Role]PermissionSet
	levels    map[Role]int
	endpoints []endpointRule
}

type endpointRule struct {
	method     string
	template   string
	segments   []string
	permission Permission
}

// NewRegistry builds a registry from the compiled-in defaults, overlaid by
// the optional policy file. Any role mapped to a malformed permission, or
// any endpoint rule naming an unknown permission, fails construction: a
// broken table must stop the process, never surface at request time.
func NewRegistry(policy *PolicyFile) (*Registry, error) {
	r := &Registry{
		rolePerms: defaultRolePermissions(),
		levels:    defaultRoleLevels(),
	}
	for _, rule := range defaultEndpointRules() {
		r.endpoints = append(r.endpoints, rule)
	}

	if policy != nil {
		if err := r.applyPolicy(policy); err != nil {
			return nil, err
		}
	}

	if err := r.validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// PermissionsOf returns the permission set granted to a role. It is total:
// unknown roles get the empty set, never an error.
func (r *Registry) PermissionsOf(role Role) PermissionSet {
	perms, ok := r.rolePerms[role]
	if !ok {
		return PermissionSet{}
	}
	return perms
}

// RequiredPermissionFor resolves the permission an endpoint demands.
// Precedence: exact (method, path-template) match, then category inference
// over known resource segments, then the SYSTEM_READ default. The fallback
// is deliberate: an unmapped path must require something, not nothing.
func (r *Registry) RequiredPermissionFor(method, path string) Permission {
	segments := splitPath(path)
	for _, rule := range r.endpoints {
		if rule.method != method {
			continue
		}
		if matchSegments(rule.segments, segments) {
			return rule.permission
		}
	}

	if resource, ok := inferResource(segments); ok {
		return NewPermission(resource, ActionRead)
	}

	return NewPermission(ResourceSystem, ActionRead)
}

// IsValidRole reports whether the role has a registry entry.
func (r *Registry) IsValidRole(role Role) bool {
	_, ok := r.rolePerms[role]
	return ok
}

// IsValidPermission reports whether the permission parses against the known
// resource/action vocabulary.
func (r *Registry) IsValidPermission(p Permission) bool {
	_, err := ParsePermission(string(p))
	return err == nil
}

// RolesWithPermission returns every role granting the permission, sorted.
// Introspection helper for tooling and tests.
func (r *Registry) RolesWithPermission(p Permission) []Role {
	var roles []Role
	for role, perms := range r.rolePerms {
		if perms.Has(p) {
			roles = append(roles, role)
		}
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles
}

// Roles returns every registered role, sorted.
func (r *Registry) Roles() []Role {
	roles := make([]Role, 0, len(r.rolePerms))
	for role := range r.rolePerms {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles
}

// LevelOf returns a role's hierarchy level (lower = more privileged). The
// second return is false when the role carries no level; callers must treat
// that as unbounded (fails every minimum-level check).
func (r *Registry) LevelOf(role Role) (int, bool) {
	level, ok := r.levels[role]
	return level, ok
}

func (r *Registry) applyPolicy(policy *PolicyFile) error {
	for name, spec := range policy.Roles {
		role := Role(name)
		set := make(PermissionSet, len(spec.Permissions))
		for _, raw := range spec.Permissions {
			perm, err := ParsePermission(raw)
			if err != nil {
				return fmt.Errorf("policy role %q: %w", name, err)
			}
			set[perm] = struct{}{}
		}
		r.rolePerms[role] = set
		if spec.Level != nil {
			r.levels[role] = *spec.Level
		}
	}

	for _, ep := range policy.Endpoints {
		perm, err := ParsePermission(ep.Permission)
		if err != nil {
			return fmt.Errorf("policy endpoint %s %s: %w", ep.Method, ep.Path, err)
		}
		r.endpoints = append(r.endpoints, endpointRule{
			method:     strings.ToUpper(ep.Method),
			template:   ep.Path,
			segments:   splitPath(ep.Path),
			permission: perm,
		})
	}
	return nil
}

func (r *Registry) validate() error {
	for role, perms := range r.rolePerms {
		if role == "" {
			return fmt.Errorf("registry contains an empty role name")
		}
		for perm := range perms {
			if _, err := ParsePermission(string(perm)); err != nil {
				return fmt.Errorf("role %s: %w", role, err)
			}
		}
	}
	for role := range r.levels {
		if _, ok := r.rolePerms[role]; !ok {
			return fmt.Errorf("hierarchy level set for unknown role %s", role)
		}
	}
	for _, rule := range r.endpoints {
		if _, err := ParsePermission(string(rule.permission)); err != nil {
			return fmt.Errorf("endpoint %s %s: %w", rule.method, rule.template, err)
		}
	}
	return nil
}

func defaultRolePermissions() map[Role]PermissionSet {
	all := NewPermissionSet()
	for _, resource := range KnownResources() {
		for _, action := range KnownActions() {
			all[NewPermission(resource, action)] = struct{}{}
		}
	}

	return map[Role]PermissionSet{
		RoleAdmin: all,
		RoleManager: NewPermissionSet(
			"USERS_READ",
			"OUTLETS_READ", "OUTLETS_WRITE",
			"PRODUCTS_READ", "PRODUCTS_WRITE", "PRODUCTS_DELETE",
			"TRANSACTIONS_READ", "TRANSACTIONS_WRITE",
			"CUSTOMERS_READ", "CUSTOMERS_WRITE",
			"EXPENSES_READ", "EXPENSES_WRITE", "EXPENSES_DELETE",
			"REPORTS_READ", "REPORTS_WRITE",
			"AUDIT_READ",
			"SYSTEM_READ",
		),
		RoleStaff: NewPermissionSet(
			"OUTLETS_READ",
			"PRODUCTS_READ",
			"TRANSACTIONS_READ", "TRANSACTIONS_WRITE",
			"CUSTOMERS_READ", "CUSTOMERS_WRITE",
		),
		RoleCashier: NewPermissionSet(
			"PRODUCTS_READ",
			"TRANSACTIONS_READ", "TRANSACTIONS_WRITE",
			"CUSTOMERS_READ",
		),
		RoleKitchen: NewPermissionSet(
			"PRODUCTS_READ",
			"TRANSACTIONS_READ",
		),
	}
}

func defaultRoleLevels() map[Role]int {
	return map[Role]int{
		RoleAdmin:   1,
		RoleManager: 2,
		RoleStaff:   3,
		RoleCashier: 4,
		RoleKitchen: 4,
	}
}

func defaultEndpointRules() []endpointRule {
	specs := []struct {
		method     string
		template   string
		permission Permission
	}{
		{"GET", "/api/users", "USERS_READ"},
		{"GET", "/api/users/{id}", "USERS_READ"},
		{"POST", "/api/users", "USERS_WRITE"},
		{"PUT", "/api/users/{id}", "USERS_WRITE"},
		{"DELETE", "/api/users/{id}", "USERS_DELETE"},

		{"GET", "/api/outlets", "OUTLETS_READ"},
		{"GET", "/api/outlets/{id}", "OUTLETS_READ"},
		{"POST", "/api/outlets", "OUTLETS_WRITE"},
		{"PUT", "/api/outlets/{id}", "OUTLETS_WRITE"},
		{"DELETE", "/api/outlets/{id}", "OUTLETS_DELETE"},

		{"GET", "/api/products", "PRODUCTS_READ"},
		{"GET", "/api/products/{id}", "PRODUCTS_READ"},
		{"POST", "/api/products", "PRODUCTS_WRITE"},
		{"PUT", "/api/products/{id}", "PRODUCTS_WRITE"},
		{"DELETE", "/api/products/{id}", "PRODUCTS_DELETE"},

		{"GET", "/api/transactions", "TRANSACTIONS_READ"},
		{"GET", "/api/transactions/{id}", "TRANSACTIONS_READ"},
		{"POST", "/api/transactions", "TRANSACTIONS_WRITE"},
		{"PUT", "/api/transactions/{id}", "TRANSACTIONS_WRITE"},
		{"DELETE", "/api/transactions/{id}", "TRANSACTIONS_DELETE"},

		{"GET", "/api/customers", "CUSTOMERS_READ"},
		{"GET", "/api/customers/{id}", "CUSTOMERS_READ"},
		{"POST", "/api/customers", "CUSTOMERS_WRITE"},
		{"PUT", "/api/customers/{id}", "CUSTOMERS_WRITE"},
		{"DELETE", "/api/customers/{id}", "CUSTOMERS_DELETE"},

		{"GET", "/api/expenses", "EXPENSES_READ"},
		{"GET", "/api/expenses/{id}", "EXPENSES_READ"},
		{"POST", "/api/expenses", "EXPENSES_WRITE"},
		{"PUT", "/api/expenses/{id}", "EXPENSES_WRITE"},
		{"DELETE", "/api/expenses/{id}", "EXPENSES_DELETE"},

		{"GET", "/api/reports/sales", "REPORTS_READ"},
		{"GET", "/api/reports/inventory", "REPORTS_READ"},
		{"POST", "/api/reports/export", "REPORTS_WRITE"},

		{"GET", "/api/audit/logs", "AUDIT_READ"},
	}

	rules := make([]endpointRule, 0, len(specs))
	for _, s := range specs {
		rules = append(rules, endpointRule{
			method:     s.method,
			template:   s.template,
			segments:   splitPath(s.template),
			permission: s.permission,
		})
	}
	return rules
}

var resourceSegments = map[string]Resource{
	"users":        ResourceUsers,
	"outlets":      ResourceOutlets,
	"products":     ResourceProducts,
	"transactions": ResourceTransactions,
	"customers":    ResourceCustomers,
	"expenses":     ResourceExpenses,
	"reports":      ResourceReports,
	"audit":        ResourceAudit,
	"system":       ResourceSystem,
}

// inferResource scans path segments left to right for the first known
// resource segment.
func inferResource(segments []string) (Resource, bool) {
	for _, seg := range segments {
		if resource, ok := resourceSegments[strings.ToLower(seg)]; ok {
			return resource, true
		}
	}
	return "", false
}
