// Package guard intercepts business operations at the call boundary. It is
// the defense-in-depth layer beneath the HTTP gatekeeper: internal calls,
// scheduled jobs, and message handlers reach operations without passing
// through the router, so privileged operations declare their requirement
// and the guard evaluates it strictly before the operation body runs.
//
// Requirements are a fixed, enumerable predicate set expressed as a tagged
// variant and evaluated by a single dispatcher through the same
// authz.Engine the gatekeeper uses, so the two layers cannot disagree on
// the same predicate for the same principal.
package guard

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tillstack/tillstack/pkg/audit"
	"github.com/tillstack/tillstack/pkg/authz"
	"github.com/tillstack/tillstack/pkg/ownership"
)

// Kind discriminates the requirement variants.
type Kind int

const (
	KindPermission Kind = iota
	KindAnyPermission
	KindAllPermissions
	KindRole
	KindAnyRole
	KindAdminOnly
	KindAdminOrManager
	KindMinimumLevel
	KindOutletAccess
	KindDepartment
)

func (k Kind) String() string {
	switch k {
	case KindPermission:
		return "permission"
	case KindAnyPermission:
		return "any_permission"
	case KindAllPermissions:
		return "all_permissions"
	case KindRole:
		return "role"
	case KindAnyRole:
		return "any_role"
	case KindAdminOnly:
		return "admin_only"
	case KindAdminOrManager:
		return "admin_or_manager"
	case KindMinimumLevel:
		return "minimum_level"
	case KindOutletAccess:
		return "outlet_access"
	case KindDepartment:
		return "department"
	default:
		return "unknown"
	}
}

// Requirement is the declared predicate an operation must satisfy. Exactly
// the fields relevant to its Kind are set.
type Requirement struct {
	Kind        Kind
	Permissions []authz.Permission
	Roles       []authz.Role
	Level       int
	OutletID    int64
	Department  string
}

// RequirePermission demands a single permission.
func RequirePermission(p authz.Permission) Requirement {
	return Requirement{Kind: KindPermission, Permissions: []authz.Permission{p}}
}

// RequireAnyPermission demands at least one of the permissions.
func RequireAnyPermission(perms ...authz.Permission) Requirement {
	return Requirement{Kind: KindAnyPermission, Permissions: perms}
}

// RequireAllPermissions demands every permission.
func RequireAllPermissions(perms ...authz.Permission) Requirement {
	return Requirement{Kind: KindAllPermissions, Permissions: perms}
}

// RequireRole demands a single role.
func RequireRole(r authz.Role) Requirement {
	return Requirement{Kind: KindRole, Roles: []authz.Role{r}}
}

// RequireAnyRole demands at least one of the roles.
func RequireAnyRole(roles ...authz.Role) Requirement {
	return Requirement{Kind: KindAnyRole, Roles: roles}
}

// RequireAdmin demands the ADMIN role.
func RequireAdmin() Requirement {
	return Requirement{Kind: KindAdminOnly}
}

// RequireAdminOrManager demands the ADMIN or MANAGER role.
func RequireAdminOrManager() Requirement {
	return Requirement{Kind: KindAdminOrManager}
}

// RequireMinimumLevel demands a hierarchy level at or below level.
func RequireMinimumLevel(level int) Requirement {
	return Requirement{Kind: KindMinimumLevel, Level: level}
}

// RequireOutletAccess demands roster membership for the outlet.
func RequireOutletAccess(outletID int64) Requirement {
	return Requirement{Kind: KindOutletAccess, OutletID: outletID}
}

// RequireDepartment demands department membership (admin and manager
// override).
func RequireDepartment(department string) Requirement {
	return Requirement{Kind: KindDepartment, Department: department}
}

func (r Requirement) describe() string {
	switch r.Kind {
	case KindPermission, KindAllPermissions:
		return fmt.Sprintf("%s %s", r.Kind, joinPermissions(r.Permissions))
	case KindAnyPermission:
		return fmt.Sprintf("any of %s", joinPermissions(r.Permissions))
	case KindRole:
		return fmt.Sprintf("role %s", joinRoles(r.Roles))
	case KindAnyRole:
		return fmt.Sprintf("any role of %s", joinRoles(r.Roles))
	case KindAdminOnly:
		return "role ADMIN"
	case KindAdminOrManager:
		return "role ADMIN or MANAGER"
	case KindMinimumLevel:
		return fmt.Sprintf("minimum role level %d", r.Level)
	case KindOutletAccess:
		return fmt.Sprintf("access to outlet %d", r.OutletID)
	case KindDepartment:
		return fmt.Sprintf("department %s", r.Department)
	default:
		return "unknown requirement"
	}
}

// Sentinel errors distinguishing the denial taxonomy.
var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("access denied")
)

// AccessError is the denial signaled to the caller when a guarded
// operation is refused. It carries the unsatisfied requirement as context;
// the operation body has not run.
type AccessError struct {
	Requirement Requirement
	Reason      string
	cause       error
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("%s: requires %s (%s)", e.cause.Error(), e.Requirement.describe(), e.Reason)
}

// Unwrap exposes ErrUnauthenticated or ErrForbidden for errors.Is.
func (e *AccessError) Unwrap() error { return e.cause }

// Guard evaluates declared requirements before guarded operations run.
type Guard struct {
	engine   *authz.Engine
	owners   *ownership.Resolver
	auditLog audit.Logger
}

// New creates a guard. owners may be nil when no outlet-access
// requirements are used; auditLog may be nil to disable the trail.
func New(engine *authz.Engine, owners *ownership.Resolver, auditLog audit.Logger) *Guard {
	if auditLog == nil {
		auditLog = audit.NopLogger{}
	}
	return &Guard{engine: engine, owners: owners, auditLog: auditLog}
}

// Check evaluates the requirement for the principal. It returns nil when
// the operation may proceed, or an *AccessError wrapping
// ErrUnauthenticated / ErrForbidden. It never partially allows.
func (g *Guard) Check(ctx context.Context, p *authz.Principal, req Requirement) error {
	if p == nil {
		err := &AccessError{Requirement: req, Reason: "no principal", cause: ErrUnauthenticated}
		g.recordDenial(ctx, nil, req, "no principal")
		return err
	}

	decision := g.evaluate(ctx, p, req)
	if decision.Granted {
		return nil
	}

	g.recordDenial(ctx, p, req, decision.Reason)
	return &AccessError{Requirement: req, Reason: decision.Reason, cause: ErrForbidden}
}

// Protect wraps an operation with a requirement check. The returned
// function evaluates the guard first and only invokes op on allow.
func (g *Guard) Protect(req Requirement, op func(ctx context.Context, p *authz.Principal) error) func(ctx context.Context, p *authz.Principal) error {
	return func(ctx context.Context, p *authz.Principal) error {
		if err := g.Check(ctx, p, req); err != nil {
			return err
		}
		return op(ctx, p)
	}
}

// evaluate dispatches on the requirement kind. Unknown kinds deny.
func (g *Guard) evaluate(ctx context.Context, p *authz.Principal, req Requirement) authz.Decision {
	switch req.Kind {
	case KindPermission:
		if len(req.Permissions) != 1 {
			return authz.Deny("malformed permission requirement")
		}
		return g.engine.HasPermission(p, req.Permissions[0])
	case KindAnyPermission:
		return g.engine.HasAnyPermission(p, req.Permissions...)
	case KindAllPermissions:
		return g.engine.HasAllPermissions(p, req.Permissions...)
	case KindRole:
		if len(req.Roles) != 1 {
			return authz.Deny("malformed role requirement")
		}
		return g.engine.HasRole(p, req.Roles[0])
	case KindAnyRole:
		return g.engine.HasAnyRole(p, req.Roles...)
	case KindAdminOnly:
		return g.engine.HasRole(p, authz.RoleAdmin)
	case KindAdminOrManager:
		return g.engine.HasAnyRole(p, authz.RoleAdmin, authz.RoleManager)
	case KindMinimumLevel:
		return g.engine.HasMinimumRoleLevel(p, req.Level)
	case KindOutletAccess:
		if g.owners == nil {
			return authz.Deny("no ownership resolver configured")
		}
		return g.owners.CanAccessOutlet(ctx, p, req.OutletID)
	case KindDepartment:
		return g.engine.CanAccessDepartment(p, req.Department)
	default:
		return authz.Deny("unknown requirement kind")
	}
}

func (g *Guard) recordDenial(ctx context.Context, p *authz.Principal, req Requirement, reason string) {
	eventType := audit.EventTypeAccessDenied
	if p == nil {
		eventType = audit.EventTypeAuthMissing
	}
	event := audit.Denied(ctx, eventType, fmt.Sprintf("guard denied: requires %s (%s)", req.describe(), reason))
	if p != nil {
		event.PrincipalID = &p.ID
		event.Username = p.Username
		event.Roles = roleNames(p.Roles)
	}
	if len(req.Permissions) > 0 {
		event.RequiredPermission = joinPermissions(req.Permissions)
	}
	if len(req.Roles) > 0 {
		event.RequiredRole = joinRoles(req.Roles)
	}
	_ = g.auditLog.Log(ctx, event)
}

func joinPermissions(perms []authz.Permission) string {
	names := make([]string, len(perms))
	for i, p := range perms {
		names[i] = string(p)
	}
	return strings.Join(names, ",")
}

func joinRoles(roles []authz.Role) string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return strings.Join(names, ",")
}

func roleNames(roles []authz.Role) []string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return names
}
