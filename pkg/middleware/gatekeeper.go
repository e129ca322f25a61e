package middleware

import (
	"fmt"
	"net/http"

	"github.com/tillstack/tillstack/pkg/audit"
	"github.com/tillstack/tillstack/pkg/auth"
	"github.com/tillstack/tillstack/pkg/authz"
	"github.com/tillstack/tillstack/pkg/httputil"
	"github.com/tillstack/tillstack/pkg/observability"
)

// Outcome labels used for metrics and tests.
const (
	OutcomeAllowed         = "allowed"
	OutcomeUnauthenticated = "unauthenticated"
	OutcomeForbidden       = "forbidden"
)

// Gatekeeper is the request-boundary interception point. Each request
// terminates in exactly one of three states: allowed, denied
// unauthenticated (401), or denied forbidden (403). Denials short-circuit
// with the JSON deny envelope; the call never reaches business logic.
type Gatekeeper struct {
	engine   *authz.Engine
	paths    *authz.PathPolicy
	auditLog audit.Logger
	logger   *observability.Logger
	metrics  *observability.Metrics
}

// NewGatekeeper creates the gatekeeper middleware. auditLog may be nil to
// disable the trail; logger and metrics may be nil.
func NewGatekeeper(engine *authz.Engine, paths *authz.PathPolicy, auditLog audit.Logger, logger *observability.Logger, metrics *observability.Metrics) *Gatekeeper {
	if auditLog == nil {
		auditLog = audit.NopLogger{}
	}
	return &Gatekeeper{
		engine:   engine,
		paths:    paths,
		auditLog: auditLog,
		logger:   logger,
		metrics:  metrics,
	}
}

// Handler wraps next with the authorization state machine:
//
//  1. Static exclusions bypass the chain silently.
//  2. Public paths are allowed without a principal.
//  3. A principal is required from here on; absence is a 401.
//  4. Admin-only paths require the ADMIN role, evaluated before any
//     permission resolution so a conflicting category match can never
//     widen access.
//  5. The endpoint's required permission is resolved and checked.
func (g *Gatekeeper) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		if g.paths.IsStaticExclusion(path) {
			next.ServeHTTP(w, r)
			return
		}

		if g.paths.IsPublic(path) {
			g.recordOutcome(OutcomeAllowed)
			next.ServeHTTP(w, r)
			return
		}

		principal := auth.FromContext(r.Context())
		if principal == nil {
			g.denyUnauthenticated(w, r)
			return
		}

		if g.paths.IsAdminOnly(path) {
			if d := g.engine.HasRole(principal, authz.RoleAdmin); !d.Granted {
				g.denyForbidden(w, r, principal, "", string(authz.RoleAdmin), d.Reason)
				return
			}
			g.allow(r, principal)
			next.ServeHTTP(w, r)
			return
		}

		required := g.engine.Registry().RequiredPermissionFor(r.Method, path)
		if d := g.engine.HasPermission(principal, required); !d.Granted {
			g.denyForbidden(w, r, principal, string(required), "", d.Reason)
			return
		}

		g.allow(r, principal)
		next.ServeHTTP(w, r)
	})
}

func (g *Gatekeeper) allow(r *http.Request, p *authz.Principal) {
	g.recordOutcome(OutcomeAllowed)
	if g.logger != nil {
		g.logger.WithFields(map[string]interface{}{
			"principal_id": p.ID,
			"method":       r.Method,
			"path":         r.URL.Path,
		}).Debug("request allowed")
	}
}

func (g *Gatekeeper) denyUnauthenticated(w http.ResponseWriter, r *http.Request) {
	g.recordOutcome(OutcomeUnauthenticated)

	event := audit.Denied(r.Context(), audit.EventTypeAuthMissing, "authentication required")
	event.Method = r.Method
	event.Path = r.URL.Path
	event.IPAddress = clientIP(r)
	_ = g.auditLog.Log(r.Context(), event)

	httputil.WriteUnauthorized(w, "Authentication required")
}

func (g *Gatekeeper) denyForbidden(w http.ResponseWriter, r *http.Request, p *authz.Principal, requiredPermission, requiredRole, reason string) {
	g.recordOutcome(OutcomeForbidden)

	message := fmt.Sprintf("access denied: %s", reason)
	event := audit.Denied(r.Context(), audit.EventTypeAccessDenied, message)
	event.PrincipalID = &p.ID
	event.Username = p.Username
	event.Roles = roleNames(p.Roles)
	event.RequiredPermission = requiredPermission
	event.RequiredRole = requiredRole
	event.Method = r.Method
	event.Path = r.URL.Path
	event.IPAddress = clientIP(r)
	_ = g.auditLog.Log(r.Context(), event)

	if g.logger != nil {
		g.logger.WithFields(map[string]interface{}{
			"principal_id":        p.ID,
			"required_permission": requiredPermission,
			"required_role":       requiredRole,
			"method":              r.Method,
			"path":                r.URL.Path,
		}).Warn("request forbidden")
	}

	httputil.WriteForbidden(w, "You do not have permission to perform this action")
}

func (g *Gatekeeper) recordOutcome(outcome string) {
	if g.metrics != nil {
		g.metrics.RecordDecision("gatekeeper", outcome)
	}
}

func roleNames(roles []authz.Role) []string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return names
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
