// Package api exposes the read-only authorization introspection surface:
// a principal's effective roles and permissions, and the registry's view
// of a role. Diagnostics only; no write capability.
package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/tillstack/tillstack/pkg/auth"
	"github.com/tillstack/tillstack/pkg/authz"
	"github.com/tillstack/tillstack/pkg/guard"
	"github.com/tillstack/tillstack/pkg/httputil"
)

// IntrospectionHandlers serves the diagnostics endpoints. The role view is
// additionally guarded at the method boundary: registry contents are
// operator data, so it demands ADMIN or MANAGER regardless of how the
// request reached the handler.
type IntrospectionHandlers struct {
	engine *authz.Engine
	guard  *guard.Guard
}

// NewIntrospectionHandlers creates the handlers.
func NewIntrospectionHandlers(engine *authz.Engine, g *guard.Guard) *IntrospectionHandlers {
	return &IntrospectionHandlers{engine: engine, guard: g}
}

// RegisterRoutes attaches the introspection routes to the router.
func (h *IntrospectionHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/authz/principal", h.getPrincipal).Methods("GET")
	router.HandleFunc("/api/authz/roles/{role}", h.getRole).Methods("GET")
}

type principalView struct {
	Principal   *authz.Principal   `json:"principal"`
	Permissions []authz.Permission `json:"permissions"`
}

// getPrincipal returns the caller's effective roles and the union of
// permissions those roles grant.
func (h *IntrospectionHandlers) getPrincipal(w http.ResponseWriter, r *http.Request) {
	principal := auth.FromContext(r.Context())
	if principal == nil {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	registry := h.engine.Registry()
	effective := authz.NewPermissionSet()
	for _, role := range principal.Roles {
		for perm := range registry.PermissionsOf(role) {
			effective[perm] = struct{}{}
		}
	}

	_ = httputil.WriteSuccess(w, principalView{
		Principal:   principal,
		Permissions: effective.List(),
	})
}

type roleView struct {
	Role        authz.Role         `json:"role"`
	Level       *int               `json:"level,omitempty"`
	Permissions []authz.Permission `json:"permissions"`
}

// getRole returns the permission set of a registered role.
func (h *IntrospectionHandlers) getRole(w http.ResponseWriter, r *http.Request) {
	principal := auth.FromContext(r.Context())
	if err := h.guard.Check(r.Context(), principal, guard.RequireAdminOrManager()); err != nil {
		if errors.Is(err, guard.ErrUnauthenticated) {
			httputil.WriteUnauthorized(w, "Authentication required")
			return
		}
		httputil.WriteForbidden(w, "You do not have permission to inspect roles")
		return
	}

	role := authz.Role(mux.Vars(r)["role"])
	registry := h.engine.Registry()
	if !registry.IsValidRole(role) {
		httputil.WriteNotFound(w, "Unknown role")
		return
	}

	view := roleView{
		Role:        role,
		Permissions: registry.PermissionsOf(role).List(),
	}
	if level, ok := registry.LevelOf(role); ok {
		view.Level = &level
	}
	_ = httputil.WriteSuccess(w, view)
}
