// Package auth bridges the external authentication collaborator to the
// authorization core. Token issuance and verification are out of scope:
// this package only turns an already-verified identity into an
// authz.Principal and threads it through the request context explicitly.
// There is no ambient security context.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/tillstack/tillstack/pkg/authz"
	"github.com/tillstack/tillstack/pkg/contextkeys"
)

// ErrNoPrincipal indicates the request carries no verified identity.
var ErrNoPrincipal = errors.New("no principal")

// Authenticator constructs a Principal from a request whose credentials
// have already been verified upstream. Implementations return
// ErrNoPrincipal when the request is anonymous; any other error is treated
// the same way by callers (fail closed).
type Authenticator interface {
	Authenticate(r *http.Request) (*authz.Principal, error)
}

// HeaderAuthenticator trusts identity headers set by the fronting
// authentication layer (API gateway or service mesh sidecar):
//
//	X-Auth-User-Id:     numeric identity
//	X-Auth-Username:    optional display name
//	X-Auth-Roles:       comma-separated role names
//	X-Auth-Department:  optional department label
//
// It performs no verification of its own; deployments must ensure these
// headers cannot be spoofed by external callers.
type HeaderAuthenticator struct{}

// Authenticate builds a principal from trusted identity headers.
func (HeaderAuthenticator) Authenticate(r *http.Request) (*authz.Principal, error) {
	rawID := r.Header.Get("X-Auth-User-Id")
	if rawID == "" {
		return nil, ErrNoPrincipal
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return nil, ErrNoPrincipal
	}

	var roles []authz.Role
	if rawRoles := r.Header.Get("X-Auth-Roles"); rawRoles != "" {
		for _, name := range strings.Split(rawRoles, ",") {
			name = strings.TrimSpace(name)
			if name != "" {
				roles = append(roles, authz.Role(name))
			}
		}
	}

	return &authz.Principal{
		ID:         id,
		Username:   r.Header.Get("X-Auth-Username"),
		Roles:      roles,
		Department: r.Header.Get("X-Auth-Department"),
	}, nil
}

// Middleware extracts the principal once per request and stores it in the
// context. It never denies: anonymous requests proceed without a principal
// and the gatekeeper decides whether that is acceptable for the path.
type Middleware struct {
	authenticator Authenticator
}

// NewMiddleware creates the principal-extraction middleware.
func NewMiddleware(authenticator Authenticator) *Middleware {
	return &Middleware{authenticator: authenticator}
}

// Handler wraps next with principal extraction.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := m.authenticator.Authenticate(r)
		if err != nil || principal == nil {
			next.ServeHTTP(w, r)
			return
		}
		ctx := contextkeys.WithPrincipal(r.Context(), principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// FromContext extracts the principal from the context, or nil when the
// request is anonymous.
func FromContext(ctx context.Context) *authz.Principal {
	principal, _ := ctx.Value(contextkeys.PrincipalKey).(*authz.Principal)
	return principal
}
