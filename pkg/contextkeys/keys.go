// Package contextkeys provides centralized context key definitions.
//
// All context keys used across the application are defined here. This
// prevents typos, documents dependencies, and makes key usage discoverable.
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// PrincipalKey contains *authz.Principal
	// Set by: auth.Middleware (pkg/auth/principal.go)
	// Required by: gatekeeper, method guard, introspection handlers
	PrincipalKey Key = "principal"

	// RequestIDKey contains the request ID string (UUID)
	// Set by: middleware.RequestID
	// Used by: audit trail, structured logging
	RequestIDKey Key = "request_id"

	// AuditLoggerKey contains audit.Logger
	// Set by: cmd wiring / audit middleware
	// Used by: gatekeeper and guard denial logging
	AuditLoggerKey Key = "audit_logger"
)

// WithPrincipal adds the authenticated principal to the context.
func WithPrincipal(ctx context.Context, principal interface{}) context.Context {
	return context.WithValue(ctx, PrincipalKey, principal)
}

// WithRequestID adds the request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithAuditLogger adds the audit logger to the context.
func WithAuditLogger(ctx context.Context, logger interface{}) context.Context {
	return context.WithValue(ctx, AuditLoggerKey, logger)
}

// GetRequestID retrieves the request ID from context.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}
