// Package middleware provides the HTTP middleware chain for the POS API:
// request-ID correlation, the audit context, and the authorization
// gatekeeper.
//
// # Chain order
//
// The intended composition, outermost first:
//
//	RequestID -> AuditContext -> auth.Middleware -> Gatekeeper -> handlers
//
// RequestID must run before anything that logs; auth.Middleware must run
// before the Gatekeeper so the principal is available when the
// authorization state machine executes.
package middleware
