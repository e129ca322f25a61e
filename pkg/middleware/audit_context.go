package middleware

import (
	"net/http"

	"github.com/tillstack/tillstack/pkg/audit"
)

// AuditContext stores the audit logger in each request's context so
// downstream components (gatekeeper, guard, ownership resolver) can record
// events without carrying the sink explicitly.
func AuditContext(logger audit.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := audit.WithLogger(r.Context(), logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
