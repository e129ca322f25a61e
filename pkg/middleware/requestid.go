package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/tillstack/tillstack/pkg/contextkeys"
)

// RequestIDHeader is the inbound/outbound correlation header.
const RequestIDHeader = "X-Request-Id"

// RequestID assigns each request a correlation ID, reusing the inbound
// header when the caller already set one. The ID flows into the audit
// trail and structured logs.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)
		ctx := contextkeys.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
