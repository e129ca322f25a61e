// Package audit provides the append-only authorization audit trail. Every
// denial is recorded with enough context for review: principal identity,
// the required check, and the request path. Logging is fire-and-forget; a
// failing sink never blocks or re-evaluates a decision.
package audit

import (
	"context"
	"time"

	"github.com/tillstack/tillstack/pkg/contextkeys"
)

// Logger is the audit sink interface.
type Logger interface {
	// Log records one event. Implementations must be safe for concurrent
	// use and must not block on slow sinks longer than necessary.
	Log(ctx context.Context, event *Event) error

	// Close flushes and releases the sink.
	Close() error
}

// WithLogger stores an audit logger in the context.
func WithLogger(ctx context.Context, logger Logger) context.Context {
	return contextkeys.WithAuditLogger(ctx, logger)
}

// FromContext retrieves the audit logger, or a no-op sink when none is set.
func FromContext(ctx context.Context) Logger {
	if logger, ok := ctx.Value(contextkeys.AuditLoggerKey).(Logger); ok {
		return logger
	}
	return NopLogger{}
}

// NopLogger discards every event.
type NopLogger struct{}

func (NopLogger) Log(context.Context, *Event) error { return nil }
func (NopLogger) Close() error                      { return nil }

// Denied builds a denial event with the common fields populated.
func Denied(ctx context.Context, eventType EventType, message string) *Event {
	return &Event{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Status:    EventStatusDenied,
		RequestID: contextkeys.GetRequestID(ctx),
		Message:   message,
	}
}

// Granted builds an allow event with the common fields populated.
func Granted(ctx context.Context, message string) *Event {
	return &Event{
		Timestamp: time.Now().UTC(),
		EventType: EventTypeAccessGranted,
		Status:    EventStatusSuccess,
		RequestID: contextkeys.GetRequestID(ctx),
		Message:   message,
	}
}
