package audit

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"
)

// LogrusLogger writes audit events as JSON lines through logrus. It is the
// default production sink: one line per event, append-only, no buffering
// beyond the underlying writer's.
type LogrusLogger struct {
	log *logrus.Logger
}

// NewLogrusLogger creates a logrus-backed audit sink writing to output.
func NewLogrusLogger(output io.Writer) *LogrusLogger {
	log := logrus.New()
	log.SetOutput(output)
	log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	log.SetLevel(logrus.InfoLevel)
	return &LogrusLogger{log: log}
}

// Log writes one event. Errors from the writer are swallowed by logrus;
// the audit trail is best-effort by contract.
func (l *LogrusLogger) Log(_ context.Context, event *Event) error {
	if event == nil {
		return nil
	}

	fields := logrus.Fields{
		"event_type": string(event.EventType),
		"status":     string(event.Status),
	}
	if event.PrincipalID != nil {
		fields["principal_id"] = *event.PrincipalID
	}
	if event.Username != "" {
		fields["username"] = event.Username
	}
	if len(event.Roles) > 0 {
		fields["roles"] = event.Roles
	}
	if event.RequiredPermission != "" {
		fields["required_permission"] = event.RequiredPermission
	}
	if event.RequiredRole != "" {
		fields["required_role"] = event.RequiredRole
	}
	if event.Method != "" {
		fields["method"] = event.Method
	}
	if event.Path != "" {
		fields["path"] = event.Path
	}
	if event.RequestID != "" {
		fields["request_id"] = event.RequestID
	}
	if event.IPAddress != "" {
		fields["ip_address"] = event.IPAddress
	}
	for k, v := range event.Metadata {
		fields["meta_"+k] = v
	}

	entry := l.log.WithFields(fields)
	switch event.Status {
	case EventStatusDenied, EventStatusFailure:
		entry.Warn(event.Message)
	default:
		entry.Info(event.Message)
	}
	return nil
}

// Close is a no-op; the caller owns the writer.
func (l *LogrusLogger) Close() error { return nil }
