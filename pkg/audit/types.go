package audit

import (
	"encoding/json"
	"time"
)

// EventType represents the category of audit event
type EventType string

const (
	// Authentication boundary
	EventTypeAuthMissing EventType = "auth.unauthenticated"

	// Authorization decisions
	EventTypeAccessGranted   EventType = "authz.access_granted"
	EventTypeAccessDenied    EventType = "authz.access_denied"
	EventTypePermissionCheck EventType = "authz.permission_check"

	// Ownership resolution
	EventTypeRosterFailure EventType = "authz.roster_failure"
)

// EventStatus represents the outcome of an event
type EventStatus string

const (
	EventStatusSuccess EventStatus = "success"
	EventStatusFailure EventStatus = "failure"
	EventStatusDenied  EventStatus = "denied"
)

// Event is a single audit trail entry. The trail is append-only and
// best-effort: producing an event must never block or re-trigger the
// decision it records.
type Event struct {
	Timestamp time.Time   `json:"timestamp"`
	EventType EventType   `json:"event_type"`
	Status    EventStatus `json:"status"`

	// Actor
	PrincipalID *int64   `json:"principal_id,omitempty"`
	Username    string   `json:"username,omitempty"`
	Roles       []string `json:"roles,omitempty"`

	// What was required
	RequiredPermission string `json:"required_permission,omitempty"`
	RequiredRole       string `json:"required_role,omitempty"`

	// Request context
	Method    string `json:"method,omitempty"`
	Path      string `json:"path,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	IPAddress string `json:"ip_address,omitempty"`

	Message  string                 `json:"message,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// ToJSON serializes the event.
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}
