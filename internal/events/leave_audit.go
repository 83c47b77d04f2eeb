package events

import "time"

const LeaveAuditTopic = "hr.leave.audit.v1"

// LeaveAuditEvent is the append-only audit record emitted after every state
// transition in the leave subsystem.
type LeaveAuditEvent struct {
	EventType   string         `json:"event_type"`
	RequestID   string         `json:"request_id,omitempty"`
	Action      string         `json:"action"`
	EntityType  string         `json:"entity_type"`
	EntityID    string         `json:"entity_id"`
	ActorUserID string         `json:"actor_user_id"`
	ActorRole   string         `json:"actor_role,omitempty"`
	Changes     map[string]any `json:"changes,omitempty"`
	OccurredAt  time.Time      `json:"occurred_at"`
}
