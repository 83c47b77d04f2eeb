package audit

import (
	"context"
	"encoding/json"
	"time"

	"go-leave/internal/events"
	"go-leave/internal/messaging/kafka"
	"go-leave/internal/shared/contextutil"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Entry describes one auditable state transition.
type Entry struct {
	Action      string
	EntityType  string
	EntityID    string
	ActorUserID string
	ActorRole   string
	Changes     map[string]any
}

// Recorder persists audit entries. Record is called inside the business
// transaction: a failed audit write rolls the whole operation back, and
// delivery to consumers happens asynchronously from the outbox.
type Recorder interface {
	Record(ctx context.Context, tx *gorm.DB, entry Entry) error
}

type outboxRecorder struct {
	outbox kafka.OutboxRepository
}

func NewOutboxRecorder(outbox kafka.OutboxRepository) Recorder {
	return &outboxRecorder{outbox: outbox}
}

func (r *outboxRecorder) Record(ctx context.Context, tx *gorm.DB, entry Entry) error {
	actor := entry.ActorUserID
	if actor == "" {
		actor = contextutil.GetUserID(ctx)
	}

	event := events.LeaveAuditEvent{
		EventType:   "leave_audit",
		RequestID:   contextutil.GetRequestID(ctx),
		Action:      entry.Action,
		EntityType:  entry.EntityType,
		EntityID:    entry.EntityID,
		ActorUserID: actor,
		ActorRole:   entry.ActorRole,
		Changes:     entry.Changes,
		OccurredAt:  time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	repo := r.outbox
	if tx != nil {
		repo = r.outbox.WithTx(tx)
	}

	return repo.Create(ctx, kafka.OutboxEvent{
		ID:            uuid.NewString(),
		RequestID:     event.RequestID,
		AggregateType: entry.EntityType,
		AggregateID:   entry.EntityID,
		EventType:     entry.Action,
		Topic:         events.LeaveAuditTopic,
		Payload:       payload,
		Status:        kafka.OutboxStatusPending,
	})
}

// Noop satisfies Recorder for tests and for deployments without Kafka.
type Noop struct{}

func (Noop) Record(context.Context, *gorm.DB, Entry) error { return nil }
