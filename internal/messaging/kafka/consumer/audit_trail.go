package consumer

import (
	"context"
	"encoding/json"
	"time"

	"go-leave/internal/audit"
	"go-leave/internal/events"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// ConsumeLeaveAudit drains the leave audit topic into the audit_trail table.
func ConsumeLeaveAudit(
	ctx context.Context,
	reader *kafkago.Reader,
	trailRepo audit.TrailRepository,
	logger *zap.Logger,
) {
	log := logger.Named("kafka.consumer.leave_audit")
	log.Info("leave audit consumer started")

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("leave audit consumer stopped")
				return
			}
			log.Error("fetch leave audit message failed", zap.Error(err))
			continue
		}

		var event events.LeaveAuditEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			log.Error("decode leave audit event failed", zap.Error(err))
			_ = reader.CommitMessages(ctx, msg)
			continue
		}

		changes, err := json.Marshal(event.Changes)
		if err != nil {
			log.Error("encode audit changes failed", zap.Error(err))
			_ = reader.CommitMessages(ctx, msg)
			continue
		}

		occurredAt := event.OccurredAt
		if occurredAt.IsZero() {
			occurredAt = time.Now().UTC()
		}

		entry := &audit.TrailEntry{
			ID:          uuid.New(),
			RequestID:   event.RequestID,
			Action:      event.Action,
			EntityType:  event.EntityType,
			EntityID:    event.EntityID,
			ActorUserID: event.ActorUserID,
			ActorRole:   event.ActorRole,
			Changes:     changes,
			OccurredAt:  occurredAt,
		}
		if err := trailRepo.Create(ctx, entry); err != nil {
			log.Error("persist audit trail entry failed",
				zap.String("action", event.Action),
				zap.String("entity_id", event.EntityID),
				zap.Error(err),
			)
			continue
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit leave audit message failed", zap.Error(err))
			continue
		}

		log.Info("audit trail entry persisted",
			zap.String("action", event.Action),
			zap.String("entity_type", event.EntityType),
			zap.String("entity_id", event.EntityID),
		)
	}
}
