package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TrailEntry is the durable form of a delivered audit event.
type TrailEntry struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	RequestID   string          `gorm:"type:varchar(64)" json:"request_id"`
	Action      string          `gorm:"type:varchar(64);not null;index:idx_audit_trail_action" json:"action"`
	EntityType  string          `gorm:"type:varchar(64);not null" json:"entity_type"`
	EntityID    string          `gorm:"type:varchar(64);not null;index:idx_audit_trail_entity" json:"entity_id"`
	ActorUserID string          `gorm:"type:varchar(64)" json:"actor_user_id"`
	ActorRole   string          `gorm:"type:varchar(32)" json:"actor_role"`
	Changes     json.RawMessage `gorm:"type:jsonb" json:"changes"`
	OccurredAt  time.Time       `gorm:"not null" json:"occurred_at"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (TrailEntry) TableName() string {
	return "audit_trail"
}

type TrailRepository interface {
	Create(ctx context.Context, entry *TrailEntry) error
	FindByEntity(ctx context.Context, entityType, entityID string) ([]TrailEntry, error)
}

type trailRepository struct {
	db *gorm.DB
}

func NewTrailRepository(db *gorm.DB) TrailRepository {
	return &trailRepository{db: db}
}

func (r *trailRepository) Create(ctx context.Context, entry *TrailEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *trailRepository) FindByEntity(ctx context.Context, entityType, entityID string) ([]TrailEntry, error) {
	var entries []TrailEntry
	err := r.db.WithContext(ctx).
		Where("entity_type = ?", entityType).
		Where("entity_id = ?", entityID).
		Order("occurred_at DESC").
		Find(&entries).Error
	return entries, err
}
