package app

import (
	"go-leave/internal/approval"
	"go-leave/internal/audit"
	"go-leave/internal/balance"
	"go-leave/internal/leave"

	"gorm.io/gorm"
)

const outboxTableDDL = `
CREATE TABLE IF NOT EXISTS outbox_events (
	id             uuid PRIMARY KEY,
	request_id     varchar(64),
	aggregate_type varchar(64)  NOT NULL,
	aggregate_id   varchar(64)  NOT NULL,
	event_type     varchar(64)  NOT NULL,
	topic          varchar(128) NOT NULL,
	payload        jsonb        NOT NULL,
	status         varchar(16)  NOT NULL DEFAULT 'pending',
	retry_count    int          NOT NULL DEFAULT 0,
	next_retry_at  timestamptz,
	processed_at   timestamptz,
	error_message  text,
	created_at     timestamptz  NOT NULL DEFAULT now(),
	updated_at     timestamptz  NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_outbox_events_status_retry
	ON outbox_events (status, next_retry_at);`

func migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&leave.LeaveRequest{},
		&approval.LeaveApproval{},
		&balance.LeaveBalance{},
		&audit.TrailEntry{},
	); err != nil {
		return err
	}
	return db.Exec(outboxTableDDL).Error
}
