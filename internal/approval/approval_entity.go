package approval

import (
	"time"

	"github.com/google/uuid"
)

// LeaveApproval rows are append-only; a request carries one row per
// decision attempt, most recent last.
type LeaveApproval struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	LeaveRequestID uuid.UUID `gorm:"type:uuid;not null;index:idx_leave_approvals_request" json:"leave_request_id"`
	ApproverID     uuid.UUID `gorm:"type:uuid;not null" json:"approver_id"`
	Decision       string    `gorm:"type:varchar(20);not null" json:"decision"`
	Comments       string    `gorm:"type:text" json:"comments"`
	DecidedAt      time.Time `gorm:"not null" json:"decided_at"`
	CreatedAt      time.Time `json:"created_at"`
}

func (LeaveApproval) TableName() string {
	return "leave_approvals"
}
