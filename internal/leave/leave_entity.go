package leave

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LeaveRequest rows are mutable only while DRAFT and are hard deleted, never
// soft deleted; approval history survives in leave_approvals.
type LeaveRequest struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ClientID uuid.UUID `gorm:"type:uuid;not null;index:idx_leave_requests_client_status"`
	UserID   uuid.UUID `gorm:"type:uuid;not null;index:idx_leave_requests_user_dates"`

	CountryCode string          `gorm:"type:varchar(2);not null"`
	LeaveType   string          `gorm:"type:varchar(40);not null"`
	StartDate   time.Time       `gorm:"type:date;not null;index:idx_leave_requests_user_dates"`
	EndDate     time.Time       `gorm:"type:date;not null;index:idx_leave_requests_user_dates"`
	TotalDays   decimal.Decimal `gorm:"type:decimal(6,2);not null"`
	IsPaid      bool            `gorm:"not null;default:true"`
	Notes       string          `gorm:"type:text"`

	Status          string     `gorm:"type:varchar(20);not null;default:'DRAFT';index:idx_leave_requests_client_status"`
	PayrollPeriodID *uuid.UUID `gorm:"type:uuid"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (LeaveRequest) TableName() string {
	return "leave_requests"
}
