package balance

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LeaveBalance is the per (user, country, leave type, year) ledger row.
// AvailableDays is always TotalDays - UsedDays; Recompute keeps the invariant
// after any mutation.
type LeaveBalance struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_balances_user_type_year"`
	CountryCode string    `gorm:"type:varchar(2);not null;uniqueIndex:idx_balances_user_type_year"`
	LeaveType   string    `gorm:"type:varchar(40);not null;uniqueIndex:idx_balances_user_type_year"`
	Year        int       `gorm:"not null;uniqueIndex:idx_balances_user_type_year"`

	TotalDays     decimal.Decimal `gorm:"type:decimal(6,2);not null;default:0"`
	UsedDays      decimal.Decimal `gorm:"type:decimal(6,2);not null;default:0"`
	AvailableDays decimal.Decimal `gorm:"type:decimal(6,2);not null;default:0"`
	AccrualRate   decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (LeaveBalance) TableName() string {
	return "leave_balances"
}

func (b *LeaveBalance) Recompute() {
	b.AvailableDays = b.TotalDays.Sub(b.UsedDays)
}
