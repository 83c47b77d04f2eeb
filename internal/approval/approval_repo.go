package approval

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, a *LeaveApproval) error
	FindByRequestID(ctx context.Context, leaveRequestID string) ([]LeaveApproval, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, a *LeaveApproval) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *repository) FindByRequestID(ctx context.Context, leaveRequestID string) ([]LeaveApproval, error) {
	var approvals []LeaveApproval
	err := r.db.WithContext(ctx).
		Where("leave_request_id = ?", leaveRequestID).
		Order("decided_at DESC").
		Find(&approvals).Error
	return approvals, err
}
