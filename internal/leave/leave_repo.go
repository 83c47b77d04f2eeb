package leave

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, l *LeaveRequest) error
	FindByID(ctx context.Context, id string) (*LeaveRequest, error)
	FindAll(ctx context.Context, filters ListFilters, scopes ...func(*gorm.DB) *gorm.DB) ([]LeaveRequest, int64, error)
	Update(ctx context.Context, l *LeaveRequest) error
	Delete(ctx context.Context, id string) error
	HasOverlappingPeriod(ctx context.Context, userID string, startDate, endDate time.Time, excludeID *string) (bool, error)
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

func (r *repository) Create(ctx context.Context, l *LeaveRequest) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *repository) FindByID(ctx context.Context, id string) (*LeaveRequest, error) {
	var l LeaveRequest
	err := r.db.WithContext(ctx).First(&l, "id = ?", id).Error
	return &l, err
}

func (r *repository) FindAll(ctx context.Context, filters ListFilters, scopes ...func(*gorm.DB) *gorm.DB) ([]LeaveRequest, int64, error) {
	db := r.db.WithContext(ctx).Model(&LeaveRequest{}).Scopes(scopes...)

	if filters.Status != "" {
		db = db.Where("status = ?", filters.Status)
	}
	if filters.UserID != "" {
		db = db.Where("user_id = ?", filters.UserID)
	}
	if filters.Country != "" {
		db = db.Where("country_code = ?", filters.Country)
	}
	if filters.LeaveType != "" {
		db = db.Where("leave_type = ?", filters.LeaveType)
	}
	if filters.DateFrom != "" {
		db = db.Where("end_date >= ?", filters.DateFrom)
	}
	if filters.DateTo != "" {
		db = db.Where("start_date <= ?", filters.DateTo)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filters.Limit > 0 {
		page := filters.Page
		if page < 1 {
			page = 1
		}
		db = db.Offset((page - 1) * filters.Limit).Limit(filters.Limit)
	}

	var requests []LeaveRequest
	err := db.Order("start_date DESC").Find(&requests).Error
	return requests, total, err
}

func (r *repository) Update(ctx context.Context, l *LeaveRequest) error {
	return r.db.WithContext(ctx).Save(l).Error
}

// Delete is a hard delete; only DRAFT rows ever reach it.
func (r *repository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&LeaveRequest{}, "id = ?", id).Error
}

// HasOverlappingPeriod reports whether the user already has a SUBMITTED or
// APPROVED request whose inclusive date range intersects [startDate, endDate].
func (r *repository) HasOverlappingPeriod(ctx context.Context, userID string, startDate, endDate time.Time, excludeID *string) (bool, error) {
	db := r.db.WithContext(ctx).
		Model(&LeaveRequest{}).
		Where("user_id = ?", userID).
		Where("status IN ?", []string{StatusSubmitted, StatusApproved}).
		Where("NOT (end_date < ? OR start_date > ?)", startDate, endDate)

	if excludeID != nil && *excludeID != "" {
		db = db.Where("id <> ?", *excludeID)
	}

	var count int64
	err := db.Count(&count).Error
	return count > 0, err
}
