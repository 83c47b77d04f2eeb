package leave

import (
	"context"
	"errors"
	"time"

	"go-leave/internal/audit"
	"go-leave/internal/balance"
	leaveerrors "go-leave/internal/leave/errors"
	"go-leave/internal/shared/contextutil"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	StatusDraft     = "DRAFT"
	StatusSubmitted = "SUBMITTED"
	StatusApproved  = "APPROVED"
	StatusRejected  = "REJECTED"
	StatusCancelled = "CANCELLED"
)

var minTotalDays = decimal.RequireFromString("0.5")

type Service interface {
	Create(ctx context.Context, clientID, actorID string, req CreateLeaveRequest) (LeaveRequestResponse, error)
	GetAll(ctx context.Context, filters ListFilters, scopes ...func(*gorm.DB) *gorm.DB) ([]LeaveRequestResponse, int64, error)
	GetByID(ctx context.Context, id string) (LeaveRequestResponse, error)
	Update(ctx context.Context, actorID, id string, req UpdateLeaveRequest) (LeaveRequestResponse, error)
	Submit(ctx context.Context, actorID, id string) (LeaveRequestResponse, error)
	Cancel(ctx context.Context, actorID, id string) (LeaveRequestResponse, error)
	Delete(ctx context.Context, actorID, id string) error
}

type service struct {
	db          *gorm.DB
	repo        Repository
	balanceRepo balance.Repository
	catalog     *balance.Catalog
	auditor     audit.Recorder
	logger      *zap.Logger
}

func NewService(
	db *gorm.DB,
	repo Repository,
	balanceRepo balance.Repository,
	catalog *balance.Catalog,
	auditor audit.Recorder,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("leave.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("leave.service")
	}
	return &service{
		db:          db,
		repo:        repo,
		balanceRepo: balanceRepo,
		catalog:     catalog,
		auditor:     auditor,
		logger:      l,
	}
}

func (s *service) Create(ctx context.Context, clientID, actorID string, req CreateLeaveRequest) (LeaveRequestResponse, error) {
	rid := contextutil.GetRequestID(ctx)
	s.logger.Debug("create leave request",
		zap.String("request_id", rid),
		zap.String("client_id", clientID),
		zap.String("actor_id", actorID),
		zap.String("leave_type", req.LeaveType),
	)

	clientUUID, err := uuid.Parse(clientID)
	if err != nil {
		return LeaveRequestResponse{}, leaveerrors.ErrInvalidClientID
	}
	actorUUID, err := uuid.Parse(actorID)
	if err != nil {
		return LeaveRequestResponse{}, leaveerrors.ErrInvalidActorID
	}

	// requests are owned by their user; default owner is the actor
	ownerUUID := actorUUID
	if req.UserID != "" {
		ownerUUID, err = uuid.Parse(req.UserID)
		if err != nil {
			return LeaveRequestResponse{}, leaveerrors.ErrInvalidUserID
		}
	}

	startDate, endDate, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		s.logger.Warn("create leave validation failed", zap.Error(err))
		return LeaveRequestResponse{}, err
	}
	if req.TotalDays.LessThan(minTotalDays) {
		return LeaveRequestResponse{}, leaveerrors.ErrInvalidTotalDays
	}
	if !s.catalog.IsValidLeaveType(req.CountryCode, req.LeaveType) {
		return LeaveRequestResponse{}, leaveerrors.ErrInvalidLeaveType
	}

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		s.logger.Error("create leave begin tx failed", zap.Error(tx.Error))
		return LeaveRequestResponse{}, tx.Error
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	overlap, err := qtx.HasOverlappingPeriod(ctx, ownerUUID.String(), startDate, endDate, nil)
	if err != nil {
		s.logger.Error("create leave overlap check failed", zap.Error(err))
		return LeaveRequestResponse{}, err
	}
	if overlap {
		s.logger.Warn("create leave overlap detected",
			zap.String("user_id", ownerUUID.String()),
			zap.String("start_date", req.StartDate),
			zap.String("end_date", req.EndDate),
		)
		return LeaveRequestResponse{}, leaveerrors.ErrLeaveOverlap
	}

	// Advisory pre-check against the current-year balance. The binding check
	// happens again under a row lock at approval time.
	if err := s.checkAvailableBalance(ctx, tx, ownerUUID.String(), req.CountryCode, req.LeaveType, req.TotalDays); err != nil {
		return LeaveRequestResponse{}, err
	}

	isPaid := true
	if req.IsPaid != nil {
		isPaid = *req.IsPaid
	}

	l := &LeaveRequest{
		ID:          uuid.New(),
		ClientID:    clientUUID,
		UserID:      ownerUUID,
		CountryCode: req.CountryCode,
		LeaveType:   req.LeaveType,
		StartDate:   startDate,
		EndDate:     endDate,
		TotalDays:   req.TotalDays,
		IsPaid:      isPaid,
		Notes:       req.Notes,
		Status:      StatusDraft,
	}
	if req.PayrollPeriodID != nil && *req.PayrollPeriodID != "" {
		ppID, err := uuid.Parse(*req.PayrollPeriodID)
		if err != nil {
			return LeaveRequestResponse{}, leaveerrors.ErrInvalidPayrollPeriodID
		}
		l.PayrollPeriodID = &ppID
	}

	if err := qtx.Create(ctx, l); err != nil {
		s.logger.Error("create leave persist failed", zap.Error(err))
		return LeaveRequestResponse{}, err
	}

	if err := s.auditor.Record(ctx, tx, audit.Entry{
		Action:      "LEAVE_CREATED",
		EntityType:  "leave_request",
		EntityID:    l.ID.String(),
		ActorUserID: actorID,
		ActorRole:   contextutil.GetRole(ctx),
		Changes: map[string]any{
			"status":     StatusDraft,
			"leave_type": l.LeaveType,
			"total_days": l.TotalDays.String(),
		},
	}); err != nil {
		return LeaveRequestResponse{}, err
	}

	if err := tx.Commit().Error; err != nil {
		s.logger.Error("create leave commit failed", zap.Error(err))
		return LeaveRequestResponse{}, err
	}
	s.logger.Info("create leave success",
		zap.String("request_id", rid),
		zap.String("leave_id", l.ID.String()),
		zap.String("user_id", ownerUUID.String()),
	)

	return MapToResponse(*l), nil
}

// checkAvailableBalance implements the advisory balance gate at creation
// time. A missing balance row is not an error; approval decides then.
func (s *service) checkAvailableBalance(ctx context.Context, tx *gorm.DB, userID, country, leaveType string, totalDays decimal.Decimal) error {
	b, err := s.balanceRepo.WithTx(tx).Find(ctx, userID, country, leaveType, time.Now().UTC().Year())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if totalDays.GreaterThan(b.AvailableDays) {
		s.logger.Warn("create leave soft balance check failed",
			zap.String("user_id", userID),
			zap.String("leave_type", leaveType),
			zap.String("requested", totalDays.String()),
			zap.String("available", b.AvailableDays.String()),
		)
		return leaveerrors.ErrInsufficientBalance
	}
	return nil
}

func (s *service) GetAll(ctx context.Context, filters ListFilters, scopes ...func(*gorm.DB) *gorm.DB) ([]LeaveRequestResponse, int64, error) {
	requests, total, err := s.repo.FindAll(ctx, filters, scopes...)
	if err != nil {
		return nil, 0, err
	}
	return mapToListResponse(requests), total, nil
}

func (s *service) GetByID(ctx context.Context, id string) (LeaveRequestResponse, error) {
	l, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LeaveRequestResponse{}, leaveerrors.ErrLeaveNotFound
		}
		return LeaveRequestResponse{}, err
	}
	return MapToResponse(*l), nil
}

func (s *service) Update(ctx context.Context, actorID, id string, req UpdateLeaveRequest) (LeaveRequestResponse, error) {
	s.logger.Debug("update leave request",
		zap.String("leave_id", id),
		zap.String("actor_id", actorID),
	)

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		s.logger.Error("update leave begin tx failed", zap.Error(tx.Error))
		return LeaveRequestResponse{}, tx.Error
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	l, err := qtx.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LeaveRequestResponse{}, leaveerrors.ErrLeaveNotFound
		}
		return LeaveRequestResponse{}, err
	}
	if l.UserID.String() != actorID {
		return LeaveRequestResponse{}, leaveerrors.ErrNotOwner
	}
	if l.Status != StatusDraft {
		return LeaveRequestResponse{}, leaveerrors.ErrNotDraft
	}

	startDate, endDate := l.StartDate, l.EndDate
	datesChanged := false
	if req.StartDate != "" {
		startDate, err = parseDate(req.StartDate)
		if err != nil {
			return LeaveRequestResponse{}, err
		}
		datesChanged = true
	}
	if req.EndDate != "" {
		endDate, err = parseDate(req.EndDate)
		if err != nil {
			return LeaveRequestResponse{}, err
		}
		datesChanged = true
	}
	if startDate.After(endDate) {
		return LeaveRequestResponse{}, leaveerrors.ErrInvalidDateRange
	}

	if req.LeaveType != "" {
		if !s.catalog.IsValidLeaveType(l.CountryCode, req.LeaveType) {
			return LeaveRequestResponse{}, leaveerrors.ErrInvalidLeaveType
		}
		l.LeaveType = req.LeaveType
	}
	if req.TotalDays != nil {
		if req.TotalDays.LessThan(minTotalDays) {
			return LeaveRequestResponse{}, leaveerrors.ErrInvalidTotalDays
		}
		l.TotalDays = *req.TotalDays
	}
	if req.IsPaid != nil {
		l.IsPaid = *req.IsPaid
	}
	if req.Notes != nil {
		l.Notes = *req.Notes
	}
	if req.PayrollPeriodID != nil {
		if *req.PayrollPeriodID == "" {
			l.PayrollPeriodID = nil
		} else {
			ppID, err := uuid.Parse(*req.PayrollPeriodID)
			if err != nil {
				return LeaveRequestResponse{}, leaveerrors.ErrInvalidPayrollPeriodID
			}
			l.PayrollPeriodID = &ppID
		}
	}

	if datesChanged {
		overlap, err := qtx.HasOverlappingPeriod(ctx, l.UserID.String(), startDate, endDate, &id)
		if err != nil {
			return LeaveRequestResponse{}, err
		}
		if overlap {
			return LeaveRequestResponse{}, leaveerrors.ErrLeaveOverlap
		}
		l.StartDate = startDate
		l.EndDate = endDate
	}

	if err := qtx.Update(ctx, l); err != nil {
		s.logger.Error("update leave persist failed", zap.String("leave_id", id), zap.Error(err))
		return LeaveRequestResponse{}, err
	}

	if err := s.auditor.Record(ctx, tx, audit.Entry{
		Action:      "LEAVE_UPDATED",
		EntityType:  "leave_request",
		EntityID:    id,
		ActorUserID: actorID,
		ActorRole:   contextutil.GetRole(ctx),
		Changes: map[string]any{
			"leave_type": l.LeaveType,
			"start_date": l.StartDate.Format("2006-01-02"),
			"end_date":   l.EndDate.Format("2006-01-02"),
			"total_days": l.TotalDays.String(),
		},
	}); err != nil {
		return LeaveRequestResponse{}, err
	}

	if err := tx.Commit().Error; err != nil {
		s.logger.Error("update leave commit failed", zap.String("leave_id", id), zap.Error(err))
		return LeaveRequestResponse{}, err
	}
	s.logger.Info("update leave success", zap.String("leave_id", id))

	return MapToResponse(*l), nil
}

func (s *service) Submit(ctx context.Context, actorID, id string) (LeaveRequestResponse, error) {
	return s.transitionStatus(ctx, actorID, id, StatusSubmitted)
}

func (s *service) Cancel(ctx context.Context, actorID, id string) (LeaveRequestResponse, error) {
	return s.transitionStatus(ctx, actorID, id, StatusCancelled)
}

func (s *service) transitionStatus(ctx context.Context, actorID, id, targetStatus string) (LeaveRequestResponse, error) {
	s.logger.Debug("transition leave status",
		zap.String("leave_id", id),
		zap.String("actor_id", actorID),
		zap.String("target_status", targetStatus),
	)

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		s.logger.Error("transition leave begin tx failed", zap.Error(tx.Error))
		return LeaveRequestResponse{}, tx.Error
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	l, err := qtx.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LeaveRequestResponse{}, leaveerrors.ErrLeaveNotFound
		}
		return LeaveRequestResponse{}, err
	}
	if l.UserID.String() != actorID {
		return LeaveRequestResponse{}, leaveerrors.ErrNotOwner
	}

	priorStatus := l.Status
	switch targetStatus {
	case StatusSubmitted:
		if priorStatus != StatusDraft {
			return LeaveRequestResponse{}, leaveerrors.ErrNotDraft
		}
	case StatusCancelled:
		if priorStatus != StatusDraft && priorStatus != StatusSubmitted {
			return LeaveRequestResponse{}, leaveerrors.ErrNotCancellable
		}
	default:
		return LeaveRequestResponse{}, leaveerrors.ErrInvalidStatusTransition
	}

	l.Status = targetStatus
	if err := qtx.Update(ctx, l); err != nil {
		s.logger.Error("transition leave persist failed",
			zap.String("leave_id", id),
			zap.String("target_status", targetStatus),
			zap.Error(err),
		)
		return LeaveRequestResponse{}, err
	}

	action := "LEAVE_SUBMITTED"
	if targetStatus == StatusCancelled {
		action = "LEAVE_CANCELLED"
	}
	if err := s.auditor.Record(ctx, tx, audit.Entry{
		Action:      action,
		EntityType:  "leave_request",
		EntityID:    id,
		ActorUserID: actorID,
		ActorRole:   contextutil.GetRole(ctx),
		Changes: map[string]any{
			"prior_status": priorStatus,
			"new_status":   targetStatus,
		},
	}); err != nil {
		return LeaveRequestResponse{}, err
	}

	if err := tx.Commit().Error; err != nil {
		s.logger.Error("transition leave commit failed", zap.String("leave_id", id), zap.Error(err))
		return LeaveRequestResponse{}, err
	}
	s.logger.Info("transition leave success",
		zap.String("leave_id", id),
		zap.String("status", targetStatus),
	)

	return MapToResponse(*l), nil
}

func (s *service) Delete(ctx context.Context, actorID, id string) error {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	l, err := qtx.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return leaveerrors.ErrLeaveNotFound
		}
		return err
	}
	if l.UserID.String() != actorID {
		return leaveerrors.ErrNotOwner
	}
	if l.Status != StatusDraft {
		return leaveerrors.ErrNotDraft
	}

	if err := qtx.Delete(ctx, id); err != nil {
		return err
	}

	if err := s.auditor.Record(ctx, tx, audit.Entry{
		Action:      "LEAVE_DELETED",
		EntityType:  "leave_request",
		EntityID:    id,
		ActorUserID: actorID,
		ActorRole:   contextutil.GetRole(ctx),
	}); err != nil {
		return err
	}

	return tx.Commit().Error
}

func parseDateRange(start, end string) (time.Time, time.Time, error) {
	startDate, err := parseDate(start)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	endDate, err := parseDate(end)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if startDate.After(endDate) {
		return time.Time{}, time.Time{}, leaveerrors.ErrInvalidDateRange
	}
	return startDate, endDate, nil
}

func parseDate(v string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, leaveerrors.ErrInvalidDateFormat
	}
	return t, nil
}

func MapToResponse(l LeaveRequest) LeaveRequestResponse {
	resp := LeaveRequestResponse{
		ID:          l.ID.String(),
		ClientID:    l.ClientID.String(),
		UserID:      l.UserID.String(),
		CountryCode: l.CountryCode,
		LeaveType:   l.LeaveType,
		StartDate:   l.StartDate.Format("2006-01-02"),
		EndDate:     l.EndDate.Format("2006-01-02"),
		TotalDays:   l.TotalDays,
		IsPaid:      l.IsPaid,
		Notes:       l.Notes,
		Status:      l.Status,
		CreatedAt:   l.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   l.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if l.PayrollPeriodID != nil {
		v := l.PayrollPeriodID.String()
		resp.PayrollPeriodID = &v
	}
	return resp
}

func mapToListResponse(requests []LeaveRequest) []LeaveRequestResponse {
	resp := make([]LeaveRequestResponse, len(requests))
	for i, l := range requests {
		resp[i] = MapToResponse(l)
	}
	return resp
}
