package approval

import (
	"context"
	"errors"
	"time"

	approvalerrors "go-leave/internal/approval/errors"
	"go-leave/internal/audit"
	"go-leave/internal/balance"
	"go-leave/internal/leave"
	"go-leave/internal/shared/apperror"
	"go-leave/internal/shared/contextutil"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service interface {
	Approve(ctx context.Context, leaveRequestID, approverID, comments string) (DecisionResponse, error)
	Reject(ctx context.Context, leaveRequestID, approverID, comments string) (DecisionResponse, error)
	BulkApprove(ctx context.Context, leaveRequestIDs []string, approverID, comments string) (BulkApproveResponse, error)
	GetHistory(ctx context.Context, leaveRequestID string) ([]ApprovalResponse, error)
}

type service struct {
	db          *gorm.DB
	repo        Repository
	leaveRepo   leave.Repository
	balanceRepo balance.Repository
	balances    balance.Service
	auditor     audit.Recorder
	logger      *zap.Logger
}

func NewService(
	db *gorm.DB,
	repo Repository,
	leaveRepo leave.Repository,
	balanceRepo balance.Repository,
	balances balance.Service,
	auditor audit.Recorder,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("approval.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("approval.service")
	}
	return &service{
		db:          db,
		repo:        repo,
		leaveRepo:   leaveRepo,
		balanceRepo: balanceRepo,
		balances:    balances,
		auditor:     auditor,
		logger:      l,
	}
}

// Approve flips a SUBMITTED request to APPROVED and debits the balance
// ledger in one transaction. The balance row is read under a row lock so
// concurrent approvals against the same ledger serialize on it.
func (s *service) Approve(ctx context.Context, leaveRequestID, approverID, comments string) (DecisionResponse, error) {
	rid := contextutil.GetRequestID(ctx)
	s.logger.Debug("approve leave request",
		zap.String("request_id", rid),
		zap.String("leave_id", leaveRequestID),
		zap.String("approver_id", approverID),
	)

	approverUUID, err := uuid.Parse(approverID)
	if err != nil {
		return DecisionResponse{}, approvalerrors.ErrInvalidApproverID
	}
	requestUUID, err := uuid.Parse(leaveRequestID)
	if err != nil {
		return DecisionResponse{}, approvalerrors.ErrInvalidRequestID
	}

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		s.logger.Error("approve begin tx failed", zap.Error(tx.Error))
		return DecisionResponse{}, tx.Error
	}
	defer tx.Rollback()

	l, err := s.leaveRepo.WithTx(tx).FindByID(ctx, leaveRequestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return DecisionResponse{}, approvalerrors.ErrLeaveNotFound
		}
		return DecisionResponse{}, err
	}
	if l.Status != leave.StatusSubmitted {
		return DecisionResponse{}, approvalerrors.ErrNotSubmitted
	}

	// Authoritative balance check, taken with FOR UPDATE so the debit
	// below cannot race another approval of the same ledger row.
	year := time.Now().UTC().Year()
	b, err := s.balanceRepo.WithTx(tx).FindForUpdate(ctx, l.UserID.String(), l.CountryCode, l.LeaveType, year)
	hasBalance := true
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("approve balance lookup failed", zap.Error(err))
			return DecisionResponse{}, err
		}
		hasBalance = false
	}
	if hasBalance && l.TotalDays.GreaterThan(b.AvailableDays) {
		shortfall := l.TotalDays.Sub(b.AvailableDays)
		s.logger.Warn("approve insufficient balance",
			zap.String("leave_id", leaveRequestID),
			zap.String("requested", l.TotalDays.String()),
			zap.String("available", b.AvailableDays.String()),
		)
		return DecisionResponse{}, apperror.Withf(approvalerrors.ErrInsufficientBalance,
			"requested %s days, available %s, short by %s",
			l.TotalDays.String(), b.AvailableDays.String(), shortfall.String(),
		)
	}

	priorStatus := l.Status
	l.Status = leave.StatusApproved
	if err := s.leaveRepo.WithTx(tx).Update(ctx, l); err != nil {
		s.logger.Error("approve status update failed", zap.Error(err))
		return DecisionResponse{}, err
	}

	row := &LeaveApproval{
		ID:             uuid.New(),
		LeaveRequestID: requestUUID,
		ApproverID:     approverUUID,
		Decision:       leave.StatusApproved,
		Comments:       comments,
		DecidedAt:      time.Now().UTC(),
	}
	if err := s.repo.WithTx(tx).Create(ctx, row); err != nil {
		s.logger.Error("approve decision insert failed", zap.Error(err))
		return DecisionResponse{}, err
	}

	if hasBalance {
		b.UsedDays = b.UsedDays.Add(l.TotalDays)
		b.Recompute()
		if err := s.balanceRepo.WithTx(tx).Update(ctx, b); err != nil {
			s.logger.Error("approve balance debit failed", zap.Error(err))
			return DecisionResponse{}, err
		}
	}

	if err := s.auditor.Record(ctx, tx, audit.Entry{
		Action:      "LEAVE_APPROVED",
		EntityType:  "leave_request",
		EntityID:    leaveRequestID,
		ActorUserID: approverID,
		ActorRole:   contextutil.GetRole(ctx),
		Changes: map[string]any{
			"prior_status": priorStatus,
			"new_status":   leave.StatusApproved,
			"comments":     comments,
			"total_days":   l.TotalDays.String(),
		},
	}); err != nil {
		return DecisionResponse{}, err
	}

	if err := tx.Commit().Error; err != nil {
		s.logger.Error("approve commit failed", zap.Error(err))
		return DecisionResponse{}, err
	}

	// Cache invalidation only after the debit is durable.
	if hasBalance {
		s.balances.Invalidate(ctx, l.UserID.String(), l.CountryCode, year)
	}
	s.logger.Info("approve leave success",
		zap.String("request_id", rid),
		zap.String("leave_id", leaveRequestID),
		zap.String("approver_id", approverID),
	)

	return s.decisionResponse(ctx, l)
}

func (s *service) Reject(ctx context.Context, leaveRequestID, approverID, comments string) (DecisionResponse, error) {
	s.logger.Debug("reject leave request",
		zap.String("leave_id", leaveRequestID),
		zap.String("approver_id", approverID),
	)

	if comments == "" {
		return DecisionResponse{}, approvalerrors.ErrCommentsRequired
	}
	approverUUID, err := uuid.Parse(approverID)
	if err != nil {
		return DecisionResponse{}, approvalerrors.ErrInvalidApproverID
	}
	requestUUID, err := uuid.Parse(leaveRequestID)
	if err != nil {
		return DecisionResponse{}, approvalerrors.ErrInvalidRequestID
	}

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		s.logger.Error("reject begin tx failed", zap.Error(tx.Error))
		return DecisionResponse{}, tx.Error
	}
	defer tx.Rollback()

	l, err := s.leaveRepo.WithTx(tx).FindByID(ctx, leaveRequestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return DecisionResponse{}, approvalerrors.ErrLeaveNotFound
		}
		return DecisionResponse{}, err
	}
	if l.Status != leave.StatusSubmitted {
		return DecisionResponse{}, approvalerrors.ErrNotSubmitted
	}

	priorStatus := l.Status
	l.Status = leave.StatusRejected
	if err := s.leaveRepo.WithTx(tx).Update(ctx, l); err != nil {
		s.logger.Error("reject status update failed", zap.Error(err))
		return DecisionResponse{}, err
	}

	row := &LeaveApproval{
		ID:             uuid.New(),
		LeaveRequestID: requestUUID,
		ApproverID:     approverUUID,
		Decision:       leave.StatusRejected,
		Comments:       comments,
		DecidedAt:      time.Now().UTC(),
	}
	if err := s.repo.WithTx(tx).Create(ctx, row); err != nil {
		s.logger.Error("reject decision insert failed", zap.Error(err))
		return DecisionResponse{}, err
	}

	if err := s.auditor.Record(ctx, tx, audit.Entry{
		Action:      "LEAVE_REJECTED",
		EntityType:  "leave_request",
		EntityID:    leaveRequestID,
		ActorUserID: approverID,
		ActorRole:   contextutil.GetRole(ctx),
		Changes: map[string]any{
			"prior_status": priorStatus,
			"new_status":   leave.StatusRejected,
			"comments":     comments,
		},
	}); err != nil {
		return DecisionResponse{}, err
	}

	if err := tx.Commit().Error; err != nil {
		s.logger.Error("reject commit failed", zap.Error(err))
		return DecisionResponse{}, err
	}
	s.logger.Info("reject leave success",
		zap.String("leave_id", leaveRequestID),
		zap.String("approver_id", approverID),
	)

	return s.decisionResponse(ctx, l)
}

// BulkApprove processes ids strictly in the order supplied. Each item runs
// its own approve transaction, so a debit committed by an earlier item is
// visible to the authoritative check of every later item in the batch.
func (s *service) BulkApprove(ctx context.Context, leaveRequestIDs []string, approverID, comments string) (BulkApproveResponse, error) {
	if len(leaveRequestIDs) == 0 {
		return BulkApproveResponse{}, approvalerrors.ErrEmptyBulkRequest
	}

	result := BulkApproveResponse{
		Approved: make([]string, 0, len(leaveRequestIDs)),
		Failed:   make([]BulkFailure, 0),
	}
	for _, id := range leaveRequestIDs {
		if _, err := s.Approve(ctx, id, approverID, comments); err != nil {
			result.Failed = append(result.Failed, BulkFailure{ID: id, Reason: err.Error()})
			continue
		}
		result.Approved = append(result.Approved, id)
	}

	if err := s.auditor.Record(ctx, nil, audit.Entry{
		Action:      "LEAVE_BULK_APPROVED",
		EntityType:  "leave_request",
		EntityID:    "batch",
		ActorUserID: approverID,
		ActorRole:   contextutil.GetRole(ctx),
		Changes: map[string]any{
			"requested": len(leaveRequestIDs),
			"approved":  len(result.Approved),
			"failed":    len(result.Failed),
		},
	}); err != nil {
		s.logger.Error("bulk approve audit failed", zap.Error(err))
	}

	s.logger.Info("bulk approve finished",
		zap.String("approver_id", approverID),
		zap.Int("approved", len(result.Approved)),
		zap.Int("failed", len(result.Failed)),
	)
	return result, nil
}

func (s *service) GetHistory(ctx context.Context, leaveRequestID string) ([]ApprovalResponse, error) {
	if _, err := uuid.Parse(leaveRequestID); err != nil {
		return nil, approvalerrors.ErrInvalidRequestID
	}
	if _, err := s.leaveRepo.FindByID(ctx, leaveRequestID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, approvalerrors.ErrLeaveNotFound
		}
		return nil, err
	}

	rows, err := s.repo.FindByRequestID(ctx, leaveRequestID)
	if err != nil {
		return nil, err
	}
	return mapToHistoryResponse(rows), nil
}

func (s *service) decisionResponse(ctx context.Context, l *leave.LeaveRequest) (DecisionResponse, error) {
	rows, err := s.repo.FindByRequestID(ctx, l.ID.String())
	if err != nil {
		return DecisionResponse{}, err
	}
	return DecisionResponse{
		Request: leave.MapToResponse(*l),
		History: mapToHistoryResponse(rows),
	}, nil
}

func mapToHistoryResponse(rows []LeaveApproval) []ApprovalResponse {
	resp := make([]ApprovalResponse, len(rows))
	for i, a := range rows {
		resp[i] = ApprovalResponse{
			ID:             a.ID.String(),
			LeaveRequestID: a.LeaveRequestID.String(),
			ApproverID:     a.ApproverID.String(),
			Decision:       a.Decision,
			Comments:       a.Comments,
			DecidedAt:      a.DecidedAt.UTC().Format(time.RFC3339),
		}
	}
	return resp
}
