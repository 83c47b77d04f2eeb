package approval_test

import (
	"context"
	"testing"
	"time"

	"go-leave/internal/approval"
	approvalerrors "go-leave/internal/approval/errors"
	"go-leave/internal/audit"
	"go-leave/internal/balance"
	"go-leave/internal/leave"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type fakeApprovalRepository struct {
	createFn          func(ctx context.Context, a *approval.LeaveApproval) error
	findByRequestIDFn func(ctx context.Context, leaveRequestID string) ([]approval.LeaveApproval, error)
}

func (f *fakeApprovalRepository) WithTx(tx *gorm.DB) approval.Repository {
	return f
}

func (f *fakeApprovalRepository) Create(ctx context.Context, a *approval.LeaveApproval) error {
	if f.createFn != nil {
		return f.createFn(ctx, a)
	}
	return nil
}

func (f *fakeApprovalRepository) FindByRequestID(ctx context.Context, leaveRequestID string) ([]approval.LeaveApproval, error) {
	if f.findByRequestIDFn != nil {
		return f.findByRequestIDFn(ctx, leaveRequestID)
	}
	return nil, nil
}

type fakeLeaveRepository struct {
	findByIDFn func(ctx context.Context, id string) (*leave.LeaveRequest, error)
	updateFn   func(ctx context.Context, l *leave.LeaveRequest) error
}

func (f *fakeLeaveRepository) WithTx(tx *gorm.DB) leave.Repository {
	return f
}

func (f *fakeLeaveRepository) Create(ctx context.Context, l *leave.LeaveRequest) error {
	return nil
}

func (f *fakeLeaveRepository) FindByID(ctx context.Context, id string) (*leave.LeaveRequest, error) {
	if f.findByIDFn != nil {
		return f.findByIDFn(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeLeaveRepository) FindAll(ctx context.Context, filters leave.ListFilters, scopes ...func(*gorm.DB) *gorm.DB) ([]leave.LeaveRequest, int64, error) {
	return nil, 0, nil
}

func (f *fakeLeaveRepository) Update(ctx context.Context, l *leave.LeaveRequest) error {
	if f.updateFn != nil {
		return f.updateFn(ctx, l)
	}
	return nil
}

func (f *fakeLeaveRepository) Delete(ctx context.Context, id string) error {
	return nil
}

func (f *fakeLeaveRepository) HasOverlappingPeriod(ctx context.Context, userID string, startDate, endDate time.Time, excludeID *string) (bool, error) {
	return false, nil
}

type fakeBalanceRepository struct {
	findForUpdateFn func(ctx context.Context, userID, country, leaveType string, year int) (*balance.LeaveBalance, error)
	updateFn        func(ctx context.Context, b *balance.LeaveBalance) error
}

func (f *fakeBalanceRepository) WithTx(tx *gorm.DB) balance.Repository {
	return f
}

func (f *fakeBalanceRepository) Create(ctx context.Context, b *balance.LeaveBalance) error {
	return nil
}

func (f *fakeBalanceRepository) Update(ctx context.Context, b *balance.LeaveBalance) error {
	if f.updateFn != nil {
		return f.updateFn(ctx, b)
	}
	return nil
}

func (f *fakeBalanceRepository) Find(ctx context.Context, userID, country, leaveType string, year int) (*balance.LeaveBalance, error) {
	return f.FindForUpdate(ctx, userID, country, leaveType, year)
}

func (f *fakeBalanceRepository) FindForUpdate(ctx context.Context, userID, country, leaveType string, year int) (*balance.LeaveBalance, error) {
	if f.findForUpdateFn != nil {
		return f.findForUpdateFn(ctx, userID, country, leaveType, year)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeBalanceRepository) FindAllByUserYear(ctx context.Context, userID, country string, year int) ([]balance.LeaveBalance, error) {
	return nil, nil
}

type invalidation struct {
	userID  string
	country string
	year    int
}

type fakeBalanceService struct {
	invalidated []invalidation
}

func (f *fakeBalanceService) IsValidLeaveType(country, leaveType string) bool { return true }

func (f *fakeBalanceService) InitializeBalances(ctx context.Context, userID, country string, year int) ([]balance.BalanceResponse, error) {
	return nil, nil
}

func (f *fakeBalanceService) Accrue(ctx context.Context, userID, country string, year int) ([]balance.BalanceResponse, error) {
	return nil, nil
}

func (f *fakeBalanceService) CalculateImpact(req balance.ImpactRequest) (balance.ImpactResponse, error) {
	return balance.ImpactResponse{}, nil
}

func (f *fakeBalanceService) GetBalances(ctx context.Context, userID, country string, year int) ([]balance.BalanceResponse, error) {
	return nil, nil
}

func (f *fakeBalanceService) GetSummary(ctx context.Context, userID, country string, year int) (balance.SummaryResponse, error) {
	return balance.SummaryResponse{}, nil
}

func (f *fakeBalanceService) Invalidate(ctx context.Context, userID, country string, year int) {
	f.invalidated = append(f.invalidated, invalidation{userID: userID, country: country, year: year})
}

type fakeRecorder struct {
	entries []audit.Entry
}

func (f *fakeRecorder) Record(ctx context.Context, tx *gorm.DB, entry audit.Entry) error {
	f.entries = append(f.entries, entry)
	return nil
}

type approvalServiceDeps struct {
	sqlMock     sqlmock.Sqlmock
	service     approval.Service
	repo        *fakeApprovalRepository
	leaveRepo   *fakeLeaveRepository
	balanceRepo *fakeBalanceRepository
	balances    *fakeBalanceService
	recorder    *fakeRecorder
	close       func()
}

func setupApprovalServiceTest(t *testing.T) *approvalServiceDeps {
	t.Helper()

	db, sqlMock, err := sqlmock.New()
	assert.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	assert.NoError(t, err)

	repo := &fakeApprovalRepository{}
	leaveRepo := &fakeLeaveRepository{}
	balanceRepo := &fakeBalanceRepository{}
	balances := &fakeBalanceService{}
	recorder := &fakeRecorder{}
	svc := approval.NewService(gormDB, repo, leaveRepo, balanceRepo, balances, recorder)

	return &approvalServiceDeps{
		sqlMock:     sqlMock,
		service:     svc,
		repo:        repo,
		leaveRepo:   leaveRepo,
		balanceRepo: balanceRepo,
		balances:    balances,
		recorder:    recorder,
		close:       func() { db.Close() },
	}
}

func expectTx(t *testing.T, mock sqlmock.Sqlmock, commit bool) {
	t.Helper()
	mock.ExpectBegin()
	if commit {
		mock.ExpectCommit()
	} else {
		mock.ExpectRollback()
	}
}

func submittedRequest(days int64) *leave.LeaveRequest {
	return &leave.LeaveRequest{
		ID:          uuid.New(),
		ClientID:    uuid.New(),
		UserID:      uuid.New(),
		CountryCode: "IN",
		LeaveType:   "ANNUAL_LEAVE",
		StartDate:   time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2026, 9, 1+int(days)-1, 0, 0, 0, 0, time.UTC),
		TotalDays:   decimal.NewFromInt(days),
		IsPaid:      true,
		Status:      leave.StatusSubmitted,
	}
}

func ledger(total, used int64) *balance.LeaveBalance {
	b := &balance.LeaveBalance{
		ID:          uuid.New(),
		CountryCode: "IN",
		LeaveType:   "ANNUAL_LEAVE",
		Year:        time.Now().UTC().Year(),
		TotalDays:   decimal.NewFromInt(total),
		UsedDays:    decimal.NewFromInt(used),
	}
	b.Recompute()
	return b
}

func TestApprovalService_Approve(t *testing.T) {
	ctx := context.Background()
	approverID := uuid.New().String()

	t.Run("success debits balance", func(t *testing.T) {
		deps := setupApprovalServiceTest(t)
		defer deps.close()

		l := submittedRequest(3)
		b := ledger(21, 0)
		b.UserID = l.UserID

		expectTx(t, deps.sqlMock, true)
		deps.leaveRepo.findByIDFn = func(ctx context.Context, id string) (*leave.LeaveRequest, error) {
			return l, nil
		}
		deps.balanceRepo.findForUpdateFn = func(ctx context.Context, userID, country, leaveType string, year int) (*balance.LeaveBalance, error) {
			assert.Equal(t, l.UserID.String(), userID)
			assert.Equal(t, "IN", country)
			assert.Equal(t, "ANNUAL_LEAVE", leaveType)
			return b, nil
		}
		var debited *balance.LeaveBalance
		deps.balanceRepo.updateFn = func(ctx context.Context, got *balance.LeaveBalance) error {
			debited = got
			return nil
		}
		var decision *approval.LeaveApproval
		deps.repo.createFn = func(ctx context.Context, a *approval.LeaveApproval) error {
			decision = a
			return nil
		}

		resp, err := deps.service.Approve(ctx, l.ID.String(), approverID, "ok")

		assert.NoError(t, err)
		assert.Equal(t, leave.StatusApproved, resp.Request.Status)
		assert.NotNil(t, debited)
		assert.True(t, debited.UsedDays.Equal(decimal.NewFromInt(3)))
		assert.True(t, debited.AvailableDays.Equal(decimal.NewFromInt(18)))
		assert.NotNil(t, decision)
		assert.Equal(t, leave.StatusApproved, decision.Decision)
		assert.Equal(t, approverID, decision.ApproverID.String())
		assert.Len(t, deps.balances.invalidated, 1)
		assert.Equal(t, l.UserID.String(), deps.balances.invalidated[0].userID)
		assert.Len(t, deps.recorder.entries, 1)
		assert.Equal(t, "LEAVE_APPROVED", deps.recorder.entries[0].Action)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative insufficient balance rolls back", func(t *testing.T) {
		deps := setupApprovalServiceTest(t)
		defer deps.close()

		l := submittedRequest(25)
		b := ledger(21, 0)
		b.UserID = l.UserID

		expectTx(t, deps.sqlMock, false)
		deps.leaveRepo.findByIDFn = func(ctx context.Context, id string) (*leave.LeaveRequest, error) {
			return l, nil
		}
		deps.balanceRepo.findForUpdateFn = func(ctx context.Context, userID, country, leaveType string, year int) (*balance.LeaveBalance, error) {
			return b, nil
		}
		deps.balanceRepo.updateFn = func(ctx context.Context, got *balance.LeaveBalance) error {
			t.Fatal("balance must not be written")
			return nil
		}

		_, err := deps.service.Approve(ctx, l.ID.String(), approverID, "")

		assert.ErrorIs(t, err, approvalerrors.ErrInsufficientBalance)
		assert.Contains(t, err.Error(), "short by 4")
		assert.Equal(t, leave.StatusSubmitted, l.Status)
		assert.True(t, b.UsedDays.IsZero())
		assert.Empty(t, deps.balances.invalidated)
		assert.Empty(t, deps.recorder.entries)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("missing balance row approves without debit", func(t *testing.T) {
		deps := setupApprovalServiceTest(t)
		defer deps.close()

		l := submittedRequest(2)
		expectTx(t, deps.sqlMock, true)
		deps.leaveRepo.findByIDFn = func(ctx context.Context, id string) (*leave.LeaveRequest, error) {
			return l, nil
		}
		deps.balanceRepo.findForUpdateFn = func(ctx context.Context, userID, country, leaveType string, year int) (*balance.LeaveBalance, error) {
			return nil, gorm.ErrRecordNotFound
		}
		deps.balanceRepo.updateFn = func(ctx context.Context, got *balance.LeaveBalance) error {
			t.Fatal("balance must not be written")
			return nil
		}

		resp, err := deps.service.Approve(ctx, l.ID.String(), approverID, "")

		assert.NoError(t, err)
		assert.Equal(t, leave.StatusApproved, resp.Request.Status)
		assert.Empty(t, deps.balances.invalidated)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative not submitted", func(t *testing.T) {
		deps := setupApprovalServiceTest(t)
		defer deps.close()

		l := submittedRequest(2)
		l.Status = leave.StatusDraft
		expectTx(t, deps.sqlMock, false)
		deps.leaveRepo.findByIDFn = func(ctx context.Context, id string) (*leave.LeaveRequest, error) {
			return l, nil
		}

		_, err := deps.service.Approve(ctx, l.ID.String(), approverID, "")

		assert.ErrorIs(t, err, approvalerrors.ErrNotSubmitted)
	})

	t.Run("negative not found", func(t *testing.T) {
		deps := setupApprovalServiceTest(t)
		defer deps.close()

		expectTx(t, deps.sqlMock, false)
		deps.leaveRepo.findByIDFn = func(ctx context.Context, id string) (*leave.LeaveRequest, error) {
			return nil, gorm.ErrRecordNotFound
		}

		_, err := deps.service.Approve(ctx, uuid.New().String(), approverID, "")

		assert.ErrorIs(t, err, approvalerrors.ErrLeaveNotFound)
	})
}

func TestApprovalService_Reject(t *testing.T) {
	ctx := context.Background()
	approverID := uuid.New().String()

	t.Run("success", func(t *testing.T) {
		deps := setupApprovalServiceTest(t)
		defer deps.close()

		l := submittedRequest(3)
		expectTx(t, deps.sqlMock, true)
		deps.leaveRepo.findByIDFn = func(ctx context.Context, id string) (*leave.LeaveRequest, error) {
			return l, nil
		}
		var decision *approval.LeaveApproval
		deps.repo.createFn = func(ctx context.Context, a *approval.LeaveApproval) error {
			decision = a
			return nil
		}

		resp, err := deps.service.Reject(ctx, l.ID.String(), approverID, "dates clash with release")

		assert.NoError(t, err)
		assert.Equal(t, leave.StatusRejected, resp.Request.Status)
		assert.NotNil(t, decision)
		assert.Equal(t, leave.StatusRejected, decision.Decision)
		assert.Equal(t, "dates clash with release", decision.Comments)
		assert.Equal(t, "LEAVE_REJECTED", deps.recorder.entries[0].Action)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative empty comments", func(t *testing.T) {
		deps := setupApprovalServiceTest(t)
		defer deps.close()

		created := false
		deps.repo.createFn = func(ctx context.Context, a *approval.LeaveApproval) error {
			created = true
			return nil
		}

		_, err := deps.service.Reject(ctx, uuid.New().String(), approverID, "")

		assert.ErrorIs(t, err, approvalerrors.ErrCommentsRequired)
		assert.False(t, created)
	})

	t.Run("negative not submitted", func(t *testing.T) {
		deps := setupApprovalServiceTest(t)
		defer deps.close()

		l := submittedRequest(3)
		l.Status = leave.StatusApproved
		expectTx(t, deps.sqlMock, false)
		deps.leaveRepo.findByIDFn = func(ctx context.Context, id string) (*leave.LeaveRequest, error) {
			return l, nil
		}

		_, err := deps.service.Reject(ctx, l.ID.String(), approverID, "no")

		assert.ErrorIs(t, err, approvalerrors.ErrNotSubmitted)
	})
}

func TestApprovalService_BulkApprove(t *testing.T) {
	ctx := context.Background()
	approverID := uuid.New().String()

	t.Run("exhausted balance fails later items", func(t *testing.T) {
		deps := setupApprovalServiceTest(t)
		defer deps.close()

		userID := uuid.New()
		a := submittedRequest(3)
		a.UserID = userID
		b := submittedRequest(1)
		b.UserID = userID
		requests := map[string]*leave.LeaveRequest{
			a.ID.String(): a,
			b.ID.String(): b,
		}

		shared := ledger(3, 0)
		shared.UserID = userID

		// item A commits, item B fails the authoritative check and rolls back
		expectTx(t, deps.sqlMock, true)
		expectTx(t, deps.sqlMock, false)

		deps.leaveRepo.findByIDFn = func(ctx context.Context, id string) (*leave.LeaveRequest, error) {
			if l, ok := requests[id]; ok {
				return l, nil
			}
			return nil, gorm.ErrRecordNotFound
		}
		deps.balanceRepo.findForUpdateFn = func(ctx context.Context, userID, country, leaveType string, year int) (*balance.LeaveBalance, error) {
			return shared, nil
		}

		result, err := deps.service.BulkApprove(ctx, []string{a.ID.String(), b.ID.String()}, approverID, "")

		assert.NoError(t, err)
		assert.Equal(t, []string{a.ID.String()}, result.Approved)
		assert.Len(t, result.Failed, 1)
		assert.Equal(t, b.ID.String(), result.Failed[0].ID)
		assert.Contains(t, result.Failed[0].Reason, "available leave balance")
		assert.True(t, shared.AvailableDays.IsZero())

		last := deps.recorder.entries[len(deps.recorder.entries)-1]
		assert.Equal(t, "LEAVE_BULK_APPROVED", last.Action)
		assert.Equal(t, 1, last.Changes["approved"])
		assert.Equal(t, 1, last.Changes["failed"])
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative empty id list", func(t *testing.T) {
		deps := setupApprovalServiceTest(t)
		defer deps.close()

		_, err := deps.service.BulkApprove(ctx, nil, approverID, "")

		assert.ErrorIs(t, err, approvalerrors.ErrEmptyBulkRequest)
	})
}

func TestApprovalService_GetHistory(t *testing.T) {
	ctx := context.Background()

	t.Run("success most recent first", func(t *testing.T) {
		deps := setupApprovalServiceTest(t)
		defer deps.close()

		l := submittedRequest(2)
		deps.leaveRepo.findByIDFn = func(ctx context.Context, id string) (*leave.LeaveRequest, error) {
			return l, nil
		}
		newer := approval.LeaveApproval{
			ID:             uuid.New(),
			LeaveRequestID: l.ID,
			ApproverID:     uuid.New(),
			Decision:       leave.StatusApproved,
			DecidedAt:      time.Date(2026, 9, 2, 10, 0, 0, 0, time.UTC),
		}
		older := approval.LeaveApproval{
			ID:             uuid.New(),
			LeaveRequestID: l.ID,
			ApproverID:     uuid.New(),
			Decision:       leave.StatusRejected,
			Comments:       "resubmit with dates fixed",
			DecidedAt:      time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC),
		}
		deps.repo.findByRequestIDFn = func(ctx context.Context, id string) ([]approval.LeaveApproval, error) {
			return []approval.LeaveApproval{newer, older}, nil
		}

		resp, err := deps.service.GetHistory(ctx, l.ID.String())

		assert.NoError(t, err)
		assert.Len(t, resp, 2)
		assert.Equal(t, leave.StatusApproved, resp[0].Decision)
		assert.Equal(t, leave.StatusRejected, resp[1].Decision)
	})

	t.Run("negative unknown request", func(t *testing.T) {
		deps := setupApprovalServiceTest(t)
		defer deps.close()

		deps.leaveRepo.findByIDFn = func(ctx context.Context, id string) (*leave.LeaveRequest, error) {
			return nil, gorm.ErrRecordNotFound
		}

		_, err := deps.service.GetHistory(ctx, uuid.New().String())

		assert.ErrorIs(t, err, approvalerrors.ErrLeaveNotFound)
	})
}
