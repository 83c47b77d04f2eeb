package balance_test

import (
	"context"
	"fmt"
	"testing"

	"go-leave/internal/audit"
	"go-leave/internal/balance"
	balanceerrors "go-leave/internal/balance/errors"
	"go-leave/internal/shared/cache"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type fakeBalanceRepository struct {
	createFn            func(ctx context.Context, b *balance.LeaveBalance) error
	updateFn            func(ctx context.Context, b *balance.LeaveBalance) error
	findFn              func(ctx context.Context, userID, country, leaveType string, year int) (*balance.LeaveBalance, error)
	findAllByUserYearFn func(ctx context.Context, userID, country string, year int) ([]balance.LeaveBalance, error)
}

func (f *fakeBalanceRepository) WithTx(tx *gorm.DB) balance.Repository {
	return f
}

func (f *fakeBalanceRepository) Create(ctx context.Context, b *balance.LeaveBalance) error {
	if f.createFn != nil {
		return f.createFn(ctx, b)
	}
	return nil
}

func (f *fakeBalanceRepository) Update(ctx context.Context, b *balance.LeaveBalance) error {
	if f.updateFn != nil {
		return f.updateFn(ctx, b)
	}
	return nil
}

func (f *fakeBalanceRepository) Find(ctx context.Context, userID, country, leaveType string, year int) (*balance.LeaveBalance, error) {
	if f.findFn != nil {
		return f.findFn(ctx, userID, country, leaveType, year)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeBalanceRepository) FindForUpdate(ctx context.Context, userID, country, leaveType string, year int) (*balance.LeaveBalance, error) {
	return f.Find(ctx, userID, country, leaveType, year)
}

func (f *fakeBalanceRepository) FindAllByUserYear(ctx context.Context, userID, country string, year int) ([]balance.LeaveBalance, error) {
	if f.findAllByUserYearFn != nil {
		return f.findAllByUserYearFn(ctx, userID, country, year)
	}
	return nil, nil
}

type fakeRecorder struct {
	entries []audit.Entry
}

func (f *fakeRecorder) Record(ctx context.Context, tx *gorm.DB, entry audit.Entry) error {
	f.entries = append(f.entries, entry)
	return nil
}

type balanceServiceDeps struct {
	sqlMock  sqlmock.Sqlmock
	service  balance.Service
	repo     *fakeBalanceRepository
	store    *cache.MemoryStore
	recorder *fakeRecorder
	close    func()
}

func setupBalanceServiceTest(t *testing.T) *balanceServiceDeps {
	t.Helper()

	db, sqlMock, err := sqlmock.New()
	assert.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	assert.NoError(t, err)

	repo := &fakeBalanceRepository{}
	store := cache.NewMemoryStore()
	recorder := &fakeRecorder{}
	svc := balance.NewService(gormDB, repo, balance.DefaultCatalog(), store, recorder)

	return &balanceServiceDeps{
		sqlMock:  sqlMock,
		service:  svc,
		repo:     repo,
		store:    store,
		recorder: recorder,
		close:    func() { db.Close() },
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

func TestBalanceService_InitializeBalances(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New().String()

	t.Run("success creates one row per leave type", func(t *testing.T) {
		deps := setupBalanceServiceTest(t)
		defer deps.close()

		deps.sqlMock.ExpectBegin()
		for i := 0; i < 6; i++ {
			deps.sqlMock.ExpectExec(fmt.Sprintf("SAVEPOINT sp_init_%d", i)).
				WillReturnResult(sqlmock.NewResult(0, 0))
		}
		deps.sqlMock.ExpectCommit()
		var created []balance.LeaveBalance
		deps.repo.createFn = func(ctx context.Context, b *balance.LeaveBalance) error {
			created = append(created, *b)
			return nil
		}

		resp, err := deps.service.InitializeBalances(ctx, userID, "IN", 2026)

		assert.NoError(t, err)
		assert.Len(t, resp, 6)
		assert.Len(t, created, 6)
		for _, b := range created {
			assert.True(t, b.AvailableDays.Equal(b.TotalDays.Sub(b.UsedDays)))
			assert.True(t, b.UsedDays.IsZero())
		}
		assert.Len(t, deps.recorder.entries, 1)
		assert.Equal(t, "BALANCES_INITIALIZED", deps.recorder.entries[0].Action)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("idempotent when rows exist", func(t *testing.T) {
		deps := setupBalanceServiceTest(t)
		defer deps.close()

		expectTx(t, deps.sqlMock, true)
		deps.repo.findFn = func(ctx context.Context, uid, country, leaveType string, year int) (*balance.LeaveBalance, error) {
			return &balance.LeaveBalance{LeaveType: leaveType}, nil
		}
		deps.repo.createFn = func(ctx context.Context, b *balance.LeaveBalance) error {
			t.Fatal("existing rows must not be recreated")
			return nil
		}

		resp, err := deps.service.InitializeBalances(ctx, userID, "IN", 2026)

		assert.NoError(t, err)
		assert.Empty(t, resp)
		assert.Empty(t, deps.recorder.entries)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("losing an insert race keeps the remaining types", func(t *testing.T) {
		deps := setupBalanceServiceTest(t)
		defer deps.close()

		deps.sqlMock.ExpectBegin()
		deps.sqlMock.ExpectExec("SAVEPOINT sp_init_0").
			WillReturnResult(sqlmock.NewResult(0, 0))
		deps.sqlMock.ExpectExec("ROLLBACK TO SAVEPOINT sp_init_0").
			WillReturnResult(sqlmock.NewResult(0, 0))
		for i := 1; i < 6; i++ {
			deps.sqlMock.ExpectExec(fmt.Sprintf("SAVEPOINT sp_init_%d", i)).
				WillReturnResult(sqlmock.NewResult(0, 0))
		}
		deps.sqlMock.ExpectCommit()

		var created []balance.LeaveBalance
		deps.repo.createFn = func(ctx context.Context, b *balance.LeaveBalance) error {
			if b.LeaveType == "ANNUAL_LEAVE" {
				return &pgconn.PgError{Code: "23505"}
			}
			created = append(created, *b)
			return nil
		}

		resp, err := deps.service.InitializeBalances(ctx, userID, "IN", 2026)

		assert.NoError(t, err)
		assert.Len(t, resp, 5)
		assert.Len(t, created, 5)
		for _, b := range created {
			assert.NotEqual(t, "ANNUAL_LEAVE", b.LeaveType)
		}
		assert.Len(t, deps.recorder.entries, 1)
		assert.Equal(t, "BALANCES_INITIALIZED", deps.recorder.entries[0].Action)
		assert.Equal(t, 5, deps.recorder.entries[0].Changes["created"])
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative unknown country", func(t *testing.T) {
		deps := setupBalanceServiceTest(t)
		defer deps.close()

		_, err := deps.service.InitializeBalances(ctx, userID, "ZZ", 2026)

		assert.ErrorIs(t, err, balanceerrors.ErrUnknownCountry)
	})

	t.Run("negative bad user id", func(t *testing.T) {
		deps := setupBalanceServiceTest(t)
		defer deps.close()

		_, err := deps.service.InitializeBalances(ctx, "not-a-uuid", "IN", 2026)

		assert.ErrorIs(t, err, balanceerrors.ErrInvalidUserID)
	})
}

func TestBalanceService_Accrue(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New().String()

	t.Run("adds rate and keeps the invariant", func(t *testing.T) {
		deps := setupBalanceServiceTest(t)
		defer deps.close()

		expectTx(t, deps.sqlMock, true)
		deps.repo.findAllByUserYearFn = func(ctx context.Context, uid, country string, year int) ([]balance.LeaveBalance, error) {
			return []balance.LeaveBalance{
				{
					LeaveType:     "ANNUAL_LEAVE",
					TotalDays:     decimal.NewFromInt(21),
					UsedDays:      decimal.NewFromInt(3),
					AvailableDays: decimal.NewFromInt(18),
					AccrualRate:   decimal.RequireFromString("1.75"),
				},
				{
					LeaveType:   "MATERNITY_LEAVE",
					TotalDays:   decimal.NewFromInt(182),
					AccrualRate: decimal.Zero,
				},
			}, nil
		}
		var updated []balance.LeaveBalance
		deps.repo.updateFn = func(ctx context.Context, b *balance.LeaveBalance) error {
			updated = append(updated, *b)
			return nil
		}

		resp, err := deps.service.Accrue(ctx, userID, "IN", 2026)

		assert.NoError(t, err)
		assert.Len(t, resp, 1)
		assert.Len(t, updated, 1)
		assert.Equal(t, "ANNUAL_LEAVE", updated[0].LeaveType)
		assert.True(t, updated[0].TotalDays.Equal(decimal.RequireFromString("22.75")))
		assert.True(t, updated[0].AvailableDays.Equal(decimal.RequireFromString("19.75")))
		assert.Equal(t, "LEAVE_ACCRUED", deps.recorder.entries[0].Action)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("no positive rates is a no-op", func(t *testing.T) {
		deps := setupBalanceServiceTest(t)
		defer deps.close()

		expectTx(t, deps.sqlMock, true)
		deps.repo.findAllByUserYearFn = func(ctx context.Context, uid, country string, year int) ([]balance.LeaveBalance, error) {
			return []balance.LeaveBalance{
				{LeaveType: "MATERNITY_LEAVE", TotalDays: decimal.NewFromInt(182)},
			}, nil
		}

		resp, err := deps.service.Accrue(ctx, userID, "IN", 2026)

		assert.NoError(t, err)
		assert.Empty(t, resp)
		assert.Empty(t, deps.recorder.entries)
	})

	t.Run("uninitialized ledger is reported", func(t *testing.T) {
		deps := setupBalanceServiceTest(t)
		defer deps.close()

		expectTx(t, deps.sqlMock, false)
		deps.repo.updateFn = func(ctx context.Context, b *balance.LeaveBalance) error {
			t.Fatal("nothing must be written without a ledger")
			return nil
		}

		_, err := deps.service.Accrue(ctx, userID, "IN", 2026)

		assert.ErrorIs(t, err, balanceerrors.ErrBalanceNotFound)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})
}

func TestBalanceService_CalculateImpact(t *testing.T) {
	t.Run("unpaid leave deducts by daily rate", func(t *testing.T) {
		deps := setupBalanceServiceTest(t)
		defer deps.close()

		resp, err := deps.service.CalculateImpact(balance.ImpactRequest{
			LeaveType:   "UNPAID_LEAVE",
			TotalDays:   decimal.NewFromInt(2),
			IsPaid:      false,
			BaseSalary:  decimal.NewFromInt(2600),
			CountryCode: "IN",
		})

		assert.NoError(t, err)
		assert.True(t, resp.DailyRate.Equal(decimal.NewFromInt(100)))
		assert.True(t, resp.DeductionAmount.Equal(decimal.NewFromInt(200)))
		assert.True(t, resp.PaidAmount.IsZero())
	})

	t.Run("paid leave reports paid amount", func(t *testing.T) {
		deps := setupBalanceServiceTest(t)
		defer deps.close()

		resp, err := deps.service.CalculateImpact(balance.ImpactRequest{
			LeaveType:   "ANNUAL_LEAVE",
			TotalDays:   decimal.NewFromInt(3),
			IsPaid:      true,
			BaseSalary:  decimal.NewFromInt(2600),
			CountryCode: "IN",
		})

		assert.NoError(t, err)
		assert.True(t, resp.PaidAmount.Equal(decimal.NewFromInt(300)))
		assert.True(t, resp.DeductionAmount.IsZero())
	})

	t.Run("amounts round to cents", func(t *testing.T) {
		deps := setupBalanceServiceTest(t)
		defer deps.close()

		resp, err := deps.service.CalculateImpact(balance.ImpactRequest{
			LeaveType:   "ANNUAL_LEAVE",
			TotalDays:   decimal.RequireFromString("1.5"),
			IsPaid:      true,
			BaseSalary:  decimal.NewFromInt(1000),
			CountryCode: "AU",
		})

		assert.NoError(t, err)
		// 1000 / 22 = 45.45 rounded, x 1.5 = 68.18 rounded
		assert.True(t, resp.DailyRate.Equal(decimal.RequireFromString("45.45")))
		assert.True(t, resp.PaidAmount.Equal(decimal.RequireFromString("68.18")))
	})

	t.Run("negative validation", func(t *testing.T) {
		deps := setupBalanceServiceTest(t)
		defer deps.close()

		_, err := deps.service.CalculateImpact(balance.ImpactRequest{
			LeaveType: "ANNUAL_LEAVE", TotalDays: decimal.NewFromInt(1),
			BaseSalary: decimal.NewFromInt(1000), CountryCode: "ZZ",
		})
		assert.ErrorIs(t, err, balanceerrors.ErrUnknownCountry)

		_, err = deps.service.CalculateImpact(balance.ImpactRequest{
			LeaveType: "VACATION_LEAVE", TotalDays: decimal.NewFromInt(1),
			BaseSalary: decimal.NewFromInt(1000), CountryCode: "IN",
		})
		assert.ErrorIs(t, err, balanceerrors.ErrInvalidLeaveType)

		_, err = deps.service.CalculateImpact(balance.ImpactRequest{
			LeaveType: "ANNUAL_LEAVE", TotalDays: decimal.RequireFromString("0.25"),
			BaseSalary: decimal.NewFromInt(1000), CountryCode: "IN",
		})
		assert.ErrorIs(t, err, balanceerrors.ErrInvalidTotalDays)

		_, err = deps.service.CalculateImpact(balance.ImpactRequest{
			LeaveType: "ANNUAL_LEAVE", TotalDays: decimal.NewFromInt(1),
			BaseSalary: decimal.Zero, CountryCode: "IN",
		})
		assert.ErrorIs(t, err, balanceerrors.ErrInvalidBaseSalary)
	})
}

func TestBalanceService_GetBalances(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New().String()

	t.Run("second read is served from cache", func(t *testing.T) {
		deps := setupBalanceServiceTest(t)
		defer deps.close()

		calls := 0
		deps.repo.findAllByUserYearFn = func(ctx context.Context, uid, country string, year int) ([]balance.LeaveBalance, error) {
			calls++
			return []balance.LeaveBalance{
				{
					ID:        uuid.New(),
					UserID:    uuid.MustParse(userID),
					LeaveType: "ANNUAL_LEAVE",
					TotalDays: decimal.NewFromInt(21),
				},
			}, nil
		}

		first, err := deps.service.GetBalances(ctx, userID, "IN", 2026)
		assert.NoError(t, err)
		second, err := deps.service.GetBalances(ctx, userID, "IN", 2026)
		assert.NoError(t, err)

		assert.Equal(t, 1, calls)
		assert.Len(t, second, 1)
		assert.Equal(t, first[0].ID, second[0].ID)
		assert.True(t, second[0].TotalDays.Equal(first[0].TotalDays))
	})

	t.Run("invalidate forces a reload", func(t *testing.T) {
		deps := setupBalanceServiceTest(t)
		defer deps.close()

		calls := 0
		deps.repo.findAllByUserYearFn = func(ctx context.Context, uid, country string, year int) ([]balance.LeaveBalance, error) {
			calls++
			return nil, nil
		}

		_, err := deps.service.GetBalances(ctx, userID, "IN", 2026)
		assert.NoError(t, err)

		deps.service.Invalidate(ctx, userID, "IN", 2026)

		_, err = deps.service.GetBalances(ctx, userID, "IN", 2026)
		assert.NoError(t, err)
		assert.Equal(t, 2, calls)
	})
}

func TestBalanceService_GetSummary(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New().String()

	t.Run("sums across leave types", func(t *testing.T) {
		deps := setupBalanceServiceTest(t)
		defer deps.close()

		deps.repo.findAllByUserYearFn = func(ctx context.Context, uid, country string, year int) ([]balance.LeaveBalance, error) {
			return []balance.LeaveBalance{
				{TotalDays: decimal.NewFromInt(21), UsedDays: decimal.NewFromInt(3), AvailableDays: decimal.NewFromInt(18)},
				{TotalDays: decimal.NewFromInt(12), UsedDays: decimal.NewFromInt(1), AvailableDays: decimal.NewFromInt(11)},
			}, nil
		}

		resp, err := deps.service.GetSummary(ctx, userID, "IN", 2026)

		assert.NoError(t, err)
		assert.Equal(t, 2, resp.LeaveTypes)
		assert.True(t, resp.TotalDays.Equal(decimal.NewFromInt(33)))
		assert.True(t, resp.UsedDays.Equal(decimal.NewFromInt(4)))
		assert.True(t, resp.AvailableDays.Equal(decimal.NewFromInt(29)))
	})
}
