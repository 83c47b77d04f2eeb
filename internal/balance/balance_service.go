package balance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go-leave/internal/audit"
	balanceerrors "go-leave/internal/balance/errors"
	"go-leave/internal/shared/cache"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

const (
	// CacheTTL bounds how stale a cached balance view may get. Mutations
	// invalidate eagerly after commit; the TTL covers invalidation misses
	// from other processes.
	CacheTTL = 5 * time.Minute

	balancesKeyPrefix = "leave:balances:"
	summaryKeyPrefix  = "leave:balances:summary:"
)

func BalancesCacheKey(userID, country string, year int) string {
	return fmt.Sprintf("%s%s:%s:%d", balancesKeyPrefix, userID, country, year)
}

func SummaryCacheKey(userID, country string, year int) string {
	return fmt.Sprintf("%s%s:%s:%d", summaryKeyPrefix, userID, country, year)
}

type Service interface {
	IsValidLeaveType(country, leaveType string) bool
	InitializeBalances(ctx context.Context, userID, country string, year int) ([]BalanceResponse, error)
	Accrue(ctx context.Context, userID, country string, year int) ([]BalanceResponse, error)
	CalculateImpact(req ImpactRequest) (ImpactResponse, error)
	GetBalances(ctx context.Context, userID, country string, year int) ([]BalanceResponse, error)
	GetSummary(ctx context.Context, userID, country string, year int) (SummaryResponse, error)
	// Invalidate drops the cached balance list and summary for one
	// (user, country, year). Call it strictly after a mutating commit.
	Invalidate(ctx context.Context, userID, country string, year int)
}

type service struct {
	db      *gorm.DB
	repo    Repository
	catalog *Catalog
	store   cache.Store
	auditor audit.Recorder
	sf      *singleflight.Group
	logger  *zap.Logger
}

func NewService(
	db *gorm.DB,
	repo Repository,
	catalog *Catalog,
	store cache.Store,
	auditor audit.Recorder,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("balance.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("balance.service")
	}
	return &service{
		db:      db,
		repo:    repo,
		catalog: catalog,
		store:   store,
		auditor: auditor,
		sf:      &singleflight.Group{},
		logger:  l,
	}
}

func (s *service) IsValidLeaveType(country, leaveType string) bool {
	return s.catalog.IsValidLeaveType(country, leaveType)
}

// InitializeBalances creates the year's ledger rows for every leave type of
// the country. Existing rows are never touched; only newly created rows are
// returned, so a second call is a no-op.
func (s *service) InitializeBalances(ctx context.Context, userID, country string, year int) ([]BalanceResponse, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return nil, balanceerrors.ErrInvalidUserID
	}
	if !s.catalog.HasCountry(country) {
		return nil, balanceerrors.ErrUnknownCountry
	}

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		s.logger.Error("initialize balances begin tx failed", zap.Error(tx.Error))
		return nil, tx.Error
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	var created []LeaveBalance
	for i, lt := range s.catalog.LeaveTypes(country) {
		_, err := qtx.Find(ctx, userID, country, lt.Type, year)
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("initialize balances lookup failed",
				zap.String("leave_type", lt.Type), zap.Error(err))
			return nil, err
		}

		b := &LeaveBalance{
			ID:            uuid.New(),
			UserID:        userUUID,
			CountryCode:   country,
			LeaveType:     lt.Type,
			Year:          year,
			TotalDays:     lt.DefaultDays,
			UsedDays:      decimal.Zero,
			AvailableDays: lt.DefaultDays,
			AccrualRate:   lt.MonthlyAccrual,
		}

		// a unique violation aborts the surrounding transaction on
		// Postgres; each insert runs under a savepoint so losing a race
		// for one leave type does not poison the rest
		sp := fmt.Sprintf("sp_init_%d", i)
		if err := tx.SavePoint(sp).Error; err != nil {
			s.logger.Error("initialize balances savepoint failed", zap.Error(err))
			return nil, err
		}
		if err := qtx.Create(ctx, b); err != nil {
			if isUniqueViolation(err) {
				// a concurrent initializer won the race; treat as existing
				if err := tx.RollbackTo(sp).Error; err != nil {
					s.logger.Error("initialize balances savepoint rollback failed", zap.Error(err))
					return nil, err
				}
				continue
			}
			s.logger.Error("initialize balances persist failed",
				zap.String("leave_type", lt.Type), zap.Error(err))
			return nil, err
		}
		created = append(created, *b)
	}

	if len(created) > 0 {
		if err := s.auditor.Record(ctx, tx, audit.Entry{
			Action:      "BALANCES_INITIALIZED",
			EntityType:  "leave_balance",
			EntityID:    userID,
			ActorUserID: userID,
			Changes: map[string]any{
				"country": country,
				"year":    year,
				"created": len(created),
			},
		}); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		s.logger.Error("initialize balances commit failed", zap.Error(err))
		return nil, err
	}

	if len(created) > 0 {
		s.Invalidate(ctx, userID, country, year)
	}
	s.logger.Info("initialize balances success",
		zap.String("user_id", userID),
		zap.String("country", country),
		zap.Int("year", year),
		zap.Int("created", len(created)),
	)

	return mapToListResponse(created), nil
}

// Accrue applies one accrual cycle to every balance with a positive rate.
// The external scheduler decides when a cycle happens.
func (s *service) Accrue(ctx context.Context, userID, country string, year int) ([]BalanceResponse, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, balanceerrors.ErrInvalidUserID
	}

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		s.logger.Error("accrue begin tx failed", zap.Error(tx.Error))
		return nil, tx.Error
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	balances, err := qtx.FindAllByUserYear(ctx, userID, country, year)
	if err != nil {
		s.logger.Error("accrue list balances failed", zap.Error(err))
		return nil, err
	}
	if len(balances) == 0 {
		return nil, balanceerrors.ErrBalanceNotFound
	}

	var accrued []LeaveBalance
	for i := range balances {
		b := &balances[i]
		if !b.AccrualRate.IsPositive() {
			continue
		}
		b.TotalDays = b.TotalDays.Add(b.AccrualRate)
		b.Recompute()
		if err := qtx.Update(ctx, b); err != nil {
			s.logger.Error("accrue persist failed",
				zap.String("leave_type", b.LeaveType), zap.Error(err))
			return nil, err
		}
		accrued = append(accrued, *b)
	}

	if len(accrued) > 0 {
		if err := s.auditor.Record(ctx, tx, audit.Entry{
			Action:      "LEAVE_ACCRUED",
			EntityType:  "leave_balance",
			EntityID:    userID,
			ActorUserID: userID,
			Changes: map[string]any{
				"country": country,
				"year":    year,
				"accrued": len(accrued),
			},
		}); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		s.logger.Error("accrue commit failed", zap.Error(err))
		return nil, err
	}

	if len(accrued) > 0 {
		s.Invalidate(ctx, userID, country, year)
	}

	return mapToListResponse(accrued), nil
}

// CalculateImpact is a pure payroll calculation; it reads no state beyond the
// catalog. Amounts are rounded to 2 decimal places, matching the ledger
// columns.
func (s *service) CalculateImpact(req ImpactRequest) (ImpactResponse, error) {
	if !s.catalog.HasCountry(req.CountryCode) {
		return ImpactResponse{}, balanceerrors.ErrUnknownCountry
	}
	if !s.catalog.IsValidLeaveType(req.CountryCode, req.LeaveType) {
		return ImpactResponse{}, balanceerrors.ErrInvalidLeaveType
	}
	if req.TotalDays.LessThan(decimal.RequireFromString("0.5")) {
		return ImpactResponse{}, balanceerrors.ErrInvalidTotalDays
	}
	if !req.BaseSalary.IsPositive() {
		return ImpactResponse{}, balanceerrors.ErrInvalidBaseSalary
	}

	workingDays := decimal.NewFromInt(int64(s.catalog.WorkingDaysPerMonth(req.CountryCode)))
	dailyRate := req.BaseSalary.Div(workingDays).Round(2)
	amount := dailyRate.Mul(req.TotalDays).Round(2)

	resp := ImpactResponse{
		LeaveType:       req.LeaveType,
		CountryCode:     req.CountryCode,
		IsPaid:          req.IsPaid,
		DailyRate:       dailyRate,
		PaidAmount:      decimal.Zero,
		DeductionAmount: decimal.Zero,
	}
	if req.IsPaid {
		resp.PaidAmount = amount
	} else {
		resp.DeductionAmount = amount
	}
	return resp, nil
}

func (s *service) GetBalances(ctx context.Context, userID, country string, year int) ([]BalanceResponse, error) {
	key := BalancesCacheKey(userID, country, year)

	if cached, ok := s.store.Get(ctx, key); ok {
		var resp []BalanceResponse
		if json.Unmarshal(cached, &resp) == nil {
			return resp, nil
		}
	}

	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		balances, err := s.repo.FindAllByUserYear(ctx, userID, country, year)
		if err != nil {
			return nil, err
		}
		resp := mapToListResponse(balances)
		if data, err := json.Marshal(resp); err == nil {
			s.store.Set(ctx, key, data, CacheTTL)
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}

	return v.([]BalanceResponse), nil
}

func (s *service) GetSummary(ctx context.Context, userID, country string, year int) (SummaryResponse, error) {
	key := SummaryCacheKey(userID, country, year)

	if cached, ok := s.store.Get(ctx, key); ok {
		var resp SummaryResponse
		if json.Unmarshal(cached, &resp) == nil {
			return resp, nil
		}
	}

	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		balances, err := s.repo.FindAllByUserYear(ctx, userID, country, year)
		if err != nil {
			return SummaryResponse{}, err
		}

		resp := SummaryResponse{
			UserID:        userID,
			CountryCode:   country,
			Year:          year,
			TotalDays:     decimal.Zero,
			UsedDays:      decimal.Zero,
			AvailableDays: decimal.Zero,
			LeaveTypes:    len(balances),
		}
		for _, b := range balances {
			resp.TotalDays = resp.TotalDays.Add(b.TotalDays)
			resp.UsedDays = resp.UsedDays.Add(b.UsedDays)
			resp.AvailableDays = resp.AvailableDays.Add(b.AvailableDays)
		}

		if data, err := json.Marshal(resp); err == nil {
			s.store.Set(ctx, key, data, CacheTTL)
		}
		return resp, nil
	})
	if err != nil {
		return SummaryResponse{}, err
	}

	return v.(SummaryResponse), nil
}

func (s *service) Invalidate(ctx context.Context, userID, country string, year int) {
	s.store.Invalidate(ctx,
		BalancesCacheKey(userID, country, year),
		SummaryCacheKey(userID, country, year),
	)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func mapToResponse(b LeaveBalance) BalanceResponse {
	return BalanceResponse{
		ID:            b.ID.String(),
		UserID:        b.UserID.String(),
		CountryCode:   b.CountryCode,
		LeaveType:     b.LeaveType,
		Year:          b.Year,
		TotalDays:     b.TotalDays,
		UsedDays:      b.UsedDays,
		AvailableDays: b.AvailableDays,
		AccrualRate:   b.AccrualRate,
	}
}

func mapToListResponse(balances []LeaveBalance) []BalanceResponse {
	resp := make([]BalanceResponse, len(balances))
	for i, b := range balances {
		resp[i] = mapToResponse(b)
	}
	return resp
}
