package balance

import "github.com/shopspring/decimal"

type InitializeBalancesRequest struct {
	UserID      string `json:"user_id" binding:"required,uuid"`
	CountryCode string `json:"country_code" binding:"required,len=2"`
	Year        int    `json:"year" binding:"required,min=2000,max=2100"`
}

type AccrueRequest struct {
	UserID      string `json:"user_id" binding:"required,uuid"`
	CountryCode string `json:"country_code" binding:"required,len=2"`
	Year        int    `json:"year" binding:"required,min=2000,max=2100"`
}

type BalanceResponse struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	CountryCode   string          `json:"country_code"`
	LeaveType     string          `json:"leave_type"`
	Year          int             `json:"year"`
	TotalDays     decimal.Decimal `json:"total_days"`
	UsedDays      decimal.Decimal `json:"used_days"`
	AvailableDays decimal.Decimal `json:"available_days"`
	AccrualRate   decimal.Decimal `json:"accrual_rate"`
}

type SummaryResponse struct {
	UserID        string          `json:"user_id"`
	CountryCode   string          `json:"country_code"`
	Year          int             `json:"year"`
	TotalDays     decimal.Decimal `json:"total_days"`
	UsedDays      decimal.Decimal `json:"used_days"`
	AvailableDays decimal.Decimal `json:"available_days"`
	LeaveTypes    int             `json:"leave_types"`
}

type ImpactRequest struct {
	LeaveType   string          `json:"leave_type" binding:"required"`
	TotalDays   decimal.Decimal `json:"total_days" binding:"required"`
	IsPaid      bool            `json:"is_paid"`
	BaseSalary  decimal.Decimal `json:"base_salary" binding:"required"`
	CountryCode string          `json:"country_code" binding:"required,len=2"`
}

type ImpactResponse struct {
	LeaveType       string          `json:"leave_type"`
	CountryCode     string          `json:"country_code"`
	IsPaid          bool            `json:"is_paid"`
	DailyRate       decimal.Decimal `json:"daily_rate"`
	PaidAmount      decimal.Decimal `json:"paid_amount"`
	DeductionAmount decimal.Decimal `json:"deduction_amount"`
}
