package leave

import "github.com/shopspring/decimal"

type CreateLeaveRequest struct {
	UserID          string          `json:"user_id" binding:"omitempty,uuid"`
	CountryCode     string          `json:"country_code" binding:"required,len=2"`
	LeaveType       string          `json:"leave_type" binding:"required"`
	StartDate       string          `json:"start_date" binding:"required"`
	EndDate         string          `json:"end_date" binding:"required"`
	TotalDays       decimal.Decimal `json:"total_days" binding:"required"`
	IsPaid          *bool           `json:"is_paid"`
	Notes           string          `json:"notes"`
	PayrollPeriodID *string         `json:"payroll_period_id" binding:"omitempty,uuid"`
}

type UpdateLeaveRequest struct {
	LeaveType       string           `json:"leave_type"`
	StartDate       string           `json:"start_date"`
	EndDate         string           `json:"end_date"`
	TotalDays       *decimal.Decimal `json:"total_days"`
	IsPaid          *bool            `json:"is_paid"`
	Notes           *string          `json:"notes"`
	PayrollPeriodID *string          `json:"payroll_period_id" binding:"omitempty,uuid"`
}

type ListFilters struct {
	Status    string `form:"status"`
	UserID    string `form:"user_id"`
	Country   string `form:"country_code"`
	LeaveType string `form:"leave_type"`
	DateFrom  string `form:"date_from"`
	DateTo    string `form:"date_to"`
	Page      int    `form:"page,default=1" binding:"omitempty,min=1"`
	Limit     int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

type LeaveRequestResponse struct {
	ID              string          `json:"id"`
	ClientID        string          `json:"client_id"`
	UserID          string          `json:"user_id"`
	CountryCode     string          `json:"country_code"`
	LeaveType       string          `json:"leave_type"`
	StartDate       string          `json:"start_date"`
	EndDate         string          `json:"end_date"`
	TotalDays       decimal.Decimal `json:"total_days"`
	IsPaid          bool            `json:"is_paid"`
	Notes           string          `json:"notes,omitempty"`
	Status          string          `json:"status"`
	PayrollPeriodID *string         `json:"payroll_period_id,omitempty"`
	CreatedAt       string          `json:"created_at"`
	UpdatedAt       string          `json:"updated_at"`
}
