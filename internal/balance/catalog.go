package balance

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/shopspring/decimal"
)

// LeaveTypeConfig is one entry of a country's leave taxonomy: the enum value,
// the yearly default allocation and the monthly accrual rate in days.
type LeaveTypeConfig struct {
	Type           string          `json:"type"`
	Name           string          `json:"name"`
	DefaultDays    decimal.Decimal `json:"default_days"`
	MonthlyAccrual decimal.Decimal `json:"monthly_accrual"`
}

type CountryConfig struct {
	WorkingDaysPerMonth int               `json:"working_days_per_month"`
	LeaveTypes          []LeaveTypeConfig `json:"leave_types"`
}

// Catalog maps country code to its leave taxonomy. It is loaded once at
// startup and read-only afterwards.
type Catalog struct {
	countries map[string]CountryConfig
}

const defaultWorkingDaysPerMonth = 22

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

// DefaultCatalog returns the built-in per-country taxonomy. Allocation and
// accrual values are contractual; change them only together with HR.
func DefaultCatalog() *Catalog {
	return &Catalog{countries: map[string]CountryConfig{
		"IN": {
			WorkingDaysPerMonth: 26,
			LeaveTypes: []LeaveTypeConfig{
				{Type: "ANNUAL_LEAVE", Name: "Annual Leave", DefaultDays: d("21"), MonthlyAccrual: d("1.75")},
				{Type: "SICK_LEAVE", Name: "Sick Leave", DefaultDays: d("12"), MonthlyAccrual: d("1")},
				{Type: "CASUAL_LEAVE", Name: "Casual Leave", DefaultDays: d("12"), MonthlyAccrual: d("1")},
				{Type: "MATERNITY_LEAVE", Name: "Maternity Leave", DefaultDays: d("182"), MonthlyAccrual: d("0")},
				{Type: "PATERNITY_LEAVE", Name: "Paternity Leave", DefaultDays: d("15"), MonthlyAccrual: d("0")},
				{Type: "UNPAID_LEAVE", Name: "Unpaid Leave", DefaultDays: d("0"), MonthlyAccrual: d("0")},
			},
		},
		"PH": {
			WorkingDaysPerMonth: 26,
			LeaveTypes: []LeaveTypeConfig{
				{Type: "VACATION_LEAVE", Name: "Vacation Leave", DefaultDays: d("5"), MonthlyAccrual: d("0.42")},
				{Type: "SICK_LEAVE", Name: "Sick Leave", DefaultDays: d("5"), MonthlyAccrual: d("0.42")},
				{Type: "SERVICE_INCENTIVE_LEAVE", Name: "Service Incentive Leave", DefaultDays: d("5"), MonthlyAccrual: d("0")},
				{Type: "MATERNITY_LEAVE", Name: "Maternity Leave", DefaultDays: d("105"), MonthlyAccrual: d("0")},
				{Type: "PATERNITY_LEAVE", Name: "Paternity Leave", DefaultDays: d("7"), MonthlyAccrual: d("0")},
				{Type: "UNPAID_LEAVE", Name: "Unpaid Leave", DefaultDays: d("0"), MonthlyAccrual: d("0")},
			},
		},
		"AU": {
			WorkingDaysPerMonth: 22,
			LeaveTypes: []LeaveTypeConfig{
				{Type: "ANNUAL_LEAVE", Name: "Annual Leave", DefaultDays: d("20"), MonthlyAccrual: d("1.67")},
				{Type: "PERSONAL_LEAVE", Name: "Personal Leave", DefaultDays: d("10"), MonthlyAccrual: d("0.83")},
				{Type: "COMPASSIONATE_LEAVE", Name: "Compassionate Leave", DefaultDays: d("2"), MonthlyAccrual: d("0")},
				{Type: "PARENTAL_LEAVE", Name: "Parental Leave", DefaultDays: d("0"), MonthlyAccrual: d("0")},
				{Type: "UNPAID_LEAVE", Name: "Unpaid Leave", DefaultDays: d("0"), MonthlyAccrual: d("0")},
			},
		},
	}}
}

// LoadCatalog reads a taxonomy override from a JSON file. An empty path
// returns the built-in defaults, so new countries can ship as configuration
// without a code change.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var countries map[string]CountryConfig
	if err := json.Unmarshal(data, &countries); err != nil {
		return nil, err
	}

	return &Catalog{countries: countries}, nil
}

func (c *Catalog) HasCountry(country string) bool {
	_, ok := c.countries[strings.ToUpper(country)]
	return ok
}

func (c *Catalog) IsValidLeaveType(country, leaveType string) bool {
	cfg, ok := c.countries[strings.ToUpper(country)]
	if !ok {
		return false
	}
	for _, lt := range cfg.LeaveTypes {
		if lt.Type == leaveType {
			return true
		}
	}
	return false
}

func (c *Catalog) LeaveTypes(country string) []LeaveTypeConfig {
	cfg, ok := c.countries[strings.ToUpper(country)]
	if !ok {
		return nil
	}
	return cfg.LeaveTypes
}

func (c *Catalog) WorkingDaysPerMonth(country string) int {
	cfg, ok := c.countries[strings.ToUpper(country)]
	if !ok || cfg.WorkingDaysPerMonth <= 0 {
		return defaultWorkingDaysPerMonth
	}
	return cfg.WorkingDaysPerMonth
}
