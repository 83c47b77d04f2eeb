package balance

import (
	"net/http"
	"strconv"
	"time"

	"go-leave/internal/shared/apperror"
	"go-leave/internal/shared/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("balance.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("balance.handler")
	}
	return &Handler{service: service, logger: l}
}

func (h *Handler) writeServiceError(c *gin.Context, err error) {
	httpErr := apperror.ToHTTP(err)
	h.logger.Warn("balance request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Int("status", httpErr.Status),
		zap.String("code", httpErr.Code),
		zap.String("message", httpErr.Message),
	)
	response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
}

func (h *Handler) Initialize(c *gin.Context) {
	var req InitializeBalancesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeServiceError(c, apperror.MapValidationError(err))
		return
	}

	resp, err := h.service.InitializeBalances(c.Request.Context(), req.UserID, req.CountryCode, req.Year)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, resp, nil)
}

func (h *Handler) Accrue(c *gin.Context) {
	var req AccrueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeServiceError(c, apperror.MapValidationError(err))
		return
	}

	resp, err := h.service.Accrue(c.Request.Context(), req.UserID, req.CountryCode, req.Year)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}

func balanceQueryParams(c *gin.Context) (userID, country string, year int) {
	userID = c.Query("user_id")
	if userID == "" {
		userID = c.GetString("user_id")
	}
	country = c.Query("country_code")
	year, _ = strconv.Atoi(c.DefaultQuery("year", strconv.Itoa(time.Now().UTC().Year())))
	return userID, country, year
}

func (h *Handler) GetBalances(c *gin.Context) {
	userID, country, year := balanceQueryParams(c)

	resp, err := h.service.GetBalances(c.Request.Context(), userID, country, year)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) GetSummary(c *gin.Context) {
	userID, country, year := balanceQueryParams(c)

	resp, err := h.service.GetSummary(c.Request.Context(), userID, country, year)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}

// CalculateImpact is the payroll-facing read endpoint; parameters arrive as
// query arguments so the payroll system can call it statelessly.
func (h *Handler) CalculateImpact(c *gin.Context) {
	totalDays, err := decimal.NewFromString(c.Query("total_days"))
	if err != nil {
		h.writeServiceError(c, apperror.Wrap(err,
			apperror.CodeInvalidInput, "total_days must be a decimal number", http.StatusBadRequest))
		return
	}
	baseSalary, err := decimal.NewFromString(c.Query("base_salary"))
	if err != nil {
		h.writeServiceError(c, apperror.Wrap(err,
			apperror.CodeInvalidInput, "base_salary must be a decimal number", http.StatusBadRequest))
		return
	}
	isPaid, _ := strconv.ParseBool(c.DefaultQuery("is_paid", "true"))

	req := ImpactRequest{
		LeaveType:   c.Query("leave_type"),
		TotalDays:   totalDays,
		IsPaid:      isPaid,
		BaseSalary:  baseSalary,
		CountryCode: c.Query("country_code"),
	}

	resp, err := h.service.CalculateImpact(req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}
