package audit

import (
	"net/http"
	"strings"

	"go-leave/internal/shared/apperror"
	"go-leave/internal/shared/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var errUnknownEntityType = apperror.New(
	apperror.CodeInvalidInput,
	"unknown audit entity type",
	http.StatusBadRequest,
)

// TrailHandler serves the delivered audit history; writes only ever come
// from the consumer.
type TrailHandler struct {
	repo   TrailRepository
	logger *zap.Logger
}

func NewTrailHandler(repo TrailRepository, logger ...*zap.Logger) *TrailHandler {
	l := zap.L().Named("audit.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("audit.handler")
	}
	return &TrailHandler{repo: repo, logger: l}
}

func (h *TrailHandler) GetByEntity(c *gin.Context) {
	entityType := strings.TrimSpace(c.Param("entity_type"))
	switch entityType {
	case "leave_request", "leave_balance":
	default:
		httpErr := apperror.ToHTTP(errUnknownEntityType)
		response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
		return
	}

	entries, err := h.repo.FindByEntity(c.Request.Context(), entityType, c.Param("entity_id"))
	if err != nil {
		httpErr := apperror.ToHTTP(err)
		h.logger.Warn("audit trail lookup failed",
			zap.String("entity_type", entityType),
			zap.Int("status", httpErr.Status),
			zap.Error(err),
		)
		response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
		return
	}

	response.Success(c, http.StatusOK, entries, nil)
}
