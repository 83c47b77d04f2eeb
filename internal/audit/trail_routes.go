package audit

import (
	"go-leave/internal/middleware"
	"go-leave/internal/rbac"

	"github.com/gin-gonic/gin"
)

func RegisterTrailRoutes(
	r *gin.RouterGroup,
	handler *TrailHandler,
	rbacService rbac.Service,
) {
	trail := r.Group("/audit-trail")
	trail.Use(middleware.AuthMiddleware())
	{
		trail.GET("/:entity_type/:entity_id",
			middleware.RBACAuthorize(rbacService, "audit", "read"), handler.GetByEntity)
	}
}
