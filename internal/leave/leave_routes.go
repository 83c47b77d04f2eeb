package leave

import (
	"go-leave/internal/middleware"
	"go-leave/internal/rbac"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(
	r *gin.RouterGroup,
	handler *Handler,
	rbacService rbac.Service,
) {
	requests := r.Group("/leave-requests")
	requests.Use(middleware.AuthMiddleware())
	{
		requests.POST("", middleware.RBACAuthorize(rbacService, "leave", "create"), handler.Create)
		requests.GET("", middleware.RBACAuthorize(rbacService, "leave", "read"), handler.List)
		requests.GET("/:id", middleware.RBACAuthorize(rbacService, "leave", "read"), handler.GetByID)
		requests.PATCH("/:id", middleware.RBACAuthorize(rbacService, "leave", "update"), handler.Update)
		requests.POST("/:id/submit", middleware.RBACAuthorize(rbacService, "leave", "submit"), handler.Submit)
		requests.POST("/:id/cancel", middleware.RBACAuthorize(rbacService, "leave", "cancel"), handler.Cancel)
		requests.DELETE("/:id", middleware.RBACAuthorize(rbacService, "leave", "delete"), handler.Delete)
	}
}
