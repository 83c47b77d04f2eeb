package approval

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
		requests.POST("/:id/approve", middleware.RBACAuthorize(rbacService, "approval", "decide"), handler.Approve)
		requests.POST("/:id/reject", middleware.RBACAuthorize(rbacService, "approval", "decide"), handler.Reject)
		requests.GET("/:id/approvals", middleware.RBACAuthorize(rbacService, "approval", "read"), handler.GetHistory)
	}

	approvals := r.Group("/approvals")
	approvals.Use(middleware.AuthMiddleware())
	{
		approvals.POST("/bulk", middleware.RBACAuthorize(rbacService, "approval", "decide"), handler.BulkApprove)
	}
}
