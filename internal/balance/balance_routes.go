package balance

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
	balances := r.Group("/balances")
	balances.Use(middleware.AuthMiddleware())
	{
		balances.GET("", middleware.RBACAuthorize(rbacService, "balance", "read"), handler.GetBalances)
		balances.GET("/summary", middleware.RBACAuthorize(rbacService, "balance", "read"), handler.GetSummary)
		balances.GET("/impact", middleware.RBACAuthorize(rbacService, "balance", "read"), handler.CalculateImpact)
		balances.POST("/initialize", middleware.RBACAuthorize(rbacService, "balance", "manage"), handler.Initialize)
		balances.POST("/accrue", middleware.RBACAuthorize(rbacService, "balance", "manage"), handler.Accrue)
	}
}
