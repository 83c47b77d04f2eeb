package app

import (
	"path/filepath"

	"go-leave/internal/approval"
	"go-leave/internal/audit"
	"go-leave/internal/balance"
	"go-leave/internal/leave"
	"go-leave/internal/messaging/kafka"
	"go-leave/internal/rbac"
	"go-leave/internal/rbac/infra"
	"go-leave/internal/shared/cache"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func registerModules(
	router *gin.Engine,
	gormDB *gorm.DB,
	store cache.Store,
	catalog *balance.Catalog,
) error {
	// --- Repositories ---
	leaveRepo := leave.NewRepository(gormDB)
	balanceRepo := balance.NewRepository(gormDB)
	approvalRepo := approval.NewRepository(gormDB)
	outboxRepo := kafka.NewOutboxRepository(gormDB)
	trailRepo := audit.NewTrailRepository(gormDB)

	// --- RBAC Core ---
	enforcer, err := infra.NewEnforcer(filepath.Join("internal", "rbac", "infra", "model.conf"))
	if err != nil {
		return err
	}
	rbacService, err := rbac.NewService(enforcer)
	if err != nil {
		return err
	}

	// --- Services ---
	auditor := audit.NewOutboxRecorder(outboxRepo)
	balanceService := balance.NewService(gormDB, balanceRepo, catalog, store, auditor)
	leaveService := leave.NewService(gormDB, leaveRepo, balanceRepo, catalog, auditor)
	approvalService := approval.NewService(gormDB, approvalRepo, leaveRepo, balanceRepo, balanceService, auditor)

	// --- Handlers ---
	leaveHandler := leave.NewHandler(leaveService)
	balanceHandler := balance.NewHandler(balanceService)
	approvalHandler := approval.NewHandler(approvalService)
	trailHandler := audit.NewTrailHandler(trailRepo)
	rbacHandler := rbac.NewHandler(rbacService)

	// --- Routes Registration ---
	api := router.Group("/api/v1")
	{
		leave.RegisterRoutes(api, leaveHandler, rbacService)
		balance.RegisterRoutes(api, balanceHandler, rbacService)
		approval.RegisterRoutes(api, approvalHandler, rbacService)
		audit.RegisterTrailRoutes(api, trailHandler, rbacService)
	}

	rbac.RegisterRoutes(router, rbacHandler)

	return nil
}
