package app

import (
	"os"

	"go-leave/internal/balance"
	"go-leave/internal/shared/cache"
	"go-leave/internal/shared/connection"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func BuildApp(router *gin.Engine) error {
	logger := zap.L().Named("app")

	gormDB, err := connection.ConnectGORMWithRetry(
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
		os.Getenv("DB_SSLMODE"),
		5,
	)
	if err != nil {
		return err
	}

	if err := migrate(gormDB); err != nil {
		return err
	}

	// Redis is optional; without it the balance cache is process-local.
	var store cache.Store = cache.NewMemoryStore()
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		rdb, err := connection.ConnectRedisWithRetry(addr, 5)
		if err != nil {
			return err
		}
		store = cache.NewRedisStore(rdb)
	} else {
		logger.Info("REDIS_ADDR not set, using in-process balance cache")
	}

	catalog := balance.DefaultCatalog()
	if path := os.Getenv("LEAVE_CATALOG_PATH"); path != "" {
		catalog, err = balance.LoadCatalog(path)
		if err != nil {
			return err
		}
		logger.Info("leave catalog loaded", zap.String("path", path))
	}

	return registerModules(router, gormDB, store, catalog)
}
