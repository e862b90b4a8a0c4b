// Package v1 provides HTTP API version 1.
package v1

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"chefdeck/internal/domain/catalog"
	"chefdeck/internal/domain/counting"
	"chefdeck/internal/infrastructure/http/v1/handlers"
	"chefdeck/internal/infrastructure/http/v1/middleware"
	"chefdeck/internal/infrastructure/storage/postgres"
	"chefdeck/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Pool is the shared database connection pool
	Pool *postgres.Pool

	// Logger for request logging
	Logger *logger.Logger

	// TenantCacheTTL bounds how long a bot config lookup is cached
	TenantCacheTTL time.Duration
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no tenant required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Wiring: repos and services are created once; the tenant travels in
	// request context and every repo query scopes by it.
	txManager := postgres.NewTxManager(cfg.Pool)
	botRepo := postgres.NewBotRepo(txManager)

	countingService := counting.NewService(postgres.NewCycleRepo(txManager), txManager)
	catalogService := catalog.NewService(postgres.NewCatalogRepo(txManager))

	baseHandler := handlers.NewBaseHandler()
	inventoryHandler := handlers.NewInventoryHandler(baseHandler, countingService)
	catalogHandler := handlers.NewCatalogHandler(baseHandler, catalogService)

	ttl := cfg.TenantCacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	api := router.Group("/api")
	api.Use(middleware.Tenant(botRepo, ttl))
	{
		inv := api.Group("/inventory")
		{
			inv.GET("", inventoryHandler.List)
			inv.POST("/cycle", inventoryHandler.SaveCycle)
			inv.POST("/lock", inventoryHandler.Lock)
			inv.POST("/unlock", inventoryHandler.Unlock)
			inv.GET("/global-items", catalogHandler.List)
			inv.POST("/global-items/upsert", catalogHandler.Upsert)
			inv.DELETE("/archive/all", inventoryHandler.ClearArchive)
		}
	}

	return router
}
