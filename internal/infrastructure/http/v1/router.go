// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"reverso/internal/domain/accounting"
	"reverso/internal/domain/inventory"
	"reverso/internal/domain/salesreturn"
	"reverso/internal/infrastructure/http/v1/handlers"
	"reverso/internal/infrastructure/http/v1/middleware"
	"reverso/internal/infrastructure/storage/postgres"
	"reverso/pkg/logger"
)

// RouterConfig holds the wired services the router exposes.
type RouterConfig struct {
	Pool   *postgres.Pool
	Logger *logger.Logger

	Returns    *salesreturn.Service
	Accounting *accounting.Service
	Inventory  *inventory.Service
	StockRepo  inventory.Repository

	Audit *postgres.AuditService

	// Idempotency protects finalize/void and other mutating endpoints
	// against duplicate submission. Nil disables the middleware.
	Idempotency *postgres.IdempotencyStore
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

	// Health endpoints
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	baseHandler := handlers.NewBaseHandler()

	// API v1
	v1 := router.Group("/api/v1")
	if cfg.Idempotency != nil {
		v1.Use(middleware.Idempotency(cfg.Idempotency))
	}
	{
		returnHandler := handlers.NewSaleReturnHandler(baseHandler, cfg.Returns, cfg.Audit)
		returnHandler.RegisterRoutes(v1.Group("/returns"))

		// Returnable preview lives under the sale it describes.
		v1.GET("/sales/:id/returnable", returnHandler.Returnable)

		accountHandler := handlers.NewAccountHandler(baseHandler, cfg.Accounting)
		accountHandler.RegisterRoutes(v1.Group("/accounts"), v1.Group("/entries"))

		stockHandler := handlers.NewStockHandler(baseHandler, cfg.Inventory, cfg.StockRepo)
		stockHandler.RegisterRoutes(v1.Group("/stock"))
	}

	return router
}
