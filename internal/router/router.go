package router

import (
	"time"

	"opticare/internal/config"
	"opticare/internal/handler"
	"opticare/internal/infra"
	"opticare/internal/middleware"
	"opticare/internal/repository"
	"opticare/internal/service"
	"opticare/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, supplierCB *infra.CircuitBreaker) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	userRepo := repository.NewUserRepository(db)
	productRepo := repository.NewProductRepository(db)
	branchRepo := repository.NewBranchRepository(db)
	stockRepo := repository.NewBranchStockRepository(db)
	reservationRepo := repository.NewReservationRepository(db)
	transferRepo := repository.NewStockTransferRepository(db)
	movementRepo := repository.NewStockMovementRepository(db)

	// Worker dispatcher — injected into services that enqueue async jobs
	dispatcher := worker.NewDispatcher(rdb)

	// Availability cache — invalidated by the services on stock mutations
	availCache := infra.NewCache(rdb, 60*time.Second)

	// ── Services ─────────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(userRepo, cfg)
	catalogSvc := service.NewCatalogService(productRepo, branchRepo)
	inventorySvc := service.NewInventoryService(stockRepo, productRepo, branchRepo, movementRepo, dispatcher, availCache)
	reservationSvc := service.NewReservationService(reservationRepo, stockRepo, movementRepo, dispatcher, availCache)
	transferSvc := service.NewTransferService(transferRepo, stockRepo, movementRepo, dispatcher, availCache)
	syncSvc := service.NewSyncService(stockRepo, productRepo, branchRepo)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	catalogH := handler.NewCatalogHandler(catalogSvc)
	inventoryH := handler.NewInventoryHandler(inventorySvc)
	reservationsH := handler.NewReservationsHandler(reservationSvc)
	transfersH := handler.NewTransfersHandler(transferSvc)
	syncH := handler.NewSyncHandler(syncSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, supplierCB))

	// Auth (public)
	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	v1 := r.Group("/v1", jwtMW)
	{
		// Roles: customer, staff, admin — declared per-endpoint
		anyRole := middleware.RequireRole("customer", "staff", "admin")
		staffUp := middleware.RequireRole("staff", "admin")
		adminOnly := middleware.RequireRole("admin")

		// Catalog — everyone authenticated can read, admin writes
		v1.GET("/products", anyRole, catalogH.ListProducts)
		v1.GET("/products/:id", anyRole, catalogH.GetProduct)
		v1.POST("/products", adminOnly, catalogH.CreateProduct)
		v1.DELETE("/products/:id", adminOnly, catalogH.DeactivateProduct)

		v1.GET("/branches", anyRole, catalogH.ListBranches)
		v1.POST("/branches", adminOnly, catalogH.CreateBranch)

		// Branch stock — staff manage inventory at their branch
		stock := v1.Group("/branch-stock", staffUp)
		{
			stock.GET("", inventoryH.List)
			stock.POST("", inventoryH.AssignProduct)
			stock.PUT("/:id", inventoryH.UpdateStock)
		}

		// Inventory lookups and the transfer workflow
		inv := v1.Group("/inventory")
		{
			inv.GET("/cross-branch-availability", anyRole, inventoryH.CrossBranchAvailability)
			inv.GET("/low-stock-alerts", staffUp, inventoryH.LowStockAlerts)
			inv.GET("/movements", staffUp, inventoryH.ListMovements)

			inv.POST("/stock-transfer-request", staffUp, transfersH.Request)
			inv.GET("/stock-transfers", staffUp, transfersH.List)
			inv.GET("/stock-transfers/:id", staffUp, transfersH.Get)
			inv.PUT("/stock-transfers/:id/process", staffUp, transfersH.Process)
		}

		// Reservations — customers create and track, staff process
		v1.POST("/reservations", anyRole, reservationsH.Create)
		v1.GET("/reservations", anyRole, reservationsH.List)
		v1.GET("/reservations/:id", anyRole, reservationsH.Get)
		v1.PUT("/reservations/:id", staffUp, reservationsH.Update)
		v1.DELETE("/reservations/:id", staffUp, reservationsH.Delete)

		// Admin — legacy stock reconcile
		v1.POST("/admin/sync-stock", adminOnly, syncH.Run)
	}

	// Swagger UI — only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
