package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/bitfantasy/supplychain/internal/config"
	"github.com/bitfantasy/supplychain/internal/entity"
	"github.com/bitfantasy/supplychain/internal/handler"
	"github.com/bitfantasy/supplychain/internal/middleware"
	"github.com/bitfantasy/supplychain/internal/repository"
	"github.com/bitfantasy/supplychain/internal/service"
	"github.com/bitfantasy/supplychain/internal/sse"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting supplychain service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := migrate(db); err != nil {
		zapLogger.Fatal("Failed to migrate database", zap.Error(err))
	}

	rdb := initRedis(cfg.Redis)

	hub := sse.NewHub()
	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, db, rdb, hub, cfg)
	handlers := handler.NewHandlers(services, hub)

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS(cfg.Server.CORSOrigin))
	router.Use(middleware.RequestID())
	// Skip compression on the SSE stream; buffered responses break it.
	router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/api/v1/sse/events"})))

	registerRoutes(router, handlers, cfg)

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:     router,
		ReadTimeout: cfg.Server.ReadTimeout,
	}

	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return db, nil
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.User{},
		&entity.Supplier{},
		&entity.Location{},
		&entity.Product{},
		&entity.Inventory{},
		&entity.Order{},
		&entity.OrderItem{},
		&entity.Delivery{},
	)
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, cfg *config.Config) {
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	v1 := r.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(cfg.JWT.Secret))
		{
			authorized.GET("/auth/me", h.Auth.Me)
			authorized.POST("/auth/logout", h.Auth.Logout)

			users := authorized.Group("/users")
			{
				users.GET("", h.User.List)
				users.GET("/:id", h.User.Get)
			}

			suppliers := authorized.Group("/suppliers")
			{
				suppliers.GET("", h.Supplier.List)
				suppliers.POST("", middleware.RequireRole("MANAGER"), h.Supplier.Create)
				suppliers.GET("/:id", h.Supplier.Get)
				suppliers.PUT("/:id", middleware.RequireRole("MANAGER"), h.Supplier.Update)
				suppliers.POST("/:id/deactivate", middleware.RequireRole("MANAGER"), h.Supplier.Deactivate)
				suppliers.GET("/:id/performance", h.Supplier.Performance)
			}

			locations := authorized.Group("/locations")
			{
				locations.GET("", h.Location.List)
				locations.POST("", middleware.RequireRole("MANAGER"), h.Location.Create)
				locations.GET("/:id", h.Location.Get)
				locations.PUT("/:id", middleware.RequireRole("MANAGER"), h.Location.Update)
				locations.GET("/:id/inventory-summary", h.Location.InventorySummary)
			}

			products := authorized.Group("/products")
			{
				products.GET("", h.Product.List)
				products.POST("", middleware.RequireRole("MANAGER"), h.Product.Create)
				products.GET("/:id", h.Product.Get)
				products.PUT("/:id", middleware.RequireRole("MANAGER"), h.Product.Update)
				products.DELETE("/:id", middleware.RequireRole("MANAGER"), h.Product.Delete)
			}

			inventory := authorized.Group("/inventory")
			{
				inventory.GET("", h.Inventory.List)
				inventory.POST("", middleware.RequireRole("MANAGER", "EMPLOYEE"), h.Inventory.Create)
				inventory.GET("/low-stock", h.Inventory.LowStock)
				inventory.GET("/export", h.Inventory.Export)
				inventory.GET("/:id", h.Inventory.Get)
				inventory.PUT("/:id", middleware.RequireRole("MANAGER", "EMPLOYEE"), h.Inventory.Update)
				inventory.POST("/:id/adjust", middleware.RequireRole("MANAGER", "EMPLOYEE"), h.Inventory.Adjust)
				inventory.DELETE("/:id", middleware.RequireRole("MANAGER"), h.Inventory.Delete)
			}

			orders := authorized.Group("/orders")
			{
				orders.GET("", h.Order.List)
				orders.POST("", h.Order.Create)
				orders.GET("/:id", h.Order.Get)
				orders.PUT("/:id/status", middleware.RequireRole("MANAGER", "EMPLOYEE"), h.Order.UpdateStatus)
				orders.POST("/:id/fulfill", middleware.RequireRole("MANAGER", "EMPLOYEE"), h.Order.Fulfill)
				orders.POST("/:id/cancel", h.Order.Cancel)
			}

			deliveries := authorized.Group("/deliveries")
			{
				deliveries.GET("", h.Delivery.List)
				deliveries.POST("", middleware.RequireRole("MANAGER", "EMPLOYEE"), h.Delivery.Create)
				deliveries.GET("/:id", h.Delivery.Get)
				deliveries.PUT("/:id/status", middleware.RequireRole("MANAGER", "EMPLOYEE", "DRIVER"), h.Delivery.UpdateStatus)
				deliveries.POST("/:id/assign-driver", middleware.RequireRole("MANAGER"), h.Delivery.AssignDriver)
			}

			analytics := authorized.Group("/analytics")
			{
				analytics.GET("/dashboard", h.Analytics.Dashboard)
				analytics.GET("/order-trends", h.Analytics.OrderTrends)
				analytics.GET("/inventory-by-location", h.Analytics.InventoryByLocations)
				analytics.GET("/top-products", h.Analytics.TopProducts)
			}

			sseGroup := authorized.Group("/sse")
			{
				sseGroup.GET("/events", h.SSE.Stream)
				sseGroup.POST("/subscribe", h.SSE.Subscribe)
			}
		}
	}
}
