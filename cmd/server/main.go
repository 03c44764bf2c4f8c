package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rentledger/internal/database"
	"rentledger/internal/repository"
	"rentledger/internal/router"
	"rentledger/internal/services"
	"rentledger/pkg/config"
	"rentledger/pkg/logger"
	"rentledger/pkg/queue"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func main() {
	// 加载配置
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	if err := logger.Initialize(cfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	appLogger := logger.GetLogger()
	appLogger.Info("Starting rent ledger service...")

	// 金额以 JSON 数字输出
	decimal.MarshalJSONWithoutQuotes = true

	// 初始化存储
	var store repository.Store
	switch cfg.Database.Driver {
	case config.DriverMemory:
		appLogger.Warn("Using in-memory store, data will be lost on restart")
		store = repository.NewMemoryStore()
	default:
		if err := database.Initialize(cfg); err != nil {
			appLogger.Fatalf("Failed to initialize database: %v", err)
		}
		if err := database.Migrate(); err != nil {
			appLogger.Fatalf("Failed to migrate database: %v", err)
		}
		store = repository.NewGormStore(database.GetDB())
	}
	defer func() {
		// 关闭数据库连接
		if err := database.Close(); err != nil {
			appLogger.Error("Failed to close database:", err)
		}
		// 关闭Redis连接
		if err := database.CloseRedis(); err != nil {
			appLogger.Error("Failed to close Redis:", err)
		}
	}()

	// 事件推送可选，Redis不可用时不影响主服务
	var events *queue.RedisPublisher
	if cfg.Redis.Enabled {
		events, err = database.ConnectRedis()
		if err != nil {
			appLogger.Warnf("Event publishing disabled: %v", err)
			events = nil
		}
	}

	deps := router.Dependencies{
		Store:  store,
		Events: events,
		CORS:   cfg.CORS,
	}
	svc := router.NewServices(deps)

	if cfg.Server.SeedDemo {
		if err := seedData(context.Background(), store, svc); err != nil {
			appLogger.Fatalf("Failed to initialize seed data: %v", err)
		}
	}

	// 设置Gin模式
	gin.SetMode(cfg.Server.Mode)

	// 启动租约到期调度器
	if cfg.Lease.ExpirySweepEnabled {
		leaseScheduler := services.NewLeaseExpiryScheduler(store, svc.Occupancy, cfg.Lease.ExpirySweepCron)
		if err := leaseScheduler.Start(); err != nil {
			appLogger.Errorf("Failed to start lease expiry scheduler: %v", err)
			// 不影响主服务启动
		} else {
			defer leaseScheduler.Stop()
		}
	}

	r := router.SetupRouter(deps, svc)

	// 启动服务器
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatalf("Failed to start server: %v", err)
		}
	}()

	appLogger.Infof("Server started on port %s", cfg.Server.Port)

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown:", err)
	}
	appLogger.Info("Server exited")
}
