package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	purchasingapp "github.com/hardstock/backend/internal/application/purchasing"
	"github.com/hardstock/backend/internal/domain/shared"
	"github.com/hardstock/backend/internal/infrastructure/cache"
	"github.com/hardstock/backend/internal/infrastructure/config"
	"github.com/hardstock/backend/internal/infrastructure/event"
	"github.com/hardstock/backend/internal/infrastructure/integration"
	"github.com/hardstock/backend/internal/infrastructure/logger"
	"github.com/hardstock/backend/internal/infrastructure/persistence"
	"github.com/hardstock/backend/internal/interfaces/http/handler"
	"github.com/hardstock/backend/internal/interfaces/http/middleware"
	"github.com/hardstock/backend/internal/interfaces/http/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: cfg.Log.TimeFormat,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting Hardstock Purchasing Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Environment),
		zap.String("addr", cfg.HTTP.Addr()),
	)

	// Database
	gormLog := logger.NewGormLogger(log)
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected")

	// Repositories
	orderRepo := persistence.NewGormPurchaseOrderRepository(db.DB)
	orderRepo.SetOrderNumberPrefix(cfg.Purchasing.OrderNumberPrefix)
	eventLogRepo := persistence.NewGormEventLogRepository(db.DB)
	masterDataRepo := persistence.NewGormMasterDataRepository(db.DB)
	outboxRepo := event.NewGormOutboxRepository(db.DB)

	// Event plumbing: serializer, transactional outbox, in-process bus
	eventSerializer := event.NewPurchasingEventSerializer()
	outboxPublisher := event.NewOutboxPublisher(eventSerializer)
	orderRepo.SetOutboxEventSaver(outboxPublisher)

	eventBus := event.NewInMemoryEventBus(log)

	// Idempotency store: Redis when configured, in-memory otherwise
	var idempotencyStore shared.IdempotencyStore
	if cfg.Redis.Enabled {
		store, err := cache.NewRedisIdempotencyStore(cache.RedisOptions{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatal("Failed to connect to redis", zap.Error(err))
		}
		idempotencyStore = store
		log.Info("Redis idempotency store connected", zap.String("addr", cfg.Redis.Addr()))
	} else {
		idempotencyStore = cache.NewInMemoryIdempotencyStore()
	}
	defer func() {
		if err := idempotencyStore.Close(); err != nil {
			log.Error("Error closing idempotency store", zap.Error(err))
		}
	}()

	// Inventory sync adapter
	var inventory purchasingapp.InventorySync
	if cfg.Inventory.BaseURL != "" {
		inventory = integration.NewHTTPInventoryClient(
			cfg.Inventory.BaseURL,
			time.Duration(cfg.Inventory.Timeout)*time.Second,
			log,
		)
		log.Info("Inventory sync enabled", zap.String("base_url", cfg.Inventory.BaseURL))
	} else {
		inventory = integration.NewNoopInventorySync(log)
	}

	// Application services
	orderService := purchasingapp.NewPurchaseOrderService(orderRepo, eventLogRepo, masterDataRepo, masterDataRepo, log)
	orderService.SetAllowOverpayment(cfg.Purchasing.AllowOverpayment)
	orderService.SetEventPublisher(eventBus)

	// Goods received events drive inventory stock increases. The idempotent
	// wrapper makes at-least-once outbox delivery safe.
	goodsReceivedHandler := purchasingapp.NewGoodsReceivedHandler(inventory, log)
	eventBus.Subscribe(event.NewIdempotentHandler(
		goodsReceivedHandler,
		idempotencyStore,
		log,
		event.WithIdempotencyConfig(shared.IdempotencyConfig{
			TTL:     time.Duration(cfg.Event.IdempotencyTTL) * time.Hour,
			Enabled: true,
		}),
	))

	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Outbox processor delivers committed events to the bus
	processorConfig := event.DefaultOutboxProcessorConfig()
	processorConfig.BatchSize = cfg.Event.BatchSize
	processorConfig.PollInterval = time.Duration(cfg.Event.PollInterval) * time.Second
	processorConfig.CleanupInterval = time.Duration(cfg.Event.CleanupInterval) * time.Minute
	processorConfig.CleanupRetention = time.Duration(cfg.Event.RetentionDays) * 24 * time.Hour

	outboxProcessor := event.NewOutboxProcessor(outboxRepo, eventBus, eventSerializer, processorConfig, log)
	if err := outboxProcessor.Start(context.Background()); err != nil {
		log.Fatal("Failed to start outbox processor", zap.Error(err))
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := outboxProcessor.Stop(stopCtx); err != nil {
			log.Error("Error stopping outbox processor", zap.Error(err))
		}
	}()

	// HTTP server
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()
	engine := gin.New()
	engine.Use(
		logger.Recovery(log),
		middleware.RequestID(),
		logger.GinMiddleware(log),
		middleware.CORS(),
	)

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(handler.NewPurchaseOrderHandler(orderService))
	r.Register(handler.NewSystemHandler(db))
	r.Setup()

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      engine,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.HTTP.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}

	log.Info("Server stopped")
}
