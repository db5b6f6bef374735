package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ecommerce-service/config"
	"ecommerce-service/internal/api"
	"ecommerce-service/internal/broker"
	"ecommerce-service/internal/redisclient"
	"ecommerce-service/internal/service"
	"ecommerce-service/internal/store"
	"ecommerce-service/internal/store/memory"
	"ecommerce-service/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// backend is everything the services need from a store driver.
type backend interface {
	service.UnitOfWork
	service.ProductRepository
	service.AddressRepository
	service.CartRepository
	service.OrderRepository
	service.ReviewRepository
	api.Pinger
}

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env, cfg.Observ.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting ecommerce service", zap.String("env", cfg.Server.Env))

	if cfg.Observ.TracingEnabled {
		tp, err := util.InitTracer("ecommerce-service", cfg.Server.Env, cfg.Observ.JaegerEndpoint, cfg.Observ.TraceSampleRatio)
		if err != nil {
			logger.Fatal("Failed to initialize tracer", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(ctx); err != nil {
				logger.Error("Error shutting down tracer", zap.Error(err))
			}
		}()
	}

	db, closeDB, err := openBackend(cfg)
	if err != nil {
		logger.Fatal("Failed to open store", zap.String("driver", cfg.Database.Driver), zap.Error(err))
	}
	defer closeDB()
	logger.Info("Store ready", zap.String("driver", cfg.Database.Driver))

	var idempotency service.IdempotencyStore
	var redisClient *redisclient.Client
	if cfg.Redis.Enabled {
		redisClient, err = redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		idempotency = redisClient
		logger.Info("Redis connected", zap.String("addr", cfg.Redis.Addr))
	} else {
		logger.Warn("Redis disabled, Idempotency-Key headers are ignored")
	}

	var events service.EventPublisher = broker.NopPublisher{}
	if cfg.Kafka.Enabled {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder)
		defer producer.Close()
		events = broker.NewEventPublisher(producer)
		logger.Info("Kafka producer initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
	} else {
		logger.Warn("Kafka disabled, domain events are dropped")
	}

	ledger := service.NewStockLedger(db, db)
	cartService := service.NewCartService(db, db, db)
	orderService := service.NewOrderService(service.OrderServiceDeps{
		Tx:              db,
		Carts:           db,
		Addresses:       db,
		Orders:          db,
		Ledger:          ledger,
		Events:          events,
		Idempotency:     idempotency,
		IdempotencyTTL:  time.Duration(cfg.Business.IdempotencyTTLSeconds) * time.Second,
		DefaultPageSize: cfg.Business.DefaultPageSize,
		MaxPageSize:     cfg.Business.MaxPageSize,
	})
	paymentService := service.NewPaymentService(db, db, events)
	reviewService := service.NewReviewService(db, db, db, events, cfg.Business.DefaultPageSize, cfg.Business.MaxPageSize)

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Server.AdminToken == "" {
		logger.Warn("ADMIN_TOKEN is empty, admin endpoints reject every request")
	}

	router := gin.New()
	handler := api.NewHandler(cartService, orderService, paymentService, reviewService, cfg.Server.AdminToken)
	handler.AddReadinessCheck("store", db)
	if redisClient != nil {
		handler.AddReadinessCheck("redis", redisClient)
	}
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

// openBackend opens the configured store driver and returns its close func.
func openBackend(cfg *config.Config) (backend, func(), error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		db, err := store.NewStore(cfg.Database.URL)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Database.AutoMigrate {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := db.Migrate(ctx); err != nil {
				db.Close()
				return nil, nil, fmt.Errorf("failed to migrate schema: %w", err)
			}
		}
		return db, func() { db.Close() }, nil

	case config.DriverMemory:
		db := memory.New()
		if err := seedDemoData(context.Background(), db); err != nil {
			return nil, nil, err
		}
		return db, func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Database.Driver)
	}
}
