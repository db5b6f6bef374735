package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"ecommerce-service/config"
	"ecommerce-service/internal/broker"
	"ecommerce-service/internal/util"
	"ecommerce-service/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// event-auditor tails the order events topic and flags any order whose
// published transitions do not walk the lifecycle graph.
func main() {
	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env, cfg.Observ.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	if !cfg.Kafka.Enabled {
		logger.Fatal("KAFKA_ENABLED is false, nothing to audit")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder, cfg.Kafka.ConsumerGroup)
	auditWorker := worker.NewAuditWorker(consumer, worker.NewAuditor())

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.AuditorPort),
		Handler: mux,
	}

	logger.Info("Event auditor started",
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.String("topic", cfg.Kafka.TopicOrder),
		zap.String("group", cfg.Kafka.ConsumerGroup))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		err := auditWorker.Start(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Event auditor stopped with error", zap.Error(err))
	}
	if err := auditWorker.Stop(); err != nil {
		logger.Error("Error closing consumer", zap.Error(err))
	}
	logger.Info("Event auditor exited")
}
