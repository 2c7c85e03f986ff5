package main

import (
	"context"
	"errors"
	"log"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/opsdeck/ticket-triage/internal/analysis"
	"github.com/opsdeck/ticket-triage/internal/config"
	"github.com/opsdeck/ticket-triage/internal/events"
	"github.com/opsdeck/ticket-triage/internal/observability"
	"github.com/opsdeck/ticket-triage/internal/persistence"
	"github.com/opsdeck/ticket-triage/internal/queue"
	"github.com/opsdeck/ticket-triage/internal/repository"
	"github.com/opsdeck/ticket-triage/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	userRepo := repository.NewUserRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	notificationService.RegisterHandlers()

	triageService := service.NewTriageService(cfg.Analysis, service.TriageDependencies{
		TicketRepo: ticketRepo,
		UserRepo:   userRepo,
		Analyzer:   analysis.NewClient(cfg.Analysis, logger),
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})

	consumer := queue.NewConsumer(redis.Client, cfg.Queue, triageService.ProcessEvent, logger)

	mux := nethttp.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/health/live", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.WriteHeader(nethttp.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	metricsServer := &nethttp.Server{Addr: cfg.App.MetricsAddr(), Handler: mux}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			logger.Fatal("metrics listen", zap.Error(err))
		}
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := consumer.Run(ctx); err != nil {
			logger.Error("consumer stopped", zap.Error(err))
		}
	}()

	logger.Info("triage worker started",
		zap.String("stream", cfg.Queue.Stream),
		zap.String("group", cfg.Queue.Group),
		zap.Int("concurrency", cfg.Queue.Concurrency))

	waitForShutdown(logger)
	cancel()

	select {
	case <-done:
	case <-time.After(30 * time.Second):
		logger.Warn("consumer did not drain in time")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = metricsServer.Shutdown(shutdownCtx)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
