package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/podreach/publisher/internal/api"
	"github.com/podreach/publisher/internal/audit"
	"github.com/podreach/publisher/internal/config"
	"github.com/podreach/publisher/internal/credentials"
	"github.com/podreach/publisher/internal/db"
	"github.com/podreach/publisher/internal/dispatch"
	"github.com/podreach/publisher/internal/metrics"
	"github.com/podreach/publisher/internal/posting"
	"github.com/podreach/publisher/internal/ratewindow"
	"github.com/podreach/publisher/internal/service"
	"github.com/podreach/publisher/internal/store"
	"github.com/podreach/publisher/internal/worker"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	// ---- configuration ----
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	// ---- database ----
	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	logger.Info("database migrations applied")

	// ---- core dependencies ----
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	queueStore := store.NewPgQueueStore(pool)
	sink := audit.NewPgSink(pool)
	creds := credentials.NewProvider(
		credentials.Credentials{
			AccessToken:  cfg.AccessToken,
			AccessSecret: cfg.AccessSecret,
		},
		cfg.TokenRefreshURL,
		cfg.RefreshTimeout,
		logger,
	)
	client := posting.NewHTTPClient(cfg.PostingBaseURL, cfg.PostingTimeout)
	estimator := ratewindow.Estimator{Width: cfg.RateWindow}

	onPosted, onFailed, onHalt := m.DispatcherHooks()
	dispatcher := dispatch.New(
		queueStore, client, creds, estimator, sink, logger,
		dispatch.Hooks{OnPosted: onPosted, OnFailed: onFailed, OnHalt: onHalt},
		dispatch.Config{
			ItemDelay:        cfg.ItemDelay,
			BreakerThreshold: cfg.BreakerThreshold,
			MaxRetries:       cfg.MaxRetries,
			CredentialMaxAge: cfg.CredentialMaxAge,
			MaxBatchDuration: cfg.MaxBatchDuration,
		},
	)
	svc := service.NewQueueService(queueStore, logger)

	// ---- background scheduler ----
	// Context for background goroutines; cancelled on shutdown signal.
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	if cfg.SchedulerInterval > 0 {
		scheduler := worker.NewScheduler(
			dispatcher, queueStore,
			cfg.SchedulerInterval, cfg.SchedulerBatchSize,
			logger, m.SetQueueDepths,
		)
		go scheduler.Run(workerCtx)
	} else {
		logger.Info("scheduler disabled, publish runs are HTTP-triggered only")
	}

	// ---- HTTP server ----
	router := api.NewRouter(svc, dispatcher, sink, reg, logger)
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start server in a goroutine so it does not block the shutdown listener.
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// ---- graceful shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")

	// 1. Stop accepting new HTTP requests.
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// 2. Signal the scheduler to stop; an in-flight publish run finishes its
	// current item and halts on the cancelled context at the next pacing wait.
	cancelWorkers()

	logger.Info("server stopped cleanly")
}
