// Command trigger-worker evaluates queued jobs.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/luxfi/trigger/boundary"
	"github.com/luxfi/trigger/internal/backend"
	"github.com/luxfi/trigger/internal/config"
	"github.com/luxfi/trigger/internal/metrics"
	"github.com/luxfi/trigger/internal/worker"
	"github.com/luxfi/trigger/trigger"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load("trigger-worker", os.Args[1:])
	if err != nil {
		return err
	}
	if cfg.RedisURL == "" || cfg.StorageDir == "" {
		return fmt.Errorf("%s and %s are required to share jobs with the engine", config.RedisURLKey, config.StorageDirKey)
	}
	logger, err := cfg.Logger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := backend.OpenStorage(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	q, err := backend.OpenQueue(cfg, logger)
	if err != nil {
		return err
	}
	defer q.Close()

	sink, closeSink, err := backend.OpenAuditSink(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSink()

	opts := []trigger.Option{trigger.WithKeyStore(store), trigger.WithAuditSink(sink)}
	if cfg.BoundaryURL != "" {
		opts = append(opts, trigger.WithBoundary(
			boundary.NewRemote(cfg.BoundaryURL, logger, boundary.WithRetryTimeout(cfg.BoundaryRetryTimeout))))
	}
	engine := trigger.NewEngine(trigger.Config{
		MaxInFlight:   cfg.MaxInFlight,
		AdmissionWait: cfg.AdmissionWait,
		Workers:       cfg.Workers,
		KeyCacheSize:  cfg.KeyCacheSize,
	}, logger, opts...)

	workers := max(cfg.JobWorkers, 1)
	pool := worker.NewPool(workers, q, store, engine, logger)
	if err := pool.Start(ctx); err != nil {
		return fmt.Errorf("start workers: %w", err)
	}

	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","succeeded":%d,"failed":%d}`, pool.Succeeded(), pool.Failed())
	})
	r.Handle("/metrics", metrics.Handler())

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.Info("metrics server listening", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown error", zap.Error(err))
	}
	return pool.Stop(30 * time.Second)
}
