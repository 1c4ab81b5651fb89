// Command trigger-engine serves strategy evaluation over HTTP.
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

	"github.com/luxfi/trigger/boundary"
	"github.com/luxfi/trigger/internal/backend"
	"github.com/luxfi/trigger/internal/config"
	"github.com/luxfi/trigger/internal/worker"
	"github.com/luxfi/trigger/server"
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
	cfg, err := config.Load("trigger-engine", os.Args[1:])
	if err != nil {
		return err
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
		logger.Info("revealing through trust boundary", zap.String("url", cfg.BoundaryURL))
	} else {
		logger.Warn("boundary-url not set, requests must carry encrypted_client_key")
	}

	engine := trigger.NewEngine(trigger.Config{
		MaxInFlight:   cfg.MaxInFlight,
		AdmissionWait: cfg.AdmissionWait,
		Workers:       cfg.Workers,
		KeyCacheSize:  cfg.KeyCacheSize,
	}, logger, opts...)

	// Jobs share the key store, so payloads and keys live side by side.
	pool := worker.NewPool(cfg.JobWorkers, q, store, engine, logger)
	if cfg.JobWorkers > 0 {
		if err := pool.Start(ctx); err != nil {
			return fmt.Errorf("start workers: %w", err)
		}
		defer pool.Stop(30 * time.Second)
	}

	srv := &http.Server{
		Addr: cfg.ListenAddr,
		Handler: server.New(server.Config{
			BodyLimit:      cfg.BodyLimit,
			RequestTimeout: cfg.RequestTimeout,
			CORSOrigins:    cfg.CORSOrigins,
		}, engine, logger, server.WithKeyStore(store), server.WithJobs(q, store)).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("trigger engine listening",
			zap.String("addr", cfg.ListenAddr),
			zap.Int("max_inflight", cfg.MaxInFlight),
			zap.Int("job_workers", cfg.JobWorkers))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", zap.Error(err))
	}
	return nil
}
