// Command trigger-boundary holds the private key and reveals evaluation
// results for the engine. It never sees the encrypted bounds.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/luxfi/trigger/boundary"
	"github.com/luxfi/trigger/fhe"
	"github.com/luxfi/trigger/internal/backend"
	"github.com/luxfi/trigger/internal/config"
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
	cfg, err := config.Load("trigger-boundary", os.Args[1:])
	if err != nil {
		return err
	}
	if cfg.BoundaryKeyFile == "" {
		return fmt.Errorf("%s is required", config.BoundaryKeyFileKey)
	}
	logger, err := cfg.Logger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	sk, err := loadKey(cfg.BoundaryKeyFile)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sink, closeSink, err := backend.OpenAuditSink(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSink()

	svc := boundary.NewService(boundary.NewLocal(sk, sink), logger)
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           http.MaxBytesHandler(svc.Routes(), cfg.BodyLimit),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("trust boundary listening",
			zap.String("addr", cfg.ListenAddr),
			zap.Stringer("ceremony", sk.Ceremony),
			zap.String("params", sk.Params().Name()))
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// loadKey reads a hex private key as written by trigger-payload keygen.
func loadKey(path string) (*fhe.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key: %w", err)
	}
	var sk fhe.PrivateKey
	if err := fhe.DecodeHex(strings.TrimSpace(string(data)), &sk); err != nil {
		return nil, fmt.Errorf("decode key %s: %w", path, err)
	}
	return &sk, nil
}
