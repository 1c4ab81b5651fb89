// Package backend opens the storage, queue and audit services named by the
// configuration.
package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/luxfi/trigger/internal/audit"
	"github.com/luxfi/trigger/internal/config"
	"github.com/luxfi/trigger/internal/queue"
	"github.com/luxfi/trigger/internal/storage"
	"go.uber.org/zap"
)

// memoryQueueCapacity bounds pending jobs when no Redis is configured.
const memoryQueueCapacity = 1024

// OpenStorage returns file storage under cfg.StorageDir, or memory storage
// when no directory is set.
func OpenStorage(cfg config.Config, logger *zap.Logger) (storage.Storage, error) {
	if cfg.StorageDir == "" {
		logger.Warn("storage-dir not set, keeping blobs in memory", zap.Int64("capacity_mb", cfg.StorageMB))
		return storage.NewMemoryStorage(cfg.StorageMB), nil
	}
	s, err := storage.NewFileStorage(cfg.StorageDir)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	logger.Info("using file storage", zap.String("dir", cfg.StorageDir))
	return s, nil
}

// OpenQueue returns the Redis queue at cfg.RedisURL, or an in-process queue.
func OpenQueue(cfg config.Config, logger *zap.Logger) (queue.Queue, error) {
	if cfg.RedisURL == "" {
		logger.Warn("redis-url not set, jobs are queued in process")
		return queue.NewMemoryQueue(memoryQueueCapacity), nil
	}
	q, err := queue.NewRedisQueue(cfg.RedisURL, cfg.QueueName, cfg.JobTTL)
	if err != nil {
		return nil, fmt.Errorf("open queue: %w", err)
	}
	logger.Info("connected to Redis", zap.String("queue", cfg.QueueName))
	return q, nil
}

// OpenAuditSink always logs reveals and also stores them in Postgres when
// cfg.DatabaseURL is set. The returned close function releases the pool.
func OpenAuditSink(ctx context.Context, cfg config.Config, logger *zap.Logger) (audit.Sink, func(), error) {
	sink := audit.NewZapSink(logger)
	if cfg.DatabaseURL == "" {
		return sink, func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}
	pg := audit.NewPostgresSink(pool)

	mctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pg.Migrate(mctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate audit schema: %w", err)
	}
	logger.Info("connected to PostgreSQL, reveals are audited")
	return audit.Multi{sink, pg}, pool.Close, nil
}
