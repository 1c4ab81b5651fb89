// Package worker runs queued strategy evaluations.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/luxfi/trigger/internal/metrics"
	"github.com/luxfi/trigger/internal/queue"
	"github.com/luxfi/trigger/internal/storage"
	"github.com/luxfi/trigger/trigger"
	"go.uber.org/zap"
)

// Evaluator runs one request. *trigger.Engine implements it.
type Evaluator interface {
	Evaluate(ctx context.Context, req *trigger.Request) (bool, error)
}

// payload is the blob a job refers to. The job id makes every blob unique,
// so deleting one job's payload never affects another's.
type payload struct {
	JobID   string           `json:"job_id"`
	Request *trigger.Request `json:"request"`
}

// Submit stores req and enqueues a job for it.
func Submit(ctx context.Context, q queue.Queue, store storage.Storage, req *trigger.Request) (*queue.Job, error) {
	job := &queue.Job{ID: uuid.NewString(), Strategy: req.StrategyType}

	data, err := json.Marshal(payload{JobID: job.ID, Request: req})
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	handle, err := store.Store(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("store payload: %w", err)
	}
	job.PayloadHandle = string(handle)

	if err := q.Push(ctx, job); err != nil {
		_ = store.Delete(ctx, handle)
		return nil, fmt.Errorf("enqueue: %w", err)
	}
	return job, nil
}

// Pool manages a pool of evaluation workers.
type Pool struct {
	numWorkers int
	queue      queue.Queue
	storage    storage.Storage
	engine     Evaluator
	logger     *zap.Logger

	wg           sync.WaitGroup
	cancel       context.CancelFunc
	running      atomic.Bool
	successCount atomic.Int64
	failureCount atomic.Int64
}

// NewPool creates a pool of n workers.
func NewPool(n int, q queue.Queue, store storage.Storage, engine Evaluator, logger *zap.Logger) *Pool {
	if n <= 0 {
		n = 1
	}
	return &Pool{
		numWorkers: n,
		queue:      q,
		storage:    store,
		engine:     engine,
		logger:     logger.Named("worker"),
	}
}

// Succeeded returns the number of jobs that produced a result.
func (p *Pool) Succeeded() int64 { return p.successCount.Load() }

// Failed returns the number of jobs that ended with an error.
func (p *Pool) Failed() int64 { return p.failureCount.Load() }

// Start starts the worker pool.
func (p *Pool) Start(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		return errors.New("pool already running")
	}

	ctx, p.cancel = context.WithCancel(ctx)
	p.logger.Info("starting workers", zap.Int("workers", p.numWorkers))

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
	return nil
}

// Stop cancels the workers and waits up to timeout for running jobs.
func (p *Pool) Stop(timeout time.Duration) error {
	if !p.running.Load() {
		return nil
	}

	p.logger.Info("stopping worker pool")
	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool stopped")
	case <-time.After(timeout):
		return errors.New("shutdown timeout")
	}

	p.running.Store(false)
	return nil
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	logger := p.logger.With(zap.Int("worker", id))
	retry := backoff.NewExponentialBackOff(backoff.WithMaxElapsedTime(0), backoff.WithMaxInterval(30*time.Second))

	for {
		job, err := p.queue.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, queue.ErrClosed) {
				return
			}
			wait := retry.NextBackOff()
			logger.Warn("failed to pop job", zap.Error(err), zap.Duration("retry_in", wait))
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
			continue
		}
		retry.Reset()

		p.processJob(ctx, logger, job)
	}
}

func (p *Pool) processJob(ctx context.Context, logger *zap.Logger, job *queue.Job) {
	logger = logger.With(zap.String("job", job.ID), zap.String("strategy", job.Strategy))
	logger.Debug("processing job")

	job.Status = queue.StatusProcessing
	if err := p.queue.Update(ctx, job); err != nil {
		logger.Warn("failed to update job status", zap.Error(err))
	}

	triggered, err := p.evaluate(ctx, job)
	if err != nil {
		job.Status = queue.StatusFailed
		job.Kind = trigger.KindOf(err).String()
		job.Error = err.Error()
		p.failureCount.Add(1)
	} else {
		job.Status = queue.StatusCompleted
		job.IsTriggered = &triggered
		p.successCount.Add(1)
	}
	metrics.JobsTotal.WithLabelValues(job.Status.String()).Inc()

	// The payload holds key material and is no longer needed.
	if err := p.storage.Delete(ctx, storage.Handle(job.PayloadHandle)); err != nil && !errors.Is(err, storage.ErrNotFound) {
		logger.Warn("failed to delete payload", zap.Error(err))
	}

	if err := p.queue.Update(ctx, job); err != nil {
		logger.Error("failed to store job result", zap.Error(err))
		return
	}
	logger.Info("job finished", zap.Stringer("status", job.Status), zap.String("kind", job.Kind))
}

func (p *Pool) evaluate(ctx context.Context, job *queue.Job) (bool, error) {
	data, err := p.storage.Load(ctx, storage.Handle(job.PayloadHandle))
	if err != nil {
		return false, fmt.Errorf("load payload: %w", err)
	}
	var pl payload
	if err := json.Unmarshal(data, &pl); err != nil {
		return false, fmt.Errorf("decode payload: %w", err)
	}
	if pl.Request == nil {
		return false, errors.New("decode payload: no request")
	}
	return p.engine.Evaluate(ctx, pl.Request)
}
