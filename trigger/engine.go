// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package trigger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/luxfi/trigger/boundary"
	"github.com/luxfi/trigger/fhe"
	"github.com/luxfi/trigger/internal/audit"
	"github.com/luxfi/trigger/internal/metrics"
	"github.com/luxfi/trigger/internal/storage"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// KeyStore resolves uploaded evaluation keys by handle.
type KeyStore interface {
	Load(ctx context.Context, handle storage.Handle) ([]byte, error)
}

// Config bounds the resources an Engine uses.
type Config struct {
	// MaxInFlight is the number of evaluations allowed to run at once.
	MaxInFlight int
	// AdmissionWait is how long a request may wait for a slot. Zero
	// rejects immediately when every slot is taken.
	AdmissionWait time.Duration
	// Workers bounds the goroutines of a single bitwise operation.
	Workers int
	// KeyCacheSize is the number of evaluators kept for key handles.
	KeyCacheSize int
}

// Engine evaluates strategies on encrypted bounds. It holds no state
// between requests apart from the evaluator cache for uploaded keys.
type Engine struct {
	cfg      Config
	sem      *semaphore.Weighted
	logger   *zap.Logger
	boundary boundary.Revealer
	keys     KeyStore
	sink     audit.Sink
	cache    *evaluatorCache
}

// Option configures an Engine.
type Option func(*Engine)

// WithBoundary routes every reveal to r. Private keys carried by requests
// are then never decoded.
func WithBoundary(r boundary.Revealer) Option {
	return func(e *Engine) { e.boundary = r }
}

// WithKeyStore enables server_key_handle.
func WithKeyStore(ks KeyStore) Option {
	return func(e *Engine) { e.keys = ks }
}

// WithAuditSink sets the sink for co-located reveals.
func WithAuditSink(s audit.Sink) Option {
	return func(e *Engine) { e.sink = s }
}

// NewEngine creates an engine.
func NewEngine(cfg Config, logger *zap.Logger, opts ...Option) *Engine {
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = 1
	}
	e := &Engine{
		cfg:    cfg,
		sem:    semaphore.NewWeighted(int64(cfg.MaxInFlight)),
		logger: logger.Named("engine"),
		sink:   audit.Nop{},
		cache:  newEvaluatorCache(cfg.KeyCacheSize),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate runs one request end to end and returns is_triggered.
//
// The strategy is validated before anything is decoded, so an unknown
// strategy costs no homomorphic work. Once admitted, the evaluation runs to
// completion; ctx only bounds admission and the reveal.
func (e *Engine) Evaluate(ctx context.Context, req *Request) (triggered bool, err error) {
	strategy, err := ParseStrategyType(req.StrategyType)
	if err != nil {
		metrics.EvaluationsTotal.WithLabelValues(StrategyUnknown.String(), UnknownStrategy.String()).Inc()
		return false, err
	}
	defer func() {
		outcome := "not_triggered"
		if err != nil {
			outcome = KindOf(err).String()
		} else if triggered {
			outcome = "triggered"
		}
		metrics.EvaluationsTotal.WithLabelValues(strategy.String(), outcome).Inc()
	}()

	price, err := req.Price()
	if err != nil {
		return false, err
	}
	if err := req.checkPresence(strategy); err != nil {
		return false, err
	}

	revealer, err := e.revealer(req)
	if err != nil {
		return false, err
	}

	eval, err := e.evaluator(ctx, req)
	if err != nil {
		return false, err
	}

	ops, err := decodeOperands(req, strategy, eval.Key())
	if err != nil {
		return false, err
	}

	if err := e.admit(ctx); err != nil {
		return false, err
	}
	start := time.Now()
	result, err := Dispatch(eval, strategy, ops, price)
	e.release()
	metrics.EvaluationLatency.WithLabelValues(strategy.String()).Observe(time.Since(start).Seconds())
	if err != nil {
		return false, err
	}

	e.logger.Debug("evaluated strategy",
		zap.String("request_id", middleware.GetReqID(ctx)),
		zap.String("payload_id", req.PayloadID),
		zap.Stringer("strategy", strategy),
		zap.Duration("took", time.Since(start)))

	triggered, err = revealer.Reveal(ctx, result)
	if err != nil {
		if errors.Is(err, boundary.ErrUnavailable) {
			return false, newError(Unavailable, "reveal", err)
		}
		return false, newError(DecryptionFailed, "reveal", err)
	}
	return triggered, nil
}

// revealer picks the trust boundary for a request.
func (e *Engine) revealer(req *Request) (boundary.Revealer, error) {
	if e.boundary != nil {
		return e.boundary, nil
	}
	if req.EncryptedClientKey == "" {
		return nil, newError(DecryptionFailed, "reveal", errors.New("no trust boundary configured and no client key supplied"))
	}
	r, err := boundary.DecodeOneShot(req.EncryptedClientKey, e.sink)
	if err != nil {
		return nil, newError(DecryptionFailed, "reveal", err)
	}
	return r, nil
}

// evaluator decodes the evaluation key from the request or the key store.
func (e *Engine) evaluator(ctx context.Context, req *Request) (*fhe.Evaluator, error) {
	const op = "decode server key"

	if req.ServerKey != "" {
		var ek fhe.EvaluationKey
		if err := fhe.DecodeHex(req.ServerKey, &ek); err != nil {
			return nil, newError(MalformedCiphertext, op, err)
		}
		return fhe.NewEvaluator(&ek, fhe.WithWorkers(e.cfg.Workers)), nil
	}

	if e.keys == nil {
		return nil, newError(InvalidRequest, op, errors.New("server_key_handle not supported"))
	}
	handle := storage.Handle(req.ServerKeyHandle)
	if eval, ok := e.cache.get(handle); ok {
		return eval, nil
	}
	data, err := e.keys.Load(ctx, handle)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidHandle) {
			return nil, newError(MissingOperand, op, fmt.Errorf("handle %s: %w", handle, err))
		}
		return nil, newError(KindUnknown, op, err)
	}
	var ek fhe.EvaluationKey
	if err := ek.UnmarshalBinary(data); err != nil {
		return nil, newError(MalformedCiphertext, op, err)
	}
	eval := fhe.NewEvaluator(&ek, fhe.WithWorkers(e.cfg.Workers))
	e.cache.put(handle, eval)
	return eval, nil
}

// decodeOperands decodes only the bounds the strategy reads and checks they
// come from the same ceremony as the key.
func decodeOperands(req *Request, strategy StrategyType, ek *fhe.EvaluationKey) (Operands, error) {
	var ops Operands
	decode := func(name, s string) (*fhe.Integer, error) {
		var x fhe.Integer
		if err := fhe.DecodeHex(s, &x); err != nil {
			return nil, newError(MalformedCiphertext, "decode "+name, err)
		}
		if x.Ceremony != ek.Ceremony {
			return nil, newError(CeremonyMismatch, "decode "+name,
				fmt.Errorf("operand ceremony %s, key ceremony %s", x.Ceremony, ek.Ceremony))
		}
		return &x, nil
	}

	var err error
	if strategy.NeedsUpper() {
		if ops.Upper, err = decode("upper bound", req.EncryptedUpperBound); err != nil {
			return ops, err
		}
	}
	if strategy.NeedsLower() {
		if ops.Lower, err = decode("lower bound", req.EncryptedLowerBound); err != nil {
			return ops, err
		}
	}
	return ops, nil
}

// admit waits up to AdmissionWait for an evaluation slot.
func (e *Engine) admit(ctx context.Context) error {
	if e.cfg.AdmissionWait <= 0 {
		if !e.sem.TryAcquire(1) {
			metrics.AdmissionRejections.Inc()
			return newError(Overloaded, "admit", fmt.Errorf("%d evaluations in flight", e.cfg.MaxInFlight))
		}
	} else {
		wctx, cancel := context.WithTimeout(ctx, e.cfg.AdmissionWait)
		defer cancel()
		if err := e.sem.Acquire(wctx, 1); err != nil {
			metrics.AdmissionRejections.Inc()
			return newError(Overloaded, "admit", err)
		}
	}
	metrics.InFlight.Inc()
	return nil
}

func (e *Engine) release() {
	metrics.InFlight.Dec()
	e.sem.Release(1)
}
