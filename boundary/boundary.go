// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

// Package boundary is the trust boundary: the only code that holds a private
// key and turns an encrypted result into a plaintext boolean.
//
// A Revealer receives the final encrypted result only, never the operands.
// Local and OneShot decrypt in process; Remote talks to a Service running
// in a separate process that loads its key out of band.
package boundary

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/luxfi/trigger/fhe"
	"github.com/luxfi/trigger/internal/audit"
	"github.com/luxfi/trigger/internal/metrics"
)

var (
	// ErrKeyConsumed is returned by a OneShot revealer after its single use.
	ErrKeyConsumed = errors.New("boundary: private key already used")
	// ErrNotBoolean is returned when the result decrypts to neither 0 nor 1.
	ErrNotBoolean = errors.New("boundary: result is not a boolean")
	// ErrUnavailable is returned when a remote boundary cannot be reached.
	ErrUnavailable = errors.New("boundary: unavailable")
)

// Revealer decrypts a normalized encrypted result.
type Revealer interface {
	Reveal(ctx context.Context, result *fhe.Integer) (bool, error)
}

// Local decrypts with a private key held in process.
type Local struct {
	dec  *fhe.Decryptor
	sink audit.Sink
}

// NewLocal creates a revealer for sk. Every reveal is recorded to sink.
func NewLocal(sk *fhe.PrivateKey, sink audit.Sink) *Local {
	if sink == nil {
		sink = audit.Nop{}
	}
	return &Local{dec: fhe.NewDecryptor(sk), sink: sink}
}

// Reveal decrypts result and compares it against 1.
func (l *Local) Reveal(ctx context.Context, result *fhe.Integer) (bool, error) {
	if result == nil {
		return false, l.record(ctx, uuid.Nil, errors.New("boundary: nil result"))
	}

	v, err := l.dec.DecryptUint32(result)
	if err == nil && v > 1 {
		err = fmt.Errorf("%w: decrypted %d", ErrNotBoolean, v)
	}
	if err := l.record(ctx, result.Ceremony, err); err != nil {
		return false, err
	}
	return v == 1, nil
}

// record emits the audit event. A reveal whose event cannot be stored fails.
func (l *Local) record(ctx context.Context, ceremony uuid.UUID, revealErr error) error {
	ev := audit.Event{
		RequestID: middleware.GetReqID(ctx),
		Ceremony:  ceremony,
		Outcome:   audit.OutcomeRevealed,
		At:        time.Now().UTC(),
	}
	if revealErr != nil {
		ev.Outcome = audit.OutcomeFailed
		ev.Error = revealErr.Error()
	}
	metrics.RevealsTotal.WithLabelValues(ev.Outcome).Inc()

	if err := l.sink.Record(ctx, ev); err != nil {
		if revealErr != nil {
			return errors.Join(revealErr, err)
		}
		return fmt.Errorf("audit: %w", err)
	}
	return revealErr
}
