// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package boundary

import (
	"context"
	"fmt"
	"sync"

	"github.com/luxfi/trigger/fhe"
	"github.com/luxfi/trigger/internal/audit"
)

// OneShot is a revealer for a private key that travels with a request.
// The key decrypts exactly once and is dropped afterwards.
type OneShot struct {
	mu    sync.Mutex
	local *Local
}

// NewOneShot wraps sk for a single reveal.
func NewOneShot(sk *fhe.PrivateKey, sink audit.Sink) *OneShot {
	return &OneShot{local: NewLocal(sk, sink)}
}

// DecodeOneShot decodes a hex private key and wraps it for a single reveal.
func DecodeOneShot(hexKey string, sink audit.Sink) (*OneShot, error) {
	var sk fhe.PrivateKey
	if err := fhe.DecodeHex(hexKey, &sk); err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	return NewOneShot(&sk, sink), nil
}

// Reveal decrypts result. Any call after the first fails with ErrKeyConsumed.
func (o *OneShot) Reveal(ctx context.Context, result *fhe.Integer) (bool, error) {
	o.mu.Lock()
	local := o.local
	o.local = nil
	o.mu.Unlock()

	if local == nil {
		return false, ErrKeyConsumed
	}
	return local.Reveal(ctx, result)
}
