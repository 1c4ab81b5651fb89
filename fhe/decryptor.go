// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package fhe

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/luxfi/lattice/v7/core/rlwe"
	"github.com/luxfi/lattice/v7/ring"
)

// ErrNoisyPhase is returned when a decrypted phase is not close to either
// bit encoding, which happens when the key does not match the ciphertext.
var ErrNoisyPhase = errors.New("fhe: phase outside decoding margin")

// Decryptor decrypts ciphertexts with a private key
type Decryptor struct {
	params    Parameters
	ceremony  uuid.UUID
	decryptor *rlwe.Decryptor
	ringQ     *ring.Ring
}

// NewDecryptor creates a new decryptor from a private key
func NewDecryptor(sk *PrivateKey) *Decryptor {
	return &Decryptor{
		params:    sk.params,
		ceremony:  sk.Ceremony,
		decryptor: rlwe.NewDecryptor(sk.params.paramsLWE, sk.sk),
		ringQ:     sk.params.paramsLWE.RingQ(),
	}
}

// Decrypt decrypts a ciphertext to a boolean.
// The constant term must lie within Q/16 of +Q/8 (true) or -Q/8 (false).
func (dec *Decryptor) Decrypt(ct *Ciphertext) (bool, error) {
	if ct == nil || ct.Ciphertext == nil {
		return false, fmt.Errorf("decrypt: nil ciphertext")
	}
	pt := rlwe.NewPlaintext(dec.params.paramsLWE, ct.Level())
	dec.decryptor.Decrypt(ct.Ciphertext, pt)

	if pt.IsNTT {
		dec.ringQ.INTT(pt.Value, pt.Value)
	}

	c := pt.Value.Coeffs[0][0]
	q := dec.params.Q()
	margin := q / 16

	switch {
	case distance(c, encodeBit(q, true), q) < margin:
		return true, nil
	case distance(c, encodeBit(q, false), q) < margin:
		return false, nil
	}
	return false, ErrNoisyPhase
}

// DecryptUint32 decrypts an integer. Ciphertexts from another ceremony are
// rejected before any bit is decrypted.
func (dec *Decryptor) DecryptUint32(x *Integer) (uint32, error) {
	if x.Ceremony != dec.ceremony {
		return 0, ErrCeremonyMismatch
	}
	if !x.params.Equal(dec.params) {
		return 0, fmt.Errorf("%w: ciphertext parameters differ from key", ErrUnsupportedParameters)
	}
	if err := x.checkWidth(); err != nil {
		return 0, err
	}

	var v uint32
	for i, ct := range x.bits {
		bit, err := dec.Decrypt(ct)
		if err != nil {
			return 0, fmt.Errorf("bit %d: %w", i, err)
		}
		if bit {
			v |= 1 << i
		}
	}
	return v, nil
}

// distance returns the circular distance between a and b modulo q.
func distance(a, b, q uint64) uint64 {
	d := (a + q - b) % q
	if q-d < d {
		return q - d
	}
	return d
}
