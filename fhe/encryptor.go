// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package fhe

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/luxfi/lattice/v7/core/rlwe"
)

// Encryptor encrypts bits and integers under a private key
type Encryptor struct {
	params    Parameters
	ceremony  uuid.UUID
	encryptor *rlwe.Encryptor
}

// NewEncryptor creates a new encryptor from a private key
func NewEncryptor(sk *PrivateKey) *Encryptor {
	return &Encryptor{
		params:    sk.params,
		ceremony:  sk.Ceremony,
		encryptor: rlwe.NewEncryptor(sk.params.paramsLWE, sk.sk),
	}
}

// Encrypt encrypts a boolean value.
// Encoding uses Q/8 so the sum of two bits stays distinguishable:
// (0,0) -> -Q/4, (0,1) -> 0, (1,1) -> +Q/4.
func (enc *Encryptor) Encrypt(value bool) (*Ciphertext, error) {
	p := enc.params.paramsLWE
	pt := rlwe.NewPlaintext(p, p.MaxLevel())
	pt.Value.Coeffs[0][0] = encodeBit(enc.params.Q(), value)
	p.RingQ().NTT(pt.Value, pt.Value)

	ct := rlwe.NewCiphertext(p, 1, p.MaxLevel())
	if err := enc.encryptor.Encrypt(pt, ct); err != nil {
		return nil, fmt.Errorf("encrypt bit: %w", err)
	}
	ct.IsNTT = true

	return &Ciphertext{Ciphertext: ct}, nil
}

// EncryptUint32 encrypts v as IntegerBits ciphertexts (LSB first).
func (enc *Encryptor) EncryptUint32(v uint32) (*Integer, error) {
	bits := make([]*Ciphertext, IntegerBits)
	for i := range bits {
		ct, err := enc.Encrypt((v>>i)&1 == 1)
		if err != nil {
			return nil, fmt.Errorf("bit %d: %w", i, err)
		}
		bits[i] = ct
	}
	return &Integer{Ceremony: enc.ceremony, params: enc.params, bits: bits}, nil
}
