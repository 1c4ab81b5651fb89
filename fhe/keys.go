// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package fhe

import (
	"errors"

	"github.com/google/uuid"
	"github.com/luxfi/lattice/v7/core/rgsw/blindrot"
	"github.com/luxfi/lattice/v7/core/rlwe"
)

// ErrCeremonyMismatch is returned when ciphertexts and keys from different
// key generation ceremonies meet.
var ErrCeremonyMismatch = errors.New("fhe: ceremony mismatch")

// PrivateKey decrypts ciphertexts of exactly one ceremony.
type PrivateKey struct {
	// Ceremony identifies the key generation run this key belongs to
	Ceremony uuid.UUID

	params Parameters
	sk     *rlwe.SecretKey
}

// Params returns the parameter set of the key.
func (k *PrivateKey) Params() Parameters {
	return k.params
}

// EvaluationKey enables gate evaluation without decryption capability.
// It carries the blind rotation keys (RGSW encryptions of the secret).
type EvaluationKey struct {
	// Ceremony identifies the key generation run this key belongs to
	Ceremony uuid.UUID

	params Parameters
	brk    blindrot.MemBlindRotationEvaluationKeySet
}

// Params returns the parameter set of the key.
func (k *EvaluationKey) Params() Parameters {
	return k.params
}

// KeyGenerator generates FHE keys
type KeyGenerator struct {
	params Parameters
	kgen   *rlwe.KeyGenerator
}

// NewKeyGenerator creates a new key generator
func NewKeyGenerator(params Parameters) *KeyGenerator {
	return &KeyGenerator{
		params: params,
		kgen:   rlwe.NewKeyGenerator(params.paramsBR),
	}
}

// GenPrivateKey generates a private key for a fresh ceremony.
func (kg *KeyGenerator) GenPrivateKey() *PrivateKey {
	return &PrivateKey{
		Ceremony: uuid.New(),
		params:   kg.params,
		sk:       kg.kgen.GenSecretKeyNew(),
	}
}

// GenEvaluationKey derives the evaluation key bound to the ceremony of sk.
// LWE and blind rotation share one secret, so no key switching key is needed.
func (kg *KeyGenerator) GenEvaluationKey(sk *PrivateKey) *EvaluationKey {
	brk := blindrot.GenEvaluationKeyNew(kg.params.paramsBR, sk.sk, kg.params.paramsLWE, sk.sk, kg.params.evkParams)
	return &EvaluationKey{
		Ceremony: sk.Ceremony,
		params:   kg.params,
		brk:      brk,
	}
}

// GenCeremony runs a full key generation ceremony.
func (kg *KeyGenerator) GenCeremony() (*PrivateKey, *EvaluationKey) {
	sk := kg.GenPrivateKey()
	return sk, kg.GenEvaluationKey(sk)
}
