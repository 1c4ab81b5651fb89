// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package fhe

import (
	"sync"
	"testing"
)

type fixture struct {
	params Parameters
	sk     *PrivateKey
	ek     *EvaluationKey
	enc    *Encryptor
	dec    *Decryptor
	eval   *Evaluator
}

var (
	fixtureOnce sync.Once
	shared      *fixture
	sharedErr   error
)

// keys returns one key ceremony shared by every test in the package.
// Blind rotation key generation dominates test time.
func keys(t testing.TB) *fixture {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping bootstrapped test in short mode")
	}

	fixtureOnce.Do(func() {
		params, err := NewParametersFromLiteral(PN10QP27)
		if err != nil {
			sharedErr = err
			return
		}
		sk, ek := NewKeyGenerator(params).GenCeremony()
		shared = &fixture{
			params: params,
			sk:     sk,
			ek:     ek,
			enc:    NewEncryptor(sk),
			dec:    NewDecryptor(sk),
			eval:   NewEvaluator(ek),
		}
	})
	if sharedErr != nil {
		t.Fatalf("failed to create parameters: %v", sharedErr)
	}
	return shared
}

func (f *fixture) encrypt(t testing.TB, v uint32) *Integer {
	t.Helper()
	x, err := f.enc.EncryptUint32(v)
	if err != nil {
		t.Fatalf("encrypt %d: %v", v, err)
	}
	return x
}

func (f *fixture) encryptBit(t testing.TB, v bool) *Ciphertext {
	t.Helper()
	ct, err := f.enc.Encrypt(v)
	if err != nil {
		t.Fatalf("encrypt %v: %v", v, err)
	}
	return ct
}
