// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package trigger

import (
	"context"
	"sync"
	"testing"

	"github.com/luxfi/trigger/boundary"
	"github.com/luxfi/trigger/fhe"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	params fhe.Parameters
	sk     *fhe.PrivateKey
	ek     *fhe.EvaluationKey
	eval   *fhe.Evaluator

	encodeOnce sync.Once
	ekBinary   []byte
	ekHex      string
	skHex      string
}

var (
	fixtureOnce sync.Once
	shared      *fixture
)

// keys returns one key ceremony shared by the package's tests.
func keys(t *testing.T) *fixture {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping bootstrapped test in short mode")
	}
	fixtureOnce.Do(func() {
		params, err := fhe.ParametersByName("PN10QP27")
		if err != nil {
			panic(err)
		}
		sk, ek := fhe.NewKeyGenerator(params).GenCeremony()
		shared = &fixture{params: params, sk: sk, ek: ek, eval: fhe.NewEvaluator(ek)}
	})
	return shared
}

func (f *fixture) encrypt(t *testing.T, v uint32) *fhe.Integer {
	t.Helper()
	x, err := fhe.NewEncryptor(f.sk).EncryptUint32(v)
	require.NoError(t, err)
	return x
}

// encryptForeign encrypts under a private key of another ceremony.
func (f *fixture) encryptForeign(t *testing.T, v uint32) *fhe.Integer {
	t.Helper()
	x, err := fhe.NewEncryptor(fhe.NewKeyGenerator(f.params).GenPrivateKey()).EncryptUint32(v)
	require.NoError(t, err)
	return x
}

func (f *fixture) hex(t *testing.T, x *fhe.Integer) string {
	t.Helper()
	s, err := fhe.EncodeHex(x)
	require.NoError(t, err)
	return s
}

// encoded returns the wire forms of the keys, computed once.
func (f *fixture) encoded(t *testing.T) (ekBinary []byte, ekHex, skHex string) {
	t.Helper()
	var err error
	f.encodeOnce.Do(func() {
		if f.ekBinary, err = f.ek.MarshalBinary(); err != nil {
			return
		}
		if f.ekHex, err = fhe.EncodeHex(f.ek); err != nil {
			return
		}
		f.skHex, err = fhe.EncodeHex(f.sk)
	})
	require.NoError(t, err)
	return f.ekBinary, f.ekHex, f.skHex
}

func (f *fixture) reveal(t *testing.T, x *fhe.Integer) bool {
	t.Helper()
	got, err := boundary.NewLocal(f.sk, nil).Reveal(context.Background(), x)
	require.NoError(t, err)
	return got
}
