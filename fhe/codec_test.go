// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package fhe

import (
	"errors"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

func TestCodecIntegerRoundTrip(t *testing.T) {
	f := keys(t)
	x := f.encrypt(t, 12000)

	s, err := EncodeHex(x)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var y Integer
	if err := DecodeHex(s, &y); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if y.Ceremony != x.Ceremony {
		t.Errorf("ceremony changed: %s != %s", y.Ceremony, x.Ceremony)
	}

	again, err := EncodeHex(&y)
	if err != nil {
		t.Fatal(err)
	}
	if again != s {
		t.Error("re-encoding differs from original encoding")
	}

	got, err := f.dec.DecryptUint32(&y)
	if err != nil || got != 12000 {
		t.Errorf("expected 12000, got %d (err %v)", got, err)
	}
}

func TestCodecKeyRoundTrip(t *testing.T) {
	f := keys(t)

	skHex, err := EncodeHex(f.sk)
	if err != nil {
		t.Fatalf("encode private key: %v", err)
	}
	var sk PrivateKey
	if err := DecodeHex(skHex, &sk); err != nil {
		t.Fatalf("decode private key: %v", err)
	}
	if sk.Ceremony != f.sk.Ceremony || !sk.Params().Equal(f.params) {
		t.Error("private key metadata changed")
	}

	ekBin, err := f.ek.MarshalBinary()
	if err != nil {
		t.Fatalf("encode evaluation key: %v", err)
	}
	var ek EvaluationKey
	if err := ek.UnmarshalBinary(ekBin); err != nil {
		t.Fatalf("decode evaluation key: %v", err)
	}
	if ek.Ceremony != f.ek.Ceremony || !ek.Params().Equal(f.params) {
		t.Error("evaluation key metadata changed")
	}

	// Decoded keys are fully functional together.
	enc, dec, eval := NewEncryptor(&sk), NewDecryptor(&sk), NewEvaluator(&ek)
	x, err := enc.EncryptUint32(9000)
	if err != nil {
		t.Fatal(err)
	}
	le, err := eval.ScalarLe(x, 9000)
	if err != nil {
		t.Fatal(err)
	}
	got, err := dec.DecryptUint32(eval.Lift(le))
	if err != nil || got != 1 {
		t.Errorf("expected 1, got %d (err %v)", got, err)
	}
}

func TestCodecRejectsMalformed(t *testing.T) {
	f := keys(t)

	valid, err := f.encrypt(t, 7).MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	skBin, err := f.sk.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}

	mangle := func(mut func(*envelope)) []byte {
		var env envelope
		if err := cbor.Unmarshal(valid, &env); err != nil {
			t.Fatal(err)
		}
		mut(&env)
		out, err := cbor.Marshal(env)
		if err != nil {
			t.Fatal(err)
		}
		return out
	}

	testCases := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"garbage", []byte{0xde, 0xad, 0xbe, 0xef}},
		{"truncated", valid[:len(valid)/2]},
		{"wrong kind", skBin},
		{"version", mangle(func(e *envelope) { e.Version = 9 })},
		{"ceremony", mangle(func(e *envelope) { e.Ceremony = []byte{1, 2, 3} })},
		{"params", mangle(func(e *envelope) { e.Params = "PN99" })},
		{"body", mangle(func(e *envelope) { e.Body = []byte{0x80} })},
		{"bits", mangle(func(e *envelope) {
			var raw [][]byte
			if err := cbor.Unmarshal(e.Body, &raw); err != nil {
				t.Fatal(err)
			}
			raw[3] = raw[3][:len(raw[3])/3]
			e.Body, _ = cbor.Marshal(raw)
		})},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var x Integer
			if err := x.UnmarshalBinary(tc.data); !errors.Is(err, ErrMalformed) {
				t.Errorf("expected ErrMalformed, got %v", err)
			}
		})
	}

	var x Integer
	if err := DecodeHex("not-hex", &x); !errors.Is(err, ErrMalformed) {
		t.Errorf("bad hex: expected ErrMalformed, got %v", err)
	}
	var ek EvaluationKey
	if err := DecodeHex("00ff", &ek); !errors.Is(err, ErrMalformed) {
		t.Errorf("bad key: expected ErrMalformed, got %v", err)
	}
}

func TestCodecEnvelopeWithoutKeys(t *testing.T) {
	// Unregistered parameter literals cannot be named on the wire.
	params, err := NewParametersFromLiteral(ParametersLiteral{
		LogNLWE: 10, LogNBR: 10, QLWE: 0x7fff801, QBR: 0x7fff801, BaseTwoDecomposition: 7,
	})
	if err != nil {
		t.Fatal(err)
	}
	x := trivialInteger(params, uuid.New(), 3)
	if _, err := x.MarshalBinary(); err == nil {
		t.Error("expected error encoding unnamed parameters")
	}
}
