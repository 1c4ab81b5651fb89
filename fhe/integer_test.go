// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package fhe

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestEncryptUint32(t *testing.T) {
	f := keys(t)

	for _, v := range []uint32{0, 1, 9000, 12000, 1<<31 + 5, ^uint32(0)} {
		x := f.encrypt(t, v)
		if x.NumBits() != IntegerBits {
			t.Fatalf("expected %d bits, got %d", IntegerBits, x.NumBits())
		}
		if len(x.Block(NumBlocks-1)) != BlockBits {
			t.Fatalf("expected %d bits per block", BlockBits)
		}
		got, err := f.dec.DecryptUint32(x)
		if err != nil {
			t.Fatalf("decrypt %d: %v", v, err)
		}
		if got != v {
			t.Errorf("expected %d, got %d", v, got)
		}
	}
}

func TestScalarComparisons(t *testing.T) {
	f := keys(t)

	testCases := []struct {
		x, c uint32
	}{
		{9000, 9000},
		{8000, 10000},
		{12000, 10000},
		{12000, 13000},
		{0, 0},
		{0, ^uint32(0)},
		{^uint32(0), 0},
		{1 << 20, 1<<20 - 1},
	}

	for _, tc := range testCases {
		x := f.encrypt(t, tc.x)

		le, err := f.eval.ScalarLe(x, tc.c)
		if err != nil {
			t.Fatalf("ScalarLe: %v", err)
		}
		ge, err := f.eval.ScalarGe(x, tc.c)
		if err != nil {
			t.Fatalf("ScalarGe: %v", err)
		}

		if got, err := f.dec.Decrypt(le); err != nil || got != (tc.x <= tc.c) {
			t.Errorf("%d <= %d: got %v (err %v)", tc.x, tc.c, got, err)
		}
		if got, err := f.dec.Decrypt(ge); err != nil || got != (tc.x >= tc.c) {
			t.Errorf("%d >= %d: got %v (err %v)", tc.x, tc.c, got, err)
		}
	}
}

func TestSelectScalar(t *testing.T) {
	f := keys(t)

	for _, sel := range []bool{false, true} {
		ct := f.encryptBit(t, sel)

		got, err := f.dec.DecryptUint32(f.eval.SelectScalar(ct, 0xA5A5_0F0F, 0x5A5A_F0F0))
		if err != nil {
			t.Fatal(err)
		}
		want := uint32(0x5A5A_F0F0)
		if sel {
			want = 0xA5A5_0F0F
		}
		if got != want {
			t.Errorf("select(%v): expected %#x, got %#x", sel, want, got)
		}

		lifted, err := f.dec.DecryptUint32(f.eval.Lift(ct))
		if err != nil {
			t.Fatal(err)
		}
		if (lifted == 1) != sel || lifted > 1 {
			t.Errorf("lift(%v) = %d", sel, lifted)
		}
	}
}

func TestOr(t *testing.T) {
	f := keys(t)

	for _, tc := range []struct{ a, b bool }{{false, false}, {false, true}, {true, false}, {true, true}} {
		a := f.eval.Lift(f.encryptBit(t, tc.a))
		b := f.eval.Lift(f.encryptBit(t, tc.b))

		or, err := f.eval.Or(a, b)
		if err != nil {
			t.Fatalf("Or: %v", err)
		}
		got, err := f.dec.DecryptUint32(or)
		if err != nil {
			t.Fatal(err)
		}
		if (got == 1) != (tc.a || tc.b) || got > 1 {
			t.Errorf("%v | %v = %d", tc.a, tc.b, got)
		}
	}

	// Fully encrypted operands, every bit bootstrapped.
	x, y := f.encrypt(t, 0x0000_F00F), f.encrypt(t, 0x8000_0FF0)
	or, err := f.eval.Or(x, y)
	if err != nil {
		t.Fatalf("Or: %v", err)
	}
	if got, err := f.dec.DecryptUint32(or); err != nil || got != 0x8000_FFFF {
		t.Errorf("expected %#x, got %#x (err %v)", 0x8000_FFFF, got, err)
	}
}

func TestCeremonyBinding(t *testing.T) {
	f := keys(t)
	x := f.encrypt(t, 42)

	foreign := *x
	foreign.Ceremony = uuid.New()

	if _, err := f.eval.ScalarLe(&foreign, 1); !errors.Is(err, ErrCeremonyMismatch) {
		t.Errorf("ScalarLe: expected ErrCeremonyMismatch, got %v", err)
	}
	if _, err := f.eval.Or(x, &foreign); !errors.Is(err, ErrCeremonyMismatch) {
		t.Errorf("Or: expected ErrCeremonyMismatch, got %v", err)
	}
	if _, err := f.dec.DecryptUint32(&foreign); !errors.Is(err, ErrCeremonyMismatch) {
		t.Errorf("DecryptUint32: expected ErrCeremonyMismatch, got %v", err)
	}

	short := &Integer{Ceremony: x.Ceremony, params: x.params, bits: x.bits[:8]}
	if _, err := f.eval.ScalarGe(short, 1); !errors.Is(err, ErrWidth) {
		t.Errorf("expected ErrWidth, got %v", err)
	}
}

func TestForeignKeyFailsPhaseCheck(t *testing.T) {
	f := keys(t)

	// Same ceremony label, unrelated secret: decryption must not yield a bit.
	other := NewKeyGenerator(f.params).GenPrivateKey()
	other.Ceremony = f.sk.Ceremony
	dec := NewDecryptor(other)

	x := f.encrypt(t, 0x1234_5678)
	if _, err := dec.DecryptUint32(x); !errors.Is(err, ErrNoisyPhase) {
		t.Errorf("expected ErrNoisyPhase, got %v", err)
	}
}
