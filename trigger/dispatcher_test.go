// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package trigger

import (
	"testing"

	"github.com/luxfi/trigger/fhe"
	"github.com/stretchr/testify/require"
)

func TestCheckRejectsUnknownDirection(t *testing.T) {
	_, err := Check(nil, &fhe.Integer{}, Direction(9), 100)
	require.ErrorIs(t, err, ErrInvalidCondition)

	_, err = Check(nil, nil, GTE, 100)
	require.ErrorIs(t, err, ErrMissingOperand)
}

func TestOperandsValidate(t *testing.T) {
	x := &fhe.Integer{}

	require.NoError(t, Operands{Upper: x, Lower: x}.Validate(BracketShort))
	require.NoError(t, Operands{Lower: x}.Validate(LimitBuyDip))
	require.NoError(t, Operands{Upper: x}.Validate(LimitSellRally))

	require.ErrorIs(t, Operands{Upper: x}.Validate(BracketLong), ErrMissingOperand)
	require.ErrorIs(t, Operands{Lower: x}.Validate(BracketLong), ErrMissingOperand)
	require.ErrorIs(t, Operands{Upper: x}.Validate(LimitBuyDip), ErrMissingOperand)
	require.ErrorIs(t, Operands{Upper: x, Lower: x}.Validate(StrategyUnknown), ErrUnknownStrategy)
}

func TestCheck(t *testing.T) {
	f := keys(t)
	trigger := f.encrypt(t, 10000)

	testCases := []struct {
		dir   Direction
		price uint32
		want  bool
	}{
		{GTE, 9999, false},
		{GTE, 10000, true},
		{GTE, 10001, true},
		{LTE, 9999, true},
		{LTE, 10000, true},
		{LTE, 10001, false},
	}

	for _, tc := range testCases {
		out, err := Check(f.eval, trigger, tc.dir, tc.price)
		require.NoError(t, err)
		require.Equal(t, tc.want, f.reveal(t, out), "%s price %d", tc.dir, tc.price)
	}
}

func TestOr(t *testing.T) {
	f := keys(t)
	one, zero := f.eval.Trivial(1), f.eval.Trivial(0)

	lift := func(v bool) *fhe.Integer {
		ct, err := fhe.NewEncryptor(f.sk).Encrypt(v)
		require.NoError(t, err)
		return f.eval.Lift(ct)
	}

	for _, tc := range []struct {
		a, b *fhe.Integer
		want bool
	}{
		{lift(false), lift(false), false},
		{lift(false), lift(true), true},
		{lift(true), lift(false), true},
		{lift(true), lift(true), true},
		{zero, lift(true), true},
		{one, lift(false), true},
	} {
		out, err := Or(f.eval, tc.a, tc.b)
		require.NoError(t, err)
		require.Equal(t, tc.want, f.reveal(t, out))

		// Commutative.
		out, err = Or(f.eval, tc.b, tc.a)
		require.NoError(t, err)
		require.Equal(t, tc.want, f.reveal(t, out))
	}

	_, err := Or(f.eval, nil, one)
	require.ErrorIs(t, err, ErrMissingOperand)
}

func TestDispatch(t *testing.T) {
	f := keys(t)
	upper, lower := f.encrypt(t, 12000), f.encrypt(t, 8000)
	ops := Operands{Upper: upper, Lower: lower}

	testCases := []struct {
		name     string
		strategy StrategyType
		ops      Operands
		price    uint32
		want     bool
	}{
		{"bracket upper breached", BracketLong, ops, 13000, true},
		{"bracket inside", BracketLong, ops, 10000, false},
		{"bracket lower breached", BracketShort, ops, 7000, true},
		{"bracket on upper", BracketShort, ops, 12000, true},
		{"buy dip on bound", LimitBuyDip, Operands{Lower: f.encrypt(t, 9000)}, 9000, true},
		{"buy dip above", LimitBuyDip, Operands{Lower: f.encrypt(t, 9000)}, 9001, false},
		{"sell rally above", LimitSellRally, Operands{Upper: upper}, 12001, true},
		{"sell rally below", LimitSellRally, Operands{Upper: upper}, 11999, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := Dispatch(f.eval, tc.strategy, tc.ops, tc.price)
			require.NoError(t, err)
			require.Equal(t, tc.want, f.reveal(t, out))
		})
	}
}

func TestDispatchCeremonyMismatch(t *testing.T) {
	f := keys(t)
	foreign := f.encryptForeign(t, 12000)

	_, err := Dispatch(f.eval, LimitSellRally, Operands{Upper: foreign}, 100)
	require.ErrorIs(t, err, ErrCeremonyMismatch)
}
