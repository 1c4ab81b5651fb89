// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

// Integer circuits over bit-sliced ciphertexts. Comparisons against a public
// scalar cost at most one bootstrap per bit; constant inputs fold away.

package fhe

import (
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

func (eval *Evaluator) checkOperand(x *Integer) error {
	if x == nil {
		return fmt.Errorf("nil operand: %w", ErrWidth)
	}
	if x.Ceremony != eval.ek.Ceremony {
		return ErrCeremonyMismatch
	}
	if !x.params.Equal(eval.params) {
		return fmt.Errorf("%w: operand parameters differ from key", ErrUnsupportedParameters)
	}
	return x.checkWidth()
}

// ScalarLe returns an encrypted bit that is true iff x <= c.
//
// Scanning LSB to MSB, le holds x[0..i] <= c[0..i]:
//
//	c_i = 1: le = NOT x_i OR le
//	c_i = 0: le = NOT x_i AND le
func (eval *Evaluator) ScalarLe(x *Integer, c uint32) (*Ciphertext, error) {
	if err := eval.checkOperand(x); err != nil {
		return nil, err
	}

	le := eval.Constant(true)
	for i, b := range x.bits {
		var err error
		if (c>>i)&1 == 1 {
			le, err = eval.OR(eval.NOT(b), le)
		} else {
			le, err = eval.AND(eval.NOT(b), le)
		}
		if err != nil {
			return nil, fmt.Errorf("scalar le bit %d: %w", i, err)
		}
	}
	return le, nil
}

// ScalarGe returns an encrypted bit that is true iff x >= c.
//
// Scanning LSB to MSB, ge holds x[0..i] >= c[0..i]:
//
//	c_i = 1: ge = x_i AND ge
//	c_i = 0: ge = x_i OR ge
func (eval *Evaluator) ScalarGe(x *Integer, c uint32) (*Ciphertext, error) {
	if err := eval.checkOperand(x); err != nil {
		return nil, err
	}

	ge := eval.Constant(true)
	for i, b := range x.bits {
		var err error
		if (c>>i)&1 == 1 {
			ge, err = eval.AND(b, ge)
		} else {
			ge, err = eval.OR(b, ge)
		}
		if err != nil {
			return nil, fmt.Errorf("scalar ge bit %d: %w", i, err)
		}
	}
	return ge, nil
}

// SelectScalar returns a if sel is true, b otherwise.
// Each output bit is a constant, sel or NOT sel, so no bootstrap is needed.
func (eval *Evaluator) SelectScalar(sel *Ciphertext, a, b uint32) *Integer {
	bits := make([]*Ciphertext, IntegerBits)
	for i := range bits {
		ai, bi := (a>>i)&1 == 1, (b>>i)&1 == 1
		switch {
		case ai == bi:
			bits[i] = eval.Constant(ai)
		case ai:
			bits[i] = sel
		default:
			bits[i] = eval.NOT(sel)
		}
	}
	return &Integer{Ceremony: eval.ek.Ceremony, params: eval.params, bits: bits}
}

// Lift normalizes an encrypted predicate into the integer domain:
// encrypted 1 when sel is true, encrypted 0 otherwise.
func (eval *Evaluator) Lift(sel *Ciphertext) *Integer {
	return eval.SelectScalar(sel, 1, 0)
}

// Or performs bitwise OR. Bits are evaluated concurrently.
func (eval *Evaluator) Or(x, y *Integer) (*Integer, error) {
	if err := eval.checkOperand(x); err != nil {
		return nil, err
	}
	if err := eval.checkOperand(y); err != nil {
		return nil, err
	}

	bits := make([]*Ciphertext, IntegerBits)
	var g errgroup.Group
	g.SetLimit(eval.workers)
	for i := range bits {
		g.Go(func() error {
			r, err := eval.OR(x.bits[i], y.bits[i])
			if err != nil {
				return fmt.Errorf("or bit %d: %w", i, err)
			}
			bits[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &Integer{Ceremony: eval.ek.Ceremony, params: eval.params, bits: bits}, nil
}

// Trivial returns a noiseless encryption of a public integer.
func (eval *Evaluator) Trivial(v uint32) *Integer {
	return trivialInteger(eval.params, eval.ek.Ceremony, v)
}

func trivialInteger(params Parameters, ceremony uuid.UUID, v uint32) *Integer {
	bits := make([]*Ciphertext, IntegerBits)
	for i := range bits {
		bits[i] = trivialBit(params, (v>>i)&1 == 1)
	}
	return &Integer{Ceremony: ceremony, params: params, bits: bits}
}
