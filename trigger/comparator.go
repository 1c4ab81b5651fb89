// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package trigger

import (
	"errors"
	"fmt"

	"github.com/luxfi/trigger/fhe"
)

// Check evaluates one trigger condition against the plaintext price and
// returns the result lifted to an encrypted 0/1 integer.
//
// GTE asks current_price >= trigger, computed as trigger <= current_price.
// LTE asks current_price <= trigger, computed as trigger >= current_price.
func Check(eval *fhe.Evaluator, trigger *fhe.Integer, dir Direction, price uint32) (*fhe.Integer, error) {
	const op = "check"

	if trigger == nil {
		return nil, newError(MissingOperand, op, errors.New("nil trigger"))
	}

	var (
		bit *fhe.Ciphertext
		err error
	)
	switch dir {
	case GTE:
		bit, err = eval.ScalarLe(trigger, price)
	case LTE:
		bit, err = eval.ScalarGe(trigger, price)
	default:
		return nil, newError(InvalidCondition, op, fmt.Errorf("direction %s", dir))
	}
	if err != nil {
		return nil, classify(op, err)
	}
	return eval.Lift(bit), nil
}

// classify maps fhe failures onto error kinds.
func classify(op string, err error) error {
	switch {
	case errors.Is(err, fhe.ErrCeremonyMismatch):
		return newError(CeremonyMismatch, op, err)
	case errors.Is(err, fhe.ErrMalformed),
		errors.Is(err, fhe.ErrWidth),
		errors.Is(err, fhe.ErrUnsupportedParameters):
		return newError(MalformedCiphertext, op, err)
	default:
		return newError(KindUnknown, op, err)
	}
}
