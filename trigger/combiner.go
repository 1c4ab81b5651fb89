// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package trigger

import (
	"errors"

	"github.com/luxfi/trigger/fhe"
)

// Or combines two normalized results with a homomorphic bitwise OR.
func Or(eval *fhe.Evaluator, a, b *fhe.Integer) (*fhe.Integer, error) {
	const op = "combine"

	if a == nil || b == nil {
		return nil, newError(MissingOperand, op, errors.New("nil operand"))
	}
	out, err := eval.Or(a, b)
	if err != nil {
		return nil, classify(op, err)
	}
	return out, nil
}
