// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package fhe

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/luxfi/lattice/v7/core/rgsw/blindrot"
	"github.com/luxfi/lattice/v7/core/rlwe"
	"github.com/luxfi/lattice/v7/ring"
)

// Evaluator evaluates boolean gates on encrypted data.
// It holds no secret key material and is safe for concurrent use: every
// bootstrap borrows its own blind rotation evaluator from a pool.
type Evaluator struct {
	params Parameters
	ek     *EvaluationKey
	ringQ  *ring.Ring
	pool   sync.Pool

	testPolyAND ring.Poly
	testPolyOR  ring.Poly

	workers int
}

// EvaluatorOption configures an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithWorkers bounds the goroutines used by bitwise integer operations.
func WithWorkers(n int) EvaluatorOption {
	return func(e *Evaluator) {
		if n > 0 {
			e.workers = n
		}
	}
}

// NewEvaluator creates a new evaluator bound to an evaluation key.
// Test polynomials are derived from the parameters, not shipped with the key.
func NewEvaluator(ek *EvaluationKey, opts ...EvaluatorOption) *Evaluator {
	params := ek.params
	eval := &Evaluator{
		params:  params,
		ek:      ek,
		ringQ:   params.paramsLWE.RingQ(),
		workers: runtime.GOMAXPROCS(0),
	}
	eval.pool.New = func() any {
		return blindrot.NewEvaluator(params.paramsBR, params.paramsLWE)
	}

	scale := rlwe.NewScale(float64(params.Q()) / 8.0)
	ringQBR := params.paramsBR.RingQ()

	// With Q/8 encoding the normalized sum of two bits is -0.25, 0 or 0.25.
	// AND is true only for the top value; >= absorbs the exact boundary.
	eval.testPolyAND = blindrot.InitTestPolynomial(func(x float64) float64 {
		if x >= 0.25 {
			return 1.0
		}
		return -1.0
	}, scale, ringQBR, -1, 1)

	// OR is true unless both inputs are false.
	eval.testPolyOR = blindrot.InitTestPolynomial(func(x float64) float64 {
		if x > -0.25 {
			return 1.0
		}
		return -1.0
	}, scale, ringQBR, -1, 1)

	for _, opt := range opts {
		opt(eval)
	}
	return eval
}

// Params returns the parameter set of the evaluation key.
func (eval *Evaluator) Params() Parameters {
	return eval.params
}

// Key returns the evaluation key.
func (eval *Evaluator) Key() *EvaluationKey {
	return eval.ek
}

// Constant returns a trivial encryption of a public bit.
func (eval *Evaluator) Constant(value bool) *Ciphertext {
	return trivialBit(eval.params, value)
}

// bootstrap performs programmable bootstrapping with the given test polynomial
// and returns a fresh ciphertext with the result.
func (eval *Evaluator) bootstrap(ct *rlwe.Ciphertext, testPoly *ring.Poly) (*Ciphertext, error) {
	br := eval.pool.Get().(*blindrot.Evaluator)
	defer eval.pool.Put(br)

	results, err := br.Evaluate(ct, map[int]*ring.Poly{0: testPoly}, eval.ek.brk)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	out, ok := results[0]
	if !ok {
		return nil, fmt.Errorf("bootstrap: no result for slot 0")
	}
	return &Ciphertext{Ciphertext: out}, nil
}

// add adds two ciphertexts element-wise
func (eval *Evaluator) add(ct1, ct2 *Ciphertext) *rlwe.Ciphertext {
	result := rlwe.NewCiphertext(eval.params.paramsLWE, 1, ct1.Level())

	eval.ringQ.Add(ct1.Value[0], ct2.Value[0], result.Value[0])
	eval.ringQ.Add(ct1.Value[1], ct2.Value[1], result.Value[1])

	result.IsNTT = ct1.IsNTT

	return result
}

// ========== Boolean Gates ==========

// NOT computes the logical NOT of the input.
// Negation maps +Q/8 to -Q/8 and needs no bootstrap.
func (eval *Evaluator) NOT(ct *Ciphertext) *Ciphertext {
	if v, ok := ct.Constant(); ok {
		return eval.Constant(!v)
	}

	result := rlwe.NewCiphertext(eval.params.paramsLWE, 1, ct.Level())

	eval.ringQ.Neg(ct.Value[0], result.Value[0])
	eval.ringQ.Neg(ct.Value[1], result.Value[1])

	result.IsNTT = ct.IsNTT

	return &Ciphertext{Ciphertext: result}
}

// AND computes the logical AND of two inputs.
// A constant input folds the gate: AND(x, 1) = x, AND(x, 0) = 0.
func (eval *Evaluator) AND(ct1, ct2 *Ciphertext) (*Ciphertext, error) {
	if v, ok := ct1.Constant(); ok {
		return eval.foldAND(v, ct2), nil
	}
	if v, ok := ct2.Constant(); ok {
		return eval.foldAND(v, ct1), nil
	}
	return eval.bootstrap(eval.add(ct1, ct2), &eval.testPolyAND)
}

// OR computes the logical OR of two inputs.
// A constant input folds the gate: OR(x, 1) = 1, OR(x, 0) = x.
func (eval *Evaluator) OR(ct1, ct2 *Ciphertext) (*Ciphertext, error) {
	if v, ok := ct1.Constant(); ok {
		return eval.foldOR(v, ct2), nil
	}
	if v, ok := ct2.Constant(); ok {
		return eval.foldOR(v, ct1), nil
	}
	return eval.bootstrap(eval.add(ct1, ct2), &eval.testPolyOR)
}

func (eval *Evaluator) foldAND(c bool, ct *Ciphertext) *Ciphertext {
	if c {
		return ct
	}
	return eval.Constant(false)
}

func (eval *Evaluator) foldOR(c bool, ct *Ciphertext) *Ciphertext {
	if c {
		return eval.Constant(true)
	}
	return ct
}

// NAND computes NOT(AND(ct1, ct2)) with a single bootstrap.
func (eval *Evaluator) NAND(ct1, ct2 *Ciphertext) (*Ciphertext, error) {
	ct, err := eval.AND(ct1, ct2)
	if err != nil {
		return nil, err
	}
	return eval.NOT(ct), nil
}

// NOR computes NOT(OR(ct1, ct2)) with a single bootstrap.
func (eval *Evaluator) NOR(ct1, ct2 *Ciphertext) (*Ciphertext, error) {
	ct, err := eval.OR(ct1, ct2)
	if err != nil {
		return nil, err
	}
	return eval.NOT(ct), nil
}
