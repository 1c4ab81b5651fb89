// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package fhe

import (
	"errors"

	"github.com/google/uuid"
	"github.com/luxfi/lattice/v7/core/rlwe"
)

// Integer layout: 16 radix blocks of 2 bits.
const (
	BlockBits   = 2
	NumBlocks   = 16
	IntegerBits = BlockBits * NumBlocks
)

// ErrWidth is returned for integers that are not IntegerBits wide.
var ErrWidth = errors.New("fhe: integer width mismatch")

// Ciphertext represents an encrypted bit
type Ciphertext struct {
	*rlwe.Ciphertext

	// constant is set on noiseless encryptions of public values so gates
	// can fold them without bootstrapping. It is not serialized.
	constant bool
	value    bool
}

// Constant reports the public value of a trivially encrypted bit.
func (ct *Ciphertext) Constant() (value, ok bool) {
	return ct.value, ct.constant
}

// Integer is an encrypted unsigned integer as a vector of encrypted bits,
// LSB at index 0.
type Integer struct {
	// Ceremony identifies the keys the bits are encrypted under
	Ceremony uuid.UUID

	params Parameters
	bits   []*Ciphertext
}

// NumBits returns the number of bits
func (x *Integer) NumBits() int {
	return len(x.bits)
}

// Params returns the parameter set the bits are encrypted with.
func (x *Integer) Params() Parameters {
	return x.params
}

// Bit returns bit i, LSB first.
func (x *Integer) Bit(i int) *Ciphertext {
	return x.bits[i]
}

// Block returns radix block i, LSB first.
func (x *Integer) Block(i int) []*Ciphertext {
	return x.bits[i*BlockBits : (i+1)*BlockBits]
}

func (x *Integer) checkWidth() error {
	if len(x.bits) != IntegerBits {
		return ErrWidth
	}
	for _, b := range x.bits {
		if b == nil || b.Ciphertext == nil {
			return ErrWidth
		}
	}
	return nil
}

// trivialBit builds a noiseless encryption (a = 0, b = m) of a public bit.
func trivialBit(params Parameters, value bool) *Ciphertext {
	p := params.paramsLWE
	pt := rlwe.NewPlaintext(p, p.MaxLevel())
	pt.Value.Coeffs[0][0] = encodeBit(params.Q(), value)
	p.RingQ().NTT(pt.Value, pt.Value)

	ct := rlwe.NewCiphertext(p, 1, p.MaxLevel())
	ct.Value[0] = *pt.Value.CopyNew()
	ct.IsNTT = true

	return &Ciphertext{Ciphertext: ct, constant: true, value: value}
}

// encodeBit maps true to Q/8 and false to -Q/8 mod Q.
func encodeBit(q uint64, value bool) uint64 {
	if value {
		return q / 8
	}
	return q - q/8
}
