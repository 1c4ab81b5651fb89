// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

// Package fhe implements the boolean TFHE primitives used to evaluate price
// triggers on encrypted bounds.
//
// Bits are RLWE ciphertexts whose constant coefficient encodes +Q/8 (true)
// or -Q/8 (false). Binary gates are evaluated with programmable
// bootstrapping through blind rotations; NOT is a free negation. Integers
// are bit-sliced, least significant bit first.
//
// This implementation is built on luxfi/lattice primitives:
//   - RLWE encryption for bits
//   - RGSW for blind rotation keys
//   - Blind rotations for programmable bootstrapping
//
// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause
package fhe

import (
	"errors"
	"fmt"
	"sort"

	"github.com/luxfi/lattice/v7/core/rlwe"
	"github.com/luxfi/lattice/v7/utils"
)

// ErrUnsupportedParameters is returned for parameter literals the engine
// cannot bootstrap with a single secret.
var ErrUnsupportedParameters = errors.New("fhe: unsupported parameters")

// Parameters defines the FHE parameter set
type Parameters struct {
	name string
	// paramsLWE defines parameters for encrypted bits
	paramsLWE rlwe.Parameters
	// paramsBR defines parameters for blind rotation (bootstrapping)
	paramsBR rlwe.Parameters
	// evkParams defines blind rotation key decomposition
	evkParams rlwe.EvaluationKeyParameters
}

// ParametersLiteral is a user-friendly parameter literal
type ParametersLiteral struct {
	// Name identifies the set on the wire
	Name string
	// LogNLWE is log2 of the LWE dimension
	LogNLWE int
	// LogNBR is log2 of the blind rotation dimension
	LogNBR int
	// QLWE is the LWE modulus
	QLWE uint64
	// QBR is the blind rotation modulus
	QBR uint64
	// BaseTwoDecomposition of the RGSW gadget
	BaseTwoDecomposition int
}

// Standard parameter sets. LWE and blind rotation share dimension and
// modulus so the blind rotation output is directly an LWE-domain bit and a
// single secret serves both.
var (
	// PN10QP27 provides ~128-bit security with good performance.
	// N=1024, Q=134215681
	PN10QP27 = ParametersLiteral{
		Name:                 "PN10QP27",
		LogNLWE:              10,
		LogNBR:               10,
		QLWE:                 0x7fff801,
		QBR:                  0x7fff801,
		BaseTwoDecomposition: 7,
	}

	// PN11QP54 provides ~128-bit security with higher precision.
	// N=2048, Q=~2^54
	PN11QP54 = ParametersLiteral{
		Name:                 "PN11QP54",
		LogNLWE:              11,
		LogNBR:               11,
		QLWE:                 0x3FFFFFFFFFC0001,
		QBR:                  0x3FFFFFFFFFC0001,
		BaseTwoDecomposition: 10,
	}
)

var parameterSets = map[string]ParametersLiteral{
	PN10QP27.Name: PN10QP27,
	PN11QP54.Name: PN11QP54,
}

// ParameterSetNames lists the registered parameter sets.
func ParameterSetNames() []string {
	names := make([]string, 0, len(parameterSets))
	for name := range parameterSets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParametersByName builds a registered parameter set.
func ParametersByName(name string) (Parameters, error) {
	lit, ok := parameterSets[name]
	if !ok {
		return Parameters{}, fmt.Errorf("%w: unknown set %q", ErrUnsupportedParameters, name)
	}
	return NewParametersFromLiteral(lit)
}

// NewParametersFromLiteral creates Parameters from a parameter literal
func NewParametersFromLiteral(lit ParametersLiteral) (params Parameters, err error) {
	if lit.LogNLWE != lit.LogNBR || lit.QLWE != lit.QBR {
		return params, fmt.Errorf("%w: LWE and blind rotation rings must match", ErrUnsupportedParameters)
	}
	if lit.BaseTwoDecomposition <= 0 {
		return params, fmt.Errorf("%w: base two decomposition must be positive", ErrUnsupportedParameters)
	}

	params.name = lit.Name

	params.paramsLWE, err = rlwe.NewParametersFromLiteral(rlwe.ParametersLiteral{
		LogN:    lit.LogNLWE,
		Q:       []uint64{lit.QLWE},
		NTTFlag: true,
	})
	if err != nil {
		return params, fmt.Errorf("lwe parameters: %w", err)
	}

	params.paramsBR, err = rlwe.NewParametersFromLiteral(rlwe.ParametersLiteral{
		LogN:    lit.LogNBR,
		Q:       []uint64{lit.QBR},
		NTTFlag: true,
	})
	if err != nil {
		return params, fmt.Errorf("blind rotation parameters: %w", err)
	}

	params.evkParams = rlwe.EvaluationKeyParameters{
		BaseTwoDecomposition: utils.Pointy(lit.BaseTwoDecomposition),
	}

	return params, nil
}

// Name returns the registered name of the set, empty for ad hoc literals.
func (p Parameters) Name() string {
	return p.name
}

// N returns the LWE dimension
func (p Parameters) N() int {
	return p.paramsLWE.N()
}

// Q returns the ciphertext modulus
func (p Parameters) Q() uint64 {
	return p.paramsLWE.Q()[0]
}

// Equal reports whether both sets describe the same rings.
func (p Parameters) Equal(other Parameters) bool {
	if !p.valid() || !other.valid() {
		return false
	}
	return p.N() == other.N() && p.Q() == other.Q() &&
		*p.evkParams.BaseTwoDecomposition == *other.evkParams.BaseTwoDecomposition
}

// valid is false for the zero value.
func (p Parameters) valid() bool {
	return p.evkParams.BaseTwoDecomposition != nil
}
