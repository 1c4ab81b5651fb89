// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package fhe

import (
	"errors"
	"testing"
)

func TestParametersByName(t *testing.T) {
	for _, name := range ParameterSetNames() {
		params, err := ParametersByName(name)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if params.Name() != name {
			t.Errorf("expected name %s, got %s", name, params.Name())
		}
		if params.Q()%uint64(2*params.N()) != 1 {
			t.Errorf("%s: modulus is not NTT friendly", name)
		}
	}

	if _, err := ParametersByName("PN1QP1"); !errors.Is(err, ErrUnsupportedParameters) {
		t.Errorf("expected ErrUnsupportedParameters, got %v", err)
	}
}

func TestParametersRejectSplitRings(t *testing.T) {
	testCases := []struct {
		name string
		lit  ParametersLiteral
	}{
		{"dimension", ParametersLiteral{LogNLWE: 9, LogNBR: 10, QLWE: 0x7fff801, QBR: 0x7fff801, BaseTwoDecomposition: 7}},
		{"modulus", ParametersLiteral{LogNLWE: 10, LogNBR: 10, QLWE: 0x8007001, QBR: 0x7fff801, BaseTwoDecomposition: 7}},
		{"decomposition", ParametersLiteral{LogNLWE: 10, LogNBR: 10, QLWE: 0x7fff801, QBR: 0x7fff801}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewParametersFromLiteral(tc.lit); !errors.Is(err, ErrUnsupportedParameters) {
				t.Errorf("expected ErrUnsupportedParameters, got %v", err)
			}
		})
	}
}

func TestParametersEqual(t *testing.T) {
	a, err := ParametersByName("PN10QP27")
	if err != nil {
		t.Fatal(err)
	}
	b, err := ParametersByName("PN11QP54")
	if err != nil {
		t.Fatal(err)
	}

	if !a.Equal(a) {
		t.Error("set should equal itself")
	}
	if a.Equal(b) {
		t.Error("distinct sets should differ")
	}
	if a.Equal(Parameters{}) {
		t.Error("zero parameters should not equal a real set")
	}
}
