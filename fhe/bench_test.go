// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package fhe

import (
	"testing"
)

// BenchmarkParameters benchmarks parameter set initialization
func BenchmarkParameters(b *testing.B) {
	for _, name := range ParameterSetNames() {
		b.Run(name, func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				if _, err := ParametersByName(name); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkEncryption benchmarks encryption of a bit and of a price
func BenchmarkEncryption(b *testing.B) {
	f := keys(b)

	b.Run("Bit", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			if _, err := f.enc.Encrypt(true); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run("Uint32", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			if _, err := f.enc.EncryptUint32(12000); err != nil {
				b.Fatal(err)
			}
		}
	})
}

// BenchmarkGates benchmarks the bootstrapped gates
func BenchmarkGates(b *testing.B) {
	f := keys(b)
	ctA := f.encryptBit(b, true)
	ctB := f.encryptBit(b, false)

	b.Run("AND", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			if _, err := f.eval.AND(ctA, ctB); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run("OR", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			if _, err := f.eval.OR(ctA, ctB); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run("NOT", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			f.eval.NOT(ctA)
		}
	})
}

// BenchmarkCompare benchmarks one trigger check: a 32-bit scalar compare
// followed by the lift to an encrypted 0/1.
func BenchmarkCompare(b *testing.B) {
	f := keys(b)
	x := f.encrypt(b, 12000)

	b.Run("ScalarLe", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			if _, err := f.eval.ScalarLe(x, 11999); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run("ScalarGeLift", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			ge, err := f.eval.ScalarGe(x, 11999)
			if err != nil {
				b.Fatal(err)
			}
			f.eval.Lift(ge)
		}
	})

	lifted := f.eval.Lift(f.encryptBit(b, true))
	b.Run("Or", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			if _, err := f.eval.Or(lifted, lifted); err != nil {
				b.Fatal(err)
			}
		}
	})
}

// BenchmarkSerialization benchmarks the wire codec
func BenchmarkSerialization(b *testing.B) {
	f := keys(b)
	x := f.encrypt(b, 12000)
	data, err := x.MarshalBinary()
	if err != nil {
		b.Fatal(err)
	}

	b.Run("MarshalInteger", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			if _, err := x.MarshalBinary(); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run("UnmarshalInteger", func(b *testing.B) {
		b.SetBytes(int64(len(data)))
		for i := 0; i < b.N; i++ {
			var y Integer
			if err := y.UnmarshalBinary(data); err != nil {
				b.Fatal(err)
			}
		}
	})

	ekData, err := f.ek.MarshalBinary()
	if err != nil {
		b.Fatal(err)
	}
	b.Run("UnmarshalEvaluationKey", func(b *testing.B) {
		b.SetBytes(int64(len(ekData)))
		for i := 0; i < b.N; i++ {
			var ek EvaluationKey
			if err := ek.UnmarshalBinary(ekData); err != nil {
				b.Fatal(err)
			}
		}
	})
}
