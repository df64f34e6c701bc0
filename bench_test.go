// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package gmorph

import (
	"context"
	"fmt"
	"testing"

	"github.com/luxfi/gmorph/algebra"
)

// BenchmarkKeyGeneration benchmarks key pair sampling
func BenchmarkKeyGeneration(b *testing.B) {
	kg := NewKeyGenerator(nil)
	for i := 0; i < b.N; i++ {
		kg.GenKeyPair()
	}
}

// BenchmarkEncryptDecrypt benchmarks the conjugation round trip
func BenchmarkEncryptDecrypt(b *testing.B) {
	tc := newTestContext(b, "bench")

	b.Run("Encrypt", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			tc.enc.Encrypt(uint32(i))
		}
	})

	ct := tc.enc.Encrypt(7)
	b.Run("Decrypt", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			tc.dec.Decrypt(ct)
		}
	})
}

// BenchmarkHomomorphic benchmarks ciphertext arithmetic
func BenchmarkHomomorphic(b *testing.B) {
	tc := newTestContext(b, "bench")
	x, y := tc.enc.Encrypt(3), tc.enc.Encrypt(5)

	b.Run("Add", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			x.Add(y)
		}
	})

	b.Run("Mul", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			x.Mul(y)
		}
	})

	b.Run("Invert3x3", func(b *testing.B) {
		m := tc.kp.Forwards()
		for i := 0; i < b.N; i++ {
			if _, err := algebra.Invert3x3(m); err != nil {
				b.Fatal(err)
			}
		}
	})
}

// BenchmarkDotProduct compares the sequential and parallel dot products
func BenchmarkDotProduct(b *testing.B) {
	tc := newTestContext(b, "bench")
	for _, n := range []int{64, 1024} {
		vs := make([]uint32, n)
		for i := range vs {
			vs[i] = uint32(i)
		}
		x, y := tc.enc.EncryptSlice(vs), tc.enc.EncryptSlice(vs)

		b.Run(fmt.Sprintf("n=%d/Sequential", n), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				if _, err := tc.eval.DotProduct(x, y); err != nil {
					b.Fatal(err)
				}
			}
		})

		b.Run(fmt.Sprintf("n=%d/Parallel", n), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				if _, err := tc.eval.DotProductParallel(context.Background(), x, y, 8); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
