// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package gmorph

import (
	"github.com/luxfi/gmorph/algebra"
)

// Enc is an encrypted value: a 3x3 quaternion matrix conjugated by a key
// pair. Enc values are immutable; every operation returns a new one. The zero
// value is EncZero().
//
// Operands must come from the same key pair. Mixing key pairs is not
// detected and decrypts to garbage.
type Enc struct {
	m matrix
}

// EncOne returns the identity matrix, a valid encryption of 1 under every key
// pair since F·I·B = I.
func EncOne() Enc {
	return Enc{m: algebra.Identity3[algebra.Q231]()}
}

// EncZero returns the zero matrix, an encryption of 0 under every key pair.
func EncZero() Enc {
	return Enc{m: matrix{}.Zero()}
}

// Matrix exposes the ciphertext matrix.
func (ct Enc) Matrix() algebra.Matrix3[algebra.Q231] {
	return ct.m
}

// Add returns an encryption of the sum of the plaintexts.
func (ct Enc) Add(other Enc) Enc {
	return Enc{m: ct.m.Add(other.m)}
}

// Sub returns an encryption of the difference of the plaintexts mod P.
func (ct Enc) Sub(other Enc) Enc {
	return Enc{m: ct.m.Sub(other.m)}
}

// Mul returns an encryption of the product of the plaintexts. The inner
// B·F pair cancels: (F·X·B)·(F·Y·B) = F·X·Y·B.
func (ct Enc) Mul(other Enc) Enc {
	return Enc{m: ct.m.Mul(other.m)}
}

// Neg returns an encryption of -x mod P.
func (ct Enc) Neg() Enc {
	return Enc{m: ct.m.Neg()}
}

// Equal compares the ciphertext matrices. Two encryptions of the same value
// are almost never Equal because of the embedding noise.
func (ct Enc) Equal(other Enc) bool {
	return ct.m.Equal(other.m)
}

// IsInvertible reports whether the ciphertext matrix passes block inversion.
// Fresh ciphertexts never do; see ProbeBoundary.
func (ct Enc) IsInvertible() bool {
	_, ok := ct.m.TryInvert()
	return ok
}

func (ct Enc) String() string {
	return ct.m.String()
}
