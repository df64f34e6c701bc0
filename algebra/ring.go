// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

// Package algebra implements the arithmetic behind gmorph: the prime field
// Z/(2^31-1), quaternions over any invertible ring, 2x2 and 3x3 matrices over
// such rings, block matrix inversion and the noisy quaternion embedding.
//
// All element types are immutable values. Every operation returns a new value
// and never mutates its receiver.
package algebra

import "errors"

var (
	// ErrNonInvertible is returned when an element or matrix has no inverse.
	ErrNonInvertible = errors.New("algebra: not invertible")
	// ErrOutOfRange is returned when an integer does not fit the field.
	ErrOutOfRange = errors.New("algebra: value out of range")
	// ErrMalformed is returned when an encoded element has the wrong shape.
	ErrMalformed = errors.New("algebra: malformed encoding")
)

// Ring is the capability set shared by every element type used in this
// package. Operand is the concrete element type, so that a Ring[Mod231] is
// implemented by Mod231 itself.
type Ring[Operand any] interface {
	Add(y Operand) Operand // Add x+y
	Sub(y Operand) Operand // Sub x-y
	Neg() Operand          // Neg -x
	Mul(y Operand) Operand // Mul x*y
	Zero() Operand         // Zero additive identity
	One() Operand          // One multiplicative identity
	IsZero() bool
	Equal(y Operand) bool
}

// Invertible is implemented by elements that may have a multiplicative
// inverse. TryInvert reports false when the element has none.
type Invertible[Operand any] interface {
	TryInvert() (Operand, bool)
}

// Field is a ring whose elements can be tested for invertibility. The name is
// loose: quaternions satisfy it while being non-commutative.
type Field[Operand any] interface {
	Ring[Operand]
	Invertible[Operand]
}
