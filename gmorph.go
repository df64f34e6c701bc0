// Package gmorph implements a homomorphic encryption scheme for unsigned
// 32-bit values based on matrix conjugation over quaternions.
//
// A value is reduced into the field Z/(2^31-1), lifted to a real quaternion
// and hidden in cell (0, 0) of a noisy, singular 3x3 quaternion matrix. The
// matrix is then conjugated by a random invertible key matrix and its inverse:
//
//	ct = F · E · B,  B = F⁻¹
//
// Conjugation is a ring homomorphism, so sums and products of ciphertexts
// decrypt to sums and products of the plaintexts modulo 2^31-1.
//
// The construction makes no claim of cryptographic security. ProbeBoundary
// demonstrates how structure leaks through the invertibility of ciphertexts.
//
// This implementation is built on:
//   - algebra: the prime field, quaternions, block matrix inversion
//   - luxfi/lattice sampling for the PRNGs and buffer for binary encoding
//
// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause
package gmorph

import (
	"errors"

	"github.com/luxfi/gmorph/algebra"
)

// Version is the library version reported by the commands and the server.
const Version = "0.3.0"

// Modulus is the prime every plaintext is reduced by.
const Modulus = algebra.P

var (
	// ErrEmptyInput is returned by reductions that need at least one operand.
	ErrEmptyInput = errors.New("gmorph: empty input")
	// ErrLengthMismatch is returned when paired operands differ in length.
	ErrLengthMismatch = errors.New("gmorph: length mismatch")
	// ErrMalformed is returned when decoded data violates an invariant.
	ErrMalformed = errors.New("gmorph: malformed data")
)

type matrix = algebra.Matrix3[algebra.Q231]
