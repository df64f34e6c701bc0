// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package gmorph

import (
	"io"

	"github.com/luxfi/gmorph/algebra"
)

// Plaintext is an embedded value without key conjugation: the payload sits in
// cell (0, 0) of a noisy upper-triangular matrix. Plaintexts support the same
// ring operations as ciphertexts and hide nothing from anyone who knows the
// layout.
type Plaintext struct {
	m matrix
}

// Encoder embeds values into Plaintexts.
type Encoder struct {
	sampler *algebra.Sampler
}

// NewEncoder creates an encoder drawing noise from prng, or from NewPRNG()
// when prng is nil.
func NewEncoder(prng io.Reader) *Encoder {
	return &Encoder{sampler: newSampler(prng)}
}

// Encode embeds v mod P.
func (e *Encoder) Encode(v uint32) Plaintext {
	m, attempts := algebra.Embed(e.sampler, algebra.Q231FromUint32(v))
	embeddings.Add(1)
	closingAttempts.Add(uint64(attempts))
	return Plaintext{m: m}
}

// Decode returns the real part of the payload cell.
func (pt Plaintext) Decode() uint32 {
	return algebra.Project(pt.m).W.Uint32()
}

// Payload returns the full payload quaternion.
func (pt Plaintext) Payload() algebra.Q231 {
	return algebra.Project(pt.m)
}

// Matrix exposes the embedding.
func (pt Plaintext) Matrix() algebra.Matrix3[algebra.Q231] {
	return pt.m
}

func (pt Plaintext) Add(other Plaintext) Plaintext {
	return Plaintext{m: pt.m.Add(other.m)}
}

func (pt Plaintext) Sub(other Plaintext) Plaintext {
	return Plaintext{m: pt.m.Sub(other.m)}
}

func (pt Plaintext) Mul(other Plaintext) Plaintext {
	return Plaintext{m: pt.m.Mul(other.m)}
}

func (pt Plaintext) Neg() Plaintext {
	return Plaintext{m: pt.m.Neg()}
}

func (pt Plaintext) Equal(other Plaintext) bool {
	return pt.m.Equal(other.m)
}
