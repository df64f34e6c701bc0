// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package algebra

import (
	"encoding/json"
	"fmt"
)

// Quaternion is w + i·I + j·J + k·K over the ring T. Multiplication is the
// Hamilton product and does not commute.
type Quaternion[T Field[T]] struct {
	W, I, J, K T
}

// NewQuaternion builds a quaternion from its four coordinates.
func NewQuaternion[T Field[T]](w, i, j, k T) Quaternion[T] {
	return Quaternion[T]{W: w, I: i, J: j, K: k}
}

// FromReal lifts a ring element to a quaternion with zero imaginary part.
func FromReal[T Field[T]](w T) Quaternion[T] {
	z := w.Zero()
	return Quaternion[T]{W: w, I: z, J: z, K: z}
}

// FromParts builds a quaternion from a real part and an imaginary vector.
func FromParts[T Field[T]](w T, imag [3]T) Quaternion[T] {
	return Quaternion[T]{W: w, I: imag[0], J: imag[1], K: imag[2]}
}

// Real returns the w coordinate.
func (q Quaternion[T]) Real() T {
	return q.W
}

// Imag returns the (i, j, k) vector.
func (q Quaternion[T]) Imag() [3]T {
	return [3]T{q.I, q.J, q.K}
}

func (q Quaternion[T]) Add(r Quaternion[T]) Quaternion[T] {
	return Quaternion[T]{q.W.Add(r.W), q.I.Add(r.I), q.J.Add(r.J), q.K.Add(r.K)}
}

func (q Quaternion[T]) Sub(r Quaternion[T]) Quaternion[T] {
	return Quaternion[T]{q.W.Sub(r.W), q.I.Sub(r.I), q.J.Sub(r.J), q.K.Sub(r.K)}
}

func (q Quaternion[T]) Neg() Quaternion[T] {
	return Quaternion[T]{q.W.Neg(), q.I.Neg(), q.J.Neg(), q.K.Neg()}
}

// Conjugate negates the imaginary part.
func (q Quaternion[T]) Conjugate() Quaternion[T] {
	return Quaternion[T]{q.W, q.I.Neg(), q.J.Neg(), q.K.Neg()}
}

// Norm2 returns w²+i²+j²+k², the real part of q·conj(q).
func (q Quaternion[T]) Norm2() T {
	return q.W.Mul(q.W).Add(q.I.Mul(q.I)).Add(q.J.Mul(q.J)).Add(q.K.Mul(q.K))
}

// Scale multiplies every coordinate by s.
func (q Quaternion[T]) Scale(s T) Quaternion[T] {
	return Quaternion[T]{q.W.Mul(s), q.I.Mul(s), q.J.Mul(s), q.K.Mul(s)}
}

// Mul returns the Hamilton product q·r:
//
//	w' = w1w2 - <v1, v2>
//	v' = v1 × v2 + w1·v2 + w2·v1
func (q Quaternion[T]) Mul(r Quaternion[T]) Quaternion[T] {
	return Quaternion[T]{
		W: q.W.Mul(r.W).Sub(q.I.Mul(r.I)).Sub(q.J.Mul(r.J)).Sub(q.K.Mul(r.K)),
		I: q.W.Mul(r.I).Add(q.I.Mul(r.W)).Add(q.J.Mul(r.K)).Sub(q.K.Mul(r.J)),
		J: q.W.Mul(r.J).Add(q.J.Mul(r.W)).Add(q.K.Mul(r.I)).Sub(q.I.Mul(r.K)),
		K: q.W.Mul(r.K).Add(q.K.Mul(r.W)).Add(q.I.Mul(r.J)).Sub(q.J.Mul(r.I)),
	}
}

// TryInvert returns conj(q)·Norm2(q)^-1. It reports false when the norm is
// not invertible, which over a finite field includes non-zero quaternions of
// zero norm.
func (q Quaternion[T]) TryInvert() (Quaternion[T], bool) {
	inv, ok := q.Norm2().TryInvert()
	if !ok {
		return Quaternion[T]{}, false
	}
	return q.Conjugate().Scale(inv), true
}

// Zero returns the all-zero quaternion.
func (q Quaternion[T]) Zero() Quaternion[T] {
	z := q.W.Zero()
	return Quaternion[T]{z, z, z, z}
}

// One returns the real quaternion 1.
func (q Quaternion[T]) One() Quaternion[T] {
	return FromReal(q.W.One())
}

func (q Quaternion[T]) IsZero() bool {
	return q.W.IsZero() && q.I.IsZero() && q.J.IsZero() && q.K.IsZero()
}

func (q Quaternion[T]) IsOne() bool {
	return q.Equal(q.One())
}

func (q Quaternion[T]) Equal(r Quaternion[T]) bool {
	return q.W.Equal(r.W) && q.I.Equal(r.I) && q.J.Equal(r.J) && q.K.Equal(r.K)
}

func (q Quaternion[T]) String() string {
	return fmt.Sprintf("%v+%vi+%vj+%vk", q.W, q.I, q.J, q.K)
}

// MarshalJSON encodes q as the array [w, i, j, k].
func (q Quaternion[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]T{q.W, q.I, q.J, q.K})
}

// UnmarshalJSON decodes the array form written by MarshalJSON.
func (q *Quaternion[T]) UnmarshalJSON(data []byte) error {
	var c []T
	if err := json.Unmarshal(data, &c); err != nil {
		return fmt.Errorf("decode quaternion: %w", err)
	}
	if len(c) != 4 {
		return fmt.Errorf("decode quaternion: %d coordinates, want 4: %w", len(c), ErrMalformed)
	}
	*q = Quaternion[T]{c[0], c[1], c[2], c[3]}
	return nil
}
