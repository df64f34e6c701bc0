// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package algebra

import "fmt"

// Invert2x2 inverts [[a, b], [c, d]] through its Schur complements
//
//	x = a - b·d⁻¹·c,  y = d - c·a⁻¹·b
//	M⁻¹ = [[x⁻¹, -x⁻¹·b·d⁻¹], [-d⁻¹·c·x⁻¹, y⁻¹]]
//
// Operand order matters over non-commutative rings and follows the formula
// exactly. It fails with ErrNonInvertible when a, d, x or y has no inverse,
// which also rejects some invertible matrices (those with a singular corner).
func Invert2x2[T Field[T]](m Matrix2[T]) (Matrix2[T], error) {
	a, b, c, d := m[0][0], m[0][1], m[1][0], m[1][1]

	aInv, ok := a.TryInvert()
	if !ok {
		return Matrix2[T]{}, fmt.Errorf("invert 2x2: corner a: %w", ErrNonInvertible)
	}
	dInv, ok := d.TryInvert()
	if !ok {
		return Matrix2[T]{}, fmt.Errorf("invert 2x2: corner d: %w", ErrNonInvertible)
	}

	x := a.Sub(b.Mul(dInv).Mul(c))
	y := d.Sub(c.Mul(aInv).Mul(b))

	xInv, ok := x.TryInvert()
	if !ok {
		return Matrix2[T]{}, fmt.Errorf("invert 2x2: schur complement x: %w", ErrNonInvertible)
	}
	yInv, ok := y.TryInvert()
	if !ok {
		return Matrix2[T]{}, fmt.Errorf("invert 2x2: schur complement y: %w", ErrNonInvertible)
	}

	return Matrix2[T]{
		{xInv, xInv.Neg().Mul(b).Mul(dInv)},
		{dInv.Neg().Mul(c).Mul(xInv), yInv},
	}, nil
}

// Invert3x3 inverts m by splitting it into a 1+2 block matrix
//
//	[ a | b ]    a: 1x1, b: 1x2
//	[ c | d ]    c: 2x1, d: 2x2
//
// and reusing Invert2x2 for d and for the complement y = d - c·a⁻¹·b. With
// x = a - b·d⁻¹·c the result is
//
//	[ x⁻¹          | -x⁻¹·b·d⁻¹ ]
//	[ -d⁻¹·c·x⁻¹   | y⁻¹        ]
//
// Any failing step yields ErrNonInvertible; singular input is an expected
// outcome, never a panic.
func Invert3x3[T Field[T]](m Matrix3[T]) (Matrix3[T], error) {
	a := m[0][0]
	b := [2]T{m[0][1], m[0][2]}
	c := [2]T{m[1][0], m[2][0]}
	d := Matrix2[T]{{m[1][1], m[1][2]}, {m[2][1], m[2][2]}}

	aInv, ok := a.TryInvert()
	if !ok {
		return Matrix3[T]{}, fmt.Errorf("invert 3x3: corner a: %w", ErrNonInvertible)
	}
	dInv, err := Invert2x2(d)
	if err != nil {
		return Matrix3[T]{}, fmt.Errorf("invert 3x3: block d: %w", err)
	}

	// bd = b·d⁻¹ (1x2), dc = d⁻¹·c (2x1)
	bd := [2]T{
		b[0].Mul(dInv[0][0]).Add(b[1].Mul(dInv[1][0])),
		b[0].Mul(dInv[0][1]).Add(b[1].Mul(dInv[1][1])),
	}
	dc := [2]T{
		dInv[0][0].Mul(c[0]).Add(dInv[0][1].Mul(c[1])),
		dInv[1][0].Mul(c[0]).Add(dInv[1][1].Mul(c[1])),
	}

	x := a.Sub(bd[0].Mul(c[0]).Add(bd[1].Mul(c[1])))

	var y Matrix2[T]
	for i := range y {
		ca := c[i].Mul(aInv)
		for j := range y[i] {
			y[i][j] = d[i][j].Sub(ca.Mul(b[j]))
		}
	}

	xInv, ok := x.TryInvert()
	if !ok {
		return Matrix3[T]{}, fmt.Errorf("invert 3x3: schur complement x: %w", ErrNonInvertible)
	}
	yInv, err := Invert2x2(y)
	if err != nil {
		return Matrix3[T]{}, fmt.Errorf("invert 3x3: schur complement y: %w", err)
	}

	nx := xInv.Neg()
	return Matrix3[T]{
		{xInv, nx.Mul(bd[0]), nx.Mul(bd[1])},
		{dc[0].Neg().Mul(xInv), yInv[0][0], yInv[0][1]},
		{dc[1].Neg().Mul(xInv), yInv[1][0], yInv[1][1]},
	}, nil
}
