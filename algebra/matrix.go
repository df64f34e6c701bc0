// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package algebra

import (
	"fmt"
	"strings"
)

// Matrix2 is a row-major 2x2 matrix over T.
type Matrix2[T Field[T]] [2][2]T

// Matrix3 is a row-major 3x3 matrix over T.
type Matrix3[T Field[T]] [3][3]T

// NewMatrix2 builds [[a, b], [c, d]].
func NewMatrix2[T Field[T]](a, b, c, d T) Matrix2[T] {
	return Matrix2[T]{{a, b}, {c, d}}
}

// NewMatrix3 builds a matrix from nine entries given in row-major order.
func NewMatrix3[T Field[T]](e [9]T) Matrix3[T] {
	var m Matrix3[T]
	for i := range e {
		m[i/3][i%3] = e[i]
	}
	return m
}

// Identity2 returns the 2x2 identity.
func Identity2[T Field[T]]() Matrix2[T] {
	var z T
	return Matrix2[T]{{z.One(), z.Zero()}, {z.Zero(), z.One()}}
}

// Identity3 returns the 3x3 identity.
func Identity3[T Field[T]]() Matrix3[T] {
	var z T
	var m Matrix3[T]
	for i := range m {
		for j := range m[i] {
			if i == j {
				m[i][j] = z.One()
			} else {
				m[i][j] = z.Zero()
			}
		}
	}
	return m
}

func (m Matrix2[T]) Add(n Matrix2[T]) (r Matrix2[T]) {
	for i := range m {
		for j := range m[i] {
			r[i][j] = m[i][j].Add(n[i][j])
		}
	}
	return
}

func (m Matrix2[T]) Sub(n Matrix2[T]) (r Matrix2[T]) {
	for i := range m {
		for j := range m[i] {
			r[i][j] = m[i][j].Sub(n[i][j])
		}
	}
	return
}

func (m Matrix2[T]) Neg() (r Matrix2[T]) {
	for i := range m {
		for j := range m[i] {
			r[i][j] = m[i][j].Neg()
		}
	}
	return
}

// Mul returns m·n. Entry products keep the left factor from m.
func (m Matrix2[T]) Mul(n Matrix2[T]) (r Matrix2[T]) {
	for i := range m {
		for j := range n[0] {
			r[i][j] = m[i][0].Mul(n[0][j]).Add(m[i][1].Mul(n[1][j]))
		}
	}
	return
}

func (m Matrix2[T]) Zero() Matrix2[T] {
	var z T
	return Matrix2[T]{{z.Zero(), z.Zero()}, {z.Zero(), z.Zero()}}
}

func (m Matrix2[T]) One() Matrix2[T] {
	return Identity2[T]()
}

func (m Matrix2[T]) IsZero() bool {
	return m.Equal(m.Zero())
}

func (m Matrix2[T]) Equal(n Matrix2[T]) bool {
	for i := range m {
		for j := range m[i] {
			if !m[i][j].Equal(n[i][j]) {
				return false
			}
		}
	}
	return true
}

// TryInvert wraps Invert2x2 so that Matrix2 is itself a Field.
func (m Matrix2[T]) TryInvert() (Matrix2[T], bool) {
	inv, err := Invert2x2(m)
	return inv, err == nil
}

func (m Matrix2[T]) String() string {
	return formatRows(m[0][:], m[1][:])
}

func (m Matrix3[T]) Add(n Matrix3[T]) (r Matrix3[T]) {
	for i := range m {
		for j := range m[i] {
			r[i][j] = m[i][j].Add(n[i][j])
		}
	}
	return
}

func (m Matrix3[T]) Sub(n Matrix3[T]) (r Matrix3[T]) {
	for i := range m {
		for j := range m[i] {
			r[i][j] = m[i][j].Sub(n[i][j])
		}
	}
	return
}

func (m Matrix3[T]) Neg() (r Matrix3[T]) {
	for i := range m {
		for j := range m[i] {
			r[i][j] = m[i][j].Neg()
		}
	}
	return
}

// Mul returns m·n. Entry products keep the left factor from m.
func (m Matrix3[T]) Mul(n Matrix3[T]) (r Matrix3[T]) {
	for i := range m {
		for j := range n[0] {
			acc := m[i][0].Mul(n[0][j])
			for k := 1; k < 3; k++ {
				acc = acc.Add(m[i][k].Mul(n[k][j]))
			}
			r[i][j] = acc
		}
	}
	return
}

// Map applies f to every entry.
func (m Matrix3[T]) Map(f func(T) T) (r Matrix3[T]) {
	for i := range m {
		for j := range m[i] {
			r[i][j] = f(m[i][j])
		}
	}
	return
}

func (m Matrix3[T]) Zero() Matrix3[T] {
	var z T
	return Matrix3[T]{}.Map(func(T) T { return z.Zero() })
}

func (m Matrix3[T]) One() Matrix3[T] {
	return Identity3[T]()
}

func (m Matrix3[T]) IsZero() bool {
	return m.Equal(m.Zero())
}

func (m Matrix3[T]) Equal(n Matrix3[T]) bool {
	for i := range m {
		for j := range m[i] {
			if !m[i][j].Equal(n[i][j]) {
				return false
			}
		}
	}
	return true
}

// IsUpperTriangular reports whether every entry below the diagonal is zero.
func (m Matrix3[T]) IsUpperTriangular() bool {
	return m[1][0].IsZero() && m[2][0].IsZero() && m[2][1].IsZero()
}

// Entries returns the nine entries in row-major order.
func (m Matrix3[T]) Entries() (e [9]T) {
	for i := range e {
		e[i] = m[i/3][i%3]
	}
	return
}

// TryInvert wraps Invert3x3 so that Matrix3 is itself a Field.
func (m Matrix3[T]) TryInvert() (Matrix3[T], bool) {
	inv, err := Invert3x3(m)
	return inv, err == nil
}

func (m Matrix3[T]) String() string {
	return formatRows(m[0][:], m[1][:], m[2][:])
}

func formatRows[T any](rows ...[]T) string {
	var sb strings.Builder
	for _, row := range rows {
		sb.WriteString("[")
		for j, e := range row {
			if j > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%v", e)
		}
		sb.WriteString("]\n")
	}
	return sb.String()
}
