// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package algebra

// Embed hides q in cell (0, 0) of an upper-triangular 3x3 matrix. The cells
// above the diagonal and cell (2, 2) are uniform noise; cell (1, 1) holds a
// random quaternion of norm zero, which makes the whole matrix singular.
//
// Products and sums of upper-triangular matrices stay upper-triangular and
// their (0, 0) cell is the product or sum of the (0, 0) cells, so the payload
// survives ring operations untouched by the noise.
//
// The zero-norm quaternion (x, ci, cj, ck) is found by drawing c until
// -(ci²+cj²+ck²) has a square root x. About half of all draws succeed; the
// loop has no cap. The second result is the number of draws it took.
func Embed(s *Sampler, q Q231) (Matrix3[Q231], int) {
	var m Matrix3[Q231]
	for i := range m {
		for j := i; j < 3; j++ {
			m[i][j] = s.Q231()
		}
	}

	attempts := 0
	for {
		attempts++
		c := s.Q231()
		y := c.I.Mul(c.I).Add(c.J.Mul(c.J)).Add(c.K.Mul(c.K))
		if x, ok := y.Neg().TrySqrt(); ok {
			m[1][1] = NewQuaternion(x, c.I, c.J, c.K)
			break
		}
	}

	m[0][0] = q
	return m, attempts
}

// Project returns the payload cell of an embedding. Project(Embed(s, q)) == q
// for every q; any other matrix projects to whatever its (0, 0) cell holds.
func Project(m Matrix3[Q231]) Q231 {
	return m[0][0]
}
