// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package algebra

import (
	"fmt"
	"testing"

	"github.com/luxfi/lattice/v7/utils/sampling"
	"github.com/stretchr/testify/require"
)

const propertyRounds = 256

// testSampler returns a deterministic sampler so that failures reproduce.
func testSampler(t testing.TB, seed string) *Sampler {
	prng, err := sampling.NewKeyedPRNG([]byte(seed))
	require.NoError(t, err)
	return NewSampler(prng)
}

// gf7 is a tiny field used to check that the generic code does not depend on
// Mod231.
type gf7 uint8

func (x gf7) Add(y gf7) gf7 { return (x + y) % 7 }
func (x gf7) Sub(y gf7) gf7 { return (x + 7 - y) % 7 }
func (x gf7) Neg() gf7      { return (7 - x) % 7 }
func (x gf7) Mul(y gf7) gf7 { return gf7(uint16(x) * uint16(y) % 7) }
func (gf7) Zero() gf7       { return 0 }
func (gf7) One() gf7        { return 1 }
func (x gf7) IsZero() bool  { return x == 0 }
func (x gf7) Equal(y gf7) bool {
	return x == y
}

func (x gf7) TryInvert() (gf7, bool) {
	for y := gf7(1); y < 7; y++ {
		if x.Mul(y) == 1 {
			return y, true
		}
	}
	return 0, false
}

func TestMod231Reduce(t *testing.T) {
	cases := []uint32{0, 1, 2, P - 1, P, P + 1, 1 << 31, 1<<32 - 1, 12345678}
	for _, v := range cases {
		t.Run(fmt.Sprint(v), func(t *testing.T) {
			require.Equal(t, v%P, NewMod231(v).Uint32())
		})
	}

	t.Run("Products", func(t *testing.T) {
		s := testSampler(t, "reduce64")
		for i := 0; i < propertyRounds; i++ {
			a, b := s.Mod231(), s.Mod231()
			want := uint32(uint64(a.Uint32()) * uint64(b.Uint32()) % P)
			require.Equal(t, want, a.Mul(b).Uint32())
		}
		m := NewMod231(P - 1)
		require.Equal(t, uint32(1), m.Mul(m).Uint32())
	})
}

func TestMod231Arithmetic(t *testing.T) {
	s := testSampler(t, "mod231")

	t.Run("DoubleNegation", func(t *testing.T) {
		require.True(t, NewMod231(0).Neg().IsZero())
		for i := 0; i < propertyRounds; i++ {
			x := s.Mod231()
			require.True(t, x.Neg().Neg().Equal(x))
			require.True(t, x.Add(x.Neg()).IsZero())
		}
	})

	t.Run("SubIsAddNeg", func(t *testing.T) {
		for i := 0; i < propertyRounds; i++ {
			x, y := s.Mod231(), s.Mod231()
			require.Equal(t, x.Add(y.Neg()), x.Sub(y))
		}
	})

	t.Run("Inverse", func(t *testing.T) {
		_, ok := NewMod231(0).TryInvert()
		require.False(t, ok)
		for i := 0; i < propertyRounds; i++ {
			x := s.Mod231()
			if x.IsZero() {
				continue
			}
			inv := x.Invert()
			require.True(t, x.Mul(inv).IsOne())
			require.True(t, inv.Invert().Equal(x))
		}
	})

	t.Run("InvertZeroPanics", func(t *testing.T) {
		require.Panics(t, func() { NewMod231(0).Invert() })
	})

	t.Run("Div", func(t *testing.T) {
		q, err := NewMod231(42).Div(NewMod231(6))
		require.NoError(t, err)
		require.Equal(t, uint32(7), q.Uint32())

		_, err = NewMod231(42).Div(NewMod231(0))
		require.ErrorIs(t, err, ErrNonInvertible)
	})

	t.Run("Pow", func(t *testing.T) {
		require.Equal(t, uint32(1024), NewMod231(2).Pow(10).Uint32())
		require.True(t, NewMod231(5).Pow(0).IsOne())
		// Fermat: x^(P-1) = 1
		require.True(t, NewMod231(987654).Pow(P-1).IsOne())
	})
}

func TestMod231Sqrt(t *testing.T) {
	s := testSampler(t, "sqrt")
	residues := 0
	for i := 0; i < propertyRounds; i++ {
		x := s.Mod231()
		r, ok := x.Mul(x).TrySqrt()
		require.True(t, ok)
		require.True(t, r.Mul(r).Equal(x.Mul(x)))

		if _, ok := x.TrySqrt(); ok {
			residues++
		}
	}
	// -1 is a non-residue since P = 3 mod 4.
	_, ok := NewMod231(1).Neg().TrySqrt()
	require.False(t, ok)
	require.Greater(t, residues, propertyRounds/4)
	require.Less(t, residues, 3*propertyRounds/4)
}

func TestMod231Int32(t *testing.T) {
	for _, v := range []int32{0, 1, -1, 42, -42, (P - 1) / 2, -(P - 1) / 2, -P + 1} {
		x, err := Mod231FromInt32(v)
		require.NoError(t, err)
		got := x.Int32()
		if v >= -(P-1)/2 && v <= (P-1)/2 {
			require.Equal(t, v, got)
		}
		back, err := Mod231FromInt32(got)
		require.NoError(t, err)
		require.True(t, back.Equal(x))
	}

	x, err := Mod231FromInt32(-P)
	require.NoError(t, err)
	require.True(t, x.IsZero())

	for _, v := range []int32{P, -P - 1} {
		_, err := Mod231FromInt32(v)
		require.ErrorIs(t, err, ErrOutOfRange)
	}
}

func TestMod231JSON(t *testing.T) {
	x := NewMod231(123456789)
	data, err := x.MarshalJSON()
	require.NoError(t, err)
	require.Equal(t, "123456789", string(data))

	var y Mod231
	require.NoError(t, y.UnmarshalJSON(data))
	require.Equal(t, x, y)

	require.ErrorIs(t, y.UnmarshalJSON([]byte("2147483647")), ErrOutOfRange)
	require.Error(t, y.UnmarshalJSON([]byte(`"7"`)))
}

func TestQuaternion(t *testing.T) {
	s := testSampler(t, "quaternion")

	t.Run("Units", func(t *testing.T) {
		one := NewMod231(1)
		zero := NewMod231(0)
		i := NewQuaternion(zero, one, zero, zero)
		j := NewQuaternion(zero, zero, one, zero)
		k := NewQuaternion(zero, zero, zero, one)
		minusOne := FromReal(one.Neg())

		require.True(t, i.Mul(i).Equal(minusOne))
		require.True(t, j.Mul(j).Equal(minusOne))
		require.True(t, k.Mul(k).Equal(minusOne))
		require.True(t, i.Mul(j).Equal(k))
		require.True(t, j.Mul(i).Equal(k.Neg()))
		require.True(t, i.Mul(j).Mul(k).Equal(minusOne))
	})

	t.Run("AddCommutes", func(t *testing.T) {
		for n := 0; n < propertyRounds; n++ {
			a, b := s.Q231(), s.Q231()
			require.True(t, a.Add(b).Equal(b.Add(a)))
			require.True(t, a.Neg().Neg().Equal(a))
			require.True(t, a.Sub(b).Add(b).Equal(a))
		}
	})

	t.Run("MulAssociates", func(t *testing.T) {
		for n := 0; n < propertyRounds/4; n++ {
			a, b, c := s.Q231(), s.Q231(), s.Q231()
			require.True(t, a.Mul(b).Mul(c).Equal(a.Mul(b.Mul(c))))
			require.True(t, a.Mul(b.Add(c)).Equal(a.Mul(b).Add(a.Mul(c))))
		}
	})

	t.Run("Conjugate", func(t *testing.T) {
		for n := 0; n < propertyRounds; n++ {
			a, b := s.Q231(), s.Q231()
			require.True(t, a.Conjugate().Conjugate().Equal(a))
			// conj(ab) = conj(b)conj(a)
			require.True(t, a.Mul(b).Conjugate().Equal(b.Conjugate().Mul(a.Conjugate())))
			require.True(t, a.Mul(a.Conjugate()).Equal(FromReal(a.Norm2())))
		}
	})

	t.Run("Inverse", func(t *testing.T) {
		one := Q231{}.One()
		for n := 0; n < propertyRounds; n++ {
			a := s.Q231()
			inv, ok := a.TryInvert()
			if a.Norm2().IsZero() {
				require.False(t, ok)
				continue
			}
			require.True(t, ok)
			require.True(t, a.Mul(inv).Equal(one))
			require.True(t, inv.Mul(a).Equal(one))
		}
	})

	t.Run("ZeroNormHasNoInverse", func(t *testing.T) {
		// P = 1 mod 3, so -3 is a square and sqrt(-3)+i+j+k has norm zero.
		one := NewMod231(1)
		x, ok := NewMod231(3).Neg().TrySqrt()
		require.True(t, ok)
		q := NewQuaternion(x, one, one, one)
		require.True(t, q.Norm2().IsZero())
		require.False(t, q.IsZero())
		_, ok = q.TryInvert()
		require.False(t, ok)
	})

	t.Run("String", func(t *testing.T) {
		q := NewQuaternion(NewMod231(1), NewMod231(2), NewMod231(3), NewMod231(4))
		require.Equal(t, "1+2i+3j+4k", q.String())
	})

	t.Run("JSON", func(t *testing.T) {
		q := s.Q231()
		data, err := q.MarshalJSON()
		require.NoError(t, err)
		var r Q231
		require.NoError(t, r.UnmarshalJSON(data))
		require.True(t, q.Equal(r))
		require.Error(t, r.UnmarshalJSON([]byte(`[1,2,3]x`)))
		require.ErrorIs(t, r.UnmarshalJSON([]byte(`[1,2,3]`)), ErrMalformed)
		require.ErrorIs(t, r.UnmarshalJSON([]byte(`[1,2,3,4,5]`)), ErrMalformed)
		require.ErrorIs(t, r.UnmarshalJSON([]byte(`[]`)), ErrMalformed)
	})
}

func TestQuaternionGeneric(t *testing.T) {
	one := gf7(1)
	i := NewQuaternion[gf7](0, 1, 0, 0)
	j := NewQuaternion[gf7](0, 0, 1, 0)
	require.True(t, i.Mul(j).Equal(NewQuaternion[gf7](0, 0, 0, 1)))

	q := NewQuaternion[gf7](1, 2, 3, 4) // norm 30 = 2 mod 7
	inv, ok := q.TryInvert()
	require.True(t, ok)
	require.True(t, q.Mul(inv).Equal(FromReal(one)))

	m := NewMatrix2(q, i, j, q)
	if mInv, err := Invert2x2(m); err == nil {
		require.True(t, m.Mul(mInv).Equal(Identity2[Quaternion[gf7]]()))
	} else {
		require.ErrorIs(t, err, ErrNonInvertible)
	}
}
