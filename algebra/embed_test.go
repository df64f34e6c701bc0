// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package algebra

import (
	"io"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/require"
)

func TestEmbed(t *testing.T) {
	s := testSampler(t, "embed")

	t.Run("Project", func(t *testing.T) {
		for n := 0; n < propertyRounds; n++ {
			payload := s.Q231()
			m, attempts := Embed(s, payload)
			require.GreaterOrEqual(t, attempts, 1)
			require.True(t, Project(m).Equal(payload))
			require.True(t, m.IsUpperTriangular())
			require.True(t, m[1][1].Norm2().IsZero())
		}
	})

	t.Run("Randomized", func(t *testing.T) {
		payload := Q231FromUint32(5)
		a, _ := Embed(s, payload)
		b, _ := Embed(s, payload)
		require.False(t, a.Equal(b))
		require.True(t, Project(a).Equal(Project(b)))
	})

	t.Run("Singular", func(t *testing.T) {
		for n := 0; n < propertyRounds/4; n++ {
			m, _ := Embed(s, s.Q231())
			_, ok := m.TryInvert()
			require.False(t, ok)
		}
	})

	t.Run("RingOperations", func(t *testing.T) {
		for n := 0; n < propertyRounds/4; n++ {
			x, y := s.Q231(), s.Q231()
			ex, _ := Embed(s, x)
			ey, _ := Embed(s, y)
			require.True(t, Project(ex.Add(ey)).Equal(x.Add(y)))
			require.True(t, Project(ex.Sub(ey)).Equal(x.Sub(y)))
			require.True(t, Project(ex.Mul(ey)).Equal(x.Mul(y)))
			require.True(t, Project(ex.Mul(ex)).Equal(x.Mul(x)))
			require.True(t, ex.Mul(ey).IsUpperTriangular())
		}
	})

	t.Run("ClosingSearch", func(t *testing.T) {
		total := 0
		for n := 0; n < propertyRounds; n++ {
			_, attempts := Embed(s, Q231{})
			total += attempts
		}
		// Roughly half of all draws succeed.
		require.Less(t, total, 4*propertyRounds)
	})
}

func TestSamplerPanicsOnShortRead(t *testing.T) {
	s := NewSampler(iotest.ErrReader(io.ErrUnexpectedEOF))
	require.Panics(t, func() { s.Mod231() })
}

func FuzzMod231(f *testing.F) {
	f.Add(uint32(0), uint32(1))
	f.Add(uint32(P-1), uint32(P-1))
	f.Add(uint32(1<<32-1), uint32(P))

	f.Fuzz(func(t *testing.T, a, b uint32) {
		x, y := NewMod231(a), NewMod231(b)
		require.Less(t, x.Uint32(), uint32(P))

		require.Equal(t, uint32((uint64(x.Uint32())+uint64(y.Uint32()))%P), x.Add(y).Uint32())
		require.Equal(t, uint32(uint64(x.Uint32())*uint64(y.Uint32())%P), x.Mul(y).Uint32())
		require.True(t, x.Sub(y).Add(y).Equal(x))

		if inv, ok := y.TryInvert(); ok {
			require.True(t, y.Mul(inv).IsOne())
		} else {
			require.True(t, y.IsZero())
		}
	})
}
