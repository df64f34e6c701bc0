// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package algebra

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Sampler draws uniformly distributed field elements, quaternions and
// matrices from a byte source. A Sampler is as safe for concurrent use as its
// source; the PRNGs handed out by gmorph serialise reads internally.
type Sampler struct {
	src io.Reader
}

// NewSampler wraps a source of random bytes.
func NewSampler(src io.Reader) *Sampler {
	return &Sampler{src: src}
}

// Mod231 returns a uniform element of Z/PZ. Each draw keeps the low 31 bits
// of a 32-bit word and rejects the single value equal to P.
//
// The supported sources never fail; a read error panics.
func (s *Sampler) Mod231() Mod231 {
	var buf [4]byte
	for {
		if _, err := io.ReadFull(s.src, buf[:]); err != nil {
			panic(fmt.Errorf("sample Mod231: %w", err))
		}
		if v := binary.LittleEndian.Uint32(buf[:]) & P; v != P {
			return Mod231{v}
		}
	}
}

// Q231 returns a quaternion with four independent uniform coordinates.
func (s *Sampler) Q231() Q231 {
	return Q231{W: s.Mod231(), I: s.Mod231(), J: s.Mod231(), K: s.Mod231()}
}

// Matrix3 returns a 3x3 matrix of independent uniform quaternions.
func (s *Sampler) Matrix3() (m Matrix3[Q231]) {
	for i := range m {
		for j := range m[i] {
			m[i][j] = s.Q231()
		}
	}
	return
}
