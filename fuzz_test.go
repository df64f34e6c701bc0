// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package gmorph

import (
	"testing"
)

// FuzzEncryptDecrypt verifies the round trip and both homomorphisms
func FuzzEncryptDecrypt(f *testing.F) {
	f.Add(uint32(0), uint32(0))
	f.Add(uint32(1), uint32(Modulus-1))
	f.Add(uint32(Modulus), uint32(1<<32-1))
	f.Add(uint32(65536), uint32(65536))

	tc := newTestContext(f, "fuzz")

	f.Fuzz(func(t *testing.T, x, y uint32) {
		cx, cy := tc.enc.Encrypt(x), tc.enc.Encrypt(y)
		xm, ym := uint64(x%Modulus), uint64(y%Modulus)

		if got := tc.dec.Decrypt(cx); uint64(got) != xm {
			t.Fatalf("round trip: expected %d, got %d", xm, got)
		}
		if got := tc.dec.Decrypt(cx.Add(cy)); uint64(got) != (xm+ym)%Modulus {
			t.Fatalf("add: expected %d, got %d", (xm+ym)%Modulus, got)
		}
		if got := tc.dec.Decrypt(cx.Mul(cy)); uint64(got) != xm*ym%Modulus {
			t.Fatalf("mul: expected %d, got %d", xm*ym%Modulus, got)
		}
	})
}

// FuzzUnmarshalBinary verifies that arbitrary input never panics and that
// accepted input re-encodes identically
func FuzzUnmarshalBinary(f *testing.F) {
	tc := newTestContext(f, "fuzz-binary")
	seed, err := tc.enc.Encrypt(5).MarshalBinary()
	if err != nil {
		f.Fatal(err)
	}
	f.Add(seed)
	f.Add(make([]byte, EncBinarySize))
	f.Add([]byte{1, 2, 3})

	f.Fuzz(func(t *testing.T, data []byte) {
		var ct Enc
		if err := ct.UnmarshalBinary(data); err != nil {
			return
		}
		out, err := ct.MarshalBinary()
		if err != nil {
			t.Fatal(err)
		}
		if string(out) != string(data) {
			t.Fatalf("re-encoding differs")
		}
	})
}
