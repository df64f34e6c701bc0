// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package gmorph

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/gmorph/algebra"
)

var cmpOpts = cmp.Options{
	cmp.Comparer(func(a, b Enc) bool { return a.Equal(b) }),
	cmp.Comparer(func(a, b *KeyPair) bool { return a.Equal(b) }),
	cmp.Comparer(func(a, b Plaintext) bool { return a.Equal(b) }),
}

func TestSerialization(t *testing.T) {
	tc := newTestContext(t, "serialization")
	ct := tc.enc.Encrypt(271828)

	t.Run("EncBinary", func(t *testing.T) {
		data, err := ct.MarshalBinary()
		require.NoError(t, err)
		require.Len(t, data, EncBinarySize)

		var got Enc
		require.NoError(t, got.UnmarshalBinary(data))
		require.Empty(t, cmp.Diff(ct, got, cmpOpts))
		require.Equal(t, uint32(271828), tc.dec.Decrypt(got))
	})

	t.Run("EncStream", func(t *testing.T) {
		var buf bytes.Buffer
		n, err := ct.WriteTo(&buf)
		require.NoError(t, err)
		require.Equal(t, int64(EncBinarySize), n)

		var got Enc
		m, err := got.ReadFrom(&buf)
		require.NoError(t, err)
		require.Equal(t, n, m)
		require.True(t, got.Equal(ct))
	})

	t.Run("EncJSON", func(t *testing.T) {
		data, err := json.Marshal(ct)
		require.NoError(t, err)
		var got Enc
		require.NoError(t, json.Unmarshal(data, &got))
		require.Empty(t, cmp.Diff(ct, got, cmpOpts))

		one, err := json.Marshal(EncOne())
		require.NoError(t, err)
		require.Equal(t, `[[[1,0,0,0],[0,0,0,0],[0,0,0,0]],[[0,0,0,0],[1,0,0,0],[0,0,0,0]],[[0,0,0,0],[0,0,0,0],[1,0,0,0]]]`, string(one))
	})

	t.Run("EncCBOR", func(t *testing.T) {
		data, err := cbor.Marshal(ct)
		require.NoError(t, err)
		var got Enc
		require.NoError(t, cbor.Unmarshal(data, &got))
		require.Empty(t, cmp.Diff(ct, got, cmpOpts))

		// slices of ciphertexts go through the element marshalers
		xs := tc.enc.EncryptSlice([]uint32{1, 2, 3})
		data, err = cbor.Marshal(xs)
		require.NoError(t, err)
		var ys []Enc
		require.NoError(t, cbor.Unmarshal(data, &ys))
		require.Equal(t, []uint32{1, 2, 3}, tc.dec.DecryptSlice(ys))
	})

	t.Run("KeyPair", func(t *testing.T) {
		bin, err := tc.kp.MarshalBinary()
		require.NoError(t, err)
		require.Len(t, bin, KeyPairBinarySize)
		js, err := json.Marshal(tc.kp)
		require.NoError(t, err)
		cb, err := cbor.Marshal(tc.kp)
		require.NoError(t, err)

		fromBin, fromJSON, fromCBOR := new(KeyPair), new(KeyPair), new(KeyPair)
		require.NoError(t, fromBin.UnmarshalBinary(bin))
		require.NoError(t, json.Unmarshal(js, fromJSON))
		require.NoError(t, cbor.Unmarshal(cb, fromCBOR))

		for _, kp := range []*KeyPair{fromBin, fromJSON, fromCBOR} {
			require.Empty(t, cmp.Diff(tc.kp, kp, cmpOpts))
			require.Equal(t, tc.kp.Fingerprint(), kp.Fingerprint())
			require.Equal(t, uint32(271828), NewDecryptor(kp).Decrypt(ct))
		}
	})

	t.Run("Plaintext", func(t *testing.T) {
		pt := NewEncoder(nil).Encode(99)
		bin, err := pt.MarshalBinary()
		require.NoError(t, err)
		var fromBin Plaintext
		require.NoError(t, fromBin.UnmarshalBinary(bin))

		js, err := json.Marshal(pt)
		require.NoError(t, err)
		var fromJSON Plaintext
		require.NoError(t, json.Unmarshal(js, &fromJSON))

		require.Empty(t, cmp.Diff(pt, fromBin, cmpOpts))
		require.Empty(t, cmp.Diff(pt, fromJSON, cmpOpts))
		require.Equal(t, uint32(99), fromJSON.Decode())
	})
}

func TestSerializationRejects(t *testing.T) {
	tc := newTestContext(t, "rejects")

	t.Run("Truncated", func(t *testing.T) {
		data, err := tc.enc.Encrypt(1).MarshalBinary()
		require.NoError(t, err)
		var ct Enc
		require.ErrorIs(t, ct.UnmarshalBinary(data[:len(data)-1]), ErrMalformed)

		var kp KeyPair
		require.ErrorIs(t, kp.UnmarshalBinary(data), ErrMalformed)
	})

	t.Run("Unreduced", func(t *testing.T) {
		data, err := tc.enc.Encrypt(1).MarshalBinary()
		require.NoError(t, err)
		data[0], data[1], data[2], data[3] = 0xff, 0xff, 0xff, 0x7f // P
		var ct Enc
		require.ErrorIs(t, ct.UnmarshalBinary(data), algebra.ErrOutOfRange)

		require.Error(t, json.Unmarshal([]byte(`[[[2147483647,0,0,0],[0,0,0,0],[0,0,0,0]],[[0,0,0,0],[0,0,0,0],[0,0,0,0]],[[0,0,0,0],[0,0,0,0],[0,0,0,0]]]`), &ct))
	})

	t.Run("Short", func(t *testing.T) {
		var ct Enc
		require.ErrorIs(t, json.Unmarshal([]byte(`[[[5]]]`), &ct), ErrMalformed)
		require.ErrorIs(t, json.Unmarshal([]byte(`[[[1,0,0,0],[0,0,0,0],[0,0,0,0]]]`), &ct), ErrMalformed)
		require.ErrorIs(t, json.Unmarshal([]byte(`[]`), &ct), ErrMalformed)

		var pt Plaintext
		require.ErrorIs(t, json.Unmarshal([]byte(`[[[1,0,0,0],[0,0,0,0]],[],[]]`), &pt), ErrMalformed)

		var kp KeyPair
		require.ErrorIs(t, json.Unmarshal([]byte(`{"forwards":[[[1,0,0,0]]]}`), &kp), ErrMalformed)
		require.ErrorIs(t, json.Unmarshal([]byte(`{}`), &kp), ErrMalformed)
	})

	t.Run("Long", func(t *testing.T) {
		one, err := json.Marshal(EncOne())
		require.NoError(t, err)
		var ct Enc
		require.NoError(t, json.Unmarshal(one, &ct))

		long := `[[[1,2,3,4,5,6],[0,0,0,0],[0,0,0,0],[9,9,9,9]]]`
		require.ErrorIs(t, json.Unmarshal([]byte(long), &ct), ErrMalformed)
		extraRow := `[[[1,0,0,0],[0,0,0,0],[0,0,0,0]],[[0,0,0,0],[1,0,0,0],[0,0,0,0]],[[0,0,0,0],[0,0,0,0],[1,0,0,0]],[[0,0,0,0],[0,0,0,0],[0,0,0,0]]]`
		require.ErrorIs(t, json.Unmarshal([]byte(extraRow), &ct), ErrMalformed)
		extraCell := `[[[1,0,0,0],[0,0,0,0],[0,0,0,0],[0,0,0,0]],[[0,0,0,0],[1,0,0,0],[0,0,0,0]],[[0,0,0,0],[0,0,0,0],[1,0,0,0]]]`
		require.ErrorIs(t, json.Unmarshal([]byte(extraCell), &ct), ErrMalformed)

		// a rejected decode leaves the previous value in place
		require.True(t, ct.Equal(EncOne()))
	})

	t.Run("MismatchedKeyPair", func(t *testing.T) {
		other := newTestContext(t, "rejects-other")
		forged := KeyPair{forwards: tc.kp.forwards, backwards: other.kp.backwards}

		bin, err := forged.MarshalBinary()
		require.NoError(t, err)
		var kp KeyPair
		require.ErrorIs(t, kp.UnmarshalBinary(bin), ErrMalformed)

		js, err := json.Marshal(&forged)
		require.NoError(t, err)
		require.ErrorIs(t, json.Unmarshal(js, &kp), ErrMalformed)

		cb, err := cbor.Marshal(&forged)
		require.NoError(t, err)
		require.ErrorIs(t, cbor.Unmarshal(cb, &kp), ErrMalformed)

		require.Error(t, cbor.Unmarshal([]byte{0xa1, 0x01, 0x80}, &kp))
	})
}
