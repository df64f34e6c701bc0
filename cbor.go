// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package gmorph

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// CBOR forms mirror the binary layout: a matrix is a flat array of 36
// reduced uint32 words.

type rawEnc struct {
	Matrix []uint32 `cbor:"1,keyasint"`
}

type rawKeyPair struct {
	Forwards  []uint32 `cbor:"1,keyasint"`
	Backwards []uint32 `cbor:"2,keyasint"`
}

// MarshalCBOR implements cbor.Marshaler.
func (ct Enc) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(rawEnc{Matrix: matrixToWords(ct.m)})
}

// UnmarshalCBOR implements cbor.Unmarshaler.
func (ct *Enc) UnmarshalCBOR(data []byte) error {
	var raw rawEnc
	if err := cbor.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode enc: %w", err)
	}
	m, err := matrixFromWords(raw.Matrix)
	if err != nil {
		return fmt.Errorf("decode enc: %w", err)
	}
	ct.m = m
	return nil
}

// MarshalCBOR implements cbor.Marshaler.
func (kp *KeyPair) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(rawKeyPair{
		Forwards:  matrixToWords(kp.forwards),
		Backwards: matrixToWords(kp.backwards),
	})
}

// UnmarshalCBOR implements cbor.Unmarshaler and verifies the decoded pair.
func (kp *KeyPair) UnmarshalCBOR(data []byte) error {
	var raw rawKeyPair
	if err := cbor.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode key pair: %w", err)
	}
	fw, err := matrixFromWords(raw.Forwards)
	if err != nil {
		return fmt.Errorf("decode key pair forwards: %w", err)
	}
	bw, err := matrixFromWords(raw.Backwards)
	if err != nil {
		return fmt.Errorf("decode key pair backwards: %w", err)
	}
	decoded := KeyPair{forwards: fw, backwards: bw}
	if err := decoded.verify(); err != nil {
		return err
	}
	*kp = decoded
	return nil
}
