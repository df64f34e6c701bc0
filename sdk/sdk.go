// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

// Package sdk is a string-only façade over gmorph for foreign runtimes such as
// the WASM bindings in sdk/wasm. Keys and ciphertexts cross the boundary as
// base64 of their binary encoding.
package sdk

import (
	"encoding/base64"
	"fmt"

	"github.com/luxfi/gmorph"
)

var b64 = base64.StdEncoding

// Keys is a freshly generated key pair.
type Keys struct {
	KeyPair     string `json:"keyPair"`
	Fingerprint string `json:"fingerprint"`
}

// GenerateKeys creates a key pair from the system PRNG.
func GenerateKeys() (Keys, error) {
	kp := gmorph.NewKeyGenerator(nil).GenKeyPair()
	data, err := kp.MarshalBinary()
	if err != nil {
		return Keys{}, err
	}
	return Keys{KeyPair: b64.EncodeToString(data), Fingerprint: kp.Fingerprint()}, nil
}

func decodeKeys(s string) (*gmorph.KeyPair, error) {
	data, err := b64.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("key pair: %w", err)
	}
	kp := new(gmorph.KeyPair)
	if err := kp.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("key pair: %w", err)
	}
	return kp, nil
}

func decodeEnc(s string) (gmorph.Enc, error) {
	var ct gmorph.Enc
	data, err := b64.DecodeString(s)
	if err != nil {
		return ct, fmt.Errorf("ciphertext: %w", err)
	}
	if err := ct.UnmarshalBinary(data); err != nil {
		return ct, fmt.Errorf("ciphertext: %w", err)
	}
	return ct, nil
}

func encodeEnc(ct gmorph.Enc) (string, error) {
	data, err := ct.MarshalBinary()
	if err != nil {
		return "", err
	}
	return b64.EncodeToString(data), nil
}

// Encrypt encrypts v under keys.
func Encrypt(v uint32, keys string) (string, error) {
	kp, err := decodeKeys(keys)
	if err != nil {
		return "", err
	}
	return encodeEnc(gmorph.NewEncryptor(kp, nil).Encrypt(v))
}

// Decrypt decrypts ct under keys.
func Decrypt(ct, keys string) (uint32, error) {
	kp, err := decodeKeys(keys)
	if err != nil {
		return 0, err
	}
	c, err := decodeEnc(ct)
	if err != nil {
		return 0, err
	}
	return gmorph.NewDecryptor(kp).Decrypt(c), nil
}

// Evaluate applies op to the operands. No key is needed.
func Evaluate(op string, operands ...string) (string, error) {
	cts := make([]gmorph.Enc, len(operands))
	for i, s := range operands {
		ct, err := decodeEnc(s)
		if err != nil {
			return "", fmt.Errorf("operand %d: %w", i, err)
		}
		cts[i] = ct
	}
	result, err := gmorph.NewEvaluator().Apply(gmorph.Op(op), cts...)
	if err != nil {
		return "", err
	}
	return encodeEnc(result)
}
