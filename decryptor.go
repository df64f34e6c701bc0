// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package gmorph

// Decryptor decrypts ciphertexts produced under a key pair
type Decryptor struct {
	kp *KeyPair
}

// NewDecryptor creates a decryptor for kp
func NewDecryptor(kp *KeyPair) *Decryptor {
	return &Decryptor{kp: kp}
}

// Decrypt undoes the conjugation, B · ct · F, and returns the real part of
// the payload cell. The result is in [0, P).
func (dec *Decryptor) Decrypt(ct Enc) uint32 {
	return dec.DecryptToPlaintext(ct).Decode()
}

// DecryptSlice decrypts every ciphertext of cts.
func (dec *Decryptor) DecryptSlice(cts []Enc) []uint32 {
	vs := make([]uint32, len(cts))
	for i, ct := range cts {
		vs[i] = dec.Decrypt(ct)
	}
	return vs
}

// DecryptToPlaintext undoes the conjugation and keeps the embedding, noise
// included.
func (dec *Decryptor) DecryptToPlaintext(ct Enc) Plaintext {
	return Plaintext{m: dec.kp.backwards.Mul(ct.m).Mul(dec.kp.forwards)}
}
