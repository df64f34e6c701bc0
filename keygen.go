// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package gmorph

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/blake2b"

	"github.com/luxfi/gmorph/algebra"
	"github.com/luxfi/gmorph/logging"
)

// KeyPair holds a random invertible 3x3 quaternion matrix and its inverse.
// Forwards·Backwards = Backwards·Forwards = I. A KeyPair is immutable and may
// be shared by any number of encryptors and decryptors.
type KeyPair struct {
	forwards  matrix
	backwards matrix
}

// NewKeyPair builds a key pair from a forwards matrix, computing its inverse.
// It fails with algebra.ErrNonInvertible when the block inversion does.
func NewKeyPair(forwards algebra.Matrix3[algebra.Q231]) (*KeyPair, error) {
	backwards, err := algebra.Invert3x3(forwards)
	if err != nil {
		return nil, fmt.Errorf("new key pair: %w", err)
	}
	return &KeyPair{forwards: forwards, backwards: backwards}, nil
}

// Forwards returns the left conjugation factor.
func (kp *KeyPair) Forwards() algebra.Matrix3[algebra.Q231] {
	return kp.forwards
}

// Backwards returns the right conjugation factor, the inverse of Forwards.
func (kp *KeyPair) Backwards() algebra.Matrix3[algebra.Q231] {
	return kp.backwards
}

// Equal reports whether both key pairs hold the same matrices.
func (kp *KeyPair) Equal(other *KeyPair) bool {
	return kp.forwards.Equal(other.forwards) && kp.backwards.Equal(other.backwards)
}

// Fingerprint identifies a key pair without revealing it: the first 16 bytes
// of the BLAKE2b-256 digest of the forwards matrix, hex encoded.
func (kp *KeyPair) Fingerprint() string {
	h, _ := blake2b.New256(nil) // only fails for oversized keys
	var word [4]byte
	for _, q := range kp.forwards.Entries() {
		for _, c := range [4]algebra.Mod231{q.W, q.I, q.J, q.K} {
			binary.LittleEndian.PutUint32(word[:], c.Uint32())
			h.Write(word[:])
		}
	}
	return hex.EncodeToString(h.Sum(nil)[:16])
}

// verify checks the cancellation law decryption relies on.
func (kp *KeyPair) verify() error {
	id := algebra.Identity3[algebra.Q231]()
	if !kp.forwards.Mul(kp.backwards).Equal(id) || !kp.backwards.Mul(kp.forwards).Equal(id) {
		return fmt.Errorf("key pair: forwards·backwards is not the identity: %w", ErrMalformed)
	}
	return nil
}

// KeyGenerator samples key pairs.
type KeyGenerator struct {
	sampler *algebra.Sampler
	log     logging.Logger
}

// NewKeyGenerator creates a key generator drawing from prng. A nil prng
// selects NewPRNG().
func NewKeyGenerator(prng io.Reader) *KeyGenerator {
	return &KeyGenerator{
		sampler: newSampler(prng),
		log:     logging.Nop(),
	}
}

// WithLogger sets the logger that receives attempt counts.
func (kg *KeyGenerator) WithLogger(l logging.Logger) *KeyGenerator {
	kg.log = logging.OrNop(l).With("component", "keygen")
	return kg
}

// GenKeyPair samples uniform 3x3 quaternion matrices until one passes block
// inversion. The loop is unbounded; in practice the first draw almost always
// succeeds.
func (kg *KeyGenerator) GenKeyPair() *KeyPair {
	attempts := 0
	for {
		attempts++
		keyGenAttempts.Add(1)

		forwards := kg.sampler.Matrix3()
		backwards, err := algebra.Invert3x3(forwards)
		if err != nil {
			kg.log.Debug(context.Background(), "key matrix rejected", "attempt", attempts, "error", err)
			continue
		}

		keyPairsGenerated.Add(1)
		kp := &KeyPair{forwards: forwards, backwards: backwards}
		kg.log.Debug(context.Background(), "key pair generated",
			"attempts", attempts,
			"fingerprint", kp.Fingerprint(),
			logging.Redacted("forwards"),
		)
		return kp
	}
}
