// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package gmorph

import (
	"context"
	"io"

	"github.com/luxfi/gmorph/algebra"
	"github.com/luxfi/gmorph/logging"
)

// Encryptor encrypts uint32 values under a key pair
type Encryptor struct {
	kp      *KeyPair
	sampler *algebra.Sampler
	log     logging.Logger
}

// NewEncryptor creates an encryptor drawing embedding noise from prng. A nil
// prng selects NewPRNG().
func NewEncryptor(kp *KeyPair, prng io.Reader) *Encryptor {
	return &Encryptor{
		kp:      kp,
		sampler: newSampler(prng),
		log:     logging.Nop(),
	}
}

// WithLogger sets the logger that receives closing-search attempt counts.
func (enc *Encryptor) WithLogger(l logging.Logger) *Encryptor {
	enc.log = logging.OrNop(l).With("component", "encryptor", "key", enc.kp.Fingerprint())
	return enc
}

// Encrypt reduces v modulo P, embeds it and conjugates the embedding:
// F · embed(v) · B.
func (enc *Encryptor) Encrypt(v uint32) Enc {
	m, attempts := algebra.Embed(enc.sampler, algebra.Q231FromUint32(v))
	embeddings.Add(1)
	closingAttempts.Add(uint64(attempts))
	if attempts > 1 {
		enc.log.Debug(context.Background(), "closing quaternion search", "attempts", attempts)
	}
	return enc.conjugate(m)
}

// EncryptSlice encrypts every value of vs.
func (enc *Encryptor) EncryptSlice(vs []uint32) []Enc {
	cts := make([]Enc, len(vs))
	for i, v := range vs {
		cts[i] = enc.Encrypt(v)
	}
	return cts
}

// EncryptPlaintext conjugates an already embedded value.
func (enc *Encryptor) EncryptPlaintext(pt Plaintext) Enc {
	return enc.conjugate(pt.m)
}

func (enc *Encryptor) conjugate(m matrix) Enc {
	return Enc{m: enc.kp.forwards.Mul(m).Mul(enc.kp.backwards)}
}
