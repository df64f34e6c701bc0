// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package gmorph

import (
	"fmt"
	"io"

	"github.com/luxfi/lattice/v7/utils/sampling"

	"github.com/luxfi/gmorph/algebra"
)

// NewPRNG returns a cryptographically seeded PRNG that is safe for concurrent
// use. Key generation and encryption draw from it when no source is given.
func NewPRNG() io.Reader {
	prng, err := sampling.NewPRNG()
	if err != nil {
		panic(fmt.Errorf("new PRNG: %w", err)) // only fails if the OS entropy source does
	}
	return prng
}

// NewKeyedPRNG returns a deterministic blake2b XOF stream keyed by seed. Two
// PRNGs with the same seed yield the same keys and the same ciphertexts,
// which makes runs reproducible in tests and benchmarks.
func NewKeyedPRNG(seed []byte) (io.Reader, error) {
	prng, err := sampling.NewKeyedPRNG(seed)
	if err != nil {
		return nil, fmt.Errorf("new keyed PRNG: %w", err)
	}
	return prng, nil
}

func newSampler(prng io.Reader) *algebra.Sampler {
	if prng == nil {
		prng = NewPRNG()
	}
	return algebra.NewSampler(prng)
}
