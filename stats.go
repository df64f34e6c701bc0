// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package gmorph

import "sync/atomic"

// Process-wide counters for the two rejection loops. They exist to diagnose
// pathological runs; neither loop is capped.
var (
	keyPairsGenerated atomic.Uint64
	keyGenAttempts    atomic.Uint64
	embeddings        atomic.Uint64
	closingAttempts   atomic.Uint64
	probeInvertChecks atomic.Uint64
)

// Stats is a snapshot of the sampling counters.
type Stats struct {
	KeyPairs        uint64 `json:"key_pairs"`
	KeyGenAttempts  uint64 `json:"keygen_attempts"`
	Embeddings      uint64 `json:"embeddings"`
	ClosingAttempts uint64 `json:"closing_attempts"`
	ProbeChecks     uint64 `json:"probe_checks"`
}

// ReadStats returns the current counter values.
func ReadStats() Stats {
	return Stats{
		KeyPairs:        keyPairsGenerated.Load(),
		KeyGenAttempts:  keyGenAttempts.Load(),
		Embeddings:      embeddings.Load(),
		ClosingAttempts: closingAttempts.Load(),
		ProbeChecks:     probeInvertChecks.Load(),
	}
}

// AttemptsPerKeyPair is the mean number of sampled matrices per key pair.
func (s Stats) AttemptsPerKeyPair() float64 {
	if s.KeyPairs == 0 {
		return 0
	}
	return float64(s.KeyGenAttempts) / float64(s.KeyPairs)
}

// AttemptsPerEmbedding is the mean number of closing-quaternion draws per
// embedding. It should hover around 2.
func (s Stats) AttemptsPerEmbedding() float64 {
	if s.Embeddings == 0 {
		return 0
	}
	return float64(s.ClosingAttempts) / float64(s.Embeddings)
}
