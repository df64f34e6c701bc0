// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package gmorph

// ProbeBoundary subtracts EncOne() from ct until the result stops passing
// block inversion and returns the number of subtractions performed. found is
// false when the ciphertext was still invertible after limit subtractions.
//
// Since ct - k·1 = F·(X - k·I)·B, invertibility depends only on the hidden
// matrix X. A ciphertext computed from public constants, such as a sum of
// EncOne values, reports its plaintext as the step count. Fresh ciphertexts
// carry a singular embedding and report zero steps. This is a diagnostic of
// structural leakage, not an attack guarantee.
func ProbeBoundary(ct Enc, limit uint32) (steps uint32, found bool) {
	one := EncOne()
	for steps < limit {
		probeInvertChecks.Add(1)
		if !ct.IsInvertible() {
			return steps, true
		}
		ct = ct.Sub(one)
		steps++
	}
	return steps, false
}
