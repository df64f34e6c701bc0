// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package algebra

// Q231 is a quaternion over Mod231.
type Q231 = Quaternion[Mod231]

// Q231FromUint32 lifts x, reduced modulo P, to a real quaternion.
func Q231FromUint32(x uint32) Q231 {
	return FromReal(NewMod231(x))
}
