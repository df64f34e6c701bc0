// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package algebra

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// P is the Mersenne prime 2^31-1, the modulus of Mod231.
const P = 1<<31 - 1

// sqrtExp is (P+1)/4. P = 3 mod 4, so a^sqrtExp is a square root of a
// whenever a is a quadratic residue.
const sqrtExp = (P + 1) / 4

// Mod231 is an element of the prime field Z/PZ. The wrapped value is always
// fully reduced to [0, P). The zero value is the field's zero.
//
// The value is kept in an unexported field so that native integer operators
// cannot be applied by accident.
type Mod231 struct {
	v uint32
}

// NewMod231 reduces x modulo P.
func NewMod231(x uint32) Mod231 {
	return Mod231{reduce32(x)}
}

// Mod231FromInt32 maps a signed integer into the field. Values in [-P, P)
// are accepted; math.MinInt32 and math.MaxInt32 are not representable and
// fail with ErrOutOfRange.
func Mod231FromInt32(x int32) (Mod231, error) {
	if x == math.MinInt32 || x == math.MaxInt32 {
		return Mod231{}, fmt.Errorf("int32 %d: %w", x, ErrOutOfRange)
	}
	if x < 0 {
		return Mod231{reduce32(uint32(int64(x) + P))}, nil
	}
	return Mod231{uint32(x)}, nil
}

// Uint32 returns the reduced representative in [0, P).
func (x Mod231) Uint32() uint32 {
	return x.v
}

// Int32 returns the centred representative in [-(P-1)/2, (P-1)/2].
func (x Mod231) Int32() int32 {
	if x.v > P/2 {
		return int32(int64(x.v) - P)
	}
	return int32(x.v)
}

// reduce32 folds a 32-bit value into [0, P). A single fold leaves at most
// P+1, so one conditional subtraction finishes the job.
func reduce32(v uint32) uint32 {
	if v >= P {
		v = (v >> 31) + (v & P)
		if v >= P {
			v -= P
		}
	}
	return v
}

// reduce64 folds a product of two reduced values (< 2^62) into [0, P). The
// first fold leaves a 32-bit value, the second one at most P+1.
func reduce64(v uint64) uint32 {
	v = (v >> 31) + (v & P)
	v = (v >> 31) + (v & P)
	if v >= P {
		v -= P
	}
	return uint32(v)
}

// Add returns x+y.
func (x Mod231) Add(y Mod231) Mod231 {
	s := x.v + y.v
	if s >= P {
		s -= P
	}
	return Mod231{s}
}

// Sub returns x-y.
func (x Mod231) Sub(y Mod231) Mod231 {
	return x.Add(y.Neg())
}

// Neg returns -x.
func (x Mod231) Neg() Mod231 {
	if x.v == 0 {
		return x
	}
	return Mod231{P - x.v}
}

// Mul returns x*y.
func (x Mod231) Mul(y Mod231) Mod231 {
	return Mod231{reduce64(uint64(x.v) * uint64(y.v))}
}

// Zero returns 0.
func (Mod231) Zero() Mod231 {
	return Mod231{}
}

// One returns 1.
func (Mod231) One() Mod231 {
	return Mod231{1}
}

func (x Mod231) IsZero() bool {
	return x.v == 0
}

func (x Mod231) IsOne() bool {
	return x.v == 1
}

func (x Mod231) Equal(y Mod231) bool {
	return x.v == y.v
}

// TryInvert returns x^-1 computed with the extended Euclidean algorithm. It
// reports false iff x is zero.
func (x Mod231) TryInvert() (Mod231, bool) {
	if x.v == 0 {
		return Mod231{}, false
	}

	var (
		t, newT int64 = 0, 1
		r, newR int64 = P, int64(x.v)
	)
	for newR != 0 {
		q := r / newR
		t, newT = newT, t-q*newT
		r, newR = newR, r-q*newR
	}
	if r != 1 {
		return Mod231{}, false
	}
	if t < 0 {
		t += P
	}
	return Mod231{uint32(t)}, true
}

// Invert returns x^-1 and panics if x is zero. Use TryInvert or Div when zero
// is a legitimate input.
func (x Mod231) Invert() Mod231 {
	inv, ok := x.TryInvert()
	if !ok {
		panic(fmt.Errorf("invert %v: %w", x, ErrNonInvertible))
	}
	return inv
}

// Div returns x*y^-1, failing with ErrNonInvertible when y is zero.
func (x Mod231) Div(y Mod231) (Mod231, error) {
	inv, ok := y.TryInvert()
	if !ok {
		return Mod231{}, fmt.Errorf("divide %v by zero: %w", x, ErrNonInvertible)
	}
	return x.Mul(inv), nil
}

// Pow returns x^e by square-and-multiply.
func (x Mod231) Pow(e uint64) Mod231 {
	acc := Mod231{1}
	for base := x; e > 0; e >>= 1 {
		if e&1 == 1 {
			acc = acc.Mul(base)
		}
		base = base.Mul(base)
	}
	return acc
}

// TrySqrt returns a square root of x. The candidate x^((P+1)/4) is checked by
// squaring it, and false is returned when x is a non-residue.
func (x Mod231) TrySqrt() (Mod231, bool) {
	r := x.Pow(sqrtExp)
	if !r.Mul(r).Equal(x) {
		return Mod231{}, false
	}
	return r, true
}

func (x Mod231) String() string {
	return strconv.FormatUint(uint64(x.v), 10)
}

// MarshalJSON encodes x as a bare JSON number.
func (x Mod231) MarshalJSON() ([]byte, error) {
	return json.Marshal(x.v)
}

// UnmarshalJSON decodes a JSON number and rejects values that are not
// reduced, so that decoded data always satisfies the field invariant.
func (x *Mod231) UnmarshalJSON(data []byte) error {
	var v uint32
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("decode Mod231: %w", err)
	}
	if v >= P {
		return fmt.Errorf("decode Mod231 %d: %w", v, ErrOutOfRange)
	}
	x.v = v
	return nil
}

// FromReduced wraps v, failing with ErrOutOfRange when v >= P. Decoders use it
// to validate untrusted input instead of silently reducing it.
func FromReduced(v uint32) (Mod231, error) {
	if v >= P {
		return Mod231{}, fmt.Errorf("value %d: %w", v, ErrOutOfRange)
	}
	return Mod231{v}, nil
}
