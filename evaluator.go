// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package gmorph

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Op names a homomorphic operation. Queue jobs and server requests carry it.
type Op string

const (
	OpAdd Op = "add"
	OpSub Op = "sub"
	OpMul Op = "mul"
	OpNeg Op = "neg"
	OpDot Op = "dot"
)

// ErrUnknownOp is returned by Apply for an unsupported operation.
var ErrUnknownOp = errors.New("gmorph: unknown operation")

// Arity is the number of operands op takes, or -1 for a variable count.
func (op Op) Arity() int {
	switch op {
	case OpNeg:
		return 1
	case OpAdd, OpSub, OpMul:
		return 2
	case OpDot:
		return -1
	}
	return 0
}

// Evaluator combines ciphertexts. It needs no key material, so it can run on
// an untrusted host.
type Evaluator struct{}

// NewEvaluator creates a new evaluator
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Apply runs op over operands. Binary operations take exactly two operands,
// OpNeg one, and OpDot an even number split into halves x and y.
func (eval *Evaluator) Apply(op Op, operands ...Enc) (Enc, error) {
	switch n := op.Arity(); {
	case n == 0:
		return Enc{}, fmt.Errorf("apply %q: %w", op, ErrUnknownOp)
	case n > 0 && len(operands) != n:
		return Enc{}, fmt.Errorf("apply %s: want %d operands, got %d: %w", op, n, len(operands), ErrLengthMismatch)
	}

	switch op {
	case OpAdd:
		return operands[0].Add(operands[1]), nil
	case OpSub:
		return operands[0].Sub(operands[1]), nil
	case OpMul:
		return operands[0].Mul(operands[1]), nil
	case OpNeg:
		return operands[0].Neg(), nil
	default:
		if len(operands)%2 != 0 {
			return Enc{}, fmt.Errorf("apply dot: odd operand count %d: %w", len(operands), ErrLengthMismatch)
		}
		half := len(operands) / 2
		return eval.DotProduct(operands[:half], operands[half:])
	}
}

// Sum folds cts with Add. The sum of nothing is EncZero().
func (eval *Evaluator) Sum(cts []Enc) Enc {
	acc := EncZero()
	for _, ct := range cts {
		acc = acc.Add(ct)
	}
	return acc
}

// Product folds cts with Mul from the left. The product of nothing is
// EncOne().
func (eval *Evaluator) Product(cts []Enc) Enc {
	if len(cts) == 0 {
		return EncOne()
	}
	acc := cts[0]
	for _, ct := range cts[1:] {
		acc = acc.Mul(ct)
	}
	return acc
}

// DotProduct returns Σ x[i]·y[i]. Both slices must be non-empty and of equal
// length.
func (eval *Evaluator) DotProduct(x, y []Enc) (Enc, error) {
	if len(x) != len(y) {
		return Enc{}, fmt.Errorf("dot product: %d vs %d: %w", len(x), len(y), ErrLengthMismatch)
	}
	if len(x) == 0 {
		return Enc{}, fmt.Errorf("dot product: %w", ErrEmptyInput)
	}
	acc := x[0].Mul(y[0])
	for i := 1; i < len(x); i++ {
		acc = acc.Add(x[i].Mul(y[i]))
	}
	return acc, nil
}

// DotProductParallel splits the dot product into at most workers contiguous
// chunks, evaluates them concurrently and sums the partials. Matrix addition
// commutes, so the result equals DotProduct.
func (eval *Evaluator) DotProductParallel(ctx context.Context, x, y []Enc, workers int) (Enc, error) {
	if len(x) != len(y) {
		return Enc{}, fmt.Errorf("dot product: %d vs %d: %w", len(x), len(y), ErrLengthMismatch)
	}
	if len(x) == 0 {
		return Enc{}, fmt.Errorf("dot product: %w", ErrEmptyInput)
	}
	if workers < 1 {
		workers = 1
	}
	if workers > len(x) {
		workers = len(x)
	}

	chunk := (len(x) + workers - 1) / workers
	partials := make([]Enc, 0, workers)
	for lo := 0; lo < len(x); lo += chunk {
		partials = append(partials, Enc{})
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := range partials {
		lo := i * chunk
		hi := min(lo+chunk, len(x))
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p, err := eval.DotProduct(x[lo:hi], y[lo:hi])
			partials[i] = p
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return Enc{}, fmt.Errorf("dot product: %w", err)
	}
	return eval.Sum(partials), nil
}

// Pow returns ct^n by square-and-multiply. Pow(ct, 0) is EncOne().
func (eval *Evaluator) Pow(ct Enc, n uint64) Enc {
	acc := EncOne()
	base := ct
	for n > 0 {
		if n&1 == 1 {
			acc = acc.Mul(base)
		}
		base = base.Mul(base)
		n >>= 1
	}
	return acc
}

// MatMul multiplies two matrices whose entries are ciphertexts. a is r×k, b
// is k×c; ragged rows are rejected.
func (eval *Evaluator) MatMul(a, b [][]Enc) ([][]Enc, error) {
	if len(a) == 0 || len(b) == 0 {
		return nil, fmt.Errorf("matmul: %w", ErrEmptyInput)
	}
	k, c := len(b), len(b[0])
	for i, row := range a {
		if len(row) != k {
			return nil, fmt.Errorf("matmul: row %d of a has %d columns, want %d: %w", i, len(row), k, ErrLengthMismatch)
		}
	}
	for i, row := range b {
		if len(row) != c {
			return nil, fmt.Errorf("matmul: row %d of b has %d columns, want %d: %w", i, len(row), c, ErrLengthMismatch)
		}
	}

	out := make([][]Enc, len(a))
	col := make([]Enc, k)
	for i := range out {
		out[i] = make([]Enc, c)
	}
	for j := 0; j < c; j++ {
		for l := range col {
			col[l] = b[l][j]
		}
		for i := range a {
			dot, err := eval.DotProduct(a[i], col)
			if err != nil {
				return nil, fmt.Errorf("matmul: entry (%d, %d): %w", i, j, err)
			}
			out[i][j] = dot
		}
	}
	return out, nil
}
