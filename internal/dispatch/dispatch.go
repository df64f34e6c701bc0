// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

// Package dispatch splits an encrypted dot product into tasks, evaluates them
// on untrusted workers and merges the partial results on the key holder.
//
// A task carries a chunk of the encrypted vectors x and y. Executing it yields
// the encrypted partials Σxy and Σxx over the chunk. Only Merge needs the key
// pair: it decrypts every partial, sums them and reports the slope
// m = Σxy / Σxx of the least-squares line through the origin.
package dispatch

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/luxfi/gmorph"
)

// ErrDegenerate is returned by Merge when Σxx decrypts to zero.
var ErrDegenerate = errors.New("dispatch: degenerate input")

// Config controls how a dot product is split and run.
type Config struct {
	// Chunk is the number of element pairs per task.
	Chunk int
	// Workers bounds the number of tasks evaluated at once.
	Workers int
	// PollInterval is how often a queue runner checks job status.
	PollInterval time.Duration
}

// DefaultConfig returns the settings used by the commands.
func DefaultConfig() Config {
	return Config{
		Chunk:        64,
		Workers:      runtime.NumCPU(),
		PollInterval: 50 * time.Millisecond,
	}
}

func (c Config) Validate() error {
	switch {
	case c.Chunk < 1:
		return fmt.Errorf("chunk must be positive, got %d", c.Chunk)
	case c.Workers < 1:
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	case c.PollInterval <= 0:
		return fmt.Errorf("poll interval must be positive, got %s", c.PollInterval)
	}
	return nil
}

// Task is one chunk of a dot product.
type Task struct {
	Index int          `json:"index"`
	X     []gmorph.Enc `json:"x"`
	Y     []gmorph.Enc `json:"y"`
}

// Result holds the encrypted partials of a Task.
type Result struct {
	Index int        `json:"index"`
	XY    gmorph.Enc `json:"xy"`
	XX    gmorph.Enc `json:"xx"`
}

// Summary is the decrypted outcome of a dot product.
type Summary struct {
	Tasks int     `json:"tasks"`
	XY    uint64  `json:"xy"`
	XX    uint64  `json:"xx"`
	M     float64 `json:"m"`
}

// Split cuts x and y into tasks of at most chunk pairs each.
func Split(x, y []gmorph.Enc, chunk int) ([]Task, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("split: %d vs %d: %w", len(x), len(y), gmorph.ErrLengthMismatch)
	}
	if len(x) == 0 {
		return nil, fmt.Errorf("split: %w", gmorph.ErrEmptyInput)
	}
	if chunk < 1 {
		return nil, fmt.Errorf("split: chunk must be positive, got %d", chunk)
	}

	tasks := make([]Task, 0, (len(x)+chunk-1)/chunk)
	for lo := 0; lo < len(x); lo += chunk {
		hi := min(lo+chunk, len(x))
		tasks = append(tasks, Task{Index: len(tasks), X: x[lo:hi], Y: y[lo:hi]})
	}
	return tasks, nil
}

// Execute evaluates a task. It needs no key material.
func Execute(eval *gmorph.Evaluator, t Task) (Result, error) {
	xy, err := eval.DotProduct(t.X, t.Y)
	if err != nil {
		return Result{}, fmt.Errorf("task %d: xy: %w", t.Index, err)
	}
	xx, err := eval.DotProduct(t.X, t.X)
	if err != nil {
		return Result{}, fmt.Errorf("task %d: xx: %w", t.Index, err)
	}
	return Result{Index: t.Index, XY: xy, XX: xx}, nil
}

// Merge decrypts the partials under kp and sums them.
func Merge(results []Result, kp *gmorph.KeyPair) (Summary, error) {
	if len(results) == 0 {
		return Summary{}, fmt.Errorf("merge: %w", gmorph.ErrEmptyInput)
	}
	dec := gmorph.NewDecryptor(kp)

	s := Summary{Tasks: len(results)}
	for _, r := range results {
		s.XY += uint64(dec.Decrypt(r.XY))
		s.XX += uint64(dec.Decrypt(r.XX))
	}
	if s.XX == 0 {
		return s, fmt.Errorf("merge: Σxx is zero: %w", ErrDegenerate)
	}
	s.M = float64(s.XY) / float64(s.XX)
	return s, nil
}

// SampleVectors returns x = 1..n and y = round(2.71·x), the input the
// commands use to demonstrate the pipeline.
func SampleVectors(n int) (x, y []uint32) {
	x = make([]uint32, n)
	y = make([]uint32, n)
	for i := range x {
		x[i] = uint32(i + 1)
		y[i] = uint32(math.Round(2.71 * float64(i+1)))
	}
	return x, y
}
