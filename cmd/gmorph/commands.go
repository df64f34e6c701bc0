// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/luxfi/gmorph"
	"github.com/luxfi/gmorph/algebra"
	"github.com/luxfi/gmorph/internal/codec"
	"github.com/luxfi/gmorph/internal/dispatch"
)

// Input is the plaintext pair of vectors written by generate.
type Input struct {
	X []uint32 `json:"x" cbor:"1,keyasint"`
	Y []uint32 `json:"y" cbor:"2,keyasint"`
}

// Data is the encrypted input. Key is the fingerprint of the encrypting key.
type Data struct {
	Key string       `json:"key" cbor:"1,keyasint"`
	X   []gmorph.Enc `json:"x" cbor:"2,keyasint"`
	Y   []gmorph.Enc `json:"y" cbor:"3,keyasint"`
}

// Results holds the encrypted partials written by dot.
type Results struct {
	Key     string            `json:"key" cbor:"1,keyasint"`
	Results []dispatch.Result `json:"results" cbor:"2,keyasint"`
}

// ErrKeyMismatch is returned when a file was produced under another key.
var ErrKeyMismatch = errors.New("key fingerprint mismatch")

func runKeygen(e *env, args []string) error {
	fs := e.flags("keygen")
	keys := fs.String("keys", e.path("keys"), "key pair output file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	kp := gmorph.NewKeyGenerator(nil).GenKeyPair()
	if err := codec.WriteFile(e.format, *keys, kp, 0600); err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "key pair %s written to %s\n", kp.Fingerprint(), *keys)
	return nil
}

func runGenerate(e *env, args []string) error {
	fs := e.flags("generate")
	n := fs.Int("n", 999, "vector length")
	out := fs.String("out", e.path("input"), "output file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *n < 1 {
		return fmt.Errorf("n must be positive, got %d", *n)
	}

	x, y := dispatch.SampleVectors(*n)
	if err := codec.WriteFile(e.format, *out, Input{X: x, Y: y}, 0644); err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "%d pairs written to %s\n", *n, *out)
	return nil
}

// loadOrCreateKeys reads path, or generates a key pair and writes it there.
func loadOrCreateKeys(e *env, path string) (*gmorph.KeyPair, error) {
	kp := new(gmorph.KeyPair)
	err := codec.ReadFile(e.format, path, kp)
	if err == nil {
		return kp, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	kp = gmorph.NewKeyGenerator(nil).GenKeyPair()
	if err := codec.WriteFile(e.format, path, kp, 0600); err != nil {
		return nil, err
	}
	fmt.Fprintf(e.stdout, "key pair %s written to %s\n", kp.Fingerprint(), path)
	return kp, nil
}

func runEncrypt(e *env, args []string) error {
	fs := e.flags("encrypt")
	in := fs.String("in", e.path("input"), "plaintext input file")
	keys := fs.String("keys", e.path("keys"), "key pair file, created if missing")
	out := fs.String("out", e.path("data"), "encrypted output file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var input Input
	if err := codec.ReadFile(e.format, *in, &input); err != nil {
		return err
	}
	if len(input.X) != len(input.Y) {
		return fmt.Errorf("%s: %d vs %d: %w", *in, len(input.X), len(input.Y), gmorph.ErrLengthMismatch)
	}

	kp, err := loadOrCreateKeys(e, *keys)
	if err != nil {
		return err
	}
	enc := gmorph.NewEncryptor(kp, nil)
	data := Data{Key: kp.Fingerprint(), X: enc.EncryptSlice(input.X), Y: enc.EncryptSlice(input.Y)}
	if err := codec.WriteFile(e.format, *out, data, 0644); err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "%d pairs encrypted to %s\n", len(input.X), *out)
	return nil
}

func runDot(e *env, args []string) error {
	def := dispatch.DefaultConfig()
	fs := e.flags("dot")
	in := fs.String("in", e.path("data"), "encrypted input file")
	out := fs.String("out", e.path("result"), "encrypted result file")
	chunk := fs.Int("chunk", def.Chunk, "pairs per task")
	workers := fs.Int("workers", def.Workers, "tasks evaluated at once")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var data Data
	if err := codec.ReadFile(e.format, *in, &data); err != nil {
		return err
	}

	cfg := def
	cfg.Chunk, cfg.Workers = *chunk, *workers
	results, err := dispatch.Dispatch(context.Background(), dispatch.NewLocalRunner(cfg.Workers), cfg, data.X, data.Y)
	if err != nil {
		return err
	}
	if err := codec.WriteFile(e.format, *out, Results{Key: data.Key, Results: results}, 0644); err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "%d tasks evaluated to %s\n", len(results), *out)
	return nil
}

func runDecrypt(e *env, args []string) error {
	fs := e.flags("decrypt")
	keys := fs.String("keys", e.path("keys"), "key pair file")
	in := fs.String("in", e.path("result"), "encrypted result file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	kp := new(gmorph.KeyPair)
	if err := codec.ReadFile(e.format, *keys, kp); err != nil {
		return err
	}
	var res Results
	if err := codec.ReadFile(e.format, *in, &res); err != nil {
		return err
	}
	if res.Key != "" && res.Key != kp.Fingerprint() {
		return fmt.Errorf("%s was produced under %s, not %s: %w", *in, res.Key, kp.Fingerprint(), ErrKeyMismatch)
	}

	s, err := dispatch.Merge(res.Results, kp)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "xy = %d\nxx = %d\nm = %v\n", s.XY, s.XX, s.M)
	return nil
}

// demo encrypts 1..9 under a fresh key and reduces the ciphertexts.
func demo(e *env, args []string, name string, reduce func(*gmorph.Evaluator, []gmorph.Enc) gmorph.Enc) error {
	if err := e.flags(name).Parse(args); err != nil {
		return err
	}
	kp := gmorph.NewKeyGenerator(nil).GenKeyPair()
	cts := gmorph.NewEncryptor(kp, nil).EncryptSlice([]uint32{1, 2, 3, 4, 5, 6, 7, 8, 9})
	got := gmorph.NewDecryptor(kp).Decrypt(reduce(gmorph.NewEvaluator(), cts))
	fmt.Fprintf(e.stdout, "%s = %d\n", name, got)
	return nil
}

func runSum(e *env, args []string) error {
	return demo(e, args, "sum", (*gmorph.Evaluator).Sum)
}

func runProduct(e *env, args []string) error {
	return demo(e, args, "product", (*gmorph.Evaluator).Product)
}

func runInvert(e *env, args []string) error {
	if err := e.flags("invert").Parse(args); err != nil {
		return err
	}
	var (
		o    = algebra.Mod231{}
		l    = algebra.NewMod231(1)
		zero = algebra.Q231{}
		i    = algebra.NewQuaternion(o, l, o, o)
		j    = algebra.NewQuaternion(o, o, l, o)
		k    = algebra.NewQuaternion(o, o, o, l)
	)
	m := algebra.NewMatrix2(k, zero, j, i)
	inv, err := algebra.Invert2x2(m)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "matrix =\n%s", m)
	fmt.Fprintf(e.stdout, "inverted =\n%s", inv)
	fmt.Fprintf(e.stdout, "left mul =\n%s", m.Mul(inv))
	fmt.Fprintf(e.stdout, "right mul =\n%s", inv.Mul(m))
	return nil
}

func runProbe(e *env, args []string) error {
	fs := e.flags("probe")
	start := fs.Uint("start", 100_000, "first plaintext")
	n := fs.Uint("n", 100, "number of plaintexts")
	limit := fs.Uint("limit", 1<<20, "maximum subtractions per ciphertext")
	if err := fs.Parse(args); err != nil {
		return err
	}

	kp := gmorph.NewKeyGenerator(nil).GenKeyPair()
	enc := gmorph.NewEncryptor(kp, nil)
	for v := *start; v < *start+*n; v++ {
		steps, found := gmorph.ProbeBoundary(enc.Encrypt(uint32(v)), uint32(*limit))
		if found {
			fmt.Fprintf(e.stdout, "i=%d boundary=%d\n", v, steps)
		} else {
			fmt.Fprintf(e.stdout, "i=%d no boundary within %d\n", v, steps)
		}
	}
	return nil
}

func runVersion(e *env, args []string) error {
	fmt.Fprintf(e.stdout, "gmorph %s (%s, modulus %d)\n", gmorph.Version, runtime.Version(), gmorph.Modulus)
	return nil
}
