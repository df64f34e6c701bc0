// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

//go:build profile

// Command profile runs performance profiling on gmorph operations.
//
// Usage:
//
//	go build -tags profile -o profile ./cmd/profile
//	./profile -cpu=cpu.prof -mem=mem.prof -iterations=1000
//
// Analyze profiles:
//
//	go tool pprof -http=:8080 cpu.prof
//	go tool pprof -http=:8081 mem.prof
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/luxfi/gmorph"
)

var (
	cpuProfile   = flag.String("cpu", "", "write cpu profile to file")
	memProfile   = flag.String("mem", "", "write memory profile to file")
	blockProfile = flag.String("block", "", "write block profile to file")
	iterations   = flag.Int("iterations", 100, "number of iterations for each operation")
	operation    = flag.String("op", "all", "operation to profile: all, keygen, encrypt, arith, dot")
	length       = flag.Int("n", 1000, "vector length for the dot product")
)

func main() {
	flag.Parse()

	profiler := gmorph.NewProfiler(gmorph.ProfileConfig{
		CPUProfile:   *cpuProfile,
		MemProfile:   *memProfile,
		BlockProfile: *blockProfile,
	}, os.Stdout)
	if err := profiler.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start profiler: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Running %d iterations of '%s'\n", *iterations, *operation)
	fmt.Printf("GOMAXPROCS: %d\n", runtime.GOMAXPROCS(0))

	switch *operation {
	case "all":
		profileKeyGen()
		profileEncrypt()
		profileArith()
		profileDot()
	case "keygen":
		profileKeyGen()
	case "encrypt":
		profileEncrypt()
	case "arith":
		profileArith()
	case "dot":
		profileDot()
	default:
		fmt.Fprintf(os.Stderr, "Unknown operation: %s\n", *operation)
		os.Exit(1)
	}

	if err := profiler.Stop(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write profiles: %v\n", err)
		os.Exit(1)
	}
	gmorph.PrintMemStats(os.Stdout)
}

// measure times fn over the configured iterations and prints the spread.
func measure(name string, n int, fn func()) {
	samples := make([]float64, n)
	for i := range samples {
		start := time.Now()
		fn()
		samples[i] = float64(time.Since(start).Nanoseconds()) / 1e3
	}

	mean, _ := stats.Mean(samples)
	median, _ := stats.Median(samples)
	stddev, _ := stats.StandardDeviation(samples)
	p99, _ := stats.Percentile(samples, 99)

	fmt.Printf("%s (%d runs):\n", name, n)
	fmt.Printf("  Mean: %.3f µs\n", mean)
	fmt.Printf("  Median: %.3f µs\n", median)
	fmt.Printf("  Standard Deviation: %.3f µs\n", stddev)
	fmt.Printf("  P99: %.3f µs\n", p99)
}

func setup() (*gmorph.KeyPair, *gmorph.Encryptor, *gmorph.Decryptor) {
	kp := gmorph.NewKeyGenerator(nil).GenKeyPair()
	return kp, gmorph.NewEncryptor(kp, nil), gmorph.NewDecryptor(kp)
}

func profileKeyGen() {
	fmt.Println("\n=== Key Generation ===")
	kg := gmorph.NewKeyGenerator(nil)
	measure("KeyPair generation", *iterations, func() { kg.GenKeyPair() })
}

func profileEncrypt() {
	fmt.Println("\n=== Encryption/Decryption ===")
	_, enc, dec := setup()

	measure("Encrypt", *iterations, func() { enc.Encrypt(0xC0FFEE) })
	ct := enc.Encrypt(0xC0FFEE)
	measure("Decrypt", *iterations, func() { dec.Decrypt(ct) })

	data, err := ct.MarshalBinary()
	if err != nil {
		panic(err)
	}
	measure("MarshalBinary", *iterations, func() { ct.MarshalBinary() })
	measure("UnmarshalBinary", *iterations, func() {
		var back gmorph.Enc
		if err := back.UnmarshalBinary(data); err != nil {
			panic(err)
		}
	})
}

func profileArith() {
	fmt.Println("\n=== Homomorphic Arithmetic ===")
	_, enc, _ := setup()
	eval := gmorph.NewEvaluator()
	a, b := enc.Encrypt(12345), enc.Encrypt(67890)

	measure("Add", *iterations, func() { a.Add(b) })
	measure("Mul", *iterations, func() { a.Mul(b) })
	measure("Pow(2^16)", *iterations, func() { eval.Pow(a, 1<<16) })
	measure("IsInvertible", *iterations, func() { a.IsInvertible() })
}

func profileDot() {
	fmt.Printf("\n=== Dot Product (n=%d) ===\n", *length)
	_, enc, _ := setup()
	eval := gmorph.NewEvaluator()

	xs, ys := make([]uint32, *length), make([]uint32, *length)
	for i := range xs {
		xs[i], ys[i] = uint32(i+1), uint32(3*i+1)
	}
	x, y := enc.EncryptSlice(xs), enc.EncryptSlice(ys)

	runs := max(*iterations/10, 1)
	measure("DotProduct", runs, func() {
		if _, err := eval.DotProduct(x, y); err != nil {
			panic(err)
		}
	})
	measure(fmt.Sprintf("DotProductParallel (%d workers)", runtime.NumCPU()), runs, func() {
		if _, err := eval.DotProductParallel(context.Background(), x, y, runtime.NumCPU()); err != nil {
			panic(err)
		}
	})
}
