// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

//go:build profile

package gmorph

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/pprof"
	"time"
)

// ProfileConfig holds profiling configuration. Empty paths disable the
// corresponding profile.
type ProfileConfig struct {
	CPUProfile   string
	MemProfile   string
	BlockProfile string
	MutexProfile string
}

// Profiler wraps runtime/pprof around a workload.
type Profiler struct {
	config    ProfileConfig
	out       io.Writer
	cpuFile   *os.File
	startTime time.Time
}

// NewProfiler creates a profiler reporting progress to out.
func NewProfiler(config ProfileConfig, out io.Writer) *Profiler {
	if out == nil {
		out = io.Discard
	}
	return &Profiler{config: config, out: out}
}

// Start begins profiling
func (p *Profiler) Start() error {
	p.startTime = time.Now()

	if p.config.BlockProfile != "" {
		runtime.SetBlockProfileRate(1)
	}
	if p.config.MutexProfile != "" {
		runtime.SetMutexProfileFraction(1)
	}

	if p.config.CPUProfile != "" {
		f, err := os.Create(p.config.CPUProfile)
		if err != nil {
			return fmt.Errorf("create CPU profile: %w", err)
		}
		p.cpuFile = f
		if err := pprof.StartCPUProfile(f); err != nil {
			f.Close()
			return fmt.Errorf("start CPU profile: %w", err)
		}
	}

	return nil
}

// Stop ends profiling and writes all profile files
func (p *Profiler) Stop() error {
	fmt.Fprintf(p.out, "Profiling duration: %v\n", time.Since(p.startTime))

	if p.cpuFile != nil {
		pprof.StopCPUProfile()
		p.cpuFile.Close()
		fmt.Fprintf(p.out, "CPU profile written to: %s\n", p.config.CPUProfile)
	}

	var errs []error
	if p.config.MemProfile != "" {
		runtime.GC()
		errs = append(errs, p.writeLookup("heap", p.config.MemProfile))
	}
	if p.config.BlockProfile != "" {
		errs = append(errs, p.writeLookup("block", p.config.BlockProfile))
		runtime.SetBlockProfileRate(0)
	}
	if p.config.MutexProfile != "" {
		errs = append(errs, p.writeLookup("mutex", p.config.MutexProfile))
		runtime.SetMutexProfileFraction(0)
	}
	return errors.Join(errs...)
}

func (p *Profiler) writeLookup(name, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s profile: %w", name, err)
	}
	defer f.Close()
	if err := pprof.Lookup(name).WriteTo(f, 0); err != nil {
		return fmt.Errorf("write %s profile: %w", name, err)
	}
	fmt.Fprintf(p.out, "%s profile written to: %s\n", name, path)
	return nil
}

// PrintMemStats writes a short memory summary followed by the sampling
// counters, which show how often the rejection loops retried.
func PrintMemStats(w io.Writer) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	fmt.Fprintf(w, "Memory Statistics:\n")
	fmt.Fprintf(w, "  Alloc:       %d MB\n", m.Alloc/1024/1024)
	fmt.Fprintf(w, "  TotalAlloc:  %d MB\n", m.TotalAlloc/1024/1024)
	fmt.Fprintf(w, "  Sys:         %d MB\n", m.Sys/1024/1024)
	fmt.Fprintf(w, "  NumGC:       %d\n", m.NumGC)
	fmt.Fprintf(w, "  HeapObjects: %d\n", m.HeapObjects)

	s := ReadStats()
	fmt.Fprintf(w, "Sampling:\n")
	fmt.Fprintf(w, "  Key pairs:            %d (%.2f draws each)\n", s.KeyPairs, s.AttemptsPerKeyPair())
	fmt.Fprintf(w, "  Embeddings:           %d (%.2f closing draws each)\n", s.Embeddings, s.AttemptsPerEmbedding())
	fmt.Fprintf(w, "  Probe invert checks:  %d\n", s.ProbeChecks)
}
