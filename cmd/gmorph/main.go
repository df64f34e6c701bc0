// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

// Command gmorph drives the encrypted dot-product pipeline from files and runs
// small demonstrations of the scheme.
//
// Usage:
//
//	gmorph [-format json|cbor] <command> [flags]
//
// Pipeline:
//
//	gmorph generate -n 999          # input.json: x = 1..n, y = round(2.71·x)
//	gmorph encrypt                  # data.json + keys.json
//	gmorph dot                      # result.json, no keys needed
//	gmorph decrypt                  # prints m = Σxy / Σxx
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/luxfi/gmorph/internal/codec"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

// env is shared by every command.
type env struct {
	stdout io.Writer
	stderr io.Writer
	format codec.Format
}

// path returns name with the extension of the selected format.
func (e *env) path(name string) string {
	return name + "." + string(e.format)
}

func (e *env) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet("gmorph "+name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	return fs
}

type command struct {
	usage string
	run   func(e *env, args []string) error
}

var commands = map[string]command{
	"keygen":   {"generate a key pair", runKeygen},
	"generate": {"write sample input vectors", runGenerate},
	"encrypt":  {"encrypt input vectors", runEncrypt},
	"dot":      {"evaluate the encrypted dot products", runDot},
	"decrypt":  {"decrypt the partials and print m", runDecrypt},
	"sum":      {"demo: encrypted sum of 1..9", runSum},
	"product":  {"demo: encrypted product of 1..9", runProduct},
	"invert":   {"demo: invert a 2x2 quaternion matrix", runInvert},
	"probe":    {"probe ciphertexts for invertibility boundaries", runProbe},
	"version":  {"print the version", runVersion},
}

func usage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintf(w, "usage: gmorph [flags] <command> [command flags]\n\ncommands:\n")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-9s %s\n", name, commands[name].usage)
	}
	fmt.Fprintf(w, "\nflags:\n")
	fs.PrintDefaults()
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("gmorph", flag.ContinueOnError)
	fs.SetOutput(stderr)
	format := fs.String("format", "json", "file format: json or cbor")
	fs.Usage = func() { usage(stderr, fs) }
	if err := fs.Parse(args); err != nil {
		return err
	}

	f, err := codec.ParseFormat(*format)
	if err != nil {
		return err
	}
	if f == codec.Binary {
		return fmt.Errorf("%w: pipeline files are json or cbor", codec.ErrUnknownFormat)
	}

	if fs.NArg() == 0 {
		fs.Usage()
		return flag.ErrHelp
	}
	cmd, ok := commands[fs.Arg(0)]
	if !ok {
		fs.Usage()
		return fmt.Errorf("unknown command %q", fs.Arg(0))
	}
	return cmd.run(&env{stdout: stdout, stderr: stderr, format: f}, fs.Args()[1:])
}
