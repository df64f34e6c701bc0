// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

// Package codec reads and writes gmorph values in the on-disk formats shared
// by the commands and the server.
package codec

import (
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// ErrUnknownFormat is returned for a format name or extension not listed below.
var ErrUnknownFormat = errors.New("unknown format")

// Format names an encoding.
type Format string

const (
	JSON   Format = "json"
	CBOR   Format = "cbor"
	Binary Format = "bin"
)

// ParseFormat accepts "json", "cbor" and "bin" (also "binary").
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return JSON, nil
	case "cbor":
		return CBOR, nil
	case "bin", "binary":
		return Binary, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// FormatFromPath picks a format from the file extension, falling back to def.
func FormatFromPath(path string, def Format) Format {
	if f, err := ParseFormat(strings.TrimPrefix(filepath.Ext(path), ".")); err == nil {
		return f
	}
	return def
}

// Marshal encodes v. Binary requires v to implement encoding.BinaryMarshaler.
func Marshal(f Format, v any) ([]byte, error) {
	switch f {
	case JSON:
		return json.MarshalIndent(v, "", "  ")
	case CBOR:
		return cbor.Marshal(v)
	case Binary:
		m, ok := v.(encoding.BinaryMarshaler)
		if !ok {
			return nil, fmt.Errorf("%T has no binary form", v)
		}
		return m.MarshalBinary()
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// Unmarshal decodes data into v.
func Unmarshal(f Format, data []byte, v any) error {
	switch f {
	case JSON:
		return json.Unmarshal(data, v)
	case CBOR:
		return cbor.Unmarshal(data, v)
	case Binary:
		u, ok := v.(encoding.BinaryUnmarshaler)
		if !ok {
			return fmt.Errorf("%T has no binary form", v)
		}
		return u.UnmarshalBinary(data)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// ReadFile decodes the file at path into v.
func ReadFile(f Format, path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := Unmarshal(f, data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// WriteFile encodes v to path with permissions perm.
func WriteFile(f Format, path string, v any, perm os.FileMode) error {
	data, err := Marshal(f, v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return os.WriteFile(path, data, perm)
}
