// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package gmorph

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/luxfi/lattice/v7/utils/buffer"

	"github.com/luxfi/gmorph/algebra"
)

// Binary layout: a matrix is its nine quaternions in row-major order, each as
// four little-endian uint32 words (w, i, j, k). Every word must be < P.
// A ciphertext or plaintext is one matrix; a key pair is forwards followed
// by backwards.
const (
	matrixWords = 9 * 4
	matrixSize  = 4 * matrixWords

	// EncBinarySize is the serialized size of an Enc in bytes.
	EncBinarySize = matrixSize
	// KeyPairBinarySize is the serialized size of a KeyPair in bytes.
	KeyPairBinarySize = 2 * matrixSize
)

func matrixToWords(m matrix) []uint32 {
	words := make([]uint32, 0, matrixWords)
	for _, q := range m.Entries() {
		words = append(words, q.W.Uint32(), q.I.Uint32(), q.J.Uint32(), q.K.Uint32())
	}
	return words
}

func matrixFromWords(words []uint32) (m matrix, err error) {
	if len(words) != matrixWords {
		return m, fmt.Errorf("matrix: %d words, want %d: %w", len(words), matrixWords, ErrMalformed)
	}
	var c [4]algebra.Mod231
	for e := 0; e < 9; e++ {
		for k := range c {
			if c[k], err = algebra.FromReduced(words[4*e+k]); err != nil {
				return m, fmt.Errorf("matrix entry %d: %w", e, err)
			}
		}
		m[e/3][e%3] = algebra.NewQuaternion(c[0], c[1], c[2], c[3])
	}
	return m, nil
}

func writeMatrices(w io.Writer, ms ...matrix) (n int64, err error) {
	switch w := w.(type) {
	case buffer.Writer:
		for _, m := range ms {
			inc, err := buffer.WriteUint32Slice(w, matrixToWords(m))
			n += int64(inc)
			if err != nil {
				return n, fmt.Errorf("buffer.WriteUint32Slice: %w", err)
			}
		}
		return n, w.Flush()
	default:
		return writeMatrices(bufio.NewWriter(w), ms...)
	}
}

func readMatrices(r io.Reader, ms ...*matrix) (n int64, err error) {
	switch r := r.(type) {
	case buffer.Reader:
		words := make([]uint32, matrixWords)
		for _, m := range ms {
			inc, err := buffer.ReadUint32Slice(r, words)
			n += int64(inc)
			if err != nil {
				return n, fmt.Errorf("buffer.ReadUint32Slice: %w", err)
			}
			decoded, err := matrixFromWords(words)
			if err != nil {
				return n, err
			}
			*m = decoded
		}
		return n, nil
	default:
		return readMatrices(bufio.NewReader(r), ms...)
	}
}

// BinarySize returns the serialized size of the ciphertext in bytes.
func (ct Enc) BinarySize() int {
	return EncBinarySize
}

// WriteTo writes the ciphertext on w. Unless w implements buffer.Writer it is
// wrapped in a bufio.Writer.
func (ct Enc) WriteTo(w io.Writer) (int64, error) {
	return writeMatrices(w, ct.m)
}

// ReadFrom reads a ciphertext written by WriteTo, rejecting unreduced words.
func (ct *Enc) ReadFrom(r io.Reader) (int64, error) {
	return readMatrices(r, &ct.m)
}

// MarshalBinary encodes the ciphertext into a newly allocated slice.
func (ct Enc) MarshalBinary() ([]byte, error) {
	buf := buffer.NewBufferSize(ct.BinarySize())
	_, err := ct.WriteTo(buf)
	return buf.Bytes(), err
}

// UnmarshalBinary decodes bytes produced by MarshalBinary.
func (ct *Enc) UnmarshalBinary(data []byte) error {
	if len(data) != EncBinarySize {
		return fmt.Errorf("enc: %d bytes, want %d: %w", len(data), EncBinarySize, ErrMalformed)
	}
	_, err := ct.ReadFrom(buffer.NewBuffer(data))
	return err
}

// MarshalJSON encodes the ciphertext as three rows of three [w, i, j, k]
// arrays.
func (ct Enc) MarshalJSON() ([]byte, error) {
	return json.Marshal([3][3]algebra.Q231(ct.m))
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (ct *Enc) UnmarshalJSON(data []byte) error {
	m, err := matrixFromJSON(data)
	if err != nil {
		return fmt.Errorf("decode enc: %w", err)
	}
	ct.m = m
	return nil
}

// matrixFromJSON decodes exactly three rows of exactly three quaternions.
func matrixFromJSON(data []byte) (m matrix, err error) {
	var rows [][]algebra.Q231
	if err := json.Unmarshal(data, &rows); err != nil {
		if errors.Is(err, algebra.ErrMalformed) {
			return m, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		return m, err
	}
	if len(rows) != 3 {
		return m, fmt.Errorf("%d rows, want 3: %w", len(rows), ErrMalformed)
	}
	for r, row := range rows {
		if len(row) != 3 {
			return m, fmt.Errorf("row %d: %d entries, want 3: %w", r, len(row), ErrMalformed)
		}
		copy(m[r][:], row)
	}
	return m, nil
}

// BinarySize returns the serialized size of the key pair in bytes.
func (kp *KeyPair) BinarySize() int {
	return KeyPairBinarySize
}

// WriteTo writes forwards then backwards on w.
func (kp *KeyPair) WriteTo(w io.Writer) (int64, error) {
	return writeMatrices(w, kp.forwards, kp.backwards)
}

// ReadFrom reads a key pair written by WriteTo and checks that the two
// matrices are inverse to each other.
func (kp *KeyPair) ReadFrom(r io.Reader) (int64, error) {
	var fw, bw matrix
	n, err := readMatrices(r, &fw, &bw)
	if err != nil {
		return n, err
	}
	decoded := KeyPair{forwards: fw, backwards: bw}
	if err := decoded.verify(); err != nil {
		return n, err
	}
	*kp = decoded
	return n, nil
}

// MarshalBinary encodes the key pair into a newly allocated slice.
func (kp *KeyPair) MarshalBinary() ([]byte, error) {
	buf := buffer.NewBufferSize(kp.BinarySize())
	_, err := kp.WriteTo(buf)
	return buf.Bytes(), err
}

// UnmarshalBinary decodes bytes produced by MarshalBinary.
func (kp *KeyPair) UnmarshalBinary(data []byte) error {
	if len(data) != KeyPairBinarySize {
		return fmt.Errorf("key pair: %d bytes, want %d: %w", len(data), KeyPairBinarySize, ErrMalformed)
	}
	_, err := kp.ReadFrom(buffer.NewBuffer(data))
	return err
}

type keyPairJSON struct {
	Forwards  json.RawMessage `json:"forwards"`
	Backwards json.RawMessage `json:"backwards"`
}

// MarshalJSON encodes the key pair as {"forwards": ..., "backwards": ...}.
func (kp *KeyPair) MarshalJSON() ([]byte, error) {
	fw, err := json.Marshal([3][3]algebra.Q231(kp.forwards))
	if err != nil {
		return nil, err
	}
	bw, err := json.Marshal([3][3]algebra.Q231(kp.backwards))
	if err != nil {
		return nil, err
	}
	return json.Marshal(keyPairJSON{Forwards: fw, Backwards: bw})
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (kp *KeyPair) UnmarshalJSON(data []byte) error {
	var raw keyPairJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode key pair: %w", err)
	}
	if len(raw.Forwards) == 0 || len(raw.Backwards) == 0 {
		return fmt.Errorf("decode key pair: missing matrix: %w", ErrMalformed)
	}
	fw, err := matrixFromJSON(raw.Forwards)
	if err != nil {
		return fmt.Errorf("decode key pair forwards: %w", err)
	}
	bw, err := matrixFromJSON(raw.Backwards)
	if err != nil {
		return fmt.Errorf("decode key pair backwards: %w", err)
	}
	decoded := KeyPair{forwards: fw, backwards: bw}
	if err := decoded.verify(); err != nil {
		return err
	}
	*kp = decoded
	return nil
}

// MarshalBinary encodes the plaintext embedding.
func (pt Plaintext) MarshalBinary() ([]byte, error) {
	buf := buffer.NewBufferSize(matrixSize)
	_, err := writeMatrices(buf, pt.m)
	return buf.Bytes(), err
}

// UnmarshalBinary decodes bytes produced by MarshalBinary.
func (pt *Plaintext) UnmarshalBinary(data []byte) error {
	if len(data) != matrixSize {
		return fmt.Errorf("plaintext: %d bytes, want %d: %w", len(data), matrixSize, ErrMalformed)
	}
	_, err := readMatrices(buffer.NewBuffer(data), &pt.m)
	return err
}

// MarshalJSON encodes the embedding like Enc.MarshalJSON.
func (pt Plaintext) MarshalJSON() ([]byte, error) {
	return json.Marshal([3][3]algebra.Q231(pt.m))
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (pt *Plaintext) UnmarshalJSON(data []byte) error {
	m, err := matrixFromJSON(data)
	if err != nil {
		return fmt.Errorf("decode plaintext: %w", err)
	}
	pt.m = m
	return nil
}
