// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

// Package storage provides content-addressed ciphertext storage and retrieval.
package storage

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/zeebo/blake3"

	"github.com/luxfi/gmorph"
)

// Common errors.
var (
	ErrNotFound      = errors.New("ciphertext not found")
	ErrStorageFull   = errors.New("storage capacity exceeded")
	ErrInvalidHandle = errors.New("invalid ciphertext handle")
)

// Handle uniquely identifies a ciphertext.
type Handle string

// HandleSize is the length of a hex encoded handle.
const HandleSize = 64

// ComputeHandle generates a handle from ciphertext data.
func ComputeHandle(data []byte) Handle {
	hash := blake3.Sum256(data)
	return Handle(hex.EncodeToString(hash[:]))
}

// Validate reports whether h has the shape of a computed handle.
func (h Handle) Validate() error {
	if len(h) != HandleSize {
		return fmt.Errorf("%w: length %d", ErrInvalidHandle, len(h))
	}
	if _, err := hex.DecodeString(string(h)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidHandle, err)
	}
	return nil
}

// Storage defines the interface for ciphertext storage.
type Storage interface {
	// Store saves a ciphertext and returns its handle.
	Store(ctx context.Context, data []byte) (Handle, error)
	// Load retrieves a ciphertext by handle.
	Load(ctx context.Context, handle Handle) ([]byte, error)
	// Delete removes a ciphertext.
	Delete(ctx context.Context, handle Handle) error
	// Exists checks if a ciphertext exists.
	Exists(ctx context.Context, handle Handle) (bool, error)
	// Close closes the storage.
	Close() error
}

// StoreEnc serializes ct and stores it.
func StoreEnc(ctx context.Context, s Storage, ct gmorph.Enc) (Handle, error) {
	data, err := ct.MarshalBinary()
	if err != nil {
		return "", err
	}
	return s.Store(ctx, data)
}

// LoadEnc loads and decodes the ciphertext stored under handle.
func LoadEnc(ctx context.Context, s Storage, handle Handle) (gmorph.Enc, error) {
	var ct gmorph.Enc
	data, err := LoadRaw(ctx, s, handle)
	if err != nil {
		return ct, err
	}
	if err := ct.UnmarshalBinary(data); err != nil {
		return ct, fmt.Errorf("decode %s: %w", handle, err)
	}
	return ct, nil
}

// LoadRaw validates handle before loading it, so that backends which do not
// check handles themselves still reject malformed ones.
func LoadRaw(ctx context.Context, s Storage, handle Handle) ([]byte, error) {
	if err := handle.Validate(); err != nil {
		return nil, err
	}
	return s.Load(ctx, handle)
}

// LoadEncs loads every handle in order.
func LoadEncs(ctx context.Context, s Storage, handles []Handle) ([]gmorph.Enc, error) {
	out := make([]gmorph.Enc, len(handles))
	for i, h := range handles {
		ct, err := LoadEnc(ctx, s, h)
		if err != nil {
			return nil, err
		}
		out[i] = ct
	}
	return out, nil
}

// MemoryStorage implements in-memory ciphertext storage.
type MemoryStorage struct {
	mu       sync.RWMutex
	data     map[Handle][]byte
	capacity int64
	size     int64
}

// NewMemoryStorage creates a new in-memory storage.
func NewMemoryStorage(capacityMB int64) *MemoryStorage {
	return &MemoryStorage{
		data:     make(map[Handle][]byte),
		capacity: capacityMB * 1024 * 1024,
	}
}

func (s *MemoryStorage) Store(ctx context.Context, data []byte) (Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	handle := ComputeHandle(data)

	if _, exists := s.data[handle]; exists {
		return handle, nil // dedup
	}

	if s.size+int64(len(data)) > s.capacity {
		return "", ErrStorageFull
	}

	s.data[handle] = append([]byte(nil), data...)
	s.size += int64(len(data))

	return handle, nil
}

func (s *MemoryStorage) Load(ctx context.Context, handle Handle) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, exists := s.data[handle]
	if !exists {
		return nil, ErrNotFound
	}

	return append([]byte(nil), data...), nil
}

func (s *MemoryStorage) Delete(ctx context.Context, handle Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, exists := s.data[handle]
	if !exists {
		return ErrNotFound
	}

	s.size -= int64(len(data))
	delete(s.data, handle)
	return nil
}

func (s *MemoryStorage) Exists(ctx context.Context, handle Handle) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.data[handle]
	return exists, nil
}

// Size returns the number of stored bytes.
func (s *MemoryStorage) Size() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}

func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = make(map[Handle][]byte)
	s.size = 0
	return nil
}

// FileStorage implements file-based ciphertext storage.
type FileStorage struct {
	baseDir string
}

// NewFileStorage creates a new file-based storage.
func NewFileStorage(baseDir string) (*FileStorage, error) {
	if err := os.MkdirAll(baseDir, 0750); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}

	return &FileStorage{baseDir: baseDir}, nil
}

func (s *FileStorage) path(handle Handle) (string, error) {
	if err := handle.Validate(); err != nil {
		return "", err
	}
	h := string(handle)
	// shard by the first byte
	return filepath.Join(s.baseDir, h[:2], h), nil
}

func (s *FileStorage) Store(ctx context.Context, data []byte) (Handle, error) {
	handle := ComputeHandle(data)
	path, err := s.path(handle)
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(path); err == nil {
		return handle, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return "", fmt.Errorf("create shard dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), handle.short()+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if err := errors.Join(werr, cerr); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("rename temp file: %w", err)
	}

	return handle, nil
}

func (s *FileStorage) Load(ctx context.Context, handle Handle) ([]byte, error) {
	path, err := s.path(handle)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read file: %w", err)
	}
	return data, nil
}

func (s *FileStorage) Delete(ctx context.Context, handle Handle) error {
	path, err := s.path(handle)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}

func (s *FileStorage) Exists(ctx context.Context, handle Handle) (bool, error) {
	path, err := s.path(handle)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat file: %w", err)
}

func (s *FileStorage) Close() error {
	return nil
}

func (h Handle) short() string {
	if len(h) > 8 {
		return string(h[:8])
	}
	return string(h)
}

// Open selects a backend by name: "memory", "redis" (using client) or a
// directory path for file storage.
func Open(backend string, client *redis.Client) (Storage, error) {
	switch backend {
	case "":
		return nil, errors.New("storage backend required")
	case "memory":
		return NewMemoryStorage(1024), nil
	case "redis":
		if client == nil {
			return nil, errors.New("redis storage needs a client")
		}
		return NewRedisStorage(client, 0), nil
	}
	return NewFileStorage(backend)
}
