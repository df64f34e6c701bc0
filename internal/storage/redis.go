// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStorage keeps ciphertexts in Redis under "gmorph:ct:<handle>", so that
// a gateway and any number of workers on different hosts share one store.
type RedisStorage struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStorage wraps client. A zero ttl keeps entries forever.
func NewRedisStorage(client *redis.Client, ttl time.Duration) *RedisStorage {
	return &RedisStorage{client: client, prefix: "gmorph:ct:", ttl: ttl}
}

func (s *RedisStorage) key(handle Handle) (string, error) {
	if err := handle.Validate(); err != nil {
		return "", err
	}
	return s.prefix + string(handle), nil
}

func (s *RedisStorage) Store(ctx context.Context, data []byte) (Handle, error) {
	handle := ComputeHandle(data)
	key, err := s.key(handle)
	if err != nil {
		return "", err
	}
	// SETNX leaves an existing identical entry alone
	if err := s.client.SetNX(ctx, key, data, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store ciphertext: %w", err)
	}
	return handle, nil
}

func (s *RedisStorage) Load(ctx context.Context, handle Handle) ([]byte, error) {
	key, err := s.key(handle)
	if err != nil {
		return nil, err
	}
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load ciphertext: %w", err)
	}
	return data, nil
}

func (s *RedisStorage) Delete(ctx context.Context, handle Handle) error {
	key, err := s.key(handle)
	if err != nil {
		return err
	}
	n, err := s.client.Del(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("delete ciphertext: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RedisStorage) Exists(ctx context.Context, handle Handle) (bool, error) {
	key, err := s.key(handle)
	if err != nil {
		return false, err
	}
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("exists ciphertext: %w", err)
	}
	return n > 0, nil
}

// Close closes the underlying client.
func (s *RedisStorage) Close() error {
	return s.client.Close()
}
