// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

// Package queue provides job queue abstractions for homomorphic evaluation
// requests. A job names an operation and the storage handles of its
// encrypted operands; workers never see key material.
package queue

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/luxfi/gmorph"
)

// Common errors.
var (
	ErrQueueEmpty     = errors.New("queue is empty")
	ErrJobNotFound    = errors.New("job not found")
	ErrConnectionLost = errors.New("queue connection lost")
	ErrClosed         = errors.New("queue closed")
	ErrInvalidJob     = errors.New("invalid job")
)

// JobStatus represents the state of a job.
type JobStatus uint8

const (
	StatusPending JobStatus = iota
	StatusProcessing
	StatusCompleted
	StatusFailed
)

func (s JobStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusProcessing:
		return "processing"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	}
	return fmt.Sprintf("JobStatus(%d)", uint8(s))
}

// Job is a homomorphic evaluation request. Operands are storage handles of
// serialized ciphertexts, all produced under the key with fingerprint Key.
type Job struct {
	ID           string    `json:"id"`
	Op           gmorph.Op `json:"op"`
	Operands     []string  `json:"operands"`
	Key          string    `json:"key,omitempty"`
	ResultHandle string    `json:"result_handle,omitempty"`
	Status       JobStatus `json:"status"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewJob creates a pending job with a random ID.
func NewJob(op gmorph.Op, operands ...string) *Job {
	return &Job{ID: NewJobID(), Op: op, Operands: operands}
}

// NewJobID returns 16 random bytes, hex encoded.
func NewJobID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(fmt.Errorf("job id: %w", err))
	}
	return hex.EncodeToString(b[:])
}

// Validate checks the job against the arity of its operation.
func (j *Job) Validate() error {
	if j.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidJob)
	}
	switch n := j.Op.Arity(); {
	case n == 0:
		return fmt.Errorf("%w: unknown operation %q", ErrInvalidJob, j.Op)
	case n > 0 && len(j.Operands) != n:
		return fmt.Errorf("%w: %s takes %d operands, got %d", ErrInvalidJob, j.Op, n, len(j.Operands))
	case n < 0 && (len(j.Operands) == 0 || len(j.Operands)%2 != 0):
		return fmt.Errorf("%w: %s takes a non-zero even operand count, got %d", ErrInvalidJob, j.Op, len(j.Operands))
	}
	return nil
}

// Queue defines the interface for job queue operations.
type Queue interface {
	// Push adds a job to the queue.
	Push(ctx context.Context, job *Job) error
	// Pop retrieves and removes the next job from the queue, blocking until
	// one is available or ctx is done.
	Pop(ctx context.Context) (*Job, error)
	// Update updates job status.
	Update(ctx context.Context, job *Job) error
	// Get retrieves a job by ID.
	Get(ctx context.Context, id string) (*Job, error)
	// Close closes the queue connection.
	Close() error
}

// RedisQueue implements Queue using Redis.
type RedisQueue struct {
	client    *redis.Client
	queueKey  string
	jobPrefix string
	ttl       time.Duration
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Connect opens a client and pings the server.
func (cfg RedisConfig) Connect(ctx context.Context) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// NewRedisQueue creates a new Redis-backed queue.
func NewRedisQueue(cfg RedisConfig, queueName string) (*RedisQueue, error) {
	client, err := cfg.Connect(context.Background())
	if err != nil {
		return nil, err
	}
	return NewRedisQueueFromClient(client, queueName), nil
}

// NewRedisQueueFromClient wraps an existing client. Closing the queue closes
// the client.
func NewRedisQueueFromClient(client *redis.Client, queueName string) *RedisQueue {
	return &RedisQueue{
		client:    client,
		queueKey:  "gmorph:queue:" + queueName,
		jobPrefix: "gmorph:job:",
		ttl:       24 * time.Hour,
	}
}

func (q *RedisQueue) Push(ctx context.Context, job *Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	job.CreatedAt = time.Now()
	job.UpdatedAt = job.CreatedAt
	job.Status = StatusPending

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	pipe := q.client.Pipeline()
	pipe.Set(ctx, q.jobPrefix+job.ID, data, q.ttl)
	pipe.LPush(ctx, q.queueKey, job.ID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("push job: %w", err)
	}

	return nil
}

func (q *RedisQueue) Pop(ctx context.Context) (*Job, error) {
	result, err := q.client.BRPop(ctx, 0, q.queueKey).Result()
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		if errors.Is(err, redis.ErrClosed) {
			return nil, ErrConnectionLost
		}
		return nil, fmt.Errorf("pop job: %w", err)
	}

	if len(result) < 2 {
		return nil, ErrQueueEmpty
	}

	jobID := result[1]
	return q.Get(ctx, jobID)
}

func (q *RedisQueue) Update(ctx context.Context, job *Job) error {
	job.UpdatedAt = time.Now()

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	if err := q.client.Set(ctx, q.jobPrefix+job.ID, data, q.ttl).Err(); err != nil {
		return fmt.Errorf("update job: %w", err)
	}

	return nil
}

func (q *RedisQueue) Get(ctx context.Context, id string) (*Job, error) {
	data, err := q.client.Get(ctx, q.jobPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("get job: %w", err)
	}

	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("unmarshal job: %w", err)
	}

	return &job, nil
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}
