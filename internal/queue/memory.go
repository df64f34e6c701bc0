// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package queue

import (
	"context"
	"sync"
	"time"
)

// MemoryQueue implements Queue in process. It backs tests and single-binary
// deployments where workers and gateway share memory.
type MemoryQueue struct {
	mu     sync.RWMutex
	jobs   map[string]Job
	ready  chan string
	done   chan struct{}
	closed bool
}

// NewMemoryQueue creates a queue holding at most capacity pending jobs.
func NewMemoryQueue(capacity int) *MemoryQueue {
	return &MemoryQueue{
		jobs:  make(map[string]Job),
		ready: make(chan string, capacity),
		done:  make(chan struct{}),
	}
}

func (q *MemoryQueue) Push(ctx context.Context, job *Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	job.CreatedAt = time.Now()
	job.UpdatedAt = job.CreatedAt
	job.Status = StatusPending

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.jobs[job.ID] = cloneJob(job)
	q.mu.Unlock()

	select {
	case q.ready <- job.ID:
		return nil
	case <-q.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryQueue) Pop(ctx context.Context) (*Job, error) {
	select {
	case id := <-q.ready:
		return q.Get(ctx, id)
	case <-q.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *MemoryQueue) Update(ctx context.Context, job *Job) error {
	job.UpdatedAt = time.Now()

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}
	if _, ok := q.jobs[job.ID]; !ok {
		return ErrJobNotFound
	}
	q.jobs[job.ID] = cloneJob(job)
	return nil
}

func (q *MemoryQueue) Get(ctx context.Context, id string) (*Job, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	job, ok := q.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	out := cloneJob(&job)
	return &out, nil
}

// Len returns the number of jobs waiting to be popped.
func (q *MemoryQueue) Len() int {
	return len(q.ready)
}

func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.done)
	}
	return nil
}

func cloneJob(job *Job) Job {
	out := *job
	out.Operands = append([]string(nil), job.Operands...)
	return out
}
