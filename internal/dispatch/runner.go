// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/luxfi/gmorph"
	"github.com/luxfi/gmorph/internal/queue"
	"github.com/luxfi/gmorph/internal/storage"
	"github.com/luxfi/gmorph/logging"
)

// ErrJobFailed is returned when a worker reports a failed job.
var ErrJobFailed = errors.New("dispatch: job failed")

// Runner evaluates tasks and returns one result per task, in task order.
type Runner interface {
	Run(ctx context.Context, tasks []Task) ([]Result, error)
}

// Dispatch splits x and y by cfg.Chunk and runs the tasks on r.
func Dispatch(ctx context.Context, r Runner, cfg Config, x, y []gmorph.Enc) ([]Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	tasks, err := Split(x, y, cfg.Chunk)
	if err != nil {
		return nil, err
	}
	return r.Run(ctx, tasks)
}

// LocalRunner evaluates tasks on goroutines of the calling process.
type LocalRunner struct {
	workers int
	eval    *gmorph.Evaluator
}

func NewLocalRunner(workers int) *LocalRunner {
	return &LocalRunner{workers: max(workers, 1), eval: gmorph.NewEvaluator()}
}

func (r *LocalRunner) Run(ctx context.Context, tasks []Task) ([]Result, error) {
	results := make([]Result, len(tasks))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, t := range tasks {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := Execute(r.eval, t)
			results[i] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// QueueRunner publishes operands to a storage and pushes one dot job per
// partial onto a queue, then waits for workers to complete them.
type QueueRunner struct {
	queue   queue.Queue
	storage storage.Storage
	poll    time.Duration
	key     string
	log     logging.Logger
}

// NewQueueRunner creates a runner. key is the fingerprint recorded on every
// job so that results can be matched to the key pair that decrypts them.
func NewQueueRunner(q queue.Queue, s storage.Storage, poll time.Duration, key string) *QueueRunner {
	return &QueueRunner{queue: q, storage: s, poll: poll, key: key, log: logging.Nop()}
}

func (r *QueueRunner) WithLogger(l logging.Logger) *QueueRunner {
	r.log = logging.OrNop(l)
	return r
}

type pending struct {
	task   int
	xy, xx string
}

func (r *QueueRunner) Run(ctx context.Context, tasks []Task) ([]Result, error) {
	jobs := make([]pending, len(tasks))
	for i, t := range tasks {
		xs, err := r.storeAll(ctx, t.X)
		if err != nil {
			return nil, fmt.Errorf("task %d: %w", t.Index, err)
		}
		ys, err := r.storeAll(ctx, t.Y)
		if err != nil {
			return nil, fmt.Errorf("task %d: %w", t.Index, err)
		}

		jobs[i].task = t.Index
		if jobs[i].xy, err = r.submit(ctx, append(append([]string{}, xs...), ys...)); err != nil {
			return nil, fmt.Errorf("task %d: %w", t.Index, err)
		}
		if jobs[i].xx, err = r.submit(ctx, append(append([]string{}, xs...), xs...)); err != nil {
			return nil, fmt.Errorf("task %d: %w", t.Index, err)
		}
	}
	r.log.Info(ctx, "submitted tasks", "tasks", len(tasks), "jobs", 2*len(tasks), "key", r.key)

	results := make([]Result, len(tasks))
	for i, p := range jobs {
		xy, err := r.await(ctx, p.xy)
		if err != nil {
			return nil, fmt.Errorf("task %d: xy: %w", p.task, err)
		}
		xx, err := r.await(ctx, p.xx)
		if err != nil {
			return nil, fmt.Errorf("task %d: xx: %w", p.task, err)
		}
		results[i] = Result{Index: p.task, XY: xy, XX: xx}
	}
	return results, nil
}

func (r *QueueRunner) storeAll(ctx context.Context, cts []gmorph.Enc) ([]string, error) {
	handles := make([]string, len(cts))
	for i, ct := range cts {
		h, err := storage.StoreEnc(ctx, r.storage, ct)
		if err != nil {
			return nil, fmt.Errorf("store operand: %w", err)
		}
		handles[i] = string(h)
	}
	return handles, nil
}

func (r *QueueRunner) submit(ctx context.Context, operands []string) (string, error) {
	job := queue.NewJob(gmorph.OpDot, operands...)
	job.Key = r.key
	if err := r.queue.Push(ctx, job); err != nil {
		return "", fmt.Errorf("push job: %w", err)
	}
	return job.ID, nil
}

func (r *QueueRunner) await(ctx context.Context, id string) (gmorph.Enc, error) {
	ticker := time.NewTicker(r.poll)
	defer ticker.Stop()

	for {
		job, err := r.queue.Get(ctx, id)
		if err != nil {
			return gmorph.Enc{}, fmt.Errorf("job %s: %w", id, err)
		}
		switch job.Status {
		case queue.StatusCompleted:
			return storage.LoadEnc(ctx, r.storage, storage.Handle(job.ResultHandle))
		case queue.StatusFailed:
			return gmorph.Enc{}, fmt.Errorf("job %s: %s: %w", id, job.Error, ErrJobFailed)
		}

		select {
		case <-ctx.Done():
			return gmorph.Enc{}, ctx.Err()
		case <-ticker.C:
		}
	}
}
