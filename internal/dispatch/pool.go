// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/luxfi/gmorph"
	"github.com/luxfi/gmorph/internal/queue"
	"github.com/luxfi/gmorph/internal/storage"
	"github.com/luxfi/gmorph/logging"
)

// Pool manages workers that pop jobs from a queue, evaluate them over stored
// ciphertexts and store the results. Workers never hold key material.
type Pool struct {
	numWorkers      int
	queue           queue.Queue
	storage         storage.Storage
	eval            *gmorph.Evaluator
	log             logging.Logger
	retryDelay      time.Duration
	shutdownTimeout time.Duration

	wg           sync.WaitGroup
	cancel       context.CancelFunc
	running      atomic.Bool
	successCount atomic.Int64
	failureCount atomic.Int64
	inFlight     atomic.Int64
}

// NewPool creates a stopped pool of numWorkers workers.
func NewPool(numWorkers int, q queue.Queue, s storage.Storage) *Pool {
	return &Pool{
		numWorkers:      max(numWorkers, 1),
		queue:           q,
		storage:         s,
		eval:            gmorph.NewEvaluator(),
		log:             logging.Nop(),
		retryDelay:      time.Second,
		shutdownTimeout: 30 * time.Second,
	}
}

func (p *Pool) WithLogger(l logging.Logger) *Pool {
	p.log = logging.OrNop(l)
	return p
}

// Succeeded returns the number of completed jobs.
func (p *Pool) Succeeded() int64 { return p.successCount.Load() }

// Failed returns the number of failed jobs.
func (p *Pool) Failed() int64 { return p.failureCount.Load() }

// InFlight returns the number of jobs currently being evaluated.
func (p *Pool) InFlight() int64 { return p.inFlight.Load() }

// WriteMetrics writes the pool counters in the Prometheus text format.
func (p *Pool) WriteMetrics(w io.Writer) {
	fmt.Fprintf(w, "# HELP gmorph_jobs_total Total evaluated jobs\n")
	fmt.Fprintf(w, "# TYPE gmorph_jobs_total counter\n")
	fmt.Fprintf(w, "gmorph_jobs_total{status=\"success\"} %d\n", p.Succeeded())
	fmt.Fprintf(w, "gmorph_jobs_total{status=\"failure\"} %d\n", p.Failed())
	fmt.Fprintf(w, "# HELP gmorph_jobs_in_flight Jobs being evaluated\n")
	fmt.Fprintf(w, "# TYPE gmorph_jobs_in_flight gauge\n")
	fmt.Fprintf(w, "gmorph_jobs_in_flight %d\n", p.InFlight())
}

// Start starts the workers. They run until Stop or until ctx is done.
func (p *Pool) Start(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		return errors.New("pool already running")
	}

	ctx, p.cancel = context.WithCancel(ctx)
	p.log.Info(ctx, "starting workers", "workers", p.numWorkers)

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}

	return nil
}

// Stop cancels the workers and waits for in-flight jobs to finish.
func (p *Pool) Stop() error {
	if !p.running.Load() {
		return nil
	}

	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(p.shutdownTimeout):
		return errors.New("shutdown timeout")
	}

	p.running.Store(false)
	return nil
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	log := p.log.With("worker", id)
	log.Debug(ctx, "worker started")

	for {
		job, err := p.queue.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, queue.ErrClosed) {
				log.Debug(ctx, "worker stopping")
				return
			}
			log.Warn(ctx, "pop job", "err", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.retryDelay):
			}
			continue
		}

		p.processJob(ctx, log, job)
	}
}

// processJob runs a popped job to completion. Cancelling the pool stops new
// pops only; the job's loads, result write and status updates still happen.
func (p *Pool) processJob(ctx context.Context, log logging.Logger, job *queue.Job) {
	ctx = context.WithoutCancel(ctx)
	p.inFlight.Add(1)
	defer p.inFlight.Add(-1)

	log = log.With("job", job.ID, "op", job.Op, "key", job.Key)
	log.Debug(ctx, "processing job", "operands", len(job.Operands))

	job.Status = queue.StatusProcessing
	if err := p.queue.Update(ctx, job); err != nil {
		log.Warn(ctx, "update job status", "err", err)
	}

	handle, err := p.evaluate(ctx, job)
	if err != nil {
		job.Status = queue.StatusFailed
		job.Error = err.Error()
		if err := p.queue.Update(ctx, job); err != nil {
			log.Warn(ctx, "update failed job", "err", err)
		}
		p.failureCount.Add(1)
		log.Warn(ctx, "job failed", "err", err)
		return
	}

	job.Status = queue.StatusCompleted
	job.ResultHandle = string(handle)
	if err := p.queue.Update(ctx, job); err != nil {
		log.Warn(ctx, "update job result", "err", err)
	}

	p.successCount.Add(1)
	log.Debug(ctx, "job completed", "result", handle)
}

func (p *Pool) evaluate(ctx context.Context, job *queue.Job) (storage.Handle, error) {
	if err := job.Validate(); err != nil {
		return "", err
	}

	handles := make([]storage.Handle, len(job.Operands))
	for i, h := range job.Operands {
		handles[i] = storage.Handle(h)
	}
	operands, err := storage.LoadEncs(ctx, p.storage, handles)
	if err != nil {
		return "", fmt.Errorf("load operands: %w", err)
	}

	result, err := p.eval.Apply(job.Op, operands...)
	if err != nil {
		return "", fmt.Errorf("%s: %w", job.Op, err)
	}

	handle, err := storage.StoreEnc(ctx, p.storage, result)
	if err != nil {
		return "", fmt.Errorf("store result: %w", err)
	}
	return handle, nil
}
