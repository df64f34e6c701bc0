// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package dispatch

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/gmorph"
	"github.com/luxfi/gmorph/internal/queue"
	"github.com/luxfi/gmorph/internal/storage"
	"github.com/luxfi/gmorph/logging"
)

type fixture struct {
	kp   *gmorph.KeyPair
	x, y []gmorph.Enc
	// plaintext sums
	xy, xx uint64
}

func newFixture(t testing.TB, n int) fixture {
	prng, err := gmorph.NewKeyedPRNG([]byte("dispatch"))
	require.NoError(t, err)
	kp := gmorph.NewKeyGenerator(prng).GenKeyPair()
	enc := gmorph.NewEncryptor(kp, prng)

	xs, ys := SampleVectors(n)
	f := fixture{kp: kp, x: enc.EncryptSlice(xs), y: enc.EncryptSlice(ys)}
	for i := range xs {
		f.xy += uint64(xs[i]) * uint64(ys[i])
		f.xx += uint64(xs[i]) * uint64(xs[i])
	}
	return f
}

func TestConfig(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	for _, c := range []Config{
		{Chunk: 0, Workers: 1, PollInterval: time.Millisecond},
		{Chunk: 1, Workers: 0, PollInterval: time.Millisecond},
		{Chunk: 1, Workers: 1},
	} {
		require.Error(t, c.Validate())
	}
}

func TestSampleVectors(t *testing.T) {
	x, y := SampleVectors(5)
	require.Equal(t, []uint32{1, 2, 3, 4, 5}, x)
	require.Equal(t, []uint32{3, 5, 8, 11, 14}, y)
}

func TestSplit(t *testing.T) {
	f := newFixture(t, 37)

	tasks, err := Split(f.x, f.y, 10)
	require.NoError(t, err)
	require.Len(t, tasks, 4)
	for i, want := range []int{10, 10, 10, 7} {
		require.Equal(t, i, tasks[i].Index)
		require.Len(t, tasks[i].X, want)
		require.Len(t, tasks[i].Y, want)
	}

	tasks, err = Split(f.x, f.y, 100)
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	_, err = Split(f.x, f.y[1:], 10)
	require.ErrorIs(t, err, gmorph.ErrLengthMismatch)
	_, err = Split(nil, nil, 10)
	require.ErrorIs(t, err, gmorph.ErrEmptyInput)
	_, err = Split(f.x, f.y, 0)
	require.Error(t, err)
}

func TestExecuteMerge(t *testing.T) {
	f := newFixture(t, 20)
	eval := gmorph.NewEvaluator()

	tasks, err := Split(f.x, f.y, 6)
	require.NoError(t, err)

	results := make([]Result, len(tasks))
	for i, task := range tasks {
		results[i], err = Execute(eval, task)
		require.NoError(t, err)
	}

	s, err := Merge(results, f.kp)
	require.NoError(t, err)
	require.Equal(t, len(tasks), s.Tasks)
	require.Equal(t, f.xy, s.XY)
	require.Equal(t, f.xx, s.XX)
	require.InDelta(t, 2.71, s.M, 0.01)

	_, err = Merge(nil, f.kp)
	require.ErrorIs(t, err, gmorph.ErrEmptyInput)

	zero := Result{XY: gmorph.EncZero(), XX: gmorph.EncZero()}
	_, err = Merge([]Result{zero}, f.kp)
	require.ErrorIs(t, err, ErrDegenerate)

	_, err = Execute(eval, Task{X: f.x[:2], Y: f.y[:1]})
	require.ErrorIs(t, err, gmorph.ErrLengthMismatch)
}

func TestLocalRunner(t *testing.T) {
	f := newFixture(t, 50)
	cfg := Config{Chunk: 7, Workers: 3, PollInterval: time.Millisecond}

	results, err := Dispatch(context.Background(), NewLocalRunner(cfg.Workers), cfg, f.x, f.y)
	require.NoError(t, err)
	require.Len(t, results, 8)
	for i, r := range results {
		require.Equal(t, i, r.Index)
	}

	s, err := Merge(results, f.kp)
	require.NoError(t, err)
	require.Equal(t, f.xy, s.XY)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Dispatch(ctx, NewLocalRunner(2), cfg, f.x, f.y)
	require.ErrorIs(t, err, context.Canceled)

	_, err = Dispatch(context.Background(), NewLocalRunner(2), Config{}, f.x, f.y)
	require.Error(t, err)
}

func TestQueueRunner(t *testing.T) {
	f := newFixture(t, 24)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	q := queue.NewMemoryQueue(64)
	store := storage.NewMemoryStorage(16)

	var logs bytes.Buffer
	pool := NewPool(3, q, store).WithLogger(logging.NewText(&logs, slog.LevelDebug))
	require.NoError(t, pool.Start(ctx))
	require.Error(t, pool.Start(ctx))

	cfg := Config{Chunk: 5, Workers: 1, PollInterval: time.Millisecond}
	runner := NewQueueRunner(q, store, cfg.PollInterval, f.kp.Fingerprint())
	results, err := Dispatch(ctx, runner, cfg, f.x, f.y)
	require.NoError(t, err)
	require.Len(t, results, 5)

	s, err := Merge(results, f.kp)
	require.NoError(t, err)
	require.Equal(t, f.xy, s.XY)
	require.Equal(t, f.xx, s.XX)

	require.NoError(t, pool.Stop())
	require.NoError(t, pool.Stop())
	require.Equal(t, int64(10), pool.Succeeded())
	require.Zero(t, pool.Failed())
	require.Contains(t, logs.String(), "job completed")
	require.Contains(t, logs.String(), f.kp.Fingerprint())
}

func TestPoolFailure(t *testing.T) {
	f := newFixture(t, 2)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	q := queue.NewMemoryQueue(4)
	store := storage.NewMemoryStorage(1)
	pool := NewPool(1, q, store)
	require.NoError(t, pool.Start(ctx))
	defer pool.Stop()

	stored, err := storage.StoreEnc(ctx, store, f.x[0])
	require.NoError(t, err)
	missing := storage.ComputeHandle([]byte("missing"))

	job := queue.NewJob(gmorph.OpAdd, string(stored), string(missing))
	require.NoError(t, q.Push(ctx, job))

	runner := NewQueueRunner(q, store, time.Millisecond, "")
	_, err = runner.await(ctx, job.ID)
	require.ErrorIs(t, err, ErrJobFailed)
	require.ErrorContains(t, err, "load operands")

	got, err := q.Get(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, queue.StatusFailed, got.Status)
	require.Eventually(t, func() bool { return pool.Failed() == 1 }, 5*time.Second, time.Millisecond)

	neg := queue.NewJob(gmorph.OpNeg, string(stored))
	require.NoError(t, q.Push(ctx, neg))
	ct, err := runner.await(ctx, neg.ID)
	require.NoError(t, err)
	require.Equal(t, uint32(gmorph.Modulus-1), gmorph.NewDecryptor(f.kp).Decrypt(ct))
}

// strictQueue fails updates on a done context, as a network-backed queue does.
type strictQueue struct {
	queue.Queue
}

func (q strictQueue) Update(ctx context.Context, job *queue.Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return q.Queue.Update(ctx, job)
}

// gatedStorage blocks the first Load until release is closed, then fails on a
// done context.
type gatedStorage struct {
	storage.Storage
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (s *gatedStorage) Load(ctx context.Context, h storage.Handle) ([]byte, error) {
	s.once.Do(func() {
		close(s.entered)
		<-s.release
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Storage.Load(ctx, h)
}

func TestPoolFinishesInFlightJob(t *testing.T) {
	f := newFixture(t, 1)
	q := strictQueue{queue.NewMemoryQueue(4)}
	store := &gatedStorage{
		Storage: storage.NewMemoryStorage(4),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}

	stored, err := storage.StoreEnc(context.Background(), store, f.x[0])
	require.NoError(t, err)
	job := queue.NewJob(gmorph.OpNeg, string(stored))
	require.NoError(t, q.Push(context.Background(), job))

	ctx, cancel := context.WithCancel(context.Background())
	pool := NewPool(1, q, store)
	require.NoError(t, pool.Start(ctx))

	<-store.entered
	require.Equal(t, int64(1), pool.InFlight())
	cancel()
	close(store.release)
	require.NoError(t, pool.Stop())

	got, err := q.Get(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, queue.StatusCompleted, got.Status, got.Error)
	require.Equal(t, int64(1), pool.Succeeded())
	require.Zero(t, pool.InFlight())

	ct, err := storage.LoadEnc(context.Background(), store, storage.Handle(got.ResultHandle))
	require.NoError(t, err)
	require.Equal(t, uint32(gmorph.Modulus-1), gmorph.NewDecryptor(f.kp).Decrypt(ct))
}

func TestPoolMetrics(t *testing.T) {
	f := newFixture(t, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	q := queue.NewMemoryQueue(4)
	store := storage.NewMemoryStorage(4)
	pool := NewPool(1, q, store)
	require.NoError(t, pool.Start(ctx))
	defer pool.Stop()

	stored, err := storage.StoreEnc(ctx, store, f.x[0])
	require.NoError(t, err)
	runner := NewQueueRunner(q, store, time.Millisecond, "")

	ok := queue.NewJob(gmorph.OpNeg, string(stored))
	require.NoError(t, q.Push(ctx, ok))
	_, err = runner.await(ctx, ok.ID)
	require.NoError(t, err)

	bad := queue.NewJob(gmorph.OpNeg, string(storage.ComputeHandle([]byte("missing"))))
	require.NoError(t, q.Push(ctx, bad))
	_, err = runner.await(ctx, bad.ID)
	require.ErrorIs(t, err, ErrJobFailed)
	require.Eventually(t, func() bool { return pool.Failed() == 1 }, 5*time.Second, time.Millisecond)

	var buf bytes.Buffer
	pool.WriteMetrics(&buf)
	require.Contains(t, buf.String(), "gmorph_jobs_total{status=\"success\"} 1\n")
	require.Contains(t, buf.String(), "gmorph_jobs_total{status=\"failure\"} 1\n")
	require.Contains(t, buf.String(), "gmorph_jobs_in_flight 0\n")
	require.NotContains(t, buf.String(), "probe")
}
