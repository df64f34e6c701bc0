// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

// Command gmorph-worker evaluates queued homomorphic jobs. Workers hold no
// key material: they load stored ciphertexts, apply the job's operation and
// store the result.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/luxfi/gmorph"
	"github.com/luxfi/gmorph/internal/dispatch"
	"github.com/luxfi/gmorph/internal/queue"
	"github.com/luxfi/gmorph/internal/storage"
	"github.com/luxfi/gmorph/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func run() error {
	var (
		numWorkers  = flag.Int("workers", 4, "number of worker goroutines")
		redisAddr   = flag.String("redis", envOr("GMORPH_REDIS_ADDR", "localhost:6379"), "Redis address")
		redisDB     = flag.Int("redis-db", 0, "Redis database number")
		queueName   = flag.String("queue", "default", "queue name")
		storageSpec = flag.String("storage", envOr("GMORPH_STORAGE", "/tmp/gmorph-storage"), "ciphertext storage: directory path or \"redis\"")
		metricsAddr = flag.String("metrics", ":9090", "metrics server address")
		verbose     = flag.Bool("v", false, "log every job")
	)
	flag.Parse()

	log.Printf("gmorph worker %s starting...", gmorph.Version)
	log.Printf("  Workers: %d", *numWorkers)
	log.Printf("  Redis: %s", *redisAddr)
	log.Printf("  Storage: %s", *storageSpec)
	log.Printf("  Metrics: %s", *metricsAddr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := queue.RedisConfig{Addr: *redisAddr, DB: *redisDB}.Connect(ctx)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	q := queue.NewRedisQueueFromClient(client, *queueName)
	defer q.Close()

	store, err := storage.Open(*storageSpec, client)
	if err != nil {
		return fmt.Errorf("create storage: %w", err)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	pool := dispatch.NewPool(*numWorkers, q, store).WithLogger(logging.NewText(os.Stderr, level))

	if err := pool.Start(ctx); err != nil {
		return fmt.Errorf("start workers: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		pool.WriteMetrics(w)
	})

	server := &http.Server{
		Addr:    *metricsAddr,
		Handler: mux,
	}

	go func() {
		log.Printf("Metrics server starting on %s", *metricsAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Metrics server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	log.Printf("Received signal: %s", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Metrics server shutdown error: %v", err)
	}

	log.Println("Stopping worker pool...")
	if err := pool.Stop(); err != nil {
		log.Printf("Worker pool shutdown error: %v", err)
	}

	log.Printf("Shutdown complete (%d succeeded, %d failed)", pool.Succeeded(), pool.Failed())
	return nil
}
