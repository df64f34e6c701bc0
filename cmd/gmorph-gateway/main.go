// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

// Command gmorph-gateway accepts ciphertext uploads and job submissions and
// hands the jobs to gmorph-worker through Redis.
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
	"github.com/luxfi/gmorph/internal/gateway"
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
		redisAddr   = flag.String("redis", envOr("GMORPH_REDIS_ADDR", "localhost:6379"), "Redis address")
		redisDB     = flag.Int("redis-db", 0, "Redis database number")
		queueName   = flag.String("queue", "default", "queue name")
		storageSpec = flag.String("storage", envOr("GMORPH_STORAGE", "/tmp/gmorph-storage"), "ciphertext storage: directory path or \"redis\"")
		httpAddr    = flag.String("http", ":8080", "HTTP API address")
	)
	flag.Parse()

	log.Printf("gmorph gateway %s starting...", gmorph.Version)
	log.Printf("  Redis: %s", *redisAddr)
	log.Printf("  Storage: %s", *storageSpec)
	log.Printf("  HTTP: %s", *httpAddr)

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

	gw := gateway.New(q, store, logging.NewText(os.Stderr, slog.LevelInfo))

	server := &http.Server{
		Addr:         *httpAddr,
		Handler:      gw.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("HTTP server starting on %s", *httpAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	log.Printf("Received signal: %s", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("Shutdown complete")
	return nil
}
