// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

// gmorph-server serves encryption, evaluation and decryption over HTTP under
// a single key pair.
//
//	gmorph-server -addr :8448 -keys keys.json
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
	"github.com/luxfi/gmorph/logging"
	"github.com/luxfi/gmorph/server"
)

func main() {
	def := server.DefaultConfig()
	var (
		addr     = flag.String("addr", def.Address, "HTTP server address")
		keyFile  = flag.String("keys", "", "key pair file (.json, .cbor or .bin); empty generates one")
		workers  = flag.Int("workers", def.Workers, "dot product parallelism")
		maxBatch = flag.Int("max-batch", def.MaxBatch, "maximum values or operations per request")
		verbose  = flag.Bool("v", false, "log every request")
	)
	flag.Parse()

	log.Printf("gmorph server %s starting...", gmorph.Version)
	log.Printf("  Address: %s", *addr)
	log.Printf("  Workers: %d", *workers)
	if *keyFile != "" {
		log.Printf("  Keys: %s", *keyFile)
	}

	cfg := def
	cfg.Address = *addr
	cfg.KeyFile = *keyFile
	cfg.Workers = *workers
	cfg.MaxBatch = *maxBatch

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}

	srv, err := server.New(cfg, logging.NewText(os.Stderr, level))
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}
	log.Printf("  Key fingerprint: %s", srv.KeyPair().Fingerprint())

	httpServer := &http.Server{
		Addr:         cfg.Address,
		Handler:      srv.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Printf("gmorph server listening on %s", cfg.Address)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down gmorph server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	fmt.Println("gmorph server stopped")
}
