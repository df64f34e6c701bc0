// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

// Package server provides the gmorph HTTP service.
//
// The server holds one key pair. Clients send plaintexts to /encrypt, run
// homomorphic operations through /evaluate, /dot and /batch, and read results
// back through /decrypt. Ciphertexts travel in their JSON form.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/luxfi/gmorph"
	"github.com/luxfi/gmorph/internal/codec"
	"github.com/luxfi/gmorph/logging"
)

// Config holds server configuration
type Config struct {
	Address string
	// KeyFile is a key pair in any codec format. Empty generates a fresh pair.
	KeyFile string
	// Workers bounds the parallelism of /dot.
	Workers int
	// MaxBatch bounds the number of values or operations per request.
	MaxBatch int
	// MaxBodyBytes bounds request bodies.
	MaxBodyBytes int64
}

// DefaultConfig returns the settings used by cmd/gmorph-server.
func DefaultConfig() Config {
	return Config{
		Address:      ":8448",
		Workers:      runtime.NumCPU(),
		MaxBatch:     4096,
		MaxBodyBytes: 32 << 20,
	}
}

func (c Config) Validate() error {
	switch {
	case c.Address == "":
		return errors.New("address required")
	case c.Workers < 1:
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	case c.MaxBatch < 1:
		return fmt.Errorf("max batch must be positive, got %d", c.MaxBatch)
	case c.MaxBodyBytes < 1:
		return fmt.Errorf("max body must be positive, got %d", c.MaxBodyBytes)
	}
	return nil
}

// Server is the gmorph server
type Server struct {
	cfg     Config
	kp      *gmorph.KeyPair
	enc     *gmorph.Encryptor
	dec     *gmorph.Decryptor
	eval    *gmorph.Evaluator
	log     logging.Logger
	started time.Time
}

// New creates a server, loading cfg.KeyFile or generating a key pair.
func New(cfg Config, log logging.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	log = logging.OrNop(log)

	var kp *gmorph.KeyPair
	if cfg.KeyFile != "" {
		kp = new(gmorph.KeyPair)
		if err := codec.ReadFile(codec.FormatFromPath(cfg.KeyFile, codec.JSON), cfg.KeyFile, kp); err != nil {
			return nil, fmt.Errorf("load key pair: %w", err)
		}
	} else {
		kp = gmorph.NewKeyGenerator(nil).WithLogger(log).GenKeyPair()
	}
	log.Info(context.Background(), "key pair ready", "fingerprint", kp.Fingerprint())

	return &Server{
		cfg:     cfg,
		kp:      kp,
		enc:     gmorph.NewEncryptor(kp, nil).WithLogger(log),
		dec:     gmorph.NewDecryptor(kp),
		eval:    gmorph.NewEvaluator(),
		log:     log,
		started: time.Now(),
	}, nil
}

// KeyPair returns the key pair the server encrypts under.
func (s *Server) KeyPair() *gmorph.KeyPair {
	return s.kp
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/keypair", s.handleKeyPair)
	mux.HandleFunc("/stats", s.handleStats)

	mux.HandleFunc("/encrypt", s.post(s.handleEncrypt))
	mux.HandleFunc("/decrypt", s.post(s.handleDecrypt))
	mux.HandleFunc("/evaluate", s.post(s.handleEvaluate))
	mux.HandleFunc("/dot", s.post(s.handleDot))
	mux.HandleFunc("/batch", s.post(s.handleBatch))

	return corsMiddleware(s.logMiddleware(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debug(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"elapsed", time.Since(start))
	})
}

// post rejects other methods and bounds the request body.
func (s *Server) post(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, errors.New("POST required"))
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
		h(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

// statusFor maps library errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, gmorph.ErrLengthMismatch),
		errors.Is(err, gmorph.ErrEmptyInput),
		errors.Is(err, gmorph.ErrUnknownOp),
		errors.Is(err, gmorph.ErrMalformed):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		status := http.StatusBadRequest
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			status = http.StatusRequestEntityTooLarge
		}
		writeError(w, status, err)
		return false
	}
	return true
}

func (s *Server) checkBatch(w http.ResponseWriter, n int) bool {
	if n == 0 {
		writeError(w, http.StatusBadRequest, gmorph.ErrEmptyInput)
		return false
	}
	if n > s.cfg.MaxBatch {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("%d items exceeds limit %d", n, s.cfg.MaxBatch))
		return false
	}
	return true
}

// HealthResponse reports liveness.
type HealthResponse struct {
	Status  string  `json:"status"`
	Version string  `json:"version"`
	Key     string  `json:"key"`
	Uptime  float64 `json:"uptime_seconds"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: gmorph.Version,
		Key:     s.kp.Fingerprint(),
		Uptime:  time.Since(s.started).Seconds(),
	})
}

// KeyPairResponse identifies the key pair without revealing it.
type KeyPairResponse struct {
	Fingerprint string `json:"fingerprint"`
	Modulus     uint32 `json:"modulus"`
}

func (s *Server) handleKeyPair(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, KeyPairResponse{
		Fingerprint: s.kp.Fingerprint(),
		Modulus:     gmorph.Modulus,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, gmorph.ReadStats())
}

// EncryptRequest is the request for encryption
type EncryptRequest struct {
	Values []uint32 `json:"values"`
}

// CiphertextsResponse carries ciphertexts in request order.
type CiphertextsResponse struct {
	Ciphertexts []gmorph.Enc `json:"ciphertexts"`
}

func (s *Server) handleEncrypt(w http.ResponseWriter, r *http.Request) {
	var req EncryptRequest
	if !s.decode(w, r, &req) || !s.checkBatch(w, len(req.Values)) {
		return
	}
	writeJSON(w, http.StatusOK, CiphertextsResponse{Ciphertexts: s.enc.EncryptSlice(req.Values)})
}

// DecryptRequest is the request for decryption
type DecryptRequest struct {
	Ciphertexts []gmorph.Enc `json:"ciphertexts"`
}

// ValuesResponse carries plaintexts in request order.
type ValuesResponse struct {
	Values []uint32 `json:"values"`
}

func (s *Server) handleDecrypt(w http.ResponseWriter, r *http.Request) {
	var req DecryptRequest
	if !s.decode(w, r, &req) || !s.checkBatch(w, len(req.Ciphertexts)) {
		return
	}
	writeJSON(w, http.StatusOK, ValuesResponse{Values: s.dec.DecryptSlice(req.Ciphertexts)})
}

// EvaluateRequest is the request for homomorphic evaluation
type EvaluateRequest struct {
	Op       gmorph.Op    `json:"op"`
	Operands []gmorph.Enc `json:"operands"`
}

// ResultResponse carries a single ciphertext.
type ResultResponse struct {
	Result gmorph.Enc `json:"result"`
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if !s.decode(w, r, &req) || !s.checkBatch(w, len(req.Operands)) {
		return
	}
	result, err := s.eval.Apply(req.Op, req.Operands...)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, ResultResponse{Result: result})
}

// DotRequest is the request for an encrypted dot product
type DotRequest struct {
	X []gmorph.Enc `json:"x"`
	Y []gmorph.Enc `json:"y"`
}

func (s *Server) handleDot(w http.ResponseWriter, r *http.Request) {
	var req DotRequest
	if !s.decode(w, r, &req) || !s.checkBatch(w, len(req.X)) {
		return
	}
	result, err := s.eval.DotProductParallel(r.Context(), req.X, req.Y, s.cfg.Workers)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, ResultResponse{Result: result})
}

// BatchRequest is a request for several independent evaluations
type BatchRequest struct {
	Operations []Operation `json:"operations"`
}

// Operation is a single evaluation in a batch
type Operation struct {
	ID       string       `json:"id"`
	Op       gmorph.Op    `json:"op"`
	Operands []gmorph.Enc `json:"operands"`
}

// BatchResponse is the response from batch operations
type BatchResponse struct {
	Results []OperationResult `json:"results"`
	Stats   BatchStats        `json:"stats"`
}

// OperationResult is a single result from the batch
type OperationResult struct {
	ID     string      `json:"id"`
	Result *gmorph.Enc `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// BatchStats contains timing statistics
type BatchStats struct {
	TotalOps      int     `json:"total_ops"`
	SuccessfulOps int     `json:"successful_ops"`
	TotalTimeMs   float64 `json:"total_time_ms"`
	OpsPerSecond  float64 `json:"ops_per_second"`
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if !s.decode(w, r, &req) || !s.checkBatch(w, len(req.Operations)) {
		return
	}
	writeJSON(w, http.StatusOK, s.processBatch(req.Operations))
}

func (s *Server) processBatch(ops []Operation) BatchResponse {
	start := time.Now()

	results := make([]OperationResult, len(ops))
	succeeded := 0
	for i, op := range ops {
		results[i].ID = op.ID
		ct, err := s.eval.Apply(op.Op, op.Operands...)
		if err != nil {
			results[i].Error = err.Error()
			continue
		}
		results[i].Result = &ct
		succeeded++
	}

	elapsed := time.Since(start)
	stats := BatchStats{
		TotalOps:      len(ops),
		SuccessfulOps: succeeded,
		TotalTimeMs:   float64(elapsed.Microseconds()) / 1000,
	}
	if secs := elapsed.Seconds(); secs > 0 {
		stats.OpsPerSecond = float64(succeeded) / secs
	}
	return BatchResponse{Results: results, Stats: stats}
}
