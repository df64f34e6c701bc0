// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

// Package gateway exposes the job queue and ciphertext storage over HTTP.
// Clients upload ciphertexts, submit jobs over their handles and poll for
// results. The gateway never sees key material.
package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/luxfi/gmorph"
	"github.com/luxfi/gmorph/internal/queue"
	"github.com/luxfi/gmorph/internal/storage"
	"github.com/luxfi/gmorph/logging"
)

// Gateway serves the job API.
type Gateway struct {
	queue   queue.Queue
	storage storage.Storage
	log     logging.Logger
}

func New(q queue.Queue, s storage.Storage, log logging.Logger) *Gateway {
	return &Gateway{queue: q, storage: s, log: logging.OrNop(log)}
}

// Handler returns the HTTP handler
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "running", "version": gmorph.Version})
	})
	mux.HandleFunc("/store", g.handleStore)
	mux.HandleFunc("/load/", g.handleLoad)
	mux.HandleFunc("/submit", g.handleSubmit)
	mux.HandleFunc("/job/", g.handleJob)

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// StoreResponse returns the handle of an uploaded ciphertext.
type StoreResponse struct {
	Handle storage.Handle `json:"handle"`
}

// handleStore accepts one ciphertext in binary form.
func (g *Gateway) handleStore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, gmorph.EncBinarySize))
	if err != nil {
		http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
		return
	}
	var ct gmorph.Enc
	if err := ct.UnmarshalBinary(data); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	handle, err := g.storage.Store(r.Context(), data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, StoreResponse{Handle: handle})
}

func (g *Gateway) handleLoad(w http.ResponseWriter, r *http.Request) {
	handle := storage.Handle(strings.TrimPrefix(r.URL.Path, "/load/"))
	data, err := storage.LoadRaw(r.Context(), g.storage, handle)
	switch {
	case errors.Is(err, storage.ErrInvalidHandle):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, storage.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(data)
}

// SubmitRequest names an operation over stored ciphertexts.
type SubmitRequest struct {
	Op       gmorph.Op `json:"op"`
	Operands []string  `json:"operands"`
	Key      string    `json:"key,omitempty"`
}

// SubmitResponse returns the ID to poll.
type SubmitResponse struct {
	ID string `json:"id"`
}

func (g *Gateway) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}

	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	for _, h := range req.Operands {
		if err := storage.Handle(h).Validate(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		ok, err := g.storage.Exists(r.Context(), storage.Handle(h))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if !ok {
			http.Error(w, fmt.Sprintf("operand %s: %v", h, storage.ErrNotFound), http.StatusNotFound)
			return
		}
	}

	job := queue.NewJob(req.Op, req.Operands...)
	job.Key = req.Key
	if err := g.queue.Push(r.Context(), job); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, queue.ErrInvalidJob) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}

	g.log.Info(r.Context(), "job submitted", "job", job.ID, "op", job.Op, "key", job.Key)
	writeJSON(w, http.StatusAccepted, SubmitResponse{ID: job.ID})
}

// JobResponse reports the state of a job.
type JobResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (g *Gateway) handleJob(w http.ResponseWriter, r *http.Request) {
	jobID := strings.TrimPrefix(r.URL.Path, "/job/")
	if jobID == "" {
		http.Error(w, "job ID required", http.StatusBadRequest)
		return
	}

	job, err := g.queue.Get(r.Context(), jobID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, queue.ErrJobNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	writeJSON(w, http.StatusOK, JobResponse{
		ID:     job.ID,
		Status: job.Status.String(),
		Result: job.ResultHandle,
		Error:  job.Error,
	})
}
