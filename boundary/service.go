// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package boundary

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/luxfi/trigger/fhe"
	"go.uber.org/zap"
)

// maxRevealBody bounds POST /reveal. A hex encoded result is well under it.
const maxRevealBody = 16 << 20

// Service exposes a Revealer over HTTP. It holds its private key for the
// lifetime of the process and only ever sees final results.
type Service struct {
	revealer Revealer
	logger   *zap.Logger
}

// NewService creates the boundary service.
func NewService(r Revealer, logger *zap.Logger) *Service {
	return &Service{revealer: r, logger: logger.Named("boundary")}
}

// Routes returns the boundary router.
func (s *Service) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"trigger-boundary"}`))
	})
	r.Post("/reveal", s.handleReveal)
	return r
}

func (s *Service) handleReveal(w http.ResponseWriter, r *http.Request) {
	var req RevealRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRevealBody)).Decode(&req); err != nil {
		writeReveal(w, http.StatusBadRequest, RevealResponse{Error: "invalid request body"})
		return
	}

	var result fhe.Integer
	if err := fhe.DecodeHex(req.Result, &result); err != nil {
		writeReveal(w, http.StatusBadRequest, RevealResponse{Error: err.Error()})
		return
	}

	triggered, err := s.revealer.Reveal(r.Context(), &result)
	if err != nil {
		s.logger.Warn("reveal refused",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err))
		status := http.StatusUnprocessableEntity
		if !isDecryptionError(err) {
			status = http.StatusInternalServerError
		}
		writeReveal(w, status, RevealResponse{Error: err.Error()})
		return
	}
	writeReveal(w, http.StatusOK, RevealResponse{IsTriggered: triggered})
}

// isDecryptionError separates refusals tied to the ciphertext from
// failures of the service itself, such as a broken audit sink.
func isDecryptionError(err error) bool {
	return errors.Is(err, fhe.ErrCeremonyMismatch) ||
		errors.Is(err, fhe.ErrNoisyPhase) ||
		errors.Is(err, fhe.ErrWidth) ||
		errors.Is(err, fhe.ErrUnsupportedParameters) ||
		errors.Is(err, ErrNotBoolean) ||
		errors.Is(err, ErrKeyConsumed)
}

func writeReveal(w http.ResponseWriter, status int, resp RevealResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}
