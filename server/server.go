// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

// Package server is the HTTP transport of the trigger engine.
//
// Routes:
//   - POST /evaluateStrategy evaluates a request synchronously
//   - POST /keys uploads an evaluation key and returns its handle
//   - POST /jobs queues a request, GET /jobs/{id} reports its outcome
//   - GET /health and GET /metrics
package server

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/luxfi/trigger/fhe"
	"github.com/luxfi/trigger/internal/metrics"
	"github.com/luxfi/trigger/internal/queue"
	"github.com/luxfi/trigger/internal/storage"
	"github.com/luxfi/trigger/internal/worker"
	"github.com/luxfi/trigger/trigger"
	"go.uber.org/zap"
)

// Config holds transport settings.
type Config struct {
	// BodyLimit caps request bodies in bytes.
	BodyLimit int64
	// RequestTimeout bounds each request's context.
	RequestTimeout time.Duration
	// CORSOrigins lists allowed origins; "*" allows any.
	CORSOrigins []string
}

// Server serves the engine over HTTP.
type Server struct {
	cfg    Config
	engine worker.Evaluator
	logger *zap.Logger

	keys  storage.Storage
	queue queue.Queue
	blobs storage.Storage
}

// Option configures a Server.
type Option func(*Server)

// WithKeyStore enables POST /keys. It must be the store the engine
// resolves server_key_handle against.
func WithKeyStore(s storage.Storage) Option {
	return func(srv *Server) { srv.keys = s }
}

// WithJobs enables the asynchronous job routes. Payloads are kept in blobs
// until a worker picks them up.
func WithJobs(q queue.Queue, blobs storage.Storage) Option {
	return func(srv *Server) {
		srv.queue = q
		srv.blobs = blobs
	}
}

// New creates a server.
func New(cfg Config, engine worker.Evaluator, logger *zap.Logger, opts ...Option) *Server {
	s := &Server{cfg: cfg, engine: engine, logger: logger.Named("http")}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(cors(s.cfg.CORSOrigins))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		if s.cfg.RequestTimeout > 0 {
			r.Use(middleware.Timeout(s.cfg.RequestTimeout))
		}
		r.Use(limitBody(s.cfg.BodyLimit))

		r.Post("/evaluateStrategy", s.handleEvaluate)
		if s.keys != nil {
			r.Post("/keys", s.handleUploadKey)
		}
		if s.queue != nil {
			r.Post("/jobs", s.handleSubmitJob)
			r.Get("/jobs/{id}", s.handleGetJob)
		}
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"keys":   s.keys != nil,
		"jobs":   s.queue != nil,
	})
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	triggered, err := s.engine.Evaluate(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trigger.Response{IsTriggered: triggered})
}

// KeyResponse is the reply of POST /keys.
type KeyResponse struct {
	Handle   string `json:"handle"`
	Ceremony string `json:"ceremony"`
	Params   string `json:"params"`
}

// handleUploadKey accepts the binary evaluation key, or its hex form when
// the content type is text/plain. The key is decoded before it is stored.
func (s *Server) handleUploadKey(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, r, bodyError(err))
		return
	}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "text/plain") {
		if body, err = hex.DecodeString(strings.TrimSpace(string(body))); err != nil {
			writeFailure(w, http.StatusBadRequest, err.Error(), trigger.MalformedCiphertext.String())
			return
		}
	}

	var ek fhe.EvaluationKey
	if err := ek.UnmarshalBinary(body); err != nil {
		writeFailure(w, http.StatusBadRequest, err.Error(), trigger.MalformedCiphertext.String())
		return
	}

	handle, err := s.keys.Store(r.Context(), body)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, storage.ErrStorageFull) {
			status = http.StatusInsufficientStorage
		}
		writeFailure(w, status, err.Error(), "")
		return
	}

	s.logger.Info("evaluation key stored",
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.String("handle", string(handle)),
		zap.Stringer("ceremony", ek.Ceremony))

	writeJSON(w, http.StatusCreated, KeyResponse{
		Handle:   string(handle),
		Ceremony: ek.Ceremony.String(),
		Params:   ek.Params().Name(),
	})
}

// JobResponse is the reply of the job routes.
type JobResponse struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	IsTriggered *bool  `json:"is_triggered,omitempty"`
	Error       string `json:"error,omitempty"`
	Kind        string `json:"kind,omitempty"`
}

func jobResponse(job *queue.Job) JobResponse {
	return JobResponse{
		ID:          job.ID,
		Status:      job.Status.String(),
		IsTriggered: job.IsTriggered,
		Error:       job.Error,
		Kind:        job.Kind,
	}
}

func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	// Unknown strategies are refused up front instead of failing later.
	if _, err := trigger.ParseStrategyType(req.StrategyType); err != nil {
		s.writeError(w, r, err)
		return
	}

	job, err := worker.Submit(r.Context(), s.queue, s.blobs, req)
	if err != nil {
		s.logger.Error("failed to submit job", zap.Error(err))
		writeFailure(w, http.StatusServiceUnavailable, err.Error(), "")
		return
	}
	writeJSON(w, http.StatusAccepted, jobResponse(job))
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.queue.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, queue.ErrJobNotFound) {
			writeFailure(w, http.StatusNotFound, err.Error(), "")
			return
		}
		writeFailure(w, http.StatusInternalServerError, err.Error(), "")
		return
	}
	writeJSON(w, http.StatusOK, jobResponse(job))
}

func decodeRequest(r *http.Request) (*trigger.Request, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, bodyError(err)
	}
	return trigger.ParseRequest(body)
}

func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return &trigger.Error{Kind: trigger.InvalidRequest, Op: "read body", Err: fmt.Errorf("body exceeds %d bytes", tooLarge.Limit)}
	}
	return &trigger.Error{Kind: trigger.InvalidRequest, Op: "read body", Err: err}
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind trigger.Kind) int {
	switch kind {
	case trigger.UnknownStrategy, trigger.InvalidRequest:
		return http.StatusBadRequest
	case trigger.Overloaded:
		return http.StatusServiceUnavailable
	case trigger.Unavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := trigger.KindOf(err)
	status := statusFor(kind)

	logger := s.logger.With(
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Stringer("kind", kind),
		zap.Error(err))
	if status >= http.StatusInternalServerError {
		logger.Warn("evaluation failed")
	} else {
		logger.Debug("request rejected")
	}

	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	writeFailure(w, status, err.Error(), kind.String())
}

func writeFailure(w http.ResponseWriter, status int, msg, kind string) {
	writeJSON(w, status, trigger.Response{IsTriggered: false, Error: msg, Kind: kind})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
