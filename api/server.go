// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/poiesic/ragtime"
	"github.com/poiesic/ragtime/core"
	"github.com/poiesic/ragtime/history"
	"github.com/poiesic/ragtime/prompt"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultMaxBodyBytes bounds request bodies.
const DefaultMaxBodyBytes = 1 << 20

// Answerer is the part of ragtime.Pipeline the server uses.
type Answerer interface {
	AskWithOptions(ctx context.Context, question string, history []core.Turn, opts ragtime.AskOptions) (*core.Answer, error)
	ChatWithOptions(ctx context.Context, store history.Store, sessionID, question string, opts ragtime.AskOptions) (*core.Answer, error)
	Prompts() []prompt.VersionInfo
}

var _ Answerer = (*ragtime.Pipeline)(nil)

// Server routes HTTP requests to an Answerer.
type Server struct {
	answerer     Answerer
	store        history.Store
	gatherer     prometheus.Gatherer
	maxBodyBytes int64
	router       *mux.Router
	logger       *slog.Logger
}

// Option configures a Server.
type Option func(*Server) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithGatherer exposes the gatherer's metrics on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) error {
		s.gatherer = g
		return nil
	}
}

// WithMaxBodyBytes bounds request bodies. Default is 1 MiB.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) error {
		if n < 1 {
			return fmt.Errorf("max body bytes must be positive, got %d", n)
		}
		s.maxBodyBytes = n
		return nil
	}
}

// NewServer creates a server answering with answerer and remembering
// sessions in store.
func NewServer(answerer Answerer, store history.Store, opts ...Option) (*Server, error) {
	if answerer == nil {
		return nil, ErrAnswererRequired
	}
	if store == nil {
		return nil, ragtime.ErrStoreRequired
	}

	s := &Server{
		answerer:     answerer,
		store:        store,
		maxBodyBytes: DefaultMaxBodyBytes,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "api")
	s.routes()

	return s, nil
}

func (s *Server) routes() {
	s.router = mux.NewRouter()
	s.router.Use(s.logRequests)

	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	if s.gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	// Full paths on the root router so a method mismatch answers 405.
	s.router.HandleFunc("/v1/ask", s.handleAsk).Methods(http.MethodPost)
	s.router.HandleFunc("/v1/prompts", s.handlePrompts).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/sessions", s.handleCreateSession).Methods(http.MethodPost)
	s.router.HandleFunc("/v1/sessions/{id}", s.handleGetSession).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/sessions/{id}", s.handleDeleteSession).Methods(http.MethodDelete)
	s.router.HandleFunc("/v1/sessions/{id}/ask", s.handleSessionAsk).Methods(http.MethodPost)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// AskRequest is the body of POST /v1/ask.
type AskRequest struct {
	Question string      `json:"question"`
	History  []core.Turn `json:"history,omitempty"`
	Debug    bool        `json:"debug,omitempty"`
	Language string      `json:"language,omitempty"`
}

// SessionAskRequest is the body of POST /v1/sessions/{id}/ask.
type SessionAskRequest struct {
	Question string `json:"question"`
	Debug    bool   `json:"debug,omitempty"`
	Language string `json:"language,omitempty"`
}

// SessionAnswer is an answer within a session.
type SessionAnswer struct {
	SessionID string `json:"session_id"`
	*core.Answer
}

// SessionHistory is the body of GET /v1/sessions/{id}.
type SessionHistory struct {
	SessionID string      `json:"session_id"`
	Turns     []core.Turn `json:"turns"`
}

// PromptList is the body of GET /v1/prompts.
type PromptList struct {
	Active   string               `json:"active"`
	Versions []prompt.VersionInfo `json:"versions"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string         `json:"error"`
	Kind  core.ErrorKind `json:"kind"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	answer, err := s.answerer.AskWithOptions(r.Context(), req.Question, req.History, ragtime.AskOptions{
		Debug:    req.Debug,
		Language: req.Language,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, answer)
}

func (s *Server) handlePrompts(w http.ResponseWriter, _ *http.Request) {
	versions := s.answerer.Prompts()
	list := PromptList{Versions: versions}
	for _, v := range versions {
		if v.Active {
			list.Active = v.Version
		}
	}
	s.writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusCreated, SessionHistory{
		SessionID: history.NewSessionID(),
		Turns:     []core.Turn{},
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	turns, err := s.store.Snapshot(r.Context(), id)
	if err != nil {
		s.writeError(w, r, core.Upstream("session", err))
		return
	}
	s.writeJSON(w, http.StatusOK, SessionHistory{SessionID: id, Turns: turns})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Reset(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, r, core.Upstream("session", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSessionAsk(w http.ResponseWriter, r *http.Request) {
	var req SessionAskRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	id := mux.Vars(r)["id"]
	answer, err := s.answerer.ChatWithOptions(r.Context(), s.store, id, req.Question, ragtime.AskOptions{
		Debug:    req.Debug,
		Language: req.Language,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, SessionAnswer{SessionID: id, Answer: answer})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("request body is empty")
		}
		return core.InvalidInput("api", err)
	}
	return nil
}

// StatusCode maps a pipeline error to an HTTP status.
func StatusCode(err error) int {
	if errors.Is(err, context.Canceled) {
		// nginx's "client closed request"
		return 499
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	switch core.KindOf(err) {
	case core.KindInvalidInput, core.KindPromptInjection:
		return http.StatusBadRequest
	case core.KindUpstreamUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusCode(err)
	kind := core.KindOf(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "kind", kind, "err", err)
	} else {
		s.logger.Info("request rejected", "method", r.Method, "path", r.URL.Path, "kind", kind, "err", err)
	}
	s.writeJSON(w, status, ErrorResponse{Error: core.UserMessage(err), Kind: kind})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to write response", "status", status, "err", err)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "elapsed", time.Since(started))
	})
}
