// Package httpapi exposes matching runs over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jwitts1998/social-graph-v2-sub000/internal/logger"
	"github.com/jwitts1998/social-graph-v2-sub000/internal/suggest"
)

const defaultRunTimeout = 2 * time.Minute

// Runner is the part of suggest.Service the server needs.
type Runner interface {
	Run(ctx context.Context, conversationID string) (*suggest.Report, error)
	Prepare(ctx context.Context, conversationID string) (*suggest.Report, error)
}

type Server struct {
	runner     Runner
	logger     *zap.Logger
	runTimeout time.Duration
}

// New creates a Server. runTimeout <= 0 uses two minutes.
func New(runner Runner, log *zap.Logger, runTimeout time.Duration) *Server {
	if runTimeout <= 0 {
		runTimeout = defaultRunTimeout
	}
	return &Server{runner: runner, logger: logger.WithFields(log), runTimeout: runTimeout}
}

// Routes returns the router with every endpoint mounted.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", s.healthz)
	r.Route("/v1/conversations/{conversationID}", func(r chi.Router) {
		r.Post("/matches", s.runMatches)
	})
	return r
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// runMatches scores the conversation. dryRun=true skips persisting.
func (s *Server) runMatches(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "conversationID")
	if _, err := uuid.Parse(id); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "conversation id must be a uuid"})
		return
	}

	dryRun := false
	if v := r.URL.Query().Get("dryRun"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "dryRun must be a boolean"})
			return
		}
		dryRun = parsed
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.runTimeout)
	defer cancel()

	run := s.runner.Run
	if dryRun {
		run = s.runner.Prepare
	}

	report, err := run(ctx, id)
	switch {
	case errors.Is(err, suggest.ErrNoConversation):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "conversation not found"})
		return
	case err != nil:
		s.logger.Error("matching run failed", zap.String(logger.FieldConversationID, id), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "matching run failed"})
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
