package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"reel/internal/batch"
	"reel/internal/config"
	"reel/internal/logging"
	"reel/internal/queue"
	"reel/internal/services"
)

// conversionService is the slice of the batch coordinator the HTTP
// handlers need.
type conversionService interface {
	RegisterFile(ctx context.Context, sourceName string, payload []byte) (*queue.Job, error)
	SetTargetFormat(ctx context.Context, jobID, value string) (*queue.Job, error)
	SetQualityPreset(ctx context.Context, jobID, value string) (*queue.Job, error)
	RemoveJob(ctx context.Context, jobID string) (bool, error)
	RetryJobs(ctx context.Context, jobIDs ...string) (int64, error)
	Job(ctx context.Context, jobID string) (*queue.Job, error)
	Jobs(ctx context.Context, statuses ...queue.Status) ([]*queue.Job, error)
	StartBatch(ctx context.Context, jobIDs []string) error
	GetResult(ctx context.Context, jobID string) ([]byte, *queue.Job, error)
	Running() bool
	LastSummary() *batch.Summary
}

// healthReader summarizes the job catalog for the health probe.
type healthReader interface {
	Health(ctx context.Context) (queue.HealthSummary, error)
}

// Server exposes the conversion coordinator over HTTP.
type Server struct {
	bind    string
	cfg     *config.Config
	service conversionService
	health  healthReader
	logger  *slog.Logger

	listener net.Listener
	server   *http.Server
}

// NewServer builds the API server from configuration. It returns nil
// without error when paths.api_bind is empty; all lifecycle methods are
// safe to call on a nil server.
func NewServer(cfg *config.Config, service conversionService, health healthReader, logger *slog.Logger) (*Server, error) {
	if cfg == nil || service == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	srv := &Server{
		bind:    bind,
		cfg:     cfg,
		service: service,
		health:  health,
		logger:  logging.NewComponentLogger(logger, "api"),
	}
	srv.server = &http.Server{
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

// Handler returns the fully wired HTTP handler.
func (s *Server) Handler() http.Handler {
	if s == nil || s.server == nil {
		return http.NotFoundHandler()
	}
	return s.server.Handler
}

// Start begins serving requests until the context is canceled.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Stop drains in-flight requests and closes the listener.
func (s *Server) Stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// Addr reports the bound listen address, empty until Start succeeds.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, ErrorResponse{Error: message})
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
// Unclassified failures answer with a generic message; the cause stays in
// the log.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFromError(err)
	if status == http.StatusInternalServerError {
		logging.ErrorWithContext(logging.WithContext(r.Context(), s.logger), "request failed", "api_request_failed",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Error(err))
		s.writeError(w, status, "internal error")
		return
	}
	s.writeError(w, status, err.Error())
}

func statusFromError(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
