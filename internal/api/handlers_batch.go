package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"reel/internal/logging"
	"reel/internal/queue"
	"reel/internal/services"
)

// handleHealth answers the liveness probe. A failing catalog read degrades
// the report instead of failing it; the process itself is still up.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		s.writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Jobs: map[string]int{}})
		return
	}
	summary, err := s.health.Health(r.Context())
	if err != nil {
		s.logger.Warn("health summary unavailable", logging.Error(err))
		s.writeJSON(w, http.StatusOK, HealthResponse{Status: "degraded", Jobs: map[string]int{}})
		return
	}
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Jobs: map[string]int{
			"total":      summary.Total,
			"pending":    summary.Pending,
			"converting": summary.Converting,
			"completed":  summary.Completed,
			"failed":     summary.Failed,
		},
	})
}

func (s *Server) handleBatchStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, BatchStatusResponse{
		Running:     s.service.Running(),
		LastSummary: FromSummary(s.service.LastSummary()),
	})
}

// handleBatchStart launches a batch over the requested jobs. An empty
// selection expands to every pending job that already has a target format,
// in registration order.
func (s *Server) handleBatchStart(w http.ResponseWriter, r *http.Request) {
	if s.service.Running() {
		s.writeError(w, http.StatusConflict, "a batch is already running")
		return
	}

	var req BatchStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	jobIDs := make([]string, 0, len(req.JobIDs))
	for _, id := range req.JobIDs {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			jobIDs = append(jobIDs, trimmed)
		}
	}
	if len(jobIDs) == 0 {
		jobs, err := s.service.Jobs(r.Context(), queue.StatusPending)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		for _, job := range jobs {
			if job.HasTargetFormat() {
				jobIDs = append(jobIDs, job.ID)
			}
		}
		if len(jobIDs) == 0 {
			s.writeError(w, http.StatusBadRequest, "no pending jobs are ready to convert")
			return
		}
	}

	// The run outlives this request; only request-scoped cancelation is
	// severed, the correlation values stay for the batch logs.
	if err := s.service.StartBatch(context.WithoutCancel(r.Context()), jobIDs); err != nil {
		if errors.Is(err, services.ErrValidation) && s.service.Running() {
			s.writeError(w, http.StatusConflict, err.Error())
			return
		}
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, BatchStartResponse{Started: true, JobIDs: jobIDs, JobCount: len(jobIDs)})
}
