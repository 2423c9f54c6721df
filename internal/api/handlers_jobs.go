package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"reel/internal/media"
	"reel/internal/queue"
)

// uploadMemoryBytes bounds the in-memory portion of a multipart parse;
// larger uploads spill to temporary files.
const uploadMemoryBytes = 10 << 20

// uploadSlackBytes covers multipart framing so a source right at the
// configured limit still fits in the request body.
const uploadSlackBytes = 1 << 20

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	var statuses []queue.Status
	for _, value := range r.URL.Query()["status"] {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		status, ok := queue.ParseStatus(trimmed)
		if !ok {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", trimmed))
			return
		}
		statuses = append(statuses, status)
	}

	jobs, err := s.service.Jobs(r.Context(), statuses...)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, JobListResponse{Jobs: FromJobs(jobs)})
}

func (s *Server) handleRegisterJob(w http.ResponseWriter, r *http.Request) {
	limit := s.cfg.MaxSourceBytes()
	if limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit+uploadSlackBytes)
	}
	if err := r.ParseMultipartForm(uploadMemoryBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, s.sourceLimitMessage())
			return
		}
		s.writeError(w, http.StatusBadRequest, "invalid multipart upload")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, `multipart field "file" is required`)
		return
	}
	defer file.Close()

	formatValue := strings.TrimSpace(r.FormValue("targetFormat"))
	if formatValue != "" {
		if _, ok := media.ParseFormat(formatValue); !ok {
			s.writeError(w, http.StatusBadRequest, media.ErrUnknownFormat(formatValue).Error())
			return
		}
	}
	qualityValue := strings.TrimSpace(r.FormValue("quality"))
	if qualityValue != "" {
		if _, ok := media.ParseQuality(qualityValue); !ok {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown quality preset %q", qualityValue))
			return
		}
	}

	payload, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "upload could not be read")
		return
	}
	if limit > 0 && int64(len(payload)) > limit {
		s.writeError(w, http.StatusRequestEntityTooLarge, s.sourceLimitMessage())
		return
	}

	job, err := s.service.RegisterFile(r.Context(), header.Filename, payload)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if formatValue != "" {
		if job, err = s.service.SetTargetFormat(r.Context(), job.ID, formatValue); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
	}
	if qualityValue != "" {
		if job, err = s.service.SetQualityPreset(r.Context(), job.ID, qualityValue); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
	}
	s.writeJSON(w, http.StatusCreated, RegisterResponse{Job: FromJob(job), Ready: job.HasTargetFormat()})
}

func (s *Server) sourceLimitMessage() string {
	return fmt.Sprintf("source exceeds the %d MiB limit", s.cfg.Batch.MaxSourceMiB)
}

func (s *Server) handleDescribeJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.service.Job(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, JobResponse{Job: FromJob(job)})
}

func (s *Server) handleConfigureJob(w http.ResponseWriter, r *http.Request) {
	var req ConfigureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	format := strings.TrimSpace(req.TargetFormat)
	quality := strings.TrimSpace(req.Quality)
	if format == "" && quality == "" {
		s.writeError(w, http.StatusBadRequest, "set targetFormat or quality")
		return
	}

	jobID := mux.Vars(r)["id"]
	var job *queue.Job
	var err error
	if format != "" {
		if job, err = s.service.SetTargetFormat(r.Context(), jobID, format); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
	}
	if quality != "" {
		if job, err = s.service.SetQualityPreset(r.Context(), jobID, quality); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
	}
	s.writeJSON(w, http.StatusOK, JobResponse{Job: FromJob(job)})
}

func (s *Server) handleRemoveJob(w http.ResponseWriter, r *http.Request) {
	removed, err := s.service.RemoveJob(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, RemoveResponse{Removed: removed, Deferred: !removed})
}

func (s *Server) handleRetryJob(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["id"]
	retried, err := s.service.RetryJobs(r.Context(), jobID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if retried == 0 {
		job, err := s.service.Job(r.Context(), jobID)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("job %s is %s; only failed jobs can be retried", job.ID, job.Status))
		return
	}
	s.writeJSON(w, http.StatusOK, RetryResponse{Retried: retried})
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	data, job, err := s.service.GetResult(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	contentType := mime.TypeByExtension("." + job.TargetFormat.Extension())
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", media.OutputName(job.SourceName, job.TargetFormat)))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
